/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeTimerFiresAtDeadline(t *testing.T) {
	c := NewFake(epoch)
	timer := c.NewTimer(5 * time.Second)

	c.Advance(4 * time.Second)

	select {
	case <-timer.C:
		t.Fatal("timer fired early")
	default:
	}

	c.Advance(time.Second)

	select {
	case fired := <-timer.C:
		assert.Equal(t, epoch.Add(5*time.Second), fired)
	default:
		t.Fatal("timer did not fire")
	}

	assert.Equal(t, 0, c.PendingCount())
}

func TestFakeTimerStop(t *testing.T) {
	c := NewFake(epoch)
	timer := c.NewTimer(time.Second)

	require.Equal(t, 1, c.PendingCount())
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	assert.Equal(t, 0, c.PendingCount())

	c.Advance(time.Minute)

	select {
	case <-timer.C:
		t.Fatal("stopped timer fired")
	default:
	}
}

func TestFakeTickerRepeats(t *testing.T) {
	c := NewFake(epoch)
	ticker := c.NewTicker(time.Minute)

	defer ticker.Stop()

	for i := 1; i <= 3; i++ {
		c.Advance(time.Minute)

		select {
		case tick := <-ticker.C:
			assert.Equal(t, epoch.Add(time.Duration(i)*time.Minute), tick)
		default:
			t.Fatalf("tick %d missing", i)
		}
	}

	assert.Equal(t, 1, c.PendingCount())

	ticker.Stop()
	assert.Equal(t, 0, c.PendingCount())
}

func TestFakeNonPositiveTimerFiresImmediately(t *testing.T) {
	c := NewFake(epoch)

	select {
	case <-c.After(0):
	default:
		t.Fatal("zero duration timer should fire immediately")
	}

	assert.Equal(t, 0, c.PendingCount())
}

func TestFakeWaitForTimers(t *testing.T) {
	c := NewFake(epoch)
	done := make(chan struct{})

	go func() {
		<-c.After(time.Hour)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(time.Hour)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not released")
	}
}
