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

package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/guardian/pkg/kv"
	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
	"github.com/carverauto/guardian/pkg/watchdog"
)

const testRestartDelay = 10 * time.Millisecond

type supervisorRun struct {
	cancel   context.CancelFunc
	done     chan error
	restarts chan RestartEvent
	sink     *recordingSink
	marker   string
}

func runSupervisor(t *testing.T, plane *ControlPlane, marker string) *supervisorRun {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	r := &supervisorRun{
		cancel:   cancel,
		done:     make(chan error, 1),
		restarts: make(chan RestartEvent, 16),
		sink:     &recordingSink{},
		marker:   marker,
	}

	sup := NewSupervisor(plane, SupervisorConfig{
		RestartDelay: testRestartDelay,
		MarkerPath:   marker,
		Events:       r.sink,
		Logger:       logger.NewTestLogger(),
		OnRestart: func(e RestartEvent) {
			select {
			case r.restarts <- e:
			default:
			}
		},
	})

	go func() { r.done <- sup.Run(ctx) }()

	return r
}

func (r *supervisorRun) stop(t *testing.T) {
	t.Helper()

	r.cancel()

	select {
	case err := <-r.done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("supervisor did not stop")
	}
}

func (r *supervisorRun) nextRestart(t *testing.T) RestartEvent {
	t.Helper()

	select {
	case e := <-r.restarts:
		return e
	case <-time.After(waitFor):
		t.Fatal("no restart signaled")

		return RestartEvent{}
	}
}

func (h *planeHarness) waitForSingleRun(t *testing.T) {
	t.Helper()

	require.Eventually(t, func() bool {
		return h.store.ActiveWatches() == 1 && h.commands.activeCount() == 1
	}, waitFor, tick)
}

func TestSupervisorRestartsAfterTeardown(t *testing.T) {
	h := newPlaneHarness(t)
	h.engine.EXPECT().StartCapture(gomock.Any(), models.CaptureCamera).Return(nil)
	h.engine.EXPECT().Close().Return(nil).AnyTimes()

	r := runSupervisor(t, h.plane, filepath.Join(t.TempDir(), "agent.marker"))
	h.waitForSingleRun(t)

	h.commands.deliver("startCamera")
	require.Eventually(t, func() bool {
		return h.plane.IndicatorState() == models.IndicatorMonitoring
	}, waitFor, tick)

	h.store.DropWatches()

	event := r.nextRestart(t)
	assert.Equal(t, 1, event.Attempt)
	require.ErrorIs(t, event.Reason, ErrSubscriptionLost)

	h.waitForSingleRun(t)
	assert.Equal(t, models.IndicatorIdle, h.plane.IndicatorState())

	require.Eventually(t, func() bool {
		rendered := h.surface.rendered()

		return len(rendered) >= 3 && rendered[len(rendered)-1] == models.IndicatorIdle
	}, waitFor, tick)

	require.Eventually(t, func() bool {
		m, err := watchdog.Read(r.marker)

		return err == nil && m.Restarts == 1
	}, waitFor, tick)

	r.stop(t)

	_, err := os.Stat(r.marker)
	require.ErrorIs(t, err, os.ErrNotExist)

	assert.Equal(t, []string{
		models.AgentEventStarted,
		models.AgentEventRestarted,
		models.AgentEventStopped,
	}, r.sink.types())
}

func TestSupervisorReportsUncleanPreviousInstance(t *testing.T) {
	h := newPlaneHarness(t)
	marker := filepath.Join(t.TempDir(), "agent.marker")

	require.NoError(t, watchdog.Write(marker, watchdog.Marker{
		InstanceID: "previous",
		PID:        4242,
		StartedAt:  testStart,
		Restarts:   2,
	}))

	r := runSupervisor(t, h.plane, marker)
	h.waitForSingleRun(t)

	current, err := watchdog.Read(marker)
	require.NoError(t, err)
	assert.NotEqual(t, "previous", current.InstanceID)
	assert.Equal(t, os.Getpid(), current.PID)
	assert.Zero(t, current.Restarts)

	r.stop(t)

	require.Equal(t, []string{
		models.AgentEventRestarted,
		models.AgentEventStarted,
		models.AgentEventStopped,
	}, r.sink.types())

	restarted := r.sink.events[0].data
	assert.Equal(t, 3, restarted.Attempt)
	assert.Equal(t, "parent", restarted.ControllerID)
	assert.Equal(t, "child", restarted.DeviceID)
	assert.Equal(t, current.InstanceID, restarted.InstanceID)
}

func TestSupervisorRetriesFailedStart(t *testing.T) {
	h := newPlaneHarness(t)
	require.NoError(t, h.store.Close())

	r := runSupervisor(t, h.plane, "")

	first := r.nextRestart(t)
	second := r.nextRestart(t)

	assert.Equal(t, 1, first.Attempt)
	assert.Equal(t, 2, second.Attempt)
	require.ErrorIs(t, second.Reason, kv.ErrStoreClosed)
	assert.GreaterOrEqual(t, second.At.Sub(first.At), testRestartDelay)

	r.stop(t)
}
