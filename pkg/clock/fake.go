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
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Clock for tests. Time only moves when Advance
// is called; timers and tickers whose deadline is reached fire during
// Advance in deadline order.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	pending []*pendingTimer
	changed *sync.Cond
}

type pendingTimer struct {
	deadline time.Time
	ch       chan time.Time
	period   time.Duration // zero for one-shot timers
}

// NewFake returns a Fake clock reading start.
func NewFake(start time.Time) *Fake {
	f := &Fake{now: start}
	f.changed = sync.NewCond(&f.mu)

	return f
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	return f.NewTimer(d).C
}

func (f *Fake) NewTimer(d time.Duration) *Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- f.now

		return &Timer{C: ch, stop: func() bool { return false }}
	}

	p := f.addLocked(d, 0, ch)

	return &Timer{C: ch, stop: func() bool { return f.stop(p) }}
}

func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	p := f.addLocked(d, d, ch)

	return &Ticker{C: ch, stop: func() { f.stop(p) }}
}

func (f *Fake) addLocked(d, period time.Duration, ch chan time.Time) *pendingTimer {
	p := &pendingTimer{deadline: f.now.Add(d), ch: ch, period: period}
	f.pending = append(f.pending, p)
	f.changed.Broadcast()

	return p
}

func (f *Fake) stop(p *pendingTimer) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, q := range f.pending {
		if q == p {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			f.changed.Broadcast()

			return true
		}
	}

	return false
}

// Advance moves the clock forward by d, firing everything that comes due.
// A ticker spanning several periods fires once per period; ticks that find
// the channel full are dropped, as with time.Ticker.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	target := f.now
	f.mu.Unlock()

	for {
		due := f.collectDue(target)
		if len(due) == 0 {
			return
		}

		for _, p := range due {
			select {
			case p.ch <- p.deadline:
			default:
			}
		}
	}
}

// collectDue removes expired one-shot timers, reschedules expired tickers
// and returns what should fire, earliest first.
func (f *Fake) collectDue(target time.Time) []pendingTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due []pendingTimer

	remaining := f.pending[:0]

	for _, p := range f.pending {
		if p.deadline.After(target) {
			remaining = append(remaining, p)

			continue
		}

		due = append(due, *p)

		if p.period > 0 {
			p.deadline = p.deadline.Add(p.period)
			remaining = append(remaining, p)
		}
	}

	f.pending = remaining

	sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })

	if len(due) > 0 {
		f.changed.Broadcast()
	}

	return due
}

// WaitForTimers blocks until at least n timers or tickers are pending. It
// closes the race between a goroutine registering a timer and the test
// advancing the clock past it.
func (f *Fake) WaitForTimers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.pending) < n {
		f.changed.Wait()
	}
}

// PendingCount returns the number of registered, unfired timers and tickers.
func (f *Fake) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.pending)
}
