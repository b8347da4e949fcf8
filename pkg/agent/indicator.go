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
	"sync"

	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

const indicatorQueueSize = 16

type indicatorMsg struct {
	state   models.IndicatorState
	barrier chan struct{} // set for Sync requests, which carry no state
}

// Indicator owns the visible activity state. Transitions are queued and
// applied by the single goroutine running Run, so the last transition
// enqueued is the one left on the surface.
type Indicator struct {
	surface Surface
	logger  logger.Logger
	queue   chan indicatorMsg
	done    chan struct{}

	mu    sync.RWMutex
	state models.IndicatorState
}

func NewIndicator(surface Surface, log logger.Logger) *Indicator {
	return &Indicator{
		surface: surface,
		logger:  log,
		queue:   make(chan indicatorMsg, indicatorQueueSize),
		done:    make(chan struct{}),
	}
}

// Run renders Idle and then applies queued transitions until ctx ends.
func (i *Indicator) Run(ctx context.Context) error {
	defer close(i.done)

	i.apply(models.IndicatorIdle)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-i.queue:
			if msg.barrier != nil {
				close(msg.barrier)

				continue
			}

			i.apply(msg.state)
		}
	}
}

func (i *Indicator) apply(state models.IndicatorState) {
	i.mu.Lock()
	previous := i.state
	i.state = state
	i.mu.Unlock()

	if err := i.surface.Render(state); err != nil {
		i.logger.Warn().Err(err).Str("state", state.String()).Msg("Failed to render indicator")

		return
	}

	if previous != state {
		i.logger.Info().Str("from", previous.String()).Str("to", state.String()).Msg("Indicator changed")
	}
}

// Transition queues a change to state. It gives up when ctx ends or the
// indicator has stopped.
func (i *Indicator) Transition(ctx context.Context, state models.IndicatorState) {
	select {
	case i.queue <- indicatorMsg{state: state}:
	case <-ctx.Done():
	case <-i.done:
	}
}

// Sync waits until every transition queued before it has been applied.
func (i *Indicator) Sync(ctx context.Context) error {
	barrier := make(chan struct{})

	select {
	case i.queue <- indicatorMsg{barrier: barrier}:
	case <-ctx.Done():
		return ctx.Err()
	case <-i.done:
		return nil
	}

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-i.done:
		return nil
	}
}

// State returns the last applied state.
func (i *Indicator) State() models.IndicatorState {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return i.state
}
