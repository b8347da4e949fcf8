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
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/guardian/pkg/clock"
	"github.com/carverauto/guardian/pkg/kv"
	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

// Deps are the collaborators of a ControlPlane. Commands and Actuators are
// optional; the rest are required except Clock and Tracer, which default to
// the wall clock and the global tracer.
type Deps struct {
	Store     kv.DocumentStore
	Commands  CommandSource
	Engines   EngineFactory
	Actuators Actuators
	Surface   Surface
	Collector DeviceCollector
	Clock     clock.Clock
	Tracer    trace.Tracer
	Logger    logger.Logger
}

func (d *Deps) validate() error {
	switch {
	case d.Store == nil:
		return errStoreRequired
	case d.Engines == nil:
		return errEngineFactoryNeeded
	case d.Surface == nil:
		return errSurfaceRequired
	case d.Collector == nil:
		return errCollectorRequired
	}

	if d.Clock == nil {
		d.Clock = clock.Real()
	}

	if d.Tracer == nil {
		d.Tracer = otel.Tracer(tracerName)
	}

	if d.Logger == nil {
		d.Logger = logger.NewTestLogger()
	}

	return nil
}

// ControlPlane owns one run of the agent at a time: the signaling listener,
// the command subscription, the telemetry schedule and the indicator.
type ControlPlane struct {
	pairing   models.Pairing
	telemetry TelemetryConfig
	deps      Deps
	logger    logger.Logger

	mu  sync.Mutex
	run *agentState
}

// agentState is everything one run holds. It is never reused; a restart
// builds a fresh one.
type agentState struct {
	cancel       context.CancelFunc
	subscription Subscription
	schedule     *Schedule
	indicator    *Indicator
	resolver     *CapabilityResolver
	dispatcher   *Dispatcher
	launcher     *Launcher

	done     chan struct{}
	err      error
	stopOnce sync.Once
}

func NewControlPlane(pairing models.Pairing, telemetry TelemetryConfig, deps Deps) (*ControlPlane, error) {
	if err := pairing.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pairing: %w", err)
	}

	if err := deps.validate(); err != nil {
		return nil, err
	}

	return &ControlPlane{
		pairing:   pairing,
		telemetry: telemetry,
		deps:      deps,
		logger:    deps.Logger,
	}, nil
}

// Start tears down the current run, if any, and starts a new one. It never
// leaves two runs active.
func (c *ControlPlane) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != nil {
		c.logger.Info().Msg("Replacing running control plane")
		c.run.teardown(c.logger)
		c.run = nil
	}

	state, err := c.startLocked(ctx)
	if err != nil {
		return err
	}

	c.run = state

	c.logger.Info().
		Str("controller_id", c.pairing.ControllerID).
		Str("device_id", c.pairing.DeviceID).
		Msg("Control plane started")

	return nil
}

func (c *ControlPlane) startLocked(ctx context.Context) (*agentState, error) {
	runCtx, cancel := context.WithCancel(ctx)
	key := c.pairing.RecordKey()

	updates, err := c.deps.Store.Watch(runCtx, key)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("failed to watch device record %s: %w", key, err)
	}

	record := recordWriter{store: c.deps.Store, key: key, clock: c.deps.Clock}

	state := &agentState{cancel: cancel, done: make(chan struct{})}
	state.indicator = NewIndicator(c.deps.Surface, c.logger.WithComponent("indicator"))
	state.resolver = NewCapabilityResolver(c.deps.Engines, record, c.logger.WithComponent("resolver"))
	state.dispatcher = NewDispatcher(state.resolver, c.deps.Actuators, state.indicator, c.logger.WithComponent("dispatcher"))
	state.launcher = newLauncher(state.resolver, state.indicator, record, c.deps.Tracer, c.logger.WithComponent("launcher"))

	listener := newListener(c.pairing, state.launcher, c.logger.WithComponent("listener"))
	telemetry := newTelemetry(record, c.deps.Collector, c.telemetry, c.logger.WithComponent("telemetry"))

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return guard(c.logger, "indicator", func() error { return state.indicator.Run(gctx) })
	})

	g.Go(func() error {
		return guard(c.logger, "listener", func() error { return listener.Consume(gctx, updates) })
	})

	state.schedule = telemetry.Start(gctx)

	go func() {
		state.err = g.Wait()
		close(state.done)
	}()

	if c.deps.Commands != nil {
		sub, err := c.deps.Commands.Subscribe(gctx, c.pairing, func(token string) {
			state.dispatcher.Dispatch(gctx, token)
		})
		if err != nil {
			state.teardown(c.logger)

			return nil, fmt.Errorf("failed to subscribe to commands: %w", err)
		}

		state.subscription = sub
	}

	return state, nil
}

// guard runs fn, turning a panic into an error so that it fails the run
// instead of the process.
func guard(log logger.Logger, name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("task", name).Interface("panic", r).Msg("Control plane task panicked")
			err = fmt.Errorf("%w: %s: %v", errPanic, name, r)
		}
	}()

	return fn()
}

// teardown releases the run in order: no new commands, cancel, wait for the
// telemetry executor, then let in-flight work finish before the engine closes.
func (s *agentState) teardown(log logger.Logger) {
	s.stopOnce.Do(func() {
		if s.subscription != nil {
			if err := s.subscription.Unsubscribe(); err != nil {
				log.Warn().Err(err).Msg("Failed to unsubscribe from commands")
			}
		}

		s.cancel()

		if s.schedule != nil {
			s.schedule.Stop()
		}

		<-s.done

		s.dispatcher.Close()
		s.launcher.Wait()

		if err := s.resolver.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close media engine")
		}
	})
}

// Wait blocks until the current run ends and returns why it ended. A run
// ended by Stop or by its context returns nil.
func (c *ControlPlane) Wait() error {
	c.mu.Lock()
	state := c.run
	c.mu.Unlock()

	if state == nil {
		return ErrNotStarted
	}

	<-state.done

	return state.err
}

// Stop ends the current run and releases everything it holds.
func (c *ControlPlane) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run == nil {
		return
	}

	c.run.teardown(c.logger)

	c.logger.Info().Msg("Control plane stopped")
}

// IndicatorState returns the indicator state of the current run.
func (c *ControlPlane) IndicatorState() models.IndicatorState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run == nil {
		return models.IndicatorIdle
	}

	return c.run.indicator.State()
}

// Dispatch hands a command token to the current run, as a command source
// would. It is a no-op without a run.
func (c *ControlPlane) Dispatch(ctx context.Context, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run == nil {
		c.logger.Warn().Str("command", token).Msg("Command received without a running control plane")

		return
	}

	c.run.dispatcher.Dispatch(ctx, token)
}
