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

	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

// Dispatcher maps remote command tokens to local actions. Actions run in the
// background; Dispatch itself never blocks on them and never fails.
type Dispatcher struct {
	resolver  *CapabilityResolver
	actuators Actuators
	indicator *Indicator
	logger    logger.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(resolver *CapabilityResolver, actuators Actuators, indicator *Indicator, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		resolver:  resolver,
		actuators: actuators,
		indicator: indicator,
		logger:    log,
	}
}

// Dispatch starts the action for raw. Unknown tokens are logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, raw string) {
	token, ok := models.ParseCommandToken(raw)
	if !ok {
		d.logger.Warn().Str("command", raw).Msg("Unknown command received, ignoring")
		recordCommand(ctx, "unknown", outcomeUnknown)

		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Debug().Str("command", raw).Msg("Dispatcher closed, dropping command")

		return
	}

	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error().Str("command", string(token)).Interface("panic", r).Msg("Command action panicked")
				recordCommand(ctx, string(token), outcomeFailure)
			}
		}()

		if err := d.execute(ctx, token); err != nil {
			d.logger.Error().Err(err).Str("command", string(token)).Msg("Command failed")
			recordCommand(ctx, string(token), outcomeFailure)

			return
		}

		d.logger.Info().Str("command", string(token)).Msg("Command completed")
		recordCommand(ctx, string(token), outcomeSuccess)
	}()
}

// Close stops accepting commands and waits for dispatched actions to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) execute(ctx context.Context, token models.CommandToken) error {
	switch token {
	case models.CommandPlayAlarm:
		if d.actuators == nil {
			return errActuatorsMissing
		}

		return d.actuators.PlayAlert(ctx)
	case models.CommandVibrateDevice:
		if d.actuators == nil {
			return errActuatorsMissing
		}

		return d.actuators.Vibrate(ctx, vibrateDuration)
	}

	engine, err := d.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	switch token {
	case models.CommandStartCamera:
		return d.startCapture(ctx, engine, models.CaptureCamera)
	case models.CommandStopCamera:
		return d.stopCapture(ctx, engine, models.CaptureCamera)
	case models.CommandStartScreen:
		return d.startCapture(ctx, engine, models.CaptureScreen)
	case models.CommandStopScreen:
		return d.stopCapture(ctx, engine, models.CaptureScreen)
	case models.CommandSwitchCamera:
		return engine.SwitchCamera(ctx)
	case models.CommandMuteAudio:
		return engine.SetAudioEnabled(ctx, false)
	case models.CommandUnmuteAudio:
		return engine.SetAudioEnabled(ctx, true)
	default:
		return fmt.Errorf("%w: %s", errUnhandledCommand, token)
	}
}

func (d *Dispatcher) startCapture(ctx context.Context, engine MediaEngine, mode models.CaptureMode) error {
	if err := engine.StartCapture(ctx, mode); err != nil {
		return err
	}

	d.indicator.Transition(ctx, models.IndicatorMonitoring)

	return nil
}

func (d *Dispatcher) stopCapture(ctx context.Context, engine MediaEngine, mode models.CaptureMode) error {
	if err := engine.StopCapture(ctx, mode); err != nil {
		return err
	}

	d.indicator.Transition(ctx, models.IndicatorIdle)

	return nil
}
