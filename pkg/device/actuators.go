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

package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/carverauto/guardian/pkg/logger"
)

const defaultVibratorPath = "/sys/class/timed_output/vibrator/enable"

var defaultAlertCommand = []string{"paplay", "/usr/share/sounds/freedesktop/stereo/alarm-clock-elapsed.oga"}

var (
	// ErrActuatorUnavailable is returned when the device has no such actuator configured.
	ErrActuatorUnavailable = errors.New("actuator unavailable")
	errInvalidDuration     = errors.New("vibration duration must be positive")
)

// Actuators drives the local alert sound and vibrator.
type Actuators struct {
	alertCommand []string
	vibratorPath string
	runCommand   func(ctx context.Context, name string, args ...string) ([]byte, error)
	logger       logger.Logger
}

func NewActuators(cfg Config, log logger.Logger) *Actuators {
	alert := cfg.AlertCommand
	if len(alert) == 0 {
		alert = defaultAlertCommand
	}

	vibrator := cfg.VibratorPath
	if vibrator == "" {
		vibrator = defaultVibratorPath
	}

	return &Actuators{
		alertCommand: alert,
		vibratorPath: vibrator,
		runCommand:   runCommand,
		logger:       log,
	}
}

// PlayAlert plays the alert sound once and returns when playback ends.
func (a *Actuators) PlayAlert(ctx context.Context) error {
	if len(a.alertCommand) == 0 || a.alertCommand[0] == "" {
		return ErrActuatorUnavailable
	}

	if _, err := a.runCommand(ctx, a.alertCommand[0], a.alertCommand[1:]...); err != nil {
		return fmt.Errorf("play alert: %w", err)
	}

	a.logger.Debug().Strs("command", a.alertCommand).Msg("Alert played")

	return nil
}

// Vibrate runs the vibrator for d. The timed_output driver switches itself
// off, so the call returns immediately.
func (a *Actuators) Vibrate(_ context.Context, d time.Duration) error {
	if d <= 0 {
		return errInvalidDuration
	}

	if _, err := os.Stat(a.vibratorPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrActuatorUnavailable, a.vibratorPath)
	}

	ms := strconv.FormatInt(d.Milliseconds(), 10)

	if err := os.WriteFile(a.vibratorPath, []byte(ms), 0o200); err != nil {
		return fmt.Errorf("vibrate: %w", err)
	}

	a.logger.Debug().Dur("duration", d).Msg("Vibrator triggered")

	return nil
}
