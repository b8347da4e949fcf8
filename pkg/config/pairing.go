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

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/carverauto/guardian/pkg/models"
)

var (
	// ErrPairingMissing means the device was never paired with a controller.
	// The agent cannot run without a pairing and must not be restarted.
	ErrPairingMissing = errors.New("device pairing not found")
	// ErrPairingInvalid means a pairing file exists but cannot be used.
	ErrPairingInvalid = errors.New("device pairing invalid")
)

// LoadPairing reads the pairing written at enrollment time. The pairing
// always comes from its own file regardless of CONFIG_SOURCE.
func (c *Config) LoadPairing(ctx context.Context, path string) (models.Pairing, error) {
	var pairing models.Pairing

	if path == "" {
		return pairing, ErrPairingMissing
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return pairing, fmt.Errorf("%w: %s", ErrPairingMissing, path)
	}

	if err := c.defaultLoader.Load(ctx, path, &pairing); err != nil {
		return pairing, fmt.Errorf("%w: %w", ErrPairingInvalid, err)
	}

	if err := pairing.Validate(); err != nil {
		return pairing, fmt.Errorf("%w: %w", ErrPairingInvalid, err)
	}

	c.logger.Debug().
		Str("controller_id", pairing.ControllerID).
		Str("device_id", pairing.DeviceID).
		Msg("Loaded device pairing")

	return pairing, nil
}
