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

// Package watchdog tracks whether the agent process was torn down without a
// clean shutdown. The supervisor writes a marker while it runs and clears it
// when it stops cleanly; a marker found at startup belongs to a process that
// died.
package watchdog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/carverauto/guardian/pkg/fsutil"
)

// Marker records the process that owns the agent.
type Marker struct {
	InstanceID string    `json:"instance_id"`
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"started_at"`
	Restarts   int       `json:"restarts"`
}

// Write atomically replaces the marker at path.
func Write(path string, m Marker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling marker: %w", err)
	}

	data = append(data, '\n')

	return fsutil.WriteFileAtomic(path, data, 0o600)
}

// Read parses the marker at path. A missing file yields an error wrapping
// os.ErrNotExist.
func Read(path string) (Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Marker{}, err
	}

	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return Marker{}, fmt.Errorf("parsing marker %s: %w", path, err)
	}

	return m, nil
}

// Check returns the marker left at path and true when it is younger than
// maxAge. Stale or missing markers report false without an error.
func Check(path string, maxAge time.Duration, now time.Time) (Marker, bool, error) {
	m, err := Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return Marker{}, false, nil
	}

	if err != nil {
		return Marker{}, false, err
	}

	if maxAge > 0 && now.Sub(m.StartedAt) > maxAge {
		return Marker{}, false, nil
	}

	return m, true, nil
}

// Clear removes the marker. It is a no-op when there is none.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing marker: %w", err)
	}

	return nil
}
