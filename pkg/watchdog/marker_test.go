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

package watchdog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.marker")
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, Write(path, Marker{InstanceID: "abc", PID: 42, StartedAt: started, Restarts: 1}))

	m, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", m.InstanceID)
	assert.Equal(t, 42, m.PID)
	assert.Equal(t, 1, m.Restarts)
	assert.True(t, m.StartedAt.Equal(started))

	require.NoError(t, Clear(path))
	require.NoError(t, Clear(path))

	_, err = Read(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.marker")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, found, err := Check(path, time.Hour, now)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, Write(path, Marker{InstanceID: "abc", StartedAt: now.Add(-time.Minute)}))

	m, found, err := Check(path, time.Hour, now)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc", m.InstanceID)

	_, found, err = Check(path, time.Hour, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, found, "stale marker is ignored")

	_, found, err = Check(path, 0, now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.True(t, found, "zero max age never expires")
}

func TestCheckCorruptMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.marker")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := Check(path, time.Hour, time.Now())
	require.Error(t, err)
}
