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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/guardian/pkg/clock"
	"github.com/carverauto/guardian/pkg/kv"
	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

func startTelemetry(t *testing.T, store kv.DocumentStore, clk *clock.Fake) *Schedule {
	t.Helper()

	tel := newTelemetry(newTestRecord(store, clk), staticCollector{snapshot: testSnapshot}, TelemetryConfig{}, logger.NewTestLogger())
	schedule := tel.Start(context.Background())
	t.Cleanup(schedule.Stop)

	return schedule
}

// waitForField waits until the record holds want under field.
func waitForField(t *testing.T, store kv.DocumentStore, field string, want interface{}) {
	t.Helper()

	require.Eventually(t, func() bool {
		record := readRecord(t, store)

		return record != nil && assert.ObjectsAreEqualValues(want, record[field])
	}, waitFor, tick, "field %s never became %v", field, want)
}

func TestTelemetryHeartbeatSchedule(t *testing.T) {
	store := kv.NewMemoryStore()
	clk := clock.NewFake(testStart)

	startTelemetry(t, store, clk)

	// first heartbeat is immediate
	waitForField(t, store, models.FieldLastSeen, float64(testStart.UnixMilli()))

	record := readRecord(t, store)
	assert.Equal(t, true, record[models.FieldIsOnline])
	assert.InDelta(t, 300, record[models.FieldHeartbeatInterval], 0)
	assert.NotContains(t, record, models.FieldOSVersion)

	clk.Advance(299 * time.Second)
	waitForField(t, store, models.FieldOSVersion, testSnapshot.OSVersion)
	assert.InDelta(t, float64(testStart.UnixMilli()), readRecord(t, store)[models.FieldLastSeen], 0)

	clk.WaitForTimers(2)
	clk.Advance(time.Second)

	waitForField(t, store, models.FieldLastSeen, float64(testStart.Add(300*time.Second).UnixMilli()))
}

func TestTelemetrySnapshotSchedule(t *testing.T) {
	store := kv.NewMemoryStore()
	clk := clock.NewFake(testStart)

	startTelemetry(t, store, clk)
	waitForField(t, store, models.FieldLastSeen, float64(testStart.UnixMilli()))

	clk.Advance(defaultSnapshotDelay)

	first := testStart.Add(defaultSnapshotDelay)
	waitForField(t, store, models.FieldLastFullSync, float64(first.UnixMilli()))

	record := readRecord(t, store)
	assert.Equal(t, testSnapshot.OSVersion, record[models.FieldOSVersion])
	assert.Equal(t, testSnapshot.IPAddress, record[models.FieldIPAddress])
	assert.InDelta(t, 87, record[models.FieldBatteryLevel], 0)
	assert.Equal(t, false, record[models.FieldIsCharging])
	assert.Equal(t, models.AttributeUnavailable, record[models.FieldSimOperator])

	clk.WaitForTimers(2)
	clk.Advance(defaultSnapshotInterval)

	waitForField(t, store, models.FieldLastFullSync, float64(first.Add(defaultSnapshotInterval).UnixMilli()))
}

func TestTelemetryWritesDoNotClobberEachOther(t *testing.T) {
	store := kv.NewMemoryStore()
	clk := clock.NewFake(testStart)

	startTelemetry(t, store, clk)
	waitForField(t, store, models.FieldLastSeen, float64(testStart.UnixMilli()))

	clk.Advance(defaultSnapshotDelay)
	waitForField(t, store, models.FieldOSVersion, testSnapshot.OSVersion)

	// heartbeat after the snapshot keeps every snapshot field
	clk.WaitForTimers(2)
	clk.Advance(defaultHeartbeatInterval - defaultSnapshotDelay)

	next := testStart.Add(defaultHeartbeatInterval)
	waitForField(t, store, models.FieldLastSeen, float64(next.UnixMilli()))

	record := readRecord(t, store)
	for field, value := range testSnapshot.Fields(testStart.Add(defaultSnapshotDelay).UnixMilli()) {
		assert.True(t, assert.ObjectsAreEqualValues(value, record[field]), "field %s changed", field)
	}

	// snapshot after the heartbeat keeps the liveness fields
	clk.WaitForTimers(2)
	clk.Advance(defaultSnapshotInterval - defaultHeartbeatInterval + defaultSnapshotDelay)

	waitForField(t, store, models.FieldLastFullSync,
		float64(testStart.Add(defaultSnapshotDelay+defaultSnapshotInterval).UnixMilli()))

	record = readRecord(t, store)
	assert.Equal(t, true, record[models.FieldIsOnline])
	assert.Contains(t, record, models.FieldLastSeen)
}

func TestTelemetryFailedWriteHealsOnNextTick(t *testing.T) {
	store := kv.NewMemoryStore()
	store.SetMergeError(errors.New("kv unavailable"))

	clk := clock.NewFake(testStart)
	log, buf := newBufferLogger()

	tel := newTelemetry(newTestRecord(store, clk), staticCollector{snapshot: testSnapshot}, TelemetryConfig{}, log)
	schedule := tel.Start(context.Background())
	t.Cleanup(schedule.Stop)

	// the immediate heartbeat fails and leaves the store empty
	require.Eventually(t, func() bool { return buf.countLevel("warn") == 1 }, waitFor, tick)
	assert.Nil(t, readRecord(t, store))

	store.SetMergeError(nil)

	clk.Advance(defaultSnapshotDelay)
	waitForField(t, store, models.FieldOSVersion, testSnapshot.OSVersion)
	assert.NotContains(t, readRecord(t, store), models.FieldLastSeen)

	clk.WaitForTimers(2)
	clk.Advance(defaultHeartbeatInterval - defaultSnapshotDelay)

	waitForField(t, store, models.FieldLastSeen, float64(testStart.Add(defaultHeartbeatInterval).UnixMilli()))
}

func TestScheduleStopReleasesTimers(t *testing.T) {
	clk := clock.NewFake(testStart)
	tel := newTelemetry(newTestRecord(kv.NewMemoryStore(), clk), staticCollector{}, TelemetryConfig{}, logger.NewTestLogger())

	schedule := tel.Start(context.Background())
	assert.Equal(t, 2, clk.PendingCount())

	schedule.Stop()
	schedule.Stop()

	assert.Equal(t, 0, clk.PendingCount())

	select {
	case <-schedule.Done():
	default:
		t.Fatal("schedule not done after Stop")
	}
}

func TestTelemetryConfigOverrides(t *testing.T) {
	cfg := TelemetryConfig{
		HeartbeatInterval: models.Duration(time.Minute),
		SnapshotDelay:     models.Duration(time.Second),
	}

	assert.Equal(t, time.Minute, cfg.heartbeatInterval())
	assert.Equal(t, time.Second, cfg.snapshotDelay())
	assert.Equal(t, defaultSnapshotInterval, cfg.snapshotInterval())
}
