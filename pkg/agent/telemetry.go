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
	"time"

	"github.com/carverauto/guardian/pkg/clock"
	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

const (
	taskHeartbeat = "heartbeat"
	taskSnapshot  = "snapshot"
)

// Telemetry writes the heartbeat and the device snapshot into the device
// record. Both tasks run on one goroutine and never overlap.
type Telemetry struct {
	record    recordWriter
	collector DeviceCollector
	clock     clock.Clock
	cfg       TelemetryConfig
	logger    logger.Logger
}

func newTelemetry(record recordWriter, collector DeviceCollector, cfg TelemetryConfig, log logger.Logger) *Telemetry {
	return &Telemetry{
		record:    record,
		collector: collector,
		clock:     record.clock,
		cfg:       cfg,
		logger:    log,
	}
}

// Schedule is one running pair of telemetry tasks.
type Schedule struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop cancels both tasks and waits for the executor to return. A write in
// progress is abandoned.
func (s *Schedule) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the executor has returned.
func (s *Schedule) Done() <-chan struct{} {
	return s.done
}

// Start runs the heartbeat immediately and then every heartbeat interval,
// and the snapshot after the snapshot delay and then every snapshot
// interval, until ctx ends or the schedule is stopped.
func (t *Telemetry) Start(ctx context.Context) *Schedule {
	ctx, cancel := context.WithCancel(ctx)

	s := &Schedule{cancel: cancel, done: make(chan struct{})}

	heartbeat := t.clock.NewTicker(t.cfg.heartbeatInterval())
	snapshotDelay := t.clock.NewTimer(t.cfg.snapshotDelay())

	go func() {
		defer close(s.done)
		defer heartbeat.Stop()

		t.heartbeat(ctx)

		t.run(ctx, heartbeat, snapshotDelay)
	}()

	return s
}

func (t *Telemetry) run(ctx context.Context, heartbeat *clock.Ticker, snapshotDelay *clock.Timer) {
	var snapshots *clock.Ticker

	defer func() {
		if snapshots != nil {
			snapshots.Stop()
		} else {
			snapshotDelay.Stop()
		}
	}()

	// nil until the first snapshot has run
	var snapshotTick <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			t.heartbeat(ctx)
		case <-snapshotDelay.C:
			snapshots = t.clock.NewTicker(t.cfg.snapshotInterval())
			snapshotTick = snapshots.C

			t.snapshot(ctx)
		case <-snapshotTick:
			t.snapshot(ctx)
		}
	}
}

func (t *Telemetry) heartbeat(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	fields := map[string]interface{}{
		models.FieldLastSeen:          t.record.nowMillis(),
		models.FieldIsOnline:          true,
		models.FieldHeartbeatInterval: int64(t.cfg.heartbeatInterval().Seconds()),
	}

	t.write(ctx, taskHeartbeat, fields)
}

func (t *Telemetry) snapshot(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	snapshot := t.collector.Collect(ctx)

	t.write(ctx, taskSnapshot, snapshot.Fields(t.record.nowMillis()))
}

func (t *Telemetry) write(ctx context.Context, task string, fields map[string]interface{}) {
	if err := t.record.merge(ctx, fields); err != nil {
		if ctx.Err() != nil {
			return
		}

		t.logger.Warn().Err(err).Str("task", task).Msg("Telemetry write failed")
		recordTelemetryWrite(ctx, task, outcomeFailure)

		return
	}

	t.logger.Debug().Str("task", task).Msg("Telemetry written")
	recordTelemetryWrite(ctx, task, outcomeSuccess)
}
