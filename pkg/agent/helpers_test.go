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
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/guardian/pkg/clock"
	"github.com/carverauto/guardian/pkg/kv"
	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

var (
	testPairing = models.Pairing{ControllerID: "parent", DeviceID: "child"}
	testStart   = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

// syncBuffer is a log sink that can be written from many goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// countLevel counts the JSON log lines written at level.
func (b *syncBuffer) countLevel(level string) int {
	n := 0

	for _, line := range strings.Split(b.String(), "\n") {
		if strings.Contains(line, `"level":"`+level+`"`) {
			n++
		}
	}

	return n
}

func newBufferLogger() (logger.Logger, *syncBuffer) {
	buf := &syncBuffer{}

	return logger.New(buf, zerolog.DebugLevel), buf
}

type recordingSurface struct {
	mu     sync.Mutex
	states []models.IndicatorState
	err    error
}

func (s *recordingSurface) Render(state models.IndicatorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states = append(s.states, state)

	return s.err
}

func (s *recordingSurface) rendered() []models.IndicatorState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.IndicatorState(nil), s.states...)
}

type staticCollector struct {
	snapshot models.DeviceSnapshot
}

func (c staticCollector) Collect(context.Context) models.DeviceSnapshot {
	return c.snapshot
}

var testSnapshot = models.DeviceSnapshot{
	OSVersion:    "Debian GNU/Linux 12",
	IPAddress:    "192.168.1.20",
	BatteryLevel: 87,
	IsCharging:   false,
	SimOperator:  models.AttributeUnavailable,
}

// fakeCommandSource tracks how many subscriptions are open.
type fakeCommandSource struct {
	mu       sync.Mutex
	active   int
	handlers []func(string)
	err      error
}

type fakeSubscription struct {
	source *fakeCommandSource
	once   sync.Once
}

func (s *fakeSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.source.mu.Lock()
		s.source.active--
		s.source.mu.Unlock()
	})

	return nil
}

func (f *fakeCommandSource) Subscribe(_ context.Context, _ models.Pairing, handler func(string)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	f.active++
	f.handlers = append(f.handlers, handler)

	return &fakeSubscription{source: f}, nil
}

func (f *fakeCommandSource) activeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.active
}

// deliver calls the most recently registered handler.
func (f *fakeCommandSource) deliver(token string) {
	f.mu.Lock()
	handler := f.handlers[len(f.handlers)-1]
	f.mu.Unlock()

	handler(token)
}

type recordedEvent struct {
	eventType string
	data      models.AgentEventData
}

type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *recordingSink) PublishAgentEvent(_ context.Context, eventType string, data models.AgentEventData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, recordedEvent{eventType: eventType, data: data})

	return nil
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.eventType)
	}

	return out
}

// countingFactory hands out engine, or fails with err, and counts calls.
type countingFactory struct {
	mu     sync.Mutex
	calls  int
	engine MediaEngine
	err    error
}

func (f *countingFactory) create(OfferPublisher) (MediaEngine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	return f.engine, nil
}

// failingFactory is an EngineFactory that never produces an engine.
func failingFactory(err error) EngineFactory {
	return (&countingFactory{err: err}).create
}

func (f *countingFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

// startIndicator runs an indicator until the test ends.
func startIndicator(t *testing.T, surface Surface, log logger.Logger) *Indicator {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	ind := NewIndicator(surface, log)

	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = ind.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.NoError(t, ind.Sync(ctx))

	return ind
}

func newTestRecord(store kv.DocumentStore, clk clock.Clock) recordWriter {
	return recordWriter{store: store, key: testPairing.RecordKey(), clock: clk}
}

// readRecord decodes the test device's record from store.
func readRecord(t *testing.T, store kv.DocumentStore) map[string]interface{} {
	t.Helper()

	doc, found, err := store.Get(context.Background(), testPairing.RecordKey())
	require.NoError(t, err)

	if !found {
		return nil
	}

	return decodeRecord(t, doc)
}

func decodeRecord(t *testing.T, doc []byte) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(doc, &out))

	return out
}
