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
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/guardian/pkg/clock"
	"github.com/carverauto/guardian/pkg/kv"
	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

// recordWriter performs merge writes against this device's record.
type recordWriter struct {
	store kv.DocumentStore
	key   string
	clock clock.Clock
}

func (w recordWriter) merge(ctx context.Context, fields map[string]interface{}) error {
	return w.store.Merge(ctx, w.key, fields)
}

func (w recordWriter) nowMillis() int64 {
	return w.clock.Now().UnixMilli()
}

// PublishLocalOffer stores an engine-created offer as localOffer.
func (w recordWriter) PublishLocalOffer(ctx context.Context, mode models.CaptureMode, desc models.SessionDescription) error {
	offer := models.SignalOffer{
		SDP:       desc.SDP,
		Type:      string(desc.Type),
		Mode:      string(mode),
		CreatedAt: json.RawMessage(strconv.FormatInt(w.nowMillis(), 10)),
	}

	if err := w.merge(ctx, map[string]interface{}{models.FieldLocalOffer: offer}); err != nil {
		return fmt.Errorf("publish local offer: %w", err)
	}

	return nil
}

// Launcher turns decoded offers into sessions on the media engine. One
// establishment runs at a time, and a description is acted on only once.
type Launcher struct {
	resolver  *CapabilityResolver
	indicator *Indicator
	record    recordWriter
	tracer    trace.Tracer
	logger    logger.Logger

	mu              sync.Mutex
	inFlight        bool
	lastFingerprint string
	wg              sync.WaitGroup
}

func newLauncher(
	resolver *CapabilityResolver, indicator *Indicator, record recordWriter, tracer trace.Tracer, log logger.Logger) *Launcher {
	return &Launcher{
		resolver:  resolver,
		indicator: indicator,
		record:    record,
		tracer:    tracer,
		logger:    log,
	}
}

// Launch starts establishing the session described by req in the
// background. It returns the outcome recorded for the offer: forwarded when
// establishment started, otherwise why it was dropped.
func (l *Launcher) Launch(ctx context.Context, req models.SessionRequest) string {
	fingerprint := req.Description.Fingerprint()

	l.mu.Lock()
	defer l.mu.Unlock()

	if fingerprint == l.lastFingerprint {
		l.logger.Debug().Str("fingerprint", fingerprint).Msg("Session description already handled")

		return outcomeDuplicate
	}

	if l.inFlight {
		l.logger.Warn().Str("type", string(req.Description.Type)).Msg("Session establishment in progress, dropping request")

		return outcomeBusy
	}

	engine, err := l.resolver.Resolve(ctx)
	if err != nil {
		l.logger.Error().Err(err).Msg("Cannot establish session")
		recordSession(ctx, string(req.Description.Type), outcomeFailure)

		return outcomeFailure
	}

	// The fingerprint is kept even if establishment fails: every merge to
	// the record redelivers the same pendingOffer, and a failed offer is
	// only retried once the controller posts a new description.
	l.inFlight = true
	l.lastFingerprint = fingerprint

	l.wg.Add(1)

	go func() {
		defer l.wg.Done()
		defer l.finish()

		l.establish(ctx, engine, req, fingerprint)
	}()

	return outcomeForwarded
}

func (l *Launcher) finish() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.inFlight = false
}

func (l *Launcher) establish(ctx context.Context, engine MediaEngine, req models.SessionRequest, fingerprint string) {
	ctx, span := l.tracer.Start(ctx, "guardian.session.establish", trace.WithAttributes(
		attribute.String("sdp.type", string(req.Description.Type)),
		attribute.String("capture.mode", string(req.Mode)),
		attribute.String("device.id", req.DeviceID),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", errPanic, r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			l.logger.Error().Interface("panic", r).Msg("Session establishment panicked")
			recordSession(ctx, string(req.Description.Type), outcomeFailure)
		}
	}()

	var err error

	if req.Description.Type == models.SDPTypeAnswer {
		_, err = engine.AcceptOffer(ctx, req.Mode, req.Description)
	} else {
		err = l.answer(ctx, engine, req, fingerprint)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.Error().Err(err).Str("type", string(req.Description.Type)).Msg("Session establishment failed")
		recordSession(ctx, string(req.Description.Type), outcomeFailure)

		return
	}

	l.indicator.Transition(ctx, models.IndicatorMonitoring)

	span.SetStatus(codes.Ok, "")
	l.logger.Info().Str("type", string(req.Description.Type)).Str("mode", string(req.Mode)).Msg("Session established")
	recordSession(ctx, string(req.Description.Type), outcomeSuccess)
}

// answer accepts a controller offer and publishes the answer. If the answer
// cannot be published the capture it started is stopped again.
func (l *Launcher) answer(ctx context.Context, engine MediaEngine, req models.SessionRequest, fingerprint string) error {
	answer, err := engine.AcceptOffer(ctx, req.Mode, req.Description)
	if err != nil {
		return err
	}

	published := models.SessionAnswer{
		SDP:              answer.SDP,
		Type:             string(models.SDPTypeAnswer),
		OfferFingerprint: fingerprint,
		CreatedAt:        l.record.nowMillis(),
	}

	if err := l.record.merge(ctx, map[string]interface{}{models.FieldSessionAnswer: published}); err != nil {
		if stopErr := engine.StopCapture(ctx, req.Mode); stopErr != nil {
			l.logger.Warn().Err(stopErr).Msg("Failed to stop capture after unpublished answer")
		}

		return fmt.Errorf("publish session answer: %w", err)
	}

	return nil
}

// Wait blocks until a running establishment has finished.
func (l *Launcher) Wait() {
	l.wg.Wait()
}
