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
	"errors"
	"fmt"

	"github.com/carverauto/guardian/pkg/kv"
	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

var (
	errOfferNotObject = errors.New("pendingOffer is not an object")
	errOfferEmptySDP  = errors.New("pendingOffer has no sdp")
)

// signalView is the part of the DeviceRecord the listener reacts to.
type signalView struct {
	PendingOffer  json.RawMessage       `json:"pendingOffer"`
	SessionAnswer *models.SessionAnswer `json:"sessionAnswer"`
}

// Listener follows the device record and hands each new offer to the launcher.
type Listener struct {
	pairing  models.Pairing
	launcher *Launcher
	logger   logger.Logger
}

func newListener(pairing models.Pairing, launcher *Launcher, log logger.Logger) *Listener {
	return &Listener{
		pairing:  pairing,
		launcher: launcher,
		logger:   log,
	}
}

// Consume processes updates until ctx ends, which returns nil, or the
// channel closes, which returns ErrSubscriptionLost.
func (l *Listener) Consume(ctx context.Context, updates <-chan kv.Update) error {
	for {
		select {
		case <-ctx.Done():
			// the store closes updates once the watch is released; waiting
			// for that keeps a restart from overlapping two watches
			for range updates {
			}

			return nil
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}

				return ErrSubscriptionLost
			}

			l.handle(ctx, update)
		}
	}
}

func (l *Listener) handle(ctx context.Context, update kv.Update) {
	if update.Err != nil {
		l.logger.Warn().Err(update.Err).Msg("Signaling watch reported an error")

		return
	}

	if update.Deleted || len(update.Document) == 0 {
		return
	}

	var view signalView
	if err := json.Unmarshal(update.Document, &view); err != nil {
		l.logger.Warn().Err(err).Uint64("revision", update.Revision).Msg("Device record is not valid JSON")
		recordOffer(ctx, outcomeMalformed)

		return
	}

	if len(view.PendingOffer) == 0 || string(view.PendingOffer) == "null" {
		return
	}

	req, err := l.decodeOffer(view.PendingOffer)
	if err != nil {
		l.logger.Warn().Err(err).Uint64("revision", update.Revision).Msg("Ignoring malformed offer")
		recordOffer(ctx, outcomeMalformed)

		return
	}

	if req.Description.Type == models.SDPTypeOffer && view.SessionAnswer != nil &&
		view.SessionAnswer.OfferFingerprint == req.Description.Fingerprint() {
		l.logger.Debug().Msg("Offer already answered")
		recordOffer(ctx, outcomeAnswered)

		return
	}

	recordOffer(ctx, l.launcher.Launch(ctx, req))
}

func (l *Listener) decodeOffer(raw json.RawMessage) (models.SessionRequest, error) {
	var offer models.SignalOffer
	if err := json.Unmarshal(raw, &offer); err != nil {
		return models.SessionRequest{}, fmt.Errorf("%w: %w", errOfferNotObject, err)
	}

	if offer.SDP == "" {
		return models.SessionRequest{}, errOfferEmptySDP
	}

	sdpType, err := models.ParseSDPType(offer.Type)
	if err != nil {
		return models.SessionRequest{}, err
	}

	mode, err := models.ParseCaptureMode(offer.Mode)
	if err != nil {
		return models.SessionRequest{}, err
	}

	return models.SessionRequest{
		Description:  models.SessionDescription{SDP: offer.SDP, Type: sdpType},
		Mode:         mode,
		ControllerID: l.pairing.ControllerID,
		DeviceID:     l.pairing.DeviceID,
	}, nil
}
