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
	"time"

	"github.com/carverauto/guardian/pkg/models"
)

//go:generate mockgen -destination=mock_agent.go -package=agent github.com/carverauto/guardian/pkg/agent MediaEngine,Actuators,Surface,CommandSource

// MediaEngine is the capability that captures and streams media. The agent
// treats it as opaque; codec negotiation and transport live behind it.
type MediaEngine interface {
	StartCapture(ctx context.Context, mode models.CaptureMode) error
	StopCapture(ctx context.Context, mode models.CaptureMode) error
	SwitchCamera(ctx context.Context) error
	SetAudioEnabled(ctx context.Context, enabled bool) error
	CreateOffer(ctx context.Context, mode models.CaptureMode) (models.SessionDescription, error)
	// AcceptOffer answers a controller offer, or completes the handshake of
	// the engine's own offer when desc is an answer.
	AcceptOffer(ctx context.Context, mode models.CaptureMode, desc models.SessionDescription) (models.SessionDescription, error)
	Close() error
}

// OfferPublisher makes an offer created by the engine visible to the controller.
type OfferPublisher interface {
	PublishLocalOffer(ctx context.Context, mode models.CaptureMode, desc models.SessionDescription) error
}

// EngineFactory creates the media engine of one control-plane run.
type EngineFactory func(publisher OfferPublisher) (MediaEngine, error)

// Actuators are the local non-media effects a controller can trigger.
type Actuators interface {
	PlayAlert(ctx context.Context) error
	Vibrate(ctx context.Context, d time.Duration) error
}

// Surface shows the indicator state to the person using the device.
type Surface interface {
	Render(state models.IndicatorState) error
}

// DeviceCollector reads the device attributes uploaded by the snapshot task.
type DeviceCollector interface {
	Collect(ctx context.Context) models.DeviceSnapshot
}

// CommandSource delivers remote command tokens for a paired device.
type CommandSource interface {
	Subscribe(ctx context.Context, pairing models.Pairing, handler func(token string)) (Subscription, error)
}

// Subscription is an active CommandSource registration.
type Subscription interface {
	Unsubscribe() error
}

// EventSink receives agent lifecycle events.
type EventSink interface {
	PublishAgentEvent(ctx context.Context, eventType string, data models.AgentEventData) error
}
