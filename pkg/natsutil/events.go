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

package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

const eventSource = "guardian/agent"

// EventPublisher publishes agent lifecycle CloudEvents to NATS JetStream.
type EventPublisher struct {
	js            jetstream.JetStream
	stream        string
	subjectPrefix string
	logger        logger.Logger
}

// NewEventPublisher creates a new EventPublisher for the specified stream.
func NewEventPublisher(js jetstream.JetStream, streamName, subjectPrefix string, log logger.Logger) *EventPublisher {
	return &EventPublisher{
		js:            js,
		stream:        streamName,
		subjectPrefix: subjectPrefix,
		logger:        log,
	}
}

// Subject returns the subject events for the given device are published on.
func (p *EventPublisher) Subject(controllerID, deviceID string) string {
	return fmt.Sprintf("%s.%s.%s", p.subjectPrefix, controllerID, deviceID)
}

// PublishAgentEvent publishes a lifecycle event of eventType for the device in data.
func (p *EventPublisher) PublishAgentEvent(ctx context.Context, eventType string, data models.AgentEventData) error {
	if data.Timestamp.IsZero() {
		data.Timestamp = time.Now()
	}

	ts := data.Timestamp

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         p.Subject(data.ControllerID, data.DeviceID),
		Time:            &ts,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal agent event: %w", err)
	}

	ack, err := p.js.Publish(ctx, event.Subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish agent event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("type", eventType).
		Str("subject", event.Subject).
		Uint64("seq", ack.Sequence).
		Msg("Published agent event")

	return nil
}

// CreateEventPublisher creates an EventPublisher with optional NATS domain
// support, creating the stream when it does not exist yet.
func CreateEventPublisher(
	ctx context.Context, nc *nats.Conn, domain string, cfg models.EventsConfig, log logger.Logger) (*EventPublisher, error) {
	var (
		js  jetstream.JetStream
		err error
	)

	if domain != "" {
		js, err = jetstream.NewWithDomain(nc, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context with domain %s: %w", domain, err)
		}
	} else {
		js, err = jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
	}

	_, err = js.Stream(ctx, cfg.StreamName)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		streamConfig := jetstream.StreamConfig{
			Name:     cfg.StreamName,
			Subjects: []string{cfg.SubjectPrefix + ".>"},
		}

		if _, err = js.CreateOrUpdateStream(ctx, streamConfig); err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", cfg.StreamName, err)
		}

		log.Info().Str("stream", cfg.StreamName).Msg("Created NATS JetStream stream")
	} else if err != nil {
		return nil, fmt.Errorf("failed to get stream %s: %w", cfg.StreamName, err)
	}

	return NewEventPublisher(js, cfg.StreamName, cfg.SubjectPrefix, log), nil
}
