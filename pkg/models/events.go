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

package models

import (
	"errors"
	"time"
)

var errNATSURLRequired = errors.New("nats url is required")

// NATSConfig configures NATS connectivity
type NATSConfig struct {
	URL      string          `json:"url" yaml:"url"`
	Domain   string          `json:"domain,omitempty" yaml:"domain,omitempty"`
	Security *SecurityConfig `json:"security,omitempty" yaml:"security,omitempty"`
}

// Validate ensures the NATS configuration is valid
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return errNATSURLRequired
	}

	return nil
}

// EventsConfig configures lifecycle event publishing.
type EventsConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	StreamName    string `json:"stream_name" yaml:"stream_name"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
}

// Validate fills in defaults for an enabled configuration.
func (c *EventsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.StreamName == "" {
		c.StreamName = "GUARDIAN_EVENTS"
	}

	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "guardian.events"
	}

	return nil
}

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// Agent lifecycle event types.
const (
	AgentEventStarted   = "com.carverauto.guardian.agent.started"
	AgentEventRestarted = "com.carverauto.guardian.agent.restarted"
	AgentEventStopped   = "com.carverauto.guardian.agent.stopped"
)

// AgentEventData is the payload of agent lifecycle events.
type AgentEventData struct {
	ControllerID string    `json:"controller_id"`
	DeviceID     string    `json:"device_id"`
	InstanceID   string    `json:"instance_id"`
	Attempt      int       `json:"attempt,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
