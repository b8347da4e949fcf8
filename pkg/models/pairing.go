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
	"fmt"
	"regexp"
)

var (
	errControllerIDRequired = errors.New("controller_id is required")
	errDeviceIDRequired     = errors.New("device_id is required")
	errInvalidIdentifier    = errors.New("identifier may only contain letters, digits, '-', '_' and '='")
)

// identifiers become single tokens of a KV key and a NATS subject.
var identifierPattern = regexp.MustCompile(`^[-_=A-Za-z0-9]+$`)

// Pairing binds this device to its controlling account. It is established
// out of band and read from durable local storage at startup.
type Pairing struct {
	ControllerID string `json:"controller_id" yaml:"controller_id"`
	DeviceID     string `json:"device_id" yaml:"device_id"`
}

// Validate implements config.Validator.
func (p *Pairing) Validate() error {
	if p.ControllerID == "" {
		return errControllerIDRequired
	}

	if p.DeviceID == "" {
		return errDeviceIDRequired
	}

	if !identifierPattern.MatchString(p.ControllerID) {
		return fmt.Errorf("controller_id %q: %w", p.ControllerID, errInvalidIdentifier)
	}

	if !identifierPattern.MatchString(p.DeviceID) {
		return fmt.Errorf("device_id %q: %w", p.DeviceID, errInvalidIdentifier)
	}

	return nil
}

// RecordKey is the KV key of the DeviceRecord for this pairing.
func (p Pairing) RecordKey() string {
	return fmt.Sprintf("users.%s.children.%s", p.ControllerID, p.DeviceID)
}

// CommandSubject is the NATS subject commands for this device arrive on.
func (p Pairing) CommandSubject(prefix string) string {
	return fmt.Sprintf("%s.%s.%s", prefix, p.ControllerID, p.DeviceID)
}
