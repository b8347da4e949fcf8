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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSDPType     = errors.New("invalid session description type")
	ErrInvalidCaptureMode = errors.New("invalid capture mode")
)

// SDPType is the role of a session description in the offer/answer exchange.
type SDPType string

const (
	SDPTypeOffer  SDPType = "offer"
	SDPTypeAnswer SDPType = "answer"
)

// ParseSDPType normalizes the case of a signaled type and rejects anything
// other than offer or answer.
func ParseSDPType(s string) (SDPType, error) {
	switch t := SDPType(strings.ToLower(strings.TrimSpace(s))); t {
	case SDPTypeOffer, SDPTypeAnswer:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSDPType, s)
	}
}

// CaptureMode selects what a media session streams.
type CaptureMode string

const (
	CaptureCamera CaptureMode = "camera"
	CaptureScreen CaptureMode = "screen"
)

// ParseCaptureMode maps a signaled mode to a CaptureMode. An empty mode
// means camera.
func ParseCaptureMode(s string) (CaptureMode, error) {
	switch m := CaptureMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return CaptureCamera, nil
	case CaptureCamera, CaptureScreen:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCaptureMode, s)
	}
}

// SessionDescription is an SDP blob together with its type.
type SessionDescription struct {
	SDP  string  `json:"sdp"`
	Type SDPType `json:"type"`
}

// Fingerprint identifies a session description by content.
func (d SessionDescription) Fingerprint() string {
	sum := sha256.Sum256([]byte(string(d.Type) + "\n" + d.SDP))

	return hex.EncodeToString(sum[:])
}

// SessionRequest is a decoded offer addressed to this device, handed from the
// signaling listener to the session launcher.
type SessionRequest struct {
	Description  SessionDescription
	Mode         CaptureMode
	ControllerID string
	DeviceID     string
}
