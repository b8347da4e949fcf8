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

import "encoding/json"

// Sentinel values written in place of device attributes that could not be read.
const (
	AttributeUnavailable      = "N/A"
	AttributePermissionDenied = "Permission Denied"
)

// DeviceRecord field names. Merge writes address individual fields by these
// names so that concurrent writers never clobber each other's fields.
const (
	FieldLastSeen          = "lastSeen"
	FieldIsOnline          = "isOnline"
	FieldHeartbeatInterval = "heartbeatInterval"
	FieldOSVersion         = "osVersion"
	FieldIPAddress         = "ipAddress"
	FieldBatteryLevel      = "batteryLevel"
	FieldIsCharging        = "isCharging"
	FieldSimOperator       = "simOperator"
	FieldLastFullSync      = "lastFullSync"
	FieldPendingOffer      = "pendingOffer"
	FieldLocalOffer        = "localOffer"
	FieldSessionAnswer     = "sessionAnswer"
)

// DeviceRecord is the per-device document shared between the agent and its
// controller. Timestamps are epoch milliseconds.
type DeviceRecord struct {
	LastSeen          int64          `json:"lastSeen,omitempty"`
	IsOnline          bool           `json:"isOnline,omitempty"`
	HeartbeatInterval int64          `json:"heartbeatInterval,omitempty"`
	OSVersion         string         `json:"osVersion,omitempty"`
	IPAddress         string         `json:"ipAddress,omitempty"`
	BatteryLevel      interface{}    `json:"batteryLevel,omitempty"` // percent or sentinel string
	IsCharging        interface{}    `json:"isCharging,omitempty"`
	SimOperator       string         `json:"simOperator,omitempty"`
	LastFullSync      int64          `json:"lastFullSync,omitempty"`
	PendingOffer      *SignalOffer   `json:"pendingOffer,omitempty"`
	LocalOffer        *SignalOffer   `json:"localOffer,omitempty"`
	SessionAnswer     *SessionAnswer `json:"sessionAnswer,omitempty"`
}

// SignalOffer is a session description posted to the DeviceRecord, either by
// the controller (pendingOffer) or by the agent (localOffer).
type SignalOffer struct {
	SDP       string          `json:"sdp"`
	Type      string          `json:"type"`
	Mode      string          `json:"mode,omitempty"`
	CreatedAt json.RawMessage `json:"createdAt,omitempty"`
}

// SessionAnswer is the agent's reply to an accepted controller offer.
type SessionAnswer struct {
	SDP              string `json:"sdp"`
	Type             string `json:"type"`
	OfferFingerprint string `json:"offerFingerprint"`
	CreatedAt        int64  `json:"createdAt"`
}

// DeviceSnapshot is one collection of the slow-changing device attributes.
// Each attribute holds either a value or one of the sentinel strings.
type DeviceSnapshot struct {
	OSVersion    string
	IPAddress    string
	BatteryLevel interface{}
	IsCharging   interface{}
	SimOperator  string
}

// Fields returns the snapshot as a merge patch, stamped with lastFullSync.
func (s DeviceSnapshot) Fields(syncedAt int64) map[string]interface{} {
	return map[string]interface{}{
		FieldOSVersion:    s.OSVersion,
		FieldIPAddress:    s.IPAddress,
		FieldBatteryLevel: s.BatteryLevel,
		FieldIsCharging:   s.IsCharging,
		FieldSimOperator:  s.SimOperator,
		FieldLastFullSync: syncedAt,
	}
}
