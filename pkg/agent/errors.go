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

import "errors"

var (
	// ErrSubscriptionLost is returned by the listener when the signaling
	// subscription closes underneath it. The supervisor restarts the control
	// plane in response.
	ErrSubscriptionLost = errors.New("signaling subscription lost")
	// ErrCapabilityUnavailable is returned when the media engine cannot be
	// obtained.
	ErrCapabilityUnavailable = errors.New("media capability unavailable")
	// ErrUnexpectedExit is reported when a control-plane run ends on its own
	// without an error.
	ErrUnexpectedExit = errors.New("control plane exited unexpectedly")
	// ErrNotStarted is returned when waiting on a control plane that has no run.
	ErrNotStarted = errors.New("control plane not started")

	errStoreRequired       = errors.New("document store is required")
	errEngineFactoryNeeded = errors.New("engine factory is required")
	errSurfaceRequired     = errors.New("indicator surface is required")
	errCollectorRequired   = errors.New("device collector is required")
	errInvalidStoreKind    = errors.New("invalid store kind")
	errPanic               = errors.New("panic in control plane")
	errActuatorsMissing    = errors.New("no local actuators configured")
	errUnhandledCommand    = errors.New("no action for command")
)
