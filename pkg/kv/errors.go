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

package kv

import "errors"

var (
	// ErrCASMismatch is returned when a merge kept losing revision races.
	ErrCASMismatch = errors.New("kv: revision mismatch")
	// ErrNotDocument is returned when the stored value is not a JSON object.
	ErrNotDocument = errors.New("kv: stored value is not a JSON object")
	// ErrStoreDisconnected is carried in watch updates while the connection to
	// the store is down.
	ErrStoreDisconnected = errors.New("kv: store disconnected")
	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("kv: store closed")

	errBucketRequired = errors.New("kv: bucket is required")
)
