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

// Package kv holds the document store shared by the agent and its controller.
package kv

import "context"

// DocumentStore stores JSON documents addressed by key.
type DocumentStore interface {
	// Get returns the current document under key, and whether one exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Merge sets the given top-level fields of the document under key,
	// creating it if needed. Fields not named in the patch keep their
	// current value, whoever wrote them.
	Merge(ctx context.Context, key string, fields map[string]interface{}) error

	// Watch delivers the current document (if any) followed by every later
	// revision of it. An Update with Err set reports a transient problem;
	// the subscription stays open. The channel is closed when ctx ends or
	// the subscription is lost, and only after the underlying watch has
	// been released.
	Watch(ctx context.Context, key string) (<-chan Update, error)

	Close() error
}

// Update is one notification from a DocumentStore watch.
type Update struct {
	Document []byte
	Revision uint64
	Deleted  bool
	Err      error
}
