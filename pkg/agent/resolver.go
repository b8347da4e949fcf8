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
	"fmt"
	"sync"

	"github.com/carverauto/guardian/pkg/logger"
)

// CapabilityResolver hands out the media engine of one control-plane run.
// The engine is created on first use and cached; a failed creation is
// retried on the next call.
type CapabilityResolver struct {
	factory   EngineFactory
	publisher OfferPublisher
	logger    logger.Logger

	mu     sync.Mutex
	engine MediaEngine
	closed bool
}

func NewCapabilityResolver(factory EngineFactory, publisher OfferPublisher, log logger.Logger) *CapabilityResolver {
	return &CapabilityResolver{
		factory:   factory,
		publisher: publisher,
		logger:    log,
	}
}

// Resolve returns the engine, creating it if needed. Errors wrap
// ErrCapabilityUnavailable.
func (r *CapabilityResolver) Resolve(_ context.Context) (MediaEngine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("%w: control plane stopped", ErrCapabilityUnavailable)
	}

	if r.engine != nil {
		return r.engine, nil
	}

	engine, err := r.factory(r.publisher)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapabilityUnavailable, err)
	}

	if engine == nil {
		return nil, ErrCapabilityUnavailable
	}

	r.logger.Debug().Msg("Media engine resolved")

	r.engine = engine

	return engine, nil
}

// Close releases the engine, if one was created. Later Resolve calls fail.
func (r *CapabilityResolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	if r.engine == nil {
		return nil
	}

	err := r.engine.Close()
	r.engine = nil

	return err
}
