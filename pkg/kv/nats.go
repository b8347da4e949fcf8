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

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/guardian/pkg/logger"
)

const (
	mergeInitialBackoff = 10 * time.Millisecond
	mergeMaxBackoff     = 250 * time.Millisecond
	mergeMaxElapsed     = 15 * time.Second
)

var errRevisionConflict = errors.New("kv: revision changed during merge")

// StoreConfig selects the JetStream key-value bucket holding device records.
type StoreConfig struct {
	Bucket   string `json:"bucket" yaml:"bucket"`
	Domain   string `json:"domain,omitempty" yaml:"domain,omitempty"`
	History  uint8  `json:"history,omitempty" yaml:"history,omitempty"`
	Replicas int    `json:"replicas,omitempty" yaml:"replicas,omitempty"`
}

// NatsStore is a DocumentStore on a JetStream key-value bucket. Merges are
// read-modify-write cycles guarded by the entry revision.
type NatsStore struct {
	nc              *nats.Conn
	kv              jetstream.KeyValue
	logger          logger.Logger
	maxMergeElapsed time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
}

// NewNatsStore binds (creating if needed) the configured bucket. The
// connection stays owned by the caller.
func NewNatsStore(ctx context.Context, nc *nats.Conn, cfg StoreConfig, log logger.Logger) (*NatsStore, error) {
	if cfg.Bucket == "" {
		return nil, errBucketRequired
	}

	var (
		js  jetstream.JetStream
		err error
	)

	if cfg.Domain != "" {
		js, err = jetstream.NewWithDomain(nc, cfg.Domain)
	} else {
		js, err = jetstream.New(nc)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kvConfig := jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "guardian device records",
		History:     cfg.History,
		Replicas:    cfg.Replicas,
	}

	bucket, err := js.CreateOrUpdateKeyValue(ctx, kvConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create KV bucket %s: %w", cfg.Bucket, err)
	}

	storeCtx, cancel := context.WithCancel(context.Background())

	return &NatsStore{
		nc:              nc,
		kv:              bucket,
		logger:          log,
		maxMergeElapsed: mergeMaxElapsed,
		ctx:             storeCtx,
		cancel:          cancel,
	}, nil
}

func (n *NatsStore) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	entry, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	return entry.Value(), true, nil
}

// Merge applies fields to the document at key. Writers racing on the same
// revision back off with jitter and retry until the merge lands or
// maxMergeElapsed passes, which yields ErrCASMismatch.
func (n *NatsStore) Merge(ctx context.Context, key string, fields map[string]interface{}) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = mergeInitialBackoff
	bo.MaxInterval = mergeMaxBackoff
	bo.Multiplier = 1.6
	bo.RandomizationFactor = 0.5

	operation := func() (struct{}, error) {
		err := n.tryMerge(ctx, key, fields)
		if err == nil || errors.Is(err, errRevisionConflict) {
			return struct{}{}, err
		}

		return struct{}{}, backoff.Permanent(err)
	}

	notify := func(_ error, next time.Duration) {
		n.logger.Debug().Str("key", key).Dur("retry_in", next).Msg("Merge lost a revision race, retrying")
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(n.maxMergeElapsed),
		backoff.WithNotify(notify))
	if errors.Is(err, errRevisionConflict) {
		return fmt.Errorf("%w: key %s", ErrCASMismatch, key)
	}

	return err
}

// tryMerge performs one read-modify-write cycle. It returns
// errRevisionConflict when another writer got in between the read and the
// write.
func (n *NatsStore) tryMerge(ctx context.Context, key string, fields map[string]interface{}) error {
	entry, err := n.kv.Get(ctx, key)

	if errors.Is(err, jetstream.ErrKeyNotFound) {
		doc, err := mergeDocument(nil, fields)
		if err != nil {
			return err
		}

		if _, err := n.kv.Create(ctx, key, doc); err != nil {
			if isRevisionConflict(err) {
				return errRevisionConflict
			}

			return fmt.Errorf("failed to create key %s: %w", key, err)
		}

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get key %s: %w", key, err)
	}

	doc, err := mergeDocument(entry.Value(), fields)
	if err != nil {
		return fmt.Errorf("key %s: %w", key, err)
	}

	if _, err := n.kv.Update(ctx, key, doc, entry.Revision()); err != nil {
		if isRevisionConflict(err) {
			return errRevisionConflict
		}

		return fmt.Errorf("failed to update key %s: %w", key, err)
	}

	return nil
}

func isRevisionConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}

	var apiErr *jetstream.APIError

	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

func (n *NatsStore) Watch(ctx context.Context, key string) (<-chan Update, error) {
	if n.ctx.Err() != nil {
		return nil, ErrStoreClosed
	}

	watcher, err := n.kv.Watch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to watch key %s: %w", key, err)
	}

	status := n.nc.StatusChanged(nats.DISCONNECTED, nats.RECONNECTING, nats.CONNECTED, nats.CLOSED)

	ch := make(chan Update, 1)
	go n.handleWatchUpdates(ctx, key, watcher, status, ch)

	return ch, nil
}

// handleWatchUpdates forwards watcher entries and connection state changes
// until ctx ends, the store closes, or the connection is closed for good.
func (n *NatsStore) handleWatchUpdates(
	ctx context.Context, key string, watcher jetstream.KeyWatcher, status chan nats.Status, ch chan<- Update) {
	defer func() {
		n.nc.RemoveStatusListener(status)

		if err := watcher.Stop(); err != nil {
			n.logger.Debug().Err(err).Str("key", key).Msg("Failed to stop watcher")
		}

		close(ch)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.ctx.Done():
			return
		case s := <-status:
			if s == nats.CLOSED {
				n.logger.Warn().Str("key", key).Msg("NATS connection closed, ending watch")

				return
			}

			if s == nats.CONNECTED {
				n.logger.Info().Str("key", key).Msg("NATS connection restored, watch resumes")

				continue
			}

			if !n.sendUpdate(ctx, ch, Update{Err: fmt.Errorf("%w: %s", ErrStoreDisconnected, s)}) {
				return
			}
		case entry, ok := <-watcher.Updates():
			if !ok {
				return
			}

			// nil marks the end of the initial replay
			if entry == nil {
				continue
			}

			update := Update{Revision: entry.Revision()}
			if entry.Operation() == jetstream.KeyValuePut {
				update.Document = entry.Value()
			} else {
				update.Deleted = true
			}

			if !n.sendUpdate(ctx, ch, update) {
				return
			}
		}
	}
}

// sendUpdate attempts to send the update to the channel, respecting cancellation.
func (n *NatsStore) sendUpdate(ctx context.Context, ch chan<- Update, update Update) bool {
	select {
	case ch <- update:
		return true
	case <-ctx.Done():
		return false
	case <-n.ctx.Done():
		return false
	}
}

// Close ends all watches started on this store.
func (n *NatsStore) Close() error {
	n.cancel()

	return nil
}

var _ DocumentStore = (*NatsStore)(nil)
