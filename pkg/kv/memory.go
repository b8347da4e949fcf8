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
	"sync"
)

// MemoryStore is an in-process DocumentStore. It backs tests and the
// agent's standalone mode, and exposes hooks to simulate store failures.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]memoryEntry
	revision uint64
	watches  map[*memoryWatch]struct{}
	mergeErr error
	merges   int
	closed   bool
}

type memoryEntry struct {
	value    []byte
	revision uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:    make(map[string]memoryEntry),
		watches: make(map[*memoryWatch]struct{}),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, false, ErrStoreClosed
	}

	entry, ok := m.docs[key]
	if !ok {
		return nil, false, nil
	}

	return append([]byte(nil), entry.value...), true, nil
}

func (m *MemoryStore) Merge(_ context.Context, key string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.mergeErr != nil {
		return m.mergeErr
	}

	doc, err := mergeDocument(m.docs[key].value, fields)
	if err != nil {
		return err
	}

	m.merges++
	m.storeLocked(key, doc)

	return nil
}

// Put replaces the whole document under key, as a controller would.
func (m *MemoryStore) Put(_ context.Context, key string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.storeLocked(key, append([]byte(nil), doc...))

	return nil
}

func (m *MemoryStore) storeLocked(key string, doc []byte) {
	m.revision++
	m.docs[key] = memoryEntry{value: doc, revision: m.revision}
	m.notifyLocked(key, Update{Document: doc, Revision: m.revision})
}

func (m *MemoryStore) notifyLocked(key string, update Update) {
	for w := range m.watches {
		if w.key == key {
			w.push(update)
		}
	}
}

func (m *MemoryStore) Watch(ctx context.Context, key string) (<-chan Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	w := &memoryWatch{
		key:    key,
		signal: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		out:    make(chan Update),
	}

	if entry, ok := m.docs[key]; ok {
		w.push(Update{Document: entry.value, Revision: entry.revision})
	}

	m.watches[w] = struct{}{}

	go w.run(ctx, m)

	return w.out, nil
}

func (m *MemoryStore) removeWatch(w *memoryWatch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.watches, w)
}

// Redeliver sends the current document to every watch on key again, the way
// a store with at-least-once delivery may.
func (m *MemoryStore) Redeliver(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.docs[key]; ok {
		m.notifyLocked(key, Update{Document: entry.value, Revision: entry.revision})
	}
}

// InjectError delivers a notification carrying err to every watch on key.
func (m *MemoryStore) InjectError(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.notifyLocked(key, Update{Err: err})
}

// DropWatches ends every active watch as if the subscription was lost.
func (m *MemoryStore) DropWatches() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for w := range m.watches {
		w.close()
		delete(m.watches, w)
	}
}

// SetMergeError makes subsequent merges fail with err; nil restores them.
func (m *MemoryStore) SetMergeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mergeErr = err
}

// ActiveWatches returns the number of open watches.
func (m *MemoryStore) ActiveWatches() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.watches)
}

// MergeCount returns the number of successful merges.
func (m *MemoryStore) MergeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.merges
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	for w := range m.watches {
		w.close()
		delete(m.watches, w)
	}

	return nil
}

// memoryWatch queues updates without bound so that writers never block on a
// slow watcher.
type memoryWatch struct {
	key      string
	mu       sync.Mutex
	queue    []Update
	signal   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	out      chan Update
}

func (w *memoryWatch) push(u Update) {
	w.mu.Lock()
	w.queue = append(w.queue, u)
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *memoryWatch) close() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func (w *memoryWatch) drain() []Update {
	w.mu.Lock()
	defer w.mu.Unlock()

	pending := w.queue
	w.queue = nil

	return pending
}

func (w *memoryWatch) run(ctx context.Context, store *MemoryStore) {
	defer close(w.out)
	defer store.removeWatch(w)

	for {
		for _, u := range w.drain() {
			select {
			case w.out <- u:
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			}
		}

		select {
		case <-w.signal:
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		}
	}
}

var _ DocumentStore = (*MemoryStore)(nil)
