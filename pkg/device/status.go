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

package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/guardian/pkg/fsutil"
	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

var errStatusFileRequired = errors.New("status file path is required")

// StatusDocument is what the tray or launcher UI reads to draw the
// persistent indicator.
type StatusDocument struct {
	State     string    `json:"state"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Icon      string    `json:"icon"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusFile renders the indicator state into a JSON file, replaced
// atomically on every render.
type StatusFile struct {
	path   string
	now    func() time.Time
	logger logger.Logger
}

func NewStatusFile(path string, log logger.Logger) (*StatusFile, error) {
	if path == "" {
		return nil, errStatusFileRequired
	}

	return &StatusFile{path: path, now: time.Now, logger: log}, nil
}

func (s *StatusFile) Render(state models.IndicatorState) error {
	r := state.Rendering()

	data, err := json.Marshal(StatusDocument{
		State:     r.State,
		Title:     r.Title,
		Text:      r.Text,
		Icon:      r.Icon,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	if err := fsutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}

	s.logger.Debug().Str("state", r.State).Str("path", s.path).Msg("Indicator rendered")

	return nil
}
