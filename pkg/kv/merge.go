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
	"encoding/json"
	"fmt"
)

// mergeDocument overlays fields onto the JSON object in current. An empty
// current value is treated as an empty object. Untouched fields are carried
// over byte for byte.
func mergeDocument(current []byte, fields map[string]interface{}) ([]byte, error) {
	doc := make(map[string]json.RawMessage)

	if len(current) > 0 {
		if err := json.Unmarshal(current, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotDocument, err)
		}

		if doc == nil {
			doc = make(map[string]json.RawMessage)
		}
	}

	for name, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", name, err)
		}

		doc[name] = raw
	}

	return json.Marshal(doc)
}
