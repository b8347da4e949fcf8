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

// IndicatorState is the user-visible activity state of the agent.
type IndicatorState int

const (
	IndicatorIdle IndicatorState = iota
	IndicatorMonitoring
)

func (s IndicatorState) String() string {
	if s == IndicatorMonitoring {
		return "monitoring"
	}

	return "idle"
}

// IndicatorRendering is what the visible surface shows for a state.
type IndicatorRendering struct {
	State string `json:"state"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Icon  string `json:"icon"`
}

// Rendering returns the fixed presentation for s.
func (s IndicatorState) Rendering() IndicatorRendering {
	if s == IndicatorMonitoring {
		return IndicatorRendering{
			State: s.String(),
			Title: "Monitoring Active",
			Text:  "Live activity is being shared",
			Icon:  "active",
		}
	}

	return IndicatorRendering{
		State: s.String(),
		Title: "Guardian Active",
		Text:  "Device is protected",
		Icon:  "idle",
	}
}
