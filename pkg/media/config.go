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

package media

import (
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/carverauto/guardian/pkg/models"
)

const defaultGatherTimeout = 10 * time.Second

// Sources are the local UDP addresses on which the capture pipelines deliver
// RTP. An empty address means the source does not exist on this device.
type Sources struct {
	FrontCamera string `json:"front_camera,omitempty" yaml:"front_camera,omitempty"`
	BackCamera  string `json:"back_camera,omitempty" yaml:"back_camera,omitempty"`
	Screen      string `json:"screen,omitempty" yaml:"screen,omitempty"`
	Microphone  string `json:"microphone,omitempty" yaml:"microphone,omitempty"`
}

// Config configures the media engine.
type Config struct {
	ICEServers    []string        `json:"ice_servers,omitempty" yaml:"ice_servers,omitempty"`
	GatherTimeout models.Duration `json:"gather_timeout,omitempty" yaml:"gather_timeout,omitempty"`
	Sources       Sources         `json:"sources" yaml:"sources"`
	// IncludeLoopback adds loopback ICE candidates, for same-host setups.
	IncludeLoopback bool `json:"include_loopback,omitempty" yaml:"include_loopback,omitempty"`
}

func (c Config) iceServers() []webrtc.ICEServer {
	if len(c.ICEServers) == 0 {
		return nil
	}

	return []webrtc.ICEServer{{URLs: c.ICEServers}}
}
