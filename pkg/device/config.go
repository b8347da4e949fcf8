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

import "github.com/carverauto/guardian/pkg/models"

// Config locates the local device interfaces used by the agent.
type Config struct {
	// PowerSupplyDir is the sysfs power supply class directory.
	PowerSupplyDir string `json:"power_supply_dir,omitempty" yaml:"power_supply_dir,omitempty"`
	// OperatorCommand prints modem properties in key/value form.
	OperatorCommand []string `json:"operator_command,omitempty" yaml:"operator_command,omitempty"`
	// AlertCommand plays the audible alert.
	AlertCommand []string `json:"alert_command,omitempty" yaml:"alert_command,omitempty"`
	// VibratorPath is the timed_output control file of the vibrator.
	VibratorPath string `json:"vibrator_path,omitempty" yaml:"vibrator_path,omitempty"`
	// ProbeTimeout bounds each attribute read of a snapshot.
	ProbeTimeout models.Duration `json:"probe_timeout,omitempty" yaml:"probe_timeout,omitempty"`
	// StatusFile receives the indicator rendering.
	StatusFile string `json:"status_file,omitempty" yaml:"status_file,omitempty"`
}
