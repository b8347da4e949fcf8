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

// CommandToken is a remote command understood by the agent.
type CommandToken string

const (
	CommandStartCamera   CommandToken = "startCamera"
	CommandStopCamera    CommandToken = "stopCamera"
	CommandSwitchCamera  CommandToken = "switchCamera"
	CommandStartScreen   CommandToken = "startScreen"
	CommandStopScreen    CommandToken = "stopScreen"
	CommandMuteAudio     CommandToken = "muteAudio"
	CommandUnmuteAudio   CommandToken = "unmuteAudio"
	CommandPlayAlarm     CommandToken = "playAlarm"
	CommandVibrateDevice CommandToken = "vibrateDevice"
)

var knownCommands = map[CommandToken]struct{}{
	CommandStartCamera:   {},
	CommandStopCamera:    {},
	CommandSwitchCamera:  {},
	CommandStartScreen:   {},
	CommandStopScreen:    {},
	CommandMuteAudio:     {},
	CommandUnmuteAudio:   {},
	CommandPlayAlarm:     {},
	CommandVibrateDevice: {},
}

// ParseCommandToken reports whether s names a known command. Matching is
// exact; tokens are case sensitive.
func ParseCommandToken(s string) (CommandToken, bool) {
	tok := CommandToken(s)
	_, ok := knownCommands[tok]

	return tok, ok
}
