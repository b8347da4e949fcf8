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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

const commandAccepted = "accepted"

// commandMessage is the JSON form of a command; a bare token is accepted too.
type commandMessage struct {
	Command string `json:"command"`
}

// NATSCommandSource delivers command tokens published on the device's
// command subject.
type NATSCommandSource struct {
	nc     *nats.Conn
	prefix string
	logger logger.Logger
}

func NewNATSCommandSource(nc *nats.Conn, prefix string, log logger.Logger) *NATSCommandSource {
	return &NATSCommandSource{
		nc:     nc,
		prefix: prefix,
		logger: log,
	}
}

// Subscribe implements CommandSource. Requests carrying a reply subject are
// acknowledged once the token has been handed to handler.
func (s *NATSCommandSource) Subscribe(
	_ context.Context, pairing models.Pairing, handler func(token string)) (Subscription, error) {
	subject := pairing.CommandSubject(s.prefix)

	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		token := decodeCommand(msg.Data)

		s.logger.Debug().Str("subject", msg.Subject).Str("command", token).Msg("Command received")

		handler(token)

		if msg.Reply == "" {
			return
		}

		if err := msg.Respond([]byte(commandAccepted)); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to acknowledge command")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s.logger.Info().Str("subject", subject).Msg("Listening for commands")

	return sub, nil
}

func decodeCommand(data []byte) string {
	trimmed := strings.TrimSpace(string(data))

	if strings.HasPrefix(trimmed, "{") {
		var msg commandMessage
		if err := json.Unmarshal([]byte(trimmed), &msg); err == nil {
			return msg.Command
		}
	}

	return trimmed
}
