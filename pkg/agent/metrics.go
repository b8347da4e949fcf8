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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName  = "guardian.agent"
	tracerName = "guardian.agent"

	metricCommandsTotal  = "guardian_agent_commands_total"
	metricOffersTotal    = "guardian_agent_offers_total"
	metricSessionsTotal  = "guardian_agent_sessions_total"
	metricTelemetryTotal = "guardian_agent_telemetry_writes_total"
	metricRestartsTotal  = "guardian_agent_restarts_total"

	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeUnknown   = "unknown"
	outcomeMalformed = "malformed"
	outcomeDuplicate = "duplicate"
	outcomeAnswered  = "answered"
	outcomeBusy      = "busy"
	outcomeForwarded = "forwarded"
)

type agentMetricsState struct {
	once      sync.Once
	commands  metric.Int64Counter
	offers    metric.Int64Counter
	sessions  metric.Int64Counter
	telemetry metric.Int64Counter
	restarts  metric.Int64Counter
}

var agentMetrics agentMetricsState

func newCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		otel.Handle(err)

		return nil
	}

	return counter
}

func initAgentMetrics() {
	meter := otel.Meter(meterName)

	agentMetrics.commands = newCounter(meter, metricCommandsTotal, "Remote commands received, by token and outcome")
	agentMetrics.offers = newCounter(meter, metricOffersTotal, "Signaled offers seen by the listener, by outcome")
	agentMetrics.sessions = newCounter(meter, metricSessionsTotal, "Session establishments, by description type and outcome")
	agentMetrics.telemetry = newCounter(meter, metricTelemetryTotal, "Telemetry writes, by task and outcome")
	agentMetrics.restarts = newCounter(meter, metricRestartsTotal, "Control plane restarts")
}

func addCount(ctx context.Context, pick func() metric.Int64Counter, attrs ...attribute.KeyValue) {
	agentMetrics.once.Do(initAgentMetrics)

	counter := pick()
	if counter == nil {
		return
	}

	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func recordCommand(ctx context.Context, token, outcome string) {
	addCount(ctx, func() metric.Int64Counter { return agentMetrics.commands },
		attribute.String("command", token), attribute.String("outcome", outcome))
}

func recordOffer(ctx context.Context, outcome string) {
	addCount(ctx, func() metric.Int64Counter { return agentMetrics.offers }, attribute.String("outcome", outcome))
}

func recordSession(ctx context.Context, sdpType, outcome string) {
	addCount(ctx, func() metric.Int64Counter { return agentMetrics.sessions },
		attribute.String("type", sdpType), attribute.String("outcome", outcome))
}

func recordTelemetryWrite(ctx context.Context, task, outcome string) {
	addCount(ctx, func() metric.Int64Counter { return agentMetrics.telemetry },
		attribute.String("task", task), attribute.String("outcome", outcome))
}

func recordRestart(ctx context.Context, reason string) {
	addCount(ctx, func() metric.Int64Counter { return agentMetrics.restarts }, attribute.String("reason", reason))
}
