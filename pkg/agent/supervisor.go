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
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/guardian/pkg/clock"
	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
	"github.com/carverauto/guardian/pkg/watchdog"
)

const (
	restartReasonProcess = "process"
	restartReasonRun     = "run"

	eventPublishTimeout = 5 * time.Second
)

// RestartEvent describes one restart of the control plane.
type RestartEvent struct {
	Attempt int
	Reason  error
	At      time.Time
}

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	RestartDelay time.Duration
	MarkerPath   string
	Events       EventSink
	Clock        clock.Clock
	Logger       logger.Logger

	// OnRestart, when set, is called each time a run ends unexpectedly,
	// before the restart delay.
	OnRestart func(RestartEvent)
}

// Supervisor keeps the control plane running for the life of the process.
// A run that ends on its own is restarted after a fixed delay, and the
// watchdog marker left by a process that died is reported at startup.
type Supervisor struct {
	plane      *ControlPlane
	cfg        SupervisorConfig
	clock      clock.Clock
	logger     logger.Logger
	instanceID string
}

func NewSupervisor(plane *ControlPlane, cfg SupervisorConfig) *Supervisor {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.NewTestLogger()
	}

	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = defaultRestartDelay
	}

	return &Supervisor{
		plane:      plane,
		cfg:        cfg,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		instanceID: uuid.NewString(),
	}
}

// Run supervises the control plane until ctx ends. It returns nil once the
// control plane is stopped and the marker cleared.
func (s *Supervisor) Run(ctx context.Context) error {
	marker := watchdog.Marker{
		InstanceID: s.instanceID,
		PID:        os.Getpid(),
		StartedAt:  s.clock.Now(),
	}

	s.checkPreviousInstance(ctx)
	s.writeMarker(marker)
	s.publish(ctx, models.AgentEventStarted, 0, "")

	attempt := 0

	for {
		reason := s.runOnce(ctx)
		if ctx.Err() != nil {
			break
		}

		attempt++

		s.logger.Warn().
			Err(reason).
			Int("attempt", attempt).
			Dur("delay", s.cfg.RestartDelay).
			Msg("Control plane stopped unexpectedly, restarting")

		recordRestart(ctx, restartReasonRun)

		if s.cfg.OnRestart != nil {
			s.cfg.OnRestart(RestartEvent{Attempt: attempt, Reason: reason, At: s.clock.Now()})
		}

		s.publish(ctx, models.AgentEventRestarted, attempt, reason.Error())

		marker.Restarts = attempt
		s.writeMarker(marker)

		select {
		case <-ctx.Done():
		case <-s.clock.After(s.cfg.RestartDelay):
		}

		if ctx.Err() != nil {
			break
		}
	}

	s.plane.Stop()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	s.publish(stopCtx, models.AgentEventStopped, attempt, "")

	if err := watchdog.Clear(s.cfg.MarkerPath); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear watchdog marker")
	}

	s.logger.Info().Int("restarts", attempt).Msg("Supervisor stopped")

	return nil
}

// runOnce starts the control plane and blocks until the run ends. The
// returned reason is only meaningful when ctx is still live.
func (s *Supervisor) runOnce(ctx context.Context) error {
	if err := s.plane.Start(ctx); err != nil {
		return err
	}

	if err := s.plane.Wait(); err != nil {
		return err
	}

	return ErrUnexpectedExit
}

func (s *Supervisor) checkPreviousInstance(ctx context.Context) {
	if s.cfg.MarkerPath == "" {
		return
	}

	previous, found, err := watchdog.Check(s.cfg.MarkerPath, 0, s.clock.Now())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Unreadable watchdog marker, ignoring")

		return
	}

	if !found {
		return
	}

	s.logger.Warn().
		Str("previous_instance", previous.InstanceID).
		Int("previous_pid", previous.PID).
		Time("previous_start", previous.StartedAt).
		Msg("Previous agent instance was torn down without a clean shutdown")

	recordRestart(ctx, restartReasonProcess)
	s.publish(ctx, models.AgentEventRestarted, previous.Restarts+1, "previous instance terminated")
}

func (s *Supervisor) writeMarker(m watchdog.Marker) {
	if s.cfg.MarkerPath == "" {
		return
	}

	if err := watchdog.Write(s.cfg.MarkerPath, m); err != nil {
		s.logger.Warn().Err(err).Str("path", s.cfg.MarkerPath).Msg("Failed to write watchdog marker")
	}
}

func (s *Supervisor) publish(ctx context.Context, eventType string, attempt int, reason string) {
	if s.cfg.Events == nil {
		return
	}

	err := s.cfg.Events.PublishAgentEvent(ctx, eventType, models.AgentEventData{
		ControllerID: s.plane.pairing.ControllerID,
		DeviceID:     s.plane.pairing.DeviceID,
		InstanceID:   s.instanceID,
		Attempt:      attempt,
		Reason:       reason,
		Timestamp:    s.clock.Now(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("type", eventType).Msg("Failed to publish agent event")
	}
}
