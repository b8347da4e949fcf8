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

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	flag "github.com/spf13/pflag"

	"github.com/carverauto/guardian/pkg/agent"
	"github.com/carverauto/guardian/pkg/config"
	"github.com/carverauto/guardian/pkg/device"
	"github.com/carverauto/guardian/pkg/kv"
	"github.com/carverauto/guardian/pkg/lifecycle"
	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/media"
	"github.com/carverauto/guardian/pkg/natsutil"
	"github.com/carverauto/guardian/pkg/version"
)

const (
	serviceName = "guardian-agent"

	// exitNotPaired matches RestartPreventExitStatus in the systemd unit, so
	// an unpaired device is not restarted in a loop.
	exitNotPaired = 78
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, config.ErrPairingMissing) || errors.Is(err, config.ErrPairingInvalid) {
			log.Printf("Agent not started: %v", err)
			os.Exit(exitNotPaired)
		}

		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/guardian/agent.json", "Path to agent config file")
	pairingPath := flag.String("pairing", "", "Path to the device pairing file (overrides pairing_file)")
	store := flag.String("store", "", "Document store: nats or memory (overrides store)")
	logLevel := flag.String("log-level", "", "Log level (overrides logging.level)")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get())

		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg agent.ServerConfig

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *store != "" {
		cfg.Store = *store

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid --store: %w", err)
		}
	}

	if *pairingPath != "" {
		cfg.PairingFile = *pairingPath
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	if *logLevel != "" {
		logConfig.Level = *logLevel
	}

	agentLogger, err := lifecycle.CreateComponentLogger(ctx, "agent", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		if err := lifecycle.ShutdownLogger(); err != nil {
			log.Printf("Failed to shutdown logger: %v", err)
		}
	}()

	if err := lifecycle.InitializeTelemetry(ctx, serviceName, logConfig, agentLogger); err != nil {
		agentLogger.Warn().Err(err).Msg("Telemetry export disabled")
	}

	pairing, err := config.NewConfig(agentLogger).LoadPairing(ctx, cfg.PairingFile)
	if err != nil {
		agentLogger.Error().Err(err).Str("path", cfg.PairingFile).Msg("Device is not paired")

		return err
	}

	agentLogger.Info().
		Str("version", version.Get().Version).
		Str("commit", version.Get().Commit).
		Str("controller_id", pairing.ControllerID).
		Str("device_id", pairing.DeviceID).
		Str("store", cfg.Store).
		Msg("Starting guardian agent")

	deps, cleanup, err := buildDeps(ctx, &cfg, agentLogger)
	if err != nil {
		return err
	}
	defer cleanup()

	plane, err := agent.NewControlPlane(pairing, cfg.Telemetry, deps.Deps)
	if err != nil {
		return fmt.Errorf("failed to create control plane: %w", err)
	}

	supervisor := agent.NewSupervisor(plane, agent.SupervisorConfig{
		RestartDelay: cfg.RestartInterval(),
		MarkerPath:   cfg.MarkerFile,
		Events:       deps.events,
		Logger:       agentLogger.WithComponent("supervisor"),
	})

	return supervisor.Run(ctx)
}

type agentDeps struct {
	agent.Deps
	events agent.EventSink
}

// buildDeps connects to the signaling backend and assembles the local
// device integrations.
func buildDeps(ctx context.Context, cfg *agent.ServerConfig, log logger.Logger) (*agentDeps, func(), error) {
	deps := &agentDeps{}
	cleanup := func() {}

	surface, err := device.NewStatusFile(cfg.Device.StatusFile, log.WithComponent("status"))
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to open status file: %w", err)
	}

	deps.Surface = surface
	deps.Collector = device.NewCollector(cfg.Device, log.WithComponent("collector"))
	deps.Actuators = device.NewActuators(cfg.Device, log.WithComponent("actuators"))
	deps.Logger = log
	deps.Engines = func(publisher agent.OfferPublisher) (agent.MediaEngine, error) {
		engine, err := media.NewEngine(cfg.Media, publisher, log.WithComponent("media"))
		if err != nil {
			return nil, err
		}

		return engine, nil
	}

	if cfg.Store == agent.StoreMemory {
		log.Warn().Msg("Using in-memory document store; the controller cannot reach this agent")

		deps.Store = kv.NewMemoryStore()

		return deps, func() { _ = deps.Store.Close() }, nil
	}

	nc, err := natsutil.ConnectWithSecurity(cfg.NATS.URL, serviceName, cfg.NATS.Security, log.WithComponent("nats"))
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	cleanup = func() {
		if deps.Store != nil {
			_ = deps.Store.Close()
		}

		nc.Close()
	}

	store, err := kv.NewNatsStore(ctx, nc, cfg.KV, log.WithComponent("kv"))
	if err != nil {
		cleanup()

		return nil, func() {}, fmt.Errorf("failed to open device bucket: %w", err)
	}

	deps.Store = store
	deps.Commands = agent.NewNATSCommandSource(nc, cfg.CommandSubjectPrefix, log.WithComponent("commands"))

	if cfg.Events.Enabled {
		deps.events = eventPublisher(ctx, nc, cfg, log)
	}

	return deps, cleanup, nil
}

// eventPublisher returns nil when the stream cannot be bound; lifecycle
// events are then skipped.
func eventPublisher(ctx context.Context, nc *nats.Conn, cfg *agent.ServerConfig, log logger.Logger) agent.EventSink {
	publisher, err := natsutil.CreateEventPublisher(ctx, nc, cfg.NATS.Domain, cfg.Events, log.WithComponent("events"))
	if err != nil {
		log.Warn().Err(err).Str("stream", cfg.Events.StreamName).Msg("Lifecycle events disabled")

		return nil
	}

	return publisher
}

var _ agent.EventSink = (*natsutil.EventPublisher)(nil)
