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

// Package device reads local device attributes and drives the local
// actuators and status surface of the agent.
package device

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

const (
	defaultPowerSupplyDir = "/sys/class/power_supply"
	defaultProbeTimeout   = 5 * time.Second
	commandWaitDelay      = time.Second
	operatorNameKey       = "modem.3gpp.operator-name"
)

var (
	errNoValue      = errors.New("attribute has no value")
	errProbePanic   = errors.New("attribute probe panicked")
	errProbeTimeout = errors.New("attribute probe timed out")
)

// defaultOperatorCommand prints modem properties as key/value lines.
var defaultOperatorCommand = []string{"mmcli", "-m", "any", "--output-keyvalue"}

type collectorDeps struct {
	hostInfo       func(context.Context) (*host.InfoStat, error)
	interfaces     func(context.Context) (psnet.InterfaceStatList, error)
	runCommand     func(ctx context.Context, name string, args ...string) ([]byte, error)
	powerSupplyDir string
}

type option func(*collectorDeps)

func defaultDeps() collectorDeps {
	return collectorDeps{
		hostInfo:       host.InfoWithContext,
		interfaces:     psnet.InterfacesWithContext,
		runCommand:     runCommand,
		powerSupplyDir: defaultPowerSupplyDir,
	}
}

// runCommand kills the command when ctx ends and stops waiting for its
// output shortly after, even if a child process keeps the pipe open.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = commandWaitDelay

	return cmd.Output()
}

// Collector gathers the slow-changing device attributes. Every attribute is
// read independently: a failing probe yields a sentinel for that attribute
// only.
type Collector struct {
	deps            collectorDeps
	operatorCommand []string
	probeTimeout    time.Duration
	logger          logger.Logger
}

// NewCollector builds a Collector from the device configuration.
func NewCollector(cfg Config, log logger.Logger, opts ...option) *Collector {
	deps := defaultDeps()

	if cfg.PowerSupplyDir != "" {
		deps.powerSupplyDir = cfg.PowerSupplyDir
	}

	for _, opt := range opts {
		opt(&deps)
	}

	operatorCommand := cfg.OperatorCommand
	if len(operatorCommand) == 0 {
		operatorCommand = defaultOperatorCommand
	}

	return &Collector{
		deps:            deps,
		operatorCommand: operatorCommand,
		probeTimeout:    cfg.ProbeTimeout.OrDefault(defaultProbeTimeout),
		logger:          log,
	}
}

// Collect reads all attributes. It never fails.
func (c *Collector) Collect(ctx context.Context) models.DeviceSnapshot {
	return models.DeviceSnapshot{
		OSVersion:    c.stringAttribute(ctx, models.FieldOSVersion, c.osVersion),
		IPAddress:    c.stringAttribute(ctx, models.FieldIPAddress, c.ipAddress),
		BatteryLevel: c.attribute(ctx, models.FieldBatteryLevel, c.batteryLevel),
		IsCharging:   c.attribute(ctx, models.FieldIsCharging, c.isCharging),
		SimOperator:  c.stringAttribute(ctx, models.FieldSimOperator, c.simOperator),
	}
}

func (c *Collector) stringAttribute(
	ctx context.Context, name string, probe func(context.Context) (string, error)) string {
	value := c.attribute(ctx, name, func(ctx context.Context) (interface{}, error) {
		return probe(ctx)
	})

	s, _ := value.(string)

	return s
}

type probeResult struct {
	value interface{}
	err   error
}

// attribute runs probe under probeTimeout and maps its failures onto the
// sentinel values. A probe that ignores its context is abandoned when the
// timeout fires.
func (c *Collector) attribute(
	ctx context.Context, name string, probe func(context.Context) (interface{}, error)) interface{} {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	done := make(chan probeResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- probeResult{err: fmt.Errorf("%w: %v", errProbePanic, r)}
			}
		}()

		v, err := probe(ctx)
		done <- probeResult{value: v, err: err}
	}()

	var res probeResult

	select {
	case res = <-done:
	case <-ctx.Done():
		res = probeResult{err: fmt.Errorf("%w: %w", errProbeTimeout, ctx.Err())}
	}

	switch {
	case res.err == nil:
		return res.value
	case errors.Is(res.err, fs.ErrPermission):
		c.logger.Debug().Err(res.err).Str("attribute", name).Msg("Attribute read not permitted")

		return models.AttributePermissionDenied
	case errors.Is(res.err, errProbePanic), errors.Is(res.err, errProbeTimeout):
		c.logger.Warn().Err(res.err).Str("attribute", name).Msg("Attribute probe failed")

		return models.AttributeUnavailable
	default:
		c.logger.Debug().Err(res.err).Str("attribute", name).Msg("Attribute unavailable")

		return models.AttributeUnavailable
	}
}

func (c *Collector) osVersion(ctx context.Context) (string, error) {
	info, err := c.deps.hostInfo(ctx)
	if err != nil {
		return "", err
	}

	if info == nil {
		return "", errNoValue
	}

	var parts []string

	for _, p := range []string{info.Platform, info.PlatformVersion} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	if len(parts) == 0 && info.KernelVersion != "" {
		parts = append(parts, info.OS, info.KernelVersion)
	}

	if len(parts) == 0 {
		return "", errNoValue
	}

	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

// ipAddress returns the first IPv4 address of an interface that is up and
// not a loopback, falling back to the first such IPv6 address.
func (c *Collector) ipAddress(ctx context.Context) (string, error) {
	ifaces, err := c.deps.interfaces(ctx)
	if err != nil {
		return "", err
	}

	var fallback string

	for _, iface := range ifaces {
		if !hasFlag(iface.Flags, "up") || hasFlag(iface.Flags, "loopback") {
			continue
		}

		for _, addr := range iface.Addrs {
			prefix, err := netip.ParsePrefix(addr.Addr)
			if err != nil {
				continue
			}

			ip := prefix.Addr()
			if ip.IsLoopback() || ip.IsLinkLocalUnicast() {
				continue
			}

			if ip.Is4() {
				return ip.String(), nil
			}

			if fallback == "" {
				fallback = ip.String()
			}
		}
	}

	if fallback == "" {
		return "", errNoValue
	}

	return fallback, nil
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}

	return false
}

// batteryDir returns the first power supply of type Battery.
func (c *Collector) batteryDir() (string, error) {
	entries, err := os.ReadDir(c.deps.powerSupplyDir)
	if err != nil {
		return "", err
	}

	for _, entry := range entries {
		dir := filepath.Join(c.deps.powerSupplyDir, entry.Name())

		kind, err := readTrimmed(filepath.Join(dir, "type"))
		if err != nil {
			continue
		}

		if kind == "Battery" {
			return dir, nil
		}
	}

	return "", errNoValue
}

func (c *Collector) batteryLevel(_ context.Context) (interface{}, error) {
	dir, err := c.batteryDir()
	if err != nil {
		return nil, err
	}

	raw, err := readTrimmed(filepath.Join(dir, "capacity"))
	if err != nil {
		return nil, err
	}

	level, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("parse capacity %q: %w", raw, err)
	}

	return level, nil
}

func (c *Collector) isCharging(_ context.Context) (interface{}, error) {
	dir, err := c.batteryDir()
	if err != nil {
		return nil, err
	}

	status, err := readTrimmed(filepath.Join(dir, "status"))
	if err != nil {
		return nil, err
	}

	switch status {
	case "Charging", "Full":
		return true, nil
	case "Discharging", "Not charging":
		return false, nil
	default:
		return nil, errNoValue
	}
}

func (c *Collector) simOperator(ctx context.Context) (string, error) {
	out, err := c.deps.runCommand(ctx, c.operatorCommand[0], c.operatorCommand[1:]...)
	if err != nil {
		return "", err
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(key) != operatorNameKey {
			continue
		}

		value = strings.TrimSpace(value)
		if value == "" || value == "--" {
			return "", errNoValue
		}

		return value, nil
	}

	return "", errNoValue
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}
