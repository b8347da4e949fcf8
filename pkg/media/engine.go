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

// Package media implements the agent's media engine on pion/webrtc. Capture
// pipelines outside the agent deliver RTP over local UDP; the engine forwards
// it into the tracks of a single peer connection.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

var (
	// ErrSourceNotConfigured is returned when the requested capture source has no pipeline.
	ErrSourceNotConfigured = errors.New("capture source not configured")
	// ErrNoLocalOffer is returned when an answer arrives without an outstanding local offer.
	ErrNoLocalOffer = errors.New("no local offer awaiting an answer")
	// ErrEngineClosed is returned by every operation after Close.
	ErrEngineClosed  = errors.New("media engine closed")
	errGatherTimeout = errors.New("ICE gathering timed out")
)

// OfferPublisher makes an offer created by the engine visible to the
// controller.
type OfferPublisher interface {
	PublishLocalOffer(ctx context.Context, mode models.CaptureMode, desc models.SessionDescription) error
}

type facing int

const (
	facingFront facing = iota
	facingBack
)

func (f facing) String() string {
	if f == facingBack {
		return "back"
	}

	return "front"
}

// Engine owns at most one peer connection and the capture ingests feeding it.
// All methods are safe for concurrent use.
type Engine struct {
	cfg           Config
	api           *webrtc.API
	publisher     OfferPublisher
	logger        logger.Logger
	gatherTimeout time.Duration

	video *webrtc.TrackLocalStaticRTP
	audio *webrtc.TrackLocalStaticRTP

	audioEnabled atomic.Bool

	mu          sync.Mutex
	pc          *webrtc.PeerConnection
	offerMode   models.CaptureMode
	mode        models.CaptureMode
	facing      facing
	videoIngest *rtpIngest
	audioIngest *rtpIngest
	closed      bool
}

// NewEngine builds an engine. publisher may be nil, in which case starting a
// capture without a session does not produce an offer.
func NewEngine(cfg Config, publisher OfferPublisher, log logger.Logger) (*Engine, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("registering codecs: %w", err)
	}

	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(cfg.IncludeLoopback)

	video, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264, ClockRate: 90000}, "video", "guardian")
	if err != nil {
		return nil, fmt.Errorf("creating video track: %w", err)
	}

	audio, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}, "audio", "guardian")
	if err != nil {
		return nil, fmt.Errorf("creating audio track: %w", err)
	}

	e := &Engine{
		cfg:           cfg,
		api:           webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine), webrtc.WithSettingEngine(settingEngine)),
		publisher:     publisher,
		logger:        log,
		gatherTimeout: cfg.GatherTimeout.OrDefault(defaultGatherTimeout),
		video:         video,
		audio:         audio,
	}

	e.audioEnabled.Store(true)

	return e, nil
}

func (e *Engine) StartCapture(ctx context.Context, mode models.CaptureMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}

	if err := e.startCaptureLocked(mode); err != nil {
		return err
	}

	if e.pc != nil || e.publisher == nil {
		return nil
	}

	offer, err := e.createOfferLocked(ctx, mode)
	if err == nil {
		err = e.publisher.PublishLocalOffer(ctx, mode, offer)
	}

	if err != nil {
		e.stopCaptureLocked()

		return fmt.Errorf("offering %s session: %w", mode, err)
	}

	return nil
}

// StopCapture ends the capture of mode and the session carrying it. Stopping
// a capture that is not running succeeds.
func (e *Engine) StopCapture(_ context.Context, mode models.CaptureMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}

	if e.mode != mode {
		e.logger.Debug().Str("mode", string(mode)).Msg("Capture not running")

		return nil
	}

	e.stopCaptureLocked()

	return nil
}

func (e *Engine) SwitchCamera(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}

	next := facingBack
	if e.facing == facingBack {
		next = facingFront
	}

	addr := e.cameraSource(next)
	if addr == "" {
		return fmt.Errorf("%w: %s camera", ErrSourceNotConfigured, next)
	}

	if e.mode == models.CaptureCamera {
		ingest, err := startRTPIngest(addr, e.video.WriteRTP, nil, e.logger)
		if err != nil {
			return err
		}

		e.videoIngest.stop()
		e.videoIngest = ingest
	}

	e.facing = next

	e.logger.Info().Str("facing", next.String()).Msg("Camera switched")

	return nil
}

func (e *Engine) SetAudioEnabled(_ context.Context, enabled bool) error {
	e.audioEnabled.Store(enabled)

	e.logger.Info().Bool("enabled", enabled).Msg("Audio forwarding updated")

	return nil
}

// CreateOffer starts a new session on the agent side and returns its offer
// once candidate gathering completes.
func (e *Engine) CreateOffer(ctx context.Context, mode models.CaptureMode) (models.SessionDescription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return models.SessionDescription{}, ErrEngineClosed
	}

	return e.createOfferLocked(ctx, mode)
}

// AcceptOffer handles a session description from the controller. An offer
// replaces any existing session, starts the capture of mode and yields the
// answer. An answer completes the handshake of the last local offer and
// yields a zero description.
func (e *Engine) AcceptOffer(
	ctx context.Context, mode models.CaptureMode, desc models.SessionDescription) (models.SessionDescription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return models.SessionDescription{}, ErrEngineClosed
	}

	if desc.Type == models.SDPTypeAnswer {
		return models.SessionDescription{}, e.acceptAnswerLocked(mode, desc)
	}

	wasCapturing := e.mode == mode

	if err := e.startCaptureLocked(mode); err != nil {
		return models.SessionDescription{}, err
	}

	local, err := e.answerLocked(ctx, desc)
	if err != nil {
		if wasCapturing {
			e.dropSessionLocked()
		} else {
			e.stopCaptureLocked()
		}

		return models.SessionDescription{}, err
	}

	e.logger.Info().Str("mode", string(mode)).Msg("Controller offer answered")

	return models.SessionDescription{SDP: local, Type: models.SDPTypeAnswer}, nil
}

func (e *Engine) answerLocked(ctx context.Context, desc models.SessionDescription) (string, error) {
	pc, err := e.newPeerConnectionLocked()
	if err != nil {
		return "", err
	}

	remote := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: desc.SDP}
	if err := pc.SetRemoteDescription(remote); err != nil {
		return "", fmt.Errorf("setting remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("creating SDP answer: %w", err)
	}

	return e.setLocalAndGather(ctx, pc, answer)
}

func (e *Engine) acceptAnswerLocked(mode models.CaptureMode, desc models.SessionDescription) error {
	if e.pc == nil || e.pc.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
		return ErrNoLocalOffer
	}

	if err := e.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: desc.SDP}); err != nil {
		return fmt.Errorf("setting remote description: %w", err)
	}

	if e.mode == "" {
		if e.offerMode != "" {
			mode = e.offerMode
		}

		if err := e.startCaptureLocked(mode); err != nil {
			return err
		}
	}

	e.logger.Info().Str("mode", string(e.mode)).Msg("Local offer answered")

	return nil
}

func (e *Engine) createOfferLocked(ctx context.Context, mode models.CaptureMode) (models.SessionDescription, error) {
	pc, err := e.newPeerConnectionLocked()
	if err != nil {
		return models.SessionDescription{}, err
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		e.dropSessionLocked()

		return models.SessionDescription{}, fmt.Errorf("creating SDP offer: %w", err)
	}

	local, err := e.setLocalAndGather(ctx, pc, offer)
	if err != nil {
		e.dropSessionLocked()

		return models.SessionDescription{}, err
	}

	e.offerMode = mode

	return models.SessionDescription{SDP: local, Type: models.SDPTypeOffer}, nil
}

// setLocalAndGather applies desc and waits for all candidates (vanilla ICE),
// returning the complete local SDP.
func (e *Engine) setLocalAndGather(
	ctx context.Context, pc *webrtc.PeerConnection, desc webrtc.SessionDescription) (string, error) {
	gatherComplete := webrtc.GatheringCompletePromise(pc)

	if err := pc.SetLocalDescription(desc); err != nil {
		return "", fmt.Errorf("setting local description: %w", err)
	}

	timer := time.NewTimer(e.gatherTimeout)
	defer timer.Stop()

	select {
	case <-gatherComplete:
	case <-timer.C:
		return "", fmt.Errorf("%w after %s", errGatherTimeout, e.gatherTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return pc.LocalDescription().SDP, nil
}

// newPeerConnectionLocked replaces the current session with a fresh peer
// connection carrying both tracks.
func (e *Engine) newPeerConnectionLocked() (*webrtc.PeerConnection, error) {
	e.dropSessionLocked()

	pc, err := e.api.NewPeerConnection(webrtc.Configuration{ICEServers: e.cfg.iceServers()})
	if err != nil {
		return nil, fmt.Errorf("creating PeerConnection: %w", err)
	}

	for _, track := range []*webrtc.TrackLocalStaticRTP{e.video, e.audio} {
		sender, err := pc.AddTrack(track)
		if err != nil {
			_ = pc.Close()

			return nil, fmt.Errorf("adding %s track: %w", track.Kind(), err)
		}

		go drainRTCP(sender)
	}

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		e.logger.Info().Str("state", state.String()).Msg("Peer connection state changed")

		if state == webrtc.PeerConnectionStateFailed {
			go e.dropSession(pc)
		}
	})

	e.pc = pc

	return pc, nil
}

// drainRTCP reads RTCP so that interceptors keep working; it returns when
// the sender is closed.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, maxPacketSize)

	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func (e *Engine) dropSession(pc *webrtc.PeerConnection) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pc == pc {
		e.dropSessionLocked()
	}
}

func (e *Engine) dropSessionLocked() {
	if e.pc == nil {
		return
	}

	if err := e.pc.Close(); err != nil {
		e.logger.Debug().Err(err).Msg("Failed to close peer connection")
	}

	e.pc = nil
	e.offerMode = ""
}

func (e *Engine) cameraSource(f facing) string {
	if f == facingBack {
		return e.cfg.Sources.BackCamera
	}

	return e.cfg.Sources.FrontCamera
}

func (e *Engine) videoSource(mode models.CaptureMode) (string, error) {
	var addr string

	switch mode {
	case models.CaptureCamera:
		addr = e.cameraSource(e.facing)
	case models.CaptureScreen:
		addr = e.cfg.Sources.Screen
	default:
		return "", fmt.Errorf("%w: %q", models.ErrInvalidCaptureMode, mode)
	}

	if addr == "" {
		return "", fmt.Errorf("%w: %s", ErrSourceNotConfigured, mode)
	}

	return addr, nil
}

// startCaptureLocked points the video track at the pipeline for mode and
// starts the microphone ingest. A running capture of another mode is
// replaced.
func (e *Engine) startCaptureLocked(mode models.CaptureMode) error {
	if e.mode == mode {
		return nil
	}

	addr, err := e.videoSource(mode)
	if err != nil {
		return err
	}

	video, err := startRTPIngest(addr, e.video.WriteRTP, nil, e.logger)
	if err != nil {
		return err
	}

	if e.videoIngest != nil {
		e.videoIngest.stop()
	}

	e.videoIngest = video
	e.mode = mode

	if e.audioIngest == nil && e.cfg.Sources.Microphone != "" {
		audio, err := startRTPIngest(e.cfg.Sources.Microphone, e.audio.WriteRTP, e.audioEnabled.Load, e.logger)
		if err != nil {
			e.logger.Warn().Err(err).Msg("Microphone unavailable, streaming video only")
		} else {
			e.audioIngest = audio
		}
	}

	e.logger.Info().Str("mode", string(mode)).Str("source", addr).Msg("Capture started")

	return nil
}

func (e *Engine) stopCaptureLocked() {
	if e.videoIngest != nil {
		e.videoIngest.stop()
		e.videoIngest = nil
	}

	if e.audioIngest != nil {
		e.audioIngest.stop()
		e.audioIngest = nil
	}

	e.dropSessionLocked()

	if e.mode != "" {
		e.logger.Info().Str("mode", string(e.mode)).Msg("Capture stopped")
	}

	e.mode = ""
}

// Capturing returns the running capture mode, or "" when idle.
func (e *Engine) Capturing() models.CaptureMode {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.mode
}

// Close stops all captures and the session. Later calls are no-ops.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.stopCaptureLocked()
	e.closed = true

	return nil
}
