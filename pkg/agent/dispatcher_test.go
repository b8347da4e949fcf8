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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

type dispatcherHarness struct {
	dispatcher *Dispatcher
	indicator  *Indicator
	engine     *MockMediaEngine
	actuators  *MockActuators
	factory    *countingFactory
}

func newDispatcherHarness(t *testing.T, log logger.Logger) *dispatcherHarness {
	t.Helper()

	ctrl := gomock.NewController(t)
	h := &dispatcherHarness{
		engine:    NewMockMediaEngine(ctrl),
		actuators: NewMockActuators(ctrl),
	}

	h.factory = &countingFactory{engine: h.engine}
	h.indicator = startIndicator(t, &recordingSurface{}, log)
	h.dispatcher = NewDispatcher(NewCapabilityResolver(h.factory.create, nil, log), h.actuators, h.indicator, log)

	return h
}

// settle waits for dispatched actions and the indicator transitions they queued.
func (h *dispatcherHarness) settle(t *testing.T) {
	t.Helper()

	h.dispatcher.Close()
	require.NoError(t, h.indicator.Sync(context.Background()))
}

func TestDispatcherCommandTable(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		initial   models.IndicatorState
		expect    func(h *dispatcherHarness)
		want      models.IndicatorState
		resolving bool
	}{
		{
			name:  "startCamera",
			token: "startCamera",
			expect: func(h *dispatcherHarness) {
				h.engine.EXPECT().StartCapture(gomock.Any(), models.CaptureCamera).Return(nil)
			},
			want:      models.IndicatorMonitoring,
			resolving: true,
		},
		{
			name:    "stopCamera",
			token:   "stopCamera",
			initial: models.IndicatorMonitoring,
			expect: func(h *dispatcherHarness) {
				h.engine.EXPECT().StopCapture(gomock.Any(), models.CaptureCamera).Return(nil)
			},
			want:      models.IndicatorIdle,
			resolving: true,
		},
		{
			name:  "startScreen",
			token: "startScreen",
			expect: func(h *dispatcherHarness) {
				h.engine.EXPECT().StartCapture(gomock.Any(), models.CaptureScreen).Return(nil)
			},
			want:      models.IndicatorMonitoring,
			resolving: true,
		},
		{
			name:    "stopScreen",
			token:   "stopScreen",
			initial: models.IndicatorMonitoring,
			expect: func(h *dispatcherHarness) {
				h.engine.EXPECT().StopCapture(gomock.Any(), models.CaptureScreen).Return(nil)
			},
			want:      models.IndicatorIdle,
			resolving: true,
		},
		{
			name:    "switchCamera leaves indicator alone",
			token:   "switchCamera",
			initial: models.IndicatorMonitoring,
			expect: func(h *dispatcherHarness) {
				h.engine.EXPECT().SwitchCamera(gomock.Any()).Return(nil)
			},
			want:      models.IndicatorMonitoring,
			resolving: true,
		},
		{
			name:  "muteAudio",
			token: "muteAudio",
			expect: func(h *dispatcherHarness) {
				h.engine.EXPECT().SetAudioEnabled(gomock.Any(), false).Return(nil)
			},
			want:      models.IndicatorIdle,
			resolving: true,
		},
		{
			name:    "unmuteAudio",
			token:   "unmuteAudio",
			initial: models.IndicatorMonitoring,
			expect: func(h *dispatcherHarness) {
				h.engine.EXPECT().SetAudioEnabled(gomock.Any(), true).Return(nil)
			},
			want:      models.IndicatorMonitoring,
			resolving: true,
		},
		{
			name:  "playAlarm uses actuators only",
			token: "playAlarm",
			expect: func(h *dispatcherHarness) {
				h.actuators.EXPECT().PlayAlert(gomock.Any()).Return(nil)
			},
			want: models.IndicatorIdle,
		},
		{
			name:    "vibrateDevice pulses for 500ms",
			token:   "vibrateDevice",
			initial: models.IndicatorMonitoring,
			expect: func(h *dispatcherHarness) {
				h.actuators.EXPECT().Vibrate(gomock.Any(), vibrateDuration).Return(nil)
			},
			want: models.IndicatorMonitoring,
		},
		{
			name:    "failed start keeps indicator",
			token:   "startCamera",
			initial: models.IndicatorIdle,
			expect: func(h *dispatcherHarness) {
				h.engine.EXPECT().StartCapture(gomock.Any(), models.CaptureCamera).Return(errNoCamera)
			},
			want:      models.IndicatorIdle,
			resolving: true,
		},
		{
			name:    "failed stop keeps indicator",
			token:   "stopScreen",
			initial: models.IndicatorMonitoring,
			expect: func(h *dispatcherHarness) {
				h.engine.EXPECT().StopCapture(gomock.Any(), models.CaptureScreen).Return(errNoCamera)
			},
			want:      models.IndicatorMonitoring,
			resolving: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newDispatcherHarness(t, logger.NewTestLogger())
			ctx := context.Background()

			h.indicator.Transition(ctx, tt.initial)
			tt.expect(h)

			h.dispatcher.Dispatch(ctx, tt.token)
			h.settle(t)

			assert.Equal(t, tt.want, h.indicator.State())

			if tt.resolving {
				assert.Equal(t, 1, h.factory.count())
			} else {
				assert.Zero(t, h.factory.count())
			}
		})
	}
}

func TestDispatcherIgnoresUnknownTokens(t *testing.T) {
	inputs := []string{
		"",
		" ",
		"unknownToken",
		"StartCamera",
		"startcamera",
		"startCamera ",
		"start Camera",
		"playAlarm\n",
		"🚨",
		"\x00\xff",
		`{"command":"startCamera"}`,
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			h := newDispatcherHarness(t, logger.NewTestLogger())
			before := h.indicator.State()

			require.NotPanics(t, func() { h.dispatcher.Dispatch(context.Background(), raw) })
			h.settle(t)

			assert.Equal(t, before, h.indicator.State())
			assert.Zero(t, h.factory.count())
		})
	}
}

func TestDispatcherUnknownTokenLogsOneWarning(t *testing.T) {
	log, buf := newBufferLogger()
	h := newDispatcherHarness(t, log)

	h.dispatcher.Dispatch(context.Background(), "unknownToken")
	h.settle(t)

	assert.Equal(t, 1, buf.countLevel("warn"))
	assert.Contains(t, buf.String(), "unknownToken")
	assert.Equal(t, models.IndicatorIdle, h.indicator.State())
}

func TestDispatcherEngineUnavailable(t *testing.T) {
	log, buf := newBufferLogger()
	h := newDispatcherHarness(t, log)
	h.factory.err = errNoCamera

	require.NotPanics(t, func() { h.dispatcher.Dispatch(context.Background(), "startCamera") })
	h.settle(t)

	assert.Equal(t, models.IndicatorIdle, h.indicator.State())
	assert.Equal(t, 1, h.factory.count())
	assert.Equal(t, 1, buf.countLevel("error"))
	assert.Contains(t, buf.String(), ErrCapabilityUnavailable.Error())
}

func TestDispatcherResolvesOncePerCall(t *testing.T) {
	h := newDispatcherHarness(t, logger.NewTestLogger())
	h.factory.err = errNoCamera

	h.dispatcher.Dispatch(context.Background(), "switchCamera")
	h.dispatcher.Dispatch(context.Background(), "muteAudio")
	h.settle(t)

	assert.Equal(t, 2, h.factory.count())
}

func TestDispatcherWithoutActuators(t *testing.T) {
	log, buf := newBufferLogger()
	ind := startIndicator(t, &recordingSurface{}, log)
	factory := &countingFactory{err: errNoCamera}
	d := NewDispatcher(NewCapabilityResolver(factory.create, nil, log), nil, ind, log)

	d.Dispatch(context.Background(), "playAlarm")
	d.Dispatch(context.Background(), "vibrateDevice")
	d.Close()

	assert.Equal(t, 2, buf.countLevel("error"))
	assert.Zero(t, factory.count())
}

func TestDispatcherRecoversActionPanic(t *testing.T) {
	log, buf := newBufferLogger()
	h := newDispatcherHarness(t, log)

	h.engine.EXPECT().StartCapture(gomock.Any(), models.CaptureCamera).DoAndReturn(
		func(context.Context, models.CaptureMode) error { panic("driver crashed") })

	h.dispatcher.Dispatch(context.Background(), "startCamera")
	h.settle(t)

	assert.Equal(t, models.IndicatorIdle, h.indicator.State())
	assert.Contains(t, buf.String(), "driver crashed")
}

func TestDispatcherDropsAfterClose(t *testing.T) {
	h := newDispatcherHarness(t, logger.NewTestLogger())
	h.dispatcher.Close()

	h.dispatcher.Dispatch(context.Background(), "startCamera")
	h.settle(t)

	assert.Zero(t, h.factory.count())
}

func TestDispatcherActuatorFailureIsLogged(t *testing.T) {
	log, buf := newBufferLogger()
	h := newDispatcherHarness(t, log)

	h.actuators.EXPECT().PlayAlert(gomock.Any()).Return(errors.New("no audio sink"))

	h.dispatcher.Dispatch(context.Background(), "playAlarm")
	h.settle(t)

	assert.Contains(t, buf.String(), "no audio sink")
}
