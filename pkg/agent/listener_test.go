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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/guardian/pkg/kv"
	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
)

func newTestListener(t *testing.T, log logger.Logger) (*Listener, *launcherHarness) {
	t.Helper()

	h := newLauncherHarness(t)

	return newListener(testPairing, h.launcher, log), h
}

// consume feeds updates to the listener and returns once it has handled
// them all and any launched session has settled.
func consume(t *testing.T, l *Listener, h *launcherHarness, updates ...kv.Update) {
	t.Helper()

	ch := make(chan kv.Update, len(updates))
	for _, u := range updates {
		ch <- u
	}

	close(ch)

	require.ErrorIs(t, l.Consume(context.Background(), ch), ErrSubscriptionLost)
	h.settle(t)
}

func doc(s string) kv.Update {
	return kv.Update{Document: []byte(s), Revision: 1}
}

func TestListenerNormalizesAndForwardsOffer(t *testing.T) {
	l, h := newTestListener(t, logger.NewTestLogger())

	want := models.SessionDescription{SDP: "v=0...", Type: models.SDPTypeOffer}

	h.engine.EXPECT().
		AcceptOffer(gomock.Any(), models.CaptureCamera, want).
		Return(models.SessionDescription{SDP: "v=0 answer", Type: models.SDPTypeAnswer}, nil).
		Times(1)

	offer := `{"lastSeen":1,"pendingOffer":{"sdp":"v=0...","type":"OFFER"}}`
	consume(t, l, h, doc(offer), doc(offer), doc(offer))

	assert.Equal(t, models.IndicatorMonitoring, h.indicator.State())
}

func TestListenerIgnoresAnsweredOfferAfterRestart(t *testing.T) {
	l, h := newTestListener(t, logger.NewTestLogger())

	desc := models.SessionDescription{SDP: "v=0...", Type: models.SDPTypeOffer}
	answered := `{"pendingOffer":{"sdp":"v=0...","type":"offer"},` +
		`"sessionAnswer":{"sdp":"v=0 answer","type":"answer","offerFingerprint":"` + desc.Fingerprint() + `","createdAt":1}}`

	consume(t, l, h, doc(answered))

	assert.Zero(t, h.factory.count())
}

func TestListenerSkipsMissingOffer(t *testing.T) {
	l, h := newTestListener(t, logger.NewTestLogger())

	consume(t, l, h,
		doc(`{"lastSeen":1,"isOnline":true}`),
		doc(`{"pendingOffer":null}`),
		kv.Update{Deleted: true, Revision: 2},
		kv.Update{Revision: 3},
	)

	assert.Zero(t, h.factory.count())
}

func TestListenerDropsMalformedOffers(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: `{"pendingOffer":`},
		{name: "offer is a string", doc: `{"pendingOffer":"v=0"}`},
		{name: "offer is a list", doc: `{"pendingOffer":[1,2]}`},
		{name: "empty sdp", doc: `{"pendingOffer":{"sdp":"","type":"offer"}}`},
		{name: "sdp is a number", doc: `{"pendingOffer":{"sdp":5,"type":"offer"}}`},
		{name: "unknown type", doc: `{"pendingOffer":{"sdp":"v=0","type":"pranswer"}}`},
		{name: "missing type", doc: `{"pendingOffer":{"sdp":"v=0"}}`},
		{name: "unknown mode", doc: `{"pendingOffer":{"sdp":"v=0","type":"offer","mode":"microphone"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := newBufferLogger()
			l, h := newTestListener(t, log)

			consume(t, l, h, doc(tt.doc))

			assert.Zero(t, h.factory.count())
			assert.Equal(t, 1, buf.countLevel("warn"))
		})
	}
}

func TestListenerKeepsSubscriptionOnError(t *testing.T) {
	log, buf := newBufferLogger()
	l, h := newTestListener(t, log)

	h.engine.EXPECT().
		AcceptOffer(gomock.Any(), models.CaptureScreen, gomock.Any()).
		Return(models.SessionDescription{SDP: "v=0 answer", Type: models.SDPTypeAnswer}, nil)

	consume(t, l, h,
		kv.Update{Err: errors.New("watcher stalled")},
		doc(`{"pendingOffer":{"sdp":"v=0","type":"offer","mode":"screen"}}`),
	)

	assert.Equal(t, 1, buf.countLevel("warn"))
	assert.Equal(t, models.IndicatorMonitoring, h.indicator.State())
}

func TestListenerForwardsRequestIdentity(t *testing.T) {
	l, _ := newTestListener(t, logger.NewTestLogger())

	req, err := l.decodeOffer([]byte(`{"sdp":"v=0","type":" Answer ","createdAt":{".sv":"timestamp"}}`))
	require.NoError(t, err)

	assert.Equal(t, models.SessionRequest{
		Description:  models.SessionDescription{SDP: "v=0", Type: models.SDPTypeAnswer},
		Mode:         models.CaptureCamera,
		ControllerID: "parent",
		DeviceID:     "child",
	}, req)
}

func TestListenerConsumeEndsWithContext(t *testing.T) {
	l, _ := newTestListener(t, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan kv.Update)

	done := make(chan error, 1)
	go func() { done <- l.Consume(ctx, ch) }()

	cancel()

	// the watch is still held until the store closes the channel
	select {
	case <-done:
		t.Fatal("listener returned before the watch was released")
	case <-time.After(50 * time.Millisecond):
	}

	close(ch)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("listener did not stop")
	}
}
