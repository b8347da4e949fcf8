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

package media

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/pion/rtp"

	"github.com/carverauto/guardian/pkg/logger"
)

// maxPacketSize bounds a single datagram from a capture pipeline.
const maxPacketSize = 1500

// rtpIngest reads RTP datagrams from one capture pipeline and hands them to
// a track writer.
type rtpIngest struct {
	conn    net.PacketConn
	write   func(*rtp.Packet) error
	gate    func() bool
	logger  logger.Logger
	done    chan struct{}
	packets atomic.Uint64
	dropped atomic.Uint64
}

// startRTPIngest listens on addr. gate, when set, is consulted per packet;
// packets are discarded while it reports false.
func startRTPIngest(addr string, write func(*rtp.Packet) error, gate func() bool, log logger.Logger) (*rtpIngest, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for RTP on %s: %w", addr, err)
	}

	in := &rtpIngest{
		conn:   conn,
		write:  write,
		gate:   gate,
		logger: log,
		done:   make(chan struct{}),
	}

	go in.run()

	return in, nil
}

func (in *rtpIngest) run() {
	defer close(in.done)

	buf := make([]byte, maxPacketSize)

	for {
		n, _, err := in.conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				in.logger.Warn().Err(err).Str("addr", in.conn.LocalAddr().String()).Msg("RTP ingest stopped")
			}

			return
		}

		if in.gate != nil && !in.gate() {
			in.dropped.Add(1)

			continue
		}

		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			in.dropped.Add(1)

			continue
		}

		if err := in.write(pkt); err != nil {
			in.logger.Debug().Err(err).Msg("Failed to write RTP packet to track")

			continue
		}

		in.packets.Add(1)
	}
}

func (in *rtpIngest) addr() net.Addr {
	return in.conn.LocalAddr()
}

// stop closes the socket and waits for the reader to exit.
func (in *rtpIngest) stop() {
	_ = in.conn.Close()
	<-in.done
}
