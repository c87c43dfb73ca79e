// Package rtpout streams encoded H.264 access units over RTP/UDP, one
// packetized access unit per frame. Receivers like ffplay or GStreamer can
// consume the stream with a matching SDP description.
package rtpout

import (
	"fmt"
	"math/rand"
	"net"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
)

const (
	defaultMTU = 1200

	// H.264 over RTP always runs on a 90 kHz clock.
	clockRate = 90000
)

// Sender packetizes access units and writes them to a UDP destination.
type Sender struct {
	conn       *net.UDPConn
	packetizer rtp.Packetizer
	samples    uint32
}

// NewSender dials addr ("host:port") and prepares an H.264 packetizer with
// the given dynamic payload type. frameRate sets the RTP timestamp step per
// access unit.
func NewSender(addr string, payloadType uint8, frameRate float32) (*Sender, error) {
	if frameRate <= 0 {
		return nil, fmt.Errorf("rtpout: frame rate must be positive, got %v", frameRate)
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("rtpout: resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("rtpout: dial %s: %w", addr, err)
	}

	packetizer := rtp.NewPacketizer(
		defaultMTU,
		payloadType,
		rand.Uint32(),
		&codecs.H264Payloader{},
		rtp.NewRandomSequencer(),
		clockRate,
	)
	return &Sender{
		conn:       conn,
		packetizer: packetizer,
		samples:    uint32(clockRate / frameRate),
	}, nil
}

// Send packetizes one Annex B access unit and writes the packets out.
func (s *Sender) Send(accessUnit []byte) error {
	for _, pkt := range s.packetizer.Packetize(accessUnit, s.samples) {
		raw, err := pkt.Marshal()
		if err != nil {
			return fmt.Errorf("rtpout: marshal packet: %w", err)
		}
		if _, err := s.conn.Write(raw); err != nil {
			return fmt.Errorf("rtpout: send packet: %w", err)
		}
	}
	return nil
}

// Close closes the UDP socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}
