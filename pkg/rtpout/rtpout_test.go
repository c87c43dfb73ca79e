package rtpout

import (
	"net"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadubentzen/gamescope-recorder/pkg/h264"
)

func TestSender(t *testing.T) {
	recv, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer recv.Close()

	s, err := NewSender(recv.LocalAddr().String(), 96, 30)
	require.NoError(t, err)
	defer s.Close()

	au := h264.WriteNALUnit(h264.NALTypeSEI, 0, []byte{0x05, 0x04, 0x03})
	require.NoError(t, s.Send(au))

	buf := make([]byte, 1500)
	require.NoError(t, recv.SetReadDeadline(time.Now().Add(time.Second)))
	n, _, err := recv.ReadFromUDP(buf)
	require.NoError(t, err)

	var pkt rtp.Packet
	require.NoError(t, pkt.Unmarshal(buf[:n]))
	assert.Equal(t, uint8(96), pkt.PayloadType)
	assert.NotEmpty(t, pkt.Payload)
}

func TestSenderBadFrameRate(t *testing.T) {
	_, err := NewSender("127.0.0.1:5004", 96, 0)
	require.Error(t, err)
}
