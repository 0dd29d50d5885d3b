// SPDX-License-Identifier: MIT
package udp

import (
	"math"
	"net"
	"testing"
	"time"

	"mira/internal/analysis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testListener binds a loopback UDP socket and returns a sender dialed at it
// plus the listening side.
func testListener(t *testing.T) (*Sender, net.PacketConn) {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	sender, err := NewSender(conn.LocalAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { sender.Close() })

	return sender, conn
}

func recvPacket(t *testing.T, conn net.PacketConn) []byte {
	t.Helper()
	buf := make([]byte, 256)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	return buf[:n]
}

func testResult() *analysis.Result {
	bands := make([]float64, 32)
	for i := range bands {
		bands[i] = float64(i + 1)
	}
	return &analysis.Result{
		Harmonic:         bands,
		ZeroCrossingRate: 0.05,
		SpectralCentroid: 1250,
		HPRatio:          1,
	}
}

func TestPublisherEmitsWellFormedPacket(t *testing.T) {
	sender, conn := testListener(t)
	p, err := NewPublisher(sender, time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, p.Send(testResult()))

	packet := recvPacket(t, conn)
	require.Len(t, packet, srPacketSize)

	assert.Equal(t, srHeader[:], packet[:6], "header")
	assert.Equal(t, []byte{0, 0}, packet[6:8], "pressure bytes are reserved")
	assert.Equal(t, uint8(0), packet[17], "frame counter starts at zero")

	// 32 bands of strictly rising energy downmix to 16 non-decreasing
	// segment bytes. The top segment averages the two loudest bands against
	// the peak of 32: (31/32 + 32/32)/2 * 255 rounds to 251.
	segments := packet[18:34]
	for i := 1; i < len(segments); i++ {
		assert.GreaterOrEqual(t, segments[i], segments[i-1], "segment %d", i)
	}
	assert.Equal(t, uint8(251), segments[15])

	// ZeroCrossingCount = round(zcr * harmonic frame length), little-endian.
	wantZC := uint16(math.Round(0.05 * float64(analysis.HarmonicFFTSize)))
	gotZC := uint16(packet[34]) | uint16(packet[35])<<8
	assert.Equal(t, wantZC, gotZC)
}

func TestPublisherFrameCounterAdvances(t *testing.T) {
	sender, conn := testListener(t)
	p, err := NewPublisher(sender, time.Nanosecond)
	require.NoError(t, err)

	for want := uint8(0); want < 3; want++ {
		require.NoError(t, p.Send(testResult()))
		packet := recvPacket(t, conn)
		require.Len(t, packet, srPacketSize)
		assert.Equal(t, want, packet[17])
		time.Sleep(time.Microsecond)
	}
}

func TestPublisherThrottles(t *testing.T) {
	sender, conn := testListener(t)
	p, err := NewPublisher(sender, time.Hour)
	require.NoError(t, err)

	require.NoError(t, p.Send(testResult()))
	_ = recvPacket(t, conn)

	// Within the interval the send is accepted but nothing is transmitted.
	require.NoError(t, p.Send(testResult()))

	buf := make([]byte, 256)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = conn.ReadFrom(buf)
	require.Error(t, err, "throttled send must not reach the wire")
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestPublisherRejectsNilSender(t *testing.T) {
	_, err := NewPublisher(nil, time.Millisecond)
	assert.Error(t, err)
}

func TestPublisherDefaultsBadInterval(t *testing.T) {
	sender, _ := testListener(t)
	p, err := NewPublisher(sender, -1)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, p.interval)
}
