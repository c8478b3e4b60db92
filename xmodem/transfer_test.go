package xmodem

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paddedBlocks returns the stream a receiver reassembles for the given
// input: zero-padded to a multiple of 128, with the final byte of every
// block zero since it never travels on the wire.
func paddedBlocks(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	blocks := (len(data) + BlockSize - 1) / BlockSize
	out := make([]byte, blocks*BlockSize)
	copy(out, data)
	for i := 0; i < blocks; i++ {
		out[i*BlockSize+payloadSize] = 0
	}
	return out
}

type transmitResult struct {
	n   int
	err error
}

func TestTransmitReceive_RoundTrip(t *testing.T) {
	sizes := []int{1, 64, 127, 128, 300, 1000}

	for _, size := range sizes {
		local, remote := pipePair(t)

		data := make([]byte, size)
		for i := range data {
			data[i] = fixtureByte(i * 7)
		}

		txDone := make(chan transmitResult, 1)
		go func() {
			n, err := Transmit(bytes.NewReader(data), local)
			txDone <- transmitResult{n, err}
		}()

		var sink bytes.Buffer
		received, err := Receive(remote, &sink)
		require.NoError(t, err, "size %d", size)

		res := <-txDone
		require.NoError(t, res.err, "size %d", size)

		assert.Equal(t, size, res.n, "size %d: transmit count excludes padding", size)

		want := paddedBlocks(data)
		assert.Equal(t, len(want), received, "size %d", size)
		assert.Equal(t, want, sink.Bytes(), "size %d", size)
	}
}

func TestTransmit_EmptySource(t *testing.T) {
	local, remote := pipePair(t)

	txDone := make(chan transmitResult, 1)
	go func() {
		n, err := Transmit(bytes.NewReader(nil), local)
		txDone <- transmitResult{n, err}
	}()

	var sink bytes.Buffer
	received, err := Receive(remote, &sink)
	require.NoError(t, err)

	res := <-txDone
	require.NoError(t, res.err)

	assert.Zero(t, res.n)
	assert.Zero(t, received)
	assert.Empty(t, sink.Bytes())
}

// corruptingConn flips one byte of the outgoing stream at a fixed offset
// and counts every byte written.
type corruptingConn struct {
	net.Conn
	written int
	target  int
	flipped bool
}

func (c *corruptingConn) Write(p []byte) (int, error) {
	out := p
	if !c.flipped && c.written <= c.target && c.target < c.written+len(p) {
		out = append([]byte(nil), p...)
		out[c.target-c.written] ^= 0xFF
		c.flipped = true
	}
	n, err := c.Conn.Write(out)
	c.written += n
	return n, err
}

func TestTransmit_ChecksumMismatchRetransmits(t *testing.T) {
	local, remote := pipePair(t)

	data := make([]byte, 100)
	for i := range data {
		data[i] = fixtureByte(i + 3)
	}

	// The checksum of the first packet is the 131st byte the sender
	// writes: SOH, seq, ^seq, then 127 payload bytes.
	corrupt := &corruptingConn{Conn: local, target: PacketWireSize - 1}

	txDone := make(chan transmitResult, 1)
	go func() {
		n, err := Transmit(bytes.NewReader(data), corrupt)
		txDone <- transmitResult{n, err}
	}()

	var seqs []uint8
	var sink bytes.Buffer
	received, err := ReceiveWithProgress(remote, &sink, func(p Progress) {
		if p.Kind == ProgressPacket {
			seqs = append(seqs, p.Packet)
		}
	})
	require.NoError(t, err)

	res := <-txDone
	require.NoError(t, res.err)
	assert.Equal(t, len(data), res.n)

	assert.Equal(t, BlockSize, received)
	assert.Equal(t, paddedBlocks(data), sink.Bytes())

	// Exactly one retransmission of the same packet number.
	assert.Equal(t, []uint8{1}, seqs)
	assert.Equal(t, 2*PacketWireSize+2, corrupt.written,
		"wire traffic: two attempts of one packet plus the two EOTs")
}

func TestTransmit_RetryBudgetExhausted(t *testing.T) {
	local, remote := pipePair(t)

	// A peer that NAKs every packet, exhausting the attempt budget.
	go func() {
		remote.Write([]byte{NAK}) // handshake

		for i := 0; i < maxPacketRetries; i++ {
			hdr := make([]byte, 2)
			readExact(remote, hdr)
			remote.Write(hdr[1:2]) // echo packet number

			cmpl := make([]byte, 1)
			readExact(remote, cmpl)
			remote.Write(cmpl) // echo complement

			body := make([]byte, payloadSize+1)
			readExact(remote, body)
			remote.Write([]byte{NAK})
		}
	}()

	data := make([]byte, 16)
	n, err := Transmit(bytes.NewReader(data), local)

	assert.Zero(t, n)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrTransferFailed, e.Type)
}

func TestReceive_CancelledBySender(t *testing.T) {
	local, remote := pipePair(t)

	go func() {
		b := make([]byte, 1)
		remote.Read(b) // handshake NAK
		remote.Write([]byte{CAN})
	}()

	var sink bytes.Buffer
	n, err := Receive(local, &sink)

	assert.Zero(t, n)
	require.Error(t, err)
	assert.True(t, IsCancelled(err), "cancellation is never retried, got %v", err)
}

func TestTransmit_CancelledByReceiver(t *testing.T) {
	local, remote := pipePair(t)

	go func() {
		remote.Write([]byte{NAK}) // handshake

		hdr := make([]byte, 2)
		readExact(remote, hdr)
		remote.Write([]byte{CAN}) // cancel instead of echoing
	}()

	data := make([]byte, 256)
	_, err := Transmit(bytes.NewReader(data), local)

	require.Error(t, err)
	assert.True(t, IsCancelled(err), "got %v", err)
}
