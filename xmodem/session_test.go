package xmodem

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callbackRecord collects the callback invocations of one session side.
// Each side runs in its own goroutine; the results are only inspected
// after that goroutine has finished.
type callbackRecord struct {
	starts    []Direction
	progress  []int64
	completes []int64
	errors    []error
}

func (r *callbackRecord) callbacks() *Callbacks {
	return &Callbacks{
		OnTransferStart: func(dir Direction) {
			r.starts = append(r.starts, dir)
		},
		OnProgress: func(transferred int64, rate float64) {
			r.progress = append(r.progress, transferred)
		},
		OnTransferComplete: func(dir Direction, bytes int64, duration time.Duration) {
			r.completes = append(r.completes, bytes)
		},
		OnError: func(err error, context string) {
			r.errors = append(r.errors, err)
		},
	}
}

func TestSession_SendReceive(t *testing.T) {
	local, remote := pipePair(t)

	data := make([]byte, 500)
	for i := range data {
		data[i] = fixtureByte(i * 13)
	}

	var sendRec callbackRecord
	sender := NewSession(local, WithCallbacks(sendRec.callbacks()))

	var recvRec callbackRecord
	receiver := NewSession(remote, WithCallbacks(recvRec.callbacks()))

	sendDone := make(chan transmitResult, 1)
	go func() {
		n, err := sender.Send(bytes.NewReader(data))
		sendDone <- transmitResult{n, err}
	}()

	var sink bytes.Buffer
	received, err := receiver.Receive(&sink)
	require.NoError(t, err)

	res := <-sendDone
	require.NoError(t, res.err)

	assert.Equal(t, len(data), res.n)
	assert.Equal(t, 4*BlockSize, received)
	assert.Equal(t, paddedBlocks(data), sink.Bytes())

	assert.Equal(t, []Direction{DirectionSend}, sendRec.starts)
	assert.Equal(t, []Direction{DirectionReceive}, recvRec.starts)

	// The tracker always makes a final progress callback on completion.
	require.NotEmpty(t, sendRec.progress)
	assert.Equal(t, int64(4*BlockSize), sendRec.progress[len(sendRec.progress)-1])
	require.NotEmpty(t, recvRec.progress)
	assert.Equal(t, int64(4*BlockSize), recvRec.progress[len(recvRec.progress)-1])

	assert.Equal(t, []int64{int64(len(data))}, sendRec.completes)
	assert.Equal(t, []int64{int64(4 * BlockSize)}, recvRec.completes)

	assert.Empty(t, sendRec.errors)
	assert.Empty(t, recvRec.errors)
}

func TestSession_ReceiveError(t *testing.T) {
	local, remote := pipePair(t)

	go func() {
		b := make([]byte, 1)
		remote.Read(b) // handshake NAK
		remote.Write([]byte{CAN})
	}()

	var rec callbackRecord
	session := NewSession(local, WithCallbacks(rec.callbacks()))

	var sink bytes.Buffer
	n, err := session.Receive(&sink)

	assert.Zero(t, n)
	require.Error(t, err)
	assert.True(t, IsCancelled(err))

	require.Len(t, rec.errors, 1)
	assert.ErrorIs(t, rec.errors[0], err)
	assert.Empty(t, rec.completes, "no completion callback on failure")
}

func TestSession_PartialCallbacksMerged(t *testing.T) {
	local, remote := pipePair(t)

	// Only OnTransferComplete is provided; the merged defaults must cover
	// the rest without panicking.
	var completed int64 = -1
	sender := NewSession(local, WithCallbacks(&Callbacks{
		OnTransferComplete: func(dir Direction, bytes int64, duration time.Duration) {
			completed = bytes
		},
	}))
	receiver := NewSession(remote)

	sendDone := make(chan transmitResult, 1)
	go func() {
		n, err := sender.Send(bytes.NewReader(make([]byte, BlockSize)))
		sendDone <- transmitResult{n, err}
	}()

	var sink bytes.Buffer
	_, err := receiver.Receive(&sink)
	require.NoError(t, err)
	require.NoError(t, (<-sendDone).err)

	assert.Equal(t, int64(BlockSize), completed)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 100*time.Millisecond, cfg.ProgressInterval)
}
