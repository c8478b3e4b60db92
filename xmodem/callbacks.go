package xmodem

import "time"

// Direction identifies which side of a transfer a Session is driving.
type Direction int

const (
	// DirectionSend means the local side is transmitting.
	DirectionSend Direction = iota

	// DirectionReceive means the local side is receiving.
	DirectionReceive
)

func (d Direction) String() string {
	switch d {
	case DirectionSend:
		return "send"
	case DirectionReceive:
		return "receive"
	default:
		return "unknown"
	}
}

// Callbacks provides hooks for XMODEM transfer events.
// All callbacks are optional - nil callbacks use default behavior.
type Callbacks struct {
	// OnTransferStart is called once when a transfer begins, before any
	// handshake byte is exchanged.
	OnTransferStart func(dir Direction)

	// OnProgress is called periodically during the transfer.
	// transferred: block bytes exchanged so far (including padding)
	// rate: transfer rate in bytes per second
	OnProgress func(transferred int64, rate float64)

	// OnTransferComplete is called when a transfer completes.
	// bytes: payload bytes moved, excluding padding on the send side
	// duration: time taken for the transfer
	OnTransferComplete func(dir Direction, bytes int64, duration time.Duration)

	// OnError is called when a transfer fails.
	// context: description of where the error occurred
	OnError func(err error, context string)
}

// defaultCallbacks returns a set of callbacks with default implementations.
func defaultCallbacks() *Callbacks {
	return &Callbacks{
		OnTransferStart:    func(Direction) {},
		OnProgress:         func(int64, float64) {},
		OnTransferComplete: func(Direction, int64, time.Duration) {},
		OnError:            func(error, string) {},
	}
}

// mergeCallbacks merges user callbacks with defaults.
// User callbacks override defaults, nil callbacks use defaults.
func mergeCallbacks(user *Callbacks) *Callbacks {
	if user == nil {
		return defaultCallbacks()
	}

	def := defaultCallbacks()
	result := &Callbacks{}

	if user.OnTransferStart != nil {
		result.OnTransferStart = user.OnTransferStart
	} else {
		result.OnTransferStart = def.OnTransferStart
	}

	if user.OnProgress != nil {
		result.OnProgress = user.OnProgress
	} else {
		result.OnProgress = def.OnProgress
	}

	if user.OnTransferComplete != nil {
		result.OnTransferComplete = user.OnTransferComplete
	} else {
		result.OnTransferComplete = def.OnTransferComplete
	}

	if user.OnError != nil {
		result.OnError = user.OnError
	} else {
		result.OnError = def.OnError
	}

	return result
}
