package xmodem

import (
	"fmt"
	"sync"
	"time"
)

// Progress is a protocol lifecycle event reported to a ProgressFunc.
type Progress struct {
	// Kind identifies the event.
	Kind ProgressKind

	// Packet is the sequence number of the packet that was just
	// exchanged. Only meaningful for ProgressPacket events.
	Packet uint8
}

// ProgressKind categorizes progress events.
type ProgressKind int

const (
	// ProgressWaiting is emitted by the sending side just before it
	// blocks waiting for the receiver's initial NAK.
	ProgressWaiting ProgressKind = iota

	// ProgressStarted is emitted once the handshake has completed.
	ProgressStarted

	// ProgressPacket is emitted after one packet has been successfully
	// exchanged.
	ProgressPacket
)

func (k ProgressKind) String() string {
	switch k {
	case ProgressWaiting:
		return "waiting"
	case ProgressStarted:
		return "started"
	case ProgressPacket:
		return "packet"
	default:
		return "unknown"
	}
}

func (p Progress) String() string {
	if p.Kind == ProgressPacket {
		return fmt.Sprintf("packet %d", p.Packet)
	}
	return p.Kind.String()
}

// ProgressFunc receives progress events. It is called synchronously and
// in-line from the protocol engine, never from another goroutine; it must
// not block if the transfer is to make progress.
type ProgressFunc func(Progress)

// noopProgress discards progress events.
func noopProgress(Progress) {}

// ProgressTracker converts per-packet progress events into byte counts and
// transfer rates, invoking a callback at most once per update interval.
type ProgressTracker struct {
	mu sync.Mutex

	bytesTransferred int64
	startTime        time.Time
	lastUpdate       time.Time
	lastBytes        int64

	callback       func(transferred int64, rate float64)
	updateInterval time.Duration
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker(callback func(transferred int64, rate float64), interval time.Duration) *ProgressTracker {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	return &ProgressTracker{
		callback:       callback,
		updateInterval: interval,
	}
}

// Start begins tracking a transfer.
func (pt *ProgressTracker) Start() {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.bytesTransferred = 0
	pt.startTime = time.Now()
	pt.lastUpdate = pt.startTime
	pt.lastBytes = 0
}

// Observe feeds one protocol progress event into the tracker. Each packet
// event accounts for one block of payload.
func (pt *ProgressTracker) Observe(p Progress) {
	if p.Kind != ProgressPacket {
		return
	}
	pt.Update(pt.Bytes() + BlockSize)
}

// Update records the cumulative byte count and invokes the callback if
// enough time has passed since the last invocation.
func (pt *ProgressTracker) Update(bytesTransferred int64) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.bytesTransferred = bytesTransferred

	now := time.Now()
	if now.Sub(pt.lastUpdate) < pt.updateInterval {
		return
	}

	elapsed := now.Sub(pt.lastUpdate).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(bytesTransferred-pt.lastBytes) / elapsed
	}

	if pt.callback != nil {
		pt.callback(bytesTransferred, rate)
	}

	pt.lastUpdate = now
	pt.lastBytes = bytesTransferred
}

// Bytes returns the cumulative byte count observed so far.
func (pt *ProgressTracker) Bytes() int64 {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	return pt.bytesTransferred
}

// Complete marks the transfer as complete, makes a final callback and
// returns the duration.
func (pt *ProgressTracker) Complete() time.Duration {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	duration := time.Since(pt.startTime)

	if pt.callback != nil {
		pt.callback(pt.bytesTransferred, 0)
	}

	return duration
}
