package xmodem

import (
	"io"
	"time"
)

// Session represents an XMODEM transfer session.
// It provides a high-level API over a transport, wiring the protocol
// engine together with progress tracking, callbacks and logging. A Session
// drives one transfer at a time; the transport is exclusively owned for
// the duration of each Send or Receive call.
type Session struct {
	// I/O
	rw io.ReadWriter

	// Configuration
	config *Config

	// Callbacks
	callbacks *Callbacks

	// Logger
	logger Logger
}

// Config holds session configuration.
type Config struct {
	// ProgressInterval bounds how often OnProgress is invoked.
	ProgressInterval time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the session configuration.
func WithConfig(config *Config) Option {
	return func(s *Session) {
		s.config = config
	}
}

// WithCallbacks sets the session callbacks.
func WithCallbacks(callbacks *Callbacks) Option {
	return func(s *Session) {
		s.callbacks = mergeCallbacks(callbacks)
	}
}

// WithLogger sets a logger for protocol debugging.
func WithLogger(logger Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a new XMODEM session over the given transport.
func NewSession(rw io.ReadWriter, opts ...Option) *Session {
	s := &Session{
		rw:        rw,
		config:    DefaultConfig(),
		callbacks: defaultCallbacks(),
		logger:    NoopLogger{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Send transmits everything read from data over the session transport.
// Returns the number of payload bytes sent, excluding padding.
func (s *Session) Send(data io.Reader) (int, error) {
	s.callbacks.OnTransferStart(DirectionSend)
	s.logger.Info("Send: starting transfer")

	tracker := NewProgressTracker(s.callbacks.OnProgress, s.config.ProgressInterval)
	tracker.Start()

	engine := NewWithProgress(s.rw, tracker.Observe)
	engine.SetLogger(s.logger)

	n, err := transmit(data, engine)
	if err != nil {
		s.logger.Error("Send: transfer failed: %v", err)
		s.callbacks.OnError(err, "transmit")
		return n, err
	}

	if err := engine.Flush(); err != nil {
		s.callbacks.OnError(err, "flush")
		return n, err
	}

	duration := tracker.Complete()
	s.logger.Info("Send: %d bytes in %v", n, duration)
	s.callbacks.OnTransferComplete(DirectionSend, int64(n), duration)
	return n, nil
}

// Receive reads one full transfer from the session transport into the
// sink. Returns the number of bytes received, a multiple of 128.
func (s *Session) Receive(into io.Writer) (int, error) {
	s.callbacks.OnTransferStart(DirectionReceive)
	s.logger.Info("Receive: starting transfer")

	tracker := NewProgressTracker(s.callbacks.OnProgress, s.config.ProgressInterval)
	tracker.Start()

	engine := NewWithProgress(s.rw, tracker.Observe)
	engine.SetLogger(s.logger)

	n, err := receive(engine, into)
	if err != nil {
		s.logger.Error("Receive: transfer failed: %v", err)
		s.callbacks.OnError(err, "receive")
		return n, err
	}

	if err := engine.Flush(); err != nil {
		s.callbacks.OnError(err, "flush")
		return n, err
	}

	duration := tracker.Complete()
	s.logger.Info("Receive: %d bytes in %v", n, duration)
	s.callbacks.OnTransferComplete(DirectionReceive, int64(n), duration)
	return n, nil
}
