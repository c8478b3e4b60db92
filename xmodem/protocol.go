package xmodem

import "io"

// Protocol is the per-packet XMODEM state machine. It owns one transport
// exclusively, tracks the current packet sequence number and whether the
// initial handshake has completed, and implements one complete protocol
// exchange per ReadPacket/WritePacket call.
//
// A Protocol is NOT goroutine-safe. Exactly one logical thread of control
// may use a Protocol/transport pair at a time, consistent with the
// half-duplex nature of XMODEM.
type Protocol struct {
	io       *protocolIO
	seq      uint8
	started  bool
	progress ProgressFunc
	logger   Logger
}

// New creates a Protocol over the given transport. The returned instance
// can be used for either sending (WritePacket) or receiving (ReadPacket).
func New(rw io.ReadWriter) *Protocol {
	return NewWithProgress(rw, nil)
}

// NewWithProgress creates a Protocol over the given transport with a
// progress callback. The callback is invoked synchronously at the
// lifecycle points described on the Progress type; a nil callback is
// replaced with a no-op.
func NewWithProgress(rw io.ReadWriter, f ProgressFunc) *Protocol {
	if f == nil {
		f = noopProgress
	}

	return &Protocol{
		io:       newProtocolIO(rw, PacketWireSize),
		seq:      1,
		progress: f,
		logger:   NoopLogger{},
	}
}

// SetLogger installs a logger for protocol debugging. A nil logger
// restores the no-op default.
func (p *Protocol) SetLogger(l Logger) {
	if l == nil {
		l = NoopLogger{}
	}
	p.logger = l
}

// readByte reads exactly one byte from the transport. If abortOnCan is
// true and the byte is CAN, the peer has cancelled and an ErrCancelled
// error is returned. Transport failures propagate unchanged.
func (p *Protocol) readByte(abortOnCan bool) (byte, error) {
	b, err := p.io.ReadByte()
	if err != nil {
		return 0, err
	}

	if abortOnCan && b == CAN {
		return 0, NewError(ErrCancelled, "received CAN")
	}

	return b, nil
}

// writeByte writes exactly one byte to the transport.
func (p *Protocol) writeByte(b byte) error {
	return p.io.WriteByte(b)
}

// expectByte reads one byte with cancellation detection enabled and
// compares it against want. A CAN byte surfaces as ErrCancelled; any other
// mismatch fails with ErrProtocol carrying context as the diagnostic.
// Nothing is written back on mismatch; this variant is used where the
// peer has already signalled correctly and a mismatch should not itself
// trigger a CAN.
func (p *Protocol) expectByte(want byte, context string) (byte, error) {
	b, err := p.readByte(true)
	if err != nil {
		return 0, err
	}

	if b != want {
		return 0, NewByteError(ErrProtocol, context, b)
	}

	return b, nil
}

// expectByteOrCancel reads one byte with cancellation detection disabled
// and compares it against want. On a CAN the engine writes CAN back and
// fails with ErrCancelled; on any other mismatch it writes CAN and fails
// with ErrProtocol. This variant is used where detecting a mismatch must
// itself actively notify the peer.
func (p *Protocol) expectByteOrCancel(want byte, context string) (byte, error) {
	b, err := p.readByte(false)
	if err != nil {
		return 0, err
	}

	if b == want {
		return b, nil
	}

	if err := p.writeByte(CAN); err != nil {
		return 0, err
	}

	if b == CAN {
		return 0, NewError(ErrCancelled, "received CAN")
	}

	return 0, NewByteError(ErrProtocol, context, b)
}

// ReadPacket receives a single packet into buf and acknowledges it. On
// success it returns BlockSize; a return of 0 with a nil error signals the
// end of the transfer.
//
// The 127 payload bytes carried by each packet land in buf[0:127]; the
// final byte of the block is not transmitted by the protocol and is left
// untouched in buf.
//
// Error kinds: ErrBufferSize if len(buf) < BlockSize (no I/O is
// performed), ErrProtocol if the sender's control bytes are invalid,
// ErrChecksum if the packet checksum fails (the same packet may be
// retried), ErrCancelled if the sender cancels. Transport failures
// propagate unchanged.
func (p *Protocol) ReadPacket(buf []byte) (int, error) {
	if len(buf) < BlockSize {
		return 0, NewError(ErrBufferSize, "packet buffer shorter than one block")
	}

	if !p.started {
		if err := p.writeByte(NAK); err != nil {
			return 0, err
		}
		p.started = true
		p.logger.Debug("ReadPacket: handshake NAK sent")
		p.progress(Progress{Kind: ProgressStarted})
	}

	b, err := p.readByte(true)
	if err != nil {
		return 0, err
	}

	switch b {
	case SOH:
		// Each header byte is echoed back on a match. A mismatch puts
		// CAN in the echo slot instead; the exchange still proceeds to
		// the payload, leaving the sender to abort on the echoed CAN.
		num, err := p.readByte(true)
		if err != nil {
			return 0, err
		}
		echo := num
		if num != p.seq {
			p.logger.Error("ReadPacket: packet number %d, expected %d", num, p.seq)
			echo = CAN
		}
		if err := p.writeByte(echo); err != nil {
			return 0, err
		}

		cmpl, err := p.readByte(true)
		if err != nil {
			return 0, err
		}
		echo = cmpl
		if cmpl != ^p.seq {
			p.logger.Error("ReadPacket: bad packet number complement %#02x", cmpl)
			echo = CAN
		}
		if err := p.writeByte(echo); err != nil {
			return 0, err
		}

	case EOT:
		if err := p.writeByte(NAK); err != nil {
			return 0, err
		}
		if _, err := p.expectByte(EOT, "expected second EOT"); err != nil {
			return 0, err
		}
		if err := p.writeByte(ACK); err != nil {
			return 0, err
		}
		p.logger.Debug("ReadPacket: end of transfer")
		return 0, nil

	default:
		return 0, NewByteError(ErrProtocol, "expected SOH or EOT", b)
	}

	var checksum uint8
	for i := 0; i < payloadSize; i++ {
		b, err := p.readByte(true)
		if err != nil {
			return 0, err
		}
		buf[i] = b
		checksum += b
	}

	want, err := p.readByte(true)
	if err != nil {
		return 0, err
	}
	if want != checksum {
		if err := p.writeByte(NAK); err != nil {
			return 0, err
		}
		p.logger.Error("ReadPacket: checksum mismatch on packet %d", p.seq)
		return 0, NewError(ErrChecksum, "checksum failed")
	}

	p.logger.Debug("ReadPacket: packet %d received", p.seq)
	p.progress(Progress{Kind: ProgressPacket, Packet: p.seq})
	p.seq++
	if err := p.writeByte(ACK); err != nil {
		return 0, err
	}
	return BlockSize, nil
}

// WritePacket sends a single packet from buf and waits for the receiver's
// acknowledgement. An empty buf sends the two-round EOT handshake that
// ends the transfer; callers must make that final call once their data is
// exhausted. On success the number of bytes consumed from buf is returned.
//
// Only the first 127 bytes of the block travel on the wire; the 128th byte
// is covered by the block but never transmitted.
//
// Error kinds: ErrBufferSize if buf is neither empty nor at least
// BlockSize long, ErrProtocol if the receiver replies with an invalid
// control byte, ErrChecksum if the receiver NAKs the packet (the same
// packet may be retried), ErrCancelled if the receiver cancels. Transport
// failures propagate unchanged.
func (p *Protocol) WritePacket(buf []byte) (int, error) {
	if len(buf) != 0 && len(buf) < BlockSize {
		return 0, NewError(ErrBufferSize, "packet buffer shorter than one block")
	}

	if !p.started {
		p.progress(Progress{Kind: ProgressWaiting})
		if _, err := p.expectByteOrCancel(NAK, "expected NAK as first byte"); err != nil {
			return 0, err
		}
		p.started = true
		p.logger.Debug("WritePacket: handshake NAK received")
		p.progress(Progress{Kind: ProgressStarted})
	}

	if len(buf) == 0 {
		// End the transmission with two EOT handshakes.
		if err := p.writeByte(EOT); err != nil {
			return 0, err
		}
		if _, err := p.expectByte(NAK, "expected NAK to end the transmission"); err != nil {
			return 0, err
		}
		if err := p.writeByte(EOT); err != nil {
			return 0, err
		}
		if _, err := p.expectByte(ACK, "expected ACK to end the transmission"); err != nil {
			return 0, err
		}
		p.started = false
		p.logger.Debug("WritePacket: end of transfer")
		return 0, nil
	}

	seq := p.seq

	if err := p.writeByte(SOH); err != nil {
		return 0, err
	}
	if err := p.writeByte(seq); err != nil {
		return 0, err
	}
	// The receiver echoes each header byte, or CAN on a mismatch; the
	// echo value itself is discarded.
	if _, err := p.readByte(true); err != nil {
		return 0, err
	}
	if err := p.writeByte(^seq); err != nil {
		return 0, err
	}
	if _, err := p.readByte(true); err != nil {
		return 0, err
	}

	p.progress(Progress{Kind: ProgressStarted})

	var checksum uint8
	for i := 0; i < payloadSize; i++ {
		if err := p.writeByte(buf[i]); err != nil {
			return 0, err
		}
		checksum += buf[i]
	}
	if err := p.writeByte(checksum); err != nil {
		return 0, err
	}

	reply, err := p.readByte(true)
	if err != nil {
		return 0, err
	}

	switch reply {
	case ACK:
		p.logger.Debug("WritePacket: packet %d acknowledged", seq)
		p.progress(Progress{Kind: ProgressPacket, Packet: seq})
		p.seq++
		return len(buf), nil
	case NAK:
		p.logger.Error("WritePacket: packet %d rejected, retrying", seq)
		return 0, NewError(ErrChecksum, "checksum failed")
	default:
		return 0, NewByteError(ErrProtocol, "expected ACK or NAK", reply)
	}
}

// Flush flushes the transport, ensuring any intermediately buffered bytes
// reach their destination. Transports without buffering treat this as a
// no-op.
func (p *Protocol) Flush() error {
	return p.io.Flush()
}
