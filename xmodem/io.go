package xmodem

import "io"

// protocolIO provides byte-exact buffered I/O for the XMODEM protocol.
// Reads block until data arrives or the transport fails; there is no
// timeout machinery, retransmission being attempt-count based.
type protocolIO struct {
	reader io.Reader
	writer io.Writer
	rbuf   []byte
	rpos   int
	rleft  int
}

// newProtocolIO creates the I/O layer over a transport. The transport is
// exclusively owned by one engine for the duration of a transfer.
func newProtocolIO(rw io.ReadWriter, bufsize int) *protocolIO {
	if bufsize <= 0 {
		bufsize = PacketWireSize
	}

	return &protocolIO{
		reader: rw,
		writer: rw,
		rbuf:   make([]byte, bufsize),
	}
}

// ReadByte reads a single byte, refilling the internal buffer as needed.
func (p *protocolIO) ReadByte() (byte, error) {
	if p.rleft > 0 {
		p.rleft--
		b := p.rbuf[p.rpos]
		p.rpos++
		return b, nil
	}

	return p.readByteInternal()
}

// readByteInternal performs the actual blocking read.
func (p *protocolIO) readByteInternal() (byte, error) {
	p.rpos = 0
	n, err := p.reader.Read(p.rbuf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	p.rleft = n - 1
	if p.rleft > 0 {
		p.rpos = 1
	}

	return p.rbuf[0], nil
}

// Read reads exactly len(buf) bytes into buf.
func (p *protocolIO) Read(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		b, err := p.ReadByte()
		if err != nil {
			return total, err
		}
		buf[total] = b
		total++
	}
	return total, nil
}

// Write writes all bytes to the underlying writer.
func (p *protocolIO) Write(buf []byte) (int, error) {
	written := 0
	for written < len(buf) {
		n, err := p.writer.Write(buf[written:])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// WriteByte writes a single byte.
func (p *protocolIO) WriteByte(b byte) error {
	_, err := p.Write([]byte{b})
	return err
}

// Flush flushes any buffered writes on transports that support it.
func (p *protocolIO) Flush() error {
	if f, ok := p.writer.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
