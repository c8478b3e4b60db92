package xmodem

import (
	"errors"
	"io"
	"syscall"
)

// maxPacketRetries is the fixed per-packet attempt budget. Retransmission
// is attempt-count based, never time based; the bound is part of the
// observable contract of Transmit and Receive.
const maxPacketRetries = 10

// Transmit sends everything read from data to the receiver on the far side
// of the transport using the XMODEM protocol. If the total length of data
// is not a multiple of 128 bytes, the final block is padded with zeroes.
//
// Returns the number of bytes read from data, excluding padding zeroes.
func Transmit(data io.Reader, to io.ReadWriter) (int, error) {
	return TransmitWithProgress(data, to, nil)
}

// TransmitWithProgress is Transmit with a progress callback. See the
// Progress type for the reported events.
func TransmitWithProgress(data io.Reader, to io.ReadWriter, f ProgressFunc) (int, error) {
	return transmit(data, NewWithProgress(to, f))
}

// Receive reads an XMODEM transfer from the sender on the far side of the
// transport and writes the reassembled blocks into the sink. Returns the
// number of bytes received, always a multiple of 128.
func Receive(from io.ReadWriter, into io.Writer) (int, error) {
	return ReceiveWithProgress(from, into, nil)
}

// ReceiveWithProgress is Receive with a progress callback. See the
// Progress type for the reported events.
func ReceiveWithProgress(from io.ReadWriter, into io.Writer, f ProgressFunc) (int, error) {
	return receive(NewWithProgress(from, f), into)
}

// transmit drives a Protocol through a full multi-packet send.
func transmit(data io.Reader, p *Protocol) (int, error) {
	var packet [BlockSize]byte
	written := 0

	for {
		n, err := readMax(data, packet[:])
		if err != nil {
			return written, err
		}
		for i := n; i < BlockSize; i++ {
			packet[i] = 0
		}

		if n == 0 {
			if _, err := p.WritePacket(nil); err != nil {
				return written, err
			}
			return written, nil
		}

		sent := false
		for attempt := 0; attempt < maxPacketRetries; attempt++ {
			if _, err := p.WritePacket(packet[:]); err != nil {
				if IsRetryable(err) {
					continue
				}
				return written, err
			}
			written += n
			sent = true
			break
		}
		if !sent {
			return written, NewError(ErrTransferFailed, "bad transmit")
		}
	}
}

// receive drives a Protocol through a full multi-packet receive.
func receive(p *Protocol, into io.Writer) (int, error) {
	var packet [BlockSize]byte
	received := 0

	for {
		n := 0
		got := false
		for attempt := 0; attempt < maxPacketRetries; attempt++ {
			var err error
			n, err = p.ReadPacket(packet[:])
			if err != nil {
				if IsRetryable(err) {
					continue
				}
				return received, err
			}
			got = true
			break
		}
		if !got {
			return received, NewError(ErrTransferFailed, "bad receive")
		}

		if n == 0 {
			return received, nil
		}

		received += n
		if err := writeAll(into, packet[:]); err != nil {
			return received, err
		}
	}
}

// readMax reads from r until buf is full or the stream is exhausted,
// retrying interrupted reads. Returns the number of bytes read.
func readMax(r io.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n

		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
	return total, nil
}

// writeAll writes all of buf to w.
func writeAll(w io.Writer, buf []byte) error {
	for written := 0; written < len(buf); {
		n, err := w.Write(buf[written:])
		written += n
		if err != nil {
			return err
		}
	}
	return nil
}
