// Package xmodem implements the XMODEM file transfer protocol.
//
// XMODEM is a half-duplex, lock-step protocol designed for transferring a
// byte stream over serial connections, commonly driven over SSH sessions or
// local TTYs. The transfer proceeds one 128-byte block at a time: the
// receiver opens the exchange with NAK, the sender answers with numbered
// data packets protected by an 8-bit checksum, and the receiver acknowledges
// each packet with ACK or requests a retransmit with NAK.
//
// The package is designed as a library. Protocol provides the per-packet
// state machine, Transmit and Receive drive a complete transfer, and Session
// wraps both with progress tracking and callback hooks. The underlying
// transport is any io.ReadWriter with blocking reads and writes.
package xmodem

// Control bytes exchanged on the wire. These values are fixed by the
// protocol and must match exactly for interoperability.
const (
	// SOH starts a 128-byte data packet.
	SOH = 0x01

	// EOT ends the transfer.
	EOT = 0x04

	// ACK is the positive acknowledge.
	ACK = 0x06

	// NAK is the negative acknowledge, also used by the receiver as the
	// initial "ready to receive" byte.
	NAK = 0x15

	// CAN cancels the transfer.
	CAN = 0x18
)

// Packet geometry.
const (
	// BlockSize is the size of the caller-facing payload block. Transmit
	// zero-pads short final reads up to this size.
	BlockSize = 128

	// payloadSize is the number of payload bytes carried on the wire per
	// data packet. The final byte of each 128-byte block is covered by the
	// block but never transmitted; receivers see it as zero.
	payloadSize = 127

	// PacketWireSize is the total on-wire size of one data packet:
	// SOH, packet number, complement, payload, checksum.
	PacketWireSize = 3 + payloadSize + 1
)

// controlNames maps the protocol control bytes to readable names.
// Used for diagnostics and logging.
var controlNames = map[byte]string{
	SOH: "SOH",
	EOT: "EOT",
	ACK: "ACK",
	NAK: "NAK",
	CAN: "CAN",
}

// ControlName returns the human-readable name for a control byte.
// Non-control bytes are rendered in hex.
func ControlName(b byte) string {
	if name, ok := controlNames[b]; ok {
		return name
	}
	return hexByte(b)
}

func hexByte(b byte) string {
	const digits = "0123456789abcdef"
	return "0x" + string([]byte{digits[b>>4], digits[b&0x0F]})
}
