// Package xmodem implements the XMODEM, XMODEM-1K and YMODEM file transfer
// protocols.
//
// The protocols run over any ordered byte stream (historically a serial
// line) that offers no framing, acknowledgment or error detection of its
// own. The package provides a block-transfer Engine that performs the
// handshake, block framing, checksum selection and retry handling, plus
// thin facades (XModem, YModem) that pick a block size and wire files to
// the engine.
//
// The engine is synchronous: one Send or Receive call drives a transfer
// to completion on the calling goroutine and owns the stream pair for
// that duration.
package xmodem

import "fmt"

// Ward Christensen / CP/M control characters
const (
	SOH     = 0x01 // start of 128-byte block
	STX     = 0x02 // start of 1024-byte block
	EOT     = 0x04 // end of transmission
	ACK     = 0x06
	NAK     = 0x15 // block rejected, or checksum-mode request
	CAN     = 0x18 // two in a row abort the transfer
	CPMEOF  = 0x1A // padding for the final block
	WANTCRC = 'C'  // send C not NAK to get crc not checksum
)

// Block payload sizes
const (
	BlockSize   = 128
	BlockSize1K = 1024
)

// controlNames provides human-readable names for control bytes.
// Used for debugging and logging
var controlNames = map[byte]string{
	SOH:     "SOH",
	STX:     "STX",
	EOT:     "EOT",
	ACK:     "ACK",
	NAK:     "NAK",
	CAN:     "CAN",
	CPMEOF:  "CPMEOF",
	WANTCRC: "C",
}

// ControlName returns the human-readable name for a control byte.
// Returns the hex value for bytes that carry no protocol meaning.
func ControlName(b byte) string {
	if name, ok := controlNames[b]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", b)
}
