package xmodem

import (
	"encoding/binary"

	"github.com/sigurn/crc16"
)

// ChecksumMode selects the block trailer format for a session.
type ChecksumMode int

const (
	// Checksum8 is the 1-byte additive checksum, requested with NAK
	Checksum8 ChecksumMode = iota
	// CRC16 is the 2-byte CRC-16/XMODEM, requested with 'C'
	CRC16
)

func (m ChecksumMode) String() string {
	switch m {
	case Checksum8:
		return "checksum"
	case CRC16:
		return "CRC-16"
	default:
		return "unknown"
	}
}

// requestByte is the handshake byte a receiver sends to ask for this mode.
func (m ChecksumMode) requestByte() byte {
	if m == CRC16 {
		return WANTCRC
	}
	return NAK
}

// Checksum computes and verifies block trailers. A session picks one
// variant at handshake and uses it for every block.
type Checksum interface {
	Mode() ChecksumMode
	// Size is the trailer length in bytes.
	Size() int
	Compute(payload []byte) []byte
	Verify(payload, trailer []byte) bool
}

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// NewChecksum returns the checksum variant for mode.
func NewChecksum(mode ChecksumMode) Checksum {
	if mode == CRC16 {
		return crc16Checksum{}
	}
	return sum8Checksum{}
}

type sum8Checksum struct{}

func (sum8Checksum) Mode() ChecksumMode { return Checksum8 }
func (sum8Checksum) Size() int          { return 1 }

func (sum8Checksum) Compute(payload []byte) []byte {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return []byte{sum}
}

func (c sum8Checksum) Verify(payload, trailer []byte) bool {
	return len(trailer) == 1 && c.Compute(payload)[0] == trailer[0]
}

type crc16Checksum struct{}

func (crc16Checksum) Mode() ChecksumMode { return CRC16 }
func (crc16Checksum) Size() int          { return 2 }

func (crc16Checksum) Compute(payload []byte) []byte {
	trailer := make([]byte, 2)
	binary.BigEndian.PutUint16(trailer, crc16.Checksum(payload, crcTable))
	return trailer
}

func (crc16Checksum) Verify(payload, trailer []byte) bool {
	if len(trailer) != 2 {
		return false
	}
	return binary.BigEndian.Uint16(trailer) == crc16.Checksum(payload, crcTable)
}
