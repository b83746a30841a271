package xmodem

import "time"

// blockStatus is the outcome of decoding one block on the receive path.
type blockStatus int

const (
	blockAccepted blockStatus = iota
	blockTimeout
	blockInvalid
	blockRepeated
	blockSyncLost
)

func (s blockStatus) String() string {
	switch s {
	case blockAccepted:
		return "accepted"
	case blockTimeout:
		return "timeout"
	case blockInvalid:
		return "invalid"
	case blockRepeated:
		return "repeated"
	case blockSyncLost:
		return "sync lost"
	default:
		return "unknown"
	}
}

// block is one decoded block.
type block struct {
	seq     byte
	payload []byte
}

// headerFor returns the header byte announcing a payload of size bytes.
func headerFor(size int) byte {
	if size == BlockSize1K {
		return STX
	}
	return SOH
}

// payloadSize returns the payload length implied by a header byte.
func payloadSize(header byte) (int, bool) {
	switch header {
	case SOH:
		return BlockSize, true
	case STX:
		return BlockSize1K, true
	default:
		return 0, false
	}
}

// encodeBlock builds the wire form of one block:
// [header][seq][255-seq][payload padded to size][trailer].
func encodeBlock(seq byte, data []byte, size int, sum Checksum) []byte {
	payload := make([]byte, size)
	n := copy(payload, data)
	for i := n; i < size; i++ {
		payload[i] = CPMEOF
	}

	buf := make([]byte, 0, 3+size+sum.Size())
	buf = append(buf, headerFor(size), seq, 255-seq)
	buf = append(buf, payload...)
	buf = append(buf, sum.Compute(payload)...)
	return buf
}

// decodeBlock reads the rest of a block whose header byte has already
// been consumed and classifies it against the expected sequence number.
// The error is non-nil only for stream failures; every protocol outcome
// is reported through the status.
func decodeBlock(z *modemIO, header byte, expected byte, sum Checksum, byteTimeout time.Duration) (block, blockStatus, error) {
	size, ok := payloadSize(header)
	if !ok {
		return block{}, blockInvalid, nil
	}

	var seqs [2]byte
	if st, err := readPart(z, seqs[:], byteTimeout); err != nil || st != blockAccepted {
		return block{}, st, err
	}

	payload := make([]byte, size)
	trailer := make([]byte, sum.Size())
	if seqs[0] != 255-seqs[1] {
		// consume the rest of the block so it is not mistaken for a header
		rest := make([]byte, size+sum.Size())
		if _, err := readPart(z, rest, byteTimeout); err != nil {
			return block{}, blockInvalid, err
		}
		return block{seq: seqs[0]}, blockInvalid, nil
	}

	if st, err := readPart(z, payload, byteTimeout); err != nil || st != blockAccepted {
		return block{}, st, err
	}
	if st, err := readPart(z, trailer, byteTimeout); err != nil || st != blockAccepted {
		return block{}, st, err
	}

	blk := block{seq: seqs[0], payload: payload}
	if !sum.Verify(payload, trailer) {
		return blk, blockInvalid, nil
	}

	switch blk.seq {
	case expected:
		return blk, blockAccepted, nil
	case expected - 1:
		return blk, blockRepeated, nil
	default:
		return blk, blockSyncLost, nil
	}
}

// readPart fills buf with a fresh per-byte deadline for every byte,
// mapping a timeout to blockTimeout.
func readPart(z *modemIO, buf []byte, byteTimeout time.Duration) (blockStatus, error) {
	for i := range buf {
		b, err := z.readByte(startDeadline(byteTimeout))
		if err != nil {
			if IsTimeout(err) {
				return blockTimeout, nil
			}
			return blockInvalid, err
		}
		buf[i] = b
	}
	return blockAccepted, nil
}
