package xmodem

import (
	"fmt"
	"io"
)

// Receive runs the receiver side of one XMODEM transfer and writes every
// accepted payload to dst. The final block's CPMEOF padding is written
// as received; plain XMODEM carries no file length. dst is not closed.
func (e *Engine) Receive(dst io.Writer) (int64, error) {
	sum := NewChecksum(e.config.Checksum)

	header, err := e.requestStart(sum.Mode())
	if err != nil {
		return 0, e.fail(err, "request start")
	}

	n, err := e.receiveBlocks(dst, header, 1, sum)
	if err != nil {
		return n, e.fail(err, "receive data")
	}
	return n, nil
}

// ReceiveBatch receives one YMODEM file. open is called with the
// metadata from block 0 and returns the sink, which ReceiveBatch closes
// before returning. A nil header with a nil error means the batch
// terminator was received and open was not called.
func (e *Engine) ReceiveBatch(open func(BatchHeader) (io.WriteCloser, error)) (*BatchHeader, int64, error) {
	sum := NewChecksum(e.config.Checksum)

	payload, err := e.receiveHeaderBlock(sum)
	if err != nil {
		return nil, 0, e.fail(err, "receive header")
	}

	if IsBatchEnd(payload) {
		e.logger.Info("end of batch")
		if err := e.io.writeByte(ACK); err != nil {
			return nil, 0, e.fail(err, "receive header")
		}
		return nil, 0, nil
	}

	h, err := ParseBatchHeader(payload)
	if err != nil {
		e.cancelTransfer()
		return nil, 0, e.fail(err, "parse header")
	}
	e.logger.Info("receiving %s (%d bytes)", h.Name, h.Size)

	sink, err := open(h)
	if err != nil {
		e.cancelTransfer()
		return &h, 0, e.fail(wrapError(ErrIO, "open sink for "+h.Name, err), "open file")
	}
	defer sink.Close()

	if err := e.io.writeByte(ACK); err != nil {
		return &h, 0, e.fail(err, "receive header")
	}

	var dst io.Writer = sink
	if e.config.TruncateToSize && h.Size > 0 {
		dst = &limitWriter{w: sink, n: h.Size}
	}

	header, err := e.requestStart(sum.Mode())
	if err != nil {
		return &h, 0, e.fail(err, "request start")
	}

	n, err := e.receiveBlocks(dst, header, 1, sum)
	if err != nil {
		return &h, n, e.fail(err, "receive data")
	}
	return &h, n, nil
}

// requestStart sends the handshake byte for mode until the sender
// answers with a block header or EOT.
func (e *Engine) requestStart(mode ChecksumMode) (byte, error) {
	req := mode.requestByte()

	for errCount := 0; errCount < e.config.MaxErrors; errCount++ {
		if err := e.io.writeByte(req); err != nil {
			return 0, err
		}
		e.logger.Debug("requested start with %s", ControlName(req))

		dl := startDeadline(e.config.RequestTimeout)
		for {
			b, err := e.io.readByte(dl)
			if err != nil {
				if IsTimeout(err) {
					e.emit(EventTimeout, 0, "no response to start request")
					break
				}
				return 0, err
			}
			switch b {
			case SOH, STX, EOT:
				return b, nil
			case CAN:
				return 0, NewError(ErrPeerCancelled, "sender cancelled before first block")
			}
		}
	}

	e.cancelTransfer()
	return 0, NewError(ErrMaxErrors, "no response from sender")
}

// receiveHeaderBlock reads YMODEM block 0 and returns its payload
// without acknowledging it.
func (e *Engine) receiveHeaderBlock(sum Checksum) ([]byte, error) {
	header, err := e.requestStart(sum.Mode())
	if err != nil {
		return nil, err
	}

	errCount := 0
	for {
		switch header {
		case EOT:
			// the ACK for the previous file's EOT was lost
			if err := e.io.writeByte(ACK); err != nil {
				return nil, err
			}
			header, err = e.requestStart(sum.Mode())
			if err != nil {
				return nil, err
			}
			continue
		case CAN:
			return nil, NewError(ErrPeerCancelled, "sender cancelled transfer")
		default:
			blk, status, err := decodeBlock(e.io, header, 0, sum, e.config.ByteTimeout)
			if err != nil {
				return nil, err
			}

			switch status {
			case blockAccepted:
				e.emit(EventBlockAccepted, 0, "header")
				return blk.payload, nil
			case blockRepeated, blockSyncLost:
				e.cancelTransfer()
				return nil, NewError(ErrSyncLost, fmt.Sprintf("got block %d, expected header block 0", blk.seq))
			default:
				errCount++
				e.emit(EventBlockRejected, blk.seq, status.String())
				if errCount >= e.config.MaxErrors {
					e.cancelTransfer()
					return nil, NewError(ErrMaxErrors, "header block not received")
				}
				if err := e.io.writeByte(NAK); err != nil {
					return nil, err
				}
			}
		}

		header, err = e.nextBlockStart(&errCount)
		if err != nil {
			return nil, err
		}
	}
}

// receiveBlocks runs the data phase from an already-read header byte,
// acknowledging each block until EOT.
func (e *Engine) receiveBlocks(dst io.Writer, header byte, expected byte, sum Checksum) (int64, error) {
	var total int64
	errCount := 0

	for {
		switch header {
		case EOT:
			e.emit(EventEOT, expected, "")
			if err := e.io.writeByte(ACK); err != nil {
				return total, err
			}
			e.logger.Info("transfer complete, %d bytes", total)
			return total, nil
		case CAN:
			return total, NewError(ErrPeerCancelled, "sender cancelled transfer")
		}

		blk, status, err := decodeBlock(e.io, header, expected, sum, e.config.ByteTimeout)
		if err != nil {
			return total, err
		}

		switch status {
		case blockAccepted:
			if _, err := dst.Write(blk.payload); err != nil {
				e.cancelTransfer()
				return total, wrapError(ErrIO, "write sink", err)
			}
			total += int64(len(blk.payload))
			e.progress.Add(int64(len(blk.payload)))
			e.logger.Debug("%s", FormatBlockLog("received", header, blk.seq, blk.payload))
			e.emit(EventBlockAccepted, blk.seq, "")
			expected++
			errCount = 0
			if err := e.io.writeByte(ACK); err != nil {
				return total, err
			}
		case blockRepeated:
			e.logger.Debug("block %d repeated, re-acknowledging", blk.seq)
			e.emit(EventBlockRepeated, blk.seq, "")
			if err := e.io.writeByte(ACK); err != nil {
				return total, err
			}
		case blockSyncLost:
			e.cancelTransfer()
			return total, NewError(ErrSyncLost, fmt.Sprintf("got block %d, expected %d", blk.seq, expected))
		default:
			errCount++
			e.logger.Debug("block %d %s (%d/%d)", expected, status, errCount, e.config.MaxErrors)
			e.emit(EventBlockRejected, expected, status.String())
			if errCount >= e.config.MaxErrors {
				e.cancelTransfer()
				return total, NewError(ErrMaxErrors, fmt.Sprintf("block %d not received", expected))
			}
			if err := e.io.writeByte(NAK); err != nil {
				return total, err
			}
		}

		header, err = e.nextBlockStart(&errCount)
		if err != nil {
			return total, err
		}
	}
}

// nextBlockStart waits for the next SOH, STX, EOT or CAN, skipping line
// noise. Each expired wait costs one error and is answered with NAK.
func (e *Engine) nextBlockStart(errCount *int) (byte, error) {
	for {
		dl := startDeadline(e.config.BlockTimeout)
		for {
			b, err := e.io.readByte(dl)
			if err != nil {
				if IsTimeout(err) {
					break
				}
				return 0, err
			}
			switch b {
			case SOH, STX, EOT, CAN:
				return b, nil
			}
		}

		*errCount++
		e.emit(EventTimeout, 0, "waiting for block")
		if *errCount >= e.config.MaxErrors {
			e.cancelTransfer()
			return 0, NewError(ErrMaxErrors, "timed out waiting for sender")
		}
		if err := e.io.writeByte(NAK); err != nil {
			return 0, err
		}
	}
}

// limitWriter writes at most n bytes to w and silently drops the rest.
type limitWriter struct {
	w io.Writer
	n int64
}

func (l *limitWriter) Write(p []byte) (int, error) {
	if l.n <= 0 {
		return len(p), nil
	}
	q := p
	if int64(len(q)) > l.n {
		q = q[:l.n]
	}
	n, err := l.w.Write(q)
	l.n -= int64(n)
	if err != nil {
		return n, err
	}
	return len(p), nil
}
