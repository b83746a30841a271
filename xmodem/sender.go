package xmodem

import (
	"context"
	"fmt"
	"io"
)

// Send transmits src as one XMODEM transfer: it waits for the receiver's
// handshake, sends src in blocks of blockSize (BlockSize or BlockSize1K)
// numbered from 1, then ends with EOT. It returns the number of source
// bytes sent.
//
// Cancelling ctx is observed before each data block; the peer is sent
// CAN CAN and the returned error satisfies IsCancelled.
func (e *Engine) Send(ctx context.Context, src io.Reader, blockSize int) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	sum, err := e.awaitHandshake()
	if err != nil {
		return 0, e.fail(err, "wait for receiver")
	}

	n, err := e.sendDataBlocks(ctx, src, 1, blockSize, sum)
	if err != nil {
		return n, e.fail(err, "send data")
	}

	if err := e.sendEOT(); err != nil {
		return n, e.fail(err, "send EOT")
	}
	return n, nil
}

// SendBatch transmits one YMODEM file: block 0 carrying name and size,
// then the data in 1K blocks and EOT.
func (e *Engine) SendBatch(ctx context.Context, name string, size int64, src io.Reader) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	header, err := BuildBatchHeader(name, size)
	if err != nil {
		return 0, e.fail(err, "build header")
	}

	sum, err := e.awaitHandshake()
	if err != nil {
		return 0, e.fail(err, "wait for receiver")
	}
	if err := e.sendBlock(0, header, BlockSize, sum); err != nil {
		return 0, e.fail(err, "send header")
	}

	// the receiver asks again before the data blocks; the mode stays
	// what the first handshake chose
	if _, err := e.awaitHandshake(); err != nil {
		return 0, e.fail(err, "wait for receiver")
	}

	n, err := e.sendDataBlocks(ctx, src, 1, BlockSize1K, sum)
	if err != nil {
		return n, e.fail(err, "send data")
	}

	if err := e.sendEOT(); err != nil {
		return n, e.fail(err, "send EOT")
	}
	return n, nil
}

// SendBatchEnd sends the empty block 0 that ends a YMODEM batch.
func (e *Engine) SendBatchEnd() error {
	sum, err := e.awaitHandshake()
	if err != nil {
		return e.fail(err, "wait for receiver")
	}
	if err := e.sendBlock(0, make([]byte, BlockSize), BlockSize, sum); err != nil {
		return e.fail(err, "send batch end")
	}
	return nil
}

// awaitHandshake waits for the receiver's 'C' or NAK and returns the
// checksum it asked for. Deadline expiry is not fatal: receivers repeat
// their handshake byte, so the sender keeps waiting.
func (e *Engine) awaitHandshake() (Checksum, error) {
	for {
		b, err := e.io.readByte(startDeadline(e.config.HandshakeTimeout))
		if err != nil {
			if IsTimeout(err) {
				e.logger.Debug("still waiting for receiver")
				e.emit(EventTimeout, 0, "waiting for receiver")
				continue
			}
			return nil, err
		}

		switch b {
		case WANTCRC, NAK:
			sum := NewChecksum(Checksum8)
			if b == WANTCRC {
				sum = NewChecksum(CRC16)
			}
			e.logger.Info("receiver requested %s", sum.Mode())
			e.emit(EventHandshake, 0, sum.Mode().String())
			return sum, nil
		case CAN:
			return nil, NewError(ErrPeerCancelled, "receiver cancelled before start")
		default:
			e.logger.Debug("ignoring %s while waiting for receiver", ControlName(b))
		}
	}
}

// sendDataBlocks sends src in blocks of blockSize starting at seq; the
// last short chunk is padded with CPMEOF.
func (e *Engine) sendDataBlocks(ctx context.Context, src io.Reader, seq byte, blockSize int, sum Checksum) (int64, error) {
	buf := make([]byte, blockSize)
	var total int64

	for {
		select {
		case <-ctx.Done():
			e.emit(EventCancelled, seq, "send cancelled")
			e.cancelTransfer()
			return total, wrapError(ErrCancelled, fmt.Sprintf("send interrupted before block %d", seq), ctx.Err())
		default:
		}

		n, err := io.ReadFull(src, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			e.cancelTransfer()
			return total, wrapError(ErrIO, "read source", err)
		}
		if n == 0 {
			return total, nil
		}

		if err := e.sendBlock(seq, buf[:n], blockSize, sum); err != nil {
			return total, err
		}
		total += int64(n)
		e.progress.Add(int64(n))
		seq++

		if n < blockSize {
			return total, nil
		}
	}
}

// sendBlock writes one block and waits for its ACK, resending on NAK or
// timeout until the error budget runs out.
func (e *Engine) sendBlock(seq byte, data []byte, blockSize int, sum Checksum) error {
	frame := encodeBlock(seq, data, blockSize, sum)

	errors := 0
	for errors < e.config.MaxErrors {
		if err := e.io.write(frame); err != nil {
			return err
		}
		e.logger.Debug("%s", FormatBlockLog("sent", frame[0], seq, data))
		e.emit(EventBlockSent, seq, "")

		b, err := e.io.readByte(startDeadline(e.config.BlockTimeout))
		if err != nil {
			if !IsTimeout(err) {
				return err
			}
			errors++
			e.logger.Debug("block %d: no response (%d/%d)", seq, errors, e.config.MaxErrors)
			e.emit(EventTimeout, seq, "no response to block")
			continue
		}

		switch b {
		case ACK:
			e.emit(EventBlockAcked, seq, "")
			return nil
		case NAK:
			errors++
			e.logger.Debug("block %d: NAK (%d/%d)", seq, errors, e.config.MaxErrors)
			e.emit(EventBlockNaked, seq, "")
		case CAN:
			return NewError(ErrPeerCancelled, fmt.Sprintf("receiver cancelled at block %d", seq))
		default:
			e.cancelTransfer()
			return NewError(ErrProtocol, fmt.Sprintf("unexpected %s in response to block %d", ControlName(b), seq))
		}
	}

	e.cancelTransfer()
	return NewError(ErrMaxErrors, fmt.Sprintf("block %d not acknowledged after %d attempts", seq, errors))
}

// sendEOT ends the transmission, resending EOT until it is ACKed.
func (e *Engine) sendEOT() error {
	errors := 0
	for errors < e.config.MaxErrors {
		if err := e.io.writeByte(EOT); err != nil {
			return err
		}
		e.emit(EventEOT, 0, "")

		b, err := e.io.readByte(startDeadline(e.config.BlockTimeout))
		if err != nil {
			if !IsTimeout(err) {
				return err
			}
			errors++
			e.emit(EventTimeout, 0, "no response to EOT")
			continue
		}

		switch b {
		case ACK:
			e.logger.Info("EOT acknowledged")
			return nil
		case CAN:
			return NewError(ErrPeerCancelled, "receiver cancelled at EOT")
		default:
			errors++
			e.logger.Debug("EOT answered with %s (%d/%d)", ControlName(b), errors, e.config.MaxErrors)
		}
	}

	e.cancelTransfer()
	return NewError(ErrMaxErrors, "EOT not acknowledged")
}
