package xmodem

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"
)

// XModem sends and receives single files with XMODEM (128-byte blocks)
// or XMODEM-1K (1024-byte blocks).
type XModem struct {
	engine    *Engine
	blockSize int
}

// NewXModem creates an XMODEM session with 128-byte blocks.
func NewXModem(reader ReaderWithTimeout, writer io.Writer, opts ...Option) *XModem {
	return &XModem{
		engine:    NewEngine(reader, writer, opts...),
		blockSize: BlockSize,
	}
}

// NewXModem1K creates an XMODEM-1K session with 1024-byte blocks.
func NewXModem1K(reader ReaderWithTimeout, writer io.Writer, opts ...Option) *XModem {
	return &XModem{
		engine:    NewEngine(reader, writer, opts...),
		blockSize: BlockSize1K,
	}
}

// Engine returns the underlying transfer engine.
func (x *XModem) Engine() *Engine {
	return x.engine
}

// Send sends the file at path.
func (x *XModem) Send(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return wrapError(ErrIO, "open "+path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return wrapError(ErrIO, "stat "+path, err)
	}

	return x.send(ctx, filepath.Base(path), info.Size(), file)
}

// SendFrom sends everything read from src.
func (x *XModem) SendFrom(ctx context.Context, src io.Reader) error {
	return x.send(ctx, "", 0, src)
}

func (x *XModem) send(ctx context.Context, name string, size int64, src io.Reader) error {
	e := x.engine
	e.startFile(name, size)
	if _, err := e.Send(ctx, src, x.blockSize); err != nil {
		return err
	}
	e.completeFile()
	return nil
}

// Receive receives one file into path, creating or truncating it. On
// failure the partial file is left in place.
func (x *XModem) Receive(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return wrapError(ErrIO, "create "+path, err)
	}
	defer file.Close()

	return x.receive(filepath.Base(path), file)
}

// ReceiveTo receives one file into dst.
func (x *XModem) ReceiveTo(dst io.Writer) error {
	return x.receive("", dst)
}

func (x *XModem) receive(name string, dst io.Writer) error {
	e := x.engine
	e.startFile(name, 0)
	if _, err := e.Receive(dst); err != nil {
		return err
	}
	e.completeFile()
	return nil
}

// YModem sends and receives files with YMODEM batch transfers: every
// file is announced by a block 0 header carrying its name and size.
type YModem struct {
	engine *Engine
}

// NewYModem creates a YMODEM session.
func NewYModem(reader ReaderWithTimeout, writer io.Writer, opts ...Option) *YModem {
	return &YModem{
		engine: NewEngine(reader, writer, opts...),
	}
}

// Engine returns the underlying transfer engine.
func (y *YModem) Engine() *Engine {
	return y.engine
}

// Send sends the file at path as one header + data exchange. The base
// name must pass ValidFilename; nothing is written to the peer otherwise.
func (y *YModem) Send(ctx context.Context, path string) error {
	name := filepath.Base(path)
	if !ValidFilename(name) {
		return y.engine.fail(NewError(ErrInvalidFilename, "filename must be in DOS style (no spaces, max 8.3): "+name), "send file")
	}

	file, err := os.Open(path)
	if err != nil {
		return wrapError(ErrIO, "open "+path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return wrapError(ErrIO, "stat "+path, err)
	}

	return y.SendFrom(ctx, name, info.Size(), file)
}

// SendFrom sends size bytes from src under name.
func (y *YModem) SendFrom(ctx context.Context, name string, size int64, src io.Reader) error {
	if !ValidFilename(name) {
		return y.engine.fail(NewError(ErrInvalidFilename, "filename must be in DOS style (no spaces, max 8.3): "+name), "send file")
	}

	e := y.engine
	e.startFile(name, size)
	if _, err := e.SendBatch(ctx, name, size, src); err != nil {
		return err
	}
	e.completeFile()
	return nil
}

// BatchSend sends each file in turn, then the empty header that ends
// the batch.
func (y *YModem) BatchSend(ctx context.Context, paths ...string) error {
	for _, path := range paths {
		if err := y.Send(ctx, path); err != nil {
			return err
		}
	}
	return y.engine.SendBatchEnd()
}

// Receive receives one file into path, ignoring the name in its header.
func (y *YModem) Receive(path string) error {
	h, _, err := y.receive(func(BatchHeader) string {
		return path
	})
	if err != nil {
		return err
	}
	if h == nil {
		return NewError(ErrProtocol, "batch ended before a file was sent")
	}
	return nil
}

// ReceiveFile receives one file into dir under the base name from its
// header and returns the created path, or the header name when an
// OnFileCreate callback supplied the sink. It returns "" when the batch
// terminator arrives instead of a file.
func (y *YModem) ReceiveFile(dir string) (string, error) {
	h, path, err := y.receive(func(h BatchHeader) string {
		return filepath.Join(dir, filepath.Base(h.Name))
	})
	if err != nil || h == nil {
		return path, err
	}
	if path == "" {
		path = h.Name
	}
	return path, nil
}

// ReceiveFiles receives files into dir until the batch terminator and
// returns the paths received.
func (y *YModem) ReceiveFiles(dir string) ([]string, error) {
	var paths []string
	for {
		path, err := y.ReceiveFile(dir)
		if err != nil {
			return paths, err
		}
		if path == "" {
			return paths, nil
		}
		paths = append(paths, path)
	}
}

// receive runs one batch entry and returns the header (nil at the batch
// terminator) and the file it created. pathFor maps the header to the
// output path unless an OnFileCreate callback supplies the sink.
func (y *YModem) receive(pathFor func(BatchHeader) string) (*BatchHeader, string, error) {
	e := y.engine
	var created string

	h, _, err := e.ReceiveBatch(func(h BatchHeader) (io.WriteCloser, error) {
		e.startFile(h.Name, h.Size)
		if e.callbacks.OnFileCreate != nil {
			return e.callbacks.OnFileCreate(h.Name, h.Size)
		}
		path := pathFor(h)
		file, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		created = path
		return file, nil
	})
	if err != nil || h == nil {
		return h, created, err
	}

	if created != "" && !h.ModTime.IsZero() {
		if err := os.Chtimes(created, time.Now(), h.ModTime); err != nil {
			e.logger.Error("set mtime on %s: %v", created, err)
		}
	}
	e.completeFile()
	return h, created, nil
}

func (e *Engine) startFile(name string, size int64) {
	e.progress.Start(name, size)
	e.callbacks.OnFileStart(name, size)
}

func (e *Engine) completeFile() {
	name, _, _, _, _ := e.progress.GetStats()
	n, duration := e.progress.Complete()
	e.callbacks.OnFileComplete(name, n, duration)
}
