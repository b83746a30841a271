package xmodem

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// BatchHeader is the file metadata carried in YMODEM block 0.
type BatchHeader struct {
	Name string
	Size int64

	// ModTime and Mode are only set when the sender included them
	// (lrzsz does, after the size).
	ModTime time.Time
	Mode    uint32
}

// filenamePattern is the DOS-style name check applied before sending.
var filenamePattern = regexp.MustCompile(`^\w{1,50}\.\w{1,3}$`)

// ValidFilename reports whether name passes the DOS 8.3-style check
// required for YMODEM headers.
func ValidFilename(name string) bool {
	return filenamePattern.MatchString(name)
}

// BuildBatchHeader builds a 128-byte block 0 payload:
// name NUL size SP NUL, zero filled.
func BuildBatchHeader(name string, size int64) ([]byte, error) {
	data := make([]byte, 0, BlockSize)
	data = append(data, name...)
	data = append(data, 0)
	data = append(data, strconv.FormatInt(size, 10)...)
	data = append(data, ' ', 0)
	if len(data) > BlockSize {
		return nil, NewError(ErrInvalidFilename, "header does not fit in block 0: "+name)
	}

	block := make([]byte, BlockSize)
	copy(block, data)
	return block, nil
}

// IsBatchEnd reports whether a block 0 payload is the empty header that
// terminates a batch.
func IsBatchEnd(payload []byte) bool {
	return len(payload) == 0 || payload[0] == 0
}

// ParseBatchHeader recovers the file metadata from a block 0 payload.
// The name runs up to the first NUL; the size, optional octal mtime and
// optional octal mode follow, space separated, up to the next NUL.
func ParseBatchHeader(payload []byte) (BatchHeader, error) {
	var h BatchHeader
	if IsBatchEnd(payload) {
		return h, NewError(ErrProtocol, "empty batch header")
	}

	nameEnd := slices.Index(payload, 0)
	if nameEnd == -1 {
		h.Name = string(payload)
		return h, nil
	}
	h.Name = string(payload[:nameEnd])

	rest := payload[nameEnd+1:]
	if end := slices.Index(rest, 0); end != -1 {
		rest = rest[:end]
	}

	fields := strings.Fields(string(rest))
	if len(fields) == 0 {
		return h, nil
	}

	size, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return h, wrapError(ErrProtocol, "bad size in batch header", err)
	}
	h.Size = size

	if len(fields) > 1 {
		if mtime, err := strconv.ParseInt(fields[1], 8, 64); err == nil && mtime > 0 {
			h.ModTime = time.Unix(mtime, 0)
		}
	}
	if len(fields) > 2 {
		if mode, err := strconv.ParseUint(fields[2], 8, 32); err == nil {
			h.Mode = uint32(mode)
		}
	}

	return h, nil
}
