package jsonrpc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// Reader splits an input stream into newline-delimited frames of any length.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next non-blank frame with line endings stripped.
// It returns io.EOF once the stream is exhausted.
func (r *Reader) Next() ([]byte, error) {
	for {
		line, err := r.r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, goerr.Wrap(err, "failed to read frame")
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(bytes.TrimSpace(line)) > 0 {
			return line, nil
		}
		if err == io.EOF {
			return nil, io.EOF
		}
	}
}

// Writer emits one JSON object per line and flushes after each frame.
type Writer struct {
	mu  sync.Mutex
	buf *bufio.Writer
	enc *json.Encoder
}

func NewWriter(w io.Writer) *Writer {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &Writer{buf: buf, enc: enc}
}

func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Encode terminates the frame with '\n'
	if err := w.enc.Encode(v); err != nil {
		return goerr.Wrap(err, "failed to encode frame")
	}
	if err := w.buf.Flush(); err != nil {
		return goerr.Wrap(err, "failed to flush frame")
	}
	return nil
}
