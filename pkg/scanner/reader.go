package scanner

import (
	"bufio"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LineReader yields the physical lines of one file in a single pass.
type LineReader struct {
	closers []io.Closer
	r       *bufio.Reader
	lineNo  int
	done    bool
}

// Open opens path for line reading. A .gz suffix enables gzip decompression.
// A UTF-8 BOM is dropped and UTF-16 input with a BOM is converted to UTF-8.
func (s *Scanner) Open(path string) (*LineReader, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open file", goerr.V("path", path))
	}
	lr := &LineReader{closers: []io.Closer{f}}

	var src io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(bufio.NewReaderSize(f, s.bufferSize))
		if err != nil {
			_ = f.Close()
			return nil, goerr.Wrap(err, "failed to open gzip stream", goerr.V("path", path))
		}
		lr.closers = append(lr.closers, gz)
		src = gz
	}

	decoded := transform.NewReader(src, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	lr.r = bufio.NewReaderSize(decoded, s.bufferSize)
	return lr, nil
}

// Next returns the next line without its terminator and its 1-based number.
// It returns io.EOF after the last line.
func (lr *LineReader) Next() (string, int, error) {
	if lr.done {
		return "", lr.lineNo, io.EOF
	}

	line, err := lr.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", lr.lineNo, goerr.Wrap(err, "failed to read line", goerr.V("line", lr.lineNo+1))
	}
	if err == io.EOF {
		lr.done = true
		if line == "" {
			return "", lr.lineNo, io.EOF
		}
	}

	lr.lineNo++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, lr.lineNo, nil
}

func (lr *LineReader) Close() error {
	var first error
	for i := len(lr.closers) - 1; i >= 0; i-- {
		if err := lr.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		return goerr.Wrap(first, "failed to close file")
	}
	return nil
}
