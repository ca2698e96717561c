package parser

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/model"
)

// CompileStartPattern anchors pattern to the start of a line. An empty
// pattern returns nil, meaning every line starts a record.
func CompileStartPattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return nil, goerr.Wrap(model.ErrInvalidRequest, "invalid log_start_pattern: "+err.Error(),
			goerr.V("pattern", pattern),
			goerr.V("error", err.Error()))
	}
	return re, nil
}

type state int

const (
	awaitingFirstLine state = iota
	accumulating
)

// Assembler groups physical lines into records. A line matching the start
// pattern opens a new record; any other line continues the open one. Lines
// before the first start line form a record of their own.
type Assembler struct {
	file  string
	start *regexp.Regexp
	ts    *TimestampExtractor

	state     state
	lines     []string
	startLine int
	endLine   int
}

func NewAssembler(file string, start *regexp.Regexp, ts *TimestampExtractor) *Assembler {
	return &Assembler{
		file:  file,
		start: start,
		ts:    ts,
		state: awaitingFirstLine,
	}
}

// Push feeds one line and returns the record it completed, if any.
func (a *Assembler) Push(lineNo int, line string) *model.LogRecord {
	var done *model.LogRecord

	switch a.state {
	case awaitingFirstLine:
		a.open(lineNo, line)

	case accumulating:
		if a.start == nil || a.start.MatchString(line) {
			done = a.Flush()
			a.open(lineNo, line)
		} else {
			a.lines = append(a.lines, line)
			a.endLine = lineNo
		}
	}

	return done
}

// Flush closes the open record and returns it, or nil when none is open.
func (a *Assembler) Flush() *model.LogRecord {
	if a.state != accumulating {
		return nil
	}

	rec := &model.LogRecord{
		Content:    strings.Join(a.lines, "\n"),
		SourceFile: a.file,
		StartLine:  a.startLine,
		EndLine:    a.endLine,
	}
	if a.ts != nil {
		rec.TimestampText, rec.Time = a.ts.Extract(rec.FirstLine())
	}

	a.lines = nil
	a.state = awaitingFirstLine
	return rec
}

func (a *Assembler) open(lineNo int, line string) {
	a.lines = append(a.lines[:0], line)
	a.startLine = lineNo
	a.endLine = lineNo
	a.state = accumulating
}
