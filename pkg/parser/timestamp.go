package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/model"
)

// DefaultTimestampRegex finds "YYYY-MM-DD HH:MM:SS" with optional fraction
// and zone, using either a space or T as the date/time separator.
const DefaultTimestampRegex = `\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:[.,]\d{1,9})?(?:Z|[+-]\d{2}:?\d{2})?`

var timeLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses a log or filter timestamp. Fractional seconds may use a
// dot or a comma. Values without a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if i := strings.LastIndexByte(v, ','); i > 0 && i+1 < len(v) && isDigit(v[i-1]) && isDigit(v[i+1]) {
		v = v[:i] + "." + v[i+1:]
	}

	for _, layout := range timeLayouts {
		// time.Parse accepts a fraction after the seconds even if the layout has none
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, goerr.New("unrecognized timestamp format", goerr.V("value", s))
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// TimestampExtractor locates the timestamp in a record's first line.
type TimestampExtractor struct {
	re *regexp.Regexp
}

// NewTimestampExtractor compiles pattern, or DefaultTimestampRegex when empty.
func NewTimestampExtractor(pattern string) (*TimestampExtractor, error) {
	if pattern == "" {
		pattern = DefaultTimestampRegex
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, goerr.Wrap(model.ErrInvalidRequest, "invalid timestamp regex: "+err.Error(),
			goerr.V("pattern", pattern),
			goerr.V("error", err.Error()))
	}
	return &TimestampExtractor{re: re}, nil
}

// Extract returns the matched text and, when it parses, the time.
// If the pattern has a capture group, the first group is used.
func (x *TimestampExtractor) Extract(line string) (string, *time.Time) {
	m := x.re.FindStringSubmatch(line)
	if m == nil {
		return "", nil
	}

	text := m[0]
	if len(m) > 1 && m[1] != "" {
		text = m[1]
	}

	t, err := ParseTime(text)
	if err != nil {
		return text, nil
	}
	return text, &t
}
