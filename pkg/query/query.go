package query

import (
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/model"
	"github.com/m-mizutani/logseek/pkg/parser"
)

// TimeFilter keeps records whose timestamp lies within [after, before].
// Records without a parsed timestamp always pass.
type TimeFilter struct {
	after  *time.Time
	before *time.Time
}

func NewTimeFilter(f *model.TimeFilter) (*TimeFilter, error) {
	tf := &TimeFilter{}
	if f == nil {
		return tf, nil
	}

	parse := func(name, value string) (*time.Time, error) {
		if value == "" {
			return nil, nil
		}
		t, err := parser.ParseTime(value)
		if err != nil {
			return nil, goerr.Wrap(model.ErrInvalidRequest, fmt.Sprintf("malformed time_filter.%s %q", name, value),
				goerr.V(name, value))
		}
		return &t, nil
	}

	var err error
	if tf.after, err = parse("after", f.After); err != nil {
		return nil, err
	}
	if tf.before, err = parse("before", f.Before); err != nil {
		return nil, err
	}
	if tf.after != nil && tf.before != nil && tf.after.After(*tf.before) {
		return nil, goerr.Wrap(model.ErrInvalidRequest, "time_filter.after is later than time_filter.before",
			goerr.V("after", f.After),
			goerr.V("before", f.Before))
	}
	return tf, nil
}

func (f *TimeFilter) Allow(t *time.Time) bool {
	if t == nil {
		return true
	}
	if f.after != nil && t.Before(*f.after) {
		return false
	}
	if f.before != nil && t.After(*f.before) {
		return false
	}
	return true
}

// Query applies the time filter first and then the keyword logic.
type Query struct {
	time    *TimeFilter
	matcher *Matcher
}

func New(q model.LogicalQuery, tf *model.TimeFilter, caseSensitive bool) (*Query, error) {
	timeFilter, err := NewTimeFilter(tf)
	if err != nil {
		return nil, err
	}
	matcher, err := NewMatcher(q, caseSensitive)
	if err != nil {
		return nil, err
	}
	return &Query{time: timeFilter, matcher: matcher}, nil
}

func (q *Query) Match(rec *model.LogRecord) bool {
	if !q.time.Allow(rec.Time) {
		return false
	}
	return q.matcher.Match(rec.Content)
}

func (q *Query) Positions(content string) []model.MatchPosition {
	return q.matcher.Positions(content)
}
