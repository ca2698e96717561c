package model

import (
	"bytes"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/samber/lo"
)

// ErrInvalidRequest is the root of every caller-side validation failure.
// The tool layer reports errors wrapping it as recoverable tool results.
var ErrInvalidRequest = goerr.New("invalid request")

// Keyword is a single search term. In JSON it is either a plain string or
// an object carrying matching options.
type Keyword struct {
	Query         string `json:"query"`
	Regex         bool   `json:"regex,omitempty"`
	CaseSensitive *bool  `json:"case_sensitive,omitempty"`
	WholeWord     bool   `json:"whole_word,omitempty"`
}

// UnmarshalJSON accepts both "text" and {"query": "text", ...}.
func (k *Keyword) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return goerr.Wrap(err, "failed to decode keyword string")
		}
		*k = Keyword{Query: s}
		return nil
	}

	type raw Keyword
	var v raw
	if err := json.Unmarshal(data, &v); err != nil {
		return goerr.Wrap(err, "failed to decode keyword object")
	}
	*k = Keyword(v)
	return nil
}

// Keywords builds plain keywords from strings.
func Keywords(queries ...string) []Keyword {
	out := make([]Keyword, len(queries))
	for i, q := range queries {
		out[i] = Keyword{Query: q}
	}
	return out
}

// LogicalQuery is the must/any/none keyword filter.
type LogicalQuery struct {
	Must []Keyword `json:"must,omitempty"`
	Any  []Keyword `json:"any,omitempty"`
	None []Keyword `json:"none,omitempty"`
}

// ScanConfig selects the files to search. Empty fields fall back to server defaults.
type ScanConfig struct {
	RootPath     string   `json:"root_path,omitempty"`
	IncludeGlobs []string `json:"include_globs,omitempty"`
	ExcludeGlobs []string `json:"exclude_globs,omitempty"`
}

// TimeFilter bounds records by the timestamp found in their first line.
// Both bounds are inclusive.
type TimeFilter struct {
	After          string `json:"after,omitempty"`
	Before         string `json:"before,omitempty"`
	TimestampRegex string `json:"timestamp_regex,omitempty"`
}

// UnmarshalJSON also accepts start_time/startTime for after and
// end_time/endTime for before.
func (f *TimeFilter) UnmarshalJSON(data []byte) error {
	var v struct {
		After          string `json:"after"`
		Before         string `json:"before"`
		StartTime      string `json:"start_time"`
		EndTime        string `json:"end_time"`
		StartTimeCamel string `json:"startTime"`
		EndTimeCamel   string `json:"endTime"`
		TimestampRegex string `json:"timestamp_regex"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return goerr.Wrap(err, "failed to decode time filter")
	}

	f.After = lo.CoalesceOrEmpty(v.After, v.StartTime, v.StartTimeCamel)
	f.Before = lo.CoalesceOrEmpty(v.Before, v.EndTime, v.EndTimeCamel)
	f.TimestampRegex = v.TimestampRegex
	return nil
}

// SearchRequest is the argument object of the search_logs tool.
type SearchRequest struct {
	LogicalQuery    LogicalQuery `json:"logical_query"`
	ScanConfig      ScanConfig   `json:"scan_config"`
	TimeFilter      *TimeFilter  `json:"time_filter,omitempty"`
	LogStartPattern string       `json:"log_start_pattern,omitempty"`
	CaseSensitive   *bool        `json:"case_sensitive,omitempty"`
	IncludeContent  *bool        `json:"include_content,omitempty"`
	Page            *int         `json:"page,omitempty"`
	PageSize        *int         `json:"page_size,omitempty"`
	MaxHits         *int         `json:"max_hits,omitempty"`
	TimeoutMS       *int         `json:"timeout_ms,omitempty"`
	HardTimeoutMS   *int         `json:"hard_timeout_ms,omitempty"`
}

// WantContent reports whether hits should carry record text. Defaults to true.
func (r *SearchRequest) WantContent() bool {
	return r.IncludeContent == nil || *r.IncludeContent
}

// Timeout returns the requested scan deadline in milliseconds, or nil when unset.
func (r *SearchRequest) Timeout() *int {
	if r.TimeoutMS != nil {
		return r.TimeoutMS
	}
	return r.HardTimeoutMS
}

// ListFilesRequest is the argument object of the list_log_files tool.
type ListFilesRequest struct {
	ScanConfig
}

// FileList is the list_log_files result.
type FileList struct {
	Files       []string     `json:"files"`
	Total       int          `json:"total"`
	FailedFiles []FailedFile `json:"failed_files,omitempty"`
}
