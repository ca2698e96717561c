package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionID string

// NewSessionID generates a new unique SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// LogRecord is one logical log entry, possibly spanning several physical lines.
type LogRecord struct {
	Content    string
	SourceFile string
	// StartLine and EndLine are 1-based physical line numbers, both inclusive.
	StartLine int
	EndLine   int

	// TimestampText is the raw timestamp found in the first line, and Time its parsed form.
	TimestampText string
	Time          *time.Time
}

// FirstLine returns the record content up to the first newline.
func (r *LogRecord) FirstLine() string {
	for i := 0; i < len(r.Content); i++ {
		if r.Content[i] == '\n' {
			return r.Content[:i]
		}
	}
	return r.Content
}

type MatchPosition struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// Hit is a matching record as reported to the client.
type Hit struct {
	SourceFile     string          `json:"source_file"`
	LineOffset     int             `json:"line_offset"`
	EndLine        int             `json:"end_line"`
	Timestamp      string          `json:"timestamp,omitempty"`
	Content        string          `json:"content,omitempty"`
	MatchPositions []MatchPosition `json:"match_positions,omitempty"`
}

type FailedFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// SearchResult is the payload encoded into the search_logs text content block.
// It carries no wall-clock fields, so identical searches encode identically.
type SearchResult struct {
	Hits         []Hit        `json:"hits"`
	Total        int          `json:"total"`
	Page         int          `json:"page"`
	PageSize     int          `json:"page_size"`
	TotalPages   int          `json:"total_pages"`
	FilesScanned int          `json:"files_scanned"`
	FailedFiles  []FailedFile `json:"failed_files,omitempty"`
	Truncated    bool         `json:"truncated,omitempty"`
}
