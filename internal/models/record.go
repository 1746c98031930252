// Package models contains the core data structures for corrlog.
package models

import (
	"strings"
	"time"
)

// LogLevel represents the severity level of a log record.
type LogLevel string

const (
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
	LevelUnknown LogLevel = "UNKNOWN"
)

// ParseLogLevel converts a string to a LogLevel.
// Only WARNING and ERROR are meaningful to the analyzer; everything
// else maps to LevelUnknown.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WARNING":
		return LevelWarning
	case "ERROR":
		return LevelError
	default:
		return LevelUnknown
	}
}

// Retained reports whether records of this level are kept for analysis.
func (l LogLevel) Retained() bool {
	return l == LevelWarning || l == LevelError
}

// LogRecord is a single WARNING/ERROR occurrence parsed from a log file.
// Records are created once during parsing and never mutated afterwards.
type LogRecord struct {
	// Timestamp is when the log event occurred. Records whose timestamp
	// cannot be parsed are dropped before they reach this type.
	Timestamp time.Time `json:"timestamp"`

	// Level is WARNING or ERROR.
	Level LogLevel `json:"level"`

	// Category is the message category preceding the colon in the line.
	Category string `json:"category"`

	// Message is the raw text after the category prefix.
	Message string `json:"message"`

	// GeneralizedMessage is the canonical form of Message used as the
	// lookup key for semantic matching.
	GeneralizedMessage string `json:"generalized_message"`

	// FileName is the base name of the originating log file.
	FileName string `json:"file_name"`

	// LineNumber is the 1-based line number in the source file.
	LineNumber int `json:"line_number"`

	// Raw is the verbatim source line.
	Raw string `json:"raw"`
}

// ClassifiedRecord is a LogRecord stamped with the ids assigned by the
// semantic matcher. A zero id means "not linked" and must never be
// treated as a real knowledge-base identity.
type ClassifiedRecord struct {
	LogRecord

	// FinalAnomalyID is the matched anomaly id for WARNING records
	// (0 when unmatched or for ERROR records).
	FinalAnomalyID int `json:"final_anomaly_id"`

	// FinalProblemID is the matched problem id (0 when unmatched).
	FinalProblemID int `json:"final_problem_id"`
}

// Linked reports whether the record was matched to a known problem.
func (r ClassifiedRecord) Linked() bool {
	return r.FinalProblemID != 0
}
