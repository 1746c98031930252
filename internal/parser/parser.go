// Package parser turns raw operational log files into structured,
// time-ordered log records.
//
// Expected line grammar:
//
//	2024-01-15T10:30:45 ERROR Database: Connection timeout
//	^timestamp          ^level ^category ^message
package parser

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/good-yellow-bee/corrlog/internal/generalize"
	"github.com/good-yellow-bee/corrlog/internal/models"
)

// TimeLayout is the ISO 8601 timestamp layout used by the log grammar.
const TimeLayout = "2006-01-02T15:04:05"

// lineRe captures timestamp, level, category and message.
var lineRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})\s+(\w+)\s+([^:]+):\s+(.*)$`)

// logExtensions are the file extensions scanned by ParseDirectory.
var logExtensions = map[string]bool{
	".txt": true,
	".log": true,
}

// ParseLine parses a single log line.
//
// On a full grammar match it returns the four captured groups. On no
// match it returns an empty timestamp, level and category "UNKNOWN" and
// the entire line as the message. A non-matching line is graceful
// degradation, not an error.
func ParseLine(line string) (timestamp, level, category, message string) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return "", string(models.LevelUnknown), string(models.LevelUnknown), line
	}
	return m[1], m[2], m[3], m[4]
}

// ParseDirectory scans every log file directly in dir (non-recursive)
// and returns the surviving WARNING/ERROR records sorted ascending by
// timestamp; ties keep file/line order. Each record carries its
// generalized message.
//
// The second return value lists per-file warnings for files that could
// not be read; those files are skipped and the rest of the directory
// still processes. An empty record slice with a nil error means there
// was nothing to analyze, a distinct outcome from failure.
func ParseDirectory(dir string) ([]models.LogRecord, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read log directory %s: %w", dir, err)
	}

	var records []models.LogRecord
	var warnings []string

	for _, entry := range entries {
		if entry.IsDir() || !logExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		fileRecords, err := parseFile(filepath.Join(dir, entry.Name()), entry.Name())
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", entry.Name(), err))
			continue
		}
		records = append(records, fileRecords...)
	}

	// Stable sort keeps file/line order for identical timestamps.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records, warnings, nil
}

// parseFile reads one log file and returns its WARNING/ERROR records.
func parseFile(path, name string) ([]models.LogRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []models.LogRecord

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// INFO is never retained; skip it before parsing.
		if line == "" || strings.Contains(line, " INFO ") {
			continue
		}

		tsStr, levelStr, category, message := ParseLine(line)

		level := models.ParseLogLevel(levelStr)
		if !level.Retained() {
			continue
		}

		// Records whose timestamp fails to parse are dropped.
		ts, err := time.Parse(TimeLayout, tsStr)
		if err != nil {
			continue
		}

		records = append(records, models.LogRecord{
			Timestamp:          ts,
			Level:              level,
			Category:           category,
			Message:            message,
			GeneralizedMessage: generalize.Message(message),
			FileName:           name,
			LineNumber:         lineNum,
			Raw:                line,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
