// Package kb loads the knowledge-base catalog of known anomaly/problem
// relationships and normalizes it into two lookup tables.
//
// The catalog has four logical columns - anomaly id, anomaly text,
// problem id, problem text - supplied either as ';'-delimited CSV or as
// an XLSX spreadsheet. Both encodings normalize to the same in-memory
// shape.
package kb

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/good-yellow-bee/corrlog/internal/generalize"
	"github.com/good-yellow-bee/corrlog/internal/models"
)

// Common errors returned by the loader.
var (
	ErrNotFound          = errors.New("knowledge base file not found")
	ErrUnsupportedFormat = errors.New("unsupported knowledge base format")
)

// BaseFilename is the fixed base name the catalog artifact is discovered by.
const BaseFilename = "anomalies_problems"

// SupportedExtensions lists the accepted catalog file extensions.
var SupportedExtensions = []string{".csv", ".xlsx"}

// SupportedExtension reports whether ext (including the dot) is accepted.
func SupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// row is one raw catalog row before table splitting.
type row struct {
	anomalyID   int
	anomalyText string
	problemID   int
	problemText string
}

// Load reads the catalog at path and returns the anomaly and problem
// tables. The anomaly table retains every source row: an anomaly id may
// legitimately map to several problem ids. The problem table retains
// only distinct full rows.
func Load(path string) (*models.AnomalyTable, *models.ProblemTable, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, nil, fmt.Errorf("stat knowledge base %s: %w", path, err)
	}

	var rows []row
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		rows, err = loadCSV(path)
	case ".xlsx":
		rows, err = loadXLSX(path)
	default:
		return nil, nil, fmt.Errorf("%w: %s (supported: %s)",
			ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions, ", "))
	}
	if err != nil {
		return nil, nil, err
	}

	anomalies := &models.AnomalyTable{Entries: make([]models.AnomalyEntry, 0, len(rows))}
	problems := &models.ProblemTable{}

	type problemKey struct {
		id   int
		text string
	}
	seen := make(map[problemKey]bool)

	for _, r := range rows {
		anomalies.Entries = append(anomalies.Entries, models.AnomalyEntry{
			AnomalyID:   r.anomalyID,
			ProblemID:   r.problemID,
			Generalized: generalize.Message(r.anomalyText),
			Text:        r.anomalyText,
		})

		key := problemKey{id: r.problemID, text: r.problemText}
		if !seen[key] {
			seen[key] = true
			problems.Entries = append(problems.Entries, models.ProblemEntry{
				ProblemID:   r.problemID,
				Generalized: generalize.Message(r.problemText),
				Text:        r.problemText,
			})
		}
	}

	return anomalies, problems, nil
}

// loadCSV reads a ';'-delimited catalog with a header row.
func loadCSV(path string) ([]row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1 // validated per record below

	var rows []row
	lineNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read knowledge base %s: %w", path, err)
		}
		lineNum++
		if lineNum == 1 {
			// Header row.
			continue
		}

		r, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("knowledge base %s row %d: %w", path, lineNum, err)
		}
		rows = append(rows, r)
	}

	return rows, nil
}

// loadXLSX reads the first sheet of an XLSX catalog with a header row.
func loadXLSX(path string) ([]row, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base %s: %w", path, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("knowledge base %s: no sheets", path)
	}

	cells, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read knowledge base %s: %w", path, err)
	}

	var rows []row
	for i, record := range cells {
		if i == 0 {
			// Header row.
			continue
		}
		// GetRows trims trailing empty cells; skip fully blank rows.
		if len(record) == 0 {
			continue
		}

		r, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("knowledge base %s row %d: %w", path, i+1, err)
		}
		rows = append(rows, r)
	}

	return rows, nil
}

// parseRow converts one raw record into a typed row.
func parseRow(record []string) (row, error) {
	if len(record) < 4 {
		return row{}, fmt.Errorf("expected 4 columns, got %d", len(record))
	}

	anomalyID, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil {
		return row{}, fmt.Errorf("anomaly_id %q: %w", record[0], err)
	}
	problemID, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil {
		return row{}, fmt.Errorf("problem_id %q: %w", record[2], err)
	}

	return row{
		anomalyID:   anomalyID,
		anomalyText: strings.TrimSpace(record[1]),
		problemID:   problemID,
		problemText: strings.TrimSpace(record[3]),
	}, nil
}
