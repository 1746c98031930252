package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/good-yellow-bee/corrlog/internal/models"
)

// writeSheet renders a header plus rows into a single-sheet workbook and
// returns the serialized bytes.
func writeSheet(header []string, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// CorrelationsXLSX renders the primary correlation table as an XLSX
// workbook.
func CorrelationsXLSX(rows []models.CorrelationRow) ([]byte, error) {
	data := make([][]interface{}, len(rows))
	for i, r := range rows {
		data[i] = []interface{}{
			r.ScenarioID, r.AnomalyID, r.ProblemID,
			r.ProblemFileName, r.ProblemLineNumber, r.ProblemRaw, r.AnomalyRaw,
		}
	}
	return writeSheet(correlationHeader, data)
}

// PredictiveAlertsXLSX renders the predictive-alert table as an XLSX
// workbook.
func PredictiveAlertsXLSX(alerts []models.PredictiveAlert) ([]byte, error) {
	data := make([][]interface{}, len(alerts))
	for i, a := range alerts {
		data[i] = []interface{}{
			a.ScenarioID, a.ProblemID, a.ProblemText,
			a.TriggerTime, a.TriggerRaw,
			a.PredictedAnomalyID, a.PredictedText, a.Rationale,
		}
	}
	return writeSheet(predictiveHeader, data)
}

// NovelAnomaliesXLSX renders the novel-anomaly table as an XLSX workbook.
func NovelAnomaliesXLSX(alerts []models.NovelAnomalyAlert) ([]byte, error) {
	data := make([][]interface{}, len(alerts))
	for i, a := range alerts {
		data[i] = []interface{}{
			a.ScenarioID, a.AnomalyID, a.ProblemID,
			a.FileName, a.LineNumber, a.Raw,
		}
	}
	return writeSheet(novelHeader, data)
}
