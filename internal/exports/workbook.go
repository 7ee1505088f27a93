package exports

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	jobsSheet    = "Jobs"
)

// Workbook renders a report as an .xlsx file with a summary and a job sheet.
func Workbook(r Report) ([]byte, error) {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := file.NewSheet(jobsSheet); err != nil {
		return nil, err
	}

	writeSummary(file, r)
	if err := writeJobs(file, r); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(file *excelize.File, r Report) {
	s := r.Summary()
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(summarySheet, cell, value)
	}

	set("A1", "Period")
	set("B1", r.PeriodLabel())
	set("A2", "Jobs")
	set("B2", s.Total)
	set("A3", "Completed")
	set("B3", s.CompletedCount)
	set("A4", "Paid (R)")
	set("B4", float64(s.PaidCents)/100)
	set("A5", "Average rating")
	if s.RatedCount > 0 {
		set("B5", s.AverageRating)
	} else {
		set("B5", "-")
	}

	rowIdx := 7
	set("A"+strconv.Itoa(rowIdx), "Status")
	set("B"+strconv.Itoa(rowIdx), "Jobs")
	for _, status := range sortedKeys(s.ByStatus) {
		rowIdx++
		set("A"+strconv.Itoa(rowIdx), string(status))
		set("B"+strconv.Itoa(rowIdx), s.ByStatus[status])
	}

	rowIdx += 2
	set("A"+strconv.Itoa(rowIdx), "Category")
	set("B"+strconv.Itoa(rowIdx), "Jobs")
	for _, category := range sortedKeys(s.ByCategory) {
		rowIdx++
		set("A"+strconv.Itoa(rowIdx), category.String())
		set("B"+strconv.Itoa(rowIdx), s.ByCategory[category])
	}

	_ = file.SetColWidth(summarySheet, "A", "A", 24)
	_ = file.SetColWidth(summarySheet, "B", "B", 28)
}

func writeJobs(file *excelize.File, r Report) error {
	stream, err := file.NewStreamWriter(jobsSheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(jobColumns))
	for i, col := range jobColumns {
		header[i] = col
	}
	if err := stream.SetRow("A1", header); err != nil {
		return err
	}

	for i, job := range r.Jobs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := row(job)
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
		}
		// Numeric cells stay numeric so spreadsheets can sum them.
		cells[0] = job.ID
		cells[8] = float64(job.AmountCents) / 100
		if err := stream.SetRow(cell, cells); err != nil {
			return err
		}
	}
	return stream.Flush()
}
