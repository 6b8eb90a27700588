package result

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet  = "Results"
	subjectsSheet = "Subjects"
)

// ExportXLSX writes ranked results as a workbook: one row per student, then one row per subject.
// names maps student ids to display names; it may be nil.
func ExportXLSX(results []TestResult, names map[int]string, w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return errors.Wrap(err, "naming results sheet")
	}
	if _, err := f.NewSheet(subjectsSheet); err != nil {
		return errors.Wrap(err, "creating subjects sheet")
	}

	headers := []string{"Rank", "Student ID", "Student", "Obtained", "Total", "Percentage", "Status"}
	if err := setHeaders(f, resultsSheet, headers); err != nil {
		return err
	}
	subjHeaders := []string{"Student ID", "Student", "Subject", "Obtained", "Total", "Percentage", "Grade", "Status"}
	if err := setHeaders(f, subjectsSheet, subjHeaders); err != nil {
		return err
	}

	subjRow := 2
	for i, res := range results {
		row := i + 2
		name := names[res.StudentID]
		pct, _ := res.Percentage.Float64()
		vals := []interface{}{res.Rank, res.StudentID, name, res.ObtainedMarks, res.TotalMarks, pct, string(res.Status)}
		if err := setRow(f, resultsSheet, row, vals); err != nil {
			return err
		}
		for _, s := range res.Subjects {
			pct, _ := s.Percentage.Float64()
			vals := []interface{}{res.StudentID, name, s.Subject, s.ObtainedMarks, s.TotalMarks, pct, string(s.Grade), string(s.Status)}
			if err := setRow(f, subjectsSheet, subjRow, vals); err != nil {
				return err
			}
			subjRow++
		}
	}

	return errors.Wrap(f.Write(w), "writing workbook")
}

func setHeaders(f *excelize.File, sheet string, headers []string) error {
	vals := make([]interface{}, 0, len(headers))
	for _, h := range headers {
		vals = append(vals, h)
	}
	return setRow(f, sheet, 1, vals)
}

func setRow(f *excelize.File, sheet string, row int, vals []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
		return errors.Wrap(err, fmt.Sprintf("writing %s row %d", sheet, row))
	}
	return nil
}
