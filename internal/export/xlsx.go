// Package export writes the glossary to spreadsheet form for instructors who
// review terms outside the book.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/lucidpress/bindery/internal/models"
)

const termsSheet = "Glossary"

// WriteTermsXLSX writes terms to an xlsx workbook at path: one row per term
// with its definition and the chapters it appears in.
func WriteTermsXLSX(path string, terms []*models.GlossaryTerm) error {
	if len(terms) == 0 {
		return fmt.Errorf("no terms to export")
	}
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(termsSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}

	headers := []string{"Term", "Definition", "Defining Chapter", "Occurrences"}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(termsSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, term := range terms {
		row := []interface{}{
			term.Term,
			term.Definition,
			term.DefiningChapter,
			strings.Join(term.Occurrences, ", "),
		}
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(termsSheet, cell, value); err != nil {
				return fmt.Errorf("write row %d: %w", i+2, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
