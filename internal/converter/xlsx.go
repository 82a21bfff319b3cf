package converter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/docsnatch/docsnatch/internal/domain"
)

// XlsxConverter merges the CSV tabs of one spreadsheet into a single
// workbook, one worksheet per tab named after its gid
type XlsxConverter struct{}

// NewXlsxConverter creates a new XLSX converter
func NewXlsxConverter() *XlsxConverter {
	return &XlsxConverter{}
}

// Convert builds the workbook and returns its bytes
func (c *XlsxConverter) Convert(export *domain.SpreadsheetExport) ([]byte, error) {
	if export == nil || len(export.Tabs) == 0 {
		return nil, domain.ErrEmptyExport
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, tab := range export.Tabs {
		name := tab.GID
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("%w: rename sheet %s: %v", domain.ErrConversionFailed, name, err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("%w: add sheet %s: %v", domain.ErrConversionFailed, name, err)
			}
		}

		records, err := readCSVRecords(tab.CSV)
		if err != nil {
			return nil, fmt.Errorf("%w: tab %s: %v", domain.ErrConversionFailed, tab.GID, err)
		}
		for rowIdx, record := range records {
			for colIdx, value := range record {
				cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
				if err != nil {
					return nil, fmt.Errorf("%w: tab %s: %v", domain.ErrConversionFailed, tab.GID, err)
				}
				if err := setCellValue(f, name, cell, value); err != nil {
					return nil, fmt.Errorf("%w: tab %s cell %s: %v", domain.ErrConversionFailed, tab.GID, cell, err)
				}
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConversionFailed, err)
	}
	return buf.Bytes(), nil
}

// readCSVRecords tolerates ragged rows, Google pads short rows only
// within the used range
func readCSVRecords(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func setCellValue(f *excelize.File, sheet, cell, value string) error {
	if n, ok := numericValue(value); ok {
		return f.SetCellValue(sheet, cell, n)
	}
	return f.SetCellValue(sheet, cell, value)
}

// numericValue reports value as a number only when the text form survives
// the round trip, so codes like "007" keep their leading zeros
func numericValue(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if strconv.FormatFloat(n, 'f', -1, 64) != s {
		return 0, false
	}
	return n, true
}
