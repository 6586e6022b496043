package pipeline

import (
	"fmt"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/doctordoom101/go-scrape-amazon/models"
)

// SheetName is the single worksheet all records land on.
const SheetName = "scraped"

// XLSXWriter writes records to a single-sheet spreadsheet. The workbook is
// assembled in memory and saved on Close.
type XLSXWriter struct {
	file    *excelize.File
	path    string
	nextRow int
	mu      sync.Mutex
}

// NewXLSXWriter initialises the workbook and writes the header row.
func NewXLSXWriter(filename string) (*XLSXWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	xw := &XLSXWriter{
		file:    f,
		path:    filename,
		nextRow: 1,
	}
	if err := xw.writeRow(columnHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write xlsx header: %w", err)
	}
	return xw, nil
}

// Write appends records to the sheet.
func (xw *XLSXWriter) Write(records []*models.ProductRecord) error {
	xw.mu.Lock()
	defer xw.mu.Unlock()

	for _, rec := range records {
		if err := xw.writeRecord(rec); err != nil {
			return fmt.Errorf("write xlsx record: %w", err)
		}
	}
	return nil
}

// Close saves the workbook to disk and releases it.
func (xw *XLSXWriter) Close() error {
	xw.mu.Lock()
	defer xw.mu.Unlock()

	if err := xw.file.SaveAs(xw.path); err != nil {
		xw.file.Close()
		return fmt.Errorf("save xlsx file: %w", err)
	}
	return xw.file.Close()
}

// Validate ensures the sheet has data rows besides the header.
func (xw *XLSXWriter) Validate() error {
	xw.mu.Lock()
	defer xw.mu.Unlock()

	if xw.nextRow <= 2 {
		return fmt.Errorf("xlsx sheet has no data rows")
	}
	return nil
}

// writeRecord keeps parsed numbers as numeric cells and leaves absent
// values empty.
func (xw *XLSXWriter) writeRecord(rec *models.ProductRecord) error {
	row := recordRow(rec)
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	if rec.Price != nil {
		cells[3] = *rec.Price
	}
	if rec.Rating != nil {
		cells[5] = *rec.Rating
	}

	return xw.writeCells(cells)
}

func (xw *XLSXWriter) writeRow(values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return xw.writeCells(cells)
}

func (xw *XLSXWriter) writeCells(cells []interface{}) error {
	row := xw.nextRow
	for i, value := range cells {
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := xw.file.SetCellValue(SheetName, cell, value); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	xw.nextRow++
	return nil
}
