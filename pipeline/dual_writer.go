package pipeline

import (
	"fmt"
	"sync"

	"github.com/doctordoom101/go-scrape-amazon/models"
)

// DualWriter outputs to both CSV and spreadsheet formats simultaneously,
// the two download formats the dataset is usually consumed in.
type DualWriter struct {
	csvWriter  *CSVWriter
	xlsxWriter *XLSXWriter
	mu         sync.Mutex
}

// NewDualWriter creates a writer producing both a .csv and an .xlsx file.
func NewDualWriter(csvFilename, xlsxFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}

	xlsxWriter, err := NewXLSXWriter(xlsxFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("create xlsx writer: %w", err)
	}

	return &DualWriter{
		csvWriter:  csvWriter,
		xlsxWriter: xlsxWriter,
	}, nil
}

// Write writes records to both outputs.
func (dw *DualWriter) Write(records []*models.ProductRecord) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.csvWriter.Write(records); err != nil {
		return fmt.Errorf("csv write failed: %w", err)
	}
	if err := dw.xlsxWriter.Write(records); err != nil {
		return fmt.Errorf("xlsx write failed: %w", err)
	}
	return nil
}

// Close closes both writers.
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error
	if err := dw.csvWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("csv close failed: %w", err))
	}
	if err := dw.xlsxWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("xlsx close failed: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors: %v", errs)
	}
	return nil
}

// Validate validates both output files.
func (dw *DualWriter) Validate() error {
	var errs []error
	if err := dw.csvWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("csv validation failed: %w", err))
	}
	if err := dw.xlsxWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("xlsx validation failed: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %v", errs)
	}
	return nil
}
