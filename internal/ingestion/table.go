package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrWorksheetNotFound is returned when a workbook lacks the entity's worksheet.
	ErrWorksheetNotFound = errors.New("worksheet not found")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// Row is one data row of an uploaded sheet. Number is the 1-based sheet row.
type Row struct {
	Number int
	Data   map[string]any
}

// parseTable reads the uploaded file and returns its raw rows, header included.
func parseTable(fileName string, payload []byte, worksheet string) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload, worksheet)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) ([][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

// parseExcel reads the named worksheet with raw cell values, so date cells arrive
// as serial numbers rather than locale formatted text.
func parseExcel(payload []byte, worksheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	if idx, err := f.GetSheetIndex(worksheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q (found %s)", ErrWorksheetNotFound, worksheet, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(worksheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return rows, nil
}

// mapRows skips the header row and maps cells onto fields by column position.
// Blank cells are omitted and entirely blank rows are skipped.
func mapRows(records [][]string, def domain.EntityDefinition) []Row {
	rows := make([]Row, 0, len(records))
	for idx, record := range records {
		if idx == 0 {
			continue
		}
		record = padRow(record, len(def.Fields))
		if len(cleanRow(record)) == 0 {
			continue
		}

		data := make(map[string]any, len(def.Fields))
		for col, field := range def.Fields {
			cell := strings.TrimSpace(record[col])
			if cell == "" {
				continue
			}
			data[field.Name] = cellValue(field, cell)
		}
		rows = append(rows, Row{Number: idx + 1, Data: data})
	}
	return rows
}

// cellValue converts spreadsheet specific encodings; everything else is left for
// the record validator.
func cellValue(field domain.FieldDefinition, cell string) any {
	if field.Type == domain.FieldTypeTimestamp {
		if serial, err := strconv.ParseFloat(cell, 64); err == nil {
			if ts, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return ts.UTC().Format(domain.TimeLayout)
			}
		}
	}
	return cell
}

func cleanRow(row []string) []string {
	var cleaned []string
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			cleaned = append(cleaned, cell)
		}
	}
	return cleaned
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}
