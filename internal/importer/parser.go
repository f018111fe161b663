// Package importer parses uploaded lead files into normalized records.
// Its only contract with the rest of the system is the LeadRecord slice;
// inserting those as unassigned prospects is the store's job.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrParse wraps every malformed-upload failure with a human-readable reason
var ErrParse = errors.New("import parse error")

// LeadRecord is one normalized row of an imported lead file.
type LeadRecord struct {
	Nom       string
	Secteur   string
	Telephone string
	Email     string
}

var requiredColumns = []string{"nom", "secteur", "telephone"}

// xlsx files are zip archives; CSV never starts with the zip magic.
var zipMagic = []byte("PK\x03\x04")

// Parse reads a CSV or Excel lead file, picking the format by content.
// The header row is matched case-insensitively with surrounding whitespace
// trimmed; nom, secteur and telephone are required columns, email is
// optional. Rows with all required cells blank are skipped.
func Parse(data []byte) ([]LeadRecord, error) {
	if bytes.HasPrefix(data, zipMagic) {
		return parseWorkbook(data)
	}
	return parseCSV(data)
}

func parseCSV(data []byte) ([]LeadRecord, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable file: %v", ErrParse, err)
	}
	return fromRows(rows)
}

func parseWorkbook(data []byte) ([]LeadRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable workbook: %v", ErrParse, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrParse)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrParse, sheets[0], err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) ([]LeadRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file has no header row", ErrParse)
	}

	index := map[string]int{}
	for i, col := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing required column %q", ErrParse, col)
		}
	}

	var out []LeadRecord
	for _, row := range rows[1:] {
		record := LeadRecord{
			Nom:       cell(row, index["nom"]),
			Secteur:   cell(row, index["secteur"]),
			Telephone: cell(row, index["telephone"]),
		}
		if i, ok := index["email"]; ok {
			record.Email = cell(row, i)
		}
		if record.Nom == "" && record.Secteur == "" && record.Telephone == "" {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
