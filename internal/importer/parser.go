package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"stores-service/internal/models"
)

// ParsedFile is the untyped output of parsing an uploaded file. Every row
// has exactly len(Headers) cells; short rows are padded with empty strings
// and long rows truncated.
type ParsedFile struct {
	Headers   []string
	Rows      [][]string
	TotalRows int
}

// Parser turns raw uploaded bytes into headers and rows. It is a pure
// transform: no schema is enforced here beyond the row-count cap.
type Parser struct {
	maxRows        int
	supportedTypes []string
}

// NewParser creates a parser capped at maxRows data rows per file.
// supportedTypes is a list of extensions without the dot, e.g. ["csv","xlsx"].
func NewParser(maxRows int, supportedTypes []string) *Parser {
	return &Parser{
		maxRows:        maxRows,
		supportedTypes: supportedTypes,
	}
}

// Parse reads fileBytes according to the filename's extension. It fails
// with *FileParsingError for unsupported/empty/undecodable input and
// *TooManyRowsError when the row cap is exceeded.
func (p *Parser) Parse(fileBytes []byte, filename string) (*ParsedFile, error) {
	if len(fileBytes) == 0 {
		return nil, &FileParsingError{Reason: "file is empty"}
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if !p.isSupported(ext) {
		return nil, &FileParsingError{Reason: fmt.Sprintf("unsupported file type %q, expected one of: %s", ext, strings.Join(p.supportedTypes, ", "))}
	}

	if Format(filename) == models.ImportFormatXLSX {
		return p.parseXLSX(fileBytes)
	}
	return p.parseCSV(fileBytes)
}

// Format returns the import format for a filename, defaulting to CSV
func Format(filename string) models.ImportFormat {
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return models.ImportFormatXLSX
	}
	return models.ImportFormatCSV
}

func (p *Parser) isSupported(ext string) bool {
	for _, t := range p.supportedTypes {
		if strings.EqualFold(t, ext) {
			return true
		}
	}
	return false
}

func (p *Parser) parseCSV(fileBytes []byte) (*ParsedFile, error) {
	if !utf8.Valid(fileBytes) {
		return nil, &FileParsingError{Reason: "file is not valid UTF-8"}
	}

	reader := csv.NewReader(bytes.NewReader(fileBytes))
	reader.FieldsPerRecord = -1 // rows are padded/truncated to the header width below

	headers, err := reader.Read()
	if err != nil {
		return nil, &FileParsingError{Reason: fmt.Sprintf("failed to read CSV header: %v", err)}
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
		headers[i] = strings.TrimSuffix(headers[i], " *")
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FileParsingError{Reason: fmt.Sprintf("error reading line %d: %v", len(rows)+2, err)}
		}
		if len(rows) >= p.maxRows {
			return nil, &TooManyRowsError{Rows: len(rows) + 1, Limit: p.maxRows}
		}
		rows = append(rows, padRow(record, len(headers)))
	}

	return &ParsedFile{Headers: headers, Rows: rows, TotalRows: len(rows)}, nil
}

func (p *Parser) parseXLSX(fileBytes []byte) (*ParsedFile, error) {
	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	if err != nil {
		return nil, &FileParsingError{Reason: fmt.Sprintf("failed to open spreadsheet: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &FileParsingError{Reason: "no sheets found in spreadsheet"}
	}

	// Only the first sheet is read
	excelRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &FileParsingError{Reason: fmt.Sprintf("failed to read sheet: %v", err)}
	}
	if len(excelRows) == 0 {
		return nil, &FileParsingError{Reason: "spreadsheet has no header row"}
	}

	headers := excelRows[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
		headers[i] = strings.TrimSuffix(headers[i], " *")
	}

	dataRows := excelRows[1:]
	if len(dataRows) > p.maxRows {
		return nil, &TooManyRowsError{Rows: len(dataRows), Limit: p.maxRows}
	}

	rows := make([][]string, 0, len(dataRows))
	for _, excelRow := range dataRows {
		for i := range excelRow {
			excelRow[i] = strings.TrimSpace(excelRow[i])
		}
		rows = append(rows, padRow(excelRow, len(headers)))
	}

	return &ParsedFile{Headers: headers, Rows: rows, TotalRows: len(rows)}, nil
}

// padRow enforces the invariant len(row) == len(headers)
func padRow(record []string, width int) []string {
	row := make([]string, width)
	for i := 0; i < width && i < len(record); i++ {
		row[i] = record[i]
	}
	return row
}
