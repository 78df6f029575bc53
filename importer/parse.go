package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const MaxUploadSizeBytes int64 = 10 * 1024 * 1024

var ErrUnsupportedFile = errors.New("only .xlsx and .csv files are supported")

var uploadContentTypes = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv",
}

// ParseFile reads the first sheet of an xlsx file, or a csv file, into rows
// keyed by the header row. Header cells are lowercased with spaces turned
// into underscores, so "Brand Name" becomes brand_name. Blank rows between
// data rows are kept so row numbers line up with the sheet. Trailing blank
// rows are dropped.
func ParseFile(fileName string, data []byte) (*ParseResult, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		records, err = readXlsx(data)
	case ".csv":
		records, err = readCsv(data)
	default:
		return nil, ErrUnsupportedFile
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("file has no header row")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = headerKey(h)
	}

	result := &ParseResult{
		FileName: fileName,
		Headers:  headers,
		Rows:     make([]map[string]interface{}, 0, len(records)-1),
	}
	kept := 0
	for _, record := range records[1:] {
		row := make(map[string]interface{}, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" {
				continue
			}
			cell := ""
			if i < len(record) {
				cell = strings.TrimSpace(record[i])
			}
			if cell != "" {
				blank = false
			}
			row[h] = cell
		}
		result.Rows = append(result.Rows, row)
		if !blank {
			kept = len(result.Rows)
		}
	}
	result.Rows = result.Rows[:kept]
	return result, nil
}

func readXlsx(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readCsv(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var records [][]string
	next := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read csv: %w", err)
		}
		// encoding/csv skips empty lines; put them back after the header
		line, _ := r.FieldPos(0)
		for ; len(records) > 0 && next < line; next++ {
			records = append(records, nil)
		}
		last := len(record) - 1
		end, _ := r.FieldPos(last)
		next = end + strings.Count(record[last], "\n") + 1
		records = append(records, record)
	}
	return records, nil
}

func headerKey(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), "_")
}

func contentTypeFor(fileName string) string {
	if ct, ok := uploadContentTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return ct
	}
	return "application/octet-stream"
}
