package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// row is one data row with its 1-based position after the header.
type row struct {
	number int
	cells  []string
	err    error
}

type table struct {
	header []string
	rows   []row
}

func readTable(ext string, body []byte) (*table, error) {
	switch ext {
	case ".csv":
		return readCSV(body)
	case ".xlsx", ".xls":
		return readWorkbook(body)
	}
	return nil, fmt.Errorf("unsupported extension %q", ext)
}

// readCSV keeps going past malformed lines; they surface as row errors.
func readCSV(body []byte) (*table, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("file is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &table{header: cleanHeader(header)}
	for n := 1; ; n++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.rows = append(t.rows, row{number: n, err: fmt.Errorf("malformed csv: %w", err)})
			continue
		}
		if blank(record) {
			continue
		}
		t.rows = append(t.rows, row{number: n, cells: record})
	}
	return t, nil
}

// readWorkbook reads the first sheet. Legacy BIFF .xls files are not
// readable and reject the whole file.
func readWorkbook(body []byte) (*table, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, errors.New("file is empty")
	}

	t := &table{header: cleanHeader(rows[0])}
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		t.rows = append(t.rows, row{number: i + 1, cells: cells})
	}
	return t, nil
}

func cleanHeader(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(strings.TrimPrefix(c, "\uFEFF"))
	}
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
