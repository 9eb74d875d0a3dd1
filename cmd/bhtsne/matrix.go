package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readMatrix parses a numeric CSV into a row-major matrix.
// All data rows must have the same number of columns; a skipped header may differ.
func readMatrix(r io.Reader, comma rune, header bool) (data []float64, n, d int, err error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to read CSV: %w", err)
		}
		line++
		if header && line == 1 {
			continue
		}

		if d == 0 {
			d = len(record)
		} else if len(record) != d {
			return nil, 0, 0, fmt.Errorf("row %d has %d columns, want %d", line, len(record), d)
		}
		for col, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, 0, 0, fmt.Errorf("row %d column %d: %w", line, col+1, err)
			}
			data = append(data, v)
		}
		n++
	}

	if n == 0 {
		return nil, 0, 0, fmt.Errorf("input has no data rows")
	}
	return data, n, d, nil
}

// readLines returns the non-empty lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read text: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("input has no text lines")
	}
	return lines, nil
}

// writeMatrix writes the row-major n×d matrix y as CSV.
func writeMatrix(w io.Writer, y []float64, n, d int, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma

	record := make([]string, d)
	for i := 0; i < n; i++ {
		for k := 0; k < d; k++ {
			record[k] = strconv.FormatFloat(y[i*d+k], 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
