// Package ingest turns uploaded delimited text into transaction records.
//
// The functions here are pure: they never touch storage. Persistence and
// compensation live in the services package.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"finanzas/internal/core"
)

const (
	colDate = iota
	colDescription
	colAmount
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseRows splits a comma-separated file into rows. The first record is a
// header and is discarded. Records may have any number of fields; missing
// trailing fields are read as empty. Bytes that are not valid UTF-8 are
// replaced with U+FFFD.
func ParseRows(data []byte) ([]core.ParsedRow, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data, _, err := transform.Bytes(runes.ReplaceIllFormed(), data)
	if err != nil {
		return nil, core.InvalidFileType(fmt.Errorf("decode text: %w", err))
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var rows []core.ParsedRow
	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.InvalidFileType(fmt.Errorf("read csv: %w", err))
		}
		if header {
			header = false
			continue
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, core.ParsedRow{
			Line:        line,
			Date:        field(rec, colDate),
			Description: field(rec, colDescription),
			Amount:      field(rec, colAmount),
		})
	}
	return rows, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}
