package ingest

import (
	"fmt"
	"strings"

	"finanzas/internal/core"
)

// BuildOptions controls row conversion.
type BuildOptions struct {
	// StrictDates rejects dates that are not real calendar days.
	StrictDates bool
}

// BuildRecords converts parsed rows into records owned by userID.
//
// Rows with an empty date or an empty amount are dropped. Any other bad
// row aborts the whole batch: the first invalid date or amount is returned
// as an IngestError carrying the raw value.
func BuildRecords(userID string, req core.UploadRequest, rows []core.ParsedRow, opts BuildOptions) ([]core.TransactionRecord, error) {
	records := make([]core.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Date) == "" || strings.TrimSpace(row.Amount) == "" {
			continue
		}

		occurredAt, err := core.ConvertDate(row.Date, opts.StrictDates)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", row.Line, err)
		}
		amount, err := core.ParseAmount(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", row.Line, err)
		}

		records = append(records, core.TransactionRecord{
			UserID:        userID,
			OccurredAt:    occurredAt,
			Description:   description(row.Description),
			Amount:        amount,
			CurrencyCode:  strings.TrimSpace(req.CurrencyCode),
			BankAccountID: strings.TrimSpace(req.BankAccountID),
			CategoryID:    strings.TrimSpace(req.CategoryID),
		})
	}
	return records, nil
}

func description(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Chunks splits records into consecutive groups of at most size elements.
func Chunks(records []core.TransactionRecord, size int) [][]core.TransactionRecord {
	if size <= 0 {
		size = len(records)
	}
	var out [][]core.TransactionRecord
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		out = append(out, records[start:end])
	}
	return out
}
