package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SuccessMessage is returned to the caller when every row was persisted.
const SuccessMessage = "Carga exitosa"

type (
	// UploadRequest is the transient input of one batch upload.
	// A nil File means the file field was absent from the request.
	UploadRequest struct {
		File          []byte
		FileName      string
		BankAccountID string
		CurrencyCode  string
		CategoryID    string
	}

	// ParsedRow is a raw CSV line before conversion. Line is 1-based and
	// counts the header.
	ParsedRow struct {
		Line        int
		Date        string
		Description string
		Amount      string
	}

	// TransactionRecord is the persisted unit. ID is empty until a store
	// assigns it.
	TransactionRecord struct {
		ID            string          `json:"id,omitempty"`
		UserID        string          `json:"user_id"`
		OccurredAt    string          `json:"occurred_at"` // YYYY-MM-DD
		Description   *string         `json:"description"`
		Amount        decimal.Decimal `json:"amount"`
		CurrencyCode  string          `json:"currency_code"`
		BankAccountID string          `json:"bank_account_id"`
		CategoryID    string          `json:"category_id"`
		SubcategoryID *string         `json:"subcategory_id"`
	}

	// IngestionResult is what the caller receives; it is never persisted.
	IngestionResult struct {
		Success  bool   `json:"success"`
		Inserted int    `json:"inserted,omitempty"`
		Message  string `json:"message"`
	}

	// CompensationRequest describes rows that could not be removed after a
	// failed upload and still need to be deleted.
	CompensationRequest struct {
		RequestID string   `json:"request_id"`
		UserID    string   `json:"user_id"`
		IDs       []string `json:"ids"`
		Attempt   int      `json:"attempt"`
		Reason    string   `json:"reason"`
	}
)

// Validate checks that every declared field of the upload is present.
func (r UploadRequest) Validate() error {
	if r.File == nil ||
		strings.TrimSpace(r.BankAccountID) == "" ||
		strings.TrimSpace(r.CurrencyCode) == "" ||
		strings.TrimSpace(r.CategoryID) == "" {
		return ErrMissingParameters
	}
	return nil
}

// Succeeded builds the success result for n inserted rows.
func Succeeded(n int) IngestionResult {
	return IngestionResult{Success: true, Inserted: n, Message: SuccessMessage}
}

// Failed builds the failure result for err using its user-facing message.
func Failed(err error) IngestionResult {
	return IngestionResult{Success: false, Message: UserMessage(err)}
}
