// Package http serves the batch upload endpoint and the operational probes.
//
// This file turns a multipart upload into a core.UploadRequest. Transport
// failures are mapped onto the ingestion error kinds so the handler only
// deals with one error type.
package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"finanzas/internal/core"
)

// Multipart field names of the upload form.
const (
	FieldFile          = "file"
	FieldBankAccountID = "bank_account_id"
	FieldCurrencyCode  = "currency_code"
	FieldCategoryID    = "category_id"
)

// multipartOverhead is allowed on top of the file limit for boundaries and
// the text fields.
const multipartOverhead = 64 << 10

// ParseUploadRequest reads the upload form from r. maxFileBytes bounds the
// file; a body that exceeds it yields core.ErrFileTooLarge. An absent file
// field leaves File nil so validation reports missing parameters.
func ParseUploadRequest(w http.ResponseWriter, r *http.Request, maxFileBytes int64) (core.UploadRequest, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return core.UploadRequest{}, malformed(fmt.Errorf("content type %q", r.Header.Get("Content-Type")))
	}

	if maxFileBytes > 0 {
		if r.ContentLength > maxFileBytes+multipartOverhead {
			return core.UploadRequest{}, core.ErrFileTooLarge
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxFileBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return core.UploadRequest{}, classifyBodyError(err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req := core.UploadRequest{
		BankAccountID: sanitizeInput(r.FormValue(FieldBankAccountID)),
		CurrencyCode:  sanitizeInput(r.FormValue(FieldCurrencyCode)),
		CategoryID:    sanitizeInput(r.FormValue(FieldCategoryID)),
	}

	file, header, err := r.FormFile(FieldFile)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		if len(r.MultipartForm.Value[FieldFile]) > 0 {
			return core.UploadRequest{}, core.InvalidFileType(errors.New("file field is not a file part"))
		}
		return req, nil
	case err != nil:
		return core.UploadRequest{}, classifyBodyError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return core.UploadRequest{}, classifyBodyError(err)
	}
	if data == nil {
		data = []byte{}
	}
	req.File = data
	req.FileName = header.Filename
	return req, nil
}

func classifyBodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return core.ErrFileTooLarge
	}
	return malformed(err)
}

func malformed(err error) error {
	return &core.IngestError{Kind: core.KindMalformedRequest, Err: err}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
