package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"finanzas/internal/core"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Body(map[string]string{"k": "v"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header not set")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Body.String() != "{\"k\":\"v\"}\n" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrUnauthenticated, http.StatusUnauthorized},
		{core.ErrMissingParameters, http.StatusBadRequest},
		{core.InvalidFileType(errors.New("bad quote")), http.StatusBadRequest},
		{core.ErrMalformedRequest, http.StatusBadRequest},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{core.InvalidDateFormat("2024-01-01"), http.StatusUnprocessableEntity},
		{core.InvalidAmount("abc", nil), http.StatusUnprocessableEntity},
		{core.ErrEmptyBatch, http.StatusUnprocessableEntity},
		{core.InsertionFailed(errors.New("boom"), true), http.StatusBadGateway},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResultResponse_FailureBodyOmitsInserted(t *testing.T) {
	w := httptest.NewRecorder()
	err := core.InvalidDateFormat("2024/13")
	ResultResponse(core.Failed(err), err).Write(w)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != false {
		t.Errorf("success = %v", body["success"])
	}
	if body["message"] != "Formato de fecha inválido: 2024/13" {
		t.Errorf("message = %v", body["message"])
	}
	if _, ok := body["inserted"]; ok {
		t.Error("inserted must not appear in a failure body")
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowedError(http.MethodPost).Write(w)
	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != http.MethodPost {
		t.Errorf("got %d Allow=%q", w.Code, w.Header().Get("Allow"))
	}
}
