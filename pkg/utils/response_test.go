package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, http.StatusBadRequest, "bad input")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body["error"] != "bad input" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRespondErrorDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondErrorDetails(rr, http.StatusNotFound, "missing", json.RawMessage(`{"error":"missing"}`))

	var body struct {
		Error   string          `json:"error"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body.Error != "missing" || string(body.Details) != `{"error":"missing"}` {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	RespondErrorDetails(rr, http.StatusNotFound, "missing", nil)
	if got := rr.Body.String(); got != "{\"error\":\"missing\"}\n" {
		t.Fatalf("details should be omitted, got %q", got)
	}
}
