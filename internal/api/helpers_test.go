// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"

	"github.com/goccy/go-json"

	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean", "lagu_krismas", "lagu_krismas"},
		{"newline", "id\nINJECTED", "id\\x0aINJECTED"},
		{"carriage return", "a\rb", "a\\x0db"},
		{"delete char", "a\x7fb", "a\\x7fb"},
		{"unicode passes", "Pujian Méja", "Pujian Méja"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogValue(tt.input); got != tt.want {
				t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateETagDeterministic(t *testing.T) {
	a := generateETag([]byte("hello"))
	b := generateETag([]byte("hello"))
	c := generateETag([]byte("hello!"))

	if a != b {
		t.Errorf("same input produced different tags: %q vs %q", a, b)
	}
	if a == c {
		t.Error("different inputs produced the same tag")
	}
}

func TestRespondErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, http.StatusNotFound, ErrCodeNotFound, "collection not found", nil)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("missing ETag header")
	}

	var envelope models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Status != "error" {
		t.Errorf("status = %q", envelope.Status)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v", envelope.Error)
	}
	if envelope.Error.Message != "collection not found" {
		t.Errorf("message = %q", envelope.Error.Message)
	}
}

func TestRespondDataEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	respondData(rec, http.StatusOK, map[string]int{"count": 3})

	var envelope models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Status != "success" {
		t.Errorf("status = %q", envelope.Status)
	}
	if envelope.Error != nil {
		t.Errorf("unexpected error: %+v", envelope.Error)
	}
	if envelope.Metadata.Timestamp.IsZero() {
		t.Error("metadata timestamp not set")
	}
}

func queryRequest(t *testing.T, rawQuery string) *http.Request {
	t.Helper()
	u := &url.URL{Path: "/", RawQuery: rawQuery}
	return httptest.NewRequest(http.MethodGet, u.String(), nil)
}

func TestGetIntParam(t *testing.T) {
	r := queryRequest(t, "limit=25&bad=abc")

	if got := getIntParam(r, "limit", 50); got != 25 {
		t.Errorf("limit = %d, want 25", got)
	}
	if got := getIntParam(r, "bad", 50); got != 50 {
		t.Errorf("malformed value = %d, want default 50", got)
	}
	if got := getIntParam(r, "absent", 50); got != 50 {
		t.Errorf("absent value = %d, want default 50", got)
	}
}

func TestGetBoolParam(t *testing.T) {
	r := queryRequest(t, "refresh=true&junk=notabool")

	if !getBoolParam(r, "refresh", false) {
		t.Error("refresh=true parsed as false")
	}
	if getBoolParam(r, "junk", false) {
		t.Error("malformed bool did not fall back to default")
	}
	if !getBoolParam(r, "absent", true) {
		t.Error("absent bool did not fall back to default")
	}
}

func TestParseCommaSeparated(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"lpmi", []string{"lpmi"}},
		{"lpmi, srb ,christmas", []string{"lpmi", "srb", "christmas"}},
		{" , ,", nil},
	}

	for _, tt := range tests {
		if got := parseCommaSeparated(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseCommaSeparated(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
