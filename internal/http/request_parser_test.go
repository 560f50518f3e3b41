package http

import (
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		query     string
		wantYear  int
		wantMonth int
		wantErr   bool
	}{
		{"defaults", "", 2025, 3, false},
		{"explicit", "year=2024&month=11", 2024, 11, false},
		{"month only", "month=1", 2025, 1, false},
		{"bad month", "month=13", 2025, 3, true},
		{"non-numeric year", "year=abc", 2025, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParseMonthParams(q, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("got %d-%d, want %d-%d", got.Year, got.Month, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestOptionalID(t *testing.T) {
	var req struct {
		ParentID optionalID `json:"parentId"`
	}
	for _, tt := range []struct {
		body    string
		wantSet bool
		wantNil bool
	}{
		{`{}`, false, true},
		{`{"parentId": null}`, true, true},
		{`{"parentId": 7}`, true, false},
	} {
		req.ParentID = optionalID{}
		if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
			t.Fatalf("%s: %v", tt.body, err)
		}
		if req.ParentID.Set != tt.wantSet || (req.ParentID.Value == nil) != tt.wantNil {
			t.Errorf("%s: got %+v", tt.body, req.ParentID)
		}
	}
	if err := json.Unmarshal([]byte(`{"parentId": "x"}`), &req); err == nil {
		t.Error("expected error for a non-numeric id")
	}
}

func TestMoneyParser(t *testing.T) {
	var p moneyParser
	if got := p.amount("amount", "12,34", decimal.Zero); !got.Equal(decimal.RequireFromString("12.34")) {
		t.Errorf("amount = %s", got)
	}
	if got := p.signed("initialBalance", "-250.5"); !got.Equal(decimal.RequireFromString("-250.5")) {
		t.Errorf("signed = %s", got)
	}
	if err := p.check(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := "1e3"
	if p.optional("amount", &bad) != nil {
		t.Error("exponent notation must be rejected")
	}
	p.amount("shares", "-1", decimal.Zero)
	err := p.check(nil)
	if err == nil || !strings.Contains(err.Error(), "amount") || !strings.Contains(err.Error(), "shares") {
		t.Fatalf("expected amount and shares problems, got %v", err)
	}
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	var dst map[string]any
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"a":1} {"b":2}`))
	if err := decodeJSON(r, &dst); err == nil {
		t.Fatal("expected trailing data error")
	}
	r = httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat(" ", maxBodyBytes+1)))
	if err := decodeJSON(r, &dst); err == nil {
		t.Fatal("expected size error")
	}
}
