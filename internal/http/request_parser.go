// Package http provides the JSON API over the ledger.
//
// This file implements request decoding: JSON bodies, path and query ids,
// decimal-string money fields and the null-versus-absent distinction
// that PATCH bodies need.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"finledger/internal/core"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// requestError is a body that could not be decoded at all. It maps to 400,
// while well-formed bodies with bad values map to 422.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

// decodeJSON decodes the request body into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return &requestError{fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxBodyBytes {
		return &requestError{fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &requestError{errEmptyBody}
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &requestError{fmt.Errorf("invalid JSON body: %w", err)}
	}
	if dec.More() {
		return &requestError{errors.New("invalid JSON body: trailing data")}
	}
	return nil
}

// pathID reads the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

// queryID reads an optional positive id from the query string.
func queryID(query url.Values, key string) (*int64, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, core.NewValidationError(key, "must be a positive integer")
	}
	return &id, nil
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from the query, defaulting to
// the month containing now. Malformed values are rejected instead of being
// silently replaced.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}
	verr := &core.ValidationError{}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			verr.Add("year", "must be a year between 1 and 9999")
		} else {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			verr.Add("month", "must be between 1 and 12")
		} else {
			params.Month = m
		}
	}
	return params, verr.OrNil()
}

// optionalID distinguishes an absent JSON field (Set false) from an
// explicit null (Set true, Value nil).
type optionalID struct {
	Set   bool
	Value *int64
}

func (o *optionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

// optionalDate is optionalID for nullable dates.
type optionalDate struct {
	Set   bool
	Value *core.Date
}

func (o *optionalDate) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var d core.Date
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	if d.IsZero() {
		o.Value = nil
		return nil
	}
	o.Value = &d
	return nil
}

// moneyParser turns decimal strings into amounts and collects per-field
// problems in one ValidationError.
type moneyParser struct {
	verr core.ValidationError
}

// amount parses a non-negative amount. An empty string yields def.
func (p *moneyParser) amount(field, s string, def decimal.Decimal) decimal.Decimal {
	if strings.TrimSpace(s) == "" {
		return def
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		p.verr.Add(field, "must be a non-negative decimal such as 12.34")
		return def
	}
	return d
}

// signed parses an amount that may carry a leading sign.
func (p *moneyParser) signed(field, s string) decimal.Decimal {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero
	}
	d, err := core.ParseSignedAmount(s)
	if err != nil {
		p.verr.Add(field, "must be a decimal such as -12.34")
		return decimal.Zero
	}
	return d
}

// optional parses a PATCH amount. A nil string leaves the field unset.
func (p *moneyParser) optional(field string, s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, err := core.ParseAmount(*s)
	if err != nil {
		p.verr.Add(field, "must be a non-negative decimal such as 12.34")
		return nil
	}
	return &d
}

// fraction parses a ratio between 0 and 1 such as an alert threshold.
func (p *moneyParser) fraction(field string, s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*s))
	if err != nil {
		p.verr.Add(field, "must be a decimal between 0 and 1")
		return nil
	}
	return &d
}

// check returns the parse problems merged with the entity's own validation,
// or nil when every field parsed. Parse messages win for a shared field.
func (p *moneyParser) check(validate func() error) error {
	if len(p.verr.Fields) == 0 {
		return nil
	}
	if validate != nil {
		p.verr.Merge(validate())
	}
	return &p.verr
}
