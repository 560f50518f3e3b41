package main

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"1234.5", "USD", "$1,234.50"},
		{"0.005", "EUR", "€0.01"},
		{"-12.34", "USD", "-$12.34"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			if got := formatMoney(decimal.RequireFromString(tt.amount), tt.currency); got != tt.want {
				t.Errorf("formatMoney(%s, %s) = %q, want %q", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}

func TestIDArg(t *testing.T) {
	if id, err := idArg([]string{"42"}, "account id"); err != nil || id != 42 {
		t.Errorf("idArg = %d, %v", id, err)
	}
	for _, args := range [][]string{nil, {"0"}, {"x"}, {"1", "2"}} {
		if _, err := idArg(args, "account id"); err == nil {
			t.Errorf("idArg(%v) should fail", args)
		}
	}
}
