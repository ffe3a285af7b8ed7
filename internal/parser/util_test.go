package parser

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"25.99", "25.99", true},
		{"1,234.56", "1234.56", true},
		{"฿60", "60", true},
		{"1,234,567.89", "1234567.89", true},
		{"0.00", "0", true},
		{"500.", "500", true},
		{" 25.99 ", "25.99", true},
		{"", "0", false},
		{".", "0", false},
		{"abc", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseAmount(tt.input)
			if ok != tt.ok {
				t.Fatalf("parseAmount(%q) ok: got %v, want %v", tt.input, ok, tt.ok)
			}
			if !got.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"thai digits", "ยอด ๑,๒๓๔.๕๐ บาท", "ยอด 1,234.50 บาท"},
		{"split sara am", "จ\u0e4d\u0e32นวน", "จ\u0e33นวน"},
		{"full width", "\uff11\uff12\uff13 \uff34\uff28\uff22", "123 THB"},
		{"zero width and nbsp", "ไปยัง\u200b\u00a0นาย ก", "ไปยัง นาย ก"},
		{"line endings", "a\r\nb\rc", "a\nb\nc"},
		{"plain text untouched", "KASIKORNBANK\nไปยัง", "KASIKORNBANK\nไปยัง"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeText(tt.input)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  นาย สมชาย   ใจดี  ", "นาย สมชาย ใจดี"},
		{"ร้าน 1234 ข้าวมันไก่", "ร้าน ข้าวมันไก่"},
		{"SHOP 12 ONE", "SHOP 12 ONE"},
		{"STORE 123456", "STORE 123456"},
		{"Somchai Jaidee xxx-x-x1234-x", "Somchai Jaidee"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := cleanName(tt.input)
			if got != tt.expected {
				t.Errorf("cleanName(%q): got %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFirstSuccess(t *testing.T) {
	var calls []string
	try := func(name string, ok bool) strategy[string] {
		return func(string) (string, bool) {
			calls = append(calls, name)
			return name, ok
		}
	}

	got, ok := firstSuccess("text", []strategy[string]{try("a", false), try("b", true), try("c", true)})
	if !ok || got != "b" {
		t.Errorf("got %q, %v, want %q, true", got, ok, "b")
	}
	if len(calls) != 2 {
		t.Errorf("strategies after the first success should not run, calls: %v", calls)
	}

	if _, ok := firstSuccess("text", []strategy[string]{try("x", false)}); ok {
		t.Error("expected no result when every strategy fails")
	}
}
