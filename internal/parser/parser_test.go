package parser

import (
	"testing"

	"github.com/insightdelivered/slip-scanner/internal/models"
)

func TestDetectBank(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected models.BankType
	}{
		{"kbank english", "KASIKORNBANK\nโอนเงินสำเร็จ", models.BankKBank},
		{"kbank thai", "ธนาคารกสิกรไทย", models.BankKBank},
		{"scb", "ธนาคารไทยพาณิชย์\nจำนวนเงิน (Baht)", models.BankSCB},
		{"krungthai", "Krungthai NEXT", models.BankKrungthai},
		{"bbl", "Bangkok Bank Mobile Banking", models.BankBBL},
		{"krungsri card", "บัตรเครดิต/สินเชื่อ กรุงศรี", models.BankKrungsri},
		{"earliest marker wins", "Krungthai\nโอนไป SCB", models.BankKrungthai},
		{"no marker", "some unrelated text", models.BankUnknown},
		{"empty", "", models.BankUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectBank(tt.text)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseBankType(t *testing.T) {
	tests := []struct {
		input    string
		expected models.BankType
		ok       bool
	}{
		{"kbank", models.BankKBank, true},
		{"SCB", models.BankSCB, true},
		{" ktb ", models.BankKrungthai, true},
		{"bbl", models.BankBBL, true},
		{"Krungsri", models.BankKrungsri, true},
		{"", models.BankUnknown, true},
		{"hsbc", models.BankUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseBankType(tt.input)
			if ok != tt.ok || got != tt.expected {
				t.Errorf("ParseBankType(%q): got %q, %v, want %q, %v", tt.input, got, ok, tt.expected, tt.ok)
			}
		})
	}
}
