// Package parser turns recognized slip and statement text into transaction
// records. Every function here is pure: the same text, preference snapshot
// and clock always give the same result, and malformed input degrades to a
// "not found" value instead of an error.
package parser

import (
	"strings"

	"github.com/insightdelivered/slip-scanner/internal/models"
)

type bankMarker struct {
	bank    models.BankType
	markers []string
}

// Institution markers, English and Thai. Matching is case-sensitive: short
// acronyms like "SCB" would otherwise hit ordinary words.
var bankMarkers = []bankMarker{
	{models.BankKBank, []string{"KASIKORNBANK", "กสิกรไทย"}},
	{models.BankSCB, []string{"SCB", "ไทยพาณิชย์"}},
	{models.BankKrungthai, []string{"Krungthai", "กรุงไทย"}},
	{models.BankBBL, []string{"Bangkok Bank", "กรุงเทพ"}},
	{models.BankKrungsri, []string{"Krungsri", "บัตรเครดิต/สินเชื่อ"}},
}

// Bank-specific labels that precede the amount.
var bankAmountKeywords = map[models.BankType][]string{
	models.BankKBank: {"จำนวน:"},
	models.BankSCB:   {"จำนวนเงิน (Baht)"},
}

// DetectBank identifies the issuing bank from marker substrings. The marker
// that appears earliest in the document wins; equal positions fall back to
// table order.
func DetectBank(text string) models.BankType {
	best := models.BankUnknown
	bestPos := -1

	for _, bm := range bankMarkers {
		for _, marker := range bm.markers {
			pos := strings.Index(text, marker)
			if pos < 0 {
				continue
			}
			if bestPos < 0 || pos < bestPos {
				best = bm.bank
				bestPos = pos
			}
		}
	}

	return best
}

// ParseBankType maps a user-supplied bank hint to a BankType.
func ParseBankType(s string) (models.BankType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kbank", "kasikorn", "kasikornbank":
		return models.BankKBank, true
	case "scb":
		return models.BankSCB, true
	case "krungthai", "ktb":
		return models.BankKrungthai, true
	case "bbl", "bangkok", "bangkokbank":
		return models.BankBBL, true
	case "krungsri", "bay":
		return models.BankKrungsri, true
	case "unknown", "":
		return models.BankUnknown, true
	}
	return models.BankUnknown, false
}
