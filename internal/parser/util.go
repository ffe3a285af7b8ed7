package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Units that usually follow an amount on Thai slips.
var unitTokens = []string{"บาท", "baht", "thb", "฿"}

var (
	// 3-5 digit groups left in names by OCR (branch codes, masked account tails)
	nameDigitGroup = regexp.MustCompile(`\b\d{3,5}\b`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

var ocrReplacer = strings.NewReplacer(
	"\u200b", "", // zero-width space
	"\ufeff", "",
	"\u00a0", " ",
	"\u0e4d\u0e32", "\u0e33", // NIKHAHIT + SARA AA read as two glyphs instead of SARA AM
	"๐", "0", "๑", "1", "๒", "2", "๓", "3", "๔", "4",
	"๕", "5", "๖", "6", "๗", "7", "๘", "8", "๙", "9",
)

// NormalizeText cleans up common OCR artifacts before extraction: full-width
// forms are folded, the text is NFC-normalized, Thai digits become ASCII and
// invisible characters are dropped. Line structure is preserved.
func NormalizeText(text string) string {
	text = width.Fold.String(text)
	text = norm.NFC.String(text)
	text = ocrReplacer.Replace(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// parseAmount converts a string like "1,234.56" or "฿60" to a decimal.
// The boolean is false when nothing numeric could be read.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "฿", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSuffix(s, ".")

	if s == "" || s == "." {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// cleanName strips masked account numbers and embedded digit groups, then
// collapses whitespace.
func cleanName(name string) string {
	name = maskedAccount.ReplaceAllString(name, "")
	name = nameDigitGroup.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// runeLen counts characters, not bytes; Thai takes three bytes per rune.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func containsUnit(text string) bool {
	return containsAny(strings.ToLower(text), unitTokens)
}

// strategy is a single extraction attempt over the whole text.
type strategy[T any] func(text string) (T, bool)

// firstSuccess runs strategies in order and returns the first hit.
func firstSuccess[T any](text string, strategies []strategy[T]) (T, bool) {
	for _, try := range strategies {
		if v, ok := try(text); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// alternation builds a regexp alternation of literal phrases.
func alternation(phrases []string) string {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(quoted, "|")
}
