package parser

import (
	"regexp"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/slip-scanner/internal/models"
)

// Candidate scores.
const (
	scoreKeyword      = 100
	scoreUnit         = 80
	scoreNumber       = 50
	bonusFraction     = 30
	bonusUnitInText   = 20
	penaltySmallWhole = -50
)

const (
	sourceKeyword = "keyword"
	sourceUnit    = "unit"
	sourceNumber  = "number"
)

var maxAmount = decimal.NewFromInt(1_000_000)

// Labels that usually precede the amount, most specific first.
var amountKeywords = []string{
	"ยอดชำระทั้งหมด", "ยอดรวม", "ยอดชำระ", "จำนวนเงิน", "amount", "total",
	"ชำระเงิน", "paid amount", "บาท",
}

var (
	unitAnchored = regexp.MustCompile(`(?i)(\d[\d,]*\.?\d*)\s*(?:` + alternation(unitTokens) + `)`)
	anyNumber    = regexp.MustCompile(`\d+[\d,.]*`)

	defaultKeywordPattern = keywordPattern(nil)
	bankKeywordPatterns   = map[models.BankType]*regexp.Regexp{}
)

func init() {
	for bank, extra := range bankAmountKeywords {
		bankKeywordPatterns[bank] = keywordPattern(extra)
	}
}

func keywordPattern(extra []string) *regexp.Regexp {
	keywords := append(append([]string{}, extra...), amountKeywords...)
	return regexp.MustCompile(`(?i)(?:` + alternation(keywords) + `)\s*[:\-\s]*(\d[\d,]*\.?\d*)`)
}

// AmountCandidates returns every amount guess found in text, ranked by score
// then value, highest first. bank extends the keyword list with
// bank-specific labels.
func AmountCandidates(text string, bank models.BankType) []models.AmountCandidate {
	var candidates []models.AmountCandidate

	kw := defaultKeywordPattern
	if p, ok := bankKeywordPatterns[bank]; ok {
		kw = p
	}

	// 1. Keyword + number, first match only
	if m := kw.FindStringSubmatch(text); m != nil {
		if val, ok := parseAmount(m[1]); ok && val.IsPositive() {
			candidates = append(candidates, models.AmountCandidate{Value: val, Score: scoreKeyword, Source: sourceKeyword})
		}
	}

	// 2. Number + unit, first match only
	if m := unitAnchored.FindStringSubmatch(text); m != nil {
		if val, ok := parseAmount(m[1]); ok && val.IsPositive() {
			candidates = append(candidates, models.AmountCandidate{Value: val, Score: scoreUnit, Source: sourceUnit})
		}
	}

	// 3. Anything that looks like a number
	hasUnit := containsUnit(text)
	for _, raw := range anyNumber.FindAllString(text, -1) {
		val, ok := parseAmount(raw)
		if !ok || !val.IsPositive() || val.GreaterThan(maxAmount) {
			continue
		}

		score := scoreNumber
		whole := !hasFraction(raw)
		if !whole {
			score += bonusFraction
		}
		if hasUnit {
			score += bonusUnitInText
		}
		// Small whole numbers are usually counters or list indices
		if whole && val.LessThan(decimal.NewFromInt(10)) {
			score += penaltySmallWhole
		}
		candidates = append(candidates, models.AmountCandidate{Value: val, Score: score, Source: sourceNumber})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Value.GreaterThan(candidates[j].Value)
	})

	return candidates
}

// ExtractAmount picks the most plausible transaction amount. A zero result
// means extraction failed, not a zero-value transaction.
func ExtractAmount(text string, bank models.BankType) decimal.Decimal {
	return selectAmount(AmountCandidates(text, bank))
}

// selectAmount takes the best anchored guess when there is one. Generic
// numbers can outscore a unit-anchored value, but unit proximity is the more
// reliable signal on slip layouts.
func selectAmount(ranked []models.AmountCandidate) decimal.Decimal {
	if len(ranked) == 0 {
		return decimal.Zero
	}
	for _, c := range ranked {
		if c.Source != sourceNumber && c.Score >= scoreUnit {
			return c.Value
		}
	}
	return ranked[0].Value
}

func hasFraction(raw string) bool {
	for i := 0; i < len(raw)-1; i++ {
		if raw[i] == '.' {
			return true
		}
	}
	return false
}
