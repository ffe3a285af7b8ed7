package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/insightdelivered/slip-scanner/internal/models"
)

// An itemized row: a description and a two-decimal amount on the same line,
// optionally followed by a unit (OCR often reads บาท as บาก or ฯ).
var statementRow = regexp.MustCompile(`(?i)([ก-๙a-zA-Z0-9_.()\-:/&' \t]+?)[ \t]+(\d[\d,]*\.\d{2})(?:[ \t]*(?:บาท|THB|บาก|บ|ฯ))?`)

// Date fragments OCR interleaves in front of row names: "05 ธ.ค.", "05 ธ.ค. 66",
// "05/12/2566".
var rowDatePrefix = regexp.MustCompile(`^(?:\d{1,2}/\d{1,2}/\d{2,4}|\d{1,2}\s*(?:[ก-๙]{1,2}\.){1,2}(?:\s*\d{2,4}(?:\s|$))?)\s*`)

var summaryLabelsThai = []string{"จำนวน", "ยอดรวม", "ยอดชำระ", "ยอดเงิน", "คงเหลือ", "ค่าธรรมเนียม", "รวมทั้งสิ้น"}

var summaryLabelsEnglish = regexp.MustCompile(`(?i)\b(?:sub)?total\b|\bamount\b|\bfees?\b|\bbalance\b`)

const cardPaymentSuffix = " (จ่ายบัตร)"

// DetectMultiTransactions finds itemized statement rows in text and turns
// each into an expense. Rows are returned in document order and all carry
// the document's date, or now's date when none is printed. Fee and total
// lines are skipped, so a single slip usually yields nil.
func DetectMultiTransactions(text string, c *Classifier, prefs models.Preferences, now time.Time, newID func() string) []models.Transaction {
	date, ok := ParseDate(text)
	if !ok {
		date = FormatDate(now)
	}

	var rows []models.Transaction
	for _, m := range statementRow.FindAllStringSubmatch(text, -1) {
		name := cleanRowName(m[1])
		if runeLen(name) < 3 || !hasLetter(name) || isSummaryLabel(name) {
			continue
		}
		amount, ok := parseAmount(m[2])
		if !ok || !amount.IsPositive() {
			continue
		}

		rows = append(rows, models.Transaction{
			ID:           newID(),
			Amount:       amount,
			Direction:    models.Expense,
			Category:     c.Classify(name, models.Expense, name, prefs),
			Date:         date,
			Note:         SimplifyMerchantName(name) + cardPaymentSuffix,
			ReceiverName: name,
		})
	}

	return rows
}

func cleanRowName(raw string) string {
	name := strings.TrimSpace(raw)
	name = rowDatePrefix.ReplaceAllString(name, "")
	name = strings.TrimRight(name, ": \t")
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(name), " ")
}

func isSummaryLabel(name string) bool {
	return containsAny(name, summaryLabelsThai) || summaryLabelsEnglish.MatchString(name)
}
