package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/slip-scanner/internal/models"
)

// ParsedEntry is the result of reading a quick-entry sentence such as
// "กินข้าว 60 บาท".
type ParsedEntry struct {
	Amount    decimal.Decimal  `json:"amount"`
	Direction models.Direction `json:"type"`
	Category  string           `json:"category"`
	Note      string           `json:"note"`
}

// Words that turn a sentence into income.
var incomeWords = []string{
	"เงินเดือน", "ได้เงิน", "เข้า", "รายรับ", "โอนเข้า", "ถอนเงิน", "ค่าคอม",
	"รับ", "รับเงิน", "ขาย", "ขายของ", "ขายได้", "กำไร", "โบนัส", "ทิป",
	"ถูกหวย", "สลาก", "ปันผล", "มรดก", "คืนเงิน",
}

type categoryAlias struct {
	key      string
	category string
}

// Shorthand accepted after the "หมวด" marker, first contained key wins.
var categoryAliases = []categoryAlias{
	{"อาหาร", CategoryFood},
	{"กิน", CategoryFood},
	{"ทอด", CategoryFood},
	{"ย่าง", CategoryFood},
	{"ปิ้ง", CategoryFood},
	{"เดินทาง", CategoryTransport},
	{"รถ", CategoryTransport},
	{"จำเป็น", CategoryEssentials},
	{"ใช้จ่าย", CategoryEssentials},
	{"สุขภาพ", CategoryHealth},
	{"ยา", CategoryHealth},
	{"หนี้", CategoryCredit},
	{"บัตร", CategoryCredit},
	{"บันเทิง", CategoryEntertainment},
	{"เกม", CategoryEntertainment},
	{"ช้อปปิ้ง", CategoryShopping},
	{"ซื้อของ", CategoryShopping},
	{"บ้าน", CategoryEssentials},
	{"น้ำไฟ", CategoryUtilities},
}

const (
	placeholderIncome  = "รายรับเพิ่มขึ้น"
	placeholderExpense = "รายจ่ายใหม่"
)

var (
	entryNumber     = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	categoryMarker  = regexp.MustCompile(`หมวด\s*([ก-๙a-zA-Z]+)`)
	entryUnitTokens = regexp.MustCompile(`(?i)บาท|บ\.|baht|thb|฿`)
)

// ParseNaturalLanguage reads a short free-text entry. The first number is
// the amount; a sentence without a positive number is not a transaction.
func ParseNaturalLanguage(sentence string, c *Classifier) (ParsedEntry, bool) {
	sentence = NormalizeText(sentence)

	raw := entryNumber.FindString(sentence)
	amount, ok := parseAmount(raw)
	if !ok || !amount.IsPositive() {
		return ParsedEntry{}, false
	}

	dir := models.Expense
	if containsAny(sentence, incomeWords) {
		dir = models.Income
	}

	category := c.Classify(sentence, dir, "", nil)
	if m := categoryMarker.FindStringSubmatch(sentence); m != nil {
		for _, a := range categoryAliases {
			if strings.Contains(m[1], a.key) {
				category = a.category
				break
			}
		}
	}

	return ParsedEntry{
		Amount:    amount,
		Direction: dir,
		Category:  category,
		Note:      entryNote(sentence, dir),
	}, true
}

func entryNote(sentence string, dir models.Direction) string {
	note := categoryMarker.ReplaceAllString(sentence, "")
	note = entryNumber.ReplaceAllString(note, "")
	note = entryUnitTokens.ReplaceAllString(note, "")
	note = strings.TrimSpace(whitespaceRun.ReplaceAllString(note, " "))
	if note != "" {
		return note
	}
	if dir == models.Income {
		return placeholderIncome
	}
	return placeholderExpense
}
