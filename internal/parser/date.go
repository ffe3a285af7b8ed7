package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// buddhistEraOffset converts a Gregorian year to the Thai Buddhist era.
const buddhistEraOffset = 543

// Years below this are taken as Gregorian.
const minBuddhistYear = 2400

type thaiMonth struct {
	token string
	month int
}

// Thai month names, abbreviated and full.
var thaiMonths = []thaiMonth{
	{"ม.ค.", 1}, {"ก.พ.", 2}, {"มี.ค.", 3}, {"เม.ย.", 4}, {"พ.ค.", 5}, {"มิ.ย.", 6},
	{"ก.ค.", 7}, {"ส.ค.", 8}, {"ก.ย.", 9}, {"ต.ค.", 10}, {"พ.ย.", 11}, {"ธ.ค.", 12},
	{"มกราคม", 1}, {"กุมภาพันธ์", 2}, {"มีนาคม", 3}, {"เมษายน", 4}, {"พฤษภาคม", 5}, {"มิถุนายน", 6},
	{"กรกฎาคม", 7}, {"สิงหาคม", 8}, {"กันยายน", 9}, {"ตุลาคม", 10}, {"พฤศจิกายน", 11}, {"ธันวาคม", 12},
}

var englishMonths = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var (
	slashDate   = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	thaiDate    = regexp.MustCompile(`(\d{1,2})\s*(` + thaiMonthPattern() + `)\s*(\d{2,4})`)
	englishDate = regexp.MustCompile(`(\d{1,2})\s*([A-Za-z]{3,})\s*(\d{2,4})`)

	thaiMonthLookup = buildThaiMonthLookup()
)

var dateStrategies = []strategy[string]{
	parseSlashDate,
	parseThaiDate,
	parseEnglishDate,
}

// ParseDate finds a date in text and returns it as DD/MM/YYYY in the
// Buddhist era. Slash dates are tried first, then Thai month names, then
// English month names.
func ParseDate(text string) (string, bool) {
	return firstSuccess(text, dateStrategies)
}

// FormatDate renders t in the same canonical form ParseDate produces.
func FormatDate(t time.Time) string {
	return formatDate(t.Day(), int(t.Month()), t.Year()+buddhistEraOffset)
}

func parseSlashDate(text string) (string, bool) {
	for _, m := range slashDate.FindAllStringSubmatch(text, -1) {
		day, month, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if !validDayMonth(day, month) {
			continue
		}
		if year < minBuddhistYear {
			year += buddhistEraOffset
		}
		return formatDate(day, month, year), true
	}
	return "", false
}

func parseThaiDate(text string) (string, bool) {
	for _, m := range thaiDate.FindAllStringSubmatch(text, -1) {
		day, year := atoi(m[1]), atoi(m[3])
		month, ok := thaiMonthLookup[strings.ReplaceAll(m[2], ".", "")]
		if !ok || !validDayMonth(day, month) {
			continue
		}
		switch {
		case year < 100:
			// two-digit shorthand is already Buddhist era: 66 -> 2566
			year += 2500
		case year < minBuddhistYear:
			year += buddhistEraOffset
		}
		return formatDate(day, month, year), true
	}
	return "", false
}

func parseEnglishDate(text string) (string, bool) {
	for _, m := range englishDate.FindAllStringSubmatch(text, -1) {
		month, ok := englishMonths[strings.ToLower(m[2][:3])]
		if !ok {
			continue
		}
		day, year := atoi(m[1]), atoi(m[3])
		if !validDayMonth(day, month) {
			continue
		}
		if year < 100 {
			year += 2000
		}
		return formatDate(day, month, year+buddhistEraOffset), true
	}
	return "", false
}

// thaiMonthPattern accepts abbreviations with or without the trailing dot,
// which OCR tends to lose.
func thaiMonthPattern() string {
	alts := make([]string, 0, len(thaiMonths))
	for _, tm := range thaiMonths {
		p := regexp.QuoteMeta(tm.token)
		if strings.HasSuffix(tm.token, ".") {
			p = strings.TrimSuffix(p, `\.`) + `\.?`
		}
		alts = append(alts, p)
	}
	return strings.Join(alts, "|")
}

func buildThaiMonthLookup() map[string]int {
	lookup := make(map[string]int, len(thaiMonths))
	for _, tm := range thaiMonths {
		lookup[strings.ReplaceAll(tm.token, ".", "")] = tm.month
	}
	return lookup
}

func validDayMonth(day, month int) bool {
	return day >= 1 && day <= 31 && month >= 1 && month <= 12
}

func formatDate(day, month, year int) string {
	return fmt.Sprintf("%02d/%02d/%d", day, month, year)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
