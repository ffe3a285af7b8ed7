package parser

import (
	"regexp"
	"strings"
	"unicode"
)

// Characters a counterparty name may contain on a single line.
const nameChars = `[ก-๙A-Za-z0-9 \t./\-()#&']`

// Phrase-anchored patterns, in priority order. The name runs until a
// stop-word or the end of its line.
var receiverPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?m)ไปยัง[\s:]*(` + nameChars + `+?)[ \t]*(?:บัญชี|เลขที่|Biller|` + maskedAccountPattern + `|$)`),
	regexp.MustCompile(`(?m)\bTo\b[\s:]*(` + nameChars + `+?)[ \t]*(?:Account|Number|Biller|` + maskedAccountPattern + `|$)`),
	regexp.MustCompile(`(?m)รับเงินโดย[\s:]*(` + nameChars + `+?)[ \t]*$`),
	regexp.MustCompile(`(?m)Transfer to[\s:]*(` + nameChars + `+?)[ \t]*$`),
	regexp.MustCompile(`(?m)ชำระค่า[\s:]*(` + nameChars + `+?)[ \t]*$`),
	regexp.MustCompile(`(?m)จ่ายบิล[\s:]*(` + nameChars + `+?)[ \t]*(?:สำเร็จ|$)`),
}

// Account-type words that phrase patterns sometimes capture instead of a name.
var genericAccountWords = []string{"ออมทรัพย์", "Savings", "Account", "Bank", "บัญชี"}

// Lines that carry slip boilerplate rather than a name.
var boilerplateMarkers = []string{"ไปยัง", "To", "โอนเงิน", "เงินสด", "สำเร็จ"}

// Masked account numbers such as xxx-x-x1234-x or 123-4-56789-0
const maskedAccountPattern = `[Xx\d]{3}-[Xx\d]-[Xx\d]{5}-[Xx\d]|[Xx\d]{3}-[Xx\d]{1,2}-[Xx\d]{4,6}-[Xx\d]`

var (
	maskedAccount = regexp.MustCompile(maskedAccountPattern)

	nameAboveAccount = regexp.MustCompile(`([ก-๙A-Za-z ./]+)[ \t]*\n[ \t]*(?:` + maskedAccount.String() + `)`)
	billerPattern    = regexp.MustCompile(`(?:ไปยัง|To)[\s:]*([ก-๙A-Za-z0-9 .]+?)\s+Biller ID`)
)

// Header text (bank name, slip title) sits above this offset on most slips.
const minAdjacencyOffset = 50

var receiverStrategies = []strategy[string]{
	receiverFromPhrase,
	receiverFromAccounts,
	receiverAboveAccount,
	receiverFromBiller,
}

// ExtractReceiver finds the counterparty name on a slip.
func ExtractReceiver(text string) (string, bool) {
	return firstSuccess(text, receiverStrategies)
}

func receiverFromPhrase(text string) (string, bool) {
	for _, re := range receiverPhrases {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if runeLen(name) <= 2 || isGenericAccountWord(name) || !hasLetter(name) {
			continue
		}
		if name = cleanName(name); runeLen(name) > 2 {
			return name, true
		}
	}
	return "", false
}

// receiverFromAccounts handles sender/receiver layouts with two masked
// account numbers: the receiver's name is the last meaningful line before
// the second one.
func receiverFromAccounts(text string) (string, bool) {
	accounts := maskedAccount.FindAllStringIndex(text, -1)
	if len(accounts) < 2 {
		return "", false
	}

	lines := strings.Split(text[:accounts[1][0]], "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if runeLen(line) <= 2 || containsAny(line, boilerplateMarkers) {
			continue
		}
		if maskedAccount.MatchString(line) || !hasLetter(line) {
			continue
		}
		if name := cleanName(line); runeLen(name) > 2 {
			return name, true
		}
	}
	return "", false
}

func receiverAboveAccount(text string) (string, bool) {
	for _, loc := range nameAboveAccount.FindAllStringSubmatchIndex(text, -1) {
		if runeLen(text[:loc[0]]) <= minAdjacencyOffset {
			continue
		}
		if name := cleanName(text[loc[2]:loc[3]]); runeLen(name) > 2 {
			return name, true
		}
	}
	return "", false
}

func receiverFromBiller(text string) (string, bool) {
	m := billerPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if name := cleanName(m[1]); runeLen(name) > 2 {
		return name, true
	}
	return "", false
}

func isGenericAccountWord(name string) bool {
	for _, w := range genericAccountWords {
		if name == w {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
