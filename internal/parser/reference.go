package parser

import "regexp"

var (
	labeledReference = regexp.MustCompile(`(?i)(?:เลขที่อ้างอิง|Ref(?:\.|\s)?No\.?|Transaction ID|เลขที่รายการ|รหัสอ้างอิง)[:\s]*([A-Z0-9]{10,})`)
	digitReference   = regexp.MustCompile(`(?:^|\D)(\d{10,30})(?:\D|$)`)
)

var referenceStrategies = []strategy[string]{
	func(text string) (string, bool) { return submatch(labeledReference, text) },
	func(text string) (string, bool) { return submatch(digitReference, text) },
}

// ExtractReference finds the slip's reference or transaction number.
func ExtractReference(text string) (string, bool) {
	return firstSuccess(text, referenceStrategies)
}

func submatch(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}
