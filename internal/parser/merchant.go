package parser

import "strings"

type merchantAlias struct {
	markers []string // upper-case substrings
	label   string
}

// Checked in order. The two-letter codes go last; they hit almost anything.
var merchantAliases = []merchantAlias{
	{[]string{"PT ", "PT."}, "เติมน้ำมัน PT"},
	{[]string{"SHELL"}, "เติมน้ำมัน Shell"},
	{[]string{"BANGCHAK"}, "เติมน้ำมัน บางจาก"},
	{[]string{"PTT"}, "เติมน้ำมัน PTT"},
	{[]string{"CALTEX"}, "เติมน้ำมัน Caltex"},
	{[]string{"ESSO"}, "เติมน้ำมัน Esso"},
	{[]string{"TOYOTA"}, "เช็ครถ TOYOTA"},
	{[]string{"ALLIANZ", "KGIB"}, "ประกัน Allianz"},
	{[]string{"MSIG"}, "ประกัน MSIG"},
	{[]string{"BANGKOK LIFE"}, "ประกัน Bangkok Life"},
	{[]string{"7-ELEVEN"}, "7-Eleven"},
	{[]string{"LOTUS"}, "Lotus"},
	{[]string{"BIGC"}, "BigC"},
	{[]string{"WATSON"}, "Watson"},
	{[]string{"CJ"}, "CJ"},
	{[]string{"CP"}, "CP"},
}

// SimplifyMerchantName maps statement descriptors of well-known merchants
// ("PTT STATION RAMA 9", "SHELL-SUKHUMVIT") to a short display label. Unknown
// names are returned unchanged.
func SimplifyMerchantName(name string) string {
	upper := strings.ToUpper(name)
	for _, a := range merchantAliases {
		if containsAny(upper, a.markers) {
			return a.label
		}
	}
	return name
}
