// Package language maps ISO-639-1 codes to display names for the languages
// the service works with.
package language

import "strings"

// names covers the languages the product ships with. Codes outside this table
// still round-trip; Name falls back to the upper-cased code.
var names = map[string]string{
	"ru": "Russian",
	"en": "English",
	"ar": "Arabic",
	"kk": "Kazakh",
	"uk": "Ukrainian",
	"tr": "Turkish",
	"fa": "Persian",
	"ku": "Kurdish",
	"az": "Azerbaijani",
	"hy": "Armenian",
	"ky": "Kyrgyz",
	"tg": "Tajik",
	"uz": "Uzbek",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
}

// Name returns the English display name for a language code.
func Name(code string) string {
	if n, ok := names[Normalize(code)]; ok {
		return n
	}
	return strings.ToUpper(code)
}

// Normalize lower-cases a code and strips any regional subtag ("pt-BR" → "pt").
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}
