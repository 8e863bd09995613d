package i18n

import (
	"net/http"
	"strings"
)

// DefaultLocale is used whenever a request carries no usable language tag.
const DefaultLocale = "en"

var supportedLocales = map[string]struct{}{
	"en": {},
	"de": {},
}

// Supported reports whether emails exist for the given base locale.
func Supported(locale string) bool {
	_, ok := supportedLocales[locale]
	return ok
}

func LocaleFromRequest(r *http.Request) string {
	if r == nil {
		return DefaultLocale
	}
	return NormalizeLocale(r.Header.Get("Accept-Language"))
}

// NormalizeLocale picks the first supported base language out of an
// Accept-Language header. Quality values are ignored; the header order
// stands in for preference.
func NormalizeLocale(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(part, ";")
		lang := baseLang(tag)
		if Supported(lang) {
			return lang
		}
	}
	return DefaultLocale
}

// baseLang reduces a BCP 47 tag like "de-CH" to its primary subtag.
func baseLang(tag string) string {
	lang := strings.ToLower(strings.TrimSpace(tag))
	lang, _, _ = strings.Cut(lang, "-")
	return lang
}
