package email

import (
	"html"
	"strings"
)

// Render substitutes {{key}} placeholders with values from data.
// Placeholders without a matching key are left untouched. When
// escapeHTML is set, substituted values are HTML-escaped; template
// text itself is trusted and passed through as-is.
func Render(tmpl string, data map[string]string, escapeHTML bool) string {
	if len(data) == 0 {
		return tmpl
	}

	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		if escapeHTML {
			value = html.EscapeString(value)
		}
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
