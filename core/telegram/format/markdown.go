package format

import (
	"fmt"
	"strings"
)

const mdV2Specials = "_*[]()~`>#+-=|{}.!\\"

// Escape escapes text for MarkdownV2.
func Escape(text string) string {
	return escapeWith(text, mdV2Specials)
}

// Escapef formats and then escapes the result for MarkdownV2.
func Escapef(layout string, args ...any) string {
	return Escape(fmt.Sprintf(layout, args...))
}

// Bold wraps escaped text in MarkdownV2 bold markers.
func Bold(text string) string {
	return "*" + Escape(text) + "*"
}

// Italic wraps escaped text in MarkdownV2 italic markers.
func Italic(text string) string {
	return "_" + Escape(text) + "_"
}

// Link renders an inline MarkdownV2 link. Only ')' and '\' need escaping
// inside the URL part.
func Link(label, url string) string {
	url = strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(url)
	return "[" + Escape(label) + "](" + url + ")"
}

func escapeWith(text, specials string) string {
	var b strings.Builder
	b.Grow(len(text) + 8)
	for _, r := range text {
		if strings.ContainsRune(specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
