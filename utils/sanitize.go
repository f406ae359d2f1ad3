package utils

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	textPolicy   = bluemonday.NewPolicy().AllowElements("p", "br")
)

// StripTags removes every HTML tag from user input.
func StripTags(input string) string {
	return html.UnescapeString(strictPolicy.Sanitize(input))
}

// Linebreaks renders plain text as paragraphs: blank lines split paragraphs,
// single newlines become <br>. Input is escaped first.
func Linebreaks(text string) template.HTML {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	if text == "" {
		return ""
	}
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.Trim(para, "\n")
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i := range lines {
			lines[i] = html.EscapeString(lines[i])
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>\n")
	}
	return template.HTML(textPolicy.Sanitize(b.String()))
}

// Truncatewords keeps the first n words and appends an ellipsis when text was cut.
func Truncatewords(text string, n int) string {
	words := strings.Fields(text)
	if n <= 0 || len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " …"
}
