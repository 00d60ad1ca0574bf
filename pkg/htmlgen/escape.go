package htmlgen

import (
	"html"
	"strings"

	"github.com/Notifuse/designer/pkg/sanitize"
)

// escapeText escapes plain text for insertion between tags
func escapeText(s string) string {
	return html.EscapeString(s)
}

// escapeAttr escapes an attribute value. Ampersands of absolute URLs are kept so
// query strings survive copy and paste from the exported file.
func escapeAttr(value string, name string) string {
	isURLAttribute := name == "src" || name == "href"
	looksLikeURL := strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") || strings.HasPrefix(value, "//")

	if !(isURLAttribute && looksLikeURL) {
		value = strings.ReplaceAll(value, "&", "&amp;")
	}
	value = strings.ReplaceAll(value, "\"", "&quot;")
	value = strings.ReplaceAll(value, "'", "&#39;")
	value = strings.ReplaceAll(value, "<", "&lt;")
	value = strings.ReplaceAll(value, ">", "&gt;")
	return value
}

// safeHref returns the link when it uses an allowed scheme, "#" otherwise
func safeHref(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || !sanitize.IsSafeURL(href, false) {
		return "#"
	}
	return href
}

// safeSrc returns the image source when it uses an allowed scheme, "" otherwise
func safeSrc(src string) string {
	src = strings.TrimSpace(src)
	if src == "" || !sanitize.IsSafeURL(src, true) {
		return ""
	}
	return src
}

// attr formats a single name="value" pair with a leading space
func attr(name, value string) string {
	return " " + name + `="` + escapeAttr(value, name) + `"`
}

// classToken turns an arbitrary id into a CSS class-safe token
func classToken(id string) string {
	var b strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
