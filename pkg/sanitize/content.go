package sanitize

import (
	"net/url"
	"strings"

	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/asaskevich/govalidator"
)

// IsValidURL reports whether s is a well-formed absolute http or https URL.
// Social icons use it for their validity indicator.
func IsValidURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || !govalidator.IsRequestURL(s) || !govalidator.IsURL(s) {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Content returns a copy of the payload with every rich-text field sanitized
func Content(c blocks.Content) blocks.Content {
	switch v := c.(type) {
	case blocks.TextContent:
		v.Text = HTML(v.Text)
		return v
	case blocks.HeadingContent:
		v.Text = HTML(v.Text)
		return v
	case blocks.QuoteContent:
		v.Text = HTML(v.Text)
		return v
	case blocks.FooterContent:
		v.Text = HTML(v.Text)
		return v
	case blocks.ColumnsContent:
		columns := make([]blocks.Column, len(v.Columns))
		for i, col := range v.Columns {
			columns[i] = blocks.Column{Text: HTML(col.Text)}
		}
		v.Columns = columns
		return v
	}
	return c
}

// Block returns the block with its content sanitized
func Block(b blocks.Block) blocks.Block {
	b.Content = Content(b.ContentOrDefault())
	return b
}
