package htmlgen

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
	"github.com/Notifuse/designer/pkg/sanitize"
)

// ErrNoBlockMarkers is returned when the HTML carries no data-block-type markers
var ErrNoBlockMarkers = errors.New("no designer blocks found in html")

var heightPattern = regexp.MustCompile(`(?:^|;)\s*height:\s*(\d+)px`)

// ParseHTML reads back an export produced with IncludeBlockMarkers. Ids, types and
// the core content of text, heading, quote, footer, image, button, spacer and
// columns blocks are restored; other types come back with their default content.
// Styles are not reconstructed. Imported rich text is sanitized.
func ParseHTML(input string) (document.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return nil, err
	}

	root := doc.Find(".email-container").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	items := root.ChildrenFiltered("[data-block-type]")
	if items.Length() == 0 {
		return nil, ErrNoBlockMarkers
	}

	out := make(document.Document, 0, items.Length())
	items.Each(func(i int, sel *goquery.Selection) {
		blockType := blocks.BlockType(strings.TrimSpace(sel.AttrOr("data-block-type", "")))
		block := blocks.New(blockType)
		if id := strings.TrimSpace(sel.AttrOr("data-block-id", "")); id != "" {
			block.ID = id
		}
		block.Content = sanitize.Content(importContent(block, sel))
		block.Position = blocks.Position{Y: i * document.RowHeight}
		out = append(out, block)
	})

	out, _ = document.EnsureUniqueIDs(out)
	return out, nil
}

func innerHTML(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	h, err := sel.Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(h)
}

func atoiAttr(sel *goquery.Selection, name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(sel.AttrOr(name, "")))
	if err != nil {
		return 0
	}
	return v
}

func importContent(block blocks.Block, sel *goquery.Selection) blocks.Content {
	switch c := block.ContentOrDefault().(type) {
	case blocks.TextContent:
		inner := sel.ChildrenFiltered("p, div, span").First()
		if inner.Length() > 0 {
			c.Tag = goquery.NodeName(inner)
			c.Text = innerHTML(inner)
		}
		return c
	case blocks.HeadingContent:
		h := sel.ChildrenFiltered("h1, h2, h3, h4, h5, h6").First()
		if h.Length() > 0 {
			c.Level, _ = strconv.Atoi(strings.TrimPrefix(goquery.NodeName(h), "h"))
			c.Text = innerHTML(h)
		}
		return c
	case blocks.QuoteContent:
		c.Text = innerHTML(sel.ChildrenFiltered("blockquote").First())
		author := strings.TrimSpace(sel.ChildrenFiltered(".quote-author").Text())
		c.Author = strings.TrimSpace(strings.TrimPrefix(author, "—"))
		return c
	case blocks.FooterContent:
		c.Text = innerHTML(sel.ChildrenFiltered(".footer-text").First())
		return c
	case blocks.ImageContent:
		img := sel.Find("img").First()
		if img.Length() == 0 {
			c.Src = ""
			return c
		}
		c.Src = img.AttrOr("src", "")
		c.Alt = img.AttrOr("alt", "")
		c.Width = atoiAttr(img, "width")
		c.Height = atoiAttr(img, "height")
		if link := sel.ChildrenFiltered("a").First(); link.Length() > 0 {
			c.Link = link.AttrOr("href", "")
		}
		return c
	case blocks.ButtonContent:
		a := sel.Find("a").First()
		if a.Length() > 0 {
			c.Text = strings.TrimSpace(a.Text())
			c.Href = a.AttrOr("data-href", a.AttrOr("href", c.Href))
			c.Target = a.AttrOr("target", "_self")
		}
		return c
	case blocks.SpacerContent:
		style := sel.Find(".spacer").First().AttrOr("style", "")
		if m := heightPattern.FindStringSubmatch(style); len(m) == 2 {
			c.Height, _ = strconv.Atoi(m[1])
		}
		return c
	case blocks.ColumnsContent:
		cols := sel.Find(".column")
		if cols.Length() > 0 {
			c.Columns = make([]blocks.Column, 0, cols.Length())
			cols.Each(func(_ int, col *goquery.Selection) {
				c.Columns = append(c.Columns, blocks.Column{Text: innerHTML(col)})
			})
		}
		return c
	default:
		return c
	}
}
