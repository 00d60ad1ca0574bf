package htmlgen

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	mjmlgo "github.com/Boostport/mjml-go"
	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
)

// mjmlNode is one MJML element. Attributes keep insertion order so output is stable.
type mjmlNode struct {
	tag      string
	attrs    [][2]string
	content  string
	raw      bool
	children []*mjmlNode
}

func newNode(tag string) *mjmlNode {
	return &mjmlNode{tag: tag}
}

func (n *mjmlNode) set(name, value string) *mjmlNode {
	if strings.TrimSpace(value) != "" {
		n.attrs = append(n.attrs, [2]string{name, value})
	}
	return n
}

func (n *mjmlNode) add(children ...*mjmlNode) *mjmlNode {
	n.children = append(n.children, children...)
	return n
}

func (n *mjmlNode) text(content string, raw bool) *mjmlNode {
	n.content = content
	n.raw = raw
	return n
}

func (n *mjmlNode) write(b *strings.Builder, indentLevel int) {
	indent := strings.Repeat("  ", indentLevel)
	var attrs strings.Builder
	for _, a := range n.attrs {
		attrs.WriteString(attr(a[0], a[1]))
	}

	if len(n.children) == 0 {
		if n.content == "" {
			fmt.Fprintf(b, "%s<%s%s />\n", indent, n.tag, attrs.String())
			return
		}
		content := n.content
		if !n.raw {
			content = escapeText(content)
		}
		fmt.Fprintf(b, "%s<%s%s>%s</%s>\n", indent, n.tag, attrs.String(), content, n.tag)
		return
	}

	fmt.Fprintf(b, "%s<%s%s>\n", indent, n.tag, attrs.String())
	for _, child := range n.children {
		child.write(b, indentLevel+1)
	}
	fmt.Fprintf(b, "%s</%s>\n", indent, n.tag)
}

// GenerateMJML converts the document to MJML markup, one section per block.
// Blocks without an MJML counterpart are embedded as mj-raw HTML.
func GenerateMJML(doc document.Document, settings ExportSettings) string {
	settings = settings.WithDefaults()
	now := time.Now()
	if settings.Now != nil {
		now = settings.Now()
	}
	ctx := renderContext{mode: blocks.PreviewModeDesktop, export: true, now: now}

	head := newNode("mj-head").add(
		newNode("mj-title").text(settings.Title, false),
		newNode("mj-attributes").add(
			newNode("mj-all").set("font-family", settings.FontFamily),
		),
		newNode("mj-breakpoint").set("width", fmt.Sprintf("%dpx", settings.Breakpoint)),
	)
	if strings.TrimSpace(settings.PreviewText) != "" {
		head.add(newNode("mj-preview").text(settings.PreviewText, false))
	}

	body := newNode("mj-body").
		set("width", fmt.Sprintf("%dpx", settings.MaxWidth)).
		set("background-color", settings.BackgroundColor)
	for _, block := range doc {
		body.add(blockSection(block, ctx, settings))
	}

	root := newNode("mjml").add(head, body)
	var b strings.Builder
	root.write(&b, 0)
	return b.String()
}

// CompileMJML compiles MJML markup into email-client-safe HTML
func CompileMJML(ctx context.Context, mjml string) (string, error) {
	out, err := mjmlgo.ToHTML(ctx, mjml)
	if err != nil {
		return "", fmt.Errorf("failed to compile mjml: %w", err)
	}
	return out, nil
}

func px(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v) + "px"
}

func spacing(v *blocks.Spacing) string {
	if v == nil {
		return ""
	}
	return v.CSS()
}

func str(v *string) string {
	if v == nil || !safeCSSValue(*v) {
		return ""
	}
	return *v
}

func textNode(tag string, s blocks.Styles, content string) *mjmlNode {
	n := newNode(tag).
		set("color", str(s.Color)).
		set("font-size", px(s.FontSize)).
		set("font-family", str(s.FontFamily)).
		set("font-weight", str(s.FontWeight)).
		set("font-style", str(s.FontStyle)).
		set("align", str(s.TextAlign)).
		set("padding", spacing(s.Padding)).
		set("container-background-color", str(s.BackgroundColor))
	if s.LineHeight != nil && *s.LineHeight > 0 {
		n.set("line-height", strconv.FormatFloat(*s.LineHeight, 'f', -1, 64))
	}
	return n.text(content, true)
}

func blockSection(block blocks.Block, ctx renderContext, settings ExportSettings) *mjmlNode {
	s := blocks.EffectiveStyles(block, blocks.PreviewModeDesktop)
	section := newNode("mj-section").set("padding", "0").set("css-class", "block-"+classToken(string(block.Type)))
	column := newNode("mj-column")

	switch c := block.ContentOrDefault().(type) {
	case blocks.TextContent:
		column.add(textNode("mj-text", s, renderText(c, ctx)))
	case blocks.HeadingContent:
		column.add(textNode("mj-text", s, renderHeading(c, ctx)))
	case blocks.QuoteContent:
		column.add(textNode("mj-text", s, renderQuote(c, ctx)))
	case blocks.FooterContent:
		column.add(textNode("mj-text", s, renderFooter(c, ctx)))
	case blocks.ImageContent:
		src := safeSrc(c.Src)
		if src == "" {
			column.add(textNode("mj-text", s, placeholder("Image placeholder", c.Width, c.Height)))
			break
		}
		img := newNode("mj-image").
			set("src", src).
			set("alt", c.Alt).
			set("align", str(s.TextAlign)).
			set("padding", spacing(s.Padding)).
			set("border-radius", px(s.BorderRadius))
		if c.Width > 0 {
			img.set("width", fmt.Sprintf("%dpx", c.Width))
		}
		if strings.TrimSpace(c.Link) != "" {
			img.set("href", safeHref(c.Link))
		}
		column.add(img)
	case blocks.ButtonContent:
		column.add(newNode("mj-button").
			set("href", safeHref(c.Href)).
			set("background-color", str(s.BackgroundColor)).
			set("color", str(s.Color)).
			set("font-size", px(s.FontSize)).
			set("font-weight", str(s.FontWeight)).
			set("border-radius", px(s.BorderRadius)).
			set("inner-padding", spacing(s.Padding)).
			set("padding", spacing(s.Margin)).
			set("align", str(s.TextAlign)).
			text(c.Text, false))
	case blocks.DividerContent:
		thickness := c.Thickness
		if thickness <= 0 {
			thickness = 1
		}
		style := c.Style
		if !validBorderStyle(style) {
			style = "solid"
		}
		column.add(newNode("mj-divider").
			set("border-width", fmt.Sprintf("%dpx", thickness)).
			set("border-style", style).
			set("border-color", stringOr(&c.Color, "#dddddd")).
			set("padding", spacing(s.Padding)))
	case blocks.SpacerContent:
		height := c.Height
		if height < 0 {
			height = 0
		}
		column.add(newNode("mj-spacer").set("height", fmt.Sprintf("%dpx", height)))
	case blocks.SocialContent:
		social := newNode("mj-social").
			set("mode", "horizontal").
			set("align", str(s.TextAlign)).
			set("padding", spacing(s.Padding))
		if c.IconSize > 0 {
			social.set("icon-size", fmt.Sprintf("%dpx", c.IconSize))
		}
		for _, p := range c.EnabledPlatforms() {
			name := strings.ToLower(classToken(p.Name))
			if _, known := socialColors[name]; !known || name == "x" || name == "tiktok" {
				continue
			}
			social.add(newNode("mj-social-element").
				set("name", name+"-noshare").
				set("href", safeHref(p.URL)).
				text(p.Name, false))
		}
		column.add(social)
	case blocks.ColumnsContent:
		if len(c.Columns) == 0 {
			column.add(newNode("mj-spacer").set("height", "1px"))
			break
		}
		for _, col := range c.Columns {
			section.add(newNode("mj-column").add(textNode("mj-text", s, ctx.rich(col.Text))))
		}
		return section
	default:
		column.add(newNode("mj-raw").text(renderExportBlock(block, ctx, settings.IncludeBlockMarkers), true))
	}

	return section.add(column)
}
