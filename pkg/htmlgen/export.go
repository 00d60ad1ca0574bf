package htmlgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
)

// ExportFilename is the name of the downloadable export artifact
const ExportFilename = "email-template.html"

// ExportSettings controls the standalone document produced by GenerateHTML
type ExportSettings struct {
	Title             string `json:"title,omitempty"`
	PreviewText       string `json:"preview_text,omitempty"`
	MaxWidth          int    `json:"max_width,omitempty"`
	Breakpoint        int    `json:"breakpoint,omitempty"`
	BackgroundColor   string `json:"background_color,omitempty"`
	ContentBackground string `json:"content_background,omitempty"`
	FontFamily        string `json:"font_family,omitempty"`
	// IncludeBlockMarkers adds data-block-id and data-block-type attributes so
	// the file can be imported back with ParseHTML
	IncludeBlockMarkers bool `json:"include_block_markers,omitempty"`
	// Now is the clock used to freeze countdown blocks; time.Now when nil
	Now func() time.Time `json:"-"`
}

// DefaultExportSettings returns the settings used when none are given
func DefaultExportSettings() ExportSettings {
	return ExportSettings{
		Title:             "Email Template",
		MaxWidth:          600,
		Breakpoint:        600,
		BackgroundColor:   "#f4f4f4",
		ContentBackground: "#ffffff",
		FontFamily:        "Arial, Helvetica, sans-serif",
	}
}

// WithDefaults fills every unset or invalid field from DefaultExportSettings
func (s ExportSettings) WithDefaults() ExportSettings {
	def := DefaultExportSettings()
	if strings.TrimSpace(s.Title) == "" {
		s.Title = def.Title
	}
	if s.MaxWidth <= 0 {
		s.MaxWidth = def.MaxWidth
	}
	if s.Breakpoint <= 0 {
		s.Breakpoint = s.MaxWidth
	}
	if !safeCSSValue(s.BackgroundColor) || strings.TrimSpace(s.BackgroundColor) == "" {
		s.BackgroundColor = def.BackgroundColor
	}
	if !safeCSSValue(s.ContentBackground) || strings.TrimSpace(s.ContentBackground) == "" {
		s.ContentBackground = def.ContentBackground
	}
	if !safeCSSValue(s.FontFamily) || strings.TrimSpace(s.FontFamily) == "" {
		s.FontFamily = def.FontFamily
	}
	return s
}

// GenerateHTML produces a complete standalone HTML document for the email: a
// doctype, a viewport meta, an inline style reset, a centered email container
// capped at MaxWidth and one mobile media query. Each block is emitted with an
// inline style built from its effective desktop style. Rich text is propagated
// verbatim; plain text and attribute values are escaped.
func GenerateHTML(doc document.Document, settings ExportSettings) string {
	settings = settings.WithDefaults()
	now := time.Now()
	if settings.Now != nil {
		now = settings.Now()
	}
	ctx := renderContext{mode: blocks.PreviewModeDesktop, export: true, now: now}

	var body strings.Builder
	var mobileRules []string
	for _, block := range doc {
		body.WriteString("    ")
		body.WriteString(renderExportBlock(block, ctx, settings.IncludeBlockMarkers))
		body.WriteString("\n")
		if rule := mobileRule(block); rule != "" {
			mobileRules = append(mobileRules, rule)
		}
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString(`<html lang="en" xmlns="http://www.w3.org/1999/xhtml">` + "\n")
	b.WriteString("<head>\n")
	b.WriteString(`  <meta charset="UTF-8">` + "\n")
	b.WriteString(`  <meta name="viewport" content="width=device-width, initial-scale=1.0">` + "\n")
	b.WriteString(`  <meta http-equiv="X-UA-Compatible" content="IE=edge">` + "\n")
	fmt.Fprintf(&b, "  <title>%s</title>\n", escapeText(settings.Title))
	b.WriteString("  <style>\n")
	fmt.Fprintf(&b, "    body { margin: 0; padding: 0; width: 100%%; background-color: %s; font-family: %s; -webkit-text-size-adjust: 100%%; -ms-text-size-adjust: 100%%; }\n", settings.BackgroundColor, settings.FontFamily)
	b.WriteString("    table, td { border-collapse: collapse; mso-table-lspace: 0pt; mso-table-rspace: 0pt; }\n")
	b.WriteString("    img { border: 0; outline: none; text-decoration: none; -ms-interpolation-mode: bicubic; }\n")
	b.WriteString("    p, h1, h2, h3, h4, h5, h6, blockquote { margin: 0; }\n")
	b.WriteString("    a { color: inherit; }\n")
	fmt.Fprintf(&b, "    .email-container { max-width: %dpx; width: 100%%; margin: 0 auto; background-color: %s; }\n", settings.MaxWidth, settings.ContentBackground)
	b.WriteString("    .preheader { display: none; max-height: 0; overflow: hidden; mso-hide: all; }\n")
	fmt.Fprintf(&b, "    @media only screen and (max-width: %dpx) {\n", settings.Breakpoint)
	b.WriteString("      .email-container { width: 100% !important; }\n")
	b.WriteString("      .columns td { display: block !important; width: 100% !important; }\n")
	b.WriteString("      img { max-width: 100% !important; height: auto !important; }\n")
	for _, rule := range mobileRules {
		b.WriteString("      ")
		b.WriteString(rule)
		b.WriteString("\n")
	}
	b.WriteString("    }\n")
	b.WriteString("  </style>\n")
	b.WriteString("</head>\n")
	b.WriteString("<body>\n")
	if strings.TrimSpace(settings.PreviewText) != "" {
		fmt.Fprintf(&b, "  <div class=\"preheader\">%s</div>\n", escapeText(settings.PreviewText))
	}
	b.WriteString(`  <div class="email-container">` + "\n")
	b.WriteString(body.String())
	b.WriteString("  </div>\n")
	b.WriteString("</body>\n")
	b.WriteString("</html>\n")
	return b.String()
}

// RenderExportBlock renders a single block the way GenerateHTML emits it
func RenderExportBlock(block blocks.Block, settings ExportSettings) string {
	now := time.Now()
	if settings.Now != nil {
		now = settings.Now()
	}
	ctx := renderContext{mode: blocks.PreviewModeDesktop, export: true, now: now}
	return renderExportBlock(block, ctx, settings.IncludeBlockMarkers)
}

func renderExportBlock(block blocks.Block, ctx renderContext, markers bool) string {
	styles := blocks.EffectiveStyles(block, blocks.PreviewModeDesktop)
	wrapper, inner := renderBody(block, styles, ctx)

	class := "block block-" + classToken(string(block.Type))
	if !block.Type.IsKnown() {
		class = "block block-unknown"
	}
	if mobileRule(block) != "" {
		class += " " + mobileClass(block)
	}

	var b strings.Builder
	b.WriteString("<div")
	b.WriteString(attr("class", class))
	if markers {
		b.WriteString(attr("data-block-id", block.ID))
		b.WriteString(attr("data-block-type", string(block.Type)))
	}
	b.WriteString(attr("style", wrapper.String()))
	b.WriteString(">")
	b.WriteString(inner)
	b.WriteString("</div>")
	return b.String()
}

func mobileClass(block blocks.Block) string {
	return "b-" + classToken(block.ID)
}

// mobileRule turns the mobile responsive override of a block into a rule for the
// export media query, or "" when the block has none.
func mobileRule(block blocks.Block) string {
	override := block.Responsive.For(blocks.PreviewModeMobile)
	if override == nil || classToken(block.ID) == "" {
		return ""
	}
	d := boxCSS(*override)
	d.addAll(textCSS(*override))
	if len(d) == 0 {
		return ""
	}
	return "." + mobileClass(block) + " { " + d.important() + " }"
}
