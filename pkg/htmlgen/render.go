package htmlgen

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/sanitize"
)

// renderContext carries what differs between the live preview and the export
type renderContext struct {
	mode   blocks.PreviewMode
	edit   bool
	export bool
	now    time.Time
}

// rich returns user HTML for insertion. The preview sanitizes it; the export
// propagates it verbatim since it was sanitized when entered.
func (c renderContext) rich(s string) string {
	if c.export {
		return s
	}
	return sanitize.HTML(s)
}

// link returns the href for a navigational link; edit mode suppresses navigation
func (c renderContext) link(href string) string {
	if c.edit {
		return "#"
	}
	return safeHref(href)
}

// renderBody dispatches on the block content and returns the wrapper declarations
// and the inner markup of the block.
func renderBody(b blocks.Block, s blocks.Styles, ctx renderContext) (declarations, string) {
	switch c := b.ContentOrDefault().(type) {
	case blocks.TextContent:
		return blockCSS(s), renderText(c, ctx)
	case blocks.HeadingContent:
		return blockCSS(s), renderHeading(c, ctx)
	case blocks.QuoteContent:
		return quoteCSS(s), renderQuote(c, ctx)
	case blocks.ImageContent:
		return boxCSS(s), renderImage(c, s, ctx)
	case blocks.GalleryContent:
		return boxCSS(s), renderGallery(c, ctx)
	case blocks.ButtonContent:
		return buttonWrapperCSS(s), renderButton(c, s, ctx)
	case blocks.SocialContent:
		return blockCSS(s), renderSocial(c, ctx)
	case blocks.DividerContent:
		return boxCSS(s), renderDivider(c)
	case blocks.SpacerContent:
		return boxCSS(s), renderSpacer(c)
	case blocks.ColumnsContent:
		return blockCSS(s), renderColumns(c, ctx)
	case blocks.VideoContent:
		return blockCSS(s), renderVideo(c, ctx)
	case blocks.CountdownContent:
		return blockCSS(s), renderCountdown(c, ctx)
	case blocks.SurveyContent:
		return blockCSS(s), renderSurvey(c, ctx)
	case blocks.HeaderContent:
		return blockCSS(s), renderHeader(c, ctx)
	case blocks.FooterContent:
		return blockCSS(s), renderFooter(c, ctx)
	case blocks.ProductContent:
		return blockCSS(s), renderProduct(c, ctx)
	case blocks.GenericContent:
		return blockCSS(s), renderGeneric(c, ctx)
	}
	return blockCSS(s), "&nbsp;"
}

func renderText(c blocks.TextContent, ctx renderContext) string {
	tag := c.Tag
	switch tag {
	case "p", "div", "span":
	default:
		tag = "p"
	}

	d := declarations{"margin: 0"}
	if c.Formatting.Bold {
		d.add("font-weight", "bold")
	}
	if c.Formatting.Italic {
		d.add("font-style", "italic")
	}
	if c.Formatting.Underline {
		d.add("text-decoration", "underline")
	}
	return fmt.Sprintf(`<%s%s>%s</%s>`, tag, attr("style", d.String()), ctx.rich(c.Text), tag)
}

func renderHeading(c blocks.HeadingContent, ctx renderContext) string {
	level := c.Level
	if level < 1 || level > 6 {
		level = 2
	}
	style := "margin: 0; font-size: inherit; font-weight: inherit; line-height: inherit;"
	return fmt.Sprintf(`<h%d%s>%s</h%d>`, level, attr("style", style), ctx.rich(c.Text), level)
}

func quoteCSS(s blocks.Styles) declarations {
	d := blockCSS(s)
	if s.BorderWidth == nil || *s.BorderWidth <= 0 {
		d.add("border-left", "4px solid "+stringOr(s.BorderColor, "#dddddd"))
	}
	return d
}

func renderQuote(c blocks.QuoteContent, ctx renderContext) string {
	var b strings.Builder
	b.WriteString(`<blockquote style="margin: 0;">`)
	b.WriteString(ctx.rich(c.Text))
	b.WriteString(`</blockquote>`)
	if strings.TrimSpace(c.Author) != "" {
		b.WriteString(`<p class="quote-author" style="margin: 8px 0 0 0; font-size: 14px; font-style: normal;">&#8212; `)
		b.WriteString(escapeText(c.Author))
		b.WriteString(`</p>`)
	}
	return b.String()
}

func placeholder(label string, width, height int) string {
	if height <= 0 {
		height = 200
	}
	d := declarations{
		"display: inline-block",
		"width: 100%",
		"box-sizing: border-box",
		"background-color: #f0f0f0",
		"border: 2px dashed #cccccc",
		"color: #999999",
		"font-size: 14px",
		"text-align: center",
	}
	if width > 0 {
		d.add("max-width", strconv.Itoa(width)+"px")
	}
	d.add("height", strconv.Itoa(height)+"px")
	d.add("line-height", strconv.Itoa(height)+"px")
	return fmt.Sprintf(`<div class="image-placeholder"%s>%s</div>`, attr("style", d.String()), escapeText(label))
}

func imageTag(src, alt string, width, height int, radius int) string {
	var b strings.Builder
	b.WriteString("<img")
	b.WriteString(attr("src", src))
	b.WriteString(attr("alt", alt))
	if width > 0 {
		b.WriteString(attr("width", strconv.Itoa(width)))
	}
	if height > 0 {
		b.WriteString(attr("height", strconv.Itoa(height)))
	}
	d := declarations{"display: inline-block", "max-width: 100%", "height: auto", "border: 0"}
	if radius > 0 {
		d.add("border-radius", strconv.Itoa(radius)+"px")
	}
	b.WriteString(attr("style", d.String()))
	b.WriteString(">")
	return b.String()
}

func renderImage(c blocks.ImageContent, s blocks.Styles, ctx renderContext) string {
	src := safeSrc(c.Src)
	if src == "" {
		return placeholder("Image placeholder", c.Width, c.Height)
	}
	img := imageTag(src, c.Alt, c.Width, c.Height, intOr(s.BorderRadius, 0))
	if strings.TrimSpace(c.Link) != "" {
		return fmt.Sprintf(`<a%s target="_blank" style="text-decoration: none;">%s</a>`, attr("href", ctx.link(c.Link)), img)
	}
	return img
}

func renderGallery(c blocks.GalleryContent, ctx renderContext) string {
	columns := c.Columns
	if columns < 1 {
		columns = 2
	}
	if columns > 4 {
		columns = 4
	}
	width := 100 / columns

	var b strings.Builder
	b.WriteString(`<div class="gallery" style="font-size: 0;">`)
	if len(c.Images) == 0 {
		b.WriteString(placeholder("Gallery placeholder", 0, 150))
	}
	for i, image := range c.Images {
		fmt.Fprintf(&b, `<div class="gallery-item" data-image-index="%d" style="display: inline-block; width: %d%%; padding: 4px; box-sizing: border-box; vertical-align: top;">`, i, width)
		src := safeSrc(image.Src)
		if src == "" {
			b.WriteString(placeholder("Image placeholder", 0, 150))
		} else {
			img := imageTag(src, image.Alt, 0, 0, 0)
			if strings.TrimSpace(image.Link) != "" {
				img = fmt.Sprintf(`<a%s target="_blank">%s</a>`, attr("href", ctx.link(image.Link)), img)
			}
			b.WriteString(img)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func buttonWrapperCSS(s blocks.Styles) declarations {
	var d declarations
	d.addSpacing("margin", s.Margin)
	d.addString("text-align", s.TextAlign)
	return d
}

func buttonCSS(s blocks.Styles) declarations {
	d := declarations{"display: inline-block", "text-decoration: none"}
	d.addString("background-color", s.BackgroundColor)
	d.addAll(textCSS(s))
	d.addSpacing("padding", s.Padding)
	d.addPx("border-radius", s.BorderRadius)
	d.addAll(borderCSS(s))
	d.addString("width", s.Width)
	return d
}

func renderButton(c blocks.ButtonContent, s blocks.Styles, ctx renderContext) string {
	var b strings.Builder
	b.WriteString("<a")
	if ctx.edit {
		b.WriteString(attr("href", "#"))
		b.WriteString(attr("data-href", c.Href))
	} else {
		b.WriteString(attr("href", safeHref(c.Href)))
	}
	if c.Target == "_blank" {
		b.WriteString(` target="_blank" rel="noopener noreferrer"`)
	}
	b.WriteString(` class="button"`)
	b.WriteString(attr("style", buttonCSS(s).String()))
	b.WriteString(">")
	b.WriteString(escapeText(c.Text))
	b.WriteString("</a>")
	return b.String()
}

var socialColors = map[string]string{
	"facebook":  "#1877f2",
	"twitter":   "#1da1f2",
	"x":         "#000000",
	"instagram": "#e4405f",
	"linkedin":  "#0a66c2",
	"youtube":   "#ff0000",
	"tiktok":    "#010101",
	"pinterest": "#e60023",
	"github":    "#181717",
}

func socialColor(name string) string {
	if color, ok := socialColors[strings.ToLower(name)]; ok {
		return color
	}
	return "#666666"
}

func socialGlyph(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	return strings.ToUpper(string([]rune(name)[0:1]))
}

func renderSocial(c blocks.SocialContent, ctx renderContext) string {
	size := c.IconSize
	if size <= 0 {
		size = 32
	}

	var b strings.Builder
	b.WriteString(`<div class="social-icons">`)
	for _, p := range c.EnabledPlatforms() {
		valid := sanitize.IsValidURL(p.URL)
		d := declarations{
			"display: inline-block",
			fmt.Sprintf("width: %dpx", size),
			fmt.Sprintf("height: %dpx", size),
			fmt.Sprintf("line-height: %dpx", size),
			"border-radius: 50%",
			"background-color: " + socialColor(p.Name),
			"color: #ffffff",
			fmt.Sprintf("font-size: %dpx", size/2),
			"font-weight: bold",
			"text-align: center",
			"text-decoration: none",
			"margin: 0 4px",
		}

		b.WriteString(`<span class="social-item" style="display: inline-block; position: relative;">`)
		b.WriteString("<a")
		b.WriteString(attr("href", ctx.link(p.URL)))
		b.WriteString(attr("class", "social-icon social-"+classToken(strings.ToLower(p.Name))))
		b.WriteString(attr("title", p.Name))
		b.WriteString(attr("data-platform", p.Name))
		if !ctx.export {
			b.WriteString(attr("data-valid", strconv.FormatBool(valid)))
		}
		b.WriteString(attr("style", d.String()))
		b.WriteString(">")
		b.WriteString(escapeText(socialGlyph(p.Name)))
		b.WriteString("</a>")
		if !ctx.export {
			b.WriteString(urlIndicator(valid))
		}
		b.WriteString(`</span>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func urlIndicator(valid bool) string {
	if valid {
		return `<span class="url-indicator url-valid" title="Valid URL" style="position: absolute; top: -4px; right: 0; width: 12px; height: 12px; line-height: 12px; border-radius: 50%; background-color: #22c55e; color: #ffffff; font-size: 9px;">&#10003;</span>`
	}
	return `<span class="url-indicator url-invalid" title="Invalid URL" style="position: absolute; top: -4px; right: 0; width: 12px; height: 12px; line-height: 12px; border-radius: 50%; background-color: #ef4444; color: #ffffff; font-size: 9px;">!</span>`
}

func renderDivider(c blocks.DividerContent) string {
	thickness := c.Thickness
	if thickness <= 0 {
		thickness = 1
	}
	style := c.Style
	if !validBorderStyle(style) {
		style = "solid"
	}
	color := stringOr(&c.Color, "#dddddd")
	return fmt.Sprintf(`<hr%s>`, attr("style", fmt.Sprintf("border: none; border-top: %dpx %s %s; margin: 0;", thickness, style, color)))
}

func renderSpacer(c blocks.SpacerContent) string {
	height := c.Height
	if height < 0 {
		height = 0
	}
	return fmt.Sprintf(`<div class="spacer" style="height: %dpx; line-height: %dpx; font-size: 1px;">&nbsp;</div>`, height, height)
}

func renderColumns(c blocks.ColumnsContent, ctx renderContext) string {
	gap := c.Gap
	if gap < 0 {
		gap = 0
	}
	count := len(c.Columns)

	var b strings.Builder
	if ctx.export {
		b.WriteString(`<table class="columns" role="presentation" width="100%" cellpadding="0" cellspacing="0" border="0" style="border-collapse: collapse;"><tr>`)
		width := 100
		if count > 0 {
			width = 100 / count
		}
		for i, col := range c.Columns {
			fmt.Fprintf(&b, `<td class="column" data-column-index="%d" width="%d%%" valign="top" style="padding: 0 %dpx;">%s</td>`, i, width, gap/2, ctx.rich(col.Text))
		}
		if count == 0 {
			b.WriteString(`<td>&nbsp;</td>`)
		}
		b.WriteString(`</tr></table>`)
		return b.String()
	}

	fmt.Fprintf(&b, `<div class="columns" style="display: flex; gap: %dpx;">`, gap)
	for i, col := range c.Columns {
		fmt.Fprintf(&b, `<div class="column" data-column-index="%d" style="flex: 1; min-width: 0;">%s</div>`, i, ctx.rich(col.Text))
	}
	b.WriteString(`</div>`)
	return b.String()
}

// youTubeThumbnail derives the thumbnail of a YouTube link, or "" for other hosts
func youTubeThumbnail(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	var id string
	switch host {
	case "youtube.com", "m.youtube.com":
		id = u.Query().Get("v")
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	}
	if id == "" || strings.ContainsAny(id, "/?#&") {
		return ""
	}
	return "https://img.youtube.com/vi/" + id + "/hqdefault.jpg"
}

func renderVideo(c blocks.VideoContent, ctx renderContext) string {
	thumb := safeSrc(c.Thumbnail)
	if thumb == "" {
		thumb = youTubeThumbnail(c.URL)
	}

	var b strings.Builder
	b.WriteString("<a")
	b.WriteString(attr("href", ctx.link(c.URL)))
	b.WriteString(` target="_blank" class="video-link" style="display: inline-block; position: relative; text-decoration: none; max-width: 100%;">`)
	if thumb != "" {
		b.WriteString(imageTag(thumb, c.Title, 560, 0, 0))
	} else {
		b.WriteString(`<div class="video-placeholder" style="width: 560px; max-width: 100%; height: 315px; background-color: #1f2937;"></div>`)
	}
	b.WriteString(`<span class="play-button" style="position: absolute; top: 50%; left: 50%; margin: -30px 0 0 -30px; width: 60px; height: 60px; line-height: 60px; border-radius: 50%; background-color: rgba(0,0,0,0.6); color: #ffffff; font-size: 24px; text-align: center;">&#9654;</span>`)
	b.WriteString(`</a>`)
	if strings.TrimSpace(c.Title) != "" {
		b.WriteString(`<p class="video-title" style="margin: 8px 0 0 0;">`)
		b.WriteString(escapeText(c.Title))
		b.WriteString(`</p>`)
	}
	return b.String()
}

var countdownLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

func parseDeadline(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range countdownLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CountdownParts splits the time left until the deadline into days, hours,
// minutes and seconds. ok is false when the deadline is missing or has passed.
func CountdownParts(endDate string, now time.Time) (parts [4]int, ok bool) {
	deadline, parsed := parseDeadline(endDate)
	if !parsed {
		return parts, false
	}
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return parts, false
	}
	total := int(remaining.Seconds())
	parts[0] = total / 86400
	parts[1] = (total % 86400) / 3600
	parts[2] = (total % 3600) / 60
	parts[3] = total % 60
	return parts, true
}

func renderCountdown(c blocks.CountdownContent, ctx renderContext) string {
	var b strings.Builder
	if strings.TrimSpace(c.Title) != "" {
		b.WriteString(`<div class="countdown-title" style="font-size: 16px; font-weight: normal; margin-bottom: 12px;">`)
		b.WriteString(escapeText(c.Title))
		b.WriteString(`</div>`)
	}

	parts, ok := CountdownParts(c.EndDate, ctx.now)
	if !ok {
		b.WriteString(`<div class="countdown-expired">`)
		b.WriteString(escapeText(c.ExpiredMessage))
		b.WriteString(`</div>`)
		return b.String()
	}

	labels := [4]string{"Days", "Hours", "Minutes", "Seconds"}
	b.WriteString(`<table class="countdown" role="presentation" align="center" cellpadding="0" cellspacing="0" border="0" style="margin: 0 auto;"><tr>`)
	for i, value := range parts {
		fmt.Fprintf(&b, `<td style="padding: 0 8px; text-align: center;"><div class="countdown-value">%02d</div><div class="countdown-label" style="font-size: 12px; font-weight: normal;">%s</div></td>`, value, labels[i])
	}
	b.WriteString(`</tr></table>`)
	return b.String()
}

func renderSurvey(c blocks.SurveyContent, ctx renderContext) string {
	var b strings.Builder
	b.WriteString(`<p class="survey-question" style="margin: 0 0 12px 0; font-weight: bold;">`)
	b.WriteString(escapeText(c.Question))
	b.WriteString(`</p>`)

	switch c.Kind {
	case "choice":
		for i, option := range c.Options {
			fmt.Fprintf(&b, `<div class="survey-option" data-value="%d" style="margin: 0 0 8px 0; padding: 8px 12px; border: 1px solid #cccccc; border-radius: 4px;">%s</div>`, i, escapeText(option))
		}
	case "text":
		b.WriteString(`<div class="survey-textarea" style="height: 80px; border: 1px solid #cccccc; border-radius: 4px;"></div>`)
	default:
		scale := c.Scale
		if scale < 1 || scale > 10 {
			scale = 5
		}
		b.WriteString(`<div class="survey-rating">`)
		for i := 1; i <= scale; i++ {
			fmt.Fprintf(&b, `<a href="#" class="survey-option" data-value="%d" style="display: inline-block; width: 36px; height: 36px; line-height: 36px; margin: 0 4px; border: 1px solid #cccccc; border-radius: 50%%; text-align: center; text-decoration: none; color: inherit;">%d</a>`, i, i)
		}
		b.WriteString(`</div>`)
	}
	return b.String()
}

func renderHeader(c blocks.HeaderContent, ctx renderContext) string {
	var b strings.Builder
	if src := safeSrc(c.LogoSrc); src != "" {
		b.WriteString(`<div class="header-logo" style="margin-bottom: 8px;">`)
		b.WriteString(imageTag(src, c.LogoAlt, 150, 0, 0))
		b.WriteString(`</div>`)
	}
	if strings.TrimSpace(c.Title) != "" {
		b.WriteString(`<div class="header-title" style="font-size: 24px; font-weight: bold;">`)
		b.WriteString(escapeText(c.Title))
		b.WriteString(`</div>`)
	}
	if len(c.Links) > 0 {
		b.WriteString(`<div class="header-links" style="margin-top: 8px;">`)
		for _, l := range c.Links {
			b.WriteString("<a")
			b.WriteString(attr("href", ctx.link(l.URL)))
			b.WriteString(` style="margin: 0 8px; color: inherit; text-decoration: none;">`)
			b.WriteString(escapeText(l.Label))
			b.WriteString("</a>")
		}
		b.WriteString(`</div>`)
	}
	if b.Len() == 0 {
		return "&nbsp;"
	}
	return b.String()
}

func renderFooter(c blocks.FooterContent, ctx renderContext) string {
	var b strings.Builder
	b.WriteString(`<div class="footer-text">`)
	b.WriteString(ctx.rich(c.Text))
	b.WriteString(`</div>`)
	if strings.TrimSpace(c.CompanyName) != "" {
		b.WriteString(`<p style="margin: 8px 0 0 0;"><strong>`)
		b.WriteString(escapeText(c.CompanyName))
		b.WriteString(`</strong></p>`)
	}
	if strings.TrimSpace(c.Address) != "" {
		b.WriteString(`<p style="margin: 4px 0 0 0;">`)
		b.WriteString(escapeText(c.Address))
		b.WriteString(`</p>`)
	}
	if strings.TrimSpace(c.UnsubscribeText) != "" {
		b.WriteString(`<p style="margin: 8px 0 0 0;"><a`)
		b.WriteString(attr("href", ctx.link(c.UnsubscribeURL)))
		b.WriteString(` style="color: inherit; text-decoration: underline;">`)
		b.WriteString(escapeText(c.UnsubscribeText))
		b.WriteString(`</a></p>`)
	}
	return b.String()
}

func renderProduct(c blocks.ProductContent, ctx renderContext) string {
	var b strings.Builder
	if src := safeSrc(c.ImageSrc); src != "" {
		b.WriteString(imageTag(src, c.Name, 300, 0, 0))
	} else {
		b.WriteString(placeholder("Product image", 300, 200))
	}
	b.WriteString(`<h3 class="product-name" style="margin: 12px 0 4px 0;">`)
	b.WriteString(escapeText(c.Name))
	b.WriteString(`</h3>`)
	if strings.TrimSpace(c.Description) != "" {
		b.WriteString(`<p class="product-description" style="margin: 0;">`)
		b.WriteString(escapeText(c.Description))
		b.WriteString(`</p>`)
	}
	b.WriteString(`<p class="product-price" style="margin: 8px 0; font-size: 20px; font-weight: bold;">`)
	b.WriteString(escapeText(c.Currency + c.Price))
	b.WriteString(`</p>`)
	if strings.TrimSpace(c.ButtonText) != "" {
		b.WriteString("<a")
		b.WriteString(attr("href", ctx.link(c.Href)))
		b.WriteString(` class="button" style="display: inline-block; padding: 10px 20px; background-color: #007bff; color: #ffffff; border-radius: 4px; text-decoration: none; font-weight: bold;">`)
		b.WriteString(escapeText(c.ButtonText))
		b.WriteString("</a>")
	}
	return b.String()
}

func renderGeneric(c blocks.GenericContent, ctx renderContext) string {
	if text, ok := c.Fields["text"].(string); ok && strings.TrimSpace(text) != "" {
		return escapeText(sanitize.Text(text))
	}
	if ctx.export {
		return "&nbsp;"
	}
	label := string(c.Type)
	if label == "" {
		label = "unknown"
	}
	return fmt.Sprintf(`<div class="block-unknown-content" style="color: #999999; font-size: 12px;">Unsupported block: %s</div>`, escapeText(label))
}
