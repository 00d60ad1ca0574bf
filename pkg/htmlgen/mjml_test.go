package htmlgen

import (
	"strings"
	"testing"

	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMJML(t *testing.T) {
	doc := document.Document{
		{ID: "h", Type: blocks.BlockTypeHeading, Content: blocks.HeadingContent{Text: "Welcome", Level: 1}},
		{ID: "b", Type: blocks.BlockTypeButton, Content: blocks.ButtonContent{Text: "Shop & Save", Href: "https://x.com/?a=1&b=2"}},
		{ID: "s", Type: blocks.BlockTypeSpacer, Content: blocks.SpacerContent{Height: 30}},
		{ID: "q", Type: blocks.BlockTypeSurvey, Content: blocks.SurveyContent{Question: "Rate us", Kind: "text"}},
	}

	out := GenerateMJML(doc, ExportSettings{Title: "Hello", PreviewText: "Peek"})

	assert.True(t, strings.HasPrefix(out, "<mjml>\n  <mj-head>\n"))
	assert.Contains(t, out, "<mj-title>Hello</mj-title>")
	assert.Contains(t, out, "<mj-preview>Peek</mj-preview>")
	assert.Contains(t, out, `<mj-breakpoint width="600px" />`)
	assert.Contains(t, out, `<mj-body width="600px" background-color="#f4f4f4">`)
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, `<mj-button href="https://x.com/?a=1&b=2"`)
	assert.Contains(t, out, ">Shop &amp; Save</mj-button>")
	assert.Contains(t, out, `<mj-spacer height="30px" />`)
	assert.Contains(t, out, "<mj-raw>")
	assert.Contains(t, out, "Rate us")
	assert.Equal(t, 4, strings.Count(out, "<mj-section "))
	assert.True(t, strings.HasSuffix(out, "</mjml>\n"))
}

func TestGenerateMJML_Image(t *testing.T) {
	withSrc := blocks.Block{ID: "i", Type: blocks.BlockTypeImage, Content: blocks.ImageContent{Src: "https://cdn.example.com/a.png", Alt: "A", Width: 300, Link: "https://example.com"}}
	empty := blocks.Block{ID: "e", Type: blocks.BlockTypeImage, Content: blocks.ImageContent{}}

	out := GenerateMJML(document.Document{withSrc, empty}, ExportSettings{})

	assert.Contains(t, out, `<mj-image src="https://cdn.example.com/a.png" alt="A"`)
	assert.Contains(t, out, `width="300px" href="https://example.com"`)
	assert.Contains(t, out, "image-placeholder")
}

func TestGenerateMJML_Social(t *testing.T) {
	block := blocks.Block{
		ID:   "s",
		Type: blocks.BlockTypeSocial,
		Content: blocks.SocialContent{Platforms: []blocks.SocialPlatform{
			{Name: "facebook", URL: "https://facebook.com/acme", Enabled: true},
			{Name: "tiktok", URL: "https://tiktok.com/@acme", Enabled: true},
			{Name: "myspace", URL: "https://myspace.com", Enabled: true},
		}, IconSize: 24},
	}

	out := GenerateMJML(document.Document{block}, ExportSettings{})

	assert.Contains(t, out, `<mj-social mode="horizontal"`)
	assert.Contains(t, out, `icon-size="24px"`)
	assert.Contains(t, out, `<mj-social-element name="facebook-noshare" href="https://facebook.com/acme">facebook</mj-social-element>`)
	assert.NotContains(t, out, "tiktok")
	assert.NotContains(t, out, "myspace")
}

func TestGenerateMJML_Columns(t *testing.T) {
	out := GenerateMJML(document.Document{blocks.New(blocks.BlockTypeColumns)}, ExportSettings{})

	assert.Equal(t, 2, strings.Count(out, "<mj-column>"))
	assert.Contains(t, out, "Column 1 content")
	assert.Contains(t, out, "Column 2 content")
}
