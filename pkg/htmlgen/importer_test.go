package htmlgen

import (
	"testing"

	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHTML_RoundTrip(t *testing.T) {
	doc := document.Document{
		{ID: "t1", Type: blocks.BlockTypeText, Content: blocks.TextContent{Text: "Hello <b>world</b>", Tag: "div"}},
		{ID: "h1", Type: blocks.BlockTypeHeading, Content: blocks.HeadingContent{Text: "Title", Level: 3}},
		{ID: "b1", Type: blocks.BlockTypeButton, Content: blocks.ButtonContent{Text: "Buy Now", Href: "https://x.com", Target: "_blank"}},
		{ID: "s1", Type: blocks.BlockTypeSpacer, Content: blocks.SpacerContent{Height: 24}},
		{ID: "i1", Type: blocks.BlockTypeImage, Content: blocks.ImageContent{Src: "https://cdn.example.com/a.png", Alt: "A", Width: 300, Height: 150}},
		{ID: "q1", Type: blocks.BlockTypeQuote, Content: blocks.QuoteContent{Text: "Be bold", Author: "Ada"}},
		{ID: "c1", Type: blocks.BlockTypeColumns, Content: blocks.ColumnsContent{Columns: []blocks.Column{{Text: "left"}, {Text: "right"}}, Gap: 16}},
		{ID: "v1", Type: blocks.BlockTypeVideo, Content: blocks.VideoContent{URL: "https://youtu.be/abc"}},
	}

	html := GenerateHTML(doc, ExportSettings{IncludeBlockMarkers: true})
	parsed, err := ParseHTML(html)
	require.NoError(t, err)
	require.Len(t, parsed, len(doc))

	for i, block := range parsed {
		assert.Equal(t, doc[i].ID, block.ID)
		assert.Equal(t, doc[i].Type, block.Type)
		assert.Equal(t, i*document.RowHeight, block.Position.Y)
	}

	assert.Equal(t, blocks.TextContent{Text: "Hello <b>world</b>", Tag: "div"}, parsed[0].Content)
	assert.Equal(t, blocks.HeadingContent{Text: "Title", Level: 3}, parsed[1].Content)
	assert.Equal(t, blocks.ButtonContent{Text: "Buy Now", Href: "https://x.com", Target: "_blank"}, parsed[2].Content)
	assert.Equal(t, blocks.SpacerContent{Height: 24}, parsed[3].Content)
	assert.Equal(t, blocks.ImageContent{Src: "https://cdn.example.com/a.png", Alt: "A", Width: 300, Height: 150}, parsed[4].Content)
	assert.Equal(t, blocks.QuoteContent{Text: "Be bold", Author: "Ada"}, parsed[5].Content)
	assert.Equal(t, []blocks.Column{{Text: "left"}, {Text: "right"}}, parsed[6].Content.(blocks.ColumnsContent).Columns)
	assert.Equal(t, blocks.DefaultContent(blocks.BlockTypeVideo), parsed[7].Content)
}

func TestParseHTML_NoMarkers(t *testing.T) {
	_, err := ParseHTML("<html><body><p>plain</p></body></html>")
	assert.ErrorIs(t, err, ErrNoBlockMarkers)

	_, err = ParseHTML(GenerateHTML(buttonDoc(), ExportSettings{}))
	assert.ErrorIs(t, err, ErrNoBlockMarkers)
}

func TestParseHTML_SanitizesAndDeduplicates(t *testing.T) {
	input := `<div class="email-container">
<div data-block-id="a" data-block-type="text"><p>hi<script>alert(1)</script></p></div>
<div data-block-id="a" data-block-type="text"><p>again</p></div>
</div>`

	parsed, err := ParseHTML(input)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	assert.Equal(t, "hi", parsed[0].Content.(blocks.TextContent).Text)
	assert.Equal(t, "a", parsed[0].ID)
	assert.NotEqual(t, "a", parsed[1].ID)
}
