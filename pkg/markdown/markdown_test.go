package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Notifuse/designer/pkg/blocks"
)

const newsletter = `# Spring sale

Hello **friends**, see <https://x.com>.

> Quote line

---

![Hero banner](https://cdn.example.com/hero.png)

[![Logo](https://cdn.example.com/logo.png)](https://example.com)

- one
- two
`

func TestToDocument(t *testing.T) {
	doc, err := ToDocument([]byte(newsletter))
	require.NoError(t, err)
	require.Len(t, doc, 7)

	types := make([]blocks.BlockType, len(doc))
	for i, b := range doc {
		types[i] = b.Type
		assert.Equal(t, i*100, b.Position.Y)
		assert.NotEmpty(t, b.ID)
	}
	assert.Equal(t, []blocks.BlockType{
		blocks.BlockTypeHeading, blocks.BlockTypeText, blocks.BlockTypeQuote, blocks.BlockTypeDivider,
		blocks.BlockTypeImage, blocks.BlockTypeImage, blocks.BlockTypeText,
	}, types)

	heading := doc[0].Content.(blocks.HeadingContent)
	assert.Equal(t, "Spring sale", heading.Text)
	assert.Equal(t, 1, heading.Level)

	para := doc[1].Content.(blocks.TextContent)
	assert.Equal(t, "p", para.Tag)
	assert.Contains(t, para.Text, "<strong>friends</strong>")
	assert.Contains(t, para.Text, `<a href="https://x.com">https://x.com</a>`)

	assert.Equal(t, "<p>Quote line</p>", doc[2].Content.(blocks.QuoteContent).Text)

	hero := doc[4].Content.(blocks.ImageContent)
	assert.Equal(t, "https://cdn.example.com/hero.png", hero.Src)
	assert.Equal(t, "Hero banner", hero.Alt)
	assert.Empty(t, hero.Link)

	logo := doc[5].Content.(blocks.ImageContent)
	assert.Equal(t, "https://cdn.example.com/logo.png", logo.Src)
	assert.Equal(t, "https://example.com", logo.Link)

	list := doc[6].Content.(blocks.TextContent)
	assert.Equal(t, "div", list.Tag)
	assert.Contains(t, list.Text, "<ul>")
	assert.Contains(t, list.Text, "<li>one</li>")
}

func TestToDocument_HeadingLevels(t *testing.T) {
	doc, err := ToDocument([]byte("### Third\n\n###### Sixth"))
	require.NoError(t, err)
	require.Len(t, doc, 2)
	assert.Equal(t, 3, doc[0].Content.(blocks.HeadingContent).Level)
	assert.Equal(t, 6, doc[1].Content.(blocks.HeadingContent).Level)
}

func TestToDocument_Sanitizes(t *testing.T) {
	doc, err := ToDocument([]byte("![x](javascript:alert(1))\n\nClick [me](javascript:alert(1))"))
	require.NoError(t, err)
	require.Len(t, doc, 2)

	assert.Empty(t, doc[0].Content.(blocks.ImageContent).Src)
	assert.NotContains(t, doc[1].Content.(blocks.TextContent).Text, "javascript:")
}

func TestToDocument_Empty(t *testing.T) {
	_, err := ToDocument(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = ToDocument([]byte("<script>alert(1)</script>\n"))
	assert.ErrorIs(t, err, ErrEmpty)
}
