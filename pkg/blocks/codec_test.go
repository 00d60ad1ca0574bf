package blocks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockJSON_RoundTrip(t *testing.T) {
	for _, blockType := range KnownBlockTypes() {
		t.Run(string(blockType), func(t *testing.T) {
			block := New(blockType)
			block.Position = Position{X: 0, Y: 300}
			block.Responsive = &Responsive{Mobile: &Styles{TextAlign: StringPtr("center")}}

			data, err := json.Marshal(block)
			require.NoError(t, err)

			var decoded Block
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, block, decoded)
		})
	}
}

func TestBlockJSON_StoredShape(t *testing.T) {
	block := Block{
		ID:       "blk_1",
		Type:     BlockTypeButton,
		Content:  ButtonContent{Text: "Buy Now", Href: "https://x.com", Target: "_self"},
		Styles:   Styles{FontSize: IntPtr(14), Padding: UniformSpacing(4)},
		Position: Position{Y: 100},
	}

	data, err := json.Marshal(block)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": "blk_1",
		"type": "button",
		"content": {"text": "Buy Now", "href": "https://x.com", "target": "_self"},
		"styles": {"fontSize": 14, "padding": {"top": 4, "right": 4, "bottom": 4, "left": 4}},
		"position": {"x": 0, "y": 100}
	}`, string(data))
}

func TestBlockJSON_Lenient(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		verify func(t *testing.T, b Block)
	}{
		{
			name:  "px strings and uniform padding",
			input: `{"id":"a","type":"text","content":{"text":"hi"},"styles":{"fontSize":"18px","padding":12,"width":300}}`,
			verify: func(t *testing.T, b Block) {
				assert.Equal(t, 18, *b.Styles.FontSize)
				assert.Equal(t, *UniformSpacing(12), *b.Styles.Padding)
				assert.Equal(t, "300px", *b.Styles.Width)
				assert.Equal(t, "hi", b.Content.(TextContent).Text)
				assert.Equal(t, "p", b.Content.(TextContent).Tag)
			},
		},
		{
			name:  "garbage style fields are dropped",
			input: `{"id":"a","type":"text","styles":{"fontSize":"big","color":42,"padding":"wide","textAlign":"right"}}`,
			verify: func(t *testing.T, b Block) {
				assert.Nil(t, b.Styles.FontSize)
				assert.Nil(t, b.Styles.Color)
				assert.Nil(t, b.Styles.Padding)
				assert.Equal(t, "right", *b.Styles.TextAlign)
			},
		},
		{
			name:  "mistyped content falls back to defaults",
			input: `{"id":"a","type":"image","content":{"src":["not","a","string"]}}`,
			verify: func(t *testing.T, b Block) {
				assert.Equal(t, DefaultContent(BlockTypeImage), b.Content)
			},
		},
		{
			name:  "missing content uses defaults",
			input: `{"id":"a","type":"button"}`,
			verify: func(t *testing.T, b Block) {
				assert.Equal(t, DefaultContent(BlockTypeButton), b.Content)
			},
		},
		{
			name:  "missing id gets a fresh id",
			input: `{"type":"spacer"}`,
			verify: func(t *testing.T, b Block) {
				assert.NotEmpty(t, b.ID)
			},
		},
		{
			name:  "stored platforms replace defaults entirely",
			input: `{"id":"a","type":"social","content":{"platforms":[{"name":"x","url":"https://x.com"}]}}`,
			verify: func(t *testing.T, b Block) {
				social := b.Content.(SocialContent)
				require.Len(t, social.Platforms, 1)
				assert.Equal(t, SocialPlatform{Name: "x", URL: "https://x.com"}, social.Platforms[0])
			},
		},
		{
			name:  "unknown type keeps its payload",
			input: `{"id":"a","type":"carousel","content":{"slides":3}}`,
			verify: func(t *testing.T, b Block) {
				generic := b.Content.(GenericContent)
				assert.Equal(t, BlockType("carousel"), generic.Type)
				assert.Equal(t, float64(3), generic.Fields["slides"])
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var b Block
			require.NoError(t, json.Unmarshal([]byte(tc.input), &b))
			tc.verify(t, b)
		})
	}
}

func TestBlockJSON_UnknownTypeRoundTrip(t *testing.T) {
	input := `{"id":"a","type":"carousel","content":{"slides":3,"autoplay":true},"styles":{},"position":{"x":0,"y":0}}`

	var b Block
	require.NoError(t, json.Unmarshal([]byte(input), &b))

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
}

func TestUnmarshalBlocks(t *testing.T) {
	t.Run("skips non-object elements", func(t *testing.T) {
		list, err := UnmarshalBlocks([]byte(`[{"id":"a","type":"text"}, 42, "x", {"id":"b","type":"divider"}]`))
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "a", list[0].ID)
		assert.Equal(t, "b", list[1].ID)
	})

	t.Run("rejects non-array payload", func(t *testing.T) {
		_, err := UnmarshalBlocks([]byte(`{"id":"a"}`))
		assert.ErrorIs(t, err, ErrInvalidBlocks)

		_, err = UnmarshalBlocks([]byte(`not json`))
		assert.ErrorIs(t, err, ErrInvalidBlocks)
	})

	t.Run("empty array", func(t *testing.T) {
		list, err := UnmarshalBlocks([]byte(`[]`))
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestMarshalBlocks_Nil(t *testing.T) {
	data, err := MarshalBlocks(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestBlockUnmarshal_RejectsNonObject(t *testing.T) {
	var b Block
	assert.ErrorIs(t, b.UnmarshalJSON([]byte(`[1,2]`)), ErrInvalidBlock)
}
