package blocks

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidBlocks is returned when a payload is not a JSON array of blocks
var ErrInvalidBlocks = errors.New("blocks payload must be a JSON array")

// ErrInvalidBlock is returned when a block payload is not a JSON object
var ErrInvalidBlock = errors.New("block payload must be a JSON object")

type blockJSON struct {
	ID         string          `json:"id"`
	Type       BlockType       `json:"type"`
	Content    json.RawMessage `json:"content"`
	Styles     Styles          `json:"styles"`
	Position   Position        `json:"position"`
	Responsive *Responsive     `json:"responsive,omitempty"`
}

// MarshalJSON writes the block in its stored shape
func (b Block) MarshalJSON() ([]byte, error) {
	content, err := marshalContent(b.ContentOrDefault())
	if err != nil {
		return nil, err
	}
	var responsive *Responsive
	if !b.Responsive.IsEmpty() {
		responsive = b.Responsive
	}
	return json.Marshal(blockJSON{
		ID:         b.ID,
		Type:       b.Type,
		Content:    content,
		Styles:     b.Styles,
		Position:   b.Position,
		Responsive: responsive,
	})
}

// UnmarshalJSON decodes a stored block leniently. Malformed style fields are
// dropped one by one and content that does not fit its type is replaced by the
// default payload. Only a payload that is not a JSON object is rejected.
func (b *Block) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return ErrInvalidBlock
	}
	result := gjson.ParseBytes(data)
	if !result.IsObject() {
		return ErrInvalidBlock
	}
	*b = decodeBlock(result)
	return nil
}

// UnmarshalBlocks decodes a JSON array of blocks, skipping elements that are not objects
func UnmarshalBlocks(data []byte) ([]Block, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidBlocks
	}
	result := gjson.ParseBytes(data)
	if !result.IsArray() {
		return nil, ErrInvalidBlocks
	}
	out := make([]Block, 0)
	result.ForEach(func(_, value gjson.Result) bool {
		if value.IsObject() {
			out = append(out, decodeBlock(value))
		}
		return true
	})
	return out, nil
}

// MarshalBlocks encodes blocks as a JSON array; a nil slice becomes []
func MarshalBlocks(list []Block) ([]byte, error) {
	if list == nil {
		list = []Block{}
	}
	return json.Marshal(list)
}

func decodeBlock(r gjson.Result) Block {
	id := strings.TrimSpace(r.Get("id").String())
	if id == "" {
		id = NewBlockID()
	}
	blockType := BlockType(strings.TrimSpace(r.Get("type").String()))

	block := Block{
		ID:      id,
		Type:    blockType,
		Content: decodeContent(blockType, r.Get("content")),
		Styles:  decodeStyles(r.Get("styles")),
	}
	if x := intField(r.Get("position.x")); x != nil {
		block.Position.X = *x
	}
	if y := intField(r.Get("position.y")); y != nil {
		block.Position.Y = *y
	}

	responsive := r.Get("responsive")
	if responsive.IsObject() {
		res := &Responsive{
			Mobile:  decodeStylesPtr(responsive.Get("mobile")),
			Tablet:  decodeStylesPtr(responsive.Get("tablet")),
			Desktop: decodeStylesPtr(responsive.Get("desktop")),
		}
		if !res.IsEmpty() {
			block.Responsive = res
		}
	}
	return block
}

func marshalContent(c Content) ([]byte, error) {
	if generic, ok := c.(GenericContent); ok {
		if generic.Fields == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(generic.Fields)
	}
	return json.Marshal(c)
}

func cloneContent(blockType BlockType, c Content) Content {
	data, err := marshalContent(c)
	if err != nil {
		return DefaultContent(blockType)
	}
	return decodeContent(blockType, gjson.ParseBytes(data))
}

func decodeTyped[T Content](raw string, into T) (T, bool) {
	if err := json.Unmarshal([]byte(raw), &into); err != nil {
		return into, false
	}
	return into, true
}

// decodeContent decodes stored content over the type's defaults so missing keys
// keep their default value. Slices are decoded from scratch and only fall back to
// the default when the key is absent.
func decodeContent(blockType BlockType, r gjson.Result) Content {
	def := DefaultContent(blockType)
	if !r.IsObject() {
		return def
	}

	switch d := def.(type) {
	case TextContent:
		return decodeOrDefault(r.Raw, d)
	case HeadingContent:
		return decodeOrDefault(r.Raw, d)
	case QuoteContent:
		return decodeOrDefault(r.Raw, d)
	case ImageContent:
		return decodeOrDefault(r.Raw, d)
	case ButtonContent:
		return decodeOrDefault(r.Raw, d)
	case DividerContent:
		return decodeOrDefault(r.Raw, d)
	case SpacerContent:
		return decodeOrDefault(r.Raw, d)
	case VideoContent:
		return decodeOrDefault(r.Raw, d)
	case CountdownContent:
		return decodeOrDefault(r.Raw, d)
	case FooterContent:
		return decodeOrDefault(r.Raw, d)
	case ProductContent:
		return decodeOrDefault(r.Raw, d)
	case GalleryContent:
		images := d.Images
		d.Images = nil
		v, ok := decodeTyped(r.Raw, d)
		if !ok {
			return DefaultContent(blockType)
		}
		if !r.Get("images").Exists() {
			v.Images = images
		}
		return v
	case SocialContent:
		platforms := d.Platforms
		d.Platforms = nil
		v, ok := decodeTyped(r.Raw, d)
		if !ok {
			return DefaultContent(blockType)
		}
		if !r.Get("platforms").Exists() {
			v.Platforms = platforms
		}
		return v
	case ColumnsContent:
		columns := d.Columns
		d.Columns = nil
		v, ok := decodeTyped(r.Raw, d)
		if !ok {
			return DefaultContent(blockType)
		}
		if !r.Get("columns").Exists() {
			v.Columns = columns
		}
		return v
	case SurveyContent:
		d.Options = nil
		return decodeOrDefault(r.Raw, d)
	case HeaderContent:
		links := d.Links
		d.Links = nil
		v, ok := decodeTyped(r.Raw, d)
		if !ok {
			return DefaultContent(blockType)
		}
		if !r.Get("links").Exists() {
			v.Links = links
		}
		return v
	case GenericContent:
		if fields, ok := r.Value().(map[string]interface{}); ok {
			d.Fields = fields
		}
		return d
	}
	return def
}

func decodeOrDefault[T Content](raw string, into T) Content {
	v, ok := decodeTyped(raw, into)
	if !ok {
		return DefaultContent(into.BlockType())
	}
	return v
}

func decodeStylesPtr(r gjson.Result) *Styles {
	if !r.IsObject() {
		return nil
	}
	s := decodeStyles(r)
	return &s
}

func decodeStyles(r gjson.Result) Styles {
	var s Styles
	if !r.IsObject() {
		return s
	}
	s.FontSize = intField(r.Get("fontSize"))
	s.FontFamily = stringField(r.Get("fontFamily"))
	s.FontWeight = stringOrNumberField(r.Get("fontWeight"))
	s.FontStyle = stringField(r.Get("fontStyle"))
	s.LineHeight = floatField(r.Get("lineHeight"))
	s.Color = stringField(r.Get("color"))
	s.TextAlign = stringField(r.Get("textAlign"))
	s.BackgroundColor = stringField(r.Get("backgroundColor"))
	s.BorderRadius = intField(r.Get("borderRadius"))
	s.BorderColor = stringField(r.Get("borderColor"))
	s.BorderWidth = intField(r.Get("borderWidth"))
	s.BorderStyle = stringField(r.Get("borderStyle"))
	s.Width = dimensionField(r.Get("width"))
	s.Height = dimensionField(r.Get("height"))
	s.Padding = spacingField(r.Get("padding"))
	s.Margin = spacingField(r.Get("margin"))
	return s
}

func stringField(r gjson.Result) *string {
	if r.Type != gjson.String {
		return nil
	}
	v := strings.TrimSpace(r.Str)
	if v == "" {
		return nil
	}
	return &v
}

func stringOrNumberField(r gjson.Result) *string {
	if r.Type == gjson.Number {
		v := r.Raw
		return &v
	}
	return stringField(r)
}

// dimensionField accepts "100%", "320px", "auto" or a bare number of pixels
func dimensionField(r gjson.Result) *string {
	if r.Type == gjson.Number {
		if n := intField(r); n != nil {
			v := strconv.Itoa(*n) + "px"
			return &v
		}
		return nil
	}
	return stringField(r)
}

// intField accepts numbers and numeric strings with an optional px suffix
func intField(r gjson.Result) *int {
	f := floatField(r)
	if f == nil {
		return nil
	}
	v := int(math.Round(*f))
	return &v
}

func floatField(r gjson.Result) *float64 {
	var f float64
	switch r.Type {
	case gjson.Number:
		f = r.Num
	case gjson.String:
		s := strings.TrimSuffix(strings.TrimSpace(r.Str), "px")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// spacingField accepts {top,right,bottom,left} objects or a single uniform value
func spacingField(r gjson.Result) *Spacing {
	if r.IsObject() {
		sp := &Spacing{}
		if v := intField(r.Get("top")); v != nil {
			sp.Top = *v
		}
		if v := intField(r.Get("right")); v != nil {
			sp.Right = *v
		}
		if v := intField(r.Get("bottom")); v != nil {
			sp.Bottom = *v
		}
		if v := intField(r.Get("left")); v != nil {
			sp.Left = *v
		}
		return sp
	}
	if v := intField(r); v != nil {
		return UniformSpacing(*v)
	}
	return nil
}
