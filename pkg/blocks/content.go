package blocks

// Content is the type-dependent payload of a block. Every known block type has
// exactly one payload struct; unknown types carry GenericContent.
type Content interface {
	BlockType() BlockType
}

// TextFormatting flags applied on top of the rich text
type TextFormatting struct {
	Bold      bool `json:"bold,omitempty"`
	Italic    bool `json:"italic,omitempty"`
	Underline bool `json:"underline,omitempty"`
}

type TextContent struct {
	Text       string         `json:"text"`
	Tag        string         `json:"tag"` // p, div, span
	Formatting TextFormatting `json:"formatting"`
}

type HeadingContent struct {
	Text  string `json:"text"`
	Level int    `json:"level"` // 1 to 6
}

type QuoteContent struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

type ImageContent struct {
	Src    string `json:"src"`
	Alt    string `json:"alt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Link   string `json:"link,omitempty"`
}

type GalleryImage struct {
	Src  string `json:"src"`
	Alt  string `json:"alt"`
	Link string `json:"link,omitempty"`
}

type GalleryContent struct {
	Images  []GalleryImage `json:"images"`
	Columns int            `json:"columns"`
}

type ButtonContent struct {
	Text   string `json:"text"`
	Href   string `json:"href"`
	Target string `json:"target"`
}

type SocialPlatform struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

type SocialContent struct {
	Platforms []SocialPlatform `json:"platforms"`
	IconSize  int              `json:"iconSize"`
}

// EnabledPlatforms returns the platforms that should be rendered, in order
func (c SocialContent) EnabledPlatforms() []SocialPlatform {
	var enabled []SocialPlatform
	for _, p := range c.Platforms {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

type DividerContent struct {
	Thickness int    `json:"thickness"`
	Style     string `json:"style"` // solid, dashed, dotted
	Color     string `json:"color"`
}

type SpacerContent struct {
	Height int `json:"height"`
}

// Column is one independently editable cell of a columns block
type Column struct {
	Text string `json:"text"`
}

type ColumnsContent struct {
	Columns []Column `json:"columns"`
	Gap     int      `json:"gap"`
}

type VideoContent struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
	Title     string `json:"title"`
}

type CountdownContent struct {
	EndDate        string `json:"endDate"` // RFC 3339
	Title          string `json:"title"`
	ExpiredMessage string `json:"expiredMessage"`
}

type SurveyContent struct {
	Question string   `json:"question"`
	Kind     string   `json:"kind"` // rating, choice, text
	Options  []string `json:"options,omitempty"`
	Scale    int      `json:"scale"`
}

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type HeaderContent struct {
	LogoSrc string `json:"logoSrc"`
	LogoAlt string `json:"logoAlt"`
	Title   string `json:"title"`
	Links   []Link `json:"links"`
}

type FooterContent struct {
	Text            string `json:"text"`
	CompanyName     string `json:"companyName"`
	Address         string `json:"address"`
	UnsubscribeURL  string `json:"unsubscribeUrl"`
	UnsubscribeText string `json:"unsubscribeText"`
}

type ProductContent struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	ImageSrc    string `json:"imageSrc"`
	ButtonText  string `json:"buttonText"`
	Href        string `json:"href"`
}

// GenericContent keeps the raw payload of block types this build does not know
type GenericContent struct {
	Type   BlockType              `json:"-"`
	Fields map[string]interface{} `json:"-"`
}

func (TextContent) BlockType() BlockType      { return BlockTypeText }
func (HeadingContent) BlockType() BlockType   { return BlockTypeHeading }
func (QuoteContent) BlockType() BlockType     { return BlockTypeQuote }
func (ImageContent) BlockType() BlockType     { return BlockTypeImage }
func (GalleryContent) BlockType() BlockType   { return BlockTypeGallery }
func (ButtonContent) BlockType() BlockType    { return BlockTypeButton }
func (SocialContent) BlockType() BlockType    { return BlockTypeSocial }
func (DividerContent) BlockType() BlockType   { return BlockTypeDivider }
func (SpacerContent) BlockType() BlockType    { return BlockTypeSpacer }
func (ColumnsContent) BlockType() BlockType   { return BlockTypeColumns }
func (VideoContent) BlockType() BlockType     { return BlockTypeVideo }
func (CountdownContent) BlockType() BlockType { return BlockTypeCountdown }
func (SurveyContent) BlockType() BlockType    { return BlockTypeSurvey }
func (HeaderContent) BlockType() BlockType    { return BlockTypeHeader }
func (FooterContent) BlockType() BlockType    { return BlockTypeFooter }
func (ProductContent) BlockType() BlockType   { return BlockTypeProduct }
func (c GenericContent) BlockType() BlockType { return c.Type }
