package blocks

import (
	"fmt"
)

// BlockType represents the kind of content a block carries
type BlockType string

const (
	BlockTypeText      BlockType = "text"
	BlockTypeHeading   BlockType = "heading"
	BlockTypeQuote     BlockType = "quote"
	BlockTypeImage     BlockType = "image"
	BlockTypeGallery   BlockType = "gallery"
	BlockTypeButton    BlockType = "button"
	BlockTypeSocial    BlockType = "social"
	BlockTypeDivider   BlockType = "divider"
	BlockTypeSpacer    BlockType = "spacer"
	BlockTypeColumns   BlockType = "columns"
	BlockTypeVideo     BlockType = "video"
	BlockTypeCountdown BlockType = "countdown"
	BlockTypeSurvey    BlockType = "survey"
	BlockTypeHeader    BlockType = "header"
	BlockTypeFooter    BlockType = "footer"
	BlockTypeProduct   BlockType = "product"
)

var knownBlockTypes = []BlockType{
	BlockTypeText,
	BlockTypeHeading,
	BlockTypeQuote,
	BlockTypeImage,
	BlockTypeGallery,
	BlockTypeButton,
	BlockTypeSocial,
	BlockTypeDivider,
	BlockTypeSpacer,
	BlockTypeColumns,
	BlockTypeVideo,
	BlockTypeCountdown,
	BlockTypeSurvey,
	BlockTypeHeader,
	BlockTypeFooter,
	BlockTypeProduct,
}

// KnownBlockTypes returns every block type the editor knows how to build and render
func KnownBlockTypes() []BlockType {
	types := make([]BlockType, len(knownBlockTypes))
	copy(types, knownBlockTypes)
	return types
}

// IsKnown reports whether the type belongs to the known enumeration.
// Unknown types are still valid blocks: they load, save and render as generic containers.
func (t BlockType) IsKnown() bool {
	for _, known := range knownBlockTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsRichText reports whether the block's main content is user-entered HTML
func (t BlockType) IsRichText() bool {
	switch t {
	case BlockTypeText, BlockTypeHeading, BlockTypeQuote, BlockTypeFooter:
		return true
	}
	return false
}

// PreviewMode is the device width the document is previewed at
type PreviewMode string

const (
	PreviewModeMobile  PreviewMode = "mobile"
	PreviewModeTablet  PreviewMode = "tablet"
	PreviewModeDesktop PreviewMode = "desktop"
)

// Validate checks the preview mode is one of mobile, tablet or desktop
func (m PreviewMode) Validate() error {
	switch m {
	case PreviewModeMobile, PreviewModeTablet, PreviewModeDesktop:
		return nil
	}
	return fmt.Errorf("invalid preview mode: %q", string(m))
}

// CanvasWidth returns the canvas width in pixels used by the live preview
func (m PreviewMode) CanvasWidth() int {
	switch m {
	case PreviewModeMobile:
		return 375
	case PreviewModeTablet:
		return 768
	default:
		return 600
	}
}

// Position is advisory bookkeeping; array order decides rendering order.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Spacing holds pixel values for the four sides of a box
type Spacing struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// UniformSpacing returns a spacing with the same value on every side
func UniformSpacing(v int) *Spacing {
	return &Spacing{Top: v, Right: v, Bottom: v, Left: v}
}

// CSS formats the spacing as a shorthand value such as "16px 16px 16px 16px"
func (s Spacing) CSS() string {
	return fmt.Sprintf("%dpx %dpx %dpx %dpx", s.Top, s.Right, s.Bottom, s.Left)
}
