package blocks

import (
	"github.com/google/uuid"
)

// Block is one typed, styled content unit of an email document
type Block struct {
	ID         string      `json:"id"`
	Type       BlockType   `json:"type"`
	Content    Content     `json:"content"`
	Styles     Styles      `json:"styles"`
	Position   Position    `json:"position"`
	Responsive *Responsive `json:"responsive,omitempty"`
}

// NewBlockID generates a time-ordered, random block identifier
func NewBlockID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "blk_" + id.String()
}

// New creates a block of the given type with a fresh id and default content and styles
func New(blockType BlockType) Block {
	return Block{
		ID:      NewBlockID(),
		Type:    blockType,
		Content: DefaultContent(blockType),
		Styles:  DefaultStyles(blockType),
	}
}

// ContentOrDefault returns the block content, or the default payload of the block
// type when the content is missing or belongs to another type.
func (b Block) ContentOrDefault() Content {
	if b.Content == nil || b.Content.BlockType() != b.Type {
		return DefaultContent(b.Type)
	}
	return b.Content
}

// Clone returns a deep copy of the block that shares no memory with the receiver
func (b Block) Clone() Block {
	return Block{
		ID:         b.ID,
		Type:       b.Type,
		Content:    cloneContent(b.Type, b.ContentOrDefault()),
		Styles:     b.Styles.Clone(),
		Position:   b.Position,
		Responsive: b.Responsive.Clone(),
	}
}
