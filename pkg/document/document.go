package document

import (
	"fmt"
	"sort"

	"github.com/Notifuse/designer/pkg/blocks"
)

// Document is the ordered list of blocks of one email. Array order decides
// rendering order; position.y is advisory.
//
// Operations never mutate their input: they return a new Document.
type Document []blocks.Block

// RowHeight is the position.y step between consecutive blocks
const RowHeight = 100

// DuplicateOffset is added to the current maximum position.y for a duplicated block
const DuplicateOffset = 50

// Direction of a move operation
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Validate checks the direction is up or down
func (d Direction) Validate() error {
	if d != DirectionUp && d != DirectionDown {
		return fmt.Errorf("invalid direction: %q", string(d))
	}
	return nil
}

// Patch carries the fields of a block to replace. Nil fields are left as they are;
// set fields replace the block's field wholesale.
type Patch struct {
	Content    blocks.Content     `json:"-"`
	Styles     *blocks.Styles     `json:"-"`
	Position   *blocks.Position   `json:"-"`
	Responsive *blocks.Responsive `json:"-"`
}

// IsEmpty reports whether the patch changes nothing
func (p Patch) IsEmpty() bool {
	return p.Content == nil && p.Styles == nil && p.Position == nil && p.Responsive == nil
}

// Clone returns a deep copy of the document
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for i, b := range doc {
		out[i] = b.Clone()
	}
	return out
}

// Find returns the index of the block with the given id, or -1
func Find(doc Document, id string) int {
	for i, b := range doc {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// IDs returns the block ids in document order
func IDs(doc Document) []string {
	ids := make([]string, len(doc))
	for i, b := range doc {
		ids[i] = b.ID
	}
	return ids
}

// AddBlock appends a new block of the given type with position.y = len(doc) * RowHeight
func AddBlock(doc Document, blockType blocks.BlockType) (Document, blocks.Block) {
	block := blocks.New(blockType)
	block.Position = blocks.Position{X: 0, Y: len(doc) * RowHeight}

	out := Clone(doc)
	out = append(out, block)
	return out, block.Clone()
}

// InsertBlock appends an already built block, giving it a fresh id when its id is
// empty or already used in the document.
func InsertBlock(doc Document, block blocks.Block) (Document, blocks.Block) {
	if block.ID == "" || Find(doc, block.ID) >= 0 {
		block.ID = blocks.NewBlockID()
	}
	block.Position = blocks.Position{X: block.Position.X, Y: len(doc) * RowHeight}

	out := Clone(doc)
	out = append(out, block.Clone())
	return out, block.Clone()
}

// UpdateBlock merges the patch into the matching block. A content patch whose
// type differs from the block type is ignored since block types never change.
// The second result is false when no block has the id.
func UpdateBlock(doc Document, id string, patch Patch) (Document, bool) {
	idx := Find(doc, id)
	if idx < 0 {
		return doc, false
	}

	out := Clone(doc)
	block := out[idx]
	if patch.Content != nil && patch.Content.BlockType() == block.Type {
		block.Content = patch.Content
	}
	if patch.Styles != nil {
		block.Styles = patch.Styles.Clone()
	}
	if patch.Position != nil {
		block.Position = *patch.Position
	}
	if patch.Responsive != nil {
		block.Responsive = patch.Responsive.Clone()
	}
	out[idx] = block.Clone()
	return out, true
}

// DeleteBlock removes the block with the given id
func DeleteBlock(doc Document, id string) (Document, bool) {
	idx := Find(doc, id)
	if idx < 0 {
		return doc, false
	}

	out := make(Document, 0, len(doc)-1)
	for i, b := range doc {
		if i != idx {
			out = append(out, b.Clone())
		}
	}
	return out, true
}

// DuplicateBlock clones the block with a new id and appends it at the end of the
// document with position.y beyond the current maximum.
func DuplicateBlock(doc Document, id string) (Document, blocks.Block, bool) {
	idx := Find(doc, id)
	if idx < 0 {
		return doc, blocks.Block{}, false
	}

	clone := doc[idx].Clone()
	clone.ID = blocks.NewBlockID()
	clone.Position = blocks.Position{X: clone.Position.X, Y: maxY(doc) + DuplicateOffset}

	out := Clone(doc)
	out = append(out, clone)
	return out, clone.Clone(), true
}

// MoveBlock swaps the block with its neighbor in the given direction and
// renumbers every position.y to index * RowHeight. Moving the first block up or
// the last block down returns the document unchanged.
func MoveBlock(doc Document, id string, direction Direction) (Document, bool) {
	idx := Find(doc, id)
	if idx < 0 {
		return doc, false
	}

	target := idx - 1
	if direction == DirectionDown {
		target = idx + 1
	}
	if direction != DirectionUp && direction != DirectionDown {
		return doc, false
	}
	if target < 0 || target >= len(doc) {
		return doc, false
	}

	out := Clone(doc)
	out[idx], out[target] = out[target], out[idx]
	renumber(out)
	return out, true
}

// ReorderBlock moves the block to the given index, clamped to the document bounds,
// and renumbers every position.y.
func ReorderBlock(doc Document, id string, toIndex int) (Document, bool) {
	idx := Find(doc, id)
	if idx < 0 {
		return doc, false
	}
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex >= len(doc) {
		toIndex = len(doc) - 1
	}
	if toIndex == idx {
		return doc, false
	}

	out := Clone(doc)
	moved := out[idx]
	out = append(out[:idx], out[idx+1:]...)
	out = append(out[:toIndex], append(Document{moved}, out[toIndex:]...)...)
	renumber(out)
	return out, true
}

// SortByPosition returns the document ordered by ascending position.y.
// Blocks with equal y keep their relative order.
func SortByPosition(doc Document) Document {
	out := Clone(doc)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position.Y < out[j].Position.Y
	})
	return out
}

// EnsureUniqueIDs gives a fresh id to every block whose id is empty or already
// used earlier in the document. It returns the number of blocks that were re-identified.
func EnsureUniqueIDs(doc Document) (Document, int) {
	out := Clone(doc)
	seen := make(map[string]bool, len(out))
	changed := 0
	for i := range out {
		if out[i].ID == "" || seen[out[i].ID] {
			out[i].ID = blocks.NewBlockID()
			changed++
		}
		seen[out[i].ID] = true
	}
	return out, changed
}

func renumber(doc Document) {
	for i := range doc {
		doc[i].Position.Y = i * RowHeight
	}
}

func maxY(doc Document) int {
	if len(doc) == 0 {
		return 0
	}
	max := doc[0].Position.Y
	for _, b := range doc[1:] {
		if b.Position.Y > max {
			max = b.Position.Y
		}
	}
	return max
}
