package editor

import (
	"bytes"
	"fmt"

	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
	"github.com/Notifuse/designer/pkg/history"
	"github.com/Notifuse/designer/pkg/sanitize"
)

// Editor owns the document being designed together with its undo/redo history,
// the selected block and the preview mode.
//
// Every mutation goes through apply, which records the pre-mutation snapshot.
// Editor is not safe for concurrent use; callers serialize access.
type Editor struct {
	doc      document.Document
	history  *history.Stack[document.Document]
	selected string
	mode     blocks.PreviewMode

	revision      int64
	savedRevision int64
}

// Option configures an Editor
type Option func(*Editor)

// WithHistoryLimit bounds the number of undo snapshots. 0 keeps every snapshot.
func WithHistoryLimit(limit int) Option {
	return func(e *Editor) {
		e.history = history.New(limit, document.Clone)
	}
}

// WithPreviewMode sets the initial preview mode
func WithPreviewMode(mode blocks.PreviewMode) Option {
	return func(e *Editor) {
		if mode.Validate() == nil {
			e.mode = mode
		}
	}
}

// New creates an editor over an empty document
func New(opts ...Option) *Editor {
	e := &Editor{
		doc:     document.Document{},
		history: history.New(history.DefaultLimit, document.Clone),
		mode:    blocks.PreviewModeDesktop,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load installs a stored document: blocks are sorted by position.y, duplicate ids
// are replaced and history and selection are reset.
func (e *Editor) Load(doc document.Document) {
	sorted := document.SortByPosition(doc)
	sorted, _ = document.EnsureUniqueIDs(sorted)
	if sorted == nil {
		sorted = document.Document{}
	}
	e.doc = sorted
	e.selected = ""
	e.history.Clear()
	e.revision = 0
	e.savedRevision = 0
}

// apply is the single mutation entry point. The pre-mutation document is recorded
// even when the operation turns out to be a no-op so that N operations followed by
// N undos always restore the starting document. Only real changes bump the revision.
func (e *Editor) apply(label string, op func(document.Document) (document.Document, bool)) bool {
	e.history.Record(label, e.doc)
	next, changed := op(e.doc)
	e.doc = next
	if changed {
		e.revision++
	}
	e.dropStaleSelection()
	return changed
}

// restore installs a document taken from history, bumping the revision only
// when it differs from the current one
func (e *Editor) restore(doc document.Document) {
	if !sameDocument(doc, e.doc) {
		e.revision++
	}
	e.doc = doc
	e.dropStaleSelection()
}

// sameDocument compares the stored form so that snapshot clones compare equal
func sameDocument(a, b document.Document) bool {
	if len(a) != len(b) {
		return false
	}
	left, err := blocks.MarshalBlocks(a)
	if err != nil {
		return false
	}
	right, err := blocks.MarshalBlocks(b)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}

// AddBlock appends a block of the given type and selects it
func (e *Editor) AddBlock(blockType blocks.BlockType) blocks.Block {
	var added blocks.Block
	e.apply(fmt.Sprintf("add %s block", blockType), func(doc document.Document) (document.Document, bool) {
		var next document.Document
		next, added = document.AddBlock(doc, blockType)
		return next, true
	})
	e.selected = added.ID
	return added
}

// InsertBlock appends a prebuilt block, sanitizing its rich text, and selects it
func (e *Editor) InsertBlock(block blocks.Block) blocks.Block {
	var inserted blocks.Block
	e.apply(fmt.Sprintf("insert %s block", block.Type), func(doc document.Document) (document.Document, bool) {
		var next document.Document
		next, inserted = document.InsertBlock(doc, sanitize.Block(block))
		return next, true
	})
	e.selected = inserted.ID
	return inserted
}

// UpdateBlock merges the patch into the block; rich text in the content is sanitized
func (e *Editor) UpdateBlock(id string, patch document.Patch) bool {
	if patch.Content != nil {
		patch.Content = sanitize.Content(patch.Content)
	}
	return e.apply("update block", func(doc document.Document) (document.Document, bool) {
		return document.UpdateBlock(doc, id, patch)
	})
}

// DeleteBlock removes the block and clears the selection if it was selected
func (e *Editor) DeleteBlock(id string) bool {
	return e.apply("delete block", func(doc document.Document) (document.Document, bool) {
		return document.DeleteBlock(doc, id)
	})
}

// DuplicateBlock appends a copy of the block at the end of the document
func (e *Editor) DuplicateBlock(id string) (blocks.Block, bool) {
	var dup blocks.Block
	ok := e.apply("duplicate block", func(doc document.Document) (document.Document, bool) {
		next, b, ok := document.DuplicateBlock(doc, id)
		dup = b
		return next, ok
	})
	if ok {
		e.selected = dup.ID
	}
	return dup, ok
}

// MoveBlock swaps the block with its neighbor
func (e *Editor) MoveBlock(id string, direction document.Direction) bool {
	return e.apply(fmt.Sprintf("move block %s", direction), func(doc document.Document) (document.Document, bool) {
		return document.MoveBlock(doc, id, direction)
	})
}

// ReorderBlock moves the block to an index
func (e *Editor) ReorderBlock(id string, toIndex int) bool {
	return e.apply("reorder block", func(doc document.Document) (document.Document, bool) {
		return document.ReorderBlock(doc, id, toIndex)
	})
}

// Undo restores the previous document. It returns false when there is nothing to undo.
func (e *Editor) Undo() bool {
	prev, ok := e.history.Undo(e.doc)
	if !ok {
		return false
	}
	e.restore(prev)
	return true
}

// Redo replays the last undone change. It returns false when there is nothing to redo.
func (e *Editor) Redo() bool {
	next, ok := e.history.Redo(e.doc)
	if !ok {
		return false
	}
	e.restore(next)
	return true
}

// Select marks a block as selected; an empty id clears the selection.
// Selecting an unknown id leaves the selection unchanged and returns false.
func (e *Editor) Select(id string) bool {
	if id == "" {
		e.selected = ""
		return true
	}
	if document.Find(e.doc, id) < 0 {
		return false
	}
	e.selected = id
	return true
}

// Selected returns the selected block id, or "" when nothing is selected
func (e *Editor) Selected() string {
	return e.selected
}

// SelectedBlock returns a copy of the selected block
func (e *Editor) SelectedBlock() (blocks.Block, bool) {
	idx := document.Find(e.doc, e.selected)
	if e.selected == "" || idx < 0 {
		return blocks.Block{}, false
	}
	return e.doc[idx].Clone(), true
}

// SetPreviewMode changes the preview mode; invalid modes are rejected
func (e *Editor) SetPreviewMode(mode blocks.PreviewMode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	e.mode = mode
	return nil
}

func (e *Editor) PreviewMode() blocks.PreviewMode {
	return e.mode
}

// Document returns a copy of the current document
func (e *Editor) Document() document.Document {
	return document.Clone(e.doc)
}

// SaveSnapshot returns the document in the shape handed to storage: sorted by position.y
func (e *Editor) SaveSnapshot() (document.Document, int64) {
	return document.SortByPosition(e.doc), e.revision
}

// MarkSaved records that the document at the given revision has been persisted
func (e *Editor) MarkSaved(revision int64) {
	if revision > e.savedRevision {
		e.savedRevision = revision
	}
}

// Dirty reports whether the document changed since the last save
func (e *Editor) Dirty() bool {
	return e.revision != e.savedRevision
}

func (e *Editor) Revision() int64 {
	return e.revision
}

func (e *Editor) CanUndo() bool {
	return e.history.CanUndo()
}

func (e *Editor) CanRedo() bool {
	return e.history.CanRedo()
}

// State summarizes the editor for API responses
type State struct {
	Blocks      document.Document  `json:"blocks"`
	SelectedID  string             `json:"selected_id,omitempty"`
	PreviewMode blocks.PreviewMode `json:"preview_mode"`
	CanUndo     bool               `json:"can_undo"`
	CanRedo     bool               `json:"can_redo"`
	UndoLabel   string             `json:"undo_label,omitempty"`
	RedoLabel   string             `json:"redo_label,omitempty"`
	Revision    int64              `json:"revision"`
	Dirty       bool               `json:"dirty"`
}

func (e *Editor) State() State {
	return State{
		Blocks:      e.Document(),
		SelectedID:  e.selected,
		PreviewMode: e.mode,
		CanUndo:     e.history.CanUndo(),
		CanRedo:     e.history.CanRedo(),
		UndoLabel:   e.history.UndoLabel(),
		RedoLabel:   e.history.RedoLabel(),
		Revision:    e.revision,
		Dirty:       e.Dirty(),
	}
}

func (e *Editor) dropStaleSelection() {
	if e.selected != "" && document.Find(e.doc, e.selected) < 0 {
		e.selected = ""
	}
}
