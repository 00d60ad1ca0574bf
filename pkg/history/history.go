package history

// DefaultLimit is the number of undo snapshots kept when no limit is configured
const DefaultLimit = 50

// Entry is one snapshot with the label of the action that followed it
type Entry[T any] struct {
	Label    string
	Snapshot T
}

// Stack keeps linear undo/redo history over whole snapshots. Snapshots are
// copied with the clone function on the way in and on the way out so callers
// can never alter stored history.
//
// Stack is not safe for concurrent use.
type Stack[T any] struct {
	undo  []Entry[T]
	redo  []Entry[T]
	limit int
	clone func(T) T
}

// New creates a stack bounded to limit undo entries. A limit of 0 keeps every entry.
func New[T any](limit int, clone func(T) T) *Stack[T] {
	if limit < 0 {
		limit = DefaultLimit
	}
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Stack[T]{limit: limit, clone: clone}
}

// Record pushes the state that precedes a mutation and invalidates redo.
// The oldest entry is evicted when the limit is exceeded.
func (s *Stack[T]) Record(label string, current T) {
	s.undo = append(s.undo, Entry[T]{Label: label, Snapshot: s.clone(current)})
	s.redo = nil
	if s.limit > 0 && len(s.undo) > s.limit {
		drop := len(s.undo) - s.limit
		s.undo = append([]Entry[T](nil), s.undo[drop:]...)
	}
}

// Undo returns the previous state and stores current on the redo side.
// The second result is false when there is nothing to undo.
func (s *Stack[T]) Undo(current T) (T, bool) {
	if len(s.undo) == 0 {
		return current, false
	}
	top := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, Entry[T]{Label: top.Label, Snapshot: s.clone(current)})
	return s.clone(top.Snapshot), true
}

// Redo returns the state that was undone and stores current on the undo side.
// The second result is false when there is nothing to redo.
func (s *Stack[T]) Redo(current T) (T, bool) {
	if len(s.redo) == 0 {
		return current, false
	}
	top := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, Entry[T]{Label: top.Label, Snapshot: s.clone(current)})
	return s.clone(top.Snapshot), true
}

func (s *Stack[T]) CanUndo() bool {
	return len(s.undo) > 0
}

func (s *Stack[T]) CanRedo() bool {
	return len(s.redo) > 0
}

// UndoLabel returns the label of the action the next Undo reverts
func (s *Stack[T]) UndoLabel() string {
	if len(s.undo) == 0 {
		return ""
	}
	return s.undo[len(s.undo)-1].Label
}

// RedoLabel returns the label of the action the next Redo replays
func (s *Stack[T]) RedoLabel() string {
	if len(s.redo) == 0 {
		return ""
	}
	return s.redo[len(s.redo)-1].Label
}

// Len returns the sizes of the undo and redo sides
func (s *Stack[T]) Len() (undo int, redo int) {
	return len(s.undo), len(s.redo)
}

func (s *Stack[T]) Limit() int {
	return s.limit
}

// Clear drops all history
func (s *Stack[T]) Clear() {
	s.undo = nil
	s.redo = nil
}
