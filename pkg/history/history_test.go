package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cloneInts(v []int) []int {
	if v == nil {
		return nil
	}
	out := make([]int, len(v))
	copy(out, v)
	return out
}

func TestStack_UndoRedo(t *testing.T) {
	s := New(DefaultLimit, cloneInts)
	state := []int{}

	s.Record("add 1", state)
	state = append(cloneInts(state), 1)
	s.Record("add 2", state)
	state = append(cloneInts(state), 2)

	assert.True(t, s.CanUndo())
	assert.False(t, s.CanRedo())
	assert.Equal(t, "add 2", s.UndoLabel())

	state, ok := s.Undo(state)
	require.True(t, ok)
	assert.Equal(t, []int{1}, state)
	assert.Equal(t, "add 2", s.RedoLabel())

	state, ok = s.Redo(state)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, state)

	state, _ = s.Undo(state)
	state, _ = s.Undo(state)
	assert.Equal(t, []int{}, state)

	undo, redo := s.Len()
	assert.Equal(t, 0, undo)
	assert.Equal(t, 2, redo)
}

func TestStack_EmptyIsNoop(t *testing.T) {
	s := New(DefaultLimit, cloneInts)
	state := []int{7}

	out, ok := s.Undo(state)
	assert.False(t, ok)
	assert.Equal(t, state, out)

	out, ok = s.Redo(state)
	assert.False(t, ok)
	assert.Equal(t, state, out)
	assert.Equal(t, "", s.UndoLabel())
	assert.Equal(t, "", s.RedoLabel())
}

func TestStack_RecordClearsRedo(t *testing.T) {
	s := New(DefaultLimit, cloneInts)
	s.Record("a", []int{})
	state, _ := s.Undo([]int{1})
	assert.True(t, s.CanRedo())

	s.Record("b", state)
	assert.False(t, s.CanRedo())
}

func TestStack_Limit(t *testing.T) {
	s := New(3, cloneInts)
	for i := 0; i < 5; i++ {
		s.Record("step", []int{i})
	}

	undo, _ := s.Len()
	assert.Equal(t, 3, undo)

	state, _ := s.Undo([]int{5})
	assert.Equal(t, []int{4}, state)
	state, _ = s.Undo(state)
	state, _ = s.Undo(state)
	assert.Equal(t, []int{2}, state)

	_, ok := s.Undo(state)
	assert.False(t, ok, "oldest entries were evicted")
}

func TestStack_Unbounded(t *testing.T) {
	s := New(0, cloneInts)
	for i := 0; i < 200; i++ {
		s.Record("step", []int{i})
	}
	undo, _ := s.Len()
	assert.Equal(t, 200, undo)
}

func TestStack_SnapshotsAreIsolated(t *testing.T) {
	s := New(DefaultLimit, cloneInts)
	state := []int{1, 2, 3}
	s.Record("edit", state)
	state[0] = 99

	restored, ok := s.Undo(state)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, restored)

	restored[1] = 42
	again, ok := s.Redo(restored)
	require.True(t, ok)
	assert.Equal(t, 99, again[0])

	back, _ := s.Undo(again)
	assert.Equal(t, []int{1, 42, 3}, back)
}

func TestStack_Clear(t *testing.T) {
	s := New(DefaultLimit, cloneInts)
	s.Record("a", []int{1})
	s.Clear()
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}

func TestNew_NegativeLimitUsesDefault(t *testing.T) {
	s := New[int](-1, nil)
	assert.Equal(t, DefaultLimit, s.Limit())
}
