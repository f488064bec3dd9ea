package reposlist

import (
	"fmt"

	"toprepos/internal/savedstate"
)

// SavedStateKey is the handle key the last Content State is stored under.
const SavedStateKey = "savedState"

// SavedStateSlot persists the last Content State across container instances.
type SavedStateSlot interface {
	LoadSavedState() (Content, bool)
	SaveState(Content) error
}

// HandleSlot stores Content in a savedstate.Handle.
type HandleSlot struct {
	handle *savedstate.Handle
}

var _ SavedStateSlot = (*HandleSlot)(nil)

func NewHandleSlot(h *savedstate.Handle) *HandleSlot {
	return &HandleSlot{handle: h}
}

func (s *HandleSlot) LoadSavedState() (Content, bool) {
	if s == nil || s.handle == nil {
		return nil, false
	}
	v, ok := s.handle.Get(SavedStateKey)
	if !ok {
		return nil, false
	}
	c, ok := v.(Content)
	return c, ok
}

func (s *HandleSlot) SaveState(c Content) error {
	if s == nil || s.handle == nil {
		return fmt.Errorf("save state: nil handle")
	}
	if c == nil {
		return fmt.Errorf("save state: nil content")
	}
	s.handle.Set(SavedStateKey, c)
	return nil
}
