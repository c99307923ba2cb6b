package provision

import "fmt"

// Selection is the set of entities chosen for registration. It is a value:
// every operation returns a new Selection and leaves the receiver unchanged.
type Selection struct {
	order []string
	set   map[string]struct{}
}

// NewSelection returns an empty selection over the given inventory.
func NewSelection(entities []Entity) Selection {
	order := make([]string, len(entities))
	for i, e := range entities {
		order[i] = e.LocalID
	}
	return Selection{order: order, set: map[string]struct{}{}}
}

func (s Selection) known(id string) bool {
	for _, o := range s.order {
		if o == id {
			return true
		}
	}
	return false
}

func (s Selection) with(set map[string]struct{}) Selection {
	return Selection{order: s.order, set: set}
}

func (s Selection) clone() map[string]struct{} {
	set := make(map[string]struct{}, len(s.set))
	for id := range s.set {
		set[id] = struct{}{}
	}
	return set
}

// Has reports whether id is selected
func (s Selection) Has(id string) bool {
	_, ok := s.set[id]
	return ok
}

// Len returns the number of selected entities
func (s Selection) Len() int {
	return len(s.set)
}

// Selected returns the selected IDs in inventory order.
func (s Selection) Selected() []string {
	ids := make([]string, 0, len(s.set))
	for _, id := range s.order {
		if s.Has(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Toggle flips membership of id. Registered or still-checking entities may
// be selected; registering them again is harmless.
func (s Selection) Toggle(id string) (Selection, error) {
	if !s.known(id) {
		return s, fmt.Errorf("%w: %q", ErrUnknownEntity, id)
	}
	set := s.clone()
	if _, ok := set[id]; ok {
		delete(set, id)
	} else {
		set[id] = struct{}{}
	}
	return s.with(set), nil
}

// SelectUnregistered replaces the selection with exactly the entities whose
// status is not_registered, discarding manual edits.
func (s Selection) SelectUnregistered(statuses map[string]EntityStatus) Selection {
	set := map[string]struct{}{}
	for _, id := range s.order {
		if statuses[id] == StatusNotRegistered {
			set[id] = struct{}{}
		}
	}
	return s.with(set)
}

// SelectNone clears the selection
func (s Selection) SelectNone() Selection {
	return s.with(map[string]struct{}{})
}
