package provision

import "testing"

func TestTee(t *testing.T) {
	if Tee() != nil || Tee(nil, nil) != nil {
		t.Error("Tee() with no observers should be nil")
	}

	var order []string
	a := func(Event) { order = append(order, "a") }
	b := func(Event) { order = append(order, "b") }

	Tee(a, nil, b)(Event{Type: EventStep})
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("delivery order = %v, want [a b]", order)
	}
}
