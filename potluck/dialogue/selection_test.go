package dialogue

import "testing"

func TestSelectionToggle(t *testing.T) {
	s := NewSelection()
	for _, id := range []int{3, 3, 5, 1} {
		s.Toggle(id)
	}
	if s.Has(3) {
		t.Fatalf("3 toggled twice should be unselected")
	}
	if !s.Has(5) || !s.Has(1) {
		t.Fatalf("expected 1 and 5 selected")
	}
	if got := s.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
	ids := s.IDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 5 {
		t.Fatalf("IDs = %v, want [1 5]", ids)
	}
}
