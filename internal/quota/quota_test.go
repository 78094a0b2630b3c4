package quota

import "testing"

func TestAccountantCountsPerOrigin(t *testing.T) {
	a := NewAccountant()

	a.NotifyWriteFailed("https://a.example")
	a.NotifyWriteFailed("https://a.example")
	a.NotifyWriteFailed("https://b.example")

	if got := a.WriteFailures("https://a.example"); got != 2 {
		t.Fatalf("failures for a.example = %d, want 2", got)
	}
	if got := a.WriteFailures("https://b.example"); got != 1 {
		t.Fatalf("failures for b.example = %d, want 1", got)
	}
	if got := a.WriteFailures("https://c.example"); got != 0 {
		t.Fatalf("failures for c.example = %d, want 0", got)
	}
}
