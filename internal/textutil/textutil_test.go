package textutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFoldCollisions(t *testing.T) {
	got := FoldCollisions([]string{"a.png", "B.png", "A.PNG", "b.png", "c.png"})
	want := [][]string{{"A.PNG", "a.png"}, {"B.png", "b.png"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("collisions mismatch (-want +got):\n%s", diff)
	}
}

func TestContainsFold(t *testing.T) {
	names := []string{"Hook.png", "cta.jpg"}
	if !ContainsFold(names, "hook.PNG", false) {
		t.Fatal("expected case-insensitive match")
	}
	if ContainsFold(names, "Hook.png", true) {
		t.Fatal("exact match should be skipped")
	}
	if ContainsFold(names, "other.png", false) {
		t.Fatal("unexpected match")
	}
}
