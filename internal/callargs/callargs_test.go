package callargs

import "testing"

func TestCloneIsIndependent(t *testing.T) {
	original := New([]any{"a", 1}, KV{Name: "x", Value: 1})
	clone := original.Clone()

	clone.Positional[0] = "mutated"
	clone.Keyword[0].Value = 2

	if original.Positional[0] != "a" {
		t.Fatalf("mutating the clone's positional slice affected the original: %v", original.Positional)
	}
	if original.Keyword[0].Value != 1 {
		t.Fatalf("mutating the clone's keyword slice affected the original: %v", original.Keyword)
	}
}

func TestCloneOfEmptyArgs(t *testing.T) {
	clone := New(nil).Clone()
	if clone.Positional != nil || clone.Keyword != nil {
		t.Fatalf("cloning an empty Args should stay nil, got %#v", clone)
	}
}

func TestNewWithoutKeywords(t *testing.T) {
	a := New([]any{1, 2, 3})
	if len(a.Keyword) != 0 {
		t.Fatalf("expected no keyword pairs, got %v", a.Keyword)
	}
}
