package keybuilder

import (
	"testing"

	"github.com/mpemberton/memo/internal/callargs"
)

func TestBuildIsDeterministic(t *testing.T) {
	args := callargs.New([]any{1, "two"}, callargs.KV{Name: "x", Value: 3})
	a := Build(args, false)
	b := Build(args, false)
	if a != b {
		t.Fatalf("Build must be deterministic for identical input, got %v != %v", a, b)
	}
}

func TestBuildDistinguishesPositionalFromKeyword(t *testing.T) {
	onlyPositional := Build(callargs.New([]any{"a", "b"}), false)
	withKeyword := Build(callargs.New([]any{"a"}, callargs.KV{Name: "b", Value: nil}), false)
	if onlyPositional == withKeyword {
		t.Fatal("a positional-only call must not collide with an equivalent split across positional/keyword")
	}
}

func TestOrderDependentKeying(t *testing.T) {
	a := callargs.New(nil, callargs.KV{Name: "x", Value: 1}, callargs.KV{Name: "y", Value: 2})
	b := callargs.New(nil, callargs.KV{Name: "y", Value: 2}, callargs.KV{Name: "x", Value: 1})

	if Build(a, false) == Build(b, false) {
		t.Fatal("order-dependent keying must distinguish different keyword orders")
	}
	if Build(a, true) != Build(b, true) {
		t.Fatal("order-independent keying must treat permuted keyword orders as equal")
	}
}

func TestUnhashableArgumentFallsBackButStaysDeterministic(t *testing.T) {
	args := callargs.New([]any{[]int{1, 2, 3}})
	key := Build(args, false)
	if key.Hashable() {
		t.Fatal("a slice argument must be reported as not hashable")
	}
	if Build(args, false) != key {
		t.Fatal("the string fallback must still be deterministic for identical input")
	}

	mutated := callargs.New([]any{[]int{1, 2, 3, 0}})
	if Build(mutated, false) == key {
		t.Fatal("distinct slice contents must not collide")
	}
}

func TestStringIsCanonicalRepr(t *testing.T) {
	key := Build(callargs.New([]any{"a"}), false)
	if key.String() == "" {
		t.Fatal("String() must return the canonical representation, not be empty")
	}
}

func TestBuildFromCustom(t *testing.T) {
	a := BuildFromCustom("same-logical-key")
	b := BuildFromCustom("same-logical-key")
	c := BuildFromCustom("different")
	if a != b {
		t.Fatal("BuildFromCustom must be deterministic for equal inputs")
	}
	if a == c {
		t.Fatal("BuildFromCustom must distinguish different inputs")
	}
}
