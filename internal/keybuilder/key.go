// Package keybuilder turns a call's arguments into a deterministic,
// comparable Key.
//
// Grounded on original_source/memoization/caching/general/keys.py and
// src/memoization/memoization.py's _make_key / _make_key_unwrapped: a key
// is a compound of the positional tuple, a sentinel separator (only when
// keyword arguments are present), and the keyword pairs. Order-dependent
// keying walks keyword pairs in call order; order-independent keying
// sorts them by name first.
//
// Go arguments aren't guaranteed hashable the way Python's are (a slice
// or map argument panics on ==), so every argument is first classified:
// comparable values are encoded through a fast, allocation-light path;
// an argument containing a slice, map, func, or chan falls back to a
// canonical %#v rendering of that argument within the call's textual
// encoding, matching the spec's "degrade to string equality" limitation.
package keybuilder

import (
	"fmt"
	"hash/fnv"
	"reflect"
	"sort"
	"strconv"

	"github.com/mpemberton/memo/internal/callargs"
)

// sentinel marks the boundary between positional and keyword segments in
// the encoded representation, so that a call with positional ("a", "b")
// can never collide with positional ("a") plus keyword b=....
const sentinel = "\x00kw\x00"

// Key is a hashable, comparable identifier for one memoized call.
//
// hash is computed once while the key is built and stored on the Key.
// Engines index Keys with Go maps, which hash the whole struct on every
// lookup; the stored hash is not used in place of that. repr is the
// canonical textual encoding; two Keys are equal iff both fields
// match, which also protects against a bare hash collision being treated
// as a false hit.
type Key struct {
	hash     uint64
	repr     string
	hashable bool
}

// String returns the key's canonical textual representation, for
// logging and diagnostics only — never used for equality.
func (k Key) String() string { return k.repr }

// Hashable reports whether every argument took the fast, directly
// comparable path (no slice/map/func/chan argument forced the string
// fallback). Exposed for diagnostics and tests; cache_info() does not
// report it and it is not used for correctness — equality always goes
// through hash+repr.
func (k Key) Hashable() bool { return k.hashable }

// Build constructs a Key for a call's arguments.
func Build(args callargs.Args, orderIndependent bool) Key {
	var buf []byte
	hashable := true

	buf = encodeSlice(buf, args.Positional, &hashable)

	if len(args.Keyword) > 0 {
		buf = append(buf, sentinel...)
		kw := args.Keyword
		if orderIndependent {
			kw = append([]callargs.KV(nil), args.Keyword...)
			sort.Slice(kw, func(i, j int) bool { return kw[i].Name < kw[j].Name })
		}
		for _, pair := range kw {
			buf = append(buf, pair.Name...)
			buf = append(buf, '=')
			buf = encodeValue(buf, pair.Value, &hashable)
			buf = append(buf, ',')
		}
	}

	h := fnv.New64a()
	_, _ = h.Write(buf)

	return Key{
		hash:     h.Sum64(),
		repr:     string(buf),
		hashable: hashable,
	}
}

// BuildFromCustom wraps the value returned by a user-supplied custom key
// maker (§6's custom_key_maker) into a Key, folding it through the same
// per-value encoding Build applies to each argument (typed fast path for
// comparable values, %#v fallback otherwise) — the custom maker owns key
// *semantics*, not the Key representation itself.
func BuildFromCustom(v any) Key {
	var hashable = true
	buf := encodeValue(nil, v, &hashable)

	h := fnv.New64a()
	_, _ = h.Write(buf)

	return Key{hash: h.Sum64(), repr: string(buf), hashable: hashable}
}

func encodeSlice(buf []byte, vals []any, hashable *bool) []byte {
	buf = append(buf, '(')
	for i, v := range vals {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = encodeValue(buf, v, hashable)
	}
	buf = append(buf, ')')
	return buf
}

// encodeValue appends a type-tagged encoding of v to buf. Common
// comparable scalar kinds take a direct, reflection-free path; anything
// else is checked with reflect.Value.Comparable and, if it fails (the
// argument is or contains a slice, map, func, or channel), rendered via
// fmt's %#v — the same canonical-textual-form fallback the spec
// describes, with the same documented collision risk: two distinct
// unhashable values that stringify identically will collide.
func encodeValue(buf []byte, v any, hashable *bool) []byte {
	switch x := v.(type) {
	case nil:
		return append(buf, "nil"...)
	case string:
		return append(strconv.AppendQuote(append(buf, 's'), x), ' ')
	case bool:
		return strconv.AppendBool(append(buf, 'b'), x)
	case int:
		return strconv.AppendInt(append(buf, 'i'), int64(x), 10)
	case int64:
		return strconv.AppendInt(append(buf, 'i'), x, 10)
	case int32:
		return strconv.AppendInt(append(buf, 'i'), int64(x), 10)
	case uint:
		return strconv.AppendUint(append(buf, 'u'), uint64(x), 10)
	case uint64:
		return strconv.AppendUint(append(buf, 'u'), x, 10)
	case float64:
		return strconv.AppendFloat(append(buf, 'f'), x, 'g', -1, 64)
	case float32:
		return strconv.AppendFloat(append(buf, 'f'), float64(x), 'g', -1, 32)
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return append(buf, "nil"...)
	}
	if !rv.Comparable() {
		*hashable = false
		return append(buf, fmt.Sprintf("%T#%#v", v, v)...)
	}
	return append(buf, fmt.Sprintf("%T#%v", v, v)...)
}
