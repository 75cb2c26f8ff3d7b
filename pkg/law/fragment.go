package law

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Fragment is a single typed identifier captured from a citation, for
// example article "7:658" or book "5".
type Fragment struct {
	Type   ElementType
	Number string
}

func (f Fragment) String() string {
	return f.Type.String() + ":" + f.Number
}

// Fragments is a set of fragments with at most one entry per type.
type Fragments []Fragment

// Get returns the number stored for t.
func (fs Fragments) Get(t ElementType) (string, bool) {
	for _, f := range fs {
		if f.Type == t {
			return f.Number, true
		}
	}
	return "", false
}

// Has reports whether a fragment of type t is present.
func (fs Fragments) Has(t ElementType) bool {
	_, ok := fs.Get(t)
	return ok
}

// With returns a copy of fs where t is set to number, replacing any
// existing entry of the same type.
func (fs Fragments) With(t ElementType, number string) Fragments {
	out := make(Fragments, 0, len(fs)+1)
	replaced := false
	for _, f := range fs {
		if f.Type == t {
			out = append(out, Fragment{Type: t, Number: number})
			replaced = true
			continue
		}
		out = append(out, f)
	}
	if !replaced {
		out = append(out, Fragment{Type: t, Number: number})
	}
	return out
}

// Sorted returns a copy ordered from least to most specific.
func (fs Fragments) Sorted() Fragments {
	out := make(Fragments, len(fs))
	copy(out, fs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Resolvable returns the fragments usable as resolution constraints.
func (fs Fragments) Resolvable() Fragments {
	var out Fragments
	for _, f := range fs.Sorted() {
		if f.Type.Resolvable() && f.Number != "" {
			out = append(out, f)
		}
	}
	return out
}

// Narrowest returns the most specific resolvable fragment.
func (fs Fragments) Narrowest() (Fragment, bool) {
	r := fs.Resolvable()
	if len(r) == 0 {
		return Fragment{}, false
	}
	return r[len(r)-1], true
}

// Key returns a canonical, order-independent representation suitable
// for deduplication.
func (fs Fragments) Key() string {
	parts := make([]string, 0, len(fs))
	for _, f := range fs.Sorted() {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, "|")
}

// Equal reports whether both sets hold the same fragments.
func (fs Fragments) Equal(other Fragments) bool {
	return fs.Key() == other.Key()
}

// MarshalJSON encodes the fragments as an object keyed by English type
// name, least specific first.
func (fs Fragments) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs.Sorted() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Type.String())
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Number)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the object form produced by MarshalJSON.
func (fs *Fragments) UnmarshalJSON(b []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Fragments, 0, len(raw))
	for k, v := range raw {
		t, err := ParseElementType(k)
		if err != nil {
			return fmt.Errorf("fragment key: %w", err)
		}
		out = append(out, Fragment{Type: t, Number: v})
	}
	*fs = out.Sorted()
	return nil
}
