// Package keyset models translation keysets: named, ordered collections of
// keys whose values are translation strings or plural forms.
//
// Keysets are read from per-language files of the form
//
//	{ "scope": { "key": "value", "plural": ["one", "some", "many", "none"] } }
//
// in JSON (gjson) or YAML (yaml.v3). Insertion order of scopes and keys is
// preserved everywhere, because it is the order of the generated code.
package keyset

import (
	"errors"
	"sort"
	"strings"

	"github.com/minios-linux/tanker/tanker"
)

// ErrUnsupportedValue is returned for values that are neither scalars nor
// lists of scalars.
var ErrUnsupportedValue = errors.New("unsupported keyset value")

// ---------------------------------------------------------------------------
// Value
// ---------------------------------------------------------------------------

// Value is a single translation.
type Value struct {
	// Text is the translation for non-plural values.
	Text string
	// Forms are the plural forms (one, some, many, none) for plural values.
	Forms []string
	// Plural marks Forms as the value, even when empty.
	Plural bool
}

// String returns a plain translation value.
func String(s string) Value {
	return Value{Text: s}
}

// Plural returns a plural value with the given forms.
func Plural(forms ...string) Value {
	return Value{Forms: forms, Plural: true}
}

// Raw returns the value as accepted by tanker.Translate.
func (v Value) Raw() any {
	if v.Plural {
		return v.Forms
	}
	return v.Text
}

// Markup returns the markup the value stands for.
func (v Value) Markup() string {
	return tanker.Normalize(v.Raw())
}

// Literal returns the value as a JS literal: a string or an array of strings.
func (v Value) Literal() string {
	if !v.Plural {
		return tanker.Quote(v.Text)
	}
	parts := make([]string, len(v.Forms))
	for i, f := range v.Forms {
		parts[i] = tanker.Quote(f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Equal reports whether two values are identical.
func (v Value) Equal(o Value) bool {
	if v.Plural != o.Plural || v.Text != o.Text || len(v.Forms) != len(o.Forms) {
		return false
	}
	for i := range v.Forms {
		if v.Forms[i] != o.Forms[i] {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Keyset
// ---------------------------------------------------------------------------

// Keyset is an ordered key -> value map.
type Keyset struct {
	keys   []string
	values map[string]Value
}

// New returns an empty keyset.
func New() *Keyset {
	return &Keyset{values: make(map[string]Value)}
}

// Set stores a value. An existing key keeps its position.
func (k *Keyset) Set(key string, v Value) {
	if _, ok := k.values[key]; !ok {
		k.keys = append(k.keys, key)
	}
	k.values[key] = v
}

// Get returns the value for key.
func (k *Keyset) Get(key string) (Value, bool) {
	v, ok := k.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (k *Keyset) Keys() []string {
	return k.keys
}

// Len returns the number of keys.
func (k *Keyset) Len() int {
	return len(k.keys)
}

// Delete removes key.
func (k *Keyset) Delete(key string) {
	if _, ok := k.values[key]; !ok {
		return
	}
	delete(k.values, key)
	k.keys = removeString(k.keys, key)
}

// ---------------------------------------------------------------------------
// Set
// ---------------------------------------------------------------------------

// Set is an ordered collection of keysets by scope name.
type Set struct {
	names   []string
	keysets map[string]*Keyset
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{keysets: make(map[string]*Keyset)}
}

// Keyset returns the keyset for scope, creating it if needed.
func (s *Set) Keyset(scope string) *Keyset {
	if ks, ok := s.keysets[scope]; ok {
		return ks
	}
	ks := New()
	s.names = append(s.names, scope)
	s.keysets[scope] = ks
	return ks
}

// Lookup returns the keyset for scope if it exists.
func (s *Set) Lookup(scope string) (*Keyset, bool) {
	ks, ok := s.keysets[scope]
	return ks, ok
}

// Names returns the scope names in insertion order.
func (s *Set) Names() []string {
	return s.names
}

// Sorted returns the scope names in lexical order.
func (s *Set) Sorted() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	sort.Strings(names)
	return names
}

// Len returns the number of scopes.
func (s *Set) Len() int {
	return len(s.names)
}

// Keys returns the total number of keys.
func (s *Set) Keys() int {
	n := 0
	for _, ks := range s.keysets {
		n += ks.Len()
	}
	return n
}

// Delete removes a scope.
func (s *Set) Delete(scope string) {
	if _, ok := s.keysets[scope]; !ok {
		return
	}
	delete(s.keysets, scope)
	s.names = removeString(s.names, scope)
}

// Clone returns a copy of the set sharing no keysets with s.
func (s *Set) Clone() *Set {
	c := NewSet()
	for _, name := range s.names {
		src := s.keysets[name]
		dst := c.Keyset(name)
		for _, key := range src.keys {
			dst.Set(key, src.values[key])
		}
	}
	return c
}

// JS returns the set as a compact object literal, preserving order.
func (s *Set) JS() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, name := range s.names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(tanker.Quote(name))
		b.WriteByte(':')
		writeKeyset(&b, s.keysets[name], "", "")
	}
	b.WriteByte('}')
	return b.String()
}

// JSON returns the set as indented JSON, preserving order.
func (s *Set) JSON() []byte {
	var b strings.Builder
	b.WriteString("{\n")
	for i, name := range s.names {
		b.WriteString("  ")
		b.WriteString(tanker.Quote(name))
		b.WriteString(": ")
		writeKeyset(&b, s.keysets[name], "\n    ", "\n  ")
		if i < len(s.names)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}\n")
	return []byte(b.String())
}

func writeKeyset(b *strings.Builder, ks *Keyset, indent, closing string) {
	b.WriteByte('{')
	for i, key := range ks.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(indent)
		b.WriteString(tanker.Quote(key))
		b.WriteByte(':')
		if indent != "" {
			b.WriteByte(' ')
		}
		b.WriteString(ks.values[key].Literal())
	}
	if len(ks.keys) > 0 {
		b.WriteString(closing)
	}
	b.WriteByte('}')
}

func removeString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
