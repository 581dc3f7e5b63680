package keyset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

func TestKeysetKeepsFirstPosition(t *testing.T) {
	ks := New()
	ks.Set("b", String("1"))
	ks.Set("a", String("2"))
	ks.Set("b", String("3"))

	if diff := cmp.Diff([]string{"b", "a"}, ks.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := ks.Get("b"); v.Text != "3" {
		t.Errorf("b = %q, want 3", v.Text)
	}

	ks.Delete("b")
	ks.Delete("missing")
	if diff := cmp.Diff([]string{"a"}, ks.Keys()); diff != "" {
		t.Errorf("Keys after delete (-want +got):\n%s", diff)
	}
}

func TestSetCloneIsIndependent(t *testing.T) {
	s := NewSet()
	s.Keyset("z").Set("k", String("v"))
	s.Keyset("a").Set("k", Plural("x", "y"))

	c := s.Clone()
	c.Keyset("z").Set("k", String("changed"))
	c.Delete("a")

	if v, _ := s.Keyset("z").Get("k"); v.Text != "v" {
		t.Errorf("original changed: %q", v.Text)
	}
	if diff := cmp.Diff([]string{"z", "a"}, s.Names()); diff != "" {
		t.Errorf("Names (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "z"}, s.Sorted()); diff != "" {
		t.Errorf("Sorted (-want +got):\n%s", diff)
	}
	if s.Keys() != 2 {
		t.Errorf("Keys() = %d, want 2", s.Keys())
	}
}

func TestValueLiteral(t *testing.T) {
	if got := String(`say "hi"`).Literal(); got != `"say \"hi\""` {
		t.Errorf("Literal = %s", got)
	}
	if got := Plural("a", "b").Literal(); got != `["a","b"]` {
		t.Errorf("Literal = %s", got)
	}
	if got := Plural().Literal(); got != `[]` {
		t.Errorf("Literal = %s", got)
	}
	if !Plural("a").Equal(Plural("a")) || Plural("a").Equal(String("a")) {
		t.Error("Equal mismatch")
	}
}

func TestSetJS(t *testing.T) {
	s := NewSet()
	s.Keyset("b").Set("x", String("1"))
	s.Keyset("b").Set("p", Plural("a", "b"))
	s.Keyset("a")

	want := `{"b":{"x":"1","p":["a","b"]},"a":{}}`
	if got := s.JS(); got != want {
		t.Errorf("JS:\n got %s\nwant %s", got, want)
	}
}

func TestSetJSON(t *testing.T) {
	s := NewSet()
	s.Keyset("s").Set("k", String("v"))
	s.Keyset("e")

	want := "{\n  \"s\": {\n    \"k\": \"v\"\n  },\n  \"e\": {}\n}\n"
	if got := string(s.JSON()); got != want {
		t.Errorf("JSON:\n got %q\nwant %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// Readers
// ---------------------------------------------------------------------------

func dump(s *Set) map[string][]string {
	out := make(map[string][]string)
	for _, name := range s.Names() {
		ks, _ := s.Lookup(name)
		for _, key := range ks.Keys() {
			v, _ := ks.Get(key)
			out[name] = append(out[name], key+"="+v.Literal())
		}
	}
	return out
}

func TestParseJSON(t *testing.T) {
	s, err := ParseJSON([]byte(`{"b":{"x":"1","y":2,"z":true,"p":["a",3]},"a":{"k":"v"}}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "a"}, s.Names()); diff != "" {
		t.Errorf("Names (-want +got):\n%s", diff)
	}
	want := map[string][]string{
		"b": {`x="1"`, `y="2"`, `z="true"`, `p=["a","3"]`},
		"a": {`k="v"`},
	}
	if diff := cmp.Diff(want, dump(s)); diff != "" {
		t.Errorf("content (-want +got):\n%s", diff)
	}
}

func TestParseJSONErrors(t *testing.T) {
	for _, data := range []string{
		`{"s":{"k":null}}`,
		`{"s":{"k":{"nested":"x"}}}`,
		`{"s":{"k":[{"a":1}]}}`,
	} {
		if _, err := ParseJSON([]byte(data)); !errors.Is(err, ErrUnsupportedValue) {
			t.Errorf("ParseJSON(%s) error = %v, want ErrUnsupportedValue", data, err)
		}
	}
	for _, data := range []string{`{"s":`, `[]`, `{"s":"v"}`} {
		if _, err := ParseJSON([]byte(data)); err == nil {
			t.Errorf("ParseJSON(%s) expected error", data)
		}
	}
}

func TestParseYAML(t *testing.T) {
	s, err := ParseYAML([]byte(`b:
  x: "1"
  y: 2
  p:
    - one
    - some
a:
  k: v
`))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	want := map[string][]string{
		"b": {`x="1"`, `y="2"`, `p=["one","some"]`},
		"a": {`k="v"`},
	}
	if diff := cmp.Diff(want, dump(s)); diff != "" {
		t.Errorf("content (-want +got):\n%s", diff)
	}

	empty, err := ParseYAML(nil)
	if err != nil || empty.Len() != 0 {
		t.Errorf("empty document: %v, %d scopes", err, empty.Len())
	}

	if _, err := ParseYAML([]byte("s:\n  k: ~\n")); !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("null value error = %v", err)
	}
	if _, err := ParseYAML([]byte("- a\n")); err == nil {
		t.Error("sequence root: expected error")
	}
}

// ---------------------------------------------------------------------------
// Collect
// ---------------------------------------------------------------------------

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	l1 := filepath.Join(root, "common.blocks")
	l2 := filepath.Join(root, "desktop.blocks")

	writeFile(t, filepath.Join(l1, "b1", "b1.i18n", "all.json"), `{}`)
	writeFile(t, filepath.Join(l1, "b1", "b1.i18n", "ru.json"), `{}`)
	writeFile(t, filepath.Join(l1, "b1", "b1.i18n", "en.json"), `{}`)
	writeFile(t, filepath.Join(l1, "b2.i18n.yaml"), ``)
	writeFile(t, filepath.Join(l1, "b2.js"), ``)
	writeFile(t, filepath.Join(l2, "b1", "b1.i18n", "ru.yml"), ``)

	levels := []string{l1, l2, filepath.Join(root, "missing")}

	got, err := Collect(levels, "ru")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := []string{
		filepath.Join(l1, "b2.i18n.yaml"),
		filepath.Join(l1, "b1", "b1.i18n", "all.json"),
		filepath.Join(l1, "b1", "b1.i18n", "ru.json"),
		filepath.Join(l2, "b1", "b1.i18n", "ru.yml"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Collect ru (-want +got):\n%s", diff)
	}

	got, err = Collect(levels, AllLang)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want = []string{
		filepath.Join(l1, "b2.i18n.yaml"),
		filepath.Join(l1, "b1", "b1.i18n", "all.json"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Collect all (-want +got):\n%s", diff)
	}

	langs, err := Languages(levels)
	if err != nil {
		t.Fatalf("Languages: %v", err)
	}
	if diff := cmp.Diff([]string{"en", "ru"}, langs); diff != "" {
		t.Errorf("Languages (-want +got):\n%s", diff)
	}

	if !HasKeysets(l1) {
		t.Error("HasKeysets(l1) = false")
	}
	if HasKeysets(t.TempDir()) {
		t.Error("HasKeysets(empty) = true")
	}
}

func TestParseFileByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ru.yml")
	writeFile(t, path, "s:\n  k: v\n")

	s, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if v, _ := s.Keyset("s").Get("k"); v.Text != "v" {
		t.Errorf("k = %q", v.Text)
	}
	if _, err := ParseFile(filepath.Join(dir, "ru.txt")); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

// ---------------------------------------------------------------------------
// Core
// ---------------------------------------------------------------------------

func TestParseCore(t *testing.T) {
	s := NewSet()
	s.Keyset("all").Set("", String("BEM.I18N = function () {};"))
	s.Keyset("scope").Set("k", String("v"))

	core, data, err := ParseCore(s)
	if err != nil {
		t.Fatalf("ParseCore: %v", err)
	}
	if core.Version != CoreV1 {
		t.Errorf("Version = %v, want v1", core.Version)
	}
	if diff := cmp.Diff([]string{"scope"}, data.Names()); diff != "" {
		t.Errorf("data scopes (-want +got):\n%s", diff)
	}

	InjectCore(s, "function () { return i18n; }", CoreV2)
	core, data, err = ParseCore(s)
	if err != nil {
		t.Fatalf("ParseCore: %v", err)
	}
	if core.Version != CoreV2 || core.Code != "function () { return i18n; }" {
		t.Errorf("core = %+v", core)
	}
	if data.Len() != 1 {
		t.Errorf("data has %d scopes, want 1", data.Len())
	}
}

func TestParseCoreNotFound(t *testing.T) {
	s := NewSet()
	s.Keyset("all").Set("", String("no runtime here"))
	s.Keyset("i18n").Set("other", String("x"))

	_, data, err := ParseCore(s)
	if !errors.Is(err, ErrCoreNotFound) {
		t.Fatalf("err = %v, want ErrCoreNotFound", err)
	}
	if data.Len() != 0 {
		t.Errorf("core scopes leaked into data: %v", data.Names())
	}
}
