// Package langmeta validates language codes and provides their display
// metadata (native names and emoji flags) for the CLI.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// All is the pseudo language of language-independent keysets. It is valid
// everywhere a language code is accepted.
const All = "all"

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

func parse(lang string) (language.Tag, error) {
	return language.Parse(strings.TrimSpace(lang))
}

// Canonicalize returns the BCP 47 form of lang (pt_br -> pt-BR). Codes that
// do not parse are returned trimmed but otherwise unchanged.
func Canonicalize(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == All {
		return All
	}
	tag, err := parse(lang)
	if err != nil {
		return lang
	}
	return tag.String()
}

// Valid reports whether lang is a known language code or All.
func Valid(lang string) bool {
	if lang == All {
		return true
	}
	_, err := parse(lang)
	return err == nil && lang != ""
}

// Resolve returns best-effort metadata for lang. Unknown codes yield their
// own code as the name and no flag.
func Resolve(lang string) Meta {
	if lang == All {
		return Meta{Name: All}
	}
	tag, err := parse(lang)
	if err != nil {
		return Meta{Name: lang}
	}
	name := display.Self.Name(tag)
	if name == "" {
		name = lang
	}
	return Meta{Name: name, Flag: flag(tag)}
}

// flag builds the regional indicator pair of the tag's (possibly inferred)
// region.
func flag(tag language.Tag) string {
	region, conf := tag.Region()
	if conf == language.No {
		return ""
	}
	code := region.String()
	if len(code) != 2 || code[0] < 'A' || code[0] > 'Z' || code[1] < 'A' || code[1] > 'Z' {
		return ""
	}
	return string([]rune{
		rune(0x1F1E6 + int(code[0]-'A')),
		rune(0x1F1E6 + int(code[1]-'A')),
	})
}
