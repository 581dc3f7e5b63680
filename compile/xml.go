package compile

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/minios-linux/tanker/keyset"
)

const xmlHeader = `<?xml version="1.0" encoding="utf-8"?>` + "\n" +
	`<tanker xmlns:xsl="http://www.w3.org/1999/XSL/Transform" ` +
	`xmlns:i18n="urn:yandex-functions:internationalization">` + "\n"

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// KeysetsXML renders the keysets as a tanker XML document, sorted by
// keyset name. Values that are well-formed XML fragments are embedded as
// markup, anything else is escaped. Plural values are written as their
// i18n:dynamic markup.
func KeysetsXML(set *keyset.Set) string {
	var lines []string
	for _, scope := range set.Sorted() {
		ks, _ := set.Lookup(scope)
		lines = append(lines, `<keyset id="`+xmlEscaper.Replace(scope)+`">`)
		for _, key := range ks.Keys() {
			v, _ := ks.Get(key)
			value := v.Markup()
			if !WellFormed(value) {
				value = xmlEscaper.Replace(value)
			}
			lines = append(lines,
				`<key id="`+xmlEscaper.Replace(key)+`">`,
				"<value>"+value+"</value>",
				"</key>",
			)
		}
		lines = append(lines, "</keyset>")
	}
	return xmlHeader + strings.Join(lines, "\n") + "\n</tanker>"
}

// WellFormed reports whether fragment parses as XML content of an
// element. Only the predefined entities are known.
func WellFormed(fragment string) bool {
	dec := xml.NewDecoder(strings.NewReader("<root>" + fragment + "</root>"))
	dec.Strict = true
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return true
		}
		if err != nil {
			return false
		}
	}
}
