package tanker

import "strings"

// PluralForms is the order of the grammatical forms in a plural array.
var PluralForms = [...]string{"one", "some", "many", "none"}

// NormalizePlural rewrites plural forms (one, some, many, none) into the
// equivalent i18n:dynamic call of tanker:dynamic/plural_adv. Missing forms
// are empty and extra forms are ignored. Forms are spliced as markup, so
// they may contain i18n tags themselves.
func NormalizePlural(forms []string) string {
	var b strings.Builder
	b.WriteString(`<i18n:dynamic project="tanker" keyset="dynamic" key="plural_adv">`)
	b.WriteString(`<i18n:count><i18n:param>count</i18n:param></i18n:count>`)
	for i, name := range PluralForms {
		b.WriteString("<i18n:" + name + ">")
		if i < len(forms) {
			b.WriteString(forms[i])
		}
		b.WriteString("</i18n:" + name + ">")
	}
	b.WriteString(`</i18n:dynamic>`)
	return b.String()
}
