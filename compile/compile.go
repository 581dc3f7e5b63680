// Package compile turns merged keysets into the JavaScript and XML files
// served to the browser: the i18n runtime with its keysets declared, the
// per-language wrappers around it and the raw keysets dumps.
package compile

import (
	"fmt"
	"strings"

	"github.com/minios-linux/tanker/keyset"
	"github.com/minios-linux/tanker/tanker"
)

// KeyError is a translation failure of a single key.
type KeyError struct {
	Keyset string
	Key    string
	Err    error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("keyset %q key %q: %v", e.Keyset, e.Key, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// scriptSafe escapes characters that could end a surrounding <script>
// element. They only ever occur inside string literals of serialized
// keysets.
var scriptSafe = strings.NewReplacer(
	"<", `\u003C`,
	">", `\u003E`,
	"/", `\u002F`,
)

// Serialize returns the keysets as a script-safe object literal.
func Serialize(set *keyset.Set) string {
	return scriptSafe.Replace(set.JS())
}

// I18N compiles the runtime expression for the core's version: v1 cores
// get their keysets translated and declared per scope, v2 cores receive
// the keysets as they are.
func I18N(core *keyset.Core, data *keyset.Set, lang string) (string, error) {
	if core.Version == keyset.CoreV1 {
		return V1(core.Code, data, lang)
	}
	return V2(core.Code, data), nil
}

// V1 compiles a bem-bl runtime. Values are compiled with the tanker
// translator and declared one scope at a time, in lexical scope order.
func V1(core string, data *keyset.Set, lang string) (string, error) {
	lines := []string{
		"(function () {",
		"var __bem__ = {};",
		"(function (BEM) {",
		core,
		"}(__bem__));",
		"var i18n = __bem__.I18N;",
	}
	for _, scope := range data.Sorted() {
		ks, _ := data.Lookup(scope)
		decl, err := declare("i18n", scope, ks, lang)
		if err != nil {
			return "", err
		}
		lines = append(lines, decl)
	}
	lines = append(lines,
		"i18n.lang("+tanker.Quote(lang)+");",
		"return i18n;",
		"}())",
	)
	return strings.Join(lines, "\n"), nil
}

// V2 compiles a bem-core runtime: the core is a factory function whose
// result receives all keysets at once.
func V2(core string, data *keyset.Set) string {
	return "((" + core + ")()).decl(" + Serialize(data) + ")"
}

// declare emits one `<obj>.decl(scope, {...}, {"lang": lang});` call with
// translated values.
func declare(obj, scope string, ks *keyset.Keyset, lang string) (string, error) {
	lines := []string{obj + ".decl(" + tanker.Quote(scope) + ", {"}
	keys := ks.Keys()
	for i, key := range keys {
		v, _ := ks.Get(key)
		js, err := tanker.Translate(v.Raw())
		if err != nil {
			return "", &KeyError{Keyset: scope, Key: key, Err: err}
		}
		end := ","
		if i == len(keys)-1 {
			end = ""
		}
		lines = append(lines, tanker.Quote(key)+": "+js+end)
	}
	lines = append(lines, `}, { "lang": `+tanker.Quote(lang)+` });`)
	return strings.Join(lines, "\n"), nil
}
