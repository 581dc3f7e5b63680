package compile

import (
	"strings"

	"github.com/minios-linux/tanker/keyset"
)

// Exports selects the module systems a lang file registers the runtime
// with.
type Exports struct {
	CommonJS bool
	YModules bool
	Globals  bool
	// ForceGlobal defines BEM.I18N even when a module system took the
	// runtime.
	ForceGlobal bool
}

// AllExports registers with every module system.
var AllExports = Exports{CommonJS: true, YModules: true, Globals: true}

// LangFile wraps the compiled runtime into a *.lang.{lang}.js file.
func LangFile(core *keyset.Core, data *keyset.Set, lang string, exports Exports) (string, error) {
	i18n, err := I18N(core, data, lang)
	if err != nil {
		return "", err
	}

	lines := []string{
		"(function (global) {",
		"    var __i18n__ = " + i18n + ",",
		"        defineAsGlobal = true;",
		"",
	}
	register := func(block ...string) {
		lines = append(lines, block[:len(block)-1]...)
		if !exports.ForceGlobal {
			lines = append(lines, "        defineAsGlobal = false;")
		}
		lines = append(lines, block[len(block)-1], "")
	}
	if exports.CommonJS {
		register(
			"    // CommonJS",
			`    if (typeof exports === "object") {`,
			"        module.exports = __i18n__;",
			"    }",
		)
	}
	if exports.YModules {
		register(
			"    // YModules",
			`    if (typeof modules === "object") {`,
			`        modules.define("i18n", function (provide) {`,
			"            provide(__i18n__);",
			"        });",
			"    }",
		)
	}
	if exports.Globals || exports.ForceGlobal {
		lines = append(lines,
			"    if (defineAsGlobal) {",
			"        global.BEM || (global.BEM = {});",
			"        global.BEM.I18N = __i18n__;",
			"    }",
		)
	}
	lines = append(lines, "})(this);")
	return strings.Join(lines, "\n"), nil
}

// LegacyLangFile emits declarations for a BEM.I18N object that is already
// on the page. A v1 core, when given, is prepended so the file also works
// standalone.
func LegacyLangFile(core *keyset.Core, data *keyset.Set, lang string) (string, error) {
	decls := make([]string, 0, data.Len())
	for _, scope := range data.Sorted() {
		ks, _ := data.Lookup(scope)
		decl, err := declare("BEM.I18N", scope, ks, lang)
		if err != nil {
			return "", err
		}
		decls = append(decls, decl)
	}

	var b strings.Builder
	if core != nil && core.Version == keyset.CoreV1 {
		b.WriteString(core.Code)
		b.WriteString("\n\n")
	}
	b.WriteString("if (typeof BEM !== 'undefined' && BEM.I18N) {\n")
	b.WriteString(strings.Join(decls, "\n\n"))
	b.WriteString("\n\nBEM.I18N.lang('" + lang + "');\n\n}\n")
	return b.String(), nil
}

// KeysetsFile returns the merged keysets as a CommonJS module.
func KeysetsFile(set *keyset.Set) string {
	return "module.exports = " + Serialize(set) + ";"
}
