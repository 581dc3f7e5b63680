// Package tanker compiles translation values written in tanker markup into
// expression code for the i18n runtime.
//
// A value is either plain text, which compiles to a quoted string literal,
// or text with i18n tags, which compiles to a function of a params object:
//
//	Hello <i18n:param>who</i18n:param>!
//	function(params) { return "Hello " + params["who"] + "!" }
//
// Supported tags are <i18n:param> (parameter lookup), <i18n:dynamic> with
// keyset/key/project attributes (call of another key, its child tags become
// named arguments) and <i18n:js> inside a bare <i18n:dynamic> (raw code).
// Other i18n tags are parsed but their content is dropped. Tags outside the
// i18n namespace and character references are copied verbatim.
//
// An array of up to four strings is a plural key: its forms (one, some,
// many, none) are passed to tanker:dynamic/plural_adv.
package tanker

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
)

// markupHint matches values that may need the parser.
var markupHint = regexp.MustCompile(`(?i)<i18n:|&`)

// HasMarkup reports whether value contains an i18n tag or a character
// reference. Values without either compile to a plain literal.
func HasMarkup(value string) bool {
	return markupHint.MatchString(value)
}

// Translate compiles a raw translation value. Slices are plural forms,
// other values are converted to their string form.
func Translate(raw any) (string, error) {
	value := Normalize(raw)
	if !HasMarkup(value) {
		return Quote(value), nil
	}
	return Compile(value)
}

// XMLToJS is Translate with an optional callback that receives the result.
// The callback runs synchronously before XMLToJS returns and is not called
// on error.
func XMLToJS(raw any, callback func(js string)) (string, error) {
	js, err := Translate(raw)
	if err != nil {
		return "", err
	}
	if callback != nil {
		callback(js)
	}
	return js, nil
}

// Compile runs the full parser on value, without the plain text shortcut.
func Compile(value string) (string, error) {
	tree, err := Build(value)
	if err != nil {
		return "", err
	}
	return tree.Render(), nil
}

// Build parses value into a new tree.
func Build(value string) (*Tree, error) {
	tree := NewTree()
	if err := Parse(value, tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Normalize returns the markup for a raw value: plural forms are rewritten
// to an i18n:dynamic call, anything else is converted to a string.
func Normalize(raw any) string {
	switch v := raw.(type) {
	case []string:
		return NormalizePlural(v)
	case []any:
		forms := make([]string, len(v))
		for i, f := range v {
			forms[i] = stringify(f)
		}
		return NormalizePlural(forms)
	default:
		return stringify(raw)
	}
}

func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatFloat(v, 64)
	case float32:
		return formatFloat(float64(v), 32)
	case fmt.Stringer:
		return v.String()
	}
	switch k := reflect.ValueOf(v); k.Kind() {
	case reflect.Map, reflect.Struct:
		return "[object Object]"
	case reflect.Pointer:
		if e := k.Elem().Kind(); e == reflect.Map || e == reflect.Struct {
			return "[object Object]"
		}
	}
	return fmt.Sprint(v)
}

// formatFloat prints integral values without exponent up to 1e21.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, bits)
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}
