package keyset

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/minios-linux/tanker/tanker"
)

// ParseJSONFile reads a JSON keyset file.
func ParseJSONFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	set, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return set, nil
}

// ParseJSON parses `{scope: {key: value}}` JSON, keeping document order.
func ParseJSON(data []byte) (*Set, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("keysets root must be an object")
	}

	set := NewSet()
	var err error
	root.ForEach(func(scope, keys gjson.Result) bool {
		if !keys.IsObject() {
			err = fmt.Errorf("keyset %q: must be an object", scope.String())
			return false
		}
		ks := set.Keyset(scope.String())
		keys.ForEach(func(key, value gjson.Result) bool {
			var v Value
			v, err = jsonValue(value)
			if err != nil {
				err = fmt.Errorf("keyset %q key %q: %w", scope.String(), key.String(), err)
				return false
			}
			ks.Set(key.String(), v)
			return true
		})
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func jsonValue(r gjson.Result) (Value, error) {
	if r.IsArray() {
		var forms []string
		var err error
		r.ForEach(func(_, item gjson.Result) bool {
			var s string
			s, err = jsonScalar(item)
			forms = append(forms, s)
			return err == nil
		})
		if err != nil {
			return Value{}, err
		}
		return Plural(forms...), nil
	}
	s, err := jsonScalar(r)
	if err != nil {
		return Value{}, err
	}
	return String(s), nil
}

func jsonScalar(r gjson.Result) (string, error) {
	switch r.Type {
	case gjson.String:
		return r.Str, nil
	case gjson.Number:
		return tanker.Normalize(r.Num), nil
	case gjson.True, gjson.False:
		return tanker.Normalize(r.Bool()), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedValue, r.Raw)
	}
}
