package keyset

import (
	"errors"
	"strings"
)

// ErrCoreNotFound is returned when a set carries no i18n core.
var ErrCoreNotFound = errors.New("core of i18n is not found")

// Scopes and keys where the i18n core is stored.
const (
	CoreScope   = "i18n" // i18n:i18n holds a bem-core (v2) core
	LegacyScope = "all"  // all:"" holds a bem-bl (v1) core
)

// CoreVersion identifies the i18n runtime a core belongs to.
type CoreVersion int

const (
	// CoreV1 is the bem-bl runtime (BEM.I18N). Values are compiled with
	// the tanker translator.
	CoreV1 CoreVersion = 1
	// CoreV2 is the bem-core runtime. Values are passed through.
	CoreV2 CoreVersion = 2
)

func (v CoreVersion) String() string {
	switch v {
	case CoreV1:
		return "v1"
	case CoreV2:
		return "v2"
	default:
		return "auto"
	}
}

// Core is the source code of an i18n runtime.
type Core struct {
	Version CoreVersion
	Code    string
}

// ParseCore separates the i18n core from the data keysets. The core scopes
// are never part of the returned data. A v2 core wins over a v1 core when
// both are present.
func ParseCore(set *Set) (*Core, *Set, error) {
	var v1, v2 string

	data := NewSet()
	for _, scope := range set.Names() {
		ks, _ := set.Lookup(scope)
		switch scope {
		case CoreScope:
			if v, ok := ks.Get(CoreScope); ok && !v.Plural && strings.TrimSpace(v.Text) != "" {
				v2 = v.Text
			}
		case LegacyScope:
			if v, ok := ks.Get(""); ok && !v.Plural && strings.Contains(v.Text, "BEM.I18N") {
				v1 = v.Text
			}
		default:
			dst := data.Keyset(scope)
			for _, key := range ks.Keys() {
				v, _ := ks.Get(key)
				dst.Set(key, v)
			}
		}
	}

	switch {
	case v2 != "":
		return &Core{Version: CoreV2, Code: v2}, data, nil
	case v1 != "":
		return &Core{Version: CoreV1, Code: v1}, data, nil
	default:
		return nil, data, ErrCoreNotFound
	}
}

// InjectCore stores code in set where ParseCore looks for a core of the
// given version. Any version other than CoreV1 is stored as v2.
func InjectCore(set *Set, code string, version CoreVersion) {
	if version == CoreV1 {
		set.Keyset(LegacyScope).Set("", String(code))
		return
	}
	set.Keyset(CoreScope).Set(CoreScope, String(code))
}
