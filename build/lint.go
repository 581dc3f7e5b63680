package build

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/tanker/keyset"
	"github.com/minios-linux/tanker/tanker"
)

// Finding is a problem with a single translation value.
type Finding struct {
	Target string
	Lang   string
	Keyset string
	Key    string
	// Err is a syntax error; nil for dropped-content findings.
	Err error
	// Issue describes an unknown i18n tag whose content is dropped.
	Issue tanker.Issue
}

// Lint translates every key of every target and language, as a v1 build
// would, and reports syntax errors and unknown i18n tags. Findings are
// sorted by target, language, keyset and key.
func Lint(ctx context.Context, opts Options) ([]Finding, error) {
	var (
		mu       sync.Mutex
		findings []Finding
	)

	g, ctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}
	for i := range opts.Targets {
		rt := &opts.Targets[i]
		for _, lang := range rt.Languages {
			if len(opts.Langs) > 0 && !contains(opts.Langs, lang) {
				continue
			}
			lang := lang
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				set, err := Load(rt, lang)
				if err != nil {
					return err
				}
				_, data, _ := keyset.ParseCore(set)
				found := lintSet(data)
				for i := range found {
					found[i].Target = rt.Target.Name
					found[i].Lang = lang
				}
				mu.Lock()
				findings = append(findings, found...)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.Lang != b.Lang {
			return a.Lang < b.Lang
		}
		if a.Keyset != b.Keyset {
			return a.Keyset < b.Keyset
		}
		return a.Key < b.Key
	})
	return findings, nil
}

func lintSet(set *keyset.Set) []Finding {
	var out []Finding
	for _, scope := range set.Names() {
		ks, _ := set.Lookup(scope)
		for _, key := range ks.Keys() {
			v, _ := ks.Get(key)
			issues, err := tanker.Lint(v.Raw())
			if err != nil {
				out = append(out, Finding{Keyset: scope, Key: key, Err: err})
				continue
			}
			for _, issue := range issues {
				out = append(out, Finding{Keyset: scope, Key: key, Issue: issue})
			}
		}
	}
	return out
}
