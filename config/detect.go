package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/minios-linux/tanker/keyset"
	"github.com/minios-linux/tanker/langmeta"
)

// Detect builds a config from the directory layout: every top-level
// directory holding keysets is a level (in lexical order), languages are
// the per-language file names found in them, and the single target is
// named after the root directory.
func Detect(rootDir string) (*File, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", absRoot, err)
	}

	var levels []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || name == "node_modules" {
			continue
		}
		if keyset.HasKeysets(filepath.Join(absRoot, name)) {
			levels = append(levels, name)
		}
	}
	if len(levels) == 0 {
		return nil, ErrNoConfig
	}

	abs := make([]string, len(levels))
	for i, l := range levels {
		abs[i] = filepath.Join(absRoot, l)
	}
	found, err := keyset.Languages(abs)
	if err != nil {
		return nil, err
	}
	var langs []string
	for _, l := range found {
		if langmeta.Valid(l) {
			langs = append(langs, l)
		}
	}

	name := filepath.Base(absRoot)
	f := &File{
		Languages: langs,
		Levels:    levels,
		Jobs:      runtime.NumCPU(),
		Targets: []Target{{
			Name:   name,
			Output: filepath.Join("bundles", name),
		}},
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}
