package keyset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Suffix marks keyset directories (blocks/b1/b1.i18n/) and standalone
// keyset files before their extension (blocks/b1/b1.i18n.json).
const Suffix = ".i18n"

// AllLang is the pseudo language of language-independent keysets.
const AllLang = "all"

// Extensions lists supported keyset file extensions in lookup order.
var Extensions = []string{".json", ".yaml", ".yml"}

// ParseFile reads a keyset file, choosing the parser by extension.
func ParseFile(path string) (*Set, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSONFile(path)
	case ".yaml", ".yml":
		return ParseYAMLFile(path)
	default:
		return nil, fmt.Errorf("%s: unsupported keyset file extension", path)
	}
}

// Collect returns the keyset files for lang under the given level
// directories, in merge order: standalone *.i18n.{ext} files first, then
// all.{ext} and {lang}.{ext} of every *.i18n directory. Missing levels
// are skipped.
func Collect(levels []string, lang string) ([]string, error) {
	var standalone, dirFiles []string

	for _, level := range levels {
		if _, err := os.Stat(level); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(level, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if path != level && strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				if !strings.HasSuffix(name, Suffix) {
					return nil
				}
				dirFiles = append(dirFiles, langFiles(path, AllLang)...)
				if lang != AllLang {
					dirFiles = append(dirFiles, langFiles(path, lang)...)
				}
				return filepath.SkipDir
			}
			if isStandalone(name) {
				standalone = append(standalone, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", level, err)
		}
	}
	return append(standalone, dirFiles...), nil
}

// Languages returns the sorted language names that have a keyset file in
// some *.i18n directory under levels. AllLang is not included.
func Languages(levels []string) ([]string, error) {
	seen := make(map[string]bool)
	for _, level := range levels {
		if _, err := os.Stat(level); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(level, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() || !strings.HasSuffix(d.Name(), Suffix) {
				return nil
			}
			entries, err := os.ReadDir(path)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				ext := filepath.Ext(e.Name())
				if !supported(ext) {
					continue
				}
				if lang := strings.TrimSuffix(e.Name(), ext); lang != AllLang {
					seen[lang] = true
				}
			}
			return filepath.SkipDir
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", level, err)
		}
	}

	langs := make([]string, 0, len(seen))
	for l := range seen {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs, nil
}

// HasKeysets reports whether dir contains any keyset file or directory.
func HasKeysets(dir string) bool {
	found := false
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return filepath.SkipDir
		}
		if (d.IsDir() && strings.HasSuffix(d.Name(), Suffix)) || (!d.IsDir() && isStandalone(d.Name())) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

func langFiles(dir, lang string) []string {
	var files []string
	for _, ext := range Extensions {
		path := filepath.Join(dir, lang+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files = append(files, path)
		}
	}
	return files
}

func isStandalone(name string) bool {
	ext := filepath.Ext(name)
	return supported(ext) && strings.HasSuffix(strings.TrimSuffix(name, ext), Suffix)
}

func supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
