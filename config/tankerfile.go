// Package config implements .tanker.yaml configuration file support.
//
// A .tanker.yaml in the project root declares the build targets: which
// levels to collect keysets from, which languages to build and which files
// to generate. Without one, Detect derives a single target from the
// directory layout.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/tanker/compile"
	"github.com/minios-linux/tanker/keyset"
	"github.com/minios-linux/tanker/langmeta"
)

// ErrNoConfig is returned when neither a config file nor keysets are found.
var ErrNoConfig = errors.New("no " + FileName + " and no keysets found")

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .tanker.yaml structure.
type File struct {
	// Languages is the default language list for all targets.
	Languages []string `yaml:"languages,omitempty"`
	// Levels is the default list of level directories, in override order.
	Levels []string `yaml:"levels,omitempty"`
	// Jobs limits parallel (target, language) builds (default: CPU count).
	Jobs int `yaml:"jobs,omitempty"`
	// Targets is the list of bundles to build.
	Targets []Target `yaml:"targets"`
}

// Target describes one bundle.
type Target struct {
	// Name is a label shown in status/logs and used by --target.
	Name string `yaml:"name"`
	// Output is the bundle directory relative to the project root. Files
	// are named after its base name: index/index.lang.ru.js.
	Output string `yaml:"output"`
	// Levels overrides the global level list.
	Levels []string `yaml:"levels,omitempty"`
	// Languages overrides the global language list.
	Languages []string `yaml:"languages,omitempty"`
	// Core is "auto" (default), "v1" (bem-bl) or "v2" (bem-core).
	Core string `yaml:"core,omitempty"`
	// CoreFile is a file with the i18n core, used instead of a core
	// keyset.
	CoreFile string `yaml:"core_file,omitempty"`
	// Outputs lists the generated files: keysets, lang, xml.
	Outputs []string `yaml:"outputs,omitempty"`
	// Exports lists module systems of lang files: commonjs, ym, globals,
	// force_globals.
	Exports []string `yaml:"exports,omitempty"`
	// Compress also writes a .gz copy of every output.
	Compress bool `yaml:"compress,omitempty"`
	// Legacy writes lang files that extend an existing BEM.I18N.
	Legacy bool `yaml:"legacy,omitempty"`
}

// Output kinds.
const (
	OutputKeysets = "keysets"
	OutputLang    = "lang"
	OutputXML     = "xml"
)

// Core versions.
const (
	CoreAuto = "auto"
	CoreV1   = "v1"
	CoreV2   = "v2"
)

// Export names.
const (
	ExportCommonJS     = "commonjs"
	ExportYModules     = "ym"
	ExportGlobals      = "globals"
	ExportForceGlobals = "force_globals"
)

var (
	defaultOutputs = []string{OutputKeysets, OutputLang}
	defaultExports = []string{ExportCommonJS, ExportYModules, ExportGlobals}
)

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the default config file name.
const FileName = ".tanker.yaml"

// Load loads and validates .tanker.yaml from the given directory.
// Returns ErrNoConfig if the file does not exist.
func Load(rootDir string) (*File, error) {
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// LoadOrDetect loads .tanker.yaml, falling back to Detect. The second
// result reports whether the config was detected.
func LoadOrDetect(rootDir string) (*File, bool, error) {
	f, err := Load(rootDir)
	if errors.Is(err, ErrNoConfig) {
		f, err = Detect(rootDir)
		return f, true, err
	}
	return f, false, err
}

// Save writes the config as YAML to path.
func (f *File) Save(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// validate fills in defaults and rejects inconsistent targets.
func (f *File) validate() error {
	if f.Jobs <= 0 {
		f.Jobs = runtime.NumCPU()
	}
	if err := checkLanguages(f.Languages); err != nil {
		return err
	}
	if len(f.Targets) == 0 {
		return fmt.Errorf("no targets declared")
	}

	seen := make(map[string]bool)
	for i := range f.Targets {
		t := &f.Targets[i]

		if t.Name == "" {
			return fmt.Errorf("target #%d has no name", i+1)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate target name %q", t.Name)
		}
		seen[t.Name] = true

		if t.Output == "" {
			t.Output = filepath.Join("bundles", t.Name)
		}
		if len(t.Levels) == 0 {
			t.Levels = f.Levels
		}
		if len(t.Levels) == 0 {
			return fmt.Errorf("target %q has no levels", t.Name)
		}
		if len(t.Languages) == 0 {
			t.Languages = f.Languages
		}
		if err := checkLanguages(t.Languages); err != nil {
			return fmt.Errorf("target %q: %w", t.Name, err)
		}

		switch t.Core {
		case "":
			t.Core = CoreAuto
		case CoreAuto, CoreV1, CoreV2:
		default:
			return fmt.Errorf("target %q has unknown core %q (valid: auto, v1, v2)", t.Name, t.Core)
		}

		if len(t.Outputs) == 0 {
			t.Outputs = defaultOutputs
		}
		for _, o := range t.Outputs {
			switch o {
			case OutputKeysets, OutputLang, OutputXML:
			default:
				return fmt.Errorf("target %q has unknown output %q (valid: keysets, lang, xml)", t.Name, o)
			}
		}

		if len(t.Exports) == 0 {
			t.Exports = defaultExports
		}
		for _, e := range t.Exports {
			switch e {
			case ExportCommonJS, ExportYModules, ExportGlobals, ExportForceGlobals:
			default:
				return fmt.Errorf("target %q has unknown export %q (valid: commonjs, ym, globals, force_globals)", t.Name, e)
			}
		}
	}
	return nil
}

func checkLanguages(langs []string) error {
	for _, l := range langs {
		if !langmeta.Valid(l) {
			return fmt.Errorf("invalid language code %q", l)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Resolving targets
// ---------------------------------------------------------------------------

// ResolvedTarget holds a fully resolved target with absolute paths.
type ResolvedTarget struct {
	Target    Target
	Levels    []string
	Languages []string
	OutputDir string
	CoreFile  string
}

// Resolve converts the config into targets with absolute paths. Targets
// without languages get the languages found in their levels.
func (f *File) Resolve(projectRoot string) ([]ResolvedTarget, error) {
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, err
	}

	var resolved []ResolvedTarget
	for _, t := range f.Targets {
		rt := ResolvedTarget{
			Target:    t,
			OutputDir: filepath.Join(absRoot, t.Output),
		}
		for _, l := range t.Levels {
			rt.Levels = append(rt.Levels, filepath.Join(absRoot, l))
		}
		if t.CoreFile != "" {
			rt.CoreFile = filepath.Join(absRoot, t.CoreFile)
		}

		rt.Languages = t.Languages
		if len(rt.Languages) == 0 {
			if rt.Languages, err = keyset.Languages(rt.Levels); err != nil {
				return nil, err
			}
		}
		resolved = append(resolved, rt)
	}
	return resolved, nil
}

// Select returns the targets with the given name, or all targets for "".
func Select(targets []ResolvedTarget, name string) ([]ResolvedTarget, error) {
	if name == "" {
		return targets, nil
	}
	for _, rt := range targets {
		if rt.Target.Name == name {
			return []ResolvedTarget{rt}, nil
		}
	}
	return nil, fmt.Errorf("unknown target %q", name)
}

// Language returns the target language lang stands for. Codes are compared
// in canonical form, so pt_BR selects a pt-BR keyset and the other way round.
// The result is the spelling used by the keyset files.
func (rt *ResolvedTarget) Language(lang string) (string, bool) {
	want := langmeta.Canonicalize(lang)
	for _, l := range rt.Languages {
		if l == lang || langmeta.Canonicalize(l) == want {
			return l, true
		}
	}
	return "", false
}

// OutputPath returns the file a target writes for an output kind and
// language, e.g. bundles/index/index.keysets.ru.js.
func (rt *ResolvedTarget) OutputPath(kind, lang string) string {
	base := filepath.Base(rt.OutputDir)
	ext := ".js"
	if kind == OutputXML {
		kind, ext = OutputKeysets, ".xml"
	}
	return filepath.Join(rt.OutputDir, base+"."+kind+"."+lang+ext)
}

// Wants reports whether the target generates the output kind.
func (rt *ResolvedTarget) Wants(kind string) bool {
	for _, o := range rt.Target.Outputs {
		if o == kind {
			return true
		}
	}
	return false
}

// CoreVersion returns the required core version, 0 for auto.
func (rt *ResolvedTarget) CoreVersion() keyset.CoreVersion {
	switch rt.Target.Core {
	case CoreV1:
		return keyset.CoreV1
	case CoreV2:
		return keyset.CoreV2
	default:
		return 0
	}
}

// Exports returns the module systems of the target's lang files.
func (rt *ResolvedTarget) Exports() compile.Exports {
	var e compile.Exports
	for _, name := range rt.Target.Exports {
		switch name {
		case ExportCommonJS:
			e.CommonJS = true
		case ExportYModules:
			e.YModules = true
		case ExportGlobals:
			e.Globals = true
		case ExportForceGlobals:
			e.ForceGlobal = true
		}
	}
	return e
}

// AllLanguages returns the deduplicated, sorted union of target languages.
func AllLanguages(targets []ResolvedTarget) []string {
	seen := make(map[string]bool)
	var all []string
	for _, rt := range targets {
		for _, lang := range rt.Languages {
			if !seen[lang] {
				seen[lang] = true
				all = append(all, lang)
			}
		}
	}
	sort.Strings(all)
	return all
}
