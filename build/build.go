// Package build generates the keysets and lang files of every configured
// target. Each (target, language) pair is an independent job; jobs run in
// parallel and skip outputs whose inputs did not change since the last
// build recorded in tanker.lock.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/tanker/compile"
	"github.com/minios-linux/tanker/config"
	"github.com/minios-linux/tanker/keyset"
	"github.com/minios-linux/tanker/lockfile"
	"github.com/minios-linux/tanker/merge"
)

// Options configures a build.
type Options struct {
	// Root is the project root; lock keys are relative to it.
	Root string
	// Targets are the targets to build.
	Targets []config.ResolvedTarget
	// Langs restricts the build to these languages when non-empty.
	Langs []string
	// Jobs limits parallel jobs; <= 0 means unlimited.
	Jobs int
	// Force rebuilds outputs even when their inputs are unchanged.
	Force bool
	// Lock records input sums; nil disables incremental builds.
	Lock *lockfile.LockFile
	// Prune drops lock entries of targets and outputs that are not built
	// anymore. Only meaningful when building the whole config.
	Prune bool
}

// Result summarizes a build.
type Result struct {
	mu      sync.Mutex
	Written []string
	Skipped []string
}

func (r *Result) add(written bool, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if written {
		r.Written = append(r.Written, key)
	} else {
		r.Skipped = append(r.Skipped, key)
	}
}

// job is one (target, language) pair.
type job struct {
	target *config.ResolvedTarget
	lang   string
}

// Run builds all outputs of opts.Targets. The first failing job cancels
// the rest; the lock file is saved only after a successful build.
func Run(ctx context.Context, opts Options) (*Result, error) {
	var jobs []job
	for i := range opts.Targets {
		rt := &opts.Targets[i]
		for _, lang := range rt.Languages {
			if len(opts.Langs) > 0 && !contains(opts.Langs, lang) {
				continue
			}
			jobs = append(jobs, job{target: rt, lang: lang})
		}
	}

	res := &Result{}
	g, ctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return runJob(opts, j, res)
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	if opts.Lock != nil {
		if opts.Prune && len(opts.Langs) == 0 {
			prune(opts)
		}
		if err := opts.Lock.Save(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func runJob(opts Options, j job, res *Result) error {
	rt := j.target
	logger := log.With().Str("target", rt.Target.Name).Str("lang", j.lang).Logger()

	files, err := keyset.Collect(rt.Levels, j.lang)
	if err != nil {
		return err
	}
	inputs := files
	if rt.CoreFile != "" {
		inputs = append(append([]string(nil), files...), rt.CoreFile)
	}
	logger.Debug().Int("files", len(files)).Msg("collected keysets")

	type pending struct {
		kind, path, key, sum string
	}
	var todo []pending
	for _, kind := range rt.Target.Outputs {
		path := rt.OutputPath(kind, j.lang)
		key := lockfile.OutputKey(opts.Root, path)
		sum, err := lockfile.InputSum(inputs, settings(rt, kind, j.lang)...)
		if err != nil {
			return err
		}
		if !opts.Force && opts.Lock != nil && !opts.Lock.IsChanged(rt.Target.Name, key, sum) && written(path, rt.Target.Compress) {
			logger.Debug().Str("path", key).Msg("up to date")
			res.add(false, key)
			continue
		}
		todo = append(todo, pending{kind: kind, path: path, key: key, sum: sum})
	}
	if len(todo) == 0 {
		return nil
	}

	set, err := loadFiles(rt, files)
	if err != nil {
		return err
	}

	for _, p := range todo {
		content, err := generate(rt, p.kind, j.lang, set)
		if err != nil {
			return fmt.Errorf("target %s, lang %s: %w", rt.Target.Name, j.lang, err)
		}
		if err := writeOutput(p.path, []byte(content), rt.Target.Compress); err != nil {
			return err
		}
		if opts.Lock != nil {
			opts.Lock.Update(rt.Target.Name, p.key, p.sum)
		}
		logger.Info().Str("path", p.key).Int("bytes", len(content)).Msg("wrote")
		res.add(true, p.key)
	}
	return nil
}

// Load merges the keysets of a target for lang, including the core from
// the target's core file.
func Load(rt *config.ResolvedTarget, lang string) (*keyset.Set, error) {
	files, err := keyset.Collect(rt.Levels, lang)
	if err != nil {
		return nil, err
	}
	return loadFiles(rt, files)
}

func loadFiles(rt *config.ResolvedTarget, files []string) (*keyset.Set, error) {
	set, err := merge.Files(files)
	if err != nil {
		return nil, err
	}
	if rt.CoreFile != "" {
		code, err := os.ReadFile(rt.CoreFile)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rt.CoreFile, err)
		}
		keyset.InjectCore(set, string(code), rt.CoreVersion())
	}
	return set, nil
}

// Core separates the core from the data keysets, enforcing the target's
// core version.
func Core(rt *config.ResolvedTarget, set *keyset.Set) (*keyset.Core, *keyset.Set, error) {
	core, data, err := keyset.ParseCore(set)
	if err != nil {
		return nil, data, err
	}
	if want := rt.CoreVersion(); want != 0 && core.Version != want {
		return nil, data, fmt.Errorf("%w: target wants a %s core, found %s", keyset.ErrCoreNotFound, want, core.Version)
	}
	return core, data, nil
}

func generate(rt *config.ResolvedTarget, kind, lang string, set *keyset.Set) (string, error) {
	switch kind {
	case config.OutputKeysets:
		return compile.KeysetsFile(set), nil
	case config.OutputXML:
		_, data, _ := keyset.ParseCore(set)
		return compile.KeysetsXML(data), nil
	case config.OutputLang:
		core, data, err := Core(rt, set)
		if rt.Target.Legacy {
			if err != nil && !errors.Is(err, keyset.ErrCoreNotFound) {
				return "", err
			}
			return compile.LegacyLangFile(core, data, lang)
		}
		if err != nil {
			return "", err
		}
		return compile.LangFile(core, data, lang, rt.Exports())
	default:
		return "", fmt.Errorf("unknown output %q", kind)
	}
}

// settings are the target options that affect an output's content.
func settings(rt *config.ResolvedTarget, kind, lang string) []string {
	return []string{
		kind,
		lang,
		rt.Target.Core,
		fmt.Sprint(rt.Target.Legacy),
		fmt.Sprint(rt.Target.Compress),
		strings.Join(rt.Target.Exports, ","),
	}
}

// writeOutput writes data atomically: a temp file in the same directory is
// renamed over path. With compress, path.gz is written as well.
func writeOutput(path string, data []byte, compress bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := atomicWrite(path, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	}); err != nil {
		return err
	}
	if !compress {
		return nil
	}
	return atomicWrite(path+".gz", func(f *os.File) error {
		zw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
		if err != nil {
			return err
		}
		zw.Name = filepath.Base(path)
		if _, err := zw.Write(data); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	})
}

func atomicWrite(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// prune removes lock entries of targets and outputs that are no longer
// configured.
func prune(opts Options) {
	names := make([]string, 0, len(opts.Targets))
	for i := range opts.Targets {
		rt := &opts.Targets[i]
		names = append(names, rt.Target.Name)
		var keys []string
		for _, lang := range rt.Languages {
			for _, kind := range rt.Target.Outputs {
				keys = append(keys, lockfile.OutputKey(opts.Root, rt.OutputPath(kind, lang)))
			}
		}
		opts.Lock.Clean(rt.Target.Name, keys)
	}
	opts.Lock.Prune(names)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// written reports whether an output and, with compress, its .gz copy exist.
func written(path string, compress bool) bool {
	return exists(path) && (!compress || exists(path+".gz"))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
