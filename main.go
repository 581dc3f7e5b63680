// Command tanker compiles tanker markup translations and builds i18n
// bundles from BEM keyset files.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/minios-linux/tanker/build"
	"github.com/minios-linux/tanker/compile"
	"github.com/minios-linux/tanker/config"
	"github.com/minios-linux/tanker/i18n"
	"github.com/minios-linux/tanker/keyset"
	"github.com/minios-linux/tanker/langmeta"
	"github.com/minios-linux/tanker/lockfile"
	"github.com/minios-linux/tanker/tanker"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors for section headers
const (
	colorReset = "\033[0m"
	colorBlue  = "\033[0;34m"
)

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir   string
	logLevel  string
	logFormat string
	uiLang    string
)

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// consoleWriter returns a zerolog console writer that only uses colors on
// terminals.
func consoleWriter(f *os.File) io.Writer {
	return zerolog.ConsoleWriter{Out: f, NoColor: !isTerminal(f), TimeFormat: time.TimeOnly}
}

// setupLogging configures the global logger from --log-level and
// --log-format.
func setupLogging(w *os.File) error {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || level == zerolog.NoLevel {
		return fmt.Errorf(i18n.T("invalid log level %q"), logLevel)
	}
	zerolog.SetGlobalLevel(level)

	switch logFormat {
	case "console":
		log.Logger = zerolog.New(consoleWriter(w)).With().Timestamp().Logger()
	case "json":
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	default:
		return fmt.Errorf(i18n.T("invalid log format %q (valid: console, json)"), logFormat)
	}
	return nil
}

// header prints a section title the way status output is structured.
func header(w io.Writer, title string) {
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		title = colorBlue + title + colorReset
	}
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("─", 60))
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tanker",
		Short: i18n.T("Compile tanker markup translations and build i18n bundles"),
		Long: i18n.T(`tanker compiles translation values written in tanker markup
(<i18n:param>, <i18n:dynamic>, <i18n:js>) into JavaScript and builds
per-language i18n bundles from BEM keyset files.

Keysets live in *.i18n directories ({lang}.json, {lang}.yaml, all.json)
or standalone *.i18n.json files inside level directories. Targets are
declared in .tanker.yaml or detected from the directory layout.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			i18n.Init(uiLang)
			return setupLogging(os.Stderr)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&rootDir, "root", ".", "Project root directory")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "console", "Log format (console, json)")
	flags.StringVar(&uiLang, "ui-lang", "", "Language of tanker's own messages (default: from environment)")

	root.AddCommand(
		newTranslateCmd(),
		newMergeCmd(),
		newBuildCmd(),
		newWatchCmd(),
		newLintCmd(),
		newStatusCmd(),
		newInitCmd(),
		newVersionCmd(),
	)

	return root
}

// uiLanguage returns the --ui-lang value from args. The catalog must be
// loaded before the command tree, whose help texts are translated when
// built.
func uiLanguage(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		if v, ok := strings.CutPrefix(a, "--ui-lang="); ok {
			return v
		}
		if a == "--ui-lang" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func main() {
	i18n.Init(uiLanguage(os.Args[1:]))
	log.Logger = zerolog.New(consoleWriter(os.Stderr)).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg(i18n.T("failed"))
		stop()
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// project loads or detects the config and resolves its targets.
func project() (*config.File, []config.ResolvedTarget, error) {
	f, detected, err := config.LoadOrDetect(rootDir)
	if err != nil {
		return nil, nil, err
	}
	if detected {
		log.Debug().Str("root", rootDir).Msg("no " + config.FileName + ", using detected layout")
	}
	targets, err := f.Resolve(rootDir)
	if err != nil {
		return nil, nil, err
	}
	return f, targets, nil
}

// buildOptions assembles build options for the selected target and
// languages.
func buildOptions(target string, langs []string) (build.Options, error) {
	f, targets, err := project()
	if err != nil {
		return build.Options{}, err
	}
	selected, err := config.Select(targets, target)
	if err != nil {
		return build.Options{}, err
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return build.Options{}, err
	}
	names, err := targetLanguages(selected, langs)
	if err != nil {
		return build.Options{}, err
	}
	return build.Options{
		Root:    absRoot,
		Targets: selected,
		Langs:   names,
		Jobs:    f.Jobs,
		Prune:   target == "",
	}, nil
}

// targetLanguages maps --lang values to the language names of the selected
// targets. A value no target has is an error.
func targetLanguages(targets []config.ResolvedTarget, langs []string) ([]string, error) {
	var names []string
	for _, l := range langs {
		found := false
		for i := range targets {
			name, ok := targets[i].Language(l)
			if !ok {
				continue
			}
			found = true
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
		if !found {
			return nil, fmt.Errorf(i18n.T("no target has language %q"), l)
		}
	}
	return names, nil
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tanker version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// translate (single values to code)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var plural bool

	cmd := &cobra.Command{
		Use:   "translate [VALUE...]",
		Short: i18n.T("Compile translation values to JavaScript"),
		Long: i18n.T(`Compile each VALUE and print the generated code, one per line.
A VALUE of "-" reads the value from standard input.

With --plural, all VALUEs together are the plural forms
(one, some, many, none) of a single key.`),
		Example: `  tanker translate 'Hello <i18n:param>who</i18n:param>!'
  tanker translate --plural 'файл' 'файла' 'файлов' 'нет файлов'
  echo '<i18n:param>n</i18n:param>' | tanker translate -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := readValues(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return runTranslate(cmd.OutOrStdout(), values, plural)
		},
	}

	cmd.Flags().BoolVar(&plural, "plural", false, "Treat the values as plural forms of one key")
	return cmd
}

// readValues replaces a "-" argument with the contents of stdin, without
// the trailing newline.
func readValues(stdin io.Reader, args []string) ([]string, error) {
	values := make([]string, len(args))
	for i, a := range args {
		if a != "-" {
			values[i] = a
			continue
		}
		data, err := io.ReadAll(bufio.NewReader(stdin))
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		values[i] = strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r")
	}
	return values, nil
}

func runTranslate(w io.Writer, values []string, plural bool) error {
	if plural {
		js, err := tanker.Translate(values)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, js)
		return nil
	}
	for _, v := range values {
		js, err := tanker.Translate(v)
		if err != nil {
			return fmt.Errorf("%q: %w", v, err)
		}
		fmt.Fprintln(w, js)
	}
	return nil
}

// ---------------------------------------------------------------------------
// merge (print merged keysets)
// ---------------------------------------------------------------------------

func newMergeCmd() *cobra.Command {
	var (
		lang   string
		target string
		format string
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: i18n.T("Print the merged keysets of a target"),
		Long: i18n.T(`Collect and merge the keyset files of a target for one language
and print the result as a CommonJS module (--format js) or JSON.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lang == "" {
				return errors.New(i18n.T("--lang is required"))
			}
			_, targets, err := project()
			if err != nil {
				return err
			}
			if target == "" && len(targets) > 1 {
				return errors.New(i18n.T("several targets configured, choose one with --target"))
			}
			selected, err := config.Select(targets, target)
			if err != nil {
				return err
			}

			rt := &selected[0]
			name := lang
			if lang != keyset.AllLang {
				var ok bool
				if name, ok = rt.Language(lang); !ok {
					return fmt.Errorf(i18n.T("target %q has no language %q"), rt.Target.Name, lang)
				}
			}
			set, err := build.Load(rt, name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "js":
				fmt.Fprintln(out, compile.KeysetsFile(set))
			case "json":
				out.Write(set.JSON())
			default:
				return fmt.Errorf(i18n.T("unknown format %q (valid: js, json)"), format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Language to merge (or \"all\")")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target name")
	cmd.Flags().StringVar(&format, "format", "js", "Output format (js, json)")
	return cmd
}

// ---------------------------------------------------------------------------
// build
// ---------------------------------------------------------------------------

func newBuildCmd() *cobra.Command {
	var (
		force  bool
		target string
		langs  []string
		jobs   int
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: i18n.T("Build keysets and lang files of all targets"),
		Long: i18n.T(`Build the configured outputs of every target and language.

Outputs whose keyset files and settings are unchanged since the last
build (see tanker.lock) are skipped unless --force is given.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(target, langs)
			if err != nil {
				return err
			}
			if jobs > 0 {
				opts.Jobs = jobs
			}
			opts.Force = force
			if opts.Lock, err = lockfile.Load(opts.Root); err != nil {
				return err
			}

			start := time.Now()
			res, err := build.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			log.Info().
				Int("written", len(res.Written)).
				Int("skipped", len(res.Skipped)).
				Dur("took", time.Since(start)).
				Msg(i18n.T("Build finished"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Rebuild outputs even if unchanged")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Build only this target")
	cmd.Flags().StringSliceVarP(&langs, "lang", "l", nil, "Build only these languages")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Parallel jobs (default: from config)")
	return cmd
}

// ---------------------------------------------------------------------------
// watch
// ---------------------------------------------------------------------------

func newWatchCmd() *cobra.Command {
	var (
		target   string
		langs    []string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: i18n.T("Rebuild whenever keyset files change"),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(target, langs)
			if err != nil {
				return err
			}
			if opts.Lock, err = lockfile.Load(opts.Root); err != nil {
				return err
			}

			log.Info().Str("root", opts.Root).Msg(i18n.T("Watching for changes, press Ctrl+C to stop"))
			return build.Watch(cmd.Context(), opts, debounce, func(res *build.Result, err error) {
				if err != nil {
					log.Error().Err(err).Msg(i18n.T("Build failed"))
					return
				}
				log.Info().
					Int("written", len(res.Written)).
					Int("skipped", len(res.Skipped)).
					Msg(i18n.T("Build finished"))
			})
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Watch only this target")
	cmd.Flags().StringSliceVarP(&langs, "lang", "l", nil, "Build only these languages")
	cmd.Flags().DurationVar(&debounce, "debounce", build.DefaultDebounce, "Quiet period before rebuilding")
	return cmd
}

// ---------------------------------------------------------------------------
// lint
// ---------------------------------------------------------------------------

func newLintCmd() *cobra.Command {
	var (
		target string
		langs  []string
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: i18n.T("Check translations for markup errors and dropped content"),
		Long: i18n.T(`Compile every key of every target and language and report:

  - markup syntax errors (unclosed or mismatched i18n tags)
  - unknown i18n tags, whose content never reaches the output

Exits with an error if any syntax error is found.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(target, langs)
			if err != nil {
				return err
			}
			findings, err := build.Lint(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return reportFindings(cmd.OutOrStdout(), findings)
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Lint only this target")
	cmd.Flags().StringSliceVarP(&langs, "lang", "l", nil, "Lint only these languages")
	return cmd
}

func reportFindings(w io.Writer, findings []build.Finding) error {
	errCount := 0
	for _, f := range findings {
		where := fmt.Sprintf("%s/%s %s:%s", f.Target, f.Lang, f.Keyset, f.Key)
		if f.Err != nil {
			errCount++
			fmt.Fprintf(w, "%s: %s: %v\n", where, i18n.T("error"), f.Err)
			continue
		}
		fmt.Fprintf(w, "%s: %s: <%s> %s %q\n", where, i18n.T("warning"), f.Issue.Tag, i18n.T("drops"), f.Issue.Dropped)
	}
	if len(findings) == 0 {
		fmt.Fprintln(w, i18n.T("No problems found"))
	}
	if errCount > 0 {
		return fmt.Errorf(i18n.N("%d translation has markup errors", "%d translations have markup errors", errCount), errCount)
	}
	return nil
}

// ---------------------------------------------------------------------------
// status (read-only: targets, languages, lock)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: i18n.T("Show targets, levels, languages and build state"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout())
		},
	}
}

func runStatus(w io.Writer) error {
	f, detected, err := config.LoadOrDetect(rootDir)
	if err != nil {
		return err
	}
	targets, err := f.Resolve(rootDir)
	if err != nil {
		return err
	}
	absRoot, _ := filepath.Abs(rootDir)

	header(w, i18n.T("Project"))
	fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Root:"), absRoot)
	source := config.FileName
	if detected {
		source = i18n.T("detected (no .tanker.yaml)")
	}
	fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Config:"), source)
	fmt.Fprintf(w, "  %-12s %d\n", i18n.T("Jobs:"), f.Jobs)

	for _, rt := range targets {
		header(w, i18n.T("Target")+" "+rt.Target.Name)
		fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Output:"), rt.OutputDir)
		fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Outputs:"), strings.Join(rt.Target.Outputs, ", "))
		fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Core:"), rt.Target.Core)
		for _, level := range rt.Levels {
			state := ""
			if _, err := os.Stat(level); err != nil {
				state = " (" + i18n.T("missing") + ")"
			}
			fmt.Fprintf(w, "  %-12s %s%s\n", i18n.T("Level:"), level, state)
		}
		fmt.Fprintf(w, "\n  %-10s %-24s %s\n", i18n.T("Lang"), i18n.T("Name"), i18n.T("Keyset files"))
		for _, lang := range rt.Languages {
			meta := langmeta.Resolve(lang)
			files, err := keyset.Collect(rt.Levels, lang)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  %-10s %-24s %d\n", lang, strings.TrimSpace(meta.Flag+" "+meta.Name), len(files))
		}
	}

	lock, err := lockfile.Load(absRoot)
	if err != nil {
		return err
	}
	header(w, i18n.T("Build cache"))
	fmt.Fprintf(w, "  %s\n\n", lock.Summary())
	return nil
}

// ---------------------------------------------------------------------------
// init (write detected config)
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: i18n.T("Write a .tanker.yaml for the detected layout"),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(rootDir, config.FileName)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf(i18n.T("%s already exists, use --force to overwrite"), path)
			}
			f, err := config.Detect(rootDir)
			if err != nil {
				return err
			}
			if err := f.Save(path); err != nil {
				return err
			}
			log.Info().
				Str("path", path).
				Strs("levels", f.Levels).
				Strs("languages", f.Languages).
				Msg(i18n.T("Config written"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config")
	return cmd
}
