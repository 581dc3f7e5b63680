package build

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/minios-linux/tanker/config"
	"github.com/minios-linux/tanker/keyset"
	"github.com/minios-linux/tanker/lockfile"
)

const v2Core = `function () { return { decl: function (k) { return k; } }; }`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return string(data)
}

// project creates a level with a v2 core in all.json and one Russian
// keyset, and returns the root and a target for it.
func project(t *testing.T) (string, config.ResolvedTarget) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "common.blocks", "b", "b.i18n")
	writeFile(t, filepath.Join(dir, "all.json"), `{"i18n":{"i18n":"`+v2Core+`"}}`)
	writeFile(t, filepath.Join(dir, "ru.json"), `{"b":{"hello":"Привет"}}`)

	rt := config.ResolvedTarget{
		Target: config.Target{
			Name:    "index",
			Core:    config.CoreAuto,
			Outputs: []string{config.OutputKeysets, config.OutputLang, config.OutputXML},
			Exports: []string{config.ExportCommonJS},
		},
		Levels:    []string{filepath.Join(root, "common.blocks")},
		Languages: []string{"ru"},
		OutputDir: filepath.Join(root, "bundles", "index"),
	}
	return root, rt
}

func TestRunWritesOutputs(t *testing.T) {
	root, rt := project(t)

	res, err := Run(context.Background(), Options{Root: root, Targets: []config.ResolvedTarget{rt}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Written) != 3 || len(res.Skipped) != 0 {
		t.Fatalf("written %v, skipped %v", res.Written, res.Skipped)
	}

	keysets := readFile(t, rt.OutputPath(config.OutputKeysets, "ru"))
	if !strings.HasPrefix(keysets, `module.exports = {"i18n":{"i18n":"function () {`) ||
		!strings.HasSuffix(keysets, `"b":{"hello":"Привет"}};`) {
		t.Errorf("keysets file:\n%s", keysets)
	}

	lang := readFile(t, rt.OutputPath(config.OutputLang, "ru"))
	if !strings.Contains(lang, "var __i18n__ = (("+v2Core+")()).decl({\"b\":{\"hello\":\"Привет\"}}),") {
		t.Errorf("lang file:\n%s", lang)
	}
	if strings.Contains(lang, "YModules") {
		t.Errorf("lang file registers with YModules:\n%s", lang)
	}

	xml := readFile(t, rt.OutputPath(config.OutputXML, "ru"))
	if !strings.Contains(xml, "<value>Привет</value>") || strings.Contains(xml, `id="i18n"`) {
		t.Errorf("xml file:\n%s", xml)
	}
}

func TestRunIsIncremental(t *testing.T) {
	root, rt := project(t)
	lock := lockfile.New(root)
	opts := Options{Root: root, Targets: []config.ResolvedTarget{rt}, Lock: lock, Prune: true}

	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, lockfile.LockFileName)); err != nil {
		t.Fatalf("lock file not saved: %v", err)
	}

	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(res.Written) != 0 || len(res.Skipped) != 3 {
		t.Errorf("unchanged build: written %v, skipped %v", res.Written, res.Skipped)
	}

	// A deleted output is rebuilt even though its inputs are unchanged.
	if err := os.Remove(rt.OutputPath(config.OutputXML, "ru")); err != nil {
		t.Fatal(err)
	}
	res, err = Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if len(res.Written) != 1 {
		t.Errorf("deleted output: written %v", res.Written)
	}

	writeFile(t, filepath.Join(root, "common.blocks", "b", "b.i18n", "ru.json"), `{"b":{"hello":"Здравствуйте"}}`)
	res, err = Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("fourth Run: %v", err)
	}
	if len(res.Written) != 3 {
		t.Errorf("changed input: written %v", res.Written)
	}

	opts.Force = true
	res, err = Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("forced Run: %v", err)
	}
	if len(res.Written) != 3 {
		t.Errorf("forced build: written %v", res.Written)
	}
}

func TestRunLangFilterAndCompress(t *testing.T) {
	root, rt := project(t)
	rt.Languages = []string{"ru", "en"}
	rt.Target.Outputs = []string{config.OutputKeysets}
	rt.Target.Compress = true

	res, err := Run(context.Background(), Options{
		Root:    root,
		Targets: []config.ResolvedTarget{rt},
		Langs:   []string{"ru"},
		Jobs:    1,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Written) != 1 {
		t.Fatalf("written %v, want only ru", res.Written)
	}

	path := rt.OutputPath(config.OutputKeysets, "ru")
	f, err := os.Open(path + ".gz")
	if err != nil {
		t.Fatalf("gzip copy: %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("reading gzip: %v", err)
	}
	if string(data) != readFile(t, path) {
		t.Error("gzip copy differs from output")
	}
	if zr.Name != filepath.Base(path) {
		t.Errorf("gzip name = %q", zr.Name)
	}
}

func TestRunRebuildsWhenCompressEnabled(t *testing.T) {
	root, rt := project(t)
	opts := Options{Root: root, Targets: []config.ResolvedTarget{rt}, Lock: lockfile.New(root)}

	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	opts.Targets[0].Target.Compress = true
	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(res.Written) != 3 {
		t.Fatalf("written %v, skipped %v", res.Written, res.Skipped)
	}
	gz := opts.Targets[0].OutputPath(config.OutputLang, "ru") + ".gz"
	if _, err := os.Stat(gz); err != nil {
		t.Fatalf("gzip copy not written: %v", err)
	}

	// A missing .gz copy is rebuilt even though the sums match.
	if err := os.Remove(gz); err != nil {
		t.Fatal(err)
	}
	res, err = Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if len(res.Written) != 1 || len(res.Skipped) != 2 {
		t.Errorf("missing gzip: written %v, skipped %v", res.Written, res.Skipped)
	}
}

func TestRunCoreErrors(t *testing.T) {
	root, rt := project(t)
	rt.Target.Core = config.CoreV1
	rt.Target.Outputs = []string{config.OutputLang}

	_, err := Run(context.Background(), Options{Root: root, Targets: []config.ResolvedTarget{rt}})
	if !errors.Is(err, keyset.ErrCoreNotFound) {
		t.Fatalf("v1 target with v2 core: err = %v", err)
	}

	// Legacy lang files do not need a core.
	rt.Target.Legacy = true
	if _, err := Run(context.Background(), Options{Root: root, Targets: []config.ResolvedTarget{rt}}); err != nil {
		t.Fatalf("legacy Run: %v", err)
	}
	legacy := readFile(t, rt.OutputPath(config.OutputLang, "ru"))
	if !strings.HasPrefix(legacy, "if (typeof BEM !== 'undefined' && BEM.I18N) {") {
		t.Errorf("legacy file:\n%s", legacy)
	}
}

func TestRunCoreFile(t *testing.T) {
	root, rt := project(t)
	writeFile(t, filepath.Join(root, "common.blocks", "b", "b.i18n", "all.json"), `{}`)
	writeFile(t, filepath.Join(root, "core.js"), "BEM.I18N = (function () {}());")
	rt.CoreFile = filepath.Join(root, "core.js")
	rt.Target.Core = config.CoreV1
	rt.Target.Outputs = []string{config.OutputLang}

	if _, err := Run(context.Background(), Options{Root: root, Targets: []config.ResolvedTarget{rt}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	lang := readFile(t, rt.OutputPath(config.OutputLang, "ru"))
	for _, want := range []string{
		"(function (BEM) {\nBEM.I18N = (function () {}());\n}(__bem__));",
		`i18n.decl("b", {` + "\n" + `"hello": "Привет"`,
	} {
		if !strings.Contains(lang, want) {
			t.Errorf("missing %q in:\n%s", want, lang)
		}
	}
}

func TestLint(t *testing.T) {
	root, rt := project(t)
	writeFile(t, filepath.Join(root, "common.blocks", "b", "b.i18n", "ru.json"),
		`{"b":{"typo":"<i18n:prarm>x</i18n:prarm>","ok":"fine","bad":"<i18n:param>"}}`)

	findings, err := Lint(context.Background(), Options{Root: root, Targets: []config.ResolvedTarget{rt}})
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("findings = %+v", findings)
	}
	if findings[0].Key != "bad" || findings[0].Err == nil {
		t.Errorf("first finding = %+v", findings[0])
	}
	if findings[1].Key != "typo" || findings[1].Issue.Tag != "i18n:prarm" || findings[1].Issue.Dropped != "x" {
		t.Errorf("second finding = %+v", findings[1])
	}
	if findings[1].Target != "index" || findings[1].Lang != "ru" {
		t.Errorf("finding location = %+v", findings[1])
	}
}

func TestLintKeepsIssueOrder(t *testing.T) {
	root, rt := project(t)
	writeFile(t, filepath.Join(root, "common.blocks", "b", "b.i18n", "ru.json"),
		`{"b":{"k":"<i18n:a>1</i18n:a><i18n:b>2</i18n:b><i18n:c>3</i18n:c><i18n:d>4</i18n:d>"}}`)

	for i := 0; i < 10; i++ {
		findings, err := Lint(context.Background(), Options{Root: root, Targets: []config.ResolvedTarget{rt}})
		if err != nil {
			t.Fatalf("Lint: %v", err)
		}
		var got []string
		for _, f := range findings {
			got = append(got, f.Issue.Dropped)
		}
		if strings.Join(got, ",") != "1,2,3,4" {
			t.Fatalf("run %d: dropped = %v", i, got)
		}
	}
}

func TestRelevant(t *testing.T) {
	core := map[string]bool{"/p/core.js": true}
	cases := map[string]bool{
		"/p/core.js":                 true,
		"/p/l/b/b.i18n":              true,
		"/p/l/b/b.i18n/ru.json":      true,
		"/p/l/b/b.i18n.yaml":         true,
		"/p/l/b/b.js":                false,
		"/p/l/b/b.i18n/.ru.json.swp": false,
		"/p/l/b/data.json":           false,
	}
	for path, want := range cases {
		if got := relevant(path, core); got != want {
			t.Errorf("relevant(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWatchRebuildsOnChange(t *testing.T) {
	root, rt := project(t)
	rt.Target.Outputs = []string{config.OutputKeysets}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan error, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, Options{Root: root, Targets: []config.ResolvedTarget{rt}}, 20*time.Millisecond,
			func(_ *Result, err error) { results <- err })
	}()

	wait := func() {
		t.Helper()
		select {
		case err := <-results:
			if err != nil {
				t.Fatalf("build error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for build")
		}
	}

	wait()
	writeFile(t, filepath.Join(root, "common.blocks", "b", "b.i18n", "ru.json"), `{"b":{"hello":"Пока"}}`)
	wait()

	if got := readFile(t, rt.OutputPath(config.OutputKeysets, "ru")); !strings.Contains(got, "Пока") {
		t.Errorf("output not rebuilt:\n%s", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop")
	}
}
