package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peterh/liner"
)

func TestSessionRunPrintsOutput(t *testing.T) {
	var out bytes.Buffer
	s := newSession(&out)
	if code := s.run(`print "hello";`); code != exitOK {
		t.Fatalf("exit code %d, want %d", code, exitOK)
	}
	if out.String() != "hello\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestSessionRunStaticErrorExitCode(t *testing.T) {
	cases := []string{
		`print 1 @ 2;`,
		`print 1`,
		`return 1;`,
		`fun f() { var a; var a; }`,
	}
	for _, source := range cases {
		var out bytes.Buffer
		s := newSession(&out)
		if code := s.run(source); code != exitStatic {
			t.Fatalf("source %q: exit code %d, want %d", source, code, exitStatic)
		}
	}
}

func TestSessionRunRuntimeErrorExitCode(t *testing.T) {
	var out bytes.Buffer
	s := newSession(&out)
	if code := s.run(`print missing;`); code != exitRuntime {
		t.Fatalf("exit code %d, want %d", code, exitRuntime)
	}
}

func TestSessionStatePersistsAcrossRuns(t *testing.T) {
	var out bytes.Buffer
	s := newSession(&out)
	if code := s.run(`var greeting = "hi";`); code != exitOK {
		t.Fatalf("first run failed with %d", code)
	}
	if code := s.run(`print greeting;`); code != exitOK {
		t.Fatalf("second run failed with %d", code)
	}
	if out.String() != "hi\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRunLineEchoesExpressions(t *testing.T) {
	var out bytes.Buffer
	s := newSession(&out)
	s.runLine(`1 + 2 * 3`)
	s.runLine(`"a" + "b"`)
	if out.String() != "7\nab\n" {
		t.Fatalf("unexpected echo output %q", out.String())
	}
}

func TestRunLineRunsStatements(t *testing.T) {
	var out bytes.Buffer
	s := newSession(&out)
	s.runLine(`var x = 10;`)
	s.runLine(`x * 2`)
	if out.String() != "20\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestReplHistorySaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), historyFile)

	ln := liner.NewLiner()
	ln.AppendHistory("var x = 1;")
	ln.AppendHistory("x + 1")
	saveHistory(ln, path)
	ln.Close()

	reloaded := liner.NewLiner()
	defer reloaded.Close()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer f.Close()
	n, err := reloaded.ReadHistory(f)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 history entries, got %d", n)
	}
}

func TestSaveHistoryUnwritablePathIsBestEffort(t *testing.T) {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.AppendHistory("print 1;")
	saveHistory(ln, filepath.Join(t.TempDir(), "missing", historyFile))
}

func TestSessionDebugTracesPipelineStages(t *testing.T) {
	var out, logs bytes.Buffer
	s := newSession(&out)
	s.debug = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if code := s.run(`var x = 1; { print x; }`); code != exitOK {
		t.Fatalf("exit code %d, want %d", code, exitOK)
	}
	for _, stage := range []string{"scanner", "parser", "resolver"} {
		if !strings.Contains(logs.String(), stage) {
			t.Fatalf("debug log missing %q stage: %q", stage, logs.String())
		}
	}
}

func TestSessionDebugOffByDefault(t *testing.T) {
	t.Setenv("LOX_DEBUG", "")
	var out bytes.Buffer
	s := newSession(&out)
	if s.debug != nil {
		t.Fatalf("debug tracing must be off without LOX_DEBUG")
	}
	t.Setenv("LOX_DEBUG", "1")
	if s := newSession(&out); s.debug == nil {
		t.Fatalf("LOX_DEBUG must enable debug tracing")
	}
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.lox")
	if err := os.WriteFile(path, []byte("var x = 1;\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if code := runFile(path); code != exitOK {
		t.Fatalf("exit code %d, want %d", code, exitOK)
	}
}

func TestRunFileMissing(t *testing.T) {
	if code := runFile(filepath.Join(t.TempDir(), "absent.lox")); code != exitUsage {
		t.Fatalf("exit code %d, want %d", code, exitUsage)
	}
}

func TestRunVersionFlag(t *testing.T) {
	if code := run([]string{"--version"}); code != exitOK {
		t.Fatalf("exit code %d, want %d", code, exitOK)
	}
}

func TestRunRejectsExtraArguments(t *testing.T) {
	if code := run([]string{"a.lox", "b.lox"}); code != exitUsage {
		t.Fatalf("exit code %d, want %d", code, exitUsage)
	}
}

func TestLoadManifestFrom(t *testing.T) {
	dir := t.TempDir()
	manifest := "name: demo\ntargets:\n  main:\n    main: main.lox\n"
	if err := os.WriteFile(filepath.Join(dir, "package.yml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	loaded, err := loadManifestFrom(dir)
	if err != nil {
		t.Fatalf("loadManifestFrom: %v", err)
	}
	if loaded.Name != "demo" {
		t.Fatalf("unexpected manifest %#v", loaded)
	}
}

func TestResolveLoxHomeFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOX_HOME", dir)
	home, err := resolveLoxHome()
	if err != nil {
		t.Fatalf("resolveLoxHome: %v", err)
	}
	if home != dir {
		t.Fatalf("resolveLoxHome = %q, want %q", home, dir)
	}
}

func TestResolveLoxHomeDefault(t *testing.T) {
	t.Setenv("LOX_HOME", "")
	home, err := resolveLoxHome()
	if err != nil {
		t.Fatalf("resolveLoxHome: %v", err)
	}
	if filepath.Base(home) != ".lox" {
		t.Fatalf("default home must end in .lox, got %q", home)
	}
}
