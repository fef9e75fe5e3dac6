package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"lox/interpreter-go/pkg/diagnostics"
	"lox/interpreter-go/pkg/driver"
	"lox/interpreter-go/pkg/interpreter"
	"lox/interpreter-go/pkg/lexer"
	"lox/interpreter-go/pkg/parser"
	"lox/interpreter-go/pkg/resolver"
)

const cliToolVersion = "lox-cli 0.1.0-dev"

const historyFile = ".lox_history"

// Exit codes follow the sysexits convention: 64 usage, 65 static error
// (scan/parse/resolve), 70 runtime error.
const (
	exitOK      = 0
	exitUsage   = 64
	exitStatic  = 65
	exitRuntime = 70
)

var errorColor = color.New(color.FgRed)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		runPrompt(os.Stdout)
		return exitOK
	}

	switch args[0] {
	case "--help", "-h":
		printUsage()
		return exitOK
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return exitOK
	case "repl":
		runPrompt(os.Stdout)
		return exitOK
	case "run":
		return runEntry(args[1:])
	case "deps":
		return runDeps(args[1:])
	default:
		if len(args) > 1 {
			printUsage()
			return exitUsage
		}
		return runFile(args[0])
	}
}

// runEntry resolves a manifest target (or falls back to a direct file)
// and executes it.
func runEntry(args []string) int {
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(args[1:], " "))
		return exitUsage
	}

	manifest, err := loadManifestFrom(".")
	switch {
	case err == nil:
	case errors.Is(err, driver.ErrManifestNotFound):
		manifest = nil
	default:
		fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
		return exitUsage
	}

	if len(args) == 0 {
		if manifest == nil {
			fmt.Fprintln(os.Stderr, "lox run requires a manifest target or source file (package.yml not found)")
			return exitUsage
		}
		target, err := manifest.DefaultTarget()
		if err != nil {
			fmt.Fprintf(os.Stderr, "manifest error: %v\n", err)
			return exitUsage
		}
		entry, err := manifest.ResolveMain(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to resolve target entrypoint: %v\n", err)
			return exitUsage
		}
		return runFile(entry)
	}

	candidate := args[0]
	if manifest != nil {
		if target, ok := manifest.FindTarget(candidate); ok {
			entry, err := manifest.ResolveMain(target)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to resolve target %q: %v\n", candidate, err)
				return exitUsage
			}
			return runFile(entry)
		}
	}
	return runFile(candidate)
}

func runFile(path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", path, err)
		return exitUsage
	}
	session := newSession(os.Stdout)
	return session.run(string(source))
}

// runPrompt is the REPL. A line that parses as a lone expression is
// evaluated and echoed; anything else runs as statements. Interpreter
// state persists across lines; line editing and history come from liner.
func runPrompt(out io.Writer) {
	session := newSession(out)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		f.Close()
	}
	defer saveHistory(ln, histPath)

	for {
		line, err := ln.Prompt(">>> ")
		switch {
		case err == nil:
			if strings.TrimSpace(line) != "" {
				ln.AppendHistory(line)
			}
			session.runLine(line)
		case errors.Is(err, liner.ErrPromptAborted):
			fmt.Fprintln(out, "^C")
			return
		case errors.Is(err, io.EOF):
			fmt.Fprintln(out, "^D")
			return
		default:
			errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}

// saveHistory is best-effort; a REPL session never fails over history.
func saveHistory(ln *liner.State, path string) {
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = ln.WriteHistory(f)
}

//-----------------------------------------------------------------------------
// Session: the scan → parse → resolve → interpret pipeline
//-----------------------------------------------------------------------------

type session struct {
	interp *interpreter.Interpreter
	out    io.Writer
	// debug traces each pipeline stage; nil unless LOX_DEBUG is set.
	debug *slog.Logger
}

func newSession(out io.Writer) *session {
	interp := interpreter.New()
	interp.SetOutput(out)
	return &session{interp: interp, out: out, debug: debugLogger()}
}

func debugLogger() *slog.Logger {
	if os.Getenv("LOX_DEBUG") == "" {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (s *session) trace(stage string, args ...any) {
	if s.debug != nil {
		s.debug.Debug(stage, args...)
	}
}

func (s *session) run(source string) int {
	tokens, lexDiags := lexer.Tokenize(source)
	s.trace("scanner", "tokens", len(tokens), "errors", len(lexDiags))
	if len(lexDiags) > 0 {
		reportDiagnostics(lexDiags)
		return exitStatic
	}

	statements, parseDiags := parser.Parse(tokens)
	s.trace("parser", "statements", len(statements), "errors", len(parseDiags))
	if len(parseDiags) > 0 {
		reportDiagnostics(parseDiags)
		return exitStatic
	}

	locals, resolveDiags := resolver.Resolve(statements)
	s.trace("resolver", "sites", len(locals), "errors", len(resolveDiags))
	if len(resolveDiags) > 0 {
		reportDiagnostics(resolveDiags)
		return exitStatic
	}

	s.interp.BindLocals(locals)
	if err := s.interp.Interpret(statements); err != nil {
		errorColor.Fprintln(os.Stderr, err.Error())
		return exitRuntime
	}
	return exitOK
}

func (s *session) runLine(line string) {
	tokens, lexDiags := lexer.Tokenize(line)
	if len(lexDiags) > 0 {
		reportDiagnostics(lexDiags)
		return
	}

	if expr, err := parser.ParseExpression(tokens); err == nil {
		value, err := s.interp.Evaluate(expr)
		if err != nil {
			errorColor.Fprintln(os.Stderr, err.Error())
			return
		}
		fmt.Fprintln(s.out, interpreter.Stringify(value))
		return
	}

	statements, parseDiags := parser.Parse(tokens)
	if len(parseDiags) > 0 {
		reportDiagnostics(parseDiags)
		return
	}
	locals, resolveDiags := resolver.Resolve(statements)
	if len(resolveDiags) > 0 {
		reportDiagnostics(resolveDiags)
		return
	}
	s.interp.BindLocals(locals)
	if err := s.interp.Interpret(statements); err != nil {
		errorColor.Fprintln(os.Stderr, err.Error())
	}
}

func reportDiagnostics(diags []diagnostics.Diagnostic) {
	errorColor.Fprintln(os.Stderr, diagnostics.Format(diags))
}

//-----------------------------------------------------------------------------
// Dependency management
//-----------------------------------------------------------------------------

func runDeps(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "lox deps requires a subcommand (install, update)")
		return exitUsage
	}
	switch args[0] {
	case "install":
		if len(args) > 1 {
			fmt.Fprintf(os.Stderr, "lox deps install does not take arguments (received %s)\n", strings.Join(args[1:], " "))
			return exitUsage
		}
		return runDepsInstall(false, nil)
	case "update":
		return runDepsInstall(true, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown deps subcommand %q\n", args[0])
		return exitUsage
	}
}

// runDepsInstall resolves dependencies into the cache. With refresh set,
// the named lock entries (or all of them) are dropped first so they are
// fetched again.
func runDepsInstall(refresh bool, targets []string) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to determine working directory: %v\n", err)
		return exitUsage
	}
	manifestPath, err := driver.FindManifest(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to locate package.yml: %v\n", err)
		return exitUsage
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read manifest: %v\n", err)
		return exitUsage
	}
	cacheDir, err := resolveLoxHome()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve LOX_HOME: %v\n", err)
		return exitUsage
	}

	lockPath := filepath.Join(filepath.Dir(manifest.Path), "package.lock")
	lock, err := driver.LoadLockfile(lockPath)
	lockCreated := false
	switch {
	case err == nil:
		if lock.Root != manifest.Name {
			fmt.Fprintf(os.Stderr, "lockfile root %q does not match manifest name %q\n", lock.Root, manifest.Name)
			return exitUsage
		}
	case errors.Is(err, os.ErrNotExist):
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
		lockCreated = true
	default:
		fmt.Fprintf(os.Stderr, "failed to read lockfile: %v\n", err)
		return exitUsage
	}
	lock.Path = lockPath
	lock.Tool = cliToolVersion

	if refresh {
		if len(targets) == 0 {
			lock.Packages = nil
		} else {
			keep := make([]*driver.LockedPackage, 0, len(lock.Packages))
			drop := make(map[string]struct{}, len(targets))
			for _, t := range targets {
				if _, ok := manifest.Dependencies[t]; !ok {
					fmt.Fprintf(os.Stderr, "dependency %q not declared in manifest\n", t)
					return exitUsage
				}
				drop[t] = struct{}{}
			}
			for _, pkg := range lock.Packages {
				if pkg == nil {
					continue
				}
				if _, ok := drop[pkg.Name]; !ok {
					keep = append(keep, pkg)
				}
			}
			lock.Packages = keep
		}
	}

	installer := driver.NewInstaller(manifest, cacheDir)
	changed, logs, err := installer.Install(lock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve dependencies: %v\n", err)
		return exitUsage
	}
	for _, line := range logs {
		fmt.Fprintln(os.Stdout, line)
	}

	if changed || lockCreated {
		action := "Updated"
		if lockCreated {
			action = "Created"
		}
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write lockfile: %v\n", err)
			return exitUsage
		}
		fmt.Fprintf(os.Stdout, "%s package.lock: %s\n", action, lockPath)
	} else {
		fmt.Fprintf(os.Stdout, "package.lock already up to date: %s\n", lockPath)
	}
	return exitOK
}

func loadManifestFrom(start string) (*driver.Manifest, error) {
	if start == "" || start == "." {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		start = cwd
	}
	manifestPath, err := driver.FindManifest(start)
	if err != nil {
		return nil, err
	}
	return driver.LoadManifest(manifestPath)
}

func resolveLoxHome() (string, error) {
	if home := strings.TrimSpace(os.Getenv("LOX_HOME")); home != "" {
		abs, err := filepath.Abs(home)
		if err != nil {
			return "", fmt.Errorf("resolve LOX_HOME %q: %w", home, err)
		}
		return abs, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(userHome, ".lox"), nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  lox                     start the REPL")
	fmt.Fprintln(os.Stderr, "  lox <file.lox>          run a script")
	fmt.Fprintln(os.Stderr, "  lox run [target]        run a manifest target")
	fmt.Fprintln(os.Stderr, "  lox deps install        fetch manifest dependencies")
	fmt.Fprintln(os.Stderr, "  lox deps update [dep ...]")
}
