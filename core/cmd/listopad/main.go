package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/aeggydev/Listopad/config"
	listopad "github.com/aeggydev/Listopad/core"
	"github.com/aeggydev/Listopad/session"
)

const (
	appName    = "listopad"
	promptCont = ". "
)

var (
	banner   = "Listopad REPL\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands."
	helpText = `
REPL commands:
  :quit    Exit the REPL
  :debug   Toggle printing of the full error chain
  :help    Show this help
`
)

func red(s string) string  { return "\x1b[31m" + s + "\x1b[0m" }
func blue(s string) string { return "\x1b[94m" + s + "\x1b[0m" }

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("%s: %v", appName, err)
	}

	switch len(os.Args) {
	case 1:
		os.Exit(runRepl(cfg))
	case 2:
		if os.Args[1] == "-h" || os.Args[1] == "--help" {
			usage()
			return
		}
		os.Exit(runFile(cfg, os.Args[1]))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`Usage:
  %s            Start the REPL.
  %s <file>     Evaluate every form of a file and exit.

Environment: LISTOPAD_CONFIG, LISTOPAD_DB, LISTOPAD_HISTORY.
`, appName, appName)
}

// newInterpreter builds an interpreter and evaluates the configured preload files.
func newInterpreter(cfg *config.Config) (*listopad.Interpreter, error) {
	interp, err := listopad.New(listopad.WithDebugger(inspectFrame))
	if err != nil {
		return nil, err
	}
	interp.SetDebugOnError(cfg.DebugOnError)
	for _, path := range cfg.Preload {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("preload: %w", err)
		}
		if _, err := interp.EvalAll(string(src)); err != nil {
			return nil, fmt.Errorf("preload %s: %w", path, listopad.WrapErrorWithSource(err, string(src)))
		}
	}
	return interp, nil
}

// inspectFrame is the debugger hook: it dumps the bindings visible in the
// innermost frame of the calling environment.
func inspectFrame(env *listopad.Env) {
	fmt.Fprintf(os.Stderr, "debug: frame depth %d\n", env.Depth())
	for _, name := range env.Names() {
		v, err := env.Lookup(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s = %s\n", name, v.String())
	}
}

func reportError(interp *listopad.Interpreter, err error, src string) {
	fmt.Fprintln(os.Stderr, red(listopad.WrapErrorWithSource(err, src).Error()))
	if interp.DebugOnError() {
		for e := err; e != nil; e = errors.Unwrap(e) {
			fmt.Fprintf(os.Stderr, "  %T: %v\n", e, e)
		}
	}
}

// --- file mode ---

func runFile(cfg *config.Config, path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, path, err)
		return 1
	}
	interp, err := newInterpreter(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	if _, err := interp.EvalAll(string(src)); err != nil {
		var exit *listopad.ExitError
		if errors.As(err, &exit) {
			return exit.Code
		}
		reportError(interp, err, string(src))
		return 1
	}
	return 0
}

// --- repl ---

func runRepl(cfg *config.Config) int {
	fmt.Println(banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(cfg.History); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(cfg.History); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	interp, err := newInterpreter(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}

	var store *session.Store
	if cfg.Database != "" {
		store, err = session.Open(cfg.Database)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			return 1
		}
		defer store.Close()
		if err := store.Replay(func(src string) error {
			_, err := interp.ReadAndEvaluate(src)
			return err
		}); err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
		}
	}

	for {
		code, ok := readByParseProbe(ln, cfg.Prompt, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit":
				return 0
			case ":debug":
				interp.SetDebugOnError(!interp.DebugOnError())
				fmt.Printf("debug-on-error: %v\n", interp.DebugOnError())
			case ":help":
				fmt.Print(helpText)
			default:
				fmt.Printf("unknown command. Type :help for commands.\n")
			}
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		v, err := interp.ReadAndEvaluate(code)
		if err != nil {
			var exit *listopad.ExitError
			if errors.As(err, &exit) {
				return exit.Code
			}
			reportError(interp, err, code)
			continue
		}
		fmt.Println(blue(v.String()))
		if store != nil {
			if err := store.Record(code); err != nil {
				fmt.Fprintln(os.Stderr, red(err.Error()))
			}
		}
	}

	return 0
}

// readByParseProbe keeps reading lines while the buffered input is an
// unfinished form.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		_, perr := listopad.ReadFromString(src)
		if perr != nil && listopad.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}
