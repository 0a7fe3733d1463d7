package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"aalower/internal/codegen"
	"aalower/internal/config"
	"aalower/internal/diag"
	"aalower/internal/interp"
	"aalower/internal/ir"
)

func usage() {
	fmt.Fprintln(os.Stderr, "aalower - associative array lowering demo")
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  aalower ir [flags]")
	fmt.Fprintln(os.Stderr, "  aalower c [--check] [flags]")
	fmt.Fprintln(os.Stderr, "  aalower run [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "flags:")
	fmt.Fprintln(os.Stderr, "  --op=index|in|remove|len                operation to lower (default: index)")
	fmt.Fprintln(os.Stderr, "  --mode=read|write                       index as rvalue or lvalue (default: read)")
	fmt.Fprintln(os.Stderr, "  --key=int|long|string|struct            key type (default: int)")
	fmt.Fprintln(os.Stderr, "  --category=imm|var|const|computed       key operand category (default: imm)")
	fmt.Fprintln(os.Stderr, "  --file=<name>                           source file name (default: $AALOWER_FILE or main.d)")
	fmt.Fprintln(os.Stderr, "  --line=N                                source line of the operation (default: 1)")
	fmt.Fprintln(os.Stderr, "  --present                               insert the key before the operation")
	fmt.Fprintln(os.Stderr, "  --trace                                 debug logging (also $AALOWER_TRACE)")
	fmt.Fprintln(os.Stderr, "c flags:")
	fmt.Fprintln(os.Stderr, "  --check                                 compile the emitted C with $AALOWER_CC")
}

const (
	exitFail     = 1
	exitInternal = 3
)

var optionValues = map[string][]string{
	"op":       {"index", "in", "remove", "len"},
	"mode":     {"read", "write"},
	"key":      {"int", "long", "string", "struct"},
	"category": {"imm", "var", "const", "computed"},
}

func parseOptions(args []string, cfg config.Config) (demoOptions, error) {
	opts := demoOptions{
		op:       "index",
		mode:     "read",
		key:      "int",
		category: "imm",
		file:     cfg.File,
		line:     1,
		trace:    cfg.Trace,
	}
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch a {
		case "--present":
			opts.present = true
			continue
		case "--check":
			opts.check = true
			continue
		case "--trace":
			opts.trace = true
			continue
		}
		if !strings.HasPrefix(a, "--") {
			return opts, fmt.Errorf("unexpected arg: %s", a)
		}
		name, val, ok := strings.Cut(strings.TrimPrefix(a, "--"), "=")
		if !ok {
			if i+1 >= len(args) {
				return opts, fmt.Errorf("missing value for --%s", name)
			}
			i++
			val = args[i]
		}
		switch name {
		case "op", "mode", "key", "category":
			if !slices.Contains(optionValues[name], val) {
				return opts, fmt.Errorf("unknown %s: %q", name, val)
			}
			switch name {
			case "op":
				opts.op = val
			case "mode":
				opts.mode = val
			case "key":
				opts.key = val
			case "category":
				opts.category = val
			}
		case "file":
			if val == "" {
				return opts, fmt.Errorf("empty --file")
			}
			opts.file = val
		case "line":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return opts, fmt.Errorf("invalid --line: %q", val)
			}
			opts.line = n
		default:
			return opts, fmt.Errorf("unknown flag: %s", a)
		}
	}
	return opts, nil
}

func newLogger(trace bool) *slog.Logger {
	if !trace {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitFail)
	}
	cmd := os.Args[1]
	switch cmd {
	case "help", "-h", "--help":
		usage()
		return
	case "ir", "c", "run":
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(exitFail)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitFail)
	}
	opts, err := parseOptions(os.Args[2:], cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitFail)
	}
	if opts.check && cmd != "c" {
		fmt.Fprintln(os.Stderr, "--check is only valid for aalower c")
		os.Exit(exitFail)
	}

	mod, err := buildDemo(opts, cfg.Layout(), newLogger(opts.trace))
	if err != nil {
		exitErr(opts, err)
	}
	switch cmd {
	case "ir":
		fmt.Fprint(os.Stdout, mod.Format())
	case "c":
		err = dumpC(mod, opts.check, cfg.CC)
	case "run":
		var out string
		out, err = runDemo(mod)
		if err == nil {
			fmt.Fprintln(os.Stdout, out)
		}
	}
	if err != nil {
		exitErr(opts, err)
	}
}

func exitErr(opts demoOptions, err error) {
	var be *interp.BoundsError
	switch {
	case diag.IsInternal(err):
		bag := &diag.Bag{}
		bag.AddErr(diag.Loc{Filename: opts.file, Line: opts.line}, err)
		diag.Print(os.Stderr, bag)
		os.Exit(exitInternal)
	case errors.As(err, &be):
		fmt.Fprintln(os.Stdout, be.Error())
	default:
		fmt.Fprintln(os.Stderr, err.Error())
	}
	os.Exit(exitFail)
}

func dumpC(mod *ir.Module, check bool, cc string) error {
	csrc, err := codegen.EmitC(mod, codegen.EmitOptions{})
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, csrc)
	if !check {
		return nil
	}
	return checkC(csrc, cc)
}

// checkC compiles csrc to an object file with cc.
func checkC(csrc, cc string) error {
	dir, err := os.MkdirTemp("", "aalower-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	cPath := filepath.Join(dir, "demo.c")
	if err := os.WriteFile(cPath, []byte(csrc), 0o644); err != nil {
		return err
	}
	cmd := exec.Command(cc, "-std=c11", "-c", cPath, "-o", filepath.Join(dir, "demo.o"))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %v\n%s", cc, err, string(out))
	}
	return nil
}
