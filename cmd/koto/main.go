package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/kutil/util"

	"kotovm/cache"
	"kotovm/config"
	"kotovm/koto"
)

const (
	exitOK        = 0
	exitUsage     = 64
	exitDataErr   = 65
	exitSoftware  = 70
	exitIOErr     = 74
	chunkFileExt  = ".kbc"
	sourceFileExt = ".koto"
)

type options struct {
	configPath string
	verbosity  int
	trace      bool
	printCode  bool
	disasm     bool
	compileOut string
	noCache    bool
}

// main exits through util.Exit so the buffered log writers get flushed.
func main() {
	util.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("koto", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to koto.toml (default: search upwards from the script)")
	fs.IntVar(&opts.verbosity, "v", 0, "log verbosity, -4 (none) to 2 (debug) (overrides koto.toml)")
	fs.BoolVar(&opts.trace, "trace", false, "log every executed instruction")
	fs.BoolVar(&opts.printCode, "print-code", false, "log the compiled chunk")
	fs.BoolVar(&opts.disasm, "disasm", false, "print the disassembled chunk instead of running")
	fs.StringVar(&opts.compileOut, "compile", "", "write the compiled chunk image to this file instead of running")
	fs.BoolVar(&opts.noCache, "no-cache", false, "bypass the compiled chunk cache")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: koto [flags] [script%s|chunk%s]\n", sourceFileExt, chunkFileExt)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return exitUsage
	}

	script := fs.Arg(0)
	cfg, err := loadConfig(opts.configPath, script)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitIOErr
	}

	verbosity := cfg.Log.Verbosity
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "v" {
			verbosity = opts.verbosity
		}
	})
	commonlog.Configure(verbosity, cfg.LogFile())

	vm := koto.NewVM()
	vm.Stdout = stdout
	vm.Stderr = stderr
	vm.TraceExecution = opts.trace || cfg.Debug.TraceExecution
	vm.PrintCode = opts.printCode || cfg.Debug.PrintCode

	if script == "" {
		return repl(vm, stdin, stdout)
	}
	return runFile(vm, cfg, opts, script, stdout, stderr)
}

func loadConfig(path, script string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	dir := "."
	if script != "" {
		dir = filepath.Dir(script)
	}
	return config.FindAndLoad(dir)
}

func repl(vm *koto.VM, stdin io.Reader, stdout io.Writer) int {
	vm.KeepGlobals = true
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		vm.Interpret(line)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(vm.Stderr, "error reading input: %s\n", err)
		return exitIOErr
	}
	return exitOK
}

func runFile(vm *koto.VM, cfg *config.Config, opts options, path string, stdout, stderr io.Writer) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "error reading file: %s\n", err)
		return exitIOErr
	}

	if filepath.Ext(path) == chunkFileExt {
		chunk, err := koto.UnmarshalChunk(data)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitDataErr
		}
		if opts.disasm {
			koto.DisassembleChunk(stdout, chunk, filepath.Base(path))
			return exitOK
		}
		return exitCode(vm.InterpretChunk(chunk))
	}

	source := string(data)
	switch {
	case opts.disasm:
		if err := koto.DisassembleSource(stdout, filepath.Base(path), source); err != nil {
			fmt.Fprintln(stderr, err)
			return exitDataErr
		}
		return exitOK
	case opts.compileOut != "":
		return compileToFile(source, opts.compileOut, stderr)
	case cfg.Cache.Enabled && !opts.noCache:
		return runCached(vm, cfg.CachePath(), source, stderr)
	default:
		return exitCode(vm.Interpret(source))
	}
}

func compileToFile(source, out string, stderr io.Writer) int {
	chunk, err := koto.Compile(source)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitDataErr
	}
	image, err := koto.MarshalChunk(chunk)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitSoftware
	}
	if err := os.WriteFile(out, image, 0o644); err != nil {
		fmt.Fprintf(stderr, "error writing file: %s\n", err)
		return exitIOErr
	}
	return exitOK
}

func runCached(vm *koto.VM, path, source string, stderr io.Writer) int {
	ctx := context.Background()
	store, err := cache.Open(ctx, path)
	if err != nil {
		// The cache is an optimization; run uncached.
		commonlog.GetLogger("koto").Errorf("%s", err.Error())
		return exitCode(vm.Interpret(source))
	}
	defer store.Close()

	chunk, err := store.Compile(ctx, source, func(source string) (*koto.Chunk, error) {
		compiler := koto.NewCompiler(source)
		compiler.PrintCode = vm.PrintCode
		return compiler.Compile()
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitDataErr
	}
	return exitCode(vm.InterpretChunk(chunk))
}

func exitCode(result koto.InterpretResult) int {
	switch result {
	case koto.InterpretCompileError:
		return exitDataErr
	case koto.InterpretRuntimeError:
		return exitSoftware
	default:
		return exitOK
	}
}
