package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"rvm/pkg/asm"
	"rvm/pkg/compiler"
	"rvm/pkg/config"
	"rvm/pkg/image"
	"rvm/pkg/logging"
	"rvm/pkg/utils"
	"rvm/pkg/vm"
)

func main() {
	os.Exit(run(os.Args[1:], afero.NewOsFs(), os.Stdout, os.Stderr))
}

type options struct {
	inPath     string
	outPath    string
	runProgram bool
	runBinPath string
	configPath string
	dump       bool
	verbose    bool

	hibernatePath string
	resumePath    string
}

func run(args []string, fs afero.Fs, stdout, stderr io.Writer) int {
	var opts options
	flags := flag.NewFlagSet("rvm", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&opts.inPath, "in", "", "input source file path")
	flags.StringVar(&opts.outPath, "out", "", "output object file path (default: input with "+utils.ObjectExt+" extension)")
	flags.BoolVar(&opts.runProgram, "run", false, "run the compiled program after writing it")
	flags.StringVar(&opts.runBinPath, "run-bin", "", "run an existing object file")
	flags.StringVar(&opts.configPath, "config", config.DefaultPath, "configuration file")
	flags.BoolVar(&opts.dump, "dump", false, "print a hex dump and disassembly of the image")
	flags.BoolVar(&opts.verbose, "verbose", false, "log at debug level")
	flags.StringVar(&opts.hibernatePath, "hibernate", "", "save the machine state here when the instruction limit stops a run")
	flags.StringVar(&opts.resumePath, "resume", "", "resume a run saved with --hibernate")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	if opts.runProgram && opts.runBinPath != "" {
		fmt.Fprintln(stderr, "use either --run or --run-bin, not both")
		return 2
	}
	if opts.resumePath != "" && (opts.runProgram || opts.runBinPath != "") {
		fmt.Fprintln(stderr, "--resume cannot be combined with --run or --run-bin")
		return 2
	}
	if opts.runProgram && opts.inPath == "" {
		fmt.Fprintln(stderr, "--run requires --in, or use --run-bin <file>")
		return 2
	}
	if opts.inPath == "" && opts.runBinPath == "" && opts.resumePath == "" {
		fmt.Fprintln(stderr, "nothing to do: provide --in to compile, --run to run the compiled output, --run-bin <file> to run an existing object file, or --resume <file> to continue a hibernated run")
		flags.PrintDefaults()
		return 2
	}

	cfg, err := config.Load(fs, opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}
	logger, level, err := logging.NewWithWriter(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck
	if opts.verbose {
		level.SetLevel(zap.DebugLevel)
	}

	var img *image.Image
	if opts.inPath != "" {
		img, err = compileFile(fs, cfg, logger, opts, stdout)
		if err != nil {
			fmt.Fprintf(stderr, "compilation failed: %v\n", err)
			return 1
		}
	}

	m := vm.New(append(cfg.VMOptions(), vm.WithOutput(stdout), vm.WithLogger(logger))...)
	switch {
	case opts.resumePath != "":
		if err := m.RestoreFromFile(fs, opts.resumePath); err != nil {
			fmt.Fprintf(stderr, "failed to resume: %v\n", err)
			return 1
		}
		err = m.Run()
	case opts.runBinPath != "":
		img, err = image.ReadFile(fs, opts.runBinPath)
		if err != nil {
			fmt.Fprintf(stderr, "failed to load object file: %v\n", err)
			return 1
		}
		if opts.dump {
			dump(stdout, img)
		}
		err = m.Execute(img.Code)
	case opts.runProgram:
		err = m.Execute(img.Code)
	default:
		return 0
	}
	return finish(m, fs, opts, logger, stdout, stderr, err)
}

// finish reports the outcome of a run. A run stopped by the instruction
// limit is saved when --hibernate is set.
func finish(m *vm.VM, fs afero.Fs, opts options, logger *zap.Logger, stdout, stderr io.Writer, err error) int {
	if errors.Is(err, vm.ErrInstructionLimit) && opts.hibernatePath != "" {
		if herr := m.HibernateToFile(fs, opts.hibernatePath); herr != nil {
			fmt.Fprintf(stderr, "hibernate failed: %v\n", herr)
			return 1
		}
		fmt.Fprintf(stdout, "\nhibernated after %d instructions -> %s\n", m.Steps(), opts.hibernatePath)
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "run failed: %v\n", err)
		return 1
	}
	logger.Debug("run complete",
		zap.Int("steps", m.Steps()),
		zap.Int("stack-high-water", m.Stack().HighWater()),
		zap.Bool("completed", m.Completed),
	)
	return 0
}

func compileFile(fs afero.Fs, cfg *config.Config, logger *zap.Logger, opts options, stdout io.Writer) (*image.Image, error) {
	src, err := utils.ReadSource(fs, opts.inPath)
	if err != nil {
		return nil, err
	}
	prog, err := compiler.Compile(src, append(cfg.CompilerOptions(), compiler.WithLogger(logger))...)
	if err != nil {
		return nil, err
	}
	img := image.FromProgram(prog)

	output := opts.outPath
	if output == "" {
		output = utils.ObjectPath(opts.inPath)
	}
	if err := image.WriteFile(fs, output, img); err != nil {
		return nil, errors.Wrap(err, "failed to write object file")
	}
	fmt.Fprintf(stdout, "compiled %d bytes -> %s\n", len(img.Code), output)
	if opts.dump {
		dump(stdout, img)
	}
	return img, nil
}

func dump(w io.Writer, img *image.Image) {
	fmt.Fprintln(w, asm.HexDump(img.Code))
	if err := asm.Disassemble(w, img.Code, int(img.CodeSize)); err != nil {
		fmt.Fprintf(w, "disassembly stopped: %v\n", err)
	}
}
