package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"rvm/pkg/asm"
	"rvm/pkg/compiler"
	"rvm/pkg/config"
	"rvm/pkg/logging"
	"rvm/pkg/utils"
)

const testSource = `int add(int a, int b) {
	int sum = a + b;
}

void main() {
	int x = 3;
	add(x, 4);
	printf("hi\n"); // greeting
}
`

func main() {
	noPrelude := flag.Bool("no-prelude", false, "compile without the built-in prelude")
	verbose := flag.Bool("verbose", false, "log compiler decisions")
	flag.Parse()

	src := testSource
	if flag.NArg() > 0 {
		var err error
		src, err = utils.ReadSource(afero.NewOsFs(), flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
	}

	logCfg := config.Default().Log
	if *verbose {
		logCfg.Level = "debug"
	}
	logger, _, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	processed := compiler.Preprocess(src, !*noPrelude)
	fmt.Printf("Source:\n%s\n", processed.Text)

	tokens, err := compiler.DefaultTokenTable.Tokenize(processed)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}
	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	prog, err := compiler.Compile(src, compiler.WithPrelude(!*noPrelude), compiler.WithLogger(logger.Named("compiler")))
	if err != nil {
		logger.Error("compile failed", zap.Error(err))
		os.Exit(1)
	}

	fmt.Println("Disassembly")
	if err := asm.Disassemble(os.Stdout, prog.Code, prog.CodeSize); err != nil {
		fmt.Fprintln(os.Stderr, "disassembly error:", err)
		os.Exit(1)
	}
	fmt.Println()

	fmt.Println(prog.Functions)

	fmt.Println("Image")
	fmt.Println(asm.HexDump(prog.Code))
}

