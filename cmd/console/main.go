package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"

	"rvm/pkg/config"
	"rvm/pkg/logging"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "configuration file")
	noHex := flag.Bool("no-hex", false, "do not print the image hex dump")
	flag.Parse()

	cfg, err := config.Load(afero.NewOsFs(), *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	logger, _, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	s := newSession(cfg, logger, os.Stdout, interactive)
	s.showHex = !*noHex
	if interactive {
		fmt.Println("Enter a program on one line. :hex and :run toggle output, :quit exits.")
	}
	if err := s.serve(os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, "read error:", err)
		os.Exit(1)
	}
}
