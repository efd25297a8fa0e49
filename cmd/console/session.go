package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"rvm/pkg/asm"
	"rvm/pkg/compiler"
	"rvm/pkg/config"
	"rvm/pkg/vm"
)

// session compiles one line of input at a time and reports the result.
type session struct {
	cfg    *config.Config
	log    *zap.Logger
	out    io.Writer
	prompt bool

	showHex bool
	run     bool
}

func newSession(cfg *config.Config, logger *zap.Logger, out io.Writer, prompt bool) *session {
	return &session{
		cfg:     cfg,
		log:     logger,
		out:     out,
		prompt:  prompt,
		showHex: true,
		run:     true,
	}
}

// serve reads lines until in is exhausted or :quit is entered.
func (s *session) serve(in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		if s.prompt {
			fmt.Fprint(s.out, "> ")
		}
		if !sc.Scan() {
			return sc.Err()
		}
		if !s.handle(sc.Text()) {
			return nil
		}
	}
}

// handle processes one line and reports whether the session continues.
func (s *session) handle(line string) bool {
	trimmed := strings.TrimSpace(line)
	switch trimmed {
	case "":
		return true
	case ":quit":
		return false
	case ":hex":
		s.showHex = !s.showHex
		fmt.Fprintf(s.out, "hex dump %s\n", onOff(s.showHex))
		return true
	case ":run":
		s.run = !s.run
		fmt.Fprintf(s.out, "execution %s\n", onOff(s.run))
		return true
	}

	opts := append(s.cfg.CompilerOptions(), compiler.WithLogger(s.log))
	prog, err := compiler.Compile(line, opts...)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return true
	}
	if s.showHex {
		fmt.Fprintln(s.out, asm.HexDump(prog.Code))
	}
	if !s.run {
		return true
	}

	m := vm.New(append(s.cfg.VMOptions(), vm.WithOutput(s.out), vm.WithLogger(s.log))...)
	if err := m.Execute(prog.Code); err != nil {
		fmt.Fprintln(s.out, err)
	}
	return true
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
