package main

import (
	"fmt"
	"image/color"
	"log"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/image/font/basicfont"

	"rvm/pkg/asm"
	"rvm/pkg/compiler"
	"rvm/pkg/config"
	"rvm/pkg/logging"
	"rvm/pkg/vm"
)

const (
	cols       = 80
	rows       = 30
	charWidth  = 7
	charHeight = 13
	prompt     = "> "
)

var face = text.NewGoXFace(basicfont.Face7x13)

type Game struct {
	cfg     *config.Config
	log     *zap.Logger
	term    *terminal
	input   []rune
	showHex bool
}

func newGame(cfg *config.Config, logger *zap.Logger) *Game {
	g := &Game{cfg: cfg, log: logger, term: newTerminal(cols, rows), showHex: true}
	fmt.Fprint(g.term, "Type a program on one line and press Enter.\n"+prompt)
	return g
}

// submit compiles and runs the current input line, echoing the result.
func (g *Game) submit() {
	line := string(g.input)
	g.input = g.input[:0]
	fmt.Fprintln(g.term)

	if strings.TrimSpace(line) == ":hex" {
		g.showHex = !g.showHex
	} else if strings.TrimSpace(line) != "" {
		g.execute(line)
	}
	fmt.Fprint(g.term, prompt)
}

func (g *Game) execute(line string) {
	prog, err := compiler.Compile(line, append(g.cfg.CompilerOptions(), compiler.WithLogger(g.log))...)
	if err != nil {
		fmt.Fprintln(g.term, err)
		return
	}
	if g.showHex {
		fmt.Fprintln(g.term, asm.HexDump(prog.Code))
	}
	m := vm.New(append(g.cfg.VMOptions(), vm.WithOutput(g.term), vm.WithLogger(g.log))...)
	if err := m.Execute(prog.Code); err != nil {
		fmt.Fprintln(g.term, err)
	}
}

func (g *Game) typeRune(r rune) {
	g.input = append(g.input, r)
	g.term.put(r)
}

func (g *Game) erase() {
	if len(g.input) == 0 {
		return
	}
	g.input = g.input[:len(g.input)-1]
	g.term.backspace()
}

func (g *Game) Update() error {
	for _, r := range ebiten.AppendInputChars(nil) {
		g.typeRune(r)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.submit()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		g.erase()
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	for y, line := range g.term.lines() {
		op := &text.DrawOptions{}
		op.GeoM.Translate(0, float64(y*charHeight))
		op.ColorScale.ScaleWithColor(color.White)
		text.Draw(screen, line, face, op)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return cols * charWidth, rows * charHeight
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "configuration file")
	flag.Parse()

	cfg, err := config.Load(afero.NewOsFs(), *configPath)
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}
	logger, _, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(2*cols*charWidth, 2*rows*charHeight)
	ebiten.SetWindowTitle("RVM Desktop")

	if err := ebiten.RunGame(newGame(cfg, logger)); err != nil {
		log.Fatal(err)
	}
}
