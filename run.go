package juniper

import (
	"errors"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title     string
	Width     int
	Height    int
	Resizable bool
}

// game adapts a Runner to ebiten.Game.
type game struct {
	rn     *Runner
	device *EbitenDevice
	last   time.Time
	width  int
	height int
}

func (g *game) Update() error {
	if g.rn.Stopped() {
		return ebiten.Termination
	}
	now := time.Now()
	dt := 1 / float64(ebiten.TPS())
	if !g.last.IsZero() {
		dt = now.Sub(g.last).Seconds()
	}
	g.last = now
	g.rn.Process(dt)
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	g.device.SetScreen(screen)
	g.rn.Render()
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := g.width, g.height
	if w <= 0 || h <= 0 {
		w, h = outsideWidth, outsideHeight
	}
	g.rn.SetSize(w, h)
	return w, h
}

// Run opens a window and drives rn until the window closes or rn.Stop is
// called. rn must draw through an EbitenDevice.
func Run(rn *Runner, cfg RunConfig) error {
	dev, ok := rn.Renderer().Device().(*EbitenDevice)
	if !ok {
		return errors.New("juniper: Run needs a runner built on an EbitenDevice")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 1280, 720
	}
	if cfg.Title == "" {
		cfg.Title = "juniper"
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	if cfg.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}

	g := &game{rn: rn, device: dev}
	if !cfg.Resizable {
		g.width, g.height = cfg.Width, cfg.Height
	}
	defer rn.Shutdown()
	err := ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}
