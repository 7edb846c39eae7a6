package ritornello

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
)

const (
	screenGutter = 2
	curveDim     = 1000
)

// densityRamp maps a density level to a block rune, lowest to highest
var densityRamp = [...]rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// TermView renders each mature pattern's density curve as a row of
// block runes. It is a pure consumer of the density output: everything
// it knows arrives through Densities and Info.
type TermView struct {
	MU     sync.Mutex // State locks to redraw
	View   *View
	Screen tcell.Screen
}

// NewTermView creates the tcell screen that displays the pattern curves
func NewTermView(v *View) (*TermView, error) {
	if v == nil || v.Set == nil {
		slog.Error("Could not get a pattern set for display")
		return nil, errors.New("pattern set not found")
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		slog.Error("Could not get new screen", slog.Any("Error", err))
		return nil, err
	}
	if err := screen.Init(); err != nil {
		slog.Error("Could not initialize screen", slog.Any("Error", err))
		return nil, err
	}

	// Define and configure the default screen
	defStyle := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorPink)
	screen.SetStyle(defStyle)

	tv := &TermView{
		View:   v,
		Screen: screen,
	}
	tv.UpdateScreen()

	return tv, nil
}

// DensityRunes downsamples a curve to the given width and scales each
// column against the curve's own peak, so every pattern fills its row
// regardless of absolute density.
func DensityRunes(ys []float64, width int) []rune {
	if width <= 0 || len(ys) == 0 {
		return nil
	}

	var peak float64
	for _, y := range ys {
		if y > peak {
			peak = y
		}
	}

	runes := make([]rune, width)
	for i := range runes {
		y := ys[i*len(ys)/width]
		if peak == 0 {
			runes[i] = ' '
			continue
		}
		level := int(y / peak * float64(len(densityRamp)))
		if level >= len(densityRamp) {
			level = len(densityRamp) - 1
		}
		runes[i] = densityRamp[level]
	}
	return runes
}

// UpdateScreen redraws every mature pattern: a label row, then the
// curve row. Deriving curves mutates pattern memos, so this holds the
// set's write lock for the snapshot.
func (tv *TermView) UpdateScreen() {
	tv.MU.Lock()
	defer tv.MU.Unlock()

	width, _ := tv.Screen.Size()
	curveW := width - 2*screenGutter
	if curveW < 1 {
		return
	}

	set := tv.View.Set
	set.MU.Lock()
	info := set.Info()
	curves, err := set.Densities(curveDim)
	set.MU.Unlock()
	if err != nil {
		slog.Error("Could not derive curves for display", slog.Any("Error", err))
		return
	}

	tv.Screen.Clear()
	labelStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	curveStyle := tcell.StyleDefault.Foreground(tcell.ColorOliveDrab)

	row := 1
	for _, pi := range info {
		curve, ok := curves[pi.Name]
		if !ok {
			continue // not mature yet
		}

		drawText(tv.Screen, screenGutter, row, labelStyle, pi.Name+" ("+pi.AxisName+")")
		row++
		for col, r := range DensityRunes(curve.Ys, curveW) {
			tv.Screen.SetContent(screenGutter+col, row, r, nil, curveStyle)
		}
		row += 2
	}

	tv.Screen.Show()
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	col := x
	for _, r := range text {
		s.SetContent(col, y, r, nil, style)
		col++
	}
}

// Run redraws on a beat and exits on ESC, 'q', or Ctrl+C.
func (tv *TermView) Run() error {
	quit := make(chan struct{})

	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tv.UpdateScreen()
			case <-quit:
				return
			}
		}
	}()

	defer tv.Screen.Fini()
	for {
		switch ev := tv.Screen.PollEvent().(type) {
		case *tcell.EventResize:
			tv.Screen.Sync()
			tv.UpdateScreen()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape ||
				ev.Key() == tcell.KeyCtrlC ||
				ev.Rune() == 'q' {
				close(quit)
				return nil
			}
		}
	}
}

// StartRhythmView is called to run the terminal renderer over a View.
func StartRhythmView(v *View) error {
	tv, err := NewTermView(v)
	if err != nil {
		slog.Error("Could not start RhythmView", slog.Any("Error", err))
		return err
	}
	return tv.Run()
}
