// Package vis implements a minimal Gio-based visualisation of a World
// being solved: the grid, agent and obstacle markers, and a play/pause/
// step control. Grounded on the teacher's internal/vis/app.go event
// loop and keyboard handling; deliberately thin compared to the
// teacher's full CBS-tree/camera/3D-layer visualiser, since none of
// that domain survives here and visualisation is an out-of-scope
// collaborator concern.
package vis

import (
	"context"
	"image"
	"image/color"
	"math/rand"

	"gioui.org/app"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/orange-dot/mapf-grid/internal/algo"
	"github.com/orange-dot/mapf-grid/internal/core"
)

const cellSize = 32

// App is the visualisation application: a world, a solver driving it,
// and simple playback state.
type App struct {
	world  *core.World
	solver algo.Solver
	rng    *rand.Rand

	theme   *material.Theme
	playing bool
}

// NewApp creates a visualisation app over w, driven by solver.
func NewApp(w *core.World, solver algo.Solver, rng *rand.Rand) *App {
	return &App{
		world:  w,
		solver: solver,
		rng:    rng,
		theme:  material.NewTheme(),
	}
}

// Run starts the Gio event loop.
func (a *App) Run(w *app.Window) error {
	var ops op.Ops
	tag := new(int)

	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err

		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)

			for {
				ev, ok := gtx.Event(key.Filter{Focus: tag})
				if !ok {
					break
				}
				if ke, ok := ev.(key.Event); ok && ke.State == key.Press {
					a.handleKeyEvent(ke)
				}
			}
			event.Op(gtx.Ops, tag)

			a.layout(gtx)
			e.Frame(gtx.Ops)

			if a.playing {
				a.step()
				w.Invalidate()
			}
		}
	}
}

func (a *App) handleKeyEvent(e key.Event) {
	switch e.Name {
	case key.NameSpace:
		a.playing = !a.playing
	case key.NameRightArrow:
		a.step()
	}
}

func (a *App) step() {
	if core.Solved(a.world) {
		a.playing = false
		return
	}
	action := a.solver.GetAction(a.world, a.rng)
	action.Apply(a.world)
	a.world.NextTick(a.rng)
}

func (a *App) layout(gtx layout.Context) layout.Dimensions {
	paint.Fill(gtx.Ops, color.NRGBA{R: 30, G: 30, B: 35, A: 255})

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return a.layoutGrid(gtx)
		}),
	)
}

func (a *App) layoutGrid(gtx layout.Context) layout.Dimensions {
	m := a.world.Map()
	w, h := m.Width()*cellSize, m.Height()*cellSize

	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			p := core.Position{X: x, Y: y}
			rect := image.Rect(x*cellSize, y*cellSize, (x+1)*cellSize, (y+1)*cellSize)
			paint.FillShape(gtx.Ops, tileColor(a.world.Get(p)), clip.Rect(rect).Op())
		}
	}

	return layout.Dimensions{Size: image.Point{X: w, Y: h}}
}

func tileColor(t core.Tile) color.NRGBA {
	switch t {
	case core.Wall:
		return color.NRGBA{R: 60, G: 60, B: 60, A: 255}
	case core.Agent:
		return color.NRGBA{R: 80, G: 160, B: 250, A: 255}
	case core.Obstacle:
		return color.NRGBA{R: 220, G: 90, B: 70, A: 255}
	default:
		return color.NRGBA{R: 245, G: 245, B: 245, A: 255}
	}
}

// RunHeadless drives the app's solver loop without any GUI, for
// cmd/mapfvis's --headless flag and for tests that exercise the same
// step logic without opening a window.
func RunHeadless(ctx context.Context, a *App, maxTicks int) {
	for i := 0; (maxTicks == 0 || i < maxTicks) && !core.Solved(a.world); i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}
		a.step()
	}
}
