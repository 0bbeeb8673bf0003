// Command mapfvis provides a GUI visualisation for MAPF solvers running
// against a world file. Grounded on cmd/mapfhetvis/main.go: parses a
// world file path and an algorithm flag, constructs the vis.App, runs
// app.Main().
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"gioui.org/app"
	"gioui.org/unit"

	"github.com/orange-dot/mapf-grid/internal/algo"
	"github.com/orange-dot/mapf-grid/internal/vis"
	"github.com/orange-dot/mapf-grid/internal/worldio"
)

func main() {
	var (
		worldPath = flag.String("world", "", "path to a world file (required)")
		solverName = flag.String("solver", "whca", "solver to run: greedy, lra, whca, od")
		window    = flag.Uint("window", 8, "planning window for whca/od")
		seed      = flag.Int64("seed", 42, "random seed")
		headless  = flag.Bool("headless", false, "run the solver loop without opening a window")
		maxTicks  = flag.Int("max-ticks", 0, "tick bound for -headless (0 = until solved)")
	)
	flag.Parse()

	if *worldPath == "" {
		fmt.Fprintln(os.Stderr, "usage: mapfvis -world <path> [-solver greedy|lra|whca|od]")
		os.Exit(2)
	}

	rng := rand.New(rand.NewSource(*seed))
	w, err := worldio.LoadWorld(*worldPath, rng)
	if err != nil {
		log.Fatalf("loading world: %v", err)
	}

	var s algo.Solver
	switch *solverName {
	case "greedy":
		s = algo.NewGreedy()
	case "lra":
		s = algo.NewLRA(5)
	case "whca":
		s = algo.NewWHCA(*window, 0.5)
	case "od":
		s = algo.NewOD(*window, 0.5)
	default:
		log.Fatalf("unknown solver %q", *solverName)
	}

	application := vis.NewApp(w, s, rng)

	if *headless {
		vis.RunHeadless(context.Background(), application, *maxTicks)
		return
	}

	go func() {
		window := new(app.Window)
		window.Option(
			app.Title("MAPF Grid Visualizer"),
			app.Size(unit.Dp(900), unit.Dp(900)),
		)

		if err := application.Run(window); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}
