// Package worldio loads and saves world files: a JSON description of
// agents and obstacles referencing a Moving-AI octile map file.
// Grounded on load_world/load_map/save_world in
// original_source/diplomka/libsolver/world.cpp, re-expressed with
// encoding/json in place of boost::property_tree (see DESIGN.md for
// why no ecosystem library replaces this — the wire format is fixed by
// the specification, not negotiable).
package worldio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/orange-dot/mapf-grid/internal/core"
)

// BadWorldFormat is returned for any malformed world file or map file;
// it is the only error LoadWorld and LoadMap return, matching the
// original's bad_world_format exception — a no-path or cancellation
// result elsewhere in the system is never an error, but a corrupt file
// on disk always is.
type BadWorldFormat struct {
	Path   string
	Reason string
}

func (e *BadWorldFormat) Error() string {
	return fmt.Sprintf("worldio: bad world format in %q: %s", e.Path, e.Reason)
}

type jsonPosition [2]int

func (p jsonPosition) toPosition() core.Position { return core.Position{X: p[0], Y: p[1]} }

type jsonNormal struct {
	Parameters [2]float64 `json:"parameters"`
}

type jsonAgent struct {
	Position jsonPosition  `json:"position"`
	Goal     *jsonPosition `json:"goal,omitempty"`
}

type jsonObstacleSettings struct {
	TileProbability   float64    `json:"tile_probability"`
	ObstacleMovement  struct {
		MoveProbability jsonNormal `json:"move_probability"`
	} `json:"obstacle_movement"`
}

type jsonWorld struct {
	Map       string                `json:"map"`
	Agents    []jsonAgent           `json:"agents"`
	Obstacles *jsonObstacleSettings `json:"obstacles,omitempty"`
}

// LoadWorld reads a world file at path: the JSON document for agents
// and optional obstacle settings, and the octile map file it
// references (resolved relative to path's directory, matching the
// original's "path relative to the JSON file's own directory" rule).
func LoadWorld(path string, rng *rand.Rand) (*core.World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &BadWorldFormat{Path: path, Reason: err.Error()}
	}

	var jw jsonWorld
	if err := json.Unmarshal(data, &jw); err != nil {
		return nil, &BadWorldFormat{Path: path, Reason: err.Error()}
	}
	if jw.Map == "" {
		return nil, &BadWorldFormat{Path: path, Reason: "missing \"map\" field"}
	}

	mapPath := jw.Map
	if !filepath.IsAbs(mapPath) {
		mapPath = filepath.Join(filepath.Dir(path), mapPath)
	}
	m, err := LoadMap(mapPath)
	if err != nil {
		return nil, err
	}

	w := core.NewWorld(m)

	for _, ja := range jw.Agents {
		pos := ja.Position.toPosition()
		goal := pos
		if ja.Goal != nil {
			goal = ja.Goal.toPosition()
		}
		if !core.InBounds(pos, m) || !core.Traversable(m.Get(pos)) {
			return nil, &BadWorldFormat{Path: path, Reason: fmt.Sprintf("agent position %v is not free", pos)}
		}
		w.CreateAgent(pos, goal)
	}

	if jw.Obstacles != nil {
		if err := makeObstacles(w, *jw.Obstacles, rng); err != nil {
			return nil, &BadWorldFormat{Path: path, Reason: err.Error()}
		}
	}

	return w, nil
}

// makeObstacles scatters obstacles across every free cell independently
// with probability settings.TileProbability, matching the original's
// make_obstacles / std::generate_canonical usage.
func makeObstacles(w *core.World, settings jsonObstacleSettings, rng *rand.Rand) error {
	dist := core.NormalDistribution{
		Mean:   settings.ObstacleMovement.MoveProbability.Parameters[0],
		StdDev: settings.ObstacleMovement.MoveProbability.Parameters[1],
	}

	it := w.Map().Iterate()
	for {
		p, tile, ok := it.Next()
		if !ok {
			break
		}
		if tile != core.Free {
			continue
		}
		if w.Get(p) != core.Free {
			continue // an agent already occupies this cell
		}
		if rng.Float64() < settings.TileProbability {
			w.CreateObstacle(p, dist, rng)
		}
	}
	return nil
}

// LoadMap parses a Moving-AI octile map file:
//
//	type octile
//	height H
//	width W
//	map
//	<H lines of W characters each>
//
// '.'/'G' are free; '@'/'O'/'T'/'S'/'W' are walls, matching
// char_to_tile in world.cpp.
func LoadMap(path string) (*core.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &BadWorldFormat{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	expectWord := func(word string) error {
		if !scanner.Scan() {
			return fmt.Errorf("expected %q, got EOF", word)
		}
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != word {
			return fmt.Errorf("expected %q, got %q", word, line)
		}
		return nil
	}
	expectNum := func(word string) (int, error) {
		if !scanner.Scan() {
			return 0, fmt.Errorf("expected %q <num>, got EOF", word)
		}
		fields := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(fields) != 2 || fields[0] != word {
			return 0, fmt.Errorf("expected %q <num>", word)
		}
		return strconv.Atoi(fields[1])
	}

	if _, err := expectWordOrType(scanner); err != nil {
		return nil, &BadWorldFormat{Path: path, Reason: err.Error()}
	}
	height, err := expectNum("height")
	if err != nil {
		return nil, &BadWorldFormat{Path: path, Reason: err.Error()}
	}
	width, err := expectNum("width")
	if err != nil {
		return nil, &BadWorldFormat{Path: path, Reason: err.Error()}
	}
	if err := expectWord("map"); err != nil {
		return nil, &BadWorldFormat{Path: path, Reason: err.Error()}
	}

	tiles := make([]core.Tile, width*height)
	for y := 0; y < height; y++ {
		if !scanner.Scan() {
			return nil, &BadWorldFormat{Path: path, Reason: "unexpected EOF reading map body"}
		}
		line := scanner.Text()
		if len(line) < width {
			return nil, &BadWorldFormat{Path: path, Reason: fmt.Sprintf("map row %d too short", y)}
		}
		for x := 0; x < width; x++ {
			tiles[y*width+x] = charToTile(line[x])
		}
	}

	return core.NewMap(width, height, tiles, path), nil
}

// expectWordOrType accepts the Moving-AI header's first line, which is
// "type octile" in the canonical format.
func expectWordOrType(scanner *bufio.Scanner) (string, error) {
	if !scanner.Scan() {
		return "", fmt.Errorf("expected map header, got EOF")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func charToTile(c byte) core.Tile {
	switch c {
	case '.', 'G':
		return core.Free
	case '@', 'O', 'T', 'S', 'W':
		return core.Wall
	default:
		return core.Wall
	}
}

// SaveWorld writes w back out as a world file + companion map file
// that LoadWorld can read back. Only the map and the agents (position
// and goal) are written: no "obstacles" section is saved, so a
// reloaded world has no obstacles.
func SaveWorld(path string, w *core.World) error {
	mapPath := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".map"
	if err := saveMap(filepath.Join(filepath.Dir(path), mapPath), w.Map()); err != nil {
		return err
	}

	jw := jsonWorld{Map: mapPath}
	for _, id := range w.AgentIDs() {
		pos, _ := w.AgentPosition(id)
		a, _ := w.GetAgent(pos)
		goal := jsonPosition{a.Target.X, a.Target.Y}
		jw.Agents = append(jw.Agents, jsonAgent{
			Position: jsonPosition{pos.X, pos.Y},
			Goal:     &goal,
		})
	}

	data, err := json.MarshalIndent(jw, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func saveMap(path string, m *core.Map) error {
	var b strings.Builder
	b.WriteString("type octile\n")
	fmt.Fprintf(&b, "height %d\n", m.Height())
	fmt.Fprintf(&b, "width %d\n", m.Width())
	b.WriteString("map\n")

	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			if core.Traversable(m.Get(core.Position{X: x, Y: y})) {
				b.WriteByte('.')
			} else {
				b.WriteByte('@')
			}
		}
		b.WriteByte('\n')
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}
