package worldio

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFiles(t *testing.T, dir string) string {
	t.Helper()
	mapContent := "type octile\nheight 3\nwidth 3\nmap\n...\n...\n...\n"
	if err := os.WriteFile(filepath.Join(dir, "test.map"), []byte(mapContent), 0o644); err != nil {
		t.Fatal(err)
	}

	worldContent := `{
	  "map": "test.map",
	  "agents": [
	    {"position": [0, 0], "goal": [2, 2]}
	  ]
	}`
	worldPath := filepath.Join(dir, "test.world")
	if err := os.WriteFile(worldPath, []byte(worldContent), 0o644); err != nil {
		t.Fatal(err)
	}
	return worldPath
}

func TestLoadWorld(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFiles(t, dir)

	w, err := LoadWorld(path, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("LoadWorld failed: %v", err)
	}
	if w.Map().Width() != 3 || w.Map().Height() != 3 {
		t.Fatalf("wrong map dimensions: %dx%d", w.Map().Width(), w.Map().Height())
	}
	if len(w.AgentIDs()) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(w.AgentIDs()))
	}
}

func TestLoadWorldMissingMapField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.world")
	os.WriteFile(path, []byte(`{"agents": []}`), 0o644)

	_, err := LoadWorld(path, rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatalf("expected BadWorldFormat error for missing map field")
	}
	if _, ok := err.(*BadWorldFormat); !ok {
		t.Fatalf("expected *BadWorldFormat, got %T", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFiles(t, dir)
	w, err := LoadWorld(path, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(dir, "out.world")
	if err := SaveWorld(outPath, w); err != nil {
		t.Fatalf("SaveWorld failed: %v", err)
	}

	reloaded, err := LoadWorld(outPath, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Map().Width() != w.Map().Width() || reloaded.Map().Height() != w.Map().Height() {
		t.Fatalf("round-tripped map dimensions differ")
	}
	if len(reloaded.AgentIDs()) != len(w.AgentIDs()) {
		t.Fatalf("round-tripped agent count differs")
	}
}
