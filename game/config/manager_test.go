package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/mcp-training/goodiegrid/game/engine"
)

func createValidConfig() *engine.GameConfig {
	return &engine.GameConfig{
		Name:        "Test Config",
		Description: "Test configuration",
		MoveEnergy:  10,
		Board:       engine.BoardConfig{Width: 6, Height: 4},
		Goodies: []engine.GoodieBatch{
			{Count: 3, GoodieOptions: engine.GoodieOptions{Type: "apple", Energy: 25}},
		},
		Players: []engine.PlayerConfig{{Name: "Alice", Type: "knight"}},
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func TestNewManager_MissingDir(t *testing.T) {
	if _, err := NewManager(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Expected error for missing config directory")
	}
}

func TestNewManager_BuiltinDefault(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	def := m.GetDefault()
	if def == nil || def.Name != "classic" {
		t.Fatalf("Expected built-in classic default, got %+v", def)
	}

	config, err := m.LoadConfig("classic")
	if err != nil {
		t.Fatalf("LoadConfig(classic): %v", err)
	}
	if config.Board.Width != 20 || config.Board.Height != 10 {
		t.Errorf("Expected 20x10 classic board, got %+v", config.Board)
	}
}

func TestLoadConfig_JSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.json", `{"name": "Small", "board": {"width": 3, "height": 3}}`)
	writeFile(t, dir, "picnic.yaml", "name: Picnic\nboard: {width: 8, height: 6}\ngoodies:\n  - {count: 5, type: sandwich, energy: 30}\n")

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	small, err := m.LoadConfig("small")
	if err != nil {
		t.Fatalf("LoadConfig(small): %v", err)
	}
	if small.Name != "Small" {
		t.Errorf("Expected Small, got %s", small.Name)
	}

	picnic, err := m.LoadConfig("picnic")
	if err != nil {
		t.Fatalf("LoadConfig(picnic): %v", err)
	}
	if len(picnic.Goodies) != 1 || picnic.Goodies[0].Energy != 30 {
		t.Errorf("Unexpected goodies %+v", picnic.Goodies)
	}

	withExt, err := m.LoadConfig("picnic.yaml")
	if err != nil {
		t.Fatalf("LoadConfig(picnic.yaml): %v", err)
	}
	if withExt != picnic {
		t.Error("Expected name with extension to hit the same cache entry")
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	m, _ := NewManager(t.TempDir())
	for _, name := range []string{"missing", "../etc/passwd", ".hidden"} {
		if _, err := m.LoadConfig(name); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("LoadConfig(%q): expected ErrConfigNotFound, got %v", name, err)
		}
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"name": `)
	writeFile(t, dir, "bad.json", `{"name": "", "move_energy": -1}`)

	m, _ := NewManager(dir)
	for _, name := range []string{"broken", "bad"} {
		if _, err := m.LoadConfig(name); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("LoadConfig(%s): expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zeta.json", `{"name": "Zeta", "board": {"width": 4, "height": 2}, "goodies": [{"count": 2}, {"count": 1}]}`)
	writeFile(t, dir, "alpha.yml", "name: Alpha\n")
	writeFile(t, dir, "broken.json", `nope`)
	writeFile(t, dir, "notes.txt", "ignored")

	m, _ := NewManager(dir)
	configs, err := m.ListConfigs()
	if err != nil {
		t.Fatalf("ListConfigs: %v", err)
	}

	ids := []string{}
	for _, c := range configs {
		ids = append(ids, c.ConfigID)
	}
	expected := []string{"alpha", "classic", "zeta"}
	if len(ids) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, ids)
	}
	for i := range expected {
		if ids[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, ids)
			break
		}
	}

	zeta := configs[2]
	if zeta.Width != 4 || zeta.Height != 2 || zeta.Goodies != 3 || zeta.Filename != "zeta.json" {
		t.Errorf("Unexpected zeta info %+v", zeta)
	}
	alpha := configs[0]
	if alpha.Width != engine.DefaultBoardWidth || alpha.Height != engine.DefaultBoardHeight {
		t.Errorf("Expected default board size for alpha, got %dx%d", alpha.Width, alpha.Height)
	}
}

func TestSaveConfig(t *testing.T) {
	dir := t.TempDir()
	m, _ := NewManager(dir)

	if err := m.SaveConfig("mine", createValidConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mine.json")); err != nil {
		t.Errorf("Expected mine.json to exist: %v", err)
	}

	if err := m.SaveConfig("other.yaml", createValidConfig()); err != nil {
		t.Fatalf("SaveConfig yaml: %v", err)
	}

	// A fresh manager reads both files back from disk
	fresh, _ := NewManager(dir)
	for _, name := range []string{"mine", "other"} {
		config, err := fresh.LoadConfig(name)
		if err != nil {
			t.Fatalf("LoadConfig(%s): %v", name, err)
		}
		if config.Name != "Test Config" || config.MoveEnergy != 10 || len(config.Goodies) != 1 || config.Goodies[0].Type != "apple" {
			t.Errorf("%s: unexpected config %+v", name, config)
		}
	}
}

func TestSaveConfig_Rejects(t *testing.T) {
	m, _ := NewManager(t.TempDir())

	invalid := createValidConfig()
	invalid.Name = ""
	if err := m.SaveConfig("x", invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for invalid config, got %v", err)
	}
	for _, name := range []string{"", "../escape", ".hidden"} {
		if err := m.SaveConfig(name, createValidConfig()); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("SaveConfig(%q): expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestSetDefaultAndRefresh(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "classic.json", `{"name": "Custom Classic", "board": {"width": 5, "height": 5}}`)
	writeFile(t, dir, "tiny.json", `{"name": "Tiny", "board": {"width": 2, "height": 2}}`)

	m, _ := NewManager(dir)
	if m.GetDefault().Name != "Custom Classic" {
		t.Errorf("Expected classic.json to override the built-in, got %s", m.GetDefault().Name)
	}

	if err := m.SetDefault("tiny"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if m.GetDefault().Name != "Tiny" {
		t.Errorf("Expected Tiny default, got %s", m.GetDefault().Name)
	}

	writeFile(t, dir, "classic.json", `{"name": "Edited Classic"}`)
	m.RefreshCache()
	if m.GetDefault().Name != "Edited Classic" {
		t.Errorf("Expected refreshed classic, got %s", m.GetDefault().Name)
	}
}

func TestConcurrentLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared.json", `{"name": "Shared"}`)
	m, _ := NewManager(dir)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.LoadConfig("shared"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent load failed: %v", err)
	}
}
