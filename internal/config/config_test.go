package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "heatrod" {
		t.Errorf("expected model heatrod, got %s", cfg.Model)
	}
	if cfg.Method != "dense" {
		t.Errorf("expected method dense, got %s", cfg.Method)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadSaveRoundtrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = "rcladder"
	cfg.Method = "sparse"
	cfg.SparseMaxIter = 50
	cfg.Params = map[string]float64{"vin": 12.0}
	cfg.Events = []EventConfig{{Time: 2.0, Param: "vin", Value: 0.0}}

	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Model != "rcladder" || loaded.Method != "sparse" {
		t.Errorf("roundtrip lost fields: %+v", loaded)
	}
	if loaded.SparseMaxIter != 50 {
		t.Errorf("expected sparse_max_iter 50, got %d", loaded.SparseMaxIter)
	}
	if loaded.Params["vin"] != 12.0 {
		t.Errorf("expected vin param 12.0, got %f", loaded.Params["vin"])
	}
	if len(loaded.Events) != 1 || loaded.Events[0].Param != "vin" {
		t.Errorf("events lost in roundtrip: %+v", loaded.Events)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dt = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero dt should fail validation")
	}

	cfg = DefaultConfig()
	cfg.Events = []EventConfig{
		{Time: 5, Param: "alpha", Value: 1},
		{Time: 2, Param: "alpha", Value: 2},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("unsorted events should fail validation")
	}

	cfg = DefaultConfig()
	cfg.Events = []EventConfig{{Time: 1}}
	if err := cfg.Validate(); err == nil {
		t.Error("event without param should fail validation")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("heatrod", "shock")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if len(cfg.Events) != 1 {
		t.Errorf("shock preset should carry one event, got %d", len(cfg.Events))
	}

	if GetPreset("heatrod", "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "shock") != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets("rcladder")
	if len(names) == 0 {
		t.Fatal("expected presets for rcladder")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Error("preset names should be sorted")
		}
	}
}
