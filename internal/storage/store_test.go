package storage

import (
	"math"
	"strings"
	"testing"

	"github.com/mlundvall/daesim/internal/sim"
)

func sampleResult() *sim.Result {
	return &sim.Result{
		States: [][]float64{
			{293.15, 293.15},
			{295.00, 293.80},
			{297.25, 294.60},
		},
		Times:       []float64{0, 0.5, 1.0},
		Metrics:     map[string]float64{"solves": 2, "solve_failures": 0},
		FailedSteps: 0,
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	runID, err := store.Save("heatrod", "dense", 0.5, 1.0, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "heatrod_") {
		t.Errorf("run id should carry the model name, got %s", runID)
	}

	meta, err := store.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Model != "heatrod" || meta.Method != "dense" {
		t.Errorf("metadata lost fields: %+v", meta)
	}
	if meta.Dt != 0.5 || meta.Duration != 1.0 {
		t.Errorf("timing metadata wrong: dt=%f duration=%f", meta.Dt, meta.Duration)
	}
	if meta.Metrics["solves"] != 2 {
		t.Errorf("metrics lost in roundtrip: %+v", meta.Metrics)
	}

	states, times, err := store.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}
	want := sampleResult()
	if len(states) != len(want.States) {
		t.Fatalf("expected %d rows, got %d", len(want.States), len(states))
	}
	for i := range states {
		if math.Abs(times[i]-want.Times[i]) > 1e-6 {
			t.Errorf("row %d: time %f != %f", i, times[i], want.Times[i])
		}
		for j := range states[i] {
			if math.Abs(states[i][j]-want.States[i][j]) > 1e-6 {
				t.Errorf("row %d col %d: %f != %f", i, j, states[i][j], want.States[i][j])
			}
		}
	}
}

func TestList(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("fresh store should list no runs, got %d", len(runs))
	}

	if _, err := store.Save("rcladder", "sparse", 0.01, 1.0, sampleResult()); err != nil {
		t.Fatal(err)
	}

	runs, err = store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Model != "rcladder" {
		t.Errorf("expected rcladder, got %s", runs[0].Model)
	}
}

func TestListMissingBaseDir(t *testing.T) {
	store := New("/nonexistent/daesim-test")
	runs, err := store.List()
	if err != nil {
		t.Fatalf("missing base dir should not be an error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestLoadMissingRun(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Load("nope_123"); err == nil {
		t.Error("expected error for missing run")
	}
	if _, _, err := store.LoadStates("nope_123"); err == nil {
		t.Error("expected error for missing run states")
	}
}

func TestSaveEmptyResult(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	runID, err := store.Save("heatrod", "dense", 0.1, 0.0, &sim.Result{Metrics: map[string]float64{}})
	if err != nil {
		t.Fatalf("saving an empty result should work: %v", err)
	}

	states, times, err := store.LoadStates(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 0 || len(times) != 0 {
		t.Errorf("expected empty trajectories, got %d states", len(states))
	}
}
