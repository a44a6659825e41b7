package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/mlundvall/daesim/internal/config"
	"github.com/mlundvall/daesim/internal/diag"
	"github.com/mlundvall/daesim/internal/linsys"
	"github.com/mlundvall/daesim/internal/model"
	"github.com/mlundvall/daesim/internal/sim"
	"github.com/mlundvall/daesim/internal/storage"
	"github.com/mlundvall/daesim/internal/tui"
)

var (
	dataDir    string
	dt         float64
	duration   float64
	method     string
	sparseTol  float64
	sparseIter int
	verbose    bool
	abortFail  bool
	logLevel   string
	configFile string
	preset     string
	frameRate  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "daesim",
		Short: "implicit simulation engine for linear equation-block models",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".daesim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "diagnostics level (debug|info|warn|error)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a simulation",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(args[0])
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run with live solver-status view",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")

	methodsCmd := &cobra.Command{
		Use:   "methods",
		Short: "list linear solver methods",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("dense   direct LU factorization (column-major dense storage)")
			fmt.Println("sparse  preconditioned BiCGStab on compressed sparse storage")
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list available models",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range model.Names() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, liveCmd, methodsCmd, presetsCmd, modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().StringVar(&method, "method", config.DefaultMethod, "linear solver method (dense|sparse)")
	cmd.Flags().Float64Var(&sparseTol, "sparse-tol", config.DefaultSparseTol, "sparse solver residual tolerance")
	cmd.Flags().IntVar(&sparseIter, "sparse-max-iter", 0, "sparse solver iteration cap (0 = 2*size)")
	cmd.Flags().BoolVar(&verbose, "verbose-failures", true, "report each failing system")
	cmd.Flags().BoolVar(&abortFail, "abort-on-failure", false, "abort the run on the first unsolved system")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// resolveConfig merges preset, config file and CLI flags (flags win).
func resolveConfig(cmd *cobra.Command, modelName string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = modelName

	if preset != "" {
		p := config.GetPreset(modelName, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(modelName))
		}
		*cfg = *p
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		fileCfg.Model = modelName
		*cfg = *fileCfg
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("method") {
		cfg.Method = method
	}
	if cmd.Flags().Changed("sparse-tol") {
		cfg.SparseTol = sparseTol
	}
	if cmd.Flags().Changed("sparse-max-iter") {
		cfg.SparseMaxIter = sparseIter
	}
	if cmd.Flags().Changed("verbose-failures") {
		cfg.VerboseFailures = verbose
	}
	if cmd.Flags().Changed("abort-on-failure") {
		cfg.AbortOnFailure = abortFail
	}
	if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = logLevel
	}

	return cfg, cfg.Validate()
}

// buildEngine constructs the model and an initialized engine from a resolved
// config.
func buildEngine(cfg *config.Config, sink *diag.Sink) (*sim.Engine, error) {
	mdl, err := model.New(cfg.Model)
	if err != nil {
		return nil, err
	}

	if len(cfg.Params) > 0 {
		tunable, ok := mdl.(model.Configurable)
		if !ok {
			return nil, fmt.Errorf("model %s has no tunable parameters", cfg.Model)
		}
		for name, value := range cfg.Params {
			if err := tunable.SetParam(name, value); err != nil {
				return nil, err
			}
		}
	}

	lsMethod, err := linsys.ParseMethod(cfg.Method)
	if err != nil {
		return nil, err
	}

	events := make([]sim.ParamEvent, len(cfg.Events))
	for i, ev := range cfg.Events {
		events[i] = sim.ParamEvent{Time: ev.Time, Param: ev.Param, Value: ev.Value}
	}

	engine := sim.New(mdl, sink, sim.Config{
		Dt:              cfg.Dt,
		Duration:        cfg.Duration,
		Method:          lsMethod,
		SparseTol:       cfg.SparseTol,
		SparseMaxIter:   cfg.SparseMaxIter,
		VerboseFailures: cfg.VerboseFailures,
		AbortOnFailure:  cfg.AbortOnFailure,
		Events:          events,
	})
	if err := engine.Init(); err != nil {
		return nil, err
	}
	return engine, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	sink := diag.New(os.Stderr, diag.ParseLevel(cfg.LogLevel))
	engine, err := buildEngine(cfg, sink)
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Printf("running %s (%s solver)...\n", cfg.Model, cfg.Method)
	start := time.Now()

	result, err := engine.Run(context.Background())
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(cfg.Model, cfg.Method, cfg.Dt, cfg.Duration, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d (failed: %d)\n", len(result.States)-1, result.FailedSteps)
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}

	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg, diag.Nop())
	if err != nil {
		return err
	}
	defer engine.Close()

	p := tea.NewProgram(tui.NewModel(engine, cfg.Dt, frameRate))
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tDURATION\tDT\tMETHOD\tFAILED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Method,
			run.FailedSteps,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s (%s solver)\n", meta.Model, meta.Method)
	fmt.Printf("samples: %d\n\n", len(states))

	numVars := len(states[0])
	maxPlots := 6
	if numVars > maxPlots {
		numVars = maxPlots
	}

	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, len(states))
		for i := range states {
			if varIdx < len(states[i]) {
				data[i] = states[i][varIdx]
			}
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("x%d vs time", varIdx)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	states, times, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{"time"}
	for i := range states[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range states {
		row := []string{strconv.FormatFloat(times[i], 'f', 6, 64)}
		for _, val := range states[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}
