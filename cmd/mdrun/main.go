package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/softmatterlab/mdrun/internal/analysis"
	"github.com/softmatterlab/mdrun/internal/config"
	"github.com/softmatterlab/mdrun/internal/engine"
	"github.com/softmatterlab/mdrun/internal/protocol"
	"github.com/softmatterlab/mdrun/internal/server"
	"github.com/softmatterlab/mdrun/internal/sim"
	"github.com/softmatterlab/mdrun/internal/storage"
	"github.com/softmatterlab/mdrun/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	snapshot   string
	runName    string
	steps      uint64
	kT         float64
	dt         float64
	seed       int64

	scenarioFile string

	plotColumn string

	serveAddr string

	latticeN       int
	latticeSpacing float64
	latticeType    string
	latticeMass    float64
	latticeOut     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mdrun",
		Short: "molecular dynamics run orchestration",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mdrun", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one ensemble stage",
		RunE:  runStage,
	}
	addRunFlags(runCmd)

	scenarioCmd := &cobra.Command{
		Use:   "scenario [scenario.yaml]",
		Short: "run a scripted multi-stage scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().StringVar(&configFile, "config", "", "run config (yaml)")
	scenarioCmd.Flags().StringVar(&snapshot, "snapshot", "", "initial snapshot (json)")
	scenarioCmd.Flags().StringVar(&runName, "name", "", "run name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a thermodynamic log column",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotColumn, "column", "kinetic_temperature", "thermo column to plot")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "mean-squared displacement and spectral analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and thermo data as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run one stage with a live terminal dashboard",
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run one stage while streaming samples over websocket",
		RunE:  runServe,
	}
	addRunFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list ensemble presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets()
			sort.Strings(names)
			for _, name := range names {
				p := config.GetPreset(name)
				fmt.Printf("%-12s %s, %d steps\n", name, p.Kind, p.Steps)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [config.yaml]",
		Short: "write a default run config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.DefaultConfig())
		},
	}

	latticeCmd := &cobra.Command{
		Use:   "lattice",
		Short: "generate a cubic lattice snapshot",
		RunE:  makeLattice,
	}
	latticeCmd.Flags().IntVar(&latticeN, "n", 5, "particles per side")
	latticeCmd.Flags().Float64Var(&latticeSpacing, "spacing", 1.2, "lattice spacing")
	latticeCmd.Flags().StringVar(&latticeType, "type", "A", "particle type")
	latticeCmd.Flags().Float64Var(&latticeMass, "mass", 1.0, "particle mass")
	latticeCmd.Flags().StringVar(&latticeOut, "out", "snapshot.json", "output path")

	rootCmd.AddCommand(runCmd, scenarioCmd, listCmd, plotCmd, analyzeCmd,
		exportJSONCmd, liveCmd, serveCmd, presetsCmd, initCmd, latticeCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "run config (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "ensemble preset")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "initial snapshot (json)")
	cmd.Flags().StringVar(&runName, "name", "", "run name")
	cmd.Flags().Uint64Var(&steps, "steps", 0, "override stage steps")
	cmd.Flags().Float64Var(&kT, "kt", 0, "override stage temperature")
	cmd.Flags().Float64Var(&dt, "dt", 0, "override timestep")
	cmd.Flags().Int64Var(&seed, "seed", 0, "override random seed")
}

// loadRunConfig merges config file, preset and flag overrides, flags
// winning over the file and the file over the preset.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %v)", preset, config.ListPresets())
		}
		cfg.Ensemble = *p
	}
	if snapshot != "" {
		cfg.Snapshot = snapshot
	}
	if cmd.Flags().Changed("steps") {
		cfg.Ensemble.Steps = steps
	}
	if cmd.Flags().Changed("kt") {
		cfg.Ensemble.KT = kT
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cfg.Snapshot == "" {
		return nil, fmt.Errorf("no snapshot given; use --snapshot or set it in the config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// prepareRun creates the run directory and points the config outputs
// into it.
func prepareRun(cfg *config.Config) (*storage.Store, string, string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, "", "", err
	}
	if runName == "" {
		runName = cfg.Ensemble.Kind
	}
	runID, dir, err := st.NewRun(runName)
	if err != nil {
		return nil, "", "", err
	}
	cfg.LogFile = st.LogPath(runID)
	cfg.TrajFile = st.TrajPath(runID)
	return st, runID, dir, nil
}

// lastSample tracks the most recent thermo sample for the run summary.
type lastSample struct {
	s *engine.Sample
}

func (l *lastSample) OnSample(s engine.Sample) { l.s = &s }

func (l *lastSample) metrics() map[string]float64 {
	if l.s == nil {
		return nil
	}
	return map[string]float64{
		"kinetic_temperature": l.s.KineticTemperature,
		"potential_energy":    l.s.PotentialEnergy,
		"kinetic_energy":      l.s.KineticEnergy,
		"pressure":            l.s.Pressure,
		"density":             l.s.Density,
		"volume":              l.s.Volume,
	}
}

func finishRun(s *sim.Simulation, st *storage.Store, runID, dir string, cfg *config.Config, stages []string, last *lastSample) error {
	if err := s.SaveRestart(filepath.Join(dir, "restart.json")); err != nil {
		return err
	}
	if err := s.SaveForces(filepath.Join(dir, "forces.yaml")); err != nil {
		return err
	}
	if err := s.Close(); err != nil {
		return err
	}
	return st.SaveMetadata(runID, storage.RunMetadata{
		Name:       runName,
		Timestamp:  time.Now(),
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Stages:     stages,
		Snapshot:   cfg.Snapshot,
		References: cfg.References,
		Metrics:    last.metrics(),
	})
}

func runStage(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	st, runID, dir, err := prepareRun(cfg)
	if err != nil {
		return err
	}

	s, err := protocol.BuildSimulation(cfg, false)
	if err != nil {
		return err
	}
	last := &lastSample{}
	s.AddObserver(last)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("run %s: %s, %d steps\n", runID, cfg.Ensemble.Kind, cfg.Ensemble.Steps)
	start := time.Now()
	runErr := protocol.RunStage(ctx, s, cfg.Ensemble)
	elapsed := time.Since(start)

	if err := finishRun(s, st, runID, dir, cfg, []string{cfg.Ensemble.Kind}, last); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	printMetrics(last.metrics())
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := protocol.LoadScenario(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	if runName == "" {
		runName = sc.Name
	}
	st, runID, dir, err := prepareRun(cfg)
	if err != nil {
		return err
	}

	s, err := protocol.BuildSimulation(cfg, false)
	if err != nil {
		return err
	}
	last := &lastSample{}
	s.AddObserver(last)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stages := make([]string, len(sc.Stages))
	for i, stage := range sc.Stages {
		stages[i] = stage.Kind
	}

	fmt.Printf("run %s: scenario %s (%d stages)\n", runID, sc.Name, len(sc.Stages))
	runErr := protocol.RunScenario(ctx, s, sc)

	if err := finishRun(s, st, runID, dir, cfg, stages, last); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	printMetrics(last.metrics())
	return nil
}

func printMetrics(metrics map[string]float64) {
	if len(metrics) == 0 {
		return
	}
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("final state:")
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, metrics[name])
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSTAGES\tDT\tSEED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%v\t%.2g\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Stages,
			run.Dt,
			run.Seed,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	header, rows, err := st.LoadThermo(args[0])
	if err != nil {
		return err
	}
	col, err := storage.Column(header, rows, plotColumn)
	if err != nil {
		return err
	}
	if len(col) < 2 {
		return fmt.Errorf("not enough data to plot")
	}
	graph := asciigraph.Plot(col,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s (%d samples)", plotColumn, len(col))),
	)
	fmt.Println(graph)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	frames, err := analysis.ReadTrajectory(st.TrajPath(runID))
	if err != nil {
		return err
	}
	fmt.Printf("run: %s\n", runID)
	fmt.Printf("frames: %d, particles: %d\n\n", len(frames), len(frames[0].Positions))

	if len(frames) > 1 {
		msd, err := analysis.MSD(frames)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(msd,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("mean-squared displacement"),
		)
		fmt.Println(graph)

		frameDt := float64(frames[1].Step-frames[0].Step) * meta.Dt
		d, err := analysis.SelfDiffusion(msd, frameDt)
		if err != nil {
			return err
		}
		fmt.Printf("\nself-diffusion coefficient: %.6g (reduced units)\n\n", d)
	}

	header, rows, err := st.LoadThermo(runID)
	if err != nil {
		return err
	}
	temps, err := storage.Column(header, rows, "kinetic_temperature")
	if err != nil {
		return err
	}
	stepsCol, err := storage.Column(header, rows, "step")
	if err != nil {
		return err
	}
	if len(temps) >= 4 && len(stepsCol) >= 2 {
		sampleDt := (stepsCol[1] - stepsCol[0]) * meta.Dt
		freqs, power, err := analysis.PowerSpectrum(temps, sampleDt)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(power[1:],
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("temperature power spectrum"),
		)
		fmt.Println(graph)
		fmt.Printf("\ndominant frequency: %.6g (reduced time^-1)\n", analysis.DominantFrequency(freqs, power))
		fmt.Printf("temperature: mean %.4f, stddev %.4f\n", analysis.Mean(temps), analysis.StdDev(temps))
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	header, rows, err := st.LoadThermo(runID)
	if err != nil {
		return err
	}
	doc := struct {
		Meta   *storage.RunMetadata `json:"meta"`
		Header []string             `json:"header"`
		Rows   [][]float64          `json:"rows"`
	}{meta, header, rows}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	st, runID, dir, err := prepareRun(cfg)
	if err != nil {
		return err
	}

	s, err := protocol.BuildSimulation(cfg, true)
	if err != nil {
		return err
	}
	last := &lastSample{}
	s.AddObserver(last)

	prog := tea.NewProgram(
		tui.NewModel(fmt.Sprintf("%s %s", cfg.Ensemble.Kind, runID), cfg.Ensemble.Steps),
		tea.WithAltScreen(),
	)
	s.AddObserver(tui.NewObserver(prog))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := protocol.RunStage(ctx, s, cfg.Ensemble)
		prog.Send(tui.DoneMsg(err))
	}()

	if _, err := prog.Run(); err != nil {
		return err
	}
	// stop the run and wait for the step loop to return before touching
	// the state from this goroutine
	cancel()
	<-done
	return finishRun(s, st, runID, dir, cfg, []string{cfg.Ensemble.Kind}, last)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	st, runID, dir, err := prepareRun(cfg)
	if err != nil {
		return err
	}

	s, err := protocol.BuildSimulation(cfg, false)
	if err != nil {
		return err
	}
	last := &lastSample{}
	s.AddObserver(last)

	srv := server.New(serveAddr, nil)
	s.AddObserver(srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	srvCtx, srvCancel := context.WithCancel(ctx)
	go srv.Start(srvCtx)

	fmt.Printf("run %s: %s, %d steps, streaming on ws://%s/ws\n",
		runID, cfg.Ensemble.Kind, cfg.Ensemble.Steps, serveAddr)
	runErr := protocol.RunStage(ctx, s, cfg.Ensemble)
	srvCancel()

	if err := finishRun(s, st, runID, dir, cfg, []string{cfg.Ensemble.Kind}, last); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	printMetrics(last.metrics())
	return nil
}

func makeLattice(cmd *cobra.Command, args []string) error {
	if latticeN < 1 {
		return fmt.Errorf("lattice side must be positive")
	}
	snap := engine.CubicLattice(latticeN, latticeSpacing, latticeType, latticeMass)
	if err := snap.WriteFile(latticeOut); err != nil {
		return err
	}
	fmt.Printf("wrote %d particles to %s (box %.2f)\n",
		len(snap.Positions), latticeOut, snap.Box.Lx)
	return nil
}
