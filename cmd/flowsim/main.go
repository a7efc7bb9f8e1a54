package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/flowsim/internal/config"
	"github.com/san-kum/flowsim/internal/diagram"
	"github.com/san-kum/flowsim/internal/graph"
	"github.com/san-kum/flowsim/internal/solver"
	"github.com/san-kum/flowsim/internal/storage"
	"github.com/san-kum/flowsim/internal/viz"
)

var (
	dataDir    string
	dt         float64
	duration   float64
	scheme     string
	tolerance  float64
	maxIter    int
	configFile string
	preset     string
	params     []string
	// Plot dimensions
	plotWidth  int
	plotHeight int
	// Export destination
	outFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flowsim",
		Short: "block-diagram simulation lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".flowsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [diagram]",
		Short: "run a simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	runCmd.Flags().StringVar(&scheme, "scheme", config.DefaultScheme, "stepping scheme")
	runCmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "algebraic loop tolerance")
	runCmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIter, "algebraic loop iteration budget")
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().StringArrayVar(&params, "param", nil, "diagram parameter key=value (repeatable)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run signals",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as a regression fixture",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output path (default <run_id>.json)")

	liveCmd := &cobra.Command{
		Use:   "live [diagram]",
		Short: "run with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	liveCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	liveCmd.Flags().StringVar(&scheme, "scheme", config.DefaultScheme, "stepping scheme")
	liveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	liveCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	liveCmd.Flags().StringArrayVar(&params, "param", nil, "diagram parameter key=value (repeatable)")

	schemesCmd := &cobra.Command{
		Use:   "schemes",
		Short: "list available stepping schemes",
		RunE:  listSchemes,
	}

	diagramsCmd := &cobra.Command{
		Use:   "diagrams",
		Short: "list builtin diagrams",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range diagram.Names() {
				fmt.Println(name)
			}
			return nil
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tDIAGRAM\tSCHEME\tDT\tDURATION")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.1f\n",
					name, p.Diagram, p.Scheme, p.Dt, p.Duration)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, liveCmd, schemesCmd, diagramsCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig merges preset, config file, and flags into the run config.
// Precedence from lowest to highest: defaults, preset, config file, flags.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if len(args) > 0 {
		cfg.Diagram = args[0]
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("scheme") {
		cfg.Scheme = scheme
	}
	if cmd.Flags().Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if cmd.Flags().Changed("max-iter") {
		cfg.MaxIter = maxIter
	}
	for _, kv := range params {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param %q, want key=value", kv)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --param value %q: %w", val, err)
		}
		if cfg.Params == nil {
			cfg.Params = map[string]float64{}
		}
		cfg.Params[key] = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildFromConfig(cfg *config.Config) (*diagram.Built, error) {
	sch, err := solver.ByName(cfg.Scheme)
	if err != nil {
		return nil, err
	}
	return diagram.Build(cfg.Diagram, sch, cfg.Params, graph.Config{
		Dt:        cfg.Dt,
		Tolerance: cfg.Tolerance,
		MaxIter:   cfg.MaxIter,
	})
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	built, err := buildFromConfig(cfg)
	if err != nil {
		return err
	}

	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Printf("running %s (%s, dt=%.4f, duration=%.1fs)...\n",
		cfg.Diagram, cfg.Scheme, cfg.Dt, cfg.Duration)
	start := time.Now()

	if err := built.Sim.Run(context.Background(), cfg.Duration); err != nil {
		return err
	}
	elapsed := time.Since(start)

	times, signals := built.Scope.Read()
	runID, err := st.Save(storage.RunMetadata{
		Diagram:  cfg.Diagram,
		Scheme:   cfg.Scheme,
		Dt:       cfg.Dt,
		Duration: cfg.Duration,
		Params:   cfg.Params,
	}, built.Scope.Labels(), times, signals)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("points: %d\n", len(times))
	for _, label := range built.Scope.Labels() {
		series := signals[label]
		fmt.Printf("  %s: final %.6f\n", label, series[len(series)-1])
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDIAGRAM\tSCHEME\tDT\tDURATION\tPOINTS\tCREATED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4fs\t%.2fs\t%d\t%s\n",
			run.ID,
			run.Diagram,
			run.Scheme,
			run.Dt,
			run.Duration,
			run.Points,
			run.Created.Format("2006-01-02 15:04:05"),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	meta, _, signals, err := st.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("diagram: %s (%s)\n", meta.Diagram, meta.Scheme)
	fmt.Printf("points: %d\n\n", meta.Points)

	out, err := viz.Plot(signals, meta.Labels, plotWidth, plotHeight)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	path := outFile
	if path == "" {
		path = args[0] + ".json"
	}
	if err := st.ExportFixture(args[0], path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	return viz.RunLive(cfg.Diagram, cfg.Duration, func() (*diagram.Built, error) {
		return buildFromConfig(cfg)
	})
}

func listSchemes(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tORDER\tSTAGES\tNODES")
	for _, name := range solver.Names() {
		sch, err := solver.ByName(name)
		if err != nil {
			return err
		}
		nodes := make([]string, len(sch.C))
		for i, c := range sch.C {
			nodes[i] = strconv.FormatFloat(c, 'g', -1, 64)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
			sch.Name, sch.Order, sch.Stages, strings.Join(nodes, ","))
	}
	return w.Flush()
}
