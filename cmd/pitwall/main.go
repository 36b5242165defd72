// Package main provides the CLI entrypoint for pitwall.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gridbox/pitwall/internal/config"
	"github.com/gridbox/pitwall/internal/optimizer"
	"github.com/gridbox/pitwall/internal/race"
	"github.com/gridbox/pitwall/internal/sim"
	"github.com/gridbox/pitwall/internal/stats"
	"github.com/gridbox/pitwall/internal/trackdb"
	"github.com/gridbox/pitwall/internal/tui"
)

const (
	defaultLaps        = 53
	defaultRuns        = 2000
	defaultSeed        = 42
	defaultFuel        = 105.0
	defaultDownforce   = 0.5
	defaultRisk        = 0.2
	defaultHistorySize = 10
)

var (
	scenarioTrack       string
	scenarioLaps        int
	scenarioTemp        float64
	scenarioWeather     string
	scenarioSafetyCar   float64
	scenarioCompetitors int

	carDownforce   float64
	carPaceDelta   float64
	carInitialWear float64

	simPitLaps   string
	simCompounds string
	simModes     string
	simFuel      float64
	simRuns      int
	simSeed      int64
	simRisk      float64

	optimizeTUI bool
	optimizeTop int

	historyTrack string
	historyLast  int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pitwall",
		Short:         "Monte Carlo race strategy simulator",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newOptimizeCmd())
	rootCmd.AddCommand(newTracksCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scenarioTrack, "track", "", "track ID from the track database")
	cmd.Flags().IntVar(&scenarioLaps, "laps", defaultLaps, "race length in laps")
	cmd.Flags().Float64Var(&scenarioTemp, "temp", 25.0, "track temperature in Celsius")
	cmd.Flags().StringVar(&scenarioWeather, "weather", "dry", "weather: dry, mixed, light_rain, heavy_rain")
	cmd.Flags().Float64Var(&scenarioSafetyCar, "safety-car", 0.015, "per-lap safety car probability")
	cmd.Flags().IntVar(&scenarioCompetitors, "competitors", 19, "number of competitor cars")
	cmd.Flags().Float64Var(&carDownforce, "downforce", defaultDownforce, "aero setup (0-1)")
	cmd.Flags().Float64Var(&carPaceDelta, "pace-delta", 0.0, "car pace vs field median, seconds per lap")
	cmd.Flags().Float64Var(&carInitialWear, "initial-wear", 0.0, "tire wear at the start (0-1)")
	cmd.Flags().IntVar(&simRuns, "runs", defaultRuns, "Monte Carlo runs per strategy")
	cmd.Flags().Int64Var(&simSeed, "seed", defaultSeed, "random seed")
	cmd.Flags().Float64Var(&simRisk, "risk", defaultRisk, "risk tolerance for utility (0-1)")
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Evaluate one pit strategy",
		Args:  cobra.NoArgs,
		RunE:  runSimulateCmd,
	}
	addScenarioFlags(cmd)
	cmd.Flags().StringVar(&simPitLaps, "pit-laps", "", "comma-separated pit laps, e.g. 18,40")
	cmd.Flags().StringVar(&simCompounds, "compounds", "M,H", "comma-separated stint compounds, e.g. M,H")
	cmd.Flags().StringVar(&simModes, "modes", "", "comma-separated engine modes per stint")
	cmd.Flags().Float64Var(&simFuel, "fuel", defaultFuel, "starting fuel in kg")
	return cmd
}

func runSimulateCmd(cmd *cobra.Command, _ []string) error {
	scenario, db, err := loadScenario(cmd)
	if err != nil {
		return err
	}
	defer closeDB(db)

	pitLaps, err := parsePitLaps(simPitLaps)
	if err != nil {
		return err
	}
	compounds, err := parseCompounds(simCompounds)
	if err != nil {
		return err
	}
	modes, err := parseModes(simModes)
	if err != nil {
		return err
	}
	name := strategyName(pitLaps, compounds, simFuel)
	strategy, err := race.NewStrategy(name, pitLaps, compounds, simFuel, modes, scenario.cfg)
	if err != nil {
		return err
	}

	simulator, err := sim.New(scenario.conditions, scenario.car, scenario.cfg)
	if err != nil {
		return err
	}
	results, err := simulator.Simulate(strategy)
	if err != nil {
		return err
	}
	eval := stats.NewEvaluation(results)
	if err := stats.RenderSummary(cmd.OutOrStdout(), strategy.Name, eval, 0); err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}

	recordRun(db, scenario, strategy.Name, eval)
	return nil
}

func newOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Rank candidate strategies for a scenario",
		Args:  cobra.NoArgs,
		RunE:  runOptimizeCmd,
	}
	addScenarioFlags(cmd)
	cmd.Flags().BoolVar(&optimizeTUI, "tui", false, "browse the ranking interactively")
	cmd.Flags().IntVar(&optimizeTop, "top", 10, "number of ranked strategies to print")
	return cmd
}

func runOptimizeCmd(cmd *cobra.Command, _ []string) error {
	scenario, db, err := loadScenario(cmd)
	if err != nil {
		return err
	}
	defer closeDB(db)

	simulator, err := sim.New(scenario.conditions, scenario.car, scenario.cfg)
	if err != nil {
		return err
	}
	res, err := optimizer.Optimize(context.Background(), simulator, optimizer.Options{
		RiskTolerance: scenario.risk,
	})
	if err != nil {
		return err
	}

	if optimizeTUI {
		model := tui.NewModel(scenario.conditions, res)
		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
	} else {
		rows := make([]stats.RankingRow, 0, len(res.Ranked))
		for i, c := range res.Ranked {
			if optimizeTop > 0 && i >= optimizeTop {
				break
			}
			rows = append(rows, stats.RankingRow{
				Strategy: c.Strategy.Name,
				Utility:  c.Utility,
				Summary:  c.Evaluation.Summary(),
			})
		}
		if err := stats.RenderRanking(cmd.OutOrStdout(), rows); err != nil {
			return fmt.Errorf("failed to render ranking: %w", err)
		}
		for _, skip := range res.Skipped {
			logErrf("skipped %s: %s\n", skip.Strategy, skip.Reason)
		}
	}

	best := res.Ranked[0]
	recordRun(db, scenario, best.Strategy.Name, best.Evaluation)
	return nil
}

func newTracksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "List known tracks",
		Args:  cobra.NoArgs,
		RunE:  runTracksCmd,
	}
	cmd.AddCommand(newTracksImportCmd())
	return cmd
}

func runTracksCmd(cmd *cobra.Command, _ []string) error {
	db, err := trackdb.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeDB(db)

	tracks, err := db.ListTracks(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}
	if len(tracks) == 0 {
		logErrln("No tracks found. Import with: pitwall tracks import <dir>")
		return fmt.Errorf("track database is empty")
	}
	for _, t := range tracks {
		cfg := t.TrackConfig()
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-28s %5.3fkm  lap %6.1fs  pit %5.1fs\n",
			t.ID, t.Name, cfg.LapLengthKM, cfg.BaseLapTime, cfg.PitLossTime); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newTracksImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Import tracks from a timing export directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runTracksImportCmd,
	}
}

func runTracksImportCmd(cmd *cobra.Command, args []string) error {
	db, err := trackdb.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeDB(db)

	n, err := trackdb.ImportDir(context.Background(), db, args[0])
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tracks\n", n); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent strategy evaluations",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyTrack, "track", "", "track filter")
	cmd.Flags().IntVar(&historyLast, "last", defaultHistorySize, "number of entries")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	db, err := trackdb.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeDB(db)

	runs, err := db.ListRuns(context.Background(), historyTrack, historyLast)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		return fmt.Errorf("no evaluations recorded yet")
	}
	for _, r := range runs {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s  %-12s %3d laps  %-28s runs=%d seed=%d  win=%.1f%% dnf=%.1f%% u=%.4f\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"), r.TrackID, r.RaceLaps, r.Strategy,
			r.NumRuns, r.Seed, r.WinProb*100, r.DNFProb*100, r.Utility); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// scenario bundles everything a simulation entry point needs.
type scenario struct {
	conditions race.Conditions
	car        race.CarSetup
	cfg        race.SimConfig
	risk       float64
}

// loadScenario merges flags with the TOML config, resolves the track
// from the database and validates the assembled scenario. The returned
// DB handle stays open for history writes.
func loadScenario(cmd *cobra.Command) (scenario, *trackdb.DB, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return scenario{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "track", &scenarioTrack, fileCfg.Conditions.Track)
	applyIntConfig(cmd, "laps", &scenarioLaps, fileCfg.Conditions.Laps)
	applyFloatConfig(cmd, "temp", &scenarioTemp, fileCfg.Conditions.TrackTemp)
	applyStringConfig(cmd, "weather", &scenarioWeather, fileCfg.Conditions.Weather)
	applyFloatConfig(cmd, "safety-car", &scenarioSafetyCar, fileCfg.Conditions.SafetyCarProb)
	applyIntConfig(cmd, "competitors", &scenarioCompetitors, fileCfg.Conditions.Competitors)
	applyFloatConfig(cmd, "downforce", &carDownforce, fileCfg.Car.Downforce)
	applyFloatConfig(cmd, "pace-delta", &carPaceDelta, fileCfg.Car.PaceDelta)
	applyFloatConfig(cmd, "initial-wear", &carInitialWear, fileCfg.Car.InitialWear)
	applyIntConfig(cmd, "runs", &simRuns, fileCfg.Simulation.Runs)
	applyInt64Config(cmd, "seed", &simSeed, fileCfg.Simulation.Seed)
	applyFloatConfig(cmd, "risk", &simRisk, fileCfg.Simulation.RiskTolerance)
	if cmd.Flags().Lookup("fuel") != nil {
		applyFloatConfig(cmd, "fuel", &simFuel, fileCfg.Car.FuelStart)
	}

	if scenarioTrack == "" {
		return scenario{}, nil, fmt.Errorf("--track is required (list with: pitwall tracks)")
	}

	db, err := trackdb.Open(config.DefaultDBPath())
	if err != nil {
		return scenario{}, nil, fmt.Errorf("failed to open db: %w", err)
	}
	record, err := db.Track(context.Background(), scenarioTrack)
	if err != nil {
		closeDB(db)
		return scenario{}, nil, err
	}

	weather, err := race.ParseWeather(scenarioWeather)
	if err != nil {
		closeDB(db)
		return scenario{}, nil, err
	}

	conditions := race.DefaultConditions(scenarioLaps, record.TrackConfig())
	conditions.TrackTemp = scenarioTemp
	conditions.Weather = weather
	conditions.SafetyCarProb = scenarioSafetyCar
	conditions.Competitors = scenarioCompetitors
	if fileCfg.Conditions.MinCompounds != nil {
		conditions.MinCompounds = *fileCfg.Conditions.MinCompounds
	}

	startCompound := race.Medium
	if fileCfg.Car.Compound != nil {
		startCompound, err = race.ParseCompound(*fileCfg.Car.Compound)
		if err != nil {
			closeDB(db)
			return scenario{}, nil, err
		}
	}
	car := race.CarSetup{
		Downforce:   carDownforce,
		FuelStart:   simFuel,
		Compound:    startCompound,
		InitialWear: carInitialWear,
		Performance: buildCarModel(fileCfg.Car),
	}
	s := scenario{
		conditions: conditions,
		car:        car,
		cfg:        race.DefaultSimConfig(simRuns, simSeed),
		risk:       simRisk,
	}
	if s.risk < 0 || s.risk > 1 {
		closeDB(db)
		return scenario{}, nil, fmt.Errorf("--risk must be between 0 and 1")
	}
	return s, db, nil
}

// buildCarModel returns the engineering model when reliability
// parameters are configured, otherwise the flat pace delta.
func buildCarModel(cfg config.CarConfig) race.Model {
	if cfg.Reliability == nil {
		return race.FlatOffset{Delta: carPaceDelta}
	}
	eng := race.Engineering{
		CarMass:     798,
		DriverMass:  75,
		MaxPower:    735,
		Drag:        0.90,
		Downforce:   carDownforce,
		Reliability: *cfg.Reliability,
	}
	if cfg.CarMass != nil {
		eng.CarMass = *cfg.CarMass
	}
	if cfg.DriverMass != nil {
		eng.DriverMass = *cfg.DriverMass
	}
	if cfg.MaxPower != nil {
		eng.MaxPower = *cfg.MaxPower
	}
	if cfg.Drag != nil {
		eng.Drag = *cfg.Drag
	}
	if cfg.MileageKM != nil {
		eng.MileageKM = *cfg.MileageKM
	}
	return eng
}

// recordRun persists an evaluation in the history table. Failures are
// logged, not fatal: the report already went to the user.
func recordRun(db *trackdb.DB, s scenario, strategyName string, eval *stats.Evaluation) {
	summary := eval.Summary()
	_, err := db.InsertRun(context.Background(), trackdb.RunRecord{
		TrackID:    s.conditions.Track.ID,
		RaceLaps:   s.conditions.RaceLaps,
		Strategy:   strategyName,
		NumRuns:    s.cfg.Runs,
		Seed:       s.cfg.Seed,
		MeanTime:   summary.MeanTime,
		StdTime:    summary.StdTime,
		WinProb:    summary.WinProb,
		PodiumProb: summary.PodiumProb,
		DNFProb:    summary.DNFProb,
		Utility:    eval.Utility(s.risk),
	})
	if err != nil {
		logErrf("failed to record run: %v\n", err)
	}
}

func parsePitLaps(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	laps := make([]int, 0, len(parts))
	for _, part := range parts {
		lap, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid --pit-laps value %q", part)
		}
		laps = append(laps, lap)
	}
	return laps, nil
}

func parseCompounds(s string) ([]race.Compound, error) {
	parts := strings.Split(s, ",")
	compounds := make([]race.Compound, 0, len(parts))
	for _, part := range parts {
		c, err := race.ParseCompound(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		compounds = append(compounds, c)
	}
	return compounds, nil
}

func parseModes(s string) ([]race.EngineMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	modes := make([]race.EngineMode, 0, len(parts))
	for _, part := range parts {
		m, err := race.ParseEngineMode(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

func strategyName(pitLaps []int, compounds []race.Compound, fuel float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dstop", len(pitLaps))
	for _, lap := range pitLaps {
		fmt.Fprintf(&b, "-L%d", lap)
	}
	b.WriteString("-")
	for _, c := range compounds {
		b.WriteString(c.Code())
	}
	fmt.Fprintf(&b, "-f%.0f", fuel)
	return b.String()
}

func closeDB(db *trackdb.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# pitwall configuration
# Uncomment a value to enable it. CLI flags override config values.

[conditions]
# track = "monza"         # Track ID (list with: pitwall tracks)
# laps = %d               # Race length in laps
# track-temp = 25.0       # Track temperature in Celsius
# weather = "dry"         # dry, mixed, light_rain, heavy_rain
# safety-car-prob = 0.015 # Per-lap safety car probability
# competitors = 19        # Number of competitor cars
# min-compounds = 2       # Distinct compounds required by the rules

[car]
# downforce = %.1f        # Aero setup (0-1)
# fuel-start = %.0f       # Starting fuel in kg
# pace-delta = 0.0        # Pace vs field median, seconds per lap
# initial-wear = 0.0      # Tire wear at the start (0-1)
# reliability = 0.97      # Set to switch to the engineering car model
# car-mass = 798.0        # kg without driver
# driver-mass = 75.0      # kg
# max-power = 735.0       # kW
# drag = 0.90             # Drag coefficient
# mileage-km = 0.0        # Distance on the current power unit

[simulation]
# runs = %d             # Monte Carlo runs per strategy
# seed = %d               # Random seed
# risk-tolerance = %.1f   # Utility risk appetite (0-1)
`,
		defaultLaps,
		defaultDownforce,
		defaultFuel,
		defaultRuns,
		defaultSeed,
		defaultRisk,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
