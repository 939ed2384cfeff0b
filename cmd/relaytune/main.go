package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/relaytune/internal/analysis"
	"github.com/san-kum/relaytune/internal/autotune"
	"github.com/san-kum/relaytune/internal/config"
	"github.com/san-kum/relaytune/internal/control"
	"github.com/san-kum/relaytune/internal/dynamo"
	"github.com/san-kum/relaytune/internal/experiment"
	"github.com/san-kum/relaytune/internal/optim"
	"github.com/san-kum/relaytune/internal/sim"
	"github.com/san-kum/relaytune/internal/store"
	"github.com/san-kum/relaytune/internal/tui"
)

var (
	logLevel  string
	logFormat string

	configFile  string
	preset      string
	integrator  string
	controlType string
	outputStep  float64
	noiseBand   float64
	lookback    time.Duration

	live     bool
	realtime bool
	speed    float64

	kp       float64
	ki       float64
	kd       float64
	setpoint float64
	duration time.Duration
	compare  bool
	export   string

	factors []float64
	metric  string
)

var log = logrus.StandardLogger()

func main() {
	rootCmd := &cobra.Command{
		Use:   "relaytune",
		Short: "relay feedback PID autotuning lab",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	tuneCmd := &cobra.Command{
		Use:   "tune [plant]",
		Short: "run a relay experiment and derive PID gains",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	addPlantFlags(tuneCmd)
	tuneCmd.Flags().BoolVar(&live, "live", false, "follow the experiment in a terminal UI")
	tuneCmd.Flags().BoolVar(&realtime, "realtime", false, "run against the wall clock instead of simulated time")
	tuneCmd.Flags().Float64Var(&speed, "speed", 1, "wall clock speed-up with --realtime")

	stepCmd := &cobra.Command{
		Use:   "step [plant]",
		Short: "closed-loop setpoint step with given or freshly tuned gains",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStep,
	}
	addPlantFlags(stepCmd)
	stepCmd.Flags().Float64Var(&kp, "kp", 0, "proportional gain")
	stepCmd.Flags().Float64Var(&ki, "ki", 0, "integral gain (1/s)")
	stepCmd.Flags().Float64Var(&kd, "kd", 0, "derivative gain (s)")
	stepCmd.Flags().Float64Var(&setpoint, "setpoint", config.DefaultSetpoint, "target process value")
	stepCmd.Flags().DurationVar(&duration, "time", config.DefaultDuration, "run duration")
	stepCmd.Flags().BoolVar(&compare, "compare", false, "tune, then compare PI and PID gains side by side")
	stepCmd.Flags().StringVar(&export, "export", "", "write the trace to stdout instead (json, csv)")

	refineCmd := &cobra.Command{
		Use:   "refine [plant]",
		Short: "tune, then grid search scaled gains in simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRefine,
	}
	addPlantFlags(refineCmd)
	refineCmd.Flags().Float64SliceVar(&factors, "factors", []float64{0.5, 0.75, 1, 1.25}, "scale factors tried for Kp and Ki")
	refineCmd.Flags().StringVar(&metric, "metric", "iae", "metric to minimise")

	presetsCmd := &cobra.Command{
		Use:   "presets [plant]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	rootCmd.AddCommand(tuneCmd, stepCmd, refineCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPlantFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (euler, rk4)")
	cmd.Flags().StringVar(&controlType, "control-type", config.DefaultControlType, "gain rule (pi, pid)")
	cmd.Flags().Float64Var(&outputStep, "output-step", autotune.DefaultOutputStep, "relay amplitude")
	cmd.Flags().Float64Var(&noiseBand, "noise-band", autotune.DefaultNoiseBand, "relay deadband around the setpoint")
	cmd.Flags().DurationVar(&lookback, "lookback", autotune.DefaultLookback, "peak detection lookback")
}

func setupLogging() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	switch logFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format: %s", logFormat)
	}
	return nil
}

// loadConfig layers defaults, preset, config file and explicitly set flags, in that order.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Plant.Model = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Plant.Model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Plant.Model))
		}
		cfg = p
	}

	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 && c.Plant.Model != args[0] {
			return nil, fmt.Errorf("config is for plant %s, not %s", c.Plant.Model, args[0])
		}
		cfg = c
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Plant.Integrator = integrator
	}
	if flags.Changed("control-type") {
		cfg.Autotune.ControlType = controlType
	}
	if flags.Changed("output-step") {
		cfg.Autotune.OutputStep = outputStep
	}
	if flags.Changed("noise-band") {
		cfg.Autotune.NoiseBand = noiseBand
	}
	if flags.Changed("lookback") {
		cfg.Autotune.Lookback = lookback
	}
	if flags.Lookup("kp") != nil {
		if flags.Changed("kp") {
			cfg.PID.Kp = kp
		}
		if flags.Changed("ki") {
			cfg.PID.Ki = ki
		}
		if flags.Changed("kd") {
			cfg.PID.Kd = kd
		}
		if flags.Changed("setpoint") {
			cfg.Run.Setpoint = setpoint
		}
		if flags.Changed("time") {
			cfg.Run.Duration = duration
		}
	}

	return cfg, cfg.Validate()
}

func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	var clock dynamo.Clock = dynamo.NewManualClock(time.Now())
	if realtime {
		clock = dynamo.NewScaledClock(speed)
	}
	exp, err := experiment.New(experiment.NewRegistry(), cfg, clock, log)
	if err != nil {
		return err
	}
	tuner, err := exp.Tuner()
	if err != nil {
		return err
	}

	var pv []float64
	tuner.AddObserver(dynamo.ObserverFunc(func(s dynamo.Sample) { pv = append(pv, s.PV) }))

	ctx, cancel := interruptible()
	defer cancel()

	var res *autotune.Result
	if live {
		res, err = tuneLive(ctx, cancel, cfg.Plant.Model, tuner)
	} else {
		res, err = tuner.Tune(ctx)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.RenderResult(cfg.Plant.Model, res))
	fmt.Fprintln(out, tui.Plot("process variable during relay experiment", pv))

	if p, err := analysis.DominantPeriod(pv, tuner.SampleTime()); err == nil {
		fmt.Fprintf(out, "\nspectral period %s (relay timing %s)\n", p, res.Pu)
	} else {
		log.WithError(err).Debug("spectral cross-check skipped")
	}
	return nil
}

// tuneLive runs the tuner on its own goroutine while a bubbletea program follows it.
func tuneLive(ctx context.Context, cancel context.CancelFunc, plant string, tuner *autotune.Autotuner) (*autotune.Result, error) {
	p := tea.NewProgram(tui.NewTuneModel(plant, cancel), tea.WithContext(ctx))
	tuner.AddObserver(tui.Forwarder{Program: p})

	// Logs would tear the UI.
	tuner.Logger = quietLogger()

	done := make(chan struct{})
	go func() {
		defer close(done)
		res, err := tuner.Tune(ctx)
		p.Send(tui.DoneMsg{Result: res, Err: err})
	}()

	final, err := p.Run()
	cancel()
	<-done
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return nil, err
	}
	m, ok := final.(tui.TuneModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model %T", final)
	}
	res, err := m.Result()
	if res == nil && err == nil {
		return nil, dynamo.Canceled(context.Canceled)
	}
	return res, err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	l.SetOutput(os.Stderr)
	return l
}

func runStep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()
	ctx, cancel := interruptible()
	defer cancel()

	if compare {
		return compareRules(ctx, cmd, reg, cfg)
	}

	gains := control.Gains{Kp: cfg.PID.Kp, Ki: cfg.PID.Ki, Kd: cfg.PID.Kd}
	if !cfg.HasGains() {
		res, err := tuneOffline(ctx, reg, cfg)
		if err != nil {
			return fmt.Errorf("no gains given and tuning failed: %w", err)
		}
		gains = res.Gains
		log.WithFields(logrus.Fields{"kp": gains.Kp, "ki": gains.Ki, "kd": gains.Kd}).Info("using tuned gains")
	}

	exp, err := experiment.New(reg, cfg, dynamo.NewManualClock(time.Now()), log)
	if err != nil {
		return err
	}
	trace, err := exp.Step(ctx, gains)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if export != "" {
		data := store.NewExportData(cfg.Plant.Model, cfg.Plant.Integrator, cfg.Run.Setpoint, cfg.Run.SampleTime.Seconds(), gains, trace)
		switch export {
		case "json":
			return store.ExportJSON(out, data)
		case "csv":
			return store.ExportCSV(out, data)
		default:
			return fmt.Errorf("unknown export format: %s", export)
		}
	}

	title := fmt.Sprintf("step to %g · Kp %.3f Ki %.3f Kd %.3f", cfg.Run.Setpoint, gains.Kp, gains.Ki, gains.Kd)
	fmt.Fprintln(out, tui.RenderMetrics(title, trace.Metrics))
	fmt.Fprintln(out, tui.Plot("process variable", trace.PV, constant(cfg.Run.Setpoint, len(trace.PV))))
	fmt.Fprintln(out, tui.Plot("output", trace.Outputs))
	return nil
}

// tuneOffline runs a relay experiment on a simulated copy of the plant.
func tuneOffline(ctx context.Context, reg *experiment.Registry, cfg *config.Config) (*autotune.Result, error) {
	exp, err := experiment.New(reg, cfg, dynamo.NewManualClock(time.Now()), log)
	if err != nil {
		return nil, err
	}
	return exp.Tune(ctx)
}

func compareRules(ctx context.Context, cmd *cobra.Command, reg *experiment.Registry, cfg *config.Config) error {
	res, err := tuneOffline(ctx, reg, cfg)
	if err != nil {
		return err
	}

	rules := []autotune.ControlType{autotune.PI, autotune.PID}
	setups := make([]sim.Setup, len(rules))
	gains := make([]control.Gains, len(rules))
	for i, ct := range rules {
		g, err := autotune.GainsFor(res.Ku, res.Pu, ct)
		if err != nil {
			return err
		}
		gains[i] = g
		setups[i] = func() (*sim.Loop, sim.LoopConfig, error) {
			exp, err := experiment.New(reg, cfg, dynamo.NewManualClock(time.Now()), log)
			if err != nil {
				return nil, sim.LoopConfig{}, err
			}
			return exp.Loop(g)
		}
	}

	traces, err := sim.RunEnsemble(ctx, setups)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, ct := range rules {
		g := gains[i]
		title := fmt.Sprintf("%s · Kp %.3f Ki %.3f Kd %.3f", ct, g.Kp, g.Ki, g.Kd)
		fmt.Fprintln(out, tui.RenderMetrics(title, traces[i].Metrics))
	}
	fmt.Fprintln(out, tui.Plot("process variable (PI, PID)", traces[0].PV, traces[1].PV))
	return nil
}

func runRefine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()
	ctx, cancel := interruptible()
	defer cancel()

	res, err := tuneOffline(ctx, reg, cfg)
	if err != nil {
		return err
	}

	gs, err := optim.NewGridSearch([]string{"Kp", "Ki"}, [][]float64{factors, factors})
	if err != nil {
		return err
	}
	build := func(g control.Gains) (*sim.Loop, sim.LoopConfig, error) {
		exp, err := experiment.New(reg, cfg, dynamo.NewManualClock(time.Now()), log)
		if err != nil {
			return nil, sim.LoopConfig{}, err
		}
		return exp.Loop(g)
	}
	best, err := gs.Search(ctx, res.Gains, build, metric)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.RenderResult(cfg.Plant.Model, res))
	fmt.Fprintln(out, tui.RenderMetrics("refined gains", map[string]float64{
		"Kp":   best.Gains.Kp,
		"Ki":   best.Gains.Ki,
		"Kd":   best.Gains.Kd,
		metric: best.Score,
	}))
	return nil
}

func constant(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func listPresets(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	plants := experiment.NewRegistry().ListPlants()
	if len(args) > 0 {
		plants = args
	}
	for _, plant := range plants {
		presets := config.ListPresets(plant)
		if len(presets) == 0 {
			fmt.Fprintf(out, "no presets for plant: %s\n", plant)
			continue
		}
		fmt.Fprintf(out, "presets for %s:\n", plant)
		for _, p := range presets {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}
	return nil
}
