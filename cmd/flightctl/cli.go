package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/flightctl/flightctl/internal/api"
	"github.com/flightctl/flightctl/internal/config"
	"github.com/flightctl/flightctl/internal/database"
	"github.com/flightctl/flightctl/internal/dispatcher"
	"github.com/flightctl/flightctl/internal/handlers"
	"github.com/flightctl/flightctl/internal/logging"
	"github.com/flightctl/flightctl/internal/monitor"
	"github.com/flightctl/flightctl/internal/parser"
	"github.com/flightctl/flightctl/internal/scenario"
	"github.com/flightctl/flightctl/internal/sim"
	"github.com/flightctl/flightctl/internal/storage"
	"github.com/flightctl/flightctl/internal/worker"
	"github.com/flightctl/flightctl/pkg/core"
)

// ErrScenarioTimeout is returned by run when a scenario hit its tick cap.
var ErrScenarioTimeout = errors.New("scenario did not complete")

// stdout receives reports; tests swap it.
var stdout io.Writer = os.Stdout

// chainFlags are shared by run and sweep.
type chainFlags struct {
	scenarios []string
	file      string
	pilot     string
}

func (c *chainFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&c.scenarios, "scenario", "s", nil, "scenario names to fly in order (default: whole catalog)")
	fs.StringVarP(&c.file, "file", "f", "", "JSON file of scenarios added to the catalog")
	fs.StringVar(&c.pilot, "pilot", "", "pilot script flown in every selected scenario")
	fs.Int("max-ticks", 0, "tick cap per scenario")
	_ = viper.BindPFlag("harness.maxTicks", fs.Lookup("max-ticks"))
}

// loadCatalog returns the default catalog plus the scenarios in file.
func loadCatalog(file string) (*scenario.Catalog, error) {
	catalog := scenario.DefaultCatalog()
	if file == "" {
		file = config.GetHarnessConfig().ScenarioFile
	}
	if file != "" {
		if err := catalog.LoadFile(file); err != nil {
			return nil, err
		}
		Logger.Info("Loaded scenario file", "path", file, "scenarios", catalog.Len())
	}
	return catalog, nil
}

// buildChain selects the scenarios and attaches the pilot script, if any.
func (c *chainFlags) buildChain() (*scenario.Chain, error) {
	catalog, err := loadCatalog(c.file)
	if err != nil {
		return nil, err
	}
	selected, err := catalog.Select(c.scenarios...)
	if err != nil {
		return nil, err
	}
	if c.pilot != "" {
		cmds, err := parser.ParsePilotScriptFile(c.pilot)
		if err != nil {
			return nil, err
		}
		for i := range selected {
			selected[i].Pilot = append(append([]core.PilotCommand(nil), selected[i].Pilot...), cmds...)
		}
	}
	return scenario.NewChain(selected...), nil
}

func criteria() scenario.Criteria {
	h := config.GetHarnessConfig()
	return scenario.Criteria{
		CompletionAltitude: h.CompletionAltitude,
		VelocityTolerance:  h.VelocityTolerance,
		TrajectoryInterval: h.TrajectoryInterval,
	}
}

func runScenarios(ctx context.Context, args []string) error {
	var cf chainFlags
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	cf.register(fs)
	label := fs.String("label", "", "run label (default: defaultTag)")
	fs.String("storage", "", "storage backend: memory, sqlite, postgres, websocket, influx")
	_ = viper.BindPFlag("storage.type", fs.Lookup("storage"))
	fs.Bool("upload", false, "upload the exported recording to the results server")
	_ = viper.BindPFlag("api.upload", fs.Lookup("upload"))
	if err := fs.Parse(args); err != nil {
		return err
	}

	chain, err := cf.buildChain()
	if err != nil {
		return err
	}
	params, err := config.GetParams()
	if err != nil {
		return err
	}
	s := sim.New(config.GetSimConfig(), config.GetWorld(), params, Logger)

	storageCfg := config.GetStorageConfig()
	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	d, err := dispatcher.New(logging.NewDispatcherLogger(
		logging.NewZerolog(logSink(), config.GetString("logLevel"), "dispatcher")))
	if err != nil {
		return err
	}
	pilot := handlers.NewPilotService()
	pilot.Register(d)
	recording := handlers.NewRecordingService(backend, storageCfg.FrameInterval, Logger)
	recording.Register(d)
	s.Observe(recording.FrameObserver(d))

	if *label == "" {
		*label = config.GetString("defaultTag")
	}
	run := core.NewRun(*label, params.Gains.Parameters())
	if err := backend.StartRun(&run); err != nil {
		d.Close()
		return fmt.Errorf("failed to start run: %w", err)
	}
	MissionContext.SetRun(&run, chain.Len())
	Logger.Info("Run started", "runId", run.ID, "label", run.Label, "scenarios", chain.Len(), "storage", storageCfg.Type)

	mon := startMonitor(backend)

	runner, err := scenario.NewRunner(s,
		scenario.WithPilot(d, pilot),
		scenario.WithProgress(MissionContext),
		scenario.WithMaxTicks(config.GetHarnessConfig().MaxTicks),
		scenario.WithCriteria(criteria()),
		scenario.WithLogger(Logger),
		scenario.WithReporter(scenario.ReporterFunc(func(r core.ScenarioResult) {
			if err := recording.RecordResult(d, r); err != nil {
				Logger.Error("Failed to record result", "scenario", r.Name, "error", err)
			}
			fmt.Fprintln(stdout, scenario.FormatResult(r))
		})),
	)
	if err != nil {
		d.Close()
		mon.Stop()
		return err
	}

	start := time.Now()
	results, runErr := runner.Run(ctx, chain)
	d.Close()
	mon.Stop()
	if n := recording.Dropped(); n > 0 {
		Logger.Warn("Telemetry frames dropped", "count", n)
	}
	if l, ok := backend.(storage.Lossy); ok && l.Dropped() > 0 {
		Logger.Warn("Storage backend dropped records", "storage", storageCfg.Type, "count", l.Dropped())
	}
	if err := backend.EndRun(); err != nil {
		Logger.Error("Failed to end run", "error", err)
	}

	totals := scenario.Summarize(results)
	fmt.Fprintln(stdout, totals.String())
	Logger.Info("Run finished", "wall", time.Since(start), "completed", totals.Completed, "scenarios", totals.Scenarios)

	if config.GetBool("api.upload") {
		uploadRecording(ctx, backend)
	}

	if runErr != nil {
		return runErr
	}
	if !totals.AllCompleted() {
		return fmt.Errorf("%w: %d of %d timed out", ErrScenarioTimeout, totals.Scenarios-totals.Completed, totals.Scenarios)
	}
	return nil
}

// startMonitor runs the progress monitor, reporting DB writer stats when
// the backend batches writes.
func startMonitor(backend storage.Backend) *monitor.Service {
	deps := monitor.Dependencies{
		LogManager:     SlogManager,
		MissionContext: MissionContext,
		Interval:       config.GetDuration("monitor.interval"),
	}
	if LogFile != nil {
		deps.StatusFile = filepath.Join(config.GetString("logsDir"), AppName+".status.json")
	}
	if w, ok := backend.(monitor.WriterStats); ok {
		deps.Writer = w
	}
	mon := monitor.NewService(deps)
	if err := mon.Start(); err != nil {
		Logger.Warn("Failed to start monitor", "error", err)
	}
	return mon
}

// uploadRecording sends the exported file of an Uploadable backend to the
// results server. Failures are logged; the run itself already succeeded.
func uploadRecording(ctx context.Context, backend storage.Backend) {
	up, ok := backend.(storage.Uploadable)
	if !ok {
		Logger.Warn("Storage backend does not export a recording, skipping upload", "storage", config.GetString("storage.type"))
		return
	}
	path := up.GetExportedFilePath()
	if path == "" {
		Logger.Warn("No exported recording to upload")
		return
	}

	client := api.New(config.GetString("api.serverUrl"), config.GetString("api.apiKey"))
	if err := client.Healthcheck(ctx); err != nil {
		Logger.Warn("Results server is offline", "url", config.GetString("api.serverUrl"), "error", err)
		return
	}
	meta := up.GetExportMetadata()
	if meta.Tag == "" {
		meta.Tag = config.GetString("defaultTag")
	}
	if err := client.Upload(ctx, path, meta); err != nil {
		Logger.Error("Failed to upload recording", "path", path, "error", err)
		reportError("upload", err)
		return
	}
	Logger.Info("Uploaded recording", "path", path, "runId", meta.RunID)
}

func listScenarios(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	file := fs.StringP("file", "f", "", "JSON file of scenarios added to the catalog")
	if err := fs.Parse(args); err != nil {
		return err
	}
	catalog, err := loadCatalog(*file)
	if err != nil {
		return err
	}
	for _, sc := range catalog.Scenarios() {
		fmt.Fprintf(stdout, "%-22s %-9s pos=(%s, %s) vel=(%s, %s) angle=%.2f fingerprint=%016x\n",
			sc.Name, sc.Mode,
			scenario.LengthUnit(sc.Position.X()), scenario.LengthUnit(sc.Position.Y()),
			scenario.VelocityUnit(sc.Velocity.X()), scenario.VelocityUnit(sc.Velocity.Y()),
			sc.Angle, sc.Fingerprint())
	}
	return nil
}

func sweepSafety(ctx context.Context, args []string) error {
	var cf chainFlags
	fs := pflag.NewFlagSet("sweep", pflag.ContinueOnError)
	cf.register(fs)
	safety := fs.String("safety", "1.0,1.25,1.5", "comma separated LAND safety factors")
	fs.Int("parallel", 0, "variants flown at once")
	_ = viper.BindPFlag("sweep.parallelism", fs.Lookup("parallel"))
	if err := fs.Parse(args); err != nil {
		return err
	}

	factors, err := worker.ParseFactors(*safety)
	if err != nil {
		return err
	}
	if len(factors) == 0 {
		return errors.New("no safety factors given")
	}
	chain, err := cf.buildChain()
	if err != nil {
		return err
	}
	params, err := config.GetParams()
	if err != nil {
		return err
	}

	m := worker.NewManager(worker.Dependencies{
		LogManager:  SlogManager,
		SimConfig:   config.GetSimConfig(),
		World:       config.GetWorld(),
		Params:      params,
		Criteria:    criteria(),
		MaxTicks:    config.GetHarnessConfig().MaxTicks,
		Parallelism: config.GetInt("sweep.parallelism"),
	})
	report, err := m.Sweep(ctx, chain, worker.SafetyVariants(params.Gains, factors))
	if err != nil {
		return err
	}

	for _, v := range report.Variants {
		fmt.Fprintf(stdout, "%-14s %s (wall %s)\n", v.Name, v.Totals, v.Elapsed.Round(time.Millisecond))
	}
	sum := report.Summary
	fmt.Fprintf(stdout, "fuel %s ± %s, time %.2fs ± %.2fs (median %.2fs)\n",
		scenario.FuelUnit(sum.FuelMean), scenario.FuelUnit(sum.FuelStdDev),
		sum.TimeMean, sum.TimeStdDev, sum.TimeMedian)
	if sum.Best == "" {
		fmt.Fprintln(stdout, "no variant completed every scenario")
	} else {
		fmt.Fprintf(stdout, "best: %s\n", sum.Best)
	}
	return nil
}

// connectPostgres opens the results database. Unlike the storage backends
// it refuses the SQLite fallback.
func connectPostgres() (*database.Manager, error) {
	m := database.NewManager(logging.NewZerolog(logSink(), config.GetString("logLevel"), "database"))
	if err := m.Connect(); err != nil {
		return nil, err
	}
	if m.ShouldSaveLocal {
		_ = m.Close()
		return nil, fmt.Errorf("postgres unreachable at %s:%s", config.GetString("db.host"), config.GetString("db.port"))
	}
	return m, nil
}

func setupDB(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("setupdb", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := connectPostgres()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Setup(); err != nil {
		return err
	}
	if err := m.ValidateHypertables(database.Hypertables); err != nil {
		Logger.Warn("TimescaleDB hypertables not configured", "error", err)
	}
	Logger.Info("DB setup complete.")
	return nil
}

func migrateBackups(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("migrate-backups", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir := config.GetStorageConfig().SQLite.OutputDir
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}

	m, err := connectPostgres()
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Setup(); err != nil {
		return err
	}

	migrated, err := m.MigrateBackups(dir)
	for _, path := range migrated {
		fmt.Fprintf(stdout, "migrated %s\n", path)
	}
	if err != nil {
		return err
	}
	Logger.Info("Finished migrating backups.", "dir", dir, "count", len(migrated))
	return nil
}

func printVersion(ctx context.Context, args []string) error {
	fmt.Fprintf(stdout, "%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
	return nil
}
