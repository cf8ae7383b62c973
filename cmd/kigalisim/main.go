// Command kigalisim is the thin CLI front door onto the simulation
// engine (spec.md §6 "CLI surface (thin, out of core scope)"). The
// QubecTalk parser is out of scope; this binary reads the typed
// command-list JSON internal/scriptload understands and drives
// internal/scenario's worker pool to produce the pinned CSV output.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/kigalisim/internal/config"
	"github.com/example/kigalisim/internal/csvexport"
	"github.com/example/kigalisim/internal/db"
	"github.com/example/kigalisim/internal/engine"
	"github.com/example/kigalisim/internal/logging"
	"github.com/example/kigalisim/internal/registry"
	"github.com/example/kigalisim/internal/reporting/scenariopdf"
	"github.com/example/kigalisim/internal/results"
	"github.com/example/kigalisim/internal/scenario"
	"github.com/example/kigalisim/internal/scriptload"
	"github.com/example/kigalisim/internal/telemetry"
)

// Exit codes, spec.md §6: 0 ok, 1 script error, 2 runtime error, 3 invalid args.
const (
	exitOK          = 0
	exitScriptError = 1
	exitRuntime     = 2
	exitInvalidArgs = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	bootLogger := logging.New(logging.Config{Level: slog.LevelInfo, Format: logging.FormatText, Output: os.Stderr})

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: kigalisim <run|validate> [flags] <script>")
		return exitInvalidArgs
	}

	switch args[0] {
	case "run":
		return runCommand(bootLogger, args[1:])
	case "validate":
		return validateCommand(bootLogger, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q; want \"run\" or \"validate\"\n", args[0])
		return exitInvalidArgs
	}
}

// runtime bundles the process-lifetime collaborators a subcommand
// needs: config, the real logger built from it, telemetry, and the
// optional substance registry. Built once per invocation and torn
// down via close().
type runtime struct {
	cfg       config.Config
	logger    *slog.Logger
	telemetry *telemetry.Provider
	registry  registry.Registry
	database  *db.DB
}

func buildRuntime(bootLogger *slog.Logger) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:       parseLevel(cfg.Logging.Level),
		Format:      logging.Format(cfg.Logging.Format),
		Output:      os.Stderr,
		Environment: cfg.Run.Env,
	})

	var provider *telemetry.Provider
	if cfg.Telemetry.Enabled {
		provider, err = telemetry.Setup(telemetry.Config{
			ServiceName:  "kigalisim",
			Environment:  cfg.Run.Env,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			Enabled:      true,
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("setup telemetry: %w", err)
		}
	}

	var database *db.DB
	var reg registry.Registry = registry.NewDefaultRegistry()
	if cfg.UsesPersistentRegistry() {
		database, err = db.Connect(context.Background(), db.Config{DSN: cfg.Registry.PostgresDSN})
		if err != nil {
			return nil, fmt.Errorf("connect substance registry database: %w", err)
		}
		if err := database.RunMigrations(context.Background()); err != nil {
			return nil, fmt.Errorf("migrate substance registry database: %w", err)
		}
		pgReg, err := registry.NewPostgresRegistry(context.Background(), registry.DefaultPostgresConfig(database.DB))
		if err != nil {
			return nil, fmt.Errorf("init postgres substance registry: %w", err)
		}
		reg = pgReg
		if cfg.UsesCachedRegistry() {
			// The Redis read-through cache (internal/registry.CachedRegistry)
			// only builds under -tags registry_redis, so it can't be wired
			// here unconditionally; a deployment that sets
			// KIGALISIM_REDIS_ADDR must also build with that tag and swap
			// this branch for a call into it. Plain Postgres is always correct,
			// just slower under heavy concurrent lookups.
			logger.Warn("redis cache configured but this binary was not built with -tags registry_redis; using postgres registry directly")
		}
	}

	return &runtime{cfg: cfg, logger: logger, telemetry: provider, registry: reg, database: database}, nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (rt *runtime) close() {
	if rt.telemetry != nil {
		_ = rt.telemetry.Shutdown(context.Background())
	}
	if closer, ok := rt.registry.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if rt.database != nil {
		_ = rt.database.Close()
	}
}

func runCommand(bootLogger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	scenarioName := fs.String("scenario", "", "run only the named scenario (default: all scenarios in the script)")
	output := fs.String("output", "", "CSV output path (default: from config, or \"-\" for stdout)")
	seed := fs.Int64("seed", 0, "base RNG seed folded into every (scenario, trial) draw (default: from config)")
	jobs := fs.Int("jobs", 0, "max concurrent (scenario, trial) runs (default: from config)")
	pdfPath := fs.String("pdf", "", "optional scenario-comparison PDF output path")
	useRegistryDefaults := fs.Bool("registry-defaults", false, "fill missing GWP/energy equals commands from the substance defaults registry")
	if err := fs.Parse(args); err != nil {
		return exitInvalidArgs
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: kigalisim run [flags] <script.json>")
		return exitInvalidArgs
	}
	scriptPath := fs.Arg(0)

	rt, err := buildRuntime(bootLogger)
	if err != nil {
		bootLogger.Error("failed to initialize runtime", "error", err)
		return exitRuntime
	}
	defer rt.close()
	logger := rt.logger

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	scenarios, err := scriptload.Load(scriptPath)
	if err != nil {
		logger.Error("script load failed", "error", err)
		return exitScriptError
	}

	if *useRegistryDefaults {
		scenarios, err = scriptload.ApplyRegistryDefaults(ctx, scenarios, rt.registry)
		if err != nil {
			logger.Error("applying registry defaults failed", "error", err)
			return exitScriptError
		}
	}

	if *scenarioName != "" {
		filtered := make([]scenario.Scenario, 0, 1)
		for _, s := range scenarios {
			if s.Name == *scenarioName {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) == 0 {
			logger.Error("no matching scenario", "scenario", *scenarioName)
			return exitScriptError
		}
		scenarios = filtered
	}

	baseSeed := rt.cfg.Run.DefaultSeed
	if *seed != 0 {
		baseSeed = *seed
	}
	maxConcurrency := rt.cfg.Run.WorkerPoolSize
	if *jobs > 0 {
		maxConcurrency = *jobs
	}

	runner := scenario.NewRunner(scenario.Config{
		MaxConcurrency:     maxConcurrency,
		Logger:             logger,
		BaseSeed:           baseSeed,
		PerScenarioTimeout: rt.cfg.Run.RunTimeout,
	})

	rows, err := runner.RunAll(ctx, scenarios)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrTimeout):
			logger.Error("run exceeded its wall-clock deadline", "error", err)
		case errors.Is(err, engine.ErrCancelled):
			logger.Error("run was cancelled", "error", err)
		default:
			logger.Error("run failed", "error", err)
		}
		return exitRuntime
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = rt.cfg.Run.DefaultOutputPath
	}
	if err := writeCSV(ctx, logger, outputPath, rows); err != nil {
		logger.Error("csv export failed", "error", err)
		return exitRuntime
	}

	if *pdfPath != "" {
		if err := writePDF(*pdfPath, rows); err != nil {
			logger.Error("pdf export failed", "error", err)
			return exitRuntime
		}
	}

	logger.Info("run complete", "rows", len(rows), "output", outputPath)
	return exitOK
}

func writeCSV(ctx context.Context, logger *slog.Logger, path string, rows []results.EngineResult) error {
	exporter := csvexport.New(logger)
	if path == "-" || path == "" {
		return exporter.Write(ctx, os.Stdout, rows)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return exporter.Write(ctx, f, rows)
}

func writePDF(path string, rows []results.EngineResult) error {
	summaries, err := scenariopdf.Summarize(rows)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return scenariopdf.Render(summaries, f)
}

func validateCommand(bootLogger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	useRegistryDefaults := fs.Bool("registry-defaults", false, "fill missing GWP/energy equals commands from the substance defaults registry before validating")
	if err := fs.Parse(args); err != nil {
		return exitInvalidArgs
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: kigalisim validate <script.json>")
		return exitInvalidArgs
	}
	scriptPath := fs.Arg(0)

	scriptErrs, err := scriptload.Validate(scriptPath)
	if err != nil {
		bootLogger.Error("validate failed", "error", err)
		return exitRuntime
	}
	if len(scriptErrs) > 0 {
		for _, se := range scriptErrs {
			fmt.Fprintln(os.Stderr, se.Error())
		}
		return exitScriptError
	}

	if *useRegistryDefaults {
		rt, err := buildRuntime(bootLogger)
		if err != nil {
			bootLogger.Error("failed to initialize runtime", "error", err)
			return exitRuntime
		}
		defer rt.close()

		scenarios, err := scriptload.Load(scriptPath)
		if err != nil {
			rt.logger.Error("script load failed", "error", err)
			return exitScriptError
		}
		if _, err := scriptload.ApplyRegistryDefaults(context.Background(), scenarios, rt.registry); err != nil {
			rt.logger.Error("registry defaults validation failed", "error", err)
			return exitScriptError
		}
	}

	bootLogger.Info("script is valid", "path", scriptPath)
	return exitOK
}
