package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/muonworks/tomography-simulator/core"
	"github.com/muonworks/tomography-simulator/internal/logging"
	"github.com/muonworks/tomography-simulator/internal/observability"
	"github.com/muonworks/tomography-simulator/internal/progress"
	"github.com/muonworks/tomography-simulator/internal/transport"
	"github.com/muonworks/tomography-simulator/materials"
)

func main() {
	scenarioPath := flag.String("scenario", "configs/run_scenario.json", "Path to a JSON run scenario")
	events := flag.Int("events", 0, "Override the scenario's event count")
	out := flag.String("out", "", "Override the deposit log path")
	interactive := flag.Bool("interactive", false, "Run interactively with the visualization interpreter")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (disabled when empty)")
	progressEvery := flag.Int("progress-every", 0, "Log progress every N completed events (0 = a tenth of the batch)")
	flag.Parse()

	ctx, log := logging.WithRunLogger(context.Background(), logging.NewFromEnv())

	if err := run(ctx, log, *scenarioPath, *events, *out, *interactive, *metricsAddr, *progressEvery); err != nil {
		log.Error(ctx, "simulation failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, log logging.Logger, scenarioPath string,
	events int, out string, interactive bool, metricsAddr string, progressEvery int) error {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("initialise tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	f, err := os.Open(scenarioPath)
	if err != nil {
		return fmt.Errorf("open run scenario %q: %v: %w", scenarioPath, err, core.ErrConfiguration)
	}
	scenario, err := core.LoadRunScenario(f)
	f.Close()
	if err != nil {
		return err
	}

	if events > 0 {
		scenario.Events = events
	}
	if out != "" {
		scenario.Recorder.Path = out
	}
	if interactive {
		scenario.Interactive = true
	}

	collector, err := observability.NewRunCollector(nil)
	if err != nil {
		return fmt.Errorf("initialise metrics collector: %w", err)
	}
	metricsSrv := serveMetrics(metricsAddr, collector, log)
	if metricsSrv != nil {
		defer metricsSrv.Close()
	}

	db := materials.NewStandardDatabase()
	builder := core.NewDetectorBuilder(scenario.Detector, db)

	source, err := core.NewSource(scenario.Source)
	if err != nil {
		return err
	}

	// The deposit log must be writable before the engine sees a single event.
	recorder, err := core.NewStepRecorder(scenario.Recorder, core.WithRecorderMetrics(collector))
	if err != nil {
		return err
	}
	defer recorder.Close()

	reporter := progress.NewReporter(log, scenario.Events, progressEvery)
	controller := core.NewRunController(
		transport.New(log),
		builder, source, recorder,
		scenario.PhysicsList,
		core.WithLogger(log),
		core.WithEventListener(reporter.OnEvent),
		core.WithEventListener(collector.EventCompleted),
	)

	if err := controller.Initialize(ctx); err != nil {
		return err
	}

	// Build is deterministic; a second construction sizes the gauge.
	if world, err := builder.Build(); err == nil {
		collector.SetGeometryVolumes(world.CountVolumes())
	}

	log.Info(ctx, "starting run",
		logging.Int("events", scenario.Events),
		logging.String("physics_list", scenario.PhysicsList),
		logging.String("deposit_log", scenario.Recorder.Path),
		logging.Any("interactive", scenario.Interactive),
	)

	if scenario.Interactive {
		err = controller.RunInteractive(ctx, scenario.Events, os.Stdin, os.Stdout)
	} else {
		err = controller.Run(ctx, scenario.Events)
	}
	if err != nil {
		return err
	}

	if err := recorder.Close(); err != nil {
		return fmt.Errorf("close deposit log: %w", err)
	}
	log.Info(ctx, "run finished", logging.String("state", controller.State().String()))
	return nil
}

func serveMetrics(addr string, collector *observability.RunCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
