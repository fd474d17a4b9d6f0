package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/muonworks/tomography-simulator/internal/logging"
)

// RunState tracks the controller lifecycle. Completed and Aborted are
// terminal.
type RunState int

const (
	StateUnconfigured RunState = iota
	StateInitialized
	StateRunning
	StateCompleted
	StateAborted
)

func (s RunState) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// visSetupCommands is the fixed drawing/display sequence issued before
// an interactive batch: open a viewer, draw the geometry, enable
// auto-refresh, and accumulate trajectories.
var visSetupCommands = []string{
	"/vis/open",
	"/vis/drawVolume",
	"/vis/viewer/set/autoRefresh true",
	"/vis/scene/add/trajectories",
}

// RunController wires the geometry builder, vertex generator and step
// observer into the transport engine, selects a named physics
// configuration, and drives a batch or interactive run. The engine owns
// the stepping loop; the controller only transfers control.
type RunController struct {
	engine      Engine
	geometry    GeometryBuilder
	source      VertexGenerator
	observer    StepObserver
	physicsList string

	log            logging.Logger
	tracer         trace.Tracer
	eventListeners []func(completed int)

	state RunState
}

// ControllerOption customises a RunController.
type ControllerOption func(*RunController)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) ControllerOption {
	return func(rc *RunController) {
		if log != nil {
			rc.log = log
		}
	}
}

// WithEventListener registers a hook invoked once per completed event.
// Used for progress reporting and run metrics.
func WithEventListener(fn func(completed int)) ControllerOption {
	return func(rc *RunController) {
		if fn != nil {
			rc.eventListeners = append(rc.eventListeners, fn)
		}
	}
}

// NewRunController composes the three collaborators around an engine
// handle. Nothing touches the engine until Initialize.
func NewRunController(engine Engine, geometry GeometryBuilder, source VertexGenerator,
	observer StepObserver, physicsList string, opts ...ControllerOption) *RunController {
	rc := &RunController{
		engine:      engine,
		geometry:    geometry,
		source:      source,
		observer:    observer,
		physicsList: physicsList,
		log:         logging.Noop(),
		tracer:      otel.Tracer("github.com/muonworks/tomography-simulator/core"),
		state:       StateUnconfigured,
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// State returns the current lifecycle state.
func (rc *RunController) State() RunState { return rc.state }

// Initialize registers the collaborators with the engine and selects
// the physics configuration. An unrecognized physics name (or any
// geometry failure inside the engine) aborts before any event runs.
func (rc *RunController) Initialize(ctx context.Context) error {
	if rc.state != StateUnconfigured {
		return fmt.Errorf("initialize from state %q: %w", rc.state, ErrConfiguration)
	}
	if rc.engine == nil || rc.geometry == nil || rc.source == nil || rc.observer == nil {
		rc.state = StateAborted
		return fmt.Errorf("run controller missing a collaborator: %w", ErrConfiguration)
	}

	ctx, span := rc.tracer.Start(ctx, "simulator.initialize",
		trace.WithAttributes(attribute.String("physics_list", rc.physicsList)))
	defer span.End()

	rc.engine.RegisterGeometry(rc.geometry)
	rc.engine.RegisterSource(rc.source)
	rc.engine.RegisterStepObserver(rc.observer)
	for _, fn := range rc.eventListeners {
		rc.engine.RegisterEventListener(fn)
	}

	if err := rc.engine.Initialize(rc.physicsList); err != nil {
		rc.state = StateAborted
		span.SetStatus(codes.Error, err.Error())
		rc.log.Error(ctx, "engine initialization failed",
			logging.String("physics_list", rc.physicsList),
			logging.String("error", err.Error()))
		return err
	}

	rc.state = StateInitialized
	rc.log.Info(ctx, "engine initialized", logging.String("physics_list", rc.physicsList))
	return nil
}

// Run drives a fixed batch of events with no interactive control.
func (rc *RunController) Run(ctx context.Context, events int) error {
	if err := rc.beamOn(ctx, events); err != nil {
		return err
	}
	rc.state = StateCompleted
	return nil
}

// RunInteractive enables the engine's visualization subsystem, issues
// the fixed drawing sequence, runs the batch, and then forwards user
// commands from in until EOF or an exit command.
func (rc *RunController) RunInteractive(ctx context.Context, events int, in io.Reader, out io.Writer) error {
	interp := rc.engine.Commands()
	if interp == nil {
		rc.state = StateAborted
		return fmt.Errorf("engine has no visualization interpreter: %w", ErrConfiguration)
	}

	for _, cmd := range visSetupCommands {
		if err := interp.Execute(cmd); err != nil {
			rc.state = StateAborted
			return fmt.Errorf("visualization setup %q: %w", cmd, err)
		}
	}

	if err := rc.beamOn(ctx, events); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "":
		case "exit", "quit":
			rc.state = StateCompleted
			return nil
		default:
			if err := interp.Execute(cmd); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
		fmt.Fprint(out, "> ")
	}

	rc.state = StateCompleted
	return scanner.Err()
}

func (rc *RunController) beamOn(ctx context.Context, events int) error {
	if rc.state != StateInitialized {
		return fmt.Errorf("run from state %q: %w", rc.state, ErrConfiguration)
	}
	if events <= 0 {
		rc.state = StateAborted
		return fmt.Errorf("event count %d must be positive: %w", events, ErrConfiguration)
	}

	ctx, span := rc.tracer.Start(ctx, "simulator.beam_on",
		trace.WithAttributes(
			attribute.Int("events", events),
			attribute.String("physics_list", rc.physicsList),
		))
	defer span.End()

	rc.state = StateRunning
	rc.log.Info(ctx, "beam on", logging.Int("events", events))

	if err := rc.engine.BeamOn(events); err != nil {
		rc.state = StateAborted
		span.SetStatus(codes.Error, err.Error())
		rc.log.Error(ctx, "run aborted", logging.String("error", err.Error()))
		return err
	}

	rc.log.Info(ctx, "run complete", logging.Int("events", events))
	return nil
}
