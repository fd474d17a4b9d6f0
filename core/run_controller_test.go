package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/muonworks/tomography-simulator/model"
)

// fakeEngine records registrations and simulates a trivial run: one
// step per event with a constant deposit.
type fakeEngine struct {
	geometry GeometryBuilder
	source   VertexGenerator
	observer StepObserver
	listener func(int)

	initialized  bool
	eventsRun    int
	interp       *fakeInterpreter
	beamOnErr    error
	depositGeV   float64
	knownPhysics string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		interp:       &fakeInterpreter{},
		depositGeV:   0.5,
		knownPhysics: "FTFP_BERT",
	}
}

func (e *fakeEngine) RegisterGeometry(b GeometryBuilder)  { e.geometry = b }
func (e *fakeEngine) RegisterSource(g VertexGenerator)    { e.source = g }
func (e *fakeEngine) RegisterStepObserver(o StepObserver) { e.observer = o }
func (e *fakeEngine) RegisterEventListener(fn func(int))  { e.listener = fn }

func (e *fakeEngine) Initialize(physicsList string) error {
	if physicsList != e.knownPhysics {
		return fmt.Errorf("unknown physics list %q: %w", physicsList, ErrConfiguration)
	}
	if _, err := e.geometry.Build(); err != nil {
		return err
	}
	e.initialized = true
	return nil
}

func (e *fakeEngine) BeamOn(events int) error {
	if e.beamOnErr != nil {
		return e.beamOnErr
	}
	for i := 0; i < events; i++ {
		v := e.source.Generate(i)
		e.observer.OnStep(model.StepEvent{
			TrackID:            i + 1,
			PreStepPosition:    v.Position,
			DepositedEnergyGeV: e.depositGeV,
		})
		if e.listener != nil {
			e.listener(i + 1)
		}
	}
	e.eventsRun += events
	return nil
}

func (e *fakeEngine) Commands() CommandInterpreter {
	if e.interp == nil {
		return nil
	}
	return e.interp
}

type fakeInterpreter struct {
	executed []string
	fail     bool
}

func (fi *fakeInterpreter) Execute(command string) error {
	if fi.fail {
		return fmt.Errorf("interpreter rejected %q", command)
	}
	fi.executed = append(fi.executed, command)
	return nil
}

// countingObserver tallies step callbacks.
type countingObserver struct {
	steps int
}

func (o *countingObserver) OnStep(model.StepEvent) { o.steps++ }

func staticGeometry() GeometryBuilder {
	cfg := baseConfig()
	return NewDetectorBuilder(cfg, testMaterials())
}

func fixedSource(t *testing.T) VertexGenerator {
	t.Helper()
	src, err := NewSource(SourceConfig{PositionM: model.Point{Z: 2}})
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	return src
}

func TestRunController_BatchLifecycle(t *testing.T) {
	engine := newFakeEngine()
	obs := &countingObserver{}
	var progressed []int

	rc := NewRunController(engine, staticGeometry(), fixedSource(t), obs, "FTFP_BERT",
		WithEventListener(func(n int) { progressed = append(progressed, n) }))

	if rc.State() != StateUnconfigured {
		t.Fatalf("initial state = %v", rc.State())
	}
	if err := rc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if rc.State() != StateInitialized {
		t.Fatalf("state after init = %v", rc.State())
	}
	if !engine.initialized || engine.geometry == nil || engine.source == nil || engine.observer == nil {
		t.Fatalf("collaborators not registered with engine")
	}

	if err := rc.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rc.State() != StateCompleted {
		t.Errorf("state after run = %v, want completed", rc.State())
	}
	if obs.steps != 10 {
		t.Errorf("observer saw %d steps, want 10", obs.steps)
	}
	if len(progressed) != 10 || progressed[9] != 10 {
		t.Errorf("event listener calls = %v", progressed)
	}
}

func TestRunController_UnknownPhysicsAborts(t *testing.T) {
	engine := newFakeEngine()
	rc := NewRunController(engine, staticGeometry(), fixedSource(t), &countingObserver{}, "NOT_A_LIST")

	err := rc.Initialize(context.Background())
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Initialize err = %v, want ErrConfiguration", err)
	}
	if rc.State() != StateAborted {
		t.Errorf("state = %v, want aborted", rc.State())
	}
	if engine.eventsRun != 0 {
		t.Errorf("events ran after configuration failure: %d", engine.eventsRun)
	}
}

func TestRunController_GeometryFailureAborts(t *testing.T) {
	cfg := baseConfig()
	cfg.Defect = DefectConfig{Kind: DefectCenteredCylinder, RadiusM: 9, HeightM: 9}
	bad := NewDetectorBuilder(cfg, testMaterials())

	rc := NewRunController(newFakeEngine(), bad, fixedSource(t), &countingObserver{}, "FTFP_BERT")
	err := rc.Initialize(context.Background())
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Initialize err = %v, want ErrConfiguration", err)
	}
	if rc.State() != StateAborted {
		t.Errorf("state = %v, want aborted", rc.State())
	}
}

func TestRunController_RunBeforeInitialize(t *testing.T) {
	rc := NewRunController(newFakeEngine(), staticGeometry(), fixedSource(t), &countingObserver{}, "FTFP_BERT")
	if err := rc.Run(context.Background(), 5); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Run err = %v, want ErrConfiguration", err)
	}
}

func TestRunController_RejectsNonPositiveEventCount(t *testing.T) {
	rc := NewRunController(newFakeEngine(), staticGeometry(), fixedSource(t), &countingObserver{}, "FTFP_BERT")
	if err := rc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := rc.Run(context.Background(), 0); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Run(0) err = %v, want ErrConfiguration", err)
	}
}

func TestRunController_InteractiveIssuesVisSequence(t *testing.T) {
	engine := newFakeEngine()
	rc := NewRunController(engine, staticGeometry(), fixedSource(t), &countingObserver{}, "FTFP_BERT")
	if err := rc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	in := strings.NewReader("/vis/viewer/refresh\nexit\n")
	var out strings.Builder
	if err := rc.RunInteractive(context.Background(), 3, in, &out); err != nil {
		t.Fatalf("RunInteractive: %v", err)
	}

	want := append(append([]string{}, visSetupCommands...), "/vis/viewer/refresh")
	if len(engine.interp.executed) != len(want) {
		t.Fatalf("executed commands = %v, want %v", engine.interp.executed, want)
	}
	for i, cmd := range want {
		if engine.interp.executed[i] != cmd {
			t.Errorf("command %d = %q, want %q", i, engine.interp.executed[i], cmd)
		}
	}
	if engine.eventsRun != 3 {
		t.Errorf("events run = %d, want 3", engine.eventsRun)
	}
	if rc.State() != StateCompleted {
		t.Errorf("state = %v, want completed", rc.State())
	}
}

func TestRunController_InteractiveWithoutInterpreter(t *testing.T) {
	engine := newFakeEngine()
	engine.interp = nil
	rc := NewRunController(engine, staticGeometry(), fixedSource(t), &countingObserver{}, "FTFP_BERT")
	if err := rc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	err := rc.RunInteractive(context.Background(), 1, strings.NewReader(""), &strings.Builder{})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if rc.State() != StateAborted {
		t.Errorf("state = %v, want aborted", rc.State())
	}
}
