// Package transport provides a reference implementation of the
// core.Engine capability surface: a deliberately simple straight-line
// stepper with a MIP-like continuous energy-loss model. It exists so
// the harness can run and be tested end to end without the real
// physics library; it models no interactions, scattering, or
// secondaries.
package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/muonworks/tomography-simulator/core"
	"github.com/muonworks/tomography-simulator/internal/logging"
	"github.com/muonworks/tomography-simulator/model"
)

// mipStoppingPowerGeV is the minimum-ionizing stopping power used for
// every material, in GeV cm^2/g (~2 MeV cm^2/g).
const mipStoppingPowerGeV = 2e-3

// cmPerM converts the stopping power's cm-based mass thickness to the
// metre-based step lengths used everywhere else.
const cmPerM = 100

// vacuumDensityCutoffGCm3 is the density below which a medium deposits
// exactly nothing. Keeps cavity steps at a deposit of zero rather than
// a denormal-sized one.
const vacuumDensityCutoffGCm3 = 1e-6

// physicsParams is what a named reference physics configuration means
// to this engine: just a stepping granularity.
type physicsParams struct {
	maxStepM float64
}

var physicsCatalog = map[string]physicsParams{
	"FTFP_BERT":    {maxStepM: 0.05},
	"FTFP_BERT_HP": {maxStepM: 0.02},
	"QGSP_BERT":    {maxStepM: 0.05},
	"QGSP_BIC":     {maxStepM: 0.04},
}

// Engine is the reference transport engine. It owns the stepping loop:
// geometry is built once at Initialize, and BeamOn drives the
// registered collaborators strictly sequentially.
type Engine struct {
	log logging.Logger

	geometry       core.GeometryBuilder
	source         core.VertexGenerator
	observer       core.StepObserver
	eventListeners []func(completed int)

	world       *model.Volume
	params      physicsParams
	initialized bool
}

// New constructs an engine. A nil logger is replaced with a noop one.
func New(log logging.Logger) *Engine {
	if log == nil {
		log = logging.Noop()
	}
	return &Engine{log: log}
}

// RegisterGeometry implements core.Engine.
func (e *Engine) RegisterGeometry(b core.GeometryBuilder) { e.geometry = b }

// RegisterSource implements core.Engine.
func (e *Engine) RegisterSource(g core.VertexGenerator) { e.source = g }

// RegisterStepObserver implements core.Engine.
func (e *Engine) RegisterStepObserver(o core.StepObserver) { e.observer = o }

// RegisterEventListener implements core.Engine.
func (e *Engine) RegisterEventListener(fn func(completed int)) {
	if fn != nil {
		e.eventListeners = append(e.eventListeners, fn)
	}
}

// Initialize resolves the named physics configuration and builds the
// registered geometry exactly once.
func (e *Engine) Initialize(physicsList string) error {
	params, ok := physicsCatalog[physicsList]
	if !ok {
		return fmt.Errorf("unknown physics list %q: %w", physicsList, core.ErrConfiguration)
	}
	if e.geometry == nil || e.source == nil || e.observer == nil {
		return fmt.Errorf("engine missing a registered collaborator: %w", core.ErrConfiguration)
	}

	world, err := e.geometry.Build()
	if err != nil {
		return err
	}

	e.world = world
	e.params = params
	e.initialized = true
	e.log.Info(context.Background(), "transport engine initialized",
		logging.String("physics_list", physicsList),
		logging.Int("volumes", world.CountVolumes()))
	return nil
}

// BeamOn runs a batch of events. Each event asks the vertex generator
// for a primary, propagates it, and invokes the step observer once per
// step in order.
func (e *Engine) BeamOn(events int) error {
	if !e.initialized {
		return fmt.Errorf("beam on before initialize: %w", core.ErrConfiguration)
	}
	for i := 0; i < events; i++ {
		vertex := e.source.Generate(i)
		e.propagate(i+1, vertex)
		for _, fn := range e.eventListeners {
			fn(i + 1)
		}
	}
	return nil
}

// Commands implements core.Engine with a logging stub interpreter.
func (e *Engine) Commands() core.CommandInterpreter {
	return &visInterpreter{log: e.log}
}

// propagate advances the primary in fixed straight-line steps until it
// leaves the world or its kinetic energy is exhausted. The observer
// sees every step, including zero-deposit ones; filtering is the
// recorder's job.
func (e *Engine) propagate(trackID int, vertex model.PrimaryVertex) {
	pos := core.VecOf(vertex.Position)
	dir := core.VecOf(vertex.Direction).Normalize()
	if dir.Norm() == 0 {
		return
	}
	energy := vertex.KineticEnergyGeV

	for energy > 0 && core.ShapeContains(e.world.Shape, pos.Point()) {
		mat := e.materialAt(pos.Point())

		deposit := 0.0
		if mat != nil && mat.DensityGCm3 > vacuumDensityCutoffGCm3 {
			deposit = mipStoppingPowerGeV * mat.DensityGCm3 * cmPerM * e.params.maxStepM
			if deposit > energy {
				deposit = energy
			}
		}

		e.observer.OnStep(model.StepEvent{
			TrackID:            trackID,
			PreStepPosition:    pos.Point(),
			DepositedEnergyGeV: deposit,
		})

		energy -= deposit
		pos = pos.Add(dir.Scale(e.params.maxStepM))
	}
}

// materialAt returns the material of the deepest volume containing the
// world-frame point, or nil when the point is outside the world.
func (e *Engine) materialAt(p model.Point) *model.Material {
	return locate(e.world, p)
}

func locate(v *model.Volume, local model.Point) *model.Material {
	if !core.ShapeContains(v.Shape, local) {
		return nil
	}
	for _, child := range v.Children {
		childLocal := model.Point{
			X: local.X - child.Placement.X,
			Y: local.Y - child.Placement.Y,
			Z: local.Z - child.Placement.Z,
		}
		if m := locate(child, childLocal); m != nil {
			return m
		}
	}
	return v.Material
}

// visInterpreter acknowledges /vis commands without rendering anything.
type visInterpreter struct {
	log logging.Logger
}

// Execute implements core.CommandInterpreter.
func (vi *visInterpreter) Execute(command string) error {
	if !strings.HasPrefix(command, "/") {
		return fmt.Errorf("unrecognized command %q", command)
	}
	vi.log.Info(context.Background(), "vis command", logging.String("command", command))
	return nil
}
