package core

import "github.com/muonworks/tomography-simulator/model"

// GeometryBuilder constructs the detector volume tree. The engine calls
// Build exactly once, before the first event.
type GeometryBuilder interface {
	Build() (*model.Volume, error)
}

// VertexGenerator produces one primary vertex per event. Generation
// never fails after construction and has no notion of exhaustion.
type VertexGenerator interface {
	Generate(eventIndex int) model.PrimaryVertex
}

// StepObserver receives one callback per physical step, in the order
// the engine delivers steps.
type StepObserver interface {
	OnStep(ev model.StepEvent)
}

// CommandInterpreter is the engine's small textual command surface for
// visualization (open a viewer, draw the geometry, and so on). Engines
// without a visualization subsystem return nil from Commands.
type CommandInterpreter interface {
	Execute(command string) error
}

// MaterialResolver looks up a material by symbolic name. Unknown names
// must fail with an error wrapping ErrConfiguration.
type MaterialResolver interface {
	Resolve(name string) (*model.Material, error)
}

// Engine is the capability surface of the external transport engine as
// seen by this harness. The engine owns the stepping loop: after
// Initialize, BeamOn drives the registered collaborators strictly
// sequentially — geometry once, one vertex per event, one observer
// callback per step.
type Engine interface {
	RegisterGeometry(b GeometryBuilder)
	RegisterSource(g VertexGenerator)
	RegisterStepObserver(o StepObserver)

	// RegisterEventListener registers a hook invoked once after each
	// completed event with the number of events completed so far.
	RegisterEventListener(fn func(completed int))

	// Initialize selects the named reference physics configuration and
	// builds the registered geometry. An unrecognized name fails with
	// an error wrapping ErrConfiguration before any event runs.
	Initialize(physicsList string) error

	// BeamOn runs a batch of events.
	BeamOn(events int) error

	// Commands returns the visualization interpreter, or nil when the
	// engine has none.
	Commands() CommandInterpreter
}
