package model

// PrimaryVertex is the initial kinematic state of one simulated
// particle. It is produced once per event by a vertex generator and
// consumed immediately by the transport engine.
type PrimaryVertex struct {
	Position         Point  // world frame, metres
	Direction        Point  // unit vector
	Species          string // e.g. "mu-"
	KineticEnergyGeV float64
}

// StepEvent is the per-step callback payload delivered by the transport
// engine. It is read-only to the harness.
type StepEvent struct {
	TrackID            int
	PreStepPosition    Point // world frame, metres
	DepositedEnergyGeV float64
}
