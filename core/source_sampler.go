package core

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"

	"github.com/muonworks/tomography-simulator/model"
)

// SourcePolicy selects how primary vertices are sampled.
type SourcePolicy int

const (
	SourceFixedPoint SourcePolicy = iota
	SourceUniformArea
)

// SourceConfig describes the primary particle source. Direction,
// species and energy are configuration-time constants for both
// policies; only the position varies under SourceUniformArea.
type SourceConfig struct {
	Policy SourcePolicy

	// PositionM is the vertex position for SourceFixedPoint, or the
	// centre of the sampling rectangle (x/y) at height z for
	// SourceUniformArea.
	PositionM model.Point

	// Rectangle half-extents for SourceUniformArea. A zero extent on
	// either axis collapses that axis to the fixed centre coordinate.
	HalfWidthM float64
	HalfDepthM float64

	Direction model.Point // defaults to straight down (0, 0, -1)
	Species   string      // defaults to "mu-"
	EnergyGeV float64     // defaults to 4 GeV
}

// NewSource constructs a vertex generator for the configured policy.
// Stochastic sources are seeded from crypto/rand at construction, so
// sampled trajectories are not reproducible across processes.
func NewSource(cfg SourceConfig) (VertexGenerator, error) {
	if cfg.EnergyGeV == 0 {
		cfg.EnergyGeV = 4
	}
	if cfg.EnergyGeV <= 0 {
		return nil, fmt.Errorf("source energy %g GeV must be positive: %w", cfg.EnergyGeV, ErrConfiguration)
	}
	if cfg.Species == "" {
		cfg.Species = "mu-"
	}
	dir := VecOf(cfg.Direction)
	if dir.Norm() == 0 {
		dir = Vec3{Z: -1}
	}

	template := model.PrimaryVertex{
		Position:         cfg.PositionM,
		Direction:        dir.Normalize().Point(),
		Species:          cfg.Species,
		KineticEnergyGeV: cfg.EnergyGeV,
	}

	switch cfg.Policy {
	case SourceFixedPoint:
		return &FixedPointSource{vertex: template}, nil
	case SourceUniformArea:
		if cfg.HalfWidthM < 0 || cfg.HalfDepthM < 0 {
			return nil, fmt.Errorf("source rectangle half-extents (%g, %g) m must be non-negative: %w",
				cfg.HalfWidthM, cfg.HalfDepthM, ErrConfiguration)
		}
		return &UniformAreaSource{
			template:  template,
			centreX:   cfg.PositionM.X,
			centreY:   cfg.PositionM.Y,
			halfWidth: cfg.HalfWidthM,
			halfDepth: cfg.HalfDepthM,
			rng:       newEntropyRand(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown source policy %d: %w", cfg.Policy, ErrConfiguration)
	}
}

// FixedPointSource yields an identical vertex for every event.
type FixedPointSource struct {
	vertex model.PrimaryVertex
}

// Generate implements VertexGenerator.
func (s *FixedPointSource) Generate(int) model.PrimaryVertex {
	return s.vertex
}

// UniformAreaSource draws the vertex x and y independently from
// continuous uniform distributions over the configured rectangle; the
// height, direction, species and energy stay constant. Sampling never
// fails once constructed.
type UniformAreaSource struct {
	template  model.PrimaryVertex
	centreX   float64
	centreY   float64
	halfWidth float64
	halfDepth float64
	rng       *rand.Rand
}

// Generate implements VertexGenerator.
func (s *UniformAreaSource) Generate(int) model.PrimaryVertex {
	v := s.template
	v.Position.X = s.centreX + uniformOffset(s.rng, s.halfWidth)
	v.Position.Y = s.centreY + uniformOffset(s.rng, s.halfDepth)
	return v
}

// uniformOffset draws from [-half, half). A zero half-extent is the
// degenerate rectangle case and collapses to the fixed coordinate.
func uniformOffset(rng *rand.Rand, half float64) float64 {
	if half == 0 {
		return 0
	}
	return (2*rng.Float64() - 1) * half
}

func newEntropyRand() *rand.Rand {
	var seed [32]byte
	// crypto/rand.Read does not fail on supported platforms.
	_, _ = crand.Read(seed[:])
	return rand.New(rand.NewChaCha8(seed))
}
