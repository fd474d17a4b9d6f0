package core

import (
	"fmt"

	"github.com/muonworks/tomography-simulator/model"
)

// DefectKind selects how the optional cavity is placed inside the
// detector block.
type DefectKind int

const (
	DefectNone DefectKind = iota
	DefectCenteredCylinder
	DefectOffAxisCylinder
)

// DefectConfig describes the cavity carved inside the block. Radius and
// height are independent values; the offset applies only to the
// off-axis kind and displaces the cylinder in the block's x/y plane.
type DefectConfig struct {
	Kind    DefectKind
	RadiusM float64
	HeightM float64
	OffsetM model.Point // x/y only; z is ignored
}

// DetectorConfig is everything needed to build the volume tree. All
// lengths are metres. Material fields are symbolic names resolved
// through the material database.
type DetectorConfig struct {
	WorldHalfSizeM float64
	WorldMaterial  string

	BlockHalfExtentsM model.Point // may be anisotropic
	BlockMaterial     string

	Defect         DefectConfig
	DefectMaterial string // defaults to "vacuum"
}

// DetectorBuilder builds the layered detector geometry: a world box
// enclosing a detector block, optionally with a cylindrical cavity
// nested inside the block. Construction is deterministic and
// side-effect free; the same configuration always yields the same tree.
type DetectorBuilder struct {
	cfg       DetectorConfig
	materials MaterialResolver
}

// NewDetectorBuilder constructs a builder over an explicit material
// resolution capability.
func NewDetectorBuilder(cfg DetectorConfig, materials MaterialResolver) *DetectorBuilder {
	return &DetectorBuilder{cfg: cfg, materials: materials}
}

// Build produces the root volume. It fails with an error wrapping
// ErrConfiguration when a material name is unknown, a dimension is not
// positive, or a child volume would not lie entirely within its parent.
func (b *DetectorBuilder) Build() (*model.Volume, error) {
	cfg := b.cfg
	if b.materials == nil {
		return nil, fmt.Errorf("detector builder: no material resolver: %w", ErrConfiguration)
	}
	if cfg.WorldHalfSizeM <= 0 {
		return nil, fmt.Errorf("world half-size %g m must be positive: %w", cfg.WorldHalfSizeM, ErrConfiguration)
	}
	if cfg.BlockHalfExtentsM.X <= 0 || cfg.BlockHalfExtentsM.Y <= 0 || cfg.BlockHalfExtentsM.Z <= 0 {
		return nil, fmt.Errorf("block half-extents %+v m must be positive: %w", cfg.BlockHalfExtentsM, ErrConfiguration)
	}

	worldMat, err := b.materials.Resolve(cfg.WorldMaterial)
	if err != nil {
		return nil, fmt.Errorf("world material: %w", err)
	}
	blockMat, err := b.materials.Resolve(cfg.BlockMaterial)
	if err != nil {
		return nil, fmt.Errorf("block material: %w", err)
	}

	worldShape := model.Box(cfg.WorldHalfSizeM, cfg.WorldHalfSizeM, cfg.WorldHalfSizeM)
	blockShape := model.Box(cfg.BlockHalfExtentsM.X, cfg.BlockHalfExtentsM.Y, cfg.BlockHalfExtentsM.Z)

	if !FitsInside(blockShape, model.Point{}, worldShape) {
		return nil, fmt.Errorf("detector block %+v m does not fit inside world half-size %g m: %w",
			cfg.BlockHalfExtentsM, cfg.WorldHalfSizeM, ErrConfiguration)
	}

	block := &model.Volume{
		Name:     "DetectorBlock",
		Shape:    blockShape,
		Material: blockMat,
	}

	if cfg.Defect.Kind != DefectNone {
		defect, err := b.buildDefect(blockShape)
		if err != nil {
			return nil, err
		}
		block.Children = append(block.Children, defect)
	}

	world := &model.Volume{
		Name:     "World",
		Shape:    worldShape,
		Material: worldMat,
		Children: []*model.Volume{block},
	}
	return world, nil
}

func (b *DetectorBuilder) buildDefect(blockShape model.Shape) (*model.Volume, error) {
	cfg := b.cfg.Defect
	if cfg.RadiusM <= 0 || cfg.HeightM <= 0 {
		return nil, fmt.Errorf("defect radius %g m / height %g m must be positive: %w",
			cfg.RadiusM, cfg.HeightM, ErrConfiguration)
	}

	matName := b.cfg.DefectMaterial
	if matName == "" {
		matName = "vacuum"
	}
	mat, err := b.materials.Resolve(matName)
	if err != nil {
		return nil, fmt.Errorf("defect material: %w", err)
	}

	shape := model.Tube(0, cfg.RadiusM, cfg.HeightM/2, 0)

	var placement model.Point
	if cfg.Kind == DefectOffAxisCylinder {
		placement = model.Point{X: cfg.OffsetM.X, Y: cfg.OffsetM.Y}
	}

	if !FitsInside(shape, placement, blockShape) {
		return nil, fmt.Errorf("defect (radius %g m, height %g m, offset %+v m) does not fit inside block %+v m: %w",
			cfg.RadiusM, cfg.HeightM, placement, b.cfg.BlockHalfExtentsM, ErrConfiguration)
	}

	return &model.Volume{
		Name:      "Defect",
		Shape:     shape,
		Material:  mat,
		Placement: placement,
	}, nil
}
