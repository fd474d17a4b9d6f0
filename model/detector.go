package model

// Material describes a detector medium as resolved from the material
// database. Density drives the reference engine's energy-loss model;
// Z and A are carried for engines that need composition.
type Material struct {
	Name        string
	DensityGCm3 float64 // g/cm^3
	Z           float64 // effective atomic number
	A           float64 // effective mass number (g/mol)
}

// ShapeKind discriminates the supported solid shapes.
type ShapeKind int

const (
	ShapeBox ShapeKind = iota
	ShapeTube
)

// Shape is a solid descriptor. Box shapes use the Half* extents; tube
// shapes use the radii, HalfHeight and SweepAngle. All lengths are in
// metres, angles in radians.
type Shape struct {
	Kind ShapeKind

	// Box half-extents.
	HalfX float64
	HalfY float64
	HalfZ float64

	// Tube parameters. The tube axis is z.
	InnerRadius float64
	OuterRadius float64
	HalfHeight  float64
	SweepAngle  float64
}

// Box constructs a box shape from half-extents in metres.
func Box(halfX, halfY, halfZ float64) Shape {
	return Shape{Kind: ShapeBox, HalfX: halfX, HalfY: halfY, HalfZ: halfZ}
}

// Tube constructs a full-sweep tube shape; the axis is z.
func Tube(innerRadius, outerRadius, halfHeight, sweepAngle float64) Shape {
	return Shape{
		Kind:        ShapeTube,
		InnerRadius: innerRadius,
		OuterRadius: outerRadius,
		HalfHeight:  halfHeight,
		SweepAngle:  sweepAngle,
	}
}

// Point is a position or direction in metres (or unitless for
// directions), in the frame stated by the consumer.
type Point struct {
	X float64
	Y float64
	Z float64
}

// Volume is a named geometric region with a material and a placement
// relative to its parent. Exactly one root volume ("World") has no
// parent; placements are pure translations of the child's centre in the
// parent's frame.
type Volume struct {
	Name      string
	Shape     Shape
	Material  *Material
	Placement Point
	Children  []*Volume
}

// CountVolumes returns the number of volumes in the tree rooted at v,
// including v itself.
func (v *Volume) CountVolumes() int {
	if v == nil {
		return 0
	}
	n := 1
	for _, c := range v.Children {
		n += c.CountVolumes()
	}
	return n
}
