package core

import (
	"math"

	"github.com/muonworks/tomography-simulator/model"
)

// Vec3 is a point or direction in world/parent coordinates, metres.
type Vec3 struct {
	X, Y, Z float64
}

// VecOf converts a model point into a Vec3 for geometry math.
func VecOf(p model.Point) Vec3 {
	return Vec3{X: p.X, Y: p.Y, Z: p.Z}
}

// Point converts back to the plain model representation.
func (v Vec3) Point() model.Point {
	return model.Point{X: v.X, Y: v.Y, Z: v.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns the unit vector along v. The zero vector is
// returned unchanged.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// ShapeContains reports whether a point expressed in the shape's local
// frame (origin at the shape's centre) lies inside the shape. Boundary
// points count as inside.
func ShapeContains(s model.Shape, local model.Point) bool {
	switch s.Kind {
	case model.ShapeBox:
		return math.Abs(local.X) <= s.HalfX &&
			math.Abs(local.Y) <= s.HalfY &&
			math.Abs(local.Z) <= s.HalfZ
	case model.ShapeTube:
		if math.Abs(local.Z) > s.HalfHeight {
			return false
		}
		r := math.Hypot(local.X, local.Y)
		if r < s.InnerRadius || r > s.OuterRadius {
			return false
		}
		if s.SweepAngle > 0 && s.SweepAngle < 2*math.Pi {
			phi := math.Atan2(local.Y, local.X)
			if phi < 0 {
				phi += 2 * math.Pi
			}
			return phi <= s.SweepAngle
		}
		return true
	default:
		return false
	}
}

// BoundingHalfExtents returns the half-extents of the axis-aligned
// bounding box of a shape in its local frame.
func BoundingHalfExtents(s model.Shape) (hx, hy, hz float64) {
	switch s.Kind {
	case model.ShapeBox:
		return s.HalfX, s.HalfY, s.HalfZ
	case model.ShapeTube:
		return s.OuterRadius, s.OuterRadius, s.HalfHeight
	default:
		return 0, 0, 0
	}
}

// FitsInside reports whether a child shape, translated by `at` in the
// parent's frame, lies entirely within the parent shape. Box parents
// are checked exactly against the child's bounding box; tube parents
// use the bounding box's worst-case radial extent, which is
// conservative but never accepts a violating placement.
func FitsInside(child model.Shape, at model.Point, parent model.Shape) bool {
	chx, chy, chz := BoundingHalfExtents(child)

	switch parent.Kind {
	case model.ShapeBox:
		return math.Abs(at.X)+chx <= parent.HalfX &&
			math.Abs(at.Y)+chy <= parent.HalfY &&
			math.Abs(at.Z)+chz <= parent.HalfZ
	case model.ShapeTube:
		if math.Abs(at.Z)+chz > parent.HalfHeight {
			return false
		}
		radial := math.Hypot(math.Abs(at.X)+chx, math.Abs(at.Y)+chy)
		return radial <= parent.OuterRadius
	default:
		return false
	}
}
