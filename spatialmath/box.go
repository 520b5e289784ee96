package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Ordered list of box corners, as signs applied to the half sizes.
var boxCorners = [8]r3.Vector{
	{X: 1, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: -1},
	{X: 1, Y: -1, Z: 1},
	{X: 1, Y: -1, Z: -1},
	{X: -1, Y: 1, Z: 1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1},
	{X: -1, Y: -1, Z: -1},
}

// BoxEdges are the 12 edges of a box, as pairs of indices into Vertices
// (corners differing in exactly one coordinate).
var BoxEdges = [12][2]int{
	{0, 1}, {0, 2}, {0, 4},
	{1, 3}, {1, 5},
	{2, 3}, {2, 6},
	{3, 7},
	{4, 5}, {4, 6},
	{5, 7},
	{6, 7},
}

// Box is a 3D rectangular prism fully defined by a pose and half sizes.
type Box struct {
	center   Pose
	centerPt r3.Vector
	halfSize [3]float64
	label    string
}

// NewBox instantiates a box from its center pose and full dimensions.
// Dimensions may be given with either sign; only their magnitudes matter.
func NewBox(pose Pose, dims r3.Vector, label string) (*Box, error) {
	if pose == nil {
		return nil, errors.New("box requires a center pose")
	}
	if math.IsNaN(dims.X) || math.IsNaN(dims.Y) || math.IsNaN(dims.Z) {
		return nil, errors.Errorf("box dimensions must be numbers, got %v", dims)
	}
	return &Box{
		center:   pose,
		centerPt: pose.Point(),
		halfSize: [3]float64{math.Abs(dims.X) / 2, math.Abs(dims.Y) / 2, math.Abs(dims.Z) / 2},
		label:    label,
	}, nil
}

// String returns a human readable string that represents the box.
func (b *Box) String() string {
	return fmt.Sprintf("Type: Box | Position: X:%.1f, Y:%.1f, Z:%.1f | Dims: X:%.0f, Y:%.0f, Z:%.0f",
		b.centerPt.X, b.centerPt.Y, b.centerPt.Z, 2*b.halfSize[0], 2*b.halfSize[1], 2*b.halfSize[2])
}

// Label returns the label of this box.
func (b *Box) Label() string {
	return b.label
}

// Pose returns the pose of the box.
func (b *Box) Pose() Pose {
	return b.center
}

// Dims returns the box's full dimensions along its own axes.
func (b *Box) Dims() r3.Vector {
	return r3.Vector{X: 2 * b.halfSize[0], Y: 2 * b.halfSize[1], Z: 2 * b.halfSize[2]}
}

// Transform premultiplies the box pose with a transform, allowing the box to
// be moved in space.
func (b *Box) Transform(toPremultiply Pose) *Box {
	p := Compose(toPremultiply, b.center)
	return &Box{
		center:   p,
		centerPt: p.Point(),
		halfSize: b.halfSize,
		label:    b.label,
	}
}

// closestPoint returns the closest point on the box surface or interior to
// the specified point.
func (b *Box) closestPoint(pt r3.Vector) r3.Vector {
	result := b.centerPt
	direction := pt.Sub(result)
	rm := b.center.Orientation().RotationMatrix()
	for i := 0; i < 3; i++ {
		axis := rm.Row(i)
		distance := direction.Dot(axis)
		if distance > b.halfSize[i] {
			distance = b.halfSize[i]
		} else if distance < -b.halfSize[i] {
			distance = -b.halfSize[i]
		}
		result = result.Add(axis.Mul(distance))
	}
	return result
}

// pointPenetrationDepth returns the minimum distance needed to move a point
// inside the box to the box surface.
func (b *Box) pointPenetrationDepth(pt r3.Vector) float64 {
	direction := pt.Sub(b.centerPt)
	rm := b.center.Orientation().RotationMatrix()
	depth := math.Inf(1)
	for i := 0; i < 3; i++ {
		axis := rm.Row(i)
		projection := direction.Dot(axis)
		if distance := math.Abs(projection - b.halfSize[i]); distance < depth {
			depth = distance
		}
		if distance := math.Abs(projection + b.halfSize[i]); distance < depth {
			depth = distance
		}
	}
	return depth
}

// SignedDistance returns the distance from the point to the box surface:
// positive outside the box, negative inside, zero on the surface.
func (b *Box) SignedDistance(pt r3.Vector) float64 {
	closest := b.closestPoint(pt)
	if d := pt.Sub(closest).Norm(); d > 0 {
		return d
	}
	return -b.pointPenetrationDepth(pt)
}

// Contains reports whether the point lies in or on the box.
func (b *Box) Contains(pt r3.Vector) bool {
	return b.SignedDistance(pt) <= 0
}

// Vertices returns the eight corners of the box, ordered to match BoxEdges.
func (b *Box) Vertices() []r3.Vector {
	verts := make([]r3.Vector, 0, 8)
	for _, corner := range boxCorners {
		offset := r3.Vector{
			X: corner.X * b.halfSize[0],
			Y: corner.Y * b.halfSize[1],
			Z: corner.Z * b.halfSize[2],
		}
		verts = append(verts, TransformPoint(b.center, offset))
	}
	return verts
}

// AlmostEqual reports whether two boxes have the same dimensions and pose
// within floating point tolerance.
func (b *Box) AlmostEqual(other *Box) bool {
	for i := 0; i < 3; i++ {
		if !Float64AlmostEqual(b.halfSize[i], other.halfSize[i], 1e-8) {
			return false
		}
	}
	return PoseAlmostEqualEps(b.center, other.center, 1e-6)
}
