// Package spatialmath defines the math of spatial relationships: rigid poses
// made of a translation and an orientation, and simple geometries built on them.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Orientation is any representation of a 3D rotation. All representations
// convert through a unit quaternion.
type Orientation interface {
	// Quaternion returns the orientation as a unit quaternion.
	Quaternion() quat.Number

	// AxisAngles returns the orientation in axis-angle representation.
	AxisAngles() *R4AA

	// RotationMatrix returns the orientation as a 3x3 rotation matrix.
	RotationMatrix() *RotationMatrix
}

// NewZeroOrientation returns the identity rotation.
func NewZeroOrientation() Orientation {
	return &quaternion{Real: 1}
}

// quaternion is an Orientation backed directly by a unit quaternion.
type quaternion quat.Number

func (q *quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

func (q *quaternion) AxisAngles() *R4AA {
	return r4aaFromQuat(q.Quaternion())
}

func (q *quaternion) RotationMatrix() *RotationMatrix {
	return rotationMatrixFromQuat(q.Quaternion())
}

// R4AA represents a rotation of Theta radians about the axis (RX, RY, RZ).
type R4AA struct {
	Theta float64
	RX    float64
	RY    float64
	RZ    float64
}

// Normalize scales the axis to a unit vector. A degenerate zero axis becomes
// the +Z axis with the angle left untouched.
func (aa *R4AA) Normalize() {
	norm := math.Sqrt(aa.RX*aa.RX + aa.RY*aa.RY + aa.RZ*aa.RZ)
	if norm == 0 {
		aa.RX, aa.RY, aa.RZ = 0, 0, 1
		return
	}
	aa.RX /= norm
	aa.RY /= norm
	aa.RZ /= norm
}

// Quaternion returns the orientation as a unit quaternion.
func (aa *R4AA) Quaternion() quat.Number {
	cpy := *aa
	cpy.Normalize()
	s := math.Sin(cpy.Theta / 2)
	return quat.Number{
		Real: math.Cos(cpy.Theta / 2),
		Imag: s * cpy.RX,
		Jmag: s * cpy.RY,
		Kmag: s * cpy.RZ,
	}
}

// AxisAngles returns the orientation in axis-angle representation.
func (aa *R4AA) AxisAngles() *R4AA {
	return aa
}

// RotationMatrix returns the orientation as a 3x3 rotation matrix.
func (aa *R4AA) RotationMatrix() *RotationMatrix {
	return rotationMatrixFromQuat(aa.Quaternion())
}

// EulerAngles are the ZYX (yaw-pitch-roll) Tait-Bryan angles, in radians.
type EulerAngles struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// Quaternion returns the orientation as a unit quaternion.
func (ea *EulerAngles) Quaternion() quat.Number {
	cr, sr := math.Cos(ea.Roll/2), math.Sin(ea.Roll/2)
	cp, sp := math.Cos(ea.Pitch/2), math.Sin(ea.Pitch/2)
	cy, sy := math.Cos(ea.Yaw/2), math.Sin(ea.Yaw/2)
	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// AxisAngles returns the orientation in axis-angle representation.
func (ea *EulerAngles) AxisAngles() *R4AA {
	return r4aaFromQuat(ea.Quaternion())
}

// RotationMatrix returns the orientation as a 3x3 rotation matrix.
func (ea *EulerAngles) RotationMatrix() *RotationMatrix {
	return rotationMatrixFromQuat(ea.Quaternion())
}

// RotationMatrix is a 3x3 rotation matrix, stored row major.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates a rotation matrix from 9 row-major values. The
// caller is responsible for the values forming a valid rotation.
func NewRotationMatrix(m [9]float64) *RotationMatrix {
	return &RotationMatrix{m}
}

// Row returns the a vector representing a particular row of the matrix.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rm.mat[3*row], Y: rm.mat[3*row+1], Z: rm.mat[3*row+2]}
}

// At returns the value of the matrix at a given row and column.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[3*row+col]
}

// Mul returns the matrix product rm * v.
func (rm *RotationMatrix) Mul(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: rm.mat[0]*v.X + rm.mat[1]*v.Y + rm.mat[2]*v.Z,
		Y: rm.mat[3]*v.X + rm.mat[4]*v.Y + rm.mat[5]*v.Z,
		Z: rm.mat[6]*v.X + rm.mat[7]*v.Y + rm.mat[8]*v.Z,
	}
}

// Quaternion returns the orientation as a unit quaternion, using Shepperd's
// method to pick the numerically stable branch.
func (rm *RotationMatrix) Quaternion() quat.Number {
	m := rm.mat
	tr := m[0] + m[4] + m[8]
	var q quat.Number
	switch {
	case tr > 0:
		s := 2 * math.Sqrt(tr+1)
		q.Real = s / 4
		q.Imag = (m[7] - m[5]) / s
		q.Jmag = (m[2] - m[6]) / s
		q.Kmag = (m[3] - m[1]) / s
	case m[0] > m[4] && m[0] > m[8]:
		s := 2 * math.Sqrt(1+m[0]-m[4]-m[8])
		q.Real = (m[7] - m[5]) / s
		q.Imag = s / 4
		q.Jmag = (m[1] + m[3]) / s
		q.Kmag = (m[2] + m[6]) / s
	case m[4] > m[8]:
		s := 2 * math.Sqrt(1+m[4]-m[0]-m[8])
		q.Real = (m[2] - m[6]) / s
		q.Imag = (m[1] + m[3]) / s
		q.Jmag = s / 4
		q.Kmag = (m[5] + m[7]) / s
	default:
		s := 2 * math.Sqrt(1+m[8]-m[0]-m[4])
		q.Real = (m[3] - m[1]) / s
		q.Imag = (m[2] + m[6]) / s
		q.Jmag = (m[5] + m[7]) / s
		q.Kmag = s / 4
	}
	return normalizeQuat(q)
}

// AxisAngles returns the orientation in axis-angle representation.
func (rm *RotationMatrix) AxisAngles() *R4AA {
	return r4aaFromQuat(rm.Quaternion())
}

// RotationMatrix returns the orientation as a 3x3 rotation matrix.
func (rm *RotationMatrix) RotationMatrix() *RotationMatrix {
	return rm
}

func rotationMatrixFromQuat(q quat.Number) *RotationMatrix {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return &RotationMatrix{[9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}}
}

func r4aaFromQuat(q quat.Number) *R4AA {
	q = normalizeQuat(q)
	w := math.Max(-1, math.Min(1, q.Real))
	theta := 2 * math.Acos(w)
	s := math.Sqrt(1 - w*w)
	if s < 1e-10 {
		return &R4AA{Theta: 0, RZ: 1}
	}
	return &R4AA{Theta: theta, RX: q.Imag / s, RY: q.Jmag / s, RZ: q.Kmag / s}
}

func normalizeQuat(q quat.Number) quat.Number {
	n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Number{Real: q.Real / n, Imag: q.Imag / n, Jmag: q.Jmag / n, Kmag: q.Kmag / n}
}

// rotateVector rotates v by the unit quaternion q.
func rotateVector(q quat.Number, v r3.Vector) r3.Vector {
	if v.Norm2() == 0 {
		return v
	}
	res := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: res.Imag, Y: res.Jmag, Z: res.Kmag}
}
