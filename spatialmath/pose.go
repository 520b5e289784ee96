package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform: a translation paired with an orientation.
type Pose interface {
	// Point returns the translation component.
	Point() r3.Vector

	// Orientation returns the rotation component.
	Orientation() Orientation
}

type basicPose struct {
	point r3.Vector
	quat  quat.Number
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return &basicPose{quat: quat.Number{Real: 1}}
}

// NewPoseFromPoint takes a cartesian (x,y,z) and stores it as a pure
// translation with an identity rotation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return &basicPose{point: point, quat: quat.Number{Real: 1}}
}

// NewPose creates a pose from a point and an orientation.
func NewPose(point r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(point)
	}
	return &basicPose{point: point, quat: normalizeQuat(o.Quaternion())}
}

// NewPoseFromOrientation creates a pose from an orientation alone, with a
// point offset.
func NewPoseFromOrientation(point r3.Vector, o Orientation) Pose {
	return NewPose(point, o)
}

// NewPoseFromRotationMatrix creates a pose from a rotation matrix and a
// translation. The rotation is applied before the translation.
func NewPoseFromRotationMatrix(rm *RotationMatrix, translation r3.Vector) Pose {
	return &basicPose{point: translation, quat: rm.Quaternion()}
}

func (bp *basicPose) Point() r3.Vector {
	return bp.point
}

func (bp *basicPose) Orientation() Orientation {
	q := quaternion(bp.quat)
	return &q
}

// Compose returns the pose equivalent to applying b first, then a.
func Compose(a, b Pose) Pose {
	qa := normalizeQuat(a.Orientation().Quaternion())
	qb := b.Orientation().Quaternion()
	return &basicPose{
		point: a.Point().Add(rotateVector(qa, b.Point())),
		quat:  normalizeQuat(quat.Mul(qa, qb)),
	}
}

// PoseInverse returns the pose that undoes the given pose.
func PoseInverse(p Pose) Pose {
	q := quat.Conj(normalizeQuat(p.Orientation().Quaternion()))
	return &basicPose{
		point: rotateVector(q, p.Point().Mul(-1)),
		quat:  q,
	}
}

// TransformPoint applies the pose to a point in space.
func TransformPoint(p Pose, pt r3.Vector) r3.Vector {
	return rotateVector(p.Orientation().Quaternion(), pt).Add(p.Point())
}

// PoseAlmostEqualEps checks whether both the points and the orientations of
// two poses are within epsilon of each other.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	if a.Point().Sub(b.Point()).Norm() > epsilon {
		return false
	}
	qa := normalizeQuat(a.Orientation().Quaternion())
	qb := normalizeQuat(b.Orientation().Quaternion())
	// q and -q are the same rotation
	dot := qa.Real*qb.Real + qa.Imag*qb.Imag + qa.Jmag*qb.Jmag + qa.Kmag*qb.Kmag
	return 1-dot*dot < epsilon
}
