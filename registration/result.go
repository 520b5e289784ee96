package registration

import (
	"github.com/pkg/errors"

	"github.com/scanstitch/scanstitch/pointcloud"
	"github.com/scanstitch/scanstitch/spatialmath"
)

// Status is the terminal state of one element of a registration.
type Status int

const (
	// StatusNotInitialized means no registration has produced this element.
	StatusNotInitialized Status = iota
	// StatusNotEnoughPointPairs means too few correspondences survived; the
	// clouds do not overlap.
	StatusNotEnoughPointPairs
	// StatusMaxIterationsReached means the iteration cap was hit before the
	// error thresholds; the transform may or may not be valid.
	StatusMaxIterationsReached
	// StatusRMSErrorThresholdReached means the absolute RMS error threshold
	// was met.
	StatusRMSErrorThresholdReached
	// StatusRMSErrorRelativeThresholdReached means the RMS error stopped
	// improving by more than the relative threshold.
	StatusRMSErrorRelativeThresholdReached
)

func (s Status) String() string {
	switch s {
	case StatusNotInitialized:
		return "NotInitialized"
	case StatusNotEnoughPointPairs:
		return "NotEnoughPointPairs"
	case StatusMaxIterationsReached:
		return "MaxIterationsReached"
	case StatusRMSErrorThresholdReached:
		return "RMSErrorThresholdReached"
	case StatusRMSErrorRelativeThresholdReached:
		return "RMSErrorRelativeThresholdReached"
	default:
		return "Unknown"
	}
}

// Converged reports whether the status is one of the two success states.
func (s Status) Converged() bool {
	return s == StatusRMSErrorThresholdReached || s == StatusRMSErrorRelativeThresholdReached
}

// ElementResult is the outcome of registering one cloud onto the reference.
type ElementResult struct {
	// Status is the terminal state of the registration.
	Status Status
	// Pose maps the element's points into the reference cloud's frame. It is
	// the identity for the reference element itself, and whatever transform
	// was last computed for failed registrations.
	Pose spatialmath.Pose
	// RMSError is the root-mean-square distance between the kept
	// correspondences after applying Pose.
	RMSError float64
	// Iterations is how many ICP iterations ran.
	Iterations int
}

// PairwiseResult holds per-element registration outcomes. Element 0 is the
// reference cloud; it carries the identity pose and is never given a
// registration status.
type PairwiseResult struct {
	elements []ElementResult
}

// NumElements returns the number of elements in the result.
func (r *PairwiseResult) NumElements() int {
	return len(r.elements)
}

// Element returns the result for the given element index.
func (r *PairwiseResult) Element(i int) (ElementResult, error) {
	if i < 0 || i >= len(r.elements) {
		return ElementResult{}, errors.Errorf("no element %d in a result of %d elements", i, len(r.elements))
	}
	return r.elements[i], nil
}

// Pose returns the transform computed for the given element, or the identity
// when the element is out of range or was never registered.
func (r *PairwiseResult) Pose(i int) spatialmath.Pose {
	if i < 0 || i >= len(r.elements) || r.elements[i].Pose == nil {
		return spatialmath.NewZeroPose()
	}
	return r.elements[i].Pose
}

// MergeRegistered merges the clouds into the output cloud, applying each
// element's computed transform so all points land in the reference frame.
// The clouds must be the same ones the result was calculated from, in the
// same order.
func MergeRegistered(result *PairwiseResult, clouds []pointcloud.PointCloud, out pointcloud.PointCloud) error {
	if len(clouds) != result.NumElements() {
		return errors.Errorf("result has %d elements but %d clouds were given", result.NumElements(), len(clouds))
	}
	for i, cloud := range clouds {
		if err := pointcloud.ApplyOffset(cloud, result.Pose(i), out); err != nil {
			return err
		}
	}
	return nil
}
