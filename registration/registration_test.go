package registration

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/scanstitch/scanstitch/pointcloud"
	"github.com/scanstitch/scanstitch/spatialmath"
)

// overlapScanPair builds two scans of the same synthetic surface patch, with
// the target observed in a frame moved by the given pose. Registering target
// onto reference should recover the pose's inverse.
func overlapScanPair(t *testing.T, moved spatialmath.Pose) (pointcloud.PointCloud, pointcloud.PointCloud) {
	t.Helper()
	reference := pointcloud.MakeSurfaceScan(-60, 60, -30, 30, 2)
	test.That(t, reference, test.ShouldNotBeNil)

	targetTrue := pointcloud.MakeSurfaceScan(-60, 60, -30, 30, 2)
	test.That(t, targetTrue, test.ShouldNotBeNil)
	target := pointcloud.New()
	test.That(t, pointcloud.ApplyOffset(targetTrue, moved, target), test.ShouldBeNil)
	return reference, target
}

func TestCalculateValidation(t *testing.T) {
	regContext := NewPairwiseContext()
	_, err := regContext.Calculate(context.Background(), []pointcloud.PointCloud{pointcloud.New()})
	test.That(t, err, test.ShouldNotBeNil)

	regContext.Metric = ErrorMetric(42)
	_, err = regContext.Calculate(context.Background(), []pointcloud.PointCloud{pointcloud.New(), pointcloud.New()})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRegistrationConverges(t *testing.T) {
	moved := spatialmath.NewPose(
		r3.Vector{X: 3, Y: -4, Z: 2},
		&spatialmath.R4AA{Theta: 2 * math.Pi / 180, RZ: 1},
	)
	reference, target := overlapScanPair(t, moved)

	regContext := NewPairwiseContext()
	result, err := regContext.Calculate(context.Background(), []pointcloud.PointCloud{reference, target})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.NumElements(), test.ShouldEqual, 2)

	elem, err := result.Element(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, elem.Status.Converged(), test.ShouldBeTrue)
	test.That(t, elem.RMSError, test.ShouldBeLessThan, 2.0)

	// the computed pose maps observed target points back near their true
	// surface positions
	for _, truePt := range []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: -40, Y: 10, Z: 0}, {X: 50, Y: -20, Z: 0}} {
		truePt.Z = pointcloud.SurfaceHeight(truePt.X, truePt.Y)
		observed := spatialmath.TransformPoint(moved, truePt)
		recovered := spatialmath.TransformPoint(elem.Pose, observed)
		test.That(t, recovered.Sub(truePt).Norm(), test.ShouldBeLessThan, 2.0)
	}
}

func TestRegistrationSeededPass(t *testing.T) {
	// a transform too large for ICP alone, recovered when the second pass is
	// seeded with a coarse estimate
	moved := spatialmath.NewPose(
		r3.Vector{X: 4, Y: -3, Z: 1},
		&spatialmath.R4AA{Theta: 3 * math.Pi / 180, RZ: 1},
	)
	reference, target := overlapScanPair(t, moved)

	regContext := NewPairwiseContext()
	coarse, err := regContext.Calculate(context.Background(), []pointcloud.PointCloud{reference, target})
	test.That(t, err, test.ShouldBeNil)

	err = regContext.SetLocation(1, 0, coarse.Pose(1))
	test.That(t, err, test.ShouldBeNil)
	refined, err := regContext.Calculate(context.Background(), []pointcloud.PointCloud{reference, target})
	test.That(t, err, test.ShouldBeNil)

	elem, err := refined.Element(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, elem.Status.Converged(), test.ShouldBeTrue)

	// seeding cannot make the result meaningfully worse
	coarseElem, err := coarse.Element(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, elem.RMSError, test.ShouldBeLessThanOrEqualTo, coarseElem.RMSError+0.1)
}

func TestRegistrationDisjointClouds(t *testing.T) {
	reference := pointcloud.MakeSurfaceScan(-20, 20, -20, 20, 4)
	test.That(t, reference, test.ShouldNotBeNil)

	farAway := pointcloud.New()
	offset := spatialmath.NewPoseFromPoint(r3.Vector{X: 3000, Y: 0, Z: 0})
	test.That(t, pointcloud.ApplyOffset(reference, offset, farAway), test.ShouldBeNil)

	regContext := NewPairwiseContext()
	result, err := regContext.Calculate(context.Background(), []pointcloud.PointCloud{reference, farAway})
	test.That(t, err, test.ShouldBeNil)

	elem, err := result.Element(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, elem.Status, test.ShouldEqual, StatusNotEnoughPointPairs)
	// a degenerate result still carries a usable (identity) transform
	test.That(t, elem.Pose, test.ShouldNotBeNil)
}

func TestRegistrationTooFewPoints(t *testing.T) {
	tiny := pointcloud.New()
	test.That(t, tiny.Set(pointcloud.NewVector(0, 0, 0), pointcloud.NewBasicData()), test.ShouldBeNil)

	reference := pointcloud.MakeSurfaceScan(-20, 20, -20, 20, 4)
	regContext := NewPairwiseContext()
	result, err := regContext.Calculate(context.Background(), []pointcloud.PointCloud{reference, tiny})
	test.That(t, err, test.ShouldBeNil)

	elem, err := result.Element(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, elem.Status, test.ShouldEqual, StatusNotEnoughPointPairs)
}

func TestCalculateHonorsContext(t *testing.T) {
	reference, target := overlapScanPair(t, spatialmath.NewZeroPose())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	regContext := NewPairwiseContext()
	_, err := regContext.Calculate(ctx, []pointcloud.PointCloud{reference, target})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSetLocationValidation(t *testing.T) {
	regContext := NewPairwiseContext()
	test.That(t, regContext.SetLocation(1, 1, spatialmath.NewZeroPose()), test.ShouldNotBeNil)
	test.That(t, regContext.SetLocation(2, 1, spatialmath.NewZeroPose()), test.ShouldNotBeNil)
	test.That(t, regContext.SetLocation(1, 0, spatialmath.NewZeroPose()), test.ShouldBeNil)
}

func TestMergeRegistered(t *testing.T) {
	moved := spatialmath.NewPoseFromPoint(r3.Vector{X: 2, Y: 0, Z: 0})
	reference, target := overlapScanPair(t, moved)

	regContext := NewPairwiseContext()
	result, err := regContext.Calculate(context.Background(), []pointcloud.PointCloud{reference, target})
	test.That(t, err, test.ShouldBeNil)

	merged := pointcloud.New()
	err = MergeRegistered(result, []pointcloud.PointCloud{reference, target}, merged)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, merged.Size(), test.ShouldBeLessThanOrEqualTo, reference.Size()+target.Size())
	test.That(t, merged.Size(), test.ShouldBeGreaterThan, 0)

	// mismatched cloud counts are rejected
	err = MergeRegistered(result, []pointcloud.PointCloud{reference}, pointcloud.New())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestStatusStrings(t *testing.T) {
	test.That(t, StatusNotInitialized.String(), test.ShouldEqual, "NotInitialized")
	test.That(t, StatusNotEnoughPointPairs.String(), test.ShouldEqual, "NotEnoughPointPairs")
	test.That(t, StatusMaxIterationsReached.String(), test.ShouldEqual, "MaxIterationsReached")
	test.That(t, StatusRMSErrorThresholdReached.Converged(), test.ShouldBeTrue)
	test.That(t, StatusRMSErrorRelativeThresholdReached.Converged(), test.ShouldBeTrue)
	test.That(t, StatusMaxIterationsReached.Converged(), test.ShouldBeFalse)
	test.That(t, Status(99).String(), test.ShouldEqual, "Unknown")
}
