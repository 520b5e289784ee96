package pointcloud

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/scanstitch/scanstitch/spatialmath"
)

func centeredBox(t *testing.T, dims r3.Vector) *spatialmath.Box {
	t.Helper()
	box, err := spatialmath.NewBox(spatialmath.NewZeroPose(), dims, "")
	test.That(t, err, test.ShouldBeNil)
	return box
}

func TestCropToBox(t *testing.T) {
	pc := MakeSurfaceScan(-50, 50, -50, 50, 5)
	test.That(t, pc, test.ShouldNotBeNil)

	box := centeredBox(t, r3.Vector{X: 40, Y: 40, Z: 100})
	cropped, err := CropToBox(pc, box)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cropped.Size(), test.ShouldBeGreaterThan, 0)
	test.That(t, cropped.Size(), test.ShouldBeLessThan, pc.Size())

	cropped.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		test.That(t, box.Contains(p), test.ShouldBeTrue)
		return true
	})

	// the original cloud is untouched
	test.That(t, pc.Size(), test.ShouldEqual, MakeSurfaceScan(-50, 50, -50, 50, 5).Size())
}

func TestCropNestedBoxesMonotonic(t *testing.T) {
	pc := MakeSurfaceScan(-85, 85, -100, 100, 5)
	test.That(t, pc, test.ShouldNotBeNil)

	wide := centeredBox(t, r3.Vector{X: 170, Y: 200 * 0.20, Z: 66})
	narrow := centeredBox(t, r3.Vector{X: 170, Y: 200 * 0.9 * 0.20, Z: 66})

	croppedWide, err := CropToBox(pc, wide)
	test.That(t, err, test.ShouldBeNil)
	croppedNarrow, err := CropToBox(pc, narrow)
	test.That(t, err, test.ShouldBeNil)

	// a box with a strictly narrower Y extent keeps at most as many points
	test.That(t, croppedNarrow.Size(), test.ShouldBeLessThanOrEqualTo, croppedWide.Size())
}
