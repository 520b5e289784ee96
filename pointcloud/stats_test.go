package pointcloud

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestCountValidPoints(t *testing.T) {
	pc := New()
	test.That(t, CountValidPoints(pc), test.ShouldEqual, 0)

	test.That(t, pc.Set(NewVector(0, 0, 0), NewBasicData()), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(1, 1, 1), NewBasicData()), test.ShouldBeNil)
	test.That(t, CountValidPoints(pc), test.ShouldEqual, 2)
}

func TestCountWithinDistanceOfBox(t *testing.T) {
	pc := New()
	test.That(t, pc.Set(NewVector(0, 0, 0), NewBasicData()), test.ShouldBeNil)    // inside
	test.That(t, pc.Set(NewVector(5, 0, 0), NewBasicData()), test.ShouldBeNil)    // on the surface
	test.That(t, pc.Set(NewVector(6, 0, 0), NewBasicData()), test.ShouldBeNil)    // 1 outside
	test.That(t, pc.Set(NewVector(100, 0, 0), NewBasicData()), test.ShouldBeNil)  // far outside
	test.That(t, pc.Set(NewVector(0, 4.9, 0), NewBasicData()), test.ShouldBeNil)  // inside near face

	box := centeredBox(t, r3.Vector{X: 10, Y: 10, Z: 10})

	test.That(t, CountWithinDistanceOfBox(pc, box, 0), test.ShouldEqual, 3)
	test.That(t, CountWithinDistanceOfBox(pc, box, 1), test.ShouldEqual, 4)
	test.That(t, CountWithinDistanceOfBox(pc, box, 100), test.ShouldEqual, 5)

	// the signed distance threshold can also select deep interior points only
	test.That(t, CountWithinDistanceOfBox(pc, box, -2), test.ShouldEqual, 1)
}
