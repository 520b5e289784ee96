package pointcloud

import (
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestBasicPointCloud(t *testing.T) {
	pc := New()
	test.That(t, pc.Size(), test.ShouldEqual, 0)

	test.That(t, pc.Set(NewVector(1, 2, 3), NewBasicData()), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(-4, 0, 9), NewColoredData(color.NRGBA{255, 0, 0, 255})), test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 2)

	d, got := pc.At(1, 2, 3)
	test.That(t, got, test.ShouldBeTrue)
	test.That(t, d.HasColor(), test.ShouldBeFalse)

	d, got = pc.At(-4, 0, 9)
	test.That(t, got, test.ShouldBeTrue)
	r, g, b := d.RGB255()
	test.That(t, r, test.ShouldEqual, 255)
	test.That(t, g, test.ShouldEqual, 0)
	test.That(t, b, test.ShouldEqual, 0)

	_, got = pc.At(0, 0, 0)
	test.That(t, got, test.ShouldBeFalse)

	// setting an existing position replaces, not grows
	test.That(t, pc.Set(NewVector(1, 2, 3), NewValueData(5)), test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 2)
	d, got = pc.At(1, 2, 3)
	test.That(t, got, test.ShouldBeTrue)
	test.That(t, d.HasValue(), test.ShouldBeTrue)
	test.That(t, d.Value(), test.ShouldEqual, 5)

	pc.Unset(1, 2, 3)
	test.That(t, pc.Size(), test.ShouldEqual, 1)
	_, got = pc.At(1, 2, 3)
	test.That(t, got, test.ShouldBeFalse)
}

func TestMetaData(t *testing.T) {
	pc := New()
	test.That(t, pc.Set(NewVector(1, -2, 3), NewBasicData()), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(5, 4, -3), NewBasicData()), test.ShouldBeNil)

	meta := pc.MetaData()
	test.That(t, meta.MinX, test.ShouldEqual, 1)
	test.That(t, meta.MaxX, test.ShouldEqual, 5)
	test.That(t, meta.MinY, test.ShouldEqual, -2)
	test.That(t, meta.MaxY, test.ShouldEqual, 4)
	test.That(t, meta.MinZ, test.ShouldEqual, -3)
	test.That(t, meta.MaxZ, test.ShouldEqual, 3)
	test.That(t, meta.HasColor, test.ShouldBeFalse)

	test.That(t, pc.Set(NewVector(0, 0, 0), NewColoredData(color.NRGBA{0, 255, 0, 255})), test.ShouldBeNil)
	test.That(t, pc.MetaData().HasColor, test.ShouldBeTrue)

	meta = pc.MetaData()
	center := meta.Center()
	test.That(t, center.X, test.ShouldAlmostEqual, 2.5)
	test.That(t, center.Y, test.ShouldAlmostEqual, 1)
	test.That(t, center.Z, test.ShouldAlmostEqual, 0)
}

func TestIterateBatched(t *testing.T) {
	pc := New()
	for i := 0; i < 10; i++ {
		test.That(t, pc.Set(NewVector(float64(i), 0, 0), NewBasicData()), test.ShouldBeNil)
	}

	seen := map[float64]bool{}
	for batch := 0; batch < 3; batch++ {
		pc.Iterate(3, batch, func(p r3.Vector, d Data) bool {
			test.That(t, seen[p.X], test.ShouldBeFalse)
			seen[p.X] = true
			return true
		})
	}
	test.That(t, len(seen), test.ShouldEqual, 10)
}

func TestStorageRejectsImpreciseValues(t *testing.T) {
	pc := New()
	err := pc.Set(NewVector(2*maxPreciseFloat64, 0, 0), NewBasicData())
	test.That(t, err, test.ShouldNotBeNil)
}
