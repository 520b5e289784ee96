package pointcloud

import (
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/scanstitch/scanstitch/spatialmath"
)

func TestApplyOffset(t *testing.T) {
	pc1 := NewBasicPointCloud(3)
	err := pc1.Set(NewVector(1, 0, 0), NewColoredData(color.NRGBA{255, 0, 0, 255}))
	test.That(t, err, test.ShouldBeNil)
	err = pc1.Set(NewVector(1, 1, 0), NewColoredData(color.NRGBA{0, 255, 0, 255}))
	test.That(t, err, test.ShouldBeNil)
	err = pc1.Set(NewVector(1, 1, 1), NewColoredData(color.NRGBA{0, 0, 255, 255}))
	test.That(t, err, test.ShouldBeNil)

	// apply a simple translation
	transPose := spatialmath.NewPoseFromPoint(r3.Vector{X: 0, Y: 99, Z: 0})
	transPc := NewBasicPointCloud(0)
	err = ApplyOffset(pc1, transPose, transPc)
	test.That(t, err, test.ShouldBeNil)
	correctCount := 0
	transPc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		r, g, b := d.RGB255()
		if r == 255 {
			test.That(t, p.X, test.ShouldAlmostEqual, 1)
			test.That(t, p.Y, test.ShouldAlmostEqual, 99)
			test.That(t, p.Z, test.ShouldAlmostEqual, 0)
			correctCount++
		}
		if g == 255 {
			test.That(t, p.X, test.ShouldAlmostEqual, 1)
			test.That(t, p.Y, test.ShouldAlmostEqual, 100)
			test.That(t, p.Z, test.ShouldAlmostEqual, 0)
			correctCount++
		}
		if b == 255 {
			test.That(t, p.X, test.ShouldAlmostEqual, 1)
			test.That(t, p.Y, test.ShouldAlmostEqual, 100)
			test.That(t, p.Z, test.ShouldAlmostEqual, 1)
			correctCount++
		}
		return true
	})
	test.That(t, correctCount, test.ShouldEqual, 3)

	// apply a translation and a 90 degree rotation about Z
	transrotPose := spatialmath.NewPose(
		r3.Vector{X: 0, Y: 99, Z: 0},
		&spatialmath.R4AA{Theta: math.Pi / 2., RZ: 1.},
	)
	transrotPc := NewBasicPointCloud(0)
	err = ApplyOffset(pc1, transrotPose, transrotPc)
	test.That(t, err, test.ShouldBeNil)
	correctCount = 0
	transrotPc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		r, g, b := d.RGB255()
		if r == 255 {
			test.That(t, p.X, test.ShouldAlmostEqual, 0)
			test.That(t, p.Y, test.ShouldAlmostEqual, 100)
			test.That(t, p.Z, test.ShouldAlmostEqual, 0)
			correctCount++
		}
		if g == 255 {
			test.That(t, p.X, test.ShouldAlmostEqual, -1)
			test.That(t, p.Y, test.ShouldAlmostEqual, 100)
			test.That(t, p.Z, test.ShouldAlmostEqual, 0)
			correctCount++
		}
		if b == 255 {
			test.That(t, p.X, test.ShouldAlmostEqual, -1)
			test.That(t, p.Y, test.ShouldAlmostEqual, 100)
			test.That(t, p.Z, test.ShouldAlmostEqual, 1)
			correctCount++
		}
		return true
	})
	test.That(t, correctCount, test.ShouldEqual, 3)
}

func TestColorize(t *testing.T) {
	pc := New()
	test.That(t, pc.Set(NewVector(0, 0, 0), NewColoredData(color.NRGBA{9, 9, 9, 255})), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(1, 0, 0), NewBasicData()), test.ShouldBeNil)

	flat := color.NRGBA{135, 165, 235, 255}
	colored, err := Colorize(pc, flat)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, colored.Size(), test.ShouldEqual, pc.Size())

	colored.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		r, g, b := d.RGB255()
		test.That(t, r, test.ShouldEqual, flat.R)
		test.That(t, g, test.ShouldEqual, flat.G)
		test.That(t, b, test.ShouldEqual, flat.B)
		return true
	})

	// the input keeps its original colors
	d, got := pc.At(0, 0, 0)
	test.That(t, got, test.ShouldBeTrue)
	r, _, _ := d.RGB255()
	test.That(t, r, test.ShouldEqual, 9)
}

func TestMergePointCloudsWithColor(t *testing.T) {
	cloud0 := New()
	for _, v := range []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 1}} {
		test.That(t, cloud0.Set(v, NewBasicData()), test.ShouldBeNil)
	}
	cloud1 := New()
	for _, v := range []r3.Vector{{X: 30, Y: 0, Z: 0}, {X: 30, Y: 0, Z: 1}, {X: 30, Y: 1, Z: 0}, {X: 30, Y: 1, Z: 1}, {X: 30, Y: 0.5, Z: 0.5}} {
		test.That(t, cloud1.Set(v, NewBasicData()), test.ShouldBeNil)
	}

	merged := New()
	err := MergePointCloudsWithColor([]PointCloud{cloud0, cloud1}, merged)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, merged.Size(), test.ShouldEqual, 9)

	a, got := merged.At(0, 0, 0)
	test.That(t, got, test.ShouldBeTrue)
	b, got := merged.At(0, 0, 1)
	test.That(t, got, test.ShouldBeTrue)
	c, got := merged.At(30, 0, 0)
	test.That(t, got, test.ShouldBeTrue)

	test.That(t, a.Color(), test.ShouldResemble, b.Color())
	test.That(t, a.Color(), test.ShouldNotResemble, c.Color())
}

func TestMergedSizeNeverExceedsSum(t *testing.T) {
	// overlapping clouds: shared positions deduplicate, so the merged size
	// can be smaller, never larger
	cloud0 := MakeSurfaceScan(-20, 20, -20, 20, 5)
	cloud1 := MakeSurfaceScan(0, 40, 0, 40, 5)
	test.That(t, cloud0, test.ShouldNotBeNil)
	test.That(t, cloud1, test.ShouldNotBeNil)

	merged := New()
	err := ApplyOffset(cloud0, nil, merged)
	test.That(t, err, test.ShouldBeNil)
	err = ApplyOffset(cloud1, nil, merged)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, merged.Size(), test.ShouldBeLessThanOrEqualTo, cloud0.Size()+cloud1.Size())
	test.That(t, merged.Size(), test.ShouldBeLessThan, cloud0.Size()+cloud1.Size())
}
