package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// SurfaceHeight is the height field of the synthetic object surface used by
// tests across packages. It is smooth but curved enough in both directions
// for registration to lock on to.
func SurfaceHeight(x, y float64) float64 {
	return 12*math.Sin(x/23) + 9*math.Cos(y/17) + x*y/900
}

// MakeSurfaceScan samples the synthetic surface on a grid over the given
// region, like a structured scan of a real object would. Returns nil if a
// point cannot be stored.
func MakeSurfaceScan(xMin, xMax, yMin, yMax, step float64) PointCloud {
	pc := New()
	for x := xMin; x <= xMax; x += step {
		for y := yMin; y <= yMax; y += step {
			p := r3.Vector{X: x, Y: y, Z: SurfaceHeight(x, y)}
			if err := pc.Set(p, NewBasicData()); err != nil {
				return nil
			}
		}
	}
	return pc
}
