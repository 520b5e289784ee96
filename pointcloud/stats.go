package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/scanstitch/scanstitch/spatialmath"
)

// CountValidPoints returns the number of points in the cloud with finite
// coordinates.
func CountValidPoints(cloud PointCloud) int {
	count := 0
	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		if !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsNaN(p.Z) &&
			!math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0) && !math.IsInf(p.Z, 0) {
			count++
		}
		return true
	})
	return count
}

// CountWithinDistanceOfBox returns the number of points whose signed distance
// to the box surface is less than or equal to the threshold. A threshold of 0
// counts the points in or on the box.
func CountWithinDistanceOfBox(cloud PointCloud, box *spatialmath.Box, threshold float64) int {
	count := 0
	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		if box.SignedDistance(p) <= threshold {
			count++
		}
		return true
	})
	return count
}
