package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"

	"github.com/scanstitch/scanstitch/spatialmath"
)

// ApplyOffset moves every point of a cloud by a pose and adds the results to
// the output cloud.
func ApplyOffset(src PointCloud, offset spatialmath.Pose, out PointCloud) error {
	if offset == nil {
		offset = spatialmath.NewZeroPose()
	}
	var err error
	src.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		err = out.Set(spatialmath.TransformPoint(offset, p), d)
		return err == nil
	})
	return err
}

// Colorize returns a copy of the cloud with any existing per-point color
// stripped and replaced by the given flat color.
func Colorize(cloud PointCloud, c color.NRGBA) (PointCloud, error) {
	colored := NewBasicPointCloud(cloud.Size())
	var err error
	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		err = colored.Set(p, NewColoredData(c))
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return colored, nil
}

// mergePalette is cycled through by MergePointCloudsWithColor to make each
// input cloud's provenance visible in the merged cloud.
var mergePalette = []color.NRGBA{
	{255, 0, 0, 255},
	{0, 255, 0, 255},
	{0, 0, 255, 255},
	{255, 255, 0, 255},
	{0, 255, 255, 255},
	{255, 0, 255, 255},
}

// MergePointCloudsWithColor merges the input clouds into one output cloud,
// assigning every point of each input a distinct flat color.
func MergePointCloudsWithColor(clouds []PointCloud, out PointCloud) error {
	for i, cloud := range clouds {
		c := mergePalette[i%len(mergePalette)]
		var err error
		cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
			err = out.Set(p, NewColoredData(c))
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
