package pointcloud

import (
	"github.com/golang/geo/r3"

	"github.com/scanstitch/scanstitch/spatialmath"
)

// CropToBox returns a new cloud containing only the points of the input that
// lie in or on the given box. The input cloud is left untouched.
func CropToBox(cloud PointCloud, box *spatialmath.Box) (PointCloud, error) {
	cropped := New()
	var err error
	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		if !box.Contains(p) {
			return true
		}
		err = cropped.Set(p, d)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return cropped, nil
}
