package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PointAndData is a position and its associated data.
type PointAndData struct {
	P r3.Vector
	D Data
}

type storage interface {
	Size() int
	Set(p r3.Vector, d Data) error
	Unset(x, y, z float64)
	At(x, y, z float64) (Data, bool)
	Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool)
}

// Positions outside this range cannot be stored exactly in a float64 and are
// rejected to keep lookups by position reliable.
const (
	maxPreciseFloat64 = float64(1 << 52)
	minPreciseFloat64 = -float64(1 << 52)
)

// matrixStorage keeps points in insertion order in a slice, with a map from
// position to slice index for constant time lookup.
type matrixStorage struct {
	points   []PointAndData
	indexMap map[r3.Vector]uint
}

func (ms *matrixStorage) Size() int {
	return len(ms.points)
}

func (ms *matrixStorage) Set(p r3.Vector, d Data) error {
	if p.X > maxPreciseFloat64 || p.X < minPreciseFloat64 ||
		p.Y > maxPreciseFloat64 || p.Y < minPreciseFloat64 ||
		p.Z > maxPreciseFloat64 || p.Z < minPreciseFloat64 {
		return errors.Errorf("point %v is out of the precise storage range [%f, %f]",
			p, minPreciseFloat64, maxPreciseFloat64)
	}
	if idx, found := ms.indexMap[p]; found {
		ms.points[idx].D = d
		return nil
	}
	ms.points = append(ms.points, PointAndData{P: p, D: d})
	ms.indexMap[p] = uint(len(ms.points) - 1)
	return nil
}

func (ms *matrixStorage) Unset(x, y, z float64) {
	p := r3.Vector{X: x, Y: y, Z: z}
	idx, found := ms.indexMap[p]
	if !found {
		return
	}
	last := uint(len(ms.points) - 1)
	if idx != last {
		ms.points[idx] = ms.points[last]
		ms.indexMap[ms.points[idx].P] = idx
	}
	ms.points = ms.points[:last]
	delete(ms.indexMap, p)
}

func (ms *matrixStorage) At(x, y, z float64) (Data, bool) {
	idx, found := ms.indexMap[r3.Vector{X: x, Y: y, Z: z}]
	if !found {
		return nil, false
	}
	return ms.points[idx].D, true
}

func (ms *matrixStorage) Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool) {
	if numBatches <= 0 {
		for _, pd := range ms.points {
			if !fn(pd.P, pd.D) {
				return
			}
		}
		return
	}

	batchSize := int(math.Ceil(float64(len(ms.points)) / float64(numBatches)))
	start := myBatch * batchSize
	end := start + batchSize
	if start > len(ms.points) {
		return
	}
	if end > len(ms.points) {
		end = len(ms.points)
	}
	for _, pd := range ms.points[start:end] {
		if !fn(pd.P, pd.D) {
			return
		}
	}
}
