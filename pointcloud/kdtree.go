package pointcloud

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
)

// KDTree is a k-d tree over the points of a cloud, supporting nearest
// neighbor queries. The tree is immutable once built.
type KDTree struct {
	root *kdNode
	size int
}

type kdNode struct {
	point       PointAndData
	left, right *kdNode
}

// ToKDTree creates a KDTree from an input PointCloud.
func ToKDTree(pc PointCloud) *KDTree {
	points := make([]PointAndData, 0, pc.Size())
	pc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		points = append(points, PointAndData{P: p, D: d})
		return true
	})
	return &KDTree{
		root: buildKDNode(points, 0),
		size: len(points),
	}
}

// Size returns the number of points in the tree.
func (t *KDTree) Size() int {
	return t.size
}

func buildKDNode(points []PointAndData, depth int) *kdNode {
	if len(points) == 0 {
		return nil
	}
	axis := depth % 3
	sort.Slice(points, func(i, j int) bool {
		return axisValue(points[i].P, axis) < axisValue(points[j].P, axis)
	})
	median := len(points) / 2
	return &kdNode{
		point: points[median],
		left:  buildKDNode(points[:median], depth+1),
		right: buildKDNode(points[median+1:], depth+1),
	}
}

func axisValue(p r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// NearestNeighbor returns the point in the tree closest to the given point,
// its data, and the distance between them. The last return is false when the
// tree is empty.
func (t *KDTree) NearestNeighbor(p r3.Vector) (r3.Vector, Data, float64, bool) {
	if t.root == nil {
		return r3.Vector{}, nil, 0, false
	}
	best := t.root.point
	bestDistSq := p.Sub(best.P).Norm2()
	t.root.nearest(p, 0, &best, &bestDistSq)
	return best.P, best.D, math.Sqrt(bestDistSq), true
}

func (n *kdNode) nearest(p r3.Vector, depth int, best *PointAndData, bestDistSq *float64) {
	if n == nil {
		return
	}
	if distSq := p.Sub(n.point.P).Norm2(); distSq < *bestDistSq {
		*best = n.point
		*bestDistSq = distSq
	}

	axis := depth % 3
	delta := axisValue(p, axis) - axisValue(n.point.P, axis)
	near, far := n.left, n.right
	if delta > 0 {
		near, far = far, near
	}
	near.nearest(p, depth+1, best, bestDistSq)
	// the far subtree can only help if the splitting plane is closer than the
	// best match so far
	if delta*delta < *bestDistSq {
		far.nearest(p, depth+1, best, bestDistSq)
	}
}
