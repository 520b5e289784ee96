package registration

import (
	"context"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/scanstitch/scanstitch/pointcloud"
	"github.com/scanstitch/scanstitch/spatialmath"
)

// correspondence pairs a (moved) point of the registered cloud with its
// nearest neighbor in the reference.
type correspondence struct {
	moved   r3.Vector
	nearest r3.Vector
	dist    float64
}

// registerPair runs trimmed ICP, aligning the moving cloud onto the fixed
// reference tree. A nil seed starts from the identity.
func (c *PairwiseContext) registerPair(
	ctx context.Context,
	moving pointcloud.PointCloud,
	fixed *pointcloud.KDTree,
	seed spatialmath.Pose,
	maxPairDist float64,
) (ElementResult, error) {
	pose := seed
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}

	samples := subsample(moving, c.SubsampleStep)
	if len(samples) < minPointPairs || fixed.Size() < minPointPairs {
		return ElementResult{Status: StatusNotEnoughPointPairs, Pose: pose}, nil
	}

	keepFraction := math.Min(math.Max(c.Overlap, 0), 100) / 100

	prevRMS := math.Inf(1)
	pairs := make([]correspondence, 0, len(samples))
	for it := 1; it <= c.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return ElementResult{}, err
		}

		pairs = pairs[:0]
		for _, p := range samples {
			moved := spatialmath.TransformPoint(pose, p)
			nearest, _, dist, ok := fixed.NearestNeighbor(moved)
			if !ok || dist > maxPairDist {
				continue
			}
			pairs = append(pairs, correspondence{moved: moved, nearest: nearest, dist: dist})
		}

		// trim the worst correspondences down to the expected overlap
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].dist < pairs[j].dist })
		keep := int(math.Ceil(keepFraction * float64(len(pairs))))
		if keep > len(pairs) {
			keep = len(pairs)
		}
		if keep < minPointPairs {
			return ElementResult{Status: StatusNotEnoughPointPairs, Pose: pose, Iterations: it}, nil
		}
		kept := pairs[:keep]

		var sumSq float64
		for _, pair := range kept {
			sumSq += pair.dist * pair.dist
		}
		rms := math.Sqrt(sumSq / float64(keep))

		if c.RMSErrorThreshold > 0 && rms <= c.RMSErrorThreshold {
			return ElementResult{Status: StatusRMSErrorThresholdReached, Pose: pose, RMSError: rms, Iterations: it}, nil
		}
		if !math.IsInf(prevRMS, 1) {
			if prevRMS == 0 || math.Abs(prevRMS-rms)/prevRMS*100 <= c.RMSErrorRelativeThreshold {
				return ElementResult{Status: StatusRMSErrorRelativeThresholdReached, Pose: pose, RMSError: rms, Iterations: it}, nil
			}
		}
		prevRMS = rms

		increment := solveRigidTransform(kept)
		pose = spatialmath.Compose(increment, pose)
	}

	return ElementResult{
		Status:     StatusMaxIterationsReached,
		Pose:       pose,
		RMSError:   prevRMS,
		Iterations: c.MaxIterations,
	}, nil
}

// subsample keeps every step-th point of the cloud, in iteration order.
func subsample(cloud pointcloud.PointCloud, step int) []r3.Vector {
	if step < 1 {
		step = 1
	}
	samples := make([]r3.Vector, 0, cloud.Size()/step+1)
	i := 0
	cloud.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		if i%step == 0 {
			samples = append(samples, p)
		}
		i++
		return true
	})
	return samples
}

// solveRigidTransform computes the rigid transform best mapping the moved
// points onto their nearest neighbors, in the least squares sense (the
// Kabsch algorithm).
func solveRigidTransform(pairs []correspondence) spatialmath.Pose {
	n := float64(len(pairs))
	var srcCentroid, dstCentroid r3.Vector
	for _, pair := range pairs {
		srcCentroid = srcCentroid.Add(pair.moved)
		dstCentroid = dstCentroid.Add(pair.nearest)
	}
	srcCentroid = srcCentroid.Mul(1 / n)
	dstCentroid = dstCentroid.Mul(1 / n)

	// cross-covariance of the centered correspondences
	h := mat.NewDense(3, 3, nil)
	for _, pair := range pairs {
		s := pair.moved.Sub(srcCentroid)
		d := pair.nearest.Sub(dstCentroid)
		h.Set(0, 0, h.At(0, 0)+s.X*d.X)
		h.Set(0, 1, h.At(0, 1)+s.X*d.Y)
		h.Set(0, 2, h.At(0, 2)+s.X*d.Z)
		h.Set(1, 0, h.At(1, 0)+s.Y*d.X)
		h.Set(1, 1, h.At(1, 1)+s.Y*d.Y)
		h.Set(1, 2, h.At(1, 2)+s.Y*d.Z)
		h.Set(2, 0, h.At(2, 0)+s.Z*d.X)
		h.Set(2, 1, h.At(2, 1)+s.Z*d.Y)
		h.Set(2, 2, h.At(2, 2)+s.Z*d.Z)
	}

	var svd mat.SVD
	if !svd.Factorize(h, mat.SVDFull) {
		return spatialmath.NewZeroPose()
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var rot mat.Dense
	rot.Mul(&v, u.T())
	if mat.Det(&rot) < 0 {
		// reflection case: flip the axis of least significance
		flip := mat.NewDiagDense(3, []float64{1, 1, -1})
		var vf mat.Dense
		vf.Mul(&v, flip)
		rot.Mul(&vf, u.T())
	}

	rm := spatialmath.NewRotationMatrix([9]float64{
		rot.At(0, 0), rot.At(0, 1), rot.At(0, 2),
		rot.At(1, 0), rot.At(1, 1), rot.At(1, 2),
		rot.At(2, 0), rot.At(2, 1), rot.At(2, 2),
	})
	translation := dstCentroid.Sub(rm.Mul(srcCentroid))
	return spatialmath.NewPoseFromRotationMatrix(rm, translation)
}
