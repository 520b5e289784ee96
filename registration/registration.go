// Package registration computes rigid transforms that align point clouds
// sharing geometry, and merges aligned clouds into one.
//
// Registration is pairwise: every cloud after the first is registered onto
// the first (the reference). The solver is a trimmed iterative closest point:
// correspondences come from a k-d tree over the reference, the worst pairs
// are discarded down to the configured overlap percentage, and each
// iteration's rigid update is solved in closed form.
package registration

import (
	"context"

	"github.com/pkg/errors"

	"github.com/scanstitch/scanstitch/pointcloud"
	"github.com/scanstitch/scanstitch/spatialmath"
)

// ErrorMetric selects how the alignment error is measured.
type ErrorMetric int

// PointToPoint minimizes the distance between corresponding points. It is
// the only supported metric.
const PointToPoint ErrorMetric = iota

// Registration defaults.
const (
	DefaultSubsampleStep             = 8
	DefaultOverlap                   = 95.0
	DefaultMaxIterations             = 100
	DefaultRMSErrorRelativeThreshold = 0.5 // percent
)

// the fewest correspondences a rigid transform can be solved from
const minPointPairs = 3

type pairKey struct {
	target, reference int
}

// PairwiseContext holds the configuration of a pairwise registration. A
// context is allocated once, adjusted between passes, and reused across
// Calculate calls.
type PairwiseContext struct {
	// SubsampleStep keeps every Nth point of the clouds being registered to
	// yield faster results.
	SubsampleStep int

	// Overlap is the percentage of the registered cloud's points expected to
	// have a true counterpart in the reference. Pairs beyond it are trimmed.
	Overlap float64

	// MaxIterations caps the ICP loop.
	MaxIterations int

	// RMSErrorThreshold stops iterating when the RMS error drops to this
	// absolute value. Zero disables the absolute check.
	RMSErrorThreshold float64

	// RMSErrorRelativeThreshold stops iterating when the RMS error improves
	// by less than this percentage between iterations.
	RMSErrorRelativeThreshold float64

	// MaxPairDistance rejects correspondences farther apart than this. Zero
	// derives a limit from the clouds' bounding boxes.
	MaxPairDistance float64

	// Metric selects the error minimization metric.
	Metric ErrorMetric

	seeds map[pairKey]spatialmath.Pose
}

// NewPairwiseContext returns a context with the default controls.
func NewPairwiseContext() *PairwiseContext {
	return &PairwiseContext{
		SubsampleStep:             DefaultSubsampleStep,
		Overlap:                   DefaultOverlap,
		MaxIterations:             DefaultMaxIterations,
		RMSErrorRelativeThreshold: DefaultRMSErrorRelativeThreshold,
		Metric:                    PointToPoint,
		seeds:                     map[pairKey]spatialmath.Pose{},
	}
}

// SetLocation seeds the next Calculate with an initial estimate of the target
// cloud's location relative to the reference cloud, typically the result of a
// previous coarse pass.
func (c *PairwiseContext) SetLocation(target, reference int, seed spatialmath.Pose) error {
	if target == reference {
		return errors.Errorf("cannot seed element %d relative to itself", target)
	}
	if reference != 0 {
		return errors.Errorf("only the first element can be the reference, got %d", reference)
	}
	c.seeds[pairKey{target, reference}] = seed
	return nil
}

// Calculate registers every cloud after the first onto the first and returns
// the per-element results. Degenerate inputs (too few points, no overlap)
// are reported through the element status, not as errors.
func (c *PairwiseContext) Calculate(ctx context.Context, clouds []pointcloud.PointCloud) (*PairwiseResult, error) {
	if len(clouds) < 2 {
		return nil, errors.Errorf("pairwise registration requires at least 2 point clouds, got %d", len(clouds))
	}
	if c.Metric != PointToPoint {
		return nil, errors.Errorf("unsupported error minimization metric %d", c.Metric)
	}

	reference := clouds[0]
	referenceTree := pointcloud.ToKDTree(reference)

	result := &PairwiseResult{elements: make([]ElementResult, len(clouds))}
	result.elements[0] = ElementResult{Pose: spatialmath.NewZeroPose()}

	for i := 1; i < len(clouds); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		maxPairDist := c.MaxPairDistance
		if maxPairDist == 0 {
			maxPairDist = autoPairDistance(reference, clouds[i])
		}
		seed := c.seeds[pairKey{i, 0}]
		elem, err := c.registerPair(ctx, clouds[i], referenceTree, seed, maxPairDist)
		if err != nil {
			return nil, err
		}
		result.elements[i] = elem
	}
	return result, nil
}

// autoPairDistance derives a correspondence rejection limit from the clouds'
// bounding boxes. Clouds with no spatial relationship at all produce nearest
// neighbors far beyond this limit.
func autoPairDistance(a, b pointcloud.PointCloud) float64 {
	aMeta := a.MetaData()
	bMeta := b.MetaData()
	diag := aMeta.BoundsDiagonal()
	if d := bMeta.BoundsDiagonal(); d > diag {
		diag = d
	}
	if diag == 0 {
		return 1
	}
	return 0.75 * diag
}
