package stitching

import (
	"bufio"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/scanstitch/scanstitch/pointcloud"
	"github.com/scanstitch/scanstitch/registration"
	"github.com/scanstitch/scanstitch/render"
	"github.com/scanstitch/scanstitch/spatialmath"
)

// Cloud roles within the workflow.
const (
	eSource = iota
	eTarget
	eStitched
)

const numPointClouds = 2

var displayTitles = [3]string{
	"Reference partial point cloud",
	"Target partial point cloud",
	"Stitched point cloud",
}

// Flat colors marking each scan's provenance in the stitched cloud.
var (
	sourceColor = color.NRGBA{135, 165, 235, 255}
	targetColor = color.NRGBA{75, 125, 215, 255}
)

var overlayWhite = color.NRGBA{255, 255, 255, 255}

// Workflow is the sequential stitching orchestrator: load two partial scans,
// register them in two passes over their expected overlap region, and merge
// them into one cloud.
type Workflow struct {
	cfg    Config
	logger golog.Logger

	input *bufio.Reader

	registrationCalls int
	stitched          pointcloud.PointCloud
}

// NewWorkflow creates a workflow from a config.
func NewWorkflow(cfg Config, logger golog.Logger) *Workflow {
	w := &Workflow{cfg: cfg, logger: logger}
	if cfg.Input != nil {
		w.input = bufio.NewReader(cfg.Input)
	}
	return w
}

// Stitched returns the stitched cloud of the last completed run, or nil.
func (w *Workflow) Stitched() pointcloud.PointCloud {
	return w.stitched
}

// Run executes the whole stitching sequence. Registration failures are
// reported and rendered, not returned; only missing inputs, unavailable
// displays, and internal errors abort the run.
func (w *Workflow) Run(ctx context.Context) (err error) {
	cfg := &w.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	if _, statErr := os.Stat(cfg.ReferenceFile); statErr != nil {
		return &MissingInputError{Path: cfg.ReferenceFile}
	}

	w.logger.Info("The reference and target point clouds are being restored...")
	clouds := make([]pointcloud.PointCloud, numPointClouds)
	if clouds[eSource], err = pointcloud.NewFromFile(cfg.ReferenceFile, w.logger); err != nil {
		return errors.Wrapf(err, "failed to restore %s", cfg.ReferenceFile)
	}
	if clouds[eTarget], err = pointcloud.NewFromFile(cfg.TargetFile, w.logger); err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return &MissingInputError{Path: cfg.TargetFile}
		}
		return errors.Wrapf(err, "failed to restore %s", cfg.TargetFile)
	}
	w.logger.Info("done.")

	displays, err := w.openDisplays()
	if err != nil {
		return err
	}
	defer func() {
		for _, d := range displays {
			err = multierr.Combine(err, d.Close())
		}
	}()

	for p := 0; p < numPointClouds; p++ {
		displays[p].ViewCloud(clouds[p])
		displays[p].SetColorComponent(render.ComponentZ)
	}

	sourceTotalPoints := pointcloud.CountValidPoints(clouds[eSource])

	// The extraction box is first sized with the conservative used-overlap
	// fraction; it is narrowed to the nominal fraction before the overlap
	// percentage is re-estimated.
	overlapBox, err := w.overlapBox(cfg.boxUsedOverlap())
	if err != nil {
		return err
	}

	for p := 0; p < numPointClouds; p++ {
		displays[p].AddBoxOverlay(overlapBox, overlayWhite)
		if _, err := displays[p].Snapshot(); err != nil {
			return err
		}
	}

	w.logger.Info("The object's reference and target scans are displayed using pseudo colors.")
	w.logger.Info("A white box is displayed to show the expected common overlap region for both partial point clouds.")
	w.waitForKeyPress("Press <Enter> to perform the registration.")

	// Pass 1: coarse pre-registration over the cropped overlap region.
	regContext := registration.NewPairwiseContext()
	regContext.SubsampleStep = cfg.DecimationStep
	regContext.MaxIterations = cfg.MaxIterations
	regContext.RMSErrorRelativeThreshold = cfg.RMSErrorRelativeThreshold
	regContext.Metric = registration.PointToPoint
	regContext.Overlap = cfg.Overlap

	cropped, err := cropAll(clouds, overlapBox)
	if err != nil {
		return err
	}

	start := time.Now()
	preregistration, err := w.calculate(ctx, regContext, cropped)
	if err != nil {
		return err
	}

	// Narrow the box to the literal nominal overlap and re-estimate how much
	// of the full source cloud falls inside it.
	overlapBox, err = w.overlapBox(cfg.BoxOverlap)
	if err != nil {
		return err
	}
	sourceOverlapPoints := pointcloud.CountWithinDistanceOfBox(clouds[eSource], overlapBox, 0)
	overlapEstimate := fullModelOverlap(sourceOverlapPoints, sourceTotalPoints, cfg.Overlap)
	w.logger.Debugw("re-estimated overlap",
		"sourceOverlapPoints", sourceOverlapPoints,
		"sourceTotalPoints", sourceTotalPoints,
		"fullModelOverlap", overlapEstimate)

	// Pass 2: refined registration seeded with the coarse transform.
	if cropped, err = cropAll(clouds, overlapBox); err != nil {
		return err
	}
	regContext.Overlap = overlapEstimate
	if err := regContext.SetLocation(eTarget, eSource, preregistration.Pose(eTarget)); err != nil {
		return err
	}
	result, err := w.calculate(ctx, regContext, cropped)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	w.logger.Info("The 3D stitching between the two partial point clouds has been performed with")
	w.logger.Info("the help of the points within the expected common overlap regions.")

	targetElement, err := result.Element(eTarget)
	if err != nil {
		return err
	}
	w.reportStatus(targetElement, elapsed)

	// Stitching: recolor the full clouds to mark provenance and merge them
	// with the computed transform, whatever its quality.
	colored := make([]pointcloud.PointCloud, numPointClouds)
	if colored[eSource], err = pointcloud.Colorize(clouds[eSource], sourceColor); err != nil {
		return err
	}
	if colored[eTarget], err = pointcloud.Colorize(clouds[eTarget], targetColor); err != nil {
		return err
	}

	stitched := pointcloud.NewBasicPointCloud(colored[eSource].Size() + colored[eTarget].Size())
	if err := registration.MergeRegistered(result, colored, stitched); err != nil {
		return err
	}
	w.stitched = stitched

	usedOverlapBox, err := w.overlapBox(cfg.boxUsedOverlap())
	if err != nil {
		return err
	}
	displays[eStitched].ViewCloud(stitched)
	displays[eStitched].AddBoxOverlay(usedOverlapBox, overlayWhite)
	if _, err := displays[eStitched].Snapshot(); err != nil {
		return err
	}

	if cfg.StitchedOutputFile != "" {
		if err := w.writeStitched(stitched); err != nil {
			return err
		}
	}

	w.logger.Info("The two point clouds have been stitched into a single point cloud.")
	w.logger.Info("The resulting stitched point cloud is displayed.")
	w.logger.Info("A white rectangular box shows the original overlap region.")
	w.waitForKeyPress("Press <Enter> to end.")
	return nil
}

// openDisplays allocates the three displays and lays their windows out the
// way the demo arranges them: inputs side by side, result centered below.
func (w *Workflow) openDisplays() ([]*render.Display, error) {
	cfg := &w.cfg
	displays := make([]*render.Display, 0, len(displayTitles))
	for d, title := range displayTitles {
		display, err := render.NewDisplay(cfg.SnapshotDir, title, w.logger)
		if err != nil {
			return nil, err
		}
		display.SetSize(cfg.DisplaySizeX, cfg.DisplaySizeY)
		display.SetPosition(d*(cfg.WindowOffsetX+cfg.DisplaySizeX), 0)
		displays = append(displays, display)
	}
	displays[eStitched].SetPosition(
		cfg.WindowOffsetX/2+cfg.DisplaySizeX/2,
		cfg.WindowOffsetY+cfg.DisplaySizeY,
	)
	return displays, nil
}

// overlapBox builds the extraction box centered at the origin with its
// Y-extent scaled by the given overlap fraction.
func (w *Workflow) overlapBox(overlapFraction float64) (*spatialmath.Box, error) {
	cfg := &w.cfg
	return spatialmath.NewBox(
		spatialmath.NewZeroPose(),
		r3.Vector{
			X: cfg.ExtractionBoxSizeX,
			Y: cfg.ExtractionBoxSizeY * overlapFraction,
			Z: cfg.ExtractionBoxSizeZ,
		},
		"overlap region",
	)
}

// fullModelOverlap derives the refined pass's overlap percentage from the
// fraction of source points inside the nominal overlap box. It stays within
// [0, overlap] for any counts with 0 <= overlapPoints <= totalPoints.
func fullModelOverlap(overlapPoints, totalPoints int, overlap float64) float64 {
	if totalPoints <= 0 {
		return 0
	}
	return float64(overlapPoints) / float64(totalPoints) * overlap
}

func cropAll(clouds []pointcloud.PointCloud, box *spatialmath.Box) ([]pointcloud.PointCloud, error) {
	cropped := make([]pointcloud.PointCloud, len(clouds))
	for i, cloud := range clouds {
		var err error
		if cropped[i], err = pointcloud.CropToBox(cloud, box); err != nil {
			return nil, err
		}
	}
	return cropped, nil
}

func (w *Workflow) calculate(
	ctx context.Context,
	regContext *registration.PairwiseContext,
	clouds []pointcloud.PointCloud,
) (*registration.PairwiseResult, error) {
	w.registrationCalls++
	return regContext.Calculate(ctx, clouds)
}

// reportStatus interprets the target element's terminal status. No status
// aborts the workflow; the stitched result is rendered regardless.
func (w *Workflow) reportStatus(elem registration.ElementResult, elapsed time.Duration) {
	switch elem.Status {
	case registration.StatusNotInitialized:
		w.logger.Error("Registration failed: the registration result is not initialized.")
	case registration.StatusNotEnoughPointPairs:
		w.logger.Error("Registration failed: point clouds are not overlapping.")
	case registration.StatusMaxIterationsReached:
		w.logger.Warnf("Registration reached the maximum number of iterations allowed (%d) in %.2f ms. "+
			"Resulting fixture may or may not be valid.",
			w.cfg.MaxIterations, float64(elapsed.Microseconds())/1000.0)
	case registration.StatusRMSErrorThresholdReached, registration.StatusRMSErrorRelativeThresholdReached:
		w.logger.Infof("The registration of the two partial point clouds succeeded in %.2f ms "+
			"with a final RMS error of %f mm.",
			float64(elapsed.Microseconds())/1000.0, elem.RMSError)
	default:
		w.logger.Warn("Unknown registration status.")
	}
}

func (w *Workflow) writeStitched(stitched pointcloud.PointCloud) (err error) {
	f, err := os.Create(filepath.Clean(w.cfg.StitchedOutputFile))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	w.logger.Infof("Writing the stitched point cloud to %s.", w.cfg.StitchedOutputFile)
	return pointcloud.ToPCD(stitched, f, pointcloud.PCDBinary)
}

// waitForKeyPress blocks until a line of input arrives, purely for demo
// pacing.
func (w *Workflow) waitForKeyPress(prompt string) {
	if w.cfg.NonInteractive || w.input == nil {
		return
	}
	w.logger.Info(prompt)
	_, err := w.input.ReadString('\n')
	utils.UncheckedError(err)
}
