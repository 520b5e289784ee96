// Package stitching registers two partial point cloud scans of an object and
// stitches them into a single complete point cloud.
package stitching

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/pkg/errors"
)

// Default workflow parameters. The extraction box is sized to the scanned
// object; the overlap fractions describe how much of the two scans is
// expected to cover common geometry.
const (
	DefaultExtractionBoxSizeX = 170.0
	DefaultExtractionBoxSizeY = 200.0
	DefaultExtractionBoxSizeZ = -66.0

	// DefaultBoxOverlap is the nominal fraction of the scans expected to
	// overlap along Y.
	DefaultBoxOverlap = 0.20

	DefaultDecimationStep            = 8
	DefaultOverlap                   = 95.0 // percent
	DefaultMaxIterations             = 100
	DefaultRMSErrorRelativeThreshold = 0.5 // percent

	DefaultDisplaySize   = 384
	DefaultWindowOffsetX = 15
	DefaultWindowOffsetY = 40
)

// Default input scan file names under the images directory.
const (
	ReferenceScanName = "StitchReference.ply"
	TargetScanName    = "StitchTarget.ply"
)

// Config carries everything a stitching run needs.
type Config struct {
	// ReferenceFile and TargetFile are the two partial scans. The reference
	// is the frame the target is registered into.
	ReferenceFile string
	TargetFile    string

	// SnapshotDir is where the display snapshots are written.
	SnapshotDir string

	// StitchedOutputFile, when set, receives the stitched cloud as binary PCD.
	StitchedOutputFile string

	// NonInteractive skips the key-press pauses between stages.
	NonInteractive bool

	// Input is where pauses read a key press from, typically os.Stdin.
	Input io.Reader

	ExtractionBoxSizeX float64
	ExtractionBoxSizeY float64
	ExtractionBoxSizeZ float64
	BoxOverlap         float64

	DecimationStep            int
	Overlap                   float64
	MaxIterations             int
	RMSErrorRelativeThreshold float64

	DisplaySizeX  int
	DisplaySizeY  int
	WindowOffsetX int
	WindowOffsetY int
}

// DefaultConfig returns the demo configuration against an images directory.
func DefaultConfig(imageDir, snapshotDir string) Config {
	return Config{
		ReferenceFile:             filepath.Join(imageDir, ReferenceScanName),
		TargetFile:                filepath.Join(imageDir, TargetScanName),
		SnapshotDir:               snapshotDir,
		ExtractionBoxSizeX:        DefaultExtractionBoxSizeX,
		ExtractionBoxSizeY:        DefaultExtractionBoxSizeY,
		ExtractionBoxSizeZ:        DefaultExtractionBoxSizeZ,
		BoxOverlap:                DefaultBoxOverlap,
		DecimationStep:            DefaultDecimationStep,
		Overlap:                   DefaultOverlap,
		MaxIterations:             DefaultMaxIterations,
		RMSErrorRelativeThreshold: DefaultRMSErrorRelativeThreshold,
		DisplaySizeX:              DefaultDisplaySize,
		DisplaySizeY:              DefaultDisplaySize,
		WindowOffsetX:             DefaultWindowOffsetX,
		WindowOffsetY:             DefaultWindowOffsetY,
	}
}

// Validate checks the fields a run cannot proceed without.
func (c *Config) Validate() error {
	if c.ReferenceFile == "" || c.TargetFile == "" {
		return errors.New("both a reference and a target scan file are required")
	}
	if c.SnapshotDir == "" {
		return errors.New("a snapshot directory is required")
	}
	if c.ExtractionBoxSizeX == 0 || c.ExtractionBoxSizeY == 0 || c.ExtractionBoxSizeZ == 0 {
		return errors.New("extraction box dimensions cannot be zero")
	}
	if c.BoxOverlap <= 0 || c.BoxOverlap > 1 {
		return errors.Errorf("box overlap must be in (0, 1], got %f", c.BoxOverlap)
	}
	if c.Overlap <= 0 || c.Overlap > 100 {
		return errors.Errorf("overlap percentage must be in (0, 100], got %f", c.Overlap)
	}
	if c.DecimationStep < 1 {
		return errors.Errorf("decimation step must be at least 1, got %d", c.DecimationStep)
	}
	if c.MaxIterations < 1 {
		return errors.Errorf("at least one registration iteration is required, got %d", c.MaxIterations)
	}
	if c.DisplaySizeX < 1 || c.DisplaySizeY < 1 {
		return errors.New("display size must be positive")
	}
	return nil
}

// boxUsedOverlap is the conservative overlap fraction the extraction box is
// first sized with, 90% of the nominal overlap.
func (c *Config) boxUsedOverlap() float64 {
	return 0.9 * c.BoxOverlap
}

// MissingInputError is returned when a required input scan is absent.
type MissingInputError struct {
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("the point cloud file needed to run this example is missing: %s", e.Path)
}
