// Package main is a demonstration of 3D surface registration: it registers
// two partial point clouds of an object and stitches them into a single
// complete point cloud.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	"github.com/scanstitch/scanstitch/stitching"
)

var logger = golog.NewDevelopmentLogger("stitch")

func printHeader() {
	fmt.Println("[EXAMPLE NAME]")
	fmt.Println("Simple 3D stitching")
	fmt.Println()
	fmt.Println("[SYNOPSIS]")
	fmt.Println("This example demonstrates how to use 3D surface registration")
	fmt.Println("to register two partial point clouds of a 3D object and")
	fmt.Println("stitch them into a single complete point cloud.")
	fmt.Println()
}

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	imageDir := flags.String("images", "images/Simple3dStitching", "directory holding the reference and target scans")
	snapshotDir := flags.String("out", "snapshots", "directory the display snapshots are written to")
	stitchedOut := flags.String("stitched", "", "optional path to write the stitched cloud to as PCD")
	nonInteractive := flags.Bool("noninteractive", false, "do not pause for key presses between stages")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	printHeader()

	cfg := stitching.DefaultConfig(*imageDir, *snapshotDir)
	cfg.StitchedOutputFile = *stitchedOut
	cfg.NonInteractive = *nonInteractive
	cfg.Input = os.Stdin

	return stitching.NewWorkflow(cfg, logger).Run(ctx)
}
