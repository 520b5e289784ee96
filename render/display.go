// Package render is a snapshot based 3D display: scenes of point clouds and
// wireframe overlays are projected orthographically and written out as PNG
// images, one per display.
package render

import (
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"github.com/fogleman/gg"
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/scanstitch/scanstitch/pointcloud"
	"github.com/scanstitch/scanstitch/spatialmath"
)

// ErrDisplayUnavailable is returned when snapshots cannot be written, which
// is this display's equivalent of a platform without 3D visualization.
var ErrDisplayUnavailable = errors.New("the current system does not support the 3D display")

// ColorComponent selects the point coordinate that drives pseudo-coloring of
// uncolored points.
type ColorComponent int

// The components points can be pseudo-colored by.
const (
	ComponentX ColorComponent = iota
	ComponentY
	ComponentZ
)

const defaultDisplaySize = 384

// margin in pixels kept around the projected scene
const sceneMargin = 12

type boxOverlay struct {
	box *spatialmath.Box
	c   color.NRGBA
}

// Display renders one scene. It is not safe for concurrent use.
type Display struct {
	title          string
	dir            string
	width, height  int
	posX, posY     int
	cloud          pointcloud.PointCloud
	overlays       []boxOverlay
	colorComponent ColorComponent
	pseudoColor    bool
	logger         golog.Logger
}

// NewDisplay allocates a display writing snapshots under dir. It fails with
// ErrDisplayUnavailable when dir cannot be created or written to.
func NewDisplay(dir, title string, logger golog.Logger) (*Display, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(ErrDisplayUnavailable, err.Error())
	}
	probe := filepath.Join(dir, ".displayprobe")
	if err := os.WriteFile(probe, nil, 0o600); err != nil {
		return nil, errors.Wrap(ErrDisplayUnavailable, err.Error())
	}
	if err := os.Remove(probe); err != nil {
		return nil, errors.Wrap(ErrDisplayUnavailable, err.Error())
	}
	return &Display{
		title:  title,
		dir:    dir,
		width:  defaultDisplaySize,
		height: defaultDisplaySize,
		logger: logger,
	}, nil
}

// SetSize sets the snapshot size in pixels.
func (d *Display) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// SetPosition records where the display window would sit on screen. Snapshot
// displays have no screen, so this is bookkeeping only.
func (d *Display) SetPosition(x, y int) {
	d.posX = x
	d.posY = y
}

// Title returns the display title.
func (d *Display) Title() string {
	return d.title
}

// ViewCloud attaches a point cloud to the scene, replacing any previous one.
func (d *Display) ViewCloud(cloud pointcloud.PointCloud) {
	d.cloud = cloud
}

// SetColorComponent enables pseudo-coloring of uncolored points by the given
// coordinate, through a rainbow gradient.
func (d *Display) SetColorComponent(component ColorComponent) {
	d.colorComponent = component
	d.pseudoColor = true
}

// AddBoxOverlay adds a wireframe box to the scene.
func (d *Display) AddBoxOverlay(box *spatialmath.Box, c color.NRGBA) {
	d.overlays = append(d.overlays, boxOverlay{box: box, c: c})
}

// ClearOverlays removes all wireframe overlays from the scene.
func (d *Display) ClearOverlays() {
	d.overlays = nil
}

// Snapshot renders the scene bottom-up (X right, Y up) and writes it as a
// PNG named after the display title. It returns the written path.
func (d *Display) Snapshot() (string, error) {
	dc := gg.NewContext(d.width, d.height)
	dc.SetRGB(0.07, 0.07, 0.1)
	dc.Clear()

	minPt, maxPt := d.sceneBounds()
	scale, originX, originY := d.fitScene(minPt, maxPt)

	project := func(p r3.Vector) (float64, float64) {
		return originX + (p.X-minPt.X)*scale, float64(d.height) - (originY + (p.Y-minPt.Y)*scale)
	}

	if d.cloud != nil {
		lo, hi := d.componentRange()
		d.cloud.Iterate(0, 0, func(p r3.Vector, data pointcloud.Data) bool {
			x, y := project(p)
			dc.SetColor(d.pointColor(p, data, lo, hi))
			dc.SetPixel(int(x), int(y))
			return true
		})
	}

	for _, overlay := range d.overlays {
		verts := overlay.box.Vertices()
		dc.SetColor(overlay.c)
		dc.SetLineWidth(1.5)
		for _, edge := range spatialmath.BoxEdges {
			x1, y1 := project(verts[edge[0]])
			x2, y2 := project(verts[edge[1]])
			dc.DrawLine(x1, y1, x2, y2)
		}
		dc.Stroke()
	}

	path := filepath.Join(d.dir, slug(d.title)+".png")
	if err := dc.SavePNG(path); err != nil {
		return "", errors.Wrapf(err, "failed to write snapshot for display %q", d.title)
	}
	d.logger.Debugw("wrote display snapshot", "display", d.title, "path", path)
	return path, nil
}

// Close releases the display. Snapshots already written stay on disk.
func (d *Display) Close() error {
	d.cloud = nil
	d.overlays = nil
	return nil
}

func (d *Display) sceneBounds() (r3.Vector, r3.Vector) {
	minPt := r3.Vector{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64}
	maxPt := minPt.Mul(-1)
	expand := func(p r3.Vector) {
		minPt.X = math.Min(minPt.X, p.X)
		minPt.Y = math.Min(minPt.Y, p.Y)
		minPt.Z = math.Min(minPt.Z, p.Z)
		maxPt.X = math.Max(maxPt.X, p.X)
		maxPt.Y = math.Max(maxPt.Y, p.Y)
		maxPt.Z = math.Max(maxPt.Z, p.Z)
	}

	if d.cloud != nil && d.cloud.Size() > 0 {
		meta := d.cloud.MetaData()
		expand(r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ})
		expand(r3.Vector{X: meta.MaxX, Y: meta.MaxY, Z: meta.MaxZ})
	}
	for _, overlay := range d.overlays {
		for _, v := range overlay.box.Vertices() {
			expand(v)
		}
	}
	if minPt.X > maxPt.X {
		return r3.Vector{X: -1, Y: -1, Z: -1}, r3.Vector{X: 1, Y: 1, Z: 1}
	}
	return minPt, maxPt
}

func (d *Display) fitScene(minPt, maxPt r3.Vector) (scale, originX, originY float64) {
	dx := maxPt.X - minPt.X
	dy := maxPt.Y - minPt.Y
	if dx == 0 {
		dx = 1
	}
	if dy == 0 {
		dy = 1
	}
	scale = math.Min(
		(float64(d.width)-2*sceneMargin)/dx,
		(float64(d.height)-2*sceneMargin)/dy,
	)
	// center the scene
	originX = (float64(d.width) - dx*scale) / 2
	originY = (float64(d.height) - dy*scale) / 2
	return scale, originX, originY
}

func (d *Display) componentRange() (float64, float64) {
	if d.cloud == nil || d.cloud.Size() == 0 {
		return 0, 1
	}
	meta := d.cloud.MetaData()
	switch d.colorComponent {
	case ComponentX:
		return meta.MinX, meta.MaxX
	case ComponentY:
		return meta.MinY, meta.MaxY
	default:
		return meta.MinZ, meta.MaxZ
	}
}

func (d *Display) pointColor(p r3.Vector, data pointcloud.Data, lo, hi float64) color.Color {
	if data != nil && data.HasColor() {
		r, g, b := data.RGB255()
		return color.NRGBA{r, g, b, 255}
	}
	if !d.pseudoColor {
		return color.NRGBA{200, 200, 200, 255}
	}
	var v float64
	switch d.colorComponent {
	case ComponentX:
		v = p.X
	case ComponentY:
		v = p.Y
	default:
		v = p.Z
	}
	t := 0.0
	if hi > lo {
		t = (v - lo) / (hi - lo)
	}
	// blue for the low end of the range through red for the high end
	return colorful.Hsv(240*(1-t), 1, 1)
}

func slug(title string) string {
	s := strings.ToLower(title)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
	return strings.Trim(s, "_")
}
