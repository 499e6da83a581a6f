// Package elevation samples terrain heights for elevation-aware weighting.
package elevation

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/paulmach/orb"
	"golang.org/x/image/tiff"
)

// Model returns the terrain height in meters at p. ok is false when the
// model has no sample for p.
type Model interface {
	Elevation(p orb.Point) (meters float64, ok bool)
}

// Flat is a model without data; every lookup misses.
type Flat struct{}

func (Flat) Elevation(orb.Point) (float64, bool) { return 0, false }

// Grid is a north-up raster of heights covering Bound. Row 0 is the northern
// edge. Samples are looked up by nearest pixel.
type Grid struct {
	Bound   orb.Bound
	Width   int
	Height  int
	Samples []float64 // row-major, len Width*Height
}

// Elevation implements Model.
func (g *Grid) Elevation(p orb.Point) (float64, bool) {
	if g.Width == 0 || g.Height == 0 || !g.Bound.Contains(p) {
		return 0, false
	}
	x := pixel((p.Lon()-g.Bound.Min.Lon())/(g.Bound.Max.Lon()-g.Bound.Min.Lon()), g.Width)
	y := pixel((g.Bound.Max.Lat()-p.Lat())/(g.Bound.Max.Lat()-g.Bound.Min.Lat()), g.Height)
	return g.Samples[y*g.Width+x], true
}

// pixel maps a fraction in [0, 1] to the nearest of n pixel centers.
func pixel(frac float64, n int) int {
	i := int(math.Round(frac * float64(n-1)))
	return max(0, min(n-1, i))
}

// TIFFOption configures LoadTIFF.
type TIFFOption func(*tiffConfig)

type tiffConfig struct {
	signed bool
}

// Signed reads samples as two's complement int16. The TIFF decoder ignores
// the SampleFormat tag and always yields unsigned values, so DEMs with
// heights below zero need this.
func Signed() TIFFOption {
	return func(c *tiffConfig) { c.signed = true }
}

// LoadTIFF decodes a single-band TIFF (typically a 16-bit GeoTIFF DEM) whose
// pixels cover bound. Heights are value*scale + offset, where value is the
// unsigned 16-bit sample unless Signed is given.
func LoadTIFF(r io.Reader, bound orb.Bound, scale, offset float64, opts ...TIFFOption) (*Grid, error) {
	var cfg tiffConfig
	for _, o := range opts {
		o(&cfg)
	}
	if bound.Max.Lon() <= bound.Min.Lon() || bound.Max.Lat() <= bound.Min.Lat() {
		return nil, errors.New("elevation: empty bound")
	}
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("elevation: decode tiff: %w", err)
	}

	b := img.Bounds()
	g := &Grid{
		Bound:   bound,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Samples: make([]float64, b.Dx()*b.Dy()),
	}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := gray16(img, b.Min.X+x, b.Min.Y+y)
			sample := float64(v)
			if cfg.signed {
				sample = float64(int16(v))
			}
			g.Samples[y*g.Width+x] = sample*scale + offset
		}
	}
	return g, nil
}

// LoadTIFFFile is LoadTIFF for a path.
func LoadTIFFFile(path string, bound orb.Bound, scale, offset float64, opts ...TIFFOption) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elevation: open: %w", err)
	}
	defer f.Close()
	return LoadTIFF(f, bound, scale, offset, opts...)
}

func gray16(img image.Image, x, y int) uint16 {
	if g, ok := img.(*image.Gray16); ok {
		return g.Gray16At(x, y).Y
	}
	return color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
}
