package preview

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	m "github.com/Faultbox/densitybaker/pkg/math"
	"github.com/Faultbox/densitybaker/pkg/volume"
)

// maxRadius is the distance from the cube centre to a corner.
var maxRadius = math.Sqrt(3) / 2

// RadialProfile returns the mean density of g in bins equally spaced by
// distance from the cube centre. Empty bins are omitted.
func RadialProfile(g *volume.PackedGrid, bins int) plotter.XYs {
	if g == nil || g.R <= 0 || bins <= 0 {
		return nil
	}
	sum := make([]float64, bins)
	count := make([]int, bins)

	r := g.R
	for z := 0; z < r; z++ {
		for y := 0; y < r; y++ {
			for x := 0; x < r; x++ {
				d := float64(m.VoxelCenter(x, y, z, r).Distance(m.Center))
				b := int(d / maxRadius * float64(bins))
				if b >= bins {
					b = bins - 1
				}
				sum[b] += float64(g.At(x, y, z))
				count[b]++
			}
		}
	}

	pts := make(plotter.XYs, 0, bins)
	for b := range sum {
		if count[b] == 0 {
			continue
		}
		pts = append(pts, plotter.XY{
			X: (float64(b) + 0.5) / float64(bins) * maxRadius,
			Y: sum[b] / float64(count[b]),
		})
	}
	return pts
}

// ProfilePlot builds the radial profile plot of g with a reference line at
// the surface density 0.5.
func ProfilePlot(g *volume.PackedGrid, title string) (*plot.Plot, error) {
	if g == nil {
		return nil, fmt.Errorf("empty grid")
	}
	pts := RadialProfile(g, max(g.R/2, 4))
	if len(pts) == 0 {
		return nil, fmt.Errorf("empty grid")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Distance from centre"
	p.Y.Label.Text = "Mean density"
	p.Y.Min = 0
	p.Y.Max = 1

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{R: 30, G: 90, B: 200, A: 255}
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("density", line)

	surface, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0.5}, {X: maxRadius, Y: 0.5}})
	if err != nil {
		return nil, err
	}
	surface.Color = color.RGBA{R: 200, G: 60, B: 60, A: 255}
	surface.Width = vg.Points(1)
	surface.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(surface)
	p.Legend.Add("surface", surface)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p, nil
}

// WriteProfilePlot saves the radial profile of g at path. The image format
// follows the extension (.png, .svg, .pdf).
func WriteProfilePlot(path string, g *volume.PackedGrid, title string) error {
	p, err := ProfilePlot(g, title)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}
	return nil
}
