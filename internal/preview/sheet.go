// Package preview renders baked volumes for inspection: a contact sheet of
// every depth layer and a plot of density against distance from the centre.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/Faultbox/densitybaker/pkg/volume"
)

// ContactSheet tiles the depth layers of g left to right, top to bottom,
// each layer scaled up by scale. +Y points up within a tile.
func ContactSheet(g *volume.PackedGrid, scale int) (*image.Gray, error) {
	if g == nil || g.R <= 0 || len(g.Values) != g.Len() {
		return nil, fmt.Errorf("invalid grid")
	}
	if scale < 1 {
		scale = 1
	}

	r := g.R
	cols := int(math.Ceil(math.Sqrt(float64(r))))
	rows := (r + cols - 1) / cols
	tile := r * scale

	img := image.NewGray(image.Rect(0, 0, cols*tile, rows*tile))
	for z := 0; z < r; z++ {
		ox := (z % cols) * tile
		oy := (z / cols) * tile
		for y := 0; y < r; y++ {
			for x := 0; x < r; x++ {
				c := color.Gray{Y: gray8(g.At(x, y, z))}
				py := oy + (r-1-y)*scale // Flip Y
				for sy := 0; sy < scale; sy++ {
					for sx := 0; sx < scale; sx++ {
						img.SetGray(ox+x*scale+sx, py+sy, c)
					}
				}
			}
		}
	}
	return img, nil
}

func gray8(v float32) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

// WriteContactSheet renders g and saves it as a PNG at path.
func WriteContactSheet(path string, g *volume.PackedGrid, scale int) error {
	img, err := ContactSheet(g, scale)
	if err != nil {
		return err
	}

	// Create output directory if needed
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return file.Close()
}
