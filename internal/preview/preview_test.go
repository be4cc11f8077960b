package preview

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/densitybaker/internal/bake"
	"github.com/Faultbox/densitybaker/pkg/field"
	"github.com/Faultbox/densitybaker/pkg/volume"
)

func sphereGrid(t *testing.T, r int) *volume.PackedGrid {
	t.Helper()
	res, err := bake.New(bake.NewCPUBackend(2), bake.Options{Resolution: r}).
		Bake(context.Background(), field.Default())
	if err != nil {
		t.Fatalf("bake failed: %v", err)
	}
	return res.Grid
}

func TestContactSheetLayout(t *testing.T) {
	g := sphereGrid(t, 10)

	img, err := ContactSheet(g, 2)
	if err != nil {
		t.Fatalf("ContactSheet failed: %v", err)
	}
	// 10 layers -> 4 columns, 3 rows of 20px tiles.
	if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w != 80 || h != 60 {
		t.Errorf("expected 80x60, got %dx%d", w, h)
	}

	// Middle layer is tile 5: column 1, row 1. Its centre is bright.
	cx, cy := 20+10, 20+10
	if v := img.GrayAt(cx, cy).Y; v < 200 {
		t.Errorf("expected bright sphere centre, got %d", v)
	}
	// Corner of the first layer is empty.
	if v := img.GrayAt(0, 0).Y; v > 10 {
		t.Errorf("expected dark corner, got %d", v)
	}
}

func TestContactSheetFlipsY(t *testing.T) {
	g := &volume.PackedGrid{R: 2, Values: make([]float32, 8)}
	g.Values[g.Index(0, 1, 0)] = 1 // top-left of layer 0

	img, err := ContactSheet(g, 1)
	if err != nil {
		t.Fatalf("ContactSheet failed: %v", err)
	}
	if img.GrayAt(0, 0).Y != 255 {
		t.Errorf("expected y=1 at the top row, got %d", img.GrayAt(0, 0).Y)
	}
	if img.GrayAt(0, 1).Y != 0 {
		t.Errorf("expected y=0 at the bottom row to be empty, got %d", img.GrayAt(0, 1).Y)
	}
}

func TestContactSheetInvalid(t *testing.T) {
	if _, err := ContactSheet(nil, 1); err == nil {
		t.Error("expected error for nil grid")
	}
	if _, err := ContactSheet(&volume.PackedGrid{R: 2, Values: make([]float32, 3)}, 1); err == nil {
		t.Error("expected error for short grid")
	}
}

func TestWriteContactSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "sheet.png")
	if err := WriteContactSheet(path, sphereGrid(t, 4), 3); err != nil {
		t.Fatalf("WriteContactSheet failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open sheet: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("expected PNG, got %v", err)
	}
	if img.Bounds().Dx() != 2*4*3 {
		t.Errorf("expected width 24, got %d", img.Bounds().Dx())
	}
}

func TestRadialProfileFallsOff(t *testing.T) {
	pts := RadialProfile(sphereGrid(t, 24), 8)
	if len(pts) < 4 {
		t.Fatalf("expected at least 4 bins, got %d", len(pts))
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].X <= pts[i-1].X {
			t.Errorf("bin %d: distances not increasing", i)
		}
		if pts[i].Y >= pts[i-1].Y {
			t.Errorf("bin %d: expected mean density to fall, got %v after %v", i, pts[i].Y, pts[i-1].Y)
		}
	}
	if RadialProfile(nil, 8) != nil {
		t.Error("expected nil profile for nil grid")
	}
}

func TestWriteProfilePlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.png")
	if err := WriteProfilePlot(path, sphereGrid(t, 16), "sphere"); err != nil {
		t.Fatalf("WriteProfilePlot failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("expected non-empty plot")
	}

	if err := WriteProfilePlot(path, nil, "empty"); err == nil {
		t.Error("expected error for nil grid")
	}
}
