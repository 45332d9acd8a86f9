package lcmaplib

import (
	"math"
	"path/filepath"
	"testing"
)

func TestRasterRoundTrip(t *testing.T) {
	g := NewGrid(20, 20, testTransform, OUTPUT_SRID, 0)
	fillRect(g, 0, 0, 20, 12, 1)
	fillRect(g, 0, 12, 20, 20, 2)
	g.Set(7, 3, 4)

	tb := NewGdalToolbox(t.TempDir())
	tif := filepath.Join(t.TempDir(), "classes.tif")
	if err := tb.WriteCategoricalRaster(g, tif); err != nil {
		t.Fatal(err)
	}
	back, err := tb.ReadCategoricalRaster(tif)
	if err != nil {
		t.Fatal(err)
	}
	if back.Width != g.Width || back.Height != g.Height {
		t.Fatalf("size %dx%d, want %dx%d", back.Width, back.Height, g.Width, g.Height)
	}
	if back.Srid != OUTPUT_SRID {
		t.Fatalf("srid = %d, want %d", back.Srid, OUTPUT_SRID)
	}
	if back.NoData != g.NoData {
		t.Fatalf("nodata = %d, want %d", back.NoData, g.NoData)
	}
	for i := range g.Transform {
		if math.Abs(back.Transform[i]-g.Transform[i]) > GRID_ALIGN_EPS {
			t.Fatalf("geotransform[%d] = %v, want %v", i, back.Transform[i], g.Transform[i])
		}
	}
	for i, v := range g.Data {
		if back.Data[i] != v {
			t.Fatalf("pixel %d = %d, want %d", i, back.Data[i], v)
		}
	}
}
