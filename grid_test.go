package lcmaplib

import (
	"math"
	"testing"
)

func TestPixelCenterCellOfRoundTrip(t *testing.T) {
	g := NewGrid(40, 30, testTransform, OUTPUT_SRID, 0)
	for _, c := range [][2]int{{0, 0}, {39, 29}, {17, 3}, {5, 22}} {
		x, y := g.PixelCenter(c[0], c[1])
		col, row, ok := g.CellOf(x, y)
		if !ok || col != c[0] || row != c[1] {
			t.Fatalf("round trip (%d,%d) -> (%f,%f) -> (%d,%d,%v)", c[0], c[1], x, y, col, row, ok)
		}
	}
	if _, _, ok := g.CellOf(testTransform[0]-1, testTransform[3]); ok {
		t.Fatal("point left of the grid reported in bounds")
	}
	if _, _, ok := g.CellOf(testTransform[0], testTransform[3]+1); ok {
		t.Fatal("point above the grid reported in bounds")
	}
}

func TestExtent(t *testing.T) {
	g := NewGrid(40, 30, testTransform, OUTPUT_SRID, 0)
	minX, minY, maxX, maxY := g.Extent()
	if minX != testTransform[0] || maxY != testTransform[3] {
		t.Fatalf("origin corner = (%f,%f)", minX, maxY)
	}
	if w := maxX - minX; math.Abs(w-400) > 1e-9 {
		t.Fatalf("extent width = %f, want 400", w)
	}
	if h := maxY - minY; math.Abs(h-300) > 1e-9 {
		t.Fatalf("extent height = %f, want 300", h)
	}
}

func TestAligned(t *testing.T) {
	g := NewGrid(8, 8, testTransform, OUTPUT_SRID, 0)
	same := NewGrid(8, 8, testTransform, OUTPUT_SRID, 0)
	if !g.Aligned(same) {
		t.Fatal("identical geometry not aligned")
	}
	nudged := NewGrid(8, 8, testTransform, OUTPUT_SRID, 0)
	nudged.Transform[0] += GRID_ALIGN_EPS / 2
	if !g.Aligned(nudged) {
		t.Fatal("sub-tolerance shift broke alignment")
	}
	for _, o := range []*Grid{
		nil,
		NewGrid(9, 8, testTransform, OUTPUT_SRID, 0),
		NewGrid(8, 8, testTransform, UNIVERSAL_SRID, 0),
	} {
		if g.Aligned(o) {
			t.Fatalf("%+v reported aligned", o)
		}
	}
	shifted := NewGrid(8, 8, testTransform, OUTPUT_SRID, 0)
	shifted.Transform[3] += 1
	if g.Aligned(shifted) {
		t.Fatal("shifted origin reported aligned")
	}
}

func TestCensus(t *testing.T) {
	g := NewGrid(6, 6, testTransform, OUTPUT_SRID, 0)
	fillRect(g, 0, 0, 6, 3, 1)
	fillRect(g, 0, 3, 6, 5, 2)
	pop := g.Census(0)
	if pop[1] != 18 || pop[2] != 12 {
		t.Fatalf("census = %v", pop)
	}
	if _, ok := pop[0]; ok {
		t.Fatal("excluded code present in census")
	}
}

func TestCloneIsDeep(t *testing.T) {
	g := NewGrid(3, 3, testTransform, OUTPUT_SRID, 7)
	c := g.Clone()
	c.Set(1, 1, 9)
	if g.At(1, 1) != 7 {
		t.Fatal("clone shares backing storage with the original")
	}
}
