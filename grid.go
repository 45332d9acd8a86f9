package lcmaplib

import "math"

// Grid is an in-memory single-band categorical raster: class codes over an
// affine grid. Data is row-major, Data[row*Width+col].
type Grid struct {
	Data      []uint8
	Width     int
	Height    int
	Transform [6]float64 // gdal geotransform: x = t0 + col*t1 + row*t2
	Srid      int
	NoData    uint8
}

func NewGrid(width, height int, transform [6]float64, srid int, nodata uint8) *Grid {
	g := &Grid{
		Data:      make([]uint8, width*height),
		Width:     width,
		Height:    height,
		Transform: transform,
		Srid:      srid,
		NoData:    nodata,
	}
	if nodata != 0 {
		for i := range g.Data {
			g.Data[i] = nodata
		}
	}
	return g
}

func (g *Grid) At(col, row int) uint8 {
	return g.Data[row*g.Width+col]
}

func (g *Grid) Set(col, row int, v uint8) {
	g.Data[row*g.Width+col] = v
}

func (g *Grid) Clone() *Grid {
	c := *g
	c.Data = make([]uint8, len(g.Data))
	copy(c.Data, g.Data)
	return &c
}

// PixelCenter converts grid indices to the spatial coordinate of the pixel
// center, via the full affine transform.
func (g *Grid) PixelCenter(col, row int) (x, y float64) {
	fc, fr := float64(col)+0.5, float64(row)+0.5
	x = g.Transform[0] + fc*g.Transform[1] + fr*g.Transform[2]
	y = g.Transform[3] + fc*g.Transform[4] + fr*g.Transform[5]
	return
}

// CellOf inverts the geotransform for axis-aligned grids (no rotation terms).
func (g *Grid) CellOf(x, y float64) (col, row int, ok bool) {
	col = int(math.Floor((x - g.Transform[0]) / g.Transform[1]))
	row = int(math.Floor((y - g.Transform[3]) / g.Transform[5]))
	ok = col >= 0 && col < g.Width && row >= 0 && row < g.Height
	return
}

// PixelSize is the linear size of one pixel in grid units.
func (g *Grid) PixelSize() float64 {
	return math.Abs(g.Transform[1])
}

// Extent returns minX, minY, maxX, maxY of the grid in its CRS.
func (g *Grid) Extent() (minX, minY, maxX, maxY float64) {
	minX = g.Transform[0]
	maxY = g.Transform[3]
	maxX = minX + float64(g.Width)*g.Transform[1]
	minY = maxY + float64(g.Height)*g.Transform[5]
	if maxX < minX {
		minX, maxX = maxX, minX
	}
	if maxY < minY {
		minY, maxY = maxY, minY
	}
	return
}

// Aligned reports whether another grid shares this grid's exact geometry
// (dimensions, geotransform within tolerance, CRS).
func (g *Grid) Aligned(o *Grid) bool {
	if o == nil || g.Width != o.Width || g.Height != o.Height || g.Srid != o.Srid {
		return false
	}
	for i := range g.Transform {
		if math.Abs(g.Transform[i]-o.Transform[i]) > GRID_ALIGN_EPS {
			return false
		}
	}
	return true
}

// Census counts populated pixels per class code, skipping the excluded code.
func (g *Grid) Census(excluded uint8) map[uint8]int {
	pop := make(map[uint8]int)
	for _, v := range g.Data {
		if v != excluded {
			pop[v]++
		}
	}
	return pop
}

// classCells collects pixel indices per class, skipping the excluded code.
// Index order is scan order, so draws seeded identically are reproducible.
func (g *Grid) classCells(excluded uint8) map[uint8][]int32 {
	cells := make(map[uint8][]int32)
	for i, v := range g.Data {
		if v != excluded {
			cells[v] = append(cells[v], int32(i))
		}
	}
	return cells
}
