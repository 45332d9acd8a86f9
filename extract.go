package lcmaplib

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rwageo/lcmaplib/log"

	gdal "github.com/airbusgeo/godal"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FeatureSource is one composite raster contributing feature columns: every
// band becomes a column named <Name>_<band index or band name>.
type FeatureSource struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type ExtractReport struct {
	Points  int
	Kept    int
	Dropped int // points on nodata in at least one band
	OffGrid int // points outside some source's extent
}

type sourceBands struct {
	names  []string
	data   [][]float64 // per band, row-major
	nodata []float64
	hasND  []bool
	grid   Grid // geometry only, Data unused
}

// ExtractFeatures reads each point's pixel values from every source band
// into a feature table. Points on nodata in any band are dropped and
// counted. Batches of points run on bounded parallel workers; decoding the
// sources happens once up front since a district tile fits in memory.
func (g *GdalToolbox) ExtractFeatures(sources []FeatureSource, pts []SamplePoint, workers int) (t *FeatureTable, rep *ExtractReport, err error) {
	if len(sources) == 0 {
		return nil, nil, ErrNoFeatureSource
	}
	if workers <= 0 {
		workers = 4
	}
	loaded := make([]*sourceBands, len(sources))
	for i, src := range sources {
		if loaded[i], err = g.loadSource(src); err != nil {
			return nil, nil, err
		}
	}
	t = &FeatureTable{}
	for _, sb := range loaded {
		t.Names = append(t.Names, sb.names...)
	}

	const batchSize = 1024
	nBatch := (len(pts) + batchSize - 1) / batchSize
	rows := make([][]float64, len(pts)) // nil marks a dropped point
	bar := progressbar.Default(int64(nBatch), "extracting features")
	var eg errgroup.Group
	eg.SetLimit(workers)
	var mu sync.Mutex
	dropped, offGrid := 0, 0
	for b := 0; b < nBatch; b++ {
		lo, hi := b*batchSize, (b+1)*batchSize
		if hi > len(pts) {
			hi = len(pts)
		}
		batch := pts[lo:hi]
		offset := lo
		eg.Go(func() error {
			miss, out := 0, 0
			for i, p := range batch {
				row, e := readPoint(loaded, p)
				if errors.Is(e, ErrPointOffGrid) {
					out++
					continue
				}
				if e != nil {
					miss++
					continue
				}
				rows[offset+i] = row
			}
			mu.Lock()
			dropped += miss
			offGrid += out
			mu.Unlock()
			bar.Add(1)
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return nil, nil, err
	}
	rep = &ExtractReport{Points: len(pts), Dropped: dropped, OffGrid: offGrid}
	for i, row := range rows {
		if row != nil {
			t.Labels = append(t.Labels, pts[i].Class)
			t.Rows = append(t.Rows, row)
			rep.Kept++
		}
	}
	log.Info(g.logTag+"feature extraction done", zap.Int("points", rep.Points),
		zap.Int("kept", rep.Kept), zap.Int("dropped", rep.Dropped),
		zap.Int("offGrid", rep.OffGrid), zap.Int("features", t.Width()))
	return
}

var errNodataPixel = errors.New("point on nodata pixel")

func readPoint(loaded []*sourceBands, p SamplePoint) (row []float64, err error) {
	for _, sb := range loaded {
		col, r, in := sb.grid.CellOf(p.X, p.Y)
		if !in {
			return nil, fmt.Errorf("%w: (%f, %f)", ErrPointOffGrid, p.X, p.Y)
		}
		at := r*sb.grid.Width + col
		for b := range sb.data {
			v := sb.data[b][at]
			if math.IsNaN(v) || (sb.hasND[b] && v == sb.nodata[b]) {
				return nil, errNodataPixel
			}
			row = append(row, v)
		}
	}
	return row, nil
}

func (g *GdalToolbox) loadSource(src FeatureSource) (sb *sourceBands, err error) {
	sds, err := gdal.Open(src.Path, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open feature tif failed", zap.String("tif", src.Path), zap.Error(err))
		return nil, ErrInvalidTif
	}
	defer sds.Close()
	bands := sds.Bands()
	if len(bands) == 0 {
		return nil, ErrEmptyTif
	}
	gt, err := sds.GeoTransform()
	if err != nil {
		return nil, ErrInvalidTif
	}
	st := sds.Structure()
	sb = &sourceBands{
		grid: Grid{Width: st.SizeX, Height: st.SizeY, Transform: gt},
	}
	for b, band := range bands {
		buf := make([]float64, st.SizeX*st.SizeY)
		if err = band.Read(0, 0, buf, st.SizeX, st.SizeY); err != nil {
			log.Error(g.logTag+"read feature band failed", zap.String("tif", src.Path),
				zap.Int("band", b), zap.Error(err))
			return nil, ErrTifReadFailed
		}
		nd, has := band.NoData()
		sb.data = append(sb.data, buf)
		sb.nodata = append(sb.nodata, nd)
		sb.hasND = append(sb.hasND, has)
		sb.names = append(sb.names, fmt.Sprintf("%s_%02d", src.Name, b+1))
	}
	log.Info(g.logTag+"feature source loaded", zap.String("name", src.Name),
		zap.Int("bands", len(bands)), zap.Int("width", st.SizeX), zap.Int("height", st.SizeY))
	return
}
