package lcmaplib

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/rwageo/lcmaplib/log"

	godal "github.com/airbusgeo/godal"
	"github.com/google/uuid"
	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

const (
	SimplifyT    = 1.0
	BuffPercent  = 0.05
	BuffQuadSegs = 12
)

// Vectorize polygonizes the final land-cover grid into labeled, simplified
// polygons. Nodata pixels produce no polygons.
func (g *GdalToolbox) Vectorize(grid *Grid, classes ClassMap, shp string, tolerance float64) (err error) {
	tmpShp := filepath.Join(g.tmpDir, fmt.Sprintf("poly_%s"+FILE_EXT_SHP, uuid.NewString()))
	if err = g.polygonize(grid, tmpShp); err != nil {
		return
	}
	defer cleanupShapefile(tmpShp)
	speckles, err := g.collectSpeckles(tmpShp, grid.Srid, classes, tolerance)
	if err != nil {
		return
	}
	log.Info(g.logTag+"vectorized land-cover map", zap.String("shp", shp), zap.Int("polygons", len(speckles)))
	return g.WriteSpeckleShapefile(shp, grid.Srid, speckles)
}

func (g *GdalToolbox) polygonize(grid *Grid, shp string) (err error) {
	ds, err := godal.Create(godal.Memory, "", 1, godal.Byte, grid.Width, grid.Height)
	if err != nil {
		return
	}
	defer ds.Close()
	if err = ds.SetGeoTransform(grid.Transform); err != nil {
		return
	}
	if grid.Srid > 0 {
		var sr *godal.SpatialRef
		if sr, err = godal.NewSpatialRefFromEPSG(grid.Srid); err != nil {
			return
		}
		defer sr.Close()
		if err = ds.SetSpatialRef(sr); err != nil {
			return
		}
	}
	band := ds.Bands()[0]
	if err = band.SetNoData(float64(grid.NoData)); err != nil {
		return
	}
	if err = band.Write(0, 0, grid.Data, grid.Width, grid.Height); err != nil {
		return
	}
	vds, err := godal.CreateVector(godal.DriverName(SHP_DRIVER_NAME), shp)
	if err != nil {
		log.Error(g.logTag+"create polygonize shp failed", zap.Error(err))
		return ErrGdalDriverCreate
	}
	defer vds.Close()
	layer, err := vds.CreateLayer("landcover", ds.SpatialRef(), godal.GTPolygon,
		godal.NewFieldDefinition(DN_FIELD, godal.FTInt))
	if err != nil {
		return
	}
	if err = band.Polygonize(layer, godal.PixelValueFieldIndex(0)); err != nil {
		log.Error(g.logTag+"polygonize failed", zap.Error(err))
	}
	return
}

// collectSpeckles reads the raw polygonize output and smooths each polygon:
// topology-preserving simplification, then an erode/dilate buffer pass that
// knocks off single-pixel staircase artifacts.
func (g *GdalToolbox) collectSpeckles(shp string, srid int, classes ClassMap, tolerance float64) (ret []Speckle, err error) {
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Open(shp, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	layer := ds.LayerByIndex(0)
	dnIdx := layer.Definition().FieldIndex(DN_FIELD)
	if dnIdx < 0 {
		err = fmt.Errorf(ErrColumnMissingTemplate, DN_FIELD)
		return
	}
	if tolerance <= 0 {
		tolerance = SimplifyT
	}
	var (
		feature *gdal.Feature
		gc      []destroyable
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, *feature)
		code := feature.FieldAsInteger(dnIdx)
		if code < 0 || code > 255 || !classes.Has(uint8(code)) {
			continue
		}
		geo := g.smoothGeo(feature.Geometry(), tolerance)
		gc = append(gc, geo)
		if geo.IsEmpty() {
			continue
		}
		wkb, e := geo.ToWKB()
		if e != nil {
			log.Error(g.logTag+"err in wkb convert", zap.Error(e))
			continue
		}
		ret = append(ret, Speckle{
			Geom:      wkb,
			Class:     uint8(code),
			ClassName: classes.NameOf(uint8(code)),
		})
	}
	return
}

func (g *GdalToolbox) smoothGeo(geo gdal.Geometry, t float64) gdal.Geometry {
	simp := geo.SimplifyPreservingTopology(t)
	area := simp.Area()
	if area <= 0 {
		return simp
	}
	buff := math.Sqrt(area) * BuffPercent
	if buff > t {
		buff = t
	}
	eroded := simp.Buffer(-buff, BuffQuadSegs)
	simp.Destroy()
	ret := eroded.Buffer(buff, BuffQuadSegs)
	eroded.Destroy()
	return ret
}

func cleanupShapefile(shp string) {
	base := shp[:len(shp)-len(FILE_EXT_SHP)]
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj", ".cpg"} {
		os.Remove(base + ext)
	}
}
