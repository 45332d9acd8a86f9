package lcmaplib

import (
	"github.com/rwageo/lcmaplib/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

// MaskSpec declares one auxiliary mask: either a raster to align or a vector
// to rasterize onto the prediction grid.
type MaskSpec struct {
	Name   string       `yaml:"name"`
	Kind   string       `yaml:"kind"` // "raster" | "vector"
	Path   string       `yaml:"path,omitempty"`
	Vector VectorFilter `yaml:"vector,omitempty"`
	Burn   uint8        `yaml:"burn"`
}

// BuildMasks materializes every mask spec onto the target grid. Vector masks
// burn Burn into matching pixels over zero; raster masks keep their codes.
func (g *GdalToolbox) BuildMasks(specs []MaskSpec, target *Grid) (masks map[string]*Grid, err error) {
	masks = make(map[string]*Grid, len(specs))
	for _, spec := range specs {
		var m *Grid
		switch spec.Kind {
		case "raster":
			m, err = g.AlignRasterMask(spec.Path, target)
		case "vector":
			m, err = g.RasterizeMask(spec.Vector, target, spec.Burn)
		default:
			err = ErrBadRule
		}
		if err != nil {
			log.Error(g.logTag+"mask build failed", zap.String("mask", spec.Name), zap.Error(err))
			return nil, err
		}
		masks[spec.Name] = m
	}
	return
}

// RasterizeMask burns the filtered union geometry of a vector layer onto the
// target grid. Pixels under the geometry get burn, all others zero.
func (g *GdalToolbox) RasterizeMask(filter VectorFilter, target *Grid, burn uint8) (mask *Grid, err error) {
	wkb, srid, err := g.ParseVectorLayer(filter)
	if err != nil {
		return
	}
	if wkb, err = g.TransformWkb(wkb, srid, target.Srid); err != nil {
		return
	}
	wkt, err := g.WkbToWkt(wkb, target.Srid)
	if err != nil {
		return
	}
	sr, err := gdal.NewSpatialRefFromEPSG(target.Srid)
	if err != nil {
		return
	}
	defer sr.Close()
	geom, err := gdal.NewGeometryFromWKT(wkt, sr)
	if err != nil {
		log.Error(g.logTag+"mask geometry rebuild failed", zap.Error(err))
		return
	}
	defer geom.Close()
	ds, err := gdal.Create(gdal.Memory, "", 1, gdal.Byte, target.Width, target.Height)
	if err != nil {
		return
	}
	defer ds.Close()
	if err = ds.SetGeoTransform(target.Transform); err != nil {
		return
	}
	if err = ds.SetSpatialRef(sr); err != nil {
		return
	}
	if err = ds.RasterizeGeometry(geom, gdal.Values(float64(burn)), gdal.AllTouched()); err != nil {
		log.Error(g.logTag+"rasterize mask failed", zap.Error(err))
		return
	}
	mask = &Grid{
		Data:      make([]uint8, target.Width*target.Height),
		Width:     target.Width,
		Height:    target.Height,
		Transform: target.Transform,
		Srid:      target.Srid,
	}
	if err = ds.Bands()[0].Read(0, 0, mask.Data, target.Width, target.Height); err != nil {
		log.Error(g.logTag+"read rasterized mask failed", zap.Error(err))
		mask, err = nil, ErrTifReadFailed
		return
	}
	burned := 0
	for _, v := range mask.Data {
		if v == burn {
			burned++
		}
	}
	log.Info(g.logTag+"vector mask rasterized", zap.String("shp", filter.Path),
		zap.Uint8("burn", burn), zap.Int("pixels", burned))
	return
}
