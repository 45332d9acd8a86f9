package lcmaplib

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rwageo/lcmaplib/log"

	gdal "github.com/airbusgeo/godal"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func init() {
	gdal.RegisterAll()
}

// ReadCategoricalRaster loads a single-band byte raster into memory. The
// band must be Byte typed; class maps always are.
func (g *GdalToolbox) ReadCategoricalRaster(tif string) (grid *Grid, err error) {
	sds, err := gdal.Open(tif, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open tif failed", zap.String("tif", tif), zap.Error(err))
		err = ErrInvalidTif
		return
	}
	defer sds.Close()
	bands := sds.Bands()
	if len(bands) != 1 {
		log.Error(g.logTag+"categorical tif must have one band", zap.Int("bands", len(bands)))
		err = ErrWrongTif
		return
	}
	band := bands[0]
	bs := band.Structure()
	if bs.DataType != gdal.Byte {
		log.Error(g.logTag+"categorical tif must be byte typed", zap.String("dataType", bs.DataType.String()))
		err = ErrWrongTif
		return
	}
	gt, err := sds.GeoTransform()
	if err != nil {
		log.Error(g.logTag+"tif has no geotransform", zap.Error(err))
		err = ErrInvalidTif
		return
	}
	srid := 0
	if sr := sds.SpatialRef(); sr != nil {
		wkt, e := sr.WKT()
		if e == nil && wkt != "" {
			if srid, e = g.sridOfWKT(wkt); e != nil {
				log.Warn(g.logTag+"tif srid not identified", zap.Error(e))
			}
		}
	}
	var nodata uint8 = DEFAULT_NODATA
	if nd, ok := band.NoData(); ok {
		nodata = uint8(nd)
	}
	grid = &Grid{
		Data:      make([]uint8, bs.SizeX*bs.SizeY),
		Width:     bs.SizeX,
		Height:    bs.SizeY,
		Transform: gt,
		Srid:      srid,
		NoData:    nodata,
	}
	if err = band.Read(0, 0, grid.Data, bs.SizeX, bs.SizeY); err != nil {
		log.Error(g.logTag+"read tif band failed", zap.Error(err))
		grid, err = nil, ErrTifReadFailed
		return
	}
	log.Info(g.logTag+"read categorical tif", zap.String("tif", tif),
		zap.Int("width", bs.SizeX), zap.Int("height", bs.SizeY), zap.Int("srid", srid))
	return
}

// WriteCategoricalRaster writes a grid as a tiled, LZW-compressed GTiff with
// internal overviews, suitable for efficient partial reads.
func (g *GdalToolbox) WriteCategoricalRaster(grid *Grid, tif string) (err error) {
	ds, err := gdal.Create(gdal.GTiff, tif, 1, gdal.Byte, grid.Width, grid.Height,
		gdal.CreationOption("TILED=YES", "COMPRESS=LZW", "BLOCKXSIZE=256", "BLOCKYSIZE=256"))
	if err != nil {
		log.Error(g.logTag+"create tif failed", zap.String("tif", tif), zap.Error(err))
		return ErrGdalDriverCreate
	}
	defer ds.Close()
	if err = ds.SetGeoTransform(grid.Transform); err != nil {
		return
	}
	if grid.Srid > 0 {
		var sr *gdal.SpatialRef
		if sr, err = gdal.NewSpatialRefFromEPSG(grid.Srid); err != nil {
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
		log.Error(g.logTag+"write tif band failed", zap.Error(err))
		return
	}
	if err = ds.BuildOverviews(gdal.Levels(2, 4, 8, 16)); err != nil {
		log.Error(g.logTag+"build overviews failed", zap.Error(err))
		return
	}
	log.Info(g.logTag+"categorical tif written", zap.String("tif", tif),
		zap.Int("width", grid.Width), zap.Int("height", grid.Height))
	return
}

// AlignRasterMask warps an arbitrary raster onto the target grid (nearest
// neighbor, byte output) and loads it as an aligned mask.
func (g *GdalToolbox) AlignRasterMask(tif string, target *Grid) (mask *Grid, err error) {
	sds, err := gdal.Open(tif, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open mask tif failed", zap.String("tif", tif), zap.Error(err))
		err = ErrInvalidTif
		return
	}
	defer sds.Close()
	minX, minY, maxX, maxY := target.Extent()
	tmp := filepath.Join(g.tmpDir, fmt.Sprintf(TMP_TIF, uuid.NewString()))
	defer os.Remove(tmp)
	opts := []string{
		"-t_srs", fmt.Sprintf("epsg:%d", target.Srid),
		"-te", fmt.Sprintf("%f", minX), fmt.Sprintf("%f", minY), fmt.Sprintf("%f", maxX), fmt.Sprintf("%f", maxY),
		"-tr", fmt.Sprintf("%f", target.Transform[1]), fmt.Sprintf("%f", -target.Transform[5]),
		"-r", "near", "-ot", "Byte", "-overwrite",
	}
	ods, err := gdal.Warp(tmp, []*gdal.Dataset{sds}, opts)
	if err != nil {
		log.Error(g.logTag+"warp mask failed", zap.String("tif", tif), zap.Error(err))
		return
	}
	ods.Close()
	if mask, err = g.ReadCategoricalRaster(tmp); err != nil {
		return
	}
	// the warped grid inherits the target geometry; stamp the srid in case
	// the authority lookup came back empty
	mask.Srid = target.Srid
	if !target.Aligned(mask) {
		log.Error(g.logTag+"warped mask still unaligned", zap.String("tif", tif))
		mask, err = nil, ErrMisalignedMask
	}
	return
}
