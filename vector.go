package lcmaplib

import (
	"fmt"

	"github.com/rwageo/lcmaplib/log"
	"github.com/rwageo/lcmaplib/utils"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// ParseVectorLayer opens a shapefile, keeps features matching the filter
// (all features when the filter field is empty), and unions them into one
// geometry. Returns the union as WKB with the layer's srid.
func (g *GdalToolbox) ParseVectorLayer(filter VectorFilter) (wkb GdalGeo, srid int, err error) {
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Open(filter.Path, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	layer := ds.LayerByIndex(0)
	if srid, err = g.getSrid(layer.SpatialReference()); err != nil {
		return
	}
	fieldIdx := -1
	if filter.Field != "" {
		fieldIdx = layer.Definition().FieldIndex(filter.Field)
		if fieldIdx < 0 {
			err = fmt.Errorf(ErrColumnMissingTemplate, filter.Field)
			return
		}
	}
	var (
		feature *gdal.Feature
		union   = gdal.Create(gdal.GT_Polygon)
		gc      = []destroyable{union}
		total   int
		kept    int
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
		total++
		if fieldIdx >= 0 && !stringIn(feature.FieldAsString(fieldIdx), filter.Values) {
			continue
		}
		union = union.Union(feature.Geometry())
		gc = append(gc, union)
		kept++
	}
	log.Info(g.logTag+"parsed vector layer", zap.String("shp", filter.Path),
		zap.String("field", filter.Field), zap.Int("features", total), zap.Int("kept", kept), zap.Int("srid", srid))
	if kept == 0 || union.IsEmpty() {
		err = ErrGdalWrongGeoType
		return
	}
	wkb, err = union.ToWKB()
	return
}

func stringIn(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// FieldValues lists the distinct values of an attribute column, for
// validating filter configs against what a layer actually holds.
func (g *GdalToolbox) FieldValues(shp, field string) (values []string, err error) {
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Open(shp, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	layer := ds.LayerByIndex(0)
	fieldIdx := layer.Definition().FieldIndex(field)
	if fieldIdx < 0 {
		err = fmt.Errorf(ErrColumnMissingTemplate, field)
		return
	}
	cpg := utils.ReadCpg(shp)
	legacy := cpg != "" && cpg != utils.UTF_8 && cpg != utils.UTF8
	var (
		set     = map[string]struct{}{}
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
		v := feature.FieldAsString(fieldIdx)
		if v == "" {
			err = fmt.Errorf(ErrColumnEmptyTemplate, field)
			return
		}
		if legacy {
			if d, e := utils.Latin1ToUtf8(v); e == nil {
				v = d
			}
		}
		set[utils.PurifyForUtf8(v)] = struct{}{}
	}
	for k := range set {
		values = append(values, k)
	}
	log.Info(g.logTag+"got field values from shp", zap.String("shp", shp), zap.Any("values", values))
	return
}

func (g *GdalToolbox) getShpDriver(shp string, srid int) (ds gdal.DataSource, ref gdal.SpatialReference, layer gdal.Layer, err error) {
	log.Info(g.logTag+"output shp files", zap.String("shp", shp), zap.Int("srid", srid))
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Create(shp, nil)
	if !ok {
		err = ErrGdalDriverCreate
		return
	}
	if ref, err = g.getSridRef(srid); err != nil {
		return
	}
	layer = ds.CreateLayer("", ref, gdal.GT_Unknown, []string{ENCODING_OPTION})
	return
}

// WritePointShapefile writes sample points as a point layer with an integer
// class field, for inspection in a desktop GIS.
func (g *GdalToolbox) WritePointShapefile(shp string, srid int, pts []SamplePoint) (err error) {
	ds, _, layer, err := g.getShpDriver(shp, srid)
	if err != nil {
		return
	}
	defer ds.Destroy() // flushes the shp to disk
	classField := gdal.CreateFieldDefinition(SHP_FIELD_CLASS, gdal.FT_Integer)
	if err = layer.CreateField(classField, false); err != nil {
		return
	}
	var (
		def      = layer.Definition()
		classIdx = def.FieldIndex(SHP_FIELD_CLASS)
		feature  gdal.Feature
		geo      gdal.Geometry
		valid    int
		e        error
		gc       = make([]destroyable, 0, len(pts)*2)
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for i, p := range pts {
		feature = def.Create()
		gc = append(gc, feature)
		if e = feature.SetFID(int64(i)); e != nil {
			log.Error(g.logTag+"err in set feature fid", zap.Error(e))
			continue
		}
		feature.SetFieldInteger(classIdx, int(p.Class))
		geo = gdal.Create(gdal.GT_Point)
		geo.SetPoint2D(0, p.X, p.Y)
		if e = feature.SetGeometryDirectly(geo); e != nil {
			log.Error(g.logTag+"err in set geom of feature", zap.Error(e))
			continue
		}
		if e = layer.Create(feature); e != nil {
			log.Error(g.logTag+"err in create feature of layer", zap.Error(e))
			continue
		}
		valid++
	}
	log.Info(g.logTag+"point shp created", zap.String("shp", shp),
		zap.Int("total", len(pts)), zap.Int("valid", valid))
	return
}

// WriteSpeckleShapefile writes labeled land-cover polygons with class code
// and name fields.
func (g *GdalToolbox) WriteSpeckleShapefile(shp string, srid int, speckles []Speckle) (err error) {
	ds, ref, layer, err := g.getShpDriver(shp, srid)
	if err != nil {
		return
	}
	defer ds.Destroy()
	classField := gdal.CreateFieldDefinition(SHP_FIELD_CLASS, gdal.FT_Integer)
	if err = layer.CreateField(classField, false); err != nil {
		return
	}
	nameField := gdal.CreateFieldDefinition(SHP_FIELD_NAME, gdal.FT_String)
	nameField.SetWidth(64)
	if err = layer.CreateField(nameField, false); err != nil {
		return
	}
	var (
		def      = layer.Definition()
		classIdx = def.FieldIndex(SHP_FIELD_CLASS)
		nameIdx  = def.FieldIndex(SHP_FIELD_NAME)
		feature  gdal.Feature
		geo      gdal.Geometry
		cnt      int
		e        error
		gc       = make([]destroyable, 0, len(speckles))
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for i, sp := range speckles {
		feature = def.Create()
		gc = append(gc, feature)
		if e = feature.SetFID(int64(i)); e != nil {
			log.Error(g.logTag+"err in set feature fid", zap.Error(e))
			continue
		}
		feature.SetFieldInteger(classIdx, int(sp.Class))
		feature.SetFieldString(nameIdx, sp.ClassName)
		if geo, e = g.parseWKB(sp.Geom, ref); e != nil {
			continue
		}
		if e = feature.SetGeometryDirectly(geo); e != nil {
			log.Error(g.logTag+"err in set geom of feature", zap.Error(e))
			continue
		}
		if e = layer.Create(feature); e != nil {
			log.Error(g.logTag+"err in create feature of layer", zap.Error(e))
			continue
		}
		cnt++
	}
	log.Info(g.logTag+"speckle shp created", zap.String("shp", shp),
		zap.Int("total", len(speckles)), zap.Int("valid", cnt))
	return
}
