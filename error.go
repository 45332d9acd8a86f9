package lcmaplib

import "errors"

var (
	ErrGdalDriverCreate = errors.New("gdal driver create err")
	ErrGdalDriverOpen   = errors.New("gdal driver open err")
	ErrVoidSrid         = errors.New("vector layer with void srid")
	ErrGdalWrongGeoType = errors.New("gdal wrong geo type")
	ErrInvalidWKT       = errors.New("invalid WKT")
	ErrInvalidTif       = errors.New("invalid tif")
	ErrWrongTif         = errors.New("tif is not single-band categorical")
	ErrTifReadFailed    = errors.New("tif read failed")
	ErrEmptyTif         = errors.New("empty tif")

	ErrEmptyBudget     = errors.New("sample budget must be positive")
	ErrInvalidStrategy = errors.New("unknown sampling strategy")
	ErrUnknownClass    = errors.New("class not present in raster")
	ErrEmptyGrid       = errors.New("grid holds no populated pixels")

	ErrBadClusterRange = errors.New("invalid cluster count range")
	ErrBadThreshold    = errors.New("frequency threshold out of [0,1)")
	ErrEmptyReference  = errors.New("reference subset is empty for class")
	ErrFeatureWidth    = errors.New("feature vector width mismatch")

	ErrEmptyRuleSet   = errors.New("rule set is empty")
	ErrBadRule        = errors.New("malformed reclassification rule")
	ErrUnknownMask    = errors.New("rule references unknown mask")
	ErrMisalignedMask = errors.New("mask grid not aligned with raster")

	ErrNoFeatureSource = errors.New("no feature source given")
	ErrPointOffGrid    = errors.New("point outside raster extent")
)

const (
	ErrColumnMissingTemplate = `vector layer is missing field [%s]`
	ErrColumnEmptyTemplate   = `vector feature has empty field [%s]`
	ErrClassMissingTemplate  = `manual quota names class %d absent from raster`
	ErrRefEmptyTemplate      = `no reference samples for class %d`
)
