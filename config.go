package lcmaplib

const (
	FILE_EXT_SHP    = ".shp"
	FILE_EXT_CPG    = ".cpg"
	FILE_EXT_TIF    = ".tif"
	FILE_EXT_CSV    = ".csv"
	FILE_EXT_JSON   = ".json"
	SHAPE_ENCODING  = "UTF-8"
	SHP_DRIVER_NAME = "ESRI Shapefile"
	ENCODING_OPTION = "ENCODING=" + SHAPE_ENCODING

	// lon/lat exchange srid; projected output grid is UTM 36S (eastern Rwanda)
	UNIVERSAL_SRID = 4326
	OUTPUT_SRID    = 32736

	DEFAULT_NODATA     = 0
	DEFAULT_BACKGROUND = 255

	// nearest-label fill cap, in the grid's linear unit (meters on UTM grids)
	DEFAULT_FILL_DISTANCE = 10000.0

	DEFAULT_FREQ_THRESHOLD = 0.1
	DEFAULT_KMEANS_ITER    = 100

	// alignment tolerance for geotransform comparison
	GRID_ALIGN_EPS = 1e-6

	SHP_FIELD_CLASS = "class"
	SHP_FIELD_NAME  = "cls_name"
	DN_FIELD        = "DN"

	TMP_TIF = "warp_%s.tif"
)
