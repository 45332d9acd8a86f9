package lcmaplib

type GdalGeo = []byte

// ClassDef maps one land-cover code to its display name and style color.
type ClassDef struct {
	Code  uint8  `yaml:"code"`
	Name  string `yaml:"name"`
	Color string `yaml:"color,omitempty"`
}

// ClassMap is the class-code set shared by all pipeline stages. Each stage
// takes it as an explicit parameter, never as package state.
type ClassMap []ClassDef

func (m ClassMap) Has(code uint8) bool {
	for _, c := range m {
		if c.Code == code {
			return true
		}
	}
	return false
}

func (m ClassMap) NameOf(code uint8) string {
	for _, c := range m {
		if c.Code == code {
			return c.Name
		}
	}
	return ""
}

// Subset keeps only the named codes, in the map's order. Unknown codes are
// ignored.
func (m ClassMap) Subset(codes []uint8) ClassMap {
	sub := make(ClassMap, 0, len(codes))
	for _, c := range m {
		for _, want := range codes {
			if c.Code == want {
				sub = append(sub, c)
				break
			}
		}
	}
	return sub
}

func (m ClassMap) Codes() []uint8 {
	codes := make([]uint8, len(m))
	for i, c := range m {
		codes[i] = c.Code
	}
	return codes
}

// SamplePoint is one training point drawn from a categorical raster. X/Y are
// pixel-center coordinates in the raster's CRS; Class is the raster value at
// the source pixel.
type SamplePoint struct {
	X     float64 `csv:"x"`
	Y     float64 `csv:"y"`
	Col   int     `csv:"col"`
	Row   int     `csv:"row"`
	Class uint8   `csv:"class"`
}

// FeatureTable is a per-sample feature matrix: one row per point, first the
// class label, then the named numeric features. Column names and order are
// table-wide configuration.
type FeatureTable struct {
	Names  []string
	Labels []uint8
	Rows   [][]float64
}

func (t *FeatureTable) Len() int {
	return len(t.Rows)
}

// Width is the feature vector length shared by every row.
func (t *FeatureTable) Width() int {
	return len(t.Names)
}

// ClassIndices returns row indices carrying the given label, in row order.
func (t *FeatureTable) ClassIndices(code uint8) []int {
	var idx []int
	for i, l := range t.Labels {
		if l == code {
			idx = append(idx, i)
		}
	}
	return idx
}

// Classes returns the distinct labels present, ascending.
func (t *FeatureTable) Classes() []uint8 {
	var seen [256]bool
	for _, l := range t.Labels {
		seen[l] = true
	}
	var out []uint8
	for c := 0; c < 256; c++ {
		if seen[c] {
			out = append(out, uint8(c))
		}
	}
	return out
}

// VectorFilter selects features of a vector layer by attribute equality.
// Empty Field means every feature.
type VectorFilter struct {
	Path   string   `yaml:"path"`
	Field  string   `yaml:"field,omitempty"`
	Values []string `yaml:"values,omitempty"`
}

// Speckle is one labeled polygon of the vectorized land-cover map.
type Speckle struct {
	Geom      GdalGeo
	Class     uint8
	ClassName string
}
