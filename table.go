package lcmaplib

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rwageo/lcmaplib/log"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
)

const tableLabelColumn = "class"

// WriteFeatureTable writes the table as delimited text: header row, then one
// row per sample with the class label first.
func WriteFeatureTable(t *FeatureTable, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	w := csv.NewWriter(f)
	header := append([]string{tableLabelColumn}, t.Names...)
	if err = w.Write(header); err != nil {
		return
	}
	rec := make([]string, len(header))
	for i, row := range t.Rows {
		rec[0] = strconv.Itoa(int(t.Labels[i]))
		for j, v := range row {
			rec[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err = w.Write(rec); err != nil {
			return
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return
	}
	log.Info("feature table written", zap.String("path", path),
		zap.Int("rows", t.Len()), zap.Int("features", t.Width()))
	return
}

// ReadFeatureTable reads a feature table written by WriteFeatureTable (or by
// the upstream extraction notebooks: label column first, numeric features
// after). The feature column count is taken from the header; every row must
// match it.
func ReadFeatureTable(path string) (t *FeatureTable, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return
	}
	if len(header) < 2 || header[0] != tableLabelColumn {
		err = fmt.Errorf("%w: header %v", ErrFeatureWidth, header)
		return
	}
	// width is enforced below with row-numbered messages, not by the reader
	r.FieldsPerRecord = -1
	t = &FeatureTable{Names: header[1:]}
	for {
		rec, e := r.Read()
		if e == io.EOF {
			break
		}
		if e != nil {
			t, err = nil, e
			return
		}
		if len(rec) != len(header) {
			t, err = nil, fmt.Errorf("%w: row %d has %d columns", ErrFeatureWidth, t.Len()+1, len(rec))
			return
		}
		label, e := strconv.Atoi(rec[0])
		if e != nil || label < 0 || label > 255 {
			t, err = nil, fmt.Errorf("bad class label %q at row %d", rec[0], t.Len()+1)
			return
		}
		row := make([]float64, len(rec)-1)
		for j, s := range rec[1:] {
			if row[j], e = strconv.ParseFloat(s, 64); e != nil {
				t, err = nil, fmt.Errorf("bad feature value %q at row %d", s, t.Len()+1)
				return
			}
		}
		t.Labels = append(t.Labels, uint8(label))
		t.Rows = append(t.Rows, row)
	}
	log.Info("feature table read", zap.String("path", path),
		zap.Int("rows", t.Len()), zap.Int("features", t.Width()))
	return
}

// WriteSamplePointsCSV serializes sample points through their csv tags.
func WriteSamplePointsCSV(pts []SamplePoint, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	if err = gocsv.MarshalFile(&pts, f); err != nil {
		return
	}
	log.Info("sample points written", zap.String("path", path), zap.Int("points", len(pts)))
	return
}

func ReadSamplePointsCSV(path string) (pts []SamplePoint, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	err = gocsv.UnmarshalFile(f, &pts)
	return
}
