package lcmaplib

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rwageo/lcmaplib/log"

	"go.uber.org/zap"
)

type Strategy string

const (
	StrategyProportional Strategy = "proportional"
	StrategyEqual        Strategy = "equal"
	StrategyManual       Strategy = "manual"
)

// SampleConfig drives one stratified draw against a reference raster.
type SampleConfig struct {
	Total       int           `yaml:"total"`
	MinPerClass int           `yaml:"min_per_class"`
	Strategy    Strategy      `yaml:"strategy"`
	Manual      map[uint8]int `yaml:"manual,omitempty"`
	Excluded    uint8         `yaml:"excluded"`
	Seed        int64         `yaml:"seed"`
}

type SampleClassStat struct {
	Population int
	Quota      int
	Drawn      int
}

type SampleReport struct {
	PerClass map[uint8]SampleClassStat
	Total    int
}

// Sample draws class-stratified random points from a categorical raster.
// Quotas are capped at each class's pixel population; capping is not an
// error. Points carry pixel-center coordinates and the source pixel's value.
func Sample(g *Grid, cfg SampleConfig) ([]SamplePoint, *SampleReport, error) {
	if cfg.Total <= 0 && cfg.Strategy != StrategyManual {
		return nil, nil, ErrEmptyBudget
	}
	cells := g.classCells(cfg.Excluded)
	if len(cells) == 0 {
		return nil, nil, ErrEmptyGrid
	}
	classes := make([]uint8, 0, len(cells))
	total := 0
	for c, idx := range cells {
		classes = append(classes, c)
		total += len(idx)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	quotas := make(map[uint8]int, len(classes))
	switch cfg.Strategy {
	case StrategyProportional:
		for _, c := range classes {
			q := int(math.Round(float64(cfg.Total) * float64(len(cells[c])) / float64(total)))
			if q < cfg.MinPerClass {
				q = cfg.MinPerClass
			}
			quotas[c] = q
		}
	case StrategyEqual:
		q := cfg.Total / len(classes)
		if q < cfg.MinPerClass {
			q = cfg.MinPerClass
		}
		for _, c := range classes {
			quotas[c] = q
		}
	case StrategyManual:
		for c, q := range cfg.Manual {
			if _, ok := cells[c]; !ok {
				return nil, nil, fmt.Errorf(ErrClassMissingTemplate, c)
			}
			if q > 0 {
				quotas[c] = q
			}
		}
		if len(quotas) == 0 {
			return nil, nil, ErrEmptyBudget
		}
	default:
		return nil, nil, ErrInvalidStrategy
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	rep := &SampleReport{PerClass: make(map[uint8]SampleClassStat, len(classes))}
	var pts []SamplePoint
	for _, c := range classes {
		quota, ok := quotas[c]
		if !ok {
			continue
		}
		idx := cells[c]
		n := quota
		if n > len(idx) {
			n = len(idx)
		}
		// partial Fisher-Yates: the first n entries become the draw
		for i := 0; i < n; i++ {
			j := i + rng.Intn(len(idx)-i)
			idx[i], idx[j] = idx[j], idx[i]
		}
		for _, cell := range idx[:n] {
			col, row := int(cell)%g.Width, int(cell)/g.Width
			x, y := g.PixelCenter(col, row)
			pts = append(pts, SamplePoint{X: x, Y: y, Col: col, Row: row, Class: c})
		}
		rep.PerClass[c] = SampleClassStat{Population: len(idx), Quota: quota, Drawn: n}
		rep.Total += n
		if n < quota {
			log.Warn("class quota capped at population",
				zap.Uint8("class", c), zap.Int("quota", quota), zap.Int("population", len(idx)))
		}
	}
	log.Info("stratified sample drawn",
		zap.String("strategy", string(cfg.Strategy)), zap.Int("budget", cfg.Total),
		zap.Int("classes", len(rep.PerClass)), zap.Int("points", rep.Total))
	return pts, rep, nil
}

// VerifyLabels rechecks every point's label against the raster value at its
// source pixel. Drift means the raster changed since the draw.
func VerifyLabels(g *Grid, pts []SamplePoint) (mismatched int) {
	for _, p := range pts {
		if p.Col < 0 || p.Col >= g.Width || p.Row < 0 || p.Row >= g.Height ||
			g.At(p.Col, p.Row) != p.Class {
			mismatched++
		}
	}
	return
}
