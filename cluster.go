package lcmaplib

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rwageo/lcmaplib/log"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ClusterConfig drives the per-class label filter. The cluster count is
// searched in [KMin, KMax] by silhouette score unless the range is a single
// value. A zero FreqThreshold selects the default (0.1); the filter cannot
// be disabled, only weakened with a small positive threshold.
type ClusterConfig struct {
	KMin          int     `yaml:"k_min"`
	KMax          int     `yaml:"k_max"`
	FreqThreshold float64 `yaml:"frequency_threshold"`
	MaxIter       int     `yaml:"max_iter"`
	Seed          int64   `yaml:"seed"`
}

type ClusterClassStat struct {
	K       int
	Score   float64
	Kept    int
	Dropped int
}

type ClusterReport struct {
	PerClass map[uint8]ClusterClassStat
	Kept     int
	Dropped  int
}

// FilterLabels removes candidate samples whose feature-space cluster is a
// minority within its class. Clusters are fitted on the trusted reference
// subset of each class and then applied to the candidate subset; candidate
// clusters below the frequency threshold are dropped. A class filtered down
// to nothing is reported, not an error.
func FilterLabels(candidates, reference *FeatureTable, cfg ClusterConfig) (*FeatureTable, *ClusterReport, error) {
	if cfg.KMin < 1 || cfg.KMax < cfg.KMin {
		return nil, nil, ErrBadClusterRange
	}
	if cfg.FreqThreshold < 0 || cfg.FreqThreshold >= 1 {
		return nil, nil, ErrBadThreshold
	}
	if cfg.FreqThreshold == 0 {
		cfg.FreqThreshold = DEFAULT_FREQ_THRESHOLD
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = DEFAULT_KMEANS_ITER
	}
	if candidates.Width() != reference.Width() {
		return nil, nil, ErrFeatureWidth
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	drop := make([]bool, candidates.Len())
	rep := &ClusterReport{PerClass: make(map[uint8]ClusterClassStat)}
	for _, c := range candidates.Classes() {
		candIdx := candidates.ClassIndices(c)
		refIdx := reference.ClassIndices(c)
		if len(refIdx) == 0 {
			return nil, nil, fmt.Errorf("%w: "+ErrRefEmptyTemplate, ErrEmptyReference, c)
		}
		refRows := gatherRows(reference, refIdx)
		candRows := gatherRows(candidates, candIdx)

		rng := rand.New(rand.NewSource(seed + int64(c)))
		centroids, score, k := fitBestKMeans(refRows, cfg, rng)

		assign := assignToCentroids(candRows, centroids)
		counts := make([]int, len(centroids))
		for _, a := range assign {
			counts[a]++
		}
		cs := ClusterClassStat{K: k, Score: score}
		for i, a := range assign {
			if float64(counts[a])/float64(len(assign)) < cfg.FreqThreshold {
				drop[candIdx[i]] = true
				cs.Dropped++
			} else {
				cs.Kept++
			}
		}
		rep.PerClass[c] = cs
		rep.Kept += cs.Kept
		rep.Dropped += cs.Dropped
		if cs.Kept == 0 {
			log.Warn("cluster filter removed an entire class",
				zap.Uint8("class", c), zap.Int("dropped", cs.Dropped),
				zap.Float64("threshold", cfg.FreqThreshold))
		}
	}

	out := &FeatureTable{Names: candidates.Names}
	for i, row := range candidates.Rows {
		if !drop[i] {
			out.Labels = append(out.Labels, candidates.Labels[i])
			out.Rows = append(out.Rows, row)
		}
	}
	log.Info("label filtering done",
		zap.Int("classes", len(rep.PerClass)), zap.Int("kept", rep.Kept), zap.Int("dropped", rep.Dropped))
	return out, rep, nil
}

func gatherRows(t *FeatureTable, idx []int) [][]float64 {
	rows := make([][]float64, len(idx))
	for i, j := range idx {
		rows[i] = t.Rows[j]
	}
	return rows
}

// fitBestKMeans searches the configured cluster count range on the reference
// rows and returns the winning model. Ties go to the smaller count. Counts
// are clamped to the number of reference rows.
func fitBestKMeans(rows [][]float64, cfg ClusterConfig, rng *rand.Rand) (centroids [][]float64, score float64, k int) {
	kMin, kMax := cfg.KMin, cfg.KMax
	if kMax > len(rows) {
		kMax = len(rows)
	}
	if kMin > kMax {
		kMin = kMax
	}
	score = math.Inf(-1)
	for kc := kMin; kc <= kMax; kc++ {
		cents, assign := kmeans(rows, kc, cfg.MaxIter, rng)
		s := silhouette(rows, assign, kc)
		if kMin == kMax || s > score {
			centroids, score, k = cents, s, kc
		}
	}
	return
}

// kmeans is plain Lloyd iteration with k-means++ seeding. No library in use
// here ships one, and the loop is small against gonum primitives.
func kmeans(rows [][]float64, k, maxIter int, rng *rand.Rand) (centroids [][]float64, assign []int) {
	dim := len(rows[0])
	centroids = seedPlusPlus(rows, k, rng)
	assign = make([]int, len(rows))
	for i := range assign {
		assign[i] = -1
	}
	sums := make([][]float64, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float64, dim)
	}
	for iter := 0; iter < maxIter; iter++ {
		moved := false
		for i, row := range rows {
			best, bestD := 0, math.Inf(1)
			for j, c := range centroids {
				if d := floats.Distance(row, c, 2); d < bestD {
					best, bestD = j, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				moved = true
			}
		}
		if !moved {
			break
		}
		for j := range sums {
			for d := range sums[j] {
				sums[j][d] = 0
			}
			counts[j] = 0
		}
		for i, row := range rows {
			floats.Add(sums[assign[i]], row)
			counts[assign[i]]++
		}
		for j := range centroids {
			if counts[j] == 0 {
				// reseed a starved cluster onto a random row
				copy(centroids[j], rows[rng.Intn(len(rows))])
				continue
			}
			copy(centroids[j], sums[j])
			floats.Scale(1/float64(counts[j]), centroids[j])
		}
	}
	return
}

func seedPlusPlus(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := append([]float64(nil), rows[rng.Intn(len(rows))]...)
	centroids = append(centroids, first)
	d2 := make([]float64, len(rows))
	for len(centroids) < k {
		var sum float64
		for i, row := range rows {
			best := math.Inf(1)
			for _, c := range centroids {
				if d := floats.Distance(row, c, 2); d < best {
					best = d
				}
			}
			d2[i] = best * best
			sum += d2[i]
		}
		next := 0
		if sum > 0 {
			r := rng.Float64() * sum
			for i, d := range d2 {
				if r -= d; r <= 0 {
					next = i
					break
				}
			}
		} else {
			next = rng.Intn(len(rows))
		}
		centroids = append(centroids, append([]float64(nil), rows[next]...))
	}
	return centroids
}

func assignToCentroids(rows [][]float64, centroids [][]float64) []int {
	assign := make([]int, len(rows))
	for i, row := range rows {
		best, bestD := 0, math.Inf(1)
		for j, c := range centroids {
			if d := floats.Distance(row, c, 2); d < bestD {
				best, bestD = j, d
			}
		}
		assign[i] = best
	}
	return assign
}

// silhouette is the mean silhouette coefficient: higher means denser,
// better-separated clusters. Single-cluster fits score -1 so any real split
// beats them; singleton points contribute 0 by convention.
func silhouette(rows [][]float64, assign []int, k int) float64 {
	if k < 2 {
		return -1
	}
	n := len(rows)
	scores := make([]float64, n)
	sums := make([]float64, k)
	counts := make([]int, k)
	for _, a := range assign {
		counts[a]++
	}
	for i := 0; i < n; i++ {
		for j := range sums {
			sums[j] = 0
		}
		for j := 0; j < n; j++ {
			if j != i {
				sums[assign[j]] += floats.Distance(rows[i], rows[j], 2)
			}
		}
		own := assign[i]
		if counts[own] < 2 {
			scores[i] = 0
			continue
		}
		a := sums[own] / float64(counts[own]-1)
		b := math.Inf(1)
		for j := range sums {
			if j != own && counts[j] > 0 {
				if m := sums[j] / float64(counts[j]); m < b {
					b = m
				}
			}
		}
		if max := math.Max(a, b); max > 0 {
			scores[i] = (b - a) / max
		}
	}
	return stat.Mean(scores, nil)
}
