package lcmaplib

import (
	"fmt"
	"math"

	"github.com/rwageo/lcmaplib/log"

	"go.uber.org/zap"
)

type JoinKind string

const (
	JoinAll JoinKind = "all"
	JoinAny JoinKind = "any"
)

type CondKind string

const (
	CondClassIn    CondKind = "class-in"
	CondClassNotIn CondKind = "class-not-in"
	CondMaskIn     CondKind = "mask-in"
	CondMaskNotIn  CondKind = "mask-not-in"
)

// Cond is one pixel predicate: membership of the current class value, or of
// an aligned mask's value, in a code list. Mask is required for mask kinds.
type Cond struct {
	Kind   CondKind `yaml:"kind"`
	Mask   string   `yaml:"mask,omitempty"`
	Values []uint8  `yaml:"values"`
}

type ActionKind string

const (
	// ActionSet assigns a fixed class code to matching pixels.
	ActionSet ActionKind = "set"
	// ActionFill clears matching pixels to background, then reassigns each
	// the label of its nearest remaining pixel within the distance cap.
	ActionFill ActionKind = "fill"
)

// Rule is one ordered reclassification step. Conds are joined by Join
// (default all). Later rules see earlier rules' output.
type Rule struct {
	Name        string     `yaml:"name"`
	Join        JoinKind   `yaml:"join,omitempty"`
	Conds       []Cond     `yaml:"conds"`
	Action      ActionKind `yaml:"action"`
	Value       uint8      `yaml:"value,omitempty"`
	MaxFillDist float64    `yaml:"max_fill_dist,omitempty"` // grid linear units
}

type RuleStat struct {
	Name     string
	Matched  int
	Changed  int
	Filled   int
	Unfilled int
}

type RuleReport struct {
	Rules []RuleStat
	// Background pixels still present after the last rule, fill caps included.
	Background int
}

// ValidateRules checks the rule list against the raster grid and the mask
// set before anything runs. Misaligned or missing masks are fatal here, not
// tolerated at apply time.
func ValidateRules(g *Grid, rules []Rule, masks map[string]*Grid) error {
	if len(rules) == 0 {
		return ErrEmptyRuleSet
	}
	for _, r := range rules {
		if len(r.Conds) == 0 {
			return fmt.Errorf("%w: rule %q has no conditions", ErrBadRule, r.Name)
		}
		switch r.Join {
		case "", JoinAll, JoinAny: // empty join means all
		default:
			return fmt.Errorf("%w: rule %q join %q", ErrBadRule, r.Name, r.Join)
		}
		switch r.Action {
		case ActionSet, ActionFill:
		default:
			return fmt.Errorf("%w: rule %q action %q", ErrBadRule, r.Name, r.Action)
		}
		for _, c := range r.Conds {
			switch c.Kind {
			case CondClassIn, CondClassNotIn:
			case CondMaskIn, CondMaskNotIn:
				m, ok := masks[c.Mask]
				if !ok {
					return fmt.Errorf("%w: %q in rule %q", ErrUnknownMask, c.Mask, r.Name)
				}
				if !g.Aligned(m) {
					return fmt.Errorf("%w: %q in rule %q", ErrMisalignedMask, c.Mask, r.Name)
				}
			default:
				return fmt.Errorf("%w: rule %q cond kind %q", ErrBadRule, r.Name, c.Kind)
			}
			if len(c.Values) == 0 {
				return fmt.Errorf("%w: rule %q cond without values", ErrBadRule, r.Name)
			}
		}
	}
	return nil
}

// ApplyRules runs the ordered rule list over a working copy of the raster
// and returns a fresh output grid; the input is never touched. background is
// the sentinel code used by fill actions.
func ApplyRules(g *Grid, rules []Rule, masks map[string]*Grid, background uint8) (*Grid, *RuleReport, error) {
	if err := ValidateRules(g, rules, masks); err != nil {
		return nil, nil, err
	}
	out := g.Clone()
	rep := &RuleReport{Rules: make([]RuleStat, 0, len(rules))}
	sel := make([]bool, len(out.Data))
	for _, r := range rules {
		stat := RuleStat{Name: r.Name}
		for i := range sel {
			sel[i] = matchPixel(out, masks, &r, i)
			if sel[i] {
				stat.Matched++
			}
		}
		switch r.Action {
		case ActionSet:
			for i, hit := range sel {
				if hit && out.Data[i] != r.Value {
					out.Data[i] = r.Value
					stat.Changed++
				}
			}
		case ActionFill:
			for i, hit := range sel {
				if hit && out.Data[i] != background {
					out.Data[i] = background
					stat.Changed++
				}
			}
			dist := r.MaxFillDist
			if dist <= 0 {
				dist = DEFAULT_FILL_DISTANCE
			}
			stat.Filled, stat.Unfilled = nearestLabelFill(out, background, dist)
		}
		log.Info("rule applied", zap.String("rule", r.Name), zap.String("action", string(r.Action)),
			zap.Int("matched", stat.Matched), zap.Int("changed", stat.Changed),
			zap.Int("filled", stat.Filled), zap.Int("unfilled", stat.Unfilled))
		rep.Rules = append(rep.Rules, stat)
	}
	for _, v := range out.Data {
		if v == background {
			rep.Background++
		}
	}
	if rep.Background > 0 {
		log.Warn("background pixels remain after all rules", zap.Int("count", rep.Background))
	}
	return out, rep, nil
}

func matchPixel(g *Grid, masks map[string]*Grid, r *Rule, i int) bool {
	for _, c := range r.Conds {
		var v uint8
		switch c.Kind {
		case CondClassIn, CondClassNotIn:
			v = g.Data[i]
		default:
			v = masks[c.Mask].Data[i]
		}
		hit := codeIn(v, c.Values)
		if c.Kind == CondClassNotIn || c.Kind == CondMaskNotIn {
			hit = !hit
		}
		if r.Join == JoinAny {
			if hit {
				return true
			}
		} else if !hit {
			return false
		}
	}
	return r.Join != JoinAny
}

func codeIn(v uint8, set []uint8) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

const edtInf = math.MaxInt32

// nearestLabelFill reassigns every background pixel the label of its exactly
// nearest non-background pixel (Euclidean), via the two-pass squared
// distance transform with source-index propagation. Pixels whose nearest
// label is farther than maxDist (grid linear units) stay background and are
// counted as unfilled. A fully-background grid fills nothing.
func nearestLabelFill(g *Grid, background uint8, maxDist float64) (filled, unfilled int) {
	w, h := g.Width, g.Height
	// column pass: nearest non-background row per column, squared row distance
	colDist := make([]int64, w*h)
	colSrc := make([]int32, w*h) // source row, -1 when the column is empty
	for x := 0; x < w; x++ {
		last := int32(-1)
		for y := 0; y < h; y++ {
			i := y*w + x
			if g.Data[i] != background {
				last = int32(y)
			}
			if last < 0 {
				colDist[i] = edtInf
				colSrc[i] = -1
			} else {
				d := int64(int32(y) - last)
				colDist[i] = d * d
				colSrc[i] = last
			}
		}
		last = -1
		for y := h - 1; y >= 0; y-- {
			i := y*w + x
			if g.Data[i] != background {
				last = int32(y)
			}
			if last >= 0 {
				d := int64(last - int32(y))
				if d*d < colDist[i] {
					colDist[i] = d * d
					colSrc[i] = last
				}
			}
		}
	}
	// row pass: lower envelope of parabolas rooted at (x', colDist[y][x'])
	capPx := maxDist / g.PixelSize()
	capSq := capPx * capPx
	v := make([]int, w)       // parabola roots (columns)
	z := make([]float64, w+1) // envelope breakpoints
	f := make([]float64, w)   // sampled column distances for the row
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			if d := colDist[row+x]; d == edtInf {
				f[x] = math.Inf(1)
			} else {
				f[x] = float64(d)
			}
		}
		k := -1
		for q := 0; q < w; q++ {
			if math.IsInf(f[q], 1) {
				continue
			}
			fq := f[q] + float64(q)*float64(q)
			for k >= 0 {
				p := v[k]
				s := (fq - (f[p] + float64(p)*float64(p))) / (2 * float64(q-p))
				if s <= z[k] {
					k--
					continue
				}
				z[k+1] = s
				break
			}
			if k < 0 {
				z[0] = math.Inf(-1)
			}
			k++
			v[k] = q
			z[k+1] = math.Inf(1)
		}
		if k < 0 {
			continue // no labeled pixel reaches this row through any column
		}
		e := 0
		for x := 0; x < w; x++ {
			i := row + x
			if g.Data[i] != background {
				continue
			}
			for z[e+1] < float64(x) {
				e++
			}
			bx := v[e]
			dx := float64(x - bx)
			dist2 := dx*dx + f[bx]
			if dist2 > capSq {
				unfilled++
				continue
			}
			src := int(colSrc[row+bx])*w + bx
			g.Data[i] = g.Data[src]
			filled++
		}
	}
	// rows with no reachable label at all still hold background pixels
	for y := 0; y < h; y++ {
		rowEmpty := true
		for x := 0; x < w; x++ {
			if colDist[y*w+x] != edtInf {
				rowEmpty = false
				break
			}
		}
		if rowEmpty {
			for x := 0; x < w; x++ {
				if g.Data[y*w+x] == background {
					unfilled++
				}
			}
		}
	}
	return
}
