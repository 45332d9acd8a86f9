package lcmaplib

import (
	"bytes"
	"errors"
	"testing"
)

func unitGrid(w, h int, fill uint8) *Grid {
	g := NewGrid(w, h, [6]float64{0, 1, 0, 0, 0, -1}, OUTPUT_SRID, 0)
	fillRect(g, 0, 0, w, h, fill)
	return g
}

func TestFillSurroundedIsland(t *testing.T) {
	// single interior class-1 pixel in a field of class 2; removal by fill
	// reassigns it to the surrounding class
	g := unitGrid(10, 10, 2)
	g.Set(4, 4, 1)
	rules := []Rule{{
		Name:   "drop isolated",
		Conds:  []Cond{{Kind: CondClassIn, Values: []uint8{1}}},
		Action: ActionFill,
	}}
	out, rep, err := ApplyRules(g, rules, nil, DEFAULT_BACKGROUND)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.At(4, 4); got != 2 {
		t.Fatalf("island pixel = %d, want 2", got)
	}
	if rep.Rules[0].Filled != 1 || rep.Rules[0].Unfilled != 0 {
		t.Fatalf("filled/unfilled = %d/%d, want 1/0", rep.Rules[0].Filled, rep.Rules[0].Unfilled)
	}
	if g.At(4, 4) != 1 {
		t.Fatal("input grid was mutated")
	}
}

func TestFillNearestWins(t *testing.T) {
	// labels at both ends of a strip; filled pixels take the closer one
	g := unitGrid(7, 1, 5)
	g.Set(0, 0, 1)
	g.Set(6, 0, 2)
	rules := []Rule{{
		Name:   "clear strip",
		Conds:  []Cond{{Kind: CondClassIn, Values: []uint8{5}}},
		Action: ActionFill,
	}}
	out, _, err := ApplyRules(g, rules, nil, DEFAULT_BACKGROUND)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []int{1, 2} {
		if out.At(c, 0) != 1 {
			t.Fatalf("col %d = %d, want 1", c, out.At(c, 0))
		}
	}
	for _, c := range []int{4, 5} {
		if out.At(c, 0) != 2 {
			t.Fatalf("col %d = %d, want 2", c, out.At(c, 0))
		}
	}
	if v := out.At(3, 0); v != 1 && v != 2 {
		t.Fatalf("tie pixel = %d, want one of the strip labels", v)
	}
}

func TestFillDistanceCap(t *testing.T) {
	g := unitGrid(21, 1, 5)
	g.Set(0, 0, 1)
	rules := []Rule{{
		Name:        "capped fill",
		Conds:       []Cond{{Kind: CondClassIn, Values: []uint8{5}}},
		Action:      ActionFill,
		MaxFillDist: 5, // grid units; pixel size is 1
	}}
	out, rep, err := ApplyRules(g, rules, nil, DEFAULT_BACKGROUND)
	if err != nil {
		t.Fatal(err)
	}
	for c := 1; c <= 5; c++ {
		if out.At(c, 0) != 1 {
			t.Fatalf("col %d = %d, want filled 1", c, out.At(c, 0))
		}
	}
	for c := 6; c <= 20; c++ {
		if out.At(c, 0) != DEFAULT_BACKGROUND {
			t.Fatalf("col %d = %d, want background beyond the cap", c, out.At(c, 0))
		}
	}
	if rep.Rules[0].Filled != 5 || rep.Rules[0].Unfilled != 15 {
		t.Fatalf("filled/unfilled = %d/%d, want 5/15", rep.Rules[0].Filled, rep.Rules[0].Unfilled)
	}
	if rep.Background != 15 {
		t.Fatalf("report background = %d, want 15", rep.Background)
	}
}

func TestFillNoTarget(t *testing.T) {
	g := unitGrid(4, 4, 3)
	rules := []Rule{{
		Name:   "clear everything",
		Conds:  []Cond{{Kind: CondClassIn, Values: []uint8{3}}},
		Action: ActionFill,
	}}
	out, rep, err := ApplyRules(g, rules, nil, DEFAULT_BACKGROUND)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range out.Data {
		if v != DEFAULT_BACKGROUND {
			t.Fatalf("pixel = %d, want background everywhere", v)
		}
	}
	if rep.Rules[0].Unfilled != 16 {
		t.Fatalf("unfilled = %d, want all 16", rep.Rules[0].Unfilled)
	}
}

func TestRulesSeeEarlierEffects(t *testing.T) {
	// merge class 3 into 2, then relocate class-2 pixels under the mask
	g := unitGrid(4, 4, 1)
	g.Set(0, 0, 3)
	g.Set(1, 0, 2)
	mask := unitGrid(4, 4, 0)
	mask.Set(0, 0, 1)
	mask.Set(1, 0, 1)
	rules := []Rule{
		{
			Name:   "merge crops",
			Conds:  []Cond{{Kind: CondClassIn, Values: []uint8{3}}},
			Action: ActionSet,
			Value:  2,
		},
		{
			Name: "no crops in protected area",
			Conds: []Cond{
				{Kind: CondClassIn, Values: []uint8{2}},
				{Kind: CondMaskIn, Mask: "protected", Values: []uint8{1}},
			},
			Action: ActionSet,
			Value:  6,
		},
	}
	out, rep, err := ApplyRules(g, rules, map[string]*Grid{"protected": mask}, DEFAULT_BACKGROUND)
	if err != nil {
		t.Fatal(err)
	}
	// the pixel merged by rule 1 must be visible to rule 2
	if out.At(0, 0) != 6 || out.At(1, 0) != 6 {
		t.Fatalf("protected pixels = %d/%d, want 6/6", out.At(0, 0), out.At(1, 0))
	}
	if rep.Rules[1].Changed != 2 {
		t.Fatalf("rule 2 changed %d, want 2", rep.Rules[1].Changed)
	}
}

func TestJoinAny(t *testing.T) {
	g := unitGrid(3, 1, 1)
	g.Set(1, 0, 2)
	g.Set(2, 0, 3)
	rules := []Rule{{
		Name: "either",
		Join: JoinAny,
		Conds: []Cond{
			{Kind: CondClassIn, Values: []uint8{2}},
			{Kind: CondClassIn, Values: []uint8{3}},
		},
		Action: ActionSet,
		Value:  9,
	}}
	out, _, err := ApplyRules(g, rules, nil, DEFAULT_BACKGROUND)
	if err != nil {
		t.Fatal(err)
	}
	if out.At(0, 0) != 1 || out.At(1, 0) != 9 || out.At(2, 0) != 9 {
		t.Fatalf("got %v", out.Data)
	}
}

func TestApplyIdempotent(t *testing.T) {
	g := unitGrid(12, 12, 2)
	fillRect(g, 2, 2, 6, 6, 1)
	g.Set(9, 9, 4)
	mask := unitGrid(12, 12, 0)
	fillRect(mask, 0, 0, 12, 6, 1)
	rules := []Rule{
		{
			Name:   "merge",
			Conds:  []Cond{{Kind: CondClassIn, Values: []uint8{4}}},
			Action: ActionSet,
			Value:  2,
		},
		{
			Name: "clear class 1 under mask",
			Conds: []Cond{
				{Kind: CondClassIn, Values: []uint8{1}},
				{Kind: CondMaskIn, Mask: "m", Values: []uint8{1}},
			},
			Action: ActionFill,
		},
	}
	masks := map[string]*Grid{"m": mask}
	once, _, err := ApplyRules(g, rules, masks, DEFAULT_BACKGROUND)
	if err != nil {
		t.Fatal(err)
	}
	twice, rep, err := ApplyRules(once, rules, masks, DEFAULT_BACKGROUND)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(once.Data, twice.Data) {
		t.Fatal("second application changed the raster")
	}
	for _, r := range rep.Rules {
		if r.Changed != 0 {
			t.Fatalf("rule %q changed %d pixels on the second pass", r.Name, r.Changed)
		}
	}
}

func TestApplyLeavesRulesUntouched(t *testing.T) {
	g := unitGrid(3, 3, 1)
	rules := []Rule{{
		Name:   "merge",
		Conds:  []Cond{{Kind: CondClassIn, Values: []uint8{1}}},
		Action: ActionSet,
		Value:  2,
	}}
	if _, _, err := ApplyRules(g, rules, nil, DEFAULT_BACKGROUND); err != nil {
		t.Fatal(err)
	}
	if rules[0].Join != "" {
		t.Fatalf("rule join rewritten to %q", rules[0].Join)
	}
}

func TestRuleValidation(t *testing.T) {
	g := unitGrid(4, 4, 1)
	if _, _, err := ApplyRules(g, nil, nil, DEFAULT_BACKGROUND); !errors.Is(err, ErrEmptyRuleSet) {
		t.Fatalf("err = %v, want ErrEmptyRuleSet", err)
	}
	rules := []Rule{{
		Name:   "masked",
		Conds:  []Cond{{Kind: CondMaskIn, Mask: "roads", Values: []uint8{1}}},
		Action: ActionSet,
	}}
	if _, _, err := ApplyRules(g, rules, nil, DEFAULT_BACKGROUND); !errors.Is(err, ErrUnknownMask) {
		t.Fatalf("err = %v, want ErrUnknownMask", err)
	}
	off := NewGrid(5, 4, [6]float64{0, 1, 0, 0, 0, -1}, OUTPUT_SRID, 0)
	if _, _, err := ApplyRules(g, rules, map[string]*Grid{"roads": off}, DEFAULT_BACKGROUND); !errors.Is(err, ErrMisalignedMask) {
		t.Fatalf("err = %v, want ErrMisalignedMask", err)
	}
	bad := []Rule{{Name: "no conds", Action: ActionSet}}
	if _, _, err := ApplyRules(g, bad, nil, DEFAULT_BACKGROUND); !errors.Is(err, ErrBadRule) {
		t.Fatalf("err = %v, want ErrBadRule", err)
	}
}
