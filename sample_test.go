package lcmaplib

import (
	"errors"
	"testing"
)

var testTransform = [6]float64{500000, 10, 0, 9800000, 0, -10}

func fillRect(g *Grid, x0, y0, x1, y1 int, v uint8) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			g.Set(x, y, v)
		}
	}
}

func TestSampleProportional(t *testing.T) {
	// two classes with a 3:1 pixel ratio on a 10x10 grid
	g := NewGrid(10, 10, testTransform, OUTPUT_SRID, 0)
	fillRect(g, 0, 0, 10, 10, 1)
	fillRect(g, 0, 0, 5, 5, 2)
	pts, rep, err := Sample(g, SampleConfig{
		Total: 100, MinPerClass: 10, Strategy: StrategyProportional, Seed: 7,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rep.PerClass[1].Quota != 75 || rep.PerClass[2].Quota != 25 {
		t.Fatalf("quotas = %d/%d, want 75/25", rep.PerClass[1].Quota, rep.PerClass[2].Quota)
	}
	if rep.PerClass[1].Drawn != 75 || rep.PerClass[2].Drawn != 25 {
		t.Fatalf("drawn = %d/%d, want 75/25", rep.PerClass[1].Drawn, rep.PerClass[2].Drawn)
	}
	if len(pts) != 100 {
		t.Fatalf("points = %d, want 100", len(pts))
	}
	if n := VerifyLabels(g, pts); n != 0 {
		t.Fatalf("%d points disagree with the raster", n)
	}
	seen := map[[2]int]bool{}
	for _, p := range pts {
		key := [2]int{p.Col, p.Row}
		if seen[key] {
			t.Fatalf("duplicate pixel (%d,%d)", p.Col, p.Row)
		}
		seen[key] = true
	}
}

func TestSampleMinPerClassFloor(t *testing.T) {
	// class 2 holds 4% of the area, proportional quota 2, floored to 20
	g := NewGrid(10, 10, testTransform, OUTPUT_SRID, 0)
	fillRect(g, 0, 0, 10, 10, 1)
	fillRect(g, 0, 0, 2, 2, 2)
	_, rep, err := Sample(g, SampleConfig{
		Total: 50, MinPerClass: 20, Strategy: StrategyProportional, Seed: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rep.PerClass[2].Quota != 20 {
		t.Fatalf("quota = %d, want floored 20", rep.PerClass[2].Quota)
	}
	// only 4 pixels exist, so the draw caps there
	if rep.PerClass[2].Drawn != 4 {
		t.Fatalf("drawn = %d, want population cap 4", rep.PerClass[2].Drawn)
	}
}

func TestSampleEqual(t *testing.T) {
	g := NewGrid(20, 20, testTransform, OUTPUT_SRID, 0)
	fillRect(g, 0, 0, 20, 20, 3)
	fillRect(g, 0, 0, 20, 10, 4)
	_, rep, err := Sample(g, SampleConfig{Total: 60, Strategy: StrategyEqual, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	if rep.PerClass[3].Drawn != 30 || rep.PerClass[4].Drawn != 30 {
		t.Fatalf("drawn = %d/%d, want 30/30", rep.PerClass[3].Drawn, rep.PerClass[4].Drawn)
	}
}

func TestSampleManual(t *testing.T) {
	g := NewGrid(10, 10, testTransform, OUTPUT_SRID, 0)
	fillRect(g, 0, 0, 10, 10, 1)
	fillRect(g, 0, 0, 10, 5, 2)
	pts, _, err := Sample(g, SampleConfig{
		Strategy: StrategyManual, Manual: map[uint8]int{1: 5, 2: 8}, Seed: 9,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 13 {
		t.Fatalf("points = %d, want 13", len(pts))
	}
	_, _, err = Sample(g, SampleConfig{
		Strategy: StrategyManual, Manual: map[uint8]int{9: 5}, Seed: 9,
	})
	if err == nil {
		t.Fatal("expected error for quota on absent class")
	}
}

func TestSampleExcluded(t *testing.T) {
	g := NewGrid(10, 10, testTransform, OUTPUT_SRID, 0)
	fillRect(g, 0, 0, 10, 10, 1)
	fillRect(g, 0, 0, 10, 3, 0) // nodata band at the top
	pts, _, err := Sample(g, SampleConfig{
		Total: 200, Strategy: StrategyProportional, Seed: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 70 {
		t.Fatalf("points = %d, want all 70 populated pixels", len(pts))
	}
	for _, p := range pts {
		if p.Class == 0 {
			t.Fatal("sampled an excluded pixel")
		}
	}
}

func TestSampleConfigErrors(t *testing.T) {
	g := NewGrid(4, 4, testTransform, OUTPUT_SRID, 0)
	fillRect(g, 0, 0, 4, 4, 1)
	if _, _, err := Sample(g, SampleConfig{Total: 0, Strategy: StrategyProportional}); !errors.Is(err, ErrEmptyBudget) {
		t.Fatalf("err = %v, want ErrEmptyBudget", err)
	}
	if _, _, err := Sample(g, SampleConfig{Total: 10, Strategy: "best-effort"}); !errors.Is(err, ErrInvalidStrategy) {
		t.Fatalf("err = %v, want ErrInvalidStrategy", err)
	}
	empty := NewGrid(4, 4, testTransform, OUTPUT_SRID, 0)
	if _, _, err := Sample(empty, SampleConfig{Total: 10, Strategy: StrategyEqual}); !errors.Is(err, ErrEmptyGrid) {
		t.Fatalf("err = %v, want ErrEmptyGrid", err)
	}
}

func TestSampleDeterministic(t *testing.T) {
	g := NewGrid(10, 10, testTransform, OUTPUT_SRID, 0)
	fillRect(g, 0, 0, 10, 10, 1)
	a, _, _ := Sample(g, SampleConfig{Total: 30, Strategy: StrategyEqual, Seed: 42})
	b, _, _ := Sample(g, SampleConfig{Total: 30, Strategy: StrategyEqual, Seed: 42})
	if len(a) != len(b) {
		t.Fatal("draw size differs across identical seeds")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("draw differs at %d: %v vs %v", i, a[i], b[i])
		}
	}
}
