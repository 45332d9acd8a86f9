package lcmaplib

import "testing"

func TestClassMapSubset(t *testing.T) {
	m := ClassMap{
		{Code: 1, Name: "forest"},
		{Code: 2, Name: "cropland"},
		{Code: 4, Name: "water"},
	}
	sub := m.Subset([]uint8{4, 1, 9})
	if len(sub) != 2 {
		t.Fatalf("subset = %v, want forest and water", sub)
	}
	if sub[0].Code != 1 || sub[1].Code != 4 {
		t.Fatalf("subset order %v, want the map's order", sub)
	}
	if len(m.Subset(nil)) != 0 {
		t.Fatal("empty code list kept classes")
	}
}
