package embedding

import (
	"strings"
	"testing"
)

type mapVocab map[string]int

func (v mapVocab) ID(w string) (int, bool) {
	id, ok := v[w]
	return id, ok
}

func (v mapVocab) Size() int { return len(v) + 1 }

func TestNewTableCopiesAndZeroesPadding(t *testing.T) {
	t.Parallel()
	data := []float32{9, 9, 1, 2, 3, 4}
	tbl, err := NewTable(3, 2, data)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	data[2] = 100
	v, err := tbl.Lookup(1)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if v[0] != 1 || v[1] != 2 {
		t.Fatalf("table aliased caller data: %v", v)
	}
	pad, _ := tbl.Lookup(PadID)
	if pad[0] != 0 || pad[1] != 0 {
		t.Fatalf("padding row should be zero, got %v", pad)
	}
	v[0] = 77
	again, _ := tbl.Lookup(1)
	if again[0] != 1 {
		t.Fatal("Lookup returned a view into the table")
	}
}

func TestLookupOutOfRange(t *testing.T) {
	t.Parallel()
	tbl, _ := NewTable(2, 2, make([]float32, 4))
	for _, id := range []int{-1, 2} {
		if _, err := tbl.Lookup(id); err == nil {
			t.Fatalf("expected error for id %d", id)
		}
	}
}

func TestComputeMaskIsIdempotent(t *testing.T) {
	t.Parallel()
	ids := []int{5, 7, 0, 0}
	a := ComputeMask(ids)
	b := ComputeMask(ids)
	want := []bool{true, true, false, false}
	for i := range want {
		if a[i] != want[i] || b[i] != want[i] {
			t.Fatalf("mask = %v / %v, want %v", a, b, want)
		}
	}
	a[0] = false
	if b[0] != true {
		t.Fatal("masks share storage")
	}
}

func TestLoadText(t *testing.T) {
	t.Parallel()
	vocab := mapVocab{"the": 1, "cable": 2, "works": 3}
	src := strings.Join([]string{
		"the 0.1 0.2 0.3",
		"unknown 1 1 1",
		"works -1 0 1",
		"",
	}, "\n")
	tbl, filled, err := LoadText(strings.NewReader(src), vocab, 3)
	if err != nil {
		t.Fatalf("LoadText: %v", err)
	}
	if filled != 2 {
		t.Fatalf("filled = %d, want 2", filled)
	}
	if tbl.Size() != 4 || tbl.Dim() != 3 {
		t.Fatalf("shape %dx%d", tbl.Size(), tbl.Dim())
	}
	cable, _ := tbl.Lookup(2)
	for _, v := range cable {
		if v != 0 {
			t.Fatalf("missing word should keep zero vector, got %v", cable)
		}
	}
	works, _ := tbl.Lookup(3)
	if works[0] != -1 || works[2] != 1 {
		t.Fatalf("unexpected vector %v", works)
	}
}

func TestLoadTextDimMismatch(t *testing.T) {
	t.Parallel()
	_, _, err := LoadText(strings.NewReader("the 1 2\n"), mapVocab{"the": 1}, 3)
	if err == nil {
		t.Fatal("expected dimension error")
	}
}
