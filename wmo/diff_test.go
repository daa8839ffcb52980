package wmo

import (
	"testing"
	"time"
)

func sampleBulletin() *Bulletin {
	info := NewVarinfo(NewVarcode(0, 12, 101), "TEMPERATURE", "K", Decimal, 2, -5000, 16)
	v := NewVar(info)
	_ = v.SetDouble(290.0)
	s := &Subset{}
	s.Append(v)
	return &Bulletin{
		Edition:       4,
		Centre:        98,
		Category:      0,
		ReferenceTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DataDesc:      []Varcode{info.Code},
		Subsets:       []*Subset{s},
	}
}

func TestDiffIdentical(t *testing.T) {
	a := sampleBulletin()
	b := sampleBulletin()
	if n := Diff(a, b); n != 0 {
		t.Errorf("Diff of identical bulletins = %d, want 0", n)
	}
}

func TestDiffDetectsHeaderChange(t *testing.T) {
	a := sampleBulletin()
	b := sampleBulletin()
	b.Centre = 7
	if n := Diff(a, b); n != 1 {
		t.Errorf("Diff after centre change = %d, want 1", n)
	}
}

func TestDiffDetectsValueChange(t *testing.T) {
	a := sampleBulletin()
	b := sampleBulletin()
	_ = b.Subsets[0].At(0).SetDouble(300.0)
	if n := Diff(a, b); n != 1 {
		t.Errorf("Diff after value change = %d, want 1", n)
	}
}

func TestDiffDetectsSubsetCountMismatch(t *testing.T) {
	a := sampleBulletin()
	b := sampleBulletin()
	b.Subsets = append(b.Subsets, &Subset{})
	if n := Diff(a, b); n != 1 {
		t.Errorf("Diff after subset count change = %d, want 1", n)
	}
}
