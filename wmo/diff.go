package wmo

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// varComparer compares two Vars by decoded value and attribute chain,
// ignoring unexported bookkeeping fields (slice capacity, etc.) so that
// two structurally-equal Vars built through different code paths compare
// equal under cmp.
var varComparer = cmp.Comparer(func(a, b *Var) bool {
	return a.Equal(b)
})

// Diff compares two bulletins and returns the number of differences found,
// the testing utility named in spec section 6.3. It compares header
// fields, the descriptor sequence, and every subset's variables.
func Diff(a, b *Bulletin) int {
	n, _ := diffBulletin(a, b, false)
	return n
}

// DiffReport is like Diff but also returns a human-readable message for
// each difference found, each value rendered with Var.Format (mirrors
// Var::format in original_source/wreport/var.cc).
func DiffReport(a, b *Bulletin) (int, []string) {
	return diffBulletin(a, b, true)
}

func diffBulletin(a, b *Bulletin, report bool) (int, []string) {
	n := 0
	var msgs []string
	note := func(format string, args ...interface{}) {
		n++
		if report {
			msgs = append(msgs, fmt.Sprintf(format, args...))
		}
	}

	if a.Edition != b.Edition {
		note("edition: %d != %d", a.Edition, b.Edition)
	}
	if a.Centre != b.Centre || a.Subcentre != b.Subcentre {
		note("centre/subcentre: %d/%d != %d/%d", a.Centre, a.Subcentre, b.Centre, b.Subcentre)
	}
	if a.Category != b.Category || a.Subcategory != b.Subcategory || a.LocalSubtype != b.LocalSubtype {
		note("category/subcategory/local subtype: %d/%d/%d != %d/%d/%d",
			a.Category, a.Subcategory, a.LocalSubtype, b.Category, b.Subcategory, b.LocalSubtype)
	}
	if a.MasterTable != b.MasterTable || a.LocalTable != b.LocalTable {
		note("master/local table: %d/%d != %d/%d", a.MasterTable, a.LocalTable, b.MasterTable, b.LocalTable)
	}
	if !a.ReferenceTime.Equal(b.ReferenceTime) {
		note("reference time: %s != %s", a.ReferenceTime, b.ReferenceTime)
	}
	if a.Compressed != b.Compressed {
		note("compressed: %v != %v", a.Compressed, b.Compressed)
	}
	if !cmp.Equal(a.DataDesc, b.DataDesc) {
		note("data descriptor sequence differs: %v != %v", a.DataDesc, b.DataDesc)
	}
	if len(a.Subsets) != len(b.Subsets) {
		d := abs(len(a.Subsets) - len(b.Subsets))
		for i := 0; i < d; i++ {
			note("subset count: %d != %d", len(a.Subsets), len(b.Subsets))
		}
		return n, msgs
	}

	for i := range a.Subsets {
		av, bv := a.Subsets[i].Vars(), b.Subsets[i].Vars()
		if cmp.Equal(av, bv, varComparer) {
			continue
		}
		if !report {
			n++
			continue
		}
		n++
		for j := range av {
			if j >= len(bv) {
				msgs = append(msgs, fmt.Sprintf("subset %d: var %d (%s) missing from second bulletin", i, j, av[j].Code()))
				continue
			}
			if !av[j].Equal(bv[j]) {
				msgs = append(msgs, fmt.Sprintf("subset %d: %s: %s != %s",
					i, av[j].Code(), av[j].Format("(missing)"), bv[j].Format("(missing)")))
			}
		}
		if len(bv) > len(av) {
			for j := len(av); j < len(bv); j++ {
				msgs = append(msgs, fmt.Sprintf("subset %d: var %d (%s) missing from first bulletin", i, j, bv[j].Code()))
			}
		}
	}
	return n, msgs
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
