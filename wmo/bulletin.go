package wmo

import "time"

// Bulletin is a full message: header metadata, the data descriptor
// sequence, and N subsets of decoded observations.
type Bulletin struct {
	// Edition is the BUFR edition (2, 3, or 4); meaningless for CREX,
	// which instead uses the T/A fields encoded in Category/Subcategory.
	Edition int

	Centre         int
	Subcentre      int
	UpdateSequence int

	Category      int
	Subcategory   int
	LocalSubtype  int
	MasterTable   int
	LocalTable    int
	MasterTableNo int

	ReferenceTime time.Time

	// Compressed is true for a BUFR message using compressed encoding
	// (spec section 4.6). CREX has no compressed form.
	Compressed bool

	// OptionalSection carries BUFR section 2's raw payload bytes verbatim,
	// so that Encode(Decode(x)) reproduces it even though the DDS
	// interpreter never inspects it (SPEC_FULL section 5).
	OptionalSection []byte

	// CheckDigits enables CREX's rotating check-digit mode (spec
	// section 6.2). Unused for BUFR.
	CheckDigits bool

	DataDesc []Varcode
	Subsets  []*Subset
}

// NewBulletin creates a bulletin with n empty subsets and the given
// descriptor sequence.
func NewBulletin(datadesc []Varcode, n int) *Bulletin {
	b := &Bulletin{DataDesc: append([]Varcode(nil), datadesc...)}
	b.Subsets = make([]*Subset, n)
	for i := range b.Subsets {
		b.Subsets[i] = &Subset{}
	}
	return b
}
