package wmo

// Bitmap is an active data-present bitmap: the decoded '+'/'-' string plus
// the subset positions of the "+' entries, and a cursor over those
// positions that advances as attributes are emitted or consumed (spec
// section 4.3/4.5).
type Bitmap struct {
	// Var is the decoded B31031-shaped variable holding the '+'/'-' bytes,
	// stored so it can be re-emitted on encode and inspected by callers.
	Var *Var

	// Raw holds one byte per bitmap entry: '+' or '-'.
	Raw []byte

	// Targets holds, for each '+' entry in Raw (in the same relative
	// order), the subset position of the variable it refers to.
	Targets []int

	// Cursor indexes into Targets: the next attribute encountered advances
	// and consumes Targets[Cursor].
	Cursor int
}

// Next returns the subset position the next attribute attaches to, and
// advances the cursor. It raises Consistency if the cursor has run past
// the end of Targets (spec section 8, "bitmap cursor past end").
func (b *Bitmap) Next() int {
	if b.Cursor >= len(b.Targets) {
		Panicf(Consistency, "data-present bitmap cursor advanced past its end")
	}
	pos := b.Targets[b.Cursor]
	b.Cursor++
	return pos
}

// Done reports whether every '+' entry has been consumed.
func (b *Bitmap) Done() bool { return b.Cursor >= len(b.Targets) }

// buildBitmap computes Targets from raw '+'/'-' bytes and the list of
// "eligible" (non-special) subset positions accumulated so far: the
// bitmap's j-th entry refers to the j-th of the last len(raw) eligible
// positions, taken in the order they were appended. This is the conventional WMO BUFR binding of a data-present
// bitmap to the block of variables it immediately follows.
func buildBitmap(raw []byte, eligible []int) *Bitmap {
	if len(raw) > len(eligible) {
		Panicf(Consistency, "data-present bitmap of %d entries exceeds %d eligible preceding variables", len(raw), len(eligible))
	}
	window := eligible[len(eligible)-len(raw):]
	bm := &Bitmap{Raw: append([]byte(nil), raw...)}
	for i, c := range raw {
		if c == '+' {
			bm.Targets = append(bm.Targets, window[i])
		}
	}
	return bm
}
