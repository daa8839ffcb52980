package wmo

// AssociatedFieldMeaning holds the decoded interpretation of code table
// B31021 in effect while associated_field_bits > 0 (spec section 4.3/4.5).
type AssociatedFieldMeaning int

const (
	AFQualityBit63NoMeaning AssociatedFieldMeaning = 63
)

// InterpreterState is the mutable codec state threaded through one
// traversal of the data descriptor sequence (spec section 4.3). It is
// scoped to a single subset/run of the interpreter and is never shared
// across goroutines.
type InterpreterState struct {
	CScaleChange        int
	CWidthChange        int
	CRefChange          int32
	CStringLenOverride  uint32 // bytes; 0 means no override
	AssociatedFieldBits uint   // 0 means no associated field active
	AssociatedFieldSig  int    // code table B31021 value

	// LocalDescriptorBits is set by a C06yyy operator and consumed by the
	// very next element opcode: it declares that element's bit width when
	// Table B either doesn't know the code or disagrees with Y, per spec
	// section 4.4. Cleared after that one element.
	LocalDescriptorBits uint32

	BitmapPending  bool    // a C22000/C23000/C24000 has been seen
	SubstitutedVal bool    // not set by DDSInterpreter, which hands each C23255 straight to Handler.SubstitutedValue
	Bitmap         *Bitmap // the active bitmap, if any
	LastBitmap     *Bitmap // the most recently defined bitmap, for C37000 reuse
}

// Resolve applies the scale/width/ref overrides in state to base, per the
// resolution rule in spec section 4.3. It returns base unchanged if no
// override applies.
func (s *InterpreterState) Resolve(ts TableSet, base *Varinfo) *Varinfo {
	if s.CScaleChange == 0 && s.CWidthChange == 0 && s.CRefChange == 0 && !(base.Type == String && s.CStringLenOverride > 0) {
		return base
	}

	scale := base.Scale + s.CScaleChange

	var bitLen uint32
	if base.Type == String && s.CStringLenOverride > 0 {
		bitLen = s.CStringLenOverride * 8
	} else {
		bitLen = uint32(int64(base.BitLen) + int64(s.CWidthChange))
	}

	if s.CRefChange != 0 {
		if ra, ok := ts.(RefAlterer); ok {
			return ra.AlteredRef(base, scale, bitLen, base.BitRef+s.CRefChange)
		}
		// TableSet does not support ref alteration; derive inline without
		// memoization rather than silently dropping the C07yyy override.
		derived := *base
		derived.Scale = scale
		derived.BitLen = bitLen
		derived.BitRef = base.BitRef + s.CRefChange
		derived.Ref = derived.BitRef
		if derived.IsNumeric() {
			derived.IMin = derived.BitRef
			derived.IMax = derived.BitRef + int32(uint32(1)<<bitLen) - 2
		}
		derived.Alteration = -1
		return &derived
	}

	return ts.Altered(base, scale, bitLen)
}

// ResetPerSubset resets every field to its zero value, leaving s equal to a
// fresh InterpreterState{}. bufr and crex do not call it: they start each
// subset's traversal (uncompressed BUFR/CREX), or the shared traversal of a
// compressed BUFR message, with a new zero state (spec section 4.4,
// "run_dds").
func (s *InterpreterState) ResetPerSubset() {
	*s = InterpreterState{}
}
