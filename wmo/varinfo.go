package wmo

import "math"

// Type is the storage kind of a Varinfo/Var.
type Type int

const (
	Integer Type = iota
	Decimal
	String
	Binary
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "integer"
	case Decimal:
		return "decimal"
	case String:
		return "string"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Varinfo is the immutable metadata for one element: its identity, type,
// scaling, and encoded bit/byte width. Varinfos are created once by a
// TableSet (or by Altered/UnknownLocalVarinfo) and never mutated afterward;
// callers hold them by pointer or value freely.
type Varinfo struct {
	Code Varcode
	Desc string
	Unit string
	Type Type

	Scale int   // decimal scale (decoded = raw * 10^-Scale for Decimal)
	Ref   int32 // reference value added to the raw bit-packed integer
	Len   uint  // bytes (String/Binary); zero for Integer/Decimal

	BitRef int32  // same as Ref, named per spec section 3 for BUFR bit math
	BitLen uint32 // width in bits (numeric/string/binary) used for BUFR

	IMin, IMax int32   // inclusive domain for the integer form
	DMin, DMax float64 // inclusive domain for the decimal form

	// Alteration identifies which C-modifier combination produced this
	// Varinfo as a derivative of a Table B entry. Zero means "original,
	// unaltered". Non-zero values are assigned by whatever TableSet
	// implementation memoizes alterations (see Altered).
	Alteration int
}

// NewVarinfo builds a Varinfo and derives its domain bounds from bitLen per
// spec section 3: IMin = ref, IMax = ref + (2^bitLen - 2), reserving the
// top value (all-ones) as the missing sentinel. String/Binary types use
// byte-oriented Len instead of a numeric domain.
func NewVarinfo(code Varcode, desc, unit string, typ Type, scale int, ref int32, bitLen uint32) *Varinfo {
	v := &Varinfo{
		Code:   code,
		Desc:   desc,
		Unit:   unit,
		Type:   typ,
		Scale:  scale,
		Ref:    ref,
		BitRef: ref,
		BitLen: bitLen,
	}
	switch typ {
	case String, Binary:
		v.Len = uint(bitLen+7) / 8
	default:
		if bitLen >= 32 {
			Panicf(Consistency, "varinfo %s: bit_len %d is too wide for a 32-bit domain", code, bitLen)
		}
		v.IMin = ref
		v.IMax = ref + int32(uint32(1)<<bitLen) - 2
		v.DMin = float64(v.IMin) * math.Pow(10, -float64(scale))
		v.DMax = float64(v.IMax) * math.Pow(10, -float64(scale))
	}
	return v
}

// MissingRaw returns the all-ones sentinel for a field of BitLen bits.
func (v *Varinfo) MissingRaw() uint32 {
	if v.BitLen >= 32 {
		return 0xFFFFFFFF
	}
	return uint32(1)<<v.BitLen - 1
}

// IsNumeric reports whether the type is Integer or Decimal.
func (v *Varinfo) IsNumeric() bool { return v.Type == Integer || v.Type == Decimal }

// alterationKey identifies a derived Varinfo for memoization by a TableSet.
type alterationKey struct {
	Code   Varcode
	Scale  int
	BitLen uint32
	Ref    int32
}

// BitmapVarinfo builds the single-use String Varinfo used to store a
// decoded data-present bitmap's n '+'/'-' bytes (one byte per entry).
// Grounded on Bitmaps::define in original_source/wreport/bulletin/bitmaps.cc,
// which likewise fabricates a throwaway Varinfo rather than looking one up.
func BitmapVarinfo(n int) *Varinfo {
	return &Varinfo{
		Code: NewVarcode(0, 31, 31),
		Desc: "DATA PRESENT INDICATOR",
		Unit: "CCITTIA5",
		Type: String,
		Len:  uint(n),
		BitLen: uint32(n) * 8,
	}
}

// CharDataVarinfo builds the single-use String Varinfo used to store C05yyy
// raw character data of n bytes.
func CharDataVarinfo(code Varcode, n int) *Varinfo {
	return &Varinfo{
		Code:   code,
		Desc:   "CHARACTER DATA",
		Unit:   "CCITTIA5",
		Type:   String,
		Len:    uint(n),
		BitLen: uint32(n) * 8,
	}
}

// UnknownLocalVarinfo builds the single-use String Varinfo the decoders
// fall back to for a C06yyy local descriptor the TableSet does not know, or
// whose known width disagrees with the declared width. Grounded on
// MutableVarinfo::create_singleuse in original_source/wreport/bulletin/dds-interpreter.cc.
func UnknownLocalVarinfo(code Varcode, bitLen uint32) *Varinfo {
	return &Varinfo{
		Code:   code,
		Desc:   "UNKNOWN LOCAL DESCRIPTOR",
		Unit:   "UNKNOWN",
		Type:   String,
		BitLen: bitLen,
		Len:    uint(bitLen+7) / 8,
	}
}
