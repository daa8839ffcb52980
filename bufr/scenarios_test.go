package bufr

import (
	"strings"
	"testing"
	"time"

	"github.com/dsnet/wreport/internal/testutil"
	"github.com/dsnet/wreport/wmo"
)

// assocFieldFixture extends testFixture with the codes needed to exercise a
// C04yyy associated field: the significance element, the significance-1
// attribute it produces, and a stand-in temperature element.
const assocFieldFixture = testFixture + `
  - code: "031021"
    desc: ASSOCIATED FIELD SIGNIFICANCE
    unit: CODE TABLE
    type: integer
    scale: 0
    ref: 0
    bitlen: 6
  - code: "033002"
    desc: QUALITY INFORMATION
    unit: CODE TABLE
    type: integer
    scale: 0
    ref: 0
    bitlen: 4
  - code: "012001"
    desc: TEMPERATURE/DRY-BULB TEMPERATURE
    unit: K
    type: decimal
    scale: 1
    ref: 0
    bitlen: 12
`

func mustAssocFieldTableSet(t *testing.T) wmo.TableSet {
	t.Helper()
	ts, err := testutil.LoadTableSet([]byte(assocFieldFixture))
	if err != nil {
		t.Fatalf("LoadTableSet: %v", err)
	}
	return ts
}

func bareBulletin(desc []wmo.Varcode, subsets []*wmo.Subset) *wmo.Bulletin {
	return &wmo.Bulletin{
		Edition:       4,
		Centre:        98,
		MasterTable:   14,
		ReferenceTime: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		DataDesc:      desc,
		Subsets:       subsets,
	}
}

// TestDelayedReplication covers spec section 8 scenario 3: a delayed
// replication of one descriptor, its count read from the data stream.
func TestDelayedReplication(t *testing.T) {
	ts := mustTableSet(t)
	tempInfo := wmo.NewVarinfo(wmo.NewVarcode(0, 12, 101), "", "", wmo.Decimal, 2, -5000, 16)
	countInfo := wmo.NewVarinfo(wmo.NewVarcode(0, 31, 1), "", "", wmo.Integer, 0, 0, 8)

	s := &wmo.Subset{}
	count := wmo.NewVar(countInfo)
	_ = count.SetInt(3)
	s.AppendSpecial(count)
	for _, v := range []float64{290.0, 291.5, 292.25} {
		temp := wmo.NewVar(tempInfo)
		_ = temp.SetDouble(v)
		s.Append(temp)
	}

	desc := []wmo.Varcode{
		wmo.NewVarcode(1, 1, 0), // R01000: delayed replication of 1 descriptor
		wmo.NewVarcode(0, 31, 1),
		wmo.NewVarcode(0, 12, 101),
	}
	orig := bareBulletin(desc, []*wmo.Subset{s})

	data, err := Encode(orig, ts, wmo.Options{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data, ts, wmo.Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n := wmo.Diff(orig, got); n != 0 {
		t.Errorf("round trip produced %d differences", n)
	}
	gs := got.Subsets[0]
	if gs.Len() != 4 {
		t.Fatalf("subset has %d vars, want 4 (count + 3 replicated)", gs.Len())
	}
	if gs.At(0).AsInt() != 3 {
		t.Errorf("replication count = %d, want 3", gs.At(0).AsInt())
	}
	wantTemps := []float64{290.0, 291.5, 292.25}
	for i, want := range wantTemps {
		if got := gs.At(i + 1).AsDouble(); got != want {
			t.Errorf("replicated temperature %d = %v, want %v", i, got, want)
		}
	}
}

// TestAssociatedField covers spec section 8 scenario 4: a C04004 associated
// field of significance 1 attaches a B33002 quality attribute to the
// following element.
func TestAssociatedField(t *testing.T) {
	ts := mustAssocFieldTableSet(t)
	sigInfo := wmo.NewVarinfo(wmo.NewVarcode(0, 31, 21), "", "", wmo.Integer, 0, 0, 6)
	tempInfo := wmo.NewVarinfo(wmo.NewVarcode(0, 12, 1), "", "", wmo.Decimal, 1, 0, 12)
	afInfo := wmo.NewVarinfo(wmo.NewVarcode(0, 33, 2), "", "", wmo.Integer, 0, 0, 4)

	s := &wmo.Subset{}
	sig := wmo.NewVar(sigInfo)
	_ = sig.SetInt(1)
	s.AppendSpecial(sig)

	temp := wmo.NewVar(tempInfo)
	_ = temp.SetDouble(250.0)
	af := wmo.NewVar(afInfo)
	_ = af.SetInt(2)
	temp.SetAttr(af)
	s.Append(temp)

	desc := []wmo.Varcode{
		wmo.NewVarcode(2, 4, 4), // C04004: 4-bit associated field
		wmo.NewVarcode(0, 12, 1),
	}
	orig := bareBulletin(desc, []*wmo.Subset{s})

	data, err := Encode(orig, ts, wmo.Options{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data, ts, wmo.Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n := wmo.Diff(orig, got); n != 0 {
		t.Errorf("round trip produced %d differences", n)
	}
	gotTemp := got.Subsets[0].At(1)
	if gotTemp.AsDouble() != 250.0 {
		t.Errorf("temperature = %v, want 250.0", gotTemp.AsDouble())
	}
	attr := gotTemp.Attr(wmo.NewVarcode(0, 33, 2))
	if attr == nil || attr.AsInt() != 2 {
		t.Fatalf("B33002 attribute missing or wrong: %+v", attr)
	}
}

// TestBitmapSubstitutedValues covers spec section 8 scenario 5: a
// data-present bitmap over three preceding elements, then three C23255
// substituted values attached to the '+' positions.
func TestBitmapSubstitutedValues(t *testing.T) {
	ts := mustTableSet(t)
	blockInfo := wmo.NewVarinfo(wmo.NewVarcode(0, 1, 1), "", "", wmo.Integer, 0, 0, 7)

	s := &wmo.Subset{}
	blocks := []int32{10, 20, 30}
	subs := []int32{11, 21, 31}
	for i, v := range blocks {
		b := wmo.NewVar(blockInfo)
		_ = b.SetInt(v)
		sub := wmo.NewVar(blockInfo)
		_ = sub.SetInt(subs[i])
		b.SetAttr(sub)
		s.Append(b)
	}
	bitmap := wmo.NewVar(wmo.BitmapVarinfo(3))
	_ = bitmap.SetString([]byte("+++"))
	s.AppendSpecial(bitmap)

	desc := []wmo.Varcode{
		wmo.NewVarcode(0, 1, 1),
		wmo.NewVarcode(0, 1, 1),
		wmo.NewVarcode(0, 1, 1),
		wmo.NewVarcode(2, 22, 0),  // C22000: start a data-present bitmap
		wmo.NewVarcode(1, 1, 3),   // R01003: replicate 1 descriptor 3 times
		wmo.NewVarcode(0, 31, 31), // B31031: data present indicator
		wmo.NewVarcode(2, 23, 255),
		wmo.NewVarcode(2, 23, 255),
		wmo.NewVarcode(2, 23, 255),
	}
	orig := bareBulletin(desc, []*wmo.Subset{s})

	data, err := Encode(orig, ts, wmo.Options{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data, ts, wmo.Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n := wmo.Diff(orig, got); n != 0 {
		t.Errorf("round trip produced %d differences", n)
	}
	gs := got.Subsets[0]
	for i, want := range subs {
		attr := gs.At(i).Attr(wmo.NewVarcode(0, 1, 1))
		if attr == nil || attr.AsInt() != want {
			t.Errorf("position %d substituted attribute = %+v, want %d", i, attr, want)
		}
	}
}

// TestCompressedStrings covers spec section 8 scenario 2: a compressed
// message with several subsets carrying distinct string values.
func TestCompressedStrings(t *testing.T) {
	ts := mustTableSet(t)
	nameInfo := wmo.NewVarinfo(wmo.NewVarcode(0, 1, 15), "", "", wmo.String, 0, 0, 160)

	names := []string{"ALPHA", "BRAVO", "CHARLIE", "DELTA", "ECHO"}
	subsets := make([]*wmo.Subset, len(names))
	for i, name := range names {
		v := wmo.NewVar(nameInfo)
		_ = v.SetString([]byte(name))
		s := &wmo.Subset{}
		s.Append(v)
		subsets[i] = s
	}

	orig := bareBulletin([]wmo.Varcode{wmo.NewVarcode(0, 1, 15)}, subsets)
	orig.Compressed = true

	data, err := Encode(orig, ts, wmo.Options{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data, ts, wmo.Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Subsets) != len(names) {
		t.Fatalf("got %d subsets, want %d", len(got.Subsets), len(names))
	}
	for i, name := range names {
		if s := got.Subsets[i].At(0).AsString(); s != name {
			t.Errorf("subset %d station name = %q, want %q", i, s, name)
		}
	}
	if n := wmo.Diff(orig, got); n != 0 {
		t.Errorf("compressed round trip produced %d differences", n)
	}
}

// TestBoundaryCases exercises the four documented boundary cases from spec
// section 8.
func TestBoundaryCases(t *testing.T) {
	t.Run("short section 0", func(t *testing.T) {
		_, _, err := DecodeHeader([]byte{'B', 'U'})
		if err == nil || !strings.Contains(err.Error(), "looking for section 0") {
			t.Fatalf("got err=%v, want a Parse error mentioning %q", err, "looking for section 0")
		}
	})

	t.Run("bad edition", func(t *testing.T) {
		data := make([]byte, 30)
		copy(data, "BUFR")
		data[7] = 47
		data[8], data[9], data[10] = 0, 0, 7 // section 1 declares a (barely) valid length
		_, _, err := DecodeHeader(data)
		if err == nil || !strings.Contains(err.Error(), "47") {
			t.Fatalf("got err=%v, want a Parse error mentioning edition 47", err)
		}
	})

	t.Run("section 1 too short", func(t *testing.T) {
		data := make([]byte, 8+6)
		copy(data, "BUFR")
		data[7] = 3
		data[8], data[9], data[10] = 0, 0, 6 // section 1 length = 6, below the 7-byte minimum
		_, _, err := DecodeHeader(data)
		if err == nil || !strings.Contains(err.Error(), "but it must be at least") {
			t.Fatalf("got err=%v, want a Parse error mentioning the minimum length", err)
		}
	})

	t.Run("optional section 2 too short", func(t *testing.T) {
		ts := mustTableSet(t)
		orig := simpleBulletin(1, 280.0) // Edition 4, so section 1 is always 22 bytes
		orig.OptionalSection = []byte{1, 2, 3, 4}
		data, err := Encode(orig, ts, wmo.Options{})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		// Section 2 starts right after the 8-byte section 0 and 22-byte
		// section 1; corrupt its 3-byte length field (currently 8, for a
		// 4-byte header plus the 4-byte payload) down to 3.
		const sec2Off = 8 + 22
		data[sec2Off+2] = 3
		_, _, err = DecodeHeader(data)
		if err == nil || !strings.Contains(err.Error(), "at least 4") {
			t.Fatalf("got err=%v, want a Parse error mentioning \"at least 4\"", err)
		}
	})
}

// TestCompressedMissingBaseNonzeroDiffWidth covers spec section 4.6/7's
// required Parse error: a compressed base value that reads as missing
// cannot be paired with a nonzero diff width.
func TestCompressedMissingBaseNonzeroDiffWidth(t *testing.T) {
	ts := mustTableSet(t)

	bw := NewBitWriter()
	bw.AddBits(allOnes(16), 16) // base value: all-ones, i.e. missing
	bw.AddBits(3, 6)            // nonzero diff width: wire-invalid combination
	bw.AddBits(0, 3)
	bw.AddBits(0, 3)
	bw.Flush()
	payload := bw.Bytes()

	b := bareBulletin([]wmo.Varcode{wmo.NewVarcode(0, 12, 101)}, []*wmo.Subset{{}, {}})
	b.Compressed = true

	sec4 := encodeSection4(payload)
	sec1 := encodeSection1(4, b)
	sec3 := encodeSection3(b, false)
	total := 4 + 4 + len(sec1) + len(sec3) + len(sec4) + 4
	data := make([]byte, 0, total)
	data = append(data, "BUFR"...)
	data = append(data, byte(total>>16), byte(total>>8), byte(total), 4)
	data = append(data, sec1...)
	data = append(data, sec3...)
	data = append(data, sec4...)
	data = append(data, "7777"...)

	_, err := Decode(data, ts, wmo.Options{})
	if err == nil {
		t.Fatal("Decode succeeded, want a Parse error for missing base with nonzero diff width")
	}
	werr, ok := err.(*wmo.Error)
	if !ok || werr.Kind != wmo.Parse {
		t.Fatalf("got err=%v, want a *wmo.Error of kind Parse", err)
	}
}
