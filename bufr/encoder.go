package bufr

import (
	"bytes"
	"math"

	"github.com/dsnet/wreport/wmo"
)

// uncompressedEncoder implements wmo.Handler for encoding a single subset:
// every Element call consumes the next variable from subset.Vars(), in the
// exact order an uncompressedDecoder would have appended it, and writes its
// bits to w. Encoding is the mirror image of decoding: the same descriptor
// walk, the same positional bookkeeping, opposite direction of data flow.
type uncompressedEncoder struct {
	w      *BitWriter
	ts     wmo.TableSet
	opts   wmo.Options
	subset *wmo.Subset
	pos    int
}

func (e *uncompressedEncoder) Subset() *wmo.Subset { return e.subset }

func (e *uncompressedEncoder) Element(info *wmo.Varinfo, state *wmo.InterpreterState, targetPos int) error {
	if targetPos >= 0 {
		target := e.subset.At(targetPos)
		attr := target.Attr(info.Code)
		if attr == nil {
			attr = wmo.NewVar(info)
		}
		return e.encodeValue(attr, info)
	}

	if e.pos >= e.subset.Len() {
		return wmo.Errorf(wmo.Consistency, "encoding ran out of variables for %s", info.Code)
	}
	mainVar := e.subset.At(e.pos)
	e.pos++

	if state.AssociatedFieldBits > 0 {
		code, ignore, err := wmo.AssociatedFieldAttrCode(state.AssociatedFieldSig)
		if err != nil {
			return err
		}
		if ignore {
			e.w.WriteMissing(state.AssociatedFieldBits)
		} else {
			afInfo, err := e.ts.LookupB(code)
			if err != nil {
				return err
			}
			afVar := mainVar.Attr(code)
			if afVar == nil {
				afVar = wmo.NewVar(afInfo)
			}
			if err := e.encodeRaw(afVar, afInfo, state.AssociatedFieldBits); err != nil {
				return err
			}
		}
	}

	return e.encodeValue(mainVar, info)
}

func (e *uncompressedEncoder) SubstitutedValue(info *wmo.Varinfo, targetPos int) error {
	target := e.subset.At(targetPos)
	attr := target.Attr(info.Code)
	if attr == nil {
		attr = wmo.NewVar(info)
	}
	return e.encodeValue(attr, info)
}

func (e *uncompressedEncoder) ReplicationCount(info *wmo.Varinfo) (int, error) {
	if e.pos >= e.subset.Len() {
		return 0, wmo.Errorf(wmo.Consistency, "encoding ran out of variables at replication count for %s", info.Code)
	}
	v := e.subset.At(e.pos)
	e.pos++
	n := v.AsInt()
	e.w.AddBits(uint32(n-info.BitRef), uint(info.BitLen))
	return int(n), nil
}

func (e *uncompressedEncoder) BitmapEntries(n int) ([]byte, error) {
	if e.pos >= e.subset.Len() {
		return nil, wmo.Errorf(wmo.Consistency, "encoding ran out of variables at data-present bitmap")
	}
	v := e.subset.At(e.pos)
	e.pos++
	raw := v.AsBytes()
	if len(raw) != n {
		return nil, wmo.Errorf(wmo.Consistency, "data-present bitmap has %d entries, expected %d", len(raw), n)
	}
	for _, b := range raw {
		if b == '+' {
			e.w.AddBits(0, 1)
		} else {
			e.w.AddBits(1, 1)
		}
	}
	return raw, nil
}

func (e *uncompressedEncoder) CharData(code wmo.Varcode, n int) error {
	if e.pos >= e.subset.Len() {
		return wmo.Errorf(wmo.Consistency, "encoding ran out of variables at character data for %s", code)
	}
	v := e.subset.At(e.pos)
	e.pos++
	info := wmo.CharDataVarinfo(code, n)
	e.w.AppendString(v.AsBytes(), info.BitLen)
	return nil
}

func (e *uncompressedEncoder) AssociatedFieldSignificance(info *wmo.Varinfo) (int, error) {
	if e.pos >= e.subset.Len() {
		return 0, wmo.Errorf(wmo.Consistency, "encoding ran out of variables at associated field significance")
	}
	v := e.subset.At(e.pos)
	e.pos++
	sig := int(v.AsInt())
	e.w.AddBits(uint32(v.AsInt()-info.BitRef), uint(info.BitLen))
	return sig, nil
}

func (e *uncompressedEncoder) encodeValue(v *wmo.Var, info *wmo.Varinfo) error {
	switch info.Type {
	case wmo.String, wmo.Binary:
		if v == nil || !v.IsSet() {
			e.writeMissingOctets(info.BitLen)
			return nil
		}
		if info.Type == wmo.String {
			e.w.AppendString(v.AsBytes(), info.BitLen)
		} else {
			e.w.AppendBinary(v.AsBytes(), info.BitLen)
		}
		return nil
	default:
		return e.encodeRaw(v, info, uint(info.BitLen))
	}
}

func (e *uncompressedEncoder) encodeRaw(v *wmo.Var, info *wmo.Varinfo, bitWidth uint) error {
	if v == nil || !v.IsSet() {
		e.w.WriteMissing(bitWidth)
		return nil
	}
	var raw int32
	if info.Type == wmo.Decimal {
		raw = int32(math.Round(v.AsDouble()*math.Pow(10, float64(info.Scale)))) - info.BitRef
	} else {
		raw = v.AsInt() - info.BitRef
	}
	e.w.AddBits(uint32(raw), bitWidth)
	return nil
}

func (e *uncompressedEncoder) writeMissingOctets(bitLen uint32) {
	nBytes := bitLen / 8
	rem := bitLen % 8
	for i := uint32(0); i < nBytes; i++ {
		e.w.AppendByte(0xFF)
	}
	if rem > 0 {
		e.w.AddBits(allOnes(uint(rem)), uint(rem))
	}
}

// compressedEncoder mirrors compressedDecoder: each Element call reads one
// "column" (the same position across every subset), finds the narrowest
// base+diff-width encoding that reproduces every subset's value, and writes
// it once to w.
type compressedEncoder struct {
	w       *BitWriter
	ts      wmo.TableSet
	opts    wmo.Options
	n       int
	subsets []*wmo.Subset
	pos     int
}

func (e *compressedEncoder) Subset() *wmo.Subset { return e.subsets[0] }

func (e *compressedEncoder) Element(info *wmo.Varinfo, state *wmo.InterpreterState, targetPos int) error {
	if targetPos >= 0 {
		col := make([]*wmo.Var, e.n)
		for i, s := range e.subsets {
			a := s.At(targetPos).Attr(info.Code)
			if a == nil {
				a = wmo.NewVar(info)
			}
			col[i] = a
		}
		return e.encodeColumn(col, info)
	}

	if e.pos >= e.subsets[0].Len() {
		return wmo.Errorf(wmo.Consistency, "encoding ran out of variables for %s", info.Code)
	}
	mainCol := make([]*wmo.Var, e.n)
	for i, s := range e.subsets {
		mainCol[i] = s.At(e.pos)
	}
	e.pos++

	if state.AssociatedFieldBits > 0 {
		code, ignore, err := wmo.AssociatedFieldAttrCode(state.AssociatedFieldSig)
		if err != nil {
			return err
		}
		if ignore {
			e.writeMissingColumn(state.AssociatedFieldBits)
		} else {
			afInfo, err := e.ts.LookupB(code)
			if err != nil {
				return err
			}
			afCol := make([]*wmo.Var, e.n)
			for i := range mainCol {
				a := mainCol[i].Attr(code)
				if a == nil {
					a = wmo.NewVar(afInfo)
				}
				afCol[i] = a
			}
			if err := e.encodeRawColumn(afCol, afInfo, state.AssociatedFieldBits); err != nil {
				return err
			}
		}
	}

	return e.encodeColumn(mainCol, info)
}

func (e *compressedEncoder) SubstitutedValue(info *wmo.Varinfo, targetPos int) error {
	col := make([]*wmo.Var, e.n)
	for i, s := range e.subsets {
		a := s.At(targetPos).Attr(info.Code)
		if a == nil {
			a = wmo.NewVar(info)
		}
		col[i] = a
	}
	return e.encodeColumn(col, info)
}

func (e *compressedEncoder) ReplicationCount(info *wmo.Varinfo) (int, error) {
	if e.pos >= e.subsets[0].Len() {
		return 0, wmo.Errorf(wmo.Consistency, "encoding ran out of variables at replication count for %s", info.Code)
	}
	v := e.subsets[0].At(e.pos)
	e.pos++
	n := v.AsInt()
	e.w.AddBits(uint32(n-info.BitRef), uint(info.BitLen))
	e.w.AddBits(0, 6)
	return int(n), nil
}

func (e *compressedEncoder) BitmapEntries(n int) ([]byte, error) {
	if e.pos >= e.subsets[0].Len() {
		return nil, wmo.Errorf(wmo.Consistency, "encoding ran out of variables at data-present bitmap")
	}
	v := e.subsets[0].At(e.pos)
	e.pos++
	raw := v.AsBytes()
	if len(raw) != n {
		return nil, wmo.Errorf(wmo.Consistency, "data-present bitmap has %d entries, expected %d", len(raw), n)
	}
	for _, b := range raw {
		var bit uint32
		if b != '+' {
			bit = 1
		}
		e.w.AddBits(bit, 1)
		e.w.AddBits(0, 6)
	}
	return raw, nil
}

func (e *compressedEncoder) CharData(code wmo.Varcode, n int) error {
	if e.pos >= e.subsets[0].Len() {
		return wmo.Errorf(wmo.Consistency, "encoding ran out of variables at character data for %s", code)
	}
	v := e.subsets[0].At(e.pos)
	e.pos++
	raw := padOctets(v.AsBytes(), n, wmo.String)
	e.writeOctets(raw, n)
	e.w.AddBits(0, 6)
	return nil
}

func (e *compressedEncoder) AssociatedFieldSignificance(info *wmo.Varinfo) (int, error) {
	if e.pos >= e.subsets[0].Len() {
		return 0, wmo.Errorf(wmo.Consistency, "encoding ran out of variables at associated field significance")
	}
	v := e.subsets[0].At(e.pos)
	e.pos++
	sig := int(v.AsInt())
	e.w.AddBits(uint32(v.AsInt()-info.BitRef), uint(info.BitLen))
	e.w.AddBits(0, 6)
	return sig, nil
}

func (e *compressedEncoder) encodeColumn(col []*wmo.Var, info *wmo.Varinfo) error {
	switch info.Type {
	case wmo.String, wmo.Binary:
		return e.encodeOctetColumn(col, info)
	default:
		return e.encodeRawColumn(col, info, uint(info.BitLen))
	}
}

func (e *compressedEncoder) encodeRawColumn(col []*wmo.Var, info *wmo.Varinfo, bitWidth uint) error {
	raws := make([]uint32, e.n)
	missing := make([]bool, e.n)
	for i, v := range col {
		if v == nil || !v.IsSet() {
			missing[i] = true
			continue
		}
		var val int32
		if info.Type == wmo.Decimal {
			val = int32(math.Round(v.AsDouble() * math.Pow(10, float64(info.Scale))))
		} else {
			val = v.AsInt()
		}
		raws[i] = uint32(val - info.BitRef)
	}
	return e.writeRawColumn(raws, missing, bitWidth)
}

// writeRawColumn picks the narrowest diff width that reproduces every
// subset's raw value (spec section 4.6): diff width 0 if every present
// subset shares the base value and none is missing; otherwise the smallest
// width whose all-ones value exceeds every real diff, reserving that
// all-ones value as the per-subset missing sentinel.
func (e *compressedEncoder) writeRawColumn(raws []uint32, missing []bool, bitWidth uint) error {
	anyPresent := false
	hasMissing := false
	var base uint32
	baseSet := false
	allSame := true
	for i := range raws {
		if missing[i] {
			hasMissing = true
			continue
		}
		anyPresent = true
		if !baseSet {
			base = raws[i]
			baseSet = true
		} else if raws[i] != base {
			allSame = false
			if raws[i] < base {
				base = raws[i]
			}
		}
	}
	if !anyPresent {
		e.w.WriteMissing(bitWidth)
		e.w.AddBits(0, 6)
		return nil
	}
	if allSame && !hasMissing {
		e.w.AddBits(base, bitWidth)
		e.w.AddBits(0, 6)
		return nil
	}

	maxDiff := uint32(0)
	for i := range raws {
		if missing[i] {
			continue
		}
		if d := raws[i] - base; d > maxDiff {
			maxDiff = d
		}
	}
	diffWidth := uint(1)
	for maxDiff >= allOnes(diffWidth) && diffWidth < 32 {
		diffWidth++
	}

	e.w.AddBits(base, bitWidth)
	e.w.AddBits(uint32(diffWidth), 6)
	for i := range raws {
		if missing[i] {
			e.w.AddBits(allOnes(diffWidth), diffWidth)
		} else {
			e.w.AddBits(raws[i]-base, diffWidth)
		}
	}
	return nil
}

func (e *compressedEncoder) writeMissingColumn(bitWidth uint) {
	e.w.WriteMissing(bitWidth)
	e.w.AddBits(0, 6)
}

func (e *compressedEncoder) encodeOctetColumn(col []*wmo.Var, info *wmo.Varinfo) error {
	n := int(info.Len)
	raws := make([][]byte, e.n)
	for i, v := range col {
		if v == nil || !v.IsSet() {
			raws[i] = missingOctets(n)
			continue
		}
		raws[i] = padOctets(v.AsBytes(), n, info.Type)
	}

	allSame := true
	for _, r := range raws[1:] {
		if !bytes.Equal(r, raws[0]) {
			allSame = false
			break
		}
	}
	e.writeOctets(raws[0], n)
	if allSame {
		e.w.AddBits(0, 6)
		return nil
	}
	e.w.AddBits(uint32(n), 6)
	for _, r := range raws {
		e.writeOctets(r, n)
	}
	return nil
}

func (e *compressedEncoder) writeOctets(buf []byte, n int) {
	for i := 0; i < n; i++ {
		if i < len(buf) {
			e.w.AppendByte(buf[i])
		} else {
			e.w.AppendByte(0xFF)
		}
	}
}

func padOctets(raw []byte, n int, typ wmo.Type) []byte {
	fill := byte(0)
	if typ == wmo.String {
		fill = ' '
	}
	if len(raw) > n {
		return append([]byte(nil), raw[:n]...)
	}
	buf := make([]byte, n)
	copy(buf, raw)
	for i := len(raw); i < n; i++ {
		buf[i] = fill
	}
	return buf
}

func missingOctets(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = 0xFF
	}
	return buf
}
