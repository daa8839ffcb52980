package bufr

import (
	"math"

	"github.com/dsnet/wreport/wmo"
)

// compressedDecoder implements wmo.Handler for a compressed BUFR message: the
// descriptor sequence is walked once, and every Element call fans a single
// base+diff-width wire encoding out into one value per subset (spec
// section 4.6). Subset always returns subsets[0] since replication counts,
// bitmaps, and descriptor structure are shared across subsets by
// construction; only leaf values vary.
type compressedDecoder struct {
	r       *BitReader
	ts      wmo.TableSet
	opts    wmo.Options
	n       int
	subsets []*wmo.Subset
}

func (d *compressedDecoder) Subset() *wmo.Subset { return d.subsets[0] }

func (d *compressedDecoder) Element(info *wmo.Varinfo, state *wmo.InterpreterState, targetPos int) error {
	var afVars []*wmo.Var
	if state.AssociatedFieldBits > 0 {
		code, ignore, err := wmo.AssociatedFieldAttrCode(state.AssociatedFieldSig)
		if err != nil {
			return err
		}
		raws, missing, err := d.readCompressedRaw(state.AssociatedFieldBits, false)
		if err != nil {
			return err
		}
		if ignore {
			if state.AssociatedFieldSig != 63 {
				wmo.Warnf(d.opts, "associated field significance %d has no defined meaning, discarding %d bits per subset", state.AssociatedFieldSig, state.AssociatedFieldBits)
			}
		} else {
			afInfo, err := d.ts.LookupB(code)
			if err != nil {
				return err
			}
			afVars = make([]*wmo.Var, d.n)
			for i := 0; i < d.n; i++ {
				v := wmo.NewVar(afInfo)
				if !missing[i] {
					if err := d.setNumeric(v, afInfo, raws[i]); err != nil {
						return err
					}
				}
				afVars[i] = v
			}
		}
	}

	vars, err := d.decodeValues(info)
	if err != nil {
		return err
	}

	if targetPos >= 0 {
		for i, s := range d.subsets {
			if vars[i].IsSet() || d.opts.DecodeAddsUndefAttrs {
				s.At(targetPos).SetAttr(vars[i])
			}
		}
		return nil
	}

	for i, s := range d.subsets {
		pos := s.Append(vars[i])
		if afVars != nil {
			s.At(pos).SetAttr(afVars[i])
		}
	}
	return nil
}

func (d *compressedDecoder) SubstitutedValue(info *wmo.Varinfo, targetPos int) error {
	vars, err := d.decodeValues(info)
	if err != nil {
		return err
	}
	for i, s := range d.subsets {
		if vars[i].IsSet() || d.opts.DecodeAddsUndefAttrs {
			s.At(targetPos).SetAttr(vars[i])
		}
	}
	return nil
}

func (d *compressedDecoder) ReplicationCount(info *wmo.Varinfo) (int, error) {
	raws, _, err := d.readCompressedRaw(uint(info.BitLen), true)
	if err != nil {
		return 0, err
	}
	for i := 1; i < d.n; i++ {
		if raws[i] != raws[0] {
			return 0, wmo.Errorf(wmo.Consistency, "delayed replication count differs across subsets of a compressed message")
		}
	}
	count := info.BitRef + int32(raws[0])
	for _, s := range d.subsets {
		v := wmo.NewVar(info)
		if err := wmo.SetIntLenient(v, count, d.opts); err != nil {
			return 0, err
		}
		s.AppendSpecial(v)
	}
	return int(count), nil
}

func (d *compressedDecoder) BitmapEntries(n int) ([]byte, error) {
	raw := make([]byte, n)
	for i := 0; i < n; i++ {
		bits, _, err := d.readCompressedRaw(1, true)
		if err != nil {
			return nil, err
		}
		for j := 1; j < d.n; j++ {
			if bits[j] != bits[0] {
				return nil, wmo.Errorf(wmo.Consistency, "data-present bitmap differs across subsets of a compressed message")
			}
		}
		if bits[0] == 0 {
			raw[i] = '+'
		} else {
			raw[i] = '-'
		}
	}
	info := wmo.BitmapVarinfo(n)
	for _, s := range d.subsets {
		v := wmo.NewVar(info)
		if err := v.SetString(raw); err != nil {
			return nil, err
		}
		s.AppendSpecial(v)
	}
	return raw, nil
}

func (d *compressedDecoder) CharData(code wmo.Varcode, n int) error {
	info := wmo.CharDataVarinfo(code, n)
	vars, err := d.decodeCompressedOctets(info)
	if err != nil {
		return err
	}
	for i, s := range d.subsets {
		s.AppendSpecial(vars[i])
	}
	return nil
}

func (d *compressedDecoder) AssociatedFieldSignificance(info *wmo.Varinfo) (int, error) {
	raws, _, err := d.readCompressedRaw(uint(info.BitLen), true)
	if err != nil {
		return 0, err
	}
	for i := 1; i < d.n; i++ {
		if raws[i] != raws[0] {
			return 0, wmo.Errorf(wmo.Consistency, "associated field significance differs across subsets of a compressed message")
		}
	}
	val := info.BitRef + int32(raws[0])
	for _, s := range d.subsets {
		v := wmo.NewVar(info)
		if err := wmo.SetIntLenient(v, val, d.opts); err != nil {
			return 0, err
		}
		s.AppendSpecial(v)
	}
	return int(val), nil
}

func (d *compressedDecoder) decodeValues(info *wmo.Varinfo) ([]*wmo.Var, error) {
	switch info.Type {
	case wmo.String, wmo.Binary:
		return d.decodeCompressedOctets(info)
	default:
		return d.decodeCompressedNumeric(info)
	}
}

func (d *compressedDecoder) decodeCompressedNumeric(info *wmo.Varinfo) ([]*wmo.Var, error) {
	neverMissing := info.Code.X() == 31 && wmo.NeverMissingY(info.Code.Y())
	raws, missing, err := d.readCompressedRaw(uint(info.BitLen), neverMissing)
	if err != nil {
		return nil, err
	}
	vars := make([]*wmo.Var, d.n)
	for i := 0; i < d.n; i++ {
		v := wmo.NewVar(info)
		if !missing[i] {
			if err := d.setNumeric(v, info, raws[i]); err != nil {
				return nil, err
			}
		}
		vars[i] = v
	}
	return vars, nil
}

func (d *compressedDecoder) setNumeric(v *wmo.Var, info *wmo.Varinfo, bits uint32) error {
	raw := info.BitRef + int32(bits)
	if info.Type == wmo.Decimal {
		return wmo.SetDoubleLenient(v, float64(raw)*math.Pow(10, -float64(info.Scale)), d.opts)
	}
	return wmo.SetIntLenient(v, raw, d.opts)
}

// readCompressedRaw reads one base+diff-width wire group: a bitWidth-bit
// base value, a 6-bit diff width, and (if the diff width is nonzero) one
// diff of that width per subset. A per-subset diff of all-ones means that
// subset's value is missing, with the same block-31 exception as the
// uncompressed path. When the diff width is zero every subset shares the
// base value verbatim (spec section 4.6).
func (d *compressedDecoder) readCompressedRaw(bitWidth uint, neverMissing bool) (raws []uint32, missing []bool, err error) {
	base, err := d.r.GetBits(bitWidth)
	if err != nil {
		return nil, nil, err
	}
	w, err := d.r.GetBits(6)
	if err != nil {
		return nil, nil, err
	}
	diffWidth := uint(w)
	baseMissing := base == allOnes(bitWidth) && !neverMissing
	if baseMissing && diffWidth != 0 {
		return nil, nil, wmo.Errorf(wmo.Parse, "compressed base value is missing but diff width is %d bits (nonzero diff width requires a present base)", diffWidth)
	}

	raws = make([]uint32, d.n)
	missing = make([]bool, d.n)
	for i := 0; i < d.n; i++ {
		if diffWidth == 0 {
			raws[i] = base
			missing[i] = baseMissing
			continue
		}
		diff, err := d.r.GetBits(diffWidth)
		if err != nil {
			return nil, nil, err
		}
		if diff == allOnes(diffWidth) && !neverMissing {
			missing[i] = true
			continue
		}
		raws[i] = base + diff
	}
	return raws, missing, nil
}

// decodeCompressedOctets reads a string/binary field's compressed encoding:
// a base value of info.Len bytes followed by one 6-bit byte count shared by
// all subsets. A zero count means every subset matches the base exactly; a
// nonzero count means each subset then supplies that many literal
// replacement bytes (spec section 4.6 extends
// the numeric base+diff scheme to octet strings by replacing arithmetic
// diff with full replacement, since CCITTIA5/binary fields have no useful
// notion of a numeric delta).
func (d *compressedDecoder) decodeCompressedOctets(info *wmo.Varinfo) ([]*wmo.Var, error) {
	baseLen := int(info.BitLen+7) / 8
	base := make([]byte, baseLen)
	for i := range base {
		b, err := d.r.GetBits(8)
		if err != nil {
			return nil, err
		}
		base[i] = byte(b)
	}
	w, err := d.r.GetBits(6)
	if err != nil {
		return nil, err
	}
	diffLen := int(w)

	vars := make([]*wmo.Var, d.n)
	for i := 0; i < d.n; i++ {
		raw := base
		if diffLen > 0 {
			chunk := make([]byte, diffLen)
			for j := range chunk {
				b, err := d.r.GetBits(8)
				if err != nil {
					return nil, err
				}
				chunk[j] = byte(b)
			}
			raw = chunk
		}
		v := wmo.NewVar(info)
		if err := d.setOctets(v, info, raw); err != nil {
			return nil, err
		}
		vars[i] = v
	}
	return vars, nil
}

func (d *compressedDecoder) setOctets(v *wmo.Var, info *wmo.Varinfo, raw []byte) error {
	n := int(info.Len)
	switch info.Type {
	case wmo.String:
		allFF, allZero := true, true
		for _, b := range raw {
			if b != 0xFF {
				allFF = false
			}
			if b != 0x00 {
				allZero = false
			}
		}
		if len(raw) > 0 && (allFF || allZero) {
			return nil
		}
		buf := raw
		if len(buf) > n {
			buf = buf[:n]
		}
		end := len(buf)
		for end > 0 && (buf[end-1] == ' ' || buf[end-1] == 0) {
			end--
		}
		return v.SetString(buf[:end])
	case wmo.Binary:
		allFF := true
		for _, b := range raw {
			if b != 0xFF {
				allFF = false
			}
		}
		if allFF {
			return nil
		}
		if len(raw) != n {
			fixed := make([]byte, n)
			copy(fixed, raw)
			raw = fixed
		}
		return v.SetBinary(raw)
	}
	return nil
}
