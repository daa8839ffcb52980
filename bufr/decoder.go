package bufr

import (
	"math"

	"github.com/dsnet/wreport/wmo"
)

// uncompressedDecoder implements wmo.Handler for a single subset of an
// uncompressed BUFR message: every Element call reads its own bits directly
// off r (spec section 4.5).
type uncompressedDecoder struct {
	r      *BitReader
	ts     wmo.TableSet
	opts   wmo.Options
	subset *wmo.Subset
}

func (d *uncompressedDecoder) Subset() *wmo.Subset { return d.subset }

func (d *uncompressedDecoder) Element(info *wmo.Varinfo, state *wmo.InterpreterState, targetPos int) error {
	if targetPos >= 0 {
		v, err := d.decodeValue(info)
		if err != nil {
			return err
		}
		if v.IsSet() || d.opts.DecodeAddsUndefAttrs {
			d.subset.At(targetPos).SetAttr(v)
		}
		return nil
	}

	var afAttr *wmo.Var
	if state.AssociatedFieldBits > 0 {
		bits, err := d.r.GetBits(state.AssociatedFieldBits)
		if err != nil {
			return err
		}
		code, ignore, err := wmo.AssociatedFieldAttrCode(state.AssociatedFieldSig)
		if err != nil {
			return err
		}
		if ignore {
			if state.AssociatedFieldSig != 63 {
				wmo.Warnf(d.opts, "associated field significance %d has no defined meaning, discarding %d bits", state.AssociatedFieldSig, state.AssociatedFieldBits)
			}
		} else {
			afInfo, err := d.ts.LookupB(code)
			if err != nil {
				return err
			}
			afAttr = wmo.NewVar(afInfo)
			raw := afInfo.BitRef + int32(bits)
			if afInfo.Type == wmo.Decimal {
				if err := wmo.SetDoubleLenient(afAttr, float64(raw)*math.Pow(10, -float64(afInfo.Scale)), d.opts); err != nil {
					return err
				}
			} else {
				if err := wmo.SetIntLenient(afAttr, raw, d.opts); err != nil {
					return err
				}
			}
		}
	}

	v, err := d.decodeValue(info)
	if err != nil {
		return err
	}
	pos := d.subset.Append(v)
	if afAttr != nil {
		d.subset.At(pos).SetAttr(afAttr)
	}
	return nil
}

func (d *uncompressedDecoder) SubstitutedValue(info *wmo.Varinfo, targetPos int) error {
	v, err := d.decodeValue(info)
	if err != nil {
		return err
	}
	if v.IsSet() || d.opts.DecodeAddsUndefAttrs {
		d.subset.At(targetPos).SetAttr(v)
	}
	return nil
}

func (d *uncompressedDecoder) ReplicationCount(info *wmo.Varinfo) (int, error) {
	bits, err := d.r.GetBits(uint(info.BitLen))
	if err != nil {
		return 0, err
	}
	val := info.BitRef + int32(bits)
	v := wmo.NewVar(info)
	if err := wmo.SetIntLenient(v, val, d.opts); err != nil {
		return 0, err
	}
	d.subset.AppendSpecial(v)
	return int(val), nil
}

func (d *uncompressedDecoder) BitmapEntries(n int) ([]byte, error) {
	raw := make([]byte, n)
	for i := 0; i < n; i++ {
		bit, err := d.r.GetBits(1)
		if err != nil {
			return nil, err
		}
		if bit == 0 {
			raw[i] = '+'
		} else {
			raw[i] = '-'
		}
	}
	v := wmo.NewVar(wmo.BitmapVarinfo(n))
	if err := v.SetString(raw); err != nil {
		return nil, err
	}
	d.subset.AppendSpecial(v)
	return raw, nil
}

func (d *uncompressedDecoder) CharData(code wmo.Varcode, n int) error {
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := d.r.GetBits(8)
		if err != nil {
			return err
		}
		buf[i] = byte(b)
	}
	v := wmo.NewVar(wmo.CharDataVarinfo(code, n))
	if err := v.SetString(buf); err != nil {
		return err
	}
	d.subset.AppendSpecial(v)
	return nil
}

// AssociatedFieldSignificance reads the B31021 value off the wire and also
// records it as a special subset variable, so that re-encoding the decoded
// bulletin can recover the same significance without external bookkeeping.
func (d *uncompressedDecoder) AssociatedFieldSignificance(info *wmo.Varinfo) (int, error) {
	bits, err := d.r.GetBits(uint(info.BitLen))
	if err != nil {
		return 0, err
	}
	val := info.BitRef + int32(bits)
	v := wmo.NewVar(info)
	if err := wmo.SetIntLenient(v, val, d.opts); err != nil {
		return 0, err
	}
	d.subset.AppendSpecial(v)
	return int(val), nil
}

// decodeValue reads one B-descriptor's value off r according to info's
// resolved type and width, applying the missing-sentinel rule (spec
// section 4.5): an all-ones raw field decodes as unset, except for block-31
// descriptors named by wmo.NeverMissingY, which never go missing.
func (d *uncompressedDecoder) decodeValue(info *wmo.Varinfo) (*wmo.Var, error) {
	v := wmo.NewVar(info)
	switch info.Type {
	case wmo.String:
		raw, err := d.readChars(info.BitLen)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return v, nil
		}
		if err := v.SetString(raw); err != nil {
			return nil, err
		}
		return v, nil
	case wmo.Binary:
		raw, missing, err := d.readBinary(info.BitLen)
		if err != nil {
			return nil, err
		}
		if missing {
			return v, nil
		}
		if err := v.SetBinary(raw); err != nil {
			return nil, err
		}
		return v, nil
	default:
		bits, err := d.r.GetBits(uint(info.BitLen))
		if err != nil {
			return nil, err
		}
		neverMissing := info.Code.X() == 31 && wmo.NeverMissingY(info.Code.Y())
		if bits == info.MissingRaw() && !neverMissing {
			return v, nil
		}
		raw := info.BitRef + int32(bits)
		if info.Type == wmo.Decimal {
			if err := wmo.SetDoubleLenient(v, float64(raw)*math.Pow(10, -float64(info.Scale)), d.opts); err != nil {
				return nil, err
			}
		} else {
			if err := wmo.SetIntLenient(v, raw, d.opts); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}

// readChars reads bitLen bits as a CCITTIA5 string, trimming trailing
// spaces and NULs, and reports missing (nil, nil) for an all-0xFF or
// all-0x00 field.
func (d *uncompressedDecoder) readChars(bitLen uint32) ([]byte, error) {
	buf, allFF, allZero, err := d.readOctets(bitLen)
	if err != nil {
		return nil, err
	}
	if allFF || allZero {
		return nil, nil
	}
	end := len(buf)
	for end > 0 && (buf[end-1] == ' ' || buf[end-1] == 0) {
		end--
	}
	return buf[:end], nil
}

// readBinary reads bitLen bits verbatim, reporting missing only on
// all-0xFF (binary has no trailing-blank convention to trim).
func (d *uncompressedDecoder) readBinary(bitLen uint32) ([]byte, bool, error) {
	buf, allFF, _, err := d.readOctets(bitLen)
	if err != nil {
		return nil, false, err
	}
	return buf, allFF, nil
}

func (d *uncompressedDecoder) readOctets(bitLen uint32) (buf []byte, allFF, allZero bool, err error) {
	n := int(bitLen+7) / 8
	buf = make([]byte, 0, n)
	allFF, allZero = true, true
	remaining := bitLen
	for remaining > 0 {
		take := remaining
		if take > 8 {
			take = 8
		}
		bits, err := d.r.GetBits(uint(take))
		if err != nil {
			return nil, false, false, err
		}
		b := byte(bits)
		if take < 8 {
			b = byte(bits << (8 - take))
		}
		if b != 0xFF {
			allFF = false
		}
		if b != 0x00 {
			allZero = false
		}
		buf = append(buf, b)
		remaining -= take
	}
	return buf, allFF, allZero, nil
}
