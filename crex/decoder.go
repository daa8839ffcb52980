package crex

import "github.com/dsnet/wreport/wmo"

// decoder implements wmo.Handler for one subset of a CREX message: every
// Element call reads its own whitespace-delimited token (spec section 4.2).
// CREX has no compressed form, so unlike bufr there is only one decoder
// shape.
type decoder struct {
	r      *TextReader
	ts     wmo.TableSet
	opts   wmo.Options
	subset *wmo.Subset
}

func (d *decoder) Subset() *wmo.Subset { return d.subset }

func (d *decoder) Element(info *wmo.Varinfo, state *wmo.InterpreterState, targetPos int) error {
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
		tok, err := d.r.Next()
		if err != nil {
			return err
		}
		code, ignore, err := wmo.AssociatedFieldAttrCode(state.AssociatedFieldSig)
		if err != nil {
			return err
		}
		if ignore {
			if state.AssociatedFieldSig != 63 {
				wmo.Warnf(d.opts, "associated field significance %d has no defined meaning, discarding token %q", state.AssociatedFieldSig, tok)
			}
		} else {
			afInfo, err := d.ts.LookupB(code)
			if err != nil {
				return err
			}
			afAttr = wmo.NewVar(afInfo)
			if err := decodeNumericToken(tok, afInfo, d.opts, afAttr); err != nil {
				return err
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

func (d *decoder) SubstitutedValue(info *wmo.Varinfo, targetPos int) error {
	v, err := d.decodeValue(info)
	if err != nil {
		return err
	}
	if v.IsSet() || d.opts.DecodeAddsUndefAttrs {
		d.subset.At(targetPos).SetAttr(v)
	}
	return nil
}

func (d *decoder) ReplicationCount(info *wmo.Varinfo) (int, error) {
	tok, err := d.r.Next()
	if err != nil {
		return 0, err
	}
	v := wmo.NewVar(info)
	if err := decodeNumericToken(tok, info, d.opts, v); err != nil {
		return 0, err
	}
	if !v.IsSet() {
		return 0, wmo.Errorf(wmo.Parse, "replication count for %s decoded as missing", info.Code)
	}
	d.subset.AppendSpecial(v)
	return int(v.AsInt()), nil
}

func (d *decoder) BitmapEntries(n int) ([]byte, error) {
	raw := make([]byte, n)
	for i := 0; i < n; i++ {
		tok, err := d.r.Next()
		if err != nil {
			return nil, err
		}
		switch tok {
		case "0":
			raw[i] = '+'
		case "1":
			raw[i] = '-'
		default:
			return nil, wmo.Errorf(wmo.Parse, "data-present bitmap token %q must be 0 or 1", tok)
		}
	}
	v := wmo.NewVar(wmo.BitmapVarinfo(n))
	if err := v.SetString(raw); err != nil {
		return nil, err
	}
	d.subset.AppendSpecial(v)
	return raw, nil
}

func (d *decoder) CharData(code wmo.Varcode, n int) error {
	info := wmo.CharDataVarinfo(code, n)
	tok, err := d.r.Next()
	if err != nil {
		return err
	}
	v, err := decodeStringToken(tok, info)
	if err != nil {
		return err
	}
	d.subset.AppendSpecial(v)
	return nil
}

func (d *decoder) AssociatedFieldSignificance(info *wmo.Varinfo) (int, error) {
	tok, err := d.r.Next()
	if err != nil {
		return 0, err
	}
	v := wmo.NewVar(info)
	if err := decodeNumericToken(tok, info, d.opts, v); err != nil {
		return 0, err
	}
	d.subset.AppendSpecial(v)
	return int(v.AsInt()), nil
}

func (d *decoder) decodeValue(info *wmo.Varinfo) (*wmo.Var, error) {
	tok, err := d.r.Next()
	if err != nil {
		return nil, err
	}
	switch info.Type {
	case wmo.String:
		return decodeStringToken(tok, info)
	case wmo.Binary:
		return decodeBinaryToken(tok, info)
	default:
		v := wmo.NewVar(info)
		if err := decodeNumericToken(tok, info, d.opts, v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
