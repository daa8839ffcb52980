package crex

import "github.com/dsnet/wreport/wmo"

// encoder implements wmo.Handler for encoding a single CREX subset,
// mirroring decoder's traversal order so Decode(Encode(b)) round-trips.
type encoder struct {
	w      *TextWriter
	ts     wmo.TableSet
	opts   wmo.Options
	subset *wmo.Subset
	pos    int
}

func (e *encoder) Subset() *wmo.Subset { return e.subset }

func (e *encoder) Element(info *wmo.Varinfo, state *wmo.InterpreterState, targetPos int) error {
	if targetPos >= 0 {
		target := e.subset.At(targetPos)
		e.w.Write(e.encodeValue(target.Attr(info.Code), info))
		return nil
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
			e.w.Write("/")
		} else {
			afInfo, err := e.ts.LookupB(code)
			if err != nil {
				return err
			}
			e.w.Write(encodeNumericToken(mainVar.Attr(code), afInfo))
		}
	}

	e.w.Write(e.encodeValue(mainVar, info))
	return nil
}

func (e *encoder) SubstitutedValue(info *wmo.Varinfo, targetPos int) error {
	target := e.subset.At(targetPos)
	e.w.Write(e.encodeValue(target.Attr(info.Code), info))
	return nil
}

func (e *encoder) ReplicationCount(info *wmo.Varinfo) (int, error) {
	if e.pos >= e.subset.Len() {
		return 0, wmo.Errorf(wmo.Consistency, "encoding ran out of variables at replication count for %s", info.Code)
	}
	v := e.subset.At(e.pos)
	e.pos++
	e.w.Write(encodeNumericToken(v, info))
	return int(v.AsInt()), nil
}

func (e *encoder) BitmapEntries(n int) ([]byte, error) {
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
			e.w.Write("0")
		} else {
			e.w.Write("1")
		}
	}
	return raw, nil
}

func (e *encoder) CharData(code wmo.Varcode, n int) error {
	if e.pos >= e.subset.Len() {
		return wmo.Errorf(wmo.Consistency, "encoding ran out of variables at character data for %s", code)
	}
	v := e.subset.At(e.pos)
	e.pos++
	info := wmo.CharDataVarinfo(code, n)
	e.w.Write(encodeStringToken(v, info))
	return nil
}

func (e *encoder) AssociatedFieldSignificance(info *wmo.Varinfo) (int, error) {
	if e.pos >= e.subset.Len() {
		return 0, wmo.Errorf(wmo.Consistency, "encoding ran out of variables at associated field significance")
	}
	v := e.subset.At(e.pos)
	e.pos++
	e.w.Write(encodeNumericToken(v, info))
	return int(v.AsInt()), nil
}

func (e *encoder) encodeValue(v *wmo.Var, info *wmo.Varinfo) string {
	switch info.Type {
	case wmo.String:
		return encodeStringToken(v, info)
	case wmo.Binary:
		return encodeBinaryToken(v, info)
	default:
		return encodeNumericToken(v, info)
	}
}
