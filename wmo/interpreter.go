package wmo

// AssociatedFieldAttrCode maps a code table B31021 significance value to
// the Varcode of the attribute it produces, per spec section 4.5 step 2.
// ignore is true for significance 63 ("no meaning") and for the reserved
// ranges, which log a warning rather than failing.
func AssociatedFieldAttrCode(sig int) (code Varcode, ignore bool, err error) {
	switch {
	case sig == 1:
		return NewVarcode(0, 33, 2), false, nil
	case sig == 2:
		return NewVarcode(0, 33, 3), false, nil
	case sig == 6:
		return NewVarcode(0, 33, 50), false, nil
	case sig == 63:
		return 0, true, nil
	case sig >= 3 && sig <= 5, sig >= 9 && sig <= 20:
		return 0, true, nil // reserved: caller should log and ignore
	case sig >= 22 && sig <= 62:
		return 0, true, nil // reserved for local use: caller should log and ignore
	default:
		return 0, false, Errorf(Unimplemented, "C04 associated field with B31021=%d is not supported", sig)
	}
}

// DDSInterpreter walks a data descriptor sequence, expanding Table D
// sequences and resolving Table B elements through a TableSet, and
// dispatches to a Handler for the actual value I/O (spec section 4.4).
type DDSInterpreter struct {
	Tables  TableSet
	Options Options
}

// Run walks datadesc once against h, threading state through. Each
// independent traversal (one per uncompressed subset, or once for a
// compressed message) starts from a zero state: bufr and crex pass a fresh
// InterpreterState{} each time.
func (in *DDSInterpreter) Run(datadesc []Varcode, state *InterpreterState, h Handler) error {
	return in.walk(datadesc, state, h)
}

func (in *DDSInterpreter) walk(ops []Varcode, state *InterpreterState, h Handler) error {
	for i := 0; i < len(ops); i++ {
		code := ops[i]
		switch code.F() {
		case FElement:
			if err := in.visitElement(code, state, h); err != nil {
				return err
			}
		case FSequence:
			expansion, err := in.Tables.ExpandD(code)
			if err != nil {
				return err
			}
			if err := in.walk(expansion, state, h); err != nil {
				return err
			}
		case FOperator:
			if err := in.visitOperator(code, state, h); err != nil {
				return err
			}
		case FReplication:
			consumed, err := in.visitReplication(code, ops[i+1:], state, h)
			if err != nil {
				return err
			}
			i += consumed
		}
	}
	return nil
}

func (in *DDSInterpreter) visitElement(code Varcode, state *InterpreterState, h Handler) error {
	localBits := state.LocalDescriptorBits
	state.LocalDescriptorBits = 0

	base, err := in.Tables.LookupB(code)
	if localBits > 0 {
		switch {
		case err != nil:
			if e, ok := err.(*Error); !ok || e.Kind != NotFound {
				return err
			}
			base = UnknownLocalVarinfo(code, localBits)
		case base.BitLen != localBits:
			base = UnknownLocalVarinfo(code, localBits)
		}
	} else if err != nil {
		return err
	}
	info := state.Resolve(in.Tables, base)

	targetPos := -1
	if state.Bitmap != nil && !state.Bitmap.Done() && code.X() == 33 {
		targetPos = state.Bitmap.Next()
	}
	return h.Element(info, state, targetPos)
}

func (in *DDSInterpreter) visitOperator(code Varcode, state *InterpreterState, h Handler) error {
	y := code.Y()
	switch code.X() {
	case 1: // C01yyy: data width change
		if y == 0 {
			state.CWidthChange = 0
		} else {
			state.CWidthChange = y - 128
		}
	case 2: // C02yyy: data scale change
		if y == 0 {
			state.CScaleChange = 0
		} else {
			state.CScaleChange = y - 128
		}
	case 4: // C04yyy: associated field
		if y > 0 && state.AssociatedFieldBits > 0 {
			return Errorf(Unimplemented, "nested C04 modifiers are not supported")
		}
		if y > 32 {
			return Errorf(Unimplemented, "C04 modifier wants %d bits but at most 32 are supported", y)
		}
		if y > 0 {
			sigInfo, err := in.Tables.LookupB(NewVarcode(0, 31, 21))
			if err != nil {
				return err
			}
			sig, err := h.AssociatedFieldSignificance(sigInfo)
			if err != nil {
				return err
			}
			state.AssociatedFieldSig = sig
		}
		state.AssociatedFieldBits = uint(y)
	case 5: // C05yyy: raw character data
		if err := h.CharData(code, y); err != nil {
			return err
		}
	case 6: // C06yyy: local descriptor of y bits
		// Declares the width of the very next element opcode; visitElement
		// consumes state.LocalDescriptorBits and falls back to an opaque
		// UnknownLocalVarinfo if TableSet doesn't know the code or disagrees
		// with y (spec section 4.4).
		state.LocalDescriptorBits = uint32(y)
	case 7: // C07yyy: scale/width/reference increase
		if y == 0 {
			state.CScaleChange = 0
			state.CWidthChange = 0
			state.CRefChange = 0
		} else {
			pow := int32(1)
			for k := 0; k < y; k++ {
				pow *= 10
			}
			state.CScaleChange += y
			state.CWidthChange += y
			state.CRefChange += pow - 1
		}
	case 8: // C08yyy: string length override, in bytes
		state.CStringLenOverride = uint32(y)
	case 22, 23, 24:
		if y == 255 {
			// C23255: substituted value for the variable under the bitmap
			// cursor, using its own Varinfo.
			if state.Bitmap == nil {
				return Errorf(Consistency, "found C23255 with no active bitmap")
			}
			pos := state.Bitmap.Next()
			target := h.Subset().At(pos)
			return h.SubstitutedValue(target.Info, pos)
		}
		if y != 0 {
			return Errorf(Consistency, "C modifier %s not supported", code)
		}
		state.BitmapPending = true
	case 37:
		switch y {
		case 0:
			if state.LastBitmap == nil {
				return Errorf(Consistency, "C37000 found with no previous bitmap to reuse")
			}
			reused := *state.LastBitmap
			reused.Cursor = 0
			state.Bitmap = &reused
		case 255:
			state.Bitmap = nil
		default:
			return Errorf(Unimplemented, "C37%03d is not supported", y)
		}
	default:
		return Errorf(Unimplemented, "C modifier %s is not supported", code)
	}
	return nil
}

// visitReplication handles a (1,X,Y) opcode at position i in the caller's
// slice; rest is everything after it. It returns how many further opcodes
// it consumed (the replicator, if any, plus the k-wide body), so the
// caller's loop index can skip over them.
func (in *DDSInterpreter) visitReplication(code Varcode, rest []Varcode, state *InterpreterState, h Handler) (int, error) {
	group := code.X()
	count := code.Y()
	consumed := 0

	var delayedInfo *Varinfo
	if count == 0 {
		if len(rest) == 0 {
			return 0, Errorf(Parse, "delayed replication %s has no following opcodes", code)
		}
		head := rest[0]
		if head.F() == FElement && head.X() == 31 && NeverMissingY(head.Y()) {
			info, err := in.Tables.LookupB(head)
			if err != nil {
				return 0, err
			}
			delayedInfo = info
			rest = rest[1:]
			consumed++
		} else {
			info, err := in.Tables.LookupB(NewVarcode(0, 31, 12))
			if err != nil {
				return 0, err
			}
			delayedInfo = info
		}
	}

	if len(rest) < group {
		return 0, Errorf(Parse, "replication of %d descriptors needs %d more opcodes, only %d remain", group, group, len(rest))
	}
	body := rest[:group]
	consumed += group

	if state.BitmapPending {
		if group != 1 {
			return 0, Errorf(Consistency, "bitmap replication must cover exactly one descriptor, got %d", group)
		}
		if body[0] != NewVarcode(0, 31, 31) {
			return 0, Errorf(Consistency, "bitmap element descriptor is %s instead of 031031", body[0])
		}
		if count == 0 {
			n, err := h.ReplicationCount(delayedInfo)
			if err != nil {
				return 0, err
			}
			count = n
		}
		raw, err := h.BitmapEntries(count)
		if err != nil {
			return 0, err
		}
		bm := buildBitmap(raw, h.Subset().Eligible())
		state.Bitmap = bm
		state.LastBitmap = bm
		state.BitmapPending = false
		return consumed, nil
	}

	if count == 0 {
		n, err := h.ReplicationCount(delayedInfo)
		if err != nil {
			return 0, err
		}
		count = n
	}

	for iter := 0; iter < count; iter++ {
		if err := in.walk(body, state, h); err != nil {
			return 0, err
		}
	}
	return consumed, nil
}

// NeverMissingY reports whether a block-31 descriptor with this Y value is
// exempt from the all-ones missing-value convention: replication and
// association counts are structural, not data, and a genuine count of
// 2^bit_len-1 must decode as that count rather than as "missing" (spec
// section 4.5, block 31 exception).
func NeverMissingY(y int) bool {
	switch y {
	case 0, 1, 2, 11, 12:
		return true
	default:
		return false
	}
}
