package wmo

import "testing"

// fakeTables is a minimal TableSet for interpreter tests that don't need a
// full fixture: b holds the only codes it knows about.
type fakeTables struct {
	b map[Varcode]*Varinfo
	d map[Varcode][]Varcode
}

func (t *fakeTables) LookupB(code Varcode) (*Varinfo, error) {
	if v, ok := t.b[code]; ok {
		return v, nil
	}
	return nil, Errorf(NotFound, "%s not in table B", code)
}

func (t *fakeTables) ExpandD(code Varcode) ([]Varcode, error) {
	if seq, ok := t.d[code]; ok {
		return seq, nil
	}
	return nil, Errorf(NotFound, "%s not in table D", code)
}

func (t *fakeTables) Altered(base *Varinfo, newScale int, newBitLen uint32) *Varinfo {
	v := *base
	v.Scale = newScale
	v.BitLen = newBitLen
	v.Alteration = 1
	return &v
}

// recordHandler is a Handler that records every resolved Varinfo passed to
// Element, for interpreter tests that only care about C-modifier/descriptor
// resolution, not actual bit/character I/O.
type recordHandler struct {
	subset   *Subset
	elements []*Varinfo
}

func (h *recordHandler) Subset() *Subset { return h.subset }

func (h *recordHandler) Element(info *Varinfo, state *InterpreterState, targetPos int) error {
	h.elements = append(h.elements, info)
	return nil
}

func (h *recordHandler) SubstitutedValue(info *Varinfo, targetPos int) error { return nil }

func (h *recordHandler) ReplicationCount(info *Varinfo) (int, error) { return 0, nil }

func (h *recordHandler) BitmapEntries(n int) ([]byte, error) { return nil, nil }

func (h *recordHandler) CharData(code Varcode, n int) error { return nil }

func (h *recordHandler) AssociatedFieldSignificance(info *Varinfo) (int, error) { return 0, nil }

// TestC06UnknownLocalDescriptor covers spec section 4.4's C06yyy row: a
// local descriptor the TableSet doesn't know falls back to an opaque
// string/binary Varinfo of the declared width instead of propagating the
// NotFound lookup error.
func TestC06UnknownLocalDescriptor(t *testing.T) {
	ts := &fakeTables{b: map[Varcode]*Varinfo{}}
	in := &DDSInterpreter{Tables: ts}
	state := &InterpreterState{}
	h := &recordHandler{subset: &Subset{}}

	local := NewVarcode(0, 63, 0)
	ops := []Varcode{NewVarcode(2, 6, 8), local}
	if err := in.Run(ops, state, h); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.elements) != 1 {
		t.Fatalf("got %d elements, want 1", len(h.elements))
	}
	info := h.elements[0]
	if info.Code != local {
		t.Errorf("code = %s, want %s", info.Code, local)
	}
	if info.BitLen != 8 {
		t.Errorf("BitLen = %d, want 8", info.BitLen)
	}
	if info.Type != String {
		t.Errorf("opaque fallback type = %v, want String", info.Type)
	}
	if state.LocalDescriptorBits != 0 {
		t.Errorf("LocalDescriptorBits = %d, want 0 after being consumed", state.LocalDescriptorBits)
	}
}

// TestC06WidthMismatch covers the same row's other fallback trigger: the
// TableSet knows the code, but its natural bit width disagrees with the
// C06yyy-declared Y, so the opaque fallback applies instead of the known
// Varinfo.
func TestC06WidthMismatch(t *testing.T) {
	code := NewVarcode(0, 1, 1)
	known := NewVarinfo(code, "WMO BLOCK NUMBER", "NUMERIC", Integer, 0, 0, 7)
	ts := &fakeTables{b: map[Varcode]*Varinfo{code: known}}
	in := &DDSInterpreter{Tables: ts}
	state := &InterpreterState{}
	h := &recordHandler{subset: &Subset{}}

	ops := []Varcode{NewVarcode(2, 6, 12), code}
	if err := in.Run(ops, state, h); err != nil {
		t.Fatalf("Run: %v", err)
	}
	info := h.elements[0]
	if info.Type != String || info.BitLen != 12 {
		t.Errorf("got type=%v bitlen=%d, want opaque String of 12 bits", info.Type, info.BitLen)
	}
}

// TestC06WidthMatch covers the row's normal-decode branch: when the known
// Varinfo's width matches Y exactly, the interpreter uses it unchanged.
func TestC06WidthMatch(t *testing.T) {
	code := NewVarcode(0, 1, 1)
	known := NewVarinfo(code, "WMO BLOCK NUMBER", "NUMERIC", Integer, 0, 0, 7)
	ts := &fakeTables{b: map[Varcode]*Varinfo{code: known}}
	in := &DDSInterpreter{Tables: ts}
	state := &InterpreterState{}
	h := &recordHandler{subset: &Subset{}}

	ops := []Varcode{NewVarcode(2, 6, 7), code}
	if err := in.Run(ops, state, h); err != nil {
		t.Fatalf("Run: %v", err)
	}
	info := h.elements[0]
	if info != known {
		t.Errorf("got a different Varinfo than the known one, want the exact TableSet pointer reused")
	}
}

func TestAssociatedFieldAttrCode(t *testing.T) {
	vectors := []struct {
		sig        int
		wantCode   Varcode
		wantIgnore bool
		wantErr    bool
	}{
		{1, NewVarcode(0, 33, 2), false, false},
		{2, NewVarcode(0, 33, 3), false, false},
		{6, NewVarcode(0, 33, 50), false, false},
		{63, 0, true, false},
		{4, 0, true, false},
		{15, 0, true, false},
		{40, 0, true, false},
		{21, 0, false, true},
	}
	for _, v := range vectors {
		code, ignore, err := AssociatedFieldAttrCode(v.sig)
		if (err != nil) != v.wantErr {
			t.Errorf("sig=%d: got err=%v, wantErr=%v", v.sig, err, v.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if ignore != v.wantIgnore {
			t.Errorf("sig=%d: got ignore=%v, want %v", v.sig, ignore, v.wantIgnore)
		}
		if !ignore && code != v.wantCode {
			t.Errorf("sig=%d: got code=%s, want %s", v.sig, code, v.wantCode)
		}
	}
}

func TestNeverMissingY(t *testing.T) {
	vectors := []struct {
		y    int
		want bool
	}{
		{0, true}, {1, true}, {2, true}, {11, true}, {12, true},
		{3, false}, {21, false}, {255, false},
	}
	for _, v := range vectors {
		if got := NeverMissingY(v.y); got != v.want {
			t.Errorf("NeverMissingY(%d) = %v, want %v", v.y, got, v.want)
		}
	}
}
