package wmo

import "testing"

func tempInfo() *Varinfo {
	return NewVarinfo(NewVarcode(0, 12, 101), "TEMPERATURE", "K", Decimal, 2, -5000, 16)
}

func TestVarSetIntDomainCheck(t *testing.T) {
	info := NewVarinfo(NewVarcode(0, 8, 2), "VERTICAL SIGNIFICANCE", "CODE TABLE", Integer, 0, 0, 6)
	v := NewVar(info)
	if err := v.SetInt(10); err != nil {
		t.Fatalf("SetInt(10): %v", err)
	}
	if !v.IsSet() || v.AsInt() != 10 {
		t.Errorf("got IsSet=%v AsInt=%d, want true 10", v.IsSet(), v.AsInt())
	}
	if err := v.SetInt(1000); err == nil {
		t.Errorf("SetInt(1000): expected Domain error, got nil")
	}
}

func TestVarSetDoubleScaling(t *testing.T) {
	info := tempInfo()
	v := NewVar(info)
	if err := v.SetDouble(288.15); err != nil {
		t.Fatalf("SetDouble: %v", err)
	}
	if got := v.AsDouble(); got != 288.15 {
		t.Errorf("got %v, want 288.15", got)
	}
}

func TestVarSetStringTruncate(t *testing.T) {
	info := NewVarinfo(NewVarcode(0, 1, 1), "STATION NAME", "CCITTIA5", String, 0, 0, 80)
	v := NewVar(info)
	v.SetStringTruncate([]byte("01234567890"))
	if got := string(v.AsBytes()); got != "012345678>" {
		t.Errorf("truncated string = %q, want %q", got, "012345678>")
	}
	v2 := NewVar(info)
	v2.SetStringTruncate([]byte("short"))
	if got := string(v2.AsBytes()); got != "short" {
		t.Errorf("non-truncated string = %q, want %q", got, "short")
	}
}

func TestVarAttrOrdering(t *testing.T) {
	info := tempInfo()
	v := NewVar(info)
	_ = v.SetDouble(288.15)

	qualA := NewVar(NewVarinfo(NewVarcode(0, 33, 7), "PERCENT CONFIDENCE", "%", Integer, 0, 0, 7))
	_ = qualA.SetInt(90)
	qualB := NewVar(NewVarinfo(NewVarcode(0, 33, 3), "QUALITY INFORMATION", "CODE TABLE", Integer, 0, 0, 6))
	_ = qualB.SetInt(1)

	v.SetAttr(qualA)
	v.SetAttr(qualB)

	attrs := v.Attrs()
	if len(attrs) != 2 {
		t.Fatalf("got %d attrs, want 2", len(attrs))
	}
	if attrs[0].Code() != qualB.Code() || attrs[1].Code() != qualA.Code() {
		t.Errorf("attrs not sorted ascending by code: got %s then %s", attrs[0].Code(), attrs[1].Code())
	}
	if got := v.Attr(qualA.Code()); got == nil || got.AsInt() != 90 {
		t.Errorf("Attr lookup for qualA failed: got %v", got)
	}
}

func TestVarSetAttrReplacesExisting(t *testing.T) {
	info := tempInfo()
	v := NewVar(info)
	qual := NewVar(NewVarinfo(NewVarcode(0, 33, 7), "PERCENT CONFIDENCE", "%", Integer, 0, 0, 7))
	_ = qual.SetInt(50)
	v.SetAttr(qual)

	qual2 := NewVar(NewVarinfo(NewVarcode(0, 33, 7), "PERCENT CONFIDENCE", "%", Integer, 0, 0, 7))
	_ = qual2.SetInt(75)
	v.SetAttr(qual2)

	if len(v.Attrs()) != 1 {
		t.Fatalf("got %d attrs, want 1 after replace", len(v.Attrs()))
	}
	if got := v.Attr(qual.Code()); got.AsInt() != 75 {
		t.Errorf("got %d, want 75 after SetAttr replace", got.AsInt())
	}
}

func TestVarEqual(t *testing.T) {
	info := tempInfo()
	a := NewVar(info)
	_ = a.SetDouble(300.0)
	b := NewVar(info)
	_ = b.SetDouble(300.0)
	if !a.Equal(b) {
		t.Errorf("equal vars compared unequal")
	}
	_ = b.SetDouble(301.0)
	if a.Equal(b) {
		t.Errorf("unequal vars compared equal")
	}
}

func TestVarUnsetLeavesAttrs(t *testing.T) {
	info := tempInfo()
	v := NewVar(info)
	_ = v.SetDouble(300.0)
	qual := NewVar(NewVarinfo(NewVarcode(0, 33, 7), "PERCENT CONFIDENCE", "%", Integer, 0, 0, 7))
	v.SetAttr(qual)
	v.Unset()
	if v.IsSet() {
		t.Errorf("Unset left IsSet true")
	}
	if len(v.Attrs()) != 1 {
		t.Errorf("Unset dropped attributes, got %d want 1", len(v.Attrs()))
	}
}
