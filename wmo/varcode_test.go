package wmo

import "testing"

func TestVarcodeComponents(t *testing.T) {
	c := NewVarcode(0, 12, 101)
	if c.F() != 0 || c.X() != 12 || c.Y() != 101 {
		t.Errorf("got F=%d X=%d Y=%d, want F=0 X=12 Y=101", c.F(), c.X(), c.Y())
	}
	if !c.IsElement() || c.IsReplication() || c.IsOperator() || c.IsSequence() {
		t.Errorf("classification mismatch for element code %s", c)
	}
}

func TestVarcodeString(t *testing.T) {
	vectors := []struct {
		code Varcode
		want string
	}{
		{NewVarcode(0, 12, 101), "012101"},
		{NewVarcode(3, 0, 80), "300080"},
		{NewVarcode(1, 1, 0), "101000"},
		{NewVarcode(2, 8, 6), "208006"},
	}
	for _, v := range vectors {
		if got := v.code.String(); got != v.want {
			t.Errorf("Varcode(%d).String() = %q, want %q", v.code, got, v.want)
		}
	}
}

func TestParseVarcodeRoundTrip(t *testing.T) {
	vectors := []string{"012101", "300080", "101000", "208006", "031031"}
	for _, s := range vectors {
		c, err := ParseVarcode(s)
		if err != nil {
			t.Fatalf("ParseVarcode(%q): %v", s, err)
		}
		if got := c.String(); got != s {
			t.Errorf("ParseVarcode(%q).String() = %q, want %q", s, got, s)
		}
	}
}

func TestParseVarcodeRejectsMalformed(t *testing.T) {
	vectors := []string{"", "1234", "1234567", "abcdef", "912101"}
	for _, s := range vectors {
		if _, err := ParseVarcode(s); err == nil {
			t.Errorf("ParseVarcode(%q): expected error, got nil", s)
		}
	}
}

func TestNewVarcodePanicsOnOutOfRange(t *testing.T) {
	vectors := []struct{ f, x, y int }{
		{-1, 0, 0}, {4, 0, 0}, {0, -1, 0}, {0, 64, 0}, {0, 0, -1}, {0, 0, 256},
	}
	for _, v := range vectors {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("NewVarcode(%d,%d,%d): expected panic, got none", v.f, v.x, v.y)
				}
			}()
			NewVarcode(v.f, v.x, v.y)
		}()
	}
}
