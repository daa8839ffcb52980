package wmo

import "fmt"

// Varcode is the 16-bit (F,X,Y) identity of a table entry.
//
//	F=0 element (Table B), F=1 replication, F=2 operator (C modifier),
//	F=3 sequence (Table D).
type Varcode uint16

// F category values.
const (
	FElement     = 0
	FReplication = 1
	FOperator    = 2
	FSequence    = 3
)

// NewVarcode constructs a Varcode from its (F,X,Y) components, enforcing
// F in 0..3, X in 0..63, Y in 0..255.
func NewVarcode(f, x, y int) Varcode {
	if f < 0 || f > 3 {
		Panicf(Consistency, "varcode F=%d out of range 0..3", f)
	}
	if x < 0 || x > 63 {
		Panicf(Consistency, "varcode X=%d out of range 0..63", x)
	}
	if y < 0 || y > 255 {
		Panicf(Consistency, "varcode Y=%d out of range 0..255", y)
	}
	return Varcode(f<<14 | x<<8 | y)
}

// F returns the category.
func (c Varcode) F() int { return int(c>>14) & 0x3 }

// X returns the class.
func (c Varcode) X() int { return int(c>>8) & 0x3f }

// Y returns the entry number.
func (c Varcode) Y() int { return int(c) & 0xff }

// IsElement reports whether F==0.
func (c Varcode) IsElement() bool { return c.F() == FElement }

// IsReplication reports whether F==1.
func (c Varcode) IsReplication() bool { return c.F() == FReplication }

// IsOperator reports whether F==2.
func (c Varcode) IsOperator() bool { return c.F() == FOperator }

// IsSequence reports whether F==3.
func (c Varcode) IsSequence() bool { return c.F() == FSequence }

// String renders the canonical "FXXYYY" text form, e.g. "012101".
func (c Varcode) String() string {
	return fmt.Sprintf("%01d%02d%03d", c.F(), c.X(), c.Y())
}

// ParseVarcode parses the canonical "FXXYYY" text form.
func ParseVarcode(s string) (Varcode, error) {
	if len(s) != 6 {
		return 0, Errorf(Parse, "varcode %q must be 6 characters", s)
	}
	var f, x, y int
	if n, err := fmt.Sscanf(s, "%01d%02d%03d", &f, &x, &y); n != 3 || err != nil {
		return 0, Errorf(Parse, "varcode %q is not well formed", s)
	}
	if f < 0 || f > 3 || x < 0 || x > 63 || y < 0 || y > 255 {
		return 0, Errorf(Parse, "varcode %q has out of range components", s)
	}
	return Varcode(f<<14 | x<<8 | y), nil
}
