package wmo

import (
	"bytes"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// Var is a decoded (or to-be-encoded) value together with its attribute
// chain. The in-memory representation always matches Info.Type: Integer
// values live in ival, Decimal in dval, String/Binary in sval.
type Var struct {
	Info *Varinfo

	set  bool
	ival int32
	dval float64
	sval []byte

	// attrs is kept sorted ascending by Varcode; see SetAttr.
	attrs []*Var
}

// NewVar creates an unset Var for the given metadata.
func NewVar(info *Varinfo) *Var {
	return &Var{Info: info}
}

// Code returns the Varcode of the underlying Varinfo.
func (v *Var) Code() Varcode { return v.Info.Code }

// IsSet reports whether the variable holds a value.
func (v *Var) IsSet() bool { return v.set }

// Unset clears the value, leaving attributes untouched.
func (v *Var) Unset() {
	v.set = false
	v.ival, v.dval, v.sval = 0, 0, nil
}

// domainCheckInt validates val against the integer domain.
func (v *Var) domainCheckInt(val int32) bool {
	return val >= v.Info.IMin && val <= v.Info.IMax
}

func (v *Var) domainCheckDouble(val float64) bool {
	return val >= v.Info.DMin && val <= v.Info.DMax
}

// SetInt sets an Integer-typed variable. Out-of-domain values return a
// Domain error and leave the variable unchanged (spec section 3).
func (v *Var) SetInt(val int32) error {
	if v.Info.Type != Integer {
		return Errorf(Consistency, "%s is not an integer variable", v.Info.Code)
	}
	if !v.domainCheckInt(val) {
		return Errorf(Domain, "value %d for %s out of range [%d,%d]", val, v.Info.Code, v.Info.IMin, v.Info.IMax)
	}
	v.ival = val
	v.set = true
	return nil
}

// SetDouble sets a Decimal-typed variable. The stored value is rounded to
// Info.Scale decimal places.
func (v *Var) SetDouble(val float64) error {
	if v.Info.Type != Decimal {
		return Errorf(Consistency, "%s is not a decimal variable", v.Info.Code)
	}
	if !v.domainCheckDouble(val) {
		return Errorf(Domain, "value %v for %s out of range [%v,%v]", val, v.Info.Code, v.Info.DMin, v.Info.DMax)
	}
	if s := v.Info.Scale; s >= 0 {
		p := math.Pow(10, float64(s))
		val = math.Round(val*p) / p
	} else {
		p := math.Pow(10, float64(-s))
		val = math.Round(val/p) * p
	}
	v.dval = val
	v.set = true
	return nil
}

// SetString sets a String-typed variable. The byte length must not exceed
// Info.Len; use SetStringTruncate for the lenient form.
func (v *Var) SetString(val []byte) error {
	if v.Info.Type != String {
		return Errorf(Consistency, "%s is not a string variable", v.Info.Code)
	}
	if uint(len(val)) > v.Info.Len {
		return Errorf(Domain, "string of %d bytes too long for %s (max %d)", len(val), v.Info.Code, v.Info.Len)
	}
	v.sval = append([]byte(nil), val...)
	v.set = true
	return nil
}

// SetStringTruncate sets a String-typed variable, truncating val to
// Info.Len bytes and replacing the final byte with '>' if it was too long.
// Grounded on Var::setc_truncate in original_source/wreport/var.cc.
func (v *Var) SetStringTruncate(val []byte) {
	if v.Info.Type != String {
		Panicf(Consistency, "%s is not a string variable", v.Info.Code)
	}
	if uint(len(val)) <= v.Info.Len {
		v.sval = append([]byte(nil), val...)
	} else {
		buf := append([]byte(nil), val[:v.Info.Len]...)
		if v.Info.Len > 0 {
			buf[v.Info.Len-1] = '>'
		}
		v.sval = buf
	}
	v.set = true
}

// SetBinary sets a Binary-typed variable. len(val) must equal Info.Len.
func (v *Var) SetBinary(val []byte) error {
	if v.Info.Type != Binary {
		return Errorf(Consistency, "%s is not a binary variable", v.Info.Code)
	}
	if uint(len(val)) != v.Info.Len {
		return Errorf(Domain, "binary value of %d bytes does not match %s width %d", len(val), v.Info.Code, v.Info.Len)
	}
	v.sval = append([]byte(nil), val...)
	v.set = true
	return nil
}

// AsInt returns the integer value, or 0 if unset.
func (v *Var) AsInt() int32 { return v.ival }

// AsDouble returns the decoded decimal value (already scaled), or 0 if unset.
func (v *Var) AsDouble() float64 { return v.dval }

// AsBytes returns the raw String/Binary bytes, or nil if unset.
func (v *Var) AsBytes() []byte { return v.sval }

// AsString returns the raw bytes as a string.
func (v *Var) AsString() string { return string(v.sval) }

// Equal reports whether v and o carry the same code, value, and attribute
// chain (order-independent over attribute codes, since the chain is kept
// sorted by construction).
func (v *Var) Equal(o *Var) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.Info.Code != o.Info.Code || v.set != o.set {
		return false
	}
	if v.set {
		switch v.Info.Type {
		case Integer:
			if v.ival != o.ival {
				return false
			}
		case Decimal:
			if v.dval != o.dval {
				return false
			}
		case String, Binary:
			if !bytes.Equal(v.sval, o.sval) {
				return false
			}
		}
	}
	if len(v.attrs) != len(o.attrs) {
		return false
	}
	for i := range v.attrs {
		if !v.attrs[i].Equal(o.attrs[i]) {
			return false
		}
	}
	return true
}

// Format renders the value as text: Binary as uppercase hex, String
// verbatim, Integer as a plain integer, and Decimal as a fixed-point
// decimal with Info.Scale digits after the point (none when Scale is
// negative). Returns ifundef if v is unset. Grounded on
// Var::format in original_source/wreport/var.cc.
func (v *Var) Format(ifundef string) string {
	if !v.set {
		return ifundef
	}
	switch v.Info.Type {
	case Binary:
		return strings.ToUpper(hex.EncodeToString(v.sval))
	case String:
		return string(v.sval)
	case Decimal:
		scale := v.Info.Scale
		if scale < 0 {
			scale = 0
		}
		return strconv.FormatFloat(v.dval, 'f', scale, 64)
	default: // Integer
		return strconv.FormatInt(int64(v.ival), 10)
	}
}

// Attr looks up an attribute by code.
func (v *Var) Attr(code Varcode) *Var {
	i, ok := slices.BinarySearchFunc(v.attrs, code, func(a *Var, c Varcode) int {
		return int(a.Info.Code) - int(c)
	})
	if !ok {
		return nil
	}
	return v.attrs[i]
}

// SetAttr attaches attr as an attribute, keyed by its own Varcode. An
// existing attribute with the same code is replaced. attrs is kept sorted
// ascending by Varcode so the chain's invariant (spec section 3, "codes
// are strictly increasing") always holds by construction.
//
// attr must itself have no attributes (spec section 3 invariant); it is
// stored by reference to a shallow copy with its own attrs cleared.
func (v *Var) SetAttr(attr *Var) {
	leaf := &Var{Info: attr.Info, set: attr.set, ival: attr.ival, dval: attr.dval, sval: attr.sval}
	i, ok := slices.BinarySearchFunc(v.attrs, leaf.Info.Code, func(a *Var, c Varcode) int {
		return int(a.Info.Code) - int(c)
	})
	if ok {
		v.attrs[i] = leaf
		return
	}
	v.attrs = slices.Insert(v.attrs, i, leaf)
}

// UnsetAttr removes the attribute with the given code, if present.
func (v *Var) UnsetAttr(code Varcode) {
	i, ok := slices.BinarySearchFunc(v.attrs, code, func(a *Var, c Varcode) int {
		return int(a.Info.Code) - int(c)
	})
	if ok {
		v.attrs = slices.Delete(v.attrs, i, i+1)
	}
}

// Attrs returns the attribute chain in ascending Varcode order. Callers
// must not mutate the returned slice.
func (v *Var) Attrs() []*Var { return v.attrs }

// ClearAttrs removes all attributes.
func (v *Var) ClearAttrs() { v.attrs = nil }
