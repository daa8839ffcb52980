package wmo

// Subset is one observation: an ordered, positionally-addressable sequence
// of Vars. Data-present bitmaps reference earlier variables by their
// position in this slice (spec section 3).
type Subset struct {
	vars []*Var

	// eligible holds the positions of variables appended via Append (as
	// opposed to AppendSpecial), in order: the pool data-present bitmaps
	// draw their Targets from (spec section 4.5).
	eligible []int
}

// Len returns the number of variables appended so far.
func (s *Subset) Len() int { return len(s.vars) }

// At returns the variable at position i.
func (s *Subset) At(i int) *Var { return s.vars[i] }

// Append adds a variable to the end of the subset and returns its position.
func (s *Subset) Append(v *Var) int {
	s.vars = append(s.vars, v)
	pos := len(s.vars) - 1
	s.eligible = append(s.eligible, pos)
	return pos
}

// AppendSpecial adds a "meta" variable (a delayed-replication count or a
// data-present bitmap itself) that is not a candidate target for a later
// bitmap's Targets list, per spec section 4.5.
func (s *Subset) AppendSpecial(v *Var) int {
	s.vars = append(s.vars, v)
	return len(s.vars) - 1
}

// Eligible returns the positions appended via Append, in order.
func (s *Subset) Eligible() []int { return s.eligible }

// Vars returns the underlying slice. Callers must not mutate its length.
func (s *Subset) Vars() []*Var { return s.vars }

// Equal reports whether two subsets hold equal variables in the same order.
func (s *Subset) Equal(o *Subset) bool {
	if len(s.vars) != len(o.vars) {
		return false
	}
	for i := range s.vars {
		if !s.vars[i].Equal(o.vars[i]) {
			return false
		}
	}
	return true
}
