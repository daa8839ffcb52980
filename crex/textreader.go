package crex

import "github.com/dsnet/wreport/wmo"

// TextReader tokenizes a CREX data section into whitespace-separated
// fields and optionally strips a rotating check digit from each one: the
// character-mode analogue of bufr.BitReader (spec section 4.2/6.2).
type TextReader struct {
	toks      []string
	pos       int
	haveCheck bool
	checkIdx  int
}

// NewTextReader splits body on runs of whitespace.
func NewTextReader(body string) *TextReader {
	return &TextReader{toks: splitFields(body)}
}

func splitFields(s string) []string {
	var toks []string
	start := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			if start >= 0 {
				toks = append(toks, s[start:i])
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		toks = append(toks, s[start:])
	}
	return toks
}

// EnableCheckDigit turns on CREX's rotating check-digit convention: the
// n-th token read after this call (0-indexed, counted from the call
// itself rather than the start of the message) must be prefixed with the
// digit n%10, which is verified and stripped (spec section 6.2). Header
// and descriptor-line tokens are always read before this is called, so
// they never participate in the rotation, matching TextWriter's own
// from-zero count of body tokens.
func (r *TextReader) EnableCheckDigit() {
	r.haveCheck = true
	r.checkIdx = 0
}

// Next returns the next token, with its check digit verified and removed
// if EnableCheckDigit was called.
func (r *TextReader) Next() (string, error) {
	if r.pos >= len(r.toks) {
		return "", wmo.Errorf(wmo.Parse, "end of CREX data section while reading token %d", r.pos)
	}
	t := r.toks[r.pos]
	r.pos++
	if r.haveCheck {
		idx := r.checkIdx
		r.checkIdx++
		want := byte('0' + idx%10)
		if len(t) == 0 || t[0] != want {
			return "", wmo.Errorf(wmo.Parse, "check digit mismatch at token %d: wanted %c, got %q", idx, want, t)
		}
		t = t[1:]
	}
	return t, nil
}

// Done reports whether every token has been consumed.
func (r *TextReader) Done() bool { return r.pos >= len(r.toks) }
