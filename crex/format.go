package crex

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/dsnet/wreport/wmo"
)

// numericWidth returns the decimal digit width used for info's numeric CREX
// field: enough digits to spell out the all-ones missing-sentinel raw value
// for info's bit length, the character-mode analogue of bufr.BitReader
// reading exactly info.BitLen bits (spec section 4.2).
func numericWidth(info *wmo.Varinfo) int {
	return len(strconv.FormatUint(uint64(info.MissingRaw()), 10))
}

// decodeNumericToken parses tok as info's raw value into v, applying the
// same bit_ref/scale resolution and missing-sentinel/block-31 exception as
// the BUFR bit-level path. An all-slash token is the CREX missing
// convention and leaves v unset.
func decodeNumericToken(tok string, info *wmo.Varinfo, opts wmo.Options, v *wmo.Var) error {
	if tok == "" {
		return wmo.Errorf(wmo.Parse, "empty numeric CREX token for %s", info.Code)
	}
	if strings.Trim(tok, "/") == "" {
		return nil
	}
	raw, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return wmo.Errorf(wmo.Parse, "%q is not a valid numeric CREX token for %s", tok, info.Code)
	}
	neverMissing := info.Code.X() == 31 && wmo.NeverMissingY(info.Code.Y())
	if uint32(raw) == info.MissingRaw() && !neverMissing {
		return nil
	}
	val := info.BitRef + int32(raw)
	if info.Type == wmo.Decimal {
		return wmo.SetDoubleLenient(v, float64(val)*math.Pow(10, -float64(info.Scale)), opts)
	}
	return wmo.SetIntLenient(v, val, opts)
}

// encodeNumericToken is the inverse of decodeNumericToken: a fixed-width,
// zero-padded decimal string, or a run of '/' of the same width if v is
// unset.
func encodeNumericToken(v *wmo.Var, info *wmo.Varinfo) string {
	width := numericWidth(info)
	if v == nil || !v.IsSet() {
		return strings.Repeat("/", width)
	}
	var raw int32
	if info.Type == wmo.Decimal {
		raw = int32(math.Round(v.AsDouble()*math.Pow(10, float64(info.Scale)))) - info.BitRef
	} else {
		raw = v.AsInt() - info.BitRef
	}
	s := strconv.FormatInt(int64(raw), 10)
	if neg := strings.HasPrefix(s, "-"); neg {
		return "-" + pad(s[1:], width-1)
	}
	return pad(s, width)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// decodeStringToken decodes a CCITTIA5 token. Since CREX data fields are
// modeled here as whitespace-delimited tokens rather than the fixed-column
// layout of the printed form, blank padding is carried as '_' instead of
// ' ' so that round-tripping through the tokenizer is lossless; an
// all-slash token is missing.
func decodeStringToken(tok string, info *wmo.Varinfo) (*wmo.Var, error) {
	v := wmo.NewVar(info)
	if strings.Trim(tok, "/") == "" {
		return v, nil
	}
	raw := strings.ReplaceAll(tok, "_", " ")
	end := len(raw)
	for end > 0 && raw[end-1] == ' ' {
		end--
	}
	v.SetStringTruncate([]byte(raw[:end]))
	return v, nil
}

func encodeStringToken(v *wmo.Var, info *wmo.Varinfo) string {
	n := int(info.Len)
	if v == nil || !v.IsSet() {
		return strings.Repeat("/", n)
	}
	raw := make([]byte, n)
	b := v.AsBytes()
	if len(b) > n {
		b = b[:n]
	}
	copy(raw, b)
	for i := len(b); i < n; i++ {
		raw[i] = ' '
	}
	return strings.ReplaceAll(string(raw), " ", "_")
}

// decodeBinaryToken decodes a Binary field as a hex string, CREX's way of
// carrying octets that have no character interpretation.
func decodeBinaryToken(tok string, info *wmo.Varinfo) (*wmo.Var, error) {
	v := wmo.NewVar(info)
	if strings.Trim(tok, "/") == "" {
		return v, nil
	}
	raw, err := hex.DecodeString(tok)
	if err != nil {
		return nil, wmo.Errorf(wmo.Parse, "%q is not a valid hex CREX token for binary %s", tok, info.Code)
	}
	if err := v.SetBinary(raw); err != nil {
		return nil, err
	}
	return v, nil
}

func encodeBinaryToken(v *wmo.Var, info *wmo.Varinfo) string {
	if v == nil || !v.IsSet() {
		return strings.Repeat("/", int(info.Len)*2)
	}
	return hex.EncodeToString(v.AsBytes())
}
