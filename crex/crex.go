// Package crex implements the character-based CREX bulletin format: the
// same data descriptor sequence and element model as bufr, carried as
// whitespace-delimited ASCII tokens instead of a packed bitstream (spec
// section 6).
package crex

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/dsnet/wreport/wmo"
)

const (
	startMarker = "CREX++"
	endMarker   = "++"
	stopMarker  = "7777"
)

// DecodeHeader parses a CREX message's header line and descriptor sequence
// without decoding any subset data, mirroring bufr.DecodeHeader.
func DecodeHeader(data []byte) (b *wmo.Bulletin, subsetCount int, err error) {
	defer wmo.Recover(&err)
	b, _, subsetCount, _, err = decodeHeader(string(data))
	return b, subsetCount, err
}

// Decode parses a complete CREX message, including every subset's data,
// against the given table set and options.
func Decode(data []byte, ts wmo.TableSet, opts wmo.Options) (b *wmo.Bulletin, err error) {
	defer wmo.Recover(&err)

	b, r, expectedSubsets, hasOptional, err := decodeHeader(string(data))
	if err != nil {
		return nil, err
	}
	if b.CheckDigits {
		r.EnableCheckDigit()
	}
	b.Subsets = make([]*wmo.Subset, expectedSubsets)
	for i := range b.Subsets {
		b.Subsets[i] = &wmo.Subset{}
	}

	in := &wmo.DDSInterpreter{Tables: ts, Options: opts}
	for i := 0; i < expectedSubsets; i++ {
		dec := &decoder{r: r, ts: ts, opts: opts, subset: b.Subsets[i]}
		if err := in.Run(b.DataDesc, &wmo.InterpreterState{}, dec); err != nil {
			return nil, err
		}
	}

	if tok, err := r.Next(); err == nil && tok != endMarker {
		wmo.Warnf(opts, "expected %q after CREX data section, got %q", endMarker, tok)
	}

	if hasOptional {
		marker, err := r.Next()
		if err != nil {
			return nil, err
		}
		if marker != "SUPP" {
			return nil, wmo.Errorf(wmo.Parse, "expected %q before CREX optional section, got %q", "SUPP", marker)
		}
		hexTok, err := r.Next()
		if err != nil {
			return nil, err
		}
		raw, err := hex.DecodeString(hexTok)
		if err != nil {
			return nil, wmo.Errorf(wmo.Parse, "%q is not valid hex in CREX optional section", hexTok)
		}
		b.OptionalSection = raw
		if tok, err := r.Next(); err == nil && tok != endMarker {
			wmo.Warnf(opts, "expected %q after CREX optional section, got %q", endMarker, tok)
		}
	}

	return b, nil
}

// Encode serializes b to a complete CREX message.
func Encode(b *wmo.Bulletin, ts wmo.TableSet, opts wmo.Options) (data []byte, err error) {
	defer wmo.Recover(&err)

	w := NewTextWriter()
	if b.CheckDigits {
		w.EnableCheckDigit()
	}

	in := &wmo.DDSInterpreter{Tables: ts, Options: opts}
	for _, subset := range b.Subsets {
		enc := &encoder{w: w, ts: ts, opts: opts, subset: subset}
		if err := in.Run(b.DataDesc, &wmo.InterpreterState{}, enc); err != nil {
			return nil, err
		}
	}
	w.Write(endMarker)
	body := w.String()

	var buf strings.Builder
	buf.WriteString(startMarker)
	buf.WriteByte('\n')
	buf.WriteString(encodeHeaderLine(b))
	buf.WriteByte('\n')
	buf.WriteString(encodeDescriptorLine(b.DataDesc))
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(len(b.Subsets)))
	buf.WriteByte('\n')
	buf.WriteString(body)
	buf.WriteByte('\n')
	if len(b.OptionalSection) > 0 {
		buf.WriteString("SUPP ")
		buf.WriteString(hex.EncodeToString(b.OptionalSection))
		buf.WriteByte('\n')
		buf.WriteString(endMarker)
		buf.WriteByte('\n')
	}
	buf.WriteString(stopMarker)
	return []byte(buf.String()), nil
}

// decodeHeader parses the "CREX++" marker, the header line, and the
// descriptor line, returning a *TextReader positioned at the first data
// token.
func decodeHeader(data string) (b *wmo.Bulletin, r *TextReader, expectedSubsets int, hasOptional bool, err error) {
	all := NewTextReader(data)

	marker, err := all.Next()
	if err != nil {
		return nil, nil, 0, false, err
	}
	if marker != startMarker {
		return nil, nil, 0, false, wmo.Errorf(wmo.Parse, "data does not start with %q (%q was read instead)", startMarker, marker)
	}

	fields := make([]string, 17)
	for i := range fields {
		tok, err := all.Next()
		if err != nil {
			return nil, nil, 0, false, err
		}
		fields[i] = tok
	}
	b, hasOptional, err = decodeHeaderLine(fields)
	if err != nil {
		return nil, nil, 0, false, err
	}

	ndescTok, err := all.Next()
	if err != nil {
		return nil, nil, 0, false, err
	}
	ndesc, err := strconv.Atoi(ndescTok)
	if err != nil || ndesc < 0 {
		return nil, nil, 0, false, wmo.Errorf(wmo.Parse, "%q is not a valid descriptor count", ndescTok)
	}
	b.DataDesc = make([]wmo.Varcode, ndesc)
	for i := 0; i < ndesc; i++ {
		tok, err := all.Next()
		if err != nil {
			return nil, nil, 0, false, err
		}
		code, err := wmo.ParseVarcode(tok)
		if err != nil {
			return nil, nil, 0, false, err
		}
		b.DataDesc[i] = code
	}

	subsetsTok, err := all.Next()
	if err != nil {
		return nil, nil, 0, false, err
	}
	subsets, err := strconv.Atoi(subsetsTok)
	if err != nil || subsets < 0 {
		return nil, nil, 0, false, wmo.Errorf(wmo.Parse, "%q is not a valid subset count", subsetsTok)
	}

	return b, all, subsets, hasOptional, nil
}

// decodeHeaderLine reads the 17 fixed fields that precede the descriptor
// count: master table, master table number, centre, subcentre, update
// sequence, category, subcategory, local subtype, local table, year,
// month, day, hour, minute, second, a 0/1 check-digit flag, and a 0/1
// has-optional-section flag.
func decodeHeaderLine(f []string) (*wmo.Bulletin, bool, error) {
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	b := &wmo.Bulletin{
		MasterTable:    atoi(f[0]),
		MasterTableNo:  atoi(f[1]),
		Centre:         atoi(f[2]),
		Subcentre:      atoi(f[3]),
		UpdateSequence: atoi(f[4]),
		Category:       atoi(f[5]),
		Subcategory:    atoi(f[6]),
		LocalSubtype:   atoi(f[7]),
		LocalTable:     atoi(f[8]),
	}
	year, month, day := atoi(f[9]), atoi(f[10]), atoi(f[11])
	hour, minute, second := atoi(f[12]), atoi(f[13]), atoi(f[14])
	b.ReferenceTime = time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	b.CheckDigits = f[15] == "1"
	hasOptional := f[16] == "1"
	return b, hasOptional, nil
}

func encodeHeaderLine(b *wmo.Bulletin) string {
	t := b.ReferenceTime.UTC()
	check := "0"
	if b.CheckDigits {
		check = "1"
	}
	optional := "0"
	if len(b.OptionalSection) > 0 {
		optional = "1"
	}
	fields := []string{
		strconv.Itoa(b.MasterTable),
		strconv.Itoa(b.MasterTableNo),
		strconv.Itoa(b.Centre),
		strconv.Itoa(b.Subcentre),
		strconv.Itoa(b.UpdateSequence),
		strconv.Itoa(b.Category),
		strconv.Itoa(b.Subcategory),
		strconv.Itoa(b.LocalSubtype),
		strconv.Itoa(b.LocalTable),
		strconv.Itoa(t.Year()),
		strconv.Itoa(int(t.Month())),
		strconv.Itoa(t.Day()),
		strconv.Itoa(t.Hour()),
		strconv.Itoa(t.Minute()),
		strconv.Itoa(t.Second()),
		check,
		optional,
	}
	return strings.Join(fields, " ")
}

func encodeDescriptorLine(codes []wmo.Varcode) string {
	fields := make([]string, 0, len(codes)+1)
	fields = append(fields, strconv.Itoa(len(codes)))
	for _, c := range codes {
		fields = append(fields, c.String())
	}
	return strings.Join(fields, " ")
}
