package bufr

import "github.com/dsnet/wreport/wmo"

// DecodeHeader parses sections 0-3 of a BUFR message without touching the
// data section: the bulletin header fields, the data descriptor sequence,
// and the declared subset count, returned as the count separately since
// b.Subsets is left empty. Callers that only need header metadata (a
// catalog pass over a large file, say) can skip the cost of walking every
// subset's data.
func DecodeHeader(data []byte) (b *wmo.Bulletin, subsetCount int, err error) {
	defer wmo.Recover(&err)
	b, _, subsetCount, err = decodeHeader(data)
	return b, subsetCount, err
}

// Decode parses a complete BUFR message, including every subset's data,
// against the given table set and options.
func Decode(data []byte, ts wmo.TableSet, opts wmo.Options) (b *wmo.Bulletin, err error) {
	defer wmo.Recover(&err)

	b, f, expectedSubsets, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	b.Subsets = make([]*wmo.Subset, expectedSubsets)
	for i := range b.Subsets {
		b.Subsets[i] = &wmo.Subset{}
	}

	if f.sec[4]+4 > len(f.data) {
		return nil, wmo.Errorf(wmo.Parse, "end of BUFR message while looking for %s", sectionNames[4])
	}
	body := f.data[f.sec[4]+4 : f.sec[5]]
	r := NewBitReader(body)
	in := &wmo.DDSInterpreter{Tables: ts, Options: opts}

	if b.Compressed {
		dec := &compressedDecoder{r: r, ts: ts, opts: opts, n: expectedSubsets, subsets: b.Subsets}
		if err := in.Run(b.DataDesc, &wmo.InterpreterState{}, dec); err != nil {
			return nil, err
		}
	} else {
		for i := 0; i < expectedSubsets; i++ {
			dec := &uncompressedDecoder{r: r, ts: ts, opts: opts, subset: b.Subsets[i]}
			if err := in.Run(b.DataDesc, &wmo.InterpreterState{}, dec); err != nil {
				return nil, err
			}
		}
	}

	return b, nil
}

// Encode serializes b to a complete BUFR message, choosing edition from
// b.Edition (defaulting to 4 if zero) and compressing iff b.Compressed.
func Encode(b *wmo.Bulletin, ts wmo.TableSet, opts wmo.Options) (data []byte, err error) {
	defer wmo.Recover(&err)

	edition := b.Edition
	if edition == 0 {
		edition = 4
	}
	if edition != 2 && edition != 3 && edition != 4 {
		return nil, wmo.Errorf(wmo.Consistency, "Only BUFR edition 2, 3, and 4 are supported (bulletin declares edition %d)", edition)
	}

	bw := NewBitWriter()
	in := &wmo.DDSInterpreter{Tables: ts, Options: opts}

	if b.Compressed {
		enc := &compressedEncoder{w: bw, ts: ts, opts: opts, n: len(b.Subsets), subsets: b.Subsets}
		if err := in.Run(b.DataDesc, &wmo.InterpreterState{}, enc); err != nil {
			return nil, err
		}
	} else {
		for _, subset := range b.Subsets {
			enc := &uncompressedEncoder{w: bw, ts: ts, opts: opts, subset: subset}
			if err := in.Run(b.DataDesc, &wmo.InterpreterState{}, enc); err != nil {
				return nil, err
			}
		}
	}
	bw.Flush()
	dataPayload := bw.Bytes()

	sec1 := encodeSection1(edition, b)
	var sec2 []byte
	hasOptional := len(b.OptionalSection) > 0
	if hasOptional {
		sec2 = encodeSection2(b.OptionalSection)
	}
	sec3 := encodeSection3(b, hasOptional)
	sec4 := encodeSection4(dataPayload)

	total := 4 + 4 + len(sec1) + len(sec2) + len(sec3) + len(sec4) + 4
	out := make([]byte, 0, total)
	out = append(out, "BUFR"...)
	out = append(out, byte(total>>16), byte(total>>8), byte(total), byte(edition))
	out = append(out, sec1...)
	out = append(out, sec2...)
	out = append(out, sec3...)
	out = append(out, sec4...)
	out = append(out, "7777"...)
	return out, nil
}

func encodeSection1(edition int, b *wmo.Bulletin) []byte {
	var flag byte
	if len(b.OptionalSection) > 0 {
		flag = 0x80
	}
	t := b.ReferenceTime.UTC()
	if edition == 4 {
		buf := make([]byte, 22)
		buf[3] = byte(b.MasterTableNo)
		buf[4], buf[5] = byte(b.Centre>>8), byte(b.Centre)
		buf[6], buf[7] = byte(b.Subcentre>>8), byte(b.Subcentre)
		buf[8] = byte(b.UpdateSequence)
		buf[9] = flag
		buf[10] = byte(b.Category)
		buf[11] = byte(b.Subcategory)
		buf[12] = byte(b.LocalSubtype)
		buf[13] = byte(b.MasterTable)
		buf[14] = byte(b.LocalTable)
		buf[15], buf[16] = byte(t.Year()>>8), byte(t.Year())
		buf[17] = byte(t.Month())
		buf[18] = byte(t.Day())
		buf[19] = byte(t.Hour())
		buf[20] = byte(t.Minute())
		buf[21] = byte(t.Second())
		setLen3(buf, len(buf))
		return buf
	}
	buf := make([]byte, 18)
	buf[3] = byte(b.MasterTableNo)
	buf[4] = byte(b.Subcentre)
	buf[5] = byte(b.Centre)
	buf[6] = byte(b.UpdateSequence)
	buf[7] = flag
	buf[8] = byte(b.Category)
	buf[9] = byte(b.LocalSubtype)
	buf[10] = byte(b.MasterTable)
	buf[11] = byte(b.LocalTable)
	year := t.Year() % 100
	buf[12] = byte(year)
	buf[13] = byte(t.Month())
	buf[14] = byte(t.Day())
	buf[15] = byte(t.Hour())
	buf[16] = byte(t.Minute())
	setLen3(buf, len(buf))
	return buf
}

func encodeSection2(payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	copy(buf[4:], payload)
	setLen3(buf, len(buf))
	return buf
}

func encodeSection3(b *wmo.Bulletin, hasOptional bool) []byte {
	buf := make([]byte, 7+len(b.DataDesc)*2)
	buf[4], buf[5] = byte(len(b.Subsets)>>8), byte(len(b.Subsets))
	buf[6] = 0x80 // bit 7: "observed data" flag, always set
	if b.Compressed {
		buf[6] |= 0x40
	}
	for i, code := range b.DataDesc {
		buf[7+i*2], buf[7+i*2+1] = byte(code>>8), byte(code)
	}
	setLen3(buf, len(buf))
	return buf
}

func encodeSection4(payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	copy(buf[4:], payload)
	setLen3(buf, len(buf))
	return buf
}

func setLen3(buf []byte, n int) {
	buf[0], buf[1], buf[2] = byte(n>>16), byte(n>>8), byte(n)
}
