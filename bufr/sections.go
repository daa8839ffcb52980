package bufr

import (
	"time"

	"github.com/dsnet/wreport/wmo"
)

var sectionNames = [6]string{
	"section 0 of BUFR message (indicator section)",
	"section 1 of BUFR message (identification section)",
	"section 2 of BUFR message (optional section)",
	"section 3 of BUFR message (data description section)",
	"section 4 of BUFR message (data section)",
	"section 5 of BUFR message (end section)",
}

// frame holds the byte offsets of BUFR sections 0..5 within a message,
// mirroring original_source/wreport/buffers/bufr.h's BufrInput.
type frame struct {
	data        []byte
	sec         [6]int
	hasOptional bool
}

func scanFrame(data []byte) (*frame, error) {
	if len(data) < 4 {
		return nil, wmo.Errorf(wmo.Parse, "end of BUFR message while looking for %s", sectionNames[0])
	}
	if string(data[0:4]) != "BUFR" {
		return nil, wmo.Errorf(wmo.Parse, "data does not start with BUFR header (%q was read instead)", data[0:4])
	}
	if len(data) < 8 {
		return nil, wmo.Errorf(wmo.Parse, "end of BUFR message while looking for %s", sectionNames[0])
	}
	f := &frame{data: data}
	f.sec[1] = 8
	if err := f.scanSectionLength(1, 7); err != nil {
		return nil, err
	}
	return f, nil
}

// scanSectionLength computes sec[n+1] from the 3-byte length field at the
// start of section n, enforcing minBytes as the section's own minimum
// declared length.
func (f *frame) scanSectionLength(n int, minBytes int) error {
	if f.sec[n]+3 > len(f.data) {
		return wmo.Errorf(wmo.Parse, "%s is too short to hold the section size indicator", sectionNames[n])
	}
	length := int(f.data[f.sec[n]])<<16 | int(f.data[f.sec[n]+1])<<8 | int(f.data[f.sec[n]+2])
	if length < minBytes {
		return wmo.Errorf(wmo.Parse, "section %d declares length %d, but it must be at least %d bytes", n, length, minBytes)
	}
	f.sec[n+1] = f.sec[n] + length
	if f.sec[n+1] > len(f.data) {
		return wmo.Errorf(wmo.Parse, "%s claims to end past the end of the BUFR message", sectionNames[n])
	}
	return nil
}

func (f *frame) scanTrailingSections() error {
	if f.hasOptional {
		if err := f.scanSectionLength(2, 4); err != nil {
			return err
		}
	} else {
		f.sec[3] = f.sec[2]
	}
	if err := f.scanSectionLength(3, 8); err != nil {
		return err
	}
	// Section 4's own length includes the 4 length/reserved bytes plus
	// data; there is no useful lower bound beyond "holds its own header".
	if err := f.scanSectionLength(4, 4); err != nil {
		return err
	}
	return nil
}

func (f *frame) readByte(section, offset int) (byte, error) {
	pos := f.sec[section] + offset
	if pos >= len(f.data) {
		return 0, wmo.Errorf(wmo.Parse, "end of BUFR message while looking for %s", sectionNames[section])
	}
	return f.data[pos], nil
}

func (f *frame) readNumber(section, offset, byteLen int) (uint32, error) {
	pos := f.sec[section] + offset
	if pos+byteLen > len(f.data) {
		return 0, wmo.Errorf(wmo.Parse, "end of BUFR message while looking for %s", sectionNames[section])
	}
	var v uint32
	for i := 0; i < byteLen; i++ {
		v = v<<8 | uint32(f.data[pos+i])
	}
	return v, nil
}

// decodeHeader parses sections 0-3 and fills in everything needed before
// the data descriptor sequence is walked: the bulletin header fields,
// the descriptor list, and the expected subset count.
func decodeHeader(data []byte) (b *wmo.Bulletin, f *frame, expectedSubsets int, err error) {
	f, err = scanFrame(data)
	if err != nil {
		return nil, nil, 0, err
	}

	edition, err := f.readByte(0, 7)
	if err != nil {
		return nil, nil, 0, err
	}
	if edition != 2 && edition != 3 && edition != 4 {
		return nil, nil, 0, wmo.Errorf(wmo.Parse, "Only BUFR edition 2, 3, and 4 are supported (this message is edition %d)", edition)
	}

	minLen := 18
	if edition == 4 {
		minLen = 22
	}
	if f.sec[1]+3 > len(f.data) {
		return nil, nil, 0, wmo.Errorf(wmo.Parse, "section 1 is too short to hold its size indicator")
	}
	sec1Len := int(f.data[f.sec[1]])<<16 | int(f.data[f.sec[1]+1])<<8 | int(f.data[f.sec[1]+2])
	if sec1Len < 7 {
		return nil, nil, 0, wmo.Errorf(wmo.Parse, "section 1 declares length %d, but it must be at least 7 bytes", sec1Len)
	}
	if sec1Len < minLen {
		return nil, nil, 0, wmo.Errorf(wmo.Parse, "end of BUFR message while looking for %s", sectionNames[1])
	}

	b = &wmo.Bulletin{Edition: int(edition)}

	var flagOffset int
	if edition == 4 {
		flagOffset = 9
	} else {
		flagOffset = 7
	}
	flag, err := f.readByte(1, flagOffset)
	if err != nil {
		return nil, nil, 0, err
	}
	f.hasOptional = flag&0x80 != 0

	if edition == 4 {
		if err := decodeSec1Ed4(f, b); err != nil {
			return nil, nil, 0, err
		}
	} else {
		if err := decodeSec1Ed3(f, b); err != nil {
			return nil, nil, 0, err
		}
	}

	if err := f.scanTrailingSections(); err != nil {
		return nil, nil, 0, err
	}

	if f.hasOptional {
		optLen, err := f.readNumber(2, 0, 3)
		if err != nil {
			return nil, nil, 0, err
		}
		if optLen < 4 {
			return nil, nil, 0, wmo.Errorf(wmo.Parse, "section 2 declares length %d, but it must be at least 4 bytes", optLen)
		}
		start := f.sec[2] + 4
		end := f.sec[2] + int(optLen)
		if end > len(f.data) {
			return nil, nil, 0, wmo.Errorf(wmo.Parse, "section 2 claims to end past the end of the BUFR message")
		}
		b.OptionalSection = append([]byte(nil), f.data[start:end]...)
	}

	if f.sec[4]+7 > len(f.data) {
		return nil, nil, 0, wmo.Errorf(wmo.Parse, "end of BUFR message while looking for %s", sectionNames[3])
	}
	subsets, err := f.readNumber(3, 4, 2)
	if err != nil {
		return nil, nil, 0, err
	}
	flag3, err := f.readByte(3, 6)
	if err != nil {
		return nil, nil, 0, err
	}
	b.Compressed = flag3&0x40 != 0

	ndesc := (f.sec[4] - f.sec[3] - 7) / 2
	b.DataDesc = make([]wmo.Varcode, ndesc)
	for i := 0; i < ndesc; i++ {
		code, err := f.readNumber(3, 7+i*2, 2)
		if err != nil {
			return nil, nil, 0, err
		}
		b.DataDesc[i] = wmo.Varcode(code)
	}

	return b, f, int(subsets), nil
}

func decodeSec1Ed3(f *frame, b *wmo.Bulletin) error {
	var err error
	read := func(off int) byte {
		if err != nil {
			return 0
		}
		var v byte
		v, err = f.readByte(1, off)
		return v
	}
	b.MasterTableNo = int(read(3))
	b.Subcentre = int(read(4))
	b.Centre = int(read(5))
	b.UpdateSequence = int(read(6))
	b.Category = int(read(8))
	b.LocalSubtype = int(read(9))
	b.MasterTable = int(read(10))
	b.LocalTable = int(read(11))
	year := int(read(12))
	month := int(read(13))
	day := int(read(14))
	hour := int(read(15))
	minute := int(read(16))
	if err != nil {
		return err
	}
	if year > 50 {
		year += 1900
	} else {
		year += 2000
	}
	b.Subcategory = 255
	b.ReferenceTime = time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	return nil
}

func decodeSec1Ed4(f *frame, b *wmo.Bulletin) error {
	var err error
	readByte := func(off int) byte {
		if err != nil {
			return 0
		}
		var v byte
		v, err = f.readByte(1, off)
		return v
	}
	readNum := func(off, n int) uint32 {
		if err != nil {
			return 0
		}
		var v uint32
		v, err = f.readNumber(1, off, n)
		return v
	}
	b.MasterTableNo = int(readByte(3))
	b.Centre = int(readNum(4, 2))
	b.Subcentre = int(readNum(6, 2))
	b.UpdateSequence = int(readByte(8))
	b.Category = int(readByte(10))
	b.Subcategory = int(readByte(11))
	b.LocalSubtype = int(readByte(12))
	b.MasterTable = int(readByte(13))
	b.LocalTable = int(readByte(14))
	year := int(readNum(15, 2))
	month := int(readByte(17))
	day := int(readByte(18))
	hour := int(readByte(19))
	minute := int(readByte(20))
	second := int(readByte(21))
	if err != nil {
		return err
	}
	b.ReferenceTime = time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	return nil
}
