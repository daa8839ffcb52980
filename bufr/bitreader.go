// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package bufr implements the WMO BUFR binary wire format: section
// framing plus the uncompressed and compressed bit-level codecs driven by
// the wmo.DDSInterpreter.
package bufr

import "github.com/dsnet/wreport/wmo"

// BitReader reads MSB-first bit fields from a byte buffer (spec
// section 4.1): fields start from the most significant bit of each byte,
// so reads here shift the accumulator high-to-low.
type BitReader struct {
	data     []byte
	bytePos  int
	pbyte    uint8
	pbyteLen uint // bits still held in pbyte, 0..8
}

// NewBitReader wraps data for bit-level reading from the start.
func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

// GetBits reads the next n (1..32) bits MSB-first and returns them
// right-justified in the result.
func (r *BitReader) GetBits(n uint) (uint32, error) {
	if n < 1 || n > 32 {
		return 0, wmo.Errorf(wmo.Consistency, "GetBits: n=%d out of range 1..32", n)
	}
	var val uint32
	for n > 0 {
		if r.pbyteLen == 0 {
			if r.bytePos >= len(r.data) {
				return 0, wmo.Errorf(wmo.Parse, "end of buffer")
			}
			r.pbyte = r.data[r.bytePos]
			r.bytePos++
			r.pbyteLen = 8
		}
		take := n
		if take > r.pbyteLen {
			take = r.pbyteLen
		}
		shift := r.pbyteLen - take
		mask := uint32(1)<<take - 1
		bits := (uint32(r.pbyte) >> shift) & mask
		val = val<<take | bits
		r.pbyteLen -= take
		n -= take
	}
	return val, nil
}

// ReadNumber performs an absolute big-endian read of byteLen (1..4) bytes
// starting at pos, independent of the bit cursor.
func (r *BitReader) ReadNumber(pos int, byteLen int) (uint32, error) {
	if pos < 0 || byteLen < 1 || byteLen > 4 || pos+byteLen > len(r.data) {
		return 0, wmo.Errorf(wmo.Parse, "end of buffer reading %d bytes at offset %d", byteLen, pos)
	}
	var v uint32
	for i := 0; i < byteLen; i++ {
		v = v<<8 | uint32(r.data[pos+i])
	}
	return v, nil
}

// BitsLeft returns the number of unread bits in the buffer.
func (r *BitReader) BitsLeft() int {
	return (len(r.data)-r.bytePos)*8 + int(r.pbyteLen)
}

// ByteOffset returns the number of whole bytes consumed so far, rounding
// down if a partial byte is in flight.
func (r *BitReader) ByteOffset() int {
	if r.pbyteLen > 0 {
		return r.bytePos - 1
	}
	return r.bytePos
}
