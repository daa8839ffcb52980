// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package wmo implements the WMO BUFR/CREX data descriptor section (DDS)
// interpreter: the table-driven state machine shared by the bufr and crex
// wire-format codecs.
package wmo

import (
	"fmt"
	"runtime"
)

// Kind classifies an Error. See spec section 7 for the taxonomy.
type Kind int

const (
	// Parse indicates malformed input: a truncated section, wrong magic,
	// an impossible length, or a disallowed bit combination.
	Parse Kind = iota
	// NotFound indicates a Varcode was absent from Table B or Table D.
	NotFound
	// Domain indicates a value fell outside its allowed range.
	Domain
	// Consistency indicates an internal state invariant was violated.
	Consistency
	// Unimplemented indicates a valid but unsupported combination.
	Unimplemented
	// System indicates a resource failure unrelated to the input.
	System
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "parse"
	case NotFound:
		return "not found"
	case Domain:
		return "domain"
	case Consistency:
		return "consistency"
	case Unimplemented:
		return "unimplemented"
	case System:
		return "system"
	default:
		return "unknown"
	}
}

// Error is the error type raised by this module and its codecs.
//
// File, Section, and Offset are advisory context filled in where available;
// a zero Offset does not necessarily mean "at the start of input".
type Error struct {
	Kind    Kind
	File    string
	Section int
	Offset  int64
	Msg     string
}

func (e *Error) Error() string {
	s := "wreport: " + e.Kind.String() + ": " + e.Msg
	if e.File != "" {
		s = fmt.Sprintf("%s: %s", e.File, s)
	}
	if e.Section > 0 {
		s = fmt.Sprintf("%s (section %d)", s, e.Section)
	}
	if e.Offset != 0 {
		s = fmt.Sprintf("%s (offset %d)", s, e.Offset)
	}
	return s
}

// Errorf constructs an *Error of the given kind.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Panicf raises an *Error of the given kind as a panic. Interpreter and
// codec internals use this to unwind to the nearest Recover without
// threading error returns through every call.
func Panicf(kind Kind, format string, args ...interface{}) {
	panic(Errorf(kind, format, args...))
}

// Recover is installed via defer at every exported decode/encode entry
// point. It converts a panicking *Error (or any error) into a returned
// error, while letting runtime errors (nil dereference, index out of
// range, and the like) continue to crash the program as bugs should.
func Recover(err *error) {
	switch ex := recover().(type) {
	case nil:
		// Do nothing.
	case runtime.Error:
		panic(ex)
	case error:
		*err = ex
	default:
		panic(ex)
	}
}
