// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package rtl

import (
	"fmt"
	"strings"
)

// State is the value of a constant signal bit.
type State int8

const (
	S0 State = iota // constant zero
	S1              // constant one
	Sx              // don't care
	Sz              // high impedance
)

func (s State) String() string {
	switch s {
	case S0:
		return "0"
	case S1:
		return "1"
	case Sx:
		return "x"
	case Sz:
		return "z"
	}
	return "?"
}

// Bit is a single-bit signal identity: one bit of a wire, or a constant
// state when Wire is nil.  The zero Bit is the constant 0.  Bits are
// comparable and usable as map keys.
type Bit struct {
	Wire   *Wire
	Offset int
	State  State
}

// C returns the constant bit with state s.
func C(s State) Bit {
	return Bit{State: s}
}

// IsConst returns whether b is a constant bit.
func (b Bit) IsConst() bool {
	return b.Wire == nil
}

func (b Bit) String() string {
	if b.IsConst() {
		return b.State.String()
	}
	if b.Wire.Width == 1 && b.Offset == 0 {
		return b.Wire.Name
	}
	return fmt.Sprintf("%s[%d]", b.Wire.Name, b.Offset)
}

// Compare orders bits: constants first by state, then wire bits by wire
// name and bit offset.
func Compare(a, b Bit) int {
	switch {
	case a.IsConst() && b.IsConst():
		return int(a.State) - int(b.State)
	case a.IsConst():
		return -1
	case b.IsConst():
		return 1
	}
	if c := strings.Compare(a.Wire.Name, b.Wire.Name); c != 0 {
		return c
	}
	return a.Offset - b.Offset
}

// Sig is a multi-bit signal, bit 0 first.
type Sig []Bit

// ConstSig returns a signal of n bits all in state s.
func ConstSig(s State, n int) Sig {
	sig := make(Sig, n)
	for i := range sig {
		sig[i] = C(s)
	}
	return sig
}

// IsFullyConst returns whether every bit of s is a constant.
func (s Sig) IsFullyConst() bool {
	for _, b := range s {
		if !b.IsConst() {
			return false
		}
	}
	return true
}
