// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package rtl

import "github.com/pkg/errors"

// Attribute and parameter keys used by the AIG lowering pass.
const (
	AttrInit         = "init"         // per-bit initial value of a wire
	AttrArrival      = "arrival"      // timing arrival annotation, integer
	AttrMergeability = "mergeability" // register mergeability class
	AttrBoxID        = "box_id"       // marks a module as an opaque box
	AttrWhitebox     = "whitebox"     // box has a synthesizable implementation
	AttrBlackbox     = "blackbox"     // box implementation is opaque
	AttrFlop         = "flop"         // box contains one flip-flop
	AttrPadding      = "padding"      // wire added to pad a box port
)

// Attr is an attribute or parameter value: either a string or a
// bit-vector constant.
type Attr struct {
	IsStr bool
	Str   string
	Bits  []State
}

// IntAttr returns the bit-vector attribute coding v, 32 bits,
// least-significant first.
func IntAttr(v int) Attr {
	bits := make([]State, 32)
	for i := range bits {
		if v&(1<<uint(i)) != 0 {
			bits[i] = S1
		}
	}
	return Attr{Bits: bits}
}

// StrAttr returns the string attribute with value s.
func StrAttr(s string) Attr {
	return Attr{IsStr: true, Str: s}
}

// BitsAttr returns the bit-vector attribute with the given bits,
// least-significant first.
func BitsAttr(bits ...State) Attr {
	return Attr{Bits: bits}
}

// Int decodes a as an unsigned integer.  It returns an error if a is a
// string attribute.
func (a Attr) Int() (int, error) {
	if a.IsStr {
		return 0, errors.Errorf("attribute value %q is not an integer", a.Str)
	}
	v := 0
	for i, b := range a.Bits {
		if b == S1 && i < 31 {
			v |= 1 << uint(i)
		}
	}
	return v, nil
}

// Bool decodes a as a Boolean flag: any set bit means true.
func (a Attr) Bool() bool {
	if a.IsStr {
		return a.Str != ""
	}
	for _, b := range a.Bits {
		if b == S1 {
			return true
		}
	}
	return false
}

// BitAt returns the i'th state of a bit-vector attribute, or Sx when i
// is out of range.
func (a Attr) BitAt(i int) State {
	if a.IsStr || i < 0 || i >= len(a.Bits) {
		return Sx
	}
	return a.Bits[i]
}
