// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package z

import "fmt"

// Lit is an AIGER-coded literal.
type Lit uint32

// The Boolean constants, literals of the reserved variable 0.
const (
	F Lit = 0
	T Lit = 1
)

// Var returns the variable of m.
func (m Lit) Var() Var {
	return Var(m >> 1)
}

// Not returns the negation of m.
func (m Lit) Not() Lit {
	return m ^ 1
}

// IsPos returns whether m is a positive (un-negated) literal.
func (m Lit) IsPos() bool {
	return m&1 == 0
}

// Sign returns 1 for a positive literal and -1 for a negative one.
func (m Lit) Sign() int {
	if m.IsPos() {
		return 1
	}
	return -1
}

// IsConst returns whether m is one of the constants F, T.
func (m Lit) IsConst() bool {
	return m <= 1
}

func (m Lit) String() string {
	switch m {
	case F:
		return "f"
	case T:
		return "t"
	}
	if m.IsPos() {
		return fmt.Sprintf("v%d", uint32(m>>1))
	}
	return fmt.Sprintf("!v%d", uint32(m>>1))
}
