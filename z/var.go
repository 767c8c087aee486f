// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package z

import "fmt"

// Var is a propositional variable.  Variable 0 is reserved for the
// Boolean constants.
type Var uint32

// Pos returns the positive literal of v.
func (v Var) Pos() Lit {
	return Lit(v << 1)
}

// Neg returns the negative literal of v.
func (v Var) Neg() Lit {
	return Lit(v<<1 | 1)
}

func (v Var) String() string {
	return fmt.Sprintf("v%d", uint32(v))
}
