// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

// Package z provides AIG literals and variables.
//
// A z.Lit is an AIGER-coded literal: the literal 0 is the constant false,
// 1 is the constant true, and for a variable with index n the literals
// 2n and 2n+1 denote the variable and its negation respectively.
package z
