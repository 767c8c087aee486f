// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

// Package xaig lowers a flattened netlist module to an and-inverter
// graph and serializes it in the extended AIGER format consumed by
// combinational optimizers and technology mappers.
//
// The pass classifies every cell into inverter, and-gate, register,
// opaque box or unsupported kinds, topologically orders opaque boxes,
// recursively translates canonical bits into AIG literals, and emits
// the AIGER header and body together with extension sections recording
// box interfaces, register state and per-bit timing.  A nested,
// recursive invocation of the same pass derives the "holes" sub-AIG
// describing each box type's internal combinational function.
//
// Registers are not written as native AIGER latches: each register
// surfaces as one extra input (its current state) and one extra output
// (its next-state function), so the encoded graph is purely
// combinational.
package xaig
