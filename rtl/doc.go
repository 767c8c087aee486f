// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

// Package rtl provides a mutable netlist design model: designs, modules,
// wires, cells and bit-level connections, together with a signal
// canonicalizer (SigMap) electing one representative bit per net.
//
// The model is deliberately small.  It exposes what a lowering pass
// needs: enumerable wires with port/keep flags and attributes,
// enumerable cell instances with per-port connections and parameters,
// the ability to add wires, cells and connections, and derivation of
// parameter-specialized module implementations.
package rtl
