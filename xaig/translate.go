// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package xaig

import (
	"github.com/pkg/errors"

	"github.com/go-air/xaig/rtl"
	"github.com/go-air/xaig/z"
)

// translate returns the AIG literal of bit handle r, building and
// memoizing any gates its definition needs.
func (w *Writer) translate(r bref) (z.Lit, error) {
	if m, ok := w.aigMap[r]; ok {
		return m, nil
	}
	if w.visiting[r] {
		return z.F, errors.Errorf("combinational loop through bit %s", w.in.bit(r))
	}
	w.visiting[r] = true
	defer delete(w.visiting, r)

	var m z.Lit
	switch {
	case w.isNot(r):
		a, err := w.translate(w.notMap[r])
		if err != nil {
			return z.F, err
		}
		m = a.Not()
	case w.isAnd(r):
		g := w.andMap[r]
		a0, err := w.translate(g[0])
		if err != nil {
			return z.F, err
		}
		a1, err := w.translate(g[1])
		if err != nil {
			return z.F, err
		}
		m = w.mkGate(a0, a1)
	case w.isAlias(r):
		a, err := w.translate(w.aliasMap[r])
		if err != nil {
			return z.F, err
		}
		m = a
	default:
		b := w.in.bit(r)
		if b.IsConst() && (b.State == rtl.Sx || b.State == rtl.Sz) {
			w.debugf("design contains 'x' or 'z' bits, treating as 1'b0")
			m = z.F
		} else {
			return z.F, errors.Errorf("no AIG mapping for bit %s", b)
		}
	}
	w.aigMap[r] = m
	return m, nil
}

func (w *Writer) isNot(r bref) bool {
	_, ok := w.notMap[r]
	return ok
}

func (w *Writer) isAnd(r bref) bool {
	_, ok := w.andMap[r]
	return ok
}

func (w *Writer) isAlias(r bref) bool {
	_, ok := w.aliasMap[r]
	return ok
}

// mkGate returns the literal of a0&a1, reusing a structurally
// identical earlier gate when one exists.  Operands store larger
// first, which both canonicalizes the strash key and keeps the binary
// encoding's deltas non-negative.
func (w *Writer) mkGate(a0, a1 z.Lit) z.Lit {
	if a0 < a1 {
		a0, a1 = a1, a0
	}
	key := [2]z.Lit{a0, a1}
	if m, ok := w.strash[key]; ok {
		return m
	}
	w.aigM++
	w.aigA++
	w.gates = append(w.gates, key)
	m := z.Lit(2 * w.aigM)
	w.strash[key] = m
	return m
}
