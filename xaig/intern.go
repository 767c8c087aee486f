// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package xaig

import "github.com/go-air/xaig/rtl"

// bref is a dense handle for an interned bit.  All relation tables are
// keyed by bref rather than by rtl.Bit so that later design mutation
// (inout splitting, box port padding) only ever allocates new handles
// and never invalidates existing ones.
type bref uint32

type interner struct {
	bits []rtl.Bit
	ids  map[rtl.Bit]bref
}

func newInterner() *interner {
	return &interner{ids: make(map[rtl.Bit]bref)}
}

// of interns b, allocating a handle on first sight.
func (t *interner) of(b rtl.Bit) bref {
	if r, ok := t.ids[b]; ok {
		return r
	}
	r := bref(len(t.bits))
	t.bits = append(t.bits, b)
	t.ids[b] = r
	return r
}

// lookup returns the handle of b without interning.
func (t *interner) lookup(b rtl.Bit) (bref, bool) {
	r, ok := t.ids[b]
	return r, ok
}

// bit returns the bit behind handle r.
func (t *interner) bit(r bref) rtl.Bit {
	return t.bits[r]
}
