// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package rtl

// SigMap elects one representative (canonical) bit per electrically
// connected net.  Classes are seeded from a module's alias connections;
// Add promotes specific wires to representatives.  The first promotion
// of a class wins: later Add calls never displace an earlier choice, so
// callers control symbol priority through promotion order.
type SigMap struct {
	parent   map[Bit]Bit
	promoted map[Bit]bool
}

// NewSigMap returns a SigMap seeded from the alias connections of m.
// m may be nil for an empty map.
func NewSigMap(m *Module) *SigMap {
	sm := &SigMap{
		parent:   make(map[Bit]Bit),
		promoted: make(map[Bit]bool),
	}
	if m != nil {
		for _, cn := range m.Conns {
			sm.unify(cn.Dst, cn.Src)
		}
	}
	return sm
}

func (sm *SigMap) find(b Bit) Bit {
	p, ok := sm.parent[b]
	if !ok {
		return b
	}
	r := sm.find(p)
	if r != p {
		sm.parent[b] = r
	}
	return r
}

// unify merges the classes of a and b.  Constants always win the
// representative election; a promoted representative wins over an
// unpromoted one.
func (sm *SigMap) unify(a, b Bit) {
	ra, rb := sm.find(a), sm.find(b)
	if ra == rb {
		return
	}
	switch {
	case rb.IsConst():
		sm.parent[ra] = rb
	case ra.IsConst():
		sm.parent[rb] = ra
	case sm.promoted[ra]:
		sm.parent[rb] = ra
	case sm.promoted[rb]:
		sm.parent[ra] = rb
	default:
		sm.parent[rb] = ra
	}
}

// Merge records that a and b carry the same value.
func (sm *SigMap) Merge(a, b Bit) {
	sm.unify(a, b)
}

// Add promotes every bit of s to be the representative of its class,
// unless the class already has a promoted or constant representative.
func (sm *SigMap) Add(s Sig) {
	for _, b := range s {
		r := sm.find(b)
		if r == b {
			sm.promoted[b] = true
			continue
		}
		if r.IsConst() || sm.promoted[r] {
			continue
		}
		// find compressed b's parent link to r; relink the class
		// under b
		delete(sm.parent, b)
		sm.parent[r] = b
		sm.promoted[b] = true
	}
}

// AddWire promotes all bits of w.
func (sm *SigMap) AddWire(w *Wire) {
	sm.Add(w.Sig())
}

// Apply returns the canonical bit for b.  High-impedance constants
// normalize to the don't-care constant, so Apply never returns Sz.
func (sm *SigMap) Apply(b Bit) Bit {
	r := sm.find(b)
	if r.IsConst() && r.State == Sz {
		return C(Sx)
	}
	return r
}

// ApplySig returns the canonical form of every bit of s.
func (sm *SigMap) ApplySig(s Sig) Sig {
	ns := make(Sig, len(s))
	for i, b := range s {
		ns[i] = sm.Apply(b)
	}
	return ns
}
