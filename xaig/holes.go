// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package xaig

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/go-air/xaig/rtl"
)

// HolesName is the temporary module holding every box type's internal
// circuit while the nested AIGER section is produced.
const HolesName = "$holes"

// boxInfo describes one box instance in the extension header: padded
// input and output bit counts, the box type's identity and the
// instance's position in dependency order.
type boxInfo struct {
	inputs  int
	outputs int
	id      int
	seq     int
}

// buildHoles constructs the module describing the internal function of
// every box, one shared set of positional inputs i1..iN and one set of
// per-instance output wires.  Duplicate instances of one derived box
// type alias the first instance's outputs.
func (w *Writer) buildHoles() (*rtl.Module, []boxInfo, error) {
	d := w.mod.Design
	d.RemoveModule(HolesName)
	hm := d.AddModule(HolesName)

	cellCache := make(map[string]*rtl.Cell)
	portID := 1
	var infos []boxInfo

	input := func(n int) *rtl.Wire {
		name := fmt.Sprintf("i%d", n)
		hw := hm.Wire(name)
		if hw == nil {
			hw = hm.AddWire(name, 1)
			hw.PortInput = true
			hw.PortID = portID
			portID++
			hm.Ports = append(hm.Ports, name)
		}
		return hw
	}

	for seq, c := range w.boxList {
		dm, err := d.Derive(c.Type, c.Params)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "box %q", c.Name)
		}
		boxIns, boxOuts := 0, 0
		hc, cached := cellCache[dm.Name]
		if !cached {
			if dm.BoolAttr(rtl.AttrWhitebox) {
				hc = hm.AddCell(c.Name, c.Type)
				for k, v := range c.Params {
					hc.SetParam(k, v)
				}
			}
			cellCache[dm.Name] = hc
		}
		for _, pn := range dm.Ports {
			pw := dm.Wire(pn)
			if pw == nil {
				continue
			}
			var portSig rtl.Sig
			if pw.PortInput {
				for i := 0; i < pw.Width; i++ {
					boxIns++
					hw := input(boxIns)
					if hc != nil {
						portSig = append(portSig, hw.Bit(0))
					}
				}
			}
			if pw.PortOutput {
				boxOuts += pw.Width
				for i := 0; i < pw.Width; i++ {
					var name string
					if pw.Width == 1 {
						name = fmt.Sprintf("%s.%s", c.Name, pn)
					} else {
						name = fmt.Sprintf("%s.%s[%d]", c.Name, pn, i)
					}
					hw := hm.AddWire(name, 1)
					hw.PortOutput = true
					hw.PortID = portID
					portID++
					hm.Ports = append(hm.Ports, name)
					if hc != nil {
						portSig = append(portSig, hw.Bit(0))
					} else {
						hm.Connect(rtl.Sig{hw.Bit(0)}, rtl.Sig{rtl.C(rtl.S0)})
					}
				}
			}
			if len(portSig) > 0 {
				if !cached {
					hc.SetPort(pn, portSig)
				} else {
					hm.Connect(hc.Port(pn), portSig)
				}
			}
		}
		if dm.BoolAttr(rtl.AttrFlop) {
			if hc == nil {
				return nil, nil, errors.Errorf(
					"flop box type %q must be a whitebox", c.Type)
			}
			boxIns++
			hw := input(boxIns)
			sw := hm.AddWire(c.Name+StateSuffix, 1)
			hm.Connect(rtl.Sig{sw.Bit(0)}, rtl.Sig{hw.Bit(0)})
		}
		a, ok := dm.Attr(rtl.AttrBoxID)
		if !ok {
			return nil, nil, errors.Errorf("box type %q lost its box id", c.Type)
		}
		id, err := a.Int()
		if err != nil {
			return nil, nil, errors.Wrapf(err, "box id of module %q", c.Type)
		}
		infos = append(infos, boxInfo{inputs: boxIns, outputs: boxOuts, id: id, seq: seq})
	}

	if err := w.flattenHoles(hm); err != nil {
		return nil, nil, err
	}
	return hm, infos, nil
}

// flattenHoles inlines every box implementation into hm and detaches
// flip-flops: each flop's output port is rewired to expose the data
// input (the next-state function), while internal readers of the flop
// output switch to the injected current-state input.  What remains is
// purely combinational.
func (w *Writer) flattenHoles(hm *rtl.Module) error {
	owner := make(map[string]string)
	for _, hc := range append([]*rtl.Cell(nil), hm.Cells()...) {
		dm, err := hm.Design.Derive(hc.Type, hc.Params)
		if err != nil {
			return errors.Wrapf(err, "box %q", hc.Name)
		}
		if err := w.inline(hm, hc, dm, hc.Name, owner); err != nil {
			return err
		}
	}

	sm := rtl.NewSigMap(hm)
	outPort := make(map[rtl.Bit]bool)
	havePort := make(map[rtl.Bit]bool)
	for _, pn := range hm.Ports {
		pw := hm.Wire(pn)
		if pw == nil || !pw.PortOutput {
			continue
		}
		for i := 0; i < pw.Width; i++ {
			b := pw.Bit(i)
			outPort[b] = true
			havePort[sm.Apply(b)] = true
		}
	}

	for _, c := range append([]*rtl.Cell(nil), hm.Cells()...) {
		if c.Type != TypeDFF {
			continue
		}
		db, err := portBit(c, "D")
		if err != nil {
			return err
		}
		qb, err := portBit(c, "Q")
		if err != nil {
			return err
		}
		hm.RemoveCell(c)
		canonQ := sm.Apply(qb)
		if !havePort[canonQ] {
			return errors.Errorf(
				"flip-flop %q inside a box implementation does not feed a box output", c.Name)
		}
		currQ := hm.Wire(owner[c.Name] + StateSuffix)
		if currQ == nil {
			return errors.Errorf("%q is not a wire present in module %q",
				owner[c.Name]+StateSuffix, hm.Name)
		}

		// dissect the flop output's alias class: drop every internal
		// connection, then rewire box output bits to the data input
		// (the next-state function) and internal readers to the
		// injected current-state input
		seen := map[rtl.Bit]bool{qb: true}
		members := []rtl.Bit{qb}
		kept := hm.Conns[:0]
		for _, cn := range hm.Conns {
			if sm.Apply(cn.Dst) == canonQ && sm.Apply(cn.Src) == canonQ {
				for _, b := range [2]rtl.Bit{cn.Dst, cn.Src} {
					if !seen[b] {
						seen[b] = true
						members = append(members, b)
					}
				}
				continue
			}
			kept = append(kept, cn)
		}
		hm.Conns = kept
		sort.Slice(members, func(i, j int) bool {
			return rtl.Compare(members[i], members[j]) < 0
		})
		for _, b := range members {
			if b == db {
				continue
			}
			if outPort[b] {
				hm.Connect(rtl.Sig{b}, rtl.Sig{db})
			} else {
				hm.Connect(rtl.Sig{b}, rtl.Sig{currQ.Bit(0)})
			}
		}
	}
	return nil
}

// inline splices one instance of dm into hm.  Every wire of dm gets a
// private local copy; port wires additionally alias the instance's
// bindings.  Nested instances inline recursively; any cell that is not
// an inverter, and gate, flip-flop or further box implementation is
// fatal.
func (w *Writer) inline(hm *rtl.Module, hc *rtl.Cell, dm *rtl.Module, own string, owner map[string]string) error {
	hm.RemoveCell(hc)
	prefix := hc.Name
	locals := make(map[*rtl.Wire]*rtl.Wire)
	localBit := func(b rtl.Bit) rtl.Bit {
		if b.IsConst() {
			return b
		}
		lw, ok := locals[b.Wire]
		if !ok {
			lw = hm.AddWire("$flat$"+prefix+"."+b.Wire.Name, b.Wire.Width)
			locals[b.Wire] = lw
		}
		return lw.Bit(b.Offset)
	}
	localSig := func(s rtl.Sig) rtl.Sig {
		ns := make(rtl.Sig, len(s))
		for i, b := range s {
			ns[i] = localBit(b)
		}
		return ns
	}

	for _, pn := range dm.Ports {
		pw := dm.Wire(pn)
		if pw == nil {
			continue
		}
		bound := hc.Port(pn)
		if len(bound) == 0 {
			continue
		}
		n := len(bound)
		if pw.Width < n {
			n = pw.Width
		}
		local := localSig(pw.Sig()[:n])
		if pw.PortInput && !pw.PortOutput {
			hm.Connect(local, bound[:n])
		} else {
			hm.Connect(bound[:n], local)
		}
	}

	for _, cn := range dm.Conns {
		hm.Connect(rtl.Sig{localBit(cn.Dst)}, rtl.Sig{localBit(cn.Src)})
	}

	for _, c := range dm.Cells() {
		switch c.Type {
		case TypeNot, TypeAnd, TypeDFF:
			nc := hm.AddCell(prefix+"."+c.Name, c.Type)
			for _, pn := range c.Ports() {
				nc.SetPort(pn, localSig(c.Port(pn)))
			}
			if c.Type == TypeDFF {
				owner[nc.Name] = own
			}
		default:
			ndm, err := hm.Design.Derive(c.Type, c.Params)
			if err != nil {
				return errors.Errorf(
					"whitebox %q contents cannot be represented as AIG: cell %q (type %q)",
					dm.Name, c.Name, c.Type)
			}
			nc := hm.AddCell(prefix+"."+c.Name, c.Type)
			for _, pn := range c.Ports() {
				nc.SetPort(pn, localSig(c.Port(pn)))
			}
			if err := w.inline(hm, nc, ndm, own, owner); err != nil {
				return err
			}
		}
	}
	return nil
}
