// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package xaig

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-air/xaig/rtl"
)

func (w *Writer) node(c *rtl.Cell) {
	w.nodes[c.Name] = c
}

func (w *Writer) addUser(r bref, c *rtl.Cell) {
	m, ok := w.bitUsers[r]
	if !ok {
		m = make(map[string]bool)
		w.bitUsers[r] = m
	}
	m[c.Name] = true
}

func (w *Writer) addDriver(r bref, c *rtl.Cell) {
	m, ok := w.bitDrivers[r]
	if !ok {
		m = make(map[string]bool)
		w.bitDrivers[r] = m
	}
	m[c.Name] = true
}

// order resolves register metadata, topologically sorts the gate and
// box cells, and pads every box port in dependency order.  Boxes later
// in the sorted order may only consume bits produced by earlier ones.
func (w *Writer) order() error {
	if w.opts.Holes {
		return nil
	}
	if err := w.bindFlopBoxes(); err != nil {
		return err
	}
	if len(w.nodes) == 0 {
		return nil
	}
	sorted, err := w.toposort()
	if err != nil {
		return err
	}
	for _, name := range sorted {
		c := w.nodes[name]
		instMod := w.mod.Design.Module(c.Type)
		if instMod == nil {
			continue
		}
		if _, ok := instMod.Attr(rtl.AttrBoxID); !ok {
			continue
		}
		if err := w.padBox(c, instMod); err != nil {
			return err
		}
		w.boxList = append(w.boxList, c)
	}
	return nil
}

// flopQ caches, per flop box type, which output port carries the
// captured state and the declared arrival time of that port.
type flopQ struct {
	port    string
	arrival float32
}

// bindFlopBoxes transfers each flop box instance's mergeability class
// and its state port's arrival time onto the outer register entry.
func (w *Writer) bindFlopBoxes() error {
	cache := make(map[string]flopQ)
	for _, c := range w.flopBoxes {
		fq, ok := cache[c.Type]
		if !ok {
			instMod := w.mod.Design.Module(c.Type)
			for _, pn := range c.Ports() {
				sig := c.Port(pn)
				if len(sig) != 1 {
					continue
				}
				d := w.cref(sig[0])
				if _, isFF := w.ffClass[d]; !isFF {
					continue
				}
				fq.port = pn
				pw := instMod.Wire(pn)
				if pw != nil {
					if a, aok := pw.Attr(rtl.AttrArrival); aok {
						v, err := a.Int()
						if err != nil {
							return errors.Wrapf(err,
								"arrival attribute on port %q of module %q",
								pn, c.Type)
						}
						fq.arrival = float32(v)
					}
				}
				break
			}
			if fq.port == "" {
				return errors.Errorf(
					"flop box %q (type %q) has no output bound to a register",
					c.Name, c.Type)
			}
			cache[c.Type] = fq
		}
		sig := c.Port(fq.port)
		if len(sig) != 1 {
			return errors.Errorf(
				"state port %q of flop box %q must be one bit wide", fq.port, c.Name)
		}
		d := w.cref(sig[0])
		a, ok := c.Attr(rtl.AttrMergeability)
		if !ok {
			return errors.Errorf(
				"flop box %q (type %q) carries no mergeability class", c.Name, c.Type)
		}
		v, err := a.Int()
		if err != nil {
			return errors.Wrapf(err, "mergeability class of flop box %q", c.Name)
		}
		w.ffClass[d] = v
		c.DelAttr(rtl.AttrMergeability)
		if fq.arrival != 0 {
			w.arrival[d] = fq.arrival
		}
	}
	return nil
}

// toposort orders the recorded cells so that every driver precedes its
// users.  Ties break on cell name, making the order deterministic.  A
// cycle is fatal.
func (w *Writer) toposort() ([]string, error) {
	succ := make(map[string]map[string]bool, len(w.nodes))
	indeg := make(map[string]int, len(w.nodes))
	for name := range w.nodes {
		succ[name] = make(map[string]bool)
		indeg[name] = 0
	}
	for r, users := range w.bitUsers {
		drivers, ok := w.bitDrivers[r]
		if !ok {
			continue
		}
		for d := range drivers {
			for u := range users {
				if succ[d][u] {
					continue
				}
				succ[d][u] = true
				indeg[u]++
			}
		}
	}

	ready := make([]string, 0, len(w.nodes))
	for name, n := range indeg {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	sorted := make([]string, 0, len(w.nodes))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		sorted = append(sorted, name)
		next := make([]string, 0, len(succ[name]))
		for u := range succ[name] {
			indeg[u]--
			if indeg[u] == 0 {
				next = append(next, u)
			}
		}
		sort.Strings(next)
		ready = mergeSorted(ready, next)
	}
	if len(sorted) != len(w.nodes) {
		var loop []string
		for name, n := range indeg {
			if n > 0 {
				loop = append(loop, name)
			}
		}
		sort.Strings(loop)
		return nil, errors.Errorf("dependency cycle through cells: %s",
			strings.Join(loop, ", "))
	}
	return sorted, nil
}

func mergeSorted(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// padBox completes every declared port of box instance c: unconnected
// input bits tie to constant zero, unconnected output bits get fresh
// anonymous wires.  Input bits become outer AIG outputs, output bits
// become outer AIG inputs.
func (w *Writer) padBox(c *rtl.Cell, instMod *rtl.Module) error {
	blackbox := instMod.BoolAttr(rtl.AttrBlackbox)
	for _, pn := range instMod.Ports {
		pw := instMod.Wire(pn)
		if pw == nil {
			return errors.Errorf("module %q declares port %q without a wire",
				instMod.Name, pn)
		}
		if pw.PortInput {
			sig := c.Port(pn)
			if len(sig) < pw.Width {
				sig = append(sig, rtl.ConstSig(rtl.S0, pw.Width-len(sig))...)
				c.SetPort(pn, sig)
			}
			for i, b := range sig {
				w.recordBoxInput(b, c, pn, i)
			}
		}
		if pw.PortOutput {
			sig := c.Port(pn)
			if len(sig) < pw.Width {
				nw := w.mod.NewWire(pw.Width - len(sig))
				if blackbox {
					nw.SetAttr(rtl.AttrPadding, rtl.IntAttr(1))
				}
				sig = append(sig, nw.Sig()...)
				c.SetPort(pn, sig)
			}
			for i, b := range sig {
				rb := w.ref(b)
				w.ciBits = append(w.ciBits, ciBit{bit: rb, cell: c, port: pn, offset: i})
				cn := w.sigmap.Apply(b)
				if cn != b {
					w.aliasMap[w.ref(cn)] = rb
				}
				w.undriven.Remove(w.ref(cn))
				w.inputBits.Remove(rb)
			}
		}
	}
	if instMod.BoolAttr(rtl.AttrFlop) {
		sw := w.mod.Wire(c.Name + StateSuffix)
		if sw == nil {
			return errors.Errorf("%q is not a wire present in module %q",
				c.Name+StateSuffix, w.mod.Name)
		}
		for i, b := range sw.Sig() {
			w.recordBoxInput(b, c, StateSuffix, i)
		}
	}
	return nil
}

// recordBoxInput registers bit b as handed into box c.  Don't-care
// bits tie to constant zero.
func (w *Writer) recordBoxInput(b rtl.Bit, c *rtl.Cell, port string, offset int) {
	cn := w.sigmap.Apply(b)
	if b.IsConst() && b.State == rtl.Sx {
		b = rtl.C(rtl.S0)
	} else if cn != b {
		if cn.IsConst() && cn.State == rtl.Sx {
			w.aliasMap[w.ref(b)] = w.ref(rtl.C(rtl.S0))
		} else {
			w.aliasMap[w.ref(b)] = w.ref(cn)
		}
	}
	w.coBits = append(w.coBits, coBit{bit: w.ref(b), cell: c, port: port, offset: offset})
	w.unused.Remove(w.ref(cn))
}
