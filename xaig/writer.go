// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package xaig

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"

	"github.com/go-air/xaig/rtl"
	"github.com/go-air/xaig/z"
)

// Cell types understood by the lowering pass.  Everything else is
// either an opaque box (its type names a module carrying a box id
// attribute) or an unsupported cell cut out of the graph.
const (
	TypeNot = "$not" // single-input inverter: A -> Y
	TypeAnd = "$and" // two-input and gate: A, B -> Y
	TypeFF  = "$ff"  // one-bit state register: D -> Q
	TypeDFF = "$dff" // flip-flop inside a box implementation: D -> Q
)

// StateSuffix names the per-box wire carrying a flop box's captured
// current state.  The wire "<cell>" + StateSuffix must exist in the
// module for every box whose implementation is flagged as a flop.
const StateSuffix = ".$state"

// Options configure a Writer.
type Options struct {
	// ZInit treats registers as zero-initialized: the map output
	// reports init 0 instead of 2 for outputs without a declared
	// initial value.
	ZInit bool

	// Holes marks the nested invocation deriving box internals:
	// inputs and outputs order by port id, undriven bits are not
	// promoted, and only inverter/and cells are admitted.
	Holes bool

	// Debug enables debug-level notes on the logger.
	Debug bool

	// Log receives warnings and debug notes.  Defaults to stderr.
	Log *log.Logger
}

// ciBit is a box output bit: an input of the outer AIG, received from
// the box.
type ciBit struct {
	bit    bref
	cell   *rtl.Cell
	port   string
	offset int
}

// coBit is a box input bit: an output of the outer AIG, handed into
// the box.
type coBit struct {
	bit    bref
	cell   *rtl.Cell
	port   string
	offset int
	order  int
}

// Writer lowers one module to an AIG and serializes it.  A Writer owns
// all of its tables; the nested holes invocation builds a fully
// independent Writer of its own.  Writers are not safe for concurrent
// use and mutate the module they read.
type Writer struct {
	mod  *rtl.Module
	opts Options
	log  *log.Logger

	sigmap *rtl.SigMap
	in     *interner

	initMap    map[bref]bool
	inputBits  *set.Set[bref]
	outputBits *set.Set[bref]
	keepBits   *set.Set[bref]
	undriven   *set.Set[bref]
	unused     *set.Set[bref]

	notMap   map[bref]bref
	aliasMap map[bref]bref
	andMap   map[bref][2]bref
	ciBits   []ciBit
	coBits   []coBit
	ffOrder  []bref
	ffClass  map[bref]int
	arrival  map[bref]float32

	// dependency graph over gate and box cells
	nodes      map[string]*rtl.Cell
	bitDrivers map[bref]map[string]bool
	bitUsers   map[bref]map[string]bool
	flopBoxes  []*rtl.Cell
	boxList    []*rtl.Cell

	// AIG numbering
	aigM, aigI, aigL, aigO, aigA int
	gates                        [][2]z.Lit
	strash                       map[[2]z.Lit]z.Lit
	aigMap                       map[bref]z.Lit
	ffAigMap                     map[bref]z.Lit
	visiting                     map[bref]bool
	outputs                      []z.Lit
	orderedOutputs               map[bref]int

	inputList  []bref
	outputList []bref
	omode      bool
}

// NewWriter classifies, orders and numbers module mod, returning a
// Writer ready to serialize.  mod is mutated: splitting inout bits and
// padding box ports may add wires, cells and connections.
func NewWriter(mod *rtl.Module, opts Options) (*Writer, error) {
	w := &Writer{
		mod:            mod,
		opts:           opts,
		log:            opts.Log,
		in:             newInterner(),
		initMap:        make(map[bref]bool),
		inputBits:      set.New[bref](64),
		outputBits:     set.New[bref](64),
		keepBits:       set.New[bref](8),
		undriven:       set.New[bref](64),
		unused:         set.New[bref](64),
		notMap:         make(map[bref]bref),
		aliasMap:       make(map[bref]bref),
		andMap:         make(map[bref][2]bref),
		ffClass:        make(map[bref]int),
		arrival:        make(map[bref]float32),
		nodes:          make(map[string]*rtl.Cell),
		bitDrivers:     make(map[bref]map[string]bool),
		bitUsers:       make(map[bref]map[string]bool),
		strash:         make(map[[2]z.Lit]z.Lit),
		aigMap:         make(map[bref]z.Lit),
		ffAigMap:       make(map[bref]z.Lit),
		visiting:       make(map[bref]bool),
		orderedOutputs: make(map[bref]int),
	}
	if w.log == nil {
		w.log = log.New(os.Stderr, "", 0)
	}

	w.canonicalize()
	if err := w.classifyWires(); err != nil {
		return nil, errors.Wrapf(err, "module %q", mod.Name)
	}
	if err := w.classifyCells(); err != nil {
		return nil, errors.Wrapf(err, "module %q", mod.Name)
	}
	if err := w.order(); err != nil {
		return nil, errors.Wrapf(err, "module %q", mod.Name)
	}
	w.splitInout()
	w.promoteUndriven()
	w.number()
	if err := w.buildOutputs(); err != nil {
		return nil, errors.Wrapf(err, "module %q", mod.Name)
	}
	return w, nil
}

// canonicalize elects representative bits: externally-visible wires
// first, then declared inputs, then declared outputs.  The first
// promotion of a net wins, so symbol reporting favors public names.
func (w *Writer) canonicalize() {
	w.sigmap = rtl.NewSigMap(w.mod)
	for _, wi := range w.mod.Wires() {
		if wi.Public() {
			w.sigmap.AddWire(wi)
		}
	}
	for _, wi := range w.mod.Wires() {
		if wi.PortInput {
			w.sigmap.AddWire(wi)
		}
	}
	for _, wi := range w.mod.Wires() {
		if wi.PortOutput {
			w.sigmap.AddWire(wi)
		}
	}
}

// ref interns a bit as-is; cref interns its canonical form.
func (w *Writer) ref(b rtl.Bit) bref {
	return w.in.of(b)
}

func (w *Writer) cref(b rtl.Bit) bref {
	return w.in.of(w.sigmap.Apply(b))
}

func (w *Writer) warnf(format string, args ...interface{}) {
	w.log.Printf("warning: "+format, args...)
}

func (w *Writer) debugf(format string, args ...interface{}) {
	if w.opts.Debug {
		w.log.Printf("debug: "+format, args...)
	}
}

func (w *Writer) classifyWires() error {
	for _, wi := range w.mod.Wires() {
		if a, ok := wi.Attr(rtl.AttrInit); ok {
			for i := 0; i < wi.Width; i++ {
				switch a.BitAt(i) {
				case rtl.S0:
					w.initMap[w.cref(wi.Bit(i))] = false
				case rtl.S1:
					w.initMap[w.cref(wi.Bit(i))] = true
				}
			}
		}
		keep := wi.Keep
		for i := 0; i < wi.Width; i++ {
			wirebit := wi.Bit(i)
			bit := w.sigmap.Apply(wirebit)
			if !bit.IsConst() {
				w.undriven.Insert(w.ref(bit))
				w.unused.Insert(w.ref(bit))
			}
			if keep {
				w.keepBits.Insert(w.ref(bit))
			}
			if wi.PortInput || keep {
				if bit != wirebit {
					w.aliasMap[w.ref(bit)] = w.ref(wirebit)
				}
				w.inputBits.Insert(w.ref(wirebit))
			}
			if wi.PortOutput || keep {
				if bit.IsConst() && bit.State == rtl.Sx {
					w.debugf("skipping output %s driven by don't-care", wirebit)
					continue
				}
				if bit != wirebit {
					w.aliasMap[w.ref(wirebit)] = w.ref(bit)
				}
				w.outputBits.Insert(w.ref(wirebit))
			}
		}
	}
	for _, r := range w.inputBits.Slice() {
		w.undriven.Remove(w.cref(w.in.bit(r)))
	}
	for _, r := range w.outputBits.Slice() {
		b := w.in.bit(r)
		if b.Wire != nil && b.Wire.PortInput {
			continue
		}
		w.unused.Remove(w.cref(b))
	}
	return nil
}

// portBit fetches the single-bit connection of a gate or register port.
func portBit(c *rtl.Cell, port string) (rtl.Bit, error) {
	sig := c.Port(port)
	if len(sig) != 1 {
		return rtl.Bit{}, errors.Errorf(
			"cell %q (type %q): port %q must connect exactly one bit, got %d",
			c.Name, c.Type, port, len(sig))
	}
	return sig[0], nil
}

func (w *Writer) classifyCells() error {
	for _, c := range w.mod.Cells() {
		switch c.Type {
		case TypeNot:
			if err := w.classifyNot(c); err != nil {
				return err
			}
			continue
		case TypeAnd:
			if err := w.classifyAnd(c); err != nil {
				return err
			}
			continue
		}
		if w.opts.Holes {
			return errors.Errorf(
				"unexpected cell %q (type %q) in holes context", c.Name, c.Type)
		}
		if c.Type == TypeFF {
			if err := w.classifyFF(c); err != nil {
				return err
			}
			continue
		}
		instMod := w.mod.Design.Module(c.Type)
		if instMod != nil {
			if _, ok := instMod.Attr(rtl.AttrBoxID); ok {
				w.classifyBox(c, instMod)
				continue
			}
		}
		if err := w.classifyUnsupported(c, instMod); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) classifyNot(c *rtl.Cell) error {
	ab, err := portBit(c, "A")
	if err != nil {
		return err
	}
	yb, err := portBit(c, "Y")
	if err != nil {
		return err
	}
	a, y := w.cref(ab), w.cref(yb)
	w.unused.Remove(a)
	w.undriven.Remove(y)
	w.notMap[y] = a
	if !w.opts.Holes {
		w.node(c)
		w.addUser(a, c)
		w.addDriver(y, c)
	}
	return nil
}

func (w *Writer) classifyAnd(c *rtl.Cell) error {
	ab, err := portBit(c, "A")
	if err != nil {
		return err
	}
	bb, err := portBit(c, "B")
	if err != nil {
		return err
	}
	yb, err := portBit(c, "Y")
	if err != nil {
		return err
	}
	a, b, y := w.cref(ab), w.cref(bb), w.cref(yb)
	w.unused.Remove(a)
	w.unused.Remove(b)
	w.undriven.Remove(y)
	w.andMap[y] = [2]bref{a, b}
	if !w.opts.Holes {
		w.node(c)
		w.addUser(a, c)
		w.addUser(b, c)
		w.addDriver(y, c)
	}
	return nil
}

func (w *Writer) classifyFF(c *rtl.Cell) error {
	db, err := portBit(c, "D")
	if err != nil {
		return err
	}
	qb, err := portBit(c, "Q")
	if err != nil {
		return err
	}
	d, q := w.cref(db), w.cref(qb)
	w.unused.Remove(d)
	w.undriven.Remove(q)
	w.aliasMap[q] = d
	if _, ok := w.ffClass[d]; ok {
		return errors.Errorf("register data bit %s driven by more than one register cell",
			w.in.bit(d))
	}
	w.ffClass[d] = 0
	w.ffOrder = append(w.ffOrder, d)
	return nil
}

func (w *Writer) classifyBox(c *rtl.Cell, instMod *rtl.Module) {
	w.node(c)
	for _, pn := range c.Ports() {
		pw := instMod.Wire(pn)
		if pw == nil {
			continue
		}
		if pw.PortInput {
			// inout ports are ignored for ordering purposes
			if pw.PortOutput {
				continue
			}
			for _, b := range c.Port(pn) {
				if b.IsConst() {
					continue
				}
				w.addUser(w.cref(b), c)
			}
		}
		if pw.PortOutput {
			for _, b := range c.Port(pn) {
				if b.IsConst() {
					continue
				}
				w.addDriver(w.cref(b), c)
			}
		}
	}
	if instMod.BoolAttr(rtl.AttrFlop) {
		w.flopBoxes = append(w.flopBoxes, c)
	}
}

func (w *Writer) classifyUnsupported(c *rtl.Cell, instMod *rtl.Module) error {
	d := w.mod.Design
	known := instMod != nil || d.KnownType(c.Type)
	for _, pn := range c.Ports() {
		sig := c.Port(pn)
		if sig.IsFullyConst() {
			continue
		}
		var pw *rtl.Wire
		if instMod != nil {
			pw = instMod.Wire(pn)
		}
		dir := d.PrimitivePort(c.Type, pn)
		isInput := (pw != nil && pw.PortInput) || !known ||
			dir == rtl.DirInput || dir == rtl.DirInout
		isOutput := (pw != nil && pw.PortOutput) || !known ||
			dir == rtl.DirOutput || dir == rtl.DirInout
		if !isInput && !isOutput {
			return errors.Errorf(
				"connection %q on cell %q (type %q) not recognised",
				pn, c.Name, c.Type)
		}
		if isInput {
			for _, b := range sig {
				if b.IsConst() {
					continue
				}
				if !b.Wire.PortOutput || !known {
					cn := w.sigmap.Apply(b)
					if cn != b {
						w.aliasMap[w.ref(b)] = w.ref(cn)
					}
					w.outputBits.Insert(w.ref(b))
					w.unused.Remove(w.ref(cn))
					if !known {
						w.keepBits.Insert(w.ref(cn))
					}
				}
			}
		}
		if isOutput {
			arrivalT := 0
			if pw != nil {
				if a, ok := pw.Attr(rtl.AttrArrival); ok {
					v, err := a.Int()
					if err != nil {
						return errors.Wrapf(err,
							"arrival attribute on port %q of module %q",
							pn, c.Type)
					}
					arrivalT = v
				}
			}
			for _, b := range sig {
				if b.IsConst() {
					continue
				}
				w.inputBits.Insert(w.ref(b))
				cn := w.sigmap.Apply(b)
				if cn != b {
					w.aliasMap[w.ref(cn)] = w.ref(b)
				}
				w.undriven.Remove(w.ref(cn))
				if arrivalT != 0 {
					w.arrival[w.ref(b)] = float32(arrivalT)
				}
			}
		}
	}
	return nil
}

// splitInout ensures no single storage bit carries both the input and
// output role.  A fresh synthetic wire takes over the output role,
// alias-bound to the original bit's combinational definition.
func (w *Writer) splitInout() {
	for _, rb := range w.sortedRefs(w.inputBits.Slice()) {
		if !w.outputBits.Contains(rb) {
			continue
		}
		b := w.in.bit(rb)
		if b.IsConst() {
			continue
		}
		cn := w.cref(b)
		wire := b.Wire
		if !((wire.PortInput && wire.PortOutput && !w.undriven.Contains(cn)) ||
			w.keepBits.Contains(cn)) {
			continue
		}
		name := "$" + wire.Name + "$inout.out"
		nw := w.mod.Wire(name)
		if nw == nil {
			nw = w.mod.AddWire(name, wire.Width)
		}
		nb := nw.Bit(b.Offset)
		nref := w.ref(nb)
		w.mod.Connect(rtl.Sig{nb}, rtl.Sig{b})
		if a, ok := w.notMap[rb]; ok {
			w.notMap[nref] = a
		} else if g, ok := w.andMap[rb]; ok {
			w.andMap[nref] = g
		} else if a, ok := w.aliasMap[rb]; ok {
			w.aliasMap[nref] = a
		} else {
			w.aliasMap[nref] = rb
		}
		w.outputBits.Remove(rb)
		w.outputBits.Insert(nref)
	}
}

// promoteUndriven turns bits without a producer into free
// non-deterministic primary inputs.
func (w *Writer) promoteUndriven() {
	for _, r := range w.unused.Slice() {
		w.undriven.Remove(r)
	}
	if w.undriven.Empty() || w.opts.Holes {
		return
	}
	refs := w.sortedRefs(w.undriven.Slice())
	for _, r := range refs {
		w.warnf("treating undriven bit %s.%s as a free input",
			w.mod.Name, w.in.bit(r))
		w.inputBits.Insert(r)
	}
	w.warnf("treating a total of %d undriven bits in %s as free inputs",
		len(refs), w.mod.Name)
}

// sortedRefs orders bit handles canonically: constants first, then by
// wire name and offset.  In holes mode, wire port ids take precedence.
func (w *Writer) sortedRefs(refs []bref) []bref {
	sort.Slice(refs, func(i, j int) bool {
		a, b := w.in.bit(refs[i]), w.in.bit(refs[j])
		if w.opts.Holes {
			pa, pb := 0, 0
			if a.Wire != nil {
				pa = a.Wire.PortID
			}
			if b.Wire != nil {
				pb = b.Wire.PortID
			}
			if pa != pb {
				return pa < pb
			}
		}
		return rtl.Compare(a, b) < 0
	})
	return refs
}

// number fixes the input order and assigns AIG variable numbers:
// constants first, then primary inputs, register state bits and box
// output bits.
func (w *Writer) number() {
	w.inputList = w.sortedRefs(w.inputBits.Slice())
	w.outputList = w.sortedRefs(w.outputBits.Slice())

	w.aigMap[w.ref(rtl.C(rtl.S0))] = z.F
	w.aigMap[w.ref(rtl.C(rtl.S1))] = z.T

	for _, r := range w.inputList {
		w.aigM++
		w.aigI++
		if _, ok := w.aigMap[r]; ok {
			panic(fmt.Sprintf("xaig: input bit %s already numbered", w.in.bit(r)))
		}
		w.aigMap[r] = z.Lit(2 * w.aigM)
	}
	for _, r := range w.ffOrder {
		w.aigM++
		w.aigI++
		if _, ok := w.aigMap[r]; ok {
			panic(fmt.Sprintf("xaig: register bit %s already numbered", w.in.bit(r)))
		}
		w.aigMap[r] = z.Lit(2 * w.aigM)
	}
	for _, cb := range w.ciBits {
		w.aigM++
		w.aigI++
		if _, ok := w.aigMap[cb.bit]; ok {
			// the box output drives a register data bit: the fresh
			// number stands for the box-produced next state
			w.ffAigMap[cb.bit] = z.Lit(2 * w.aigM)
			continue
		}
		w.aigMap[cb.bit] = z.Lit(2 * w.aigM)
	}
}

// buildOutputs assembles the ordered output list: box input bits in
// dependency order, then primary outputs, then register next-state
// functions.
func (w *Writer) buildOutputs() error {
	for i := range w.coBits {
		cb := &w.coBits[i]
		cb.order = w.aigO
		w.orderedOutputs[cb.bit] = w.aigO
		w.aigO++
		m, err := w.translate(cb.bit)
		if err != nil {
			return err
		}
		w.outputs = append(w.outputs, m)
	}
	if len(w.outputList) == 0 {
		w.outputList = []bref{w.ref(rtl.C(rtl.S0))}
		w.omode = true
	}
	for _, r := range w.outputList {
		w.orderedOutputs[r] = w.aigO
		w.aigO++
		m, err := w.translate(r)
		if err != nil {
			return err
		}
		w.outputs = append(w.outputs, m)
	}
	for _, r := range w.ffOrder {
		m, ok := w.ffAigMap[r]
		if !ok {
			return errors.Errorf(
				"register data bit %s is not driven by any box output",
				w.in.bit(r))
		}
		w.aigO++
		w.outputs = append(w.outputs, m)
	}
	return nil
}
