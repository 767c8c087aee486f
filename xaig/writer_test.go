// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package xaig

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/go-air/xaig/rtl"
	"github.com/go-air/xaig/z"
)

func quiet() Options {
	return Options{Log: log.New(io.Discard, "", 0)}
}

func encodeRead(t *testing.T, m *rtl.Module, opts Options) (*Writer, *File) {
	t.Helper()
	w, err := NewWriter(m, opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	var buf bytes.Buffer
	if err := w.WriteBinary(&buf); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}
	f, err := ReadBinary(&buf)
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}
	if f.MaxVar != f.NumInputs+f.NumLatches+f.NumAnds {
		t.Fatalf("header: M=%d != I+L+A=%d", f.MaxVar,
			f.NumInputs+f.NumLatches+f.NumAnds)
	}
	if f.NumLatches != 0 {
		t.Fatalf("header: L=%d, want 0", f.NumLatches)
	}
	return w, f
}

// combTop builds y = a & !b.
func combTop() *rtl.Module {
	d := rtl.NewDesign()
	m := d.AddModule("top")
	a := m.AddWire("a", 1)
	a.PortInput = true
	b := m.AddWire("b", 1)
	b.PortInput = true
	nb := m.AddWire("nb", 1)
	y := m.AddWire("y", 1)
	y.PortOutput = true
	n1 := m.AddCell("n1", TypeNot)
	n1.SetPort("A", rtl.Sig{b.Bit(0)})
	n1.SetPort("Y", rtl.Sig{nb.Bit(0)})
	g1 := m.AddCell("g1", TypeAnd)
	g1.SetPort("A", rtl.Sig{a.Bit(0)})
	g1.SetPort("B", rtl.Sig{nb.Bit(0)})
	g1.SetPort("Y", rtl.Sig{y.Bit(0)})
	return m
}

func TestCombLowering(t *testing.T) {
	_, f := encodeRead(t, combTop(), quiet())
	if f.NumInputs != 2 || f.NumOutputs != 1 || f.NumAnds != 1 {
		t.Fatalf("got I=%d O=%d A=%d", f.NumInputs, f.NumOutputs, f.NumAnds)
	}
	for _, tc := range []struct {
		a, b, y bool
	}{
		{false, false, false},
		{true, false, true},
		{false, true, false},
		{true, true, false},
	} {
		outs, err := f.Eval([]bool{tc.a, tc.b})
		if err != nil {
			t.Fatalf("Eval: %v", err)
		}
		if outs[0] != tc.y {
			t.Errorf("a=%v b=%v: got %v, want %v", tc.a, tc.b, outs[0], tc.y)
		}
	}
}

func TestStrashSharesGates(t *testing.T) {
	d := rtl.NewDesign()
	m := d.AddModule("top")
	a := m.AddWire("a", 1)
	a.PortInput = true
	b := m.AddWire("b", 1)
	b.PortInput = true
	y1 := m.AddWire("y1", 1)
	y1.PortOutput = true
	y2 := m.AddWire("y2", 1)
	y2.PortOutput = true
	for i, y := range []*rtl.Wire{y1, y2} {
		g := m.AddCell([]string{"g1", "g2"}[i], TypeAnd)
		g.SetPort("A", rtl.Sig{a.Bit(0)})
		g.SetPort("B", rtl.Sig{b.Bit(0)})
		g.SetPort("Y", rtl.Sig{y.Bit(0)})
	}
	_, f := encodeRead(t, m, quiet())
	if f.NumAnds != 1 {
		t.Fatalf("got A=%d, want 1 shared gate", f.NumAnds)
	}
	if f.Outputs[0] != f.Outputs[1] {
		t.Fatalf("outputs %v differ", f.Outputs)
	}
}

func TestNoOutputsWritesDummy(t *testing.T) {
	d := rtl.NewDesign()
	m := d.AddModule("top")
	a := m.AddWire("a", 1)
	a.PortInput = true
	w, f := encodeRead(t, m, quiet())
	if !w.omode {
		t.Fatal("expected dummy output mode")
	}
	if f.NumOutputs != 1 || f.Outputs[0] != z.F {
		t.Fatalf("got O=%d outputs=%v", f.NumOutputs, f.Outputs)
	}
}

func TestSkipDontCareOutput(t *testing.T) {
	d := rtl.NewDesign()
	m := d.AddModule("top")
	y := m.AddWire("y", 1)
	y.PortOutput = true
	m.Connect(rtl.Sig{y.Bit(0)}, rtl.Sig{rtl.C(rtl.Sz)})
	w, f := encodeRead(t, m, quiet())
	if !w.omode {
		t.Fatal("don't-care output should be skipped")
	}
	if f.NumOutputs != 1 || f.Outputs[0] != z.F {
		t.Fatalf("got O=%d outputs=%v", f.NumOutputs, f.Outputs)
	}
}

func TestUndrivenBecomesInput(t *testing.T) {
	d := rtl.NewDesign()
	m := d.AddModule("top")
	u := m.AddWire("u", 1)
	y := m.AddWire("y", 1)
	y.PortOutput = true
	n1 := m.AddCell("n1", TypeNot)
	n1.SetPort("A", rtl.Sig{u.Bit(0)})
	n1.SetPort("Y", rtl.Sig{y.Bit(0)})

	var logged bytes.Buffer
	_, f := encodeRead(t, m, Options{Log: log.New(&logged, "", 0)})
	if f.NumInputs != 1 {
		t.Fatalf("got I=%d, want undriven bit promoted", f.NumInputs)
	}
	if !strings.Contains(logged.String(), "undriven") {
		t.Fatalf("missing warning, log: %q", logged.String())
	}
	outs, err := f.Eval([]bool{true})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if outs[0] != false {
		t.Fatal("y should invert the promoted input")
	}
}

func TestCycleIsFatal(t *testing.T) {
	d := rtl.NewDesign()
	m := d.AddModule("top")
	x := m.AddWire("x", 1)
	y := m.AddWire("y", 1)
	n1 := m.AddCell("n1", TypeNot)
	n1.SetPort("A", rtl.Sig{x.Bit(0)})
	n1.SetPort("Y", rtl.Sig{y.Bit(0)})
	n2 := m.AddCell("n2", TypeNot)
	n2.SetPort("A", rtl.Sig{y.Bit(0)})
	n2.SetPort("Y", rtl.Sig{x.Bit(0)})
	_, err := NewWriter(m, quiet())
	if err == nil || !strings.Contains(err.Error(), "dependency cycle") {
		t.Fatalf("got %v, want dependency cycle error", err)
	}
}

func TestInoutSplit(t *testing.T) {
	d := rtl.NewDesign()
	m := d.AddModule("top")
	a := m.AddWire("a", 1)
	a.PortInput = true
	io1 := m.AddWire("io", 1)
	io1.PortInput = true
	io1.PortOutput = true
	n1 := m.AddCell("n1", TypeNot)
	n1.SetPort("A", rtl.Sig{a.Bit(0)})
	n1.SetPort("Y", rtl.Sig{io1.Bit(0)})

	_, f := encodeRead(t, m, quiet())
	// the inout bit stays an input; its output role moves to a fresh
	// wire carrying the inverter's function
	if f.NumInputs != 2 {
		t.Fatalf("got I=%d, want 2", f.NumInputs)
	}
	if f.NumOutputs != 1 || f.Outputs[0] != z.Var(1).Neg() {
		t.Fatalf("got outputs %v, want [%v]", f.Outputs, z.Var(1).Neg())
	}
	if m.Wire("$io$inout.out") == nil {
		t.Fatal("missing split wire")
	}
}

// nandBox adds a whitebox "nand2" module to d.
func nandBox(d *rtl.Design, boxID int) {
	nb := d.AddModule("nand2")
	na := nb.AddWire("A", 1)
	na.PortInput = true
	nbw := nb.AddWire("B", 1)
	nbw.PortInput = true
	ny := nb.AddWire("Y", 1)
	ny.PortOutput = true
	nt := nb.AddWire("t", 1)
	g := nb.AddCell("g", TypeAnd)
	g.SetPort("A", rtl.Sig{na.Bit(0)})
	g.SetPort("B", rtl.Sig{nbw.Bit(0)})
	g.SetPort("Y", rtl.Sig{nt.Bit(0)})
	n := nb.AddCell("n", TypeNot)
	n.SetPort("A", rtl.Sig{nt.Bit(0)})
	n.SetPort("Y", rtl.Sig{ny.Bit(0)})
	nb.SetAttr(rtl.AttrBoxID, rtl.IntAttr(boxID))
	nb.SetAttr(rtl.AttrWhitebox, rtl.IntAttr(1))
	nb.FixupPorts()
}

func TestBoxLowering(t *testing.T) {
	d := rtl.NewDesign()
	nandBox(d, 2)
	m := d.AddModule("top")
	a := m.AddWire("a", 1)
	a.PortInput = true
	b := m.AddWire("b", 1)
	b.PortInput = true
	y := m.AddWire("y", 1)
	y.PortOutput = true
	u1 := m.AddCell("u1", "nand2")
	u1.SetPort("A", rtl.Sig{a.Bit(0)})
	u1.SetPort("B", rtl.Sig{b.Bit(0)})
	u1.SetPort("Y", rtl.Sig{y.Bit(0)})

	_, f := encodeRead(t, m, quiet())
	// the box output is an input of the outer graph
	if f.NumInputs != 3 || f.NumAnds != 0 {
		t.Fatalf("got I=%d A=%d", f.NumInputs, f.NumAnds)
	}
	if f.Ext.BoxNum != 1 || len(f.Boxes) != 1 {
		t.Fatalf("got box header %+v", f.Ext)
	}
	bi := f.Boxes[0]
	if bi.Inputs != 2 || bi.Outputs != 1 || bi.ID != 2 || bi.Seq != 0 {
		t.Fatalf("got box info %+v", bi)
	}
	if f.Ext.CINum != 3 || f.Ext.CONum != 3 || f.Ext.PINum != 2 || f.Ext.PONum != 1 {
		t.Fatalf("got counts %+v", f.Ext)
	}
	if f.Holes == nil {
		t.Fatal("missing nested box circuit")
	}
	h := f.Holes
	if h.NumInputs != 2 || h.NumOutputs != 1 || h.NumAnds != 1 {
		t.Fatalf("holes: I=%d O=%d A=%d", h.NumInputs, h.NumOutputs, h.NumAnds)
	}
	for _, tc := range []struct {
		a, b bool
	}{{false, false}, {true, false}, {false, true}, {true, true}} {
		outs, err := h.Eval([]bool{tc.a, tc.b})
		if err != nil {
			t.Fatalf("holes Eval: %v", err)
		}
		if outs[0] != !(tc.a && tc.b) {
			t.Errorf("holes(%v,%v) = %v, want nand", tc.a, tc.b, outs[0])
		}
	}
	// the temporary module must not survive serialization
	if d.Module(HolesName) != nil {
		t.Fatal("holes module left in design")
	}
}

func TestDuplicateBoxesShareCircuit(t *testing.T) {
	d := rtl.NewDesign()
	nandBox(d, 2)
	m := d.AddModule("top")
	a := m.AddWire("a", 1)
	a.PortInput = true
	b := m.AddWire("b", 1)
	b.PortInput = true
	y1 := m.AddWire("y1", 1)
	y1.PortOutput = true
	y2 := m.AddWire("y2", 1)
	y2.PortOutput = true
	for i, y := range []*rtl.Wire{y1, y2} {
		u := m.AddCell([]string{"u1", "u2"}[i], "nand2")
		u.SetPort("A", rtl.Sig{a.Bit(0)})
		u.SetPort("B", rtl.Sig{b.Bit(0)})
		u.SetPort("Y", rtl.Sig{y.Bit(0)})
	}
	_, f := encodeRead(t, m, quiet())
	if len(f.Boxes) != 2 || f.Boxes[1].Seq != 1 {
		t.Fatalf("got boxes %+v", f.Boxes)
	}
	h := f.Holes
	if h == nil || h.NumOutputs != 2 || h.NumAnds != 1 {
		t.Fatalf("holes: %+v", h)
	}
	if h.Outputs[0] != h.Outputs[1] {
		t.Fatalf("duplicate instances should alias, got %v", h.Outputs)
	}
}

func TestRegisterFlow(t *testing.T) {
	d := rtl.NewDesign()
	fb := d.AddModule("dff_box")
	fbD := fb.AddWire("D", 1)
	fbD.PortInput = true
	fbQ := fb.AddWire("Q", 1)
	fbQ.PortOutput = true
	fbQ.SetAttr(rtl.AttrArrival, rtl.IntAttr(3))
	ff := fb.AddCell("ff", TypeDFF)
	ff.SetPort("D", rtl.Sig{fbD.Bit(0)})
	ff.SetPort("Q", rtl.Sig{fbQ.Bit(0)})
	fb.SetAttr(rtl.AttrBoxID, rtl.IntAttr(1))
	fb.SetAttr(rtl.AttrWhitebox, rtl.IntAttr(1))
	fb.SetAttr(rtl.AttrFlop, rtl.IntAttr(1))
	fb.FixupPorts()

	m := d.AddModule("top")
	din := m.AddWire("din", 1)
	din.PortInput = true
	q := m.AddWire("q", 1)
	q.PortOutput = true
	dnext := m.AddWire("dnext", 1)
	dnext.SetAttr(rtl.AttrInit, rtl.BitsAttr(rtl.S1))
	st := m.AddWire("f1"+StateSuffix, 1)
	m.Connect(rtl.Sig{st.Bit(0)}, rtl.Sig{q.Bit(0)})
	fc := m.AddCell("f1", "dff_box")
	fc.SetPort("D", rtl.Sig{din.Bit(0)})
	fc.SetPort("Q", rtl.Sig{dnext.Bit(0)})
	fc.SetAttr(rtl.AttrMergeability, rtl.IntAttr(1))
	r1 := m.AddCell("r1", TypeFF)
	r1.SetPort("D", rtl.Sig{dnext.Bit(0)})
	r1.SetPort("Q", rtl.Sig{q.Bit(0)})

	_, f := encodeRead(t, m, quiet())
	// din + register state + box output
	if f.NumInputs != 3 {
		t.Fatalf("got I=%d, want 3", f.NumInputs)
	}
	// box D + box state + PO + register next-state
	if f.NumOutputs != 4 {
		t.Fatalf("got O=%d, want 4", f.NumOutputs)
	}
	if f.Ext.PINum != 2 || f.Ext.PONum != 2 || f.Ext.CINum != 3 || f.Ext.CONum != 4 {
		t.Fatalf("got counts %+v", f.Ext)
	}
	bi := f.Boxes[0]
	if bi.Inputs != 2 || bi.Outputs != 1 || bi.ID != 1 {
		t.Fatalf("got box info %+v", bi)
	}
	if len(f.Regs) != 1 {
		t.Fatalf("got %d registers", len(f.Regs))
	}
	reg := f.Regs[0]
	if reg.MergeClass != 1 || reg.Arrival != 3 || !reg.InitOne {
		t.Fatalf("got register %+v", reg)
	}
	if len(f.InArrivals) != 1 || f.InArrivals[0] != 0 {
		t.Fatalf("got arrivals %v", f.InArrivals)
	}
	// the register's current state feeds both the state capture
	// output and the primary output; the next state is the box output
	outs, err := f.Eval([]bool{true, false, true})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	want := []bool{true, false, false, true}
	for i := range want {
		if outs[i] != want[i] {
			t.Fatalf("got outputs %v, want %v", outs, want)
		}
	}
	// the flop box reduces to next-state = D
	h := f.Holes
	if h == nil || h.NumInputs != 2 || h.NumAnds != 0 {
		t.Fatalf("holes: %+v", h)
	}
	houts, err := h.Eval([]bool{true, false})
	if err != nil {
		t.Fatalf("holes Eval: %v", err)
	}
	if houts[0] != true {
		t.Fatal("flop box should expose its data input")
	}
}

func TestMissingMergeabilityIsFatal(t *testing.T) {
	d := rtl.NewDesign()
	fb := d.AddModule("dff_box")
	fbD := fb.AddWire("D", 1)
	fbD.PortInput = true
	fbQ := fb.AddWire("Q", 1)
	fbQ.PortOutput = true
	ff := fb.AddCell("ff", TypeDFF)
	ff.SetPort("D", rtl.Sig{fbD.Bit(0)})
	ff.SetPort("Q", rtl.Sig{fbQ.Bit(0)})
	fb.SetAttr(rtl.AttrBoxID, rtl.IntAttr(1))
	fb.SetAttr(rtl.AttrWhitebox, rtl.IntAttr(1))
	fb.SetAttr(rtl.AttrFlop, rtl.IntAttr(1))
	fb.FixupPorts()

	m := d.AddModule("top")
	din := m.AddWire("din", 1)
	din.PortInput = true
	q := m.AddWire("q", 1)
	q.PortOutput = true
	dnext := m.AddWire("dnext", 1)
	st := m.AddWire("f1"+StateSuffix, 1)
	m.Connect(rtl.Sig{st.Bit(0)}, rtl.Sig{q.Bit(0)})
	fc := m.AddCell("f1", "dff_box")
	fc.SetPort("D", rtl.Sig{din.Bit(0)})
	fc.SetPort("Q", rtl.Sig{dnext.Bit(0)})
	r1 := m.AddCell("r1", TypeFF)
	r1.SetPort("D", rtl.Sig{dnext.Bit(0)})
	r1.SetPort("Q", rtl.Sig{q.Bit(0)})

	_, err := NewWriter(m, quiet())
	if err == nil || !strings.Contains(err.Error(), "mergeability") {
		t.Fatalf("got %v, want mergeability error", err)
	}
}

func TestWhiteboxUnsupportedContentIsFatal(t *testing.T) {
	d := rtl.NewDesign()
	bb := d.AddModule("badbox")
	ba := bb.AddWire("A", 1)
	ba.PortInput = true
	by := bb.AddWire("Y", 1)
	by.PortOutput = true
	g := bb.AddCell("g", "$or")
	g.SetPort("A", rtl.Sig{ba.Bit(0)})
	g.SetPort("Y", rtl.Sig{by.Bit(0)})
	bb.SetAttr(rtl.AttrBoxID, rtl.IntAttr(3))
	bb.SetAttr(rtl.AttrWhitebox, rtl.IntAttr(1))
	bb.FixupPorts()

	m := d.AddModule("top")
	a := m.AddWire("a", 1)
	a.PortInput = true
	y := m.AddWire("y", 1)
	y.PortOutput = true
	u := m.AddCell("u1", "badbox")
	u.SetPort("A", rtl.Sig{a.Bit(0)})
	u.SetPort("Y", rtl.Sig{y.Bit(0)})

	w, err := NewWriter(m, quiet())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	var buf bytes.Buffer
	err = w.WriteBinary(&buf)
	if err == nil || !strings.Contains(err.Error(), "cannot be represented as AIG") {
		t.Fatalf("got %v, want unsupported whitebox content error", err)
	}
}

func TestStringArrivalIsFatal(t *testing.T) {
	d := rtl.NewDesign()
	bb := d.AddModule("bbox")
	ba := bb.AddWire("A", 1)
	ba.PortInput = true
	by := bb.AddWire("Y", 1)
	by.PortOutput = true
	by.SetAttr(rtl.AttrArrival, rtl.StrAttr("fast"))
	bb.FixupPorts()

	m := d.AddModule("top")
	a := m.AddWire("a", 1)
	a.PortInput = true
	y := m.AddWire("y", 1)
	y.PortOutput = true
	u := m.AddCell("u1", "bbox")
	u.SetPort("A", rtl.Sig{a.Bit(0)})
	u.SetPort("Y", rtl.Sig{y.Bit(0)})

	_, err := NewWriter(m, quiet())
	if err == nil || !strings.Contains(err.Error(), "not an integer") {
		t.Fatalf("got %v, want non-integer arrival error", err)
	}
}

func TestBoxOutputArrivalNotSerialized(t *testing.T) {
	d := rtl.NewDesign()
	nandBox(d, 2)
	d.Module("nand2").Wire("Y").SetAttr(rtl.AttrArrival, rtl.IntAttr(5))
	m := d.AddModule("top")
	a := m.AddWire("a", 1)
	a.PortInput = true
	b := m.AddWire("b", 1)
	b.PortInput = true
	y := m.AddWire("y", 1)
	y.PortOutput = true
	u1 := m.AddCell("u1", "nand2")
	u1.SetPort("A", rtl.Sig{a.Bit(0)})
	u1.SetPort("B", rtl.Sig{b.Bit(0)})
	u1.SetPort("Y", rtl.Sig{y.Bit(0)})

	_, f := encodeRead(t, m, quiet())
	// arrival times serialize for primary inputs only; timing on a box
	// output port never reaches the arrival section
	if len(f.InArrivals) != 2 {
		t.Fatalf("got %d arrival entries, want one per primary input", len(f.InArrivals))
	}
	for i, v := range f.InArrivals {
		if v != 0 {
			t.Fatalf("input %d carries arrival %v from a box output port", i, v)
		}
	}
}

func TestUnsupportedCellBecomesCut(t *testing.T) {
	d := rtl.NewDesign()
	m := d.AddModule("top")
	a := m.AddWire("a", 1)
	a.PortInput = true
	y := m.AddWire("y", 1)
	y.PortOutput = true
	u := m.AddCell("u1", "mystery")
	u.SetPort("I", rtl.Sig{a.Bit(0)})
	u.SetPort("O", rtl.Sig{y.Bit(0)})

	_, f := encodeRead(t, m, quiet())
	// both sides of the unknown cell become pseudo ports: its input
	// pin is an extra PO, its output pin an extra PI
	if f.NumInputs != 2 {
		t.Fatalf("got I=%d, want 2", f.NumInputs)
	}
	if f.NumOutputs != 2 {
		t.Fatalf("got O=%d, want 2", f.NumOutputs)
	}
}

func TestDeterministicEncoding(t *testing.T) {
	enc := func() []byte {
		w, err := NewWriter(combTop(), quiet())
		if err != nil {
			t.Fatalf("NewWriter: %v", err)
		}
		var buf bytes.Buffer
		if err := w.WriteBinary(&buf); err != nil {
			t.Fatalf("WriteBinary: %v", err)
		}
		return buf.Bytes()
	}
	if !bytes.Equal(enc(), enc()) {
		t.Fatal("encoding is not deterministic")
	}
}

func TestCommentTrailer(t *testing.T) {
	_, f := encodeRead(t, combTop(), quiet())
	if !strings.HasPrefix(f.Comment, "Generated by xaig "+Version) {
		t.Fatalf("got comment %q", f.Comment)
	}
}
