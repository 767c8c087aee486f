// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package rtl

import "testing"

func boxModule(d *Design) *Module {
	m := d.AddModule("box")
	a := m.AddWire("A", 2)
	a.PortInput = true
	y := m.AddWire("Y", 1)
	y.PortOutput = true
	c := m.AddCell("g", "$and")
	c.SetPort("A", Sig{a.Bit(0)})
	c.SetPort("B", Sig{a.Bit(1)})
	c.SetPort("Y", Sig{y.Bit(0)})
	m.FixupPorts()
	return m
}

func TestDeriveBase(t *testing.T) {
	d := NewDesign()
	m := boxModule(d)
	got, err := d.Derive("box", nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if got != m {
		t.Fatal("parameterless derivation must return the base module")
	}
	if _, err := d.Derive("nope", nil); err == nil {
		t.Fatal("unknown type must fail")
	}
}

func TestDeriveSpecializes(t *testing.T) {
	d := NewDesign()
	m := boxModule(d)
	params := map[string]Attr{"WIDTH": IntAttr(2)}
	d1, err := d.Derive("box", params)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if d1 == m {
		t.Fatal("parameterized derivation must copy")
	}
	d2, err := d.Derive("box", map[string]Attr{"WIDTH": IntAttr(2)})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if d1 != d2 {
		t.Fatal("equal parameter bindings must share one derivation")
	}
	// the copy is deep: same shape, distinct storage
	if d1.Wire("A") == m.Wire("A") {
		t.Fatal("derived module shares wires with base")
	}
	if len(d1.Cells()) != 1 || d1.Cells()[0].Type != "$and" {
		t.Fatal("derived module lost its cells")
	}
	if len(d1.Ports) != 2 || d1.Wire("A").PortID != m.Wire("A").PortID {
		t.Fatal("derived module lost port layout")
	}
}

func TestFixupPorts(t *testing.T) {
	d := NewDesign()
	m := d.AddModule("m")
	b := m.AddWire("b", 1)
	b.PortOutput = true
	a := m.AddWire("a", 1)
	a.PortInput = true
	m.AddWire("x", 1)
	m.FixupPorts()
	if len(m.Ports) != 2 || m.Ports[0] != "a" || m.Ports[1] != "b" {
		t.Fatalf("got ports %v", m.Ports)
	}
	if a.PortID != 1 || b.PortID != 2 {
		t.Fatalf("got port ids %d, %d", a.PortID, b.PortID)
	}
}

func TestPrimitives(t *testing.T) {
	d := NewDesign()
	d.RegisterPrimitive("$mux", map[string]PortDir{
		"A": DirInput, "B": DirInput, "S": DirInput, "Y": DirOutput,
	})
	if !d.KnownType("$mux") || d.KnownType("$nope") {
		t.Fatal("KnownType broken")
	}
	if d.PrimitivePort("$mux", "Y") != DirOutput {
		t.Fatal("PrimitivePort broken")
	}
	if d.PrimitivePort("$mux", "Z") != DirUnknown {
		t.Fatal("unknown port must be DirUnknown")
	}
}
