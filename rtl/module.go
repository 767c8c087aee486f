// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package rtl

import (
	"fmt"
	"sort"
	"strings"
)

// Wire is a named bundle of signal bits inside a module.
type Wire struct {
	Name       string
	Width      int
	PortInput  bool
	PortOutput bool
	PortID     int
	Keep       bool
	Attrs      map[string]Attr
}

// Public returns whether the wire carries an externally-visible name.
// Generated wires use a "$" prefix and are not public.
func (w *Wire) Public() bool {
	return !strings.HasPrefix(w.Name, "$")
}

// Bit returns the i'th bit of w.
func (w *Wire) Bit(i int) Bit {
	return Bit{Wire: w, Offset: i}
}

// Sig returns the full signal of w.
func (w *Wire) Sig() Sig {
	s := make(Sig, w.Width)
	for i := range s {
		s[i] = Bit{Wire: w, Offset: i}
	}
	return s
}

// Attr returns the named attribute of w.
func (w *Wire) Attr(key string) (Attr, bool) {
	a, ok := w.Attrs[key]
	return a, ok
}

// SetAttr sets the named attribute of w.
func (w *Wire) SetAttr(key string, a Attr) {
	if w.Attrs == nil {
		w.Attrs = make(map[string]Attr)
	}
	w.Attrs[key] = a
}

// Cell is a cell instance inside a module.
type Cell struct {
	Name   string
	Type   string
	Attrs  map[string]Attr
	Params map[string]Attr

	conns map[string]Sig
	order []string
}

// SetPort connects the named port of c to s, replacing any previous
// connection.
func (c *Cell) SetPort(port string, s Sig) {
	if c.conns == nil {
		c.conns = make(map[string]Sig)
	}
	if _, ok := c.conns[port]; !ok {
		c.order = append(c.order, port)
	}
	c.conns[port] = s
}

// Port returns the signal connected to the named port, or nil when the
// port is unconnected.
func (c *Cell) Port(port string) Sig {
	return c.conns[port]
}

// HasPort returns whether the named port is connected.
func (c *Cell) HasPort(port string) bool {
	_, ok := c.conns[port]
	return ok
}

// Ports returns the connected port names in connection order.
func (c *Cell) Ports() []string {
	return c.order
}

// Attr returns the named attribute of c.
func (c *Cell) Attr(key string) (Attr, bool) {
	a, ok := c.Attrs[key]
	return a, ok
}

// SetAttr sets the named attribute of c.
func (c *Cell) SetAttr(key string, a Attr) {
	if c.Attrs == nil {
		c.Attrs = make(map[string]Attr)
	}
	c.Attrs[key] = a
}

// DelAttr removes the named attribute of c.
func (c *Cell) DelAttr(key string) {
	delete(c.Attrs, key)
}

// SetParam sets the named parameter of c.
func (c *Cell) SetParam(key string, a Attr) {
	if c.Params == nil {
		c.Params = make(map[string]Attr)
	}
	c.Params[key] = a
}

// Conn is a bit-level alias connection: Dst carries the value of Src.
type Conn struct {
	Dst, Src Bit
}

// Module is a netlist module: wires, cell instances and alias
// connections.
type Module struct {
	Name   string
	Design *Design
	Attrs  map[string]Attr
	Ports  []string
	Conns  []Conn

	wires  map[string]*Wire
	wireL  []*Wire
	cells  map[string]*Cell
	cellL  []*Cell
	nextID int
}

// AddWire adds a wire with the given name and width.  It panics if the
// name is already taken.
func (m *Module) AddWire(name string, width int) *Wire {
	if _, ok := m.wires[name]; ok {
		panic(fmt.Sprintf("rtl: duplicate wire %q in module %q", name, m.Name))
	}
	w := &Wire{Name: name, Width: width}
	if m.wires == nil {
		m.wires = make(map[string]*Wire)
	}
	m.wires[name] = w
	m.wireL = append(m.wireL, w)
	return w
}

// NewWire adds an anonymous generated wire of the given width.
func (m *Module) NewWire(width int) *Wire {
	for {
		m.nextID++
		name := fmt.Sprintf("$%d", m.nextID)
		if _, ok := m.wires[name]; !ok {
			return m.AddWire(name, width)
		}
	}
}

// Wire returns the named wire, or nil.
func (m *Module) Wire(name string) *Wire {
	return m.wires[name]
}

// Wires returns all wires in creation order.
func (m *Module) Wires() []*Wire {
	return m.wireL
}

// AddCell adds a cell instance with the given name and type.  It panics
// if the name is already taken.
func (m *Module) AddCell(name, typ string) *Cell {
	if _, ok := m.cells[name]; ok {
		panic(fmt.Sprintf("rtl: duplicate cell %q in module %q", name, m.Name))
	}
	c := &Cell{Name: name, Type: typ}
	if m.cells == nil {
		m.cells = make(map[string]*Cell)
	}
	m.cells[name] = c
	m.cellL = append(m.cellL, c)
	return c
}

// Cell returns the named cell, or nil.
func (m *Module) Cell(name string) *Cell {
	return m.cells[name]
}

// Cells returns all cells in creation order.
func (m *Module) Cells() []*Cell {
	return m.cellL
}

// RemoveCell removes cell c from m.
func (m *Module) RemoveCell(c *Cell) {
	if m.cells[c.Name] != c {
		return
	}
	delete(m.cells, c.Name)
	for i, o := range m.cellL {
		if o == c {
			m.cellL = append(m.cellL[:i], m.cellL[i+1:]...)
			break
		}
	}
}

// Connect records bit-level alias connections making dst carry the
// value of src.  The signals must have equal length.
func (m *Module) Connect(dst, src Sig) {
	if len(dst) != len(src) {
		panic(fmt.Sprintf("rtl: connect length mismatch %d != %d in module %q",
			len(dst), len(src), m.Name))
	}
	for i := range dst {
		m.Conns = append(m.Conns, Conn{Dst: dst[i], Src: src[i]})
	}
}

// Attr returns the named attribute of m.
func (m *Module) Attr(key string) (Attr, bool) {
	a, ok := m.Attrs[key]
	return a, ok
}

// BoolAttr returns the named attribute of m decoded as a flag.
func (m *Module) BoolAttr(key string) bool {
	a, ok := m.Attrs[key]
	return ok && a.Bool()
}

// SetAttr sets the named attribute of m.
func (m *Module) SetAttr(key string, a Attr) {
	if m.Attrs == nil {
		m.Attrs = make(map[string]Attr)
	}
	m.Attrs[key] = a
}

// FixupPorts recomputes m.Ports from the wire port flags, sorted by
// name, and renumbers wire port ids starting at 1.
func (m *Module) FixupPorts() {
	m.Ports = m.Ports[:0]
	for _, w := range m.wireL {
		if w.PortInput || w.PortOutput {
			m.Ports = append(m.Ports, w.Name)
		} else {
			w.PortID = 0
		}
	}
	sort.Strings(m.Ports)
	for i, name := range m.Ports {
		m.wires[name].PortID = i + 1
	}
}
