// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package rtl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// PortDir is the direction of a cell port.
type PortDir uint8

const (
	DirUnknown PortDir = iota
	DirInput
	DirOutput
	DirInout
)

// Design is a set of modules plus a registry of primitive cell types
// with known port directions.
type Design struct {
	mods    map[string]*Module
	modL    []*Module
	prims   map[string]map[string]PortDir
	derived map[string]*Module
}

// NewDesign returns an empty design.
func NewDesign() *Design {
	return &Design{
		mods:    make(map[string]*Module),
		prims:   make(map[string]map[string]PortDir),
		derived: make(map[string]*Module),
	}
}

// AddModule adds an empty module with the given name.  It panics if the
// name is already taken.
func (d *Design) AddModule(name string) *Module {
	if _, ok := d.mods[name]; ok {
		panic(fmt.Sprintf("rtl: duplicate module %q", name))
	}
	m := &Module{Name: name, Design: d}
	d.mods[name] = m
	d.modL = append(d.modL, m)
	return m
}

// Module returns the named module, or nil.
func (d *Design) Module(name string) *Module {
	return d.mods[name]
}

// Modules returns all modules in creation order.
func (d *Design) Modules() []*Module {
	return d.modL
}

// RemoveModule removes the named module from the design.
func (d *Design) RemoveModule(name string) {
	m, ok := d.mods[name]
	if !ok {
		return
	}
	delete(d.mods, name)
	for i, o := range d.modL {
		if o == m {
			d.modL = append(d.modL[:i], d.modL[i+1:]...)
			break
		}
	}
}

// RegisterPrimitive declares a primitive cell type with the given port
// directions, used to classify connections of cells that have no module
// implementation.
func (d *Design) RegisterPrimitive(typ string, dirs map[string]PortDir) {
	d.prims[typ] = dirs
}

// PrimitivePort returns the registered direction of a primitive cell
// port, or DirUnknown.
func (d *Design) PrimitivePort(typ, port string) PortDir {
	return d.prims[typ][port]
}

// KnownType reports whether typ names a module or registered primitive.
func (d *Design) KnownType(typ string) bool {
	if _, ok := d.mods[typ]; ok {
		return true
	}
	_, ok := d.prims[typ]
	return ok
}

// Derive returns the implementation module for cell type typ,
// specialized for the given parameter values.  With no parameters the
// base module is returned directly; otherwise a specialized copy is
// created once per distinct parameter binding and cached.
func (d *Design) Derive(typ string, params map[string]Attr) (*Module, error) {
	base, ok := d.mods[typ]
	if !ok {
		return nil, errors.Errorf("module %q not found in design", typ)
	}
	if len(params) == 0 {
		return base, nil
	}
	key := typ + "$" + paramKey(params)
	if m, ok := d.derived[key]; ok {
		return m, nil
	}
	m := d.cloneModule(base, key)
	for k, v := range params {
		m.SetAttr("param:"+k, v)
	}
	d.derived[key] = m
	return m, nil
}

func paramKey(params map[string]Attr) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		a := params[k]
		sb.WriteString(k)
		sb.WriteByte('=')
		if a.IsStr {
			sb.WriteString(a.Str)
		} else {
			for i := len(a.Bits) - 1; i >= 0; i-- {
				sb.WriteString(a.Bits[i].String())
			}
		}
		sb.WriteByte(';')
	}
	return sb.String()
}

// cloneModule deep-copies src under a new name.  The copy belongs to d
// but is not registered in the module table; derived modules are
// reachable through Derive only.
func (d *Design) cloneModule(src *Module, name string) *Module {
	m := &Module{Name: name, Design: d}
	wmap := make(map[*Wire]*Wire, len(src.wireL))
	for _, w := range src.wireL {
		nw := m.AddWire(w.Name, w.Width)
		nw.PortInput = w.PortInput
		nw.PortOutput = w.PortOutput
		nw.PortID = w.PortID
		nw.Keep = w.Keep
		for k, v := range w.Attrs {
			nw.SetAttr(k, v)
		}
		wmap[w] = nw
	}
	resig := func(s Sig) Sig {
		ns := make(Sig, len(s))
		for i, b := range s {
			if b.IsConst() {
				ns[i] = b
				continue
			}
			ns[i] = Bit{Wire: wmap[b.Wire], Offset: b.Offset}
		}
		return ns
	}
	for _, c := range src.cellL {
		nc := m.AddCell(c.Name, c.Type)
		for k, v := range c.Attrs {
			nc.SetAttr(k, v)
		}
		for k, v := range c.Params {
			nc.SetParam(k, v)
		}
		for _, p := range c.order {
			nc.SetPort(p, resig(c.conns[p]))
		}
	}
	for _, cn := range src.Conns {
		m.Connect(resig(Sig{cn.Dst}), resig(Sig{cn.Src}))
	}
	for k, v := range src.Attrs {
		m.SetAttr(k, v)
	}
	m.Ports = append(m.Ports, src.Ports...)
	return m
}
