// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package xaig

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/go-air/xaig/z"
)

// Errors related to IO and formatting.
var (
	PrematureEOF     = errors.New("premature EOF")
	BadHeader        = errors.New("bad header")
	BadUInt          = errors.New("malformed number")
	BadDeltaEncoding = errors.New("bad delta encoding")
	LitOOB           = errors.New("literal out of bounds")
	BadSection       = errors.New("truncated extension section")
	SignedAnd        = errors.New("and gate definition is negated")
)

// Header is the decoded extension header section.
type Header struct {
	Version uint32
	CINum   uint32
	CONum   uint32
	PINum   uint32
	PONum   uint32
	BoxNum  uint32
}

// BoxInfo is one box entry of the extension header.
type BoxInfo struct {
	Inputs  uint32
	Outputs uint32
	ID      uint32
	Seq     uint32
}

// RegInfo is one register entry, combining the metadata and initial
// value sections.
type RegInfo struct {
	MergeClass uint32
	Arrival    float32
	InitOne    bool
}

// File is a decoded extended AIGER file.
type File struct {
	MaxVar     int
	NumInputs  int
	NumLatches int
	NumOutputs int
	NumAnds    int

	Outputs []z.Lit
	Gates   [][2]z.Lit // gate i defines variable NumInputs+NumLatches+i+1

	Ext        Header
	Boxes      []BoxInfo
	Regs       []RegInfo
	InArrivals []float32
	Holes      *File
	Comment    string
}

// ReadBinary decodes a binary extended AIGER stream.
func ReadBinary(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)
	f := &File{}
	if err := f.readHeader(br); err != nil {
		return nil, err
	}
	if f.MaxVar < f.NumInputs+f.NumLatches+f.NumAnds {
		return nil, BadHeader
	}
	for i := 0; i < f.NumLatches; i++ {
		if _, err := readLine(br); err != nil {
			return nil, err
		}
	}
	for i := 0; i < f.NumOutputs; i++ {
		line, err := readLine(br)
		if err != nil {
			return nil, err
		}
		v, err := parseUint(line)
		if err != nil {
			return nil, err
		}
		if v > 2*uint(f.MaxVar)+1 {
			return nil, LitOOB
		}
		f.Outputs = append(f.Outputs, z.Lit(v))
	}
	for i := 0; i < f.NumAnds; i++ {
		lhs := 2 * (f.NumInputs + f.NumLatches + i + 1)
		d0, err := read7(br)
		if err != nil {
			return nil, err
		}
		d1, err := read7(br)
		if err != nil {
			return nil, err
		}
		if d0 == 0 || d0 > uint(lhs) {
			return nil, BadDeltaEncoding
		}
		rhs0 := uint(lhs) - d0
		if d1 > rhs0 {
			return nil, BadDeltaEncoding
		}
		rhs1 := rhs0 - d1
		f.Gates = append(f.Gates, [2]z.Lit{z.Lit(rhs0), z.Lit(rhs1)})
	}
	if err := f.readSections(br); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) readHeader(br *bufio.Reader) error {
	line, err := readLine(br)
	if err != nil {
		return err
	}
	var format string
	n, err := fmt.Sscanf(string(line), "%s %d %d %d %d %d", &format,
		&f.MaxVar, &f.NumInputs, &f.NumLatches, &f.NumOutputs, &f.NumAnds)
	if err != nil || n != 6 || format != "aig" {
		return BadHeader
	}
	return nil
}

// readSections decodes the tagged extension sections following the
// body.  The first byte that is not a known tag starts the trailing
// comment.
func (f *File) readSections(br *bufio.Reader) error {
	c, err := br.ReadByte()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	if c != 'c' {
		return errors.Wrapf(BadSection, "expected comment marker, got %q", c)
	}
	for {
		tag, err := br.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch tag {
		case 'h', 'r', 's', 'a', 'i':
			payload, err := readSection(br)
			if err != nil {
				return errors.Wrapf(err, "section %q", tag)
			}
			if err := f.decodeSection(tag, payload); err != nil {
				return errors.Wrapf(err, "section %q", tag)
			}
		default:
			rest, err := io.ReadAll(br)
			if err != nil {
				return err
			}
			f.Comment = string(tag) + string(rest)
			return nil
		}
	}
}

func readSection(br *bufio.Reader) ([]byte, error) {
	var n [4]byte
	if _, err := io.ReadFull(br, n[:]); err != nil {
		return nil, BadSection
	}
	payload := make([]byte, binary.BigEndian.Uint32(n[:]))
	if _, err := io.ReadFull(br, payload); err != nil {
		return nil, BadSection
	}
	return payload, nil
}

func (f *File) decodeSection(tag byte, payload []byte) error {
	switch tag {
	case 'h':
		if len(payload) < 24 || (len(payload)-24)%16 != 0 {
			return BadSection
		}
		f.Ext.Version = binary.BigEndian.Uint32(payload[0:])
		f.Ext.CINum = binary.BigEndian.Uint32(payload[4:])
		f.Ext.CONum = binary.BigEndian.Uint32(payload[8:])
		f.Ext.PINum = binary.BigEndian.Uint32(payload[12:])
		f.Ext.PONum = binary.BigEndian.Uint32(payload[16:])
		f.Ext.BoxNum = binary.BigEndian.Uint32(payload[20:])
		p := payload[24:]
		for len(p) > 0 {
			f.Boxes = append(f.Boxes, BoxInfo{
				Inputs:  binary.BigEndian.Uint32(p[0:]),
				Outputs: binary.BigEndian.Uint32(p[4:]),
				ID:      binary.BigEndian.Uint32(p[8:]),
				Seq:     binary.BigEndian.Uint32(p[12:]),
			})
			p = p[16:]
		}
		if uint32(len(f.Boxes)) != f.Ext.BoxNum {
			return BadSection
		}
	case 'r':
		if len(payload) < 4 {
			return BadSection
		}
		n := binary.BigEndian.Uint32(payload)
		if uint32(len(payload)) != 4+8*n {
			return BadSection
		}
		f.Regs = make([]RegInfo, n)
		p := payload[4:]
		for i := range f.Regs {
			f.Regs[i].MergeClass = binary.BigEndian.Uint32(p[0:])
			f.Regs[i].Arrival = math.Float32frombits(binary.BigEndian.Uint32(p[4:]))
			p = p[8:]
		}
	case 's':
		if len(payload) < 4 {
			return BadSection
		}
		n := binary.BigEndian.Uint32(payload)
		if uint32(len(payload)) != 4+n || int(n) != len(f.Regs) {
			return BadSection
		}
		for i := range f.Regs {
			f.Regs[i].InitOne = payload[4+i] == 1
		}
	case 'a':
		hf, err := ReadBinary(bytes.NewReader(payload))
		if err != nil {
			return err
		}
		f.Holes = hf
	case 'i':
		if len(payload)%4 != 0 {
			return BadSection
		}
		f.InArrivals = make([]float32, len(payload)/4)
		for i := range f.InArrivals {
			f.InArrivals[i] = math.Float32frombits(
				binary.BigEndian.Uint32(payload[4*i:]))
		}
	}
	return nil
}

// Eval computes the output values for the given input assignment.
func (f *File) Eval(inputs []bool) ([]bool, error) {
	if len(inputs) != f.NumInputs {
		return nil, errors.Errorf("got %d inputs, want %d", len(inputs), f.NumInputs)
	}
	vals := make([]bool, f.MaxVar+1)
	for i, v := range inputs {
		vals[i+1] = v
	}
	evalLit := func(m z.Lit) (bool, error) {
		if int(m.Var()) > f.MaxVar {
			return false, LitOOB
		}
		v := vals[m.Var()]
		if !m.IsPos() {
			v = !v
		}
		return v, nil
	}
	base := f.NumInputs + f.NumLatches
	for i, g := range f.Gates {
		a, err := evalLit(g[0])
		if err != nil {
			return nil, err
		}
		b, err := evalLit(g[1])
		if err != nil {
			return nil, err
		}
		vals[base+i+1] = a && b
	}
	outs := make([]bool, len(f.Outputs))
	for i, m := range f.Outputs {
		v, err := evalLit(m)
		if err != nil {
			return nil, err
		}
		outs[i] = v
	}
	return outs, nil
}

func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadBytes('\n')
	if err == io.EOF && len(line) > 0 {
		return line, nil
	}
	if err != nil {
		return nil, PrematureEOF
	}
	return line[:len(line)-1], nil
}

func parseUint(b []byte) (uint, error) {
	if len(b) == 0 {
		return 0, BadUInt
	}
	var v uint
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, BadUInt
		}
		v = v*10 + uint(c-'0')
	}
	return v, nil
}

// read7 reads one value in the 7-bit variable length delta encoding.
func read7(br *bufio.Reader) (uint, error) {
	var v uint
	var shift uint
	for {
		c, err := br.ReadByte()
		if err != nil {
			return 0, PrematureEOF
		}
		v |= uint(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, nil
		}
		shift += 7
		if shift > 63 {
			return 0, BadDeltaEncoding
		}
	}
}
