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
)

// WriteBinary writes the AIG in binary AIGER format with the extension
// sections appended.
func (w *Writer) WriteBinary(dst io.Writer) error {
	return w.encode(dst, false)
}

// WriteAscii is like WriteBinary with the header and body in the ascii
// AIGER variant.  The extension sections stay binary.
func (w *Writer) WriteAscii(dst io.Writer) error {
	return w.encode(dst, true)
}

func (w *Writer) encode(dst io.Writer, ascii bool) error {
	if w.aigM != w.aigI+w.aigL+w.aigA {
		panic(fmt.Sprintf("xaig: inconsistent counts M=%d I=%d L=%d A=%d",
			w.aigM, w.aigI, w.aigL, w.aigA))
	}
	if len(w.outputs) != w.aigO {
		panic(fmt.Sprintf("xaig: %d outputs built, %d declared", len(w.outputs), w.aigO))
	}

	bw := bufio.NewWriter(dst)
	format := "aig"
	if ascii {
		format = "aag"
	}
	fmt.Fprintf(bw, "%s %d %d %d %d %d\n", format, w.aigM, w.aigI, w.aigL, w.aigO, w.aigA)

	if ascii {
		for i := 0; i < w.aigI; i++ {
			fmt.Fprintf(bw, "%d\n", 2*i+2)
		}
		for _, o := range w.outputs {
			fmt.Fprintf(bw, "%d\n", o)
		}
		for i, g := range w.gates {
			fmt.Fprintf(bw, "%d %d %d\n", 2*(w.aigI+w.aigL+i)+2, g[0], g[1])
		}
	} else {
		for _, o := range w.outputs {
			fmt.Fprintf(bw, "%d\n", o)
		}
		for i, g := range w.gates {
			lhs := 2*(w.aigI+w.aigL+i) + 2
			d0 := lhs - int(g[0])
			d1 := int(g[0]) - int(g[1])
			if d0 <= 0 || d1 < 0 {
				panic(fmt.Sprintf("xaig: unordered gate %d = %d & %d", lhs, g[0], g[1]))
			}
			write7(bw, uint(d0))
			write7(bw, uint(d1))
		}
	}

	bw.WriteByte('c')
	if err := w.writeSections(bw); err != nil {
		return err
	}
	fmt.Fprintf(bw, "Generated by xaig %s\n", Version)
	return bw.Flush()
}

// writeSections emits the extension sections: the interface header,
// then register metadata, register initial values and the nested box
// circuit when the design has boxes or registers, then input arrival
// times.
func (w *Writer) writeSections(bw *bufio.Writer) error {
	boxy := len(w.boxList) > 0 || len(w.ffOrder) > 0

	var abuf bytes.Buffer
	var infos []boxInfo
	if boxy {
		hm, his, err := w.buildHoles()
		if err != nil {
			return err
		}
		infos = his
		hw, err := NewWriter(hm, Options{Holes: true, Debug: w.opts.Debug, Log: w.log})
		if err != nil {
			return errors.Wrap(err, "deriving box circuit")
		}
		if err := hw.WriteBinary(&abuf); err != nil {
			return errors.Wrap(err, "encoding box circuit")
		}
		w.mod.Design.RemoveModule(HolesName)
	}

	var hbuf bytes.Buffer
	putU32(&hbuf, 1)
	putU32(&hbuf, uint32(len(w.inputList)+len(w.ffOrder)+len(w.ciBits)))
	putU32(&hbuf, uint32(len(w.outputList)+len(w.ffOrder)+len(w.coBits)))
	putU32(&hbuf, uint32(len(w.inputList)+len(w.ffOrder)))
	putU32(&hbuf, uint32(len(w.outputList)+len(w.ffOrder)))
	putU32(&hbuf, uint32(len(w.boxList)))
	for _, bi := range infos {
		putU32(&hbuf, uint32(bi.inputs))
		putU32(&hbuf, uint32(bi.outputs))
		putU32(&hbuf, uint32(bi.id))
		putU32(&hbuf, uint32(bi.seq))
	}
	writeSection(bw, 'h', hbuf.Bytes())

	if boxy {
		var rbuf bytes.Buffer
		putU32(&rbuf, uint32(len(w.ffOrder)))
		for _, r := range w.ffOrder {
			class := w.ffClass[r]
			if class <= 0 {
				return errors.Errorf("register %s has no mergeability class",
					w.in.bit(r))
			}
			putU32(&rbuf, uint32(class))
			putF32(&rbuf, w.arrival[r])
		}
		writeSection(bw, 'r', rbuf.Bytes())

		var sbuf bytes.Buffer
		putU32(&sbuf, uint32(len(w.ffOrder)))
		for _, r := range w.ffOrder {
			if w.initMap[r] {
				sbuf.WriteByte(1)
			} else {
				sbuf.WriteByte(0)
			}
		}
		writeSection(bw, 's', sbuf.Bytes())

		writeSection(bw, 'a', abuf.Bytes())
	}

	var ibuf bytes.Buffer
	for _, r := range w.inputList {
		putF32(&ibuf, w.arrival[r])
	}
	writeSection(bw, 'i', ibuf.Bytes())
	return nil
}

func writeSection(bw *bufio.Writer, tag byte, payload []byte) {
	bw.WriteByte(tag)
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(payload)))
	bw.Write(n[:])
	bw.Write(payload)
}

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putF32(buf *bytes.Buffer, v float32) {
	putU32(buf, math.Float32bits(v))
}

// write7 writes x in the 7-bit variable length encoding used for
// binary and gate deltas.  A zero value still writes one byte.
func write7(bw *bufio.Writer, x uint) {
	for x >= 0x80 {
		bw.WriteByte(byte(x&0x7f) | 0x80)
		x >>= 7
	}
	bw.WriteByte(byte(x))
}
