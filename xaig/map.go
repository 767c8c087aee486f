// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package xaig

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/go-air/xaig/rtl"
)

// WriteMap writes the symbol map relating AIG input and output indices
// back to module wires, plus one line per box instance.  With verbose
// set, every internal bit with an AIG literal gets a line too.
func (w *Writer) WriteMap(dst io.Writer, verbose bool) error {
	inputLines := make(map[int]string)
	outputLines := make(map[int]string)
	wireLines := make(map[int]string)

	for _, wi := range w.mod.Wires() {
		for i := 0; i < wi.Width; i++ {
			b := wi.Bit(i)
			rb, interned := w.in.lookup(b)

			if interned && w.inputBits.Contains(rb) {
				a := int(w.aigMap[rb])
				if a&1 != 0 {
					panic(fmt.Sprintf("xaig: negated input literal %d for %s", a, b))
				}
				inputLines[a] += fmt.Sprintf("input %d %d %s\n", (a>>1)-1, i, wi.Name)
			}

			if interned && w.outputBits.Contains(rb) {
				o := w.orderedOutputs[rb]
				init := 2
				if w.opts.ZInit {
					init = 0
				}
				if v, ok := w.initMap[w.cref(b)]; ok {
					if v {
						init = 1
					} else {
						init = 0
					}
				}
				outputLines[o] += fmt.Sprintf("output %d %d %s %d\n",
					o-len(w.coBits), i, wi.Name, init)
				continue
			}

			if verbose {
				cn, ok := w.in.lookup(w.sigmap.Apply(b))
				if !ok {
					continue
				}
				a, ok := w.aigMap[cn]
				if !ok {
					continue
				}
				wireLines[int(a)] += fmt.Sprintf("wire %d %d %s\n", a, i, wi.Name)
			}
		}
	}

	bw := bufio.NewWriter(dst)
	emit := func(lines map[int]string) {
		keys := make([]int, 0, len(lines))
		for k := range lines {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		for _, k := range keys {
			bw.WriteString(lines[k])
		}
	}
	emit(inputLines)
	for i, c := range w.boxList {
		fmt.Fprintf(bw, "box %d %d %s\n", i, 0, c.Name)
	}
	if w.omode {
		outputLines[w.orderedOutputs[w.ref(rtl.C(rtl.S0))]] = "output 0 0 $__dummy__\n"
	}
	emit(outputLines)
	emit(wireLines)
	return bw.Flush()
}
