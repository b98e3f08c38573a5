// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"io"
	"strings"

	"github.com/unixdj/qrshape/grid"
)

// halfBlocks[top|bottom<<1] draws two vertically stacked modules,
// light on dark, for terminals with dark backgrounds.
var halfBlocks = [4]string{"█", "▄", "▀", " "}

// UTF8 writes p to w using Unicode half blocks, two module rows per
// line, with a margin-wide quiet zone.  Painted modules are drawn in
// the terminal's background colour.
func UTF8(w io.Writer, p *grid.Grid, margin int) error {
	var sb strings.Builder
	for y := -margin; y < p.Size+margin; y += 2 {
		for x := -margin; x < p.Size+margin; x++ {
			i := 0
			if p.Get(x, y) {
				i |= 1
			}
			if y+1 < p.Size+margin && p.Get(x, y+1) {
				i |= 2
			}
			sb.WriteString(halfBlocks[i])
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// ASCII writes p to w with two characters per module, "##" for
// painted modules and spaces for the rest.
func ASCII(w io.Writer, p *grid.Grid, margin int) error {
	pix := p.Size + 2*margin
	b := make([]byte, (pix*2+1)*pix)
	i := 0
	for y := -margin; y < p.Size+margin; y++ {
		for x := -margin; x < p.Size+margin; x++ {
			var c byte = ' '
			if p.Get(x, y) {
				c = '#'
			}
			b[i], b[i+1] = c, c
			i += 2
		}
		b[i] = '\n'
		i++
	}
	_, err := w.Write(b)
	return err
}
