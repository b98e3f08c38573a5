// Copyright 2011 The Go Authors.  All rights reserved.
// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"bufio"
	"io"
	"strconv"

	"github.com/unixdj/qrshape/grid"
)

// PBM writes p to w as a raw Portable Bit Map at scale pixels per
// module, for use with netpbm.  PBM has no colours: painted modules
// are black, everything else is white.
func PBM(w io.Writer, p *grid.Grid, o Options, scale int) error {
	if scale < 1 {
		scale = 1
	}
	b := bufio.NewWriter(w)
	length := scale * o.Cells(p.Size)
	ls := strconv.Itoa(length)
	if _, err := b.WriteString("P4\n" + ls + " " + ls + "\n"); err != nil {
		return err
	}
	row := make([]byte, (length+7)/8)
	quiet := scale * o.Margin
	for i := 0; i < quiet; i++ {
		if _, err := b.Write(row); err != nil {
			return err
		}
	}
	for y := 0; y < p.Size; y++ {
		pbmRow(row, p, y, scale, quiet)
		for i := 0; i < scale; i++ {
			if _, err := b.Write(row); err != nil {
				return err
			}
		}
	}
	clear(row)
	for i := 0; i < quiet; i++ {
		if _, err := b.Write(row); err != nil {
			return err
		}
	}
	return b.Flush()
}

// pbmRow encodes module row y of p into row, starting at pixel offset
// off, with each module scale pixels wide.
func pbmRow(row []byte, p *grid.Grid, y, scale, off int) {
	clear(row)
	for x := 0; x < p.Size; x++ {
		if !p.Get(x, y) {
			continue
		}
		for i := off + x*scale; i < off+(x+1)*scale; i++ {
			row[i>>3] |= 0x80 >> uint(i&7)
		}
	}
}
