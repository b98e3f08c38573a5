// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package search

import (
	"image"
	"image/draw"

	"github.com/unixdj/qrshape/grid"
	"github.com/unixdj/qrshape/symbol"
	xdraw "golang.org/x/image/draw"
)

// Project returns the allowed region of a version v symbol for the
// binarized mask src: src scaled to one pixel per module by nearest
// neighbour, with the modules of symbol.Functional allowed.
func Project(src image.Image, v symbol.Version) *grid.Grid {
	n := v.Size()
	small := image.NewGray(image.Rect(0, 0, n, n))
	xdraw.NearestNeighbor.Scale(small, small.Bounds(), src, src.Bounds(), draw.Src, nil)

	g := grid.New(n)
	for y := 0; y < n; y++ {
		row := small.Pix[y*small.Stride:][:n]
		for x, p := range row {
			if p >= 0x80 {
				g.Set(x, y, true)
			}
		}
	}
	f := symbol.Functional(v)
	for i, b := range f.Bitmap {
		g.Bitmap[i] |= b
	}
	return g
}
