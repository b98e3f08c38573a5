// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"
	"image/color"
	"io"

	svg "github.com/ajstarks/svgo"
	"github.com/unixdj/qrshape/grid"
)

// SVG writes p to w as an SVG document at VectorScale units per
// module: a background rectangle covering the canvas and one square
// per painted module.
func SVG(w io.Writer, p *grid.Grid, o Options) error {
	side := o.Cells(p.Size) * VectorScale
	ew := &errWriter{w: w}
	s := svg.New(ew)
	s.Start(side, side, fmt.Sprintf(`viewBox="0 0 %d %d"`, side, side))
	s.Rect(0, 0, side, side, fill(o.Background))
	s.Group(`shape-rendering="crispEdges"`, fill(o.Foreground))
	for y := 0; y < p.Size; y++ {
		for x := 0; x < p.Size; x++ {
			if p.Get(x, y) {
				s.Rect((x+o.Margin)*VectorScale, (y+o.Margin)*VectorScale,
					VectorScale, VectorScale)
			}
		}
	}
	s.Gend()
	s.End()
	return ew.err
}

// fill returns fill attributes for c.
func fill(c color.NRGBA) string {
	s := fmt.Sprintf(`fill="#%02x%02x%02x"`, c.R, c.G, c.B)
	if c.A != 0xff {
		s += fmt.Sprintf(` fill-opacity="%.3g"`, float64(c.A)/0xff)
	}
	return s
}
