// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"
	"image/color"
	"io"

	"github.com/unixdj/qrshape/grid"
)

// EPS writes p to w as Encapsulated PostScript centred on a US Letter
// page at scale points per module.  Each row of painted modules is
// drawn as a run-length encoded sequence of line segments.
func EPS(w io.Writer, p *grid.Grid, o Options, scale int) error {
	const midx, midy = 306, 396
	n := p.Size
	cells := o.Cells(n)
	xorig := (midx*2 - cells*scale) / 2
	yorig := (midy*2 - cells*scale) / 2
	ew := &errWriter{w: w}
	fmt.Fprintf(ew, `%%!PS-Adobe-2.0 EPSF-2.0
%%%%Creator: qrshape https://github.com/unixdj/qrshape
%%%%Title: QR Code
%%%%BoundingBox: %d %d %d %d
%%%%EndComments
%%%%EndProlog
<< >> begin
gsave
%s setrgbcolor
newpath %d %d moveto %d 0 rlineto 0 %d rlineto %d 0 rlineto closepath fill
%g %g translate
%d dup neg scale
%s setrgbcolor
/row 0 def
/p { 0 rmoveto 0 rlineto } def
/r { 0 row 1 add dup /row exch def moveto } def
newpath 0 0 moveto
`,
		xorig-1, yorig-1, midx*2-xorig, midy*2-yorig,
		rgb(o.Background),
		xorig, yorig, cells*scale, cells*scale, -cells*scale,
		midx-float64(n*scale)/2, midy+float64((n-1)*scale)/2-1,
		scale,
		rgb(o.Foreground))
	for y := 0; y < n; y++ {
		for x := 0; x < n; {
			s := x
			for x < n && !p.Get(x, y) {
				x++
			}
			if x == n {
				break
			}
			b := x
			for x < n && p.Get(x, y) {
				x++
			}
			fmt.Fprintf(ew, "%d %d p ", x-b, b-s)
		}
		fmt.Fprintln(ew, "r")
	}
	io.WriteString(ew, "stroke grestore\nend\n%%Trailer\n")
	return ew.err
}

// rgb returns the PostScript colour components of c.  Alpha is ignored.
func rgb(c color.NRGBA) string {
	return fmt.Sprintf("%.3g %.3g %.3g",
		float64(c.R)/0xff, float64(c.G)/0xff, float64(c.B)/0xff)
}
