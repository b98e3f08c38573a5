// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package render draws finalized QR symbols.

Every output format draws the same painted grid: the dark modules of
the symbol that fall inside its allowed region.  The grid is computed
once by Painted and handed to each writer.
*/
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/unixdj/qrshape/grid"
)

// ErrInvalidLogo is returned for logo data that cannot be decoded.
var ErrInvalidLogo = errors.New("render: invalid logo image")

// VectorScale is the number of SVG user units per module.
const VectorScale = 4

// Options control the appearance of rendered symbols.
type Options struct {
	Foreground color.NRGBA
	Background color.NRGBA
	Margin     int // quiet zone in modules
	Size       int // raster side in pixels
}

// DefaultOptions returns black on white with a 4 module quiet zone
// and 400 pixel rasters.
func DefaultOptions() Options {
	return Options{
		Foreground: color.NRGBA{0x00, 0x00, 0x00, 0xff},
		Background: color.NRGBA{0xff, 0xff, 0xff, 0xff},
		Margin:     4,
		Size:       400,
	}
}

// Cells returns the number of modules on a side of the canvas for
// a symbol of size n, quiet zone included.
func (o *Options) Cells(n int) int { return n + 2*o.Margin }

// Painted returns the modules painted in the foreground colour: the
// dark modules that are allowed.  A nil allowed grid allows all.
func Painted(dark, allowed *grid.Grid) *grid.Grid {
	p := dark.Clone()
	if allowed != nil {
		if allowed.Size != dark.Size {
			panic(fmt.Sprintf("render: allowed grid size %d, matrix size %d",
				allowed.Size, dark.Size))
		}
		for i, b := range allowed.Bitmap {
			p.Bitmap[i] &= b
		}
	}
	return p
}

// errWriter remembers the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(b []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(b)
	e.err = err
	return n, err
}
