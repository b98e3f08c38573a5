// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	"github.com/unixdj/qrshape/grid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Raster draws p with one pixel per module, quiet zone included, and
// scales it by nearest neighbour to o.Size pixels on a side.  Sizes
// smaller than the canvas are raised to one pixel per module.
func Raster(p *grid.Grid, o Options) *image.NRGBA {
	cells := o.Cells(p.Size)
	canvas := image.NewNRGBA(image.Rect(0, 0, cells, cells))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{o.Background},
		image.Point{}, draw.Src)
	for y := 0; y < p.Size; y++ {
		for x := 0; x < p.Size; x++ {
			if p.Get(x, y) {
				canvas.SetNRGBA(x+o.Margin, y+o.Margin, o.Foreground)
			}
		}
	}
	size := max(o.Size, cells)
	if size == cells {
		return canvas
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)
	return dst
}

// DecodeLogo decodes a logo image.
func DecodeLogo(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLogo, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidLogo)
	}
	return img, nil
}

// LogoRect returns the footprint of a logo with bounds logo centred on
// canvas.  The logo keeps its aspect ratio and its larger side is a
// quarter of the smaller side of the canvas, rounded down.
func LogoRect(canvas, logo image.Rectangle) image.Rectangle {
	t := min(canvas.Dx(), canvas.Dy()) / 4
	lw, lh := logo.Dx(), logo.Dy()
	if lw <= 0 || lh <= 0 || t <= 0 {
		return image.Rectangle{}
	}
	w, h := t, t
	if lw > lh {
		h = max(lh*t/lw, 1)
	} else if lh > lw {
		w = max(lw*t/lh, 1)
	}
	x := canvas.Min.X + (canvas.Dx()-w)/2
	y := canvas.Min.Y + (canvas.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// Overlay scales logo and composites it over the centre of dst.
// It returns the logo's footprint.
func Overlay(dst draw.Image, logo image.Image) image.Rectangle {
	r := LogoRect(dst.Bounds(), logo.Bounds())
	if !r.Empty() {
		xdraw.CatmullRom.Scale(dst, r, logo, logo.Bounds(), draw.Over, nil)
	}
	return r
}

// EncodePNG flattens img to opaque, keeping colour values, and
// writes it to w as PNG.
func EncodePNG(w io.Writer, img *image.NRGBA) error {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):][:b.Dx()*4]
		for i := 3; i < len(row); i += 4 {
			row[i] = 0xff
		}
	}
	return png.Encode(w, img)
}
