// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package mask turns shape images into binary masks.

A mask image is reduced to luma, thresholded either at a given level
or at the level chosen by Otsu's method, and binarized: pixels darker
than the threshold are excluded, the rest are allowed to carry dark
QR modules.  Transparent pixels are treated as white.

PNG, JPEG, GIF, BMP, TIFF and WebP images are accepted.
*/
package mask

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrInvalidImage     = errors.New("mask: invalid image")
	ErrInvalidThreshold = errors.New("mask: threshold out of range 0-255")
)

// Fallback is the threshold used when Otsu's method finds no split,
// as in an image of a single intensity.
const Fallback = 128

const (
	excluded = 0x00
	allowed  = 0xFF
)

// A Mask is a binarized shape image.  Its pixels are either 0x00
// (excluded) or 0xFF (allowed).
type Mask struct {
	*image.Gray
	Threshold int // level used for binarization
	Passes    int // number of dilations applied
}

// Load decodes and binarizes a mask image.  If threshold is nil the
// threshold is chosen by Otsu's method.  Load returns nil and no
// error if data is empty.
func Load(data []byte, threshold *int) (*Mask, error) {
	if threshold != nil && (*threshold < 0 || *threshold > 255) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreshold, *threshold)
	}
	if len(data) == 0 {
		return nil, nil
	}
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	var t int
	if threshold != nil {
		t = *threshold
	} else {
		t = Otsu(img)
	}
	return &Mask{Gray: Binarize(img, t), Threshold: t}, nil
}

// Decode decodes an image and converts it to luma, compositing
// transparent areas over white.  The result's bounds start at (0,0).
func Decode(data []byte) (*image.Gray, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst, nil
}

// Otsu returns the threshold chosen by Otsu's method: the lowest
// level of the light class for the split into levels 0..i and i+1..255
// that maximizes the between-class variance.  Ties go to the lowest
// split.  If no split separates any pixels, Otsu returns Fallback.
func Otsu(img *image.Gray) int {
	var hist [256]int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		for _, v := range img.Pix[off : off+b.Dx()] {
			hist[v]++
		}
	}
	total, sum := 0, 0
	for i, n := range hist {
		total += n
		sum += i * n
	}

	t, best := Fallback, 0.0
	wB, sumB := 0, 0
	for i, n := range hist {
		wB += n
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += i * n
		mB := float64(sumB) / float64(wB)
		mF := float64(sum-sumB) / float64(wF)
		if v := float64(wB) * float64(wF) * (mB - mF) * (mB - mF); v > best {
			best, t = v, i+1
		}
	}
	return t
}

// Binarize returns a copy of img with pixels below t excluded and the
// rest allowed.
func Binarize(img *image.Gray, t int) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):][:b.Dx()]
		row := dst.Pix[y*dst.Stride:][:b.Dx()]
		for x, v := range src {
			if int(v) < t {
				row[x] = excluded
			} else {
				row[x] = allowed
			}
		}
	}
	return dst
}

// Dilate returns m with the allowed region grown by one pixel in
// every direction: a 3×3 maximum filter with the edges clamped.
func (m *Mask) Dilate() *Mask {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := byte(excluded)
		scan:
			for dy := -1; dy <= 1; dy++ {
				yy := min(max(y+dy, 0), h-1)
				for dx := -1; dx <= 1; dx++ {
					xx := min(max(x+dx, 0), w-1)
					if m.Pix[m.PixOffset(b.Min.X+xx, b.Min.Y+yy)] >= 0x80 {
						v = allowed
						break scan
					}
				}
			}
			dst.Pix[y*dst.Stride+x] = v
		}
	}
	return &Mask{Gray: dst, Threshold: m.Threshold, Passes: m.Passes + 1}
}

// PNG returns the binarized mask encoded as PNG.
func (m *Mask) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m.Gray); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
