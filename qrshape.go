// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package qrshape renders QR codes shaped by a mask image.

Given a payload and an optional shape image, Render finds the smallest
QR symbol whose dark modules all fall inside the light part of the
shape, relaxing the shape by dilation if no version fits, and draws
it as PNG and SVG with an optional logo in the middle.

	req := qrshape.NewRequest([]byte("https://example.com"))
	req.Mask = heart // PNG bytes; dark areas stay light
	res, err := qrshape.Render(req)

Identical requests produce identical symbols.
*/
package qrshape // import "github.com/unixdj/qrshape"

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/google/uuid"
	"github.com/unixdj/qrshape/grid"
	"github.com/unixdj/qrshape/mask"
	"github.com/unixdj/qrshape/render"
	"github.com/unixdj/qrshape/search"
	"github.com/unixdj/qrshape/symbol"
)

// A Level denotes a QR error correction level.
// From least to most tolerant of errors, they are L, M, Q, H.
type Level = symbol.Level

const (
	L = symbol.L // 20% redundant
	M = symbol.M // 38% redundant
	Q = symbol.Q // 55% redundant
	H = symbol.H // 65% redundant
)

// ParseLevel parses a level name, one of L, M, Q, H in either case.
func ParseLevel(s string) (Level, error) { return symbol.ParseLevel(s) }

var (
	ErrDataCapacityExceeded = search.ErrDataCapacityExceeded
	ErrMaskInfeasible       = search.ErrMaskInfeasible
	ErrInvalidMaskImage     = mask.ErrInvalidImage
	ErrInvalidLogoImage     = render.ErrInvalidLogo
	ErrInvalidThreshold     = mask.ErrInvalidThreshold
	ErrInvalidRequest       = errors.New("qrshape: invalid request")
	ErrImageTooLarge        = errors.New("qrshape: image too large")
)

// A Request describes a symbol to render.
type Request struct {
	Payload    []byte
	Level      Level
	Foreground color.NRGBA
	Background color.NRGBA
	Margin     int    // quiet zone in modules
	Size       int    // raster side in pixels
	Mask       []byte // shape image; nil for none
	Logo       []byte // logo image; nil for none
	Threshold  *int   // mask threshold 0-255; nil for Otsu's method
}

// NewRequest returns a request for payload with the defaults: level
// H, black on white, a 4 module quiet zone and a 400 pixel raster.
func NewRequest(payload []byte) *Request {
	o := render.DefaultOptions()
	return &Request{
		Payload:    payload,
		Level:      H,
		Foreground: o.Foreground,
		Background: o.Background,
		Margin:     o.Margin,
		Size:       o.Size,
	}
}

func (r *Request) validate(lim Limits) error {
	switch {
	case len(r.Payload) == 0:
		return fmt.Errorf("%w: empty payload", ErrInvalidRequest)
	case r.Level < L || r.Level > H:
		return fmt.Errorf("%w: level %d", ErrInvalidRequest, r.Level)
	case r.Margin < 0:
		return fmt.Errorf("%w: negative margin %d", ErrInvalidRequest, r.Margin)
	case r.Size <= 0:
		return fmt.Errorf("%w: size %d", ErrInvalidRequest, r.Size)
	case lim.MaxSize > 0 && r.Size > lim.MaxSize:
		return fmt.Errorf("%w: size %d exceeds %d", ErrInvalidRequest, r.Size, lim.MaxSize)
	case lim.MaxMargin > 0 && r.Margin > lim.MaxMargin:
		return fmt.Errorf("%w: margin %d exceeds %d", ErrInvalidRequest, r.Margin, lim.MaxMargin)
	case r.Threshold != nil && (*r.Threshold < 0 || *r.Threshold > 255):
		return fmt.Errorf("%w: %d", ErrInvalidThreshold, *r.Threshold)
	}
	return nil
}

func (r *Request) options() render.Options {
	return render.Options{
		Foreground: r.Foreground,
		Background: r.Background,
		Margin:     r.Margin,
		Size:       r.Size,
	}
}

// A Symbol is a finalized QR symbol.
type Symbol struct {
	Matrix  *symbol.Matrix
	Allowed *grid.Grid // nil without a mask
	Painted *grid.Grid // modules drawn in the foreground colour
}

// A Result holds the rendered artifacts of a request.
type Result struct {
	ID          string // unique per render
	Version     int
	Level       Level
	Passes      int // mask dilations applied
	Attempts    int // search states visited
	Fingerprint string
	Raster      []byte // PNG
	Vector      []byte // SVG
	Mask        []byte // processed mask as PNG; nil without a mask
	Logo        []byte // copy of the logo; nil without a logo
	Symbol      *Symbol
}

// Limits bound the resources a request may use.  Zero fields impose
// no bound.
type Limits struct {
	MaxSize        int // raster side in pixels
	MaxMargin      int // quiet zone in modules
	MaxImagePixels int // pixels in a mask or logo image
}

// CheckImage reads the header of the encoded image data and returns
// ErrImageTooLarge if it has more than l.MaxImagePixels pixels.  Data
// that is not a recognised image passes; decoding it reports the error.
func (l Limits) CheckImage(what string, data []byte) error {
	if l.MaxImagePixels <= 0 || len(data) == 0 {
		return nil
	}
	c, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	if c.Width > 0 && c.Height > 0 && c.Width > l.MaxImagePixels/c.Height {
		return fmt.Errorf("%w: %s is %dx%d, over %d pixels",
			ErrImageTooLarge, what, c.Width, c.Height, l.MaxImagePixels)
	}
	return nil
}

// A Renderer renders requests.  The zero value is ready to use.
type Renderer struct {
	Builder search.Builder // nil for the standard builder
	Logger  *slog.Logger   // nil for no logging
	Limits  Limits
}

// Render renders req with the zero Renderer.
func Render(req *Request) (*Result, error) {
	var r Renderer
	return r.Render(req)
}

// Render validates req, searches for a symbol satisfying its mask and
// draws it.  Nothing is returned on failure.
func (r *Renderer) Render(req *Request) (*Result, error) {
	if err := req.validate(r.Limits); err != nil {
		return nil, err
	}
	if err := r.Limits.CheckImage("mask", req.Mask); err != nil {
		return nil, err
	}
	if err := r.Limits.CheckImage("logo", req.Logo); err != nil {
		return nil, err
	}
	m, err := mask.Load(req.Mask, req.Threshold)
	if err != nil {
		return nil, err
	}
	var logo image.Image
	if len(req.Logo) != 0 {
		if logo, err = render.DecodeLogo(req.Logo); err != nil {
			return nil, err
		}
	}

	e := search.Engine{Builder: r.Builder, Logger: r.Logger}
	o, err := e.Search(req.Payload, req.Level, m)
	if err != nil {
		return nil, err
	}
	sym := &Symbol{
		Matrix:  o.Matrix,
		Allowed: o.Allowed,
		Painted: render.Painted(o.Matrix.Dark, o.Allowed),
	}
	res := &Result{
		ID:          uuid.NewString(),
		Version:     int(o.Matrix.Version),
		Level:       o.Matrix.Level,
		Passes:      o.Passes,
		Attempts:    o.Attempts,
		Fingerprint: o.Fingerprint(),
		Symbol:      sym,
	}

	opts := req.options()
	img := render.Raster(sym.Painted, opts)
	if logo != nil {
		render.Overlay(img, logo)
	}
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img); err != nil {
		return nil, fmt.Errorf("qrshape: encoding raster: %w", err)
	}
	res.Raster = bytes.Clone(buf.Bytes())

	buf.Reset()
	if err := render.SVG(&buf, sym.Painted, opts); err != nil {
		return nil, fmt.Errorf("qrshape: encoding vector: %w", err)
	}
	res.Vector = bytes.Clone(buf.Bytes())

	if o.Mask != nil {
		if res.Mask, err = o.Mask.PNG(); err != nil {
			return nil, fmt.Errorf("qrshape: encoding mask: %w", err)
		}
	}
	if logo != nil {
		res.Logo = bytes.Clone(req.Logo)
	}
	if r.Logger != nil {
		r.Logger.Info("rendered", "id", res.ID, "version", res.Version,
			"level", res.Level, "passes", res.Passes)
	}
	return res, nil
}
