// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qrshape

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/unixdj/qrshape/verify"
)

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uniform(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return encode(t, img)
}

func TestNoMask(t *testing.T) {
	res, err := Render(NewRequest([]byte("https://example.com")))
	if err != nil {
		t.Fatal(err)
	}
	if res.Version != 3 || res.Level != H || res.Passes != 0 {
		t.Errorf("version %d level %v passes %d, want 3 H 0",
			res.Version, res.Level, res.Passes)
	}
	if !cmp.Equal(res.Symbol.Painted, res.Symbol.Matrix.Dark) {
		t.Error("painted modules differ from the matrix without a mask")
	}
	if res.Mask != nil || res.Logo != nil {
		t.Error("artifacts for absent inputs")
	}
	img, err := png.Decode(bytes.NewReader(res.Raster))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 400 {
		t.Errorf("raster bounds %v, want 400x400", b)
	}
	if !strings.HasPrefix(string(res.Vector), "<?xml") {
		t.Errorf("vector output starts with %.20q", res.Vector)
	}
}

func TestDeterministic(t *testing.T) {
	req := NewRequest([]byte("same input, same output"))
	req.Mask = uniform(t, 64, 64, color.White)
	a, err := Render(req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Render(req)
	if err != nil {
		t.Fatal(err)
	}
	if a.Fingerprint != b.Fingerprint || a.Version != b.Version ||
		!bytes.Equal(a.Raster, b.Raster) || !bytes.Equal(a.Vector, b.Vector) {
		t.Error("identical requests rendered differently")
	}
	if a.ID == b.ID {
		t.Error("renders share an ID")
	}
}

func TestInfeasible(t *testing.T) {
	req := NewRequest([]byte("hello"))
	req.Mask = uniform(t, 50, 50, color.Black)
	res, err := Render(req)
	if !errors.Is(err, ErrMaskInfeasible) {
		t.Fatalf("Render = %v, %v; want ErrMaskInfeasible", res, err)
	}
	if res != nil {
		t.Error("result returned with error")
	}
	if !strings.Contains(err.Error(), "160 attempts") {
		t.Errorf("error %q does not report the attempts", err)
	}
}

func TestCapacityExceeded(t *testing.T) {
	req := NewRequest(bytes.Repeat([]byte{'z'}, 1300))
	if _, err := Render(req); !errors.Is(err, ErrDataCapacityExceeded) {
		t.Errorf("1300 bytes at H: %v", err)
	}
	req.Level = L
	if _, err := Render(req); err != nil {
		t.Errorf("1300 bytes at L: %v", err)
	}
}

func TestInvalid(t *testing.T) {
	neg, big := -1, 256
	for _, tc := range []struct {
		name string
		edit func(*Request)
		want error
	}{
		{"empty", func(r *Request) { r.Payload = nil }, ErrInvalidRequest},
		{"level", func(r *Request) { r.Level = 7 }, ErrInvalidRequest},
		{"margin", func(r *Request) { r.Margin = -1 }, ErrInvalidRequest},
		{"size", func(r *Request) { r.Size = 0 }, ErrInvalidRequest},
		{"threshold low", func(r *Request) { r.Threshold = &neg }, ErrInvalidThreshold},
		{"threshold high", func(r *Request) { r.Threshold = &big }, ErrInvalidThreshold},
		{"mask", func(r *Request) { r.Mask = []byte("not an image") }, ErrInvalidMaskImage},
		{"logo", func(r *Request) { r.Logo = []byte("not an image") }, ErrInvalidLogoImage},
	} {
		req := NewRequest([]byte("x"))
		tc.edit(req)
		if _, err := Render(req); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

// pngHeader returns the signature and header chunk of a w×h grey PNG
// with no image data.
func pngHeader(w, h uint32) []byte {
	ihdr := []byte("IHDR\x00\x00\x00\x00\x00\x00\x00\x00\x08\x00\x00\x00\x00")
	binary.BigEndian.PutUint32(ihdr[4:], w)
	binary.BigEndian.PutUint32(ihdr[8:], h)
	b := []byte("\x89PNG\r\n\x1a\n")
	b = binary.BigEndian.AppendUint32(b, uint32(len(ihdr)-4))
	b = append(b, ihdr...)
	return binary.BigEndian.AppendUint32(b, crc32.ChecksumIEEE(ihdr))
}

func TestLimits(t *testing.T) {
	r := Renderer{Limits: Limits{MaxSize: 500, MaxMargin: 8, MaxImagePixels: 64 * 64}}
	red := color.NRGBA{0xff, 0, 0, 0xff}
	for _, tc := range []struct {
		name string
		edit func(*Request)
		want error
	}{
		{"size", func(r *Request) { r.Size = 501 }, ErrInvalidRequest},
		{"margin", func(r *Request) { r.Margin = 9 }, ErrInvalidRequest},
		{"mask", func(r *Request) { r.Mask = uniform(t, 65, 64, color.White) }, ErrImageTooLarge},
		{"logo", func(r *Request) { r.Logo = uniform(t, 64, 65, red) }, ErrImageTooLarge},
		// Rejected from the header alone.
		{"gigapixel mask", func(r *Request) { r.Mask = pngHeader(50000, 50000) }, ErrImageTooLarge},
		{"at the limits", func(r *Request) {
			r.Size, r.Margin = 500, 8
			r.Mask = uniform(t, 64, 64, color.White)
			r.Logo = uniform(t, 64, 64, red)
		}, nil},
	} {
		req := NewRequest([]byte("limits"))
		tc.edit(req)
		if _, err := r.Render(req); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}

	// The zero Limits bound nothing.
	req := NewRequest([]byte("limits"))
	req.Size, req.Margin = 2000, 40
	if _, err := Render(req); err != nil {
		t.Errorf("unbounded: %v", err)
	}
}

// redBounds returns the bounding box of the red pixels of img.
func redBounds(img image.Image) image.Rectangle {
	var r image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R >= 0x80 && c.G < 0x80 && c.B < 0x80 {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

func TestLogo(t *testing.T) {
	red := color.NRGBA{0xff, 0, 0, 0xff}
	for _, tc := range []struct {
		size         int
		lw, lh       int // logo
		wantW, wantH int
	}{
		{400, 20, 10, 100, 50},
		{403, 20, 10, 100, 50},
		{403, 10, 20, 50, 100},
		{41, 20, 20, 10, 10},
	} {
		req := NewRequest([]byte("https://example.com/with/a/logo"))
		req.Level = L
		req.Size = tc.size
		req.Logo = uniform(t, tc.lw, tc.lh, red)
		res, err := Render(req)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(res.Logo, req.Logo) {
			t.Error("logo artifact differs from input")
		}
		img, err := png.Decode(bytes.NewReader(res.Raster))
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != tc.size {
			t.Fatalf("size %d: raster is %v", tc.size, b)
		}
		got := redBounds(img)
		x, y := (tc.size-tc.wantW)/2, (tc.size-tc.wantH)/2
		want := image.Rect(x, y, x+tc.wantW, y+tc.wantH)
		near := func(a, b int) bool { return a-b <= 1 && b-a <= 1 }
		if !near(got.Min.X, want.Min.X) || !near(got.Min.Y, want.Min.Y) ||
			!near(got.Max.X, want.Max.X) || !near(got.Max.Y, want.Max.Y) {
			t.Errorf("size %d, logo %dx%d: red pixels cover %v, want %v",
				tc.size, tc.lw, tc.lh, got, want)
		}
		// The vector output carries no logo.
		if strings.Contains(string(res.Vector), "<image") {
			t.Error("logo in vector output")
		}
	}
}

func TestVectorMatchesRaster(t *testing.T) {
	req := NewRequest([]byte("agreement"))
	req.Margin = 2
	res, err := Render(req)
	if err != nil {
		t.Fatal(err)
	}
	// Background plus one square per painted module.
	if n, want := strings.Count(string(res.Vector), "<rect"), res.Symbol.Painted.Count()+1; n != want {
		t.Errorf("%d rects, want %d", n, want)
	}
	img, err := png.Decode(bytes.NewReader(res.Raster))
	if err != nil {
		t.Fatal(err)
	}
	p := res.Symbol.Painted
	cells := p.Size + 2*req.Margin
	scale := float64(img.Bounds().Dx()) / float64(cells)
	for y := 0; y < p.Size; y++ {
		for x := 0; x < p.Size; x++ {
			px := int((float64(x+req.Margin) + 0.5) * scale)
			py := int((float64(y+req.Margin) + 0.5) * scale)
			r, _, _, _ := img.At(px, py).RGBA()
			if dark := r < 0x8000; dark != p.Get(x, y) {
				t.Fatalf("module (%d,%d): raster dark %v, painted %v",
					x, y, dark, p.Get(x, y))
			}
		}
	}
}

func TestFindersKept(t *testing.T) {
	req := NewRequest([]byte("finders"))
	req.Mask = uniform(t, 100, 100, color.White)
	res, err := Render(req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Mask == nil {
		t.Fatal("no mask artifact")
	}
	p := res.Symbol.Painted
	n := p.Size
	for _, o := range []image.Point{{0, 0}, {n - 7, 0}, {0, n - 7}} {
		for d := 0; d < 7; d++ {
			for _, pt := range []image.Point{{d, 0}, {d, 6}, {0, d}, {6, d}} {
				if !p.Get(o.X+pt.X, o.Y+pt.Y) {
					t.Fatalf("finder at %v: ring module %v not painted", o, pt)
				}
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	const payload = `{"product":"A"}`
	req := NewRequest([]byte(payload))
	req.Level = M
	res, err := Render(req)
	if err != nil {
		t.Fatal(err)
	}
	switch o := verify.Default().Verify(res.Raster); o.Status {
	case verify.NoDecoder:
		t.Skip("no decoder")
	case verify.Decoded:
		if o.Payload != payload {
			t.Errorf("decoded %q, want %q", o.Payload, payload)
		}
	default:
		t.Errorf("raster not decodable")
	}
}
