// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package search

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/unixdj/qrshape/grid"
	"github.com/unixdj/qrshape/mask"
	"github.com/unixdj/qrshape/symbol"
)

// countingBuilder counts Build calls per version.
type countingBuilder struct {
	symbol.Builder
	calls map[symbol.Version]int
}

func (b *countingBuilder) Build(p []byte, v symbol.Version, l symbol.Level) (*symbol.Matrix, error) {
	if b.calls == nil {
		b.calls = make(map[symbol.Version]int)
	}
	b.calls[v]++
	return b.Builder.Build(p, v, l)
}

func uniformMask(w, h int, v byte) *mask.Mask {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return &mask.Mask{Gray: img, Threshold: mask.Fallback}
}

func TestNoMask(t *testing.T) {
	var e Engine
	o, err := e.Search([]byte("https://example.com"), symbol.H, nil)
	if err != nil {
		t.Fatal(err)
	}
	// 19 bytes need version 3 at level H.
	if o.Matrix.Version != 3 || o.Attempts != 3 {
		t.Errorf("version %d after %d attempts, want 3 after 3",
			o.Matrix.Version, o.Attempts)
	}
	if o.Allowed != nil || o.Mask != nil || o.Passes != 0 {
		t.Errorf("mask-free outcome has mask state")
	}
}

func TestFullMask(t *testing.T) {
	var e Engine
	o, err := e.Search([]byte("hello"), symbol.H, uniformMask(50, 50, 0xFF))
	if err != nil {
		t.Fatal(err)
	}
	if o.Matrix.Version != 1 || o.Passes != 0 || o.Attempts != 1 {
		t.Errorf("version %d pass %d attempts %d, want 1 0 1",
			o.Matrix.Version, o.Passes, o.Attempts)
	}
	if n := o.Allowed.Count(); n != 21*21 {
		t.Errorf("allowed %d modules, want all", n)
	}
}

func TestInfeasible(t *testing.T) {
	b := &countingBuilder{}
	e := Engine{Builder: b}
	_, err := e.Search([]byte("hello"), symbol.H, uniformMask(64, 64, 0))
	if !errors.Is(err, ErrMaskInfeasible) {
		t.Fatalf("error = %v, want ErrMaskInfeasible", err)
	}
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("error %T is not *Error", err)
	}
	if se.Attempts != MaxAttempts || MaxAttempts != 160 || se.Passes != MaxPasses {
		t.Errorf("attempts %d passes %d, want 160 and %d", se.Attempts, se.Passes, MaxPasses)
	}
	for v, n := range b.calls {
		if n != 1 {
			t.Errorf("version %d built %d times", v, n)
		}
	}
	if len(b.calls) != int(symbol.MaxVersion) {
		t.Errorf("built %d versions, want 40", len(b.calls))
	}
}

func TestCapacityExceeded(t *testing.T) {
	payload := []byte(strings.Repeat("z", 1300))
	var e Engine
	_, err := e.Search(payload, symbol.H, nil)
	if !errors.Is(err, ErrDataCapacityExceeded) {
		t.Fatalf("error = %v, want ErrDataCapacityExceeded", err)
	}
	var se *Error
	if !errors.As(err, &se) || se.Version != symbol.MaxVersion || se.Attempts != 40 {
		t.Errorf("error %#v, want version 40 after 40 attempts", se)
	}
	// Fits at L.
	if _, err := e.Search(payload, symbol.L, nil); err != nil {
		t.Errorf("level L: %v", err)
	}
}

func TestRelaxation(t *testing.T) {
	// A light mask with a thin dark cross: narrow enough to close
	// after dilation, wide enough to break every version at first.
	img := image.NewGray(image.Rect(0, 0, 400, 400))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	for i := 0; i < 400; i++ {
		for d := 199; d <= 200; d++ {
			img.SetGray(i, d, color.Gray{0})
			img.SetGray(d, i, color.Gray{0})
		}
	}
	m := &mask.Mask{Gray: img}
	var e Engine
	o, err := e.Search([]byte("hello"), symbol.L, m)
	if err != nil {
		t.Fatal(err)
	}
	if o.Passes == 0 {
		t.Skipf("version %d satisfied the cross without relaxation", o.Matrix.Version)
	}
	if o.Mask.Passes != o.Passes {
		t.Errorf("mask passes %d, outcome passes %d", o.Mask.Passes, o.Passes)
	}
	if o.Matrix.Dark.AndNot(o.Allowed) != 0 {
		t.Error("accepted outcome has conflicts")
	}
}

func TestDeterministic(t *testing.T) {
	m := uniformMask(30, 30, 0xFF)
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			m.SetGray(x, y, color.Gray{0})
		}
	}
	var e Engine
	o1, err1 := e.Search([]byte("determinism"), symbol.M, m)
	o2, err2 := e.Search([]byte("determinism"), symbol.M, m)
	if (err1 == nil) != (err2 == nil) {
		t.Fatalf("errors differ: %v, %v", err1, err2)
	}
	if err1 != nil {
		if err1.Error() != err2.Error() {
			t.Fatalf("errors differ: %v, %v", err1, err2)
		}
		return
	}
	if o1.Fingerprint() != o2.Fingerprint() {
		t.Error("fingerprints differ")
	}
	if diff := cmp.Diff(o1.Allowed.String(), o2.Allowed.String()); diff != "" {
		t.Errorf("allowed grids differ (-first +second):\n%s", diff)
	}
	if o1.Matrix.Version != o2.Matrix.Version || !cmp.Equal(o1.Matrix.Dark, o2.Matrix.Dark) {
		t.Error("matrices differ")
	}
}

func TestFingerprint(t *testing.T) {
	var e Engine
	a, err := e.Search([]byte("a"), symbol.H, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Search([]byte("b"), symbol.H, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Fingerprint()) != 64 {
		t.Errorf("fingerprint %q is not 32 hex bytes", a.Fingerprint())
	}
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("different payloads share a fingerprint")
	}
	c := *a
	c.Allowed = grid.New(a.Matrix.Size())
	if c.Fingerprint() == a.Fingerprint() {
		t.Error("allowed region does not affect the fingerprint")
	}
}

func TestProjectFunctional(t *testing.T) {
	dark := uniformMask(100, 100, 0)
	for _, tt := range []struct {
		v       symbol.Version
		allowed int
	}{
		{1, 187},
		{2, 195},
		{7, 235},
		{40, 499},
	} {
		v := tt.v
		g := Project(dark.Gray, v)
		if !cmp.Equal(g, symbol.Functional(v)) {
			t.Errorf("version %d: projection of an excluded mask is not the function patterns", v)
		}
		if n := g.Count(); n != tt.allowed {
			t.Errorf("version %d: %d modules allowed, want %d", v, n, tt.allowed)
		}
		n := v.Size()
		for _, o := range [][2]int{{0, 0}, {n - 7, 0}, {0, n - 7}} {
			for dy := 0; dy < 7; dy++ {
				for dx := 0; dx < 7; dx++ {
					if !g.Get(o[0]+dx, o[1]+dy) {
						t.Fatalf("version %d: finder module (%d,%d) excluded",
							v, o[0]+dx, o[1]+dy)
					}
				}
			}
		}
		// The mask governs alignment, version information and the
		// dark module.
		excluded := [][2]int{{8, n - 8}, {7, 7}}
		if v >= 2 {
			excluded = append(excluded, [2]int{n - 9, n - 9}, [2]int{n - 7, n - 7})
		}
		if v >= 7 {
			excluded = append(excluded, [2]int{n - 11, 0}, [2]int{0, n - 11})
		}
		for _, p := range excluded {
			if g.Get(p[0], p[1]) {
				t.Errorf("version %d: (%d,%d) allowed by an excluded mask", v, p[0], p[1])
			}
		}
	}
}

func TestProjectNearest(t *testing.T) {
	// Left half excluded, right half allowed.
	m := uniformMask(42, 42, 0xFF)
	for y := 0; y < 42; y++ {
		for x := 0; x < 21; x++ {
			m.SetGray(x, y, color.Gray{0})
		}
	}
	g := Project(m.Gray, 1)
	f := symbol.Functional(1)
	for y := 0; y < 21; y++ {
		for x := 0; x < 21; x++ {
			want := x >= 11 || f.Get(x, y)
			if x == 10 {
				continue // boundary column
			}
			if got := g.Get(x, y); got != want {
				t.Errorf("(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	e := Engine{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	_, err := e.Search([]byte("hello"), symbol.H, uniformMask(8, 8, 0))
	if !errors.Is(err, ErrMaskInfeasible) {
		t.Fatalf("error = %v", err)
	}
	if n := strings.Count(buf.String(), "relaxing mask"); n != MaxPasses {
		t.Errorf("logged %d relaxations, want %d:\n%s", n, MaxPasses, buf.String())
	}
}
