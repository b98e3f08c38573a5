// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package symbol builds standard QR symbols at a fixed version and
error correction level.

The heavy lifting (bit stream layout, Reed-Solomon, function pattern
placement) is done by rsc.io/qr/coding.  This package chooses the
segment modes, checks capacity and picks the mask pattern with the
lowest penalty.
*/
package symbol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/unixdj/qrshape/grid"
	"rsc.io/qr/coding"
)

// A Level denotes a QR error correction level.
// From least to most tolerant of errors, they are L, M, Q, H.
type Level int

const (
	L Level = iota // 20% redundant
	M              // 38% redundant
	Q              // 55% redundant
	H              // 65% redundant
)

func (l Level) String() string {
	if L <= l && l <= H {
		return "LMQH"[l : l+1]
	}
	return strconv.Itoa(int(l))
}

// ParseLevel parses a level name, one of L, M, Q, H in either case.
func ParseLevel(s string) (Level, error) {
	if len(s) == 1 {
		if i := strings.IndexByte("LMQH", s[0]&^0x20); i >= 0 {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("symbol: invalid error correction level %q", s)
}

// A Version is a QR version between MinVersion and MaxVersion.
type Version int

const (
	MinVersion Version = 1
	MaxVersion Version = 40
)

// Size returns the number of modules on a side of the symbol.
func (v Version) Size() int { return 17 + 4*int(v) }

// class returns the size class: 0 for versions 1-9, 1 for 10-26,
// 2 for 27-40.
func (v Version) class() int {
	switch {
	case v <= 9:
		return 0
	case v <= 26:
		return 1
	}
	return 2
}

// ErrCapacity is returned by Build when the payload does not fit
// in the requested version and level.
var ErrCapacity = errors.New("symbol: payload exceeds symbol capacity")

// A Matrix is a complete QR symbol.
type Matrix struct {
	Version Version
	Level   Level
	Pattern int        // mask pattern, 0-7
	Dark    *grid.Grid // set modules are dark
}

// Size returns the number of modules on a side.
func (m *Matrix) Size() int { return m.Dark.Size }

// A Builder builds standard QR symbols.  The zero value is ready to use.
type Builder struct{}

// Build encodes payload at version v and level l.  It returns
// ErrCapacity if the payload does not fit.
func (Builder) Build(payload []byte, v Version, l Level) (*Matrix, error) {
	if v < MinVersion || v > MaxVersion {
		return nil, fmt.Errorf("symbol: invalid version %d", v)
	}
	if l < L || l > H {
		return nil, fmt.Errorf("symbol: invalid level %d", l)
	}
	enc := encodings(payload, v)
	need := 0
	for _, e := range enc {
		need += e.Bits(coding.Version(v))
	}

	var best *Matrix
	pen := 1 << 30
	for mask := 0; mask < 8; mask++ {
		p, err := coding.NewPlan(coding.Version(v), coding.Level(l), coding.Mask(mask))
		if err != nil {
			return nil, err
		}
		if mask == 0 && need > p.DataBytes*8 {
			return nil, fmt.Errorf("%w: %d bits into %d-bit version %d-%v",
				ErrCapacity, need, p.DataBytes*8, v, l)
		}
		c, err := p.Encode(enc...)
		if err != nil {
			return nil, err
		}
		dark := fromCode(c)
		if n := penalty(dark); n < pen {
			pen = n
			best = &Matrix{Version: v, Level: l, Pattern: mask, Dark: dark}
		}
	}
	return best, nil
}

func fromCode(c *coding.Code) *grid.Grid {
	g := grid.New(c.Size)
	for y := 0; y < c.Size; y++ {
		for x := 0; x < c.Size; x++ {
			if c.Black(x, y) {
				g.Set(x, y, true)
			}
		}
	}
	return g
}
