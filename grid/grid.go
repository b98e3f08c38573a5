// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package grid implements square bit grids.

A Grid holds one bit per QR module, packed eight to a byte with the
leftmost module in the most significant bit, the same layout as the
bitmap of an encoded QR code.  Grids describe both module matrices
(set is dark) and allowed regions (set may be dark).
*/
package grid

import (
	"math/bits"
	"strings"
)

// A Grid is a square bit grid.
type Grid struct {
	Bitmap []byte // 1 is set, 0 is clear
	Size   int    // number of cells on a side
	Stride int    // number of bytes per row
}

// New returns a clear grid of size×size cells.
func New(size int) *Grid {
	if size < 0 {
		size = 0
	}
	stride := (size + 7) >> 3
	return &Grid{
		Bitmap: make([]byte, size*stride),
		Size:   size,
		Stride: stride,
	}
}

func (g *Grid) in(x, y int) bool {
	return 0 <= x && x < g.Size && 0 <= y && y < g.Size
}

// Get reports whether the cell at (x,y) is set.
// Cells outside the grid are clear.
func (g *Grid) Get(x, y int) bool {
	return g.in(x, y) && g.Bitmap[y*g.Stride+x>>3]&(1<<uint(7&^x)) != 0
}

// Set sets the cell at (x,y) to v.  Cells outside the grid are ignored.
func (g *Grid) Set(x, y int, v bool) {
	if !g.in(x, y) {
		return
	}
	b, m := &g.Bitmap[y*g.Stride+x>>3], byte(1<<uint(7&^x))
	if v {
		*b |= m
	} else {
		*b &^= m
	}
}

// Count returns the number of set cells.
func (g *Grid) Count() int {
	n := 0
	for _, b := range g.Bitmap {
		n += bits.OnesCount8(b)
	}
	return n
}

// Clone returns a copy of g.
func (g *Grid) Clone() *Grid {
	c := *g
	c.Bitmap = append([]byte(nil), g.Bitmap...)
	return &c
}

// AndNot returns the number of cells set in g and clear in h.
// The grids must be the same size.
func (g *Grid) AndNot(h *Grid) int {
	if g.Size != h.Size {
		panic("grid: size mismatch")
	}
	n := 0
	for i, b := range g.Bitmap {
		n += bits.OnesCount8(b &^ h.Bitmap[i])
	}
	return n
}

// String returns the grid as lines of '#' (set) and '.' (clear).
func (g *Grid) String() string {
	var sb strings.Builder
	sb.Grow(g.Size * (g.Size + 1))
	for y := 0; y < g.Size; y++ {
		for x := 0; x < g.Size; x++ {
			if g.Get(x, y) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
