// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symbol

import "github.com/unixdj/qrshape/grid"

// Penalty rules used for choosing the mask pattern:
//
//   - RunP: for non-overlapping runs of n modules, n>=5 -> n-2
//   - BoxP: for possibly overlapping 2x2 boxes -> 3
//   - FindP: for finder-like patterns 1011101 with four light
//     modules on either side, which may be in the quiet zone -> 40
//   - BalP: for n% of dark modules -> 10*(ceiling(abs(n-50)/5)-1)
//
// https://www.nayuki.io/page/creating-a-qr-code-step-by-step
const (
	minRun    = 5
	runDelta  = -2
	boxPoints = 3
	findPts   = 40
	balPoints = 10
	balMul    = 20          // for every 5% (1/20),
	balMax    = balMul/2 - 1 // up to 9 times

	findBefore = 0b0000_1011101 // quiet zone before
	findAfter  = 0b1011101_0000 // quiet zone after
	findMask   = 1<<11 - 1
)

func penalty(g *grid.Grid) int {
	n := g.Size
	p := 0
	row := func(y int) func(int) bool {
		return func(x int) bool { return g.Get(x, y) }
	}
	col := func(x int) func(int) bool {
		return func(y int) bool { return g.Get(x, y) }
	}
	for i := 0; i < n; i++ {
		p += linePenalty(row(i), n) + linePenalty(col(i), n)
	}

	for y := 1; y < n; y++ {
		for x := 1; x < n; x++ {
			c := g.Get(x, y)
			if g.Get(x-1, y) == c && g.Get(x, y-1) == c && g.Get(x-1, y-1) == c {
				p += boxPoints
			}
		}
	}

	// Exact percentages get less penalty.  E.g., 40% and 60% get
	// 10 points like 41%, not 20 like 39%.  Fold the dark count into
	// the lower half and divide rounding down.  The size is odd,
	// so 50% exactly never occurs.
	dark, sq := g.Count(), n*n
	if dark > sq/2 {
		dark = sq - dark
	}
	p += (balMax - dark*balMul/sq) * balPoints
	return p
}

// linePenalty returns RunP and FindP for one row or column of n
// modules, where dark reports the colour of module i.
func linePenalty(dark func(int) bool, n int) int {
	p := 0
	run := 0
	var prev bool
	pat := 0
	// Four light quiet zone modules on either side extend the line.
	for i := -4; i < n+4; i++ {
		d := i >= 0 && i < n && dark(i)
		if i >= 0 && i < n {
			if i > 0 && d == prev {
				run++
			} else {
				if run >= minRun {
					p += run + runDelta
				}
				run = 1
			}
			prev = d
		}
		pat = (pat << 1) & findMask
		if d {
			pat |= 1
		}
		if i >= 6 && (pat == findBefore || pat == findAfter) {
			p += findPts
		}
	}
	if run >= minRun {
		p += run + runDelta
	}
	return p
}
