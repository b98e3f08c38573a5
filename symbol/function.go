// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symbol

import (
	"sync"

	"github.com/unixdj/qrshape/grid"
)

var functional [MaxVersion + 1]struct {
	once sync.Once
	g    *grid.Grid
}

// Functional returns the modules of version v that are allowed
// regardless of the mask: the three 7×7 finder patterns, the timing
// patterns and both copies of the format information.  Separators,
// alignment patterns, version information and the dark module are
// not included.  The returned grid is shared and must not be modified.
func Functional(v Version) *grid.Grid {
	if v < MinVersion || v > MaxVersion {
		return nil
	}
	f := &functional[v]
	f.once.Do(func() { f.g = makeFunctional(v) })
	return f.g
}

func makeFunctional(v Version) *grid.Grid {
	n := v.Size()
	g := grid.New(n)
	for _, o := range [3][2]int{{0, 0}, {n - 7, 0}, {0, n - 7}} {
		for y := 0; y < 7; y++ {
			for x := 0; x < 7; x++ {
				g.Set(o[0]+x, o[1]+y, true)
			}
		}
	}
	// timing
	for i := 8; i < n-8; i++ {
		g.Set(i, 6, true)
		g.Set(6, i, true)
	}
	// format, next to the top left finder
	for i := 0; i <= 8; i++ {
		if i != 6 {
			g.Set(i, 8, true)
			g.Set(8, i, true)
		}
	}
	// format, split between the other two finders
	for i := 0; i < 8; i++ {
		g.Set(n-1-i, 8, true)
	}
	for i := 0; i < 7; i++ {
		g.Set(8, n-1-i, true)
	}
	return g
}
