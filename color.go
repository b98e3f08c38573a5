// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qrshape

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

var colorNames = map[string]color.NRGBA{
	"black":       {0x00, 0x00, 0x00, 0xff},
	"white":       {0xff, 0xff, 0xff, 0xff},
	"red":         {0xff, 0x00, 0x00, 0xff},
	"green":       {0x00, 0x80, 0x00, 0xff},
	"blue":        {0x00, 0x00, 0xff, 0xff},
	"navy":        {0x00, 0x00, 0x80, 0xff},
	"maroon":      {0x80, 0x00, 0x00, 0xff},
	"purple":      {0x80, 0x00, 0x80, 0xff},
	"teal":        {0x00, 0x80, 0x80, 0xff},
	"gray":        {0x80, 0x80, 0x80, 0xff},
	"grey":        {0x80, 0x80, 0x80, 0xff},
	"transparent": {0x00, 0x00, 0x00, 0x00},
}

// ParseColor parses a colour given as 3, 4, 6 or 8 hex digits (RGB,
// RGBA, RRGGBB or RRGGBBAA), optionally prefixed with '#', or as one
// of a few CSS colour names.
func ParseColor(s string) (color.NRGBA, error) {
	key := strings.ToLower(strings.ReplaceAll(s, " ", ""))
	if c, ok := colorNames[key]; ok {
		return c, nil
	}
	h := strings.TrimPrefix(key, "#")
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%q: bad colour spec", s)
	}
	switch len(h) {
	case 3:
		n = n<<4 | 0xf
		fallthrough
	case 4:
		// Expand each nibble to a byte.
		var nn uint64
		for i := 0; i < 4; i++ {
			nn = nn<<8 | n>>12&0xf*0x11
			n <<= 4
		}
		n = nn
	case 6:
		n = n<<8 | 0xff
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("%q: bad colour spec", s)
	}
	return color.NRGBA{uint8(n >> 24), uint8(n >> 16), uint8(n >> 8), uint8(n)}, nil
}

// FormatColor returns c as "#rrggbb", or "#rrggbbaa" if c is not opaque.
func FormatColor(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
