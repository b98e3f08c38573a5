// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symbol

import "rsc.io/qr/coding"

const (
	numMode   = iota // numeric
	alphaMode        // alphanumeric
	byteMode         // byte
	modes            // total number of modes

	numModes   = 1<<numMode | 1<<alphaMode | 1<<byteMode
	alphaModes = 1<<alphaMode | 1<<byteMode
	byteModes  = 1 << byteMode
)

// segBits[m] returns the encoded size in bits, mode indicator and
// character count included, of n bytes in mode m at size class c.
var segBits = [modes]func(n, c int) int{
	func(n, c int) int { return 14 + c*2 + (10*n+2)/3 },
	func(n, c int) int { return 13 + c*2 + (11*n+1)/2 },
	func(n, c int) int { return 12 + (c<<1>>c+n)*8 },
}

type (
	// segment is a run of payload bytes encoded in one mode,
	// linked to the rest of the chain.
	segment struct {
		next   *segment
		start  int
		n      int  // length in bytes
		weight int  // encoded size of the chain in bits
		mode   byte // encoding mode
	}

	// span is a maximal run of bytes encodable in the same modes.
	span struct {
		start int
		n     int
		modes byte // bit field of valid encoding modes
		seg   [modes]segment
	}
)

// spans splits payload into spans of bytes encodable in the same modes.
func spans(payload []byte) []span {
	if len(payload) == 0 {
		return nil
	}
	const (
		alpha = 0x07ff_fffe_07ff_ec31 // SPACE $% *+ -./ [0-9] : [A-Z]
		digit = 0x0000_0000_03ff_0000 // [0-9]
	)

	m := make([]byte, len(payload))
	common := ^byte(0) // modes valid for every byte
	count := 0
	prev := byte(0)
	for i, b := range payload {
		v := byte(byteModes)
		if bit := uint64(1) << (uint(b) - ' '); digit&bit != 0 {
			v = numModes
		} else if alpha&bit != 0 {
			v = alphaModes
		}
		m[i] = v
		if v != prev {
			common &= v
			count++
			prev = v
		}
	}

	// A mode valid everywhere makes the wider common modes useless.
	keep := ^common | -common

	sp := make([]span, 0, count)
	for i, v := range m {
		if i == 0 || v != m[i-1] {
			sp = append(sp, span{start: i, modes: v & keep})
		}
		sp[len(sp)-1].n++
	}
	return sp
}

// split returns the cheapest chain of segments for the spans at size
// class c, or nil if sp is empty.
//
// The last span gets one segment per valid mode.  Walking backwards,
// each span i in mode j links to the best segment of span i+1,
// merging with it when both use mode j.  The cheapest segment of the
// first span heads the chain.
func split(sp []span, c int) *segment {
	const inf = 1 << 30
	last := len(sp) - 1
	if last < 0 {
		return nil
	}
	for j := byte(0); j < modes; j++ {
		s := &sp[last].seg[j]
		*s = segment{weight: inf}
		if sp[last].modes>>j&1 != 0 {
			*s = segment{
				start:  sp[last].start,
				n:      sp[last].n,
				weight: segBits[j](sp[last].n, c),
				mode:   j,
			}
		}
	}

	for i := last - 1; i >= 0; i-- {
		v := &sp[i]
		for j := byte(0); j < modes; j++ {
			s := &v.seg[j]
			*s = segment{weight: inf}
			if v.modes>>j&1 == 0 {
				continue
			}
			for k := byte(0); k < modes; k++ {
				next := &sp[i+1].seg[k]
				if next.weight == inf {
					continue
				}
				cand := segment{next: next, start: v.start, n: v.n, mode: j}
				if k == j {
					cand.n += next.n
					cand.next = next.next
				}
				cand.weight = segBits[j](cand.n, c)
				if cand.next != nil {
					cand.weight += cand.next.weight
				}
				if cand.weight < s.weight {
					*s = cand
				}
			}
		}
	}

	best := &sp[0].seg[0]
	for j := 1; j < modes; j++ {
		if sp[0].seg[j].weight < best.weight {
			best = &sp[0].seg[j]
		}
	}
	return best
}

// encodings returns the payload split into coding segments for
// version v.
func encodings(payload []byte, v Version) []coding.Encoding {
	var enc []coding.Encoding
	for s := split(spans(payload), v.class()); s != nil; s = s.next {
		text := string(payload[s.start : s.start+s.n])
		switch s.mode {
		case numMode:
			enc = append(enc, coding.Num(text))
		case alphaMode:
			enc = append(enc, coding.Alpha(text))
		default:
			enc = append(enc, coding.String(text))
		}
	}
	return enc
}
