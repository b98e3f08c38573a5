// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestUsage(t *testing.T) {
	registerFlags()
	var b bytes.Buffer
	printUsage(&b)
	out := b.String()
	if strings.Contains(out, "[-1]") {
		t.Errorf("usage shows the unset threshold:\n%s", out)
	}
	for _, s := range []string{"Usage: ", "-T", "mask threshold", "[400]", "[string ...]"} {
		if !strings.Contains(out, s) {
			t.Errorf("usage lacks %q:\n%s", s, out)
		}
	}
}
