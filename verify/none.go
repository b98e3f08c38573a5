// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build noqrdecode

package verify

// Default returns a Verifier without a decoder.
func Default() Verifier { return Unavailable() }
