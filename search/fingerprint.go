// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package search

import (
	"encoding/hex"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// encMode encodes with Core Deterministic Encoding (RFC 8949 §4.2),
// so equal outcomes produce equal bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("search: CBOR encoder initialization failed: " + err.Error())
	}
}

// decision is the part of an outcome that identifies the symbol.
type decision struct {
	Version int    `cbor:"1,keyasint"`
	Level   int    `cbor:"2,keyasint"`
	Size    int    `cbor:"3,keyasint"`
	Matrix  []byte `cbor:"4,keyasint"`
	Allowed []byte `cbor:"5,keyasint,omitempty"`
}

// Fingerprint returns the hex BLAKE3 digest of the outcome's version,
// level, module matrix and allowed region.  Identical requests yield
// identical fingerprints.
func (o *Outcome) Fingerprint() string {
	d := decision{
		Version: int(o.Matrix.Version),
		Level:   int(o.Matrix.Level),
		Size:    o.Matrix.Size(),
		Matrix:  o.Matrix.Dark.Bitmap,
	}
	if o.Allowed != nil {
		d.Allowed = o.Allowed.Bitmap
	}
	data, err := encMode.Marshal(&d)
	if err != nil {
		panic("search: fingerprint encoding failed: " + err.Error())
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
