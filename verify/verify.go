// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package verify checks rendered symbols by decoding them.

Decoding is an optional capability.  A Verifier built without a
decoder reports NoDecoder for every input instead of failing, so
callers never need to distinguish "cannot check" from an error.

Default returns a verifier backed by gozxing, unless the program is
built with the noqrdecode tag.
*/
package verify

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// A Status is the result of a verification.
type Status int

const (
	NoDecoder    Status = iota // no decoder
	NotDecodable               // decoder found no symbol
	Decoded                    // symbol decoded
)

var statusNames = [...]string{"unavailable", "not_decodable", "decoded"}

func (s Status) String() string {
	if 0 <= s && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// An Outcome is the result of verifying one image.
type Outcome struct {
	Status  Status
	Payload string // valid if Status is Decoded
}

// A Verifier decodes raster images.
type Verifier interface {
	Verify(raster []byte) Outcome
}

// A Decoder extracts the payload of a QR symbol from an image.
type Decoder interface {
	Decode(img image.Image) (string, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(image.Image) (string, error)

func (f DecoderFunc) Decode(img image.Image) (string, error) { return f(img) }

// Available returns a Verifier that decodes with d.
func Available(d Decoder) Verifier { return available{d} }

// Unavailable returns a Verifier without a decoder.
func Unavailable() Verifier { return unavailable{} }

type available struct {
	d Decoder
}

func (a available) Verify(raster []byte) Outcome {
	img, _, err := image.Decode(bytes.NewReader(raster))
	if err != nil {
		return Outcome{Status: NotDecodable}
	}
	s, err := a.d.Decode(img)
	if err != nil {
		return Outcome{Status: NotDecodable}
	}
	return Outcome{Status: Decoded, Payload: s}
}

type unavailable struct{}

func (unavailable) Verify([]byte) Outcome { return Outcome{Status: NoDecoder} }
