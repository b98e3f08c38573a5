// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verify

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestUnavailable(t *testing.T) {
	v := Unavailable()
	for _, in := range [][]byte{nil, []byte("junk"), pngBytes(t)} {
		if o := v.Verify(in); o.Status != NoDecoder || o.Payload != "" {
			t.Errorf("Verify(%.8q) = %+v", in, o)
		}
	}
}

func TestAvailable(t *testing.T) {
	v := Available(DecoderFunc(func(img image.Image) (string, error) {
		if img.Bounds().Dx() != 4 {
			return "", errors.New("wrong size")
		}
		return "payload", nil
	}))
	if o := v.Verify(pngBytes(t)); o.Status != Decoded || o.Payload != "payload" {
		t.Errorf("Verify(png) = %+v", o)
	}
	if o := v.Verify([]byte("junk")); o.Status != NotDecodable {
		t.Errorf("Verify(junk) = %+v", o)
	}

	fail := Available(DecoderFunc(func(image.Image) (string, error) {
		return "", errors.New("no symbol")
	}))
	if o := fail.Verify(pngBytes(t)); o.Status != NotDecodable {
		t.Errorf("failing decoder: %+v", o)
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{
		NoDecoder:    "unavailable",
		NotDecodable: "not_decodable",
		Decoded:      "decoded",
		Status(9):    "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}
