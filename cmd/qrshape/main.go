// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Qrshape renders a QR code confined to the light area of a mask
// image.
package main

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/pborman/getopt/v2"
	"github.com/unixdj/qrshape"
	"github.com/unixdj/qrshape/render"
	"github.com/unixdj/qrshape/verify"
	"golang.org/x/text/encoding/charmap"
)

var g = struct {
	fn      string // output filename
	mask    string // mask image filename
	logo    string // logo image filename
	format  string // output file format
	bg, fg  rgba   // colours
	latin1  bool   // Latin-1 payload
	decode  bool   // verify by decoding
	verbose bool   // debug logging
	margin  int    // quiet zone in modules
	size    int    // raster side in pixels
	thresh  *int   // mask threshold; nil for Otsu's method
	lev     qrshape.Level
}{
	bg: rgba{0xff, 0xff, 0xff, 0xff},
	fg: rgba{0x00, 0x00, 0x00, 0xff},
}

func printUsage(w io.Writer) {
	cl := getopt.CommandLine
	prog := cl.Program()
	ul := make([]string, 1, 4)
	ul[0] = cl.UsageLine() + " [string ...]"
	ml := max(70-len("Usage: ")-1-len(prog), 0)
	for i := 0; len(ul[i]) > ml; i++ {
		s := ul[i]
		n := ml - 1
		for n > 0 && (s[n] != ' ' || s[n+1] != '[') {
			n--
		}
		ul = append(ul, s[n+1:])
		ul[i] = s[:max(n, 0)]
		ml = 60
	}
	fmt.Fprint(w, "Shaped QR code generator\nUsage: ", prog, " ",
		strings.Join(ul, "\n          "), `
If no string is given, data is read from standard input and the final
newline is stripped.  Dark areas of the mask image are kept clear of
dark modules; the threshold is chosen by Otsu's method unless -T is
given.

`)
	var b bytes.Buffer
	cl.PrintOptions(&b)
	bb := b.Bytes()
	if n := bytes.Index(bb, []byte(" [-1]")); n >= 0 {
		w.Write(bb[:n])
		bb = bb[n+len(" [-1]"):]
	}
	w.Write(bb)
}

type opt func()

func (opt) String() string                    { return "" }
func (o opt) Set(string, getopt.Option) error { o(); return nil }

func usage() {
	printUsage(os.Stderr)
	os.Exit(2)
}

func help() {
	printUsage(os.Stdout)
	os.Exit(0)
}

func version() {
	fmt.Println(`qrshape version 0.1.0
Copyright (c) 2024 Vadim Vygonets`)
	os.Exit(0)
}

type rgba color.NRGBA

func (c *rgba) nrgba() color.NRGBA { return color.NRGBA(*c) }

func (c *rgba) String() string {
	switch *c {
	case rgba{0x00, 0x00, 0x00, 0xff}:
		return "black"
	case rgba{0xff, 0xff, 0xff, 0xff}:
		return "white"
	}
	return qrshape.FormatColor(c.nrgba())
}

func (c *rgba) Set(s string, _ getopt.Option) error {
	v, err := qrshape.ParseColor(s)
	if err != nil {
		return err
	}
	*c = rgba{v.R, v.G, v.B, v.A}
	return nil
}

var formats = []string{"png", "svg", "eps", "pbm", "utf8", "ascii"}

func parseFlags() {
	set := registerFlags()
	getopt.Parse()
	set()
}

// registerFlags defines the command line options.  The returned
// function copies their values into g after parsing.
func registerFlags() func() {
	getopt.SetUsage(usage)
	getopt.Flag(opt(help), 'h', "show this help").SetFlag()
	getopt.Flag(opt(version), 'V', "print version and copyright").SetFlag()
	getopt.FlagLong(&g.bg, "background", 'B', `background colour; see -F`,
		"RGB[A]|name")
	getopt.FlagLong(&g.fg, "foreground", 'F', `foreground colour `+
		`as 3, 4, 6 or 8 hex digits, optionally prefixed with "#", `+
		`or a colour name`, "RGB[A]|name")
	getopt.Flag(&g.mask, 'M', "mask image", "file")
	getopt.Flag(&g.logo, 'L', "logo image drawn in the middle "+
		"of raster output", "file")
	getopt.Flag(&g.latin1, '1', "convert input to Latin-1")
	getopt.Flag(&g.decode, 'd', "decode the raster and report the result")
	getopt.Flag(&g.verbose, 'v', "log the search")
	fno := getopt.Flag(&g.fn, 'o', `output file, or "-" for `+
		`standard output`, "file")
	margin := getopt.Unsigned('m', 4, &getopt.UnsignedLimit{Base: 0, Bits: 8, Min: 0, Max: 255},
		"quiet zone modules", "margin")
	size := getopt.Unsigned('s', 400,
		&getopt.UnsignedLimit{Base: 0, Bits: 16, Min: 1, Max: 1 << 14},
		`raster pixels per side; types eps and pbm scale modules `+
			`to the nearest whole fraction of it`, "size")
	thresh := getopt.Signed('T', -1, &getopt.SignedLimit{Base: 0, Bits: 16, Min: 0, Max: 255},
		"mask threshold", "0-255")
	lev := getopt.Enum('l',
		[]string{"l", "m", "q", "h", "L", "M", "Q", "H"}, "h",
		"error correction level, lowest to highest", "l|m|q|h")
	ff := getopt.Enum('t', formats, "", `output format, one of: `+
		strings.Join(formats, ", ")+
		`; if no -o is given and standard output is a TTY, `+
		`default is utf8, otherwise png`, "type")

	return func() {
		g.margin = int(*margin)
		g.size = int(*size)
		g.lev, _ = qrshape.ParseLevel(*lev)
		if getopt.IsSet('T') {
			t := int(*thresh)
			g.thresh = &t
		}
		if *ff == "" {
			if !fno.Seen() && isatty.IsTerminal(uintptr(syscall.Stdout)) {
				*ff = "utf8"
			} else {
				*ff = "png"
			}
		}
		g.format = *ff
		if g.fn == "-" {
			g.fn = ""
		}
	}
}

func readFile(name string) []byte {
	if name == "" {
		return nil
	}
	b, err := os.ReadFile(name)
	if err != nil {
		log.Fatalln(err)
	}
	return b
}

func main() {
	log.SetFlags(0)
	parseFlags()

	var s string
	if args := getopt.Args(); len(args) != 0 {
		s = strings.Join(args, " ")
	} else {
		var b strings.Builder
		if _, err := io.Copy(&b, os.Stdin); err != nil {
			log.Fatalln(err)
		}
		s, _ = strings.CutSuffix(
			strings.ReplaceAll(b.String(), "\r\n", "\n"), "\n")
	}
	if g.latin1 {
		var err error
		if s, err = charmap.ISO8859_1.NewEncoder().String(s); err != nil {
			log.Fatalln("-1:", err)
		}
	}

	req := qrshape.NewRequest([]byte(s))
	req.Level = g.lev
	req.Margin = g.margin
	req.Size = g.size
	req.Foreground = g.fg.nrgba()
	req.Background = g.bg.nrgba()
	req.Threshold = g.thresh
	req.Mask = readFile(g.mask)
	req.Logo = readFile(g.logo)

	var r qrshape.Renderer
	if g.verbose {
		r.Logger = slog.New(slog.NewTextHandler(os.Stderr,
			&slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	res, err := r.Render(req)
	if err != nil {
		log.Fatalln(err)
	}
	if g.decode {
		check(res.Raster, s)
	}
	write(res, req)
}

// check decodes raster and reports whether it holds s.
func check(raster []byte, s string) {
	o := verify.Default().Verify(raster)
	switch o.Status {
	case verify.NoDecoder:
		log.Println("decode: no decoder in this build")
	case verify.NotDecodable:
		log.Fatalln("decode: not decodable")
	default:
		if o.Payload != s {
			log.Fatalf("decode: got %q", o.Payload)
		}
		log.Println("decode: ok")
	}
}

func write(res *qrshape.Result, req *qrshape.Request) {
	var w io.Writer = os.Stdout
	var f *os.File
	if g.fn != "" {
		var err error
		if f, err = os.OpenFile(g.fn, os.O_WRONLY|os.O_CREATE|os.O_TRUNC,
			0666); err != nil {
			log.Fatalln(err)
		}
		w = f
	}
	o := render.Options{
		Foreground: req.Foreground,
		Background: req.Background,
		Margin:     req.Margin,
		Size:       req.Size,
	}
	p := res.Symbol.Painted
	scale := max(o.Size/o.Cells(p.Size), 1)
	var err error
	switch g.format {
	case "png":
		_, err = io.Copy(w, bytes.NewReader(res.Raster))
	case "svg":
		_, err = w.Write(res.Vector)
	case "eps":
		err = render.EPS(w, p, o, scale)
	case "pbm":
		err = render.PBM(w, p, o, scale)
	case "utf8":
		err = render.UTF8(w, p, o.Margin)
	case "ascii":
		err = render.ASCII(w, p, o.Margin)
	}
	if f != nil && err == nil {
		err = f.Close()
	}
	if err != nil {
		log.Fatalln(err)
	}
}
