// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/unixdj/qrshape"
	"github.com/unixdj/qrshape/internal/catalog"
	"github.com/unixdj/qrshape/internal/storage"
	"github.com/unixdj/qrshape/verify"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, a ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, a...))
}

// A record is the JSON view of a catalog record.
type record struct {
	ID          string    `json:"code_id"`
	Data        string    `json:"data"`
	Active      bool      `json:"active"`
	Version     int       `json:"version"`
	ECC         string    `json:"ecc"`
	Passes      int       `json:"passes"`
	Fingerprint string    `json:"fingerprint"`
	PNG         string    `json:"image_url_png"`
	SVG         string    `json:"image_url_svg"`
	Mask        string    `json:"mask_url,omitempty"`
	Logo        string    `json:"logo_url,omitempty"`
	Created     time.Time `json:"created_at"`
	Updated     time.Time `json:"updated_at"`
}

func view(r *catalog.Record) record {
	return record{
		ID:          r.ID,
		Data:        r.Payload,
		Active:      r.Active,
		Version:     r.Version,
		ECC:         r.ECC,
		Passes:      r.Passes,
		Fingerprint: r.Fingerprint,
		PNG:         storage.URLFor(r.PNGPath),
		SVG:         storage.URLFor(r.SVGPath),
		Mask:        storage.URLFor(r.MaskPath),
		Logo:        storage.URLFor(r.LogoPath),
		Created:     r.Created,
		Updated:     r.Updated,
	}
}

// options are the render options of a generate request.  Absent
// fields keep the configured defaults.
type options struct {
	Size        *int    `json:"size"`
	ECC         *string `json:"ecc"`
	FgColor     *string `json:"fg_color"`
	BgColor     *string `json:"bg_color"`
	Margin      *int    `json:"margin"`
	Threshold   *int    `json:"threshold"`
	LogoEnabled bool    `json:"logo_enabled"`
}

func (o *options) apply(req *qrshape.Request) error {
	if o.Size != nil {
		req.Size = *o.Size
	}
	if o.Margin != nil {
		req.Margin = *o.Margin
	}
	if o.ECC != nil {
		l, err := qrshape.ParseLevel(*o.ECC)
		if err != nil {
			return badRequest("ecc: %v", err)
		}
		req.Level = l
	}
	if o.FgColor != nil {
		c, err := qrshape.ParseColor(*o.FgColor)
		if err != nil {
			return badRequest("fg_color: %v", err)
		}
		req.Foreground = c
	}
	if o.BgColor != nil {
		c, err := qrshape.ParseColor(*o.BgColor)
		if err != nil {
			return badRequest("bg_color: %v", err)
		}
		req.Background = c
	}
	req.Threshold = o.Threshold
	return nil
}

// formFile returns the contents of the named multipart file, or nil
// if it is absent.
func formFile(r *http.Request, name string) ([]byte, error) {
	f, _, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, badRequest("%s: %v", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, badRequest("%s: %v", name, err)
	}
	return data, nil
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	limit := s.Config.Limits.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return badRequest("%v", err)
	}
	return nil
}

var logoExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, err)
		return
	}
	data := r.FormValue("data")
	if data == "" {
		s.writeError(w, badRequest("data is required"))
		return
	}
	req := s.Config.Request([]byte(data))
	var opts options
	if o := r.FormValue("options"); o != "" {
		if err := json.Unmarshal([]byte(o), &opts); err != nil {
			s.writeError(w, badRequest("options: %v", err))
			return
		}
	}
	if err := opts.apply(req); err != nil {
		s.writeError(w, err)
		return
	}
	maskData, err := formFile(r, "mask_image")
	if err != nil {
		s.writeError(w, err)
		return
	}
	logoData, err := formFile(r, "logo_image")
	if err != nil {
		s.writeError(w, err)
		return
	}
	req.Mask = maskData
	if len(logoData) != 0 {
		// A logo covers modules; only H leaves enough redundancy.
		req.Level = qrshape.H
		if opts.LogoEnabled {
			req.Logo = logoData
		}
	}

	res, err := s.Renderer.Render(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.persist(r, res, data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view(rec))
}

// persist saves the artifacts of res and records them.  Nothing is
// left behind on failure.
func (s *Server) persist(r *http.Request, res *qrshape.Result, data string) (*catalog.Record, error) {
	rec := &catalog.Record{
		ID:          res.ID,
		Payload:     data,
		Version:     res.Version,
		ECC:         res.Level.String(),
		Passes:      res.Passes,
		Fingerprint: res.Fingerprint,
		Active:      true,
	}
	var saved []string
	save := func(dst *string, name string, b []byte) error {
		if b == nil {
			return nil
		}
		n, err := s.Store.Save(name, b)
		if err != nil {
			return err
		}
		saved = append(saved, n)
		*dst = n
		return nil
	}
	base := "qr/" + res.ID
	err := save(&rec.PNGPath, base+".png", res.Raster)
	if err == nil {
		err = save(&rec.SVGPath, base+".svg", res.Vector)
	}
	if err == nil {
		err = save(&rec.MaskPath, base+"_mask.png", res.Mask)
	}
	if err == nil && res.Logo != nil {
		ext, ok := logoExt[http.DetectContentType(res.Logo)]
		if !ok {
			ext = ".img"
		}
		err = save(&rec.LogoPath, base+"_logo"+ext, res.Logo)
	}
	if err == nil {
		err = s.Catalog.Insert(r.Context(), rec)
	}
	if err != nil {
		if rerr := s.Store.Remove(saved...); rerr != nil {
			s.Logger.Warn("removing artifacts", "id", res.ID, "err", rerr)
		}
		return nil, err
	}
	s.Logger.Info("generated", "id", rec.ID, "version", rec.Version,
		"ecc", rec.ECC, "passes", rec.Passes, "attempts", res.Attempts)
	return rec, nil
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{Query: q.Get("query")}
	if a := q.Get("active"); a != "" {
		active, err := strconv.ParseBool(a)
		if err != nil {
			s.writeError(w, badRequest("active: %q", a))
			return
		}
		f.Active = &active
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			s.writeError(w, badRequest("limit: %q", l))
			return
		}
		f.Limit = n
	}
	rs, err := s.Catalog.List(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]record, 0, len(rs))
	for _, rec := range rs {
		out = append(out, view(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view(rec))
}

type updateRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var u updateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		s.writeError(w, badRequest("%v", err))
		return
	}
	id := mux.Vars(r)["id"]
	if u.Active == nil {
		// Nothing to change.
		s.get(w, r)
		return
	}
	rec, err := s.Catalog.SetActive(r.Context(), id, *u.Active)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view(rec))
}

func (s *Server) static(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, storage.URLPrefix)
	f, err := s.Store.Open(name)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidName) || errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		s.writeError(w, err)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		http.NotFound(w, r)
		return
	}
	if path.Ext(name) == ".svgz" {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Add("Vary", "Accept-Encoding")
		if !acceptsGzip(r.Header.Get("Accept-Encoding")) {
			data, err := s.Store.ReadAll(name)
			if err != nil {
				s.writeError(w, err)
				return
			}
			http.ServeContent(w, r, name, fi.ModTime(), bytes.NewReader(data))
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
	}
	http.ServeContent(w, r, name, fi.ModTime(), f)
}

// acceptsGzip reports whether an Accept-Encoding header value admits
// gzip.
func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(part, ";")
		coding = strings.TrimSpace(coding)
		if !strings.EqualFold(coding, "gzip") && coding != "*" {
			continue
		}
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				return false
			}
		}
		return true
	}
	return false
}

type decodeResponse struct {
	Decoded *string `json:"decoded"`
	Status  string  `json:"status"`
}

func (s *Server) testDecode(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, err)
		return
	}
	img, err := formFile(r, "image")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if img == nil {
		s.writeError(w, badRequest("image is required"))
		return
	}
	if err := s.Renderer.Limits.CheckImage("image", img); err != nil {
		s.writeError(w, err)
		return
	}
	o := s.Verifier.Verify(img)
	resp := decodeResponse{Status: o.Status.String()}
	if o.Status == verify.Decoded {
		resp.Decoded = &o.Payload
	}
	writeJSON(w, http.StatusOK, resp)
}
