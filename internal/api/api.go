// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package api implements the HTTP interface of the qrshaped service.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/unixdj/qrshape"
	"github.com/unixdj/qrshape/internal/catalog"
	"github.com/unixdj/qrshape/internal/config"
	"github.com/unixdj/qrshape/internal/storage"
	"github.com/unixdj/qrshape/verify"
)

// A Server serves the QR code API.
type Server struct {
	Config   *config.Config
	Store    *storage.Store
	Catalog  *catalog.Catalog
	Renderer *qrshape.Renderer
	Verifier verify.Verifier
	Logger   *slog.Logger
}

// Handler returns the routes of s.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/qrcodes").Subrouter()
	api.HandleFunc("/generate", s.generate).Methods(http.MethodPost)
	api.HandleFunc("/test-decode", s.testDecode).Methods(http.MethodPost)
	api.HandleFunc("", s.list).Methods(http.MethodGet)
	api.HandleFunc("/", s.list).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.get).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.update).Methods(http.MethodPatch)

	r.PathPrefix(storage.URLPrefix).HandlerFunc(s.static).Methods(http.MethodGet, http.MethodHead)
	return r
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// An apiError is the body of an error response.
type apiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// errorKinds maps render errors to the kinds reported to clients.
var errorKinds = []struct {
	err  error
	kind string
}{
	{qrshape.ErrImageTooLarge, "image_too_large"},
	{qrshape.ErrDataCapacityExceeded, "data_capacity_exceeded"},
	{qrshape.ErrMaskInfeasible, "mask_infeasible"},
	{qrshape.ErrInvalidMaskImage, "invalid_mask_image"},
	{qrshape.ErrInvalidLogoImage, "invalid_logo_image"},
	{qrshape.ErrInvalidThreshold, "invalid_threshold"},
	{qrshape.ErrInvalidRequest, "invalid_request"},
}

// writeError writes err with the status its kind maps to.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			writeJSON(w, http.StatusUnprocessableEntity, apiError{k.kind, err.Error()})
			return
		}
	}
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		writeJSON(w, http.StatusRequestEntityTooLarge, apiError{"too_large", err.Error()})
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, apiError{"bad_request", err.Error()})
	case errors.Is(err, catalog.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{"not_found", "QR not found"})
	default:
		s.Logger.Error("internal error", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
