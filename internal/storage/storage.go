// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package storage keeps rendered artifacts in a local directory tree.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrInvalidName is returned for names that escape the store.
var ErrInvalidName = errors.New("storage: invalid name")

// URLPrefix is the URL path artifacts are served under.
const URLPrefix = "/static/"

// A Store is a directory of artifacts addressed by slash-separated
// relative names.
type Store struct {
	dir      string
	compress bool
}

// New returns a store rooted at dir, creating it if needed.
// If compress is set, SVG artifacts are stored gzipped as .svgz.
func New(dir string, compress bool) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return &Store{dir: dir, compress: compress}, nil
}

func (s *Store) path(name string) (string, error) {
	if name == "" || strings.Contains(name, `\`) || !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, filepath.FromSlash(name)), nil
}

// Save writes data under name and returns the name it was stored
// under, which gains a "z" suffix when an SVG is compressed.
func (s *Store) Save(name string, data []byte) (string, error) {
	if s.compress && path.Ext(name) == ".svg" {
		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return "", err
		}
		if _, err := zw.Write(data); err != nil {
			return "", err
		}
		if err := zw.Close(); err != nil {
			return "", err
		}
		name, data = name+"z", buf.Bytes()
	}
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("storage: writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage: writing %s: %w", name, err)
	}
	if err := os.Rename(f.Name(), p); err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	return name, nil
}

// Open opens the artifact stored under name.
func (s *Store) Open(name string) (*os.File, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// ReadAll returns the contents of the artifact stored under name,
// decompressing .svgz artifacts.
func (s *Store) ReadAll(name string) ([]byte, error) {
	f, err := s.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	if path.Ext(name) == ".svgz" {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("storage: %s: %w", name, err)
		}
		defer zr.Close()
		r = zr
	}
	return io.ReadAll(r)
}

// Remove deletes the named artifacts, ignoring those that do not exist.
func (s *Store) Remove(names ...string) error {
	var errs []error
	for _, name := range names {
		p, err := s.path(name)
		if err == nil {
			err = os.Remove(p)
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// URLFor returns the URL path of the artifact stored under name.
func URLFor(name string) string {
	if name == "" {
		return ""
	}
	return URLPrefix + name
}
