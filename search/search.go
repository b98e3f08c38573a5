// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package search finds the smallest QR symbol whose dark modules fit
inside a shape mask.

The search is a bounded state machine over (version, pass).  Within a
pass the versions are tried from 1 upwards; a version the payload
does not fit in is skipped, and the first version whose dark modules
all fall inside the allowed region wins.  When every version fails,
the mask is dilated once more and the sweep restarts at version 1.
After MaxPasses dilations the mask is declared infeasible.

Without a mask the first version the payload fits in is accepted.
*/
package search

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/unixdj/qrshape/grid"
	"github.com/unixdj/qrshape/mask"
	"github.com/unixdj/qrshape/symbol"
)

const (
	// MaxPasses is the number of dilations tried after the
	// original mask fails.
	MaxPasses = 3
	// MaxAttempts bounds the number of states a search visits.
	MaxAttempts = int(symbol.MaxVersion) * (MaxPasses + 1)
)

var (
	ErrDataCapacityExceeded = errors.New("search: data capacity exceeded")
	ErrMaskInfeasible       = errors.New("search: mask infeasible")
)

// An Error reports a failed search.
type Error struct {
	Err      error // ErrDataCapacityExceeded or ErrMaskInfeasible
	Version  symbol.Version
	Passes   int
	Attempts int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v at version %d after %d dilations, %d attempts",
		e.Err, e.Version, e.Passes, e.Attempts)
}

func (e *Error) Unwrap() error { return e.Err }

// A Builder builds standard QR symbols.  It returns an error wrapping
// symbol.ErrCapacity when the payload does not fit.
type Builder interface {
	Build(payload []byte, v symbol.Version, l symbol.Level) (*symbol.Matrix, error)
}

// An Engine runs searches.  The zero value uses symbol.Builder and
// does not log.
type Engine struct {
	Builder Builder
	Logger  *slog.Logger
}

// An Outcome is the result of a successful search.
type Outcome struct {
	Matrix   *symbol.Matrix
	Allowed  *grid.Grid // nil without a mask
	Mask     *mask.Mask // mask after relaxation; nil without a mask
	Passes   int        // dilations applied
	Attempts int        // states visited
}

// state is a position in the search.
type state struct {
	version symbol.Version
	pass    int
}

// built memoizes builder results by version.
type built struct {
	m   *symbol.Matrix
	err error
}

// Search finds a symbol for payload at level l confined to m.
// A nil m searches without constraint.
func (e *Engine) Search(payload []byte, l symbol.Level, m *mask.Mask) (*Outcome, error) {
	b := e.Builder
	if b == nil {
		b = symbol.Builder{}
	}
	var cache [symbol.MaxVersion + 1]*built
	build := func(v symbol.Version) (*symbol.Matrix, error) {
		if cache[v] == nil {
			mat, err := b.Build(payload, v, l)
			cache[v] = &built{mat, err}
		}
		return cache[v].m, cache[v].err
	}

	s := state{version: symbol.MinVersion}
	for attempts := 1; attempts <= MaxAttempts; attempts++ {
		mat, err := build(s.version)
		switch {
		case errors.Is(err, symbol.ErrCapacity):
			if s.version == symbol.MaxVersion {
				return nil, &Error{ErrDataCapacityExceeded, s.version, s.pass, attempts}
			}
			s.version++
			continue
		case err != nil:
			return nil, err
		}

		if m == nil {
			return &Outcome{Matrix: mat, Attempts: attempts}, nil
		}
		allowed := Project(m.Gray, s.version)
		if mat.Dark.AndNot(allowed) == 0 {
			e.debug("mask satisfied", "version", s.version, "pass", s.pass,
				"attempts", attempts)
			return &Outcome{
				Matrix:   mat,
				Allowed:  allowed,
				Mask:     m,
				Passes:   s.pass,
				Attempts: attempts,
			}, nil
		}

		if s.version < symbol.MaxVersion {
			s.version++
			continue
		}
		if s.pass == MaxPasses {
			return nil, &Error{ErrMaskInfeasible, s.version, s.pass, attempts}
		}
		m = m.Dilate()
		s = state{version: symbol.MinVersion, pass: s.pass + 1}
		e.debug("relaxing mask", "pass", s.pass)
	}
	return nil, &Error{ErrMaskInfeasible, s.version, s.pass, MaxAttempts}
}

func (e *Engine) debug(msg string, args ...any) {
	if e.Logger != nil {
		e.Logger.Debug(msg, args...)
	}
}
