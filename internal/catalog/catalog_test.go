// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "qrshape.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return c
}

func record(id, payload string) *Record {
	return &Record{
		ID:          id,
		Payload:     payload,
		Version:     3,
		ECC:         "H",
		Fingerprint: "f-" + id,
		PNGPath:     "qr/" + id + ".png",
		SVGPath:     "qr/" + id + ".svg",
		Active:      true,
	}
}

func TestMigrations(t *testing.T) {
	c := openTest(t)
	v, err := c.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qrshape.db")
	c, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, c.Insert(context.Background(), record("a", "kept")))
	require.NoError(t, c.Close())

	c, err = Open(path, nil)
	require.NoError(t, err)
	defer c.Close()
	r, err := c.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "kept", r.Payload)
}

func TestInsertGet(t *testing.T) {
	ctx := context.Background()
	c := openTest(t)
	in := record("a1", "https://example.com")
	in.Passes = 2
	in.MaskPath = "qr/a1_mask.png"
	require.NoError(t, c.Insert(ctx, in))
	assert.False(t, in.Created.IsZero())

	got, err := c.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, in, got)

	_, err = c.Get(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Error(t, c.Insert(ctx, record("a1", "duplicate")))
}

func TestList(t *testing.T) {
	ctx := context.Background()
	c := openTest(t)
	for _, r := range []*Record{
		record("r1", "https://example.com/one"),
		record("r2", "hello"),
		record("r3", "https://example.com/100%_off"),
	} {
		require.NoError(t, c.Insert(ctx, r))
	}
	_, err := c.SetActive(ctx, "r2", false)
	require.NoError(t, err)

	ids := func(rs []*Record) []string {
		var s []string
		for _, r := range rs {
			s = append(s, r.ID)
		}
		return s
	}

	rs, err := c.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r2", "r1"}, ids(rs))

	rs, err = c.List(ctx, Filter{Query: "example"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r1"}, ids(rs))

	rs, err = c.List(ctx, Filter{Query: "100%_"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3"}, ids(rs))

	active := true
	rs, err = c.List(ctx, Filter{Active: &active})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r1"}, ids(rs))

	rs, err = c.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3"}, ids(rs))
}

func TestSetActive(t *testing.T) {
	ctx := context.Background()
	c := openTest(t)
	require.NoError(t, c.Insert(ctx, record("s", "x")))
	before, err := c.Get(ctx, "s")
	require.NoError(t, err)

	r, err := c.SetActive(ctx, "s", false)
	require.NoError(t, err)
	assert.False(t, r.Active)
	assert.True(t, r.Updated.After(before.Updated))
	assert.Equal(t, before.Created, r.Created)

	_, err = c.SetActive(ctx, "missing", true)
	assert.True(t, errors.Is(err, ErrNotFound))
}
