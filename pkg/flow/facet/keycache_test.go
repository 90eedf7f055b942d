// Copyright 2025 The Pulsegraph Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package facet

import (
	"testing"

	"github.com/pulsegraph/pulsegraph/pkg/flow"
	"github.com/stretchr/testify/require"
)

func TestKeyCacheBasics(t *testing.T) {
	c := makeKeyCache()

	_, ok := c.get(1)
	require.False(t, ok)

	c.set(1, flow.Key("a"))
	c.set(2, flow.Key("b"))
	k, ok := c.get(1)
	require.True(t, ok)
	require.Equal(t, flow.Key("a"), k)
	require.Equal(t, 2, c.len())

	// Overwrite is not a deletion.
	c.set(1, flow.Key("c"))
	require.Equal(t, 0, c.empty)
	require.Equal(t, 2, c.len())
}

func TestKeyCacheDelete(t *testing.T) {
	c := makeKeyCache()
	c.set(1, flow.Key("a"))
	c.set(2, flow.Key("b"))

	c.del(1)
	require.Equal(t, 1, c.empty)
	_, ok := c.get(1)
	require.False(t, ok)

	// Deleting an absent entry is a no-op and does not inflate the
	// reclaimable count.
	c.del(1)
	c.del(99)
	require.Equal(t, 1, c.empty)
}

func TestKeyCacheClean(t *testing.T) {
	c := makeKeyCache()
	for id := int64(1); id <= 100; id++ {
		c.set(id, flow.Key("k"))
	}
	for id := int64(1); id <= 60; id++ {
		c.del(id)
	}
	require.Equal(t, 60, c.empty)
	require.Equal(t, 40, c.len())

	c.clean()
	require.Equal(t, 0, c.empty)
	require.Equal(t, 40, c.len())
	for id := int64(61); id <= 100; id++ {
		k, ok := c.get(id)
		require.True(t, ok)
		require.Equal(t, flow.Key("k"), k)
	}
}
