// Copyright 2025 The Pulsegraph Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package flow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeKeyDeterministic(t *testing.T) {
	require.Equal(t, MakeKey("a", 1, true), MakeKey("a", 1, true))
	require.Equal(t, MakeKey(nil), MakeKey(nil))
}

func TestMakeKeyTypePrefixes(t *testing.T) {
	// Same rendered text, different types: must not collide.
	require.NotEqual(t, MakeKey("1"), MakeKey(1))
	require.NotEqual(t, MakeKey("true"), MakeKey(true))
	require.NotEqual(t, MakeKey(1), MakeKey(uint64(1)))
	require.NotEqual(t, MakeKey(1), MakeKey(1.0))
	require.NotEqual(t, MakeKey(nil), MakeKey("nil"))

	// All signed integer widths canonicalize identically, as do all
	// unsigned widths.
	require.Equal(t, MakeKey(int8(7)), MakeKey(int64(7)))
	require.Equal(t, MakeKey(7), MakeKey(int32(7)))
	require.Equal(t, MakeKey(uint8(7)), MakeKey(uint64(7)))
	require.Equal(t, MakeKey(uint16(7)), MakeKey(uint32(7)))
	require.Equal(t, MakeKey(uint(7)), MakeKey(uint64(7)))
	// As do both float widths, for values exactly representable in both.
	require.Equal(t, MakeKey(float32(0.5)), MakeKey(0.5))
}

func TestMakeKeyComposite(t *testing.T) {
	// Component boundaries must be unambiguous even when values contain
	// separator-looking or quoted text.
	require.NotEqual(t, MakeKey("a", "b"), MakeKey("a\x00b"))
	require.NotEqual(t, MakeKey("a", "b"), MakeKey("a,b"))
	require.NotEqual(t, MakeKey("a", ""), MakeKey("a"))
	require.NotEqual(t, MakeKey(`a"`, "b"), MakeKey("a", `"b`))
}

func TestFieldKey(t *testing.T) {
	kf := FieldKey("color", "size")
	require.Equal(t, []string{"color", "size"}, kf.Fields)

	a := &Tuple{id: 1, Values: map[string]interface{}{"color": "red", "size": 2}}
	b := &Tuple{id: 2, Values: map[string]interface{}{"color": "red", "size": 2, "other": "x"}}
	c := &Tuple{id: 3, Values: map[string]interface{}{"color": "red", "size": 3}}
	require.Equal(t, kf.Fn(a), kf.Fn(b))
	require.NotEqual(t, kf.Fn(a), kf.Fn(c))

	// A missing field keys as nil, distinct from any set value.
	d := &Tuple{id: 4, Values: map[string]interface{}{"color": "red"}}
	require.NotEqual(t, kf.Fn(a), kf.Fn(d))
}
