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

	"github.com/stretchr/testify/require"
)

func TestTargetListActivationOrder(t *testing.T) {
	var l targetList
	a, b, c := &Subflow{}, &Subflow{}, &Subflow{}
	l.activate(a)
	l.activate(b)
	l.activate(c)
	require.Equal(t, 3, l.len())

	var got []*Subflow
	l.forEach(func(sf *Subflow) { got = append(got, sf) })
	require.Equal(t, []*Subflow{a, b, c}, got)
}

func TestTargetListResetReusesCapacity(t *testing.T) {
	var l targetList
	a, b := &Subflow{}, &Subflow{}
	l.activate(a)
	l.activate(b)

	l.reset()
	require.Equal(t, 0, l.len())
	// Previously active slots are nulled so detached subflows are not
	// kept alive by the list.
	for _, slot := range l.buf {
		require.Nil(t, slot)
	}

	// Re-activation reuses the buffer without growing it.
	l.activate(b)
	require.Equal(t, 1, l.len())
	require.Equal(t, 2, cap(l.buf))

	var got []*Subflow
	l.forEach(func(sf *Subflow) { got = append(got, sf) })
	require.Equal(t, []*Subflow{b}, got, "iteration covers only the active prefix")
}
