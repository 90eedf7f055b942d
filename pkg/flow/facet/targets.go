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

// targetList is a reusable, order-preserving list of the subflows
// touched during the current pulse. Only the first n slots are active;
// slots past n are stale leftovers from earlier pulses and are nulled by
// reset so the list does not keep detached subflows alive.
//
// Callers must not activate the same subflow twice within one pulse;
// the Facet operator guarantees this via the subflow stamp check.
type targetList struct {
	buf []*Subflow
	n   int
}

func (l *targetList) activate(sf *Subflow) {
	if l.n < len(l.buf) {
		l.buf[l.n] = sf
	} else {
		l.buf = append(l.buf, sf)
	}
	l.n++
}

func (l *targetList) reset() {
	for i := 0; i < l.n; i++ {
		l.buf[i] = nil
	}
	l.n = 0
}

func (l *targetList) len() int { return l.n }

// forEach visits the active prefix in activation order.
func (l *targetList) forEach(fn func(*Subflow)) {
	for i := 0; i < l.n; i++ {
		fn(l.buf[i])
	}
}
