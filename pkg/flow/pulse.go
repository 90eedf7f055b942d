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

// Class identifies one or more change classes carried by a Pulse. The
// constants are bit flags and can be or-ed together when visiting.
type Class uint8

const (
	// Rem marks tuples removed from the collection this pulse.
	Rem Class = 1 << iota
	// Add marks tuples added to the collection this pulse.
	Add
	// Mod marks tuples whose values changed this pulse.
	Mod
	// Reflow marks tuples that did not change this pulse but whose
	// derived placement must be re-evaluated because a derivation
	// criterion changed.
	Reflow

	// All covers every change class.
	All = Rem | Add | Mod | Reflow
)

// ForkFlag adjusts what a forked pulse inherits from its parent.
type ForkFlag uint8

// NoSource forks a pulse without the parent's source collection, so the
// fork starts from an empty base state.
const NoSource ForkFlag = 1 << iota

// Pulse is one batch of record-level changes, processed atomically in a
// single scheduling step. A pulse carries disjoint sets of removed,
// added, modified, and reflowed tuples, the set of fields touched by the
// modifications, and the generation stamp of the Run that produced it.
type Pulse struct {
	df    *Dataflow
	stamp int64

	rem    []*Tuple
	add    []*Tuple
	mod    []*Tuple
	reflow []*Tuple

	// source is the full collection backing this pulse, after the pulse's
	// own removals and additions have been applied. Forks with NoSource
	// drop it.
	source []*Tuple

	// fields holds the names of tuple fields touched by this pulse's
	// modifications.
	fields map[string]struct{}

	// clean requests a cleanup pass from stateful operators once the
	// pulse has fully propagated.
	clean bool
}

// Dataflow returns the engine handle that produced this pulse.
func (p *Pulse) Dataflow() *Dataflow { return p.df }

// Stamp returns the generation stamp of the pulse.
func (p *Pulse) Stamp() int64 { return p.stamp }

// Clean reports whether this pulse requests a cleanup pass.
func (p *Pulse) Clean() bool { return p.clean }

// Changed reports whether the pulse carries any change of the given
// classes.
func (p *Pulse) Changed(c Class) bool {
	return c&Rem != 0 && len(p.rem) > 0 ||
		c&Add != 0 && len(p.add) > 0 ||
		c&Mod != 0 && len(p.mod) > 0 ||
		c&Reflow != 0 && len(p.reflow) > 0
}

// Modified reports whether any of the named fields was touched by this
// pulse's modifications. With no arguments it reports whether any field
// at all was touched.
func (p *Pulse) Modified(fields ...string) bool {
	if len(p.fields) == 0 {
		return false
	}
	if len(fields) == 0 {
		return true
	}
	for _, f := range fields {
		if _, ok := p.fields[f]; ok {
			return true
		}
	}
	return false
}

// Visit invokes fn for every tuple in the given change classes, in
// Rem, Add, Mod, Reflow order. It stops and returns on the first error.
func (p *Pulse) Visit(c Class, fn func(*Tuple) error) error {
	for _, part := range []struct {
		class  Class
		tuples []*Tuple
	}{
		{Rem, p.rem},
		{Add, p.add},
		{Mod, p.mod},
		{Reflow, p.reflow},
	} {
		if c&part.class == 0 {
			continue
		}
		for _, t := range part.tuples {
			if err := fn(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// Len returns the number of tuples carried in the given change classes.
func (p *Pulse) Len(c Class) int {
	n := 0
	if c&Rem != 0 {
		n += len(p.rem)
	}
	if c&Add != 0 {
		n += len(p.add)
	}
	if c&Mod != 0 {
		n += len(p.mod)
	}
	if c&Reflow != 0 {
		n += len(p.reflow)
	}
	return n
}

// Source returns the collection backing this pulse. Forks taken with
// NoSource return nil.
func (p *Pulse) Source() []*Tuple { return p.source }

// Fork derives a new pulse sharing this pulse's stamp and engine handle
// but carrying no changes of its own. Operators that materialize derived
// changes (for example per-partition sub-pulses) append into the fork
// with Append.
func (p *Pulse) Fork(flags ForkFlag) *Pulse {
	fp := &Pulse{df: p.df, stamp: p.stamp, clean: p.clean}
	if flags&NoSource == 0 {
		fp.source = p.source
	}
	return fp
}

// Append adds a tuple to exactly one change class of the pulse. It is
// intended for operators filling a forked pulse; c must be a single
// class, not a mask.
func (p *Pulse) Append(c Class, t *Tuple) {
	switch c {
	case Rem:
		p.rem = append(p.rem, t)
	case Add:
		p.add = append(p.add, t)
	case Mod:
		p.mod = append(p.mod, t)
	case Reflow:
		p.reflow = append(p.reflow, t)
	default:
		panic("Append requires a single change class")
	}
}
