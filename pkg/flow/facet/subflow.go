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
	"context"

	"github.com/pulsegraph/pulsegraph/pkg/flow"
)

// Detacher is the optional teardown capability of a subflow's root
// operator. When the registry removes an empty subflow it calls
// DetachSubflow on the root if the root implements it.
type Detacher interface {
	DetachSubflow()
}

// Subflow materializes the downstream computation of a single partition.
// It buffers the tuple events routed to its key into a forked pulse and
// delivers that pulse to its downstream root once per generation.
type Subflow struct {
	key    flow.Key
	rootOp flow.Operator
	root   *flow.Node

	// pulse is the sub-pulse under construction for the current
	// generation, forked with NoSource so the subflow's base state is
	// empty.
	pulse *flow.Pulse

	// stamp is the generation at which the subflow was last reset. The
	// facet operator compares it against the incoming pulse's stamp to
	// activate each subflow at most once per pulse.
	stamp int64

	// count tracks live membership: adds minus removals over the
	// subflow's lifetime. A subflow with count zero is eligible for
	// removal by a cleanup pass.
	count int
}

func newSubflow(key flow.Key, p *flow.Pulse, rootOp flow.Operator, root *flow.Node) *Subflow {
	return &Subflow{
		key:    key,
		rootOp: rootOp,
		root:   root,
		pulse:  p.Fork(flow.NoSource),
		stamp:  p.Stamp(),
	}
}

// Key returns the partition key this subflow serves.
func (sf *Subflow) Key() flow.Key { return sf.key }

// Count returns the subflow's live member count.
func (sf *Subflow) Count() int { return sf.count }

// init resets the subflow for a new pulse generation.
func (sf *Subflow) init(p *flow.Pulse) {
	sf.pulse = p.Fork(flow.NoSource)
	sf.stamp = p.Stamp()
}

func (sf *Subflow) rem(t *flow.Tuple) {
	sf.count--
	sf.pulse.Append(flow.Rem, t)
}

func (sf *Subflow) add(t *flow.Tuple) {
	sf.count++
	sf.pulse.Append(flow.Add, t)
}

func (sf *Subflow) mod(t *flow.Tuple) {
	sf.pulse.Append(flow.Mod, t)
}

// flush delivers the accumulated sub-pulse to the downstream root.
func (sf *Subflow) flush(ctx context.Context) error {
	return sf.root.Push(ctx, sf.pulse)
}
