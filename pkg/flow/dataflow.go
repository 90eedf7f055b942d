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
	"context"

	"github.com/cockroachdb/logtags"
	"github.com/pulsegraph/pulsegraph/pkg/util/log"
)

// defaultCleanThreshold is the number of reclaimable cache entries a
// stateful operator tolerates before scheduling a compaction on its own,
// without waiting for an explicit cleanup pulse.
const defaultCleanThreshold = 16

// Dataflow owns a collection of tuples and a graph of operator nodes.
// Changes to the collection are buffered between calls to Run; each Run
// turns the buffer into one Pulse and propagates it through the graph.
//
// A Dataflow is strictly sequential: one pulse runs to completion before
// the next is admitted, and nothing in the engine is safe for concurrent
// use.
type Dataflow struct {
	stamp  int64
	nextID int64

	src  *Node
	data []*Tuple

	pending changeset

	reflowReq bool
	cleanReq  bool

	// after is the run-after queue: callbacks scheduled during pulse
	// propagation, drained once the pulse has fully propagated and before
	// the next pulse is admitted.
	after []func(context.Context)

	cleanThreshold int
	metrics        *Metrics
}

// Option configures a Dataflow.
type Option func(*Dataflow)

// WithCleanThreshold overrides the default reclaimable-entry threshold
// above which stateful operators schedule cache compaction.
func WithCleanThreshold(n int) Option {
	return func(df *Dataflow) { df.cleanThreshold = n }
}

// WithMetrics registers the dataflow's metrics with the given registerer.
func WithMetrics(m *Metrics) Option {
	return func(df *Dataflow) { df.metrics = m }
}

// New returns an empty Dataflow.
func New(opts ...Option) *Dataflow {
	df := &Dataflow{cleanThreshold: defaultCleanThreshold}
	df.src = &Node{df: df, op: passthrough{}}
	df.pending.reset()
	for _, opt := range opts {
		opt(df)
	}
	if df.metrics == nil {
		df.metrics = NewMetrics(nil)
	}
	return df
}

// Source returns the graph's entry node. Every pulse produced by Run is
// pushed into it; connect operators to Source to have them observe the
// main collection.
func (df *Dataflow) Source() *Node { return df.src }

// Add registers op as a node in the graph without connecting it. The
// returned node only sees pulses pushed into it explicitly or via edges
// added with Connect.
func (df *Dataflow) Add(op Operator) *Node {
	return &Node{df: df, op: op}
}

// RunAfter schedules fn to run once the current pulse has fully
// propagated and before the next pulse is admitted. Callbacks run in
// scheduling order; a callback may schedule further callbacks, which run
// in the same drain.
func (df *Dataflow) RunAfter(fn func(context.Context)) {
	df.after = append(df.after, fn)
}

// CleanThreshold returns the configured reclaimable-entry threshold.
func (df *Dataflow) CleanThreshold() int { return df.cleanThreshold }

// Metrics returns the dataflow's metrics. Never nil.
func (df *Dataflow) Metrics() *Metrics { return df.metrics }

// Stamp returns the generation stamp of the most recent pulse.
func (df *Dataflow) Stamp() int64 { return df.stamp }

// Len returns the number of live tuples in the collection.
func (df *Dataflow) Len() int { return len(df.data) }

// Ingest buffers a new tuple for addition on the next Run and returns
// it. The tuple's identity is assigned here and never reused.
func (df *Dataflow) Ingest(values map[string]interface{}) *Tuple {
	if values == nil {
		values = make(map[string]interface{})
	}
	df.nextID++
	t := &Tuple{id: df.nextID, Values: values}
	df.pending.add = append(df.pending.add, t)
	df.pending.addSeen[t.id] = struct{}{}
	return t
}

// Remove buffers t for removal on the next Run. Removing a tuple that
// was ingested in the same batch cancels the addition; the tuple never
// surfaces in a pulse. A pending modification of t is cancelled too, so
// the pulse's rem and mod sets stay disjoint.
func (df *Dataflow) Remove(t *Tuple) {
	if _, ok := df.pending.addSeen[t.id]; ok {
		delete(df.pending.addSeen, t.id)
		for i, a := range df.pending.add {
			if a.id == t.id {
				df.pending.add = append(df.pending.add[:i], df.pending.add[i+1:]...)
				break
			}
		}
		return
	}
	if _, ok := df.pending.remSeen[t.id]; ok {
		return
	}
	if _, ok := df.pending.modSeen[t.id]; ok {
		delete(df.pending.modSeen, t.id)
		for i, m := range df.pending.mod {
			if m.id == t.id {
				df.pending.mod = append(df.pending.mod[:i], df.pending.mod[i+1:]...)
				break
			}
		}
	}
	df.pending.remSeen[t.id] = struct{}{}
	df.pending.rem = append(df.pending.rem, t)
}

// Change sets t's field to value and buffers t as modified for the next
// Run. Changing a tuple ingested in the same batch updates the value but
// records no modification; the tuple still surfaces as a plain addition.
// Changing a tuple already removed in the same batch records nothing: the
// tuple surfaces only as a removal.
func (df *Dataflow) Change(t *Tuple, field string, value interface{}) {
	t.Values[field] = value
	df.pending.fields[field] = struct{}{}
	if _, ok := df.pending.addSeen[t.id]; ok {
		return
	}
	if _, ok := df.pending.remSeen[t.id]; ok {
		return
	}
	if _, ok := df.pending.modSeen[t.id]; ok {
		return
	}
	df.pending.modSeen[t.id] = struct{}{}
	df.pending.mod = append(df.pending.mod, t)
}

// Reflow requests that the next pulse carry every live tuple not
// otherwise changed in its reflow set, so operators whose derivation
// criterion changed can re-evaluate placement.
func (df *Dataflow) Reflow() { df.reflowReq = true }

// Clean requests that the next pulse signal a cleanup pass to stateful
// operators.
func (df *Dataflow) Clean() { df.cleanReq = true }

// Run admits the buffered changes as one pulse, propagates it from the
// source node through the graph, and then drains the run-after queue.
func (df *Dataflow) Run(ctx context.Context) error {
	df.stamp++
	ctx = logtags.AddTag(ctx, "pulse", df.stamp)

	p := &Pulse{
		df:     df,
		stamp:  df.stamp,
		rem:    df.pending.rem,
		add:    df.pending.add,
		mod:    df.pending.mod,
		fields: df.pending.fields,
		clean:  df.cleanReq,
	}

	// Apply the pulse's own removals and additions to the collection
	// before propagation so that the pulse's source view is the
	// post-pulse state.
	if len(p.rem) > 0 {
		live := df.data[:0]
		for _, t := range df.data {
			if _, ok := df.pending.remSeen[t.id]; !ok {
				live = append(live, t)
			}
		}
		for i := len(live); i < len(df.data); i++ {
			df.data[i] = nil
		}
		df.data = live
	}
	df.data = append(df.data, p.add...)
	p.source = df.data

	if df.reflowReq {
		for _, t := range df.data {
			_, added := df.pending.addSeen[t.id]
			_, modded := df.pending.modSeen[t.id]
			if !added && !modded {
				p.reflow = append(p.reflow, t)
			}
		}
	}

	df.pending.reset()
	df.reflowReq = false
	df.cleanReq = false

	df.metrics.PulsesRun.Inc()
	if log.V(2) {
		log.Infof(ctx, "pulse %d: %d rem, %d add, %d mod, %d reflow",
			p.stamp, len(p.rem), len(p.add), len(p.mod), len(p.reflow))
	}

	if err := df.src.Push(ctx, p); err != nil {
		return err
	}

	// Drain by index: callbacks may schedule more callbacks.
	for i := 0; i < len(df.after); i++ {
		df.after[i](ctx)
	}
	df.after = df.after[:0]
	return nil
}

// changeset buffers collection changes between pulses.
type changeset struct {
	add []*Tuple
	rem []*Tuple
	mod []*Tuple

	addSeen map[int64]struct{}
	remSeen map[int64]struct{}
	modSeen map[int64]struct{}

	fields map[string]struct{}
}

func (cs *changeset) reset() {
	cs.add, cs.rem, cs.mod = nil, nil, nil
	cs.addSeen = make(map[int64]struct{})
	cs.remSeen = make(map[int64]struct{})
	cs.modSeen = make(map[int64]struct{})
	cs.fields = make(map[string]struct{})
}
