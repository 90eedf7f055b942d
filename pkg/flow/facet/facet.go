// Copyright 2025 The Pulsegraph Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package facet implements the keyed-partition operator of the dataflow
// engine. A Facet splits the incoming collection into disjoint groups by
// a key function and maintains, per group, an independently materialized
// downstream subflow. Subflows are created lazily on first sight of a
// key, records are re-routed when their key changes between pulses, and
// empty subflows are reclaimed by deferred cleanup passes.
package facet

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/pulsegraph/pulsegraph/pkg/flow"
	"github.com/pulsegraph/pulsegraph/pkg/util/log"
)

// FlowFactory builds the downstream root operator of a new subflow. It
// is invoked once per newly observed key, with the engine handle, the
// key, and the key's parent tuple (nil when no parent is known). The
// returned operator must be non-nil.
type FlowFactory func(df *flow.Dataflow, key flow.Key, parent *flow.Tuple) (flow.Operator, error)

// Config configures a Facet.
type Config struct {
	// Key computes a tuple's partition key. Must be pure: the same tuple
	// state must always yield the same key. Key.Fields, when set, lets
	// the operator skip key recomputation for pulses that touched none
	// of the listed fields.
	Key flow.KeyFunc

	// Subflow builds the downstream root of a newly observed partition.
	Subflow FlowFactory

	// Group optionally maps keys to parent tuples, supplied when the
	// facet is driven by an enclosing context that already associates
	// keys with parent records.
	Group map[flow.Key]*flow.Tuple
}

// Facet routes each changed tuple of an incoming pulse to the subflow of
// its key, instantiating and reclaiming subflows as membership evolves.
// All state is per-instance; a Facet must only be driven by a single
// Dataflow.
type Facet struct {
	cfg Config

	cache   keyCache
	flows   registry
	targets targetList

	// keyDirty is set by SetKey and consumed by the next Transform: it
	// forces the rekey-aware modification policy and reflow processing
	// for that pulse.
	keyDirty bool
}

var _ flow.Operator = (*Facet)(nil)

// New returns a Facet for the given configuration.
func New(cfg Config) (*Facet, error) {
	if cfg.Key.Fn == nil {
		return nil, errors.New("facet: Config.Key.Fn is required")
	}
	if cfg.Subflow == nil {
		return nil, errors.New("facet: Config.Subflow is required")
	}
	return &Facet{
		cfg:   cfg,
		cache: makeKeyCache(),
		flows: makeRegistry(),
	}, nil
}

// SetKey replaces the key function. The next pulse processes
// modifications under the rekey-aware policy and re-evaluates reflowed
// tuples; pair this with Dataflow.Reflow so untouched tuples are
// re-keyed too.
func (f *Facet) SetKey(kf flow.KeyFunc) {
	f.cfg.Key = kf
	f.keyDirty = true
}

// resolveCtx carries the per-pulse state needed to resolve a subflow:
// the pulse itself, the factory, the key-to-parent map, and an optional
// parent override.
type resolveCtx struct {
	pulse   *flow.Pulse
	factory FlowFactory
	group   map[flow.Key]*flow.Tuple
	parent  *flow.Tuple
}

// resolve returns the subflow for k, creating it on first sight and
// reactivating it the first time it is touched in a new pulse
// generation. Repeated resolution within one pulse returns the existing
// subflow unchanged; the stamp check is what guarantees at-most-one
// activation per subflow per pulse.
func (f *Facet) resolve(ctx context.Context, rc resolveCtx, k flow.Key) (*Subflow, error) {
	if sf := f.flows.lookup(k); sf != nil {
		if sf.stamp < rc.pulse.Stamp() {
			sf.init(rc.pulse)
			f.targets.activate(sf)
		}
		return sf, nil
	}

	parent := rc.parent
	if parent == nil {
		parent = rc.group[k]
	}
	df := rc.pulse.Dataflow()
	rootOp, err := rc.factory(df, k, parent)
	if err != nil {
		return nil, errors.Wrapf(err, "facet: subflow factory failed for key %q", string(k))
	}
	if rootOp == nil {
		return nil, errors.AssertionFailedf(
			"facet: subflow factory returned no root for key %q", string(k))
	}
	sf := newSubflow(k, rc.pulse, rootOp, df.Add(rootOp))
	f.flows.bind(k, sf)
	f.targets.activate(sf)
	m := df.Metrics()
	m.SubflowsCreated.Inc()
	m.SubflowsLive.Inc()
	if log.V(2) {
		log.Infof(ctx, "facet: new subflow for key %q", string(k))
	}
	return sf, nil
}

// Transform implements flow.Operator. It routes the pulse's removals,
// additions, modifications, and reflows into per-key subflows, flushes
// the sub-pulses of every subflow touched this pulse, and schedules any
// cleanup. The incoming pulse is returned structurally unchanged.
func (f *Facet) Transform(ctx context.Context, p *flow.Pulse) (*flow.Pulse, error) {
	df := p.Dataflow()
	m := df.Metrics()
	f.targets.reset()

	rekey := f.keyDirty
	f.keyDirty = false

	rc := resolveCtx{pulse: p, factory: f.cfg.Subflow, group: f.cfg.Group}

	// Removals route through the cache: an absent entry means the tuple
	// was never tracked (or already cleaned up) and the removal is a
	// no-op.
	if err := p.Visit(flow.Rem, func(t *flow.Tuple) error {
		k, ok := f.cache.get(t.ID())
		if !ok {
			return nil
		}
		f.cache.del(t.ID())
		sf, err := f.resolve(ctx, rc, k)
		if err != nil {
			return err
		}
		sf.rem(t)
		m.TuplesRouted.Inc()
		return nil
	}); err != nil {
		return nil, err
	}

	if err := p.Visit(flow.Add, func(t *flow.Tuple) error {
		k := f.cfg.Key.Fn(t)
		f.cache.set(t.ID(), k)
		sf, err := f.resolve(ctx, rc, k)
		if err != nil {
			return err
		}
		sf.add(t)
		m.TuplesRouted.Inc()
		return nil
	}); err != nil {
		return nil, err
	}

	if rekey || p.Modified(f.cfg.Key.Fields...) {
		// Rekey-aware policy: the key definition changed, or a field the
		// key depends on was touched this pulse, so every modification
		// must recompute its key and split into rem+add on a change.
		if err := p.Visit(flow.Mod, func(t *flow.Tuple) error {
			return f.routeRekey(ctx, rc, t, true /* mod */)
		}); err != nil {
			return nil, err
		}
	} else if p.Changed(flow.Mod) {
		// Simple policy: no key-relevant change, so every modification
		// goes to the subflow the cache already records, without
		// recomputation.
		if err := p.Visit(flow.Mod, func(t *flow.Tuple) error {
			k, ok := f.cache.get(t.ID())
			if !ok {
				return nil
			}
			sf, err := f.resolve(ctx, rc, k)
			if err != nil {
				return err
			}
			sf.mod(t)
			m.TuplesRouted.Inc()
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if rekey {
		// Reflow re-evaluates membership of tuples not otherwise touched
		// this pulse. Only membership changes are forwarded.
		if err := p.Visit(flow.Reflow, func(t *flow.Tuple) error {
			return f.routeRekey(ctx, rc, t, false /* mod */)
		}); err != nil {
			return nil, err
		}
	}

	// Notify exactly the subflows touched this pulse, in activation
	// order.
	var flushErr error
	f.targets.forEach(func(sf *Subflow) {
		if flushErr == nil {
			flushErr = sf.flush(ctx)
		}
	})
	if flushErr != nil {
		return nil, flushErr
	}

	// Cleanup is deferred to the run-after queue so the registry is
	// never mutated while routing may still iterate it, and so many
	// empty subflows collapse into one batched removal.
	if p.Clean() {
		df.RunAfter(func(ctx context.Context) {
			detached := f.flows.clean(ctx)
			if detached > 0 {
				m.SubflowsDetached.Add(float64(detached))
				m.SubflowsLive.Sub(float64(detached))
				log.VEventf(ctx, 1, "facet: cleanup detached %d empty subflows", detached)
			}
			f.cache.clean()
			m.CacheCompactions.Inc()
		})
	} else if f.cache.empty > df.CleanThreshold() {
		df.RunAfter(func(ctx context.Context) {
			f.cache.clean()
			m.CacheCompactions.Inc()
		})
	}

	return p, nil
}

// routeRekey routes one tuple under the rekey-aware policy: recompute
// the key, compare to the cached key, and either forward in place or
// split into a removal from the old subflow and an addition to the new
// one. When mod is false (reflow), tuples whose key is unchanged are not
// forwarded at all.
func (f *Facet) routeRekey(
	ctx context.Context, rc resolveCtx, t *flow.Tuple, mod bool,
) error {
	m := rc.pulse.Dataflow().Metrics()
	id := t.ID()
	k1 := f.cfg.Key.Fn(t)
	k0, ok := f.cache.get(id)

	if ok && k0 == k1 {
		if mod {
			sf, err := f.resolve(ctx, rc, k1)
			if err != nil {
				return err
			}
			sf.mod(t)
			m.TuplesRouted.Inc()
		}
		return nil
	}

	f.cache.set(id, k1)
	if ok {
		old, err := f.resolve(ctx, rc, k0)
		if err != nil {
			return err
		}
		old.rem(t)
		m.TuplesRouted.Inc()
	}
	sf, err := f.resolve(ctx, rc, k1)
	if err != nil {
		return err
	}
	sf.add(t)
	m.TuplesRouted.Inc()
	return nil
}

// Len returns the number of registered subflows.
func (f *Facet) Len() int { return f.flows.len() }

// Lookup returns the subflow currently registered for k, or nil.
func (f *Facet) Lookup(k flow.Key) *Subflow { return f.flows.lookup(k) }
