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

	"github.com/cockroachdb/errors"
	"github.com/pulsegraph/pulsegraph/pkg/flow"
	"github.com/pulsegraph/pulsegraph/pkg/util/log"
)

// registry maps partition keys to their subflows. At most one subflow
// exists per key; keys present are exactly the partitions with live
// members, except transiently between a pulse and its cleanup pass.
type registry struct {
	flows map[flow.Key]*Subflow
}

func makeRegistry() registry {
	return registry{flows: make(map[flow.Key]*Subflow)}
}

func (r *registry) lookup(k flow.Key) *Subflow {
	return r.flows[k]
}

func (r *registry) bind(k flow.Key, sf *Subflow) {
	r.flows[k] = sf
}

func (r *registry) len() int { return len(r.flows) }

// clean removes every subflow whose member count is zero, invoking the
// root's optional DetachSubflow hook. A hook that panics is isolated: it
// must not prevent cleanup of the remaining empty subflows in the batch.
// Returns the number of subflows removed.
//
// clean mutates the registry and must only run between pulses, via the
// engine's run-after queue.
func (r *registry) clean(ctx context.Context) int {
	detached := 0
	for k, sf := range r.flows {
		if sf.count != 0 {
			continue
		}
		detachSubflow(ctx, sf)
		delete(r.flows, k)
		detached++
	}
	return detached
}

func detachSubflow(ctx context.Context, sf *Subflow) {
	d, ok := sf.rootOp.(Detacher)
	if !ok {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Errorf(ctx, "detach hook for subflow %q failed: %v",
				string(sf.key), errors.Newf("%v", p))
		}
	}()
	d.DetachSubflow()
}
