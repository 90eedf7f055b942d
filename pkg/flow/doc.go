// Copyright 2025 The Pulsegraph Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package flow implements a small single-threaded incremental dataflow
// engine. A Dataflow owns a mutating collection of Tuples; each call to
// Run batches the pending changes into a Pulse and propagates it through
// a graph of Operators. Operators receive whole pulses, never individual
// tuples, so per-step work is amortized over the batch.
//
// One pulse is fully processed before the next is admitted. Work that
// must not run while the graph is being traversed (for example registry
// cleanup in the facet operator) is scheduled with Dataflow.RunAfter and
// drained once propagation finishes.
package flow
