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

import "context"

// Operator transforms one pulse into another. Returning the input pulse
// unchanged is the common case for operators whose effect is entirely in
// their side state; returning nil absorbs the pulse and stops
// propagation below this node.
type Operator interface {
	Transform(ctx context.Context, p *Pulse) (*Pulse, error)
}

// OperatorFunc adapts a plain function to the Operator interface.
type OperatorFunc func(ctx context.Context, p *Pulse) (*Pulse, error)

// Transform implements the Operator interface.
func (f OperatorFunc) Transform(ctx context.Context, p *Pulse) (*Pulse, error) {
	return f(ctx, p)
}

// Node is an Operator registered in a Dataflow graph, with edges to the
// nodes that consume its output.
type Node struct {
	df      *Dataflow
	op      Operator
	targets []*Node
}

// Connect adds an edge from n to target and returns target, so that
// chains read left to right:
//
//	df.Source().Connect(df.Add(partition)).Connect(df.Add(sink))
func (n *Node) Connect(target *Node) *Node {
	n.targets = append(n.targets, target)
	return target
}

// Operator returns the operator wrapped by this node.
func (n *Node) Operator() Operator { return n.op }

// Push runs the node's operator on p and propagates the result depth
// first to every connected target. A nil result stops propagation below
// this node.
func (n *Node) Push(ctx context.Context, p *Pulse) error {
	out, err := n.op.Transform(ctx, p)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	for _, target := range n.targets {
		if err := target.Push(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

// passthrough is the operator behind every Dataflow's source node.
type passthrough struct{}

func (passthrough) Transform(_ context.Context, p *Pulse) (*Pulse, error) {
	return p, nil
}
