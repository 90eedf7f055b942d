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
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/pulsegraph/pulsegraph/pkg/flow"
	"github.com/stretchr/testify/require"
)

// ddEnv is the state threaded through a datadriven facet test. Keys are
// plain stringified field values joined with "," so testdata files stay
// readable; tuples are named t1, t2, ... in ingestion order.
type ddEnv struct {
	df     *flow.Dataflow
	f      *Facet
	tuples map[string]*flow.Tuple
	names  map[int64]string

	// events collects the lines emitted by subflow roots during one Run,
	// in flush (activation) order.
	events []string
}

func ddKeyFunc(fields []string) flow.KeyFunc {
	return flow.KeyFunc{
		Fn: func(t *flow.Tuple) flow.Key {
			parts := make([]string, len(fields))
			for i, f := range fields {
				parts[i] = fmt.Sprint(t.Get(f))
			}
			return flow.Key(strings.Join(parts, ","))
		},
		Fields: fields,
	}
}

func (e *ddEnv) tuple(t *testing.T, name string) *flow.Tuple {
	tp, ok := e.tuples[name]
	require.True(t, ok, "unknown tuple %s", name)
	return tp
}

func (e *ddEnv) show() string {
	var sb strings.Builder
	sb.WriteString("subflows:")
	var keys []string
	for k := range e.f.flows.flows {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%d", k, e.f.flows.flows[flow.Key(k)].count)
	}
	sb.WriteString("\ncache:")
	var ids []int64
	for id := range e.f.cache.keys {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Fprintf(&sb, " %s=%s", e.names[id], string(e.f.cache.keys[id]))
	}
	fmt.Fprintf(&sb, " (%d reclaimable)", e.f.cache.empty)
	return sb.String()
}

func TestFacetDataDriven(t *testing.T) {
	var e *ddEnv

	datadriven.RunTest(t, "testdata/facet", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "init":
			var keys string
			d.ScanArgs(t, "keys", &keys)
			threshold := 16
			if d.HasArg("threshold") {
				d.ScanArgs(t, "threshold", &threshold)
			}
			env := &ddEnv{
				df:     flow.New(flow.WithCleanThreshold(threshold)),
				tuples: make(map[string]*flow.Tuple),
				names:  make(map[int64]string),
			}
			f, err := New(Config{
				Key: ddKeyFunc(strings.Split(keys, ",")),
				Subflow: func(_ *flow.Dataflow, key flow.Key, _ *flow.Tuple) (flow.Operator, error) {
					return flow.OperatorFunc(func(_ context.Context, p *flow.Pulse) (*flow.Pulse, error) {
						var evs []string
						record := func(verb string) func(*flow.Tuple) error {
							return func(tp *flow.Tuple) error {
								evs = append(evs, fmt.Sprintf("%s(%s)", verb, env.names[tp.ID()]))
								return nil
							}
						}
						_ = p.Visit(flow.Rem, record("rem"))
						_ = p.Visit(flow.Add, record("add"))
						_ = p.Visit(flow.Mod, record("mod"))
						env.events = append(env.events,
							fmt.Sprintf("%s: %s", string(key), strings.Join(evs, " ")))
						return p, nil
					}), nil
				},
			})
			require.NoError(t, err)
			env.f = f
			env.df.Source().Connect(env.df.Add(f))
			e = env
			return "ok"

		case "ingest":
			values := make(map[string]interface{})
			for _, arg := range d.CmdArgs {
				values[arg.Key] = arg.Vals[0]
			}
			tp := e.df.Ingest(values)
			name := fmt.Sprintf("t%d", tp.ID())
			e.tuples[name] = tp
			e.names[tp.ID()] = name
			return name

		case "change":
			tp := e.tuple(t, d.CmdArgs[0].Key)
			for _, arg := range d.CmdArgs[1:] {
				e.df.Change(tp, arg.Key, arg.Vals[0])
			}
			return "ok"

		case "remove":
			e.df.Remove(e.tuple(t, d.CmdArgs[0].Key))
			return "ok"

		case "setkey":
			var keys string
			d.ScanArgs(t, "keys", &keys)
			e.f.SetKey(ddKeyFunc(strings.Split(keys, ",")))
			return "ok"

		case "reflow":
			e.df.Reflow()
			return "ok"

		case "clean":
			e.df.Clean()
			return "ok"

		case "run":
			e.events = nil
			require.NoError(t, e.df.Run(context.Background()))
			return strings.Join(e.events, "\n")

		case "show":
			return e.show()

		default:
			t.Fatalf("unknown command %q", d.Cmd)
			return ""
		}
	})
}
