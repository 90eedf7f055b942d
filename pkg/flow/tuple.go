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

import "fmt"

// Tuple is a record flowing through the dataflow graph. Its identity is
// assigned by the Dataflow on ingestion and is stable for the lifetime
// of the logical record, no matter how its values change. Operators must
// not interpret Values beyond the fields they are configured with.
type Tuple struct {
	id     int64
	Values map[string]interface{}
}

// ID returns the engine-assigned stable identity of the tuple.
func (t *Tuple) ID() int64 { return t.id }

// Get returns the value stored under field, or nil if the field is not
// set. Mutations must go through Dataflow.Change so that the touched
// field set of the next pulse stays accurate.
func (t *Tuple) Get(field string) interface{} {
	return t.Values[field]
}

func (t *Tuple) String() string {
	return fmt.Sprintf("tuple{%d: %v}", t.id, t.Values)
}
