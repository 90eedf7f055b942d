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
	"fmt"
	"strconv"
	"strings"
)

// Key is the canonical form of a grouping key. Keys compare structurally:
// two keys are the same group if and only if their canonical encodings are
// byte-equal. Use MakeKey to build keys from heterogeneous values so that
// encoding and equality always agree.
type Key string

// KeyFunc computes the grouping key of a tuple. Fields optionally lists
// the tuple fields the key depends on; when set, consumers such as the
// facet operator can skip key recomputation for pulses that did not touch
// any of those fields.
type KeyFunc struct {
	Fn     func(*Tuple) Key
	Fields []string
}

// FieldKey returns a KeyFunc that keys tuples by the canonical encoding
// of the named field values, with Fields populated accordingly.
func FieldKey(fields ...string) KeyFunc {
	return KeyFunc{
		Fn: func(t *Tuple) Key {
			vals := make([]interface{}, len(fields))
			for i, f := range fields {
				vals[i] = t.Get(f)
			}
			return MakeKey(vals...)
		},
		Fields: fields,
	}
}

// keySep separates the encoded components of a composite key. Component
// encodings never contain it: strings are quoted and every other token is
// printable ASCII.
const keySep = "\x00"

// MakeKey canonicalizes one or more values into a Key. The encoding is
// type-prefixed so that values of different types never collide (the
// string "1" and the integer 1 encode differently). All signed integer
// widths encode identically, as do all unsigned widths and as do float32
// and float64; the encoding is otherwise structural.
func MakeKey(vals ...interface{}) Key {
	var sb strings.Builder
	for i, v := range vals {
		if i > 0 {
			sb.WriteString(keySep)
		}
		encodeKeyValue(&sb, v)
	}
	return Key(sb.String())
}

func encodeKeyValue(sb *strings.Builder, v interface{}) {
	switch v := v.(type) {
	case nil:
		sb.WriteString("n:")
	case string:
		sb.WriteString("s:")
		sb.WriteString(strconv.Quote(v))
	case bool:
		sb.WriteString("b:")
		sb.WriteString(strconv.FormatBool(v))
	case int:
		encodeKeyInt(sb, int64(v))
	case int8:
		encodeKeyInt(sb, int64(v))
	case int16:
		encodeKeyInt(sb, int64(v))
	case int32:
		encodeKeyInt(sb, int64(v))
	case int64:
		encodeKeyInt(sb, v)
	case uint:
		encodeKeyUint(sb, uint64(v))
	case uint8:
		encodeKeyUint(sb, uint64(v))
	case uint16:
		encodeKeyUint(sb, uint64(v))
	case uint32:
		encodeKeyUint(sb, uint64(v))
	case uint64:
		encodeKeyUint(sb, v)
	case float32:
		encodeKeyFloat(sb, float64(v))
	case float64:
		encodeKeyFloat(sb, v)
	case Key:
		sb.WriteString("k:")
		sb.WriteString(strconv.Quote(string(v)))
	default:
		// Fallback for exotic types: fmt's verb %#v is deterministic for a
		// given concrete type and value.
		sb.WriteString("v:")
		sb.WriteString(strconv.Quote(fmt.Sprintf("%#v", v)))
	}
}

func encodeKeyInt(sb *strings.Builder, v int64) {
	sb.WriteString("i:")
	sb.WriteString(strconv.FormatInt(v, 10))
}

func encodeKeyUint(sb *strings.Builder, v uint64) {
	sb.WriteString("u:")
	sb.WriteString(strconv.FormatUint(v, 10))
}

func encodeKeyFloat(sb *strings.Builder, v float64) {
	sb.WriteString("f:")
	sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
}
