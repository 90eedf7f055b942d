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

import "github.com/pulsegraph/pulsegraph/pkg/flow"

// keyCache remembers, per tuple identity, the key the tuple was last
// routed under. Go maps never release bucket memory once grown, so
// deletions only mark space reclaimable; clean copies the live entries
// into a fresh map to actually return it.
type keyCache struct {
	keys map[int64]flow.Key

	// empty counts deletions since the last clean, i.e. slots that a
	// clean would reclaim.
	empty int
}

func makeKeyCache() keyCache {
	return keyCache{keys: make(map[int64]flow.Key)}
}

func (c *keyCache) get(id int64) (flow.Key, bool) {
	k, ok := c.keys[id]
	return k, ok
}

func (c *keyCache) set(id int64, k flow.Key) {
	c.keys[id] = k
}

func (c *keyCache) del(id int64) {
	if _, ok := c.keys[id]; ok {
		delete(c.keys, id)
		c.empty++
	}
}

func (c *keyCache) len() int { return len(c.keys) }

// clean compacts the cache. Amortized: the copy is linear in the live
// entry count, and the deletion counter resets so the next compaction is
// only scheduled after as many further deletions.
func (c *keyCache) clean() {
	fresh := make(map[int64]flow.Key, len(c.keys))
	for id, k := range c.keys {
		fresh[id] = k
	}
	c.keys = fresh
	c.empty = 0
}
