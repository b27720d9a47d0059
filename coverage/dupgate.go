// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package coverage

import (
	"github.com/grailbio/hts/sam"
)

// dupGate suppresses records that repeat an earlier record's (orientation,
// start, mate start) key.  Its scope is one shard; records suppressed here
// may still be counted by a shard on another reference region.
type dupGate struct {
	seen map[uint64]struct{}
}

func newDupGate() *dupGate {
	return &dupGate{seen: make(map[uint64]struct{})}
}

// dupKey packs the duplicate identity of rec into 64 bits: bit 63 holds the
// strand, bits 32-62 the alignment start, and the low 32 bits the mate start
// plus one (zero for unpaired records).
func dupKey(rec *sam.Record) uint64 {
	key := uint64(uint32(rec.Pos)) << 32
	if rec.Flags&sam.Paired != 0 {
		key |= uint64(uint32(rec.MatePos + 1))
	}
	if rec.Flags&sam.Reverse != 0 {
		key |= 1 << 63
	}
	return key
}

// suppress reports whether rec duplicates a record already admitted through
// this gate, recording rec's key otherwise.
func (g *dupGate) suppress(rec *sam.Record) bool {
	key := dupKey(rec)
	if _, ok := g.seen[key]; ok {
		return true
	}
	g.seen[key] = struct{}{}
	return false
}
