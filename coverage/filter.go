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

// recordFilter holds the per-record admission checks, resolved once from
// Opts so the hot loop tests plain fields.
type recordFilter struct {
	minMapQ     byte
	flagInclude sam.Flags
	flagExclude sam.Flags
}

func newRecordFilter(opts *Opts) recordFilter {
	return recordFilter{
		minMapQ:     byte(opts.MinMapQ),
		flagInclude: sam.Flags(opts.FlagInclude),
		flagExclude: sam.Flags(opts.FlagExclude),
	}
}

// keep reports whether rec participates in coverage computation.  Unmapped
// records and records without a CIGAR never do.
func (f *recordFilter) keep(rec *sam.Record) bool {
	if rec.Flags&sam.Unmapped != 0 || len(rec.Cigar) == 0 {
		return false
	}
	if rec.MapQ < f.minMapQ {
		return false
	}
	if f.flagInclude != 0 && rec.Flags&f.flagInclude != f.flagInclude {
		return false
	}
	if f.flagExclude != 0 && rec.Flags&f.flagExclude != 0 {
		return false
	}
	return true
}
