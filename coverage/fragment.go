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
	"sort"

	"github.com/grailbio/hts/sam"
)

type extendMode int

const (
	extendOff extendMode = iota
	extendAuto
	extendFixed
)

const (
	// estimatorMinPairs is how many template lengths spanEstimator needs
	// before it reports a median.
	estimatorMinPairs = 10
	// estimatorMaxSamples caps the samples retained per shard.
	estimatorMaxSamples = 1000
)

// spanEstimator tracks a running median of template lengths observed within
// one shard.
type spanEstimator struct {
	sorted []int
}

// add records one template length.  Samples beyond estimatorMaxSamples are
// ignored.
func (e *spanEstimator) add(span int) {
	if len(e.sorted) >= estimatorMaxSamples {
		return
	}
	i := sort.SearchInts(e.sorted, span)
	e.sorted = append(e.sorted, 0)
	copy(e.sorted[i+1:], e.sorted[i:])
	e.sorted[i] = span
}

// median returns the current estimate, or zero until estimatorMinPairs
// samples have been seen.
func (e *spanEstimator) median() int {
	if len(e.sorted) < estimatorMinPairs {
		return 0
	}
	return e.sorted[len(e.sorted)/2]
}

// fragmentResolver maps an alignment record to the genomic interval it
// contributes coverage to.  One resolver serves one shard; in extendAuto
// mode it carries the shard's running fragment length estimate.
type fragmentResolver struct {
	mode    extendMode
	fragLen int
	center  bool
	est     spanEstimator
}

func newFragmentResolver(opts *Opts) *fragmentResolver {
	r := &fragmentResolver{center: opts.CenterReads}
	switch {
	case opts.EstimateFragLen:
		r.mode = extendAuto
	case opts.ExtendReads > 0:
		r.mode = extendFixed
		r.fragLen = opts.ExtendReads
	default:
		r.mode = extendOff
	}
	return r
}

// matesOnSameRef reports whether rec and its mate both map to rec's
// reference.
func matesOnSameRef(rec *sam.Record) bool {
	return rec.Flags&sam.Paired != 0 &&
		rec.Flags&sam.MateUnmapped == 0 &&
		rec.MateRef != nil && rec.Ref != nil &&
		rec.MateRef.ID() == rec.Ref.ID()
}

// resolve returns the half-open reference interval rec's fragment covers,
// clipped to the reference bounds.  The result always has length at least
// one.
func (r *fragmentResolver) resolve(rec *sam.Record) (start, end int) {
	alnStart := rec.Pos
	alnEnd := rec.End()
	if r.mode == extendOff {
		return clipInterval(alnStart, alnEnd, alnStart, alnEnd, rec.Ref.Len())
	}
	if r.mode == extendAuto && matesOnSameRef(rec) &&
		rec.TempLen > 0 && rec.TempLen <= maxEstimatedFragLen {
		r.est.add(rec.TempLen)
	}
	fragLen := r.fragLen
	if r.mode == extendAuto {
		fragLen = r.est.median()
		if fragLen == 0 {
			fragLen = alnEnd - alnStart
		}
	}
	tempLen := rec.TempLen
	switch {
	case matesOnSameRef(rec) && tempLen > 0 && tempLen <= 4*fragLen:
		start, end = alnStart, alnStart+tempLen
	case matesOnSameRef(rec) && tempLen < 0 && -tempLen <= 4*fragLen:
		start, end = alnEnd+tempLen, alnEnd
	case fragLen <= alnEnd-alnStart:
		// Extension never shrinks a read.
		start, end = alnStart, alnEnd
	case rec.Flags&sam.Reverse != 0:
		start, end = alnEnd-fragLen, alnEnd
	default:
		start, end = alnStart, alnStart+fragLen
	}
	if r.center {
		span := alnEnd - alnStart
		mid := end - (end-start)/2
		start = mid - span/2
		end = start + span
	}
	return clipInterval(start, end, alnStart, alnEnd, rec.Ref.Len())
}

// clipInterval clamps [start, end) to [0, refLen), falling back to the
// alignment's own span if clamping leaves nothing.
func clipInterval(start, end, alnStart, alnEnd, refLen int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > refLen {
		end = refLen
	}
	if start >= end {
		start, end = alnStart, alnEnd
		if start < 0 {
			start = 0
		}
		if end > refLen {
			end = refLen
		}
		if start >= end {
			// Zero-span alignment at the reference edge.
			if start >= refLen {
				start = refLen - 1
			}
			end = start + 1
		}
	}
	return start, end
}
