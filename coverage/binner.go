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
	gbam "github.com/grailbio/bio-coverage/encoding/bam"
)

// binGrid accumulates per-bin fragment counts for one shard.  The grid is
// anchored on the bin lattice shared by all shards of the reference
// (multiples of binSize from origin) and extends contextBins bins past each
// side of the shard, clamped to [origin, limit), so that smoothing windows
// for the shard's own bins see real neighbor counts.  Only bins inside the
// shard's own [Start, End) are emitted, so each bin is emitted by exactly
// one shard.
type binGrid struct {
	binSize   int
	gridStart int
	gridEnd   int
	unitStart int
	unitEnd   int
	counts    []float64
}

func newBinGrid(shard gbam.Shard, binSize, contextBins, origin, limit int) *binGrid {
	gridStart := shard.Start - contextBins*binSize
	if gridStart < origin {
		gridStart = origin
	}
	gridEnd := shard.End + contextBins*binSize
	if gridEnd > limit {
		gridEnd = limit
	}
	nBins := (gridEnd - gridStart + binSize - 1) / binSize
	return &binGrid{
		binSize:   binSize,
		gridStart: gridStart,
		gridEnd:   gridEnd,
		unitStart: shard.Start,
		unitEnd:   shard.End,
		counts:    make([]float64, nBins),
	}
}

// add credits one count to every bin overlapping [fragStart, fragEnd).
// The part of the fragment outside the grid is ignored.
func (g *binGrid) add(fragStart, fragEnd int) {
	if fragStart < g.gridStart {
		fragStart = g.gridStart
	}
	if fragEnd > g.gridEnd {
		fragEnd = g.gridEnd
	}
	if fragStart >= fragEnd {
		return
	}
	first := (fragStart - g.gridStart) / g.binSize
	last := (fragEnd - 1 - g.gridStart) / g.binSize
	for i := first; i <= last; i++ {
		g.counts[i]++
	}
}

// binSpan returns the reference interval covered by bin i.  The final bin of
// a reference or region may be narrower than binSize.
func (g *binGrid) binSpan(i int) (start, end int) {
	start = g.gridStart + i*g.binSize
	end = start + g.binSize
	if end > g.gridEnd {
		end = g.gridEnd
	}
	return start, end
}

// emitRange returns the half-open range of grid bin indices owned by this
// shard.
func (g *binGrid) emitRange() (first, limit int) {
	first = (g.unitStart - g.gridStart) / g.binSize
	limit = first + (g.unitEnd-g.unitStart+g.binSize-1)/g.binSize
	return first, limit
}
