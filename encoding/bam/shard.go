// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bam

import (
	"fmt"

	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// Shard represents a genomic interval on one reference. <Start,End> form a
// half-open, 0-based interval. An iterator for a shard returns reads whose
// start positions fall within that range.
//
// Padding must be >=0. It expands the read range to [PaddedStart, PaddedEnd),
// where PaddedStart=max(0, Start-Padding) and PaddedEnd=min(Ref.Len(),
// End+Padding). The regions [PaddedStart,Start) and [End,PaddedEnd) are not
// part of the shard; they exist so that a worker can see reads near the shard
// boundary whose fragments reach into [Start, End).
//
// Shards are ordered by reference, then by start position. ShardIdx is an
// index into that ordering. The first Shard has index 0, and subsequent
// shards increment ShardIdx by one each.
type Shard struct {
	Ref   *sam.Reference
	Start int
	End   int

	Padding  int
	ShardIdx int
}

// PadStart returns max(s.Start-padding, 0).
func (s *Shard) PadStart(padding int) int {
	return max(0, s.Start-padding)
}

// PaddedStart computes the effective start of the range to read, including
// padding.
func (s *Shard) PaddedStart() int {
	return s.PadStart(s.Padding)
}

// PadEnd returns min(s.End+padding, length of s.Ref).
func (s *Shard) PadEnd(padding int) int {
	return min(s.Ref.Len(), s.End+padding)
}

// PaddedEnd computes the effective limit of the range to read, including
// padding.
func (s *Shard) PaddedEnd() int {
	return s.PadEnd(s.Padding)
}

// String returns a debug string for s.
func (s *Shard) String() string {
	return fmt.Sprintf("%d:%s[%d]:%d(%d)-%d(%d)",
		s.ShardIdx, s.Ref.Name(), s.Ref.ID(), s.Start, s.PaddedStart(), s.End, s.PaddedEnd())
}

func min(x, y int) int {
	if y < x {
		return y
	}
	return x
}

func max(x, y int) int {
	if y > x {
		return y
	}
	return x
}

// roundUpToWidth rounds size up to the nearest positive multiple of width.
func roundUpToWidth(size, width int) int {
	if size <= width {
		return width
	}
	if rem := size % width; rem != 0 {
		return size + width - rem
	}
	return size
}

// GetBinAlignedShards returns a list of shards that tile every reference in
// the header. Shard boundaries are multiples of binWidth from position 0 of
// each reference, so a bin of width binWidth never straddles two shards. The
// last shard of a reference may be narrower than shardSize, and the last bin
// within it may be truncated by the reference end.
func GetBinAlignedShards(header *sam.Header, shardSize, padding, binWidth int) ([]Shard, error) {
	if binWidth <= 0 {
		return nil, fmt.Errorf("bin width must be positive, got %d", binWidth)
	}
	size := roundUpToWidth(shardSize, binWidth)
	var shards []Shard
	for _, ref := range header.Refs() {
		shards = appendRefShards(shards, ref, 0, ref.Len(), size, padding)
	}
	ValidateShardList(shards, padding)
	return shards, nil
}

// GetBinAlignedRegionShards is like GetBinAlignedShards, but restricted to
// the range [start, end) of a single reference. The bin grid starts at
// start, not at position 0.
func GetBinAlignedRegionShards(ref *sam.Reference, start, end, shardSize, padding, binWidth int) ([]Shard, error) {
	if binWidth <= 0 {
		return nil, fmt.Errorf("bin width must be positive, got %d", binWidth)
	}
	if start < 0 || start >= end || end > ref.Len() {
		return nil, fmt.Errorf("invalid range [%d, %d) for reference %s of length %d",
			start, end, ref.Name(), ref.Len())
	}
	size := roundUpToWidth(shardSize, binWidth)
	shards := appendRefShards(nil, ref, start, end, size, padding)
	ValidateShardList(shards, padding)
	return shards, nil
}

func appendRefShards(shards []Shard, ref *sam.Reference, start, end, size, padding int) []Shard {
	for s := start; s < end; s += size {
		shards = append(shards, Shard{
			Ref:      ref,
			Start:    s,
			End:      min(s+size, end),
			Padding:  padding,
			ShardIdx: len(shards),
		})
	}
	return shards
}

// ValidateShardList checks that shards are non-empty intervals in increasing
// reference then position order, contiguous within each reference, and
// indexed sequentially. Panics on violation.
func ValidateShardList(shardList []Shard, padding int) {
	for i, shard := range shardList {
		if shard.Ref == nil {
			vlog.Panicf("Shard %d has nil reference", i)
		}
		if shard.Start >= shard.End {
			vlog.Panicf("Shard start must precede end for ref %s: %d, %d", shard.Ref.Name(), shard.Start, shard.End)
		}
		if shard.Padding < 0 {
			vlog.Panicf("Padding must be non-negative: %d", shard.Padding)
		}
		if shard.ShardIdx != i {
			vlog.Panicf("Shard %d has index %d", i, shard.ShardIdx)
		}
		if i == 0 {
			continue
		}
		prev := shardList[i-1]
		if prev.Ref.ID() > shard.Ref.ID() {
			vlog.Panicf("Shards out of reference order: %s after %s", shard.Ref.Name(), prev.Ref.Name())
		}
		if prev.Ref.ID() == shard.Ref.ID() && prev.End != shard.Start {
			vlog.Panicf("Shard gap for ref %s between %d and %d", shard.Ref.Name(), prev.End, shard.Start)
		}
	}
}
