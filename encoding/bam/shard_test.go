package bam_test

import (
	"testing"

	"github.com/grailbio/bio-coverage/encoding/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestShard(t *testing.T) {
	ref1, err := sam.NewReference("chr1", "", "", 100, nil, nil)
	expect.NoError(t, err)
	s := bam.Shard{Ref: ref1, Start: 20, End: 90, Padding: 3}
	expect.EQ(t, s.PaddedStart(), 17)
	expect.EQ(t, s.PaddedEnd(), 93)
	expect.EQ(t, s.PadStart(8), 12)
	expect.EQ(t, s.PadStart(21), 0)
	expect.EQ(t, s.PadEnd(11), 100)
}

func TestGetBinAlignedShards(t *testing.T) {
	ref1, err := sam.NewReference("chr1", "", "", 100, nil, nil)
	expect.NoError(t, err)
	ref2, err := sam.NewReference("chr2", "", "", 101, nil, nil)
	expect.NoError(t, err)
	ref3, err := sam.NewReference("chr3", "", "", 1, nil, nil)
	expect.NoError(t, err)
	header, _ := sam.NewHeader(nil, []*sam.Reference{ref1, ref2, ref3})

	// shardSize 45 rounds up to 50, the next multiple of the bin width.
	shards, err := bam.GetBinAlignedShards(header, 45, 10, 25)
	expect.NoError(t, err)
	expect.EQ(t, shards, []bam.Shard{
		{ref1, 0, 50, 10, 0},
		{ref1, 50, 100, 10, 1},
		{ref2, 0, 50, 10, 2},
		{ref2, 50, 100, 10, 3},
		{ref2, 100, 101, 10, 4},
		{ref3, 0, 1, 10, 5},
	})
}

func TestGetBinAlignedRegionShards(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	expect.NoError(t, err)

	shards, err := bam.GetBinAlignedRegionShards(ref, 100, 420, 150, 20, 50)
	expect.NoError(t, err)
	expect.EQ(t, shards, []bam.Shard{
		{ref, 100, 250, 20, 0},
		{ref, 250, 400, 20, 1},
		{ref, 400, 420, 20, 2},
	})

	// The grid is anchored at the region start, not at position 0.
	shards, err = bam.GetBinAlignedRegionShards(ref, 30, 1000, 500, 0, 50)
	expect.NoError(t, err)
	expect.EQ(t, shards[0].Start, 30)
	expect.EQ(t, shards[0].End, 530)
	expect.EQ(t, shards[1].End, 1000)

	_, err = bam.GetBinAlignedRegionShards(ref, 500, 400, 100, 0, 50)
	require.Error(t, err)
}
