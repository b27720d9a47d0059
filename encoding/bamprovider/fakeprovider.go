package bamprovider

import (
	gbam "github.com/grailbio/bio-coverage/encoding/bam"
	"github.com/grailbio/hts/sam"
)

// fakeProvider is only for unittests. It yields the given records.
type fakeProvider struct {
	header *sam.Header
	recs   []*sam.Record
}

type fakeIterator struct {
	recs []*sam.Record
	rec  *sam.Record

	ref      *sam.Reference
	startPos int
	limitPos int
}

// NewFakeProvider creates a provider that returns "header" in response to a
// GetHeader() call, and recs by GenerateShards+NewIterator calls. The records
// must be sorted by coordinate.
func NewFakeProvider(header *sam.Header, recs []*sam.Record) Provider {
	return &fakeProvider{header, recs}
}

// GetHeader implements the Provider interface. It returns the header passed to
// the constructor.
func (b *fakeProvider) GetHeader() (*sam.Header, error) {
	return b.header, nil
}

// MappedCounts implements the Provider interface. It counts the mapped records
// passed to the constructor, the way a BAM index would report them.
func (b *fakeProvider) MappedCounts() ([]uint64, error) {
	counts := make([]uint64, len(b.header.Refs()))
	for _, rec := range b.recs {
		if rec.Ref == nil || rec.Flags&sam.Unmapped != 0 {
			continue
		}
		counts[rec.Ref.ID()]++
	}
	return counts, nil
}

// Close implements the Provider interface.
func (b *fakeProvider) Close() error {
	return nil
}

// GenerateShards implements the Provider interface.
func (b *fakeProvider) GenerateShards(opts GenerateShardsOpts) ([]gbam.Shard, error) {
	if opts.ShardSize <= 0 {
		opts.ShardSize = DefaultShardSize
	}
	if opts.BinWidth <= 0 {
		opts.BinWidth = 1
	}
	if opts.Ref != nil {
		return gbam.GetBinAlignedRegionShards(opts.Ref, opts.Start, opts.End,
			opts.ShardSize, opts.Padding, opts.BinWidth)
	}
	return gbam.GetBinAlignedShards(b.header, opts.ShardSize, opts.Padding, opts.BinWidth)
}

// NewIterator implements the Provider interface.
func (b *fakeProvider) NewIterator(shard gbam.Shard) Iterator {
	return &fakeIterator{
		recs:     b.recs,
		rec:      nil,
		ref:      shard.Ref,
		startPos: shard.PaddedStart(),
		limitPos: shard.PaddedEnd(),
	}
}

// Err implements the Iterator interface.
func (i *fakeIterator) Err() error {
	return nil
}

// Close implements the Iterator interface.
func (i *fakeIterator) Close() error {
	return nil
}

func (i *fakeIterator) Scan() bool {
	for {
		if len(i.recs) == 0 {
			return false
		}
		i.rec = i.recs[0]
		i.recs = i.recs[1:]
		if i.rec.Ref == nil || i.rec.Ref.ID() != i.ref.ID() {
			continue
		}
		if i.rec.Pos >= i.startPos && i.rec.Pos < i.limitPos {
			return true
		}
	}
}

func (i *fakeIterator) Record() *sam.Record {
	// Return a copy so that the code under test cannot alter the
	// original test input data.
	copy := sam.GetFromFreePool()
	*copy = *i.rec
	return copy
}
