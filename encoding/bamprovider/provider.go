package bamprovider

import (
	"github.com/grailbio/bio-coverage/encoding/bam"
	"github.com/grailbio/hts/sam"
)

// DefaultShardSize is the shard width, in bases, used by GenerateShards when
// GenerateShardsOpts.ShardSize is unset.
const DefaultShardSize = 100000

// ProviderOpts defines options for NewProvider.
type ProviderOpts struct {
	// Index specifies the name of the BAM index file. If Index=="", it
	// defaults to path + ".bai".
	Index string
}

// GenerateShardsOpts defines behavior of Provider.GenerateShards.
type GenerateShardsOpts struct {
	// ShardSize is the target shard width in bases. It is rounded up to a
	// multiple of BinWidth. If <= 0, DefaultShardSize is used.
	ShardSize int

	// Padding expands the read range of each shard on both sides. Reads
	// whose start positions fall inside the padding are visible to the
	// shard's iterator but are outside [Shard.Start, Shard.End).
	Padding int

	// BinWidth aligns shard boundaries to multiples of this width, so that
	// an aggregation bin never straddles two shards. If <= 0, no alignment
	// is performed (treated as width 1).
	BinWidth int

	// Ref, together with Start and End, restricts sharding to the half-open
	// range [Start, End) of a single reference. A nil Ref means every
	// reference in the header, end to end.
	Ref   *sam.Reference
	Start int
	End   int
}

// Provider allows reading an indexed BAM file in parallel. Thread safe.
type Provider interface {
	// GetHeader returns the header for the provided BAM data. The callee
	// must not modify the returned header object.
	//
	// REQUIRES: Close has not been called.
	GetHeader() (*sam.Header, error)

	// GenerateShards prepares for parallel reading. The shards split the
	// target range into contiguous, non-overlapping genomic intervals. A
	// record is associated with a shard if its alignment start position is
	// within the shard's padded range, so reads near shard boundaries are
	// visible to more than one shard.
	//
	// Use NewIterator to read records in a shard.
	//
	// REQUIRES: Close has not been called.
	GenerateShards(opts GenerateShardsOpts) ([]bam.Shard, error)

	// MappedCounts returns the number of mapped records on each reference,
	// indexed by reference ID, as recorded in the BAM index. It does not
	// scan the records.
	//
	// REQUIRES: Close has not been called.
	MappedCounts() ([]uint64, error)

	// NewIterator returns an iterator over records contained in the shard.
	// The "shard" parameter is usually produced by GenerateShards, but the
	// caller may also construct one manually.
	//
	// REQUIRES: Close has not been called.
	NewIterator(shard bam.Shard) Iterator

	// Close must be called exactly once. It returns any error encountered
	// by the provider, or any iterator created by the provider.
	//
	// REQUIRES: All the iterators created by NewIterator have been closed.
	Close() error
}

// Iterator iterates over sam.Records whose start positions are in a
// particular genomic range, in coordinate order. Thread compatible.
type Iterator interface {
	// Scan returns whether there are any records remaining in the iterator,
	// and if so, advances the iterator to the next record. If the iterator
	// reaches the end of its range, Scan returns false. If an error occurs,
	// Scan returns false and the error can be retrieved by calling Err.
	Scan() bool

	// Record returns the current record. It must be called only after a
	// Scan call that returned true. The record remains owned by the
	// iterator's caller; release it with sam.PutInFreePool when done.
	Record() *sam.Record

	// Err returns any error encountered so far, excluding end of data.
	Err() error

	// Close must be called exactly once.  It returns the value of Err.
	Close() error
}

// NewProvider creates a Provider for the BAM file at path. The file may be
// local or an S3 URL.
func NewProvider(path string, opts ProviderOpts) Provider {
	return &BAMProvider{Path: path, Index: opts.Index}
}
