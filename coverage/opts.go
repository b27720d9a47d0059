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
	"fmt"
	"runtime"
)

// Output formats supported by Run.
const (
	FormatBedgraph = "bedgraph"
	FormatBigWig   = "bigwig"
)

const (
	// defaultBinSize is the bin width used when Opts.BinSize is zero.
	defaultBinSize = 50
	// defaultMaxReadSpan bounds the reference span of a single alignment for
	// shard-padding purposes.  Alignments may exceed it; only their
	// contributions near shard boundaries would be at risk, and 1kb covers
	// all short-read and most long-read libraries.
	defaultMaxReadSpan = 1000
	// maxEstimatedFragLen caps the template lengths fed to the per-shard
	// fragment length estimator so that shard padding stays bounded.
	maxEstimatedFragLen = 2000
)

// Opts contains the coverage track computation options.
type Opts struct {
	// Out is the pathname the coverage track is written to.  A ".gz" suffix
	// selects bgzf compression for bedgraph output.
	Out string
	// Format is one of FormatBedgraph or FormatBigWig.  FormatBigWig
	// requires a bedGraphToBigWig executable on PATH.
	Format string
	// BinSize is the width, in bases, of the coverage bins.  Defaults to 50.
	BinSize int
	// Region optionally restricts computation to one chromosome or to a
	// zero-based half-open interval within it, e.g. "chr2", "chr2:100:2000"
	// or "chr2:100-2000".
	Region string
	// ExtendReads, when positive, extends each read toward its mate (or
	// along its strand for single-end reads) to the given fragment length.
	// Zero leaves reads unextended.
	ExtendReads int
	// EstimateFragLen extends reads to a fragment length estimated per
	// shard from observed template lengths.  Mutually exclusive with
	// ExtendReads.
	EstimateFragLen bool
	// CenterReads repositions each extended fragment's contribution to an
	// interval of the read's own length centered on the fragment midpoint.
	// It has no effect unless reads are extended.
	CenterReads bool
	// MinMapQ drops alignments with mapping quality below the given value.
	MinMapQ int
	// FlagInclude, when nonzero, keeps only records with all of the given
	// SAM flag bits set.
	FlagInclude int
	// FlagExclude, when nonzero, drops records with any of the given SAM
	// flag bits set.
	FlagExclude int
	// IgnoreDuplicates drops records whose (orientation, start, mate start)
	// key repeats within a shard.
	IgnoreDuplicates bool
	// NormalizeTo1x, when nonzero, scales counts to 1x average genomic
	// coverage assuming the given effective genome size.
	NormalizeTo1x uint64
	// NormalizeRPKM scales counts to reads per kilobase per million mapped
	// reads.  Mutually exclusive with NormalizeTo1x.
	NormalizeRPKM bool
	// ScaleFactor multiplies every emitted value.  Zero means 1.0.
	ScaleFactor float64
	// IgnoreForNormalization lists reference names whose mapped reads are
	// excluded from the total used for normalization.
	IgnoreForNormalization []string
	// BlacklistFile is a BED file of regions to exclude.  Fragments
	// overlapping any listed region are not counted, and reads fully
	// contained in one are excluded from the normalization total.
	BlacklistFile string
	// SmoothLength, when larger than BinSize, replaces each bin's value
	// with the mean over a window of SmoothLength/BinSize bins centered on
	// it.
	SmoothLength int
	// MissingDataAsZero causes bins without coverage to be written with
	// value zero instead of being omitted.
	MissingDataAsZero bool
	// MaxReadSpan bounds the reference span of one alignment when sizing
	// shard padding.  Defaults to 1000.
	MaxReadSpan int
	// ShardSize is the genome partition size in bases.  Zero selects the
	// provider default.
	ShardSize int
	// Parallelism caps the number of concurrent shard workers.  Zero
	// selects runtime.NumCPU().
	Parallelism int
	// TempDir is the directory for per-worker spill files.  An empty string
	// selects the system default.
	TempDir string
}

var DefaultOpts = Opts{
	Out:               "coverage.bedgraph",
	Format:            FormatBedgraph,
	BinSize:           defaultBinSize,
	ExtendReads:       0,
	MinMapQ:           0,
	FlagInclude:       0,
	FlagExclude:       0,
	ScaleFactor:       1.0,
	SmoothLength:      0,
	MissingDataAsZero: true,
	MaxReadSpan:       defaultMaxReadSpan,
}

// normalizeAndValidate fills defaulted fields in place and rejects option
// combinations that have no defined meaning.
func (o *Opts) normalizeAndValidate() error {
	if o.Out == "" {
		return fmt.Errorf("output path required")
	}
	if o.Format == "" {
		o.Format = FormatBedgraph
	}
	if o.Format != FormatBedgraph && o.Format != FormatBigWig {
		return fmt.Errorf("invalid output format %q", o.Format)
	}
	if o.BinSize == 0 {
		o.BinSize = defaultBinSize
	}
	if o.BinSize < 1 {
		return fmt.Errorf("invalid bin size %d", o.BinSize)
	}
	if o.ExtendReads < 0 {
		return fmt.Errorf("invalid read extension length %d", o.ExtendReads)
	}
	if o.ExtendReads > 0 && o.EstimateFragLen {
		return fmt.Errorf("fixed read extension length %d conflicts with fragment length estimation", o.ExtendReads)
	}
	if o.MinMapQ < 0 || o.MinMapQ > 255 {
		return fmt.Errorf("invalid mapping quality threshold %d", o.MinMapQ)
	}
	if o.NormalizeTo1x != 0 && o.NormalizeRPKM {
		return fmt.Errorf("1x normalization with genome size %d conflicts with RPKM normalization", o.NormalizeTo1x)
	}
	if o.ScaleFactor == 0 {
		o.ScaleFactor = 1.0
	}
	if o.SmoothLength < 0 {
		return fmt.Errorf("invalid smoothing window %d", o.SmoothLength)
	}
	if o.MaxReadSpan == 0 {
		o.MaxReadSpan = defaultMaxReadSpan
	}
	if o.MaxReadSpan < 1 {
		return fmt.Errorf("invalid max read span %d", o.MaxReadSpan)
	}
	if o.ShardSize < 0 {
		return fmt.Errorf("invalid shard size %d", o.ShardSize)
	}
	if o.Parallelism == 0 {
		o.Parallelism = runtime.NumCPU()
	}
	if o.Parallelism < 1 {
		return fmt.Errorf("invalid parallelism %d", o.Parallelism)
	}
	return nil
}

// smoothBins returns the width, in bins, of the moving-average window, or
// zero when smoothing is off.
func (o *Opts) smoothBins() int {
	w := o.SmoothLength / o.BinSize
	if w <= 1 {
		return 0
	}
	return w
}

// contextBins returns how many bins of neighbor context each side of a shard
// needs so that smoothing windows for the shard's own bins see real counts.
func (o *Opts) contextBins() int {
	return o.smoothBins() / 2
}

// shardPadding returns how far, in bases, outside its bounds a shard must
// read so that every fragment overlapping the shard's grid is observed.
func (o *Opts) shardPadding() int {
	pad := o.MaxReadSpan
	switch {
	case o.EstimateFragLen:
		pad += 4 * maxEstimatedFragLen
	case o.ExtendReads > 0:
		pad += 4 * o.ExtendReads
	}
	return pad + o.contextBins()*o.BinSize
}
