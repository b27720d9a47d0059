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
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/golang/snappy"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	gbam "github.com/grailbio/bio-coverage/encoding/bam"
	"github.com/grailbio/bio-coverage/encoding/bamprovider"
	"github.com/grailbio/bio-coverage/encoding/bedgraph"
	"github.com/grailbio/bio-coverage/encoding/bigwig"
	"github.com/grailbio/bio-coverage/interval"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/hts/sam"
)

// shardContext bundles the read-only state every shard worker consults.
type shardContext struct {
	opts      *Opts
	norm      normContext
	blacklist *interval.BEDUnion
	// regionRef is non-nil when computation is restricted to one reference
	// interval; regionStart/regionEnd then hold its bounds and double as the
	// bin lattice anchor.
	regionRef   *sam.Reference
	regionStart int
	regionEnd   int
}

// gridBounds returns the bin lattice anchor and upper limit for shard's
// reference.
func (c *shardContext) gridBounds(shard gbam.Shard) (origin, limit int) {
	if c.regionRef != nil {
		return c.regionStart, c.regionEnd
	}
	return 0, shard.Ref.Len()
}

// Run computes a coverage track for provider's alignments and writes it to
// opts.Out.  The genome is partitioned into shards processed concurrently;
// each worker appends its shard's records to a spill file, and the spill
// files are concatenated in genome order at the end.
func Run(ctx context.Context, provider bamprovider.Provider, opts *Opts) (err error) {
	if err = opts.normalizeAndValidate(); err != nil {
		return err
	}
	header, err := provider.GetHeader()
	if err != nil {
		return err
	}

	sctx := shardContext{opts: opts}
	if sctx.regionRef, sctx.regionStart, sctx.regionEnd, err = ParseRegion(opts.Region, header); err != nil {
		return err
	}
	if opts.BlacklistFile != "" {
		var blacklist interval.BEDUnion
		if blacklist, err = interval.NewBEDUnionFromPath(
			opts.BlacklistFile,
			interval.NewBEDOpts{SAMHeader: header},
		); err != nil {
			return err
		}
		sctx.blacklist = &blacklist
	}

	var totalMapped uint64
	var sampled lengthStats
	if resolveNormMode(opts) != normNone {
		var mappedCounts []uint64
		if mappedCounts, err = provider.MappedCounts(); err != nil {
			return err
		}
		var blacklisted uint64
		if sctx.blacklist != nil {
			if blacklisted, err = countBlacklistedReads(provider, header, sctx.blacklist); err != nil {
				return err
			}
			log.Printf("coverage: %d blacklisted reads excluded from the normalization total", blacklisted)
		}
		totalMapped = normalizationTotal(header, mappedCounts, opts.IgnoreForNormalization, blacklisted)
		if resolveNormMode(opts) == norm1x && opts.ExtendReads == 0 {
			if sampled, err = sampleLengths(provider, header); err != nil {
				return err
			}
		}
	}
	if sctx.norm, err = newNormContext(opts, totalMapped, sampled); err != nil {
		return err
	}
	log.Debug.Printf("coverage: normalization mode %s, factor %g", sctx.norm.mode, sctx.norm.factor)

	shards, err := provider.GenerateShards(bamprovider.GenerateShardsOpts{
		ShardSize: opts.ShardSize,
		Padding:   opts.shardPadding(),
		BinWidth:  opts.BinSize,
		Ref:       sctx.regionRef,
		Start:     sctx.regionStart,
		End:       sctx.regionEnd,
	})
	if err != nil {
		return err
	}
	nShard := len(shards)
	if nShard == 0 {
		return writeTrack(ctx, nil, opts, header)
	}
	parallelism := minInt(opts.Parallelism, nShard)

	if opts.TempDir != "" {
		if err = os.MkdirAll(opts.TempDir, 0755); err != nil {
			return err
		}
	}
	tmpFiles := make([]*os.File, parallelism)
	defer func() {
		for _, f := range tmpFiles {
			if f != nil {
				if e := f.Close(); e != nil && err == nil {
					err = e
				}
				os.Remove(f.Name())
			}
		}
	}()
	for jobIdx := range tmpFiles {
		if tmpFiles[jobIdx], err = ioutil.TempFile(opts.TempDir, "coverage_tmp"+strconv.Itoa(jobIdx)+"_*.bedgraph.sz"); err != nil {
			return err
		}
	}

	log.Printf("coverage: starting main loop (%d shards, %d jobs)", nShard, parallelism)
	err = traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * nShard) / parallelism
		endIdx := ((jobIdx + 1) * nShard) / parallelism
		filter := newRecordFilter(opts)
		spill := snappy.NewBufferedWriter(tmpFiles[jobIdx])
		w := bedgraph.NewWriter(spill)
		for _, shard := range shards[startIdx:endIdx] {
			if e := processShard(provider, shard, &sctx, &filter, w); e != nil {
				return e
			}
		}
		if e := w.Flush(); e != nil {
			return e
		}
		return spill.Close()
	})
	if err != nil {
		return err
	}
	log.Printf("coverage: main loop complete")
	return writeTrack(ctx, tmpFiles, opts, header)
}

// processShard streams one shard's records through the filter, duplicate
// gate, and fragment resolver, bins the surviving fragments, and appends the
// shard's own bins to w.
func processShard(provider bamprovider.Provider, shard gbam.Shard, sctx *shardContext, filter *recordFilter, w *bedgraph.Writer) error {
	opts := sctx.opts
	origin, limit := sctx.gridBounds(shard)
	grid := newBinGrid(shard, opts.BinSize, opts.contextBins(), origin, limit)
	resolver := newFragmentResolver(opts)
	var gate *dupGate
	if opts.IgnoreDuplicates {
		gate = newDupGate()
	}

	iter := provider.NewIterator(shard)
	for iter.Scan() {
		rec := iter.Record()
		if !filter.keep(rec) {
			sam.PutInFreePool(rec)
			continue
		}
		if gate != nil && gate.suppress(rec) {
			sam.PutInFreePool(rec)
			continue
		}
		fragStart, fragEnd := resolver.resolve(rec)
		if sctx.blacklist != nil &&
			sctx.blacklist.OverlapsByID(rec.Ref.ID(), interval.PosType(fragStart), interval.PosType(fragEnd)) {
			sam.PutInFreePool(rec)
			continue
		}
		grid.add(fragStart, fragEnd)
		sam.PutInFreePool(rec)
	}
	if err := iter.Close(); err != nil {
		return fmt.Errorf("coverage: shard %s: %v", shard.String(), err)
	}

	vals := movingAverage(grid.counts, opts.smoothBins())
	first, binLimit := grid.emitRange()
	refName := shard.Ref.Name()
	for i := first; i < binLimit; i++ {
		if vals[i] == 0 && !opts.MissingDataAsZero {
			continue
		}
		binStart, binEnd := grid.binSpan(i)
		if err := w.Append(refName, binStart, binEnd, vals[i]*sctx.norm.factor); err != nil {
			return err
		}
	}
	return nil
}

// writeTrack concatenates the spill files in genome order and writes the
// result in the requested output format.  tmpFiles may be nil, producing an
// empty track.
func writeTrack(ctx context.Context, tmpFiles []*os.File, opts *Opts, header *sam.Header) error {
	if opts.Format == FormatBedgraph {
		return mergeSpills(ctx, tmpFiles, opts.Out, opts.Parallelism)
	}
	conv := bigwig.Probe()
	if !conv.Available {
		return fmt.Errorf("bigwig output requires a bedGraphToBigWig executable on PATH")
	}
	bg, err := ioutil.TempFile(opts.TempDir, "coverage_merge_*.bedgraph")
	if err != nil {
		return err
	}
	bgPath := bg.Name()
	defer os.Remove(bgPath)
	if err = bg.Close(); err != nil {
		return err
	}
	if err = mergeSpills(ctx, tmpFiles, bgPath, opts.Parallelism); err != nil {
		return err
	}
	return bigwig.Convert(ctx, conv, bgPath, header.Refs(), opts.Out, opts.TempDir)
}

// mergeSpills concatenates the spill files, in order, into outPath.  A ".gz"
// suffix selects bgzf compression.
func mergeSpills(ctx context.Context, tmpFiles []*os.File, outPath string, parallelism int) (err error) {
	dst, err := file.Create(ctx, outPath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, dst, &err)
	var w io.Writer = dst.Writer(ctx)
	if strings.HasSuffix(outPath, ".gz") {
		bgzfWriter := bgzf.NewWriter(w, parallelism)
		defer func() {
			if e := bgzfWriter.Close(); e != nil && err == nil {
				err = e
			}
		}()
		w = bgzfWriter
	}
	for _, f := range tmpFiles {
		if _, err = f.Seek(0, 0); err != nil {
			return err
		}
		if _, err = io.Copy(w, snappy.NewReader(f)); err != nil {
			return err
		}
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
