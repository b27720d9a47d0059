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
package main

/*
bio-coverage computes a genome-wide read coverage track from a sorted,
indexed BAM and writes it as bedgraph or bigwig.
*/

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bio-coverage/coverage"
	"github.com/grailbio/bio-coverage/encoding/bamprovider"
	"github.com/grailbio/bio-coverage/encoding/bigwig"
)

var (
	out             = flag.String("out", coverage.DefaultOpts.Out, "Output path; a '.gz' suffix bgzf-compresses bedgraph output")
	format          = flag.String("format", coverage.DefaultOpts.Format, "Output format; 'bedgraph' and 'bigwig' supported, bigwig requires a bedGraphToBigWig executable on PATH")
	bamIndexPath    = flag.String("index", "", "Input BAM index path. Defaults to bampath + .bai")
	binSize         = flag.Int("bin-size", coverage.DefaultOpts.BinSize, "Coverage bin width in bases")
	region          = flag.String("region", "", "Restrict computation to the specified region. Format as <contig ID>, <contig ID>:<0-based first pos>:<limit pos>, or <contig ID>:<0-based first pos>-<limit pos>")
	extendReads     = flag.Int("extend-reads", coverage.DefaultOpts.ExtendReads, "Extend reads to this fragment length; 0 = no extension")
	estimateFragLen = flag.Bool("estimate-frag-len", false, "Extend reads to a fragment length estimated from observed template lengths")
	centerReads     = flag.Bool("center-reads", false, "Center read contributions on the fragment midpoint")
	mapq            = flag.Int("mapq", coverage.DefaultOpts.MinMapQ, "Reads with MAPQ below this level are skipped")
	flagInclude     = flag.Int("flag-include", coverage.DefaultOpts.FlagInclude, "Only reads with all FLAG bits in this value are counted")
	flagExclude     = flag.Int("flag-exclude", coverage.DefaultOpts.FlagExclude, "Reads with a FLAG bit intersecting this value are skipped")
	ignoreDups      = flag.Bool("ignore-duplicates", false, "Count at most one read per (orientation, start, mate start)")
	normalizeTo1x   = flag.Uint64("normalize-to-1x", 0, "Scale to 1x average coverage, assuming an effective genome size of this many bases; 0 disables")
	normalizeRPKM   = flag.Bool("normalize-rpkm", false, "Scale to reads per kilobase per million mapped reads")
	scaleFactor     = flag.Float64("scale-factor", coverage.DefaultOpts.ScaleFactor, "Multiply every output value by this factor")
	ignoreForNorm   = flag.String("ignore-for-normalization", "", "Comma-separated reference names excluded from the mapped-read total used for normalization")
	blacklist       = flag.String("blacklist", "", "BED file of regions to exclude from counting and normalization")
	smoothLength    = flag.Int("smooth-length", coverage.DefaultOpts.SmoothLength, "Average each bin over a window of this many bases; 0 disables")
	missingAsZero   = flag.Bool("missing-data-as-zero", coverage.DefaultOpts.MissingDataAsZero, "Write uncovered bins with value 0 instead of omitting them")
	maxReadSpan     = flag.Int("max-read-span", coverage.DefaultOpts.MaxReadSpan, "Upper bound on size of reference-genome region a read maps to")
	shardSize       = flag.Int("shard-size", 0, "Genome partition size in bases; 0 = default")
	parallelism     = flag.String("parallelism", "max/2", "Maximum number of simultaneous shard jobs; 'max', 'max/2', or a number")
	tempDir         = flag.String("temp-dir", "", "Directory to write temporary files to (default os.TempDir())")
)

func bioCoverageUsage() {
	fmt.Printf("Usage: %s [OPTIONS] bampath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioCoverageUsage
	shutdown := grail.Init()
	defer shutdown()

	allArgs := flag.Args()
	nPositionalArgs := flag.NArg()
	positionalArgs := allArgs[len(allArgs)-nPositionalArgs:]
	if nPositionalArgs != 1 {
		if nPositionalArgs < 1 {
			log.Fatalf("Missing positional argument (bampath required); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
		} else {
			log.Fatalf("Too many positional arguments (only bampath expected); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
		}
	}
	procs, err := coverage.ParseProcessors(*parallelism)
	if err != nil {
		log.Fatalf("%v", err)
	}
	outFormat := *format
	if outFormat == coverage.FormatBigWig && !bigwig.Probe().Available {
		fmt.Fprintf(os.Stderr, "The output is set by default to 'bedgraph'\n")
		outFormat = coverage.FormatBedgraph
	}
	var ignoreRefs []string
	if *ignoreForNorm != "" {
		ignoreRefs = strings.Split(*ignoreForNorm, ",")
	}

	ctx := vcontext.Background()
	opts := coverage.Opts{
		Out:                    *out,
		Format:                 outFormat,
		BinSize:                *binSize,
		Region:                 *region,
		ExtendReads:            *extendReads,
		EstimateFragLen:        *estimateFragLen,
		CenterReads:            *centerReads,
		MinMapQ:                *mapq,
		FlagInclude:            *flagInclude,
		FlagExclude:            *flagExclude,
		IgnoreDuplicates:       *ignoreDups,
		NormalizeTo1x:          *normalizeTo1x,
		NormalizeRPKM:          *normalizeRPKM,
		ScaleFactor:            *scaleFactor,
		IgnoreForNormalization: ignoreRefs,
		BlacklistFile:          *blacklist,
		SmoothLength:           *smoothLength,
		MissingDataAsZero:      *missingAsZero,
		MaxReadSpan:            *maxReadSpan,
		ShardSize:              *shardSize,
		Parallelism:            procs,
		TempDir:                *tempDir,
	}
	provider := bamprovider.NewProvider(positionalArgs[0], bamprovider.ProviderOpts{Index: *bamIndexPath})
	if err := coverage.Run(ctx, provider, &opts); err != nil {
		log.Panicf("%v", err)
	}
	if err := provider.Close(); err != nil {
		log.Panicf("%v", err)
	}
	log.Debug.Printf("exiting")
}
