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

/*
Given a sorted, indexed BAM, bio-coverage reports the number of read
fragments overlapping each fixed-width genomic bin, as a bedgraph or bigwig
track.  This command is similar to "bamCoverage" from the deepTools suite.

Reads can be extended to their full fragment length, either to a fixed value
or to a length estimated from observed template lengths, and optionally
re-centered on the fragment midpoint.  Counts can be left raw, scaled to 1x
average genomic coverage, or converted to RPKM.  A moving average smooths the
track when -smooth-length exceeds the bin size.

Bigwig output shells out to the standard UCSC bedGraphToBigWig converter; if
that executable is not installed the tool falls back to bedgraph.

Sample usage:
bio-coverage \
    --bin-size 50 \
    --normalize-to-1x 2451960000 \
    --estimate-frag-len \
    --out coverage.bedgraph \
    my.bam
*/
package main
