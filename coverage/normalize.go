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

	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
)

type normMode int

const (
	normNone normMode = iota
	norm1x
	normRPKM
)

func (m normMode) String() string {
	switch m {
	case norm1x:
		return "1x"
	case normRPKM:
		return "RPKM"
	}
	return "none"
}

// normContext carries the scaling applied to every emitted bin value.  All
// normalization modes reduce to one uniform factor, resolved once before
// shard processing starts.
type normContext struct {
	mode        normMode
	factor      float64
	totalMapped uint64
	fragLen     int
}

func resolveNormMode(opts *Opts) normMode {
	switch {
	case opts.NormalizeTo1x != 0:
		return norm1x
	case opts.NormalizeRPKM:
		return normRPKM
	}
	return normNone
}

// normalizationTotal returns the mapped-record total used for normalization:
// every mapped record, less those on ignored references, less blacklisted
// reads.
func normalizationTotal(header *sam.Header, mappedCounts []uint64, ignore []string, blacklisted uint64) uint64 {
	ignored := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		ignored[name] = true
	}
	var total uint64
	for _, ref := range header.Refs() {
		if ignored[ref.Name()] {
			continue
		}
		total += mappedCounts[ref.ID()]
	}
	if blacklisted > total {
		return 0
	}
	return total - blacklisted
}

// newNormContext resolves the normalization mode and scale factor.  sampled
// is consulted for the fragment length only when 1x normalization is
// requested without a fixed extension length.
func newNormContext(opts *Opts, totalMapped uint64, sampled lengthStats) (normContext, error) {
	nc := normContext{
		mode:        resolveNormMode(opts),
		factor:      opts.ScaleFactor,
		totalMapped: totalMapped,
	}
	switch nc.mode {
	case normNone:
		return nc, nil
	case norm1x:
		switch {
		case opts.ExtendReads > 0:
			nc.fragLen = opts.ExtendReads
		case opts.EstimateFragLen:
			if sampled.nPairs == 0 {
				return nc, fmt.Errorf("fragment length estimation for 1x normalization requires paired reads")
			}
			nc.fragLen = sampled.fragLen
		default:
			if sampled.nReads == 0 {
				return nc, fmt.Errorf("1x normalization requires mapped reads")
			}
			nc.fragLen = sampled.readLen
		}
		if nc.fragLen <= 0 {
			return nc, fmt.Errorf("invalid fragment length %d for 1x normalization", nc.fragLen)
		}
		if totalMapped == 0 {
			return nc, fmt.Errorf("1x normalization requires mapped reads")
		}
		depth := float64(totalMapped) * float64(nc.fragLen) / float64(opts.NormalizeTo1x)
		nc.factor = opts.ScaleFactor / depth
		log.Printf("1x normalization: %d mapped reads, fragment length %d, mean coverage %.4f, factor %g",
			totalMapped, nc.fragLen, depth, nc.factor)
	case normRPKM:
		if totalMapped == 0 {
			return nc, fmt.Errorf("RPKM normalization requires mapped reads")
		}
		millions := float64(totalMapped) / 1e6
		perKb := float64(opts.BinSize) / 1000.0
		nc.factor = opts.ScaleFactor / (millions * perKb)
		log.Printf("RPKM normalization: %d mapped reads, bin size %d, factor %g",
			totalMapped, opts.BinSize, nc.factor)
	}
	return nc, nil
}
