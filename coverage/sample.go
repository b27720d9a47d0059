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
	"sort"

	gbam "github.com/grailbio/bio-coverage/encoding/bam"
	"github.com/grailbio/bio-coverage/encoding/bamprovider"
	"github.com/grailbio/bio-coverage/interval"
	"github.com/grailbio/hts/sam"
)

const (
	// sampleMaxRecords bounds the total records inspected when estimating
	// genome-wide read and fragment lengths.
	sampleMaxRecords = 1000
	// sampleMaxPerRef bounds the records taken from any one reference, so
	// the sample is not dominated by the first chromosome.
	sampleMaxPerRef = 200
)

// lengthStats holds genome-wide median alignment and template lengths,
// estimated from a bounded sample of records.
type lengthStats struct {
	readLen int
	fragLen int
	nReads  int
	nPairs  int
}

// sampleLengths scans a bounded prefix of each reference and returns median
// alignment span and template length over the sampled records.
func sampleLengths(provider bamprovider.Provider, header *sam.Header) (lengthStats, error) {
	var spans, templates []int
	for _, ref := range header.Refs() {
		if len(spans) >= sampleMaxRecords {
			break
		}
		iter := provider.NewIterator(gbam.Shard{Ref: ref, Start: 0, End: ref.Len()})
		nRef := 0
		for iter.Scan() {
			rec := iter.Record()
			if rec.Flags&sam.Unmapped == 0 {
				spans = append(spans, rec.End()-rec.Pos)
				if matesOnSameRef(rec) && rec.TempLen > 0 {
					templates = append(templates, rec.TempLen)
				}
				nRef++
			}
			sam.PutInFreePool(rec)
			if nRef >= sampleMaxPerRef || len(spans) >= sampleMaxRecords {
				break
			}
		}
		if err := iter.Close(); err != nil {
			return lengthStats{}, err
		}
	}
	stats := lengthStats{nReads: len(spans), nPairs: len(templates)}
	if len(spans) > 0 {
		sort.Ints(spans)
		stats.readLen = spans[len(spans)/2]
	}
	if len(templates) > 0 {
		sort.Ints(templates)
		stats.fragLen = templates[len(templates)/2]
	}
	return stats, nil
}

// countBlacklistedReads returns how many mapped records lie entirely within
// a blacklisted region.  The count is subtracted from the normalization
// total so excluded regions do not deflate the scale factor.
func countBlacklistedReads(provider bamprovider.Provider, header *sam.Header, blacklist *interval.BEDUnion) (uint64, error) {
	var total uint64
	for _, ref := range header.Refs() {
		scanner := blacklist.ScannerByID(ref.ID())
		var start, end interval.PosType
		for scanner.Scan(&start, &end, interval.PosType(ref.Len())) {
			iter := provider.NewIterator(gbam.Shard{Ref: ref, Start: int(start), End: int(end)})
			for iter.Scan() {
				rec := iter.Record()
				if rec.Flags&sam.Unmapped == 0 &&
					blacklist.ContainsIntervalByID(ref.ID(), interval.PosType(rec.Pos), interval.PosType(rec.End())) {
					total++
				}
				sam.PutInFreePool(rec)
			}
			if err := iter.Close(); err != nil {
				return 0, err
			}
		}
	}
	return total, nil
}
