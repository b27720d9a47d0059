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
	"strconv"
	"strings"

	"github.com/grailbio/hts/sam"
)

// regionDropChars are separators tolerated, and removed, in region strings
// pasted from genome browsers.
const regionDropChars = ",;|!{}()"

// CleanRegion canonicalizes a region restriction string: whitespace and
// browser punctuation are removed and "-" separators become ":".  An empty
// input stays empty, meaning no restriction.  A string with nothing left
// after cleaning is an error.
func CleanRegion(str string) (string, error) {
	cleaned := strings.Join(strings.Fields(str), "")
	if cleaned == "" {
		return "", nil
	}
	cleaned = strings.Map(func(r rune) rune {
		if strings.ContainsRune(regionDropChars, r) {
			return -1
		}
		return r
	}, cleaned)
	cleaned = strings.ReplaceAll(cleaned, "-", ":")
	if cleaned == "" {
		return "", fmt.Errorf("%s is not a valid region", str)
	}
	return cleaned, nil
}

// ParseRegion resolves a region restriction string against header.  It
// returns a nil reference when str imposes no restriction, otherwise the
// named reference and the zero-based half-open interval to restrict to.  An
// end past the reference length is truncated.
func ParseRegion(str string, header *sam.Header) (ref *sam.Reference, start, end int, err error) {
	cleaned, err := CleanRegion(str)
	if err != nil {
		return nil, 0, 0, err
	}
	if cleaned == "" {
		return nil, 0, 0, nil
	}
	tokens := strings.Split(cleaned, ":")
	if len(tokens) != 1 && len(tokens) != 3 {
		return nil, 0, 0, fmt.Errorf("%s is not a valid region", str)
	}
	for _, r := range header.Refs() {
		if r.Name() == tokens[0] {
			ref = r
			break
		}
	}
	if ref == nil {
		return nil, 0, 0, fmt.Errorf("region reference %q not found in header", tokens[0])
	}
	if len(tokens) == 1 {
		return ref, 0, ref.Len(), nil
	}
	start, err = strconv.Atoi(tokens[1])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s is not a valid region", str)
	}
	end, err = strconv.Atoi(tokens[2])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s is not a valid region", str)
	}
	if start < 0 || end <= start {
		return nil, 0, 0, fmt.Errorf("%s is not a valid region", str)
	}
	if end > ref.Len() {
		end = ref.Len()
	}
	if start >= ref.Len() {
		return nil, 0, 0, fmt.Errorf("region start %d is past the end of %s (length %d)", start, ref.Name(), ref.Len())
	}
	return ref, start, end, nil
}

// ParseProcessors resolves a worker count string: "max" means every
// available CPU, "max/2" half of them (never less than one), and anything
// else must be a positive integer, which is capped at the available CPU
// count.
func ParseProcessors(str string) (int, error) {
	avail := runtime.NumCPU()
	switch str {
	case "max/2":
		n := int(float64(avail) * 0.5)
		if n < 1 {
			n = 1
		}
		return n, nil
	case "max":
		return avail, nil
	}
	n, err := strconv.Atoi(str)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s is not a valid number of processors", str)
	}
	if n > avail {
		n = avail
	}
	return n, nil
}
