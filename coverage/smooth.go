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

// movingAverage replaces each count with the mean over a window of itself
// and window/2 neighbors on each side.  At the ends of the slice the window
// shrinks to the available neighbors.  A window of one or less returns
// counts unchanged.
func movingAverage(counts []float64, window int) []float64 {
	if window <= 1 {
		return counts
	}
	half := window / 2
	prefix := make([]float64, len(counts)+1)
	for i, c := range counts {
		prefix[i+1] = prefix[i] + c
	}
	out := make([]float64, len(counts))
	for i := range counts {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(counts) {
			hi = len(counts)
		}
		out[i] = (prefix[hi] - prefix[lo]) / float64(hi-lo)
	}
	return out
}
