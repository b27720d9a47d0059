package coverage

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestMovingAverage(t *testing.T) {
	// A window of one or less leaves the input untouched.
	in := []float64{1, 2, 3}
	expect.EQ(t, movingAverage(in, 0), in)
	expect.EQ(t, movingAverage(in, 1), in)

	// A three-bin window averages each bin with one neighbor on each side,
	// shrinking at the edges.
	expect.EQ(t, movingAverage([]float64{0, 0, 3, 0, 0}, 3), []float64{0, 1, 1, 1, 0})
	expect.EQ(t, movingAverage([]float64{3, 0, 0}, 3), []float64{1.5, 1, 0})
	expect.EQ(t, movingAverage([]float64{2, 4, 6}, 3), []float64{3, 4, 5})

	// Even windows round down to the same neighbor count as the next odd
	// window.
	expect.EQ(t, movingAverage([]float64{0, 0, 3, 0, 0}, 2), []float64{0, 1, 1, 1, 0})

	// A five-bin window reaches two neighbors each side.
	expect.EQ(t, movingAverage([]float64{5, 0, 0, 0, 0}, 5), []float64{5.0 / 3, 1.25, 1, 0, 0})
}

func TestSmoothBins(t *testing.T) {
	opts := Opts{BinSize: 20, SmoothLength: 60}
	expect.EQ(t, opts.smoothBins(), 3)
	expect.EQ(t, opts.contextBins(), 1)

	// Smoothing lengths no larger than one bin are off.
	opts = Opts{BinSize: 50, SmoothLength: 50}
	expect.EQ(t, opts.smoothBins(), 0)
	expect.EQ(t, opts.contextBins(), 0)

	opts = Opts{BinSize: 50, SmoothLength: 0}
	expect.EQ(t, opts.smoothBins(), 0)
}
