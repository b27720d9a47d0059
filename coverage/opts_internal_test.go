package coverage

import (
	"runtime"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestOptsDefaults(t *testing.T) {
	opts := Opts{Out: "out.bedgraph"}
	assert.NoError(t, opts.normalizeAndValidate())
	expect.EQ(t, opts.Format, FormatBedgraph)
	expect.EQ(t, opts.BinSize, defaultBinSize)
	expect.EQ(t, opts.ScaleFactor, 1.0)
	expect.EQ(t, opts.MaxReadSpan, defaultMaxReadSpan)
	expect.EQ(t, opts.Parallelism, runtime.NumCPU())
}

func TestOptsValidation(t *testing.T) {
	tests := []struct {
		opts Opts
		want string
	}{
		{Opts{}, "output path required"},
		{Opts{Out: "x", Format: "wiggle"}, "invalid output format"},
		{Opts{Out: "x", BinSize: -5}, "invalid bin size"},
		{Opts{Out: "x", ExtendReads: -1}, "invalid read extension length"},
		{Opts{Out: "x", ExtendReads: 200, EstimateFragLen: true}, "conflicts with fragment length estimation"},
		{Opts{Out: "x", MinMapQ: 300}, "invalid mapping quality threshold"},
		{Opts{Out: "x", NormalizeTo1x: 1000, NormalizeRPKM: true}, "conflicts with RPKM normalization"},
		{Opts{Out: "x", SmoothLength: -1}, "invalid smoothing window"},
		{Opts{Out: "x", MaxReadSpan: -1}, "invalid max read span"},
		{Opts{Out: "x", ShardSize: -1}, "invalid shard size"},
		{Opts{Out: "x", Parallelism: -1}, "invalid parallelism"},
	}
	for _, test := range tests {
		opts := test.opts
		err := opts.normalizeAndValidate()
		assert.NotNil(t, err)
		assert.HasSubstr(t, err.Error(), test.want)
	}
}

func TestShardPadding(t *testing.T) {
	opts := Opts{Out: "x"}
	assert.NoError(t, opts.normalizeAndValidate())
	expect.EQ(t, opts.shardPadding(), defaultMaxReadSpan)

	opts = Opts{Out: "x", ExtendReads: 200}
	assert.NoError(t, opts.normalizeAndValidate())
	expect.EQ(t, opts.shardPadding(), defaultMaxReadSpan+800)

	opts = Opts{Out: "x", EstimateFragLen: true}
	assert.NoError(t, opts.normalizeAndValidate())
	expect.EQ(t, opts.shardPadding(), defaultMaxReadSpan+4*maxEstimatedFragLen)

	// Smoothing context widens the padding by its bin count.
	opts = Opts{Out: "x", BinSize: 20, SmoothLength: 60}
	assert.NoError(t, opts.normalizeAndValidate())
	expect.EQ(t, opts.shardPadding(), defaultMaxReadSpan+20)
}
