package coverage

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func testHeader(t *testing.T) *sam.Header {
	ref1, _ := sam.NewReference("chr1", "", "", 10000, nil, nil)
	ref2, _ := sam.NewReference("chrM", "", "", 1000, nil, nil)
	header, err := sam.NewHeader(nil, []*sam.Reference{ref1, ref2})
	assert.NoError(t, err)
	return header
}

func TestNormalizationTotal(t *testing.T) {
	header := testHeader(t)
	counts := []uint64{600, 400}
	expect.EQ(t, normalizationTotal(header, counts, nil, 0), uint64(1000))
	expect.EQ(t, normalizationTotal(header, counts, []string{"chrM"}, 0), uint64(600))
	expect.EQ(t, normalizationTotal(header, counts, []string{"chrM"}, 100), uint64(500))
	// More blacklisted reads than mapped reads clamps at zero.
	expect.EQ(t, normalizationTotal(header, counts, nil, 5000), uint64(0))
}

func TestNormContextNone(t *testing.T) {
	opts := Opts{ScaleFactor: 1.0}
	nc, err := newNormContext(&opts, 0, lengthStats{})
	assert.NoError(t, err)
	expect.EQ(t, nc.mode, normNone)
	expect.EQ(t, nc.factor, 1.0)

	opts.ScaleFactor = 2.5
	nc, err = newNormContext(&opts, 0, lengthStats{})
	assert.NoError(t, err)
	expect.EQ(t, nc.factor, 2.5)
}

func TestNormContext1x(t *testing.T) {
	// 1e6 mapped 200-base fragments over a 2e6-base genome is 100x
	// coverage, so values scale by 0.01.
	opts := Opts{ScaleFactor: 1.0, NormalizeTo1x: 2000000, ExtendReads: 200}
	nc, err := newNormContext(&opts, 1000000, lengthStats{})
	assert.NoError(t, err)
	expect.EQ(t, nc.mode, norm1x)
	expect.EQ(t, nc.factor, 0.01)
	expect.EQ(t, nc.fragLen, 200)

	// Without a fixed extension length the sampled fragment length is used.
	opts = Opts{ScaleFactor: 1.0, NormalizeTo1x: 2000000, EstimateFragLen: true}
	nc, err = newNormContext(&opts, 1000000, lengthStats{fragLen: 200, nPairs: 50, readLen: 36, nReads: 100})
	assert.NoError(t, err)
	expect.EQ(t, nc.factor, 0.01)

	// Unextended reads cover only their own span.
	opts = Opts{ScaleFactor: 1.0, NormalizeTo1x: 2000000}
	nc, err = newNormContext(&opts, 1000000, lengthStats{readLen: 100, nReads: 100})
	assert.NoError(t, err)
	expect.EQ(t, nc.fragLen, 100)
	expect.EQ(t, nc.factor, 0.02)
}

func TestNormContext1xErrors(t *testing.T) {
	opts := Opts{ScaleFactor: 1.0, NormalizeTo1x: 2000000, EstimateFragLen: true}
	_, err := newNormContext(&opts, 1000000, lengthStats{})
	assert.HasSubstr(t, err.Error(), "requires paired reads")

	opts = Opts{ScaleFactor: 1.0, NormalizeTo1x: 2000000, ExtendReads: 200}
	_, err = newNormContext(&opts, 0, lengthStats{})
	assert.HasSubstr(t, err.Error(), "requires mapped reads")
}

func TestNormContextRPKM(t *testing.T) {
	// Two million mapped reads and 50-base bins: factor 10, so a bin with
	// ten reads reports 100.
	opts := Opts{ScaleFactor: 1.0, NormalizeRPKM: true, BinSize: 50}
	nc, err := newNormContext(&opts, 2000000, lengthStats{})
	assert.NoError(t, err)
	expect.EQ(t, nc.mode, normRPKM)
	expect.EQ(t, nc.factor, 10.0)

	_, err = newNormContext(&opts, 0, lengthStats{})
	assert.HasSubstr(t, err.Error(), "requires mapped reads")
}
