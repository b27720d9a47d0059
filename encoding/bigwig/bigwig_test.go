package bigwig

import (
	"context"
	"io/ioutil"
	"os"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestWriteChromSizes(t *testing.T) {
	chr1, err := sam.NewReference("chr1", "", "", 248956422, nil, nil)
	assert.NoError(t, err)
	chrM, err := sam.NewReference("chrM", "", "", 16569, nil, nil)
	assert.NoError(t, err)

	f, err := ioutil.TempFile("", "chrom_sizes_test")
	assert.NoError(t, err)
	defer os.Remove(f.Name())
	assert.NoError(t, writeChromSizes(f, []*sam.Reference{chr1, chrM}))
	assert.NoError(t, f.Close())
	body, err := ioutil.ReadFile(f.Name())
	assert.NoError(t, err)
	expect.EQ(t, string(body), "chr1\t248956422\nchrM\t16569\n")
}

func TestConvertUnavailable(t *testing.T) {
	err := Convert(context.Background(), Capability{}, "in.bedgraph", nil, "out.bw", "")
	assert.NotNil(t, err)
	assert.HasSubstr(t, err.Error(), "no bedGraphToBigWig executable available")
}
