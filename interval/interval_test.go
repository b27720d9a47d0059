package interval

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

const testBED = "chr1\t10\t20\n" +
	"chr1\t20\t30\n" +
	"chr1\t25\t40\n" +
	"chr1\t50\t50\n" +
	"chr1\t60\t70\n" +
	"chr2\t5\t15\n"

func testHeader(t *testing.T) *sam.Header {
	chr1, err := sam.NewReference("chr1", "", "", 10000, nil, nil)
	assert.NoError(t, err)
	chr2, err := sam.NewReference("chr2", "", "", 5000, nil, nil)
	assert.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{chr1, chr2})
	assert.NoError(t, err)
	return header
}

func TestNewBEDUnionMerges(t *testing.T) {
	// Touching and overlapping rows merge, empty rows vanish.
	u, err := NewBEDUnion(strings.NewReader(testBED), NewBEDOpts{})
	assert.NoError(t, err)
	expect.EQ(t, u.nameMap["chr1"], []PosType{10, 40, 60, 70})
	expect.EQ(t, u.nameMap["chr2"], []PosType{5, 15})
}

func TestNewBEDUnionUnordered(t *testing.T) {
	shuffled, err := NewBEDUnion(strings.NewReader(
		"chr2\t5\t15\n"+
			"chr1\t60\t70\n"+
			"chr1\t25\t40\n"+
			"chr1\t10\t20\n"+
			"\n"+
			"chr1\t20\t30\n"+
			"chr1\t50\t50\n"), NewBEDOpts{})
	assert.NoError(t, err)
	expect.EQ(t, shuffled.nameMap["chr1"], []PosType{10, 40, 60, 70})
	expect.EQ(t, shuffled.nameMap["chr2"], []PosType{5, 15})
}

func TestNewBEDUnionErrors(t *testing.T) {
	for _, bed := range []string{
		"chr1\t10\n",
		"chr1\tten\t20\n",
		"chr1\t10\ttwenty\n",
		"chr1\t-5\t20\n",
		"chr1\t30\t20\n",
	} {
		_, err := NewBEDUnion(strings.NewReader(bed), NewBEDOpts{})
		expect.True(t, err != nil)
	}
}

func TestQueriesByID(t *testing.T) {
	u, err := NewBEDUnion(strings.NewReader(testBED), NewBEDOpts{SAMHeader: testHeader(t)})
	assert.NoError(t, err)

	// chr1's union is [10, 40) and [60, 70).
	expect.True(t, u.ContainsByID(0, 10))
	expect.True(t, u.ContainsByID(0, 39))
	expect.False(t, u.ContainsByID(0, 9))
	expect.False(t, u.ContainsByID(0, 40))
	expect.False(t, u.ContainsByID(0, 50))
	expect.True(t, u.ContainsByID(1, 5))

	expect.True(t, u.OverlapsByID(0, 0, 11))
	expect.False(t, u.OverlapsByID(0, 0, 10))
	expect.True(t, u.OverlapsByID(0, 39, 45))
	expect.False(t, u.OverlapsByID(0, 40, 60))
	expect.True(t, u.OverlapsByID(0, 45, 61))
	expect.False(t, u.OverlapsByID(0, 70, 1000))
	// References without intervals never overlap.
	expect.False(t, u.OverlapsByID(5, 0, 100))

	expect.True(t, u.ContainsIntervalByID(0, 10, 40))
	expect.True(t, u.ContainsIntervalByID(0, 15, 20))
	expect.False(t, u.ContainsIntervalByID(0, 15, 41))
	expect.False(t, u.ContainsIntervalByID(0, 45, 65))
	expect.False(t, u.ContainsIntervalByID(0, 60, 71))
}

func TestScannerByID(t *testing.T) {
	u, err := NewBEDUnion(strings.NewReader(testBED), NewBEDOpts{SAMHeader: testHeader(t)})
	assert.NoError(t, err)

	var start, end PosType
	var got []PosType
	scanner := u.ScannerByID(0)
	for scanner.Scan(&start, &end, 65) {
		got = append(got, start, end)
	}
	expect.EQ(t, got, []PosType{10, 40, 60, 65})

	// An interval starting at or past the limit is not scanned.
	scanner = u.ScannerByID(1)
	expect.False(t, scanner.Scan(&start, &end, 5))
}

func TestNewBEDUnionFromPath(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	plain := filepath.Join(tempDir, "regions.bed")
	assert.NoError(t, ioutil.WriteFile(plain, []byte(testBED), 0644))
	u, err := NewBEDUnionFromPath(plain, NewBEDOpts{})
	assert.NoError(t, err)
	expect.EQ(t, u.nameMap["chr1"], []PosType{10, 40, 60, 70})

	zipped := filepath.Join(tempDir, "regions.bed.gz")
	f, err := os.Create(zipped)
	assert.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(testBED))
	assert.NoError(t, err)
	assert.NoError(t, zw.Close())
	assert.NoError(t, f.Close())
	uz, err := NewBEDUnionFromPath(zipped, NewBEDOpts{})
	assert.NoError(t, err)
	expect.EQ(t, uz.nameMap["chr1"], []PosType{10, 40, 60, 70})
	expect.EQ(t, uz.nameMap["chr2"], []PosType{5, 15})
}
