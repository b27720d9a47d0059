package coverage

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/expect"
)

func TestDupGate(t *testing.T) {
	ref, _ := sam.NewReference("chr1", "", "", 1000, nil, nil)
	gate := newDupGate()

	first := newTestRecord(ref, 100, sam.Paired, ref, 300, 236, 36)
	expect.False(t, gate.suppress(first))
	expect.True(t, gate.suppress(newTestRecord(ref, 100, sam.Paired, ref, 300, 236, 36)))

	// Strand, start, and mate start each make a distinct key.
	expect.False(t, gate.suppress(newTestRecord(ref, 100, sam.Paired|sam.Reverse, ref, 300, -236, 36)))
	expect.False(t, gate.suppress(newTestRecord(ref, 101, sam.Paired, ref, 300, 235, 36)))
	expect.False(t, gate.suppress(newTestRecord(ref, 100, sam.Paired, ref, 301, 237, 36)))

	// An unpaired read at a position is distinct from a paired read whose
	// mate starts at position zero.
	expect.False(t, gate.suppress(newTestRecord(ref, 100, 0, nil, -1, 0, 36)))
	expect.False(t, gate.suppress(newTestRecord(ref, 100, sam.Paired, ref, 0, 0, 36)))
	expect.True(t, gate.suppress(newTestRecord(ref, 100, 0, nil, -1, 0, 36)))
}

func TestDupKeyPacking(t *testing.T) {
	ref, _ := sam.NewReference("chr1", "", "", 0x7fffffff, nil, nil)
	// Keys at the extremes of the coordinate space stay distinct.
	a := dupKey(newTestRecord(ref, 0x7ffffffe, 0, nil, -1, 0, 36))
	b := dupKey(newTestRecord(ref, 0x7ffffffe, sam.Reverse, nil, -1, 0, 36))
	c := dupKey(newTestRecord(ref, 0x7ffffffe, sam.Paired, ref, 0x7ffffffe, 0, 36))
	expect.True(t, a != b)
	expect.True(t, a != c)
	expect.True(t, b != c)
}
