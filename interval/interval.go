package interval

import (
	"math"
	"sort"

	"github.com/grailbio/hts/sam"
)

// PosType is the coordinate type used throughout this package.
type PosType int32

// PosTypeMax is the largest representable coordinate.
const PosTypeMax = math.MaxInt32

// BEDUnion is a set of genomic intervals with overlapping and touching
// intervals merged.  Each reference's set is an ascending endpoint sequence
// {start0, end0, start1, end1, ...}, so a position lies inside the union
// exactly when the number of endpoints at or before it is odd.
type BEDUnion struct {
	// nameMap maps reference names to endpoint sequences.
	nameMap map[string][]PosType
	// idMap holds the same endpoint sequences indexed by sam.Header
	// reference ID.  Nil unless the union was built with a SAMHeader.
	idMap [][]PosType
}

// bindIDs indexes the endpoint sequences by header reference ID, enabling
// the ByID queries.
func (u *BEDUnion) bindIDs(header *sam.Header) {
	refs := header.Refs()
	u.idMap = make([][]PosType, len(refs))
	for _, ref := range refs {
		if ends, ok := u.nameMap[ref.Name()]; ok {
			u.idMap[ref.ID()] = ends
		}
	}
}

// endpointsByID returns the endpoint sequence for the given reference ID, or
// nil when the reference has no intervals.
func (u *BEDUnion) endpointsByID(chrID int) []PosType {
	if chrID < 0 || chrID >= len(u.idMap) {
		return nil
	}
	return u.idMap[chrID]
}

// searchEndpoints returns the index of the first endpoint greater than pos.
// An odd result means pos lies inside an interval.
func searchEndpoints(ends []PosType, pos PosType) int {
	return sort.Search(len(ends), func(i int) bool { return ends[i] > pos })
}

// ContainsByID reports whether position pos on the reference with the given
// sam.Header ID lies inside the union.
func (u *BEDUnion) ContainsByID(chrID int, pos PosType) bool {
	return searchEndpoints(u.endpointsByID(chrID), pos)&1 == 1
}

// OverlapsByID reports whether the 0-based half-open interval
// [startPos, limitPos) on the reference with the given sam.Header ID
// overlaps the union.
func (u *BEDUnion) OverlapsByID(chrID int, startPos, limitPos PosType) bool {
	ends := u.endpointsByID(chrID)
	idx := searchEndpoints(ends, startPos)
	if idx&1 == 1 {
		return true
	}
	return idx < len(ends) && ends[idx] < limitPos
}

// ContainsIntervalByID reports whether [startPos, limitPos) lies entirely
// inside a single interval of the union.
func (u *BEDUnion) ContainsIntervalByID(chrID int, startPos, limitPos PosType) bool {
	ends := u.endpointsByID(chrID)
	idx := searchEndpoints(ends, startPos)
	return idx&1 == 1 && limitPos <= ends[idx]
}

// ScannerByID returns a scanner over the union's intervals on the reference
// with the given sam.Header ID, in ascending order.
func (u *BEDUnion) ScannerByID(chrID int) UnionScanner {
	return UnionScanner{ends: u.endpointsByID(chrID)}
}

// UnionScanner iterates over one reference's intervals.
type UnionScanner struct {
	ends []PosType
}

// Scan advances to the next interval starting below limit, storing its
// bounds in *start and *end, with *end clipped to limit.  It returns false
// when no such interval remains.
func (s *UnionScanner) Scan(start, end *PosType, limit PosType) bool {
	if len(s.ends) < 2 || s.ends[0] >= limit {
		return false
	}
	*start = s.ends[0]
	*end = s.ends[1]
	if *end > limit {
		*end = limit
	}
	s.ends = s.ends[2:]
	return true
}
