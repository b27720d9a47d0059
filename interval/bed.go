package interval

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
)

// NewBEDOpts controls BED loading.
type NewBEDOpts struct {
	// SAMHeader, when set, additionally indexes the loaded intervals by the
	// header's reference IDs, enabling the ByID queries.
	SAMHeader *sam.Header
}

// span is one parsed BED row's interval.
type span struct {
	start PosType
	end   PosType
}

// splitColumns locates the first len(cols) whitespace-separated columns of
// line, returning how many were found.  Working on the scanner's byte slice
// avoids a string allocation per line.
func splitColumns(cols [][]byte, line []byte) int {
	n := 0
	i := 0
	for n < len(cols) {
		for i < len(line) && line[i] <= ' ' {
			i++
		}
		if i == len(line) {
			break
		}
		j := i
		for j < len(line) && line[j] > ' ' {
			j++
		}
		cols[n] = line[i:j]
		n++
		i = j
	}
	return n
}

// NewBEDUnion reads BED rows from reader and returns their union.  Rows may
// appear in any order.  Columns past the third are ignored; blank lines are
// skipped.
func NewBEDUnion(reader io.Reader, opts NewBEDOpts) (BEDUnion, error) {
	var u BEDUnion
	raw := make(map[string][]span)
	scanner := bufio.NewScanner(reader)
	var cols [3][]byte
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		n := splitColumns(cols[:], scanner.Bytes())
		if n == 0 {
			continue
		}
		if n < 3 {
			return u, fmt.Errorf("interval: line %d has %d column(s), want at least 3", lineIdx, n)
		}
		// The unsafe string views must not outlive this iteration; the
		// scanner reuses its buffer.
		start, err := strconv.Atoi(gunsafe.BytesToString(cols[1]))
		if err != nil {
			return u, fmt.Errorf("interval: line %d: %v", lineIdx, err)
		}
		end, err := strconv.Atoi(gunsafe.BytesToString(cols[2]))
		if err != nil {
			return u, fmt.Errorf("interval: line %d: %v", lineIdx, err)
		}
		if start < 0 || end < start || end >= PosTypeMax {
			return u, fmt.Errorf("interval: line %d has invalid interval [%d, %d)", lineIdx, start, end)
		}
		if end == start {
			continue
		}
		refName := string(cols[0])
		raw[refName] = append(raw[refName], span{PosType(start), PosType(end)})
	}
	if err := scanner.Err(); err != nil {
		return u, err
	}

	u.nameMap = make(map[string][]PosType, len(raw))
	totBases := 0
	for name, spans := range raw {
		ends := mergeSpans(spans)
		u.nameMap[name] = ends
		for i := 0; i < len(ends); i += 2 {
			totBases += int(ends[i+1] - ends[i])
		}
	}
	log.Printf("BED loaded: %d base(s) on %d reference(s)", totBases, len(u.nameMap))
	if opts.SAMHeader != nil {
		u.bindIDs(opts.SAMHeader)
	}
	return u, nil
}

// mergeSpans sorts spans and merges touching and overlapping ones into an
// ascending endpoint sequence.
func mergeSpans(spans []span) []PosType {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end < spans[j].end
	})
	ends := make([]PosType, 0, 2*len(spans))
	for _, sp := range spans {
		if n := len(ends); n > 0 && sp.start <= ends[n-1] {
			if sp.end > ends[n-1] {
				ends[n-1] = sp.end
			}
			continue
		}
		ends = append(ends, sp.start, sp.end)
	}
	return ends
}

// NewBEDUnionFromPath is NewBEDUnion on the contents of path.  Gzipped input
// is decompressed.
func NewBEDUnionFromPath(path string, opts NewBEDOpts) (u BEDUnion, err error) {
	ctx := vcontext.Background()
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return NewBEDUnion(reader, opts)
}
