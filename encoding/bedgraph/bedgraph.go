// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bedgraph writes UCSC bedgraph track lines.  A bedgraph record is a
// four-column TSV row: reference name, zero-based half-open interval bounds,
// and a value.
package bedgraph

import (
	"io"
	"strconv"

	"github.com/grailbio/base/tsv"
)

// Writer emits bedgraph records to an underlying writer.  Errors are
// reported by Append and Flush; Flush must be called before the underlying
// writer is closed.
type Writer struct {
	w *tsv.Writer
}

// NewWriter returns a Writer emitting records to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: tsv.NewWriter(w)}
}

// Append writes one record.  The value is rendered with the fewest digits
// that round-trip a float64, so integral values carry no decimal point.
func (w *Writer) Append(refName string, start, end int, value float64) error {
	w.w.WriteString(refName)
	w.w.WriteUint32(uint32(start))
	w.w.WriteUint32(uint32(end))
	w.w.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
	return w.w.EndLine()
}

// Flush forces buffered records onto the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
