// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bigwig converts bedgraph tracks to bigwig via the standard UCSC
// bedGraphToBigWig executable.  Conversion is only possible when that
// executable is installed; callers probe for it first and fall back to
// bedgraph output when it is missing.
package bigwig

import (
	"context"
	"io/ioutil"
	"os"
	"os/exec"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// converterName is the executable searched for on PATH.
const converterName = "bedGraphToBigWig"

// Capability reports whether bigwig output is possible in this environment.
type Capability struct {
	// Available is true when a converter executable was found.
	Available bool
	// Path is the resolved executable path when Available.
	Path string
}

// Probe looks for the converter on PATH.  It never fails; an absent
// converter yields a zero Capability.
func Probe() Capability {
	path, err := exec.LookPath(converterName)
	if err != nil {
		return Capability{}
	}
	return Capability{Available: true, Path: path}
}

// writeChromSizes writes the two-column (name, length) reference table the
// converter requires.
func writeChromSizes(f *os.File, refs []*sam.Reference) error {
	w := tsv.NewWriter(f)
	for _, ref := range refs {
		w.WriteString(ref.Name())
		w.WriteUint32(uint32(ref.Len()))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Convert runs the converter on bedgraphPath, producing outPath.  refs
// supplies the reference lengths the converter validates coordinates
// against.  tempDir holds the intermediate chromosome sizes file; an empty
// string selects the system default.
func Convert(ctx context.Context, conv Capability, bedgraphPath string, refs []*sam.Reference, outPath, tempDir string) error {
	if !conv.Available {
		return errors.Errorf("no %s executable available", converterName)
	}
	sizes, err := ioutil.TempFile(tempDir, "chrom_sizes_*.tsv")
	if err != nil {
		return err
	}
	defer os.Remove(sizes.Name())
	if err = writeChromSizes(sizes, refs); err != nil {
		sizes.Close()
		return err
	}
	if err = sizes.Close(); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, conv.Path, bedgraphPath, sizes.Name(), outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "%s failed: %s", converterName, out)
	}
	return nil
}
