// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gram implements the bio-gram subcommands: building a PRG's index
// artefacts (coverage graph, FM-index, kmer index) and mapping reads
// against them. Split out of main so it can be exercised without an
// os.Exit-calling main().
package gram

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bio/prg/fmindex"
	"github.com/grailbio/bio/prg/graph"
	"github.com/grailbio/bio/prg/kmerindex"
	"github.com/grailbio/bio/prg/linear"
	"github.com/grailbio/bio/prg/prgerr"
	"github.com/grailbio/bio/prg/search"
)

const (
	graphFile    = "graph.gob.fl"
	prgFile      = "prg.bin"
	kmerFile     = "kmers.bin"
	textFile     = "kmers.txt"
	manifestFile = "manifest.json"
)

// manifest records the small bits of metadata genotype needs before it can
// call kmerindex.ReadKmers/ReadText, which take k (and, for ReadKmers, the
// entry count) as explicit arguments rather than self-describing them on
// disk.
type manifest struct {
	KmerSize    int
	KmerEntries int
}

// BuildOpts holds build's resolved flag values.
type BuildOpts struct {
	PRGPath  string
	Dir      string
	KmerSize int
	AllKmers bool
}

// Build parses args as the build subcommand's flags, constructs the
// coverage graph, FM-index, and kmer index for the named PRG file, and
// persists under -dir the coverage graph, the kmer index files, a manifest,
// and the canonical PRG bytes that genotype rebuilds the FM-index from.
func Build(args []string) error {
	fs := NewBuildFlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts, err := fs.Opts()
	if err != nil {
		return err
	}
	return RunBuild(opts)
}

// RunBuild executes the build pipeline against already-resolved options.
func RunBuild(opts BuildOpts) error {
	raw, err := ioutil.ReadFile(opts.PRGPath)
	if err != nil {
		return errors.E(prgerr.ReadInputError, "bio-gram build: reading PRG file", err)
	}
	p, err := linear.FromBytes(raw, binary.LittleEndian)
	if err != nil {
		return err
	}
	log.Printf("bio-gram build: parsed PRG of length %d", p.Len())

	g, err := graph.Build(p)
	if err != nil {
		return err
	}
	log.Printf("bio-gram build: coverage graph has %d nodes, %d sites", len(g.Nodes), len(g.AlleleCount))

	idx := fmindex.Build(p)
	log.Printf("bio-gram build: FM-index built over %d positions", idx.Len())

	eng := search.NewEngine(idx, g)
	kidx := kmerindex.Build(eng, g, opts.KmerSize, opts.AllKmers)
	log.Printf("bio-gram build: kmer index has %d entries (checksum %x)", kidx.Len(), kidx.Checksum())

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return errors.E(prgerr.OutputIOError, "bio-gram build: creating output directory", err)
	}
	if err := writeFile(filepath.Join(opts.Dir, graphFile), g.Save); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(opts.Dir, prgFile), func(w io.Writer) error {
		_, err := w.Write(p.ToBytes(binary.LittleEndian))
		return err
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(opts.Dir, kmerFile), kidx.WriteKmers); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(opts.Dir, textFile), kidx.WriteText); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(opts.Dir, manifestFile), func(w io.Writer) error {
		return json.NewEncoder(w).Encode(manifest{KmerSize: opts.KmerSize, KmerEntries: kidx.Len()})
	}); err != nil {
		return err
	}
	return nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.E(prgerr.OutputIOError, fmt.Sprintf("bio-gram build: creating %s", path), err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return errors.E(prgerr.OutputIOError, fmt.Sprintf("bio-gram build: writing %s", path), err)
	}
	return f.Close()
}
