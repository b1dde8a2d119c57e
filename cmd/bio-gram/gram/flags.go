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
package gram

import (
	"flag"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bio/prg/prgerr"
)

// BuildFlagSet wraps the build subcommand's flag.FlagSet so its resolved
// values can be pulled out as a BuildOpts after Parse.
type BuildFlagSet struct {
	fs       *flag.FlagSet
	prgPath  *string
	dir      *string
	kmerSize *int
	allKmers *bool
}

// NewBuildFlagSet declares the build subcommand's flags.
func NewBuildFlagSet() *BuildFlagSet {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	b := &BuildFlagSet{fs: fs}
	b.prgPath = fs.String("prg", "", "Input PRG file, as a stream of little-endian uint32 markers")
	b.dir = fs.String("dir", "", "Output directory for the graph, FM-index, and kmer index artefacts")
	b.kmerSize = fs.Int("kmer-size", 9, "Kmer index word length")
	b.allKmers = fs.Bool("all-kmers", false, "Enumerate every length-k DNA word instead of only the PRG's own right-side contexts")
	return b
}

// Parse parses args against the declared flags.
func (b *BuildFlagSet) Parse(args []string) error { return b.fs.Parse(args) }

// Opts validates and returns the parsed flag values.
func (b *BuildFlagSet) Opts() (BuildOpts, error) {
	if *b.prgPath == "" {
		return BuildOpts{}, errors.E(prgerr.ReadInputError, "bio-gram build: -prg is required")
	}
	if *b.dir == "" {
		return BuildOpts{}, errors.E(prgerr.OutputIOError, "bio-gram build: -dir is required")
	}
	if *b.kmerSize <= 0 {
		return BuildOpts{}, errors.E(prgerr.KmerIndexMismatch, "bio-gram build: -kmer-size must be positive")
	}
	return BuildOpts{
		PRGPath:  *b.prgPath,
		Dir:      *b.dir,
		KmerSize: *b.kmerSize,
		AllKmers: *b.allKmers,
	}, nil
}

// GenotypeFlagSet wraps the genotype subcommand's flag.FlagSet.
type GenotypeFlagSet struct {
	fs          *flag.FlagSet
	dir         *string
	reads       *string
	maxReadLen  *int
	parallelism *int
	ploidy      *int
	seed        *int64
	out         *string
}

// NewGenotypeFlagSet declares the genotype subcommand's flags.
func NewGenotypeFlagSet() *GenotypeFlagSet {
	fs := flag.NewFlagSet("genotype", flag.ContinueOnError)
	g := &GenotypeFlagSet{fs: fs}
	g.dir = fs.String("dir", "", "Directory holding the artefacts written by 'build'")
	g.reads = fs.String("reads", "", "Input FASTQ reads file")
	g.maxReadLen = fs.Int("max-read-len", 500, "Upper bound on individual read length; longer reads are rejected")
	g.parallelism = fs.Int("parallelism", 0, "Maximum number of worker goroutines mapping reads concurrently; 0 = runtime.NumCPU()")
	g.ploidy = fs.Int("ploidy", 2, "Accepted for CLI-surface parity; genotyping likelihood/ploidy calls are not computed here")
	g.seed = fs.Int64("seed", 0, "PRNG seed for per-base multi-mapping tie-breaks")
	g.out = fs.String("out", "", "Output coverage-summary JSON path; '-' or empty writes to stdout")
	return g
}

// Parse parses args against the declared flags.
func (g *GenotypeFlagSet) Parse(args []string) error { return g.fs.Parse(args) }

// Opts validates and returns the parsed flag values.
func (g *GenotypeFlagSet) Opts() (GenotypeOpts, error) {
	if *g.dir == "" {
		return GenotypeOpts{}, errors.E(prgerr.ReadInputError, "bio-gram genotype: -dir is required")
	}
	if *g.reads == "" {
		return GenotypeOpts{}, errors.E(prgerr.ReadInputError, "bio-gram genotype: -reads is required")
	}
	if *g.maxReadLen <= 0 {
		return GenotypeOpts{}, errors.E(prgerr.ReadInputError, "bio-gram genotype: -max-read-len must be positive")
	}
	parallelism := *g.parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	return GenotypeOpts{
		Dir:         *g.dir,
		ReadsPath:   *g.reads,
		MaxReadLen:  *g.maxReadLen,
		Parallelism: parallelism,
		Ploidy:      *g.ploidy,
		Seed:        *g.seed,
		OutPath:     *g.out,
	}, nil
}
