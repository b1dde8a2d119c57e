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

// Package quasimap wires the kmer index, backward-search engine, and
// coverage recorder into the parallel-over-reads mapping pipeline of
// spec.md §5: one producer goroutine feeds a bounded channel, a worker
// pool drains it against read-only shared PRG state, and a shared
// Recorder absorbs coverage updates. Grounded on markduplicates'
// shard/worker pattern (markduplicates/mark_duplicates.go).
package quasimap

import (
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/coverage"
	"github.com/grailbio/bio/prg/fmindex"
	"github.com/grailbio/bio/prg/graph"
	"github.com/grailbio/bio/prg/kmerindex"
	"github.com/grailbio/bio/prg/prgerr"
	"github.com/grailbio/bio/prg/search"
)

// Opts configures one mapping run.
type Opts struct {
	// K is the kmer index's word length; reads shorter than K skip
	// seeding and fall back to a whole-read backward search.
	K int

	// Parallelism is the worker pool size (spec.md §5's max-threads
	// parameter).
	Parallelism int

	// Seed derives each read's per-base tie-break PRNG via
	// coverage.ReadRand(Seed, readIndex).
	Seed int64
}

// Read is one input read ready for mapping.
type Read struct {
	// Bases is the read's encoded sequence, index 0 leftmost.
	Bases []alphabet.Marker

	// Index is the read's 0-based position in the input, the
	// determinism key for per-base PRNG tie-breaks (spec.md §5).
	Index int
}

// Mapper maps reads against one fixed PRG and accumulates their coverage.
// The shared fields are read-only once constructed and safe to use from
// multiple worker goroutines simultaneously; Recorder internally
// synchronises its own writes.
type Mapper struct {
	Engine   *search.Engine
	Index    *fmindex.FMIndex
	KmerIdx  *kmerindex.Index // nil disables kmer seeding
	Recorder *coverage.Recorder
	Opts     Opts
}

// NewMapper builds a Mapper's search engine and coverage recorder from a
// PRG's FM-index and coverage graph. kmerIdx may be nil, in which case
// every read is matched by an unseeded whole-read backward search.
func NewMapper(idx *fmindex.FMIndex, g *graph.Graph, kmerIdx *kmerindex.Index, opts Opts) *Mapper {
	return &Mapper{
		Engine:   search.NewEngine(idx, g),
		Index:    idx,
		KmerIdx:  kmerIdx,
		Recorder: coverage.NewRecorder(g),
		Opts:     opts,
	}
}

// MapRead maps one read and records its coverage. Safe for concurrent use
// across distinct reads.
func (m *Mapper) MapRead(r Read) {
	states := m.search(r.Bases)
	if len(states) == 0 {
		return
	}

	var loci []graph.Locus
	for _, s := range states {
		loci = append(loci, s.Traversed...)
	}
	m.Recorder.RecordTraversed(loci)

	rng := coverage.ReadRand(m.Opts.Seed, r.Index)
	for _, s := range states {
		m.Recorder.RecordPerBase(m.Index, s, len(r.Bases), rng)
	}
}

// search resolves bases to terminal states, seeding from the kmer index's
// right-hand k bases when available (spec.md §4.4's "a read is reduced to
// its right-hand kmer").
func (m *Mapper) search(bases []alphabet.Marker) []search.TerminalState {
	if m.KmerIdx == nil || len(bases) < m.KmerIdx.K {
		return m.Engine.BackwardSearch(bases)
	}
	seedStart := len(bases) - m.KmerIdx.K
	seed, ok := m.KmerIdx.Lookup(bases[seedStart:])
	if !ok {
		return m.Engine.BackwardSearch(bases)
	}
	return m.Engine.Resume(seed, bases[:seedStart])
}

// Run drains reads off a channel with Opts.Parallelism workers, mapping
// each one against m, and blocks until every worker has drained the
// channel or a fatal error is recorded. The caller owns producing into
// reads and must close it when done.
func Run(m *Mapper, reads <-chan Read) error {
	if m.Opts.Parallelism <= 0 {
		return errors.E(prgerr.ReadInputError, "quasimap: Parallelism must be positive")
	}

	var failure errors.Once
	var wg sync.WaitGroup
	for w := 0; w < m.Opts.Parallelism; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for r := range reads {
				func() {
					defer func() {
						if p := recover(); p != nil {
							failure.Set(errors.E(prgerr.IndexCorrupt, "quasimap worker panic", "worker", worker, "panic", p))
						}
					}()
					m.MapRead(r)
				}()
			}
		}(w)
	}
	wg.Wait()
	if err := failure.Err(); err != nil {
		log.Error.Printf("quasimap: mapping run failed: %v", err)
		return err
	}
	return nil
}
