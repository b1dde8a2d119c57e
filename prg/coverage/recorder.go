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

// Package coverage accumulates the three tables a mapping run produces for
// one PRG: allele_sum_coverage, grouped_allele_counts, and per-base node
// coverage. Grounded on spec.md §4.6 and on markduplicates' pattern of a
// per-read rand.New(rand.NewSource(...)) for reproducible tie-breaks
// (markduplicates/optical.go).
package coverage

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/fmindex"
	"github.com/grailbio/bio/prg/graph"
	"github.com/grailbio/bio/prg/search"
)

// Recorder accumulates coverage for one PRG's coverage graph. A single
// Recorder is safe for concurrent use by multiple worker goroutines mapping
// distinct reads.
type Recorder struct {
	g *graph.Graph

	// alleleSum[siteIndex][allele-1] is allele_sum_coverage, incremented
	// with sync/atomic since many workers share one site's row.
	alleleSum [][]uint64

	// groupedMu[siteIndex] guards grouped[siteIndex], a per-site shard so
	// unrelated sites never contend on the same lock.
	groupedMu []sync.Mutex
	grouped   []map[string]uint64
}

// NewRecorder allocates coverage tables sized from g.AlleleCount, which
// includes alleles with no sequence node of their own (direct deletions).
func NewRecorder(g *graph.Graph) *Recorder {
	r := &Recorder{
		g:         g,
		alleleSum: make([][]uint64, len(g.AlleleCount)),
		groupedMu: make([]sync.Mutex, len(g.AlleleCount)),
		grouped:   make([]map[string]uint64, len(g.AlleleCount)),
	}
	for site, count := range g.AlleleCount {
		idx := alphabet.SiteIndex(site)
		r.alleleSum[idx] = make([]uint64, count)
		r.grouped[idx] = map[string]uint64{}
	}
	return r
}

// AlleleSum snapshots allele_sum_coverage as [siteIndex][allele-1].
func (r *Recorder) AlleleSum() [][]uint64 {
	out := make([][]uint64, len(r.alleleSum))
	for i, row := range r.alleleSum {
		cp := make([]uint64, len(row))
		for j := range row {
			cp[j] = atomic.LoadUint64(&row[j])
		}
		out[i] = cp
	}
	return out
}

// GroupedAlleleCounts snapshots grouped_allele_counts for site, keyed by the
// sorted set of allele ids that were simultaneously compatible.
func (r *Recorder) GroupedAlleleCounts(site alphabet.Marker) map[string]uint64 {
	idx := alphabet.SiteIndex(site)
	if idx < 0 || idx >= len(r.grouped) {
		return nil
	}
	r.groupedMu[idx].Lock()
	defer r.groupedMu[idx].Unlock()
	out := make(map[string]uint64, len(r.grouped[idx]))
	for k, v := range r.grouped[idx] {
		out[k] = v
	}
	return out
}

// RecordTraversed applies one read's surviving terminal states to
// allele_sum_coverage and grouped_allele_counts. loci holds the Traversed
// loci of every surviving terminal state of the read, concatenated; spec.md §4.6 counts unique (site,allele) pairs once per read, and
// counts each site's set of compatible alleles once per read regardless of
// how many distinct alleles or paths reached it.
func (r *Recorder) RecordTraversed(loci []graph.Locus) {
	if len(loci) == 0 {
		return
	}
	r.recordAlleleSum(loci)
	r.recordGrouped(loci)
}

func (r *Recorder) recordAlleleSum(loci []graph.Locus) {
	seen := map[graph.Locus]bool{}
	for _, l := range loci {
		if seen[l] {
			continue
		}
		seen[l] = true
		idx := alphabet.SiteIndex(l.Site)
		if idx < 0 || idx >= len(r.alleleSum) || l.Allele < 1 || l.Allele > len(r.alleleSum[idx]) {
			continue
		}
		atomic.AddUint64(&r.alleleSum[idx][l.Allele-1], 1)
	}
}

func (r *Recorder) recordGrouped(loci []graph.Locus) {
	bySite := map[alphabet.Marker]map[int]struct{}{}
	for _, l := range loci {
		set, ok := bySite[l.Site]
		if !ok {
			set = map[int]struct{}{}
			bySite[l.Site] = set
		}
		set[l.Allele] = struct{}{}
	}
	for site, alleles := range bySite {
		idx := alphabet.SiteIndex(site)
		if idx < 0 || idx >= len(r.grouped) {
			continue
		}
		key := groupKey(alleles)
		r.groupedMu[idx].Lock()
		r.grouped[idx][key]++
		r.groupedMu[idx].Unlock()
	}
}

// groupKey canonicalises a set of allele ids into a stable map key.
func groupKey(alleles map[int]struct{}) string {
	ids := make([]int, 0, len(alleles))
	for a := range alleles {
		ids = append(ids, a)
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, a := range ids {
		parts[i] = strconv.Itoa(a)
	}
	return strings.Join(parts, ",")
}

// RecordPerBase applies per-base coverage for one allele-encapsulated read
// (spec.md §4.6's "per-base coverage" rule): when ts matched wholly inside
// the FM-index with more than one occurrence, one occurrence is chosen
// pseudo-randomly via rng so a multi-mapping read does not inflate
// coverage, then offset..offset+readLen is incremented in that allele's
// node. ts with a non-empty Traversed/Traversing path is left untouched:
// cross-node accumulation is out of scope (spec.md §9 Open Questions).
func (r *Recorder) RecordPerBase(idx *fmindex.FMIndex, ts search.TerminalState, readLen int, rng *rand.Rand) {
	if !ts.InIndex {
		return
	}
	n := ts.SAHi - ts.SALo
	if n <= 0 {
		return
	}
	row := ts.SALo
	if n > 1 {
		row += rng.Intn(n)
	}
	leftPos, err := idx.TextPosition(row)
	if err != nil {
		return
	}
	if leftPos < 0 || leftPos >= len(r.g.RandomAccess) {
		return
	}
	ra := r.g.RandomAccess[leftPos]
	node := &r.g.Nodes[ra.Node]
	if ra.Offset < 0 || ra.Offset+readLen > len(node.Coverage) {
		return
	}
	for i := 0; i < readLen; i++ {
		atomic.AddUint64(&node.Coverage[ra.Offset+i], 1)
	}
}

// ReadRand seeds a per-read PRNG from (seed, readIndex), so that per-base
// tie-break selection is reproducible independent of worker scheduling
// (spec.md §5's determinism rule).
func ReadRand(seed int64, readIndex int) *rand.Rand {
	return rand.New(rand.NewSource(seed ^ int64(uint64(readIndex)*0x9e3779b97f4a7c15)))
}
