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

// Package fmindex builds the vBWT FM-index of a linearised PRG: a suffix
// array, its induced Burrows-Wheeler transform, and the rank-supporting
// bitmaps the backward-search engine needs to extend an SA interval one
// character to the left. Grounded on original_source's
// libgramtools/include/prg/{prg,dna_ranks,masks}.hpp.
package fmindex

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/linear"
	"github.com/grailbio/bio/prg/prgerr"
)

// sentinel terminates the text for suffix array construction. It sorts
// before every base and marker, and occurs exactly once.
const sentinel = alphabet.Marker(0)

// FMIndex is the vBWT index of one linearised PRG.
type FMIndex struct {
	// n is len(prg.Markers); the indexed text has n+1 symbols (n markers
	// plus the trailing sentinel).
	n int

	// SA is the suffix array of the sentinel-terminated text, length n+1.
	SA []int

	// BWT[i] is the last-column symbol of suffix SA[i].
	BWT []alphabet.Marker

	// baseBitmap[b] has bit i set iff BWT[i] == b+1 (bases are 1..4).
	baseBitmap [4]*roaring.Bitmap

	// markerPositions[m] lists, ascending, every BWT index i with
	// BWT[i] == m, for each distinct variant marker value m.
	markerPositions map[alphabet.Marker][]int

	// cTable[c] is the number of symbols in BWT strictly less than c,
	// for c in {1,2,3,4} (bases) and every distinct marker value.
	cTable map[alphabet.Marker]int
}

// Len returns the number of markers in the indexed PRG (excluding the
// sentinel).
func (f *FMIndex) Len() int { return f.n }

// WholeRange is the SA interval matching the empty string: all of SA.
func (f *FMIndex) WholeRange() (int, int) { return 0, len(f.SA) }

// Build constructs the FM-index of p.
func Build(p *linear.PRG) *FMIndex {
	n := p.Len()
	text := make([]uint64, n+1)
	for i, m := range p.Markers {
		text[i] = uint64(m)
	}
	text[n] = uint64(sentinel)

	sa := buildSuffixArray(text)
	bwt := make([]alphabet.Marker, n+1)
	for i, s := range sa {
		prev := (s - 1 + (n + 1)) % (n + 1)
		bwt[i] = alphabet.Marker(text[prev])
	}

	f := &FMIndex{
		n:               n,
		SA:              sa,
		BWT:             bwt,
		markerPositions: map[alphabet.Marker][]int{},
		cTable:          map[alphabet.Marker]int{},
	}
	for b := range f.baseBitmap {
		f.baseBitmap[b] = roaring.New()
	}

	counts := map[alphabet.Marker]int{}
	for i, m := range bwt {
		counts[m]++
		switch {
		case alphabet.IsBase(m):
			f.baseBitmap[m-1].Add(uint32(i))
		case alphabet.IsVariant(m):
			f.markerPositions[m] = append(f.markerPositions[m], i)
		}
	}
	for b := range f.baseBitmap {
		f.baseBitmap[b].RunOptimize()
	}

	var symbols []alphabet.Marker
	for s := range counts {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	running := 0
	for _, s := range symbols {
		f.cTable[s] = running
		running += counts[s]
	}
	return f
}

// rank returns the number of occurrences of symbol c in BWT[0:i].
func (f *FMIndex) rank(c alphabet.Marker, i int) int {
	if i <= 0 {
		return 0
	}
	if alphabet.IsBase(c) {
		return int(f.baseBitmap[c-1].Rank(uint32(i - 1)))
	}
	positions := f.markerPositions[c]
	return sort.SearchInts(positions, i)
}

// Extend narrows the SA interval [lo, hi) of some suffix w into the
// interval matching c+w, i.e. one step of FM-index backward search.
func (f *FMIndex) Extend(c alphabet.Marker, lo, hi int) (int, int) {
	base, ok := f.cTable[c]
	if !ok {
		return 0, 0
	}
	return base + f.rank(c, lo), base + f.rank(c, hi)
}

// MarkerOccurrences returns the ascending BWT-index positions of marker m,
// used by the search engine to enumerate a site's allele boundaries
// directly rather than through backward search.
func (f *FMIndex) MarkerOccurrences(m alphabet.Marker) []int {
	return f.markerPositions[m]
}

// MarkersInRange returns every BWT row in [lo, hi) whose symbol is a
// variant marker, used by the search engine to detect when the current SA
// interval straddles a site boundary.
func (f *FMIndex) MarkersInRange(lo, hi int) []int {
	var rows []int
	for _, positions := range f.markerPositions {
		from := sort.SearchInts(positions, lo)
		to := sort.SearchInts(positions, hi)
		rows = append(rows, positions[from:to]...)
	}
	sort.Ints(rows)
	return rows
}

// TextPosition returns the linear PRG index (0-based, excluding the
// sentinel) at which the suffix at SA row i starts — i.e. the position of
// the leftmost base matched so far, used to resolve an SA interval back to
// random_access coordinates. It returns
// prgerr.IndexCorrupt if i is out of range, or if row is the sentinel's
// own row (SA[row] == f.n): that row carries no real marker-adjacency
// information — it is the suffix consisting of the sentinel alone — and
// must never be looked up in random-access coordinates, which only cover
// the f.n real marker positions.
func (f *FMIndex) TextPosition(row int) (int, error) {
	if row < 0 || row >= len(f.SA) {
		return 0, errors.E(prgerr.IndexCorrupt, "SA row out of range", row)
	}
	if f.SA[row] >= f.n {
		return 0, errors.E(prgerr.IndexCorrupt, "SA row is the sentinel's own row", row)
	}
	return f.SA[row], nil
}
