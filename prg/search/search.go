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

// Package search implements the vBWT backward-search engine: matching a
// read against a linear PRG's FM-index, forking into the coverage graph
// whenever the current SA interval straddles a variant marker, and
// emitting one terminal state per distinct path the read could have
// taken through the PRG. Grounded on
// original_source/libgramtools/src/quasimap/search/vBWT_jump.cpp.
//
// The marker-jump adjacency chains (double entry, double exit, direct
// deletion) that vBWT_jump.cpp resolves via target_map lookups and SA
// sub-range arithmetic are resolved here instead by walking the coverage
// graph's reverse adjacency directly: the two are equivalent (target_map
// is itself built from the same adjacency, see prg/graph's builder), and
// walking the graph avoids re-deriving a second copy of that adjacency
// logic inside the search engine.
package search

import (
	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/fmindex"
	"github.com/grailbio/bio/prg/graph"
)

// Engine runs backward search of reads against one PRG's FM-index and
// coverage graph.
type Engine struct {
	Index *fmindex.FMIndex
	Graph *graph.Graph

	// prev[n] lists every node with an edge into n, the reverse of
	// graph.Node.Next built once at construction time.
	prev map[graph.NodeID][]graph.NodeID
}

// NewEngine builds the reverse-adjacency index backward search needs.
func NewEngine(idx *fmindex.FMIndex, g *graph.Graph) *Engine {
	prev := make(map[graph.NodeID][]graph.NodeID, len(g.Nodes))
	for id := range g.Nodes {
		for _, to := range g.Nodes[id].Next {
			prev[to] = append(prev[to], graph.NodeID(id))
		}
	}
	return &Engine{Index: idx, Graph: g, prev: prev}
}

// TerminalState is one distinct path a read could have taken through the
// PRG: the sites it fully crossed (Traversed) and the site it is still
// inside of at the matched position, if any (Traversing, deepest last).
//
// When InIndex is true the whole read matched without ever crossing a
// site boundary; SALo/SAHi is then its final (non-empty) SA interval,
// suitable for per-base coverage over the single allele it lies in
// (spec.md §4.6's "allele-encapsulated" case). When InIndex is false, Node
// and Offset locate the leftmost matched base of the read.
type TerminalState struct {
	Traversed  []graph.Locus
	Traversing []graph.Locus

	InIndex    bool
	SALo, SAHi int

	Node   graph.NodeID
	Offset int
}

// state is a partial backward-search path. Exactly one of the two modes
// is active at a time: inIndex (matching purely within the FM-index, no
// site boundary crossed yet) or graph mode (Node/Offset, walking a
// specific allele's sequence after crossing at least one boundary).
type state struct {
	inIndex bool
	lo, hi  int

	node   graph.NodeID
	offset int

	traversed  []graph.Locus
	traversing []graph.Locus
}

// frontier is a graph-mode position ready to have the next (leftward)
// base matched against Node.Seq[Offset]. atStart marks a frontier that
// ran off the beginning of the PRG (Node is graph.Graph.Root with no
// predecessors) before the read was fully consumed.
type frontier struct {
	node       graph.NodeID
	offset     int
	traversed  []graph.Locus
	traversing []graph.Locus
	atStart    bool
}

// BackwardSearch matches read against the PRG, right to left, returning
// one TerminalState per surviving path. An empty result means the read
// does not occur in any path through the PRG.
func (e *Engine) BackwardSearch(read []alphabet.Marker) []TerminalState {
	lo, hi := e.Index.WholeRange()
	states := []state{{inIndex: true, lo: lo, hi: hi}}

	for i := len(read) - 1; i >= 0 && len(states) > 0; i-- {
		c := read[i]
		var next []state
		for _, s := range states {
			next = append(next, e.step(s, c)...)
		}
		states = next
	}
	return e.collect(states)
}

// Resume continues backward search from states already computed
// elsewhere (typically a kmer index's seed set), matching remaining
// right to left. This is how a read's kmer-indexed right-hand end is
// stitched onto backward search over the rest of the read without
// restarting from the whole-PRG SA range.
func (e *Engine) Resume(seed []TerminalState, remaining []alphabet.Marker) []TerminalState {
	states := make([]state, 0, len(seed))
	for _, ts := range seed {
		states = append(states, state{
			inIndex:    ts.InIndex,
			lo:         ts.SALo,
			hi:         ts.SAHi,
			node:       ts.Node,
			offset:     ts.Offset - 1,
			traversed:  ts.Traversed,
			traversing: ts.Traversing,
		})
	}

	for i := len(remaining) - 1; i >= 0 && len(states) > 0; i-- {
		c := remaining[i]
		var next []state
		for _, s := range states {
			next = append(next, e.step(s, c)...)
		}
		states = next
	}
	return e.collect(states)
}

// Seed runs the k-mer index's offline precomputation for one k-length DNA
// word (spec.md §4.5): marker jumps interleave with base extension for
// every base but the word's last (leftmost) one, which is extended only.
// A caller resuming backward search from a seeded state runs the
// marker-jump stage itself before extending past the seed, so jumping here
// too would apply it twice at that boundary.
func (e *Engine) Seed(kmer []alphabet.Marker) []TerminalState {
	lo, hi := e.Index.WholeRange()
	states := []state{{inIndex: true, lo: lo, hi: hi}}

	for i := len(kmer) - 1; i >= 1 && len(states) > 0; i-- {
		c := kmer[i]
		var next []state
		for _, s := range states {
			next = append(next, e.step(s, c)...)
		}
		states = next
	}
	if len(kmer) > 0 && len(states) > 0 {
		c := kmer[0]
		var next []state
		for _, s := range states {
			next = append(next, e.extendOnly(s, c)...)
		}
		states = next
	}
	return e.collect(states)
}

func (e *Engine) collect(states []state) []TerminalState {
	out := make([]TerminalState, 0, len(states))
	for _, s := range states {
		ts := TerminalState{Traversed: s.traversed, Traversing: s.traversing}
		if s.inIndex {
			ts.InIndex = true
			ts.SALo, ts.SAHi = s.lo, s.hi
		} else {
			ts.Node = s.node
			ts.Offset = s.offset + 1
		}
		out = append(out, ts)
	}
	return out
}

// extendOnly matches base c without resolving any site-boundary crossing,
// used for a k-mer's last (leftmost) base during index construction.
func (e *Engine) extendOnly(s state, c alphabet.Marker) []state {
	if s.inIndex {
		lo, hi := e.Index.Extend(c, s.lo, s.hi)
		if lo >= hi {
			return nil
		}
		return []state{{inIndex: true, lo: lo, hi: hi, traversed: s.traversed, traversing: s.traversing}}
	}
	if s.offset < 0 || e.Graph.Nodes[s.node].Seq[s.offset] != c {
		return nil
	}
	return []state{{node: s.node, offset: s.offset - 1, traversed: s.traversed, traversing: s.traversing}}
}

// step extends s backward by one base c, forking into the graph at any
// site boundary the current SA interval straddles.
func (e *Engine) step(s state, c alphabet.Marker) []state {
	if !s.inIndex {
		return e.stepGraph(s, c)
	}

	var out []state
	if lo, hi := e.Index.Extend(c, s.lo, s.hi); lo < hi {
		out = append(out, state{inIndex: true, lo: lo, hi: hi, traversed: s.traversed, traversing: s.traversing})
	}

	for _, row := range e.Index.MarkersInRange(s.lo, s.hi) {
		pos, err := e.Index.TextPosition(row)
		if err != nil {
			continue
		}
		node := e.Graph.RandomAccess[pos].Node
		for _, fr := range e.resolveExhausted(node, s.traversed, s.traversing) {
			out = append(out, e.matchFrontier(fr, c)...)
		}
	}
	return out
}

func (e *Engine) stepGraph(s state, c alphabet.Marker) []state {
	if s.offset < 0 {
		var out []state
		for _, fr := range e.resolveExhausted(s.node, s.traversed, s.traversing) {
			out = append(out, e.matchFrontier(fr, c)...)
		}
		return out
	}
	if e.Graph.Nodes[s.node].Seq[s.offset] != c {
		return nil
	}
	return []state{{node: s.node, offset: s.offset - 1, traversed: s.traversed, traversing: s.traversing}}
}

func (e *Engine) matchFrontier(fr frontier, c alphabet.Marker) []state {
	if fr.atStart {
		return nil
	}
	if e.Graph.Nodes[fr.node].Seq[fr.offset] != c {
		return nil
	}
	return []state{{node: fr.node, offset: fr.offset - 1, traversed: fr.traversed, traversing: fr.traversing}}
}

// resolveExhausted walks backward from a node boundary (node's own
// sequence, if any, has already been fully matched) to the set of
// ready-to-match frontiers reachable without consuming a base: crossing
// site_entry/site_exit boundary nodes as many times as adjacency allows
// (double entries, double exits, direct deletions of empty alleles).
func (e *Engine) resolveExhausted(node graph.NodeID, traversed, traversing []graph.Locus) []frontier {
	n := &e.Graph.Nodes[node]

	switch n.Kind {
	case graph.KindSiteEntry:
		if len(traversing) > 0 && traversing[len(traversing)-1].Site == n.Site {
			traversed = appendLocus(traversed, traversing[len(traversing)-1])
			traversing = traversing[:len(traversing)-1]
		}
		return e.fromPredecessors(node, traversed, traversing)

	case graph.KindSiteExit:
		var out []frontier
		for _, p := range e.prev[node] {
			pn := &e.Graph.Nodes[p]
			if pn.Kind == graph.KindSiteEntry {
				// Direct deletion: an empty allele skips straight
				// from entry to exit with no sequence node.
				allele := e.directDeletionAllele(n.Site)
				out = append(out, e.resolveExhausted(p, traversed, appendLocus(traversing, graph.Locus{Site: n.Site, Allele: allele}))...)
				continue
			}
			newTraversing := appendLocus(traversing, graph.Locus{Site: n.Site, Allele: pn.Allele})
			if len(pn.Seq) == 0 {
				out = append(out, e.resolveExhausted(p, traversed, newTraversing)...)
				continue
			}
			out = append(out, frontier{node: p, offset: len(pn.Seq) - 1, traversed: traversed, traversing: newTraversing})
		}
		return out

	default: // graph.KindSequence: ordinary backbone or allele-content node.
		return e.fromPredecessors(node, traversed, traversing)
	}
}

func (e *Engine) fromPredecessors(node graph.NodeID, traversed, traversing []graph.Locus) []frontier {
	preds := e.prev[node]
	if len(preds) == 0 {
		return []frontier{{node: node, traversed: traversed, traversing: traversing, atStart: true}}
	}
	var out []frontier
	for _, p := range preds {
		pn := &e.Graph.Nodes[p]
		if len(pn.Seq) == 0 {
			out = append(out, e.resolveExhausted(p, traversed, traversing)...)
			continue
		}
		out = append(out, frontier{node: p, offset: len(pn.Seq) - 1, traversed: traversed, traversing: traversing})
	}
	return out
}

// directDeletionAllele looks up, via the graph's target map, which of
// site's alleles is empty (the direct-deletion case recorded by
// prg/graph's builder).
func (e *Engine) directDeletionAllele(site alphabet.Marker) int {
	even := alphabet.AlleleMarkerOf(site)
	for _, tm := range e.Graph.TargetMap[even] {
		if tm.ID == site && tm.DirectDeletionAllele != int(alphabet.Unknown) {
			return tm.DirectDeletionAllele
		}
	}
	return int(alphabet.Unknown)
}

func appendLocus(s []graph.Locus, l graph.Locus) []graph.Locus {
	out := make([]graph.Locus, len(s), len(s)+1)
	copy(out, s)
	return append(out, l)
}
