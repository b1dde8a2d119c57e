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

// Package graph lifts a linear PRG into a directed acyclic graph of
// nucleotide nodes and variant bubbles, with per-base coverage arrays and a
// random-access index from every linear position to its node. Grounded on
// original_source's cov_Graph_Builder (libgramtools/src/prg/coverage_graph.cpp):
// node ownership here is by arena index rather than shared_ptr, matching the
// "arena, not reference-counted pointers" ownership rule of spec.md §9.
package graph

import "github.com/grailbio/bio/prg/alphabet"

// NodeID indexes into a Graph's Nodes arena. The arena uniquely owns every
// node; bubble map, parental map, and random access all borrow by index.
type NodeID int

// NodeKind tags the three node kinds: sequence nodes carry bases,
// site_entry/site_exit are zero-length boundary nodes. Root and sink
// are represented as zero-length sequence nodes outside any bubble.
type NodeKind int

const (
	KindSequence NodeKind = iota
	KindSiteEntry
	KindSiteExit
)

// Locus is a (site_id, allele_id) pair. AlleleID may be alphabet.Unknown
// while still inside a site whose exit allele is not yet known.
type Locus struct {
	Site   alphabet.Marker
	Allele int
}

// Node is one vertex of the coverage graph.
type Node struct {
	Kind NodeKind

	// Seq holds the node's bases (sequence nodes only).
	Seq []alphabet.Marker

	// Coverage is a parallel per-base counter array, allocated only for
	// nodes inside a bubble (Site != 0), and growing in step with Seq.
	Coverage []uint64

	// Site is the odd id of the bubble that owns this node, or 0 if the
	// node lies on the top-level backbone.
	Site alphabet.Marker

	// Allele is 1-based for sequence nodes inside a bubble, and
	// alphabet.Unknown on site_entry/site_exit boundary nodes.
	Allele int

	// Pos is the MSA column of the node's first base (sequence nodes),
	// or of the site's first allele (site_entry/site_exit nodes).
	Pos int

	// Next lists outgoing edges by node id.
	Next []NodeID
}

// InBubble reports whether n lies inside a variant bubble.
func (n *Node) InBubble() bool { return n.Site != 0 }

// BubbleEntry pairs a site's entry node with its exit node.
type BubbleEntry struct {
	Entry NodeID
	Exit  NodeID
}

// TargetedMarker is one hop in the adjacency chain recorded for a marker
// with no intervening sequence (spec.md §4.2's "target map"). DirectDeletionAllele
// is alphabet.Unknown unless this hop also commits to a specific (empty)
// allele, in which case ID names the site being exited through that allele.
type TargetedMarker struct {
	ID                    alphabet.Marker
	DirectDeletionAllele  int
}

// Graph is the coverage DAG built from a linear.PRG.
type Graph struct {
	Nodes []Node
	Root  NodeID
	Sink  NodeID

	// BubbleMap pairs every site's entry and exit node, ordered deepest
	// bubble first (spec.md §3, §9).
	BubbleMap []BubbleEntry

	// ParMap maps an inner site's odd id to the (site,allele) locus of
	// the outer site it is nested within.
	ParMap map[alphabet.Marker]Locus

	// RandomAccess maps every linear PRG index to the node, offset, and
	// (for markers) adjacency target at that position.
	RandomAccess []RandomAccessEntry

	// TargetMap records, for a marker immediately adjacent to another
	// marker in the linear PRG, the chain of further markers reachable
	// without consuming a base.
	TargetMap map[alphabet.Marker][]TargetedMarker

	// AlleleCount gives the total number of alleles of each site,
	// including any empty (direct-deletion) allele that never got a
	// sequence node of its own.
	AlleleCount map[alphabet.Marker]int
}

// RandomAccessEntry is one entry of Graph.RandomAccess.
type RandomAccessEntry struct {
	Node   NodeID
	Offset int
	Target Locus
}
