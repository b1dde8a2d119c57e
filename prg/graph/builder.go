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

package graph

import (
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/linear"
	"github.com/grailbio/bio/prg/prgerr"
)

// markerType classifies a linear PRG position the way cov_Graph_Builder's
// find_marker_type does: a site's even marker is an "allele_end" at every
// occurrence but the last, where it becomes a "site_end".
type markerType int

const (
	mtSequence markerType = iota
	mtSiteEntry
	mtAlleleEnd
	mtSiteEnd
)

// Build lifts p into a coverage graph. Grounded on cov_Graph_Builder in
// original_source/libgramtools/src/prg/coverage_graph.cpp.
func Build(p *linear.PRG) (*Graph, error) {
	b := &builder{
		prg: p,
		g: Graph{
			ParMap:      map[alphabet.Marker]Locus{},
			TargetMap:   map[alphabet.Marker][]TargetedMarker{},
			AlleleCount: map[alphabet.Marker]int{},
		},
		bubbleEntry: map[alphabet.Marker]NodeID{},
		bubbleExit:  map[alphabet.Marker]NodeID{},
	}
	b.makeRoot()
	for i, m := range p.Markers {
		if err := b.processMarker(i, m); err != nil {
			return nil, err
		}
		b.setupRandomAccess(i)
	}
	b.makeSink()

	sort.Slice(b.g.BubbleMap, func(i, j int) bool {
		a, c := b.g.BubbleMap[i], b.g.BubbleMap[j]
		pa, pc := b.g.Nodes[a.Exit].Pos, b.g.Nodes[c.Exit].Pos
		if pa != pc {
			return pa > pc
		}
		return b.g.Nodes[a.Entry].Site > b.g.Nodes[c.Entry].Site
	})

	if err := b.mapTargets(); err != nil {
		return nil, err
	}
	return &b.g, nil
}

// builder holds the mutable cursor state cov_Graph_Builder threads through
// a single left-to-right pass over the linear PRG.
type builder struct {
	prg *linear.PRG
	g   Graph

	backWire NodeID
	curNode  NodeID
	curPos   int
	curLocus Locus
	first    bool // true until the current site's exit node's Pos is set

	bubbleEntry map[alphabet.Marker]NodeID
	bubbleExit  map[alphabet.Marker]NodeID
}

func (b *builder) markerTypeAt(i int) markerType {
	m := b.prg.Markers[i]
	switch {
	case alphabet.IsBase(m):
		return mtSequence
	case alphabet.IsSiteMarker(m):
		return mtSiteEntry
	default:
		if i < b.prg.EndPositions()[m] {
			return mtAlleleEnd
		}
		return mtSiteEnd
	}
}

func (b *builder) newNode(kind NodeKind, site alphabet.Marker, allele int, pos int) NodeID {
	id := NodeID(len(b.g.Nodes))
	b.g.Nodes = append(b.g.Nodes, Node{Kind: kind, Site: site, Allele: allele, Pos: pos})
	return id
}

func (b *builder) addEdge(from, to NodeID) {
	b.g.Nodes[from].Next = append(b.g.Nodes[from].Next, to)
}

// wire links backWire to target, splicing in curNode first if curNode has
// accumulated any sequence since it was created.
func (b *builder) wire(target NodeID) {
	if len(b.g.Nodes[b.curNode].Seq) > 0 {
		b.addEdge(b.backWire, b.curNode)
		b.addEdge(b.curNode, target)
	} else {
		b.addEdge(b.backWire, target)
	}
}

func (b *builder) makeRoot() {
	b.curPos = -1
	b.g.Root = b.newNode(KindSequence, 0, int(alphabet.Unknown), b.curPos)
	b.backWire = b.g.Root
	b.curPos++
	b.curNode = b.newNode(KindSequence, 0, int(alphabet.Unknown), b.curPos)
}

func (b *builder) makeSink() {
	b.g.Sink = b.newNode(KindSequence, 0, int(alphabet.Unknown), b.curPos+1)
	b.wire(b.g.Sink)
}

func (b *builder) processMarker(i int, m alphabet.Marker) error {
	switch b.markerTypeAt(i) {
	case mtSequence:
		b.addSequence(m)
	case mtSiteEntry:
		b.enterSite(m)
	case mtAlleleEnd:
		b.endAllele(m)
	case mtSiteEnd:
		return b.exitSite(m)
	}
	return nil
}

func (b *builder) addSequence(m alphabet.Marker) {
	n := &b.g.Nodes[b.curNode]
	n.Seq = append(n.Seq, m)
	if n.InBubble() {
		n.Coverage = append(n.Coverage, 0)
	}
	b.curPos++
}

func (b *builder) enterSite(site alphabet.Marker) {
	entry := b.newNode(KindSiteEntry, site, int(alphabet.Unknown), b.curPos)
	b.wire(entry)

	exit := b.newNode(KindSiteExit, site, int(alphabet.Unknown), b.curPos)
	b.g.BubbleMap = append(b.g.BubbleMap, BubbleEntry{Entry: entry, Exit: exit})
	b.bubbleEntry[site] = entry
	b.bubbleExit[site] = exit

	if b.curLocus.Site != 0 {
		b.g.ParMap[site] = b.curLocus
	}

	b.backWire = entry
	b.curNode = b.newNode(KindSequence, site, 1, b.curPos)
	b.curLocus = Locus{Site: site, Allele: 1}
	b.first = true
}

// reachAlleleEnd wires curNode into the site's exit node, recording the
// exit node's Pos the first time it is reached (the exit sits at the
// position of the site's first allele, per spec.md §4.2).
func (b *builder) reachAlleleEnd(evenMarker alphabet.Marker) NodeID {
	site := alphabet.SiteOf(evenMarker)
	exit := b.bubbleExit[site]
	b.wire(exit)
	if b.first {
		b.g.Nodes[exit].Pos = b.curPos
		b.first = false
	}
	return exit
}

func (b *builder) endAllele(evenMarker alphabet.Marker) {
	site := alphabet.SiteOf(evenMarker)
	b.reachAlleleEnd(evenMarker)
	b.curLocus.Allele++

	entry := b.bubbleEntry[site]
	b.backWire = entry
	b.curPos = b.g.Nodes[entry].Pos
	b.curNode = b.newNode(KindSequence, site, b.curLocus.Allele, b.curPos)
}

func (b *builder) exitSite(evenMarker alphabet.Marker) error {
	site := alphabet.SiteOf(evenMarker)
	exit := b.reachAlleleEnd(evenMarker)

	if b.curLocus.Allele == 1 {
		return errors.E(prgerr.SingleAlleleSite, "site", site)
	}
	b.g.AlleleCount[site] = b.curLocus.Allele

	if parent, ok := b.g.ParMap[site]; ok {
		b.curLocus = parent
		b.first = parent.Allele == 1
	} else {
		b.curLocus = Locus{Site: 0, Allele: int(alphabet.Unknown)}
	}

	b.backWire = exit
	b.curPos = b.g.Nodes[exit].Pos
	b.curNode = b.newNode(KindSequence, b.curLocus.Site, b.curLocus.Allele, b.curPos)
	return nil
}

// setupRandomAccess records, for linear PRG position i, which node and
// in-node offset it maps to. The adjacency Target field is filled in later
// by mapTargets.
func (b *builder) setupRandomAccess(i int) {
	target := b.backWire
	if b.markerTypeAt(i) == mtSequence {
		target = b.curNode
	}
	offset := 0
	if n := len(b.g.Nodes[target].Seq); n > 0 {
		offset = n - 1
	}
	b.g.RandomAccess = append(b.g.RandomAccess, RandomAccessEntry{
		Node:   target,
		Offset: offset,
		Target: Locus{Site: 0, Allele: int(alphabet.Unknown)},
	})
}

// mapTargets is the builder's second pass: it records, for every marker
// immediately adjacent to another marker (no intervening base), the chain
// of further markers reachable from it without consuming a base. Grounded
// on cov_Graph_Builder::map_targets/entry_targets/allele_exit_targets.
func (b *builder) mapTargets() error {
	var prevType markerType = mtSequence
	var prevMarker alphabet.Marker
	curAllele := int(alphabet.Unknown)

	for i, m := range b.prg.Markers {
		t := b.markerTypeAt(i)
		switch t {
		case mtSequence:
			if prevType != mtSequence {
				b.g.RandomAccess[i].Target = Locus{Site: prevMarker, Allele: curAllele}
			}
		case mtSiteEntry:
			curAllele = 1
			if prevType != mtSequence {
				b.entryTargets(prevType, prevMarker, m)
			}
		case mtSiteEnd:
			if prevType == mtSiteEntry {
				return errors.E(prgerr.EmptyAllele, "site", alphabet.SiteOf(m), "allele", curAllele)
			}
			b.alleleExitTargets(prevType, prevMarker, m, curAllele)
			if parent, ok := b.g.ParMap[alphabet.SiteOf(m)]; ok {
				curAllele = parent.Allele
			} else {
				curAllele = int(alphabet.Unknown)
			}
		case mtAlleleEnd:
			b.alleleExitTargets(prevType, prevMarker, m, curAllele)
			curAllele++
		}
		prevMarker = m
		prevType = t
	}
	return nil
}

// entryTargets runs when cur_t is site_entry and the immediately preceding
// marker was itself a marker (no intervening base): it records what lies
// just before this site's own entry, reached while chasing an exit chain
// that lands on this site's odd id.
func (b *builder) entryTargets(prevType markerType, prevMarker, siteMarker alphabet.Marker) {
	var target alphabet.Marker
	switch prevType {
	case mtSiteEntry, mtSiteEnd:
		target = prevMarker
	case mtAlleleEnd:
		target = alphabet.SiteOf(prevMarker)
	default:
		return
	}
	b.addTarget(siteMarker, TargetedMarker{ID: target, DirectDeletionAllele: int(alphabet.Unknown)})
}

// alleleExitTargets runs when cur_m is an allele_end or site_end and the
// immediately preceding marker was itself a marker: it records what lies
// just before this separator/close, reached while entering the site via
// its own even marker.
func (b *builder) alleleExitTargets(prevType markerType, prevMarker, evenMarker alphabet.Marker, curAllele int) {
	switch prevType {
	case mtSiteEnd:
		// Double exit: the previous site's close sits at the same
		// column as this one's.
		b.addTarget(evenMarker, TargetedMarker{ID: prevMarker, DirectDeletionAllele: int(alphabet.Unknown)})
	case mtAlleleEnd:
		// Direct deletion: the allele ending at evenMarker is empty,
		// and prevMarker is this same site's own even id.
		b.addTarget(evenMarker, TargetedMarker{ID: alphabet.SiteOf(prevMarker), DirectDeletionAllele: curAllele})
	case mtSiteEntry:
		// Direct deletion of the site's first allele: prevMarker is
		// already this site's own odd id, no conversion needed.
		b.addTarget(evenMarker, TargetedMarker{ID: prevMarker, DirectDeletionAllele: curAllele})
	}
}

func (b *builder) addTarget(key alphabet.Marker, tm TargetedMarker) {
	b.g.TargetMap[key] = append(b.g.TargetMap[key], tm)
}
