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

package coverage

import (
	"encoding/binary"
	"testing"

	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/fmindex"
	"github.com/grailbio/bio/prg/graph"
	"github.com/grailbio/bio/prg/linear"
	"github.com/grailbio/bio/prg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ints(vs ...uint32) []byte {
	buf := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

func base(b byte) uint32 {
	m, err := alphabet.EncodeDNABase(b)
	if err != nil {
		panic(err)
	}
	return uint32(m)
}

func read(s string) []alphabet.Marker {
	out := make([]alphabet.Marker, len(s))
	for i := 0; i < len(s); i++ {
		m, err := alphabet.EncodeDNABase(s[i])
		if err != nil {
			panic(err)
		}
		out[i] = m
	}
	return out
}

// twoSitePRG builds the PRG "gct5c6g6t5ag7t8c7cta" shared by spec.md scenarios
// 1-3: backbone "gct", site 5 with alleles {c,g,t} (legacy close), backbone
// "ag", site 7 with alleles {t,c} (legacy close), backbone "cta".
func twoSitePRG(t *testing.T) *linear.PRG {
	t.Helper()
	data := ints(
		base('g'), base('c'), base('t'),
		5, base('c'), 6, base('g'), 6, base('t'), 5,
		base('a'), base('g'),
		7, base('t'), 8, base('c'), 7,
		base('c'), base('t'), base('a'),
	)
	p, err := linear.FromBytes(data, binary.LittleEndian)
	require.NoError(t, err)
	return p
}

func mapRead(t *testing.T, p *linear.PRG, r []alphabet.Marker) []search.TerminalState {
	t.Helper()
	g, err := graph.Build(p)
	require.NoError(t, err)
	idx := fmindex.Build(p)
	e := search.NewEngine(idx, g)
	return e.BackwardSearch(r)
}

// recordAll merges every surviving state's fully-resolved Traversed path
// into one Recorder, the way a single read is applied in §4.6.
func recordAll(r *Recorder, states []search.TerminalState) {
	var loci []graph.Locus
	for _, s := range states {
		loci = append(loci, s.Traversed...)
	}
	r.RecordTraversed(loci)
}

// spec.md scenario 1: PRG "gct5c6g6t6ac7cc8a8" (site 5 with alleles
// {c,g,t}, backbone "ac", site 7 with alleles {cc,a}). Read "agtcta" does
// not occur anywhere in the PRG, so every counter stays at zero.
func TestRecorderNoMatchLeavesZero(t *testing.T) {
	data := ints(base('g'), base('c'), base('t'), 5, base('c'), 6, base('g'), 6, base('t'), 6, base('a'), base('c'), 7, base('c'), base('c'), 8, base('a'), 8)
	p, err := linear.FromBytes(data, binary.LittleEndian)
	require.NoError(t, err)
	g, err := graph.Build(p)
	require.NoError(t, err)

	rec := NewRecorder(g)
	states := mapRead(t, p, read("agtcta"))
	assert.Empty(t, states)
	recordAll(rec, states)

	assert.Equal(t, [][]uint64{{0, 0, 0}, {0, 0}}, rec.AlleleSum())
}

// spec.md scenario 2: read crosses only the second site's second allele.
func TestRecorderCrossesSecondSiteSecondAllele(t *testing.T) {
	p := twoSitePRG(t)
	g, err := graph.Build(p)
	require.NoError(t, err)
	rec := NewRecorder(g)

	states := mapRead(t, p, read("agccta"))
	require.NotEmpty(t, states)
	recordAll(rec, states)

	assert.Equal(t, [][]uint64{{0, 0, 0}, {0, 1}}, rec.AlleleSum())
}

// spec.md scenario 3: read crosses the first site's second allele and the
// second site's first allele.
func TestRecorderCrossesBothSites(t *testing.T) {
	p := twoSitePRG(t)
	g, err := graph.Build(p)
	require.NoError(t, err)
	rec := NewRecorder(g)

	states := mapRead(t, p, read("ctgagtcta"))
	require.NotEmpty(t, states)
	recordAll(rec, states)

	assert.Equal(t, [][]uint64{{0, 1, 0}, {1, 0}}, rec.AlleleSum())
}

// spec.md scenario 4: PRG "[A,]A[[G,A]A,C,T]" has site 5 with a
// direct-deletion second allele, and site 7 nesting site 9 inside its own
// first allele. Read "AAGA" is site5-allele1 "A" + backbone "A" + site9
// (nested) allele1 "G" + the rest of site7's own allele1 "A", so it counts
// +1 for site 5 allele 1, site 7 (outer) allele 1, and site 9 (inner)
// allele 1.
func TestRecorderDirectDeletionAndNestedSite(t *testing.T) {
	p, err := linear.FromString("[A,]A[[G,A]A,C,T]")
	require.NoError(t, err)
	g, err := graph.Build(p)
	require.NoError(t, err)
	require.Equal(t, 2, g.AlleleCount[5])
	require.Equal(t, 3, g.AlleleCount[7])
	require.Equal(t, 2, g.AlleleCount[9])
	require.Equal(t, graph.Locus{Site: 7, Allele: 1}, g.ParMap[9])

	rec := NewRecorder(g)
	states := mapRead(t, p, read("AAGA"))
	require.NotEmpty(t, states)
	recordAll(rec, states)

	sum := rec.AlleleSum()
	assert.Equal(t, []uint64{1, 0}, sum[alphabet.SiteIndex(5)])
	assert.Equal(t, []uint64{1, 0, 0}, sum[alphabet.SiteIndex(7)])
	assert.Equal(t, []uint64{1, 0}, sum[alphabet.SiteIndex(9)])
}

// spec.md scenario 6: an allele-encapsulated read bumps per-base coverage
// but not allele_sum_coverage.
func TestRecorderEncapsulatedReadPerBaseOnly(t *testing.T) {
	data := ints(base('g'), base('c'), base('t'), 5, base('c'), base('c'), base('c'), base('c'), 6, base('g'), 6, base('t'), 5, base('a'), base('g'))
	p, err := linear.FromBytes(data, binary.LittleEndian)
	require.NoError(t, err)
	g, err := graph.Build(p)
	require.NoError(t, err)
	idx := fmindex.Build(p)
	e := search.NewEngine(idx, g)
	rec := NewRecorder(g)

	r := read("cccc")
	states := e.BackwardSearch(r)
	require.NotEmpty(t, states)
	for _, s := range states {
		assert.Empty(t, s.Traversed)
	}
	recordAll(rec, states)

	for _, row := range rec.AlleleSum() {
		for _, c := range row {
			assert.EqualValues(t, 0, c)
		}
	}

	rng := ReadRand(0, 0)
	for _, s := range states {
		rec.RecordPerBase(idx, s, len(r), rng)
	}

	var ccccNode *graph.Node
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if len(n.Seq) == 4 && n.Allele == 1 {
			ccccNode = n
			break
		}
	}
	require.NotNil(t, ccccNode)
	assert.Equal(t, []uint64{1, 1, 1, 1}, ccccNode.Coverage)
}
