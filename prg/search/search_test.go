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

package search

import (
	"encoding/binary"
	"testing"

	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/fmindex"
	"github.com/grailbio/bio/prg/graph"
	"github.com/grailbio/bio/prg/linear"
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

func newEngine(t *testing.T, p *linear.PRG) *Engine {
	t.Helper()
	g, err := graph.Build(p)
	require.NoError(t, err)
	idx := fmindex.Build(p)
	return NewEngine(idx, g)
}

// spec.md scenario 5: PRG "aca5g6c6a5tatt" (legacy odd-marker close on
// site 5's third allele), three reads each crossing exactly one allele.
func TestBackwardSearchScenario5(t *testing.T) {
	data := ints(base('a'), base('c'), base('a'), 5, base('g'), 6, base('c'), 6, base('a'), 5, base('t'), base('a'), base('t'), base('t'))
	p, err := linear.FromBytes(data, binary.LittleEndian)
	require.NoError(t, err)
	require.True(t, p.LegacyRewritten)

	e := newEngine(t, p)

	cases := []struct {
		read   string
		allele int
	}{
		{"agtat", 1},
		{"actat", 2},
		{"aatat", 3},
	}
	for _, c := range cases {
		t.Run(c.read, func(t *testing.T) {
			states := e.BackwardSearch(read(c.read))
			require.NotEmpty(t, states, "expected at least one terminal state")
			found := false
			for _, s := range states {
				for _, l := range s.Traversed {
					if l.Site == 5 && l.Allele == c.allele {
						found = true
					}
				}
			}
			assert.True(t, found, "expected a terminal state crossing site 5 allele %d", c.allele)
		})
	}
}

func TestBackwardSearchNoMatch(t *testing.T) {
	p, err := linear.FromString("[A,C[A,T]]")
	require.NoError(t, err)
	e := newEngine(t, p)

	states := e.BackwardSearch(read("GGGGGG"))
	assert.Empty(t, states)
}

func TestBackwardSearchWithinSingleAllele(t *testing.T) {
	// A read lying entirely inside one allele never crosses a site
	// boundary and stays in pure FM-index mode throughout.
	p, err := linear.FromString("[AAAA,C]")
	require.NoError(t, err)
	e := newEngine(t, p)

	states := e.BackwardSearch(read("AAA"))
	require.NotEmpty(t, states)
	for _, s := range states {
		assert.Empty(t, s.Traversed)
	}
}
