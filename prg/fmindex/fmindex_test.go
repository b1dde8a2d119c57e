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

package fmindex

import (
	"sort"
	"testing"

	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/linear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSuffixArraySorted(t *testing.T) {
	p, err := linear.FromString("ACGT")
	require.NoError(t, err)
	f := Build(p)

	n := len(f.SA)
	require.Equal(t, p.Len()+1, n)

	text := make([]uint64, n)
	for i, m := range p.Markers {
		text[i] = uint64(m)
	}
	text[n-1] = uint64(sentinel)

	suffixLess := func(a, b int) bool {
		for k := 0; ; k++ {
			ai, bi := a+k, b+k
			av := -1
			if ai < n {
				av = int(text[ai])
			}
			bv := -1
			if bi < n {
				bv = int(text[bi])
			}
			if av != bv {
				return av < bv
			}
			if av == -1 {
				return false
			}
		}
	}
	assert.True(t, sort.SliceIsSorted(f.SA, func(i, j int) bool {
		return suffixLess(f.SA[i], f.SA[j])
	}))
}

func TestBWTInvertsViaLFMapping(t *testing.T) {
	p, err := linear.FromString("ACGTACGT")
	require.NoError(t, err)
	f := Build(p)

	// Reconstruct the text right-to-left via the LF-mapping starting
	// from the sentinel's own row (the suffix holding only the sentinel),
	// and check it matches the original PRG.
	row := 0
	for f.SA[row] != f.Len() {
		row++
	}
	var got []alphabet.Marker
	for i := 0; i < f.Len(); i++ {
		c := f.BWT[row]
		got = append([]alphabet.Marker{c}, got...)
		lo, _ := f.Extend(c, row, row+1)
		row = lo
	}
	assert.Equal(t, p.Markers, got)
}

func TestExtendNarrowsToKnownOccurrences(t *testing.T) {
	p, err := linear.FromString("ACGTACGT")
	require.NoError(t, err)
	f := Build(p)

	lo, hi := f.WholeRange()
	lo, hi = f.Extend(alphabet.Marker(3), lo, hi) // 'G'
	assert.Equal(t, 2, hi-lo)
}

func TestMarkerOccurrences(t *testing.T) {
	p, err := linear.FromString("[A,C[A,T]]")
	require.NoError(t, err)
	f := Build(p)

	// Marker 8 (site 7's allele separator/close) occurs twice.
	assert.Len(t, f.MarkerOccurrences(8), 2)
}
