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

package kmerindex

import (
	"bytes"
	"testing"

	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/fmindex"
	"github.com/grailbio/bio/prg/graph"
	"github.com/grailbio/bio/prg/linear"
	"github.com/grailbio/bio/prg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bases(s string) []alphabet.Marker {
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

func TestPackUnpackRoundTrip(t *testing.T) {
	b := bases("acgt")
	k := Pack(b)
	assert.Equal(t, b, Unpack(k, len(b)))
}

func TestBuildMinimalFindsNodeWindow(t *testing.T) {
	p, err := linear.FromString("[AACCG,T]")
	require.NoError(t, err)
	g, err := graph.Build(p)
	require.NoError(t, err)
	idx := fmindex.Build(p)
	e := search.NewEngine(idx, g)

	kidx := Build(e, g, 3, false)
	states, ok := kidx.Lookup(bases("AAC"))
	require.True(t, ok)
	assert.NotEmpty(t, states)
}

func TestBuildAllKmersCoversEveryWord(t *testing.T) {
	p, err := linear.FromString("[A,C]")
	require.NoError(t, err)
	g, err := graph.Build(p)
	require.NoError(t, err)
	idx := fmindex.Build(p)
	e := search.NewEngine(idx, g)

	kidx := Build(e, g, 2, true)
	assert.Equal(t, 16, kidx.Len())
	_, ok := kidx.Lookup(bases("GG"))
	assert.True(t, ok, "all_kmers mode precomputes every word, matching or not")
}

func TestTextAndKmersRoundTrip(t *testing.T) {
	p, err := linear.FromString("[AAC,T]")
	require.NoError(t, err)
	g, err := graph.Build(p)
	require.NoError(t, err)
	fmIdx := fmindex.Build(p)
	e := search.NewEngine(fmIdx, g)

	kidx := Build(e, g, 3, false)
	keys := kidx.sortedKeys()

	var kmersBuf, textBuf bytes.Buffer
	require.NoError(t, kidx.WriteKmers(&kmersBuf))
	require.NoError(t, kidx.WriteText(&textBuf))

	gotKeys, err := ReadKmers(&kmersBuf, kidx.K, len(keys))
	require.NoError(t, err)
	assert.Equal(t, keys, gotKeys)

	loaded, err := ReadText(&textBuf, gotKeys, kidx.K)
	require.NoError(t, err)
	assert.Equal(t, kidx.Len(), loaded.Len())

	for _, key := range keys {
		want := kidx.entries[key]
		got := loaded.entries[key]
		assert.Equal(t, len(want.States), len(got.States))
	}
}

func TestChecksumStableAcrossRebuild(t *testing.T) {
	p, err := linear.FromString("[AAC,T]")
	require.NoError(t, err)
	g, err := graph.Build(p)
	require.NoError(t, err)
	fmIdx := fmindex.Build(p)
	e := search.NewEngine(fmIdx, g)

	a := Build(e, g, 3, false)
	b := Build(e, g, 3, false)
	assert.Equal(t, a.Checksum(), b.Checksum())
}
