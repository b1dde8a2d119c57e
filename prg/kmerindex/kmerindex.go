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

// Package kmerindex precomputes, for every kmer a read's right-hand end
// could be seeded from, the backward-search states reached after
// marker-jumping and extending every base but the last (spec.md §4.5).
// The packed-kmer encoding generalises fusion/kmer.go's 2-bit DNA packing
// to 3 bits per symbol, the width the PRG alphabet's four bases need once
// the zero value is reserved.
package kmerindex

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"blainsmith.com/go/seahash"
	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/graph"
	"github.com/grailbio/bio/prg/prgerr"
	"github.com/grailbio/bio/prg/search"
)

// Kmer packs up to 21 DNA bases, 3 bits apiece, into a uint64.
type Kmer uint64

// Pack encodes bases (each in 1..4) into a Kmer.
func Pack(bases []alphabet.Marker) Kmer {
	var k Kmer
	for _, b := range bases {
		k = (k << 3) | Kmer(b)
	}
	return k
}

// Unpack recovers the length-k base sequence packed into k.
func Unpack(k Kmer, length int) []alphabet.Marker {
	out := make([]alphabet.Marker, length)
	for i := length - 1; i >= 0; i-- {
		out[i] = alphabet.Marker(k & 0x7)
		k >>= 3
	}
	return out
}

// Entry is one kmer's precomputed seed set, the surviving states of
// search.Engine.Seed.
type Entry struct {
	States []search.TerminalState
}

// Index maps every precomputed kmer to its seed states.
type Index struct {
	K       int
	entries map[Kmer]Entry
}

// Len returns the number of distinct kmers in idx.
func (idx *Index) Len() int { return len(idx.entries) }

// Lookup returns kmer's precomputed seed states, if kmer was built in.
func (idx *Index) Lookup(kmer []alphabet.Marker) ([]search.TerminalState, bool) {
	if len(kmer) != idx.K {
		return nil, false
	}
	e, ok := idx.entries[Pack(kmer)]
	return e.States, ok
}

func (idx *Index) sortedKeys() []Kmer {
	keys := make([]Kmer, 0, len(idx.entries))
	for k := range idx.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Build precomputes seed states for every kmer of length k. When allKmers
// is set, every one of the 4^k DNA words is precomputed
// (spec.md §4.5's all_kmers_flag); otherwise Build derives a minimal set
// from g's own content: every length-k window wholly inside one node's
// sequence, plus every window spanning exactly one node boundary. Windows
// spanning two or more boundaries are not precomputed — a read seeded from
// one falls back to backward search from the whole-PRG SA range, which
// is always correct, just unindexed.
func Build(e *search.Engine, g *graph.Graph, k int, allKmers bool) *Index {
	idx := &Index{K: k, entries: map[Kmer]Entry{}}
	add := func(bases []alphabet.Marker) {
		key := Pack(bases)
		if _, ok := idx.entries[key]; ok {
			return
		}
		idx.entries[key] = Entry{States: e.Seed(bases)}
	}

	if allKmers {
		forEachDNAWord(k, add)
		return idx
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		slideWindows(n.Seq, k, add)
		// Sequence nodes connect only through zero-length site entry/exit
		// nodes, so the successor search looks past those.
		pending := append([]graph.NodeID(nil), n.Next...)
		for len(n.Seq) > 0 && len(pending) > 0 {
			succ := &g.Nodes[pending[0]]
			pending = pending[1:]
			if len(succ.Seq) == 0 {
				pending = append(pending, succ.Next...)
				continue
			}
			joined := make([]alphabet.Marker, 0, len(n.Seq)+len(succ.Seq))
			joined = append(joined, n.Seq...)
			joined = append(joined, succ.Seq...)
			slideWindows(joined, k, add)
		}
	}
	return idx
}

func slideWindows(seq []alphabet.Marker, k int, add func([]alphabet.Marker)) {
	for i := 0; i+k <= len(seq); i++ {
		add(seq[i : i+k])
	}
}

func forEachDNAWord(k int, add func([]alphabet.Marker)) {
	word := make([]alphabet.Marker, k)
	var rec func(pos int)
	rec = func(pos int) {
		if pos == k {
			cp := make([]alphabet.Marker, k)
			copy(cp, word)
			add(cp)
			return
		}
		for b := alphabet.Marker(1); b <= 4; b++ {
			word[pos] = b
			rec(pos + 1)
		}
	}
	rec(0)
}

// Checksum fingerprints idx's packed kmer vector with seahash, so a loaded
// kmer_index/kmers file pair can be checked for mismatch before use.
func (idx *Index) Checksum() uint64 {
	return seahash.Sum64(packKmers(idx.sortedKeys(), idx.K))
}

// WriteKmers writes the packed-kmer sibling file: idx's kmers, in the same
// ascending order WriteText emits their seed-state lines, 3-bit-packed and
// snappy-compressed.
func (idx *Index) WriteKmers(w io.Writer) error {
	packed := packKmers(idx.sortedKeys(), idx.K)
	_, err := w.Write(snappy.Encode(nil, packed))
	return err
}

// WriteText writes the kmer_index text file: one line per kmer, in the
// same order as WriteKmers, fields separated by '|'. The first field holds
// every in-index seed state's SA interval as "lo hi lo hi ...". Each
// subsequent field holds one seed state's traversed path as
// "site allele site allele ...".
func (idx *Index) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, key := range idx.sortedKeys() {
		entry := idx.entries[key]

		var sa []string
		for _, s := range entry.States {
			if s.InIndex {
				sa = append(sa, strconv.Itoa(s.SALo), strconv.Itoa(s.SAHi))
			}
		}
		fields := []string{strings.Join(sa, " ")}

		for _, s := range entry.States {
			var locus []string
			for _, l := range s.Traversed {
				locus = append(locus, strconv.FormatUint(uint64(l.Site), 10), strconv.Itoa(l.Allele))
			}
			fields = append(fields, strings.Join(locus, " "))
		}
		if _, err := fmt.Fprintln(bw, strings.Join(fields, "|")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadKmers decompresses and unpacks count kmers of length k from r.
func ReadKmers(r io.Reader, k, count int) ([]Kmer, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	packed, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, errors.E(prgerr.IndexCorrupt, err, "decompressing kmers file")
	}
	keys, err := unpackKmers(packed, k, count)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// ReadText reconstructs an Index from a kmer_index text file, pairing each
// line with the correspondingly-ordered entry of keys (as produced by
// ReadKmers). The reconstruction is lossy relative to the live
// search.TerminalState values Build produced: Traversing and graph-mode
// Node/Offset are not persisted, since a read resuming from a loaded seed
// re-derives them by continuing backward search from the recorded SA
// interval or traversed path.
func ReadText(r io.Reader, keys []Kmer, k int) (*Index, error) {
	idx := &Index{K: k, entries: map[Kmer]Entry{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	i := 0
	for sc.Scan() {
		if i >= len(keys) {
			return nil, errors.E(prgerr.IndexCorrupt, "kmer_index has more lines than kmers")
		}
		states, err := parseLine(sc.Text())
		if err != nil {
			return nil, errors.E(prgerr.IndexCorrupt, err, "line", i)
		}
		idx.entries[keys[i]] = Entry{States: states}
		i++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if i != len(keys) {
		return nil, errors.E(prgerr.IndexCorrupt, "kmer_index line count does not match kmers file")
	}
	return idx, nil
}

func parseLine(line string) ([]search.TerminalState, error) {
	fields := strings.Split(line, "|")
	if len(fields) == 0 {
		return nil, errors.E(prgerr.IndexCorrupt, "empty kmer_index line")
	}

	var states []search.TerminalState
	saTokens := strings.Fields(fields[0])
	if len(saTokens)%2 != 0 {
		return nil, errors.E(prgerr.IndexCorrupt, "odd number of SA interval fields")
	}
	for j := 0; j < len(saTokens); j += 2 {
		lo, err1 := strconv.Atoi(saTokens[j])
		hi, err2 := strconv.Atoi(saTokens[j+1])
		if err1 != nil || err2 != nil {
			return nil, errors.E(prgerr.IndexCorrupt, "malformed SA interval")
		}
		states = append(states, search.TerminalState{InIndex: true, SALo: lo, SAHi: hi})
	}

	for _, f := range fields[1:] {
		toks := strings.Fields(f)
		if len(toks)%2 != 0 {
			return nil, errors.E(prgerr.IndexCorrupt, "odd number of locus fields")
		}
		var loci []graph.Locus
		for j := 0; j < len(toks); j += 2 {
			site, err1 := strconv.ParseUint(toks[j], 10, 64)
			allele, err2 := strconv.Atoi(toks[j+1])
			if err1 != nil || err2 != nil {
				return nil, errors.E(prgerr.IndexCorrupt, "malformed locus")
			}
			loci = append(loci, graph.Locus{Site: alphabet.Marker(site), Allele: allele})
		}
		if len(loci) > 0 {
			states = append(states, search.TerminalState{Traversed: loci})
		}
	}
	return states, nil
}

// packKmers bit-packs keys (each k 3-bit symbols) least-significant-byte
// first.
func packKmers(keys []Kmer, k int) []byte {
	out := make([]byte, 0, (len(keys)*k*3+7)/8)
	var acc uint32
	var nbits uint
	for _, key := range keys {
		for i := k - 1; i >= 0; i-- {
			sym := (uint64(key) >> uint(i*3)) & 0x7
			acc |= uint32(sym) << nbits
			nbits += 3
			for nbits >= 8 {
				out = append(out, byte(acc))
				acc >>= 8
				nbits -= 8
			}
		}
	}
	if nbits > 0 {
		out = append(out, byte(acc))
	}
	return out
}

func unpackKmers(data []byte, k, count int) ([]Kmer, error) {
	keys := make([]Kmer, count)
	var acc uint32
	var nbits uint
	bi := 0
	readBits := func(n uint) (uint64, error) {
		for nbits < n {
			if bi >= len(data) {
				return 0, errors.E(prgerr.IndexCorrupt, "kmers file truncated")
			}
			acc |= uint32(data[bi]) << nbits
			bi++
			nbits += 8
		}
		v := uint64(acc) & ((1 << n) - 1)
		acc >>= n
		nbits -= n
		return v, nil
	}
	for ki := range keys {
		var key Kmer
		for i := 0; i < k; i++ {
			bits, err := readBits(3)
			if err != nil {
				return nil, err
			}
			key = (key << 3) | Kmer(bits)
		}
		keys[ki] = key
	}
	return keys, nil
}
