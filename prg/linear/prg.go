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

// Package linear implements the linearised PRG: validating and rewriting a
// raw marker sequence so that site boundaries obey the canonical-even-close
// invariant the rest of the system relies on.
package linear

import (
	"encoding/binary"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/prgerr"
	"github.com/grailbio/bio/prg/serial"
)

// PRG is a validated, normalised linearised PRG: a sequence of markers in
// which every site's separators and close all use the same even marker.
type PRG struct {
	// Markers is the normalised sequence, 0-indexed.
	Markers []alphabet.Marker

	// endPositions maps each even (allele/close) marker to the index of
	// its last (closing) occurrence.
	endPositions map[alphabet.Marker]int

	// LegacyRewritten is true if at least one legacy odd closing marker
	// was rewritten to its canonical even form during normalisation.
	LegacyRewritten bool
}

// EndPositions returns, for every even marker e appearing in the PRG, the
// index of its closing occurrence (the maximum index at which e appears).
func (p *PRG) EndPositions() map[alphabet.Marker]int {
	return p.endPositions
}

// FromBytes parses a stream of 4-byte unsigned integers in the given byte
// order into a normalised PRG. Every integer must be >= 1; legacy closing
// markers (an odd site marker's second occurrence) are rewritten to the
// canonical even form.
func FromBytes(data []byte, order binary.ByteOrder) (*PRG, error) {
	if len(data)%4 != 0 {
		return nil, errors.E(prgerr.MalformedPRG, "byte length not a multiple of 4", len(data))
	}
	n := len(data) / 4
	raw := make([]alphabet.Marker, n)
	r := serial.NewReader(data)
	for i := 0; i < n; i++ {
		v := r.Uint32(order)
		if v == 0 {
			return nil, errors.E(prgerr.MalformedPRG, "marker value 0 is reserved", "index", i)
		}
		raw[i] = alphabet.Marker(v)
	}
	return normalise(raw)
}

// normalise rewrites legacy odd closing markers to their canonical even
// form and computes endPositions, following the pairing rule of §4.1:
// a site's odd marker s is opened on first sight; any subsequent
// occurrence of the same value s is the legacy close and becomes s+1; any
// occurrence of the even value s+1 (separator or canonical close) is left
// untouched, provided s was already opened.
func normalise(raw []alphabet.Marker) (*PRG, error) {
	opened := make(map[alphabet.Marker]bool)
	closed := make(map[alphabet.Marker]bool)
	out := make([]alphabet.Marker, len(raw))
	legacyRewritten := false

	for i, v := range raw {
		switch {
		case alphabet.IsBase(v):
			out[i] = v

		case alphabet.IsSiteMarker(v):
			if !opened[v] {
				opened[v] = true
				out[i] = v
				continue
			}
			// Legacy form: the site's own odd marker closes it a
			// second time. Rewrite to the canonical even marker.
			out[i] = v + 1
			legacyRewritten = true
			closed[v+1] = true

		case alphabet.IsAlleleMarker(v):
			site := alphabet.SiteOf(v)
			if !opened[site] {
				return nil, errors.E(prgerr.MalformedPRG,
					"site closes without opening", "marker", v, "index", i)
			}
			out[i] = v
			closed[v] = true

		default:
			return nil, errors.E(prgerr.MalformedPRG, "marker out of range", v, "index", i)
		}
	}

	for s := range opened {
		if !closed[s+1] {
			return nil, errors.E(prgerr.MalformedPRG,
				"site never closed", "site", s)
		}
	}

	ends := make(map[alphabet.Marker]int, len(closed))
	for i, v := range out {
		if alphabet.IsAlleleMarker(v) {
			ends[v] = i // later occurrences overwrite, leaving the max index.
		}
	}

	return &PRG{Markers: out, endPositions: ends, LegacyRewritten: legacyRewritten}, nil
}

// ToBytes serialises the PRG back into 4-byte unsigned integers in the
// given byte order. bytes -> PRG -> bytes is the identity once any
// legacy rewrite has already been applied (§8).
func (p *PRG) ToBytes(order binary.ByteOrder) []byte {
	w := serial.NewWriter()
	for _, m := range p.Markers {
		w.PutUint32(order, uint32(m))
	}
	return w.Bytes()
}

// Len returns the number of markers in the PRG.
func (p *PRG) Len() int { return len(p.Markers) }
