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

package linear

import (
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/prgerr"
)

// StringToInts parses the human-readable PRG grammar of spec.md §6 — e.g.
// "[A,C[A,T]]" — into a marker sequence. '[' opens a site with the next
// unused odd marker; ',' emits the site's even separator; ']' emits the
// even close and pops the site. Grounded on the PRG string parsing in
// original_source/libgramtools/src/prg/prg.cpp.
func StringToInts(s string) ([]alphabet.Marker, error) {
	var out []alphabet.Marker
	var stack []alphabet.Marker
	alloc := alphabet.NewSiteMarkerAllocator()

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '[':
			site := alloc.Next()
			stack = append(stack, site)
			out = append(out, site)
		case ',':
			if len(stack) == 0 {
				return nil, errors.E(prgerr.MalformedPRG, "',' outside any site", "index", i)
			}
			site := stack[len(stack)-1]
			out = append(out, alphabet.AlleleMarkerOf(site))
		case ']':
			if len(stack) == 0 {
				return nil, errors.E(prgerr.MalformedPRG, "unmatched ']'", "index", i)
			}
			site := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			out = append(out, alphabet.AlleleMarkerOf(site))
		default:
			m, err := alphabet.EncodeDNABase(c)
			if err != nil {
				return nil, errors.E(prgerr.MalformedPRG, err, "index", i)
			}
			out = append(out, m)
		}
	}
	if len(stack) != 0 {
		return nil, errors.E(prgerr.MalformedPRG, "unclosed site at end of string")
	}
	return out, nil
}

// FromString parses the human-readable grammar directly into a normalised
// PRG, combining StringToInts and the same validation FromBytes applies.
func FromString(s string) (*PRG, error) {
	markers, err := StringToInts(s)
	if err != nil {
		return nil, err
	}
	return normalise(markers)
}

// IntsToString renders a marker sequence back into the PRG grammar. It
// requires end-position information (as produced by normalise) to decide
// whether an even marker occurrence is a ',' separator or the closing ']'.
//
// The round trip ints -> string -> ints is an identity only if the
// input's site numbering already matches left-to-right opening order,
// since StringToInts always allocates fresh, sequential odd markers.
func IntsToString(markers []alphabet.Marker, endPositions map[alphabet.Marker]int) (string, error) {
	var b strings.Builder
	opened := make(map[alphabet.Marker]bool)

	for i, m := range markers {
		switch {
		case alphabet.IsBase(m):
			b.WriteByte(alphabet.DecodeDNABase(m))
		case alphabet.IsSiteMarker(m):
			if opened[m] {
				return "", errors.E(prgerr.MalformedPRG, "site marker repeated", "marker", m, "index", i)
			}
			opened[m] = true
			b.WriteByte('[')
		case alphabet.IsAlleleMarker(m):
			if i == endPositions[m] {
				b.WriteByte(']')
			} else {
				b.WriteByte(',')
			}
		default:
			return "", errors.E(prgerr.MalformedPRG, "marker out of range", m, "index", i)
		}
	}
	return b.String(), nil
}
