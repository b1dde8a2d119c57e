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

// Package alphabet defines the integer encoding shared by every PRG marker:
// nucleotides 1..4 and variant markers >= 5, with the odd/even parity rule
// that distinguishes site markers from allele separators.
package alphabet

import "github.com/grailbio/base/errors"

// Marker is a single integer in a linearised PRG. Values 1..4 are DNA
// bases; values >= 5 are variant markers; 0 never appears in a normalised
// PRG and is reserved as the "unknown allele" sentinel.
type Marker uint64

// Unknown is the sentinel allele id used on traversing_path entries whose
// exit allele has not yet been determined, and as the reserved zero marker.
const Unknown Marker = 0

// FirstMarker is the smallest valid variant-marker value.
const FirstMarker Marker = 5

// DNA base encodings. These never change: code elsewhere (FM-index
// alphabet table, graph sequence nodes) assumes this exact bijection.
const (
	baseA Marker = 1
	baseC Marker = 2
	baseG Marker = 3
	baseT Marker = 4
)

// EncodeDNABase maps one of {A,C,G,T,a,c,g,t} to {1,2,3,4}. It returns an
// error for any other byte, including 'N'.
func EncodeDNABase(b byte) (Marker, error) {
	switch b {
	case 'A', 'a':
		return baseA, nil
	case 'C', 'c':
		return baseC, nil
	case 'G', 'g':
		return baseG, nil
	case 'T', 't':
		return baseT, nil
	default:
		return 0, errors.E("alphabet: not a DNA base", string(b))
	}
}

// DecodeDNABase is the inverse of EncodeDNABase, always returning an
// upper-case letter. It panics on a marker outside 1..4, since callers are
// expected to have already classified the marker as a base.
func DecodeDNABase(m Marker) byte {
	switch m {
	case baseA:
		return 'A'
	case baseC:
		return 'C'
	case baseG:
		return 'G'
	case baseT:
		return 'T'
	default:
		panic("alphabet: DecodeDNABase called on a non-base marker")
	}
}

// IsBase reports whether m is one of the four DNA bases.
func IsBase(m Marker) bool {
	return m >= baseA && m <= baseT
}

// IsVariant reports whether m is a variant marker (site or allele
// separator), i.e. m >= 5.
func IsVariant(m Marker) bool {
	return m >= FirstMarker
}

// IsSiteMarker reports whether m is an odd marker that opens or exits a
// site (a "site_entry" or resolved "site_end" marker in the sense of the
// search engine, which treats the site's own odd id as its exit target).
func IsSiteMarker(m Marker) bool {
	return IsVariant(m) && m%2 == 1
}

// IsAlleleMarker reports whether m is an even marker separating or closing
// alleles within site m-1.
func IsAlleleMarker(m Marker) bool {
	return IsVariant(m) && m%2 == 0
}

// SiteOf returns the odd site id that owns allele marker m. It panics if m
// is not an allele marker.
func SiteOf(m Marker) Marker {
	if !IsAlleleMarker(m) {
		panic("alphabet: SiteOf called on a non-allele marker")
	}
	return m - 1
}

// AlleleMarkerOf returns the even allele-separator marker for site id s. It
// panics if s is not a site marker.
func AlleleMarkerOf(s Marker) Marker {
	if !IsSiteMarker(s) {
		panic("alphabet: AlleleMarkerOf called on a non-site marker")
	}
	return s + 1
}

// SiteIndex returns the 0-based ordinal of a site given its odd id,
// matching the coverage tables' "(site_id-5)/2" indexing rule.
func SiteIndex(s Marker) int {
	return int((s - FirstMarker) / 2)
}
