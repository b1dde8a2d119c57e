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

package alphabet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeBijection(t *testing.T) {
	for _, b := range []byte("ACGTacgt") {
		m, err := EncodeDNABase(b)
		require.NoError(t, err)
		assert.True(t, IsBase(m))
		// DecodeDNABase always normalizes to upper case.
		upper := b
		if upper >= 'a' {
			upper -= 'a' - 'A'
		}
		assert.Equal(t, upper, DecodeDNABase(m))
	}
}

func TestEncodeDNABaseRejectsNonACGT(t *testing.T) {
	for _, b := range []byte("Nn01 \x00") {
		_, err := EncodeDNABase(b)
		assert.Error(t, err)
	}
}

func TestMarkerParity(t *testing.T) {
	cases := []struct {
		m        Marker
		variant  bool
		site     bool
		allele   bool
	}{
		{0, false, false, false},
		{1, false, false, false},
		{4, false, false, false},
		{5, true, true, false},
		{6, true, false, true},
		{7, true, true, false},
		{100, true, false, true},
		{101, true, true, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.variant, IsVariant(c.m), "marker %d", c.m)
		assert.Equal(t, c.site, IsSiteMarker(c.m), "marker %d", c.m)
		assert.Equal(t, c.allele, IsAlleleMarker(c.m), "marker %d", c.m)
	}
}

func TestSiteAlleleRoundTrip(t *testing.T) {
	assert.Equal(t, Marker(6), AlleleMarkerOf(5))
	assert.Equal(t, Marker(5), SiteOf(6))
	assert.Equal(t, 0, SiteIndex(5))
	assert.Equal(t, 1, SiteIndex(7))
	assert.Equal(t, 10, SiteIndex(25))
}

func TestSiteMarkerAllocator(t *testing.T) {
	a := NewSiteMarkerAllocator()
	assert.Equal(t, Marker(5), a.Peek())
	assert.Equal(t, Marker(5), a.Next())
	assert.Equal(t, Marker(7), a.Next())
	assert.Equal(t, Marker(9), a.Next())
}
