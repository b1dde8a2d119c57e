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

// SiteMarkerAllocator hands out fresh odd site markers in opening order,
// the way the PRG string grammar's '[' token does: the first site opened
// gets marker 5, the second gets 7, and so on. Grounded on
// utils/sitemarker.hpp's incrementing site-id counter in original_source.
type SiteMarkerAllocator struct {
	next Marker
}

// NewSiteMarkerAllocator returns an allocator whose first Next() call
// yields FirstMarker.
func NewSiteMarkerAllocator() *SiteMarkerAllocator {
	return &SiteMarkerAllocator{next: FirstMarker}
}

// Next returns the next unused odd site marker and advances the
// allocator by 2.
func (a *SiteMarkerAllocator) Next() Marker {
	m := a.next
	a.next += 2
	return m
}

// Peek returns the marker Next() would return, without consuming it.
func (a *SiteMarkerAllocator) Peek() Marker {
	return a.next
}
