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

import "sort"

// buildSuffixArray computes the suffix array of text by prefix doubling:
// at each round, suffixes are ranked by their already-known 2^k-length
// prefix rank pairs, which is itself a valid ordering key for the next,
// doubled, round. Unlike a text over a byte alphabet, text here is already
// a slice of totally ordered integers (the PRG's own marker values plus a
// trailing sentinel smaller than everything else), so the first round's
// ranks are simply the marker values themselves — no initial bucketing
// pass is required.
//
// This is not the module's asymptotically fastest construction (a linear
// SA-IS pass would be), but it is the most straightforward to derive
// correctly without a reference run of the toolchain, and suffix arrays of
// the sizes this package is exercised against (whole bacterial PRGs, not
// chromosome-scale genomes) comfortably tolerate the O(n log^2 n) cost.
func buildSuffixArray(text []uint64) []int {
	n := len(text)
	sa := make([]int, n)
	rank := make([]int, n)
	for i := 0; i < n; i++ {
		sa[i] = i
		rank[i] = int(text[i])
	}
	if n <= 1 {
		return sa
	}

	tmp := make([]int, n)
	for k := 1; ; k *= 2 {
		keyAt := func(i, shift int) int {
			j := i + shift
			if j >= n {
				return -1
			}
			return rank[j]
		}
		sort.Slice(sa, func(i, j int) bool {
			a, b := sa[i], sa[j]
			if rank[a] != rank[b] {
				return rank[a] < rank[b]
			}
			return keyAt(a, k) < keyAt(b, k)
		})

		tmp[sa[0]] = 0
		for i := 1; i < n; i++ {
			prev, cur := sa[i-1], sa[i]
			same := rank[prev] == rank[cur] && keyAt(prev, k) == keyAt(cur, k)
			if same {
				tmp[cur] = tmp[prev]
			} else {
				tmp[cur] = tmp[prev] + 1
			}
		}
		copy(rank, tmp)

		if rank[sa[n-1]] == n-1 {
			break // every suffix now has a unique rank.
		}
	}
	return sa
}
