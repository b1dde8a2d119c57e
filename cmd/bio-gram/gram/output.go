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
package gram

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/coverage"
	"github.com/grailbio/bio/prg/graph"
	"github.com/grailbio/bio/prg/prgerr"
)

// SiteCoverage is one site's coverage row: allele_sum_coverage and
// grouped_allele_counts (spec.md §4.6), keyed by the site's odd marker id
// for readability rather than its internal site-index form.
type SiteCoverage struct {
	Site          uint64            `json:"site"`
	AlleleSum     []uint64          `json:"allele_sum"`
	GroupedCounts map[string]uint64 `json:"grouped_counts,omitempty"`
}

// CoverageSummary is bio-gram genotype's entire JSON output: per-site
// allele coverage. Ploidy is carried only for CLI-surface parity; no
// likelihood model or genotype call is computed (spec.md §1/§7 Non-goals).
type CoverageSummary struct {
	Ploidy int            `json:"ploidy"`
	Sites  []SiteCoverage `json:"sites"`
}

// NewCoverageSummary snapshots rec's coverage tables into an order stable
// across runs (ascending site id), independent of the map/iteration order
// grouped_allele_counts was accumulated in.
func NewCoverageSummary(g *graph.Graph, rec *coverage.Recorder, ploidy int) CoverageSummary {
	siteIDs := make([]alphabet.Marker, 0, len(g.AlleleCount))
	for site := range g.AlleleCount {
		siteIDs = append(siteIDs, site)
	}
	sort.Slice(siteIDs, func(i, j int) bool { return siteIDs[i] < siteIDs[j] })

	sum := rec.AlleleSum()
	sites := make([]SiteCoverage, 0, len(siteIDs))
	for _, site := range siteIDs {
		idx := alphabet.SiteIndex(site)
		sites = append(sites, SiteCoverage{
			Site:          uint64(site),
			AlleleSum:     sum[idx],
			GroupedCounts: rec.GroupedAlleleCounts(site),
		})
	}
	return CoverageSummary{Ploidy: ploidy, Sites: sites}
}

// writeSummary marshals summary as indented JSON to path, or to stdout
// when path is empty or "-".
func writeSummary(path string, summary CoverageSummary) error {
	w := os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return errors.E(prgerr.OutputIOError, err, "bio-gram genotype: creating output file")
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return errors.E(prgerr.OutputIOError, err, "bio-gram genotype: writing output file")
		}
		return f.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return errors.E(prgerr.OutputIOError, err, "bio-gram genotype: writing output")
	}
	return nil
}
