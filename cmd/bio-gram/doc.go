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

/*
Command bio-gram builds an index over a population reference graph (PRG)
and quasi-maps reads against it, reporting per-allele and per-base
coverage.

The "build" subcommand parses an encoded PRG, constructs its coverage
graph, FM-index, and kmer index, and persists the graph, the kmer index,
and the canonical PRG bytes (from which genotype rebuilds the FM-index)
under a directory:

	bio-gram build -prg graph.bin -dir index/ -kmer-size 9

The "genotype" subcommand loads the artefacts written by build, maps a
FASTQ read set against them with a worker pool, and writes a per-site
coverage summary as JSON:

	bio-gram genotype -dir index/ -reads reads.fastq -out coverage.json

genotype does not compute a likelihood model or ploidy call; -ploidy is
accepted only so the output records the caller's intended ploidy.
*/
package main
