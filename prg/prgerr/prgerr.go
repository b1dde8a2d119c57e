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

// Package prgerr defines the sentinel error kinds shared across the prg
// packages, so that callers can classify a failure with errors.Is without
// depending on error message text. Build-time errors (MalformedPRG,
// EmptyAllele, SingleAlleleSite, IndexCorrupt, KmerIndexMismatch) are
// fatal; map-time errors (ReadInputError) are recoverable per read;
// OutputIOError covers result-writing failures.
package prgerr

import "errors"

var (
	// MalformedPRG covers unparsable byte streams, a zero marker, or a
	// site that closes without having opened.
	MalformedPRG = errors.New("malformed PRG")

	// EmptyAllele covers two adjacent separators with nothing between
	// them.
	EmptyAllele = errors.New("empty allele")

	// SingleAlleleSite covers a site with exactly one allele.
	SingleAlleleSite = errors.New("site has only one allele")

	// DanglingMarker covers a marker with no matching pair at all.
	DanglingMarker = errors.New("dangling marker")

	// IndexCorrupt covers FM-index/bitmap deserialisation failure, or a
	// size mismatch against the encoded PRG length.
	IndexCorrupt = errors.New("index corrupt")

	// KmerIndexMismatch covers a k-mer size mismatch between build and
	// map time, or an SA range outside the loaded FM-index.
	KmerIndexMismatch = errors.New("kmer index mismatch")

	// ReadInputError covers an unreadable or malformed read input file.
	ReadInputError = errors.New("read input error")

	// OutputIOError covers a failure to write coverage or JSON output.
	OutputIOError = errors.New("output IO error")
)
