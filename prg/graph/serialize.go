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

package graph

import (
	"encoding/gob"
	"io"

	"github.com/klauspost/compress/flate"
)

// Save persists g as a flate-compressed gob container, the on-disk
// "coverage-graph artefact" of spec.md §6, matching encoding/bgzf's use of
// klauspost's faster deflate for columnar BAM/PAM data.
func (g *Graph) Save(w io.Writer) error {
	fw, err := flate.NewWriter(w, flate.DefaultCompression)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(fw).Encode(g); err != nil {
		return err
	}
	return fw.Close()
}

// Load reads back a Graph written by Save.
func Load(r io.Reader) (*Graph, error) {
	fr := flate.NewReader(r)
	defer fr.Close()

	var g Graph
	if err := gob.NewDecoder(fr).Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
}
