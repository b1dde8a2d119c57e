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
	"encoding/binary"
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bio/encoding/fastq"
	"github.com/grailbio/bio/prg/alphabet"
	"github.com/grailbio/bio/prg/fmindex"
	"github.com/grailbio/bio/prg/graph"
	"github.com/grailbio/bio/prg/kmerindex"
	"github.com/grailbio/bio/prg/linear"
	"github.com/grailbio/bio/prg/prgerr"
	"github.com/grailbio/bio/prg/quasimap"
)

// GenotypeOpts holds genotype's resolved flag values. Ploidy is accepted
// and threaded through to CoverageSummary only for CLI-surface parity;
// spec.md §1/§7 place the genotyping likelihood model itself out of scope.
type GenotypeOpts struct {
	Dir         string
	ReadsPath   string
	MaxReadLen  int
	Parallelism int
	Ploidy      int
	Seed        int64
	OutPath     string
}

// Genotype parses args as the genotype subcommand's flags, quasimaps the
// named reads file against the artefacts written by build, and emits a
// coverage-summary JSON document.
func Genotype(args []string) error {
	fs := NewGenotypeFlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts, err := fs.Opts()
	if err != nil {
		return err
	}
	return RunGenotype(opts)
}

// RunGenotype executes the map pipeline against already-resolved options.
func RunGenotype(opts GenotypeOpts) error {
	g, idx, kidx, err := loadArtefacts(opts.Dir)
	if err != nil {
		return err
	}
	log.Printf("bio-gram genotype: loaded graph (%d nodes), FM-index (%d positions), kmer index (%d entries)",
		len(g.Nodes), idx.Len(), kidx.Len())

	mapper := quasimap.NewMapper(idx, g, kidx, quasimap.Opts{
		K:           kidx.K,
		Parallelism: opts.Parallelism,
		Seed:        opts.Seed,
	})

	readsFile, err := os.Open(opts.ReadsPath)
	if err != nil {
		return errors.E(prgerr.ReadInputError, err, "bio-gram genotype: opening reads file")
	}
	defer readsFile.Close()

	reads := make(chan quasimap.Read, opts.Parallelism*4)
	scanErr := make(chan error, 1)
	go func() {
		defer close(reads)
		scanner := fastq.NewScanner(readsFile, fastq.Seq)
		var r fastq.Read
		n := 0
		for scanner.Scan(&r) {
			bases, err := encodeRead(r.Seq, opts.MaxReadLen)
			if err != nil {
				log.Error.Printf("bio-gram genotype: skipping read %d: %v", n, err)
				n++
				continue
			}
			reads <- quasimap.Read{Bases: bases, Index: n}
			n++
		}
		if err := scanner.Err(); err != nil {
			scanErr <- errors.E(prgerr.ReadInputError, err, "bio-gram genotype: scanning reads file")
			return
		}
		scanErr <- nil
	}()

	if err := quasimap.Run(mapper, reads); err != nil {
		return err
	}
	if err := <-scanErr; err != nil {
		return err
	}

	summary := NewCoverageSummary(g, mapper.Recorder, opts.Ploidy)
	return writeSummary(opts.OutPath, summary)
}

func loadArtefacts(dir string) (*graph.Graph, *fmindex.FMIndex, *kmerindex.Index, error) {
	gf, err := os.Open(dir + "/" + graphFile)
	if err != nil {
		return nil, nil, nil, errors.E(prgerr.IndexCorrupt, err, "bio-gram genotype: opening graph artefact")
	}
	defer gf.Close()
	g, err := graph.Load(gf)
	if err != nil {
		return nil, nil, nil, err
	}

	// The FM-index is rebuilt from the persisted canonical PRG bytes
	// rather than serialised in its own right: it holds unexported rank
	// bitmaps that encoding/gob cannot reach, and rebuilding from the
	// small PRG source is cheap next to a read-mapping run.
	raw, err := ioutil.ReadFile(dir + "/" + prgFile)
	if err != nil {
		return nil, nil, nil, errors.E(prgerr.IndexCorrupt, err, "bio-gram genotype: opening PRG artefact")
	}
	p, err := linear.FromBytes(raw, binary.LittleEndian)
	if err != nil {
		return nil, nil, nil, err
	}
	idx := fmindex.Build(p)

	mf, err := os.Open(dir + "/" + manifestFile)
	if err != nil {
		return nil, nil, nil, errors.E(prgerr.IndexCorrupt, err, "bio-gram genotype: opening manifest")
	}
	defer mf.Close()
	var man manifest
	if err := json.NewDecoder(mf).Decode(&man); err != nil {
		return nil, nil, nil, errors.E(prgerr.IndexCorrupt, err, "bio-gram genotype: decoding manifest")
	}

	kf, err := os.Open(dir + "/" + kmerFile)
	if err != nil {
		return nil, nil, nil, errors.E(prgerr.IndexCorrupt, err, "bio-gram genotype: opening kmer artefact")
	}
	defer kf.Close()
	keys, err := kmerindex.ReadKmers(kf, man.KmerSize, man.KmerEntries)
	if err != nil {
		return nil, nil, nil, err
	}

	tf, err := os.Open(dir + "/" + textFile)
	if err != nil {
		return nil, nil, nil, errors.E(prgerr.IndexCorrupt, err, "bio-gram genotype: opening kmer text artefact")
	}
	defer tf.Close()
	kidx, err := kmerindex.ReadText(tf, keys, man.KmerSize)
	if err != nil {
		return nil, nil, nil, err
	}
	return g, idx, kidx, nil
}

func encodeRead(seq string, maxLen int) ([]alphabet.Marker, error) {
	if len(seq) > maxLen {
		return nil, errors.E(prgerr.ReadInputError, "read exceeds -max-read-len", len(seq))
	}
	bases := make([]alphabet.Marker, len(seq))
	for i := 0; i < len(seq); i++ {
		b, err := alphabet.EncodeDNABase(seq[i])
		if err != nil {
			return nil, err
		}
		bases[i] = b
	}
	return bases, nil
}
