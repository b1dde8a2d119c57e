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
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bio/cmd/bio-gram/gram"
)

func usage() {
	fmt.Printf("Usage: %s {build,genotype} [OPTIONS]\n", os.Args[0])
	fmt.Printf("  build    -prg FILE -dir DIR [-kmer-size N] [-all-kmers]\n")
	fmt.Printf("  genotype -dir DIR -reads FILE [-max-read-len N] [-parallelism N] [-ploidy N] [-seed N] [-out FILE]\n")
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if len(os.Args) < 2 {
		usage()
		log.Fatalf("bio-gram: a subcommand ({build,genotype}) is required")
	}

	sub := os.Args[1]
	args := os.Args[2:]

	var err error
	switch sub {
	case "build":
		err = gram.Build(args)
	case "genotype":
		err = gram.Genotype(args)
	default:
		usage()
		log.Fatalf("bio-gram: unknown subcommand %q", sub)
	}
	if err != nil {
		log.Fatalf("bio-gram %s: %v", sub, err)
	}
}
