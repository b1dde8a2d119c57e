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
	"bytes"
	"testing"

	"github.com/grailbio/bio/prg/linear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	p, err := linear.FromString("[A,C[A,T]]")
	require.NoError(t, err)
	g, err := Build(p)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, g.Save(&buf))

	got, err := Load(&buf)
	require.NoError(t, err)

	assert.Equal(t, g.Root, got.Root)
	assert.Equal(t, g.Sink, got.Sink)
	assert.Equal(t, g.Nodes, got.Nodes)
	assert.Equal(t, g.BubbleMap, got.BubbleMap)
	assert.Equal(t, g.ParMap, got.ParMap)
	assert.Equal(t, g.TargetMap, got.TargetMap)
	assert.Equal(t, g.AlleleCount, got.AlleleCount)
	assert.Equal(t, g.RandomAccess, got.RandomAccess)
}
