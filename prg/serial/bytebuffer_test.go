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

package serial

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteBufferRoundTrip(t *testing.T) {
	w := NewWriter()
	w.PutUint32(binary.LittleEndian, 5)
	w.PutUint32(binary.LittleEndian, 0xdeadbeef)
	w.PutUvarint64(1234567)
	w.PutBytes([]byte("hello"))

	r := NewReader(w.Bytes())
	assert.Equal(t, uint32(5), r.Uint32(binary.LittleEndian))
	assert.Equal(t, uint32(0xdeadbeef), r.Uint32(binary.LittleEndian))
	assert.Equal(t, uint64(1234567), r.Uvarint64())
	assert.Equal(t, []byte("hello"), r.RawBytes(5))
	assert.Equal(t, 0, r.Remaining())
}
