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

// Package serial provides the byte-level reader/writer that prg/linear
// uses to read and write the encoded PRG marker stream. It is modelled directly on
// encoding/pam/fieldio.byteBuffer: a thin cursor-based wrapper over
// encoding/binary that supports both fixed-width and varint fields.
package serial

import (
	"encoding/binary"

	"github.com/grailbio/base/log"
)

// ByteBuffer is a cursor over a byte slice, usable either for reading an
// existing slice or for writing a growable one, never both at once.
type ByteBuffer struct {
	n   int
	buf []byte
}

// NewReader wraps buf for sequential reads starting at offset 0.
func NewReader(buf []byte) *ByteBuffer {
	return &ByteBuffer{buf: buf}
}

// NewWriter returns an empty ByteBuffer ready for Put* calls.
func NewWriter() *ByteBuffer {
	return &ByteBuffer{}
}

func (b *ByteBuffer) ensure(n int) {
	if cap(b.buf) >= b.n+n {
		return
	}
	newCap := ((b.n+n)/16 + 1) * 16
	if newCap < cap(b.buf)*2 {
		newCap = cap(b.buf) * 2
	}
	newBuf := make([]byte, newCap)
	copy(newBuf, b.Bytes())
	b.buf = newBuf
}

// Uint32 reads a fixed32 value in the given byte order, the on-disk width
// of every encoded PRG marker.
func (b *ByteBuffer) Uint32(order binary.ByteOrder) uint32 {
	value := order.Uint32(b.buf[b.n:])
	b.n += 4
	return value
}

// PutUint32 writes value as a fixed32 in the given byte order.
func (b *ByteBuffer) PutUint32(order binary.ByteOrder, value uint32) {
	b.ensure(4)
	order.PutUint32(b.buf[b.n:], value)
	b.n += 4
}

// Uvarint64 reads an unsigned varint.
func (b *ByteBuffer) Uvarint64() uint64 {
	value, n := binary.Uvarint(b.buf[b.n:])
	if n <= 0 {
		log.Panic("serial.ByteBuffer.Uvarint64: underflow")
	}
	b.n += n
	return value
}

// PutUvarint64 writes value as an unsigned varint.
func (b *ByteBuffer) PutUvarint64(value uint64) {
	b.ensure(binary.MaxVarintLen64)
	n := binary.PutUvarint(b.buf[b.n:], value)
	b.n += n
}

// RawBytes extracts the next n bytes without copying.
func (b *ByteBuffer) RawBytes(n int) []byte {
	value := b.buf[b.n : b.n+n]
	b.n += n
	return value
}

// PutBytes appends data verbatim, without a length prefix.
func (b *ByteBuffer) PutBytes(data []byte) {
	b.ensure(len(data))
	copy(b.buf[b.n:], data)
	b.n += len(data)
}

// Bytes returns the data written or remaining to be read.
func (b *ByteBuffer) Bytes() []byte { return b.buf[:b.n] }

// Len returns the cursor position.
func (b *ByteBuffer) Len() int { return b.n }

// Remaining reports how many bytes are left to read.
func (b *ByteBuffer) Remaining() int { return len(b.buf) - b.n }
