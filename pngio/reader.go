// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pngio

import (
	"encoding/binary"
	"fmt"

	"github.com/andyparkerson/openbadge/errors"
)

// A Reader decodes the chunk sequence of an in-memory PNG
// datastream. It is a cursor over the buffer handed to NewReader; it
// performs no I/O and no allocation beyond the chunks it returns,
// whose Data fields alias the source buffer.
type Reader struct {
	// Verify makes Next check each chunk's stored CRC against a
	// freshly computed one, failing with an Integrity error on
	// mismatch. It defaults to off, matching the permissive read
	// behavior of most PNG tooling.
	Verify bool

	buf []byte
	off int
}

// NewReader returns a Reader positioned at the first chunk of the
// PNG datastream p. It fails with an Invalid error if p is shorter
// than the PNG signature, and with a Format error if p does not
// begin with it.
func NewReader(p []byte) (*Reader, error) {
	if len(p) < SignatureSize {
		return nil, errors.E(errors.Invalid, "buffer shorter than PNG signature")
	}
	if !HasSignature(p) {
		return nil, errors.E(errors.Format, "missing PNG signature")
	}
	return &Reader{buf: p, off: SignatureSize}, nil
}

// More tells whether enough bytes remain in the buffer for another
// chunk frame. Trailing bytes too short to frame a chunk are
// ignored.
func (r *Reader) More() bool {
	return len(r.buf)-r.off >= ChunkOverhead
}

// Next decodes the chunk at the reader's current position and
// advances past it. It fails with a Truncated error if the chunk
// declares more data than the buffer holds. Next does not interpret
// chunk semantics: any 4-byte type tag is returned as found.
func (r *Reader) Next() (Chunk, error) {
	if !r.More() {
		return Chunk{}, errors.E(errors.Truncated, "no chunk remains")
	}
	var (
		length = int(binary.BigEndian.Uint32(r.buf[r.off:]))
		rest   = len(r.buf) - r.off - ChunkOverhead
	)
	if length > rest {
		return Chunk{}, errors.E(errors.Truncated,
			fmt.Sprintf("chunk declares %d data bytes, %d remain", length, rest))
	}
	c := Chunk{
		Type: string(r.buf[r.off+4 : r.off+8]),
		Data: r.buf[r.off+8 : r.off+8+length],
		CRC:  binary.BigEndian.Uint32(r.buf[r.off+8+length:]),
	}
	if r.Verify {
		if sum := Checksum(r.buf[r.off+4 : r.off+8+length]); sum != c.CRC {
			return Chunk{}, errors.E(errors.Integrity,
				fmt.Sprintf("%s chunk checksum %#x, computed %#x", c.Type, c.CRC, sum))
		}
	}
	r.off += ChunkOverhead + length
	return c, nil
}
