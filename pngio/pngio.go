// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package pngio implements chunk-level access to PNG datastreams. It
// is not an image codec: pixel data passes through opaquely, and the
// package concerns itself only with the chunk framing that carries
// it, so that metadata chunks may be inserted into or read out of an
// image without disturbing any other byte.
//
// Data layout
//
// A PNG datastream is an 8-byte signature followed by an ordered
// sequence of chunks, the first of which is the IHDR header chunk and
// the last of which is the IEND end marker:
//
//	stream := signature chunk*
//
//	chunk :=
//		length uint32       // big-endian byte count of data only
//		type [4]uint8       // ASCII chunk type tag
//		data [length]uint8  // the chunk data
//		crc uint32          // big-endian CRC-32 of type and data
//
// The CRC is the common reflected CRC-32 (polynomial 0xEDB88320,
// initial register and final XOR all-ones). Readers in this package
// do not verify stored CRCs unless asked to: PNG tooling is
// conventionally permissive on read, and strict verification is opt
// in. Writers always compute CRCs fresh.
//
// The package also codecs the iTXt (international text) chunk
// payload, the sub-format used to carry UTF-8 text such as baked
// Open Badges assertions.
package pngio

import "sync"

// SignatureSize is the length of the PNG signature that begins every
// datastream.
const SignatureSize = 8

// ChunkOverhead is the number of framing bytes (length, type, CRC)
// that wrap every chunk's data.
const ChunkOverhead = 12

var signature = [SignatureSize]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Chunk type tags interpreted by this package. Any other tag passes
// through untouched.
const (
	// TypeHeader tags the mandatory first chunk of a datastream.
	TypeHeader = "IHDR"
	// TypeEnd tags the end-of-stream marker chunk.
	TypeEnd = "IEND"
	// TypeIntText tags an international text (iTXt) chunk.
	TypeIntText = "iTXt"
)

// HasSignature tells whether p begins with the PNG signature.
func HasSignature(p []byte) bool {
	if len(p) < SignatureSize {
		return false
	}
	for i, b := range signature {
		if p[i] != b {
			return false
		}
	}
	return true
}

// A Chunk is a single decoded unit of a PNG datastream. Data aliases
// the buffer the chunk was decoded from and must not be modified.
type Chunk struct {
	// Type is the chunk's 4-byte ASCII type tag.
	Type string
	// Data is the chunk's payload, excluding all framing.
	Data []byte
	// CRC is the checksum stored in the source stream. It is read
	// verbatim, and is not necessarily valid for Type and Data.
	CRC uint32
}

const crcPoly = 0xedb88320

var (
	crcOnce  sync.Once
	crcTable [256]uint32
)

func crcInit() {
	for i := range crcTable {
		c := uint32(i)
		for k := 0; k < 8; k++ {
			if c&1 != 0 {
				c = crcPoly ^ (c >> 1)
			} else {
				c >>= 1
			}
		}
		crcTable[i] = c
	}
}

func crcUpdate(c uint32, p []byte) uint32 {
	for _, b := range p {
		c = crcTable[byte(c)^b] ^ (c >> 8)
	}
	return c
}

// Checksum returns the CRC-32 of p as used by PNG chunk framing:
// reflected polynomial 0xEDB88320, initial register all-ones, final
// value XORed with all-ones. The lookup table is built on first use
// and is safe for concurrent callers thereafter.
func Checksum(p []byte) uint32 {
	crcOnce.Do(crcInit)
	return ^crcUpdate(^uint32(0), p)
}
