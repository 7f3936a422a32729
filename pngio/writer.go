// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pngio

import "encoding/binary"

// AppendSignature appends the PNG signature to p.
func AppendSignature(p []byte) []byte {
	return append(p, signature[:]...)
}

// AppendChunk appends a chunk with the given type tag and data to p,
// returning the extended buffer. The chunk's CRC is always computed
// fresh over the type and data. The tag must be exactly 4 bytes;
// beyond that, no validation of its semantic legality is performed.
func AppendChunk(p []byte, typ string, data []byte) []byte {
	if len(typ) != 4 {
		panic("pngio: chunk type must be 4 bytes")
	}
	off := len(p)
	p = append(p, 0, 0, 0, 0)
	binary.BigEndian.PutUint32(p[off:], uint32(len(data)))
	p = append(p, typ...)
	p = append(p, data...)
	var crc [4]byte
	binary.BigEndian.PutUint32(crc[:], Checksum(p[off+4:]))
	return append(p, crc[:]...)
}
