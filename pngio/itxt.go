// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pngio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/andyparkerson/openbadge/errors"
)

// Text is the decoded form of an international text (iTXt) chunk
// payload:
//
//	keyword            // Latin-1, null-terminated
//	compression flag   // 1 byte: 0 uncompressed, 1 compressed
//	compression method // 1 byte: 0 is zlib-wrapped deflate
//	language tag       // Latin-1, null-terminated, may be empty
//	translated keyword // Latin-1, null-terminated, may be empty
//	text               // UTF-8, remainder of the payload
type Text struct {
	Keyword           string
	LanguageTag       string
	TranslatedKeyword string
	// Text is the chunk's UTF-8 text. Compressed payloads are
	// inflated during decoding, so Text never holds compressed
	// bytes.
	Text string
}

// zlib-wrapped deflate, the only method the PNG spec defines.
const compressionZlib = 0

// Encode returns the iTXt chunk payload for t, always in the
// uncompressed form.
func (t Text) Encode() []byte {
	p := make([]byte, 0, len(t.Keyword)+len(t.LanguageTag)+len(t.TranslatedKeyword)+len(t.Text)+5)
	p = append(p, t.Keyword...)
	p = append(p, 0, 0, 0) // terminator, compression flag, compression method
	p = append(p, t.LanguageTag...)
	p = append(p, 0)
	p = append(p, t.TranslatedKeyword...)
	p = append(p, 0)
	return append(p, t.Text...)
}

// DecodeText decodes the payload of an iTXt chunk. A payload missing
// an expected terminator decodes to whatever fields precede the
// damage, with ok set to false: callers must treat such results as
// carrying no text. Compressed payloads are inflated before UTF-8
// interpretation; an unrecognized compression method or a corrupt
// compressed stream is an explicit error, never silently returned as
// garbage text.
func DecodeText(data []byte) (txt Text, ok bool, err error) {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return Text{}, false, nil
	}
	txt.Keyword = string(data[:i])
	rest := data[i+1:]
	if len(rest) < 2 {
		return txt, false, nil
	}
	flag, method := rest[0], rest[1]
	rest = rest[2:]
	if i = bytes.IndexByte(rest, 0); i < 0 {
		return txt, false, nil
	}
	txt.LanguageTag = string(rest[:i])
	rest = rest[i+1:]
	if i = bytes.IndexByte(rest, 0); i < 0 {
		return txt, false, nil
	}
	txt.TranslatedKeyword = string(rest[:i])
	rest = rest[i+1:]
	if flag == 0 {
		txt.Text = string(rest)
		return txt, true, nil
	}
	if method != compressionZlib {
		return txt, false, errors.E(errors.NotSupported,
			fmt.Sprintf("iTXt compression method %d", method))
	}
	zr, err := zlib.NewReader(bytes.NewReader(rest))
	if err != nil {
		return txt, false, errors.E(errors.Format, "corrupt compressed text", err)
	}
	defer zr.Close()
	inflated, err := io.ReadAll(zr)
	if err != nil {
		return txt, false, errors.E(errors.Format, "corrupt compressed text", err)
	}
	txt.Text = string(inflated)
	return txt, true, nil
}
