// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bake embeds text payloads into PNG images and extracts
// them again, in the manner of Open Badges "baking": the payload
// (typically a serialized badge assertion) travels in an iTXt chunk
// keyed by a fixed keyword, inserted directly after the image's
// header chunk. Every other byte of the image passes through
// unmodified, except that chunk checksums are always recomputed on
// write.
//
// The package has no opinion about what the payload means; callers
// hand it a complete image buffer and a UTF-8 string and get back a
// complete image buffer, or the reverse.
package bake

import (
	"fmt"

	"github.com/andyparkerson/openbadge/errors"
	"github.com/andyparkerson/openbadge/pngio"
)

// Keyword is the iTXt keyword identifying a baked badge assertion.
// It is fixed by the Open Badges baking specification and matched
// case-sensitively on extraction.
const Keyword = "openbadges"

// Opts configures the baking engine. The zero value is ready to use
// and matches the behavior of standard Open Badges baking tools.
type Opts struct {
	// VerifyChecksums makes both Embed and Extract check each source
	// chunk's stored CRC, failing with an Integrity error on
	// mismatch. Off by default: badge images are routinely rewritten
	// by tools that do not maintain checksums, and Embed recomputes
	// every output checksum regardless.
	VerifyChecksums bool

	// ReplaceExisting makes Embed drop any assertion chunk already
	// present while inserting the new one. By default Embed inserts
	// unconditionally, so re-baking a baked image yields two
	// assertion chunks of which readers see only the first (the
	// newly inserted one, since insertion is always directly after
	// the header).
	ReplaceExisting bool
}

// Embed returns a copy of the PNG image src with payload baked into
// it, using the default options. See Opts.Embed.
func Embed(src []byte, payload string) ([]byte, error) {
	return Opts{}.Embed(src, payload)
}

// Extract returns the payload baked into the PNG image src, using
// the default options. See Opts.Extract.
func Extract(src []byte) (string, bool, error) {
	return Opts{}.Extract(src)
}

// Embed returns a copy of the PNG image src with payload baked into
// it as an iTXt chunk placed directly after the header chunk. The
// payload is stored uncompressed, with empty language tag and
// translated keyword.
//
// Embed fails with an Invalid error if src is empty or shorter than
// the PNG signature, or if payload is empty; with a Format error if
// src does not begin with the PNG signature or its first chunk is
// not the header chunk; and with a Truncated error if a chunk
// declares more data than src holds. On failure no output is
// returned.
//
// On success the result is exactly len(src) plus the encoded size of
// the new chunk, with every source chunk re-emitted in order with a
// freshly computed checksum.
func (o Opts) Embed(src []byte, payload string) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.E(errors.Invalid, "empty source image")
	}
	if payload == "" {
		return nil, errors.E(errors.Invalid, "empty payload")
	}
	r, err := pngio.NewReader(src)
	if err != nil {
		return nil, err
	}
	r.Verify = o.VerifyChecksums
	if !r.More() {
		return nil, errors.E(errors.Format, "missing header chunk")
	}
	hdr, err := r.Next()
	if err != nil {
		return nil, err
	}
	if hdr.Type != pngio.TypeHeader {
		return nil, errors.E(errors.Format,
			fmt.Sprintf("first chunk is %s, not %s", hdr.Type, pngio.TypeHeader))
	}
	text := pngio.Text{Keyword: Keyword, Text: payload}.Encode()
	out := make([]byte, 0, len(src)+pngio.ChunkOverhead+len(text))
	out = pngio.AppendSignature(out)
	out = pngio.AppendChunk(out, hdr.Type, hdr.Data)
	out = pngio.AppendChunk(out, pngio.TypeIntText, text)
	for r.More() {
		c, err := r.Next()
		if err != nil {
			return nil, err
		}
		if o.ReplaceExisting && isAssertion(c) {
			continue
		}
		out = pngio.AppendChunk(out, c.Type, c.Data)
	}
	return out, nil
}

// Extract scans the PNG image src for a baked assertion chunk and
// returns the text of the first one whose keyword matches Keyword
// exactly. The scan stops at the end-marker chunk even if more bytes
// trail it. A missing assertion is a normal outcome, reported by
// ok=false with a nil error.
//
// Extract fails with an Invalid error if src is empty or shorter
// than the PNG signature, with a Format error if src does not begin
// with the PNG signature, and with a Truncated error on a chunk
// overrunning the buffer. A matching chunk whose text is compressed
// with an unsupported method, or whose compressed stream is corrupt,
// is an error rather than a silent miss.
func (o Opts) Extract(src []byte) (text string, ok bool, err error) {
	if len(src) == 0 {
		return "", false, errors.E(errors.Invalid, "empty source image")
	}
	r, err := pngio.NewReader(src)
	if err != nil {
		return "", false, err
	}
	r.Verify = o.VerifyChecksums
	for r.More() {
		c, err := r.Next()
		if err != nil {
			return "", false, err
		}
		if c.Type == pngio.TypeIntText {
			txt, ok, err := pngio.DecodeText(c.Data)
			if txt.Keyword == Keyword {
				if err != nil {
					return "", false, err
				}
				// A partial decode carries no text; per the baking
				// contract it reads as "not baked", so keep
				// scanning.
				if ok {
					return txt.Text, true, nil
				}
			}
		}
		if c.Type == pngio.TypeEnd {
			break
		}
	}
	return "", false, nil
}

func isAssertion(c pngio.Chunk) bool {
	if c.Type != pngio.TypeIntText {
		return false
	}
	txt, _, _ := pngio.DecodeText(c.Data)
	return txt.Keyword == Keyword
}
