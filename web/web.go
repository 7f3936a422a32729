// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package web implements the HTTP interface of the badge baking
// service: multipart uploads in, baked PNG images (or extracted
// assertions) out.
package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/andyparkerson/openbadge/badge"
	"github.com/andyparkerson/openbadge/bake"
	"github.com/andyparkerson/openbadge/errors"
	"github.com/andyparkerson/openbadge/log"
	"github.com/andyparkerson/openbadge/store"
)

// DefaultMaxUploadSize bounds the size of uploaded badge images.
// Badge images are typically tens of kilobytes.
const DefaultMaxUploadSize = 8 << 20 // 8MiB

// A Server handles badge baking requests. Its zero value serves
// bake/extract with default options and no persistence.
type Server struct {
	// Store, if non-nil, lets clients persist baked badges by
	// supplying a "key" form value.
	Store *store.Store
	// Opts configures the baking engine applied to uploads.
	Opts bake.Opts
	// Salt, if nonempty, is used to hash plaintext recipient
	// identities in uploaded assertions before baking.
	Salt string
	// MaxUploadSize overrides DefaultMaxUploadSize when positive.
	MaxUploadSize int64
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bake", s.handleBake)
	mux.HandleFunc("/extract", s.handleExtract)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// handleBake accepts a multipart form with an "image" file and an
// "assertion" JSON value, and responds with the baked PNG. With a
// "key" value and a configured store, the baked image is persisted
// instead and its URL returned.
func (s *Server) handleBake(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(s.maxUploadSize()); err != nil {
		httpError(w, errors.E(errors.Invalid, "parsing form", err))
		return
	}
	image, err := formImage(r)
	if err != nil {
		httpError(w, err)
		return
	}
	doc := r.FormValue("assertion")
	if doc == "" {
		httpError(w, errors.E(errors.Invalid, "missing assertion"))
		return
	}
	a, err := badge.Decode([]byte(doc))
	if err != nil {
		httpError(w, err)
		return
	}
	if s.Salt != "" {
		a.Recipient.Hash(s.Salt)
	}
	payload, err := a.Encode()
	if err != nil {
		httpError(w, err)
		return
	}
	baked, err := s.Opts.Embed(image, string(payload))
	if err != nil {
		httpError(w, err)
		return
	}
	if key := r.FormValue("key"); key != "" && s.Store != nil {
		if err := s.Store.Put(r.Context(), key, baked); err != nil {
			httpError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"url": s.Store.URL(key)})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", fmt.Sprint(len(baked)))
	w.Write(baked)
}

// handleExtract accepts a multipart form with an "image" file and
// responds with the baked assertion document, or 404 if the image
// carries none.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(s.maxUploadSize()); err != nil {
		httpError(w, errors.E(errors.Invalid, "parsing form", err))
		return
	}
	image, err := formImage(r)
	if err != nil {
		httpError(w, err)
		return
	}
	payload, ok, err := s.Opts.Extract(image)
	if err != nil {
		httpError(w, err)
		return
	}
	if !ok {
		http.Error(w, "image carries no badge assertion", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, payload)
}

func (s *Server) maxUploadSize() int64 {
	if s.MaxUploadSize > 0 {
		return s.MaxUploadSize
	}
	return DefaultMaxUploadSize
}

func formImage(r *http.Request) ([]byte, error) {
	f, _, err := r.FormFile("image")
	if err != nil {
		return nil, errors.E(errors.Invalid, "missing image upload", err)
	}
	defer f.Close()
	image, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.E(errors.Invalid, "reading image upload", err)
	}
	return image, nil
}

// httpError reports err to the client with a status matching its
// kind.
func httpError(w http.ResponseWriter, err error) {
	var status int
	switch e := errors.Recover(err); e.Kind {
	case errors.Invalid, errors.Format, errors.Truncated, errors.Integrity, errors.NotSupported:
		status = http.StatusBadRequest
	case errors.NotExist:
		status = http.StatusNotFound
	case errors.NotAllowed:
		status = http.StatusForbidden
	case errors.Unavailable, errors.TooManyTries:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		log.Error.Printf("web: %v", err)
	}
	http.Error(w, err.Error(), status)
}
