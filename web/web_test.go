// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andyparkerson/openbadge/badge"
	"github.com/andyparkerson/openbadge/pngio"
)

func testPNG() []byte {
	p := pngio.AppendSignature(nil)
	p = pngio.AppendChunk(p, "IHDR", []byte{0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0})
	p = pngio.AppendChunk(p, "IDAT", []byte{0, 1, 2, 3})
	return pngio.AppendChunk(p, "IEND", nil)
}

func testAssertion(t *testing.T) string {
	t.Helper()
	a := &badge.Assertion{
		Context:   badge.Context,
		Type:      "Assertion",
		ID:        "https://badges.example.com/assertions/123",
		Recipient: badge.IdentityObject{Identity: "nobody@example.com", Type: "email"},
		Badge:     "https://badges.example.com/classes/gopher",
		IssuedOn:  time.Date(2019, 5, 5, 12, 0, 0, 0, time.UTC),
	}
	p, err := a.Encode()
	require.NoError(t, err)
	return string(p)
}

// multipartBody builds a bake/extract upload with the given form
// values and an "image" file.
func multipartBody(t *testing.T, image []byte, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "badge.png")
	require.NoError(t, err)
	_, err = fw.Write(image)
	require.NoError(t, err)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestBakeExtract(t *testing.T) {
	srv := httptest.NewServer((&Server{}).Handler())
	defer srv.Close()

	body, contentType := multipartBody(t, testPNG(), map[string]string{
		"assertion": testAssertion(t),
	})
	resp, err := http.Post(srv.URL+"/bake", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	var baked bytes.Buffer
	_, err = baked.ReadFrom(resp.Body)
	require.NoError(t, err)

	body, contentType = multipartBody(t, baked.Bytes(), nil)
	resp, err = http.Post(srv.URL+"/extract", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var a badge.Assertion
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&a))
	require.Equal(t, "https://badges.example.com/assertions/123", a.ID)
}

func TestBakeHashesRecipient(t *testing.T) {
	srv := httptest.NewServer((&Server{Salt: "deadsea"}).Handler())
	defer srv.Close()

	body, contentType := multipartBody(t, testPNG(), map[string]string{
		"assertion": testAssertion(t),
	})
	resp, err := http.Post(srv.URL+"/bake", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var baked bytes.Buffer
	_, err = baked.ReadFrom(resp.Body)
	require.NoError(t, err)
	a, ok, err := badge.Unbake(baked.Bytes())
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, a.Recipient.Hashed)
	require.True(t, a.Recipient.Matches("nobody@example.com"))
}

func TestExtractAbsent(t *testing.T) {
	srv := httptest.NewServer((&Server{}).Handler())
	defer srv.Close()

	body, contentType := multipartBody(t, testPNG(), nil)
	resp, err := http.Post(srv.URL+"/extract", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBakeErrors(t *testing.T) {
	srv := httptest.NewServer((&Server{}).Handler())
	defer srv.Close()

	// Not a PNG.
	body, contentType := multipartBody(t, []byte("definitely not a png"), map[string]string{
		"assertion": testAssertion(t),
	})
	resp, err := http.Post(srv.URL+"/bake", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Missing assertion.
	body, contentType = multipartBody(t, testPNG(), nil)
	resp, err = http.Post(srv.URL+"/bake", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Invalid assertion document.
	body, contentType = multipartBody(t, testPNG(), map[string]string{
		"assertion": `{"type":"Assertion"}`,
	})
	resp, err = http.Post(srv.URL+"/bake", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Wrong method.
	resp, err = http.Get(srv.URL + "/bake")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
