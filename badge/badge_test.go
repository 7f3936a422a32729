// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package badge_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/require"

	"github.com/andyparkerson/openbadge/badge"
	"github.com/andyparkerson/openbadge/errors"
	"github.com/andyparkerson/openbadge/pngio"
)

func testAssertion() *badge.Assertion {
	return &badge.Assertion{
		Context: badge.Context,
		Type:    "Assertion",
		ID:      "https://badges.example.com/assertions/123",
		Recipient: badge.IdentityObject{
			Identity: "nobody@example.com",
			Type:     "email",
		},
		Badge: "https://badges.example.com/classes/gopher",
		Verification: badge.Verification{
			Type: "hosted",
		},
		IssuedOn: time.Date(2019, 5, 5, 12, 0, 0, 0, time.UTC),
	}
}

func testPNG() []byte {
	p := pngio.AppendSignature(nil)
	p = pngio.AppendChunk(p, "IHDR", []byte{0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0})
	p = pngio.AppendChunk(p, "IDAT", []byte{0, 1, 2, 3})
	return pngio.AppendChunk(p, "IEND", nil)
}

func TestHashIdentity(t *testing.T) {
	h := badge.HashIdentity("nobody@example.com", "deadsea")
	require.True(t, strings.HasPrefix(h, "sha256$"))
	require.Len(t, h, len("sha256$")+64)
	require.Equal(t, h, badge.HashIdentity("nobody@example.com", "deadsea"))
	require.NotEqual(t, h, badge.HashIdentity("nobody@example.com", "othersalt"))
	require.NotEqual(t, h, badge.HashIdentity("somebody@example.com", "deadsea"))
}

func TestIdentityHashing(t *testing.T) {
	o := badge.IdentityObject{Identity: "nobody@example.com", Type: "email"}
	require.True(t, o.Matches("nobody@example.com"))
	o.Hash("deadsea")
	require.True(t, o.Hashed)
	require.Equal(t, "deadsea", o.Salt)
	require.NotContains(t, o.Identity, "@")
	require.True(t, o.Matches("nobody@example.com"))
	require.False(t, o.Matches("somebody@example.com"))
	// Hashing again must not double-hash.
	hashed := o.Identity
	o.Hash("deadsea")
	require.Equal(t, hashed, o.Identity)
}

func TestValidate(t *testing.T) {
	require.NoError(t, testAssertion().Validate())
	for _, mutate := range []func(*badge.Assertion){
		func(a *badge.Assertion) { a.Type = "BadgeClass" },
		func(a *badge.Assertion) { a.ID = "" },
		func(a *badge.Assertion) { a.Badge = "" },
		func(a *badge.Assertion) { a.Recipient.Identity = "" },
	} {
		a := testAssertion()
		mutate(a)
		err := a.Validate()
		require.Error(t, err)
		require.True(t, errors.Is(errors.Invalid, err), "got %v, want Invalid", err)
	}
}

func TestEncodeDecode(t *testing.T) {
	want := testAssertion()
	p, err := want.Encode()
	require.NoError(t, err)
	got, err := badge.Decode(p)
	require.NoError(t, err)
	require.True(t, got.IssuedOn.Equal(want.IssuedOn))
	got.IssuedOn, want.IssuedOn = time.Time{}, time.Time{}
	require.Empty(t, deep.Equal(got, want))
}

func TestDecodeErrors(t *testing.T) {
	_, err := badge.Decode([]byte("not json"))
	require.True(t, errors.Is(errors.Format, err), "got %v, want Format", err)
	_, err = badge.Decode([]byte(`{"type":"Assertion"}`))
	require.True(t, errors.Is(errors.Invalid, err), "got %v, want Invalid", err)
}

func TestBadgeClassRoundTrip(t *testing.T) {
	want := &badge.BadgeClass{
		Context:     badge.Context,
		Type:        "BadgeClass",
		ID:          "https://badges.example.com/classes/gopher",
		Name:        "Gopher",
		Description: "Wrote a Go program",
		Criteria:    "https://badges.example.com/classes/gopher/criteria",
		Issuer:      "https://badges.example.com/issuer",
		Tags:        []string{"go", "programming"},
	}
	p, err := json.Marshal(want)
	require.NoError(t, err)
	got := new(badge.BadgeClass)
	require.NoError(t, json.Unmarshal(p, got))
	require.Empty(t, deep.Equal(got, want))
}

func TestBakeUnbake(t *testing.T) {
	want := testAssertion()
	want.Recipient.Hash("deadsea")
	img, err := badge.Bake(testPNG(), want)
	require.NoError(t, err)

	got, ok, err := badge.Unbake(img)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Recipient, got.Recipient)
	require.True(t, got.Recipient.Matches("nobody@example.com"))
}

func TestBakeInvalid(t *testing.T) {
	a := testAssertion()
	a.ID = ""
	_, err := badge.Bake(testPNG(), a)
	require.True(t, errors.Is(errors.Invalid, err), "got %v, want Invalid", err)
}

func TestUnbakeAbsent(t *testing.T) {
	a, ok, err := badge.Unbake(testPNG())
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, a)
}
