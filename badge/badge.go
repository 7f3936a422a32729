// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package badge models Open Badges documents: assertions, badge
// classes, and issuer profiles, per the Open Badges 2.0
// specification. It handles JSON (de)serialization, recipient
// identity hashing for privacy, and baking documents into PNG badge
// images via package bake.
package badge

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/andyparkerson/openbadge/bake"
	"github.com/andyparkerson/openbadge/errors"
)

// Context is the JSON-LD context for Open Badges 2.0 documents.
const Context = "https://w3id.org/openbadges/v2"

// An Assertion records the awarding of a badge to a single
// recipient.
type Assertion struct {
	Context      string         `json:"@context,omitempty"`
	Type         string         `json:"type"`
	ID           string         `json:"id"`
	Recipient    IdentityObject `json:"recipient"`
	Badge        string         `json:"badge"` // URL of the BadgeClass being asserted
	Verification Verification   `json:"verification"`
	IssuedOn     time.Time      `json:"issuedOn"`
	Expires      *time.Time     `json:"expires,omitempty"`
	Evidence     string         `json:"evidence,omitempty"`
	Narrative    string         `json:"narrative,omitempty"`
	Image        string         `json:"image,omitempty"`
}

// An IdentityObject identifies a badge recipient, either in
// plaintext or hashed for privacy.
type IdentityObject struct {
	Identity string `json:"identity"`
	Type     string `json:"type"`
	Hashed   bool   `json:"hashed"`
	Salt     string `json:"salt,omitempty"`
}

// Verification tells a consumer how an assertion may be verified.
type Verification struct {
	Type    string `json:"type"`
	Creator string `json:"creator,omitempty"`
}

// A BadgeClass describes an achievement that may be asserted.
type BadgeClass struct {
	Context     string   `json:"@context,omitempty"`
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Image       string   `json:"image,omitempty"`
	Criteria    string   `json:"criteria"`
	Issuer      string   `json:"issuer"`
	Tags        []string `json:"tags,omitempty"`
}

// An Issuer is the profile of the organization awarding badges.
type Issuer struct {
	Context string `json:"@context,omitempty"`
	Type    string `json:"type"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Email   string `json:"email,omitempty"`
}

// HashIdentity returns the hashed form of a recipient identity
// (typically an email address) with the provided salt, in the
// "sha256$hexdigest" format the Open Badges specification
// prescribes.
func HashIdentity(identity, salt string) string {
	sum := sha256.Sum256([]byte(identity + salt))
	return "sha256$" + hex.EncodeToString(sum[:])
}

// Hash replaces the identity object's plaintext identity with its
// salted hash. It is a no-op if the identity is already hashed.
func (o *IdentityObject) Hash(salt string) {
	if o.Hashed {
		return
	}
	o.Identity = HashIdentity(o.Identity, salt)
	o.Salt = salt
	o.Hashed = true
}

// Matches tells whether the identity object identifies the given
// plaintext identity, accounting for hashing.
func (o IdentityObject) Matches(identity string) bool {
	if !o.Hashed {
		return o.Identity == identity
	}
	return o.Identity == HashIdentity(identity, o.Salt)
}

// Validate checks the structural well-formedness of an assertion.
// It does not fetch or verify the hosted badge class or issuer.
func (a *Assertion) Validate() error {
	switch {
	case a.Type != "Assertion":
		return errors.E(errors.Invalid, "document type is not Assertion")
	case a.ID == "":
		return errors.E(errors.Invalid, "assertion has no id")
	case a.Badge == "":
		return errors.E(errors.Invalid, "assertion names no badge class")
	case a.Recipient.Identity == "":
		return errors.E(errors.Invalid, "assertion has no recipient")
	}
	return nil
}

// Encode returns the JSON serialization of the assertion.
func (a *Assertion) Encode() ([]byte, error) {
	return json.Marshal(a)
}

// Decode deserializes and structurally validates an assertion.
func Decode(p []byte) (*Assertion, error) {
	a := new(Assertion)
	if err := json.Unmarshal(p, a); err != nil {
		return nil, errors.E(errors.Format, "decoding assertion", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Bake returns a copy of the PNG image img with the assertion baked
// into it.
func Bake(img []byte, a *Assertion) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	p, err := a.Encode()
	if err != nil {
		return nil, err
	}
	return bake.Embed(img, string(p))
}

// Unbake extracts the assertion baked into the PNG image img. A
// missing assertion is reported by ok=false with a nil error.
func Unbake(img []byte) (a *Assertion, ok bool, err error) {
	payload, ok, err := bake.Extract(img)
	if err != nil || !ok {
		return nil, false, err
	}
	a, err = Decode([]byte(payload))
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}
