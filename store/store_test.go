// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/require"

	"github.com/andyparkerson/openbadge/errors"
	"github.com/andyparkerson/openbadge/retry"
)

// fakeS3 implements the two S3 calls the store makes, failing the
// first failures calls with the given AWS error code.
type fakeS3 struct {
	s3iface.S3API
	objects  map[string][]byte
	failures int
	code     string
	calls    int
}

func (f *fakeS3) err() error {
	if f.calls++; f.calls <= f.failures {
		return awserr.New(f.code, f.code, nil)
	}
	return nil
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[*in.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(string(body))),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func newTestStore(client s3iface.S3API) *Store {
	s := New(client, "badges-test")
	s.Retrier = retry.MaxTries(nil, 3) // immediate retries
	return s
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(&fakeS3{})
	image := []byte("pretend this is a png")
	require.NoError(t, s.Put(ctx, "badges/123.png", image))
	got, err := s.Get(ctx, "badges/123.png")
	require.NoError(t, err)
	require.Equal(t, image, got)
}

func TestRetryTransient(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{failures: 2, code: "InternalError"}
	s := newTestStore(client)
	require.NoError(t, s.Put(ctx, "badges/123.png", []byte("img")))
	require.Equal(t, 3, client.calls)
}

func TestFatalNotRetried(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{failures: 10, code: "AccessDenied"}
	s := newTestStore(client)
	err := s.Put(ctx, "badges/123.png", []byte("img"))
	require.True(t, errors.Is(errors.NotAllowed, err), "got %v, want NotAllowed", err)
	require.Equal(t, 1, client.calls)
}

func TestGetMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(&fakeS3{})
	_, err := s.Get(ctx, "badges/nope.png")
	require.True(t, errors.Is(errors.NotExist, err), "got %v, want NotExist", err)
}

func TestRetryExhausted(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{failures: 100, code: "InternalError"}
	s := newTestStore(client)
	err := s.Put(ctx, "badges/123.png", []byte("img"))
	require.Error(t, err)
	require.Equal(t, 4, client.calls)
}

func TestURL(t *testing.T) {
	s := New(&fakeS3{}, "badges-test")
	require.Equal(t, "https://badges-test.s3.amazonaws.com/badges/123.png", s.URL("badges/123.png"))
}
