// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package store persists baked badge images in an S3 bucket. It
// wraps the AWS SDK with retry logic for transient failures and
// classification of S3 errors into interpretable kinds.
package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/andyparkerson/openbadge/errors"
	"github.com/andyparkerson/openbadge/log"
	"github.com/andyparkerson/openbadge/retry"
)

const contentType = "image/png"

// DefaultRetryPolicy is the retry policy applied by stores unless
// overridden.
var DefaultRetryPolicy = retry.MaxTries(retry.Jitter(retry.Backoff(time.Second, time.Minute, 2), 0.25), 4)

// A Store reads and writes badge images in a single S3 bucket.
type Store struct {
	// Retrier governs retries of transient S3 failures.
	Retrier retry.Policy

	client s3iface.S3API
	bucket string
}

// New returns a store backed by the provided S3 client and bucket.
func New(client s3iface.S3API, bucket string) *Store {
	return &Store{
		Retrier: DefaultRetryPolicy,
		client:  client,
		bucket:  bucket,
	}
}

// Put stores image under key with content type image/png. Transient
// failures are retried per the store's policy.
func (s *Store) Put(ctx context.Context, key string, image []byte) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(image),
		ContentLength: aws.Int64(int64(len(image))),
		ContentType:   aws.String(contentType),
	}
	for retries := 0; ; retries++ {
		_, err := s.client.PutObjectWithContext(ctx, input)
		err = ctxErr(ctx, err)
		if err == nil {
			return nil
		}
		kind, severity := kindAndSeverity(err)
		if severity != errors.Temporary && severity != errors.Retriable {
			return errors.E(kind, fmt.Sprintf("put s3://%s/%s", s.bucket, key), err)
		}
		log.Debug.Printf("store.Put: attempt %d: s3://%s/%s: %v", retries, s.bucket, key, err)
		if werr := retry.Wait(ctx, s.Retrier, retries); werr != nil {
			return errors.E(kind, fmt.Sprintf("put s3://%s/%s", s.bucket, key), err)
		}
	}
}

// Get fetches the image stored under key. A missing key is a
// NotExist error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	for retries := 0; ; retries++ {
		out, err := s.client.GetObjectWithContext(ctx, input)
		err = ctxErr(ctx, err)
		if err == nil {
			defer out.Body.Close()
			image, err := io.ReadAll(out.Body)
			if err != nil {
				return nil, errors.E(errors.Net, fmt.Sprintf("get s3://%s/%s", s.bucket, key), err)
			}
			return image, nil
		}
		kind, severity := kindAndSeverity(err)
		if severity != errors.Temporary && severity != errors.Retriable {
			return nil, errors.E(kind, fmt.Sprintf("get s3://%s/%s", s.bucket, key), err)
		}
		log.Debug.Printf("store.Get: attempt %d: s3://%s/%s: %v", retries, s.bucket, key, err)
		if werr := retry.Wait(ctx, s.Retrier, retries); werr != nil {
			return nil, errors.E(kind, fmt.Sprintf("get s3://%s/%s", s.bucket, key), err)
		}
	}
}

// URL returns the public object URL for key, for embedding in badge
// documents.
func (s *Store) URL(key string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}

// ctxErr returns the context's error (if any) or the other error.
// AWS sometimes wraps context errors, which would otherwise defeat
// classification.
func ctxErr(ctx context.Context, other error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return other
}
