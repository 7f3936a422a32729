// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package store

import (
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/andyparkerson/openbadge/errors"
)

// kindAndSeverity interprets an S3 API call error, classifying it
// into an errors.Kind and errors.Severity. Best guess based on
// Amazon's descriptions of the error codes.
func kindAndSeverity(err error) (errors.Kind, errors.Severity) {
	for {
		if request.IsErrorThrottle(err) {
			return errors.Unavailable, errors.Temporary
		}
		if request.IsErrorRetryable(err) {
			return errors.Other, errors.Temporary
		}
		aerr, ok := err.(awserr.Error)
		if !ok {
			break
		}
		if aerr.Code() == request.CanceledErrorCode {
			return errors.Canceled, errors.Fatal
		}
		switch aerr.Code() {
		// Code NotFound is not documented, but it's what the API
		// actually returns.
		case s3.ErrCodeNoSuchBucket, "NoSuchVersion", "NotFound":
			return errors.NotExist, errors.Fatal
		case s3.ErrCodeNoSuchKey:
			// Sometimes temporary, due to S3's eventual consistency
			// model.
			return errors.NotExist, errors.Temporary
		case "AccessDenied":
			return errors.NotAllowed, errors.Fatal
		case "InvalidRequest", "InvalidArgument", "EntityTooSmall", "EntityTooLarge", "KeyTooLong", "MethodNotAllowed":
			return errors.Invalid, errors.Fatal
		case "ExpiredToken", "AccountProblem", "ServiceUnavailable", "TokenRefreshRequired", "OperationAborted":
			return errors.Unavailable, errors.Fatal
		case "SlowDown":
			return errors.Unavailable, errors.Temporary
		case "BadRequest":
			return errors.Other, errors.Temporary
		case "InternalError":
			// AWS recommends retrying InternalErrors.
			return errors.Other, errors.Retriable
		}
		if prev := aerr.OrigErr(); prev != nil {
			err = prev
			continue
		}
		break
	}
	if re := errors.Recover(err); re != nil {
		return re.Kind, re.Severity
	}
	return errors.Other, errors.Unknown
}
