package relay

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// isNotFound reports whether an AWS SDK error means the object or bucket
// does not exist. Typed SDK errors are checked first, then generic API error
// codes, with a message-substring fallback for operations (like HeadObject)
// that surface untyped errors.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}

	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "NotFound") ||
		strings.Contains(errMsg, "NoSuchKey") ||
		strings.Contains(errMsg, "StatusCode: 404")
}

// isAccessDenied reports whether an AWS SDK error means access was refused.
func isAccessDenied(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden":
			return true
		}
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "AccessDenied") ||
		strings.Contains(errMsg, "Forbidden") ||
		strings.Contains(errMsg, "StatusCode: 403")
}
