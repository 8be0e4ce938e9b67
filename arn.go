package relay

import (
	"strings"

	"github.com/configrelay/relay/errors"
)

// ParseSourceARN extracts the bucket name and optional key prefix from a
// source bucket ARN of the form
// arn:<partition>:s3:<region>:<account>:<bucket>[/<prefix>].
// A malformed ARN, or one without a bucket name, returns ErrInvalidSourceARN.
func ParseSourceARN(arn string) (bucket, prefix string, err error) {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) < 6 {
		return "", "", errors.NewError("parseSourceARN", errors.ErrInvalidSourceARN).
			WithMessage("expected 6 colon-delimited fields, got " + arn)
	}

	bucket, prefix, _ = strings.Cut(parts[5], "/")
	if bucket == "" {
		return "", "", errors.NewError("parseSourceARN", errors.ErrInvalidSourceARN).
			WithMessage("missing bucket name in " + arn)
	}

	return bucket, prefix, nil
}
