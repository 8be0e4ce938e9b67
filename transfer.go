package relay

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/configrelay/relay/errors"
)

const (
	// compressedSuffix marks objects delivered gzip-compressed
	compressedSuffix = ".gz"

	// copiedContentType is the content type stamped on decompressed payloads
	copiedContentType = "application/json"
)

// destinationKey maps a source key to its destination key. Compressed
// objects lose the suffix because they are decompressed in flight;
// everything else keeps its key unchanged.
func destinationKey(sourceKey string) string {
	return strings.TrimSuffix(sourceKey, compressedSuffix)
}

// shouldTransfer decides whether the object still needs to be written to the
// destination. Compressed objects are probed at their destination key and
// skipped when already present. Uncompressed objects are always transferred;
// CopyObject overwrites are harmless and the probe round trip is not worth it
// for the rare non-gzip payload.
func (c *Client) shouldTransfer(ctx context.Context, destBucket, srcKey string) (bool, error) {
	if !strings.HasSuffix(srcKey, compressedSuffix) {
		return true, nil
	}

	destKey := destinationKey(srcKey)
	_, err := c.dest.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(destBucket),
		Key:    aws.String(destKey),
	})
	if err == nil {
		c.log.Info().Str("key", destKey).Msg("object already exists, skipping")
		return false, nil
	}
	if isNotFound(err) {
		return true, nil
	}

	return false, errors.NewObjectError("shouldTransfer", destBucket, destKey, err)
}

// transferObject moves one object from the source bucket to the destination.
//
// Compressed objects are downloaded, gunzipped in memory, and rewritten at
// the suffix-stripped key with a JSON content type. Uncompressed objects are
// server-side copied key-for-key. A missing source object or a payload that
// fails to decompress is a fatal error for the run.
func (c *Client) transferObject(ctx context.Context, srcBucket, srcKey, destBucket string) error {
	if !strings.HasSuffix(srcKey, compressedSuffix) {
		_, err := c.dest.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(destBucket),
			Key:        aws.String(srcKey),
			CopySource: aws.String(srcBucket + "/" + srcKey),
		})
		if err != nil {
			if isNotFound(err) {
				err = fmt.Errorf("%w: %v", errors.ErrObjectNotFound, err)
			}
			return errors.NewObjectError("transfer", destBucket, srcKey, err)
		}
		c.log.Info().Str("key", srcKey).Msg("copied object")
		return nil
	}

	out, err := c.source.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(srcBucket),
		Key:    aws.String(srcKey),
	})
	if err != nil {
		if isNotFound(err) {
			err = fmt.Errorf("%w: %v", errors.ErrObjectNotFound, err)
		}
		return errors.NewObjectError("transfer", srcBucket, srcKey, err)
	}
	defer func() { _ = out.Body.Close() }()

	compressed, err := io.ReadAll(out.Body)
	if err != nil {
		return errors.NewObjectError("transfer", srcBucket, srcKey, err).
			WithMessage("reading object body")
	}

	payload, err := gunzip(compressed)
	if err != nil {
		return errors.NewObjectError("transfer", srcBucket, srcKey,
			fmt.Errorf("%w: %v", errors.ErrCorruptObject, err))
	}

	destKey := destinationKey(srcKey)
	_, err = c.dest.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(destBucket),
		Key:         aws.String(destKey),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(copiedContentType),
	})
	if err != nil {
		return errors.NewObjectError("transfer", destBucket, destKey, err)
	}

	c.log.Info().
		Str("sourceKey", srcKey).
		Str("destKey", destKey).
		Int("bytes", len(payload)).
		Msg("decompressed and copied object")
	return nil
}

// gunzip decompresses a single-member gzip payload.
func gunzip(compressed []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return io.ReadAll(r)
}
