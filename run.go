package relay

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/configrelay/relay/errors"
	"github.com/configrelay/relay/internal/s3api"
	"github.com/configrelay/relay/relaytypes"
)

// Run executes one relay pass: for each calendar day in the backward
// window, enumerate the matching source objects and transfer each one
// that is not already present at the destination.
//
// Both buckets are verified reachable before any listing starts. The
// window covers today plus windowDays prior days, newest first. Any
// transfer error aborts the run; the returned result still carries the
// counters accumulated up to the failure.
func (c *Client) Run(ctx context.Context, cfg relaytypes.RunConfig) (*relaytypes.RunResult, error) {
	start := time.Now()

	result := &relaytypes.RunResult{Config: cfg}
	fail := func(err error) (*relaytypes.RunResult, error) {
		result.Duration = time.Since(start)
		if c.tracker != nil {
			c.tracker.Error(err)
		}
		return result, err
	}

	if cfg.SourceBucket == "" {
		return fail(errors.NewError("run", errors.ErrInvalidInput).
			WithMessage("source bucket is required"))
	}
	if cfg.DestinationBucket == "" {
		return fail(errors.NewError("run", errors.ErrInvalidInput).
			WithMessage("destination bucket is required"))
	}

	if err := c.checkBucketAccess(ctx, c.source, cfg.SourceBucket); err != nil {
		return fail(err)
	}
	if err := c.checkBucketAccess(ctx, c.dest, cfg.DestinationBucket); err != nil {
		return fail(err)
	}

	resolvedPrefix := cfg.SourcePrefix
	if resolvedPrefix == "" {
		resolvedPrefix = c.resolveLogsPrefix(ctx, cfg.SourceBucket)
	}

	now := c.now()
	cutoff := now.AddDate(0, 0, -c.windowDays)

	for current := now; !current.Before(cutoff); current = current.AddDate(0, 0, -1) {
		c.log.Info().Str("date", datePattern(current)).Msg("processing date")

		objects, err := c.listDateObjects(ctx, cfg.SourceBucket, resolvedPrefix,
			current, cfg.Accounts, cfg.Regions)
		if err != nil {
			return fail(err)
		}

		for _, obj := range objects {
			c.log.Debug().
				Str("key", obj.Key).
				Time("lastModified", obj.LastModified).
				Msg("processing object")

			needed, err := c.shouldTransfer(ctx, cfg.DestinationBucket, obj.Key)
			if err != nil {
				return fail(err)
			}
			if !needed {
				result.Skipped++
				c.observe(result, relaytypes.OutcomeSkippedExisting)
				continue
			}

			if err := c.transferObject(ctx, cfg.SourceBucket, obj.Key, cfg.DestinationBucket); err != nil {
				return fail(err)
			}
			result.Copied++
			c.observe(result, relaytypes.OutcomeCopied)
		}
	}

	result.Duration = time.Since(start)
	if c.tracker != nil {
		c.tracker.Complete()
	}
	c.log.Info().
		Int("copied", result.Copied).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("run complete")

	return result, nil
}

// observe forwards one per-object outcome to the tracker, if any.
func (c *Client) observe(result *relaytypes.RunResult, outcome relaytypes.TransferOutcome) {
	if c.tracker != nil {
		c.tracker.Update(int64(result.Copied+result.Skipped), outcome)
	}
}

// checkBucketAccess verifies the bucket exists and the caller may reach it.
func (c *Client) checkBucketAccess(ctx context.Context, store s3api.S3API, bucket string) error {
	_, err := store.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return nil
	}

	switch {
	case isNotFound(err):
		return errors.NewBucketError("run", bucket, errors.ErrBucketNotFound)
	case isAccessDenied(err):
		return errors.NewBucketError("run", bucket, errors.ErrAccessDenied)
	default:
		return errors.NewBucketError("run", bucket, err)
	}
}
