package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/configrelay/relay/errors"
	"github.com/configrelay/relay/relaytypes"
)

const (
	// listPageSize is the per-page listing size
	listPageSize = 1000

	// maxKeysPerAccount caps the total keys fetched per account and date
	maxKeysPerAccount = 10000

	// configPathSegment is the key segment under each account subtree
	// holding Config delivery objects
	configPathSegment = "Config"

	// writabilityCheckFile is the probe object Config writes to verify
	// bucket access; never a log payload
	writabilityCheckFile = "ConfigWritabilityCheckFile"
)

// datePattern formats the key-space date segment for a calendar day.
// The upstream layout does not zero-pad single-digit months or days.
func datePattern(date time.Time) string {
	return fmt.Sprintf("%d/%d/%d/", date.Year(), int(date.Month()), date.Day())
}

// accountListingPrefix builds the listing prefix for one account's Config
// subtree. An empty resolved prefix yields a root-relative prefix rather
// than one with a leading slash.
func accountListingPrefix(resolvedPrefix, accountID string) string {
	if resolvedPrefix == "" {
		return accountID + "/" + configPathSegment
	}
	return strings.TrimSuffix(resolvedPrefix, "/") + "/" + accountID + "/" + configPathSegment
}

// matchesRegion reports whether the key belongs to one of the configured
// regions. An empty region set passes everything.
func matchesRegion(key string, regions []string) bool {
	if len(regions) == 0 {
		return true
	}
	for _, region := range regions {
		if strings.Contains(key, "/"+configPathSegment+"/"+region+"/") {
			return true
		}
	}
	return false
}

// listDateObjects enumerates the candidate objects for a single calendar
// date across the configured accounts, in account-input order.
//
// Each account's Config subtree is listed with pages of 1,000 keys, capped
// at 10,000 keys per account. Keys must carry the date segment, must not be
// the writability-check probe, and must pass the region filter. An empty
// account set is a degenerate no-op reported as a warning. After listing,
// accounts with zero matched keys are reported as a coverage warning.
func (c *Client) listDateObjects(
	ctx context.Context,
	bucket, resolvedPrefix string,
	date time.Time,
	accounts, regions []string,
) ([]relaytypes.Object, error) {
	if len(accounts) == 0 {
		c.log.Warn().Msg("no account list provided")
		return nil, nil
	}

	pattern := datePattern(date)
	var matching []relaytypes.Object

	for _, accountID := range accounts {
		basePrefix := accountListingPrefix(resolvedPrefix, accountID)
		c.log.Info().
			Str("account", accountID).
			Str("prefix", basePrefix).
			Msg("processing account")

		objects, err := c.listAccountObjects(ctx, bucket, basePrefix, pattern, accountID, regions)
		if err != nil {
			return nil, err
		}

		c.log.Info().
			Str("account", accountID).
			Int("count", len(objects)).
			Msg("account enumeration complete")
		matching = append(matching, objects...)
	}

	if missing := missingAccounts(matching, accounts); len(missing) > 0 {
		c.log.Warn().
			Strs("accounts", missing).
			Str("date", pattern).
			Msg("no objects found for accounts")
	}

	return matching, nil
}

// listAccountObjects pages through one account's subtree and filters each page.
func (c *Client) listAccountObjects(
	ctx context.Context,
	bucket, basePrefix, pattern, accountID string,
	regions []string,
) ([]relaytypes.Object, error) {
	var (
		objects []relaytypes.Object
		token   *string
		fetched int
		page    int
	)

	for fetched < maxKeysPerAccount {
		pageSize := int32(listPageSize)
		if remaining := maxKeysPerAccount - fetched; remaining < listPageSize {
			pageSize = int32(remaining)
		}

		input := &s3.ListObjectsV2Input{
			Bucket:  aws.String(bucket),
			Prefix:  aws.String(basePrefix),
			MaxKeys: aws.Int32(pageSize),
		}
		if token != nil {
			input.ContinuationToken = token
		}

		out, err := c.source.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, errors.NewBucketError("listDateObjects", bucket, err).
				WithMessage("listing account " + accountID)
		}

		page++
		fetched += len(out.Contents)

		pageMatches := 0
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if !strings.Contains(key, pattern) ||
				strings.Contains(key, writabilityCheckFile) ||
				!matchesRegion(key, regions) {
				continue
			}
			objects = append(objects, relaytypes.Object{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				ETag:         aws.ToString(obj.ETag),
				StorageClass: string(obj.StorageClass),
			})
			pageMatches++
		}

		if pageMatches > 0 {
			sample := make([]string, 0, 2)
			for _, obj := range objects[len(objects)-pageMatches:] {
				if len(sample) == 2 {
					break
				}
				sample = append(sample, obj.Key)
			}
			c.log.Info().
				Str("account", accountID).
				Int("page", page).
				Int("matches", pageMatches).
				Strs("sampleKeys", sample).
				Msg("matched objects on page")
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	return objects, nil
}

// missingAccounts returns the requested accounts that appear in none of the
// matched keys, checked by the /AWSLogs/<account>/ key segment.
func missingAccounts(objects []relaytypes.Object, accounts []string) []string {
	found := make(map[string]bool, len(accounts))
	for _, obj := range objects {
		for _, accountID := range accounts {
			if strings.Contains(obj.Key, "/"+logsRootMarker+"/"+accountID+"/") {
				found[accountID] = true
			}
		}
	}

	var missing []string
	for _, accountID := range accounts {
		if !found[accountID] {
			missing = append(missing, accountID)
		}
	}
	return missing
}
