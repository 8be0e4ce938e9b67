package relay

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	// orgPrefixProbe is the organizational-ID-style keyspace root used by
	// Control Tower log aggregation buckets
	orgPrefixProbe = "o-"

	// logsRootPrefix is the direct logs root used when no organization
	// prefix is present
	logsRootPrefix = "AWSLogs/"

	// logsRootMarker is the token an org-prefixed key space roots its
	// per-account subtrees under
	logsRootMarker = "AWSLogs"
)

// resolveLogsPrefix infers the keyspace root under which dated, per-account
// Config log objects live, by probing the known prefix conventions in order.
//
// For the organization pattern the prefix is derived from the first key found
// under "o-", truncated just past the logs-root marker. The direct pattern is
// returned verbatim when any object exists under it. If neither probe yields
// a result the empty prefix is returned and listing falls back to the bucket
// root; that costs efficiency, not correctness. Probe errors are logged and
// the candidate skipped.
func (c *Client) resolveLogsPrefix(ctx context.Context, bucket string) string {
	for _, probe := range []string{orgPrefixProbe, logsRootPrefix} {
		out, err := c.source.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(bucket),
			Prefix:  aws.String(probe),
			MaxKeys: aws.Int32(1),
		})
		if err != nil {
			c.log.Warn().Err(err).Str("prefix", probe).Msg("error probing prefix candidate")
			continue
		}
		if len(out.Contents) == 0 {
			continue
		}

		if probe == orgPrefixProbe {
			firstKey := aws.ToString(out.Contents[0].Key)
			orgPath, _, found := strings.Cut(firstKey, logsRootMarker)
			if !found {
				// An o- key without the logs-root marker is not a
				// Config log tree; try the next convention.
				continue
			}
			c.log.Info().Str("orgPath", orgPath).Msg("found organization path")
			return orgPath + logsRootMarker
		}

		c.log.Info().Str("prefix", probe).Msg("found logs root prefix")
		return probe
	}

	c.log.Info().Msg("no keyspace prefix found, will list from bucket root")
	return ""
}
