package relay

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"

	"github.com/configrelay/relay/relaytypes"
)

// WithRegion sets the AWS region for store operations.
// If not specified, uses the default AWS region from the credential chain.
func WithRegion(region string) relaytypes.Option {
	return func(c *relaytypes.ClientConfig) {
		c.Region = region
	}
}

// WithMaxRetries sets the maximum number of retry attempts for failed operations.
// Default is 3 retries. Set to 0 to disable retries.
func WithMaxRetries(maxRetries int) relaytypes.Option {
	return func(c *relaytypes.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets the timeout for individual store operations.
// Default is no timeout (0). Values should be positive durations.
func WithTimeout(timeout time.Duration) relaytypes.Option {
	return func(c *relaytypes.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
// This is required for S3-compatible services that don't support virtual hosting.
// Default is false (uses virtual-hosted style).
func WithForcePathStyle(forcePathStyle bool) relaytypes.Option {
	return func(c *relaytypes.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithAWSConfig allows providing a custom AWS configuration for the destination side.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) relaytypes.Option {
	return func(c *relaytypes.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithSourceAWSConfig allows providing a ready-made AWS configuration for the
// source side, bypassing role assumption. Useful for tests and for setups
// where source credentials are provisioned externally.
func WithSourceAWSConfig(config *aws.Config) relaytypes.Option {
	return func(c *relaytypes.ClientConfig) {
		c.SourceAWSConfig = config
	}
}

// WithSourceAccount sets the account identifier owning the source bucket.
// The client assumes the configured read role in this account to build
// the source store session.
func WithSourceAccount(accountID string) relaytypes.Option {
	return func(c *relaytypes.ClientConfig) {
		c.SourceAccountID = accountID
	}
}

// WithSourceRoleName overrides the name of the role assumed in the source account.
// Default is ConfigDataReadRole.
func WithSourceRoleName(roleName string) relaytypes.Option {
	return func(c *relaytypes.ClientConfig) {
		if roleName != "" {
			c.SourceRoleName = roleName
		}
	}
}

// WithLogger installs the logging capability used by the client.
// If not specified, logging is disabled.
func WithLogger(logger zerolog.Logger) relaytypes.Option {
	return func(c *relaytypes.ClientConfig) {
		c.Logger = &logger
	}
}

// WithClock overrides the client's notion of the current time.
// Used by tests to pin the transfer window to a fixed date.
func WithClock(now func() time.Time) relaytypes.Option {
	return func(c *relaytypes.ClientConfig) {
		c.Clock = now
	}
}

// WithWindowDays sets how many days back the transfer window reaches.
// Default is 7.
func WithWindowDays(days int) relaytypes.Option {
	return func(c *relaytypes.ClientConfig) {
		if days > 0 {
			c.WindowDays = days
		}
	}
}

// WithProgress sets a progress tracker that receives per-object updates during a run.
func WithProgress(tracker relaytypes.ProgressTracker) relaytypes.Option {
	return func(c *relaytypes.ClientConfig) {
		c.Tracker = tracker
	}
}
