package relay

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"

	"github.com/configrelay/relay/errors"
	"github.com/configrelay/relay/internal/s3api"
	"github.com/configrelay/relay/relaytypes"
)

const (
	// defaultSourceRoleName is the role assumed in the source account for read access
	defaultSourceRoleName = "ConfigDataReadRole"

	// sourceSessionName names the assumed-role session on the source account
	sourceSessionName = "S3CopySession"

	// defaultWindowDays is how far back the transfer window reaches
	defaultWindowDays = 7
)

// Client drives the config-log relay pipeline.
// It holds two store endpoints: the source, authenticated via an
// assumed-role session in the owning account, and the destination,
// authenticated via the host's ambient identity.
type Client struct {
	// source is the S3 client for the bucket being read
	source s3api.S3API

	// dest is the S3 client for the bucket being written
	dest s3api.S3API

	// config holds the AWS configuration for the destination side
	config aws.Config

	// log is the injected logging capability; defaults to a no-op logger
	log zerolog.Logger

	// now supplies the run's notion of the current time
	now func() time.Time

	// windowDays is the length of the backward transfer window
	windowDays int

	// tracker optionally receives per-object progress updates
	tracker relaytypes.ProgressTracker
}

// New creates a new relay client with the provided options.
// The destination client uses the default credential chain. The source
// client assumes the ConfigDataReadRole in the source account when
// WithSourceAccount is given; otherwise it shares the destination
// credentials (same-account mode).
//
// Example:
//
//	client, err := relay.New(
//	    relay.WithRegion("us-east-1"),
//	    relay.WithSourceAccount("111111111111"),
//	)
func New(opts ...relaytypes.Option) (*Client, error) {
	clientCfg := &relaytypes.ClientConfig{
		MaxRetries:     3, // Default retry count
		WindowDays:     defaultWindowDays,
		SourceRoleName: defaultSourceRoleName,
	}

	for _, opt := range opts {
		opt(clientCfg)
	}

	// Start with default AWS configuration or use custom config
	var cfg aws.Config
	var err error

	if clientCfg.CustomAWSConfig != nil {
		cfg = *clientCfg.CustomAWSConfig
	} else {
		cfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, errors.NewError("client initialization", err)
		}
	}

	// Apply region from options if specified, otherwise ensure a region is set
	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = "us-east-1" // AWS default region
	}

	if clientCfg.MaxRetries > 0 {
		cfg.RetryMaxAttempts = clientCfg.MaxRetries
	}

	var s3Opts []func(*s3.Options)

	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	// Handle custom HTTP client for timeout
	if clientCfg.Timeout > 0 {
		httpClient := &http.Client{
			Timeout: clientCfg.Timeout,
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	destClient := s3.NewFromConfig(cfg, s3Opts...)

	// The source endpoint reads a bucket owned by another account, so its
	// credentials come from an assumed role constructed once per client.
	srcCfg := cfg.Copy()
	switch {
	case clientCfg.SourceAWSConfig != nil:
		srcCfg = *clientCfg.SourceAWSConfig
	case clientCfg.SourceAccountID != "":
		roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s", clientCfg.SourceAccountID, clientCfg.SourceRoleName)
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), roleARN,
			func(o *stscreds.AssumeRoleOptions) {
				o.RoleSessionName = sourceSessionName
			})
		srcCfg.Credentials = aws.NewCredentialsCache(provider)
	}
	sourceClient := s3.NewFromConfig(srcCfg, s3Opts...)

	client := &Client{
		source: sourceClient,
		dest:   destClient,
		config: cfg,
	}
	client.applyRuntime(clientCfg)

	return client, nil
}

// NewWithClients creates a relay client with custom S3API implementations
// for the source and destination endpoints.
// This is primarily used for testing with mocked clients.
func NewWithClients(source, dest s3api.S3API, opts ...relaytypes.Option) *Client {
	clientCfg := &relaytypes.ClientConfig{
		WindowDays:     defaultWindowDays,
		SourceRoleName: defaultSourceRoleName,
	}
	for _, opt := range opts {
		opt(clientCfg)
	}

	client := &Client{
		source: source,
		dest:   dest,
		config: aws.Config{},
	}
	client.applyRuntime(clientCfg)

	return client
}

// applyRuntime installs the non-transport pieces of the configuration.
func (c *Client) applyRuntime(cfg *relaytypes.ClientConfig) {
	if cfg.Logger != nil {
		c.log = *cfg.Logger
	} else {
		c.log = zerolog.Nop()
	}

	c.now = time.Now
	if cfg.Clock != nil {
		c.now = cfg.Clock
	}

	c.windowDays = defaultWindowDays
	if cfg.WindowDays > 0 {
		c.windowDays = cfg.WindowDays
	}

	c.tracker = cfg.Tracker
}
