package relay

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/configrelay/relay/errors"
	"github.com/configrelay/relay/internal/testutil"
	"github.com/configrelay/relay/relaytypes"
)

// fixedClock pins the run window to a known date.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// sourceFixture builds a source mock that serves a fixed set of gzip objects
// keyed by their full S3 key. Listing filters by prefix; GetObject serves
// the compressed payload.
type sourceFixture struct {
	mu      sync.Mutex
	objects map[string][]byte // key -> uncompressed payload
}

func newSourceFixture(keys ...string) *sourceFixture {
	f := &sourceFixture{objects: make(map[string][]byte)}
	for _, key := range keys {
		f.objects[key] = []byte(`{"configurationItems":[]}`)
	}
	return f
}

func (f *sourceFixture) client() *testutil.MockS3Client {
	return testutil.NewMockBuilder().
		WithListObjectsV2(func(_ context.Context, params *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			var contents []s3types.Object
			for key := range f.objects {
				if strings.HasPrefix(key, aws.ToString(params.Prefix)) {
					contents = append(contents, testutil.CreateTestObject(key, 100, time.Now()))
				}
			}
			if max := int(aws.ToInt32(params.MaxKeys)); max > 0 && len(contents) > max {
				contents = contents[:max]
			}
			return &s3.ListObjectsV2Output{
				Contents:    contents,
				IsTruncated: aws.Bool(false),
			}, nil
		}).
		WithGetObject(func(_ context.Context, params *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			payload, ok := f.objects[aws.ToString(params.Key)]
			if !ok {
				return nil, &s3types.NoSuchKey{Message: testutil.StringPtr("no such key")}
			}
			return &s3.GetObjectOutput{
				Body: io.NopCloser(bytes.NewReader(testutil.GzipBytes(payload))),
			}, nil
		}).
		Build()
}

// destRecorder is a destination mock that records puts and reports
// previously written keys as existing.
type destRecorder struct {
	mu       sync.Mutex
	existing map[string]bool
	puts     []*capturedPut
}

type capturedPut struct {
	Key         string
	ContentType string
	Body        []byte
}

func newDestRecorder(existingKeys ...string) *destRecorder {
	d := &destRecorder{existing: make(map[string]bool)}
	for _, key := range existingKeys {
		d.existing[key] = true
	}
	return d
}

func (d *destRecorder) client() *testutil.MockS3Client {
	return testutil.NewMockBuilder().
		WithHeadObject(func(_ context.Context, params *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
			d.mu.Lock()
			defer d.mu.Unlock()
			if d.existing[aws.ToString(params.Key)] {
				return &s3.HeadObjectOutput{}, nil
			}
			return nil, &s3types.NotFound{Message: testutil.StringPtr("not found")}
		}).
		WithPutObject(func(_ context.Context, params *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
			body, err := io.ReadAll(params.Body)
			if err != nil {
				return nil, err
			}
			d.mu.Lock()
			defer d.mu.Unlock()
			key := aws.ToString(params.Key)
			d.existing[key] = true
			d.puts = append(d.puts, &capturedPut{
				Key:         key,
				ContentType: aws.ToString(params.ContentType),
				Body:        body,
			})
			return &s3.PutObjectOutput{}, nil
		}).
		Build()
}

func TestRunCopiesWindowObjects(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	fixture := newSourceFixture(
		"o-abc/AWSLogs/111111111111/Config/us-east-1/2024/3/5/cfg1.json.gz",
	)
	dest := newDestRecorder()
	tracker := &testutil.MockProgressTracker{}

	client := NewWithClients(fixture.client(), dest.client(),
		WithClock(fixedClock(now)),
		WithProgress(tracker),
	)

	result, err := client.Run(context.Background(), relaytypes.RunConfig{
		SourceBucket:      "src",
		DestinationBucket: "dst",
		Accounts:          []string{"111111111111"},
		Regions:           []string{"us-east-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Copied)
	assert.Equal(t, 0, result.Skipped)

	require.Len(t, dest.puts, 1)
	put := dest.puts[0]
	assert.Equal(t, "o-abc/AWSLogs/111111111111/Config/us-east-1/2024/3/5/cfg1.json", put.Key)
	assert.Equal(t, "application/json", put.ContentType)
	assert.JSONEq(t, `{"configurationItems":[]}`, string(put.Body))

	assert.True(t, tracker.CompleteCalled)
	assert.Equal(t, []relaytypes.TransferOutcome{relaytypes.OutcomeCopied}, tracker.Outcomes)
}

func TestRunIsIdempotent(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	fixture := newSourceFixture(
		"o-abc/AWSLogs/111111111111/Config/us-east-1/2024/3/5/cfg1.json.gz",
		"o-abc/AWSLogs/111111111111/Config/us-east-1/2024/3/4/cfg2.json.gz",
	)
	dest := newDestRecorder()

	cfg := relaytypes.RunConfig{
		SourceBucket:      "src",
		DestinationBucket: "dst",
		Accounts:          []string{"111111111111"},
	}

	client := NewWithClients(fixture.client(), dest.client(), WithClock(fixedClock(now)))

	first, err := client.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Copied)
	assert.Equal(t, 0, first.Skipped)

	second, err := client.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Copied)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, dest.puts, 2, "second run must not rewrite objects")
}

func TestRunWindowCoversEightDates(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	// One account and a pre-set prefix means exactly one listing call per
	// window date.
	calls := 0
	source := testutil.NewMockBuilder().
		WithListObjectsV2(func(context.Context, *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			calls++
			return &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}, nil
		}).
		Build()

	client := NewWithClients(source, &testutil.MockS3Client{}, WithClock(fixedClock(now)))

	_, err := client.Run(context.Background(), relaytypes.RunConfig{
		SourceBucket:      "src",
		DestinationBucket: "dst",
		Accounts:          []string{"111111111111"},
		SourcePrefix:      "AWSLogs",
	})

	require.NoError(t, err)
	// Today plus seven prior days.
	assert.Equal(t, 8, calls)
}

func TestRunRegionExclusion(t *testing.T) {
	now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	fixture := newSourceFixture(
		"o-abc/AWSLogs/111111111111/Config/eu-west-1/2024/3/5/cfg1.json.gz",
	)
	dest := newDestRecorder()

	client := NewWithClients(fixture.client(), dest.client(), WithClock(fixedClock(now)))

	result, err := client.Run(context.Background(), relaytypes.RunConfig{
		SourceBucket:      "src",
		DestinationBucket: "dst",
		Accounts:          []string{"111111111111"},
		Regions:           []string{"us-east-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Copied)
	assert.Empty(t, dest.puts)
}

func TestRunEmptyAccountList(t *testing.T) {
	now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	fixture := newSourceFixture(
		"o-abc/AWSLogs/111111111111/Config/us-east-1/2024/3/5/cfg1.json.gz",
	)
	dest := newDestRecorder()

	client := NewWithClients(fixture.client(), dest.client(), WithClock(fixedClock(now)))

	result, err := client.Run(context.Background(), relaytypes.RunConfig{
		SourceBucket:      "src",
		DestinationBucket: "dst",
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Copied)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, dest.puts)
}

func TestRunValidatesBuckets(t *testing.T) {
	client := NewWithClients(&testutil.MockS3Client{}, &testutil.MockS3Client{})

	_, err := client.Run(context.Background(), relaytypes.RunConfig{
		DestinationBucket: "dst",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = client.Run(context.Background(), relaytypes.RunConfig{
		SourceBucket: "src",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestRunSourceBucketMissing(t *testing.T) {
	source := testutil.NewMockBuilder().
		WithHeadBucket(func(context.Context, *s3.HeadBucketInput) (*s3.HeadBucketOutput, error) {
			return nil, &s3types.NotFound{Message: testutil.StringPtr("not found")}
		}).
		Build()

	client := NewWithClients(source, &testutil.MockS3Client{})
	result, err := client.Run(context.Background(), relaytypes.RunConfig{
		SourceBucket:      "src",
		DestinationBucket: "dst",
		Accounts:          []string{"111111111111"},
	})

	require.Error(t, err)
	assert.True(t, errors.IsBucketNotFound(err))
	require.NotNil(t, result, "failed runs still report progress")
	assert.Equal(t, 0, result.Copied)
}

func TestRunDestinationAccessDenied(t *testing.T) {
	dest := testutil.NewMockBuilder().WithAccessDenied().Build()

	client := NewWithClients(&testutil.MockS3Client{}, dest)
	_, err := client.Run(context.Background(), relaytypes.RunConfig{
		SourceBucket:      "src",
		DestinationBucket: "dst",
		Accounts:          []string{"111111111111"},
	})

	require.Error(t, err)
	assert.True(t, errors.IsAccessDenied(err))
}

func TestRunTransferFailureAbortsWithPartialResult(t *testing.T) {
	now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	fixture := newSourceFixture(
		"AWSLogs/111111111111/Config/us-east-1/2024/3/5/good.json.gz",
	)
	// The second date's object is listed but its payload is gone by
	// transfer time.
	goneKey := "AWSLogs/111111111111/Config/us-east-1/2024/3/4/gone.json.gz"
	source := fixture.client()
	baseList := source.ListObjectsV2Func
	source.ListObjectsV2Func = func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
		out, err := baseList(ctx, params, optFns...)
		if err != nil {
			return nil, err
		}
		out.Contents = append(out.Contents, testutil.CreateTestObject(goneKey, 100, now))
		return out, nil
	}

	dest := newDestRecorder()
	tracker := &testutil.MockProgressTracker{}

	client := NewWithClients(source, dest.client(),
		WithClock(fixedClock(now)),
		WithProgress(tracker),
	)

	result, err := client.Run(context.Background(), relaytypes.RunConfig{
		SourceBucket:      "src",
		DestinationBucket: "dst",
		Accounts:          []string{"111111111111"},
		Regions:           []string{"us-east-1"},
	})

	require.Error(t, err)
	assert.True(t, errors.IsObjectNotFound(err))
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Copied, "progress before the failure is reported")
	assert.True(t, tracker.ErrorCalled)
	assert.False(t, tracker.CompleteCalled)
}
