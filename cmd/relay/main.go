// Command relay copies AWS Config log objects from a cross-account source
// bucket into a destination bucket over a sliding backward window.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/configrelay/relay"
	"github.com/configrelay/relay/relaytypes"
)

// response is the JSON envelope printed after every run, successful or not.
type response struct {
	StatusCode int            `json:"statusCode"`
	Body       map[string]any `json:"body"`
}

func main() {
	fs := ff.NewFlagSet("relay")
	sourceARN := fs.StringLong("source-bucket-arn", "", "ARN of the source bucket, optionally with a key prefix")
	destBucket := fs.StringLong("destination-bucket", "", "Name of the destination bucket")
	accountList := fs.StringLong("account-list", "", "Comma-separated account IDs to relay")
	regionList := fs.StringLong("region-list", "", "Comma-separated regions to relay (empty means all)")
	sourceAccount := fs.StringLong("source-account-id", "", "Account owning the source bucket (enables role assumption)")
	region := fs.StringLong("region", "", "AWS region for API calls")
	windowDays := fs.IntLong("window-days", 7, "How many days back to relay")
	verbose := fs.BoolLong("verbose", "Enable debug logging")
	progress := fs.BoolLong("progress", "Show a progress spinner")

	err := ff.Parse(
		fs,
		os.Args[1:],
		ff.WithEnvVarPrefix("RELAY"),
	)
	if err != nil {
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		fmt.Printf("err=%v\n", err)
		os.Exit(1)
	}

	logger := newLogger(*verbose)

	srcBucket, srcPrefix, err := relay.ParseSourceARN(*sourceARN)
	if err != nil {
		logger.Error().Err(err).Str("arn", *sourceARN).Msg("invalid source bucket ARN")
		emit(500, map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	opts := []relaytypes.Option{
		relay.WithLogger(logger),
		relay.WithWindowDays(*windowDays),
	}
	if *region != "" {
		opts = append(opts, relay.WithRegion(*region))
	}
	if *sourceAccount != "" {
		opts = append(opts, relay.WithSourceAccount(*sourceAccount))
	}

	var bar *barTracker
	if *progress {
		bar = newBarTracker()
		opts = append(opts, relay.WithProgress(bar))
	}

	client, err := relay.New(opts...)
	if err != nil {
		logger.Error().Err(err).Msg("client initialization failed")
		emit(500, map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	cfg := relaytypes.RunConfig{
		SourceBucket:      srcBucket,
		SourcePrefix:      srcPrefix,
		DestinationBucket: *destBucket,
		Accounts:          splitList(*accountList),
		Regions:           splitList(*regionList),
	}

	result, err := client.Run(context.Background(), cfg)
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		body := map[string]any{"error": err.Error()}
		if result != nil {
			body["files_copied"] = result.Copied
			body["files_skipped"] = result.Skipped
		}
		emit(500, body)
		os.Exit(1)
	}

	emit(200, map[string]any{
		"message":       "transfer complete",
		"files_copied":  result.Copied,
		"files_skipped": result.Skipped,
		"configuration": cfg,
	})
}

// emit prints the run outcome as a single JSON document on stdout.
func emit(statusCode int, body map[string]any) {
	out, err := json.Marshal(response{StatusCode: statusCode, Body: body})
	if err != nil {
		fmt.Fprintf(os.Stderr, "err=%v\n", err)
		return
	}
	fmt.Println(string(out))
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()
}

// splitList parses a comma-separated flag value into trimmed entries.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// barTracker adapts a progress spinner to the client's tracker interface.
// Total object count is unknown before listing, so the bar runs in
// spinner mode.
type barTracker struct {
	bar *progressbar.ProgressBar
}

func newBarTracker() *barTracker {
	return &barTracker{
		bar: progressbar.NewOptions64(-1,
			progressbar.OptionSetDescription("relaying"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSpinnerType(14),
		),
	}
}

func (t *barTracker) Update(processed int64, _ relaytypes.TransferOutcome) {
	_ = t.bar.Set64(processed)
}

func (t *barTracker) Complete() {
	_ = t.bar.Finish()
}

func (t *barTracker) Error(error) {
	_ = t.bar.Exit()
}
