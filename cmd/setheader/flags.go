package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/sweep/config"
	"github.com/kbukum/sweep/pipeline"
)

const configFlag = "config"

// flagKeys maps run flags to configuration keys.
var flagKeys = map[string]string{
	"bucket":              "s3.bucket",
	"region":              "s3.region",
	"endpoint":            "s3.endpoint",
	"path-style":          "s3.force_path_style",
	"prefix":              "pipeline.prefix",
	"workers":             "pipeline.workers",
	"page-size":           "pipeline.page_size",
	"queue-capacity":      "pipeline.queue_capacity",
	"report-capacity":     "pipeline.report_capacity",
	"summary-interval":    "pipeline.summary_interval",
	"ema-contribution":    "pipeline.ema_contribution",
	"rate-limit":          "pipeline.rate_limit",
	"cache-control":       "headers.cache_control",
	"content-type":        "headers.content_type",
	"content-disposition": "headers.content_disposition",
	"content-encoding":    "headers.content_encoding",
	"meta":                "headers.metadata",
	"acl":                 "headers.acl",
	"dry-run":             "headers.dry_run",
	"metrics-endpoint":    "telemetry.metrics_endpoint",
	"trace-endpoint":      "telemetry.trace_endpoint",
	"otlp-insecure":       "telemetry.insecure",
	"log-level":           "logging.level",
	"log-format":          "logging.format",
	"debug":               "debug",
}

// bindRunFlags declares the run flags and returns a function producing the
// loader options for the values given on the command line.
func bindRunFlags(command *cobra.Command) func() []config.LoaderOption {
	flags := command.Flags()

	flags.String(configFlag, "", "path to a config.yml (default: searched in standard locations)")

	flags.String("bucket", "", "the bucket to process")
	flags.String("region", "", "the bucket region (default us-east-1)")
	flags.String("endpoint", "", "an S3-compatible endpoint URL")
	flags.Bool("path-style", false, "use path-style bucket addressing")
	flags.String("prefix", "", "only process keys starting with this prefix")

	flags.Int("workers", pipeline.DefaultWorkers, "the number of concurrent workers")
	flags.Int("page-size", pipeline.DefaultPageSize, "keys requested per listing page (1-1000)")
	flags.Int("queue-capacity", pipeline.DefaultQueueCapacity, "listed keys buffered ahead of the workers")
	flags.Int("report-capacity", pipeline.DefaultReportCapacity, "reports buffered ahead of the aggregator")
	flags.Int("summary-interval", pipeline.DefaultSummaryInterval, "processed items between progress summaries")
	flags.Float64("ema-contribution", pipeline.DefaultEMAContribution, "weight of each new sample in the smoothed rate")
	flags.Float64("rate-limit", 0, "maximum objects per second across all workers (0 disables)")

	flags.String("cache-control", "", "the Cache-Control value to enforce")
	flags.String("content-type", "", "the Content-Type value to enforce")
	flags.String("content-disposition", "", "the Content-Disposition value to enforce")
	flags.String("content-encoding", "", "the Content-Encoding value to enforce")
	flags.StringToString("meta", nil, "user metadata to enforce, as key=value (repeatable)")
	flags.String("acl", "", "canned ACL for rewritten objects (default: the bucket default)")
	flags.Bool("dry-run", false, "report what would change without writing")

	flags.String("metrics-endpoint", "", "OTLP/HTTP host:port to export metrics to")
	flags.String("trace-endpoint", "", "OTLP/HTTP host:port to export traces to")
	flags.Bool("otlp-insecure", false, "export telemetry without TLS")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json, console)")
	flags.Bool("debug", false, "shorthand for --log-level=debug")

	return func() []config.LoaderOption {
		opts := []config.LoaderOption{config.WithEnvPrefix("SETHEADER")}
		for name, key := range flagKeys {
			opts = append(opts, config.WithPFlag(key, flags.Lookup(name)))
		}
		if path, _ := flags.GetString(configFlag); path != "" {
			opts = append(opts, config.WithConfigFile(path))
		}
		return opts
	}
}
