package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/sweep/bootstrap"
	"github.com/kbukum/sweep/config"
	"github.com/kbukum/sweep/logger"
	"github.com/kbukum/sweep/observability"
	"github.com/kbukum/sweep/pipeline"
	"github.com/kbukum/sweep/s3"
	"github.com/kbukum/sweep/version"
)

const instrumentationName = "github.com/kbukum/sweep/cmd/setheader"

// objectAPI is the S3 surface setheader needs.
type objectAPI interface {
	s3.ListAPI
	s3.HeaderAPI
}

type clientFactory func(ctx context.Context, cfg *s3.Config) (objectAPI, error)

func defaultClient(ctx context.Context, cfg *s3.Config) (objectAPI, error) {
	return s3.NewClient(ctx, cfg)
}

func newRunCommand(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Enforce headers on every object of a bucket",
		Long: `Enforce headers on every object of a bucket.

Objects that already carry the requested headers are skipped. With --dry-run
nothing is written. An interrupt (Ctrl-C) stops the run after in-flight
objects and still prints the totals.`,
		Args: cobra.NoArgs,
	}
	loaderOptions := bindRunFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(loaderOptions()...)
		if err != nil {
			return err
		}
		_, err = run(cmd.Context(), cfg, newClient)
		return err
	}
	return cmd
}

func loadConfig(opts ...config.LoaderOption) (*Config, error) {
	cfg := &Config{}
	opts = append([]config.LoaderOption{
		config.WithDefault("name", serviceName),
		config.WithDefault("version", version.Get().Short()),
	}, opts...)
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run executes one pass over the bucket. An interrupted pass is not an error.
func run(ctx context.Context, cfg *Config, newClient clientFactory, opts ...bootstrap.Option) (pipeline.Totals, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return pipeline.Totals{}, err
	}
	app.Logger.Info("setheader", version.Get().Fields())

	metrics, err := setupTelemetry(ctx, app)
	if err != nil {
		return pipeline.Totals{}, err
	}

	client, err := newClient(ctx, &cfg.S3)
	if err != nil {
		return pipeline.Totals{}, err
	}

	setter := s3.NewHeaderSetter(client, cfg.S3.Bucket, cfg.Headers, app.Logger)
	pipelineOpts := []pipeline.Option{
		pipeline.WithOptions(cfg.Pipeline),
		pipeline.WithLogger(app.Logger),
	}
	if metrics != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithMetrics(metrics))
	}
	p := pipeline.New[s3.Object](s3.NewSource(client, cfg.S3.Bucket), setter.Process, pipelineOpts...)

	var totals pipeline.Totals
	err = app.RunTask(ctx, func(ctx context.Context) error {
		var runErr error
		totals, runErr = p.Run(ctx)
		return runErr
	})
	if err != nil {
		app.Logger.Error("setheader failed", logger.Fields(logger.FieldError, err))
	}
	return totals, err
}

// setupTelemetry starts the OTLP providers that have an endpoint and
// registers their shutdown as stop hooks.
func setupTelemetry(ctx context.Context, app *bootstrap.App[*Config]) (*observability.PipelineMetrics, error) {
	cfg := app.Cfg
	var metrics *observability.PipelineMetrics

	if t := cfg.Telemetry; t.MetricsEndpoint != "" {
		mp, err := observability.InitMeter(ctx, &observability.MeterConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       t.MetricsEndpoint,
			Insecure:       t.Insecure,
			Interval:       t.MetricInterval,
		})
		if err != nil {
			return nil, err
		}
		app.OnStop(mp.Shutdown)

		metrics, err = observability.NewPipelineMetrics(mp.Meter(instrumentationName))
		if err != nil {
			return nil, err
		}
	}

	if t := cfg.Telemetry; t.TraceEndpoint != "" {
		tp, err := observability.InitTracer(ctx, &observability.TracerConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       t.TraceEndpoint,
			Insecure:       t.Insecure,
			SampleRate:     *t.SampleRate,
		})
		if err != nil {
			return nil, err
		}
		app.OnStop(tp.Shutdown)
	}
	return metrics, nil
}
