package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spf13/cobra"

	"github.com/kbukum/sweep/bootstrap"
	"github.com/kbukum/sweep/logger"
	"github.com/kbukum/sweep/s3"
	"github.com/kbukum/sweep/version"
)

type memoryBucket struct {
	mu      sync.Mutex
	headers map[string]*awss3.HeadObjectOutput
	copies  int
}

func newMemoryBucket(keys ...string) *memoryBucket {
	b := &memoryBucket{headers: make(map[string]*awss3.HeadObjectOutput)}
	for _, k := range keys {
		b.headers[k] = &awss3.HeadObjectOutput{ETag: aws.String(k)}
	}
	return b
}

func (b *memoryBucket) ListObjectsV2(_ context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := &awss3.ListObjectsV2Output{}
	for _, k := range slices.Sorted(maps.Keys(b.headers)) {
		if k <= aws.ToString(in.StartAfter) || !strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			continue
		}
		if int32(len(out.Contents)) == aws.ToInt32(in.MaxKeys) {
			break
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (b *memoryBucket) HeadObject(_ context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headers[aws.ToString(in.Key)], nil
}

func (b *memoryBucket) CopyObject(_ context.Context, in *awss3.CopyObjectInput, _ ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.copies++
	b.headers[aws.ToString(in.Key)] = &awss3.HeadObjectOutput{
		ETag:         in.CopySourceIfMatch,
		CacheControl: in.CacheControl,
		Metadata:     in.Metadata,
	}
	return &awss3.CopyObjectOutput{}, nil
}

func factoryFor(b *memoryBucket) clientFactory {
	return func(context.Context, *s3.Config) (objectAPI, error) { return b, nil }
}

func parseRunFlags(t *testing.T, args ...string) *Config {
	t.Helper()
	cmd := &cobra.Command{}
	opts := bindRunFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	cfg, err := loadConfig(opts()...)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	return cfg
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.S3.Bucket = "assets"
	cfg.Headers.CacheControl = "max-age=60"
	cfg.Pipeline.Workers = 2
	cfg.Pipeline.PageSize = 2
	return cfg
}

func TestLoadConfigFromFlags(t *testing.T) {
	cfg := parseRunFlags(t,
		"--bucket", "assets",
		"--prefix", "img/",
		"--workers", "3",
		"--cache-control", "no-cache",
		"--meta", "owner=web",
		"--acl", "public-read",
		"--dry-run",
	)

	if cfg.Name != serviceName {
		t.Errorf("expected default name, got %q", cfg.Name)
	}
	if cfg.S3.Bucket != "assets" || cfg.Pipeline.Prefix != "img/" {
		t.Errorf("unexpected s3/pipeline config: %+v %+v", cfg.S3, cfg.Pipeline)
	}
	if cfg.Pipeline.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.PageSize != 1000 {
		t.Errorf("expected flag default page size, got %d", cfg.Pipeline.PageSize)
	}
	if cfg.Headers.CacheControl != "no-cache" || cfg.Headers.ACL != "public-read" || !cfg.Headers.DryRun {
		t.Errorf("unexpected headers: %+v", cfg.Headers)
	}
	if cfg.Headers.Metadata["owner"] != "web" {
		t.Errorf("expected metadata from --meta, got %v", cfg.Headers.Metadata)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := "s3:\n  bucket: from-file\npipeline:\n  workers: 4\n  page_size: 50\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SETHEADER_PIPELINE_WORKERS", "7")

	cfg := parseRunFlags(t, "--config", path)
	if cfg.S3.Bucket != "from-file" || cfg.Pipeline.PageSize != 50 {
		t.Errorf("expected file values, got bucket=%q page_size=%d", cfg.S3.Bucket, cfg.Pipeline.PageSize)
	}
	if cfg.Pipeline.Workers != 7 {
		t.Errorf("expected env to override file, got %d", cfg.Pipeline.Workers)
	}

	cfg = parseRunFlags(t, "--config", path, "--workers", "9")
	if cfg.Pipeline.Workers != 9 {
		t.Errorf("expected flag to override env, got %d", cfg.Pipeline.Workers)
	}
}

func TestLoadConfigSampleRate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"unset samples everything", "s3:\n  bucket: assets\n", 1},
		{"explicit zero samples nothing", "s3:\n  bucket: assets\ntelemetry:\n  sample_rate: 0\n", 0},
		{"fraction", "s3:\n  bucket: assets\ntelemetry:\n  sample_rate: 0.25\n", 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			cfg := parseRunFlags(t, "--config", path)
			cfg.ApplyDefaults()
			if cfg.Telemetry.SampleRate == nil {
				t.Fatal("expected a sample rate after defaults")
			}
			if got := *cfg.Telemetry.SampleRate; got != tt.want {
				t.Errorf("expected sample rate %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cmd := &cobra.Command{}
	opts := bindRunFlags(cmd)
	if err := cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "nope.yml")}); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(opts()...); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing bucket", func(c *Config) { c.S3.Bucket = "" }, "s3:"},
		{"no headers", func(c *Config) { c.Headers = s3.HeaderConfig{} }, "headers:"},
		{"too many workers", func(c *Config) { c.Pipeline.Workers = 5000 }, "pipeline:"},
		{"bad endpoint", func(c *Config) { c.Telemetry.MetricsEndpoint = "not an endpoint" }, "telemetry:"},
		{"bad sample rate", func(c *Config) { rate := 2.0; c.Telemetry.SampleRate = &rate }, "telemetry:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.HasPrefix(err.Error(), tt.wantErr) {
				t.Fatalf("expected error starting with %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRun(t *testing.T) {
	b := newMemoryBucket("a", "b", "c", "d", "e")
	b.headers["b"].CacheControl = aws.String("max-age=60")

	totals, err := run(context.Background(), validConfig(), factoryFor(b), bootstrap.WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if totals.Processed != 5 || totals.Updated != 4 || totals.Skipped != 1 || totals.Failed != 0 {
		t.Errorf("unexpected totals %+v", totals)
	}
	if b.copies != 4 {
		t.Errorf("expected 4 copies, got %d", b.copies)
	}

	totals, err = run(context.Background(), validConfig(), factoryFor(b), bootstrap.WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if totals.Skipped != 5 {
		t.Errorf("expected a second pass to skip everything, got %+v", totals)
	}
}

func TestRunDryRun(t *testing.T) {
	b := newMemoryBucket("a", "b", "c")
	cfg := validConfig()
	cfg.Headers.DryRun = true

	totals, err := run(context.Background(), cfg, factoryFor(b), bootstrap.WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if totals.Noop != 3 || b.copies != 0 {
		t.Errorf("expected 3 noops and no writes, got %+v copies=%d", totals, b.copies)
	}
}

func TestRunErrors(t *testing.T) {
	clientErr := stderrors.New("no credentials")
	failing := func(context.Context, *s3.Config) (objectAPI, error) { return nil, clientErr }

	if _, err := run(context.Background(), validConfig(), failing, bootstrap.WithLogger(logger.NewNop())); !stderrors.Is(err, clientErr) {
		t.Errorf("expected client error, got %v", err)
	}

	invalid := validConfig()
	invalid.S3.Bucket = ""
	if _, err := run(context.Background(), invalid, factoryFor(newMemoryBucket()), bootstrap.WithLogger(logger.NewNop())); err == nil {
		t.Error("expected a validation error")
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newVersionCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "setheader "+version.Get().Short()) {
		t.Errorf("unexpected output %q", out.String())
	}

	out.Reset()
	cmd = newVersionCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	var info version.Info
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if info.Version != version.Version {
		t.Errorf("expected version %q, got %q", version.Version, info.Version)
	}
}

func TestRootCommand(t *testing.T) {
	root := newRootCommand()
	root.AddCommand(newRunCommand(factoryFor(newMemoryBucket())), newVersionCommand())

	for _, name := range []string{"run", "version"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("expected subcommand %q, got %v %v", name, c, err)
		}
	}

	runcmd, _, _ := root.Find([]string{"run"})
	for name := range flagKeys {
		if runcmd.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s is not declared", name)
		}
	}
}
