package s3

import (
	"context"
	stderrors "errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kbukum/sweep/errors"
	"github.com/kbukum/sweep/logger"
	"github.com/kbukum/sweep/pipeline"
)

// fakeBucket is an in-memory stand-in for the S3 API.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]*awss3.HeadObjectOutput
	lists   []*awss3.ListObjectsV2Input
	copies  []*awss3.CopyObjectInput
	listErr error
	headErr error
	copyErr error
}

func newFakeBucket(keys ...string) *fakeBucket {
	b := &fakeBucket{objects: make(map[string]*awss3.HeadObjectOutput)}
	for _, k := range keys {
		b.objects[k] = &awss3.HeadObjectOutput{
			ETag:        aws.String(`"` + k + `"`),
			ContentType: aws.String("application/octet-stream"),
		}
	}
	return b
}

func (b *fakeBucket) ListObjectsV2(_ context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists = append(b.lists, in)
	if b.listErr != nil {
		return nil, b.listErr
	}

	prefix, after := aws.ToString(in.Prefix), aws.ToString(in.StartAfter)
	out := &awss3.ListObjectsV2Output{}
	for _, k := range slices.Sorted(maps.Keys(b.objects)) {
		if !strings.HasPrefix(k, prefix) || k <= after {
			continue
		}
		if int32(len(out.Contents)) == aws.ToInt32(in.MaxKeys) {
			out.IsTruncated = aws.Bool(true)
			break
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(k))),
			ETag:         b.objects[k].ETag,
			LastModified: aws.Time(time.Unix(1700000000, 0)),
		})
	}
	return out, nil
}

func (b *fakeBucket) HeadObject(_ context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.headErr != nil {
		return nil, b.headErr
	}
	o, ok := b.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return o, nil
}

func (b *fakeBucket) CopyObject(_ context.Context, in *awss3.CopyObjectInput, _ ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.copies = append(b.copies, in)
	if b.copyErr != nil {
		return nil, b.copyErr
	}
	b.objects[aws.ToString(in.Key)] = &awss3.HeadObjectOutput{
		ETag:               in.CopySourceIfMatch,
		CacheControl:       in.CacheControl,
		ContentType:        in.ContentType,
		ContentDisposition: in.ContentDisposition,
		ContentEncoding:    in.ContentEncoding,
		ContentLanguage:    in.ContentLanguage,
		Expires:            in.Expires,
		Metadata:           in.Metadata,

		WebsiteRedirectLocation: in.WebsiteRedirectLocation,
	}
	return &awss3.CopyObjectOutput{}, nil
}

type recordingEmitter struct {
	mu    sync.Mutex
	kinds []pipeline.Kind
}

func (e *recordingEmitter) Report(kind pipeline.Kind, _ any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.kinds = append(e.kinds, kind)
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid", Config{Bucket: "assets"}, ""},
		{"missing bucket", Config{}, "bucket"},
		{"half credentials", Config{Bucket: "assets", AccessKey: "AKIA"}, "access_key"},
		{"full credentials", Config{Bucket: "assets", AccessKey: "AKIA", SecretKey: "s"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ApplyDefaults()
			if tt.cfg.Region != DefaultRegion {
				t.Errorf("expected default region, got %q", tt.cfg.Region)
			}
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
			if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestClientOptions(t *testing.T) {
	if opts := clientOptions(&Config{Bucket: "b"}); len(opts) != 0 {
		t.Errorf("expected no options for plain AWS, got %d", len(opts))
	}

	var o awss3.Options
	for _, fn := range clientOptions(&Config{Bucket: "b", Endpoint: "http://localhost:9000"}) {
		fn(&o)
	}
	if aws.ToString(o.BaseEndpoint) != "http://localhost:9000" || !o.UsePathStyle {
		t.Errorf("expected custom endpoint with path style, got %q %v", aws.ToString(o.BaseEndpoint), o.UsePathStyle)
	}
}

func TestNewClient(t *testing.T) {
	cfg := &Config{Bucket: "b", Region: "eu-west-1", AccessKey: "AKIA", SecretKey: "secret"}
	client, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if got := client.Options().Region; got != "eu-west-1" {
		t.Errorf("expected region eu-west-1, got %q", got)
	}
}

func TestSourcePaging(t *testing.T) {
	b := newFakeBucket("img/a.png", "img/b.png", "img/c.png", "txt/readme")
	src := NewSource(b, "assets")

	first, err := src.FetchPage(context.Background(), "img/", "", 2)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if len(first) != 2 || first[0].Key != "img/a.png" || first[1].Key != "img/b.png" {
		t.Fatalf("unexpected first page: %+v", first)
	}
	if first[0].Size != int64(len("img/a.png")) || first[0].LastModified.IsZero() {
		t.Errorf("expected object attributes to be mapped, got %+v", first[0])
	}

	second, err := src.FetchPage(context.Background(), "img/", src.Key(first[1]), 2)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if len(second) != 1 || second[0].Key != "img/c.png" {
		t.Fatalf("unexpected second page: %+v", second)
	}

	last := b.lists[1]
	if aws.ToString(last.StartAfter) != "img/b.png" || aws.ToString(last.Prefix) != "img/" || aws.ToInt32(last.MaxKeys) != 2 {
		t.Errorf("unexpected list input: %+v", last)
	}
	if b.lists[0].StartAfter != nil {
		t.Error("first page must not set StartAfter")
	}
}

func TestSourceClampsPageSize(t *testing.T) {
	b := newFakeBucket("a")
	src := NewSource(b, "assets")
	for _, size := range []int{0, 5000} {
		if _, err := src.FetchPage(context.Background(), "", "", size); err != nil {
			t.Fatalf("FetchPage failed: %v", err)
		}
	}
	if aws.ToInt32(b.lists[0].MaxKeys) != 1 || aws.ToInt32(b.lists[1].MaxKeys) != maxKeys {
		t.Errorf("expected page size clamped to [1, %d], got %d and %d",
			maxKeys, aws.ToInt32(b.lists[0].MaxKeys), aws.ToInt32(b.lists[1].MaxKeys))
	}
}

func TestSourceError(t *testing.T) {
	b := newFakeBucket()
	b.listErr = stderrors.New("access denied")
	_, err := NewSource(b, "assets").FetchPage(context.Background(), "", "m", 10)
	if !errors.HasCode(err, errors.ErrCodeExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if !stderrors.Is(err, b.listErr) {
		t.Error("expected the SDK error to be wrapped")
	}
}

func TestHeaderConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     HeaderConfig
		wantErr bool
	}{
		{"empty", HeaderConfig{DryRun: true}, true},
		{"cache control", HeaderConfig{CacheControl: "max-age=60"}, false},
		{"metadata only", HeaderConfig{Metadata: map[string]string{"owner": "web"}}, false},
		{"blank metadata key", HeaderConfig{Metadata: map[string]string{" ": "x"}}, true},
		{"acl only", HeaderConfig{ACL: "private"}, true},
		{"canned acl", HeaderConfig{CacheControl: "no-cache", ACL: "bucket-owner-full-control"}, false},
		{"unknown acl", HeaderConfig{CacheControl: "no-cache", ACL: "everyone"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestHeaderSetterProcess(t *testing.T) {
	tests := []struct {
		name       string
		cfg        HeaderConfig
		current    *awss3.HeadObjectOutput
		wantKind   pipeline.Kind
		wantCopies int
	}{
		{
			name:       "update",
			cfg:        HeaderConfig{CacheControl: "max-age=3600"},
			current:    &awss3.HeadObjectOutput{ETag: aws.String(`"e"`)},
			wantKind:   pipeline.KindUpdated,
			wantCopies: 1,
		},
		{
			name: "already set",
			cfg:  HeaderConfig{CacheControl: "max-age=3600", Metadata: map[string]string{"Owner": "web"}},
			current: &awss3.HeadObjectOutput{
				CacheControl: aws.String("max-age=3600"),
				Metadata:     map[string]string{"owner": "web"},
			},
			wantKind: pipeline.KindSkipped,
		},
		{
			name:     "dry run",
			cfg:      HeaderConfig{ContentType: "image/png", DryRun: true},
			current:  &awss3.HeadObjectOutput{ContentType: aws.String("application/octet-stream")},
			wantKind: pipeline.KindNoop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBucket()
			b.objects["k"] = tt.current
			em := &recordingEmitter{}
			h := NewHeaderSetter(b, "assets", tt.cfg, logger.NewNop())

			if err := h.Process(context.Background(), Object{Key: "k"}, em); err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if len(em.kinds) != 1 || em.kinds[0] != tt.wantKind {
				t.Errorf("expected [%s], got %v", tt.wantKind, em.kinds)
			}
			if len(b.copies) != tt.wantCopies {
				t.Errorf("expected %d copies, got %d", tt.wantCopies, len(b.copies))
			}
		})
	}
}

func TestHeaderSetterPreservesOtherHeaders(t *testing.T) {
	b := newFakeBucket()
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	b.objects["dir/a b.png"] = &awss3.HeadObjectOutput{
		ETag:                    aws.String(`"etag"`),
		ContentType:             aws.String("image/png"),
		ContentLanguage:         aws.String("en"),
		Expires:                 aws.Time(expires),
		WebsiteRedirectLocation: aws.String("/elsewhere"),
		StorageClass:            types.StorageClassStandardIa,
		ServerSideEncryption:    types.ServerSideEncryptionAwsKms,
		SSEKMSKeyId:             aws.String("kms-key"),
		Metadata:                map[string]string{"owner": "web", "build": "41"},
	}
	original := b.objects["dir/a b.png"].Metadata
	cfg := HeaderConfig{CacheControl: "no-cache", Metadata: map[string]string{"Build": "42"}}
	h := NewHeaderSetter(b, "assets", cfg, logger.NewNop())

	if err := h.Process(context.Background(), Object{Key: "dir/a b.png"}, &recordingEmitter{}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(b.copies) != 1 {
		t.Fatalf("expected one copy, got %d", len(b.copies))
	}
	in := b.copies[0]

	if in.MetadataDirective != types.MetadataDirectiveReplace {
		t.Errorf("expected REPLACE directive, got %q", in.MetadataDirective)
	}
	if got := aws.ToString(in.CopySource); got != "assets/dir/a%20b.png" {
		t.Errorf("unexpected copy source %q", got)
	}
	if aws.ToString(in.CopySourceIfMatch) != `"etag"` {
		t.Errorf("expected the copy to be conditional on the head ETag")
	}
	if aws.ToString(in.CacheControl) != "no-cache" {
		t.Errorf("expected new cache control, got %q", aws.ToString(in.CacheControl))
	}
	if aws.ToString(in.ContentType) != "image/png" || aws.ToString(in.ContentLanguage) != "en" {
		t.Errorf("expected existing headers to be kept, got %q %q",
			aws.ToString(in.ContentType), aws.ToString(in.ContentLanguage))
	}
	if !aws.ToTime(in.Expires).Equal(expires) {
		t.Errorf("expected Expires to be kept, got %v", in.Expires)
	}
	if aws.ToString(in.WebsiteRedirectLocation) != "/elsewhere" {
		t.Errorf("expected website redirect to be kept, got %q", aws.ToString(in.WebsiteRedirectLocation))
	}
	if in.ACL != "" {
		t.Errorf("expected no ACL without one configured, got %q", in.ACL)
	}
	if in.StorageClass != types.StorageClassStandardIa {
		t.Errorf("expected storage class to be kept, got %q", in.StorageClass)
	}
	if in.ServerSideEncryption != types.ServerSideEncryptionAwsKms || aws.ToString(in.SSEKMSKeyId) != "kms-key" {
		t.Errorf("expected KMS encryption to be kept")
	}
	if in.Metadata["owner"] != "web" || in.Metadata["build"] != "42" {
		t.Errorf("unexpected metadata %v", in.Metadata)
	}
	if original["build"] != "41" {
		t.Error("head metadata must not be mutated through the copy input")
	}
}

func TestHeaderSetterACL(t *testing.T) {
	b := newFakeBucket("k")
	cfg := HeaderConfig{CacheControl: "no-cache", ACL: "public-read"}
	h := NewHeaderSetter(b, "assets", cfg, logger.NewNop())

	if err := h.Process(context.Background(), Object{Key: "k"}, &recordingEmitter{}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(b.copies) != 1 || b.copies[0].ACL != types.ObjectCannedACLPublicRead {
		t.Fatalf("expected the copy to carry the configured ACL, got %+v", b.copies)
	}

	// ACL alone never triggers a rewrite.
	em := &recordingEmitter{}
	if err := h.Process(context.Background(), Object{Key: "k"}, em); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(b.copies) != 1 || len(em.kinds) != 1 || em.kinds[0] != pipeline.KindSkipped {
		t.Errorf("expected an up-to-date object to be skipped, got %v", em.kinds)
	}
}

func TestHeaderSetterErrors(t *testing.T) {
	headErr := stderrors.New("throttled")
	copyErr := stderrors.New("precondition failed")

	for _, tt := range []struct {
		name string
		set  func(b *fakeBucket)
		want error
	}{
		{"head", func(b *fakeBucket) { b.headErr = headErr }, headErr},
		{"copy", func(b *fakeBucket) { b.copyErr = copyErr }, copyErr},
	} {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBucket("k")
			tt.set(b)
			em := &recordingEmitter{}
			h := NewHeaderSetter(b, "assets", HeaderConfig{CacheControl: "no-cache"}, logger.NewNop())

			err := h.Process(context.Background(), Object{Key: "k"}, em)
			if !stderrors.Is(err, tt.want) {
				t.Fatalf("expected %v to be wrapped, got %v", tt.want, err)
			}
			if !errors.HasCode(err, errors.ErrCodeExternalService) {
				t.Errorf("expected external service error, got %v", err)
			}
			if len(em.kinds) != 0 {
				t.Errorf("expected no reports on error, got %v", em.kinds)
			}
		})
	}
}

func TestHeaderSetterInPipeline(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e"}
	b := newFakeBucket(keys...)
	b.objects["c"].CacheControl = aws.String("public")

	h := NewHeaderSetter(b, "assets", HeaderConfig{CacheControl: "public"}, logger.NewNop())
	p := pipeline.New[Object](NewSource(b, "assets"), h.Process,
		pipeline.WithWorkers(2),
		pipeline.WithPageSize(2),
		pipeline.WithLogger(logger.NewNop()),
	)

	totals, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if totals.Listed != 5 || totals.Processed != 5 || totals.Updated != 4 || totals.Skipped != 1 {
		t.Errorf("unexpected totals %+v", totals)
	}
	if len(b.copies) != 4 {
		t.Errorf("expected 4 copies, got %d", len(b.copies))
	}
}
