package s3

import (
	"context"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kbukum/sweep/errors"
	"github.com/kbukum/sweep/logger"
	"github.com/kbukum/sweep/pipeline"
	"github.com/kbukum/sweep/validation"
)

// HeaderConfig lists the headers to enforce. Empty fields are left alone.
//
// S3 never copies an object's ACL, so every rewritten object gets ACL, or
// the bucket default when ACL is empty. ACL alone does not make an object
// differ: HeadObject cannot see grants.
type HeaderConfig struct {
	CacheControl       string            `yaml:"cache_control" mapstructure:"cache_control"`
	ContentType        string            `yaml:"content_type" mapstructure:"content_type"`
	ContentDisposition string            `yaml:"content_disposition" mapstructure:"content_disposition"`
	ContentEncoding    string            `yaml:"content_encoding" mapstructure:"content_encoding"`
	Metadata           map[string]string `yaml:"metadata" mapstructure:"metadata"`
	ACL                string            `yaml:"acl" mapstructure:"acl"`
	DryRun             bool              `yaml:"dry_run" mapstructure:"dry_run"`
}

// IsEmpty reports whether the config requests no change at all.
func (c *HeaderConfig) IsEmpty() bool {
	return c.CacheControl == "" && c.ContentType == "" &&
		c.ContentDisposition == "" && c.ContentEncoding == "" && len(c.Metadata) == 0
}

// Validate rejects a config that sets nothing, metadata with blank keys and
// unknown canned ACLs.
func (c *HeaderConfig) Validate() error {
	v := validation.New()
	v.Custom(!c.IsEmpty(), "headers", "at least one header or metadata entry must be set")
	for k := range c.Metadata {
		v.Custom(strings.TrimSpace(k) != "", "metadata", "keys must not be blank")
	}
	if c.ACL != "" {
		v.Custom(slices.Contains(types.ObjectCannedACL("").Values(), types.ObjectCannedACL(c.ACL)),
			"acl", "must be a canned ACL such as private or public-read")
	}
	return v.Err()
}

// HeaderSetter rewrites object headers in place with a self-copy.
type HeaderSetter struct {
	api    HeaderAPI
	bucket string
	cfg    HeaderConfig
	log    *logger.Logger
}

// NewHeaderSetter returns a HeaderSetter for bucket. Metadata keys are
// lower-cased to match what S3 returns.
func NewHeaderSetter(api HeaderAPI, bucket string, cfg HeaderConfig, log *logger.Logger) *HeaderSetter {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	meta := make(map[string]string, len(cfg.Metadata))
	for k, v := range cfg.Metadata {
		meta[strings.ToLower(k)] = v
	}
	cfg.Metadata = meta
	return &HeaderSetter{
		api:    api,
		bucket: bucket,
		cfg:    cfg,
		log:    log.WithComponent("s3"),
	}
}

// Process is a pipeline.ProcessFunc. It reports KindSkipped when the object
// already carries the requested headers, KindNoop in dry-run mode and
// KindUpdated after a rewrite.
func (h *HeaderSetter) Process(ctx context.Context, o Object, em pipeline.Emitter) error {
	head, err := h.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(o.Key),
	})
	if err != nil {
		return errors.ExternalServiceError("s3", err).WithDetail("key", o.Key)
	}

	in, changed := h.plan(o.Key, head)
	if len(changed) == 0 {
		em.Report(pipeline.KindSkipped, o.Key)
		return nil
	}
	if h.cfg.DryRun {
		h.log.Debug("would update", logger.Fields(logger.FieldKey, o.Key, "changed", changed))
		em.Report(pipeline.KindNoop, o.Key)
		return nil
	}

	if _, err := h.api.CopyObject(ctx, in); err != nil {
		return errors.ExternalServiceError("s3", err).WithDetail("key", o.Key)
	}
	h.log.Debug("updated", logger.Fields(logger.FieldKey, o.Key, "changed", changed))
	em.Report(pipeline.KindUpdated, o.Key)
	return nil
}

// plan builds the self-copy for key and names the headers it changes.
// A REPLACE copy drops anything it does not restate, so every header head
// reports is carried over.
func (h *HeaderSetter) plan(key string, head *awss3.HeadObjectOutput) (*awss3.CopyObjectInput, []string) {
	in := &awss3.CopyObjectInput{
		Bucket:                  aws.String(h.bucket),
		Key:                     aws.String(key),
		CopySource:              aws.String(copySource(h.bucket, key)),
		CopySourceIfMatch:       head.ETag,
		MetadataDirective:       types.MetadataDirectiveReplace,
		CacheControl:            head.CacheControl,
		ContentType:             head.ContentType,
		ContentDisposition:      head.ContentDisposition,
		ContentEncoding:         head.ContentEncoding,
		ContentLanguage:         head.ContentLanguage,
		Expires:                 head.Expires,
		WebsiteRedirectLocation: head.WebsiteRedirectLocation,
		StorageClass:            types.StorageClass(head.StorageClass),
		Metadata:                maps.Clone(head.Metadata),
	}
	if h.cfg.ACL != "" {
		in.ACL = types.ObjectCannedACL(h.cfg.ACL)
	}
	if head.ServerSideEncryption == types.ServerSideEncryptionAwsKms {
		in.ServerSideEncryption = head.ServerSideEncryption
		in.SSEKMSKeyId = head.SSEKMSKeyId
	}
	if in.Metadata == nil {
		in.Metadata = make(map[string]string, len(h.cfg.Metadata))
	}

	var changed []string
	set := func(name string, dst **string, want string) {
		if want != "" && aws.ToString(*dst) != want {
			*dst = aws.String(want)
			changed = append(changed, name)
		}
	}
	set("Cache-Control", &in.CacheControl, h.cfg.CacheControl)
	set("Content-Type", &in.ContentType, h.cfg.ContentType)
	set("Content-Disposition", &in.ContentDisposition, h.cfg.ContentDisposition)
	set("Content-Encoding", &in.ContentEncoding, h.cfg.ContentEncoding)

	for _, k := range slices.Sorted(maps.Keys(h.cfg.Metadata)) {
		if cur, ok := in.Metadata[k]; !ok || cur != h.cfg.Metadata[k] {
			in.Metadata[k] = h.cfg.Metadata[k]
			changed = append(changed, "x-amz-meta-"+k)
		}
	}
	return in, changed
}

// copySource is "bucket/key" with each key segment URL-escaped.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}
