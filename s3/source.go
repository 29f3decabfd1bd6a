package s3

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kbukum/sweep/errors"
	"github.com/kbukum/sweep/pipeline"
)

// maxKeys is the largest page S3 returns for one ListObjectsV2 call.
const maxKeys = 1000

// Object is one listed key.
type Object struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ObjectKey returns o.Key.
func ObjectKey(o Object) string { return o.Key }

// Source lists a bucket in key order using StartAfter as the page marker.
type Source struct {
	api    ListAPI
	bucket string
}

var _ pipeline.Source[Object] = (*Source)(nil)

// NewSource returns a Source over bucket.
func NewSource(api ListAPI, bucket string) *Source {
	return &Source{api: api, bucket: bucket}
}

// FetchPage lists at most pageSize objects under prefix after marker.
func (s *Source) FetchPage(ctx context.Context, prefix, marker string, pageSize int) ([]Object, error) {
	pageSize = min(max(pageSize, 1), maxKeys)

	in := &awss3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(int32(pageSize)),
	}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}
	if marker != "" {
		in.StartAfter = aws.String(marker)
	}

	out, err := s.api.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, errors.ExternalServiceError("s3", err).
			WithDetail("bucket", s.bucket).
			WithDetail("start_after", marker)
	}

	page := make([]Object, 0, len(out.Contents))
	for _, c := range out.Contents {
		page = append(page, Object{
			Key:          aws.ToString(c.Key),
			Size:         aws.ToInt64(c.Size),
			ETag:         aws.ToString(c.ETag),
			LastModified: aws.ToTime(c.LastModified),
		})
	}
	return page, nil
}

// Key returns the object key.
func (s *Source) Key(o Object) string { return o.Key }
