package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// S3Store implements Store against a single S3 bucket, via the AWS SDK or any
// S3-compatible endpoint (Ceph RGW, MinIO) when Endpoint is set.
type S3Store struct {
	logger zerolog.Logger
	client *s3.Client
	bucket string
}

// S3Options configures an S3Store.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string // empty for AWS S3
	AccessKey string
	SecretKey string
}

// NewS3Store creates an S3Store.
func NewS3Store(logger zerolog.Logger, opts S3Options) *S3Store {
	s3opts := s3.Options{
		Region: opts.Region,
	}
	if opts.Endpoint != "" {
		s3opts.BaseEndpoint = aws.String(opts.Endpoint)
		s3opts.UsePathStyle = true
	}
	if opts.AccessKey != "" {
		s3opts.Credentials = credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")
	}

	return &S3Store{
		logger: logger.With().Str("component", "s3-store").Logger(),
		client: s3.New(s3opts),
		bucket: opts.Bucket,
	}
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, meta Meta) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if meta.ContentType != "" {
		input.ContentType = aws.String(meta.ContentType)
	}
	if meta.CacheControl != "" {
		input.CacheControl = aws.String(meta.CacheControl)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return body, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, Object{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return objects, nil
}

func (s *S3Store) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	var prefixes []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list prefixes under %q: %w", prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				prefixes = append(prefixes, name)
			}
		}
	}
	return prefixes, nil
}

// CopyTree copies every object under srcPrefix to the same relative key under
// dstPrefix. It aborts on the first failed copy and reports how many objects
// were copied before the failure; partial results are left in place.
func (s *S3Store) CopyTree(ctx context.Context, srcPrefix, dstPrefix string) (int, error) {
	objects, err := s.List(ctx, srcPrefix)
	if err != nil {
		return 0, err
	}

	copied := 0
	for _, obj := range objects {
		dstKey := dstPrefix + strings.TrimPrefix(obj.Key, srcPrefix)
		_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:            aws.String(s.bucket),
			Key:               aws.String(dstKey),
			CopySource:        aws.String(s.bucket + "/" + obj.Key),
			MetadataDirective: s3types.MetadataDirectiveCopy,
		})
		if err != nil {
			return copied, fmt.Errorf("copy %s to %s: %w", obj.Key, dstKey, err)
		}
		copied++
	}

	s.logger.Debug().Str("src", srcPrefix).Str("dst", dstPrefix).Int("objects", copied).Msg("copied tree")
	return copied, nil
}

func (s *S3Store) DeletePrefix(ctx context.Context, prefix string) error {
	objects, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		return nil
	}

	// DeleteObjects accepts at most 1000 keys per request.
	for i := 0; i < len(objects); i += 1000 {
		end := min(i+1000, len(objects))
		batch := make([]s3types.ObjectIdentifier, 0, end-i)
		for _, obj := range objects[i:end] {
			batch = append(batch, s3types.ObjectIdentifier{Key: aws.String(obj.Key)})
		}
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete prefix %s: %w", prefix, err)
		}
	}
	return nil
}
