package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"davgate/internal/dav"
)

// S3Options configures an S3Store.
type S3Options struct {
	Bucket string
	Prefix string // prepended to every key, e.g. "uploads/"
	Region string

	// Endpoint points the client at an S3-compatible service such as MinIO.
	Endpoint     string
	UsePathStyle bool

	// Static credentials; when empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store keeps blobs as objects in one bucket. Uploads stream through the
// multipart uploader so bodies of unknown length are never buffered whole.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Store builds an S3 client from opts. It does not contact the
// service; call ValidateSetup for that.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 blob store requires a bucket")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	return NewS3StoreFromClient(client, opts.Bucket, opts.Prefix), nil
}

// NewS3StoreFromClient wraps an existing client.
func NewS3StoreFromClient(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (s *S3Store) objectKey(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return s.prefix + key, nil
}

// Put uploads the content of r under key. S3 only exposes an object once
// the upload completes; an upload whose length does not match size is
// removed again.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64) (int64, error) {
	objKey, err := s.objectKey(key)
	if err != nil {
		return 0, err
	}

	cr := &countingReader{r: r}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objKey),
		Body:   cr,
	})
	if err != nil {
		return 0, fmt.Errorf("uploading %s: %w", key, readError(err))
	}

	if size >= 0 && cr.n != size {
		_ = s.Delete(context.WithoutCancel(ctx), key)
		return 0, fmt.Errorf("expected %d bytes, got %d: %w", size, cr.n, dav.ErrSizeMismatch)
	}
	return cr.n, nil
}

// Open returns the object body and its size. The caller must close it.
func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	objKey, err := s.objectKey(key)
	if err != nil {
		return nil, 0, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		return nil, 0, s3Error(key, err)
	}
	return out.Body, aws.ToInt64(out.ContentLength), nil
}

// Stat returns the size of the object.
func (s *S3Store) Stat(ctx context.Context, key string) (int64, error) {
	objKey, err := s.objectKey(key)
	if err != nil {
		return 0, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		return 0, s3Error(key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// Delete removes the object. S3 deletes are idempotent, so a missing key is
// checked first to keep the dav.BlobStore contract.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if _, err := s.Stat(ctx, key); err != nil {
		return err
	}
	objKey, _ := s.objectKey(key)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		return s3Error(key, err)
	}
	return nil
}

// Copy duplicates an object server-side.
func (s *S3Store) Copy(ctx context.Context, srcKey string, dstKey string) error {
	srcObj, err := s.objectKey(srcKey)
	if err != nil {
		return err
	}
	dstObj, err := s.objectKey(dstKey)
	if err != nil {
		return err
	}
	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dstObj),
		CopySource: aws.String(copySource(s.bucket, srcObj)),
	})
	if err != nil {
		return s3Error(srcKey, err)
	}
	return nil
}

// ValidateSetup checks that the bucket exists and is reachable with the
// configured credentials.
func (s *S3Store) ValidateSetup(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", s.bucket, err)
	}
	return nil
}

// copySource renders the x-amz-copy-source value: bucket and URL-encoded key.
func copySource(bucket, objKey string) string {
	parts := strings.Split(objKey, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return bucket + "/" + strings.Join(parts, "/")
}

// s3Error maps missing objects to dav.ErrBlobNotFound. GetObject and
// CopyObject report NoSuchKey; HeadObject has no body and reports NotFound.
func s3Error(key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%s: %w", key, dav.ErrBlobNotFound)
		}
	}
	return fmt.Errorf("blob %s: %w", key, err)
}

// countingReader counts the bytes handed to the uploader.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Compile-time check that S3Store implements dav.BlobStore
var _ dav.BlobStore = (*S3Store)(nil)
