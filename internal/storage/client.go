// Package storage implements the object-store client used by the uploader.
//
// The Client is a thin wrapper over the AWS SDK S3 client: connection setup,
// bucket checks, simple PUTs and the four multipart primitives. All failures
// are classified into the sentinel errors of the errors package so callers
// can branch with errors.Is instead of inspecting SDK types.
package storage

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/aisdata/aisup/errors"
	"github.com/aisdata/aisup/internal/s3api"
)

// ObjectInfo describes a remote object as reported by the store.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// CompletedPart is one finalized part of a multipart upload, as handed to
// CompleteMultipart. Parts must be ordered ascending by Number.
type CompletedPart struct {
	Number int32
	ETag   string
}

// Client wraps the AWS SDK S3 client with the operations the uploader needs.
type Client struct {
	api s3api.S3API
}

// New creates a new client with the provided options. Credentials come from
// the default AWS chain unless static credentials are given.
//
// Example:
//
//	client, err := storage.New(ctx,
//	    storage.WithRegion("us-west-2"),
//	    storage.WithMaxRetries(3),
//	)
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &ClientConfig{
		Region:     "us-east-1",
		MaxRetries: 3,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	if cfg.MaxRetries > 0 {
		loadOpts = append(loadOpts, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.NewError("client initialization", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if cfg.Timeout > 0 {
		httpClient := &http.Client{Timeout: cfg.Timeout}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	return &Client{api: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

// NewWithClient creates a client backed by a custom S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(api s3api.S3API) *Client {
	return &Client{api: api}
}

// BucketExists checks whether the bucket exists and is reachable with the
// current credentials.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		classified := classify(err)
		if stderrors.Is(classified, errors.ErrBucketNotFound) || stderrors.Is(classified, errors.ErrObjectNotFound) {
			return false, nil
		}
		return false, errors.NewError("headBucket", classified).WithBucket(bucket)
	}
	return true, nil
}

// BucketRegion returns the region the bucket resides in. An empty location
// constraint means us-east-1.
func (c *Client) BucketRegion(ctx context.Context, bucket string) (string, error) {
	out, err := c.api.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return "", errors.NewError("getBucketLocation", classify(err)).WithBucket(bucket)
	}
	if out.LocationConstraint == "" {
		return "us-east-1", nil
	}
	return string(out.LocationConstraint), nil
}

// HeadObject returns size and integrity tag for a remote object, or an error
// wrapping ErrObjectNotFound when the key does not exist.
func (c *Client) HeadObject(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.NewObjectError("headObject", bucket, key, classify(err))
	}

	info := &ObjectInfo{
		Key:  key,
		ETag: trimETag(aws.ToString(out.ETag)),
	}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, nil
}

// PutObject uploads an object in a single request and returns its integrity tag.
func (c *Client) PutObject(
	ctx context.Context,
	bucket, key string,
	body io.Reader,
	size int64,
	contentType string,
) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	out, err := c.api.PutObject(ctx, input)
	if err != nil {
		return "", errors.NewObjectError("putObject", bucket, key, classify(err))
	}
	return trimETag(aws.ToString(out.ETag)), nil
}

// CreateMultipart opens a multipart upload session and returns its token.
func (c *Client) CreateMultipart(ctx context.Context, bucket, key, contentType string) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	out, err := c.api.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", errors.NewObjectError("createMultipartUpload", bucket, key, classify(err))
	}
	return aws.ToString(out.UploadId), nil
}

// UploadPart transmits one part of an open multipart session and returns the
// part's integrity tag.
func (c *Client) UploadPart(
	ctx context.Context,
	bucket, key, uploadID string,
	partNumber int32,
	body io.Reader,
	size int64,
) (string, error) {
	out, err := c.api.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", errors.NewObjectError("uploadPart", bucket, key, classify(err))
	}
	return trimETag(aws.ToString(out.ETag)), nil
}

// CompleteMultipart finalizes a multipart session from parts ordered
// ascending by part number. Returns the aggregate integrity tag.
func (c *Client) CompleteMultipart(
	ctx context.Context,
	bucket, key, uploadID string,
	parts []CompletedPart,
) (string, error) {
	completed := make([]awstypes.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = awstypes.CompletedPart{
			PartNumber: aws.Int32(p.Number),
			ETag:       aws.String(p.ETag),
		}
	}

	out, err := c.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return "", errors.NewObjectError("completeMultipartUpload", bucket, key, classify(err))
	}
	return trimETag(aws.ToString(out.ETag)), nil
}

// AbortMultipart discards all uploaded parts of a session. The operation is
// idempotent: aborting an unknown session is not an error.
func (c *Client) AbortMultipart(ctx context.Context, bucket, key, uploadID string) error {
	_, err := c.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		var noSuchUpload *awstypes.NoSuchUpload
		if stderrors.As(err, &noSuchUpload) {
			return nil
		}
		return errors.NewObjectError("abortMultipartUpload", bucket, key, classify(err))
	}
	return nil
}

// ListObjects lists all objects under a prefix, following pagination.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	var continuationToken *string

	for {
		out, err := c.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
			MaxKeys:           aws.Int32(1000),
		})
		if err != nil {
			return nil, errors.NewError("listObjects", classify(err)).WithBucket(bucket)
		}

		for _, obj := range out.Contents {
			info := ObjectInfo{Key: aws.ToString(obj.Key)}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			if obj.ETag != nil {
				info.ETag = trimETag(*obj.ETag)
			}
			objects = append(objects, info)
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuationToken = out.NextContinuationToken
	}

	return objects, nil
}

// classify maps AWS SDK errors onto the sentinel errors of the errors
// package, preserving the original error in the chain.
func classify(err error) error {
	var notFound *awstypes.NotFound
	if stderrors.As(err, &notFound) {
		return joinSentinel(errors.ErrObjectNotFound, err)
	}
	var noSuchKey *awstypes.NoSuchKey
	if stderrors.As(err, &noSuchKey) {
		return joinSentinel(errors.ErrObjectNotFound, err)
	}
	var noSuchBucket *awstypes.NoSuchBucket
	if stderrors.As(err, &noSuchBucket) {
		return joinSentinel(errors.ErrBucketNotFound, err)
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return joinSentinel(errors.ErrObjectNotFound, err)
		case "NoSuchBucket":
			return joinSentinel(errors.ErrBucketNotFound, err)
		case "AccessDenied", "Forbidden", "403":
			return joinSentinel(errors.ErrAccessDenied, err)
		}
		return err
	}

	// Anything that never produced an API response is a connection problem.
	if strings.Contains(err.Error(), "connection") || strings.Contains(err.Error(), "dial") {
		return joinSentinel(errors.ErrConnection, err)
	}
	return err
}

// joinSentinel attaches a sentinel to err so both match with errors.Is.
func joinSentinel(sentinel, err error) error {
	return stderrors.Join(sentinel, err)
}

// trimETag strips the quotes S3 wraps around integrity tags.
func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}
