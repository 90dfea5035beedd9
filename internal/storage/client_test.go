package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisdata/aisup/errors"
	"github.com/aisdata/aisup/internal/testutil"
)

func TestBucketExists(t *testing.T) {
	tests := []struct {
		name    string
		headErr error
		want    bool
		wantErr bool
	}{
		{
			name: "bucket exists",
			want: true,
		},
		{
			name:    "bucket missing",
			headErr: &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"},
			want:    false,
		},
		{
			name:    "access denied",
			headErr: &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockS3Client{
				HeadBucketFunc: func(_ context.Context, params *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
					assert.Equal(t, "ais-archive", aws.ToString(params.Bucket))
					if tt.headErr != nil {
						return nil, tt.headErr
					}
					return &s3.HeadBucketOutput{}, nil
				},
			}

			exists, err := NewWithClient(mock).BucketExists(context.Background(), "ais-archive")
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrAccessDenied)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, exists)
		})
	}
}

func TestBucketRegion(t *testing.T) {
	tests := []struct {
		name       string
		constraint awstypes.BucketLocationConstraint
		want       string
	}{
		{"explicit region", awstypes.BucketLocationConstraintEuWest1, "eu-west-1"},
		{"empty constraint means us-east-1", "", "us-east-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockS3Client{
				GetBucketLocationFunc: func(_ context.Context, _ *s3.GetBucketLocationInput, _ ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error) {
					return &s3.GetBucketLocationOutput{LocationConstraint: tt.constraint}, nil
				},
			}

			region, err := NewWithClient(mock).BucketRegion(context.Background(), "b")
			require.NoError(t, err)
			assert.Equal(t, tt.want, region)
		})
	}
}

func TestHeadObject(t *testing.T) {
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			assert.Equal(t, "2024/01/a.rar", aws.ToString(params.Key))
			return &s3.HeadObjectOutput{
				ContentLength: aws.Int64(1234),
				ETag:          aws.String(`"abc123"`),
			}, nil
		},
	}

	info, err := NewWithClient(mock).HeadObject(context.Background(), "b", "2024/01/a.rar")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), info.Size)
	assert.Equal(t, "abc123", info.ETag, "quotes are stripped")
}

func TestHeadObjectNotFound(t *testing.T) {
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return nil, &awstypes.NotFound{Message: aws.String("Not Found")}
		},
	}

	_, err := NewWithClient(mock).HeadObject(context.Background(), "b", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrObjectNotFound)
	assert.True(t, errors.IsObjectNotFound(err))
}

func TestPutObject(t *testing.T) {
	payload := []byte("ais archive payload")
	mock := &testutil.MockS3Client{
		PutObjectFunc: func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			body, err := io.ReadAll(params.Body)
			require.NoError(t, err)
			assert.Equal(t, payload, body)
			assert.Equal(t, int64(len(payload)), aws.ToInt64(params.ContentLength))
			assert.Equal(t, "application/zip", aws.ToString(params.ContentType))
			return &s3.PutObjectOutput{ETag: aws.String(testutil.CalculateETag(body))}, nil
		},
	}

	etag, err := NewWithClient(mock).PutObject(
		context.Background(), "b", "k", bytes.NewReader(payload), int64(len(payload)), "application/zip")
	require.NoError(t, err)
	assert.NotContains(t, etag, `"`)
}

func TestMultipartLifecycle(t *testing.T) {
	var completedNumbers []int32
	mock := &testutil.MockS3Client{
		CreateMultipartUploadFunc: func(_ context.Context, params *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
			assert.Equal(t, "application/octet-stream", aws.ToString(params.ContentType))
			return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-42")}, nil
		},
		UploadPartFunc: func(_ context.Context, params *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
			assert.Equal(t, "upload-42", aws.ToString(params.UploadId))
			return &s3.UploadPartOutput{ETag: aws.String(`"part-etag"`)}, nil
		},
		CompleteMultipartUploadFunc: func(_ context.Context, params *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
			for _, p := range params.MultipartUpload.Parts {
				completedNumbers = append(completedNumbers, aws.ToInt32(p.PartNumber))
			}
			return &s3.CompleteMultipartUploadOutput{ETag: aws.String(`"final-etag"`)}, nil
		},
	}
	client := NewWithClient(mock)
	ctx := context.Background()

	uploadID, err := client.CreateMultipart(ctx, "b", "k", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "upload-42", uploadID)

	etag, err := client.UploadPart(ctx, "b", "k", uploadID, 1, bytes.NewReader([]byte("x")), 1)
	require.NoError(t, err)
	assert.Equal(t, "part-etag", etag)

	final, err := client.CompleteMultipart(ctx, "b", "k", uploadID, []CompletedPart{
		{Number: 1, ETag: "part-etag"},
		{Number: 2, ETag: "part-etag-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "final-etag", final)
	assert.Equal(t, []int32{1, 2}, completedNumbers)
}

func TestAbortMultipartIdempotent(t *testing.T) {
	mock := &testutil.MockS3Client{
		AbortMultipartUploadFunc: func(_ context.Context, _ *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
			return nil, &awstypes.NoSuchUpload{Message: aws.String("gone")}
		},
	}

	err := NewWithClient(mock).AbortMultipart(context.Background(), "b", "k", "stale-upload")
	assert.NoError(t, err, "aborting an unknown session is not an error")
}

func TestListObjectsPaginates(t *testing.T) {
	calls := 0
	mock := &testutil.MockS3Client{
		ListObjectsV2Func: func(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			calls++
			assert.Equal(t, "2024/", aws.ToString(params.Prefix))
			switch calls {
			case 1:
				return &s3.ListObjectsV2Output{
					Contents: []awstypes.Object{
						{Key: aws.String("2024/01/a.rar"), Size: aws.Int64(10)},
					},
					IsTruncated:           aws.Bool(true),
					NextContinuationToken: aws.String("next"),
				}, nil
			default:
				assert.Equal(t, "next", aws.ToString(params.ContinuationToken))
				return &s3.ListObjectsV2Output{
					Contents: []awstypes.Object{
						{Key: aws.String("2024/02/b.rar"), Size: aws.Int64(20)},
					},
					IsTruncated: aws.Bool(false),
				}, nil
			}
		},
	}

	objects, err := NewWithClient(mock).ListObjects(context.Background(), "b", "2024/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "2024/01/a.rar", objects[0].Key)
	assert.Equal(t, int64(20), objects[1].Size)
	assert.Equal(t, 2, calls)
}

func TestClassifyConnectionError(t *testing.T) {
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return nil, io.ErrUnexpectedEOF
		},
	}

	_, err := NewWithClient(mock).HeadObject(context.Background(), "b", "k")
	require.Error(t, err)
	// Unrecognized failures pass through unclassified.
	assert.False(t, errors.IsObjectNotFound(err))
}
