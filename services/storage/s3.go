package storagesvc

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core"
)

// s3Storage talks to any S3-compatible endpoint (AWS, MinIO, etc.). Buckets
// hold public-read objects; URLs are derived, never signed.
type s3Storage struct {
	client *s3.Client
	conf   core.StorageConfig
}

var _ core.FileStorage = (*s3Storage)(nil)

func NewS3Storage(ctx context.Context, conf *core.Config) (*s3Storage, error) {
	awsConf, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(conf.Storage.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.Storage.AccessKey, conf.Storage.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "loading storage config")
	}

	client := s3.NewFromConfig(awsConf, func(o *s3.Options) {
		if conf.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Storage.Endpoint)
			o.UsePathStyle = true // MinIO and friends
		}
	})
	return &s3Storage{client: client, conf: conf.Storage}, nil
}

func (st *s3Storage) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := st.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}

	_, err = st.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
		ACL:    types.BucketCannedACLPublicRead,
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return errors.Wrapf(err, "creating bucket %s", bucket)
	}
	return nil
}

func (st *s3Storage) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error) {
	_, err := st.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", errors.Wrapf(err, "uploading %s/%s", bucket, key)
	}
	return st.PublicURL(bucket, key), nil
}

func (st *s3Storage) Remove(ctx context.Context, bucket, key string) error {
	_, err := st.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "removing %s/%s", bucket, key)
}

func (st *s3Storage) PublicURL(bucket, key string) string {
	if st.conf.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(st.conf.PublicBaseURL, "/"), bucket, key)
	}
	if st.conf.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(st.conf.Endpoint, "/"), bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, st.conf.Region, key)
}
