package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rotisserie/eris"

	"github.com/stratabase/borecore/internal/fault"
)

// S3Config holds explicit construction parameters for the S3 driver.
// Endpoint enables MinIO and other S3-compatible stores.
type S3Config struct {
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Region          string `yaml:"region" mapstructure:"region"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style" mapstructure:"path_style"`
}

// S3 is a Store over a single S3 / MinIO bucket. Keys map to object keys
// directly.
type S3 struct {
	client s3API
	bucket string
}

// s3API is the subset of the SDK client the driver uses; tests substitute it.
type s3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3 builds an S3 store from config, falling back to the default AWS
// credential chain when no static keys are given.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, eris.New("blob: s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "blob: load aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3) Driver() Driver { return DriverS3 }

func (s *S3) List(ctx context.Context, prefix string, max int) ([]Info, error) {
	max = clampMax(max)
	var (
		out   []Info
		token *string
	)
	for {
		pageSize := int32(1000)
		if remaining := max - len(out); remaining < 1000 {
			pageSize = int32(remaining)
		}
		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			MaxKeys:           aws.Int32(pageSize),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fault.StoreUnavailable(err, "blob: s3 list "+prefix)
		}
		for _, obj := range resp.Contents {
			info := Info{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				info.LastModified = obj.LastModified.UTC()
			}
			out = append(out, info)
		}
		if len(out) >= max || resp.NextContinuationToken == nil {
			break
		}
		token = resp.NextContinuationToken
	}
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fault.NotFound("blob %s", key)
		}
		return nil, fault.StoreUnavailable(err, "blob: s3 get "+key)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.StoreUnavailable(err, "blob: s3 read "+key)
	}
	return b, nil
}

func (s *S3) Put(ctx context.Context, key string, body []byte, contentType string) error {
	in := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: bytes.NewReader(body)}
	if contentType != "" {
		in.ContentType = &contentType
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fault.StoreUnavailable(err, "blob: s3 put "+key)
	}
	return nil
}

func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fault.StoreUnavailable(err, "blob: s3 head "+key)
	}
	return true, nil
}

func (s *S3) Delete(ctx context.Context, key string) (bool, error) {
	existed, err := s.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return false, fault.StoreUnavailable(err, "blob: s3 delete "+key)
	}
	return true, nil
}

// isS3NotFound matches the SDK's typed and untyped missing-object errors.
func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "StatusCode: 404")
}
