package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

const driverS3 = "s3"

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // MinIO and other S3-compatible services
	PathStyle       bool
	AccessKeyID     string // empty uses the default credential chain
	SecretAccessKey string
	PresignExpiry   time.Duration
	MaxUploadBytes  int64
}

// S3AssetStore keeps images in one bucket and resolves them to presigned
// GET URLs.
type S3AssetStore struct {
	client   *s3.Client
	presign  *s3.PresignClient
	bucket   string
	expiry   time.Duration
	maxBytes int64
}

func NewS3AssetStore(ctx context.Context, cfg S3Config) (*S3AssetStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3AssetStore(client, cfg), nil
}

func newS3AssetStore(client *s3.Client, cfg S3Config) *S3AssetStore {
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &S3AssetStore{
		client:   client,
		presign:  s3.NewPresignClient(client),
		bucket:   cfg.Bucket,
		expiry:   expiry,
		maxBytes: cfg.MaxUploadBytes,
	}
}

func (s *S3AssetStore) Store(ctx context.Context, data []byte) (string, error) {
	img, err := DetectImage(data, s.maxBytes)
	if err != nil {
		return "", err
	}

	key := newObjectKey(img.Extension, time.Now().UTC())
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(img.MIME),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	return formatRef(driverS3, key), nil
}

// Resolve checks the object exists and returns a presigned GET URL.
func (s *S3AssetStore) Resolve(ctx context.Context, ref string) (string, error) {
	key, err := parseRef(driverS3, ref)
	if err != nil {
		return "", err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
			return "", assetNotFound(ref)
		}
		return "", fmt.Errorf("storage: head %s: %w", key, err)
	}

	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) { po.Expires = s.expiry })
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", key, err)
	}
	return out.URL, nil
}
