package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/config"
)

// UploadSigner hands out time-limited URLs the client uploads banner and
// inline images to.
type UploadSigner interface {
	PresignUpload(ctx context.Context) (string, error)
}

type S3UploadSigner struct {
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
	now     func() time.Time
}

// NewS3UploadSigner builds a signer from static keys when configured,
// otherwise from the default AWS credential chain.
func NewS3UploadSigner(ctx context.Context, cfg *config.Config) (*S3UploadSigner, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return newS3UploadSigner(s3.NewFromConfig(awsCfg), cfg.AWSBucketName, cfg.UploadURLExpiry), nil
}

func newS3UploadSigner(client *s3.Client, bucket string, expiry time.Duration) *S3UploadSigner {
	return &S3UploadSigner{
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		expiry:  expiry,
		now:     time.Now,
	}
}

func (s *S3UploadSigner) PresignUpload(ctx context.Context) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadSigning, err)
	}
	key := fmt.Sprintf("%s_%d.jpeg", id, s.now().UnixMilli())

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String("image/jpeg"),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadSigning, err)
	}
	return req.URL, nil
}
