package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Offsite copies backup artifacts to an S3-compatible bucket so a lost host
// does not take the backup history with it. Uploads are best-effort from the
// deploy pipeline's point of view: a failed offsite copy is logged and
// reported, it never fails a deployment.
type Offsite struct {
	logger    zerolog.Logger
	bucket    string
	endpoint  string
	region    string
	accessKey string
	secretKey string
}

func NewOffsite(logger zerolog.Logger, bucket, endpoint, region, accessKey, secretKey string) *Offsite {
	return &Offsite{
		logger:    logger.With().Str("component", "backup-offsite").Logger(),
		bucket:    bucket,
		endpoint:  endpoint,
		region:    region,
		accessKey: accessKey,
		secretKey: secretKey,
	}
}

// Enabled reports whether an offsite bucket is configured.
func (o *Offsite) Enabled() bool {
	return o.bucket != ""
}

func (o *Offsite) client() *s3.Client {
	opts := s3.Options{
		Region:       o.region,
		UsePathStyle: true,
	}
	if o.endpoint != "" {
		opts.BaseEndpoint = aws.String(o.endpoint)
	}
	if o.accessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(o.accessKey, o.secretKey, "")
	}
	return s3.New(opts)
}

// Upload streams a local artifact to the bucket under its base name.
func (o *Offsite) Upload(ctx context.Context, artifactPath string) error {
	f, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("open backup for upload: %w", err)
	}
	defer f.Close()

	key := filepath.Base(artifactPath)
	_, err = o.client().PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("upload backup %s to s3://%s: %w", key, o.bucket, err)
	}

	o.logger.Info().Str("bucket", o.bucket).Str("key", key).Msg("backup copied offsite")
	return nil
}
