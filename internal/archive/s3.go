package archive

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sfextract/sf-attachments/internal/config"
	"github.com/sfextract/sf-attachments/internal/http"
)

// S3Archiver uploads to one bucket with PutObject.
type S3Archiver struct {
	client *s3.Client
	bucket string
}

// NewS3Archiver builds a client from cfg. Static credentials are used when
// both ARCHIVE_ACCESS_KEY_ID and ARCHIVE_SECRET_ACCESS_KEY are set; otherwise
// the default AWS credential chain applies.
func NewS3Archiver(ctx context.Context, cfg *config.Config) (*S3Archiver, error) {
	if cfg.ArchiveBucket == "" {
		return nil, fmt.Errorf("archive bucket is required for s3")
	}

	// Proxy settings apply to archive uploads too
	httpClient, err := http.CreateTransferClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(httpClient),
	}
	if cfg.ArchiveRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.ArchiveRegion))
	}
	if cfg.ArchiveAccessKey != "" && cfg.ArchiveSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
			cfg.ArchiveAccessKey,
			cfg.ArchiveSecretKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Archiver{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.ArchiveBucket,
	}, nil
}

// Name implements Archiver.
func (a *S3Archiver) Name() string {
	return "s3://" + a.bucket
}

// Upload implements Archiver.
func (a *S3Archiver) Upload(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(localPath)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// contentType guesses from the extension, defaulting to octet-stream.
func contentType(localPath string) string {
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
