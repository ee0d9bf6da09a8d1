package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/streamshare/streamshare/internal/config"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
)

type s3Storage struct {
	client *s3.Client
	config config.S3Config
	logger *logger.Logger
}

// NewStorage returns the S3 backed storage, or a storage that refuses uploads when S3 is disabled
func NewStorage(cfg *config.Configuration, logger *logger.Logger) (Storage, error) {
	if !cfg.S3.Enabled {
		logger.Warnw("s3 is disabled, proof uploads will fail")
		return &disabledStorage{}, nil
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(context.Background(),
		awsConfig.WithRegion(cfg.S3.Region),
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to load aws config").
			Mark(ierr.ErrSystem)
	}

	return &s3Storage{
		client: s3.NewFromConfig(awsCfg),
		config: cfg.S3,
		logger: logger,
	}, nil
}

func (s *s3Storage) Upload(ctx context.Context, file *File, key string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file.Data),
		ContentType: aws.String(file.ContentType),
	})
	if err != nil {
		s.logger.Errorw("failed to upload file to s3",
			"bucket", s.config.Bucket,
			"key", key,
			"error", err,
		)
		return "", ierr.WithError(err).
			WithHint("Could not store the proof of payment, please try again").
			Mark(ierr.ErrSystem)
	}

	return s.objectURL(key), nil
}

func (s *s3Storage) Delete(ctx context.Context, fileURL string) error {
	base := s.objectURL("")
	if !strings.HasPrefix(fileURL, base) {
		return ierr.NewErrorf("url %s is not in bucket %s", fileURL, s.config.Bucket).
			WithHint("The file does not belong to this storage").
			Mark(ierr.ErrValidation)
	}
	key := strings.TrimPrefix(fileURL, base)

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Could not remove the stored file").
			Mark(ierr.ErrSystem)
	}
	return nil
}

func (s *s3Storage) objectURL(key string) string {
	if s.config.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.config.PublicBaseURL, "/"), key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.Bucket, s.config.Region, key)
}

type disabledStorage struct{}

func (d *disabledStorage) Upload(ctx context.Context, file *File, key string) (string, error) {
	return "", ierr.NewError("file storage is disabled").
		WithHint("File uploads are not available").
		Mark(ierr.ErrSystem)
}

func (d *disabledStorage) Delete(ctx context.Context, fileURL string) error {
	return nil
}
