package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sobdigital/sob-intake/internal/intake/apierrors"
	"github.com/sobdigital/sob-intake/internal/intake/config"
)

// S3Storage загружает файлы в S3-совместимое хранилище (Minio, AWS S3).
type S3Storage struct {
	client     *minio.Client
	endpoint   string
	bucketName string
	useSSL     bool
}

func NewS3Storage(cfg *config.Config) (*S3Storage, error) {
	required := map[string]string{
		"AWS_S3_ENDPOINT_URL":   cfg.AWSEndpoint,
		"AWS_ACCESS_KEY_ID":     cfg.AWSAccessKey,
		"AWS_SECRET_ACCESS_KEY": cfg.AWSSecretKey,
		"AWS_S3_BUCKET_NAME":    cfg.AWSBucketName,
	}
	for name, value := range required {
		if value == "" {
			return nil, apierrors.ErrS3ConfigMissing.AddErrorMeta(name)
		}
	}

	useSSL := strings.HasPrefix(cfg.AWSEndpoint, "https://")
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.AWSEndpoint, "https://"), "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(context.Background(), cfg.AWSBucketName)
	if err != nil {
		return nil, err
	}
	if !exists {
		// Create bucket if not exist
		if err := client.MakeBucket(context.Background(), cfg.AWSBucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &S3Storage{
		client:     client,
		endpoint:   endpoint,
		bucketName: cfg.AWSBucketName,
		useSSL:     useSSL,
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, data []byte, filename string, contentType string) (*UploadResult, error) {
	objectName := collisionFreeName(filename)

	_, err := s.client.PutObject(ctx,
		s.bucketName,
		objectName,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return nil, err
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return &UploadResult{
		URL: fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucketName, url.PathEscape(objectName)),
	}, nil
}
