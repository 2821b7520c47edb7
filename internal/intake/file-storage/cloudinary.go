package filestorage

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sobdigital/sob-intake/internal/intake/apierrors"
	"github.com/sobdigital/sob-intake/internal/intake/config"
)

// CloudinaryStorage загружает файлы в Cloudinary через подписанный
// REST-запрос (ресурс auto: принимает любые типы файлов).
type CloudinaryStorage struct {
	client    *http.Client
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
}

func NewCloudinaryStorage(cfg *config.Config) (*CloudinaryStorage, error) {
	required := map[string]string{
		"CLOUDINARY_CLOUD_NAME": cfg.CloudinaryCloudName,
		"CLOUDINARY_API_KEY":    cfg.CloudinaryAPIKey,
		"CLOUDINARY_API_SECRET": cfg.CloudinaryAPISecret,
	}
	for name, value := range required {
		if value == "" {
			return nil, apierrors.ErrCloudinaryConfigMissing.AddErrorMeta(name)
		}
	}

	return &CloudinaryStorage{
		client:    &http.Client{Timeout: 60 * time.Second},
		cloudName: cfg.CloudinaryCloudName,
		apiKey:    cfg.CloudinaryAPIKey,
		apiSecret: cfg.CloudinaryAPISecret,
		folder:    cfg.CloudinaryFolder,
	}, nil
}

// signature - sha1 от отсортированных параметров запроса + API secret,
// по правилам подписанных загрузок Cloudinary.
func (c *CloudinaryStorage) signature(folder, publicID string, timestamp int64) string {
	toSign := fmt.Sprintf("folder=%s&public_id=%s&timestamp=%d%s", folder, publicID, timestamp, c.apiSecret)
	return fmt.Sprintf("%x", sha1.Sum([]byte(toSign)))
}

func (c *CloudinaryStorage) Upload(ctx context.Context, data []byte, filename string, contentType string) (*UploadResult, error) {
	timestamp := time.Now().Unix()
	publicID := collisionFreeName(strings.TrimSuffix(filename, filepath.Ext(filename)))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"api_key":   c.apiKey,
		"timestamp": fmt.Sprintf("%d", timestamp),
		"folder":    c.folder,
		"public_id": publicID,
		"signature": c.signature(c.folder, publicID, timestamp),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}

	part, err := writer.CreateFormFile("file", SanitizeName(filename))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/auto/upload", c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("cloudinary: status %d: %s", resp.StatusCode, detail)
	}

	var uploaded struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return nil, err
	}
	if uploaded.SecureURL == "" {
		return nil, apierrors.ErrUploadFailed
	}
	return &UploadResult{URL: uploaded.SecureURL}, nil
}
