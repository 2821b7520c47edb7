// Пакет предоставляет интерфейс и реализации для загрузки файлов заявок во
// внешние блоб-хранилища: Cloudinary, Google Drive, файловый API хранилища
// записей и S3/Minio. Конкретная реализация выбирается конфигурацией.
//
// Основные возможности:
//   - Единый контракт Upload(buffer, filename) -> {url | token}.
//   - Выбор стратегии по STORAGE_PROVIDER.
//   - Устойчивые к коллизиям имена файлов (имя + метка времени).
//   - Быстрый отказ с описательной ошибкой при неполной конфигурации,
//     до каких-либо сетевых вызовов.
package filestorage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/sobdigital/sob-intake/internal/intake/airtable"
	"github.com/sobdigital/sob-intake/internal/intake/apierrors"
	"github.com/sobdigital/sob-intake/internal/intake/config"
)

// UploadResult - итог загрузки одного файла. URL заполнен стратегиями,
// отдающими публичную ссылку (Cloudinary, Drive, S3); Token - стратегией
// загрузки через файловый API хранилища записей.
type UploadResult struct {
	URL   string
	Token string
}

type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string, contentType string) (*UploadResult, error)
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9-_\.]`)

// SanitizeName заменяет небезопасные символы имени файла на дефисы.
func SanitizeName(filename string) string {
	return unsafeNameChars.ReplaceAllString(filename, "-")
}

// collisionFreeName derives a provider-side object name: sanitized original
// plus a millisecond timestamp, so two clients uploading "brandVoice.pdf"
// never clash.
func collisionFreeName(filename string) string {
	return fmt.Sprintf("%s-%d", SanitizeName(filename), time.Now().UnixMilli())
}

// NewFromConfig создает загрузчик, указанный в конфигурации. Клиент хранилища
// записей передается отдельно: он нужен только стратегии token-upload.
func NewFromConfig(cfg *config.Config, store *airtable.Client) (Uploader, error) {
	switch cfg.StorageProvider {
	case config.ProviderCloudinary:
		return NewCloudinaryStorage(cfg)
	case config.ProviderDrive:
		return NewDriveStorage(cfg)
	case config.ProviderAirtable:
		return NewAirtableStorage(store)
	case config.ProviderS3:
		return NewS3Storage(cfg)
	default:
		return nil, apierrors.ErrStorageProviderUnknown.AddErrorMeta(cfg.StorageProvider)
	}
}
