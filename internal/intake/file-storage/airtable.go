package filestorage

import (
	"context"

	"github.com/sobdigital/sob-intake/internal/intake/airtable"
)

// AirtableStorage загружает файлы через файловый API хранилища записей.
// В отличие от остальных стратегий возвращает не URL, а токен: его
// подставляют в поле вложений при создании записи.
type AirtableStorage struct {
	store *airtable.Client
}

func NewAirtableStorage(store *airtable.Client) (*AirtableStorage, error) {
	return &AirtableStorage{store: store}, nil
}

func (a *AirtableStorage) Upload(ctx context.Context, data []byte, filename string, contentType string) (*UploadResult, error) {
	token, err := a.store.UploadFile(ctx, data, SanitizeName(filename), contentType)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Token: token}, nil
}
