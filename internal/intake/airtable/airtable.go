// Клиент внешнего хранилища записей (Airtable REST контракт). Сервис
// создает одну запись на заявку, один раз резолвит идентификатор поля
// вложений и догружает мелкие файлы через content API.
//
// Основные возможности:
//   - Создание записи заявки.
//   - Резолв идентификатора поля по имени через metadata API.
//   - Прикрепление содержимого файла (base64) к уже созданной записи.
//   - Загрузка файла через файловый API с получением токена.
package airtable

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sobdigital/sob-intake/internal/intake/apierrors"
	"github.com/sobdigital/sob-intake/internal/intake/config"
)

const (
	defaultEndpoint    = "https://api.airtable.com"
	defaultContentBase = "https://content.airtable.com"
)

type Client struct {
	client      *http.Client
	apiKey      string
	baseID      string
	table       string
	endpoint    string
	contentBase string
}

// NewClient проверяет обязательные учетные данные и создает клиент.
// Ошибка конфигурации возвращается сразу, до каких-либо сетевых вызовов.
func NewClient(cfg *config.Config) (*Client, error) {
	required := map[string]string{
		"AIRTABLE_API_KEY":    cfg.AirtableAPIKey,
		"AIRTABLE_BASE_ID":    cfg.AirtableBaseID,
		"AIRTABLE_TABLE_NAME": cfg.AirtableTableName,
	}
	for name, value := range required {
		if value == "" {
			return nil, apierrors.ErrAirtableConfigMissing.AddErrorMeta(name)
		}
	}

	endpoint := cfg.AirtableEndpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	contentBase := cfg.AirtableContentBase
	if contentBase == "" {
		contentBase = defaultContentBase
	}

	return &Client{
		client:      &http.Client{Timeout: 30 * time.Second},
		apiKey:      cfg.AirtableAPIKey,
		baseID:      cfg.AirtableBaseID,
		table:       cfg.AirtableTableName,
		endpoint:    endpoint,
		contentBase: contentBase,
	}, nil
}

func (c *Client) Table() string { return c.table }

func (c *Client) do(ctx context.Context, method, rawURL string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("airtable: %s %s: status %d: %s", method, rawURL, resp.StatusCode, detail)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreateRecord создает ровно одну запись и возвращает её идентификатор.
func (c *Client) CreateRecord(ctx context.Context, fields map[string]interface{}) (string, error) {
	reqBody := map[string]interface{}{
		"records": []map[string]interface{}{{"fields": fields}},
	}

	var resp struct {
		Records []struct {
			ID string `json:"id"`
		} `json:"records"`
	}
	u := fmt.Sprintf("%s/v0/%s/%s", c.endpoint, c.baseID, url.PathEscape(c.table))
	if err := c.do(ctx, http.MethodPost, u, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Records) == 0 {
		return "", fmt.Errorf("airtable: create returned no records")
	}
	return resp.Records[0].ID, nil
}

// ResolveFieldID возвращает идентификатор поля таблицы по его имени.
func (c *Client) ResolveFieldID(ctx context.Context, tableName, fieldLabel string) (string, error) {
	var resp struct {
		Tables []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Fields []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"fields"`
		} `json:"tables"`
	}
	u := fmt.Sprintf("%s/v0/meta/bases/%s/tables", c.endpoint, c.baseID)
	if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return "", err
	}

	for _, table := range resp.Tables {
		if table.Name != tableName {
			continue
		}
		for _, field := range table.Fields {
			if field.Name == fieldLabel {
				return field.ID, nil
			}
		}
	}
	return "", apierrors.ErrFieldNotFound.AddErrorMeta(fieldLabel, tableName)
}

// AttachContent прикрепляет содержимое файла к существующей записи через
// content API. Размер ограничен самим API (5 МиБ), проверка на стороне
// вызывающего.
func (c *Client) AttachContent(ctx context.Context, recordID, fieldID string, data []byte, contentType, filename string) error {
	reqBody := map[string]interface{}{
		"contentType": contentType,
		"file":        base64.StdEncoding.EncodeToString(data),
		"filename":    filename,
	}
	u := fmt.Sprintf("%s/v0/%s/%s/%s/uploadAttachment", c.contentBase, c.baseID, recordID, fieldID)
	return c.do(ctx, http.MethodPost, u, reqBody, nil)
}

// UploadFile загружает файл через файловый API хранилища и возвращает
// многоразовый токен для использования в поле вложений при создании записи.
func (c *Client) UploadFile(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	reqBody := map[string]interface{}{
		"contentType": contentType,
		"file":        base64.StdEncoding.EncodeToString(data),
		"filename":    filename,
	}

	var resp struct {
		Token string `json:"token"`
	}
	u := fmt.Sprintf("%s/v0/%s/files", c.contentBase, c.baseID)
	if err := c.do(ctx, http.MethodPost, u, reqBody, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", apierrors.ErrAttachmentNotStored
	}
	return resp.Token, nil
}
