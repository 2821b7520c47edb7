// Пакет реализует отправляющую сторону формы онбординга: держит состояние
// формы, выполняет строгую проверку обязательных полей и отправляет заявку
// одним multipart-запросом.
//
// Основные возможности:
//   - Проверка обязательных полей до каких-либо сетевых вызовов.
//   - Сборка multipart-запроса из скалярных полей и файловых слотов.
//   - Защита от повторной отправки во время выполняющейся.
//   - Сброс состояния формы после подтвержденного приема.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sobdigital/sob-intake/internal/intake/apierrors"
	"github.com/sobdigital/sob-intake/internal/intake/form"
)

// SubmitResult - подтверждение приема заявки сервером.
type SubmitResult struct {
	RecordID string
}

type Client struct {
	httpClient *http.Client
	endpoint   string

	mu         sync.Mutex
	submitting bool

	State       form.State
	FieldErrors form.FieldErrors
}

// NewClient создает отправителя заявок. endpoint - базовый URL сервиса приема,
// без завершающего слеша.
func NewClient(endpoint string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		endpoint:    strings.TrimSuffix(endpoint, "/"),
		FieldErrors: form.FieldErrors{},
	}
}

// ValidateField пересчитывает ошибку формата одного поля по мере ввода.
func (c *Client) ValidateField(name string) {
	c.State.ValidateField(name, c.FieldErrors)
}

// SectionCompleted сообщает, завершена ли секция формы.
func (c *Client) SectionCompleted(idx int) bool {
	return c.State.SectionCompleted(idx)
}

// Submit выполняет отправку заявки. Порядок строгий: проверка обязательных
// полей (при провале - ни одного сетевого вызова), затем один POST со всеми
// полями и файлами. Возвращает индекс секции, которую нужно раскрыть при
// ошибке валидации (-1, если проверка прошла), и ошибку.
func (c *Client) Submit(ctx context.Context) (int, *SubmitResult, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return -1, nil, apierrors.ErrSubmissionInProgress
	}
	c.submitting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	if section, err := c.State.ValidateRequired(); err != nil {
		return section, nil, err
	}

	body, contentType, err := c.buildRequestBody()
	if err != nil {
		return -1, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/submit/", body)
	if err != nil {
		return -1, nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return -1, nil, fmt.Errorf("%s: %w", apierrors.ErrGeneric.Err, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return -1, nil, apierrors.ErrGeneric
	}

	var accepted struct {
		Ok     bool   `json:"ok"`
		Record string `json:"record"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil || !accepted.Ok {
		return -1, nil, apierrors.ErrGeneric
	}

	c.State.Reset()
	c.FieldErrors = form.FieldErrors{}

	return -1, &SubmitResult{RecordID: accepted.Record}, nil
}

// buildRequestBody собирает multipart-тело: все скалярные поля в порядке
// формы, затем файловые слоты.
func (c *Client) buildRequestBody() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, kv := range c.State.Scalars() {
		if kv[1] == "" {
			continue
		}
		if err := writer.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}

	for _, slot := range c.State.FileSlots() {
		for _, file := range slot.Files {
			part, err := writer.CreateFormFile(slot.Name, file.Name)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(file.Data); err != nil {
				return nil, "", err
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
