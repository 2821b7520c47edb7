// Пакет содержит определения ошибок, используемых сервисом intake для обработки
// различных ситуаций: ошибки конфигурации провайдеров хранилища, ошибки загрузки
// файлов, ошибки внешнего хранилища записей и ошибки валидации формы. Каждая
// ошибка имеет код, статус HTTP и описание.
//
// Основные возможности:
//   - Определение типов ошибок с кодами, соответствующими кодам HTTP статусов.
//   - Helper-функция для форматирования сообщений об ошибках.
package apierrors

import (
	"fmt"
	"net/http"
)

type DefinedError struct {
	Code       int    `json:"code"`
	StatusCode int    `json:"-"`
	Err        string `json:"error"`
}

func (e DefinedError) Error() string {
	return e.Err
}

var (
	// 1*** - configuration errors
	ErrStorageProviderUnknown  = DefinedError{Code: 1001, StatusCode: http.StatusInternalServerError, Err: "unknown storage provider %s"}
	ErrCloudinaryConfigMissing = DefinedError{Code: 1002, StatusCode: http.StatusInternalServerError, Err: "missing required env var: %s"}
	ErrDriveConfigMissing      = DefinedError{Code: 1003, StatusCode: http.StatusInternalServerError, Err: "missing required env var: %s"}
	ErrDriveFolderRequired     = DefinedError{Code: 1004, StatusCode: http.StatusInternalServerError, Err: "GDRIVE_PARENT_FOLDER_ID is required. Set it to a Shared Drive folder ID and share it with the service account"}
	ErrAirtableConfigMissing   = DefinedError{Code: 1005, StatusCode: http.StatusInternalServerError, Err: "missing required env var: %s"}
	ErrS3ConfigMissing         = DefinedError{Code: 1006, StatusCode: http.StatusInternalServerError, Err: "missing required env var: %s"}

	// 2*** - upload errors
	ErrDriveFolderNotShared = DefinedError{Code: 2001, StatusCode: http.StatusInternalServerError, Err: "target folder is not in a Shared Drive. Service accounts lack personal storage; either use a Shared Drive folder or configure domain-wide delegation (set GDRIVE_IMPERSONATE_EMAIL)"}
	ErrUploadFailed         = DefinedError{Code: 2002, StatusCode: http.StatusInternalServerError, Err: "file upload failed"}
	ErrFileTooLarge         = DefinedError{Code: 2003, StatusCode: http.StatusRequestEntityTooLarge, Err: "file too large"}
	ErrEntityTooLarge       = DefinedError{Code: 2004, StatusCode: http.StatusRequestEntityTooLarge, Err: "request entity too large"}

	// 3*** - record store errors
	ErrRecordCreateFailed  = DefinedError{Code: 3001, StatusCode: http.StatusInternalServerError, Err: "Submission failed"}
	ErrFieldNotFound       = DefinedError{Code: 3002, StatusCode: http.StatusInternalServerError, Err: "field %s not found in table %s"}
	ErrAttachmentNotStored = DefinedError{Code: 3003, StatusCode: http.StatusInternalServerError, Err: "attachment was not stored"}

	// 4*** - form validation errors
	ErrInstagramRequired    = DefinedError{Code: 4001, StatusCode: http.StatusBadRequest, Err: "Instagram Handle is required"}
	ErrBrandVoiceRequired   = DefinedError{Code: 4002, StatusCode: http.StatusBadRequest, Err: "Brand Voice Guide is required (paste or upload)"}
	ErrSalesPitchRequired   = DefinedError{Code: 4003, StatusCode: http.StatusBadRequest, Err: "Sales Pitch Script is required (paste or upload)"}
	ErrOfferInfoRequired    = DefinedError{Code: 4004, StatusCode: http.StatusBadRequest, Err: "Offer Information is required (paste or upload)"}
	ErrBrandFAQRequired     = DefinedError{Code: 4005, StatusCode: http.StatusBadRequest, Err: "Brand FAQ is required (paste or upload)"}
	ErrProductFAQRequired   = DefinedError{Code: 4006, StatusCode: http.StatusBadRequest, Err: "Product FAQ is required (paste or upload)"}
	ErrSalesGuideRequired   = DefinedError{Code: 4007, StatusCode: http.StatusBadRequest, Err: "Sales Guide is required (paste or upload)"}
	ErrLeadQualRequired     = DefinedError{Code: 4008, StatusCode: http.StatusBadRequest, Err: "Lead Qualification criteria is required (paste or upload)"}
	ErrSubmissionInProgress = DefinedError{Code: 4009, StatusCode: http.StatusConflict, Err: "submission already in progress"}

	ErrGeneric = DefinedError{Code: 9999, StatusCode: http.StatusBadRequest, Err: "Submission failed"}
)

// AddErrorMeta подставляет аргументы в шаблон сообщения ошибки.
func (e DefinedError) AddErrorMeta(args ...interface{}) DefinedError {
	e.Err = fmt.Sprintf(e.Err, args...)
	return e
}
