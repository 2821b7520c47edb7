// API error handling utilities for the intake package.
// Provides functions for returning errors with appropriate HTTP status codes and logging.
//
// Key features:
//   - Standardized error response formatting.
//   - Logging of API errors with context (method, URL).
//   - Support for custom error types with status codes.
//   - Handles common error scenarios like entity too large and generic API errors.
package intake

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/labstack/echo/v4"

	"github.com/sobdigital/sob-intake/internal/intake/apierrors"
)

// errorResponse - тело ответа об ошибке. Поле ok всегда false: успешные
// ответы формируются обработчиками напрямую с ok=true.
type errorResponse struct {
	Ok bool `json:"ok"`
	apierrors.DefinedError
}

// Возврат ошибки 400 с универсальным сообщением
func EError(c echo.Context, err error) error {
	if customErr, ok := err.(apierrors.DefinedError); ok {
		return EErrorDefined(c, customErr)
	}
	if err == nil {
		slog.Error("Unknown API error",
			"method", c.Request().Method,
			"url", c.Request().URL,
			getCallerFile(),
		)
	} else {
		slog.Error("API error",
			"err", err,
			"method", c.Request().Method,
			"url", c.Request().URL,
			getCallerFile(),
		)
	}
	return EErrorDefined(c, apierrors.ErrGeneric)
}

// Возврат ошибки <status> с сообщением ошибки
func EErrorMsgStatus(c echo.Context, err error, status int) error {
	if status == http.StatusRequestEntityTooLarge {
		return EErrorDefined(c, apierrors.ErrEntityTooLarge)
	}

	if err == nil {
		if status != http.StatusForbidden {
			slog.Error("Unknown API error",
				"method", c.Request().Method,
				slog.Int("status", status),
				"url", c.Request().URL,
				getCallerFile(),
			)
		}
		er := apierrors.ErrGeneric
		er.StatusCode = status
		return EErrorDefined(c, er)
	}

	// Ignore log 404 error
	if status != http.StatusNotFound {
		slog.Error("API error",
			"err", err,
			"method", c.Request().Method,
			slog.Int("status", status),
			"url", c.Request().URL,
			getCallerFile(),
		)
	}
	er := apierrors.ErrGeneric
	er.StatusCode = status
	er.Err = err.Error()
	return EErrorDefined(c, er)
}

// Возврат ошибки 400 с сообщением ошибки
func EErrorMsg(c echo.Context, err error) error {
	if err == nil {
		slog.Error("Unknown API error",
			"method", c.Request().Method,
			"url", c.Request().URL,
			getCallerFile(),
		)
		return EErrorDefined(c, apierrors.ErrGeneric)
	}
	slog.Error("API error",
		"err", err,
		"method", c.Request().Method,
		"url", c.Request().URL,
		getCallerFile(),
	)
	er := apierrors.ErrGeneric
	er.Err = err.Error()
	return EErrorDefined(c, er)
}

// EErrorDefined возвращает JSON-ответ с кодом статуса и сообщением об ошибке.
// Если код статуса не определен, используется 400 Bad Request.
func EErrorDefined(c echo.Context, err apierrors.DefinedError) error {
	// If unknown code use 400 Bad Request
	if http.StatusText(err.StatusCode) == "" {
		err.StatusCode = http.StatusBadRequest
	}
	return c.JSON(err.StatusCode, errorResponse{Ok: false, DefinedError: err})
}

// getCallerFile возвращает строку с именем файла и номером строки, из которых
// была вызвана функция. Используется для улучшения отладки логов API.
func getCallerFile() slog.Attr {
	_, path, no, ok := runtime.Caller(2)
	if !ok {
		return slog.Attr{}
	}
	_, file := filepath.Split(path)
	return slog.String("caller", fmt.Sprintf("%s:%d", file, no))
}
