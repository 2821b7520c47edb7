// Пакетная валидация входящих запросов. Использует библиотеку
// go-playground/validator с набором правил под поля формы онбординга.
// Формат проверяется только для непустых значений: обязательность полей
// сервер не навязывает, это контракт отправляющей стороны.
//
// Основные возможности:
//   - Правила intakeEmail, instagramHandle, webURL, intakePhone.
//   - Интеграция с echo через интерфейс Validator.
package intake

import (
	"github.com/go-playground/validator"

	"github.com/sobdigital/sob-intake/internal/intake/form"
)

type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	err := v.RegisterValidation("intakeEmail", emailValidator)
	if err != nil {
		return nil
	}

	err = v.RegisterValidation("instagramHandle", instagramValidator)
	if err != nil {
		return nil
	}

	err = v.RegisterValidation("webURL", urlValidator)
	if err != nil {
		return nil
	}

	err = v.RegisterValidation("intakePhone", phoneValidator)
	if err != nil {
		return nil
	}
	return &RequestValidator{v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.validator.Struct(i); err != nil {
		_, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil
		}
		return err
	}
	return nil
}

func emailValidator(fl validator.FieldLevel) bool {
	return form.IsValidEmail(fl.Field().String())
}

func instagramValidator(fl validator.FieldLevel) bool {
	return form.IsValidInstagram(fl.Field().String())
}

func urlValidator(fl validator.FieldLevel) bool {
	return form.IsValidURL(fl.Field().String())
}

func phoneValidator(fl validator.FieldLevel) bool {
	return form.IsValidPhone(fl.Field().String())
}
