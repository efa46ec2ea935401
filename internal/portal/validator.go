package portal

import (
	"errors"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	contentstore "github.com/aisa-it/portal/portal.go/internal/portal/content-store"
	"github.com/go-playground/validator"
)

type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	if err := v.RegisterValidation("identifier", identifierValidator); err != nil {
		return nil
	}
	return &RequestValidator{validator: v}
}

// Validate переводит ошибки проверки в ошибки API.
func (rv *RequestValidator) Validate(i any) error {
	err := rv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "identifier" {
			return apierrors.ErrInvalidIdentifier.WithFormattedMessage(fe.Value())
		}
	}
	return apierrors.ErrSessionParamsRequired
}

func identifierValidator(fl validator.FieldLevel) bool {
	return contentstore.IsIdentifier(fl.Field().String())
}
