package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelydev/apiProyectos/apperrors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the `validate` tags of s and reports the first
// failing field as a Validation error.
func validateStruct(s interface{}) error {
	return validationError(validate.Struct(s))
}

func validateVar(field string, value interface{}, tag string) error {
	err := validate.Var(value, tag)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperrors.Validation(describe(field, verrs[0]))
	}
	return validationError(err)
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperrors.Validation(describe(verrs[0].Field(), verrs[0]))
	}
	return apperrors.Internal(err)
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("El campo %s es requerido", field)
	case "email":
		return fmt.Sprintf("El campo %s debe ser un email válido", field)
	case "min":
		return fmt.Sprintf("El campo %s debe tener al menos %s caracteres", field, fe.Param())
	case "max":
		return fmt.Sprintf("El campo %s no puede superar %s caracteres", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("El campo %s debe ser uno de: %s", field, fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("El campo %s debe ser mayor o igual a %s", field, fe.Param())
	}
	return fmt.Sprintf("El campo %s no es válido", field)
}
