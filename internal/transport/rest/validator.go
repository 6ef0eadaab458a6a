package rest

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func ValidateStruct(payload any) map[string]string {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			fieldName := fieldKey(fieldError.Namespace())
			switch fieldError.Tag() {
			case "required":
				errors[fieldName] = fmt.Sprintf("The %s field is required.", fieldName)
			case "min":
				errors[fieldName] = fmt.Sprintf("The %s must be at least %s.", fieldName, fieldError.Param())
			case "max":
				errors[fieldName] = fmt.Sprintf("The %s may not be greater than %s.", fieldName, fieldError.Param())
			case "oneof":
				errors[fieldName] = fmt.Sprintf("The %s must be one of: %s.", fieldName, fieldError.Param())
			default:
				errors[fieldName] = fmt.Sprintf("The %s field is invalid.", fieldName)
			}
		}
	}

	return errors
}

// fieldKey drops the root struct name: "Report.cells[0].dbm" becomes "cells[0].dbm".
func fieldKey(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return strings.ToLower(namespace)
}
