package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var Validate = newValidator()

// Ошибки называют поля по json-тегам, как их видит клиент
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

// FieldError - первое нарушение в читаемом виде: поле и сообщение
func FieldError(err error) (string, error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "", err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field(), fmt.Errorf("%s is required", fe.Field())
	case "oneof":
		return fe.Field(), fmt.Errorf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gtfield":
		return fe.Field(), fmt.Errorf("%s must be after %s", fe.Field(), fe.Param())
	}
	return fe.Field(), fmt.Errorf("%s failed on %s", fe.Field(), fe.Tag())
}
