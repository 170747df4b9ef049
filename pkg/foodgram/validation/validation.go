// Package validation configures request binding and converts binding failures
// into field-keyed validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)
	slugRegex     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

var registerOnce sync.Once

// Register installs the custom validators on gin's validator engine.
// Safe to call more than once. It panics if a validator cannot be registered.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := registerValidators(v); err != nil {
			panic(err)
		}
	})
}

func registerValidators(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register username validator: %w", err)
	}
	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRegex.MatchString(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register slug validator: %w", err)
	}
	return nil
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// BindJSON decodes the body into obj. Malformed bodies and failed rules become
// an *apperr.ValidationError keyed by JSON field name.
func BindJSON(c *gin.Context, obj any) error {
	Register()
	if err := c.ShouldBindJSON(obj); err != nil {
		return FromBinding(err)
	}
	return nil
}

// FromBinding converts a binding error into a ValidationError
func FromBinding(err error) *apperr.ValidationError {
	verr := &apperr.ValidationError{}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("non_field_errors", "Некорректный формат данных.")
		return verr
	}

	for _, fe := range fieldErrs {
		verr.Add(fieldPath(fe), message(fe))
	}
	return verr
}

// fieldPath drops the top-level struct name from the namespace, "Req.ingredients[0].amount" -> "ingredients[0].amount"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Обязательное поле."
	case "email":
		return "Введите правильный адрес электронной почты."
	case "min":
		if fe.Kind() == reflect.String {
			return "Убедитесь, что это значение содержит не менее " + fe.Param() + " символов."
		}
		if fe.Kind() == reflect.Slice {
			return "Убедитесь, что это поле содержит не менее " + fe.Param() + " элементов."
		}
		return "Убедитесь, что это значение больше либо равно " + fe.Param() + "."
	case "max":
		if fe.Kind() == reflect.String {
			return "Убедитесь, что это значение содержит не более " + fe.Param() + " символов."
		}
		return "Убедитесь, что это значение меньше либо равно " + fe.Param() + "."
	case "username":
		return "Введите правильное имя пользователя. Оно может содержать только буквы, цифры и знаки @/./+/-/_."
	case "slug":
		return "Значение должно состоять только из латинских букв, цифр, знаков подчеркивания или дефиса."
	case "hexcolor":
		return "Введите цвет в формате HEX, например #49B64E."
	default:
		return "Недопустимое значение (" + fe.Tag() + ")."
	}
}
