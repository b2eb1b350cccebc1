package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator configures the binding validator with custom tags
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// Use JSON tag names for field names in errors
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation("resource_path", validateResourcePath)
	}
}

// validateResourcePath accepts marketplace resource paths such as
// "/orders/123456". The path must carry at least one non-blank segment.
func validateResourcePath(fl validator.FieldLevel) bool {
	trimmed := strings.Trim(strings.TrimSpace(fl.Field().String()), "/")
	if trimmed == "" {
		return false
	}
	parts := strings.Split(trimmed, "/")
	return strings.TrimSpace(parts[len(parts)-1]) != ""
}
