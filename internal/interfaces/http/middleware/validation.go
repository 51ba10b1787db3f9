package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sssync/backend/internal/domain/platform"
)

// SetupValidator configures the gin binding validator: JSON tag names in
// error messages and the custom platformtype rule
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("platformtype", validatePlatformType)
}

// validatePlatformType accepts only the known platform type names
func validatePlatformType(fl validator.FieldLevel) bool {
	return platform.Type(fl.Field().String()).IsValid()
}
