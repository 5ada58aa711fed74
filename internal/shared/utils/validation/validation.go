package validation

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var vnPhoneRegex = regexp.MustCompile(`^(\+84|0)\d{9,10}$`)

// RegisterCustomValidators adds domain validators to gin's binding engine.
// Call once at startup before routes are served.
func RegisterCustomValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// vn_phone accepts Vietnamese phone numbers in local or +84 form.
	_ = v.RegisterValidation("vn_phone", func(fl validator.FieldLevel) bool {
		return vnPhoneRegex.MatchString(fl.Field().String())
	})
}
