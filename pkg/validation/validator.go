package validation

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	phoneSeparators = regexp.MustCompile(`[\s\-.()]`)
	phoneDigits     = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// isPhone accepts 7 to 15 digits with an optional leading + once spaces,
// dashes, dots and parentheses are removed.
func isPhone(s string) bool {
	return phoneDigits.MatchString(phoneSeparators.ReplaceAllString(strings.TrimSpace(s), ""))
}

var (
	std     *validator.Validate
	stdOnce sync.Once
)

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return isPhone(fl.Field().String())
	})
}

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers the phone rule.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		register(v)
	}
}

func validate() *validator.Validate {
	stdOnce.Do(func() {
		std = validator.New()
		register(std)
	})
	return std
}

// ValidEmail reports whether s is a syntactically valid email address.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && validate().Var(s, "email") == nil
}

// ValidPhone reports whether s looks like a phone number.
func ValidPhone(s string) bool {
	return validate().Var(s, "phone") == nil
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "phone":
		return "must be a valid phone number"
	case "numeric":
		return "must be numeric"
	case "len":
		return "must be exactly " + param + " characters long"
	case "min":
		return "must be at least " + param + " characters long"
	case "max":
		return "must be at most " + param + " characters long"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	default:
		if param != "" {
			return "validation failed for '" + fe.Tag() + "' with parameter '" + param + "'"
		}
		return "validation failed for '" + fe.Tag() + "'"
	}
}
