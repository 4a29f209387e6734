package validator

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	customErrors "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Upper bounds match the users table columns.
const (
	MinIdentifierLength = 6
	MaxIdentifierLength = 64
	MaxEmailLength      = 255
	MinPasswordLength   = 6
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validator runs the stateless credential checks: emptiness first, then policy.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return ValidIdentifier(fl.Field().String())
	})
	_ = v.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpwd", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	v.RegisterTagNameFunc(jsonName)
	return &Validator{v: v}
}

// Struct validates s and classifies the outcome. Blank fields win over policy
// violations regardless of which field fails.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return customErrors.WrapInternal(err, "validate")
	}

	var empty, invalid []string
	for _, fe := range fieldErrs {
		if fe.Tag() == "notblank" || fe.Tag() == "required" {
			empty = append(empty, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}
	if len(empty) > 0 {
		sort.Strings(empty)
		return customErrors.NewInputEmpty(strings.Join(empty, ", "))
	}
	sort.Strings(invalid)
	return customErrors.NewInputInvalid(strings.Join(invalid, ", "))
}

func ValidIdentifier(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= MinIdentifierLength && n <= MaxIdentifierLength
}

func ValidEmail(s string) bool {
	return utf8.RuneCountInString(s) <= MaxEmailLength && emailShape.MatchString(s)
}

// StrongPassword requires a lowercase letter, an uppercase letter, a digit and a
// punctuation or symbol character, and rejects any whitespace.
func StrongPassword(pwd string) bool {
	if utf8.RuneCountInString(pwd) < MinPasswordLength {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range pwd {
		switch {
		case unicode.IsSpace(r):
			return false
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}
