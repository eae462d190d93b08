// Package validate wraps go-playground/validator with the custom tags and
// message lookup shared by the profile and contact forms.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"portfolio-backend/internal/shared/server/respond"
)

var (
	once     sync.Once
	instance *validator.Validate

	alphaSpaceRE = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	// Digits with an optional leading +, allowing spaces, dots, dashes and one
	// pair of parentheses around the area code.
	phoneRE = regexp.MustCompile(`^\+?[0-9]{1,4}?[\s.-]?(\([0-9]{1,4}\)|[0-9]{1,4})([\s.-]?[0-9]{2,4}){2,4}$`)
)

// Engine returns the process-wide validator with custom tags registered.
func Engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		mustRegister(v, "alphaspace", func(fl validator.FieldLevel) bool {
			return alphaSpaceRE.MatchString(fl.Field().String())
		})
		mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
			return IsPhone(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// IsPhone reports whether s looks like a dialable phone number with 7 to 15 digits.
func IsPhone(s string) bool {
	s = strings.TrimSpace(s)
	if !phoneRE.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

// Messages maps "field.tag" or "field" to a human readable message.
type Messages map[string]string

// Struct validates s and converts failures into itemized field errors, one
// per field, in struct order. A nil slice means s is valid.
func Struct(s any, msgs Messages) []respond.FieldError {
	err := Engine().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []respond.FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]respond.FieldError, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe)
		if seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, respond.FieldError{Field: field, Message: msgs.lookup(field, fe)})
	}
	return out
}

func (m Messages) lookup(field string, fe validator.FieldError) string {
	if msg, ok := m[field+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := m[field]; ok {
		return msg
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// fieldPath drops the top-level struct name so nested fields read
// "socialLinks.github" rather than "Input.socialLinks.github".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}
