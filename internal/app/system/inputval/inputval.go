// internal/app/system/inputval/inputval.go
// Package inputval decodes JSON request bodies and checks them against
// their validate struct tags.
package inputval

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/lingohub/internal/app/system/apperr"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxBodyBytes bounds every JSON body.
const MaxBodyBytes = 64 << 10

// CodeInvalidBody is returned for malformed or failing bodies.
const CodeInvalidBody = "InvalidBody"

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator with the "objectid" tag
// registered. Field names in errors are taken from json tags.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return primitive.IsValidObjectID(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// DecodeJSON reads r's body into dst and validates it. An empty body is
// treated as {} so tag rules still apply. Failures are apperr validation
// errors.
func DecodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperr.Validation(CodeInvalidBody, "Request body too large")
		}
		return apperr.Validation(CodeInvalidBody, "Invalid JSON body")
	}
	return Struct(dst)
}

// Struct validates v and reports the first failing field.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperr.Validation(CodeInvalidBody, message(verrs[0]))
	}
	return apperr.Validation(CodeInvalidBody, "Invalid request")
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "objectid":
		return field + " must be a valid id"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "dive":
		return field + " contains an invalid value"
	default:
		return field + " is invalid"
	}
}
