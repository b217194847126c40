// internal/app/system/respond/decode.go
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/go-playground/validator/v10"
)

// maxJSONBody bounds request bodies decoded as JSON.
const maxJSONBody = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report JSON field names instead of Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Decode reads a JSON body into dst and validates its struct tags.
// Failures come back as ValidationFailed with per-field details.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation(fmt.Sprintf("malformed JSON: %v", err))
	}
	return Validate(dst)
}

// Validate checks struct tags on v.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}
	fields := make([]FieldError, 0, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		names = append(names, fe.Field())
	}
	return apperr.Validation("invalid fields: " + strings.Join(names, ", ")).WithDetails(fields)
}
