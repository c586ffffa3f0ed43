// Package request contains request decoding, validation, and pagination
// helpers for the deployment API.
package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Versions look like "1.4.2" or "v1.4.2-rc1"; image tags may add registry
// and repository segments.
var versionRegex = regexp.MustCompile(`^v?[0-9A-Za-z][0-9A-Za-z._-]{0,127}$`)

func init() {
	validate.RegisterValidation("version", func(fl validator.FieldLevel) bool {
		return versionRegex.MatchString(fl.Field().String())
	})
}

func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

func RequireID(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("missing required ID")
	}
	return s, nil
}
