package domain

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks a request struct against its `validate` tags.
// String fields are trimmed before checking so blank input is rejected.
func Validate(req any) error {
	switch r := req.(type) {
	case LoginRequest:
		r.Username = strings.TrimSpace(r.Username)
		return validatorInstance().Struct(r)
	case RegisterRequest:
		r.Username = strings.TrimSpace(r.Username)
		r.Email = strings.TrimSpace(r.Email)
		return validatorInstance().Struct(r)
	case QueryRequest:
		r.QueryText = strings.TrimSpace(r.QueryText)
		return validatorInstance().Struct(r)
	default:
		return validatorInstance().Struct(req)
	}
}
