package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"lodgepos_backend/pkg/utils"
)

// ErrValidation is the shared sentinel for rejected input. It aliases the
// utils classification root so ClassifyError maps wrapped errors straight to
// VALIDATION_FAILED.
var ErrValidation = utils.ErrValidation

var validate = validator.New()

// validateStruct runs tag-based validation on a request DTO and folds the
// first failure into ErrValidation. Cross-field rules that tags cannot
// express are checked explicitly by the services.
func validateStruct(payload interface{}) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return fmt.Errorf("%w: field %s failed on rule %s", ErrValidation, f.Field(), f.Tag())
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// parseDateOr parses a YYYY-MM-DD date string, returning fallback when the
// string is empty. Used for purchase and return dates supplied by callers.
func parseDateOr(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not in YYYY-MM-DD format", ErrValidation, value)
	}
	return parsed, nil
}
