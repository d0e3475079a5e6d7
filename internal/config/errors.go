package config

import (
	"errors"
	"fmt"
)

// ErrMissingField is matched by every *MissingFieldError via errors.Is.
var ErrMissingField = errors.New("missing required field")

// MissingFieldError reports a required credential field that was empty.
type MissingFieldError struct {
	Source string // "config file", "environment", "prompt"
	Field  string // e.g. "databaseId", "ASTRA_DB_API_ENDPOINT"
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s invalid, missing `%s`", e.Source, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
