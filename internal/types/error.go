package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type (
	// Failure body returned to callers. Never carries paths or container output.
	Error struct {
		Fields  *map[string]string `json:"fields,omitempty"  validate:"optional"`
		Details *string            `json:"details,omitempty" validate:"optional"`
		Message string             `json:"error"             validate:"required"`
	}
)

func StringError(err string) Error {
	return Error{Message: err}
}

func DetailedError(err string, details string) Error {
	return Error{Message: err, Details: &details}
}

func ValidationError(err error) Error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if ok {
		errorMap := make(map[string]string)
		for _, fieldError := range validationErrors {
			errorMap[fieldError.Field()] = fmt.Sprintf(
				"Failed to validate while checking condition: %s",
				fieldError.Tag(),
			)
		}

		return Error{Message: "validation error", Fields: &errorMap}
	}

	return Error{Message: "validation error"}
}
