package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct turns validator failures into a single ErrValidation with field names.
func ValidateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.New(apperrors.ErrValidation, err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return apperrors.New(apperrors.ErrValidation, strings.Join(msgs, "; "))
}
