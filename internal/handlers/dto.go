package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/utils"
)

type signupRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	MobileNo string `json:"mobileNo" validate:"required,min=6,max=20"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	MobileNo *string `json:"mobileNo" validate:"omitempty,min=6,max=20"`
}

// bind parses the JSON body into dst and runs struct validation.
func bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.New(apperrors.ErrValidation, "invalid request body")
	}
	return utils.ValidateStruct(dst)
}
