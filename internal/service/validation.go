package service

import (
	"taskboard/internal/domain/errors"

	"github.com/go-playground/validator"
)

var validate = validator.New()

func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return validationErrorToErrorResponse(err)
	}
	return nil
}

func validationErrorToErrorResponse(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			switch verr.Field() {
			case "Title":
				return errors.Validation("title must be between 3 and 200 characters")
			case "Name":
				return errors.Validation("name is required and must be at most 100 characters")
			case "Email":
				return errors.Validation("a valid email is required")
			case "Password", "NewPassword":
				return errors.Validation("password must be between 6 and 72 characters")
			case "OldPassword":
				return errors.Validation("old password is required")
			case "OTP":
				return errors.Validation("otp is required")
			case "AssignTo":
				return errors.Validation("assignee is required")
			case "Deadline":
				return errors.Validation("deadline is required")
			case "Status":
				return errors.Validation("status must be pending or completed")
			}
		}
	}
	return errors.Validation(errors.ErrValidation.Error())
}
