package client

import (
	"strings"

	"tourbooking/internal/domain/models"
	"tourbooking/internal/utils"
)

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return &FieldError{Field: field, Msg: "is required"}
	}
	return nil
}

func contact(email, phone string, phoneRequired bool) error {
	if !utils.IsValidEmail(email) {
		return &FieldError{Field: "email", Msg: "is not a valid email address"}
	}
	if phone == "" && !phoneRequired {
		return nil
	}
	if !utils.IsValidPhone(phone) {
		return &FieldError{Field: "phone", Msg: "is not a valid phone number"}
	}
	return nil
}

// ValidateStaff checks the admin staff form before it is submitted; the password is only required on create.
func ValidateStaff(in models.StaffInput, create bool) error {
	if err := required("fullName", in.FullName); err != nil {
		return err
	}
	if err := contact(in.Email, in.Phone, false); err != nil {
		return err
	}
	if create || in.Password != "" {
		if len(in.Password) < 6 {
			return &FieldError{Field: "password", Msg: "must be at least 6 characters"}
		}
	}
	return nil
}

func ValidateRegister(in RegisterRequest) error {
	if err := required("fullName", in.FullName); err != nil {
		return err
	}
	if err := contact(in.Email, in.Phone, false); err != nil {
		return err
	}
	if len(in.Password) < 6 {
		return &FieldError{Field: "password", Msg: "must be at least 6 characters"}
	}
	return nil
}

// ValidateTraveler checks one passenger form.
func ValidateTraveler(in TravelerInput) error {
	if err := required("fullName", in.FullName); err != nil {
		return err
	}
	if err := required("identityNumber", in.IdentityNumber); err != nil {
		return err
	}
	if in.Email != "" && !utils.IsValidEmail(in.Email) {
		return &FieldError{Field: "email", Msg: "is not a valid email address"}
	}
	if in.Phone != "" && !utils.IsValidPhone(in.Phone) {
		return &FieldError{Field: "phone", Msg: "is not a valid phone number"}
	}
	return nil
}
