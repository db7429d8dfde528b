package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type registerPayload struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := registerPayload{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "Str0ng!Pw",
	}

	require.NoError(t, ValidateStruct(payload))
}

func TestValidateStructFailuresUseJSONNames(t *testing.T) {
	payload := registerPayload{
		Name:     "",
		Email:    "invalid",
		Password: "abc",
	}

	err := ValidateStruct(payload)
	require.Error(t, err)

	vErrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	require.Len(t, vErrs, 3)

	fields := map[string]string{}
	for _, v := range vErrs {
		fields[v.Field] = v.Tag
	}
	require.Equal(t, "required", fields["name"])
	require.Equal(t, "email", fields["email"])
	require.Equal(t, "min", fields["password"])
	require.Contains(t, err.Error(), "password failed on min=6")
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("otpcode", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) == 6
	})
	require.NoError(t, err)

	type custom struct {
		Code string `validate:"otpcode"`
	}

	require.NoError(t, ValidateStruct(custom{Code: "123456"}))
	require.Error(t, ValidateStruct(custom{Code: "12"}))
}

func TestNotBlankTag(t *testing.T) {
	type payload struct {
		Token string `json:"refresh_token" validate:"notblank"`
	}

	require.NoError(t, ValidateStruct(payload{Token: "abc"}))

	err := ValidateStruct(payload{Token: "  \t"})
	require.Error(t, err)
	vErrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Equal(t, "refresh_token", vErrs[0].Field)
	require.Equal(t, "notblank", vErrs[0].Tag)
}
