package auth

import (
	"errors"
	"fmt"
	"unicode"

	"go.uber.org/multierr"
)

// PasswordPolicy lists the rules a new password must satisfy.
type PasswordPolicy struct {
	MinLength              int
	RequireDigit           bool
	RequireLowercase       bool
	RequireUppercase       bool
	RequireNonAlphanumeric bool
}

// DefaultPasswordPolicy mirrors the rules applied at registration and password reset.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:              6,
		RequireDigit:           true,
		RequireLowercase:       true,
		RequireUppercase:       true,
		RequireNonAlphanumeric: true,
	}
}

// PasswordPolicyError reports every rule a password failed.
type PasswordPolicyError struct {
	err error
}

func (e *PasswordPolicyError) Error() string {
	return e.err.Error()
}

func (e *PasswordPolicyError) Unwrap() []error {
	return multierr.Errors(e.err)
}

// Reasons returns one message per violated rule.
func (e *PasswordPolicyError) Reasons() []string {
	errs := multierr.Errors(e.err)
	reasons := make([]string, 0, len(errs))
	for _, err := range errs {
		reasons = append(reasons, err.Error())
	}
	return reasons
}

// Check validates password and returns a *PasswordPolicyError when any rule fails.
func (p PasswordPolicy) Check(password string) error {
	var err error
	var hasDigit, hasLower, hasUpper, hasSymbol bool

	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r):
			hasSymbol = true
		}
	}

	if len([]rune(password)) < p.MinLength {
		err = multierr.Append(err, fmt.Errorf("password must be at least %d characters", p.MinLength))
	}
	if p.RequireNonAlphanumeric && !hasSymbol {
		err = multierr.Append(err, errors.New("password must have at least one non-alphanumeric character"))
	}
	if p.RequireDigit && !hasDigit {
		err = multierr.Append(err, errors.New("password must have at least one digit"))
	}
	if p.RequireLowercase && !hasLower {
		err = multierr.Append(err, errors.New("password must have at least one lowercase letter"))
	}
	if p.RequireUppercase && !hasUpper {
		err = multierr.Append(err, errors.New("password must have at least one uppercase letter"))
	}

	if err == nil {
		return nil
	}
	return &PasswordPolicyError{err: err}
}
