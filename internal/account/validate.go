package account

import (
	"strings"
	"unicode/utf8"

	"github.com/accountdesk/accountdesk/pkg/apperrors"
)

// MaxDisplayNameRunes bounds display names.
const MaxDisplayNameRunes = 100

// ValidateCredentials checks the login form: both fields must be present.
func ValidateCredentials(email, password string) *apperrors.AppError {
	fields := map[string]interface{}{}
	if strings.TrimSpace(email) == "" {
		fields["email"] = "required"
	}
	if password == "" {
		fields["password"] = "required"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("email and password are required", map[string]interface{}{"fields": fields})
	}
	return nil
}

// ValidateRegistration adds the minimum password length to ValidateCredentials.
func ValidateRegistration(email, password string, minLen int) *apperrors.AppError {
	if err := ValidateCredentials(email, password); err != nil {
		return err
	}
	if utf8.RuneCountInString(password) < minLen {
		return apperrors.NewValidationError("password is too short", map[string]interface{}{
			"fields":    map[string]interface{}{"password": "too_short"},
			"minLength": minLen,
		})
	}
	return nil
}

// NormalizeDisplayName trims name and checks it is non-empty and short enough.
func NormalizeDisplayName(name string) (string, *apperrors.AppError) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewValidationError("display name is required", nil)
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameRunes {
		return "", apperrors.NewValidationError("display name is too long", map[string]interface{}{"maxLength": MaxDisplayNameRunes})
	}
	return name, nil
}
