package account

import (
	"errors"
	"net/http"

	"github.com/accountdesk/accountdesk/internal/identity"
	"github.com/accountdesk/accountdesk/pkg/apperrors"
)

// LoginPath and DashboardPath are the browser routes the flows redirect to.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// ErrEmailNotVerified is returned by Login when verified email is required.
var ErrEmailNotVerified = errors.New("email not verified")

// providerError maps an identity error to an AppError whose message is the
// provider text unchanged.
func providerError(err error) *apperrors.AppError {
	var pe *identity.ProviderError
	if !errors.As(err, &pe) {
		return apperrors.NewExternalError("identity provider unavailable", err)
	}
	ae := &apperrors.AppError{
		Type:       apperrors.ErrorTypeExternal,
		Message:    pe.Message,
		StatusCode: http.StatusBadGateway,
		Internal:   err,
		Details:    map[string]interface{}{"code": pe.Code},
	}
	switch {
	case errors.Is(err, identity.ErrEmailExists):
		ae.Type, ae.StatusCode = apperrors.ErrorTypeConflict, http.StatusConflict
	case errors.Is(err, identity.ErrWeakPassword), errors.Is(err, identity.ErrInvalidEmail):
		ae.Type, ae.StatusCode = apperrors.ErrorTypeValidation, http.StatusBadRequest
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, identity.ErrUserDisabled):
		ae.Type, ae.StatusCode = apperrors.ErrorTypeAuthentication, http.StatusUnauthorized
	case errors.Is(err, identity.ErrTooManyAttempts):
		ae.Type, ae.StatusCode = apperrors.ErrorTypeRateLimit, http.StatusTooManyRequests
	case errors.Is(err, identity.ErrInvalidSession):
		ae.Type, ae.StatusCode = apperrors.ErrorTypeAuthentication, http.StatusUnauthorized
		ae.Details["redirect"] = LoginPath
	}
	return ae
}

func storeError(step string, err error) *apperrors.AppError {
	return apperrors.NewInternalError("profile store unavailable", err).WithDetail("step", step)
}
