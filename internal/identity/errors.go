package identity

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

var (
	ErrEmailExists        = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password too weak")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrUserDisabled       = errors.New("account disabled")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrInvalidSession     = errors.New("session expired or revoked")
	ErrProvider           = errors.New("identity provider error")
)

// ProviderError keeps the provider's own code and message so callers can show
// the text verbatim while still branching on a sentinel with errors.Is.
type ProviderError struct {
	Code    string
	Message string
	Status  int
	kind    error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error { return e.kind }

// codeKinds maps provider error codes to sentinels.
var codeKinds = map[string]error{
	"EMAIL_EXISTS":                   ErrEmailExists,
	"EMAIL_NOT_FOUND":                ErrInvalidCredentials,
	"INVALID_PASSWORD":               ErrInvalidCredentials,
	"INVALID_LOGIN_CREDENTIALS":      ErrInvalidCredentials,
	"MISSING_PASSWORD":               ErrInvalidCredentials,
	"WEAK_PASSWORD":                  ErrWeakPassword,
	"INVALID_EMAIL":                  ErrInvalidEmail,
	"MISSING_EMAIL":                  ErrInvalidEmail,
	"USER_DISABLED":                  ErrUserDisabled,
	"TOO_MANY_ATTEMPTS_TRY_LATER":    ErrTooManyAttempts,
	"INVALID_ID_TOKEN":               ErrInvalidSession,
	"TOKEN_EXPIRED":                  ErrInvalidSession,
	"USER_NOT_FOUND":                 ErrInvalidSession,
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN": ErrInvalidSession,
	"INVALID_REFRESH_TOKEN":          ErrInvalidSession,
}

// Classify turns a provider message such as "WEAK_PASSWORD : Password should be
// at least 6 characters" into a ProviderError.
func Classify(status int, message string) *ProviderError {
	code := message
	if i := strings.Index(code, " : "); i >= 0 {
		code = code[:i]
	}
	code = strings.TrimSpace(code)
	kind, ok := codeKinds[code]
	if !ok {
		kind = ErrProvider
	}
	return &ProviderError{Code: code, Message: message, Status: status, kind: kind}
}

// fromAPIError converts errors returned by the generated API client.
func fromAPIError(call string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return Classify(gerr.Code, gerr.Message)
	}
	return fmt.Errorf("%s: %w", call, err)
}
