package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/accountdesk/accountdesk/internal/account"
	"github.com/accountdesk/accountdesk/internal/config"
	"github.com/accountdesk/accountdesk/internal/sessions"
	"github.com/accountdesk/accountdesk/pkg/apperrors"
	"github.com/accountdesk/accountdesk/pkg/middleware"
)

// LoginRequest is the login form. Fields are not marked required so empty
// values reach account validation and come back as a field error.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// SessionResponse is returned on login and refresh.
type SessionResponse struct {
	SessionToken string    `json:"sessionToken"`
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Redirect     string    `json:"redirect,omitempty"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	auth     config.AuthConfig
	accounts *account.Service
}

func NewAuthHandler(cfg config.AuthConfig, a *account.Service) *AuthHandler {
	return &AuthHandler{auth: cfg, accounts: a}
}

// Register routes under /auth. requireSession guards logout and refresh.
func (h *AuthHandler) Register(rg *gin.RouterGroup, requireSession gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/register", h.SignUp)
	a.POST("/login", h.Login)
	a.POST("/logout", requireSession, h.Logout)
	a.POST("/refresh", requireSession, h.Refresh)
}

// SignUp creates an account. The caller is not signed in afterwards and is
// pointed at the login screen.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Write(c, apperrors.NewValidationError("invalid request body", map[string]interface{}{"reason": err.Error()}))
		return
	}
	res, err := h.accounts.Register(c.Request.Context(), account.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		apperrors.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Login signs in and sets the session cookie. On failure the response echoes
// the email with an empty password so the form can be redrawn.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Write(c, apperrors.NewValidationError("invalid request body", map[string]interface{}{"reason": err.Error()}))
		return
	}
	res, err := h.accounts.Login(c.Request.Context(), account.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		ae := apperrors.As(err)
		apperrors.Write(c, ae.WithDetail("email", req.Email).WithDetail("password", ""))
		return
	}
	h.setCookie(c, res.Session)
	c.JSON(http.StatusOK, sessionResponse(res.Session, res.Redirect))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	if err := h.accounts.Logout(c.Request.Context(), sess); err != nil {
		apperrors.Write(c, err)
		return
	}
	h.clearCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out", "redirect": account.LoginPath})
}

// Refresh forces a provider token refresh for the current session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	next, err := h.accounts.Refresh(c.Request.Context(), sess)
	if err != nil {
		if ae := apperrors.As(err); ae.StatusCode == http.StatusUnauthorized {
			h.clearCookie(c)
		}
		apperrors.Write(c, err)
		return
	}
	h.setCookie(c, next)
	c.JSON(http.StatusOK, sessionResponse(next, ""))
}

func sessionResponse(s *sessions.Session, redirect string) SessionResponse {
	return SessionResponse{
		SessionToken: s.ID,
		UID:          s.UID,
		Email:        s.Email,
		ExpiresAt:    s.ExpiresAt,
		Redirect:     redirect,
	}
}

func (h *AuthHandler) setCookie(c *gin.Context, s *sessions.Session) {
	maxAge := int(time.Until(s.EndsAt).Seconds())
	if maxAge <= 0 {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.auth.CookieName, s.ID, maxAge, "/", "", h.auth.CookieSecure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.auth.CookieName, "", -1, "/", "", h.auth.CookieSecure, true)
}

// errMissingSession is reported when a route was registered without RequireSession.
var errMissingSession = errors.New("route requires a session")

// currentSession returns the session set by RequireSession, writing a 401
// when there is none.
func currentSession(c *gin.Context) (*sessions.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		apperrors.Write(c, middleware.Unauthenticated("not signed in", errMissingSession))
		return nil, false
	}
	return sess, true
}
