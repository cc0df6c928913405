package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/accountdesk/accountdesk/internal/account"
	"github.com/accountdesk/accountdesk/internal/storage"
	"github.com/accountdesk/accountdesk/pkg/apperrors"
)

type UpdateNameRequest struct {
	DisplayName string `json:"displayName"`
}

// DashboardHandler serves the signed-in profile screen.
type DashboardHandler struct {
	accounts *account.Service
}

func NewDashboardHandler(a *account.Service) *DashboardHandler {
	return &DashboardHandler{accounts: a}
}

// Register routes on an /api/v1 group already guarded by RequireSession.
func (h *DashboardHandler) Register(api *gin.RouterGroup) {
	api.GET("/dashboard", h.Dashboard)
	api.PATCH("/profile/name", h.UpdateName)
	api.POST("/profile/verification", h.ResendVerification)
	if h.accounts.AvatarsEnabled() {
		api.POST("/profile/photo", h.UploadPhoto)
	}
}

func (h *DashboardHandler) Dashboard(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	view, err := h.accounts.Dashboard(c.Request.Context(), sess)
	if err != nil {
		apperrors.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account": view.Account,
		"profile": view.Profile,
		"session": gin.H{"expiresAt": sess.ExpiresAt.Format(time.RFC3339)},
	})
}

func (h *DashboardHandler) UpdateName(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req UpdateNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Write(c, apperrors.NewValidationError("invalid request body", map[string]interface{}{"reason": err.Error()}))
		return
	}
	name, err := h.accounts.UpdateDisplayName(c.Request.Context(), sess, req.DisplayName)
	if err != nil {
		apperrors.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"displayName": name})
}

func (h *DashboardHandler) ResendVerification(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	if err := h.accounts.ResendVerification(c.Request.Context(), sess); err != nil {
		apperrors.Write(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"sent": true})
}

// UploadPhoto takes a multipart "photo" field.
func (h *DashboardHandler) UploadPhoto(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	// leave room for multipart framing
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxAvatarBytes+64<<10)
	fh, err := c.FormFile("photo")
	if err != nil {
		apperrors.Write(c, apperrors.NewValidationError("photo file is required", map[string]interface{}{"reason": err.Error()}))
		return
	}
	f, err := fh.Open()
	if err != nil {
		apperrors.Write(c, apperrors.NewInternalError("could not read upload", err))
		return
	}
	defer f.Close()

	url, err := h.accounts.UploadPhoto(c.Request.Context(), sess, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		apperrors.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photoURL": url})
}
