package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusgigs/campusgigs-backend/internal/auth"
	"github.com/campusgigs/campusgigs-backend/internal/models"
	"github.com/campusgigs/campusgigs-backend/internal/services"
)

// AuthHandler issues development tokens. The production identity provider
// sits in front of this service; only token *verification* is load-bearing.
type AuthHandler struct {
	Directory *services.DirectoryService
	Tokens    *auth.TokenProvider
}

func NewAuthHandler(directory *services.DirectoryService, tokens *auth.TokenProvider) *AuthHandler {
	return &AuthHandler{Directory: directory, Tokens: tokens}
}

type tokenRequest struct {
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Token is POST /auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	role := models.Role(req.Role)
	if role == "" {
		role = models.RoleSeeker
	}
	user, err := h.Directory.EnsureUser(c.Request.Context(), req.Email, req.DisplayName, role)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := h.Tokens.Generate(user.ID, user.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
