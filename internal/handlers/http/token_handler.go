package http

import (
	"net/http"
	"strings"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/ports"
	"roomcast/pkg/errors"
	"roomcast/pkg/validation"

	"github.com/gin-gonic/gin"
)

// TokenHandler serves the non-signaling token surface: mobile and other
// clients that talk to the media server directly and only need a credential.
type TokenHandler struct {
	tokenService ports.TokenService
	health       func(c *gin.Context)
}

func NewTokenHandler(tokenService ports.TokenService, health func(c *gin.Context)) *TokenHandler {
	return &TokenHandler{
		tokenService: tokenService,
		health:       health,
	}
}

func (h *TokenHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/token", h.IssueToken)
	}
	router.GET("/health", h.health)
}

type TokenRequest struct {
	RoomID   string `json:"roomId" binding:"required,max=100"`
	Name     string `json:"name" binding:"required,max=64"`
	Identity string `json:"identity,omitempty" binding:"max=128"`
}

func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId and name are required"})
		return
	}

	req.RoomID = strings.TrimSpace(req.RoomID)
	req.Name = strings.TrimSpace(req.Name)

	if err := validation.ValidateRoomID(req.RoomID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateDisplayName(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateIdentity(req.Identity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := req.Identity
	if identity == "" {
		identity = req.Name
	}

	cred, err := h.tokenService.MintJoinToken(c.Request.Context(), domain.RoomID(req.RoomID), req.Name, identity)
	if err != nil {
		appErr := errors.NewInternalError("failed to generate token")
		c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": cred.Token,
		"url":   cred.URL,
	})
}
