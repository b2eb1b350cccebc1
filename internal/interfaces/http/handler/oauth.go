package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meliznube/backend/internal/infrastructure/auth"
	"github.com/meliznube/backend/internal/infrastructure/logger"
)

// OAuthHandler handles the one-time marketplace authorization flow.
type OAuthHandler struct {
	meliAuth *auth.MeliAuth
}

// NewOAuthHandler creates an OAuthHandler.
func NewOAuthHandler(meliAuth *auth.MeliAuth) *OAuthHandler {
	return &OAuthHandler{meliAuth: meliAuth}
}

type exchangeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Exchange trades an authorization code for stored credentials. After
// this succeeds once, token refresh keeps the credentials alive without
// further operator involvement.
func (h *OAuthHandler) Exchange(c *gin.Context) {
	log := logger.FromContext(c.Request.Context())

	var req exchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	if err := h.meliAuth.ExchangeCode(c.Request.Context(), req.Code); err != nil {
		log.Error("authorization code exchange failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "exchange failed"})
		return
	}

	log.Info("marketplace credentials stored")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
