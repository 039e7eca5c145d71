package handler

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/markethub/backend/internal/infrastructure/cache"
	"github.com/markethub/backend/internal/infrastructure/shopify"
	"github.com/markethub/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// installStateTTL bounds how long a merchant can sit on the consent
// screen before the install link expires
const installStateTTL = 10 * time.Minute

// ShopifyHandler drives the OAuth install flow for connecting a store
type ShopifyHandler struct {
	BaseHandler
	config *shopify.Config
	states cache.StateStore
	tokens *shopify.TokenSource
	logger *zap.Logger
}

// NewShopifyHandler creates a new ShopifyHandler
func NewShopifyHandler(config *shopify.Config, states cache.StateStore, tokens *shopify.TokenSource, logger *zap.Logger) *ShopifyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShopifyHandler{
		config: config,
		states: states,
		tokens: tokens,
		logger: logger,
	}
}

// Install starts the OAuth flow: validates the shop domain, stores a
// one-shot state nonce, and redirects to the shop's consent screen.
// GET /shopify/install?shop=<shop>.myshopify.com
func (h *ShopifyHandler) Install(c *gin.Context) {
	shop := c.Query("shop")
	if !shopify.ValidShopDomain(shop) {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid shop domain")
		return
	}

	state, err := generateState()
	if err != nil {
		h.InternalError(c, "Failed to start install flow")
		return
	}

	payload := cache.InstallState{
		ShopDomain: shop,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.states.Save(c.Request.Context(), state, payload, installStateTTL); err != nil {
		h.logger.Error("Failed to persist install state",
			zap.String("shop_domain", shop),
			zap.Error(err))
		h.InternalError(c, "Failed to start install flow")
		return
	}

	h.logger.Info("Starting store install flow", zap.String("shop_domain", shop))
	c.Redirect(http.StatusFound, h.config.AuthorizeURL(shop, state))
}

// Callback completes the OAuth flow. The state nonce must match a
// pending install, the query must carry a valid HMAC signature, and the
// authorization code is exchanged for an access token before anything
// is acknowledged.
// GET /shopify/callback?code=...&shop=...&state=...&hmac=...
func (h *ShopifyHandler) Callback(c *gin.Context) {
	shop := c.Query("shop")
	code := c.Query("code")
	state := c.Query("state")

	if shop == "" || code == "" || state == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Missing callback parameters")
		return
	}

	pending, err := h.states.Consume(c.Request.Context(), state)
	if err != nil {
		h.logger.Error("Failed to look up install state", zap.Error(err))
		h.InternalError(c, "Failed to complete install flow")
		return
	}
	if pending == nil || pending.ShopDomain != shop {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Unknown or expired install state")
		return
	}

	if !h.config.VerifyCallbackHMAC(c.Request.URL.Query()) {
		h.logger.Warn("Callback HMAC verification failed", zap.String("shop_domain", shop))
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid callback signature")
		return
	}

	if _, err := h.tokens.ExchangeCode(c.Request.Context(), shop, code); err != nil {
		h.logger.Error("Authorization code exchange failed",
			zap.String("shop_domain", shop),
			zap.Error(err))
		h.Error(c, http.StatusBadGateway, dto.ErrCodeRemote, "Token exchange with the store failed")
		return
	}

	h.logger.Info("Store connected", zap.String("shop_domain", shop))
	h.Success(c, gin.H{"shop": shop, "connected": true})
}

// generateState returns a 128-bit random hex nonce
func generateState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
