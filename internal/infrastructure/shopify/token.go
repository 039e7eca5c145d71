package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/markethub/backend/internal/domain/integration"
	"github.com/markethub/backend/internal/infrastructure/cache"
)

// defaultTokenTTL caches non-expiring offline tokens for a bounded time
// so a revoked token is noticed within a day.
const defaultTokenTTL = 24 * time.Hour

// TokenSource provides admin API access tokens per shop domain. Cache
// misses are refilled via the client credentials grant; concurrent
// publishes against the same shop share a single exchange.
type TokenSource struct {
	config     *Config
	httpClient *http.Client
	store      cache.TokenStore
	group      singleflight.Group
	logger     *zap.Logger
}

// NewTokenSource creates a token source backed by the given cache
func NewTokenSource(config *Config, store cache.TokenStore, httpClient *http.Client, logger *zap.Logger) (*TokenSource, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &TokenSource{
		config:     config,
		httpClient: httpClient,
		store:      store,
		logger:     logger,
	}, nil
}

// Token returns a valid access token for the shop, refreshing through
// the token endpoint on a cache miss. The refresh is singleflighted per
// shop domain.
func (s *TokenSource) Token(ctx context.Context, shopDomain string) (string, error) {
	if !ValidShopDomain(shopDomain) {
		return "", fmt.Errorf("%w: %s", ErrInvalidShopDomain, shopDomain)
	}

	token, err, _ := s.group.Do(shopDomain, func() (any, error) {
		cached, ok, err := s.store.Get(ctx, shopDomain)
		if err != nil {
			return "", err
		}
		if ok {
			return cached, nil
		}

		s.logger.Info("exchanging access token", zap.String("shop_domain", shopDomain))
		return s.refresh(ctx, shopDomain)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// ExchangeCode redeems an OAuth authorization code for an access token
// and caches it for the shop. Called from the install callback.
func (s *TokenSource) ExchangeCode(ctx context.Context, shopDomain, code string) (string, error) {
	if !ValidShopDomain(shopDomain) {
		return "", fmt.Errorf("%w: %s", ErrInvalidShopDomain, shopDomain)
	}

	resp, err := s.exchange(ctx, shopDomain, accessTokenRequest{
		ClientID:     s.config.APIKey,
		ClientSecret: s.config.APISecret,
		Code:         code,
	})
	if err != nil {
		return "", err
	}

	if err := s.store.Set(ctx, shopDomain, resp.AccessToken, tokenTTL(resp)); err != nil {
		s.logger.Warn("failed to cache access token",
			zap.String("shop_domain", shopDomain), zap.Error(err))
	}
	return resp.AccessToken, nil
}

// Invalidate drops the cached token for a shop, forcing a re-exchange
// on the next publish
func (s *TokenSource) Invalidate(ctx context.Context, shopDomain string) error {
	return s.store.Delete(ctx, shopDomain)
}

// refresh re-acquires a token without an authorization code
func (s *TokenSource) refresh(ctx context.Context, shopDomain string) (string, error) {
	resp, err := s.exchange(ctx, shopDomain, accessTokenRequest{
		ClientID:     s.config.APIKey,
		ClientSecret: s.config.APISecret,
		GrantType:    "client_credentials",
	})
	if err != nil {
		return "", err
	}

	if err := s.store.Set(ctx, shopDomain, resp.AccessToken, tokenTTL(resp)); err != nil {
		s.logger.Warn("failed to cache access token",
			zap.String("shop_domain", shopDomain), zap.Error(err))
	}
	return resp.AccessToken, nil
}

// exchange performs the token endpoint POST with bounded retry
func (s *TokenSource) exchange(ctx context.Context, shopDomain string, reqBody accessTokenRequest) (*accessTokenResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to encode token request: %w", err)
	}

	var tokenResp *accessTokenResponse
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			s.config.TokenURL(shopDomain), bytes.NewReader(payload))
		if err != nil {
			return permanent(fmt.Errorf("shopify: failed to create token request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", integration.ErrStoreUnavailable, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return fmt.Errorf("shopify: failed to read token response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return permanent(fmt.Errorf("%w: HTTP %d", integration.ErrStoreAuthFailed, resp.StatusCode))
			}
			return classifyStatus(resp.StatusCode)
		}

		var parsed accessTokenResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return permanent(fmt.Errorf("%w: %v", integration.ErrStoreInvalidResponse, err))
		}
		if parsed.AccessToken == "" {
			return permanent(fmt.Errorf("%w: empty access token", integration.ErrStoreInvalidResponse))
		}
		tokenResp = &parsed
		return nil
	}

	if err := s.retry(ctx, op); err != nil {
		return nil, err
	}
	return tokenResp, nil
}

func (s *TokenSource) retry(ctx context.Context, op func() error) error {
	return retryWithBackoff(ctx, s.config, op)
}

func tokenTTL(resp *accessTokenResponse) time.Duration {
	if resp.ExpiresIn > 0 {
		return time.Duration(resp.ExpiresIn) * time.Second
	}
	return defaultTokenTTL
}
