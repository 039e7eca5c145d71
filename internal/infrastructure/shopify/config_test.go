package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidShopDomain(t *testing.T) {
	tests := []struct {
		name string
		shop string
		want bool
	}{
		{"plain store", "lamps.myshopify.com", true},
		{"hyphenated store", "lamp-emporium-2.myshopify.com", true},
		{"missing suffix", "lamps.example.com", false},
		{"suffix only", ".myshopify.com", false},
		{"embedded suffix", "lamps.myshopify.com.evil.com", false},
		{"scheme included", "https://lamps.myshopify.com", false},
		{"empty", "", false},
		{"path smuggling", "lamps.myshopify.com/admin", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidShopDomain(tt.shop))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{
			name: "valid config",
			config: &Config{
				APIKey:      "key",
				APISecret:   "secret",
				RedirectURL: "https://portal.example.com/shopify/callback",
			},
			wantErr: nil,
		},
		{
			name: "missing api key",
			config: &Config{
				APISecret:   "secret",
				RedirectURL: "https://portal.example.com/shopify/callback",
			},
			wantErr: ErrConfigMissingAPIKey,
		},
		{
			name: "missing api secret",
			config: &Config{
				APIKey:      "key",
				RedirectURL: "https://portal.example.com/shopify/callback",
			},
			wantErr: ErrConfigMissingAPISecret,
		},
		{
			name: "missing redirect url",
			config: &Config{
				APIKey:    "key",
				APISecret: "secret",
			},
			wantErr: ErrConfigMissingRedirectURL,
		},
		{
			name: "bad shop domain",
			config: &Config{
				APIKey:      "key",
				APISecret:   "secret",
				RedirectURL: "https://portal.example.com/shopify/callback",
				ShopDomain:  "lamps.example.com",
			},
			wantErr: ErrInvalidShopDomain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			// Defaults fill in
			assert.Equal(t, "2024-10", tt.config.APIVersion)
			assert.Equal(t, "write_products", tt.config.Scopes)
			assert.Equal(t, 30*time.Second, tt.config.Timeout)
			assert.Equal(t, 3, tt.config.MaxRetries)
		})
	}
}

func TestConfig_AuthorizeURL(t *testing.T) {
	config := &Config{
		APIKey:      "client-id",
		APISecret:   "secret",
		Scopes:      "write_products",
		RedirectURL: "https://portal.example.com/shopify/callback",
	}

	raw := config.AuthorizeURL("lamps.myshopify.com", "state-token")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "lamps.myshopify.com", parsed.Host)
	assert.Equal(t, "/admin/oauth/authorize", parsed.Path)
	assert.Equal(t, "client-id", parsed.Query().Get("client_id"))
	assert.Equal(t, "write_products", parsed.Query().Get("scope"))
	assert.Equal(t, "state-token", parsed.Query().Get("state"))
	assert.Equal(t, config.RedirectURL, parsed.Query().Get("redirect_uri"))
}

func TestConfig_VerifyCallbackHMAC(t *testing.T) {
	config := &Config{APISecret: "hush"}

	sign := func(message string) string {
		mac := hmac.New(sha256.New, []byte("hush"))
		mac.Write([]byte(message))
		return hex.EncodeToString(mac.Sum(nil))
	}

	t.Run("valid signature passes", func(t *testing.T) {
		query := url.Values{}
		query.Set("code", "abc")
		query.Set("shop", "lamps.myshopify.com")
		query.Set("state", "xyz")
		query.Set("hmac", sign("code=abc&shop=lamps.myshopify.com&state=xyz"))

		assert.True(t, config.VerifyCallbackHMAC(query))
	})

	t.Run("hmac and signature params are excluded from the message", func(t *testing.T) {
		query := url.Values{}
		query.Set("code", "abc")
		query.Set("signature", "legacy")
		query.Set("hmac", sign("code=abc"))

		assert.True(t, config.VerifyCallbackHMAC(query))
	})

	t.Run("tampered query fails", func(t *testing.T) {
		query := url.Values{}
		query.Set("code", "abc")
		query.Set("hmac", sign("code=abc"))
		query.Set("shop", "evil.myshopify.com")

		assert.False(t, config.VerifyCallbackHMAC(query))
	})

	t.Run("missing hmac fails", func(t *testing.T) {
		query := url.Values{}
		query.Set("code", "abc")

		assert.False(t, config.VerifyCallbackHMAC(query))
	})
}
