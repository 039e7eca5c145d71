package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ShopDomainSuffix is the only hostname suffix accepted for store domains.
const ShopDomainSuffix = ".myshopify.com"

// Errors for Shopify configuration
var (
	ErrConfigMissingAPIKey      = errors.New("shopify: api key is required")
	ErrConfigMissingAPISecret   = errors.New("shopify: api secret is required")
	ErrConfigMissingRedirectURL = errors.New("shopify: redirect url is required")
	ErrInvalidShopDomain        = errors.New("shopify: invalid shop domain")
)

var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*\.myshopify\.com$`)

// ValidShopDomain reports whether shop is a well-formed myshopify.com
// store domain. Everything else is rejected before any network call.
func ValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}

// Config holds Shopify app credentials and client behavior
type Config struct {
	// APIKey is the app client id from the Shopify partner dashboard
	APIKey string
	// APISecret is the app client secret, also used for HMAC verification
	APISecret string
	// ShopDomain is the store listings are published to
	ShopDomain string
	// APIVersion is the Admin API version, e.g. "2024-10"
	APIVersion string
	// Scopes is the comma-separated OAuth scope list requested on install
	Scopes string
	// RedirectURL is the OAuth callback URL registered with the app
	RedirectURL string
	// Timeout is the per-request HTTP timeout
	Timeout time.Duration
	// MaxRetries bounds retries of retryable failures
	MaxRetries int
	// RetryBackoff is the initial backoff interval between retries
	RetryBackoff time.Duration
	// BaseURL overrides the per-shop https://{shop} origin. Used for
	// sandbox and test environments; empty in production.
	BaseURL string
}

// origin returns the API origin for a shop, honoring BaseURL
func (c *Config) origin(shop string) string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	return "https://" + shop
}

// Validate validates the Shopify configuration and fills defaults
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	if c.APISecret == "" {
		return ErrConfigMissingAPISecret
	}
	if c.RedirectURL == "" {
		return ErrConfigMissingRedirectURL
	}
	if c.ShopDomain != "" && !ValidShopDomain(c.ShopDomain) {
		return fmt.Errorf("%w: %s", ErrInvalidShopDomain, c.ShopDomain)
	}
	if c.APIVersion == "" {
		c.APIVersion = "2024-10"
	}
	if c.Scopes == "" {
		c.Scopes = "write_products"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	return nil
}

// AuthorizeURL builds the authorization URL a merchant is redirected to
// when installing the app on the given shop.
func (c *Config) AuthorizeURL(shop, state string) string {
	values := url.Values{}
	values.Set("client_id", c.APIKey)
	values.Set("scope", c.Scopes)
	values.Set("redirect_uri", c.RedirectURL)
	values.Set("state", state)
	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, values.Encode())
}

// TokenURL returns the access token exchange endpoint for a shop
func (c *Config) TokenURL(shop string) string {
	return c.origin(shop) + "/admin/oauth/access_token"
}

// GraphQLURL returns the Admin GraphQL endpoint for a shop
func (c *Config) GraphQLURL(shop string) string {
	return fmt.Sprintf("%s/admin/api/%s/graphql.json", c.origin(shop), c.APIVersion)
}

// VerifyCallbackHMAC checks the hmac parameter Shopify appends to OAuth
// callback query strings. The message is every other parameter sorted by
// key and joined with '&'; the signature is HMAC-SHA256 under the app
// secret, hex encoded.
func (c *Config) VerifyCallbackHMAC(query url.Values) bool {
	provided := query.Get("hmac")
	if provided == "" {
		return false
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, k := range keys {
		if i > 0 {
			builder.WriteByte('&')
		}
		builder.WriteString(k)
		builder.WriteByte('=')
		builder.WriteString(query.Get(k))
	}

	mac := hmac.New(sha256.New, []byte(c.APISecret))
	mac.Write([]byte(builder.String()))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(provided))
}
