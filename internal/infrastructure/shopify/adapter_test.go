package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/integration"
	"github.com/markethub/backend/internal/infrastructure/cache"
)

// fakeStore simulates the Admin API surface a publish touches: image
// hosting, the GraphQL endpoint and the staged upload target.
type fakeStore struct {
	server *httptest.Server

	graphQLCalls     int32
	productVariables map[string]any
	uploadedFiles    int32

	productCreateStatus func() int
	productUserErrors   []userError
}

func newFakeStore(t *testing.T) *fakeStore {
	fs := &fakeStore{}

	mux := http.NewServeMux()
	mux.HandleFunc("/images/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "signed", r.FormValue("policy"))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		atomic.AddInt32(&fs.uploadedFiles, 1)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/admin/api/2024-10/graphql.json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fs.graphQLCalls, 1)
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch {
		case strings.Contains(req.Query, "stagedUploadsCreate"):
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"stagedUploadsCreate": map[string]any{
						"stagedTargets": []map[string]any{{
							"url":         fs.server.URL + "/upload",
							"resourceUrl": "https://cdn.shopify.test/staged/lamp.png",
							"parameters": []map[string]string{
								{"name": "policy", "value": "signed"},
							},
						}},
						"userErrors": []any{},
					},
				},
			})
		case strings.Contains(req.Query, "productCreate"):
			if fs.productCreateStatus != nil {
				if status := fs.productCreateStatus(); status != http.StatusOK {
					w.WriteHeader(status)
					return
				}
			}
			fs.productVariables = req.Variables
			if len(fs.productUserErrors) > 0 {
				json.NewEncoder(w).Encode(map[string]any{
					"data": map[string]any{
						"productCreate": map[string]any{
							"product":    nil,
							"userErrors": fs.productUserErrors,
						},
					},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"productCreate": map[string]any{
						"product":    map[string]string{"id": "gid://shopify/Product/42", "title": "Brass Desk Lamp"},
						"userErrors": []any{},
					},
				},
			})
		case strings.Contains(req.Query, "shop"):
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"shop": map[string]string{"name": "Lamp Emporium"}},
			})
		default:
			t.Fatalf("unexpected GraphQL query: %s", req.Query)
		}
	})

	fs.server = httptest.NewServer(mux)
	t.Cleanup(fs.server.Close)
	return fs
}

func newTestAdapter(t *testing.T, fs *fakeStore) *Adapter {
	config := testConfig(fs.server.URL)

	store := cache.NewInMemoryTokenStore()
	require.NoError(t, store.Set(context.Background(), testShop, "shpat_test", 0))

	tokens, err := NewTokenSource(config, store, nil, zap.NewNop())
	require.NoError(t, err)

	adapter, err := NewAdapter(config, tokens, nil, zap.NewNop())
	require.NoError(t, err)
	return adapter
}

func publishRequest(fs *fakeStore, imageURLs ...string) integration.PublishRequest {
	return integration.PublishRequest{
		ProductID:      uuid.New(),
		Title:          "Brass Desk Lamp",
		Description:    "A lamp of distinction",
		Price:          decimal.RequireFromString("19.99"),
		CompareAtPrice: decimal.RequireFromString("24.99"),
		VendorName:     "Lamp Emporium",
		ImageURLs:      imageURLs,
	}
}

func TestAdapter_PublishProduct(t *testing.T) {
	t.Run("stages images and creates the listing", func(t *testing.T) {
		fs := newFakeStore(t)
		adapter := newTestAdapter(t, fs)

		goodImage := fs.server.URL + "/images/lamp.png"
		result, err := adapter.PublishProduct(context.Background(), publishRequest(fs, goodImage))

		require.NoError(t, err)
		assert.Equal(t, "gid://shopify/Product/42", result.ExternalProductID)
		assert.Equal(t, []string{goodImage}, result.AcceptedImages)
		assert.Empty(t, result.DroppedImages)
		assert.Equal(t, int32(1), atomic.LoadInt32(&fs.uploadedFiles))

		input := fs.productVariables["input"].(map[string]any)
		assert.Equal(t, "Brass Desk Lamp", input["title"])
		assert.Equal(t, "Lamp Emporium", input["vendor"])

		variant := input["variants"].([]any)[0].(map[string]any)
		assert.Equal(t, "19.99", variant["price"])
		assert.Equal(t, "24.99", variant["compareAtPrice"])

		media := fs.productVariables["media"].([]any)
		require.Len(t, media, 1)
		assert.Equal(t, "https://cdn.shopify.test/staged/lamp.png",
			media[0].(map[string]any)["originalSource"])
	})

	t.Run("unfetchable image is dropped, listing still created", func(t *testing.T) {
		fs := newFakeStore(t)
		adapter := newTestAdapter(t, fs)

		goodImage := fs.server.URL + "/images/lamp.png"
		badImage := fs.server.URL + "/images/missing.png"
		result, err := adapter.PublishProduct(context.Background(), publishRequest(fs, goodImage, badImage))

		require.NoError(t, err)
		assert.Equal(t, "gid://shopify/Product/42", result.ExternalProductID)
		assert.Equal(t, []string{goodImage}, result.AcceptedImages)
		assert.Equal(t, []string{badImage}, result.DroppedImages)
	})

	t.Run("no images publishes without media", func(t *testing.T) {
		fs := newFakeStore(t)
		adapter := newTestAdapter(t, fs)

		result, err := adapter.PublishProduct(context.Background(), publishRequest(fs))

		require.NoError(t, err)
		assert.Equal(t, "gid://shopify/Product/42", result.ExternalProductID)
		assert.NotContains(t, fs.productVariables, "media")
	})

	t.Run("userErrors reject the publish", func(t *testing.T) {
		fs := newFakeStore(t)
		fs.productUserErrors = []userError{{Field: []string{"title"}, Message: "can't be blank"}}
		adapter := newTestAdapter(t, fs)

		result, err := adapter.PublishProduct(context.Background(), publishRequest(fs))

		assert.Nil(t, result)
		assert.ErrorIs(t, err, integration.ErrPublishRejected)
		assert.Contains(t, err.Error(), "title: can't be blank")
	})

	t.Run("server errors are retried then surfaced", func(t *testing.T) {
		fs := newFakeStore(t)
		var attempts int32
		fs.productCreateStatus = func() int {
			atomic.AddInt32(&attempts, 1)
			return http.StatusServiceUnavailable
		}
		adapter := newTestAdapter(t, fs)

		_, err := adapter.PublishProduct(context.Background(), publishRequest(fs))

		assert.ErrorIs(t, err, integration.ErrStoreUnavailable)
		// MaxRetries=2 means one initial attempt plus two retries
		assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	})

	t.Run("transient server error recovers", func(t *testing.T) {
		fs := newFakeStore(t)
		var attempts int32
		fs.productCreateStatus = func() int {
			if atomic.AddInt32(&attempts, 1) == 1 {
				return http.StatusBadGateway
			}
			return http.StatusOK
		}
		adapter := newTestAdapter(t, fs)

		result, err := adapter.PublishProduct(context.Background(), publishRequest(fs))

		require.NoError(t, err)
		assert.Equal(t, "gid://shopify/Product/42", result.ExternalProductID)
		assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	})

	t.Run("unconfigured shop fails fast", func(t *testing.T) {
		fs := newFakeStore(t)
		adapter := newTestAdapter(t, fs)
		adapter.config.ShopDomain = ""

		_, err := adapter.PublishProduct(context.Background(), publishRequest(fs))

		assert.ErrorIs(t, err, integration.ErrStoreNotConfigured)
	})
}

func TestAdapter_Ping(t *testing.T) {
	fs := newFakeStore(t)
	adapter := newTestAdapter(t, fs)

	assert.NoError(t, adapter.Ping(context.Background()))
}
