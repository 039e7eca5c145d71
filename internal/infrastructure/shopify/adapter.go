package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/integration"
)

const (
	// maxResponseSize is the maximum allowed response size from the Admin API (10MB)
	maxResponseSize = 10 * 1024 * 1024
	// maxImageSize is the maximum image payload fetched for staging (20MB)
	maxImageSize = 20 * 1024 * 1024
)

// Adapter implements the Publisher port against the Shopify Admin API.
// Listings are created on the configured shop; image bytes are staged
// through stagedUploadsCreate before productCreate references them.
type Adapter struct {
	config     *Config
	httpClient *http.Client
	tokens     *TokenSource
	logger     *zap.Logger
}

// NewAdapter creates a Shopify adapter with the given configuration
func NewAdapter(config *Config, tokens *TokenSource, httpClient *http.Client, logger *zap.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &Adapter{
		config:     config,
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
	}, nil
}

// PublishProduct creates a listing on the configured shop. Image
// staging is best effort: a failed image is dropped and reported, never
// fatal. An error return means no listing was created.
func (a *Adapter) PublishProduct(ctx context.Context, req integration.PublishRequest) (*integration.PublishResult, error) {
	shop := a.config.ShopDomain
	if shop == "" {
		return nil, integration.ErrStoreNotConfigured
	}

	token, err := a.tokens.Token(ctx, shop)
	if err != nil {
		return nil, err
	}

	accepted, resources, dropped := a.stageImages(ctx, shop, token, req.ImageURLs)

	externalID, err := a.createProduct(ctx, shop, token, req, resources)
	if err != nil {
		return nil, err
	}

	a.logger.Info("published product listing",
		zap.String("shop_domain", shop),
		zap.String("product_id", req.ProductID.String()),
		zap.String("external_product_id", externalID),
		zap.Int("image_count", len(accepted)),
		zap.Int("dropped_images", len(dropped)))

	return &integration.PublishResult{
		ExternalProductID: externalID,
		AcceptedImages:    accepted,
		DroppedImages:     dropped,
	}, nil
}

// Ping verifies connectivity and credentials without side effects
func (a *Adapter) Ping(ctx context.Context) error {
	shop := a.config.ShopDomain
	if shop == "" {
		return integration.ErrStoreNotConfigured
	}

	token, err := a.tokens.Token(ctx, shop)
	if err != nil {
		return err
	}

	var data shopQueryData
	return a.doGraphQL(ctx, shop, token, shopQuery, nil, &data)
}

// ---------------------------------------------------------------------------
// Image staging
// ---------------------------------------------------------------------------

// stageImages uploads each image to a staged target, preserving input
// order. Failures drop the image and continue.
func (a *Adapter) stageImages(ctx context.Context, shop, token string, urls []string) (accepted, resources, dropped []string) {
	accepted = make([]string, 0, len(urls))
	resources = make([]string, 0, len(urls))
	dropped = make([]string, 0)

	for _, imageURL := range urls {
		resource, err := a.stageImage(ctx, shop, token, imageURL)
		if err != nil {
			a.logger.Warn("image staging failed, dropping image",
				zap.String("shop_domain", shop),
				zap.String("image_url", imageURL),
				zap.Error(err))
			dropped = append(dropped, imageURL)
			continue
		}
		accepted = append(accepted, imageURL)
		resources = append(resources, resource)
	}
	return accepted, resources, dropped
}

// stageImage fetches the image bytes, requests a staged upload target
// and posts the bytes to it, returning the staged resource URL
func (a *Adapter) stageImage(ctx context.Context, shop, token, imageURL string) (string, error) {
	data, contentType, filename, err := a.fetchImage(ctx, imageURL)
	if err != nil {
		return "", err
	}

	target, err := a.createStagedTarget(ctx, shop, token, filename, contentType)
	if err != nil {
		return "", err
	}

	if err := a.uploadToTarget(ctx, target, filename, contentType, data); err != nil {
		return "", err
	}
	return target.ResourceURL, nil
}

// fetchImage downloads the image bytes from the vendor-supplied URL
func (a *Adapter) fetchImage(ctx context.Context, imageURL string) ([]byte, string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", "", fmt.Errorf("shopify: failed to create image request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: %v", integration.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", "", fmt.Errorf("%w: image fetch HTTP %d", integration.ErrStoreRequestFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, "", "", fmt.Errorf("shopify: failed to read image: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = "image/jpeg"
	}

	filename := "image"
	if parsed, err := url.Parse(imageURL); err == nil {
		if base := path.Base(parsed.Path); base != "" && base != "/" && base != "." {
			filename = base
		}
	}
	return data, contentType, filename, nil
}

// createStagedTarget runs the stagedUploadsCreate mutation
func (a *Adapter) createStagedTarget(ctx context.Context, shop, token, filename, contentType string) (*stagedTarget, error) {
	variables := map[string]any{
		"input": []map[string]any{{
			"resource":   "IMAGE",
			"filename":   filename,
			"mimeType":   contentType,
			"httpMethod": "POST",
		}},
	}

	var data stagedUploadsCreateData
	if err := a.doGraphQL(ctx, shop, token, stagedUploadsCreateMutation, variables, &data); err != nil {
		return nil, err
	}

	if len(data.StagedUploadsCreate.UserErrors) > 0 {
		return nil, fmt.Errorf("%w: %s", integration.ErrStoreRequestFailed,
			joinUserErrors(data.StagedUploadsCreate.UserErrors))
	}
	if len(data.StagedUploadsCreate.StagedTargets) == 0 {
		return nil, fmt.Errorf("%w: no staged target returned", integration.ErrStoreInvalidResponse)
	}
	return &data.StagedUploadsCreate.StagedTargets[0], nil
}

// uploadToTarget posts the image bytes to the staged target as
// multipart form data, target parameters first, file field last
func (a *Adapter) uploadToTarget(ctx context.Context, target *stagedTarget, filename, contentType string, data []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, param := range target.Parameters {
		if err := writer.WriteField(param.Name, param.Value); err != nil {
			return fmt.Errorf("shopify: failed to write upload field: %w", err)
		}
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("shopify: failed to create upload part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("shopify: failed to write upload part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("shopify: failed to finalize upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, &body)
	if err != nil {
		return fmt.Errorf("shopify: failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: staged upload HTTP %d", integration.ErrStoreRequestFailed, resp.StatusCode)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Listing creation
// ---------------------------------------------------------------------------

// createProduct runs the productCreate mutation and returns the
// external product id
func (a *Adapter) createProduct(ctx context.Context, shop, token string, req integration.PublishRequest, resources []string) (string, error) {
	input := map[string]any{
		"title":           req.Title,
		"descriptionHtml": req.Description,
		"vendor":          req.VendorName,
		"variants": []map[string]any{{
			"price": req.Price.StringFixed(2),
		}},
	}
	if req.CompareAtPrice.IsPositive() {
		input["variants"].([]map[string]any)[0]["compareAtPrice"] = req.CompareAtPrice.StringFixed(2)
	}

	variables := map[string]any{"input": input}
	if len(resources) > 0 {
		media := make([]map[string]any, 0, len(resources))
		for _, resource := range resources {
			media = append(media, map[string]any{
				"originalSource":   resource,
				"mediaContentType": "IMAGE",
			})
		}
		variables["media"] = media
	}

	var data productCreateData
	if err := a.doGraphQL(ctx, shop, token, productCreateMutation, variables, &data); err != nil {
		return "", err
	}

	if len(data.ProductCreate.UserErrors) > 0 {
		return "", fmt.Errorf("%w: %s", integration.ErrPublishRejected,
			joinUserErrors(data.ProductCreate.UserErrors))
	}
	if data.ProductCreate.Product == nil || data.ProductCreate.Product.ID == "" {
		return "", fmt.Errorf("%w: missing product id", integration.ErrStoreInvalidResponse)
	}
	return data.ProductCreate.Product.ID, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// doGraphQL executes a GraphQL request with bounded retry. Timeouts and
// 5xx responses are retried; 4xx responses are not.
func (a *Adapter) doGraphQL(ctx context.Context, shop, token, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("shopify: failed to encode request: %w", err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			a.config.GraphQLURL(shop), bytes.NewReader(payload))
		if err != nil {
			return permanent(fmt.Errorf("shopify: failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Shopify-Access-Token", token)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", integration.ErrStoreUnavailable, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return fmt.Errorf("shopify: failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return permanent(fmt.Errorf("%w: HTTP %d", integration.ErrStoreAuthFailed, resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return classifyStatus(resp.StatusCode)
		}

		var envelope graphQLEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return permanent(fmt.Errorf("%w: %v", integration.ErrStoreInvalidResponse, err))
		}
		if len(envelope.Errors) > 0 {
			return permanent(fmt.Errorf("%w: %s", integration.ErrStoreRequestFailed, envelope.Errors[0].Message))
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return permanent(fmt.Errorf("%w: %v", integration.ErrStoreInvalidResponse, err))
		}
		return nil
	}

	return retryWithBackoff(ctx, a.config, op)
}

// retryWithBackoff retries op with exponential backoff up to the
// configured budget. Permanent errors stop immediately.
func retryWithBackoff(ctx context.Context, config *Config, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = config.RetryBackoff
	return backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(config.MaxRetries)), ctx))
}

func permanent(err error) error {
	return backoff.Permanent(err)
}

// classifyStatus maps non-OK HTTP statuses to publisher errors. 5xx is
// retryable; everything under it is not.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return permanent(fmt.Errorf("%w: HTTP %d", integration.ErrStoreRateLimited, status))
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d", integration.ErrStoreUnavailable, status)
	default:
		return permanent(fmt.Errorf("%w: HTTP %d", integration.ErrStoreRequestFailed, status))
	}
}

func joinUserErrors(errs []userError) string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		if len(e.Field) > 0 {
			messages = append(messages, fmt.Sprintf("%s: %s", strings.Join(e.Field, "."), e.Message))
			continue
		}
		messages = append(messages, e.Message)
	}
	return strings.Join(messages, "; ")
}

// Ensure Adapter implements the Publisher port
var _ integration.Publisher = (*Adapter)(nil)
