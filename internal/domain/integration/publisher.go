// Package integration contains the ports for external commerce stores.
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Publisher Errors
// ---------------------------------------------------------------------------

var (
	ErrStoreNotConfigured   = errors.New("integration: store not configured")
	ErrStoreUnavailable     = errors.New("integration: store temporarily unavailable")
	ErrStoreRequestFailed   = errors.New("integration: store request failed")
	ErrStoreInvalidResponse = errors.New("integration: invalid store response")
	ErrStoreAuthFailed      = errors.New("integration: store authentication failed")
	ErrStoreRateLimited     = errors.New("integration: store rate limited")

	ErrPublishRejected = errors.New("integration: store rejected the product")
)

// ---------------------------------------------------------------------------
// Publish Contract
// ---------------------------------------------------------------------------

// PublishRequest carries everything the store needs to create a listing.
// ImageURLs must already have passed admission filtering.
type PublishRequest struct {
	ProductID      uuid.UUID
	Title          string
	Description    string
	Price          decimal.Decimal
	CompareAtPrice decimal.Decimal
	VendorName     string
	ImageURLs      []string
}

// PublishResult reports the created external listing.
// AcceptedImages lists the URLs that made it onto the listing, in the
// order they were attached; DroppedImages lists inputs the filter or the
// store discarded.
type PublishResult struct {
	ExternalProductID string
	AcceptedImages    []string
	DroppedImages     []string
}

// Publisher is the port for pushing an approved product to an external
// store. Implementations live in the infrastructure layer and must not
// partially commit: an error return means no durable listing exists.
type Publisher interface {
	PublishProduct(ctx context.Context, req PublishRequest) (*PublishResult, error)

	// Ping verifies connectivity and credentials without side effects.
	Ping(ctx context.Context) error
}
