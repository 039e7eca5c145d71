package catalog

import (
	"context"

	"github.com/markethub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductWithVendor is a read model joining a product row with the
// owning vendor's display name for admin listings.
type ProductWithVendor struct {
	Product
	VendorBusinessName string
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)
	FindAllWithVendor(ctx context.Context, filter shared.Filter) ([]ProductWithVendor, error)
	FindByVendor(ctx context.Context, vendorID uuid.UUID, filter shared.Filter) ([]Product, error)
	FindByStatus(ctx context.Context, status ProductStatus, filter shared.Filter) ([]Product, error)
	Save(ctx context.Context, p *Product) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	CountByVendor(ctx context.Context, vendorID uuid.UUID) (int64, error)

	// ClaimPending performs the optimistic claim used by the approval
	// workflow: it bumps the row version only while the product is still
	// pending at the version the caller loaded. Exactly one of several
	// concurrent claimants wins; losers get shared.ErrAlreadyProcessed.
	ClaimPending(ctx context.Context, id uuid.UUID, version int) error
}
