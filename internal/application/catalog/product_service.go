package catalog

import (
	"context"

	"github.com/markethub/backend/internal/domain/catalog"
	"github.com/markethub/backend/internal/domain/integration"
	"github.com/markethub/backend/internal/domain/shared"
	"github.com/markethub/backend/internal/domain/vendor"
	"github.com/markethub/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductService handles product lifecycle operations: vendor drafting
// and submission, admin review, and publication to the external store.
type ProductService struct {
	productRepo catalog.ProductRepository
	vendorRepo  vendor.VendorRepository
	publisher   integration.Publisher
}

// NewProductService creates a new ProductService
func NewProductService(productRepo catalog.ProductRepository, vendorRepo vendor.VendorRepository, publisher integration.Publisher) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		vendorRepo:  vendorRepo,
		publisher:   publisher,
	}
}

// Create creates a draft listing for the caller's vendor account.
// Only approved vendors may create listings. Prices are validated against
// the representable ceiling here, before any remote call could be made.
func (s *ProductService) Create(ctx context.Context, userID string, req CreateProductRequest) (*ProductResponse, error) {
	v, err := s.requireApprovedVendor(ctx, userID)
	if err != nil {
		return nil, err
	}

	p, err := catalog.NewProduct(v.ID, req.Title, req.Description)
	if err != nil {
		return nil, err
	}

	compareAt := decimal.Zero
	if req.CompareAtPrice != nil {
		compareAt = *req.CompareAtPrice
	}
	if err := p.SetPricing(req.Price, compareAt); err != nil {
		return nil, err
	}

	if len(req.Images) > 0 {
		if err := p.SetImages(req.Images); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, p); err != nil {
		return nil, err
	}

	response := ToProductResponse(p)
	return &response, nil
}

// Update edits a draft listing owned by the caller
func (s *ProductService) Update(ctx context.Context, userID string, productID uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	_, p, err := s.loadOwned(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	if p.Status != catalog.ProductStatusDraft && p.Status != catalog.ProductStatusRejected {
		return nil, shared.NewDomainError("INVALID_STATE", "Only a draft or rejected product can be edited")
	}

	if req.Title != nil || req.Description != nil {
		title := p.Title
		description := p.Description
		if req.Title != nil {
			title = *req.Title
		}
		if req.Description != nil {
			description = *req.Description
		}
		if err := p.Update(title, description); err != nil {
			return nil, err
		}
	}

	if req.Price != nil || req.CompareAtPrice != nil {
		price := p.Price
		compareAt := p.CompareAtPrice
		if req.Price != nil {
			price = *req.Price
		}
		if req.CompareAtPrice != nil {
			compareAt = *req.CompareAtPrice
		}
		if err := p.SetPricing(price, compareAt); err != nil {
			return nil, err
		}
	}

	if req.Images != nil {
		if err := p.SetImages(req.Images); err != nil {
			return nil, err
		}
	}

	// A rejected product returns to draft once the vendor revises it
	if p.Status == catalog.ProductStatusRejected {
		p.Status = catalog.ProductStatusDraft
		p.RejectionReason = ""
	}

	if err := s.productRepo.Save(ctx, p); err != nil {
		return nil, err
	}

	response := ToProductResponse(p)
	return &response, nil
}

// Submit moves the caller's draft into the admin review queue
func (s *ProductService) Submit(ctx context.Context, userID string, productID uuid.UUID) (*ProductResponse, error) {
	_, p, err := s.loadOwned(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	if err := p.Submit(); err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, p); err != nil {
		return nil, err
	}

	response := ToProductResponse(p)
	return &response, nil
}

// GetOwn retrieves one of the caller's own listings
func (s *ProductService) GetOwn(ctx context.Context, userID string, productID uuid.UUID) (*ProductResponse, error) {
	_, p, err := s.loadOwned(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	response := ToProductResponse(p)
	return &response, nil
}

// ListOwn retrieves the caller's listings
func (s *ProductService) ListOwn(ctx context.Context, userID string, filter ProductListFilter) ([]ProductResponse, int64, error) {
	v, err := s.vendorRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	domainFilter := buildFilter(filter)
	products, err := s.productRepo.FindByVendor(ctx, v.ID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.productRepo.CountByVendor(ctx, v.ID)
	if err != nil {
		return nil, 0, err
	}

	return ToProductResponses(products), total, nil
}

// List retrieves all listings with the owning vendor's name attached.
// The read is unrestricted; the admin role requirement is enforced at
// the HTTP layer.
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) ([]AdminProductResponse, int64, error) {
	domainFilter := buildFilter(filter)

	products, err := s.productRepo.FindAllWithVendor(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.productRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToAdminProductResponses(products), total, nil
}

// Approve publishes a pending product to the external store and marks it
// approved. The flow is claim first, publish second, persist last:
//
//  1. An optimistic claim on the pending row picks exactly one winner
//     among concurrent approvals; losers get ALREADY_PROCESSED.
//  2. The winner filters the image URLs and publishes. A publish failure
//     aborts before any local status change, so the product stays
//     pending and the decision can be retried.
//  3. Only after the store confirms does the approved status and the
//     external listing id reach the database.
func (s *ProductService) Approve(ctx context.Context, productID uuid.UUID) (*ApproveProductResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "product", "approve",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, productID.String()))
	defer span.End()

	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !p.IsPending() {
		return nil, shared.ErrAlreadyProcessed
	}

	owner, err := s.vendorRepo.FindByID(ctx, p.VendorID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.productRepo.ClaimPending(ctx, p.ID, p.Version); err != nil {
		return nil, err
	}

	accepted, dropped := integration.FilterImageURLs(p.Images)

	result, err := s.publisher.PublishProduct(ctx, integration.PublishRequest{
		ProductID:      p.ID,
		Title:          p.Title,
		Description:    p.Description,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		VendorName:     owner.BusinessName,
		ImageURLs:      accepted,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("PUBLISH_ERROR", "Publishing to the store failed: "+err.Error())
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrExternalProductID, result.ExternalProductID)

	if err := p.Approve(result.ExternalProductID, result.AcceptedImages); err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, p); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	allDropped := append(dropped, result.DroppedImages...)

	return &ApproveProductResponse{
		Product:       ToProductResponse(p),
		DroppedImages: allDropped,
	}, nil
}

// Reject marks a pending product rejected with reviewer feedback.
// The same optimistic claim guards against a racing approval.
func (s *ProductService) Reject(ctx context.Context, productID uuid.UUID, req RejectProductRequest) (*ProductResponse, error) {
	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsPending() {
		return nil, shared.ErrAlreadyProcessed
	}

	if err := s.productRepo.ClaimPending(ctx, p.ID, p.Version); err != nil {
		return nil, err
	}

	if err := p.Reject(req.Reason); err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, p); err != nil {
		return nil, err
	}

	response := ToProductResponse(p)
	return &response, nil
}

func (s *ProductService) requireApprovedVendor(ctx context.Context, userID string) (*vendor.Vendor, error) {
	v, err := s.vendorRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !v.IsApproved() {
		return nil, shared.NewDomainError("FORBIDDEN", "Vendor account is not approved")
	}
	return v, nil
}

func (s *ProductService) loadOwned(ctx context.Context, userID string, productID uuid.UUID) (*vendor.Vendor, *catalog.Product, error) {
	v, err := s.vendorRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, nil, err
	}

	if p.VendorID != v.ID {
		return nil, nil, shared.NewDomainError("FORBIDDEN", "Product belongs to another vendor")
	}

	return v, p, nil
}

func buildFilter(filter ProductListFilter) shared.Filter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]any),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}

	return domainFilter
}
