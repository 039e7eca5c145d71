package catalog

import (
	"strings"
	"time"

	"github.com/markethub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the review status of a product listing
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusPending  ProductStatus = "pending"
	ProductStatusApproved ProductStatus = "approved"
	ProductStatusRejected ProductStatus = "rejected"
)

// MaxImages caps the number of image URLs a listing may carry
const MaxImages = 10

// MaxPrice is the largest representable price under the storage schema
// (decimal(10,2)). Anything above it is rejected locally before any
// store call so the overflow never surfaces as a storage error.
var MaxPrice = decimal.RequireFromString("99999999.99")

// Product represents a vendor-submitted listing pending admin review.
// It is the aggregate root for catalog operations.
type Product struct {
	shared.BaseAggregateRoot
	VendorID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title             string          `gorm:"type:varchar(200);not null"`
	Description       string          `gorm:"type:text"`
	Price             decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	CompareAtPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Images            []string        `gorm:"serializer:json;type:text"`
	Status            ProductStatus   `gorm:"type:varchar(20);not null;default:'draft';index"`
	ExternalProductID *string         `gorm:"type:varchar(100)"`
	RejectionReason   string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new draft product for a vendor
func NewProduct(vendorID uuid.UUID, title, description string) (*Product, error) {
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor reference cannot be empty")
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		VendorID:          vendorID,
		Title:             strings.TrimSpace(title),
		Description:       description,
		Price:             decimal.Zero,
		CompareAtPrice:    decimal.Zero,
		Images:            []string{},
		Status:            ProductStatusDraft,
	}

	p.AddDomainEvent(NewProductCreatedEvent(p))

	return p, nil
}

// Update updates the product's basic information
func (p *Product) Update(title, description string) error {
	if err := validateTitle(title); err != nil {
		return err
	}

	p.Title = strings.TrimSpace(title)
	p.Description = description
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetPricing sets the price and optional compare-at price.
// Both are validated against the representable ceiling here, before the
// record ever reaches the store.
func (p *Product) SetPricing(price, compareAt decimal.Decimal) error {
	if err := validatePrice(price); err != nil {
		return err
	}
	if !compareAt.IsZero() {
		if err := validatePrice(compareAt); err != nil {
			return err
		}
	}

	p.Price = price
	p.CompareAtPrice = compareAt
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetImages replaces the ordered image URL list.
// Only the count is enforced here; URL admission happens at publish time.
func (p *Product) SetImages(urls []string) error {
	if len(urls) > MaxImages {
		return shared.NewDomainError("VALIDATION_ERROR", "A listing cannot carry more than 10 images")
	}

	images := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u != "" {
			images = append(images, u)
		}
	}

	p.Images = images
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Submit moves a draft into the admin review queue
func (p *Product) Submit() error {
	if p.Status != ProductStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Only a draft product can be submitted for review")
	}

	p.Status = ProductStatusPending
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductSubmittedEvent(p))

	return nil
}

// Approve marks a pending product approved and records the external
// listing it was published as. The external id is required: an approved
// product without a published counterpart is an invariant violation.
func (p *Product) Approve(externalProductID string, publishedImages []string) error {
	if p.Status != ProductStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only a pending product can be approved")
	}
	if externalProductID == "" {
		return shared.NewDomainError("INVALID_INPUT", "External product id cannot be empty on approval")
	}

	p.Status = ProductStatusApproved
	p.ExternalProductID = &externalProductID
	p.Images = publishedImages
	p.RejectionReason = ""
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductApprovedEvent(p, externalProductID))

	return nil
}

// Reject marks a pending product rejected with reviewer feedback
func (p *Product) Reject(reason string) error {
	if p.Status != ProductStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only a pending product can be rejected")
	}

	p.Status = ProductStatusRejected
	p.RejectionReason = reason
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductRejectedEvent(p, reason))

	return nil
}

// IsPending returns true if the product awaits review
func (p *Product) IsPending() bool {
	return p.Status == ProductStatusPending
}

// IsApproved returns true if the product has been published
func (p *Product) IsApproved() bool {
	return p.Status == ProductStatusApproved
}

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Product title cannot be empty")
	}
	if len(title) > 200 {
		return shared.NewDomainError("INVALID_TITLE", "Product title cannot exceed 200 characters")
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Price cannot be negative")
	}
	if price.GreaterThan(MaxPrice) {
		return shared.NewDomainError("VALIDATION_ERROR", "Price exceeds the maximum of 99999999.99")
	}
	return nil
}

var _ shared.AggregateRoot = (*Product)(nil)
