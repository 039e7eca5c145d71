package catalog

import (
	"github.com/markethub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant for Product
const AggregateTypeProduct = "Product"

// Event type constants for Product
const (
	EventTypeProductCreated   = "ProductCreated"
	EventTypeProductSubmitted = "ProductSubmitted"
	EventTypeProductApproved  = "ProductApproved"
	EventTypeProductRejected  = "ProductRejected"
)

// ProductCreatedEvent is published when a vendor creates a listing
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
	Title     string    `json:"title"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(p *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		VendorID:        p.VendorID,
		Title:           p.Title,
	}
}

// ProductSubmittedEvent is published when a listing enters the review queue
type ProductSubmittedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
}

// NewProductSubmittedEvent creates a new ProductSubmittedEvent
func NewProductSubmittedEvent(p *Product) *ProductSubmittedEvent {
	return &ProductSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductSubmitted, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		VendorID:        p.VendorID,
	}
}

// ProductApprovedEvent is published when an admin approval succeeds end to end
type ProductApprovedEvent struct {
	shared.BaseDomainEvent
	ProductID         uuid.UUID `json:"product_id"`
	VendorID          uuid.UUID `json:"vendor_id"`
	ExternalProductID string    `json:"external_product_id"`
}

// NewProductApprovedEvent creates a new ProductApprovedEvent
func NewProductApprovedEvent(p *Product, externalProductID string) *ProductApprovedEvent {
	return &ProductApprovedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeProductApproved, AggregateTypeProduct, p.ID),
		ProductID:         p.ID,
		VendorID:          p.VendorID,
		ExternalProductID: externalProductID,
	}
}

// ProductRejectedEvent is published when an admin rejects a listing
type ProductRejectedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
	Reason    string    `json:"reason"`
}

// NewProductRejectedEvent creates a new ProductRejectedEvent
func NewProductRejectedEvent(p *Product, reason string) *ProductRejectedEvent {
	return &ProductRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductRejected, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		VendorID:        p.VendorID,
		Reason:          reason,
	}
}
