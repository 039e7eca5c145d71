package catalog

import (
	"time"

	"github.com/markethub/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a vendor's request to create a listing
type CreateProductRequest struct {
	Title          string           `json:"title" binding:"required,min=1,max=200"`
	Description    string           `json:"description" binding:"max=5000"`
	Price          decimal.Decimal  `json:"price" binding:"required"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
	Images         []string         `json:"images" binding:"max=10,dive,max=2000"`
}

// UpdateProductRequest represents a vendor's edit to a draft listing
type UpdateProductRequest struct {
	Title          *string          `json:"title" binding:"omitempty,min=1,max=200"`
	Description    *string          `json:"description" binding:"omitempty,max=5000"`
	Price          *decimal.Decimal `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
	Images         []string         `json:"images" binding:"omitempty,max=10,dive,max=2000"`
}

// RejectProductRequest carries the reviewer's feedback
type RejectProductRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=1000"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID                uuid.UUID       `json:"id"`
	VendorID          uuid.UUID       `json:"vendor_id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	CompareAtPrice    decimal.Decimal `json:"compare_at_price"`
	Images            []string        `json:"images"`
	Status            string          `json:"status"`
	ExternalProductID *string         `json:"external_product_id,omitempty"`
	RejectionReason   string          `json:"rejection_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// AdminProductResponse is the admin list item with the vendor denormalized
type AdminProductResponse struct {
	ProductResponse
	VendorBusinessName string `json:"vendor_business_name"`
}

// ApproveProductResponse reports the outcome of a successful approval
type ApproveProductResponse struct {
	Product       ProductResponse `json:"product"`
	DroppedImages []string        `json:"dropped_images"`
}

// ProductListFilter represents filter options for product lists
type ProductListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=draft pending approved rejected"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToProductResponse converts a domain product to a response DTO
func ToProductResponse(p *catalog.Product) ProductResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return ProductResponse{
		ID:                p.ID,
		VendorID:          p.VendorID,
		Title:             p.Title,
		Description:       p.Description,
		Price:             p.Price,
		CompareAtPrice:    p.CompareAtPrice,
		Images:            images,
		Status:            string(p.Status),
		ExternalProductID: p.ExternalProductID,
		RejectionReason:   p.RejectionReason,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		Version:           p.Version,
	}
}

// ToProductResponses converts a slice of domain products.
// The result is never nil so list endpoints marshal to [] rather than null.
func ToProductResponses(products []catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, 0, len(products))
	for i := range products {
		responses = append(responses, ToProductResponse(&products[i]))
	}
	return responses
}

// ToAdminProductResponses converts the joined admin read model
func ToAdminProductResponses(products []catalog.ProductWithVendor) []AdminProductResponse {
	responses := make([]AdminProductResponse, 0, len(products))
	for i := range products {
		responses = append(responses, AdminProductResponse{
			ProductResponse:    ToProductResponse(&products[i].Product),
			VendorBusinessName: products[i].VendorBusinessName,
		})
	}
	return responses
}
