package catalog

import (
	"context"
	"fmt"

	"github.com/markethub/backend/internal/domain/catalog"
	"github.com/markethub/backend/internal/domain/shared"
	"github.com/markethub/backend/internal/domain/vendor"
	"github.com/google/uuid"
)

// maxImageBytes bounds a single uploaded image payload (5MB)
const maxImageBytes = 5 * 1024 * 1024

// imageExtensions maps accepted upload content types to stored file
// extensions. Anything else is rejected.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageStorage is the port for persisting vendor-uploaded product
// images. Store writes the object and returns its public URL.
type ImageStorage interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ImageService handles vendor image uploads onto their own listings
type ImageService struct {
	productRepo catalog.ProductRepository
	vendorRepo  vendor.VendorRepository
	storage     ImageStorage
}

// NewImageService creates a new ImageService
func NewImageService(productRepo catalog.ProductRepository, vendorRepo vendor.VendorRepository, storage ImageStorage) *ImageService {
	return &ImageService{
		productRepo: productRepo,
		vendorRepo:  vendorRepo,
		storage:     storage,
	}
}

// AttachImage stores an uploaded image and appends its URL to the
// product's image list. Only the owning vendor may attach, and only
// while the product is editable.
func (s *ImageService) AttachImage(ctx context.Context, userID string, productID uuid.UUID, contentType string, data []byte) (*ProductResponse, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unsupported image content type: "+contentType)
	}
	if len(data) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Image payload is empty")
	}
	if len(data) > maxImageBytes {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Image exceeds the 5MB limit")
	}

	v, err := s.vendorRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.VendorID != v.ID {
		return nil, shared.NewDomainError("FORBIDDEN", "Product belongs to another vendor")
	}
	if p.Status != catalog.ProductStatusDraft && p.Status != catalog.ProductStatusRejected {
		return nil, shared.NewDomainError("INVALID_STATE", "Images can only be added to a draft or rejected product")
	}

	key := fmt.Sprintf("products/%s/%s%s", p.ID, uuid.New(), ext)
	url, err := s.storage.Store(ctx, key, data, contentType)
	if err != nil {
		return nil, shared.ErrRemote
	}

	if err := p.SetImages(append(p.Images, url)); err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, p); err != nil {
		return nil, err
	}

	response := ToProductResponse(p)
	return &response, nil
}
