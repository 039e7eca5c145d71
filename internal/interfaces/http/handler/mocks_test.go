package handler

import (
	"context"
	"testing"

	"github.com/markethub/backend/internal/domain/catalog"
	"github.com/markethub/backend/internal/domain/integration"
	"github.com/markethub/backend/internal/domain/shared"
	"github.com/markethub/backend/internal/domain/vendor"
	"github.com/markethub/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// authAs injects authenticated request context the way JWTAuth would
func authAs(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.AuthUserIDKey, userID)
		c.Set(middleware.AuthRoleKey, role)
		c.Next()
	}
}

// MockVendorRepository implements vendor.VendorRepository for testing
type MockVendorRepository struct {
	mock.Mock
}

func (m *MockVendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*vendor.Vendor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.Vendor), args.Error(1)
}

func (m *MockVendorRepository) FindByUserID(ctx context.Context, userID string) (*vendor.Vendor, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.Vendor), args.Error(1)
}

func (m *MockVendorRepository) FindAll(ctx context.Context, filter shared.Filter) ([]vendor.Vendor, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vendor.Vendor), args.Error(1)
}

func (m *MockVendorRepository) FindByStatus(ctx context.Context, status vendor.VendorStatus, filter shared.Filter) ([]vendor.Vendor, error) {
	args := m.Called(ctx, status, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vendor.Vendor), args.Error(1)
}

func (m *MockVendorRepository) Save(ctx context.Context, v *vendor.Vendor) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockVendorRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVendorRepository) ExistsByUserID(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// MockProductRepository implements catalog.ProductRepository for testing
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAllWithVendor(ctx context.Context, filter shared.Filter) ([]catalog.ProductWithVendor, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.ProductWithVendor), args.Error(1)
}

func (m *MockProductRepository) FindByVendor(ctx context.Context, vendorID uuid.UUID, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, vendorID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByStatus(ctx context.Context, status catalog.ProductStatus, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, status, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) CountByVendor(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	args := m.Called(ctx, vendorID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) ClaimPending(ctx context.Context, id uuid.UUID, version int) error {
	args := m.Called(ctx, id, version)
	return args.Error(0)
}

// MockPublisher implements integration.Publisher for testing
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishProduct(ctx context.Context, req integration.PublishRequest) (*integration.PublishResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.PublishResult), args.Error(1)
}

func (m *MockPublisher) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockImageStorage implements catalogapp.ImageStorage for testing
type MockImageStorage struct {
	mock.Mock
}

func (m *MockImageStorage) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

func approvedVendorFixture(t *testing.T, userID string) *vendor.Vendor {
	t.Helper()
	v, err := vendor.NewVendor(userID, "Lamp World", "Ada Vendor", "ada@lampworld.test")
	require.NoError(t, err)
	require.NoError(t, v.SetStatus(vendor.VendorStatusApproved))
	return v
}

func pendingProductFixture(t *testing.T, vendorID uuid.UUID) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(vendorID, "Brass Desk Lamp", "A lamp")
	require.NoError(t, err)
	require.NoError(t, p.SetPricing(decimal.RequireFromString("49.90"), decimal.Zero))
	require.NoError(t, p.SetImages([]string{"https://cdn.example.com/lamp.jpg"}))
	require.NoError(t, p.Submit())
	return p
}

func draftProductFixture(t *testing.T, vendorID uuid.UUID) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(vendorID, "Brass Desk Lamp", "A lamp")
	require.NoError(t, err)
	require.NoError(t, p.SetPricing(decimal.RequireFromString("49.90"), decimal.Zero))
	return p
}
