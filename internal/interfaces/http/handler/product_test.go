package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	catalogapp "github.com/markethub/backend/internal/application/catalog"
	"github.com/markethub/backend/internal/domain/catalog"
	"github.com/markethub/backend/internal/domain/integration"
	"github.com/markethub/backend/internal/domain/shared"
	"github.com/markethub/backend/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type productTestEnv struct {
	products *MockProductRepository
	vendors  *MockVendorRepository
	pub      *MockPublisher
	storage  *MockImageStorage
	router   *gin.Engine
}

func newProductTestEnv(userID, role string) *productTestEnv {
	env := &productTestEnv{
		products: new(MockProductRepository),
		vendors:  new(MockVendorRepository),
		pub:      new(MockPublisher),
		storage:  new(MockImageStorage),
	}

	productService := catalogapp.NewProductService(env.products, env.vendors, env.pub)
	imageService := catalogapp.NewImageService(env.products, env.vendors, env.storage)
	h := NewProductHandler(productService, imageService)

	r := gin.New()
	r.Use(authAs(userID, role))
	r.POST("/products", h.Create)
	r.GET("/products", h.List)
	r.GET("/products/:id", h.Get)
	r.PUT("/products/:id", h.Update)
	r.POST("/products/:id/submit", h.Submit)
	r.POST("/products/:id/images", h.UploadImage)
	r.GET("/admin/products", h.ListAll)
	r.POST("/admin/products/:id/approve", h.Approve)
	r.POST("/admin/products/:id/reject", h.Reject)
	env.router = r
	return env
}

func TestProductHandler_Create(t *testing.T) {
	env := newProductTestEnv("user-1", auth.RoleVendor)
	v := approvedVendorFixture(t, "user-1")
	env.vendors.On("FindByUserID", mock.Anything, "user-1").Return(v, nil)
	env.products.On("Save", mock.Anything, mock.AnythingOfType("*catalog.Product")).Return(nil)

	body := `{"title":"Brass Desk Lamp","description":"A lamp","price":"49.90"}`
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"draft"`)
	// Empty image list marshals as [], never null
	assert.Contains(t, w.Body.String(), `"images":[]`)
}

func TestProductHandler_Create_UnapprovedVendor(t *testing.T) {
	env := newProductTestEnv("user-1", auth.RoleVendor)
	v := approvedVendorFixture(t, "user-1")
	v.Status = "pending"
	env.vendors.On("FindByUserID", mock.Anything, "user-1").Return(v, nil)

	body := `{"title":"Brass Desk Lamp","price":"49.90"}`
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_FORBIDDEN")
	env.products.AssertNotCalled(t, "Save")
}

func TestProductHandler_Create_PriceOverCeiling(t *testing.T) {
	env := newProductTestEnv("user-1", auth.RoleVendor)
	v := approvedVendorFixture(t, "user-1")
	env.vendors.On("FindByUserID", mock.Anything, "user-1").Return(v, nil)

	body := `{"title":"Brass Desk Lamp","price":"100000000.00"}`
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env.products.AssertNotCalled(t, "Save")
}

func TestProductHandler_Submit(t *testing.T) {
	env := newProductTestEnv("user-1", auth.RoleVendor)
	v := approvedVendorFixture(t, "user-1")
	p := draftProductFixture(t, v.ID)
	env.vendors.On("FindByUserID", mock.Anything, "user-1").Return(v, nil)
	env.products.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	env.products.On("Save", mock.Anything, p).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/products/"+p.ID.String()+"/submit", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
}

func TestProductHandler_Get_ForeignProduct(t *testing.T) {
	env := newProductTestEnv("user-1", auth.RoleVendor)
	v := approvedVendorFixture(t, "user-1")
	other := approvedVendorFixture(t, "user-2")
	p := draftProductFixture(t, other.ID)
	env.vendors.On("FindByUserID", mock.Anything, "user-1").Return(v, nil)
	env.products.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	req := httptest.NewRequest(http.MethodGet, "/products/"+p.ID.String(), nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProductHandler_Get_InvalidID(t *testing.T) {
	env := newProductTestEnv("user-1", auth.RoleVendor)

	req := httptest.NewRequest(http.MethodGet, "/products/not-a-uuid", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductHandler_Approve(t *testing.T) {
	env := newProductTestEnv("admin-1", auth.RoleAdmin)
	v := approvedVendorFixture(t, "user-1")
	p := pendingProductFixture(t, v.ID)

	env.products.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	env.vendors.On("FindByID", mock.Anything, v.ID).Return(v, nil)
	env.products.On("ClaimPending", mock.Anything, p.ID, p.Version).Return(nil)
	env.pub.On("PublishProduct", mock.Anything, mock.AnythingOfType("integration.PublishRequest")).Return(&integration.PublishResult{
		ExternalProductID: "gid://shopify/Product/1",
		AcceptedImages:    []string{"https://cdn.example.com/lamp.jpg"},
		DroppedImages:     []string{},
	}, nil)
	env.products.On("Save", mock.Anything, p).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/products/"+p.ID.String()+"/approve", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"approved"`)
	assert.Contains(t, w.Body.String(), "gid://shopify/Product/1")
	assert.Contains(t, w.Body.String(), `"dropped_images":[]`)
	env.pub.AssertExpectations(t)
}

func TestProductHandler_Approve_AlreadyProcessed(t *testing.T) {
	env := newProductTestEnv("admin-1", auth.RoleAdmin)
	v := approvedVendorFixture(t, "user-1")
	p := pendingProductFixture(t, v.ID)
	require.NoError(t, p.Reject("blurry photos"))

	env.products.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/products/"+p.ID.String()+"/approve", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_ALREADY_PROCESSED")
	env.pub.AssertNotCalled(t, "PublishProduct")
}

func TestProductHandler_Approve_LostClaim(t *testing.T) {
	env := newProductTestEnv("admin-1", auth.RoleAdmin)
	v := approvedVendorFixture(t, "user-1")
	p := pendingProductFixture(t, v.ID)

	env.products.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	env.vendors.On("FindByID", mock.Anything, v.ID).Return(v, nil)
	env.products.On("ClaimPending", mock.Anything, p.ID, p.Version).Return(shared.ErrAlreadyProcessed)

	req := httptest.NewRequest(http.MethodPost, "/admin/products/"+p.ID.String()+"/approve", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	env.pub.AssertNotCalled(t, "PublishProduct")
}

func TestProductHandler_Approve_PublishFailure(t *testing.T) {
	env := newProductTestEnv("admin-1", auth.RoleAdmin)
	v := approvedVendorFixture(t, "user-1")
	p := pendingProductFixture(t, v.ID)

	env.products.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	env.vendors.On("FindByID", mock.Anything, v.ID).Return(v, nil)
	env.products.On("ClaimPending", mock.Anything, p.ID, p.Version).Return(nil)
	env.pub.On("PublishProduct", mock.Anything, mock.AnythingOfType("integration.PublishRequest")).Return(nil, integration.ErrStoreUnavailable)

	req := httptest.NewRequest(http.MethodPost, "/admin/products/"+p.ID.String()+"/approve", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_PUBLISH_FAILED")
	// The decision did not land, so no local state was persisted
	env.products.AssertNotCalled(t, "Save")
	assert.Equal(t, catalog.ProductStatusPending, p.Status)
}

func TestProductHandler_Reject(t *testing.T) {
	env := newProductTestEnv("admin-1", auth.RoleAdmin)
	v := approvedVendorFixture(t, "user-1")
	p := pendingProductFixture(t, v.ID)

	env.products.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	env.products.On("ClaimPending", mock.Anything, p.ID, p.Version).Return(nil)
	env.products.On("Save", mock.Anything, p).Return(nil)

	body := `{"reason":"blurry photos"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/products/"+p.ID.String()+"/reject", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"rejected"`)
	assert.Contains(t, w.Body.String(), "blurry photos")
}

func TestProductHandler_Reject_MissingReason(t *testing.T) {
	env := newProductTestEnv("admin-1", auth.RoleAdmin)
	v := approvedVendorFixture(t, "user-1")
	p := pendingProductFixture(t, v.ID)

	body := `{}`
	req := httptest.NewRequest(http.MethodPost, "/admin/products/"+p.ID.String()+"/reject", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env.products.AssertNotCalled(t, "ClaimPending")
}

func TestProductHandler_ListAll(t *testing.T) {
	env := newProductTestEnv("admin-1", auth.RoleAdmin)
	v := approvedVendorFixture(t, "user-1")
	p := pendingProductFixture(t, v.ID)

	env.products.On("FindAllWithVendor", mock.Anything, mock.AnythingOfType("shared.Filter")).Return([]catalog.ProductWithVendor{
		{Product: *p, VendorBusinessName: v.BusinessName},
	}, nil)
	env.products.On("Count", mock.Anything, mock.AnythingOfType("shared.Filter")).Return(int64(1), nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/products?status=pending", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"vendor_business_name":"Lamp World"`)
}

func TestProductHandler_UploadImage(t *testing.T) {
	env := newProductTestEnv("user-1", auth.RoleVendor)
	v := approvedVendorFixture(t, "user-1")
	p := draftProductFixture(t, v.ID)

	env.products.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	env.vendors.On("FindByUserID", mock.Anything, "user-1").Return(v, nil)
	env.storage.On("Store", mock.Anything, mock.AnythingOfType("string"), mock.Anything, "image/png").
		Return("https://storage.example.com/products/"+p.ID.String()+"/img.png", nil)
	env.products.On("Save", mock.Anything, p).Return(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="lamp.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products/"+p.ID.String()+"/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "https://storage.example.com/products/")
	env.storage.AssertExpectations(t)
}

func TestProductHandler_UploadImage_MissingFile(t *testing.T) {
	env := newProductTestEnv("user-1", auth.RoleVendor)
	v := approvedVendorFixture(t, "user-1")
	p := draftProductFixture(t, v.ID)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products/"+p.ID.String()+"/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env.storage.AssertNotCalled(t, "Store")
}

func TestProductHandler_List(t *testing.T) {
	env := newProductTestEnv("user-1", auth.RoleVendor)
	v := approvedVendorFixture(t, "user-1")
	p := draftProductFixture(t, v.ID)

	env.vendors.On("FindByUserID", mock.Anything, "user-1").Return(v, nil)
	env.products.On("FindByVendor", mock.Anything, v.ID, mock.AnythingOfType("shared.Filter")).Return([]catalog.Product{*p}, nil)
	env.products.On("CountByVendor", mock.Anything, v.ID).Return(int64(1), nil)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Meta struct {
			Total    int64 `json:"total"`
			PageSize int   `json:"page_size"`
		} `json:"meta"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Meta.Total)
	assert.Equal(t, 20, resp.Meta.PageSize)
}
