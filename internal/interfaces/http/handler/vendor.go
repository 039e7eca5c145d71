package handler

import (
	vendorapp "github.com/markethub/backend/internal/application/vendor"
	"github.com/gin-gonic/gin"
)

// VendorHandler handles vendor account API endpoints
type VendorHandler struct {
	BaseHandler
	vendorService *vendorapp.VendorService
}

// NewVendorHandler creates a new VendorHandler
func NewVendorHandler(vendorService *vendorapp.VendorService) *VendorHandler {
	return &VendorHandler{
		vendorService: vendorService,
	}
}

// Register creates a vendor account for the authenticated user.
// POST /api/v1/vendors
func (h *VendorHandler) Register(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req vendorapp.RegisterVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	resp, err := h.vendorService.Register(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// GetOwn returns the caller's vendor account.
// GET /api/v1/vendors/me
func (h *VendorHandler) GetOwn(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	resp, err := h.vendorService.GetOwn(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// List returns all vendor accounts for admin review.
// GET /api/v1/admin/vendors
func (h *VendorHandler) List(c *gin.Context) {
	var filter vendorapp.VendorListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	vendors, total, err := h.vendorService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	h.SuccessWithMeta(c, vendors, total, page, pageSize)
}

// UpdateStatus records an admin decision on a vendor account. Repeating
// a decision is a no-op, so retried requests succeed.
// POST /api/v1/admin/vendor-status
func (h *VendorHandler) UpdateStatus(c *gin.Context) {
	var req vendorapp.UpdateVendorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	resp, err := h.vendorService.UpdateStatus(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
