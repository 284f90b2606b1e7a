package ginserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	listingapp "github.com/arad71/Vendor-saas-mvp/internal/app/listings"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
)

type ListingHandler struct {
	Service  *listingapp.Service
	Currency string
	Logger   *slog.Logger
}

type createListingRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Category    string `json:"category"`
}

type updateListingRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	PriceCents  *int64  `json:"price_cents"`
}

type listingResponse struct {
	ID          string   `json:"id"`
	VendorID    string   `json:"vendor_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"price_cents"`
	Price       string   `json:"price"`
	Currency    string   `json:"currency"`
	Category    string   `json:"category"`
	Status      string   `json:"status"`
	Images      []string `json:"images"`
	Documents   []string `json:"documents"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func (h *ListingHandler) Create(c *gin.Context) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, err := money.New(req.PriceCents, h.Currency)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	l, err := h.Service.Create(c.Request.Context(), listingapp.CreateParams{
		VendorID:    listing.VendorID(identity.ID),
		Title:       req.Title,
		Description: req.Description,
		Price:       price,
		Category:    req.Category,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, toListingResponse(l))
}

func (h *ListingHandler) List(c *gin.Context) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	items, err := h.Service.ByVendor(c.Request.Context(), listing.VendorID(identity.ID))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	out := make([]listingResponse, 0, len(items))
	for _, l := range items {
		out = append(out, toListingResponse(l))
	}
	c.JSON(http.StatusOK, gin.H{"listings": out})
}

func (h *ListingHandler) Get(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	l, err := h.Service.ByID(c.Request.Context(), listing.ListingID(c.Param("id")))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(l))
}

func (h *ListingHandler) Update(c *gin.Context) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req updateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := listing.Patch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}
	if req.PriceCents != nil {
		price, err := money.New(*req.PriceCents, h.Currency)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		patch.Price = &price
	}
	l, err := h.Service.Update(c.Request.Context(), listing.ListingID(c.Param("id")), patch, identity.ID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(l))
}

func (h *ListingHandler) Activate(c *gin.Context) {
	h.transition(c, h.Service.Activate)
}

func (h *ListingHandler) Deactivate(c *gin.Context) {
	h.transition(c, h.Service.Deactivate)
}

func (h *ListingHandler) Delete(c *gin.Context) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if err := h.Service.Delete(c.Request.Context(), listing.ListingID(c.Param("id")), identity.ID); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ListingHandler) UploadImage(c *gin.Context) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()
	l, err := h.Service.UploadImage(c.Request.Context(), listing.ListingID(c.Param("id")), identity.ID, file.Filename, src, file.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(l))
}

func (h *ListingHandler) transition(c *gin.Context, fn func(ctx context.Context, id listing.ListingID, requesterID string) (*listing.Listing, error)) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	l, err := fn(c.Request.Context(), listing.ListingID(c.Param("id")), identity.ID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(l))
}

func toListingResponse(l *listing.Listing) listingResponse {
	return listingResponse{
		ID:          string(l.ID),
		VendorID:    string(l.VendorID),
		Title:       l.Title,
		Description: l.Description,
		PriceCents:  l.Price.Amount,
		Price:       l.Price.Major(),
		Currency:    l.Price.Currency,
		Category:    l.Category,
		Status:      string(l.Status),
		Images:      l.Images,
		Documents:   l.Documents,
		CreatedAt:   l.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   l.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
