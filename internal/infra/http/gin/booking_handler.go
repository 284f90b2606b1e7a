package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	bookingapp "github.com/arad71/Vendor-saas-mvp/internal/app/bookings"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/booking"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
)

type BookingHandler struct {
	Service *bookingapp.Service
	Logger  *slog.Logger
}

type createBookingRequest struct {
	ListingID     string    `json:"listing_id" binding:"required"`
	StartTime     time.Time `json:"start_time" binding:"required"`
	EndTime       time.Time `json:"end_time" binding:"required"`
	CustomerName  string    `json:"customer_name" binding:"required"`
	CustomerEmail string    `json:"customer_email" binding:"required"`
	CustomerPhone string    `json:"customer_phone"`
	Notes         string    `json:"notes"`
}

type updateBookingRequest struct {
	CustomerName  *string    `json:"customer_name"`
	CustomerEmail *string    `json:"customer_email"`
	CustomerPhone *string    `json:"customer_phone"`
	Notes         *string    `json:"notes"`
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	Status        *string    `json:"status"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type bookingResponse struct {
	ID            string `json:"id"`
	ListingID     string `json:"listing_id"`
	VendorID      string `json:"vendor_id"`
	UserID        string `json:"user_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	AmountCents   int64  `json:"amount_cents"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Notes         string `json:"notes,omitempty"`
	IntentID      string `json:"payment_intent_id,omitempty"`
	PaymentID     string `json:"payment_id,omitempty"`
	RefundID      string `json:"refund_id,omitempty"`
	CancelledBy   string `json:"cancelled_by,omitempty"`
	CancelReason  string `json:"cancel_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.Service.Create(c.Request.Context(), bookingapp.CreateParams{
		ListingID:     listing.ListingID(req.ListingID),
		UserID:        booking.UserID(identity.ID),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Start:         req.StartTime,
		End:           req.EndTime,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) Get(c *gin.Context) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	b, err := h.Service.ByID(c.Request.Context(), booking.BookingID(c.Param("id")))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if identity.ID != string(b.VendorID) && identity.ID != string(b.UserID) {
		respondError(c, h.Logger, booking.ErrNotParticipant)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) List(c *gin.Context) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	items, err := h.Service.ByVendor(c.Request.Context(), listing.VendorID(identity.ID))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	out := make([]bookingResponse, 0, len(items))
	for _, b := range items {
		out = append(out, toBookingResponse(b))
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

func (h *BookingHandler) Update(c *gin.Context) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := booking.Patch{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
		Start:         req.StartTime,
		End:           req.EndTime,
	}
	if req.Status != nil {
		status := booking.Status(*req.Status)
		patch.Status = &status
	}
	b, err := h.Service.Update(c.Request.Context(), booking.BookingID(c.Param("id")), patch, identity.ID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	b, err := h.Service.Cancel(c.Request.Context(), booking.BookingID(c.Param("id")), identity.ID, req.Reason)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func toBookingResponse(b *booking.Booking) bookingResponse {
	return bookingResponse{
		ID:            string(b.ID),
		ListingID:     string(b.ListingID),
		VendorID:      string(b.VendorID),
		UserID:        string(b.UserID),
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		CustomerPhone: b.CustomerPhone,
		StartTime:     b.Slot.Start.UTC().Format(time.RFC3339),
		EndTime:       b.Slot.End.UTC().Format(time.RFC3339),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		AmountCents:   b.TotalAmount.Amount,
		Amount:        b.TotalAmount.Major(),
		Currency:      b.TotalAmount.Currency,
		Notes:         b.Notes,
		IntentID:      b.PaymentIntentID,
		PaymentID:     b.PaymentID,
		RefundID:      b.RefundID,
		CancelledBy:   b.CancelledBy,
		CancelReason:  b.CancelReason,
		CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
