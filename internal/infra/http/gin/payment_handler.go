package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	paymentapp "github.com/arad71/Vendor-saas-mvp/internal/app/payments"
	"github.com/arad71/Vendor-saas-mvp/internal/app/policies"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/booking"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
)

type PaymentHandler struct {
	Service  *paymentapp.Service
	Currency string
	Logger   *slog.Logger
}

type createIntentRequest struct {
	AmountCents *int64 `json:"amount_cents"`
}

type createIntentResponse struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents"`
	FeeCents     int64  `json:"fee_cents"`
	Currency     string `json:"currency"`
}

type refundRequest struct {
	AmountCents *int64 `json:"amount_cents"`
	Reason      string `json:"reason"`
}

type refundResponse struct {
	TransactionID string `json:"transaction_id"`
	RefundID      string `json:"refund_id"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
}

func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req createIntentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	// No explicit amount means "charge the booking total"; the service
	// resolves the zero value.
	amount := money.Money{Currency: h.Currency}
	if req.AmountCents != nil {
		m, err := money.New(*req.AmountCents, h.Currency)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		amount = m
	}
	pr, err := h.Service.CreatePaymentRequest(c.Request.Context(), booking.BookingID(c.Param("id")), amount, identity.ID, identity.ID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, createIntentResponse{
		IntentID:     pr.IntentID,
		ClientSecret: pr.ClientSecret,
		AmountCents:  pr.Amount.Amount,
		FeeCents:     pr.Fee.Amount,
		Currency:     pr.Amount.Currency,
	})
}

// Webhook receives asynchronous processor notifications. Only a signature
// failure produces a non-2xx response; authentic events are always
// acknowledged so the processor does not retry them forever.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}
	if err := h.Service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		if errors.Is(err, policies.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (h *PaymentHandler) Refund(c *gin.Context) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req refundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	var amount *money.Money
	if req.AmountCents != nil {
		m, err := money.New(*req.AmountCents, h.Currency)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		amount = &m
	}
	tx, err := h.Service.Refund(c.Request.Context(), booking.BookingID(c.Param("id")), identity.ID, amount, req.Reason)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, refundResponse{
		TransactionID: string(tx.ID),
		RefundID:      tx.ExternalPaymentID,
		AmountCents:   tx.Amount.Amount,
		Currency:      tx.Amount.Currency,
		Status:        string(tx.Status),
	})
}
