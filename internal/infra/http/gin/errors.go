package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/arad71/Vendor-saas-mvp/internal/app/payments"
	"github.com/arad71/Vendor-saas-mvp/internal/app/policies"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/booking"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/timerange"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/transaction"
)

// statusFor maps domain sentinels onto HTTP statuses. Clients need to
// tell "someone else booked that slot" (409) apart from "you may not edit
// this" (403) and "no such booking" (404).
func statusFor(err error) int {
	switch {
	case errors.Is(err, listing.ErrNotFound),
		errors.Is(err, booking.ErrNotFound),
		errors.Is(err, transaction.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, listing.ErrNotOwner),
		errors.Is(err, booking.ErrNotOwner),
		errors.Is(err, booking.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrSlotConflict),
		errors.Is(err, listing.ErrHasActiveBookings):
		return http.StatusConflict
	case errors.Is(err, policies.ErrInvalidSignature),
		errors.Is(err, policies.ErrMalformedEvent):
		return http.StatusBadRequest
	case errors.Is(err, policies.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, payments.ErrProcessor):
		return http.StatusBadGateway
	case errors.Is(err, timerange.ErrInvalidRange),
		errors.Is(err, listing.ErrNotActive),
		errors.Is(err, listing.ErrTitleRequired),
		errors.Is(err, listing.ErrNegativePrice),
		errors.Is(err, listing.ErrInvalidStatus),
		errors.Is(err, booking.ErrAlreadyCancelled),
		errors.Is(err, booking.ErrPastBooking),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrInvalidAmount),
		errors.Is(err, booking.ErrCustomerRequired),
		errors.Is(err, booking.ErrNoPayment),
		errors.Is(err, booking.ErrNotPaid),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrInvalidCurrency),
		errors.Is(err, money.ErrCurrencyMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "path", c.FullPath(), "error", err, "request_id", c.GetString("request_id"))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
