package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	metricsapp "github.com/arad71/Vendor-saas-mvp/internal/app/metrics"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
)

type MetricsHandler struct {
	Service *metricsapp.Service
	Logger  *slog.Logger
}

func (h *MetricsHandler) Report(c *gin.Context) {
	identity, ok := requirePrincipal(c)
	if !ok {
		return
	}
	report, err := h.Service.Report(c.Request.Context(), listing.VendorID(identity.ID))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
