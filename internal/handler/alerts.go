package handler

import (
	"net/http"

	"stockledger/internal/apierror"
	"stockledger/internal/service"

	"github.com/gin-gonic/gin"
)

type AlertsHandler struct {
	svc service.AlertService
}

func NewAlertsHandler(svc service.AlertService) *AlertsHandler {
	return &AlertsHandler{svc: svc}
}

func (h *AlertsHandler) List(c *gin.Context) {
	alerts, err := h.svc.Alerts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("failed to evaluate stock alerts"))
		return
	}
	c.JSON(http.StatusOK, alerts)
}
