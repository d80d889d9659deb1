package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
	"tradejournal/internal/service"
)

type AlertsHandler struct {
	Repo   repository.Repository
	Engine *service.AlertsEngine
	Logger *zap.Logger
}

func (h *AlertsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/alerts")
	g.GET("", h.list)
	g.POST("/run", h.run)
	g.POST("/:id/read", h.markRead)
	g.POST("/:id/dismiss", h.dismiss)
}

func (h *AlertsHandler) list(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	params := repository.ListAlertsParams{
		UserID:           claims.UserID(),
		Unread:           boolQueryPtr(c, "unread"),
		IncludeDismissed: intQuery(c, "include_dismissed", 0) == 1,
		Limit:            intQuery(c, "limit", 50),
		Offset:           intQuery(c, "offset", 0),
	}
	items, err := h.Repo.ListAlerts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := h.Repo.CountAlerts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

type runAlertsRequest struct {
	UserID *uint64 `json:"user_id"`
}

// run evaluates the alert rules and returns any alerts that fired. Admins may
// target another user.
func (h *AlertsHandler) run(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req runAlertsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid body")
			return
		}
	}
	userID := claims.UserID()
	if req.UserID != nil && *req.UserID != userID {
		if !claims.IsAdmin() {
			Error(c, http.StatusForbidden, "cannot run alerts for another user")
			return
		}
		userID = *req.UserID
	}
	alerts, err := h.Engine.RunForUser(c.Request.Context(), userID)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	Ok(c, gin.H{"alerts_created": len(alerts), "alerts": alerts}, nil)
}

func (h *AlertsHandler) loadOwned(c *gin.Context) *models.Alert {
	claims, ok := requireUser(c)
	if !ok {
		return nil
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid alert id")
		return nil
	}
	alert, err := h.Repo.GetAlertByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return nil
	}
	if alert == nil {
		Error(c, http.StatusNotFound, "alert not found")
		return nil
	}
	if !canAccess(claims, alert.UserID) {
		Error(c, http.StatusForbidden, "alert belongs to another user")
		return nil
	}
	return alert
}

func (h *AlertsHandler) markRead(c *gin.Context) {
	alert := h.loadOwned(c)
	if alert == nil {
		return
	}
	if err := h.Repo.MarkAlertRead(c.Request.Context(), alert.ID); err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, gin.H{"id": alert.ID, "is_read": true}, nil)
}

func (h *AlertsHandler) dismiss(c *gin.Context) {
	alert := h.loadOwned(c)
	if alert == nil {
		return
	}
	if err := h.Repo.DismissAlert(c.Request.Context(), alert.ID); err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, gin.H{"id": alert.ID, "is_dismissed": true}, nil)
}
