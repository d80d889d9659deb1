package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradejournal/internal/repository"
	"tradejournal/internal/service"
)

type StatsHandler struct {
	Repo   repository.Repository
	Stats  *service.DailyStatsService
	Logger *zap.Logger
}

func (h *StatsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/stats")
	g.GET("", h.list)
	g.GET("/:date", h.get)
	g.POST("/compute", h.compute)
}

func (h *StatsHandler) list(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	params := repository.ListDailyStatsParams{
		UserID:   claims.UserID(),
		DateFrom: strQueryPtr(c, "date_from"),
		DateTo:   strQueryPtr(c, "date_to"),
		Limit:    intQuery(c, "limit", 90),
		Offset:   intQuery(c, "offset", 0),
	}
	items, err := h.Repo.ListDailyStats(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, items, nil)
}

func (h *StatsHandler) get(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	date := c.Param("date")
	if !validLogDate(date) {
		Error(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	item, err := h.Repo.GetDailyStats(c.Request.Context(), claims.UserID(), date)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "no stats for date")
		return
	}
	Ok(c, item, nil)
}

type computeStatsRequest struct {
	UserID   *uint64 `json:"user_id"`
	DateFrom *string `json:"date_from"`
	DateTo   *string `json:"date_to"`
}

// compute rebuilds daily stat rows for the caller, or for another user when
// an admin asks for one.
func (h *StatsHandler) compute(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req computeStatsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid body")
			return
		}
	}

	userID := claims.UserID()
	if req.UserID != nil && *req.UserID != userID {
		if !claims.IsAdmin() {
			Error(c, http.StatusForbidden, "cannot compute stats for another user")
			return
		}
		userID = *req.UserID
	}
	if req.DateFrom != nil && !validLogDate(*req.DateFrom) {
		Error(c, http.StatusBadRequest, "date_from must be YYYY-MM-DD")
		return
	}
	if req.DateTo != nil && !validLogDate(*req.DateTo) {
		Error(c, http.StatusBadRequest, "date_to must be YYYY-MM-DD")
		return
	}

	days, err := h.Stats.ComputeForUser(c.Request.Context(), userID, req.DateFrom, req.DateTo)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	dates := make([]string, 0, len(days))
	for _, d := range days {
		dates = append(dates, d.Date)
	}
	Ok(c, gin.H{"computed_dates": dates, "results": days}, nil)
}
