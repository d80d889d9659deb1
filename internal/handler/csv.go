package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradejournal/internal/repository"
	"tradejournal/internal/service"
)

type CSVHandler struct {
	Repo   repository.Repository
	CSV    *service.TradeCSV
	Logger *zap.Logger
}

func (h *CSVHandler) Register(r *gin.Engine) {
	g := r.Group("/api/trades")
	g.POST("/export", h.export)
	g.POST("/import", h.importCSV)
}

type exportRequest struct {
	AccountID  *uint64 `json:"account_id"`
	StrategyID *uint64 `json:"strategy_id"`
	Status     *string `json:"status"`
	Direction  *string `json:"direction"`
}

func (h *CSVHandler) export(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req exportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid body")
			return
		}
	}

	params := repository.ListTradesParams{
		UserID:     claims.UserID(),
		AccountID:  req.AccountID,
		StrategyID: req.StrategyID,
		Status:     req.Status,
		Direction:  req.Direction,
		OrderBy:    "entry_time",
		Asc:        boolPtr(false),
	}
	trades, err := h.Repo.ListTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	filename := fmt.Sprintf("trades_export_%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := h.CSV.Export(c.Writer, trades); err != nil {
		h.Logger.Error("csv export failed", zap.Uint64("user_id", claims.UserID()), zap.Error(err))
	}
}

func (h *CSVHandler) importCSV(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	accountID := uint64QueryPtr(c, "account_id")
	if v := c.PostForm("account_id"); accountID == nil && v != "" {
		var id uint64
		if _, err := fmt.Sscanf(v, "%d", &id); err == nil && id > 0 {
			accountID = &id
		}
	}
	if accountID == nil {
		Error(c, http.StatusBadRequest, "account_id is required")
		return
	}

	account, err := h.Repo.GetTradingAccountByID(c.Request.Context(), *accountID)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	if account == nil {
		Error(c, http.StatusNotFound, "account not found")
		return
	}
	if !canAccess(claims, account.UserID) {
		Error(c, http.StatusForbidden, "account belongs to another user")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		Error(c, http.StatusBadRequest, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		Error(c, http.StatusBadRequest, "cannot read file")
		return
	}
	defer file.Close()

	result, err := h.CSV.Import(c.Request.Context(), account.UserID, account.ID, file)
	if err != nil {
		if err == service.ErrEmptyCSV {
			Error(c, http.StatusBadRequest, err.Error())
			return
		}
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, result, nil)
}
