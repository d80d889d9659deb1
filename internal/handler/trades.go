package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
	"tradejournal/internal/service"
)

var tradeOrderColumns = map[string]string{
	"entry_time": "entry_time",
	"exit_time":  "exit_time",
	"symbol":     "symbol",
	"net_pnl":    "net_pnl",
	"created_at": "created_at",
}

type TradesHandler struct {
	Repo    repository.Repository
	PnL     *service.PnLService
	Matcher *service.StrategyMatcher
	Logger  *zap.Logger
}

func (h *TradesHandler) Register(r *gin.Engine) {
	g := r.Group("/api/trades")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/recompute-pnl", h.recomputePnL)
	g.POST("/:id/auto-assign-strategy", h.autoAssignStrategy)
}

func (h *TradesHandler) list(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	params := repository.ListTradesParams{
		UserID:     claims.UserID(),
		AccountID:  uint64QueryPtr(c, "account_id"),
		StrategyID: uint64QueryPtr(c, "strategy_id"),
		Status:     strQueryPtr(c, "status"),
		Direction:  strQueryPtr(c, "direction"),
		Symbol:     strQueryPtr(c, "symbol"),
		Source:     strQueryPtr(c, "source"),
		Limit:      intQuery(c, "limit", 50),
		Offset:     intQuery(c, "offset", 0),
		OrderBy:    parseOrder(c.Query("order_by"), tradeOrderColumns),
		Asc:        boolQueryPtr(c, "asc"),
	}
	if params.OrderBy == "" {
		params.OrderBy = "entry_time"
		params.Asc = boolPtr(false)
	}
	items, err := h.Repo.ListTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := h.Repo.CountTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

type tradeRequest struct {
	AccountID  *uint64 `json:"account_id"`
	StrategyID *uint64 `json:"strategy_id"`

	Symbol     *string `json:"symbol"`
	Direction  *string `json:"direction"`
	AssetClass *string `json:"asset_class"`
	SetupType  *string `json:"setup_type"`
	Session    *string `json:"session"`

	EntryPrice *decimal.Decimal `json:"entry_price"`
	ExitPrice  *decimal.Decimal `json:"exit_price"`
	Quantity   *decimal.Decimal `json:"quantity"`
	Commission *decimal.Decimal `json:"commission"`
	Fees       *decimal.Decimal `json:"fees"`

	StopLoss    *decimal.Decimal `json:"stop_loss"`
	TakeProfit  *decimal.Decimal `json:"take_profit"`
	InitialRisk *decimal.Decimal `json:"initial_risk"`

	EntryTime *time.Time `json:"entry_time"`
	ExitTime  *time.Time `json:"exit_time"`

	Status *string `json:"status"`

	TradeQuality        *int      `json:"trade_quality"`
	FollowedRules       *bool     `json:"followed_rules"`
	Mistakes            *[]string `json:"mistakes"`
	Tags                *[]string `json:"tags"`
	EmotionalStateEntry *string   `json:"emotional_state_entry"`
	EmotionalStateExit  *string   `json:"emotional_state_exit"`
	Notes               *string   `json:"notes"`
}

func (h *TradesHandler) create(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	if req.AccountID == nil || req.Symbol == nil || *req.Symbol == "" ||
		req.Direction == nil || req.EntryPrice == nil || req.Quantity == nil {
		Error(c, http.StatusBadRequest, "account_id, symbol, direction, entry_price and quantity are required")
		return
	}
	if *req.Direction != models.DirectionLong && *req.Direction != models.DirectionShort {
		Error(c, http.StatusBadRequest, "direction must be long or short")
		return
	}

	account, err := h.Repo.GetTradingAccountByID(c.Request.Context(), *req.AccountID)
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

	trade := &models.Trade{
		UserID:     account.UserID,
		AccountID:  account.ID,
		StrategyID: req.StrategyID,
		Source:     models.TradeSourceManual,
		Symbol:     *req.Symbol,
		Direction:  *req.Direction,
		EntryPrice: *req.EntryPrice,
		Quantity:   *req.Quantity,
		Status:     models.TradeStatusOpen,
	}
	applyTradeRequest(trade, &req)

	if trade.Status == models.TradeStatusClosed {
		if res, err := service.ComputePnL(trade); err == nil {
			trade.GrossPnL = &res.GrossPnL
			trade.NetPnL = &res.NetPnL
			trade.PnLPercentage = &res.PnLPercentage
			trade.RMultiple = res.RMultiple
			trade.DurationMinutes = res.DurationMinutes
		}
	}

	if err := h.Repo.InsertTrade(c.Request.Context(), trade); err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, apiResponse{Success: true, Data: trade})
}

// applyTradeRequest copies the optional fields of the request onto the trade.
func applyTradeRequest(t *models.Trade, req *tradeRequest) {
	if req.AssetClass != nil {
		t.AssetClass = *req.AssetClass
	}
	if req.SetupType != nil {
		t.SetupType = req.SetupType
	}
	if req.Session != nil {
		t.Session = req.Session
	}
	if req.ExitPrice != nil {
		t.ExitPrice = req.ExitPrice
	}
	if req.Commission != nil {
		t.Commission = *req.Commission
	}
	if req.Fees != nil {
		t.Fees = *req.Fees
	}
	if req.StopLoss != nil {
		t.StopLoss = req.StopLoss
	}
	if req.TakeProfit != nil {
		t.TakeProfit = req.TakeProfit
	}
	if req.InitialRisk != nil {
		t.InitialRisk = req.InitialRisk
	}
	if req.EntryTime != nil {
		t.EntryTime = req.EntryTime
	}
	if req.ExitTime != nil {
		t.ExitTime = req.ExitTime
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.TradeQuality != nil {
		t.TradeQuality = req.TradeQuality
	}
	if req.FollowedRules != nil {
		t.FollowedRules = *req.FollowedRules
	}
	if req.Mistakes != nil {
		t.Mistakes = mustJSONList(*req.Mistakes)
	}
	if req.Tags != nil {
		t.Tags = mustJSONList(*req.Tags)
	}
	if req.EmotionalStateEntry != nil {
		t.EmotionalStateEntry = req.EmotionalStateEntry
	}
	if req.EmotionalStateExit != nil {
		t.EmotionalStateExit = req.EmotionalStateExit
	}
	if req.Notes != nil {
		t.Notes = *req.Notes
	}
}

func mustJSONList(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	raw, _ := json.Marshal(items)
	return datatypes.JSON(raw)
}

// loadOwnedTrade fetches the trade and enforces ownership. A nil return means
// the response was already written.
func (h *TradesHandler) loadOwnedTrade(c *gin.Context) *models.Trade {
	claims, ok := requireUser(c)
	if !ok {
		return nil
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid trade id")
		return nil
	}
	trade, err := h.Repo.GetTradeByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return nil
	}
	if trade == nil {
		Error(c, http.StatusNotFound, "trade not found")
		return nil
	}
	if !canAccess(claims, trade.UserID) {
		Error(c, http.StatusForbidden, "trade belongs to another user")
		return nil
	}
	return trade
}

func (h *TradesHandler) get(c *gin.Context) {
	trade := h.loadOwnedTrade(c)
	if trade == nil {
		return
	}
	Ok(c, trade, nil)
}

func (h *TradesHandler) update(c *gin.Context) {
	trade := h.loadOwnedTrade(c)
	if trade == nil {
		return
	}
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Direction != nil && *req.Direction != models.DirectionLong && *req.Direction != models.DirectionShort {
		Error(c, http.StatusBadRequest, "direction must be long or short")
		return
	}

	if req.Symbol != nil {
		trade.Symbol = *req.Symbol
	}
	if req.Direction != nil {
		trade.Direction = *req.Direction
	}
	if req.EntryPrice != nil {
		trade.EntryPrice = *req.EntryPrice
	}
	if req.Quantity != nil {
		trade.Quantity = *req.Quantity
	}
	if req.StrategyID != nil {
		trade.StrategyID = req.StrategyID
	}
	applyTradeRequest(trade, &req)

	updates := map[string]any{
		"symbol":                trade.Symbol,
		"direction":             trade.Direction,
		"asset_class":           trade.AssetClass,
		"setup_type":            trade.SetupType,
		"session":               trade.Session,
		"strategy_id":           trade.StrategyID,
		"entry_price":           trade.EntryPrice,
		"exit_price":            trade.ExitPrice,
		"quantity":              trade.Quantity,
		"commission":            trade.Commission,
		"fees":                  trade.Fees,
		"stop_loss":             trade.StopLoss,
		"take_profit":           trade.TakeProfit,
		"initial_risk":          trade.InitialRisk,
		"entry_time":            trade.EntryTime,
		"exit_time":             trade.ExitTime,
		"status":                trade.Status,
		"trade_quality":         trade.TradeQuality,
		"followed_rules":        trade.FollowedRules,
		"mistakes":              trade.Mistakes,
		"tags":                  trade.Tags,
		"emotional_state_entry": trade.EmotionalStateEntry,
		"emotional_state_exit":  trade.EmotionalStateExit,
		"notes":                 trade.Notes,
	}
	if err := h.Repo.UpdateTradeFields(c.Request.Context(), trade.ID, updates); err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	if trade.Status == models.TradeStatusClosed {
		if _, err := h.PnL.Recompute(c.Request.Context(), trade); err != nil && err != service.ErrMissingPnLFields {
			Error(c, http.StatusInternalServerError, err.Error())
			return
		}
	}
	Ok(c, trade, nil)
}

func (h *TradesHandler) delete(c *gin.Context) {
	trade := h.loadOwnedTrade(c)
	if trade == nil {
		return
	}
	if err := h.Repo.DeleteTrade(c.Request.Context(), trade.ID); err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, gin.H{"deleted": trade.ID}, nil)
}

func (h *TradesHandler) recomputePnL(c *gin.Context) {
	trade := h.loadOwnedTrade(c)
	if trade == nil {
		return
	}
	updates, err := h.PnL.Recompute(c.Request.Context(), trade)
	if err != nil {
		if err == service.ErrMissingPnLFields {
			Error(c, http.StatusBadRequest, err.Error())
			return
		}
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, gin.H{"trade": trade, "updated_fields": updates}, nil)
}

func (h *TradesHandler) autoAssignStrategy(c *gin.Context) {
	trade := h.loadOwnedTrade(c)
	if trade == nil {
		return
	}
	result, err := h.Matcher.AutoAssign(c.Request.Context(), trade)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, result, nil)
}
