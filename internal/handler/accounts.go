package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
)

type AccountsHandler struct {
	Repo repository.Repository
}

func (h *AccountsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/accounts")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *AccountsHandler) list(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	items, err := h.Repo.ListTradingAccounts(c.Request.Context(), claims.UserID())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, items, nil)
}

type accountRequest struct {
	AccountName   *string `json:"account_name"`
	Broker        *string `json:"broker"`
	AccountType   *string `json:"account_type"`
	AccountNumber *string `json:"account_number"`

	StartingBalance *decimal.Decimal `json:"starting_balance"`
	CurrentBalance  *decimal.Decimal `json:"current_balance"`
	Currency        *string          `json:"currency"`
	Status          *string          `json:"status"`

	RiskSettings *models.RiskSettings `json:"risk_settings"`
}

func (h *AccountsHandler) create(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	if req.AccountName == nil || *req.AccountName == "" {
		Error(c, http.StatusBadRequest, "account_name is required")
		return
	}

	account := &models.TradingAccount{
		UserID:      claims.UserID(),
		AccountName: *req.AccountName,
	}
	if req.Broker != nil {
		account.Broker = *req.Broker
	}
	if req.AccountType != nil {
		account.AccountType = *req.AccountType
	}
	if req.AccountNumber != nil {
		account.AccountNumber = *req.AccountNumber
	}
	if req.StartingBalance != nil {
		account.StartingBalance = *req.StartingBalance
		account.CurrentBalance = *req.StartingBalance
	}
	if req.CurrentBalance != nil {
		account.CurrentBalance = *req.CurrentBalance
	}
	if req.Currency != nil {
		account.Currency = *req.Currency
	}
	if req.RiskSettings != nil {
		raw, _ := json.Marshal(req.RiskSettings)
		account.RiskSettings = datatypes.JSON(raw)
	}

	if err := h.Repo.InsertTradingAccount(c.Request.Context(), account); err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, apiResponse{Success: true, Data: account})
}

func (h *AccountsHandler) loadOwned(c *gin.Context) *models.TradingAccount {
	claims, ok := requireUser(c)
	if !ok {
		return nil
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid account id")
		return nil
	}
	account, err := h.Repo.GetTradingAccountByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return nil
	}
	if account == nil {
		Error(c, http.StatusNotFound, "account not found")
		return nil
	}
	if !canAccess(claims, account.UserID) {
		Error(c, http.StatusForbidden, "account belongs to another user")
		return nil
	}
	return account
}

func (h *AccountsHandler) get(c *gin.Context) {
	account := h.loadOwned(c)
	if account == nil {
		return
	}
	Ok(c, account, nil)
}

func (h *AccountsHandler) update(c *gin.Context) {
	account := h.loadOwned(c)
	if account == nil {
		return
	}
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}

	updates := map[string]any{}
	if req.AccountName != nil {
		updates["account_name"] = *req.AccountName
	}
	if req.Broker != nil {
		updates["broker"] = *req.Broker
	}
	if req.AccountType != nil {
		updates["account_type"] = *req.AccountType
	}
	if req.AccountNumber != nil {
		updates["account_number"] = *req.AccountNumber
	}
	if req.StartingBalance != nil {
		updates["starting_balance"] = *req.StartingBalance
	}
	if req.CurrentBalance != nil {
		updates["current_balance"] = *req.CurrentBalance
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.RiskSettings != nil {
		raw, _ := json.Marshal(req.RiskSettings)
		updates["risk_settings"] = datatypes.JSON(raw)
	}
	if len(updates) == 0 {
		Ok(c, account, nil)
		return
	}

	if err := h.Repo.UpdateTradingAccountFields(c.Request.Context(), account.ID, updates); err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	updated, err := h.Repo.GetTradingAccountByID(c.Request.Context(), account.ID)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, updated, nil)
}

func (h *AccountsHandler) delete(c *gin.Context) {
	account := h.loadOwned(c)
	if account == nil {
		return
	}
	if err := h.Repo.DeleteTradingAccount(c.Request.Context(), account.ID); err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, gin.H{"deleted": account.ID}, nil)
}
