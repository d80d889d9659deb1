package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
)

type StrategiesHandler struct {
	Repo repository.Repository
}

func (h *StrategiesHandler) Register(r *gin.Engine) {
	g := r.Group("/api/strategies")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *StrategiesHandler) list(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	items, err := h.Repo.ListStrategies(c.Request.Context(), claims.UserID(), strQueryPtr(c, "status"))
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, items, nil)
}

type strategyRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`

	Symbols      *[]string `json:"symbols"`
	AssetClasses *[]string `json:"asset_classes"`
	Sessions     *[]string `json:"sessions"`
	SetupTypes   *[]string `json:"setup_types"`

	EntryRules *[]string `json:"entry_rules"`
	ExitRules  *[]string `json:"exit_rules"`
	RiskRules  *[]string `json:"risk_rules"`
}

func (h *StrategiesHandler) create(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Name == nil || *req.Name == "" {
		Error(c, http.StatusBadRequest, "name is required")
		return
	}

	strategy := &models.Strategy{
		UserID: claims.UserID(),
		Name:   *req.Name,
		Status: models.StrategyStatusActive,
	}
	if req.Description != nil {
		strategy.Description = *req.Description
	}
	if req.Status != nil {
		strategy.Status = *req.Status
	}
	if req.Symbols != nil {
		strategy.Symbols = mustJSONList(*req.Symbols)
	}
	if req.AssetClasses != nil {
		strategy.AssetClasses = mustJSONList(*req.AssetClasses)
	}
	if req.Sessions != nil {
		strategy.Sessions = mustJSONList(*req.Sessions)
	}
	if req.SetupTypes != nil {
		strategy.SetupTypes = mustJSONList(*req.SetupTypes)
	}
	if req.EntryRules != nil {
		strategy.EntryRules = mustJSONList(*req.EntryRules)
	}
	if req.ExitRules != nil {
		strategy.ExitRules = mustJSONList(*req.ExitRules)
	}
	if req.RiskRules != nil {
		strategy.RiskRules = mustJSONList(*req.RiskRules)
	}

	if err := h.Repo.InsertStrategy(c.Request.Context(), strategy); err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, apiResponse{Success: true, Data: strategy})
}

func (h *StrategiesHandler) loadOwned(c *gin.Context) *models.Strategy {
	claims, ok := requireUser(c)
	if !ok {
		return nil
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid strategy id")
		return nil
	}
	strategy, err := h.Repo.GetStrategyByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return nil
	}
	if strategy == nil {
		Error(c, http.StatusNotFound, "strategy not found")
		return nil
	}
	if !canAccess(claims, strategy.UserID) {
		Error(c, http.StatusForbidden, "strategy belongs to another user")
		return nil
	}
	return strategy
}

func (h *StrategiesHandler) get(c *gin.Context) {
	strategy := h.loadOwned(c)
	if strategy == nil {
		return
	}
	Ok(c, strategy, nil)
}

func (h *StrategiesHandler) update(c *gin.Context) {
	strategy := h.loadOwned(c)
	if strategy == nil {
		return
	}
	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		if *req.Status != models.StrategyStatusActive && *req.Status != models.StrategyStatusArchived {
			Error(c, http.StatusBadRequest, "status must be active or archived")
			return
		}
		updates["status"] = *req.Status
	}
	if req.Symbols != nil {
		updates["symbols"] = mustJSONList(*req.Symbols)
	}
	if req.AssetClasses != nil {
		updates["asset_classes"] = mustJSONList(*req.AssetClasses)
	}
	if req.Sessions != nil {
		updates["sessions"] = mustJSONList(*req.Sessions)
	}
	if req.SetupTypes != nil {
		updates["setup_types"] = mustJSONList(*req.SetupTypes)
	}
	if req.EntryRules != nil {
		updates["entry_rules"] = mustJSONList(*req.EntryRules)
	}
	if req.ExitRules != nil {
		updates["exit_rules"] = mustJSONList(*req.ExitRules)
	}
	if req.RiskRules != nil {
		updates["risk_rules"] = mustJSONList(*req.RiskRules)
	}
	if len(updates) == 0 {
		Ok(c, strategy, nil)
		return
	}

	if err := h.Repo.UpdateStrategyFields(c.Request.Context(), strategy.ID, updates); err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	updated, err := h.Repo.GetStrategyByID(c.Request.Context(), strategy.ID)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, updated, nil)
}

func (h *StrategiesHandler) delete(c *gin.Context) {
	strategy := h.loadOwned(c)
	if strategy == nil {
		return
	}
	if err := h.Repo.DeleteStrategy(c.Request.Context(), strategy.ID); err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, gin.H{"deleted": strategy.ID}, nil)
}
