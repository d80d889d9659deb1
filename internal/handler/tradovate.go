package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradejournal/internal/service"
	"tradejournal/internal/tradovate"
)

type TradovateHandler struct {
	Auth   *service.BrokerAuth
	Sync   *service.BrokerSync
	Logger *zap.Logger
	// Where the browser lands after the OAuth round trip.
	FrontendBase string
}

func (h *TradovateHandler) Register(r *gin.Engine) {
	g := r.Group("/api/tradovate")
	g.POST("/auth/start", h.authStart)
	g.GET("/auth/callback", h.authCallback)
	g.POST("/disconnect", h.disconnect)
	g.POST("/sync", h.sync)
}

type tradovateEnvRequest struct {
	Environment string `json:"environment"`
}

type tradovateSyncRequest struct {
	Environment string `json:"environment"`
	// Tradovate account id to pull fills from; defaults to the first account.
	AccountID *int64 `json:"account_id"`
}

func (h *TradovateHandler) authStart(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req tradovateEnvRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	authURL, err := h.Auth.Start(claims.UserID(), req.Environment)
	if err != nil {
		if err == service.ErrInvalidEnvironment {
			Error(c, http.StatusBadRequest, err.Error())
			return
		}
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, gin.H{"auth_url": authURL}, nil)
}

// authCallback is the OAuth redirect target. Identity travels in the signed
// state parameter, so this route is open. The browser is sent back to the
// accounts page either way.
func (h *TradovateHandler) authCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.Redirect(http.StatusFound, h.FrontendBase+"/accounts?tradovate_error=missing_params")
		return
	}
	env, err := h.Auth.Complete(c.Request.Context(), code, state)
	if err != nil {
		h.Logger.Warn("tradovate oauth callback failed", zap.Error(err))
		c.Redirect(http.StatusFound, h.FrontendBase+"/accounts?tradovate_error=auth_failed")
		return
	}
	c.Redirect(http.StatusFound, h.FrontendBase+"/accounts?tradovate_connected="+env)
}

func (h *TradovateHandler) disconnect(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req tradovateEnvRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.Auth.Disconnect(c.Request.Context(), claims.UserID(), req.Environment); err != nil {
		if err == service.ErrInvalidEnvironment {
			Error(c, http.StatusBadRequest, err.Error())
			return
		}
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, gin.H{"disconnected": req.Environment}, nil)
}

func (h *TradovateHandler) sync(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req tradovateSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	if !tradovate.ValidEnvironment(req.Environment) {
		Error(c, http.StatusBadRequest, "environment must be demo or live")
		return
	}
	result, err := h.Sync.Sync(c.Request.Context(), claims.UserID(), req.Environment, req.AccountID)
	if err != nil {
		switch err {
		case service.ErrBrokerNotConnected:
			Error(c, http.StatusBadRequest, err.Error())
		case service.ErrBrokerTokenExpired:
			Error(c, http.StatusUnauthorized, err.Error())
		default:
			Error(c, http.StatusInternalServerError, err.Error())
		}
		return
	}
	Ok(c, result, nil)
}
