package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
)

type MeHandler struct {
	Repo repository.Repository
}

func (h *MeHandler) Register(r *gin.Engine) {
	r.GET("/api/me", h.me)
}

type brokerConnection struct {
	Connected bool       `json:"connected"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type meResponse struct {
	User      *models.User                `json:"user"`
	Tradovate map[string]brokerConnection `json:"tradovate"`
}

func (h *MeHandler) me(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	user, err := h.Repo.GetUserByID(c.Request.Context(), claims.UserID())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		Error(c, http.StatusNotFound, "user not found")
		return
	}
	resp := meResponse{
		User: user,
		Tradovate: map[string]brokerConnection{
			"demo": {
				Connected: user.TradovateDemoTokens != nil && *user.TradovateDemoTokens != "",
				ExpiresAt: user.TradovateDemoExpiresAt,
			},
			"live": {
				Connected: user.TradovateLiveTokens != nil && *user.TradovateLiveTokens != "",
				ExpiresAt: user.TradovateLiveExpiresAt,
			},
		},
	}
	Ok(c, resp, nil)
}
