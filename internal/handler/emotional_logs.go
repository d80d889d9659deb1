package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
)

type EmotionalLogsHandler struct {
	Repo repository.Repository
}

func (h *EmotionalLogsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/emotional-logs")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
}

func (h *EmotionalLogsHandler) list(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	params := repository.ListEmotionalLogsParams{
		UserID: claims.UserID(),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	items, err := h.Repo.ListEmotionalLogs(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, items, nil)
}

type emotionalLogRequest struct {
	Date *string `json:"date"`

	OverallMood  *int      `json:"overall_mood"`
	StressLevel  *int      `json:"stress_level"`
	Emotions     *[]string `json:"emotions"`
	TiltDetected *bool     `json:"tilt_detected"`

	PreSessionNotes  *string `json:"pre_session_notes"`
	PostSessionNotes *string `json:"post_session_notes"`
}

func validLogDate(v string) bool {
	_, err := time.Parse("2006-01-02", v)
	return err == nil
}

func (h *EmotionalLogsHandler) create(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req emotionalLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Date == nil || !validLogDate(*req.Date) {
		Error(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	log := &models.EmotionalLog{
		UserID: claims.UserID(),
		Date:   *req.Date,
	}
	log.OverallMood = req.OverallMood
	log.StressLevel = req.StressLevel
	if req.Emotions != nil {
		log.Emotions = mustJSONList(*req.Emotions)
	}
	if req.TiltDetected != nil {
		log.TiltDetected = *req.TiltDetected
	}
	if req.PreSessionNotes != nil {
		log.PreSessionNotes = *req.PreSessionNotes
	}
	if req.PostSessionNotes != nil {
		log.PostSessionNotes = *req.PostSessionNotes
	}

	if err := h.Repo.InsertEmotionalLog(c.Request.Context(), log); err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, apiResponse{Success: true, Data: log})
}

func (h *EmotionalLogsHandler) loadOwned(c *gin.Context) *models.EmotionalLog {
	claims, ok := requireUser(c)
	if !ok {
		return nil
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid log id")
		return nil
	}
	log, err := h.Repo.GetEmotionalLogByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return nil
	}
	if log == nil {
		Error(c, http.StatusNotFound, "log not found")
		return nil
	}
	if !canAccess(claims, log.UserID) {
		Error(c, http.StatusForbidden, "log belongs to another user")
		return nil
	}
	return log
}

func (h *EmotionalLogsHandler) get(c *gin.Context) {
	log := h.loadOwned(c)
	if log == nil {
		return
	}
	Ok(c, log, nil)
}

func (h *EmotionalLogsHandler) update(c *gin.Context) {
	log := h.loadOwned(c)
	if log == nil {
		return
	}
	var req emotionalLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}

	updates := map[string]any{}
	if req.Date != nil {
		if !validLogDate(*req.Date) {
			Error(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		updates["date"] = *req.Date
	}
	if req.OverallMood != nil {
		updates["overall_mood"] = *req.OverallMood
	}
	if req.StressLevel != nil {
		updates["stress_level"] = *req.StressLevel
	}
	if req.Emotions != nil {
		updates["emotions"] = mustJSONList(*req.Emotions)
	}
	if req.TiltDetected != nil {
		updates["tilt_detected"] = *req.TiltDetected
	}
	if req.PreSessionNotes != nil {
		updates["pre_session_notes"] = *req.PreSessionNotes
	}
	if req.PostSessionNotes != nil {
		updates["post_session_notes"] = *req.PostSessionNotes
	}
	if len(updates) == 0 {
		Ok(c, log, nil)
		return
	}

	if err := h.Repo.UpdateEmotionalLogFields(c.Request.Context(), log.ID, updates); err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	updated, err := h.Repo.GetEmotionalLogByID(c.Request.Context(), log.ID)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, updated, nil)
}
