package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
)

const (
	lossStreakWindow     = 10
	lossStreakWarnAt     = 3
	lossStreakCriticalAt = 5
	tiltLogWindow        = 3
	tiltMoodCeiling      = 4
	tiltStressFloor      = 8
)

var tiltEmotions = []string{"greedy", "revenge", "frustrated"}

// AlertsEngine evaluates three independent threshold rules against a user's
// recent activity. Each rule creates at most one alert per run; the rules are
// not mutually exclusive.
type AlertsEngine struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// RunForUser applies all rules and returns the alerts created.
func (e *AlertsEngine) RunForUser(ctx context.Context, userID uint64) ([]models.Alert, error) {
	created := []models.Alert{}

	recent, err := e.Repo.ListClosedTrades(ctx, userID, lossStreakWindow)
	if err != nil {
		return nil, err
	}

	if alert := e.checkLosingStreak(userID, recent); alert != nil {
		if err := e.Repo.InsertAlert(ctx, alert); err != nil {
			return created, err
		}
		created = append(created, *alert)
	}

	alert, err := e.checkDailyLossLimit(ctx, userID, recent)
	if err != nil {
		return created, err
	}
	if alert != nil {
		if err := e.Repo.InsertAlert(ctx, alert); err != nil {
			return created, err
		}
		created = append(created, *alert)
	}

	alert, err = e.checkTilt(ctx, userID)
	if err != nil {
		return created, err
	}
	if alert != nil {
		if err := e.Repo.InsertAlert(ctx, alert); err != nil {
			return created, err
		}
		created = append(created, *alert)
	}

	if e.Logger != nil && len(created) > 0 {
		e.Logger.Info("alerts created",
			zap.Uint64("user_id", userID),
			zap.Int("count", len(created)),
		)
	}
	return created, nil
}

// ScanAll runs the rules for every user with closed trades. Driven by cron.
func (e *AlertsEngine) ScanAll(ctx context.Context) error {
	userIDs, err := e.Repo.ListUserIDsWithClosedTrades(ctx)
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		if _, err := e.RunForUser(ctx, userID); err != nil {
			if e.Logger != nil {
				e.Logger.Warn("alert scan failed for user",
					zap.Uint64("user_id", userID),
					zap.Error(err),
				)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// checkLosingStreak counts the leading run of negative net P&L among the most
// recent closed trades (already sorted entry_time desc), stopping at the first
// non-negative trade.
func (e *AlertsEngine) checkLosingStreak(userID uint64, recent []models.Trade) *models.Alert {
	streak := 0
	for _, t := range recent {
		if t.NetPnL != nil && t.NetPnL.IsNegative() {
			streak++
			continue
		}
		break
	}
	if streak < lossStreakWarnAt {
		return nil
	}
	severity := models.AlertSeverityWarning
	if streak >= lossStreakCriticalAt {
		severity = models.AlertSeverityCritical
	}
	return &models.Alert{
		UserID:   userID,
		Type:     models.AlertTypeStreak,
		Severity: severity,
		Title:    fmt.Sprintf("%d Losing Trades in a Row", streak),
		Message:  fmt.Sprintf("You've had %d consecutive losing trades. Consider taking a break and reviewing your strategy.", streak),
		Data:     mustJSON(map[string]any{"streak_count": streak}),
	}
}

// checkDailyLossLimit sums today's net P&L and compares it against the risk
// settings of the account behind today's first trade. 80% of the limit is a
// warning, the full limit is critical.
func (e *AlertsEngine) checkDailyLossLimit(ctx context.Context, userID uint64, recent []models.Trade) (*models.Alert, error) {
	today := time.Now().UTC().Format("2006-01-02")
	var todayTrades []models.Trade
	for _, t := range recent {
		if t.EntryTime == nil {
			continue
		}
		if t.EntryTime.UTC().Format("2006-01-02") == today {
			todayTrades = append(todayTrades, t)
		}
	}
	if len(todayTrades) == 0 {
		return nil, nil
	}

	todayPnL := decimal.Zero
	for _, t := range todayTrades {
		if t.NetPnL != nil {
			todayPnL = todayPnL.Add(*t.NetPnL)
		}
	}
	if !todayPnL.IsNegative() {
		return nil, nil
	}

	account, err := e.Repo.GetTradingAccountByID(ctx, todayTrades[0].AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil
	}
	rs := account.ParsedRiskSettings()
	if rs.MaxDailyLoss == nil || *rs.MaxDailyLoss == 0 {
		return nil, nil
	}

	maxLoss := decimal.NewFromFloat(*rs.MaxDailyLoss).Abs().Neg()
	threshold := maxLoss.Mul(decimal.NewFromFloat(0.8))
	if todayPnL.GreaterThan(threshold) {
		return nil, nil
	}

	severity := models.AlertSeverityWarning
	suffix := "80% of daily limit reached."
	if todayPnL.LessThanOrEqual(maxLoss) {
		severity = models.AlertSeverityCritical
		suffix = "Daily limit reached!"
	}
	return &models.Alert{
		UserID:   userID,
		Type:     models.AlertTypeDailyLossLimit,
		Severity: severity,
		Title:    "Daily Loss Limit Alert",
		Message:  fmt.Sprintf("You're at $%s today. %s", todayPnL.StringFixed(2), suffix),
		Data: mustJSON(map[string]any{
			"today_pnl": todayPnL,
			"max_loss":  maxLoss,
		}),
	}, nil
}

// checkTilt scans the most recent emotional logs and fires a single alert at
// the first log showing a tilt indicator.
func (e *AlertsEngine) checkTilt(ctx context.Context, userID uint64) (*models.Alert, error) {
	logs, err := e.Repo.ListRecentEmotionalLogs(ctx, userID, tiltLogWindow)
	if err != nil {
		return nil, err
	}
	for _, log := range logs {
		if !tiltIndicated(log) {
			continue
		}
		return &models.Alert{
			UserID:   userID,
			Type:     models.AlertTypeTiltDetected,
			Severity: models.AlertSeverityWarning,
			Title:    "Emotional State Alert",
			Message:  "Your recent journal entries show potential tilt indicators. Consider taking a break.",
			Data: mustJSON(map[string]any{
				"log_date": log.Date,
				"mood":     log.OverallMood,
				"stress":   log.StressLevel,
			}),
		}, nil
	}
	return nil, nil
}

func tiltIndicated(log models.EmotionalLog) bool {
	if log.TiltDetected {
		return true
	}
	emotions := models.StringList(log.Emotions)
	for _, e := range emotions {
		for _, marker := range tiltEmotions {
			if e == marker {
				return true
			}
		}
	}
	if log.OverallMood != nil && *log.OverallMood != 0 && *log.OverallMood <= tiltMoodCeiling {
		return true
	}
	if log.StressLevel != nil && *log.StressLevel >= tiltStressFloor {
		return true
	}
	return false
}
