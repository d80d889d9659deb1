package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
	"tradejournal/internal/tradovate"
)

var (
	ErrBrokerNotConnected = errors.New("tradovate is not connected for this environment")
	ErrBrokerTokenExpired = errors.New("tradovate tokens expired, reconnect required")
)

// BrokerAPI is the slice of the Tradovate client the sync needs. Tests
// substitute a canned implementation.
type BrokerAPI interface {
	ListAccounts(ctx context.Context, env, accessToken string) ([]tradovate.Account, error)
	ListFills(ctx context.Context, env, accessToken string, accountID int64) ([]tradovate.Fill, error)
}

type SyncResult struct {
	AccountsSynced int `json:"accounts_synced"`
	TradesCreated  int `json:"trades_created"`
	TradesUpdated  int `json:"trades_updated"`
}

// BrokerSync pulls accounts and fills from Tradovate and folds them into the
// journal. Fills are grouped by order id into one closed trade per order;
// re-syncing updates existing rows instead of duplicating them.
type BrokerSync struct {
	Repo   repository.Repository
	API    BrokerAPI
	Cipher *tradovate.TokenCipher
	Stats  *DailyStatsService
	Logger *zap.Logger
}

// Sync runs a full pull for one user and environment. Every broker account is
// linked, but fills come from accountID only, defaulting to the first broker
// account when nil.
func (s *BrokerSync) Sync(ctx context.Context, userID uint64, env string, accountID *int64) (SyncResult, error) {
	var res SyncResult

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return res, err
	}
	if user == nil {
		return res, fmt.Errorf("user %d not found", userID)
	}

	tokens, err := s.loadTokens(user, env)
	if err != nil {
		return res, err
	}

	brokerAccounts, err := s.API.ListAccounts(ctx, env, tokens.AccessToken)
	if err != nil {
		return res, fmt.Errorf("list broker accounts: %w", err)
	}

	now := time.Now().UTC()
	var firstAccountID uint64
	var targetBrokerID int64

	for _, ba := range brokerAccounts {
		account, err := s.linkAccount(ctx, userID, env, ba, now)
		if err != nil {
			return res, err
		}
		res.AccountsSynced++
		if firstAccountID == 0 {
			firstAccountID = account.ID
			targetBrokerID = ba.ID
		}
	}

	if firstAccountID == 0 {
		return res, nil
	}
	if accountID != nil {
		targetBrokerID = *accountID
	}

	fills, err := s.API.ListFills(ctx, env, tokens.AccessToken, targetBrokerID)
	if err != nil {
		return res, fmt.Errorf("list fills for account %d: %w", targetBrokerID, err)
	}

	for _, order := range groupFillsByOrder(fills) {
		trade := syntheticTrade(userID, firstAccountID, env, order)
		existing, err := s.Repo.GetTradeByExternalID(ctx, userID, *trade.ExternalTradeID)
		if err != nil {
			return res, err
		}
		if existing != nil {
			if err := s.Repo.UpdateTradeFields(ctx, existing.ID, syncedTradeUpdates(trade)); err != nil {
				return res, err
			}
			res.TradesUpdated++
			continue
		}
		if err := s.Repo.InsertTrade(ctx, trade); err != nil {
			return res, err
		}
		res.TradesCreated++
	}

	if s.Stats != nil && res.TradesCreated+res.TradesUpdated > 0 {
		if _, err := s.Stats.ComputeForUser(ctx, userID, nil, nil); err != nil {
			s.Logger.Warn("daily stats recompute after sync failed",
				zap.Uint64("user_id", userID), zap.Error(err))
		}
	}

	s.Logger.Info("tradovate sync finished",
		zap.Uint64("user_id", userID),
		zap.String("environment", env),
		zap.Int("accounts", res.AccountsSynced),
		zap.Int("created", res.TradesCreated),
		zap.Int("updated", res.TradesUpdated))
	return res, nil
}

func (s *BrokerSync) loadTokens(user *models.User, env string) (tradovate.Tokens, error) {
	blob := user.TradovateDemoTokens
	expiry := user.TradovateDemoExpiresAt
	if env == tradovate.EnvLive {
		blob = user.TradovateLiveTokens
		expiry = user.TradovateLiveExpiresAt
	}
	if blob == nil || *blob == "" {
		return tradovate.Tokens{}, ErrBrokerNotConnected
	}
	if expiry != nil && expiry.Before(time.Now()) {
		return tradovate.Tokens{}, ErrBrokerTokenExpired
	}
	if s.Cipher != nil {
		return s.Cipher.Decrypt(*blob)
	}
	var tokens tradovate.Tokens
	if err := json.Unmarshal([]byte(*blob), &tokens); err != nil {
		return tradovate.Tokens{}, fmt.Errorf("parse stored tokens: %w", err)
	}
	return tokens, nil
}

// linkAccount upserts the journal account for one broker account, keyed by
// (user, tradovate account id).
func (s *BrokerSync) linkAccount(ctx context.Context, userID uint64, env string, ba tradovate.Account, now time.Time) (*models.TradingAccount, error) {
	tradovateID := fmt.Sprintf("%d", ba.ID)
	balance := numberToDecimal(ba.Balance)

	existing, err := s.Repo.GetTradingAccountByTradovateID(ctx, userID, tradovateID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		updates := map[string]any{
			"account_name":    ba.Name,
			"current_balance": balance,
			"last_sync_at":    now,
		}
		if err := s.Repo.UpdateTradingAccountFields(ctx, existing.ID, updates); err != nil {
			return nil, err
		}
		return existing, nil
	}

	accountType := "demo"
	if env == tradovate.EnvLive {
		accountType = "live"
	}
	account := &models.TradingAccount{
		UserID:               userID,
		AccountName:          ba.Name,
		Broker:               "tradovate",
		AccountType:          accountType,
		StartingBalance:      balance,
		CurrentBalance:       balance,
		ConnectionType:       "synced",
		TradovateEnvironment: &env,
		TradovateAccountID:   &tradovateID,
		LastSyncAt:           &now,
	}
	if err := s.Repo.InsertTradingAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

type orderFills struct {
	orderID int64
	fills   []tradovate.Fill
}

// groupFillsByOrder buckets fills by order id, each bucket sorted by fill
// timestamp, buckets sorted by earliest fill.
func groupFillsByOrder(fills []tradovate.Fill) []orderFills {
	byOrder := make(map[int64][]tradovate.Fill)
	for _, f := range fills {
		byOrder[f.OrderID] = append(byOrder[f.OrderID], f)
	}

	orders := make([]orderFills, 0, len(byOrder))
	for id, fs := range byOrder {
		sort.Slice(fs, func(i, j int) bool { return fs[i].Timestamp.Before(fs[j].Timestamp) })
		orders = append(orders, orderFills{orderID: id, fills: fs})
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].fills[0].Timestamp.Before(orders[j].fills[0].Timestamp)
	})
	return orders
}

// syntheticTrade folds one order's fills into a closed trade: entry price is
// the quantity-weighted average fill price, exit price is the last fill,
// quantity and costs are summed.
func syntheticTrade(userID, accountID uint64, env string, order orderFills) *models.Trade {
	first := order.fills[0]
	last := order.fills[len(order.fills)-1]

	totalQty := decimal.Zero
	weighted := decimal.Zero
	commission := decimal.Zero
	fees := decimal.Zero
	for _, f := range order.fills {
		qty := numberToDecimal(f.Qty)
		totalQty = totalQty.Add(qty)
		weighted = weighted.Add(numberToDecimal(f.Price).Mul(qty))
		commission = commission.Add(numberToDecimal(f.Commission))
		fees = fees.Add(numberToDecimal(f.Fees))
	}

	entryPrice := decimal.Zero
	if totalQty.IsPositive() {
		entryPrice = weighted.Div(totalQty)
	}
	exitPrice := numberToDecimal(last.Price)

	direction := models.DirectionShort
	if first.Action == "Buy" {
		direction = models.DirectionLong
	}
	symbol := first.ContractName
	if symbol == "" {
		symbol = "UNKNOWN"
	}

	externalID := fmt.Sprintf("tradovate_%s_%d", env, order.orderID)
	entryTime := first.Timestamp
	exitTime := last.Timestamp

	trade := &models.Trade{
		UserID:          userID,
		AccountID:       accountID,
		ExternalTradeID: &externalID,
		Source:          models.TradeSourceTradovate,
		Symbol:          symbol,
		Direction:       direction,
		AssetClass:      "futures",
		EntryPrice:      entryPrice,
		ExitPrice:       &exitPrice,
		Quantity:        totalQty,
		Commission:      commission,
		Fees:            fees,
		EntryTime:       &entryTime,
		ExitTime:        &exitTime,
		Status:          models.TradeStatusClosed,
	}

	if res, err := ComputePnL(trade); err == nil {
		trade.GrossPnL = &res.GrossPnL
		trade.NetPnL = &res.NetPnL
		trade.PnLPercentage = &res.PnLPercentage
		trade.RMultiple = res.RMultiple
		trade.DurationMinutes = res.DurationMinutes
	}
	return trade
}

func syncedTradeUpdates(t *models.Trade) map[string]any {
	updates := map[string]any{
		"symbol":      t.Symbol,
		"direction":   t.Direction,
		"entry_price": t.EntryPrice,
		"exit_price":  t.ExitPrice,
		"quantity":    t.Quantity,
		"commission":  t.Commission,
		"fees":        t.Fees,
		"entry_time":  t.EntryTime,
		"exit_time":   t.ExitTime,
		"status":      t.Status,
	}
	if t.GrossPnL != nil {
		updates["gross_pnl"] = t.GrossPnL
		updates["net_pnl"] = t.NetPnL
		updates["pnl_percentage"] = t.PnLPercentage
	}
	if t.RMultiple != nil {
		updates["r_multiple"] = t.RMultiple
	}
	if t.DurationMinutes != nil {
		updates["duration_minutes"] = t.DurationMinutes
	}
	return updates
}

func numberToDecimal(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero
	}
	return d
}
