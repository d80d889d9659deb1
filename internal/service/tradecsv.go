package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
)

var ErrEmptyCSV = errors.New("CSV file is empty or invalid")

type RowError struct {
	Row   int    `json:"row,omitempty"`
	Trade string `json:"trade,omitempty"`
	Error string `json:"error"`
}

type ImportResult struct {
	Imported int        `json:"imported"`
	Errors   []RowError `json:"error_details"`
}

// TradeCSV imports and exports trades in the journal's CSV layout. Import is
// best-effort: malformed rows are reported with their 1-based file row number
// and skipped, never aborting the batch.
type TradeCSV struct {
	Repo   repository.Repository
	Stats  *DailyStatsService
	Logger *zap.Logger
}

// csvRow is one record keyed by lowercased header label.
type csvRow map[string]string

func (r csvRow) get(keys ...string) string {
	for _, key := range keys {
		if v, ok := r[strings.ToLower(key)]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (r csvRow) decimal(keys ...string) decimal.Decimal {
	raw := r.get(keys...)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Import parses the reader and creates one trade per valid row for the given
// user and account, then recomputes daily stats over the imported date span.
func (c *TradeCSV) Import(ctx context.Context, userID, accountID uint64, reader io.Reader) (ImportResult, error) {
	result := ImportResult{Errors: []RowError{}}

	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return result, ErrEmptyCSV
	}
	if len(records) < 2 {
		return result, ErrEmptyCSV
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(h, `"`, "")))
	}

	var created []models.Trade
	for i := 1; i < len(records); i++ {
		// File row number, counting the header as row 1.
		rowNum := i + 1
		row := csvRow{}
		for j, v := range records[i] {
			if j < len(headers) {
				row[headers[j]] = strings.ReplaceAll(v, `"`, "")
			}
		}

		trade, err := tradeFromRow(row, userID, accountID)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Error: err.Error()})
			continue
		}

		if trade.Status == models.TradeStatusClosed {
			// Enrich closed rows with computed P&L; rows lacking exit data
			// stay as-is.
			if res, err := ComputePnL(trade); err == nil {
				trade.GrossPnL = &res.GrossPnL
				trade.NetPnL = &res.NetPnL
				trade.PnLPercentage = &res.PnLPercentage
				trade.RMultiple = res.RMultiple
				trade.DurationMinutes = res.DurationMinutes
			}
		}

		if err := c.Repo.InsertTrade(ctx, trade); err != nil {
			result.Errors = append(result.Errors, RowError{Trade: trade.Symbol, Error: err.Error()})
			continue
		}
		created = append(created, *trade)
	}
	result.Imported = len(created)

	if len(created) > 0 && c.Stats != nil {
		dates := make([]string, 0, len(created))
		for _, t := range created {
			if t.EntryTime != nil {
				dates = append(dates, t.EntryTime.UTC().Format("2006-01-02"))
			}
		}
		if len(dates) > 0 {
			sort.Strings(dates)
			from, to := dates[0], dates[len(dates)-1]
			if _, err := c.Stats.ComputeForUser(ctx, userID, &from, &to); err != nil && c.Logger != nil {
				c.Logger.Warn("post-import stats recompute failed", zap.Error(err))
			}
		}
	}

	if c.Logger != nil {
		c.Logger.Info("csv import finished",
			zap.Uint64("user_id", userID),
			zap.Int("imported", result.Imported),
			zap.Int("errors", len(result.Errors)),
		)
	}
	return result, nil
}

func tradeFromRow(row csvRow, userID, accountID uint64) (*models.Trade, error) {
	symbol := row.get("Symbol")
	direction := strings.ToLower(row.get("Direction"))
	entryPrice := row.decimal("Entry Price", "entry_price")
	quantity := row.decimal("Quantity", "quantity", "Size")
	if quantity.IsZero() && row.get("Quantity", "quantity", "Size") == "" {
		quantity = decimal.NewFromInt(1)
	}

	if symbol == "" || direction == "" || entryPrice.IsZero() || quantity.IsZero() {
		return nil, errors.New("Missing required fields")
	}

	status := strings.ToLower(row.get("Status"))
	if status == "" {
		status = models.TradeStatusClosed
	}

	trade := &models.Trade{
		UserID:     userID,
		AccountID:  accountID,
		Source:     models.TradeSourceImport,
		Symbol:     symbol,
		Direction:  direction,
		EntryPrice: entryPrice,
		Quantity:   quantity,
		Commission: row.decimal("Commission"),
		Fees:       row.decimal("Fees"),
		Status:     status,
	}

	if exit := row.decimal("Exit Price", "exit_price"); !exit.IsZero() {
		trade.ExitPrice = &exit
	}

	date := row.get("Date")
	clock := row.get("Time")
	entryTime := parseCSVTime(row.get("Entry Time", "entry_time"))
	if entryTime == nil && date != "" && clock != "" {
		entryTime = parseCSVTime(date + "T" + clock + "Z")
	}
	if entryTime == nil {
		now := time.Now().UTC()
		entryTime = &now
	}
	trade.EntryTime = entryTime

	if exitTime := parseCSVTime(row.get("Exit Time", "exit_time")); exitTime != nil {
		trade.ExitTime = exitTime
	} else if date != "" && clock != "" {
		trade.ExitTime = parseCSVTime(date + "T" + clock + "Z")
	}

	if v := row.get("Setup", "setup_type"); v != "" {
		trade.SetupType = &v
	}
	if v := row.get("Session", "session"); v != "" {
		trade.Session = &v
	}
	trade.Notes = row.get("Notes", "notes")

	return trade, nil
}

func parseCSVTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			t := ts.UTC()
			return &t
		}
	}
	return nil
}

var exportHeaders = []string{
	"ID", "Date", "Time", "Symbol", "Direction", "Status",
	"Entry Price", "Exit Price", "Quantity", "Gross P&L", "Commission",
	"Fees", "Net P&L", "R-Multiple", "Stop Loss", "Take Profit",
	"Setup", "Session", "Quality", "Followed Rules", "Mistakes", "Notes",
}

// Export writes the fixed 22-column CSV layout.
func (c *TradeCSV) Export(w io.Writer, trades []models.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return err
	}
	for _, t := range trades {
		date, clock := "", ""
		if t.EntryTime != nil {
			date = t.EntryTime.UTC().Format("2006-01-02")
			clock = t.EntryTime.UTC().Format("15:04:05")
		}
		followed := "No"
		if t.FollowedRules {
			followed = "Yes"
		}
		record := []string{
			strconv.FormatUint(t.ID, 10),
			date,
			clock,
			t.Symbol,
			t.Direction,
			t.Status,
			t.EntryPrice.String(),
			decimalPtrString(t.ExitPrice),
			t.Quantity.String(),
			decimalPtrString(t.GrossPnL),
			t.Commission.String(),
			t.Fees.String(),
			decimalPtrString(t.NetPnL),
			decimalPtrString(t.RMultiple),
			decimalPtrString(t.StopLoss),
			decimalPtrString(t.TakeProfit),
			strPtr(t.SetupType),
			strPtr(t.Session),
			intPtrString(t.TradeQuality),
			followed,
			strings.Join(models.StringList(t.Mistakes), "; "),
			t.Notes,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func decimalPtrString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func strPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intPtrString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
