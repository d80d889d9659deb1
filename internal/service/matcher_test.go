package service

import (
	"context"
	"testing"

	"tradejournal/internal/models"
)

func addStrategy(t *testing.T, repo *stubRepo, userID uint64, name string, mutate func(*models.Strategy)) uint64 {
	t.Helper()
	strategy := &models.Strategy{
		UserID: userID,
		Name:   name,
		Status: models.StrategyStatusActive,
	}
	if mutate != nil {
		mutate(strategy)
	}
	if err := repo.InsertStrategy(context.Background(), strategy); err != nil {
		t.Fatalf("insert strategy: %v", err)
	}
	return strategy.ID
}

func matchTrade(userID uint64, symbol string) *models.Trade {
	session := "ny_open"
	setup := "breakout"
	return &models.Trade{
		ID:         42,
		UserID:     userID,
		Symbol:     symbol,
		AssetClass: "futures",
		Session:    &session,
		SetupType:  &setup,
		Direction:  models.DirectionLong,
	}
}

func TestAutoAssignPicksBestMatch(t *testing.T) {
	repo := newStubRepo()
	matcher := &StrategyMatcher{Repo: repo}

	// Symbol + asset class: 3 + 2 = 5.
	wantID := addStrategy(t, repo, 1, "ES breakout", func(s *models.Strategy) {
		s.Symbols = mustJSON([]string{"ES", "NQ"})
		s.AssetClasses = mustJSON([]string{"futures"})
	})
	// Asset class only: 2, below threshold anyway.
	addStrategy(t, repo, 1, "generic futures", func(s *models.Strategy) {
		s.AssetClasses = mustJSON([]string{"futures"})
	})

	res, err := matcher.AutoAssign(context.Background(), matchTrade(1, "ES"))
	if err != nil {
		t.Fatalf("auto-assign: %v", err)
	}
	if !res.Assigned {
		t.Fatalf("not assigned: %+v", res)
	}
	if res.StrategyID == nil || *res.StrategyID != wantID {
		t.Fatalf("strategy = %v, want %d", res.StrategyID, wantID)
	}
	if res.MatchScore != 5 {
		t.Fatalf("score = %d, want 5", res.MatchScore)
	}
	if len(repo.tradeUpdates[42]) != 1 {
		t.Fatalf("expected one persisted update, got %d", len(repo.tradeUpdates[42]))
	}
}

func TestAutoAssignSymbolHardFilter(t *testing.T) {
	repo := newStubRepo()
	matcher := &StrategyMatcher{Repo: repo}

	// Matches everything except the symbol list: skipped outright even though
	// the remaining criteria would clear the threshold.
	addStrategy(t, repo, 1, "NQ only", func(s *models.Strategy) {
		s.Symbols = mustJSON([]string{"NQ"})
		s.AssetClasses = mustJSON([]string{"futures"})
		s.Sessions = mustJSON([]string{"ny_open"})
		s.SetupTypes = mustJSON([]string{"breakout"})
	})

	res, err := matcher.AutoAssign(context.Background(), matchTrade(1, "ES"))
	if err != nil {
		t.Fatalf("auto-assign: %v", err)
	}
	if res.Assigned {
		t.Fatalf("assigned despite symbol mismatch: %+v", res)
	}
	if res.Reason != "No matching strategy found" {
		t.Fatalf("reason = %q", res.Reason)
	}
}

func TestAutoAssignBelowThreshold(t *testing.T) {
	repo := newStubRepo()
	matcher := &StrategyMatcher{Repo: repo}

	// Session only: 2 < 3.
	addStrategy(t, repo, 1, "session only", func(s *models.Strategy) {
		s.Sessions = mustJSON([]string{"ny_open"})
	})

	res, err := matcher.AutoAssign(context.Background(), matchTrade(1, "ES"))
	if err != nil {
		t.Fatalf("auto-assign: %v", err)
	}
	if res.Assigned {
		t.Fatalf("assigned below threshold: %+v", res)
	}
}

func TestAutoAssignTieKeepsFirst(t *testing.T) {
	repo := newStubRepo()
	matcher := &StrategyMatcher{Repo: repo}

	firstID := addStrategy(t, repo, 1, "first", func(s *models.Strategy) {
		s.Symbols = mustJSON([]string{"ES"})
	})
	addStrategy(t, repo, 1, "second", func(s *models.Strategy) {
		s.Symbols = mustJSON([]string{"ES"})
	})

	res, err := matcher.AutoAssign(context.Background(), matchTrade(1, "ES"))
	if err != nil {
		t.Fatalf("auto-assign: %v", err)
	}
	if !res.Assigned || res.StrategyID == nil || *res.StrategyID != firstID {
		t.Fatalf("tie did not keep first strategy: %+v", res)
	}
}

func TestAutoAssignNeverOverwrites(t *testing.T) {
	repo := newStubRepo()
	matcher := &StrategyMatcher{Repo: repo}

	addStrategy(t, repo, 1, "ES", func(s *models.Strategy) {
		s.Symbols = mustJSON([]string{"ES"})
	})
	trade := matchTrade(1, "ES")
	existing := uint64(77)
	trade.StrategyID = &existing

	res, err := matcher.AutoAssign(context.Background(), trade)
	if err != nil {
		t.Fatalf("auto-assign: %v", err)
	}
	if res.Assigned {
		t.Fatalf("assigned over existing strategy: %+v", res)
	}
	if res.Reason != "Strategy already assigned" {
		t.Fatalf("reason = %q", res.Reason)
	}
	if len(repo.tradeUpdates[42]) != 0 {
		t.Fatalf("unexpected persisted update")
	}
}

func TestAutoAssignIgnoresArchived(t *testing.T) {
	repo := newStubRepo()
	matcher := &StrategyMatcher{Repo: repo}

	addStrategy(t, repo, 1, "archived ES", func(s *models.Strategy) {
		s.Symbols = mustJSON([]string{"ES"})
		s.Status = models.StrategyStatusArchived
	})

	res, err := matcher.AutoAssign(context.Background(), matchTrade(1, "ES"))
	if err != nil {
		t.Fatalf("auto-assign: %v", err)
	}
	if res.Assigned {
		t.Fatalf("assigned archived strategy: %+v", res)
	}
}
