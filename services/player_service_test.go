package services

import (
	"testing"

	"github.com/wfunc/gamekit/models"
	"github.com/wfunc/gamekit/persistence"
)

// fakeStore counts store hits so tests can observe the cache.
type fakeStore struct {
	players   map[int64]*models.PlayerData
	loadCalls int
	rounds    []*models.RoundRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{players: make(map[int64]*models.PlayerData)}
}

func (f *fakeStore) SavePlayer(p *models.PlayerData) error {
	f.players[p.UserID] = p
	return nil
}

func (f *fakeStore) LoadPlayer(userID int64) (*models.PlayerData, error) {
	f.loadCalls++
	p, ok := f.players[userID]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}
	return p, nil
}

func (f *fakeStore) AddCoins(userID int64, delta int64) error {
	p, ok := f.players[userID]
	if !ok {
		return persistence.ErrRecordNotFound
	}
	if delta < 0 && p.Coins+delta < 0 {
		return persistence.ErrInsufficientCoins
	}
	p.Coins += delta
	return nil
}

func (f *fakeStore) SaveRound(r *models.RoundRecord) error {
	f.rounds = append(f.rounds, r)
	return nil
}

func (f *fakeStore) RecordTransition(roomID, from, to string) error { return nil }

func (f *fakeStore) RecentTransitions(roomID string, limit int) ([]models.TransitionAudit, error) {
	return nil, nil
}

func (f *fakeStore) GetPlayerStats(userID int64) (*models.PlayerStats, error) {
	return &models.PlayerStats{}, nil
}

func (f *fakeStore) Close() error { return nil }

func TestPlayerService_ProfileIsCached(t *testing.T) {
	store := newFakeStore()
	store.SavePlayer(&models.PlayerData{UserID: 1, Name: "ada", Coins: 100})
	svc := NewPlayerService(store)

	if _, err := svc.GetProfile(1); err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if _, err := svc.GetProfile(1); err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}

	if store.loadCalls != 1 {
		t.Errorf("expected a single store load for cached profile, got %d", store.loadCalls)
	}
}

func TestPlayerService_UpdateCoinsInvalidatesCache(t *testing.T) {
	store := newFakeStore()
	store.SavePlayer(&models.PlayerData{UserID: 1, Name: "ada", Coins: 100})
	svc := NewPlayerService(store)

	svc.GetProfile(1)
	if err := svc.UpdateCoins(1, 50); err != nil {
		t.Fatalf("UpdateCoins failed: %v", err)
	}

	profile, err := svc.GetProfile(1)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Player.Coins != 150 {
		t.Errorf("expected fresh coins 150 after invalidation, got %d", profile.Player.Coins)
	}
	if store.loadCalls != 2 {
		t.Errorf("expected a second store load after invalidation, got %d", store.loadCalls)
	}
}

func TestPlayerService_InsufficientCoins(t *testing.T) {
	store := newFakeStore()
	store.SavePlayer(&models.PlayerData{UserID: 1, Coins: 10})
	svc := NewPlayerService(store)

	if err := svc.UpdateCoins(1, -50); err != persistence.ErrInsufficientCoins {
		t.Errorf("expected ErrInsufficientCoins, got %v", err)
	}
}

func TestPlayerService_SaveRound(t *testing.T) {
	store := newFakeStore()
	svc := NewPlayerService(store)

	record := &models.RoundRecord{RoomID: "r", GameType: "test_game", Scores: map[string]int{"1": 5}}
	if err := svc.SaveRound(record, []int64{1}); err != nil {
		t.Fatalf("SaveRound failed: %v", err)
	}
	if len(store.rounds) != 1 {
		t.Errorf("expected one persisted round, got %d", len(store.rounds))
	}
}
