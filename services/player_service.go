// services/player_service.go
package services

import (
	"time"

	"github.com/wfunc/gamekit/cache"
	"github.com/wfunc/gamekit/models"
	"github.com/wfunc/gamekit/persistence"
)

// PlayerProfile bundles a player's record with their round statistics.
type PlayerProfile struct {
	Player *models.PlayerData  `json:"player"`
	Stats  *models.PlayerStats `json:"stats"`
}

// PlayerService reads and mutates player state through the store,
// keeping a short-lived cache in front of the profile query.
type PlayerService struct {
	store    persistence.Store
	profiles *cache.Cache[int64, *PlayerProfile]
}

func NewPlayerService(store persistence.Store) *PlayerService {
	return &PlayerService{
		store:    store,
		profiles: cache.New[int64, *PlayerProfile](30 * time.Second),
	}
}

// GetProfile 获取玩家信息和统计，命中缓存时不访问数据库
func (s *PlayerService) GetProfile(userID int64) (*PlayerProfile, error) {
	if profile, ok := s.profiles.Get(userID); ok {
		return profile, nil
	}

	player, err := s.store.LoadPlayer(userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.store.GetPlayerStats(userID)
	if err != nil {
		return nil, err
	}

	profile := &PlayerProfile{Player: player, Stats: stats}
	s.profiles.Set(userID, profile)
	return profile, nil
}

// UpdateCoins 调整玩家金币并让其缓存失效
func (s *PlayerService) UpdateCoins(userID int64, delta int64) error {
	if err := s.store.AddCoins(userID, delta); err != nil {
		return err
	}
	s.profiles.Delete(userID)
	return nil
}

// SaveRound persists a finished round and invalidates the cached
// profiles of every scoring player.
func (s *PlayerService) SaveRound(record *models.RoundRecord, userIDs []int64) error {
	if err := s.store.SaveRound(record); err != nil {
		return err
	}
	for _, id := range userIDs {
		s.profiles.Delete(id)
	}
	return nil
}

// PurgeCache drops expired profiles; scheduled on the server's timer.
func (s *PlayerService) PurgeCache() int {
	return s.profiles.Purge()
}
