// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/wfunc/gamekit/models"
)

// Store 数据库接口
type Store interface {
	SavePlayer(player *models.PlayerData) error
	LoadPlayer(userID int64) (*models.PlayerData, error)
	// AddCoins 原子调整金币，余额不足时报错
	AddCoins(userID int64, delta int64) error
	SaveRound(record *models.RoundRecord) error
	RecordTransition(roomID, from, to string) error
	RecentTransitions(roomID string, limit int) ([]models.TransitionAudit, error)
	GetPlayerStats(userID int64) (*models.PlayerStats, error)
	Close() error
}

// 两个驱动实现同一个接口
var (
	_ Store = (*GormStore)(nil)
	_ Store = (*PQStore)(nil)
)

// 错误定义
var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrInsufficientCoins = errors.New("insufficient coins")
)
