// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormPlayer 玩家模型
type GormPlayer struct {
	gorm.Model
	UserID     int64  `gorm:"uniqueIndex;not null"`
	Name       string `gorm:"not null"`
	Level      int    `gorm:"default:1"`
	Experience int    `gorm:"default:0"`
	Coins      int64  `gorm:"default:1000"`
}

// GormRoundRecord 对局记录，分数以 JSON 存储
type GormRoundRecord struct {
	gorm.Model
	RoomID   string  `gorm:"index;not null"`
	GameType string  `gorm:"not null"`
	Scores   string  `gorm:"type:jsonb;not null"`
	Duration float64 `gorm:"default:0"`
}

// GormTransition 房间状态机的转换审计
type GormTransition struct {
	gorm.Model
	RoomID    string `gorm:"index;not null"`
	FromState string `gorm:"not null"`
	ToState   string `gorm:"not null"`
}

// PlayerStats 玩家统计信息
type PlayerStats struct {
	TotalRounds int   `json:"total_rounds"`
	BestScore   int   `json:"best_score"`
	TotalCoins  int64 `json:"total_coins"`
}
