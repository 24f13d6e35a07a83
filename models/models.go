// models/models.go
package models

import (
	"time"
)

// PlayerData 玩家数据模型
type PlayerData struct {
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	Level      int       `json:"level"`
	Experience int       `json:"experience"`
	Coins      int64     `json:"coins"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RoundRecord 一局游戏的存档
type RoundRecord struct {
	RoomID    string         `json:"room_id"`
	GameType  string         `json:"game_type"`
	Scores    map[string]int `json:"scores"`
	Duration  float64        `json:"duration_seconds"`
	CreatedAt time.Time      `json:"created_at"`
}

// TransitionAudit 状态机转换审计
type TransitionAudit struct {
	RoomID    string    `json:"room_id"`
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
	CreatedAt time.Time `json:"created_at"`
}
