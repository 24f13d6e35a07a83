// persistence/gorm_postgresql.go
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/gamekit/models"
)

// GormStore 使用GORM的PostgreSQL实现
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建GORM PostgreSQL数据库连接
func NewGormStore(host string, port int, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gl := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gl,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormPlayer{},
		&models.GormRoundRecord{},
		&models.GormTransition{},
	)
}

func (s *GormStore) SavePlayer(player *models.PlayerData) error {
	var row models.GormPlayer
	result := s.db.Where("user_id = ?", player.UserID).First(&row)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		row = models.GormPlayer{
			UserID:     player.UserID,
			Name:       player.Name,
			Level:      player.Level,
			Experience: player.Experience,
			Coins:      player.Coins,
		}
		return s.db.Create(&row).Error
	} else if result.Error != nil {
		return result.Error
	}

	row.Name = player.Name
	row.Level = player.Level
	row.Experience = player.Experience
	row.Coins = player.Coins
	return s.db.Save(&row).Error
}

func (s *GormStore) LoadPlayer(userID int64) (*models.PlayerData, error) {
	var row models.GormPlayer
	if err := s.db.Where("user_id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &models.PlayerData{
		UserID:     row.UserID,
		Name:       row.Name,
		Level:      row.Level,
		Experience: row.Experience,
		Coins:      row.Coins,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

// AddCoins 在一个事务里校验并调整金币
func (s *GormStore) AddCoins(userID int64, delta int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var row models.GormPlayer
		if err := tx.Where("user_id = ?", userID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		if delta < 0 && row.Coins+delta < 0 {
			return ErrInsufficientCoins
		}

		return tx.Model(&row).Update("coins", gorm.Expr("coins + ?", delta)).Error
	})
}

func (s *GormStore) SaveRound(record *models.RoundRecord) error {
	scores, err := json.Marshal(record.Scores)
	if err != nil {
		return err
	}

	row := models.GormRoundRecord{
		RoomID:   record.RoomID,
		GameType: record.GameType,
		Scores:   string(scores),
		Duration: record.Duration,
	}
	return s.db.Create(&row).Error
}

func (s *GormStore) RecordTransition(roomID, from, to string) error {
	row := models.GormTransition{
		RoomID:    roomID,
		FromState: from,
		ToState:   to,
	}
	return s.db.Create(&row).Error
}

func (s *GormStore) RecentTransitions(roomID string, limit int) ([]models.TransitionAudit, error) {
	var rows []models.GormTransition
	err := s.db.Where("room_id = ?", roomID).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	audits := make([]models.TransitionAudit, 0, len(rows))
	for _, row := range rows {
		audits = append(audits, models.TransitionAudit{
			RoomID:    row.RoomID,
			FromState: row.FromState,
			ToState:   row.ToState,
			CreatedAt: row.CreatedAt,
		})
	}
	return audits, nil
}

func (s *GormStore) GetPlayerStats(userID int64) (*models.PlayerStats, error) {
	var stats models.PlayerStats

	key := fmt.Sprintf("%d", userID)
	err := s.db.Raw(`
        SELECT
            COUNT(*) as total_rounds,
            COALESCE(MAX((scores->>?)::int), 0) as best_score
        FROM gorm_round_records
        WHERE jsonb_exists(scores::jsonb, ?)`, key, key,
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	var player models.GormPlayer
	if err := s.db.Where("user_id = ?", userID).First(&player).Error; err == nil {
		stats.TotalCoins = player.Coins
	}

	return &stats, nil
}

// Transaction 暴露底层事务，供需要跨表原子性的服务使用
func (s *GormStore) Transaction(fn func(tx *gorm.DB) error) error {
	return s.db.Transaction(fn)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
