// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/gamekit/models"
)

// PQStore 不经ORM的PostgreSQL实现
type PQStore struct {
	db *sql.DB
}

// NewPQStore 创建 PostgreSQL 数据库连接
func NewPQStore(host string, port int, user, password, dbname string) (*PQStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PQStore{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS players (
            id SERIAL PRIMARY KEY,
            user_id BIGINT UNIQUE NOT NULL,
            name VARCHAR(255) NOT NULL DEFAULT '',
            level INT NOT NULL DEFAULT 1,
            experience INT NOT NULL DEFAULT 0,
            coins BIGINT NOT NULL DEFAULT 1000,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS round_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            game_type VARCHAR(100) NOT NULL,
            scores JSONB NOT NULL,
            duration DOUBLE PRECISION NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS transitions (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            from_state VARCHAR(50) NOT NULL,
            to_state VARCHAR(50) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_players_user_id ON players(user_id);
        CREATE INDEX IF NOT EXISTS idx_round_records_room_id ON round_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_transitions_room_id ON transitions(room_id);
    `)

	return err
}

func (p *PQStore) SavePlayer(player *models.PlayerData) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO players (user_id, name, level, experience, coins)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id)
        DO UPDATE SET name = $2, level = $3, experience = $4, coins = $5,
                      updated_at = CURRENT_TIMESTAMP
    `
	_, err := p.db.ExecContext(ctx, query,
		player.UserID, player.Name, player.Level, player.Experience, player.Coins)
	return err
}

func (p *PQStore) LoadPlayer(userID int64) (*models.PlayerData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var player models.PlayerData
	query := `
        SELECT user_id, name, level, experience, coins, created_at, updated_at
        FROM players WHERE user_id = $1
    `
	err := p.db.QueryRowContext(ctx, query, userID).Scan(
		&player.UserID, &player.Name, &player.Level, &player.Experience,
		&player.Coins, &player.CreatedAt, &player.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &player, nil
}

// AddCoins 用单条带条件的UPDATE保证原子性
func (p *PQStore) AddCoins(userID int64, delta int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        UPDATE players
        SET coins = coins + $2, updated_at = CURRENT_TIMESTAMP
        WHERE user_id = $1 AND coins + $2 >= 0
    `
	result, err := p.db.ExecContext(ctx, query, userID, delta)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// 要么玩家不存在，要么余额不足
		var exists bool
		check := `SELECT EXISTS(SELECT 1 FROM players WHERE user_id = $1)`
		if err := p.db.QueryRowContext(ctx, check, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrRecordNotFound
		}
		return ErrInsufficientCoins
	}
	return nil
}

func (p *PQStore) SaveRound(record *models.RoundRecord) error {
	scores, err := json.Marshal(record.Scores)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO round_records (room_id, game_type, scores, duration)
        VALUES ($1, $2, $3, $4)
    `
	_, err = p.db.ExecContext(ctx, query,
		record.RoomID, record.GameType, scores, record.Duration)
	return err
}

func (p *PQStore) RecordTransition(roomID, from, to string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `INSERT INTO transitions (room_id, from_state, to_state) VALUES ($1, $2, $3)`
	_, err := p.db.ExecContext(ctx, query, roomID, from, to)
	return err
}

func (p *PQStore) RecentTransitions(roomID string, limit int) ([]models.TransitionAudit, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT room_id, from_state, to_state, created_at
        FROM transitions
        WHERE room_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := p.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []models.TransitionAudit
	for rows.Next() {
		var a models.TransitionAudit
		if err := rows.Scan(&a.RoomID, &a.FromState, &a.ToState, &a.CreatedAt); err != nil {
			return nil, err
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

func (p *PQStore) GetPlayerStats(userID int64) (*models.PlayerStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var stats models.PlayerStats
	query := `
        SELECT
            COUNT(*),
            COALESCE(MAX((scores->>$1)::int), 0)
        FROM round_records
        WHERE jsonb_exists(scores, $1)
    `
	key := fmt.Sprintf("%d", userID)
	if err := p.db.QueryRowContext(ctx, query, key).Scan(&stats.TotalRounds, &stats.BestScore); err != nil {
		return nil, err
	}

	coins := `SELECT coins FROM players WHERE user_id = $1`
	if err := p.db.QueryRowContext(ctx, coins, userID).Scan(&stats.TotalCoins); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return &stats, nil
}

func (p *PQStore) Close() error {
	return p.db.Close()
}
