package database

import (
	"database/sql"
	"fmt"
	"strings"

	"loterias-bot/internal/config"
	apperrors "loterias-bot/internal/errors"
	"loterias-bot/internal/logger"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDB MySQL数据库客户端：保存开奖历史和已保存的建议
type MySQLDB struct {
	db *sql.DB
}

// NewMySQLDB 创建新的MySQL数据库连接
func NewMySQLDB(cfg *config.Database) (*MySQLDB, error) {
	db, err := sql.Open("mysql", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	mysqlDB := NewWithDB(db)
	if err := mysqlDB.EnsureSchema(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return mysqlDB, nil
}

// NewWithDB 使用已有连接（测试中传入sqlmock）
func NewWithDB(db *sql.DB) *MySQLDB {
	return &MySQLDB{db: db}
}

// Close 关闭数据库连接
func (m *MySQLDB) Close() error {
	return m.db.Close()
}

// Ping 检查连接
func (m *MySQLDB) Ping() error {
	return m.db.Ping()
}

// EnsureSchema 自动创建表结构
func (m *MySQLDB) EnsureSchema() error {
	createDraws := `CREATE TABLE IF NOT EXISTS draws (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		variant VARCHAR(32) NOT NULL COMMENT '游戏',
		contest INT NOT NULL COMMENT '期号',
		numbers VARCHAR(128) NOT NULL COMMENT '开奖号码',
		bonus VARCHAR(32) DEFAULT NULL COMMENT '附加号码',
		team VARCHAR(64) DEFAULT NULL COMMENT '球队',
		month TINYINT DEFAULT NULL COMMENT '幸运月份',
		drawn_at DATE DEFAULT NULL COMMENT '开奖日期',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uk_variant_contest (variant, contest),
		INDEX idx_variant (variant)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='开奖历史表'`

	if _, err := m.db.Exec(createDraws); err != nil {
		return fmt.Errorf("failed to create draws table: %w", err)
	}

	createSuggestions := `CREATE TABLE IF NOT EXISTS suggestions (
		id CHAR(36) PRIMARY KEY,
		variant VARCHAR(32) NOT NULL COMMENT '游戏',
		method VARCHAR(32) NOT NULL COMMENT '生成方式',
		numbers VARCHAR(128) NOT NULL COMMENT '建议号码',
		bonus VARCHAR(32) DEFAULT NULL COMMENT '附加号码',
		team VARCHAR(64) DEFAULT NULL COMMENT '球队',
		month TINYINT DEFAULT NULL COMMENT '幸运月份',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_variant (variant),
		INDEX idx_created_at (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='已保存建议表'`

	if _, err := m.db.Exec(createSuggestions); err != nil {
		return fmt.Errorf("failed to create suggestions table: %w", err)
	}

	return nil
}

// SaveDraw 保存开奖数据（同一期重复写入时更新）
func (m *MySQLDB) SaveDraw(variant string, draw *Draw) error {
	query := `INSERT INTO draws (variant, contest, numbers, bonus, team, month, drawn_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			  numbers = VALUES(numbers),
			  bonus = VALUES(bonus),
			  team = VALUES(team),
			  month = VALUES(month),
			  drawn_at = VALUES(drawn_at)`

	_, err := m.db.Exec(query, variant, draw.Contest, FormatNumbers(draw.Numbers),
		nullableNumbers(draw.Bonus), nullableString(draw.Team), nullableMonth(draw.Month),
		nullableTime(draw))
	if err != nil {
		return fmt.Errorf("failed to save draw: %w", err)
	}

	logger.Debugf("Saved draw %s #%d", variant, draw.Contest)
	return nil
}

// GetDraws 获取某游戏全部历史，按期号升序
func (m *MySQLDB) GetDraws(variant string) (*History, error) {
	query := `SELECT contest, numbers, bonus, team, month, drawn_at
			  FROM draws
			  WHERE variant = ?
			  ORDER BY contest ASC`

	rows, err := m.db.Query(query, variant)
	if err != nil {
		return nil, apperrors.NewDataUnavailable(variant, err)
	}
	defer rows.Close()

	history := &History{Variant: variant}
	for rows.Next() {
		draw, err := scanDraw(rows)
		if err != nil {
			return nil, apperrors.NewDataUnavailable(variant, err)
		}
		history.Draws = append(history.Draws, *draw)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataUnavailable(variant, err)
	}

	return history, nil
}

// GetLatestDraw 获取最新一期，没有数据时返回nil
func (m *MySQLDB) GetLatestDraw(variant string) (*Draw, error) {
	query := `SELECT contest, numbers, bonus, team, month, drawn_at
			  FROM draws
			  WHERE variant = ?
			  ORDER BY contest DESC
			  LIMIT 1`

	row := m.db.QueryRow(query, variant)
	draw, err := scanDraw(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest draw: %w", err)
	}
	return draw, nil
}

// SaveSuggestion 保存建议号码
func (m *MySQLDB) SaveSuggestion(s *Suggestion) error {
	if s.ID == "" {
		return fmt.Errorf("suggestion without id")
	}

	query := `INSERT INTO suggestions (id, variant, method, numbers, bonus, team, month, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := m.db.Exec(query, s.ID, s.Variant, s.Method, FormatNumbers(s.Numbers),
		nullableNumbers(s.Bonus), nullableString(s.Team), nullableMonth(s.Month), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save suggestion: %w", err)
	}

	logger.Debugf("Saved suggestion %s for %s", s.ID, s.Variant)
	return nil
}

// GetSuggestions 获取已保存的建议，variant为空时返回全部
func (m *MySQLDB) GetSuggestions(variant string) ([]Suggestion, error) {
	query := `SELECT id, variant, method, numbers, bonus, team, month, created_at
			  FROM suggestions`
	var args []interface{}
	if variant != "" {
		query += ` WHERE variant = ?`
		args = append(args, variant)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []Suggestion
	for rows.Next() {
		var (
			s       Suggestion
			numbers string
			bonus   sql.NullString
			team    sql.NullString
			month   sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Variant, &s.Method, &numbers, &bonus, &team, &month, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		if s.Numbers, err = ParseNumbers(numbers); err != nil {
			return nil, fmt.Errorf("suggestion %s: %w", s.ID, err)
		}
		if bonus.Valid && bonus.String != "" {
			if s.Bonus, err = ParseNumbers(bonus.String); err != nil {
				return nil, fmt.Errorf("suggestion %s bonus: %w", s.ID, err)
			}
		}
		s.Team = team.String
		s.Month = int(month.Int64)
		suggestions = append(suggestions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading suggestion rows: %w", err)
	}
	return suggestions, nil
}

// DeleteSuggestion 删除建议，返回是否存在
func (m *MySQLDB) DeleteSuggestion(id string) (bool, error) {
	result, err := m.db.Exec(`DELETE FROM suggestions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete suggestion: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanDraw 扫描一行开奖数据
func scanDraw(row rowScanner) (*Draw, error) {
	var (
		draw    Draw
		numbers string
		bonus   sql.NullString
		team    sql.NullString
		month   sql.NullInt64
		drawnAt sql.NullTime
	)
	if err := row.Scan(&draw.Contest, &numbers, &bonus, &team, &month, &drawnAt); err != nil {
		return nil, err
	}

	nums, err := ParseNumbers(numbers)
	if err != nil {
		return nil, fmt.Errorf("draw #%d: %w", draw.Contest, err)
	}
	draw.Numbers = nums

	if bonus.Valid && strings.TrimSpace(bonus.String) != "" {
		if draw.Bonus, err = ParseNumbers(bonus.String); err != nil {
			return nil, fmt.Errorf("draw #%d bonus: %w", draw.Contest, err)
		}
	}
	draw.Team = team.String
	draw.Month = int(month.Int64)
	if drawnAt.Valid {
		draw.DrawnAt = drawnAt.Time
	}
	return &draw, nil
}

func nullableNumbers(nums []int) interface{} {
	if len(nums) == 0 {
		return nil
	}
	return FormatNumbers(nums)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableMonth(month int) interface{} {
	if month == 0 {
		return nil
	}
	return month
}

func nullableTime(draw *Draw) interface{} {
	if draw.DrawnAt.IsZero() {
		return nil
	}
	return draw.DrawnAt
}
