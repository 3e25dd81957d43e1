package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config 应用程序配置结构
type Config struct {
	Database Database   `yaml:"database"`
	Telegram Telegram   `yaml:"telegram"`
	API      API        `yaml:"api"`
	App      App        `yaml:"app"`
	Metrics  Metrics    `yaml:"metrics"`
	Games    []GameSpec `yaml:"games"`
}

// Database 数据库配置
type Database struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"username"`
	Database        string        `yaml:"database"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Telegram Bot配置
type Telegram struct {
	Token        string        `yaml:"token"`
	Timeout      time.Duration `yaml:"timeout"`
	AllowedUsers []int64       `yaml:"allowed_users"`
}

// API 官方开奖结果接口配置
type API struct {
	URL        string        `yaml:"url"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int           `yaml:"retry_count"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// App 应用程序配置
type App struct {
	LogLevel               string        `yaml:"log_level"`
	LogFormat              string        `yaml:"log_format"`
	CacheTTL               time.Duration `yaml:"cache_ttl"`
	CacheSize              int           `yaml:"cache_size"`
	StatisticalSuggestions int           `yaml:"statistical_suggestions"`
	DefaultValidations     int           `yaml:"default_validations"`
	MaxValidations         int           `yaml:"max_validations"`
	Seed                   int64         `yaml:"seed"`
	ImportOnStart          bool          `yaml:"import_on_start"`
	AppendToDataFile       bool          `yaml:"append_to_data_file"`
}

// Metrics Prometheus监听配置
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	// .env 可选，不存在时忽略
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// Parse 解析YAML配置并补全默认值
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// applyDefaults 补全未设置的数值项
func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.CacheTTL == 0 {
		c.App.CacheTTL = 30 * time.Minute
	}
	if c.App.CacheSize == 0 {
		c.App.CacheSize = 256
	}
	if c.App.StatisticalSuggestions == 0 {
		c.App.StatisticalSuggestions = 5
	}
	if c.App.MaxValidations == 0 {
		c.App.MaxValidations = 30
	}
	if c.App.DefaultValidations == 0 {
		c.App.DefaultValidations = 10
	}
	if c.App.DefaultValidations > c.App.MaxValidations {
		c.App.DefaultValidations = c.App.MaxValidations
	}
	if c.API.RetryCount == 0 {
		c.API.RetryCount = 3
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 15 * time.Second
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9108"
	}
}

// applyEnv 环境变量覆盖敏感配置
func (c *Config) applyEnv() {
	if v := os.Getenv("LOTERIAS_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("LOTERIAS_TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("LOTERIAS_LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
}

// BuildGames 将所有游戏配置转换为带能力的游戏变体
func (c *Config) BuildGames() ([]Game, error) {
	games := make([]Game, 0, len(c.Games))
	seen := make(map[string]bool)
	for _, spec := range c.Games {
		game, err := BuildGame(spec)
		if err != nil {
			return nil, err
		}
		if seen[game.Key()] {
			return nil, fmt.Errorf("duplicate game key: %s", game.Key())
		}
		seen[game.Key()] = true
		games = append(games, game)
	}
	return games, nil
}

// GetDSN 获取数据库连接字符串
func (d *Database) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}
