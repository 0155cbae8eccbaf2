package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-ledger-service/pkg/mysql"
)

// Ledger backend 選項
const (
	BackendMySQL        = "mysql"
	BackendMemoryMutex  = "memory-mutex"
	BackendMemorySerial = "memory-serial"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type AuthConfig struct {
	// SigningKey 憑證簽章金鑰 (credentialSigningKey)，建議用環境變數覆寫
	SigningKey string `yaml:"signing_key"`
	// TokenExpiryRaw 憑證有效期 (tokenExpiry)，time.ParseDuration 格式，如 "1h"
	TokenExpiryRaw string `yaml:"token_expiry"`
	// TokenExpiry 解析後的有效期，由 Load 填入
	TokenExpiry time.Duration `yaml:"-"`
}

type LedgerConfig struct {
	// Backend 設定使用哪種帳戶儲存
	Backend string `yaml:"backend"`
	// WALPath 記憶體 backend 的 journal 檔案路徑
	WALPath string `yaml:"wal_path"`
}

// SeedAccount 啟動時補建的帳戶 (已存在則跳過)
type SeedAccount struct {
	Username string `yaml:"username"`
	// Balance 初始餘額 (十進位字串，如 "1000.00")；留空用預設值
	Balance string `yaml:"balance"`
}

type Config struct {
	Server ServerConfig  `yaml:"server"`
	Auth   AuthConfig    `yaml:"auth"`
	Ledger LedgerConfig  `yaml:"ledger"`
	MySQL  mysql.Config  `yaml:"mysql"`
	Seed   []SeedAccount `yaml:"seed"`
}

// Load 載入設定: yaml 檔 + .env/環境變數覆寫
//
// 環境變數:
//
//	LEDGER_ADDR: 監聽位址
//	LEDGER_SIGNING_KEY: 憑證簽章金鑰
//	LEDGER_MYSQL_URI: MySQL 連線字串 (connection URI)
func Load(path string) (Config, error) {
	// .env 不存在不算錯 (Production 直接吃系統環境變數)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env variables")
	}

	var cfg Config
	cfgData, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if v := os.Getenv("LEDGER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LEDGER_SIGNING_KEY"); v != "" {
		cfg.Auth.SigningKey = v
	}
	if v := os.Getenv("LEDGER_MYSQL_URI"); v != "" {
		cfg.MySQL.URI = v
	}

	if cfg.Auth.TokenExpiryRaw != "" {
		d, err := time.ParseDuration(cfg.Auth.TokenExpiryRaw)
		if err != nil {
			return cfg, fmt.Errorf("invalid auth.token_expiry: %w", err)
		}
		cfg.Auth.TokenExpiry = d
	}
	if cfg.MySQL.ConnMaxLifetimeRaw != "" {
		d, err := time.ParseDuration(cfg.MySQL.ConnMaxLifetimeRaw)
		if err != nil {
			return cfg, fmt.Errorf("invalid mysql.conn_max_lifetime: %w", err)
		}
		cfg.MySQL.ConnMaxLifetime = d
	}

	cfg.applyDefaults()

	if cfg.Auth.SigningKey == "" {
		return cfg, fmt.Errorf("auth.signing_key (or LEDGER_SIGNING_KEY) is required")
	}
	switch cfg.Ledger.Backend {
	case BackendMySQL, BackendMemoryMutex, BackendMemorySerial:
	default:
		return cfg, fmt.Errorf("invalid ledger.backend %q", cfg.Ledger.Backend)
	}
	return cfg, nil
}

// applyDefaults 補全預設配置 (如果 yaml 沒寫)
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Auth.TokenExpiry == 0 {
		c.Auth.TokenExpiry = time.Hour
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = BackendMemoryMutex
	}
	if c.Ledger.WALPath == "" {
		c.Ledger.WALPath = "wal.log"
	}
	if c.MySQL.MaxOpenConns == 0 {
		c.MySQL.MaxOpenConns = 100
	}
	if c.MySQL.MaxIdleConns == 0 {
		c.MySQL.MaxIdleConns = 10
	}
	if c.MySQL.ConnMaxLifetime == 0 {
		c.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
}
