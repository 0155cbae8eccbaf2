package mysql

import (
	"fmt"
	"time"
)

// Config 定義 MySQL 連線與連線池的配置
type Config struct {
	// URI 完整連線字串 (DSN)；設定後優先於下列個別欄位
	URI string `yaml:"uri"`

	Host     string `yaml:"host"`     // 資料庫主機地址
	Port     int    `yaml:"port"`     // 資料庫埠號 (預設 3306)
	User     string `yaml:"user"`     // 使用者名稱
	Password string `yaml:"password"` // 密碼
	DBName   string `yaml:"dbname"`   // 資料庫名稱

	// 連線池設定 (Connection Pool)
	// 參考: https://github.com/go-sql-driver/mysql#important-settings
	MaxOpenConns int `yaml:"max_open_conns"` // 最大開啟連線數
	MaxIdleConns int `yaml:"max_idle_conns"` // 最大閒置連線數
	// ConnMaxLifetimeRaw 連線最大存活時間，time.ParseDuration 格式，如 "30m"
	ConnMaxLifetimeRaw string `yaml:"conn_max_lifetime"`
	// ConnMaxLifetime 解析後的存活時間，由設定載入端填入
	ConnMaxLifetime time.Duration `yaml:"-"`

	// GORM 設定
	LogLevel string `yaml:"log_level"` // Log 等級: "silent", "error", "warn", "info"
}

// DSN (Data Source Name) 產生連線字串
// 格式: user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local
func (c *Config) DSN() string {
	if c.URI != "" {
		return c.URI
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
	)
}
