package config

import (
	"fmt"
	"strings"

	"github.com/equipment-registry/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Queue        QueueConfig        `mapstructure:"queue"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Security     SecurityConfig     `mapstructure:"security"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Geo          GeoConfig          `mapstructure:"geo"`
	ERP          ERPConfig          `mapstructure:"erp"`
	Report       ReportConfig       `mapstructure:"report"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`     // debug / release
	BaseURL string `mapstructure:"base_url"` // 生成二维码扫描地址，空则按请求推导
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		Level:      c.Level,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig 扫码与登记接口限流
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// 自然键类型
const (
	NaturalKeyProductCode = "product_code"
	NaturalKeyModelUnit   = "model_unit"
)

// 交付周期参考日期
const (
	LeadTimeFromCreatedAt    = "created_at"
	LeadTimeFromShipmentDate = "shipment_date"
)

// RegistrationConfig 部署差异配置（自然键、可选字段、参考日期）
type RegistrationConfig struct {
	NaturalKey        string `mapstructure:"natural_key"`
	LeadTimeReference string `mapstructure:"lead_time_reference"`
	UseOrderNumber    bool   `mapstructure:"use_order_number"`
	UseExportCountry  bool   `mapstructure:"use_export_country"`
	UseShipmentDate   bool   `mapstructure:"use_shipment_date"`
	IPFallback        bool   `mapstructure:"ip_fallback"`
	CountryLocale     bool   `mapstructure:"country_locale"`
}

// Normalize 归一化非法取值
func (c RegistrationConfig) Normalize() RegistrationConfig {
	c.NaturalKey = strings.ToLower(strings.TrimSpace(c.NaturalKey))
	if c.NaturalKey != NaturalKeyModelUnit {
		c.NaturalKey = NaturalKeyProductCode
	}
	c.LeadTimeReference = strings.ToLower(strings.TrimSpace(c.LeadTimeReference))
	if c.LeadTimeReference != LeadTimeFromShipmentDate {
		c.LeadTimeReference = LeadTimeFromCreatedAt
	}
	return c
}

// GeoConfig IP 定位配置
type GeoConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// ERPConfig ERP (MS SQL Server) 连接配置
type ERPConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	DBHost              string `mapstructure:"db_host"`
	DBPort              int    `mapstructure:"db_port"`
	DBName              string `mapstructure:"db_name"`
	DBUser              string `mapstructure:"db_user"`
	DBPassword          string `mapstructure:"db_password"`
	SyncIntervalSeconds int    `mapstructure:"sync_interval_seconds"`
	SyncBatch           int    `mapstructure:"sync_batch"`
}

// Configured 判断 ERP 连接信息是否完整
func (c ERPConfig) Configured() bool {
	return c.Enabled &&
		strings.TrimSpace(c.DBHost) != "" &&
		strings.TrimSpace(c.DBName) != "" &&
		strings.TrimSpace(c.DBUser) != ""
}

// ReportConfig 报表配置
type ReportConfig struct {
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
	ListLimit       int `mapstructure:"list_limit"`
}

// Load 从 .env 与 config.yml 加载配置
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		logger.Infow("dotenv_loaded", "file", ".env")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./etc")

	setDefaults()

	// server.base_url -> SERVER_BASE_URL, erp.db_host -> ERP_DB_HOST
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	cfg.Registration = cfg.Registration.Normalize()
	cfg.Server.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Server.BaseURL), "/")

	return &cfg
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.base_url", "")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "registry.log")
	viper.SetDefault("log.level", "")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/registry.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "eqr")
	viper.SetDefault("queue.enabled", false)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 5)
	viper.SetDefault("queue.queues", map[string]int{
		"default": 10,
		"erp":     5,
	})
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Accept-Language",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	viper.SetDefault("cors.allow_credentials", false)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("security.rate_limit.window_seconds", 60)
	viper.SetDefault("security.rate_limit.max_requests", 30)
	viper.SetDefault("registration.natural_key", NaturalKeyProductCode)
	viper.SetDefault("registration.lead_time_reference", LeadTimeFromCreatedAt)
	viper.SetDefault("registration.use_order_number", false)
	viper.SetDefault("registration.use_export_country", false)
	viper.SetDefault("registration.use_shipment_date", false)
	viper.SetDefault("registration.ip_fallback", false)
	viper.SetDefault("registration.country_locale", true)
	viper.SetDefault("geo.enabled", false)
	viper.SetDefault("geo.endpoint", "http://ip-api.com/json/")
	viper.SetDefault("geo.timeout_ms", 5000)
	viper.SetDefault("erp.enabled", false)
	viper.SetDefault("erp.db_host", "")
	viper.SetDefault("erp.db_port", 1433)
	viper.SetDefault("erp.db_name", "")
	viper.SetDefault("erp.db_user", "")
	viper.SetDefault("erp.db_password", "")
	viper.SetDefault("erp.sync_interval_seconds", 600)
	viper.SetDefault("erp.sync_batch", 50)
	viper.SetDefault("report.cache_ttl_seconds", 45)
	viper.SetDefault("report.list_limit", 500)
}
