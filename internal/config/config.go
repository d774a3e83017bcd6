// Package config 提供配置加载和管理功能
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config 对应 configs/config.yaml 的根结构
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Messaging     MessagingConfig     `mapstructure:"messaging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Security      SecurityConfig      `mapstructure:"security"`
	Versioning    VersioningConfig    `mapstructure:"versioning"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"`
}

// IsProduction gin 在生产环境切换到 release 模式
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

type ServerConfig struct {
	HTTP HTTPServerConfig `mapstructure:"http"`
}

type HTTPServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Addr 监听地址
func (c HTTPServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig 连接参数、连接池与 SQL 日志
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DSN libpq 键值格式，GORM 与 cmd/migrate 共用
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// CacheConfig Redis 连接与快照缓存时长
type CacheConfig struct {
	Redis       RedisConfig   `mapstructure:"redis"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr host:port
func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type MessagingConfig struct {
	RedisStream RedisStreamConfig `mapstructure:"redis_stream"`
}

// RedisStreamConfig 提交任务流的生产与消费参数
type RedisStreamConfig struct {
	MaxLen              int           `mapstructure:"max_len"`
	ConsumerGroupPrefix string        `mapstructure:"consumer_group_prefix"`
	BlockTimeout        time.Duration `mapstructure:"block_timeout"`
	ClaimInterval       time.Duration `mapstructure:"claim_interval"`
	RetryLimit          int           `mapstructure:"retry_limit"`
	RetryBackoff        BackoffConfig `mapstructure:"retry_backoff"`
}

// BackoffConfig 第 n 次重投前等待 Initial*Multiplier^n，不超过 Max
type BackoffConfig struct {
	Initial    time.Duration `mapstructure:"initial"`
	Max        time.Duration `mapstructure:"max"`
	Multiplier float64       `mapstructure:"multiplier"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig allowed_origins 含 "*" 时放行全部来源
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// VersioningConfig 版本化引擎配置
type VersioningConfig struct {
	// UploadMode 上传任务默认的批处理模式：complete_set 或 delta
	UploadMode string `mapstructure:"upload_mode"`
	// MaxBatchSize 单次提交允许的最大实体数，0 表示不限制
	MaxBatchSize int `mapstructure:"max_batch_size"`
}

// Validate 检查取值范围；upload_mode 的合法性由使用方在装配时处理
func (c *Config) Validate() error {
	var errs []error
	if p := c.Server.HTTP.Port; p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("server.http.port %d out of range", p))
	}
	if c.Versioning.MaxBatchSize < 0 {
		errs = append(errs, fmt.Errorf("versioning.max_batch_size must not be negative, got %d", c.Versioning.MaxBatchSize))
	}
	if c.Cache.SnapshotTTL < 0 {
		errs = append(errs, fmt.Errorf("cache.snapshot_ttl must not be negative, got %s", c.Cache.SnapshotTTL))
	}
	rs := c.Messaging.RedisStream
	if rs.RetryLimit < 0 {
		errs = append(errs, fmt.Errorf("messaging.redis_stream.retry_limit must not be negative, got %d", rs.RetryLimit))
	}
	if rs.RetryBackoff.Multiplier != 0 && rs.RetryBackoff.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("messaging.redis_stream.retry_backoff.multiplier must be >= 1, got %g", rs.RetryBackoff.Multiplier))
	}
	if r := c.Observability.Tracing.SampleRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("observability.tracing.sample_rate must be within [0, 1], got %g", r))
	}
	return errors.Join(errs...)
}
