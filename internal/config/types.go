// Package config 统一配置管理
//
// 配置加载优先级（高→低）：
//  1. 环境变量（通过 .env 文件或 shell/systemd 注入）
//  2. YAML 配置文件（{env}.yaml，如 dev.yaml、test.yaml、prod.yaml）
//  3. 代码硬编码默认值
//
// 凭据单一数据源：
//
//	密码/密钥只存在 .env 文件或进程环境中（YAML 中不存储任何密码）。
//
// 配置路径确定策略：
//  1. --config 命令行参数（显式路径）
//  2. CONFIG_DIR 环境变量
//  3. 按 APP_ENV 选择默认路径：
//     - prod → /etc/bookstore/
//     - dev/test → ./configs/
//
// 环境：
//   - 开发: APP_ENV=dev → configs/dev.yaml + .env.dev
//   - 测试: APP_ENV=test → configs/test.yaml + .env.test
//   - 生产: APP_ENV=prod → /etc/bookstore/prod.yaml + 进程环境
package config

import "time"

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// 数据库驱动
const (
	DriverMongoDB = "mongodb"
	DriverMemory  = "memory"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Auth       AuthConfig       `yaml:"auth"`
	Pagination PaginationConfig `yaml:"pagination"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port            string        `yaml:"port"`
	BaseURL         string        `yaml:"base_url"` // 重置链接前缀，为空时使用 http://localhost:{port}
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// 可信反向代理（IP 或 CIDR），仅来自这些地址的 X-Forwarded-For 会被采信
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "mongodb"（默认）或 "memory"
	URI      string `yaml:"uri"`    // 优先于 host/port
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // 只从 MONGO_ROOT_PASSWORD 环境变量读取
	Name     string `yaml:"name"`
}

// RedisConfig Redis 配置（限流计数）
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"`   // 只从 REDIS_PASSWORD 环境变量读取
	URL      string `yaml:"url"` // 优先于 host/port/db
}

// MinIOConfig MinIO 对象存储配置（图片上传）
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"` // 为空时不启用上传
	AccessKey string `yaml:"-"`        // 只从 MINIO_ROOT_USER 环境变量读取
	SecretKey string `yaml:"-"`        // 只从 MINIO_ROOT_PASSWORD 环境变量读取
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

// AuthConfig 认证配置
// 注意：JWTSecret/AdminEmail/AdminPassword 只从环境变量读取，不存储在 YAML 中
type AuthConfig struct {
	JWTSecret     string        `yaml:"-"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	ResetTTL      time.Duration `yaml:"reset_ttl"`
	TokenHeader   string        `yaml:"token_header"`
	BcryptCost    int           `yaml:"bcrypt_cost"`
	AdminEmail    string        `yaml:"-"`
	AdminPassword string        `yaml:"-"`
}

// PaginationConfig 列表分页大小
type PaginationConfig struct {
	BooksPerPage   int `yaml:"books_per_page"`
	AuthorsPerPage int `yaml:"authors_per_page"`
}

// RateLimitConfig 限流规则（未启用 Redis 时不生效）
type RateLimitConfig struct {
	Login  RateRule `yaml:"login"`
	Forgot RateRule `yaml:"forgot"`
}

// RateRule 每个窗口内最多 Limit 次
type RateRule struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`  // debug/info/warn/error
	Format string `yaml:"format"` // text/json
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env            Environment
	DatabaseDriver string
	DatabaseURL    string
	DatabaseName   string
	RedisURL       string // 为空表示未启用 Redis
	RedisPassword  string
	Server         ServerConfig
	MinIO          MinIOConfig
	Auth           AuthConfig
	Pagination     PaginationConfig
	RateLimit      RateLimitConfig
	Log            LogConfig
	ConfigFilePath string // 实际加载的配置文件路径
}
