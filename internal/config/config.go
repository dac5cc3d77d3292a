package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认值
const (
	DefaultPort            = "3000"
	DefaultDatabaseName    = "bookstore"
	DefaultSessionTTL      = 30 * 24 * time.Hour
	DefaultResetTTL        = 10 * time.Minute
	DefaultTokenHeader     = "token"
	DefaultBcryptCost      = 10
	DefaultBooksPerPage    = 10
	DefaultAuthorsPerPage  = 2
	DefaultShutdownTimeout = 10 * time.Second
)

// Load 加载配置
//  1. 加载 .env.{env}（dev/test）
//  2. 加载 {env}.yaml
//  3. 环境变量覆盖并注入凭据
//  4. 校验
func Load() (*Config, error) {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	loadEnvFiles(env)

	yamlCfg, err := loadYAMLConfig(env)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(yamlCfg)

	driver := strings.ToLower(yamlCfg.Database.Driver)
	if driver == "" {
		driver = DriverMongoDB
	}

	cfg := &Config{
		Env:            env,
		DatabaseDriver: driver,
		DatabaseName:   yamlCfg.Database.Name,
		Server:         yamlCfg.Server,
		MinIO:          yamlCfg.MinIO,
		Auth:           yamlCfg.Auth,
		Pagination:     yamlCfg.Pagination,
		RateLimit:      yamlCfg.RateLimit,
		Log:            yamlCfg.Log,
		ConfigFilePath: yamlCfg.loadedFrom,
	}
	if driver == DriverMongoDB {
		cfg.DatabaseURL = buildDatabaseURL(yamlCfg.Database)
	}
	if yamlCfg.Redis.Enabled {
		cfg.RedisURL = buildRedisURL(yamlCfg.Redis)
		cfg.RedisPassword = yamlCfg.Redis.Password
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:" + cfg.Server.Port
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultYAMLConfig 代码硬编码默认值
func defaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server:   ServerConfig{Port: DefaultPort, ShutdownTimeout: DefaultShutdownTimeout},
		Database: DatabaseConfig{Driver: DriverMongoDB, Host: "localhost", Port: 27017, Name: DefaultDatabaseName},
		Redis:    RedisConfig{Host: "localhost", Port: 6379},
		MinIO:    MinIOConfig{Bucket: "bookstore"},
		Auth: AuthConfig{
			SessionTTL:  DefaultSessionTTL,
			ResetTTL:    DefaultResetTTL,
			TokenHeader: DefaultTokenHeader,
			BcryptCost:  DefaultBcryptCost,
		},
		Pagination: PaginationConfig{BooksPerPage: DefaultBooksPerPage, AuthorsPerPage: DefaultAuthorsPerPage},
		RateLimit: RateLimitConfig{
			Login:  RateRule{Limit: 10, Window: 15 * time.Minute},
			Forgot: RateRule{Limit: 5, Window: 15 * time.Minute},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// yamlFile 带加载来源的 YAML 配置
type yamlFile struct {
	YAMLConfig `yaml:",inline"`
	loadedFrom string
}

// loadYAMLConfig 默认值 → {env}.yaml
// 配置文件不存在时使用默认值；存在但格式错误时返回错误
func loadYAMLConfig(env Environment) (*yamlFile, error) {
	cfg := &yamlFile{YAMLConfig: *defaultYAMLConfig()}

	path := findConfigFile(env)
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg.YAMLConfig); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.loadedFrom = path
	return cfg, nil
}

// applyEnvOverrides 环境变量覆盖 YAML，凭据只来自环境变量
func applyEnvOverrides(cfg *yamlFile) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = strings.Split(v, ",")
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := firstEnv("MONGO_URI", "DATABASE_URL"); v != "" {
		cfg.Database.URI = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Auth.BcryptCost = n
		}
	}

	cfg.Database.Password = firstEnv("MONGO_ROOT_PASSWORD", "DB_PASSWORD")
	if v := firstEnv("MONGO_ROOT_USER", "DB_USER"); v != "" {
		cfg.Database.User = v
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.MinIO.AccessKey = os.Getenv("MINIO_ROOT_USER")
	cfg.MinIO.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")
	cfg.Auth.JWTSecret = firstEnv("JWT_SECRET", "JWT_SECRET_KEY")
	cfg.Auth.AdminEmail = os.Getenv("ADMIN_EMAIL")
	cfg.Auth.AdminPassword = os.Getenv("ADMIN_PASSWORD")
}

// validate 校验配置
// 缺少 JWT_SECRET 不在此报错：服务可启动，签发/校验时返回配置错误
func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case DriverMongoDB, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Auth.BcryptCost < DefaultBcryptCost {
		return fmt.Errorf("bcrypt_cost must be at least %d", DefaultBcryptCost)
	}
	if c.Auth.ResetTTL <= 0 || c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl and reset_ttl must be positive")
	}
	if c.Pagination.BooksPerPage <= 0 || c.Pagination.AuthorsPerPage <= 0 {
		return fmt.Errorf("pagination sizes must be positive")
	}
	for _, p := range c.Server.TrustedProxies {
		if !validProxy(strings.TrimSpace(p)) {
			return fmt.Errorf("invalid trusted proxy %q", p)
		}
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	redis := "disabled"
	if c.RedisURL != "" {
		redis = maskPassword(c.RedisURL)
	}
	minio := "disabled"
	if c.MinIO.Endpoint != "" {
		minio = c.MinIO.Endpoint
	}
	return fmt.Sprintf("Config{Env: %s, Driver: %s, DB: %s/%s, Redis: %s, MinIO: %s}",
		c.Env, c.DatabaseDriver, maskPassword(c.DatabaseURL), c.DatabaseName, redis, minio)
}
