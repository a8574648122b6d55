package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var v *viper.Viper
var cfg *Config

// Config App-wide configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"-"`
	Redis     RedisConfig     `mapstructure:"-"`
	App       AppConfig       `mapstructure:"-"`
	JWT       JWTConfig       `mapstructure:"-"`
	Cache     CacheConfig     `mapstructure:"-"`
	Snowflake SnowflakeConfig `mapstructure:"-"`
	Logging   LoggingConfig   `mapstructure:"-"`
	Security  SecurityConfig  `mapstructure:"-"`
	Search    SearchConfig    `mapstructure:"-"`
	Forum     ForumConfig     `mapstructure:"-"`
}

// DatabaseConfig Database Configuration
type DatabaseConfig struct {
	Driver          string // mysql | postgres | sqlite
	Host            string
	Port            int
	Username        string
	Password        string
	Name            string
	Path            string // sqlite database file
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	AutoMigrate     bool
}

// RedisConfig Redis Configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// AppConfig Application Configuration
type AppConfig struct {
	Host           string
	Port           int
	Mode           string
	BaseURL        string
	RequestTimeout time.Duration // 0 disables the per-request deadline
}

// JWTConfig JWT Configuration
type JWTConfig struct {
	Secret string
	Expiry int // token lifetime in seconds
}

// CacheConfig Cache Configuration
type CacheConfig struct {
	L1Cap int // MB
	L2TTL int // seconds
}

// SnowflakeConfig Snowflake Configuration
type SnowflakeConfig struct {
	WorkerID int64
}

// LoggingConfig Logging Configuration
type LoggingConfig struct {
	Level  string
	Output string
}

// SecurityConfig Security Configuration
type SecurityConfig struct {
	AllowIPs  []string // admin whitelist, CIDR allowed
	DenyIPs   []string
	RateLimit int // requests per minute per IP, 0 disables
	CORS      CORSConfig
}

// CORSConfig CORS Configuration
type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string // empty allows any origin
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int // seconds
}

// SearchConfig Search engine Configuration
type SearchConfig struct {
	Engine    string // null | meilisearch | redis
	Workers   int    // 0 indexes inline
	QueueSize int
	Meili     MeiliConfig
	Redis     RedisIndexConfig
}

// MeiliConfig Meilisearch Configuration
type MeiliConfig struct {
	URL       string
	APIKey    string
	Index     string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables throttling
}

// RedisIndexConfig Redis search index Configuration
type RedisIndexConfig struct {
	Prefix string
}

// ForumConfig Forum behaviour Configuration
type ForumConfig struct {
	Policy          string // permissive | owner
	DefaultPageSize int
	MaxPageSize     int
}

// Init Initialize configuration with Viper
func Init(configPath string) error {
	// .env is optional, real environment variables win
	_ = godotenv.Load()

	v = viper.New()
	cfg = &Config{}

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("FORUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvs()

	return parseConfig()
}

// setDefaults set default values
func setDefaults() {
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.mode", "release")
	v.SetDefault("app.base_url", "")
	v.SetDefault("app.request_timeout", "15s")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.name", "forum")
	v.SetDefault("database.path", "forum.db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("cache.l1_cap", 64)
	v.SetDefault("cache.l2_ttl", 3600)

	v.SetDefault("snowflake.worker_id", 0)

	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expiry", 86400)

	v.SetDefault("security.allow_ips", []string{"127.0.0.1", "localhost", "::1"})
	v.SetDefault("security.rate_limit", 100)
	v.SetDefault("security.cors.enabled", false)
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("security.cors.max_age", 600)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("search.engine", "null")
	v.SetDefault("search.workers", 2)
	v.SetDefault("search.queue_size", 256)
	v.SetDefault("search.meili.url", "http://127.0.0.1:7700")
	v.SetDefault("search.meili.index", "forum")
	v.SetDefault("search.meili.timeout", "5s")
	v.SetDefault("search.meili.rate_limit", 20.0)
	v.SetDefault("search.redis.prefix", "forum:search")

	v.SetDefault("forum.policy", "permissive")
	v.SetDefault("forum.default_page_size", 25)
	v.SetDefault("forum.max_page_size", 100)
}

// bindEnvs bind environment variables
func bindEnvs() {
	// Database
	v.BindEnv("database.driver", "FORUM_DATABASE_DRIVER")
	v.BindEnv("database.host", "FORUM_DATABASE_HOST")
	v.BindEnv("database.port", "FORUM_DATABASE_PORT")
	v.BindEnv("database.username", "FORUM_DATABASE_USERNAME")
	v.BindEnv("database.password", "FORUM_DATABASE_PASSWORD")
	v.BindEnv("database.name", "FORUM_DATABASE_NAME")
	v.BindEnv("database.path", "FORUM_DATABASE_PATH")

	// Redis
	v.BindEnv("redis.enabled", "FORUM_REDIS_ENABLED")
	v.BindEnv("redis.host", "FORUM_REDIS_HOST")
	v.BindEnv("redis.port", "FORUM_REDIS_PORT")
	v.BindEnv("redis.password", "FORUM_REDIS_PASSWORD")

	// JWT
	v.BindEnv("jwt.secret", "FORUM_JWT_SECRET")

	// Search
	v.BindEnv("search.engine", "FORUM_SEARCH_ENGINE")
	v.BindEnv("search.meili.url", "FORUM_SEARCH_MEILI_URL")
	v.BindEnv("search.meili.api_key", "FORUM_SEARCH_MEILI_API_KEY")
}

// parseConfig parse configuration into struct
func parseConfig() error {
	// Database
	cfg.Database.Driver = strings.ToLower(v.GetString("database.driver"))
	cfg.Database.Host = v.GetString("database.host")
	cfg.Database.Port = v.GetInt("database.port")
	cfg.Database.Username = v.GetString("database.username")
	cfg.Database.Password = v.GetString("database.password")
	cfg.Database.Name = v.GetString("database.name")
	cfg.Database.Path = v.GetString("database.path")
	cfg.Database.SSLMode = v.GetString("database.ssl_mode")
	cfg.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	cfg.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")
	cfg.Database.ConnMaxLifetime = v.GetInt("database.conn_max_lifetime")
	cfg.Database.AutoMigrate = v.GetBool("database.auto_migrate")

	// Redis
	cfg.Redis.Enabled = v.GetBool("redis.enabled")
	cfg.Redis.Host = v.GetString("redis.host")
	cfg.Redis.Port = v.GetInt("redis.port")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Redis.PoolSize = v.GetInt("redis.pool_size")

	// App
	cfg.App.Host = v.GetString("app.host")
	cfg.App.Port = v.GetInt("app.port")
	cfg.App.Mode = v.GetString("app.mode")
	cfg.App.BaseURL = strings.TrimRight(strings.TrimSpace(v.GetString("app.base_url")), "/")
	cfg.App.RequestTimeout = v.GetDuration("app.request_timeout")

	// JWT
	cfg.JWT.Secret = v.GetString("jwt.secret")
	cfg.JWT.Expiry = v.GetInt("jwt.expiry")

	// Cache
	cfg.Cache.L1Cap = v.GetInt("cache.l1_cap")
	cfg.Cache.L2TTL = v.GetInt("cache.l2_ttl")

	// Snowflake
	cfg.Snowflake.WorkerID = v.GetInt64("snowflake.worker_id")

	// Logging
	cfg.Logging.Level = v.GetString("logging.level")
	cfg.Logging.Output = v.GetString("logging.output")

	// Security
	cfg.Security.AllowIPs = v.GetStringSlice("security.allow_ips")
	cfg.Security.DenyIPs = v.GetStringSlice("security.deny_ips")
	cfg.Security.RateLimit = v.GetInt("security.rate_limit")
	cfg.Security.CORS.Enabled = v.GetBool("security.cors.enabled")
	cfg.Security.CORS.AllowedOrigins = v.GetStringSlice("security.cors.allowed_origins")
	cfg.Security.CORS.AllowedMethods = v.GetStringSlice("security.cors.allowed_methods")
	cfg.Security.CORS.AllowedHeaders = v.GetStringSlice("security.cors.allowed_headers")
	cfg.Security.CORS.AllowCredentials = v.GetBool("security.cors.allow_credentials")
	cfg.Security.CORS.MaxAge = v.GetInt("security.cors.max_age")

	// Search
	cfg.Search.Engine = strings.ToLower(v.GetString("search.engine"))
	cfg.Search.Workers = v.GetInt("search.workers")
	cfg.Search.QueueSize = v.GetInt("search.queue_size")
	cfg.Search.Meili.URL = strings.TrimRight(v.GetString("search.meili.url"), "/")
	cfg.Search.Meili.APIKey = v.GetString("search.meili.api_key")
	cfg.Search.Meili.Index = v.GetString("search.meili.index")
	cfg.Search.Meili.Timeout = v.GetDuration("search.meili.timeout")
	cfg.Search.Meili.RateLimit = v.GetFloat64("search.meili.rate_limit")
	cfg.Search.Redis.Prefix = v.GetString("search.redis.prefix")

	// Forum
	cfg.Forum.Policy = strings.ToLower(v.GetString("forum.policy"))
	cfg.Forum.DefaultPageSize = v.GetInt("forum.default_page_size")
	cfg.Forum.MaxPageSize = v.GetInt("forum.max_page_size")

	return cfg.Validate()
}

// Validate check values that would otherwise fail late at runtime
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Search.Engine {
	case "null", "meilisearch", "redis":
	default:
		return fmt.Errorf("unsupported search engine %q", c.Search.Engine)
	}
	if c.Search.Engine == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("search engine redis requires redis.enabled")
	}
	switch c.Forum.Policy {
	case "permissive", "owner":
	default:
		return fmt.Errorf("unsupported forum policy %q", c.Forum.Policy)
	}
	if c.Forum.DefaultPageSize <= 0 || c.Forum.MaxPageSize < c.Forum.DefaultPageSize {
		return fmt.Errorf("invalid page sizes: default=%d max=%d", c.Forum.DefaultPageSize, c.Forum.MaxPageSize)
	}
	return nil
}

// Get get configuration instance
func Get() *Config {
	return cfg
}

// GetDSN Get driver specific DSN
func (c *DatabaseConfig) GetDSN() string {
	switch c.Driver {
	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.Username, c.Password),
			Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
			Path:     c.Name,
			RawQuery: "sslmode=" + c.SSLMode,
		}
		return u.String()
	case "sqlite":
		return SQLiteDSN(c.Path)
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC&charset=utf8mb4&multiStatements=true",
			c.Username, c.Password, c.Host, c.Port, c.Name)
	}
}

// SQLiteDSN Build a modernc sqlite DSN with the pragmas the store relies on
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// GetRedisAddr Get Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetServerAddr Get server address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
