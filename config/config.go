package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	AdminUsernames     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Page cache: "memory" or "redis"
	CacheBackend      string
	IndexCacheSeconds int
	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	// Listing
	PostsPerPage int
	// Media: "local" or "s3"
	MediaBackend string
	MediaDir     string
	MediaURL     string
	MaxUploadMB  int
	S3Bucket     string
	S3Region     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// envOverrides mirrors AppConfig for variables present in the environment.
// Pointer fields stay nil when the variable is unset.
type envOverrides struct {
	AppPort            *string  `envconfig:"APP_PORT"`
	JWTSecret          *string  `envconfig:"JWT_SECRET"`
	RateLimitPerMinute *int     `envconfig:"RATE_LIMIT_PER_MINUTE"`
	AllowedOrigins     []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	AdminUsernames     []string `envconfig:"ADMIN_USERNAMES"`
	GinMode            *string  `envconfig:"GIN_MODE"`
	GinPath            *string  `envconfig:"GIN_PATH"`
	DBDriver           *string  `envconfig:"DB_DRIVER"`
	DatabaseURI        *string  `envconfig:"DATABASE_URI"`
	DBHost             *string  `envconfig:"DB_HOST"`
	DBPort             *string  `envconfig:"DB_PORT"`
	DBUser             *string  `envconfig:"DB_USER"`
	DBPassword         *string  `envconfig:"DB_PASSWORD"`
	DBName             *string  `envconfig:"DB_NAME"`
	CacheBackend       *string  `envconfig:"CACHE_BACKEND"`
	IndexCacheSeconds  *int     `envconfig:"INDEX_CACHE_SECONDS"`
	RedisHost          *string  `envconfig:"REDIS_HOST"`
	RedisPort          *int     `envconfig:"REDIS_PORT"`
	RedisDB            *int     `envconfig:"REDIS_DB"`
	RedisPassword      *string  `envconfig:"REDIS_PASSWORD"`
	PostsPerPage       *int     `envconfig:"POSTS_PER_PAGE"`
	MediaBackend       *string  `envconfig:"MEDIA_BACKEND"`
	MediaDir           *string  `envconfig:"MEDIA_DIR"`
	MediaURL           *string  `envconfig:"MEDIA_URL"`
	MaxUploadMB        *int     `envconfig:"MAX_UPLOAD_MB"`
	S3Bucket           *string  `envconfig:"S3_BUCKET"`
	S3Region           *string  `envconfig:"S3_REGION"`
	S3AccessKey        *string  `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey        *string  `envconfig:"S3_SECRET_KEY"`
	S3Endpoint         *string  `envconfig:"S3_ENDPOINT"`
	LogLevel           *string  `envconfig:"LOG_LEVEL"`
	LogPath            *string  `envconfig:"LOG_PATH"`
	LogMaxSizeMB       *int     `envconfig:"LOG_MAX_SIZE_MB"`
	LogMaxBackups      *int     `envconfig:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays      *int     `envconfig:"LOG_MAX_AGE_DAYS"`
	LogCompress        *bool    `envconfig:"LOG_COMPRESS"`
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// LoadFrom builds a configuration without touching the cached global.
// Precedence: JSON file -> defaults -> .env file -> environment variables.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return c, err
	}

	applyDefaults(&c)

	if os.Getenv("GIN_MODE") != "release" {
		// a missing .env is normal outside development
		_ = godotenv.Load(".env")
	}

	if err := applyEnvOverrides(&c); err != nil {
		return c, err
	}
	return c, nil
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Used by the CLI flags and by tests.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.PostsPerPage = getInt(app, "PostsPerPage")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.AdminUsernames = getStringSlice(app, "AdminUsernames")
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if cc, ok := raw["cache"].(map[string]any); ok {
		out.CacheBackend = getString(cc, "Backend")
		out.IndexCacheSeconds = getInt(cc, "IndexSeconds")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if md, ok := raw["media"].(map[string]any); ok {
		out.MediaBackend = getString(md, "Backend")
		out.MediaDir = getString(md, "Dir")
		out.MediaURL = getString(md, "URL")
		out.MaxUploadMB = getInt(md, "MaxUploadMB")
		out.S3Bucket = getString(md, "S3Bucket")
		out.S3Region = getString(md, "S3Region")
		out.S3AccessKey = getString(md, "S3AccessKey")
		out.S3SecretKey = getString(md, "S3SecretKey")
		out.S3Endpoint = getString(md, "S3Endpoint")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8000"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = defaultDBPort(c.DBDriver)
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "yatube"
	}
	if c.CacheBackend == "" {
		c.CacheBackend = "memory"
	}
	if c.IndexCacheSeconds == 0 {
		c.IndexCacheSeconds = 20
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.PostsPerPage == 0 {
		c.PostsPerPage = 10
	}
	if c.MediaBackend == "" {
		c.MediaBackend = "local"
	}
	if c.MediaDir == "" {
		c.MediaDir = "media"
	}
	if c.MediaURL == "" {
		c.MediaURL = "/media/"
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 10
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

func defaultDBPort(driver string) string {
	switch driver {
	case "postgres":
		return "5432"
	case "sqlite":
		return ""
	default:
		return "3306"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	var ov envOverrides
	if err := envconfig.Process("", &ov); err != nil {
		return err
	}

	setString(&c.AppPort, ov.AppPort)
	setString(&c.JWTSecret, ov.JWTSecret)
	setInt(&c.RateLimitPerMinute, ov.RateLimitPerMinute)
	if list := trimList(ov.AllowedOrigins); len(list) > 0 {
		c.AllowedOrigins = list
	}
	if list := trimList(ov.AdminUsernames); len(list) > 0 {
		c.AdminUsernames = list
	}
	setString(&c.GinMode, ov.GinMode)
	setString(&c.GinPath, ov.GinPath)
	setString(&c.DBDriver, ov.DBDriver)
	setString(&c.DatabaseURI, ov.DatabaseURI)
	setString(&c.DBHost, ov.DBHost)
	setString(&c.DBPort, ov.DBPort)
	setString(&c.DBUser, ov.DBUser)
	setString(&c.DBPassword, ov.DBPassword)
	setString(&c.DBName, ov.DBName)
	setString(&c.CacheBackend, ov.CacheBackend)
	setInt(&c.IndexCacheSeconds, ov.IndexCacheSeconds)
	setString(&c.RedisHost, ov.RedisHost)
	setInt(&c.RedisPort, ov.RedisPort)
	setInt(&c.RedisDB, ov.RedisDB)
	setString(&c.RedisPassword, ov.RedisPassword)
	setInt(&c.PostsPerPage, ov.PostsPerPage)
	setString(&c.MediaBackend, ov.MediaBackend)
	setString(&c.MediaDir, ov.MediaDir)
	setString(&c.MediaURL, ov.MediaURL)
	setInt(&c.MaxUploadMB, ov.MaxUploadMB)
	setString(&c.S3Bucket, ov.S3Bucket)
	setString(&c.S3Region, ov.S3Region)
	setString(&c.S3AccessKey, ov.S3AccessKey)
	setString(&c.S3SecretKey, ov.S3SecretKey)
	setString(&c.S3Endpoint, ov.S3Endpoint)
	setString(&c.LogLevel, ov.LogLevel)
	setString(&c.LogPath, ov.LogPath)
	setInt(&c.LogMaxSizeMB, ov.LogMaxSizeMB)
	setInt(&c.LogMaxBackups, ov.LogMaxBackups)
	setInt(&c.LogMaxAgeDays, ov.LogMaxAgeDays)
	if ov.LogCompress != nil {
		c.LogCompress = *ov.LogCompress
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func trimList(items []string) []string {
	out := []string{}
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// IsAdmin reports whether the username is listed in AdminUsernames.
func (c AppConfig) IsAdmin(username string) bool {
	if username == "" {
		return false
	}
	for _, u := range c.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), username) {
			return true
		}
	}
	return false
}
