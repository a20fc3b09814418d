package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	CORS        CORSConfig
	Log         LogConfig
	Storage     StorageConfig
	Upstream    UpstreamConfig
	Schedule    ScheduleConfig
	Countdown   CountdownConfig
	Geolocation GeolocationConfig
	Mosque      MosqueConfig
	RateLimit   RateLimitConfig
	Exports     ExportsConfig
	MQTT        MQTTConfig
	Location    DefaultLocationConfig
	Gateway     GatewayConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig selects the key-value backend used for schedule, mosque and
// preference persistence.
type StorageConfig struct {
	Driver     string
	Dir        string
	QuotaBytes int64
}

// UpstreamConfig points at the third-party APIs proxied by the gateway.
type UpstreamConfig struct {
	MyQuranBaseURL    string
	MyQuranTimeout    time.Duration
	TimeAPIURL        string
	TimeSyncTimeout   time.Duration
	TimeSyncInterval  time.Duration
	OverpassEndpoints []string
	OverpassTimeout   time.Duration
	ProxyCacheTTL     time.Duration
	SafeClient        bool
}

// ScheduleConfig tunes the schedule fetch layer.
type ScheduleConfig struct {
	CacheMaxAge  time.Duration
	BatchSize    int
	DayAttempts  int
	RetryBackoff time.Duration
	PrefetchDays int
}

// CountdownConfig tunes the prayer cycle engine.
type CountdownConfig struct {
	CoarseInterval time.Duration
	FineInterval   time.Duration
	MaxRefetch     int
}

// GeolocationConfig tunes the location tracker.
type GeolocationConfig struct {
	Ceiling        time.Duration
	UpdateTimeout  time.Duration
	SettleAccuracy float64
}

// MosqueConfig tunes the mosque search.
type MosqueConfig struct {
	CacheTTL    time.Duration
	ResultLimit int
}

// RateLimitConfig configures per-IP request limits.
type RateLimitConfig struct {
	PerMinute       int
	MosquePerMinute int
	CleanupInterval time.Duration
}

// ExportsConfig controls schedule export storage.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
	Workers         int
}

// MQTTConfig enables next-prayer announcements. Empty BrokerURL disables it.
type MQTTConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// DefaultLocationConfig is the location used before the user picks one.
type DefaultLocationConfig struct {
	CityID   string
	CityName string
	Province string
}

// GatewayConfig is used by the terminal client to reach the api-gateway.
type GatewayConfig struct {
	URL     string
	Timeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Storage = StorageConfig{
		Driver:     strings.ToLower(v.GetString("STORAGE_DRIVER")),
		Dir:        v.GetString("STORAGE_DIR"),
		QuotaBytes: v.GetInt64("STORAGE_QUOTA_BYTES"),
	}

	cfg.Upstream = UpstreamConfig{
		MyQuranBaseURL:    strings.TrimRight(v.GetString("MYQURAN_BASE_URL"), "/"),
		MyQuranTimeout:    parseDuration(v.GetString("MYQURAN_TIMEOUT"), 15*time.Second),
		TimeAPIURL:        strings.TrimRight(v.GetString("TIME_API_URL"), "/"),
		TimeSyncTimeout:   parseDuration(v.GetString("TIME_SYNC_TIMEOUT"), 5*time.Second),
		TimeSyncInterval:  parseDuration(v.GetString("TIME_SYNC_INTERVAL"), 30*time.Minute),
		OverpassEndpoints: splitAndTrim(v.GetString("OVERPASS_ENDPOINTS")),
		OverpassTimeout:   parseDuration(v.GetString("OVERPASS_TIMEOUT"), 10*time.Second),
		ProxyCacheTTL:     parseDuration(v.GetString("PROXY_CACHE_TTL"), 24*time.Hour),
		SafeClient:        v.GetBool("UPSTREAM_SAFE_CLIENT"),
	}

	cfg.Schedule = ScheduleConfig{
		CacheMaxAge:  parseDuration(v.GetString("SCHEDULE_CACHE_MAX_AGE"), 7*24*time.Hour),
		BatchSize:    v.GetInt("SCHEDULE_BATCH_SIZE"),
		DayAttempts:  v.GetInt("SCHEDULE_DAY_ATTEMPTS"),
		RetryBackoff: parseDuration(v.GetString("SCHEDULE_RETRY_BACKOFF"), 200*time.Millisecond),
		PrefetchDays: v.GetInt("SCHEDULE_PREFETCH_DAYS"),
	}

	cfg.Countdown = CountdownConfig{
		CoarseInterval: parseDuration(v.GetString("COUNTDOWN_COARSE_INTERVAL"), 30*time.Second),
		FineInterval:   parseDuration(v.GetString("COUNTDOWN_FINE_INTERVAL"), time.Second),
		MaxRefetch:     v.GetInt("COUNTDOWN_MAX_REFETCH"),
	}

	cfg.Geolocation = GeolocationConfig{
		Ceiling:        parseDuration(v.GetString("GEO_CEILING"), 15*time.Second),
		UpdateTimeout:  parseDuration(v.GetString("GEO_UPDATE_TIMEOUT"), 30*time.Second),
		SettleAccuracy: v.GetFloat64("GEO_SETTLE_ACCURACY"),
	}

	cfg.Mosque = MosqueConfig{
		CacheTTL:    parseDuration(v.GetString("MOSQUE_CACHE_TTL"), 30*time.Minute),
		ResultLimit: v.GetInt("MOSQUE_RESULT_LIMIT"),
	}

	cfg.RateLimit = RateLimitConfig{
		PerMinute:       v.GetInt("RATE_LIMIT_PER_MINUTE"),
		MosquePerMinute: v.GetInt("MOSQUE_RATE_LIMIT_PER_MINUTE"),
		CleanupInterval: parseDuration(v.GetString("RATE_LIMIT_CLEANUP_INTERVAL"), 5*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
		Workers:         v.GetInt("PREFETCH_WORKERS"),
	}

	cfg.MQTT = MQTTConfig{
		BrokerURL:   v.GetString("MQTT_BROKER_URL"),
		ClientID:    v.GetString("MQTT_CLIENT_ID"),
		Username:    v.GetString("MQTT_USERNAME"),
		Password:    v.GetString("MQTT_PASSWORD"),
		TopicPrefix: strings.Trim(v.GetString("MQTT_TOPIC_PREFIX"), "/"),
	}

	cfg.Location = DefaultLocationConfig{
		CityID:   v.GetString("DEFAULT_CITY_ID"),
		CityName: v.GetString("DEFAULT_CITY_NAME"),
		Province: v.GetString("DEFAULT_PROVINCE"),
	}

	cfg.Gateway = GatewayConfig{
		URL:     strings.TrimRight(v.GetString("GATEWAY_URL"), "/"),
		Timeout: parseDuration(v.GetString("GATEWAY_TIMEOUT"), 15*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "jadwal_sholat")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_DRIVER", StorageMemory)
	v.SetDefault("STORAGE_DIR", "./data")
	v.SetDefault("STORAGE_QUOTA_BYTES", 5*1024*1024)

	v.SetDefault("MYQURAN_BASE_URL", "https://api.myquran.com/v3/sholat")
	v.SetDefault("MYQURAN_TIMEOUT", "15s")
	v.SetDefault("TIME_API_URL", "https://worldtimeapi.org/api")
	v.SetDefault("TIME_SYNC_TIMEOUT", "5s")
	v.SetDefault("TIME_SYNC_INTERVAL", "30m")
	v.SetDefault("OVERPASS_ENDPOINTS", "https://overpass.kumi.systems/api/interpreter,https://overpass-api.de/api/interpreter")
	v.SetDefault("OVERPASS_TIMEOUT", "10s")
	v.SetDefault("PROXY_CACHE_TTL", "24h")
	v.SetDefault("UPSTREAM_SAFE_CLIENT", true)

	v.SetDefault("SCHEDULE_CACHE_MAX_AGE", "168h")
	v.SetDefault("SCHEDULE_BATCH_SIZE", 7)
	v.SetDefault("SCHEDULE_DAY_ATTEMPTS", 2)
	v.SetDefault("SCHEDULE_RETRY_BACKOFF", "200ms")
	v.SetDefault("SCHEDULE_PREFETCH_DAYS", 7)

	v.SetDefault("COUNTDOWN_COARSE_INTERVAL", "30s")
	v.SetDefault("COUNTDOWN_FINE_INTERVAL", "1s")
	v.SetDefault("COUNTDOWN_MAX_REFETCH", 3)

	v.SetDefault("GEO_CEILING", "15s")
	v.SetDefault("GEO_UPDATE_TIMEOUT", "30s")
	v.SetDefault("GEO_SETTLE_ACCURACY", 100)

	v.SetDefault("MOSQUE_CACHE_TTL", "30m")
	v.SetDefault("MOSQUE_RESULT_LIMIT", 20)

	v.SetDefault("RATE_LIMIT_PER_MINUTE", 30)
	v.SetDefault("MOSQUE_RATE_LIMIT_PER_MINUTE", 10)
	v.SetDefault("RATE_LIMIT_CLEANUP_INTERVAL", "5m")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("PREFETCH_WORKERS", 2)

	v.SetDefault("MQTT_BROKER_URL", "")
	v.SetDefault("MQTT_CLIENT_ID", "jadwal-sholat-gateway")
	v.SetDefault("MQTT_USERNAME", "")
	v.SetDefault("MQTT_PASSWORD", "")
	v.SetDefault("MQTT_TOPIC_PREFIX", "jadwal")

	v.SetDefault("DEFAULT_CITY_ID", "58a2fc6ed39fd083f55d4182bf88826d")
	v.SetDefault("DEFAULT_CITY_NAME", "KOTA JAKARTA")
	v.SetDefault("DEFAULT_PROVINCE", "DKI JAKARTA")

	v.SetDefault("GATEWAY_URL", "")
	v.SetDefault("GATEWAY_TIMEOUT", "15s")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
