package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config structure
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	DatabaseCluster DatabaseClusterConfig `mapstructure:"database_cluster"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Crons           Crons                 `mapstructure:"crons"`
	Settlement      SettlementConfig      `mapstructure:"settlement"`
	Hierarchy       HierarchyConfig       `mapstructure:"hierarchy"`
}

// ServerConfig structure
type ServerConfig struct {
	API        APIConfig        `mapstructure:"api"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// APIConfig structure
type APIConfig struct {
	Port              int
	KeepAlive         bool     `mapstructure:"keep_alive"`
	Domain            string   `mapstructure:"domain"`
	CorsOrigins       []string `mapstructure:"cors_origins"`
	JWTTokenSecret    string   `mapstructure:"jwt_token_secret"`
	JWTRefreshSecret  string   `mapstructure:"jwt_refresh_secret"`
	AccessTokenHours  int      `mapstructure:"access_token_hours"`
	RefreshTokenHours int      `mapstructure:"refresh_token_hours"`
}

// MonitoringConfig structure
type MonitoringConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
}

// DatabaseClusterConfig structure
type DatabaseClusterConfig struct {
	Writer DatabaseConfig `mapstructure:"writer"`
	Reader DatabaseConfig `mapstructure:"reader"`
}

// DatabaseConfig structure
type DatabaseConfig struct {
	Type            string // postgres
	Host            string
	Username        string
	Password        string
	Name            string
	SSLmode         string `mapstructure:"sslmode"`
	ApplicationName string `mapstructure:"application_name"`
	Port            int
	MaxOpenConns    int `mapstructure:"max_open_conns"`
	MaxIdleConns    int `mapstructure:"max_idle_conns"`
}

// DSN builds the postgres connection string, sessions run in UTC
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=%s TimeZone=UTC",
		c.Host, c.Port, c.Username, c.Password, c.Name, c.SSLmode, c.ApplicationName)
}

// URI builds the postgres url used by the migrations
func (c DatabaseConfig) URI() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.Username, c.Password, c.Host, c.Port, c.Name, c.SSLmode)
}

// RedisConfig structure
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Network  string `mapstructure:"network"`
	Address  string `mapstructure:"address"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Crons - mapping of ids to execution frequency
type Crons map[string]string

// SettlementConfig controls the daily batch
type SettlementConfig struct {
	Timezone string `mapstructure:"timezone"`
	// Attempts per step, each attempt is bounded by CallTimeout
	Attempts    int           `mapstructure:"attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	// market categories whose open/close/result numbers reset every day
	DailyResetCategories []string      `mapstructure:"daily_reset_categories"`
	// LockBackend memory only excludes runs inside one process, use redis when the
	// settle/backfill commands or several replicas can run next to the server
	LockBackend string        `mapstructure:"lock_backend"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
}

// SharedDayLock reports whether the day lock is shared between processes through redis
func (cfg Config) SharedDayLock() bool {
	return strings.EqualFold(cfg.Settlement.LockBackend, "redis") || cfg.Redis.Enabled
}

// Location resolves the configured timezone
func (c SettlementConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// HierarchyConfig structure
type HierarchyConfig struct {
	DefaultRegion string `mapstructure:"default_region"`
}

// LoadConfig Load server configuration from the yaml file
func LoadConfig(viperConf *viper.Viper) Config {
	var config Config

	err := viperConf.Unmarshal(&config)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to decode config into struct")
	}
	return config
}

// OpenConfig godoc
func OpenConfig(file string) {
	if file != "" {
		// Use config file from the flag.
		viper.SetConfigFile(file)
	}

	viper.SetConfigType("yaml")
	viper.SetConfigName(".config")
	viper.AddConfigPath(".")                    // First try to load the config from the current directory
	viper.AddConfigPath("$HOME")                // Then try to load it from the HOME directory
	viper.AddConfigPath("/etc/settlement_api/") // As a last resort try to load it from /etc/
	viper.SetEnvPrefix("CFG")
	viper.AutomaticEnv()
	SetDefaultVariables(viper.GetViper())

	err := viper.ReadInConfig() // Find and read the config file
	if err != nil {             // Handle errors reading the config file
		log.Fatal().Err(err).Msg("Unable to read configuration file")
	}
}

// SetDefaultVariables registers the defaults on the given viper instance
func SetDefaultVariables(v *viper.Viper) {
	v.SetDefault("server.api.port", 8080)
	v.SetDefault("server.api.access_token_hours", 24)
	v.SetDefault("server.api.refresh_token_hours", 24*7)
	v.SetDefault("database_cluster.writer.sslmode", "disable")
	v.SetDefault("database_cluster.reader.sslmode", "disable")
	v.SetDefault("redis.network", "tcp")
	v.SetDefault("redis.pool_size", 4)
	v.SetDefault("settlement.timezone", "Asia/Kolkata")
	v.SetDefault("settlement.attempts", 3)
	v.SetDefault("settlement.retry_delay", 2*time.Second)
	v.SetDefault("settlement.call_timeout", 30*time.Second)
	v.SetDefault("settlement.lock_backend", "memory")
	v.SetDefault("settlement.lock_ttl", 30*time.Minute)
	v.SetDefault("hierarchy.default_region", "IN")
	v.SetDefault("crons", map[string]string{"daily_settlement": "0 5 0 * * *"})
}
